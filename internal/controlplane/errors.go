package controlplane

import (
	"errors"

	"github.com/fentz26/concierge/internal/progress"
	"github.com/fentz26/concierge/internal/store"
)

// Sentinel errors for control plane operations.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidInput    = errors.New("invalid input")
)

// IsNotFound reports whether err means a missing task, step, session or record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, progress.ErrNotFound) ||
		errors.Is(err, store.ErrNotFound)
}

// IsInvalid reports whether err was caused by bad caller input.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, progress.ErrInvalidArgument)
}
