// Package progress derives task and step progress from step status changes.
//
// Every function here is pure: inputs are never mutated and the returned
// task shares no mutable state with them.
package progress

import (
	"errors"
	"fmt"

	"github.com/fentz26/concierge/internal/models"
)

var (
	// ErrInvalidArgument is returned for out of range progress or unknown statuses.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStepNotFound is returned when the task has no step with the requested id.
	ErrStepNotFound = fmt.Errorf("step %w", ErrNotFound)
)

// StartedProgress is the progress a step gets when it starts from zero.
const StartedProgress = 10

// ParseStatus validates a raw status string.
func ParseStatus(s string) (models.TaskStatus, error) {
	st := models.TaskStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("status %q: %w", s, ErrInvalidArgument)
	}
	return st, nil
}

// ApplyStepStatus sets the status of one step and reconciles the task.
// It fails with ErrStepNotFound when stepID is not part of the task.
func ApplyStepStatus(task models.Task, stepID string, status models.TaskStatus) (models.Task, error) {
	if !status.Valid() {
		return task.Clone(), fmt.Errorf("status %q: %w", status, ErrInvalidArgument)
	}
	if task.FindStep(stepID) < 0 {
		return task.Clone(), fmt.Errorf("task %s step %s: %w", task.ID, stepID, ErrStepNotFound)
	}
	return applyStepStatus(task, stepID, status), nil
}

// TryApplyStepStatus is the lenient form of ApplyStepStatus: an unknown step
// or status leaves the task unchanged and reports false.
func TryApplyStepStatus(task models.Task, stepID string, status models.TaskStatus) (models.Task, bool) {
	updated, err := ApplyStepStatus(task, stepID, status)
	if err != nil {
		return updated, false
	}
	return updated, true
}

func applyStepStatus(task models.Task, stepID string, status models.TaskStatus) models.Task {
	out := task.Clone()

	idx := out.FindStep(stepID)
	step := &out.Steps[idx]
	step.Progress = stepProgress(step.Progress, status)
	step.Status = status

	out.Status = deriveStatus(out.Status, OverallProgress(out.Steps))

	// Only a completion moves the pointer, and only to the first dependant in sequence order.
	if status == models.TaskStatusCompleted {
		for _, s := range out.Steps {
			if s.DependsOn(stepID) {
				out.CurrentStepID = s.ID
				break
			}
		}
	}

	return out
}

// ApplyTaskProgress sets the task status from a raw progress value in [0,100].
// Steps are not touched.
func ApplyTaskProgress(task models.Task, progress int) (models.Task, error) {
	if progress < 0 || progress > 100 {
		return task.Clone(), fmt.Errorf("progress %d out of [0,100]: %w", progress, ErrInvalidArgument)
	}
	out := task.Clone()
	out.Status = deriveStatus(out.Status, progress)
	return out, nil
}

// OverallProgress is the floored percentage of completed steps. No steps means 0.
func OverallProgress(steps []models.Step) int {
	if len(steps) == 0 {
		return 0
	}
	completed := 0
	for _, s := range steps {
		if s.Status == models.TaskStatusCompleted {
			completed++
		}
	}
	return completed * 100 / len(steps)
}

func stepProgress(prev int, status models.TaskStatus) int {
	switch status {
	case models.TaskStatusCompleted:
		return 100
	case models.TaskStatusInProgress:
		if prev == 0 {
			return StartedProgress
		}
		return prev
	default:
		// pending, failed and cancelled all reset.
		return 0
	}
}

// deriveStatus never regresses a task to pending: at 0% the previous status stays.
func deriveStatus(prev models.TaskStatus, overall int) models.TaskStatus {
	switch {
	case overall >= 100:
		return models.TaskStatusCompleted
	case overall > 0:
		return models.TaskStatusInProgress
	default:
		return prev
	}
}
