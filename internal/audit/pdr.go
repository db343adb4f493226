// Package audit records process decisions for every state-mutating action.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/concierge/internal/models"
)

// Outcomes recorded alongside an action.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Repository persists decision records.
type Repository interface {
	WritePDR(ctx context.Context, action, inputsHash, outcome, taskID, details string) (*models.PDREntry, error)
}

// PDRWriter writes Process Decision Records for audit trails.
type PDRWriter struct {
	repo Repository
}

// NewPDRWriter creates a new PDR writer.
func NewPDRWriter(repo Repository) *PDRWriter {
	return &PDRWriter{repo: repo}
}

// Record writes a PDR entry. The inputs are kept only as a hash.
func (w *PDRWriter) Record(ctx context.Context, action string, inputs interface{}, outcome, taskID, details string) (*models.PDREntry, error) {
	return w.repo.WritePDR(ctx, action, HashInputs(inputs), outcome, taskID, details)
}

// HashInputs returns the hex SHA256 of the JSON encoding of inputs.
func HashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
