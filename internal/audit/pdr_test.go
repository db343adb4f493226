package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/concierge/internal/models"
)

type recordingRepo struct {
	entries []models.PDREntry
}

func (r *recordingRepo) WritePDR(_ context.Context, action, inputsHash, outcome, taskID, details string) (*models.PDREntry, error) {
	e := models.PDREntry{Action: action, InputsHash: inputsHash, Outcome: outcome, TaskID: taskID, Details: details}
	r.entries = append(r.entries, e)
	return &e, nil
}

func TestHashInputs(t *testing.T) {
	tests := map[string]struct {
		a, b    interface{}
		expSame bool
	}{
		"Same inputs should hash equally": {
			a:       map[string]int{"progress": 50},
			b:       map[string]int{"progress": 50},
			expSame: true,
		},
		"Different inputs should hash differently": {
			a:       map[string]int{"progress": 50},
			b:       map[string]int{"progress": 51},
			expSame: false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ha, hb := HashInputs(test.a), HashInputs(test.b)
			assert.Len(t, ha, 64)
			assert.Equal(t, test.expSame, ha == hb)
		})
	}
}

func TestHashInputsUnencodable(t *testing.T) {
	assert.Equal(t, "hash_error", HashInputs(make(chan int)))
}

func TestRecord(t *testing.T) {
	repo := &recordingRepo{}
	w := NewPDRWriter(repo)

	_, err := w.Record(context.Background(), "task.update_step_status", map[string]string{"step_id": "s1"}, OutcomeSuccess, "task-1", "")
	require.NoError(t, err)

	require.Len(t, repo.entries, 1)
	e := repo.entries[0]
	assert.Equal(t, "task.update_step_status", e.Action)
	assert.Equal(t, OutcomeSuccess, e.Outcome)
	assert.Equal(t, "task-1", e.TaskID)
	assert.Equal(t, HashInputs(map[string]string{"step_id": "s1"}), e.InputsHash)
}
