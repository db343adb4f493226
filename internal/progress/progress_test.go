package progress_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/concierge/internal/models"
	"github.com/fentz26/concierge/internal/progress"
)

func newTask(steps ...models.Step) models.Task {
	return models.Task{
		ID:     "task-1",
		Title:  "Test",
		Status: models.TaskStatusPending,
		Steps:  steps,
	}
}

func pendingStep(id string, deps ...string) models.Step {
	return models.Step{ID: id, Title: id, Status: models.TaskStatusPending, Dependencies: deps}
}

func TestApplyStepStatusStepProgress(t *testing.T) {
	tests := map[string]struct {
		step        models.Step
		status      models.TaskStatus
		expProgress int
	}{
		"Completing a step sets full progress": {
			step:        models.Step{ID: "s1", Status: models.TaskStatusInProgress, Progress: 40},
			status:      models.TaskStatusCompleted,
			expProgress: 100,
		},
		"Starting a step from zero sets the initial progress": {
			step:        models.Step{ID: "s1", Status: models.TaskStatusPending, Progress: 0},
			status:      models.TaskStatusInProgress,
			expProgress: 10,
		},
		"Starting a step with progress keeps it": {
			step:        models.Step{ID: "s1", Status: models.TaskStatusFailed, Progress: 60},
			status:      models.TaskStatusInProgress,
			expProgress: 60,
		},
		"Resetting to pending clears progress": {
			step:        models.Step{ID: "s1", Status: models.TaskStatusCompleted, Progress: 100},
			status:      models.TaskStatusPending,
			expProgress: 0,
		},
		"Cancelling clears progress": {
			step:        models.Step{ID: "s1", Status: models.TaskStatusInProgress, Progress: 70},
			status:      models.TaskStatusCancelled,
			expProgress: 0,
		},
		"Failing clears progress": {
			step:        models.Step{ID: "s1", Status: models.TaskStatusInProgress, Progress: 70},
			status:      models.TaskStatusFailed,
			expProgress: 0,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			task := newTask(test.step)

			got, err := progress.ApplyStepStatus(task, test.step.ID, test.status)
			require.NoError(t, err)

			assert.Equal(t, test.status, got.Steps[0].Status)
			assert.Equal(t, test.expProgress, got.Steps[0].Progress)
		})
	}
}

func TestApplyStepStatusTwoStepScenario(t *testing.T) {
	task := newTask(pendingStep("s1"), pendingStep("s2"))

	got, err := progress.ApplyStepStatus(task, "s1", models.TaskStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Steps[0].Progress)
	assert.Equal(t, 50, progress.OverallProgress(got.Steps))
	assert.Equal(t, models.TaskStatusInProgress, got.Status)

	got, err = progress.ApplyStepStatus(got, "s2", models.TaskStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 100, progress.OverallProgress(got.Steps))
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
}

func TestApplyStepStatusSingleStepStart(t *testing.T) {
	task := newTask(pendingStep("s1"))

	got, err := progress.ApplyStepStatus(task, "s1", models.TaskStatusInProgress)
	require.NoError(t, err)

	assert.Equal(t, 10, got.Steps[0].Progress)
	// No completed steps, so the aggregate stays at 0 and the status is retained.
	assert.Equal(t, models.TaskStatusPending, got.Status)
}

func TestApplyStepStatusAggregate(t *testing.T) {
	tests := map[string]struct {
		statuses  []models.TaskStatus
		prev      models.TaskStatus
		expStatus models.TaskStatus
	}{
		"All completed is completed": {
			statuses:  []models.TaskStatus{models.TaskStatusCompleted, models.TaskStatusCompleted, models.TaskStatusCompleted},
			prev:      models.TaskStatusPending,
			expStatus: models.TaskStatusCompleted,
		},
		"Some completed is in progress": {
			statuses:  []models.TaskStatus{models.TaskStatusCompleted, models.TaskStatusFailed, models.TaskStatusPending},
			prev:      models.TaskStatusPending,
			expStatus: models.TaskStatusInProgress,
		},
		"None completed keeps a previous in progress status": {
			statuses:  []models.TaskStatus{models.TaskStatusPending, models.TaskStatusPending, models.TaskStatusPending},
			prev:      models.TaskStatusInProgress,
			expStatus: models.TaskStatusInProgress,
		},
		"None completed keeps a previous completed status": {
			statuses:  []models.TaskStatus{models.TaskStatusCancelled, models.TaskStatusPending, models.TaskStatusPending},
			prev:      models.TaskStatusCompleted,
			expStatus: models.TaskStatusCompleted,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			// Build the task with the first step in a different state so the update applies the target status.
			steps := make([]models.Step, len(test.statuses))
			for i, st := range test.statuses {
				steps[i] = models.Step{ID: string(rune('a' + i)), Status: st}
			}
			task := newTask(steps...)
			task.Status = test.prev

			got, err := progress.ApplyStepStatus(task, "a", test.statuses[0])
			require.NoError(t, err)
			assert.Equal(t, test.expStatus, got.Status)
		})
	}
}

func TestApplyStepStatusAggregateInvariant(t *testing.T) {
	// For every completion count k of n steps, completed iff k == n and in progress iff 0 < k < n.
	const n = 4
	for k := 0; k <= n; k++ {
		steps := make([]models.Step, n)
		for i := range steps {
			steps[i] = models.Step{ID: string(rune('a' + i)), Status: models.TaskStatusPending}
		}
		task := newTask(steps...)

		var err error
		for i := 0; i < k; i++ {
			task, err = progress.ApplyStepStatus(task, steps[i].ID, models.TaskStatusCompleted)
			require.NoError(t, err)
		}
		// Re-applying the last step's own status goes through the aggregate rule once more.
		task, err = progress.ApplyStepStatus(task, steps[n-1].ID, task.Steps[n-1].Status)
		require.NoError(t, err)

		switch {
		case k == n:
			assert.Equal(t, models.TaskStatusCompleted, task.Status, "k=%d", k)
		case k > 0:
			assert.Equal(t, models.TaskStatusInProgress, task.Status, "k=%d", k)
		default:
			assert.Equal(t, models.TaskStatusPending, task.Status, "k=%d", k)
		}
	}
}

func TestApplyStepStatusIdempotent(t *testing.T) {
	for _, st := range models.TaskStatuses {
		t.Run(string(st), func(t *testing.T) {
			task := newTask(
				models.Step{ID: "s1", Status: models.TaskStatusInProgress, Progress: 30},
				pendingStep("s2", "s1"),
			)

			once, err := progress.ApplyStepStatus(task, "s1", st)
			require.NoError(t, err)
			twice, err := progress.ApplyStepStatus(once, "s1", st)
			require.NoError(t, err)

			assert.Equal(t, once, twice)
		})
	}
}

func TestApplyStepStatusCurrentStep(t *testing.T) {
	tests := map[string]struct {
		task       models.Task
		stepID     string
		status     models.TaskStatus
		expCurrent string
	}{
		"Completing moves to the first dependant step": {
			task: func() models.Task {
				t := newTask(pendingStep("s1"), pendingStep("s2", "s1"), pendingStep("s3", "s1"))
				t.CurrentStepID = "s1"
				return t
			}(),
			stepID:     "s1",
			status:     models.TaskStatusCompleted,
			expCurrent: "s2",
		},
		"Completing without dependants keeps the pointer": {
			task: func() models.Task {
				t := newTask(pendingStep("s1"), pendingStep("s2"))
				t.CurrentStepID = "s1"
				return t
			}(),
			stepID:     "s1",
			status:     models.TaskStatusCompleted,
			expCurrent: "s1",
		},
		"Other statuses never move the pointer": {
			task: func() models.Task {
				t := newTask(pendingStep("s1"), pendingStep("s2", "s1"))
				t.CurrentStepID = "s1"
				return t
			}(),
			stepID:     "s1",
			status:     models.TaskStatusInProgress,
			expCurrent: "s1",
		},
		"Dependants are searched in sequence order, not id order": {
			task: func() models.Task {
				t := newTask(pendingStep("s1"), pendingStep("z9", "s1"), pendingStep("a0", "s1"))
				return t
			}(),
			stepID:     "s1",
			status:     models.TaskStatusCompleted,
			expCurrent: "z9",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := progress.ApplyStepStatus(test.task, test.stepID, test.status)
			require.NoError(t, err)
			assert.Equal(t, test.expCurrent, got.CurrentStepID)
		})
	}
}

func TestApplyStepStatusUnknownStep(t *testing.T) {
	task := newTask(pendingStep("s1"), pendingStep("s2", "s1"))
	task.CurrentStepID = "s1"

	_, err := progress.ApplyStepStatus(task, "does-not-exist", models.TaskStatusCompleted)
	assert.ErrorIs(t, err, progress.ErrStepNotFound)
	assert.ErrorIs(t, err, progress.ErrNotFound)

	got, ok := progress.TryApplyStepStatus(task, "does-not-exist", models.TaskStatusCompleted)
	assert.False(t, ok)
	assert.Equal(t, task, got)
}

func TestApplyStepStatusInvalidStatus(t *testing.T) {
	task := newTask(pendingStep("s1"))

	_, err := progress.ApplyStepStatus(task, "s1", models.TaskStatus("done"))
	assert.ErrorIs(t, err, progress.ErrInvalidArgument)

	_, ok := progress.TryApplyStepStatus(task, "s1", models.TaskStatus("done"))
	assert.False(t, ok)
}

func TestApplyStepStatusDoesNotMutateInput(t *testing.T) {
	task := newTask(pendingStep("s1"), pendingStep("s2", "s1"))
	before := task.Clone()

	got, err := progress.ApplyStepStatus(task, "s1", models.TaskStatusCompleted)
	require.NoError(t, err)

	assert.Equal(t, before, task)

	// Mutating the result must not leak back into the input.
	got.Steps[1].Dependencies[0] = "changed"
	assert.Equal(t, "s1", task.Steps[1].Dependencies[0])
}

func TestApplyStepStatusEmptyTask(t *testing.T) {
	task := newTask()
	_, err := progress.ApplyStepStatus(task, "s1", models.TaskStatusCompleted)
	assert.ErrorIs(t, err, progress.ErrStepNotFound)
	assert.Equal(t, 0, progress.OverallProgress(nil))
}

func TestApplyTaskProgress(t *testing.T) {
	tests := map[string]struct {
		prev      models.TaskStatus
		progress  int
		expStatus models.TaskStatus
		expErr    error
	}{
		"Full progress completes": {
			prev:      models.TaskStatusInProgress,
			progress:  100,
			expStatus: models.TaskStatusCompleted,
		},
		"Partial progress is in progress": {
			prev:      models.TaskStatusPending,
			progress:  1,
			expStatus: models.TaskStatusInProgress,
		},
		"Zero progress retains the previous status": {
			prev:      models.TaskStatusFailed,
			progress:  0,
			expStatus: models.TaskStatusFailed,
		},
		"Above range is rejected": {
			prev:     models.TaskStatusPending,
			progress: 150,
			expErr:   progress.ErrInvalidArgument,
		},
		"Below range is rejected": {
			prev:     models.TaskStatusPending,
			progress: -1,
			expErr:   progress.ErrInvalidArgument,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			task := newTask(models.Step{ID: "s1", Status: models.TaskStatusInProgress, Progress: 25})
			task.Status = test.prev

			got, err := progress.ApplyTaskProgress(task, test.progress)
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expStatus, got.Status)
			assert.Equal(t, task.Steps, got.Steps)
		})
	}
}

func TestParseStatus(t *testing.T) {
	st, err := progress.ParseStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, st)

	_, err = progress.ParseStatus("running")
	assert.ErrorIs(t, err, progress.ErrInvalidArgument)
}
