package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/concierge/internal/models"
	"github.com/fentz26/concierge/internal/progress"
	"github.com/fentz26/concierge/internal/seed"
	"github.com/fentz26/concierge/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(store.MemoryPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDefaultFixtures(t *testing.T) {
	fx, err := seed.Default()
	require.NoError(t, err)

	assert.Len(t, fx.Tasks, 2)
	assert.Len(t, fx.Memories, 2)
	assert.Len(t, fx.Categories, 3)
	assert.Len(t, fx.Tags, 5)
	require.NotNil(t, fx.Profile)
	require.Len(t, fx.Sessions, 1)
	assert.Len(t, fx.Sessions[0].Contexts, 2)
	assert.Len(t, fx.Sessions[0].Messages, 4)

	require.Len(t, fx.Tasks[0].Steps, 3)
	assert.Equal(t, []string{"step-002"}, fx.Tasks[0].Steps[2].Dependencies)
}

func TestParseRejectsUnknownStatus(t *testing.T) {
	tests := map[string]struct {
		doc string
	}{
		"Unknown task status should fail.": {
			doc: "tasks:\n  - id: t1\n    title: x\n    status: done\n",
		},
		"Unknown step status should fail.": {
			doc: "tasks:\n  - id: t1\n    title: x\n    status: pending\n    steps:\n      - id: s1\n        title: y\n        status: paused\n",
		},
		"Invalid YAML should fail.": {
			doc: "tasks: [",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := seed.Parse([]byte(test.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	fx, err := seed.Default()
	require.NoError(t, err)

	require.NoError(t, seed.Load(ctx, s, fx, nil))

	tasks, err := s.ListTasks(ctx, "")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "task-001", tasks[0].ID)
	assert.Equal(t, "step-002", tasks[0].CurrentStepID)
	assert.Equal(t, 33, progress.OverallProgress(tasks[0].Steps))

	current, err := s.CurrentTaskID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "task-001", current)

	mems, err := s.ListMemories(ctx, store.MemoryQuery{Tag: "cats"})
	require.NoError(t, err)
	require.Len(t, mems, 1)
	assert.Equal(t, "mem-001", mems[0].ID)

	profile, err := s.GetUserProfile(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "user-001", profile.ID)
	assert.Equal(t, true, profile.Preferences["notification"])
	require.Len(t, profile.ImportantDates, 1)
	assert.Equal(t, models.ImportantDateBirthday, profile.ImportantDates[0].Type)

	sess, err := s.GetSession(ctx, "session-001")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 4)
	assert.Equal(t, models.SenderAssistant, sess.Messages[3].Sender)
}

func TestLoadSkipsPopulatedStore(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, err := s.CreateTask(ctx, models.Task{ID: "mine", Title: "Already here"})
	require.NoError(t, err)

	fx, err := seed.Default()
	require.NoError(t, err)
	require.NoError(t, seed.Load(ctx, s, fx, nil))

	tasks, err := s.ListTasks(ctx, "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "mine", tasks[0].ID)
}
