package connectors

import (
	"context"
	"testing"
	"time"
)

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(nil)
	if n.Name() != "log" {
		t.Errorf("Expected name 'log', got %s", n.Name())
	}

	err := n.Notify(context.Background(), Reminder{
		Key:     "task_due:task-001:2026-10-15",
		Kind:    ReminderTaskDue,
		Title:   "Plan weekend trip",
		Message: "Due today",
		At:      time.Now(),
	})
	if err != nil {
		t.Errorf("Notify failed: %v", err)
	}
}
