// Package connectors defines how reminders leave the assistant.
package connectors

import (
	"context"
	"time"

	"github.com/fentz26/concierge/internal/log"
)

// ReminderKind identifies why a reminder was raised.
type ReminderKind string

const (
	ReminderTaskDue       ReminderKind = "task_due"
	ReminderTaskOverdue   ReminderKind = "task_overdue"
	ReminderImportantDate ReminderKind = "important_date"
)

// Reminder is a single notification for the user.
type Reminder struct {
	// Key identifies the reminder occurrence. A key is delivered at most once.
	Key     string       `json:"key"`
	Kind    ReminderKind `json:"kind"`
	TaskID  string       `json:"task_id,omitempty"`
	Title   string       `json:"title"`
	Message string       `json:"message"`
	At      time.Time    `json:"at"`
}

// Notifier delivers reminders to the user.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Notify delivers r. An error means the reminder was not delivered.
	Notify(ctx context.Context, r Reminder) error
}

// LogNotifier writes reminders to the daemon log.
type LogNotifier struct {
	logger log.Logger
}

// NewLogNotifier creates a notifier that logs every reminder.
func NewLogNotifier(logger log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Noop
	}
	return &LogNotifier{logger: logger.WithValues(log.Kv{"svc": "connectors.Log"})}
}

func (l *LogNotifier) Name() string {
	return "log"
}

func (l *LogNotifier) Notify(_ context.Context, r Reminder) error {
	l.logger.WithValues(log.Kv{"kind": r.Kind, "key": r.Key}).Infof("Reminder: %s: %s", r.Title, r.Message)
	return nil
}
