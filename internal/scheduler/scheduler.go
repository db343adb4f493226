package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fentz26/concierge/internal/audit"
	"github.com/fentz26/concierge/internal/connectors"
	"github.com/fentz26/concierge/internal/log"
	"github.com/fentz26/concierge/internal/models"
	"github.com/fentz26/concierge/internal/store"
)

// Source is the part of the store the scheduler reads.
type Source interface {
	ListTasks(ctx context.Context, status string) ([]models.Task, error)
	GetUserProfile(ctx context.Context, id string) (*models.UserProfile, error)
}

// Scheduler scans for reminders and hands them to a notifier.
type Scheduler struct {
	source    Source
	pdr       *audit.PDRWriter
	notifier  connectors.Notifier
	config    *Config
	profileID string
	logger    log.Logger
	now       func() time.Time

	// Delivery state
	mu            sync.Mutex
	activeWorkers int
	sent          map[string]time.Time
	delivered     int
	failed        int

	wg sync.WaitGroup
}

// Options configures a Scheduler.
type Options struct {
	Source   Source
	PDR      *audit.PDRWriter
	Notifier connectors.Notifier
	Config   *Config
	// ProfileID selects the user profile whose important dates are watched.
	// Empty selects the first stored profile.
	ProfileID string
	Logger    log.Logger
	Now       func() time.Time
}

// New creates a new scheduler.
func New(opts Options) (*Scheduler, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("scheduler: source is required")
	}
	if opts.Notifier == nil {
		return nil, fmt.Errorf("scheduler: notifier is required")
	}
	if opts.Config == nil {
		opts.Config = DefaultConfig()
	}
	if opts.Config.Interval <= 0 {
		return nil, fmt.Errorf("scheduler: interval must be positive, got %s", opts.Config.Interval)
	}
	if opts.Logger == nil {
		opts.Logger = log.Noop
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Scheduler{
		source:    opts.Source,
		pdr:       opts.PDR,
		notifier:  opts.Notifier,
		config:    opts.Config,
		profileID: opts.ProfileID,
		logger:    opts.Logger.WithValues(log.Kv{"svc": "scheduler", "notifier": opts.Notifier.Name()}),
		now:       opts.Now,
		sent:      make(map[string]time.Time),
	}, nil
}

// Run scans immediately and then on every interval until ctx is done. It
// waits for in-flight deliveries before returning.
func (sch *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(sch.config.Interval)
	defer ticker.Stop()
	defer sch.wg.Wait()

	sch.logger.Infof("Scheduler started (interval %s, lookahead %s)", sch.config.Interval, sch.config.Lookahead)
	for {
		sch.pollAndDispatch(ctx)

		select {
		case <-ctx.Done():
			sch.logger.Infof("Scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Due returns the reminders that apply now and have not been delivered.
func (sch *Scheduler) Due(ctx context.Context) ([]connectors.Reminder, error) {
	var tasks []models.Task
	for _, status := range []models.TaskStatus{models.TaskStatusPending, models.TaskStatusInProgress, models.TaskStatusFailed} {
		ts, err := sch.source.ListTasks(ctx, string(status))
		if err != nil {
			return nil, fmt.Errorf("list %s tasks: %w", status, err)
		}
		tasks = append(tasks, ts...)
	}

	profile, err := sch.source.GetUserProfile(ctx, sch.profileID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	all := collect(tasks, profile, sch.now(), sch.config.Lookahead)

	sch.mu.Lock()
	defer sch.mu.Unlock()
	due := all[:0]
	for _, r := range all {
		if _, ok := sch.sent[r.Key]; !ok {
			due = append(due, r)
		}
	}
	return due, nil
}

// pollAndDispatch hands due reminders to workers while capacity remains.
// Reminders left over are picked up on the next tick.
func (sch *Scheduler) pollAndDispatch(ctx context.Context) {
	reminders, err := sch.Due(ctx)
	if err != nil {
		sch.logger.Errorf("Error scanning for reminders: %v", err)
		return
	}

	limit := min(sch.config.GlobalMax, sch.config.GetNotifierLimit(sch.notifier.Name()))
	for _, r := range reminders {
		sch.mu.Lock()
		if sch.activeWorkers >= limit {
			sch.mu.Unlock()
			sch.logger.Debugf("Delivery limit %d reached, deferring remaining reminders", limit)
			return
		}
		sch.activeWorkers++
		// Claimed before delivery so the next scan skips it.
		sch.sent[r.Key] = sch.now()
		sch.mu.Unlock()

		sch.wg.Add(1)
		go sch.deliver(ctx, r)
	}
}

// deliver sends one reminder. A failed reminder is released for retry.
func (sch *Scheduler) deliver(ctx context.Context, r connectors.Reminder) {
	defer sch.wg.Done()
	defer func() {
		sch.mu.Lock()
		sch.activeWorkers--
		sch.mu.Unlock()
	}()

	inputs := map[string]interface{}{"key": r.Key, "notifier": sch.notifier.Name()}
	err := sch.notifier.Notify(ctx, r)

	sch.mu.Lock()
	if err != nil {
		delete(sch.sent, r.Key)
		sch.failed++
	} else {
		sch.delivered++
	}
	sch.mu.Unlock()

	if err != nil {
		sch.logger.Warningf("Reminder %s not delivered: %v", r.Key, err)
		sch.record(ctx, inputs, audit.OutcomeFailed, r, err.Error())
		return
	}
	sch.logger.Debugf("Delivered reminder %s", r.Key)
	sch.record(ctx, inputs, audit.OutcomeSuccess, r, r.Message)
}

func (sch *Scheduler) record(ctx context.Context, inputs interface{}, outcome string, r connectors.Reminder, details string) {
	if sch.pdr == nil {
		return
	}
	// The run context may already be cancelled during shutdown.
	ctx = context.WithoutCancel(ctx)
	if _, err := sch.pdr.Record(ctx, "reminder.notify", inputs, outcome, r.TaskID, details); err != nil {
		sch.logger.Errorf("Error recording reminder %s: %v", r.Key, err)
	}
}

// Stats is a snapshot of the scheduler counters.
type Stats struct {
	ActiveWorkers int    `json:"active_workers"`
	GlobalMax     int    `json:"global_max"`
	Notifier      string `json:"notifier"`
	Sent          int    `json:"sent"`
	Delivered     int    `json:"delivered"`
	Failed        int    `json:"failed"`
}

// GetStats returns current scheduler statistics.
func (sch *Scheduler) GetStats() Stats {
	sch.mu.Lock()
	defer sch.mu.Unlock()

	return Stats{
		ActiveWorkers: sch.activeWorkers,
		GlobalMax:     sch.config.GlobalMax,
		Notifier:      sch.notifier.Name(),
		Sent:          len(sch.sent),
		Delivered:     sch.delivered,
		Failed:        sch.failed,
	}
}

// --- Reminder collection ---

// collect builds the reminders that apply at now, ordered by time.
func collect(tasks []models.Task, profile *models.UserProfile, now time.Time, lookahead time.Duration) []connectors.Reminder {
	var out []connectors.Reminder

	for _, t := range tasks {
		if t.DueDate == nil || t.Status == models.TaskStatusCompleted || t.Status == models.TaskStatusCancelled {
			continue
		}
		due := *t.DueDate
		day := due.UTC().Format(time.DateOnly)
		switch {
		case due.Before(now):
			out = append(out, connectors.Reminder{
				Key:     fmt.Sprintf("%s:%s:%s", connectors.ReminderTaskOverdue, t.ID, day),
				Kind:    connectors.ReminderTaskOverdue,
				TaskID:  t.ID,
				Title:   t.Title,
				Message: fmt.Sprintf("Overdue since %s", due.Local().Format(time.DateTime)),
				At:      due,
			})
		case due.Sub(now) <= lookahead:
			out = append(out, connectors.Reminder{
				Key:     fmt.Sprintf("%s:%s:%s", connectors.ReminderTaskDue, t.ID, day),
				Kind:    connectors.ReminderTaskDue,
				TaskID:  t.ID,
				Title:   t.Title,
				Message: fmt.Sprintf("Due %s", due.Local().Format(time.DateTime)),
				At:      due,
			})
		}
	}

	if profile != nil {
		utc := now.UTC()
		today := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
		for _, d := range profile.ImportantDates {
			next := nextOccurrence(d.Date, today)
			if next.Sub(today) > lookahead {
				continue
			}
			day := next.Format(time.DateOnly)
			out = append(out, connectors.Reminder{
				Key:     fmt.Sprintf("%s:%s:%s:%s", connectors.ReminderImportantDate, profile.ID, d.Description, day),
				Kind:    connectors.ReminderImportantDate,
				Title:   d.Description,
				Message: fmt.Sprintf("%s on %s", d.Description, next.Format("January 2")),
				At:      next,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

// nextOccurrence returns the yearly anniversary of date on or after today.
func nextOccurrence(date, today time.Time) time.Time {
	d := date.UTC()
	next := time.Date(today.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	if next.Before(today) {
		next = time.Date(today.Year()+1, d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}
	return next
}
