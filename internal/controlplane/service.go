// Package controlplane provides the HTTP API and service layer for the assistant.
package controlplane

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fentz26/concierge/internal/audit"
	"github.com/fentz26/concierge/internal/conversation"
	"github.com/fentz26/concierge/internal/log"
	"github.com/fentz26/concierge/internal/models"
	"github.com/fentz26/concierge/internal/progress"
	"github.com/fentz26/concierge/internal/store"
)

const tracerName = "github.com/fentz26/concierge/internal/controlplane"

// currentTaskRoute is the task path segment that addresses the selected task.
const currentTaskRoute = "current"

// ServiceConfig is the configuration of the control plane service.
type ServiceConfig struct {
	Store  *store.Store
	PDR    *audit.PDRWriter
	Logger log.Logger
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

func (c *ServiceConfig) defaults() error {
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	if c.PDR == nil {
		c.PDR = audit.NewPDRWriter(c.Store)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "controlplane.Service"})
	if c.TracerProvider == nil {
		c.TracerProvider = otel.GetTracerProvider()
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}
	return nil
}

// Service provides the control plane business logic.
type Service struct {
	store  *store.Store
	pdr    *audit.PDRWriter
	logger log.Logger
	tracer trace.Tracer
	now    func() time.Time
	locks  *keyedMutex
}

// NewService creates a new control plane service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Service{
		store:  cfg.Store,
		pdr:    cfg.PDR,
		logger: cfg.Logger,
		tracer: cfg.TracerProvider.Tracer(tracerName),
		now:    cfg.Now,
		locks:  newKeyedMutex(),
	}, nil
}

// --- Task Operations ---

// CreateTask validates and stores a new task with its steps.
func (s *Service) CreateTask(ctx context.Context, task models.Task) (*models.Task, error) {
	if err := validateNewTask(task); err != nil {
		s.record(ctx, "task.create", task, audit.OutcomeRejected, task.ID, err.Error())
		return nil, err
	}
	task = task.Clone()
	if task.Priority == 0 {
		task.Priority = 3
	}
	for i := range task.Steps {
		if task.Steps[i].ID == "" {
			task.Steps[i].ID = uuid.New().String()
		}
	}
	if task.CurrentStepID == "" && len(task.Steps) > 0 {
		task.CurrentStepID = task.Steps[0].ID
	}

	created, err := s.store.CreateTask(ctx, task)
	if err != nil {
		return nil, err
	}

	s.record(ctx, "task.create", map[string]interface{}{"title": task.Title, "steps": len(task.Steps)}, audit.OutcomeSuccess, created.ID, "")
	s.logger.Infof("Task %s created", created.ID)
	return created, nil
}

// GetTask retrieves a task by ID.
func (s *Service) GetTask(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrTaskNotFound)
	}
	return task, err
}

// ListTasks returns tasks, optionally filtered by status.
func (s *Service) ListTasks(ctx context.Context, status string) ([]models.Task, error) {
	if status != "" {
		if _, err := progress.ParseStatus(status); err != nil {
			return nil, err
		}
	}
	return s.store.ListTasks(ctx, status)
}

// TaskHistory returns the decision records of a task, oldest first.
func (s *Service) TaskHistory(ctx context.Context, id string) ([]models.PDREntry, error) {
	if _, err := s.GetTask(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetPDRForTask(ctx, id)
}

// SetCurrentTask selects the task the user is focused on.
func (s *Service) SetCurrentTask(ctx context.Context, id string) error {
	if _, err := s.GetTask(ctx, id); err != nil {
		return err
	}
	if err := s.store.SetCurrentTaskID(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "task.select", map[string]string{"task_id": id}, audit.OutcomeSuccess, id, "")
	return nil
}

// CurrentTask returns the selected task. Without a selection, or when the
// selected task is gone, the first task is current.
func (s *Service) CurrentTask(ctx context.Context) (*models.Task, error) {
	id, err := s.store.CurrentTaskID(ctx)
	if err != nil {
		return nil, err
	}
	if id != "" {
		task, err := s.GetTask(ctx, id)
		if err == nil {
			return task, nil
		}
		if !errors.Is(err, ErrTaskNotFound) {
			return nil, err
		}
	}

	tasks, err := s.store.ListTasks(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no current task: %w", ErrTaskNotFound)
	}
	return &tasks[0], nil
}

// UpdateStepStatus sets the status of one step and reconciles the task
// status, step progress and current step pointer. Updates to the same
// task are serialised.
func (s *Service) UpdateStepStatus(ctx context.Context, taskID, stepID string, status models.TaskStatus) (*models.Task, error) {
	ctx, span := s.tracer.Start(ctx, "task.update_step_status", trace.WithAttributes(
		attribute.String("task.id", taskID),
		attribute.String("step.id", stepID),
		attribute.String("step.status", string(status)),
	))
	defer span.End()

	inputs := map[string]string{"task_id": taskID, "step_id": stepID, "status": string(status)}

	unlock := s.locks.Lock(taskID)
	defer unlock()

	current, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, s.fail(ctx, span, "task.update_step_status", inputs, taskID, err)
	}

	updated, err := progress.ApplyStepStatus(*current, stepID, status)
	if err != nil {
		return nil, s.fail(ctx, span, "task.update_step_status", inputs, taskID, err)
	}
	s.stamp(current, &updated, stepID)

	if err := s.store.PutTask(ctx, updated); err != nil {
		return nil, s.fail(ctx, span, "task.update_step_status", inputs, taskID, err)
	}

	overall := progress.OverallProgress(updated.Steps)
	span.SetAttributes(
		attribute.String("task.status", string(updated.Status)),
		attribute.Int("task.progress", overall),
		attribute.String("task.current_step_id", updated.CurrentStepID),
	)
	s.record(ctx, "task.update_step_status", inputs, audit.OutcomeSuccess, taskID,
		fmt.Sprintf("task %s -> %s (%d%%)", current.Status, updated.Status, overall))
	s.logger.WithValues(log.Kv{"task": taskID, "step": stepID}).Infof("Step status set to %s, task %s at %d%%", status, updated.Status, overall)

	return &updated, nil
}

// UpdateTaskProgress derives the task status from a raw progress value.
// Steps are left untouched.
func (s *Service) UpdateTaskProgress(ctx context.Context, taskID string, value int) (*models.Task, error) {
	ctx, span := s.tracer.Start(ctx, "task.update_progress", trace.WithAttributes(
		attribute.String("task.id", taskID),
		attribute.Int("task.progress", value),
	))
	defer span.End()

	inputs := map[string]interface{}{"task_id": taskID, "progress": value}

	unlock := s.locks.Lock(taskID)
	defer unlock()

	current, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, s.fail(ctx, span, "task.update_progress", inputs, taskID, err)
	}

	updated, err := progress.ApplyTaskProgress(*current, value)
	if err != nil {
		return nil, s.fail(ctx, span, "task.update_progress", inputs, taskID, err)
	}
	s.stamp(current, &updated, "")

	if err := s.store.PutTask(ctx, updated); err != nil {
		return nil, s.fail(ctx, span, "task.update_progress", inputs, taskID, err)
	}

	span.SetAttributes(attribute.String("task.status", string(updated.Status)))
	s.record(ctx, "task.update_progress", inputs, audit.OutcomeSuccess, taskID,
		fmt.Sprintf("task %s -> %s", current.Status, updated.Status))
	s.logger.WithValues(log.Kv{"task": taskID}).Infof("Progress set to %d%%, task %s", value, updated.Status)

	return &updated, nil
}

// stamp sets the clock-derived fields the reconciler leaves alone.
func (s *Service) stamp(prev *models.Task, next *models.Task, stepID string) {
	now := s.now()
	next.UpdatedAt = now

	switch next.Status {
	case models.TaskStatusCompleted:
		if next.CompletedAt == nil {
			next.CompletedAt = &now
		}
	case models.TaskStatusInProgress:
		next.CompletedAt = nil
		if next.StartTime == nil {
			next.StartTime = &now
		}
	}

	if stepID == "" {
		return
	}
	step := &next.Steps[next.FindStep(stepID)]
	switch step.Status {
	case models.TaskStatusInProgress:
		if step.StartTime == nil {
			step.StartTime = &now
		}
		step.EndTime = nil
	case models.TaskStatusCompleted:
		if step.StartTime == nil {
			step.StartTime = &now
		}
		if step.EndTime == nil || prev.Steps[prev.FindStep(stepID)].Status != models.TaskStatusCompleted {
			step.EndTime = &now
		}
	default:
		step.EndTime = nil
	}
}

// fail records a rejected or failed mutation on the span and in the audit trail.
func (s *Service) fail(ctx context.Context, span trace.Span, action string, inputs interface{}, taskID string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	outcome := audit.OutcomeFailed
	if IsInvalid(err) || IsNotFound(err) {
		outcome = audit.OutcomeRejected
	}
	// Records for unknown tasks are not attached to an id.
	recordID := taskID
	if errors.Is(err, ErrTaskNotFound) {
		recordID = ""
	}
	s.record(ctx, action, inputs, outcome, recordID, err.Error())
	s.logger.WithValues(log.Kv{"task": taskID}).Warningf("%s %s: %v", action, outcome, err)
	return err
}

func (s *Service) record(ctx context.Context, action string, inputs interface{}, outcome, taskID, details string) {
	if _, err := s.pdr.Record(ctx, action, inputs, outcome, taskID, details); err != nil {
		s.logger.Errorf("could not write decision record for %s: %v", action, err)
	}
}

// validateID rejects ids that cannot be addressed as one URL path segment.
func validateID(kind, id string) error {
	if strings.Contains(id, "/") {
		return fmt.Errorf("%s id %q must not contain '/': %w", kind, id, ErrInvalidInput)
	}
	return nil
}

func validateNewTask(task models.Task) error {
	if task.Title == "" {
		return fmt.Errorf("title is required: %w", ErrInvalidInput)
	}
	if task.Status != "" && !task.Status.Valid() {
		return fmt.Errorf("status %q: %w", task.Status, ErrInvalidInput)
	}
	if task.Priority < 0 || task.Priority > 5 {
		return fmt.Errorf("priority %d out of [1,5]: %w", task.Priority, ErrInvalidInput)
	}

	if err := validateID("task", task.ID); err != nil {
		return err
	}
	if task.ID == currentTaskRoute {
		return fmt.Errorf("task id %q is reserved: %w", task.ID, ErrInvalidInput)
	}

	seen := make(map[string]bool, len(task.Steps))
	for _, st := range task.Steps {
		if st.Title == "" {
			return fmt.Errorf("step title is required: %w", ErrInvalidInput)
		}
		if err := validateID("step", st.ID); err != nil {
			return err
		}
		if st.ID != "" {
			if seen[st.ID] {
				return fmt.Errorf("duplicate step id %s: %w", st.ID, ErrInvalidInput)
			}
			seen[st.ID] = true
		}
		if st.Status != "" && !st.Status.Valid() {
			return fmt.Errorf("step %s status %q: %w", st.ID, st.Status, ErrInvalidInput)
		}
		if st.Progress < 0 || st.Progress > 100 {
			return fmt.Errorf("step %s progress %d out of [0,100]: %w", st.ID, st.Progress, ErrInvalidInput)
		}
	}
	return nil
}

// --- Memory Operations ---

// AddMemory stores a memory item.
func (s *Service) AddMemory(ctx context.Context, item models.MemoryItem) (*models.MemoryItem, error) {
	if item.Content == "" {
		return nil, fmt.Errorf("content is required: %w", ErrInvalidInput)
	}
	if item.Importance < 0 || item.Importance > 100 {
		return nil, fmt.Errorf("importance %d out of [0,100]: %w", item.Importance, ErrInvalidInput)
	}

	created, err := s.store.AddMemory(ctx, item)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "memory.add", map[string]interface{}{"category": item.Category, "tags": item.Tags, "content_len": len(item.Content)}, audit.OutcomeSuccess, "", created.ID)
	return created, nil
}

// ListMemories returns memories filtered by category and tag. Empty
// filters match everything; both filters must hold.
func (s *Service) ListMemories(ctx context.Context, category, tag string) ([]models.MemoryItem, error) {
	return s.store.ListMemories(ctx, store.MemoryQuery{Category: category, Tag: tag})
}

// SearchMemories returns memories whose content contains query.
func (s *Service) SearchMemories(ctx context.Context, query string) ([]models.MemoryItem, error) {
	return s.store.ListMemories(ctx, store.MemoryQuery{Text: query})
}

// ListCategories returns all memory categories.
func (s *Service) ListCategories(ctx context.Context) ([]models.MemoryCategory, error) {
	return s.store.ListCategories(ctx)
}

// ListTags returns all memory tags.
func (s *Service) ListTags(ctx context.Context) ([]models.MemoryTag, error) {
	return s.store.ListTags(ctx)
}

// GetUserProfile returns the user profile.
func (s *Service) GetUserProfile(ctx context.Context) (*models.UserProfile, error) {
	p, err := s.store.GetUserProfile(ctx, "")
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("user profile: %w", ErrNotFound)
	}
	return p, err
}

// --- Conversation Operations ---

// ListSessions returns every conversation session.
func (s *Service) ListSessions(ctx context.Context) ([]models.ConversationSession, error) {
	return s.store.ListSessions(ctx)
}

// GetSessionMessages returns the messages of one session in order.
func (s *Service) GetSessionMessages(ctx context.Context, sessionID string) ([]models.ConversationMessage, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return nil, err
	}
	return sess.Messages, nil
}

// SearchMessages returns the messages across all sessions matching filter.
func (s *Service) SearchMessages(ctx context.Context, filter models.ConversationFilter) ([]models.ConversationMessage, error) {
	if dr := filter.DateRange; dr != nil && dr.Start != nil && dr.End != nil && dr.End.Before(*dr.Start) {
		return nil, fmt.Errorf("date range ends before it starts: %w", ErrInvalidInput)
	}
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	return conversation.Filter(sessions, filter), nil
}
