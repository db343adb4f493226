// Package models defines the core domain types for concierge.
package models

import "time"

// TaskStatus represents the state of a task or of one of its steps.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// TaskStatuses lists every valid status in display order.
var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusCompleted,
	TaskStatusFailed,
	TaskStatusCancelled,
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Task represents a unit of tracked work composed of ordered steps.
type Task struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	Status        TaskStatus        `json:"status"`
	Priority      int               `json:"priority"` // 1-5, 5 is highest
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	StartTime     *time.Time        `json:"start_time,omitempty"`
	DueDate       *time.Time        `json:"due_date,omitempty"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	Steps         []Step            `json:"steps"`
	CurrentStepID string            `json:"current_step_id,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Step is an individually progressed sub-unit of a task.
type Step struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Status       TaskStatus `json:"status"`
	Progress     int        `json:"progress"` // 0-100
	Dependencies []string   `json:"dependencies,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
}

// FindStep returns the index of the step with the given id, or -1.
func (t *Task) FindStep(id string) int {
	for i := range t.Steps {
		if t.Steps[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the task. Nothing mutable is shared with t.
func (t Task) Clone() Task {
	out := t
	out.StartTime = cloneTime(t.StartTime)
	out.DueDate = cloneTime(t.DueDate)
	out.CompletedAt = cloneTime(t.CompletedAt)
	if t.Steps != nil {
		out.Steps = make([]Step, len(t.Steps))
		for i, s := range t.Steps {
			out.Steps[i] = s.Clone()
		}
	}
	if t.Tags != nil {
		out.Tags = append([]string(nil), t.Tags...)
	}
	if t.Metadata != nil {
		out.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	out := s
	if s.Dependencies != nil {
		out.Dependencies = append([]string(nil), s.Dependencies...)
	}
	out.StartTime = cloneTime(s.StartTime)
	out.EndTime = cloneTime(s.EndTime)
	return out
}

// DependsOn reports whether stepID is listed in the step's dependencies.
func (s Step) DependsOn(stepID string) bool {
	for _, d := range s.Dependencies {
		if d == stepID {
			return true
		}
	}
	return false
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// PDREntry represents a Process Decision Record for audit.
type PDREntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	TaskID     string    `json:"task_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// MemoryItem is a long-term memory the assistant keeps about the user.
type MemoryItem struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Importance   int       `json:"importance"` // 0-100
	Category     string    `json:"category"`
	Tags         []string  `json:"tags"`
	Source       string    `json:"source,omitempty"`
	RelatedItems []string  `json:"related_items,omitempty"`
}

// HasTag reports whether the memory carries the tag id.
func (m MemoryItem) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MemoryCategory groups memories.
type MemoryCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"` // e.g. #FF5733
	Icon        string `json:"icon,omitempty"`
}

// MemoryTag is a tag with usage statistics for the tag cloud.
type MemoryTag struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Count      int    `json:"count"`
	Importance int    `json:"importance"` // 0-100
}

// ImportantDateType classifies an important date of the user.
type ImportantDateType string

const (
	ImportantDateBirthday    ImportantDateType = "birthday"
	ImportantDateAnniversary ImportantDateType = "anniversary"
	ImportantDateCustom      ImportantDateType = "custom"
)

// ImportantDate is a date the assistant should remember.
type ImportantDate struct {
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	Type        ImportantDateType `json:"type"`
}

// UserProfile holds what the assistant knows about its user.
type UserProfile struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Preferences    map[string]interface{} `json:"preferences"`
	ImportantDates []ImportantDate        `json:"important_dates"`
	Interests      []string               `json:"interests"`
	Avatar         string                 `json:"avatar,omitempty"`
}

// SenderType identifies who sent a conversation message.
type SenderType string

const (
	SenderUser      SenderType = "user"
	SenderAssistant SenderType = "assistant"
	SenderSystem    SenderType = "system"
)

// ConversationMessage is a single message of a session.
type ConversationMessage struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Content   string            `json:"content"`
	Sender    SenderType        `json:"sender"`
	Timestamp time.Time         `json:"timestamp"`
	ContextID string            `json:"context_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ConversationContext is a topical segment within a session.
type ConversationContext struct {
	ID              string     `json:"id"`
	SessionID       string     `json:"session_id"`
	Name            string     `json:"name"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	Topic           string     `json:"topic,omitempty"`
	RelatedMemories []string   `json:"related_memories,omitempty"`
	Color           string     `json:"color,omitempty"`
}

// ConversationSession is a conversation with its messages and contexts.
type ConversationSession struct {
	ID        string                `json:"id"`
	Title     string                `json:"title"`
	StartTime time.Time             `json:"start_time"`
	EndTime   *time.Time            `json:"end_time,omitempty"`
	Messages  []ConversationMessage `json:"messages"`
	Contexts  []ConversationContext `json:"contexts"`
}

// DateRange bounds a search; zero values are open ends.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// ConversationFilter selects messages across sessions.
type ConversationFilter struct {
	DateRange  *DateRange   `json:"date_range,omitempty"`
	Senders    []SenderType `json:"senders,omitempty"`
	ContextIDs []string     `json:"context_ids,omitempty"`
	Keywords   []string     `json:"keywords,omitempty"`
}
