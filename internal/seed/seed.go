// Package seed loads fixture data into a store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fentz26/concierge/internal/log"
	"github.com/fentz26/concierge/internal/models"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Repository is the subset of the store the loader writes to.
type Repository interface {
	ListTasks(ctx context.Context, status string) ([]models.Task, error)
	CreateTask(ctx context.Context, task models.Task) (*models.Task, error)
	SetCurrentTaskID(ctx context.Context, id string) error
	AddMemory(ctx context.Context, item models.MemoryItem) (*models.MemoryItem, error)
	PutCategory(ctx context.Context, c models.MemoryCategory) error
	PutTag(ctx context.Context, t models.MemoryTag) error
	PutUserProfile(ctx context.Context, p models.UserProfile) error
	PutSession(ctx context.Context, sess models.ConversationSession) error
}

// Fixtures is the YAML document shape.
type Fixtures struct {
	Tasks      []Task     `yaml:"tasks"`
	Memories   []Memory   `yaml:"memories"`
	Categories []Category `yaml:"categories"`
	Tags       []Tag      `yaml:"tags"`
	Profile    *Profile   `yaml:"profile"`
	Sessions   []Session  `yaml:"sessions"`
}

type Task struct {
	ID            string            `yaml:"id"`
	Title         string            `yaml:"title"`
	Description   string            `yaml:"description"`
	Status        string            `yaml:"status"`
	Priority      int               `yaml:"priority"`
	CreatedAt     time.Time         `yaml:"created_at"`
	UpdatedAt     time.Time         `yaml:"updated_at"`
	StartTime     *time.Time        `yaml:"start_time"`
	DueDate       *time.Time        `yaml:"due_date"`
	CompletedAt   *time.Time        `yaml:"completed_at"`
	CurrentStepID string            `yaml:"current_step_id"`
	Tags          []string          `yaml:"tags"`
	Metadata      map[string]string `yaml:"metadata"`
	Steps         []Step            `yaml:"steps"`
}

type Step struct {
	ID           string     `yaml:"id"`
	Title        string     `yaml:"title"`
	Description  string     `yaml:"description"`
	Status       string     `yaml:"status"`
	Progress     int        `yaml:"progress"`
	Dependencies []string   `yaml:"dependencies"`
	StartTime    *time.Time `yaml:"start_time"`
	EndTime      *time.Time `yaml:"end_time"`
}

type Memory struct {
	ID           string    `yaml:"id"`
	Content      string    `yaml:"content"`
	CreatedAt    time.Time `yaml:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at"`
	Importance   int       `yaml:"importance"`
	Category     string    `yaml:"category"`
	Tags         []string  `yaml:"tags"`
	Source       string    `yaml:"source"`
	RelatedItems []string  `yaml:"related_items"`
}

type Category struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
	Icon        string `yaml:"icon"`
}

type Tag struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Count      int    `yaml:"count"`
	Importance int    `yaml:"importance"`
}

type Profile struct {
	ID             string                 `yaml:"id"`
	Name           string                 `yaml:"name"`
	Preferences    map[string]interface{} `yaml:"preferences"`
	ImportantDates []struct {
		Date        time.Time `yaml:"date"`
		Description string    `yaml:"description"`
		Type        string    `yaml:"type"`
	} `yaml:"important_dates"`
	Interests []string `yaml:"interests"`
	Avatar    string   `yaml:"avatar"`
}

type Session struct {
	ID        string     `yaml:"id"`
	Title     string     `yaml:"title"`
	StartTime time.Time  `yaml:"start_time"`
	EndTime   *time.Time `yaml:"end_time"`
	Contexts  []struct {
		ID              string     `yaml:"id"`
		Name            string     `yaml:"name"`
		Topic           string     `yaml:"topic"`
		Color           string     `yaml:"color"`
		RelatedMemories []string   `yaml:"related_memories"`
		StartTime       time.Time  `yaml:"start_time"`
		EndTime         *time.Time `yaml:"end_time"`
	} `yaml:"contexts"`
	Messages []struct {
		ID        string            `yaml:"id"`
		Sender    string            `yaml:"sender"`
		ContextID string            `yaml:"context_id"`
		Timestamp time.Time         `yaml:"timestamp"`
		Content   string            `yaml:"content"`
		Metadata  map[string]string `yaml:"metadata"`
	} `yaml:"messages"`
}

// Parse decodes a fixtures document.
func Parse(data []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	for _, t := range fx.Tasks {
		if !models.TaskStatus(t.Status).Valid() {
			return nil, fmt.Errorf("task %s: unknown status %q", t.ID, t.Status)
		}
		for _, s := range t.Steps {
			if !models.TaskStatus(s.Status).Valid() {
				return nil, fmt.Errorf("task %s step %s: unknown status %q", t.ID, s.ID, s.Status)
			}
		}
	}
	return &fx, nil
}

// Default returns the built-in sample fixtures.
func Default() (*Fixtures, error) {
	return Parse(defaultFixtures)
}

// Load writes fx into repo. A repository that already holds tasks is left
// untouched so restarting a daemon never duplicates data.
// The first task becomes the current task.
func Load(ctx context.Context, repo Repository, fx *Fixtures, logger log.Logger) error {
	if logger == nil {
		logger = log.Noop
	}
	logger = logger.WithValues(log.Kv{"svc": "seed.Loader"})

	existing, err := repo.ListTasks(ctx, "")
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(existing) > 0 {
		logger.Infof("Store already holds %d tasks, skipping seed", len(existing))
		return nil
	}

	for _, c := range fx.Categories {
		if err := repo.PutCategory(ctx, models.MemoryCategory(c)); err != nil {
			return err
		}
	}
	for _, t := range fx.Tags {
		if err := repo.PutTag(ctx, models.MemoryTag(t)); err != nil {
			return err
		}
	}
	for _, m := range fx.Memories {
		if _, err := repo.AddMemory(ctx, models.MemoryItem(m)); err != nil {
			return err
		}
	}
	if fx.Profile != nil {
		if err := repo.PutUserProfile(ctx, fx.Profile.model()); err != nil {
			return err
		}
	}
	for _, s := range fx.Sessions {
		if err := repo.PutSession(ctx, s.model()); err != nil {
			return err
		}
	}
	for _, t := range fx.Tasks {
		if _, err := repo.CreateTask(ctx, t.model()); err != nil {
			return err
		}
	}
	if len(fx.Tasks) > 0 {
		if err := repo.SetCurrentTaskID(ctx, fx.Tasks[0].ID); err != nil {
			return err
		}
	}

	logger.Infof("Seeded %d tasks, %d memories, %d sessions", len(fx.Tasks), len(fx.Memories), len(fx.Sessions))
	return nil
}

func (t Task) model() models.Task {
	out := models.Task{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        models.TaskStatus(t.Status),
		Priority:      t.Priority,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		StartTime:     t.StartTime,
		DueDate:       t.DueDate,
		CompletedAt:   t.CompletedAt,
		CurrentStepID: t.CurrentStepID,
		Tags:          t.Tags,
		Metadata:      t.Metadata,
	}
	for _, s := range t.Steps {
		out.Steps = append(out.Steps, models.Step{
			ID:           s.ID,
			Title:        s.Title,
			Description:  s.Description,
			Status:       models.TaskStatus(s.Status),
			Progress:     s.Progress,
			Dependencies: s.Dependencies,
			StartTime:    s.StartTime,
			EndTime:      s.EndTime,
		})
	}
	return out
}

func (p Profile) model() models.UserProfile {
	out := models.UserProfile{
		ID:          p.ID,
		Name:        p.Name,
		Preferences: p.Preferences,
		Interests:   p.Interests,
		Avatar:      p.Avatar,
	}
	for _, d := range p.ImportantDates {
		out.ImportantDates = append(out.ImportantDates, models.ImportantDate{
			Date:        d.Date,
			Description: d.Description,
			Type:        models.ImportantDateType(d.Type),
		})
	}
	return out
}

func (s Session) model() models.ConversationSession {
	out := models.ConversationSession{
		ID:        s.ID,
		Title:     s.Title,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
	}
	for _, c := range s.Contexts {
		out.Contexts = append(out.Contexts, models.ConversationContext{
			ID:              c.ID,
			SessionID:       s.ID,
			Name:            c.Name,
			StartTime:       c.StartTime,
			EndTime:         c.EndTime,
			Topic:           c.Topic,
			RelatedMemories: c.RelatedMemories,
			Color:           c.Color,
		})
	}
	for _, m := range s.Messages {
		out.Messages = append(out.Messages, models.ConversationMessage{
			ID:        m.ID,
			SessionID: s.ID,
			Content:   m.Content,
			Sender:    models.SenderType(m.Sender),
			Timestamp: m.Timestamp,
			ContextID: m.ContextID,
			Metadata:  m.Metadata,
		})
	}
	return out
}
