package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fentz26/concierge/internal/models"
)

const memoryColumns = `id, content, importance, category, tags, source, related_items, created_at, updated_at`

// MemoryQuery narrows ListMemories. Empty fields match everything; set fields are ANDed.
type MemoryQuery struct {
	Category string
	Tag      string
	Text     string
}

// AddMemory stores a memory item. Missing id and timestamps are filled in.
func (s *Store) AddMemory(ctx context.Context, item models.MemoryItem) (*models.MemoryItem, error) {
	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}

	tags, err := encodeList(item.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	related, err := encodeList(item.RelatedItems)
	if err != nil {
		return nil, fmt.Errorf("encode related items: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memory_items (`+memoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Content, item.Importance, item.Category, tags, item.Source, related,
		item.CreatedAt.UTC(), item.UpdatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}
	return &item, nil
}

// GetMemory retrieves a memory item by ID.
func (s *Store) GetMemory(ctx context.Context, id string) (*models.MemoryItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memory_items WHERE id = ?`, id)
	item, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("memory %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query memory: %w", err)
	}
	return item, nil
}

// likeEscaper makes LIKE match the search text literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListMemories returns the memories matching q, most important first.
func (s *Store) ListMemories(ctx context.Context, q MemoryQuery) ([]models.MemoryItem, error) {
	query := `SELECT ` + memoryColumns + ` FROM memory_items`
	var where []string
	var args []interface{}

	if q.Category != "" {
		where = append(where, `category = ?`)
		args = append(args, q.Category)
	}
	if q.Tag != "" {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(memory_items.tags) WHERE json_each.value = ?)`)
		args = append(args, q.Tag)
	}
	if q.Text != "" {
		where = append(where, `content LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(q.Text)+"%")
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY importance DESC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var items []models.MemoryItem
	for rows.Next() {
		item, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanMemory(row scanner) (*models.MemoryItem, error) {
	var item models.MemoryItem
	var tags, related string
	err := row.Scan(&item.ID, &item.Content, &item.Importance, &item.Category, &tags, &item.Source, &related,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if item.Tags, err = decodeList(tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if item.RelatedItems, err = decodeList(related); err != nil {
		return nil, fmt.Errorf("decode related items: %w", err)
	}
	return &item, nil
}

// --- Categories & Tags ---

// PutCategory inserts or replaces a memory category. New categories go last.
func (s *Store) PutCategory(ctx context.Context, c models.MemoryCategory) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_categories (id, position, name, description, color, icon)
		 VALUES (?, (SELECT COUNT(*) FROM memory_categories), ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description,
			color = excluded.color, icon = excluded.icon`,
		c.ID, c.Name, c.Description, c.Color, c.Icon,
	)
	if err != nil {
		return fmt.Errorf("put category: %w", err)
	}
	return nil
}

// ListCategories returns categories in insertion order.
func (s *Store) ListCategories(ctx context.Context) ([]models.MemoryCategory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, color, icon FROM memory_categories ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []models.MemoryCategory
	for rows.Next() {
		var c models.MemoryCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.Icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PutTag inserts or replaces a memory tag. New tags go last.
func (s *Store) PutTag(ctx context.Context, t models.MemoryTag) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_tags (id, position, name, count, importance)
		 VALUES (?, (SELECT COUNT(*) FROM memory_tags), ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, count = excluded.count,
			importance = excluded.importance`,
		t.ID, t.Name, t.Count, t.Importance,
	)
	if err != nil {
		return fmt.Errorf("put tag: %w", err)
	}
	return nil
}

// ListTags returns tags in insertion order.
func (s *Store) ListTags(ctx context.Context) ([]models.MemoryTag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, count, importance FROM memory_tags ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var out []models.MemoryTag
	for rows.Next() {
		var t models.MemoryTag
		if err := rows.Scan(&t.ID, &t.Name, &t.Count, &t.Importance); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- User Profile ---

// PutUserProfile inserts or replaces a user profile.
func (s *Store) PutUserProfile(ctx context.Context, p models.UserProfile) error {
	prefs, err := encodeJSON(p.Preferences, "{}")
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	dates, err := encodeJSON(p.ImportantDates, "[]")
	if err != nil {
		return fmt.Errorf("encode important dates: %w", err)
	}
	interests, err := encodeList(p.Interests)
	if err != nil {
		return fmt.Errorf("encode interests: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_profiles (id, name, preferences, important_dates, interests, avatar)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, preferences = excluded.preferences,
			important_dates = excluded.important_dates, interests = excluded.interests, avatar = excluded.avatar`,
		p.ID, p.Name, prefs, dates, interests, p.Avatar,
	)
	if err != nil {
		return fmt.Errorf("put user profile: %w", err)
	}
	return nil
}

// GetUserProfile returns the profile with the given id, or the first stored
// profile when id is empty.
func (s *Store) GetUserProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	query := `SELECT id, name, preferences, important_dates, interests, avatar FROM user_profiles`
	var args []interface{}
	if id != "" {
		query += ` WHERE id = ?`
		args = append(args, id)
	}
	query += ` ORDER BY rowid ASC LIMIT 1`

	var p models.UserProfile
	var prefs, dates, interests string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.Name, &prefs, &dates, &interests, &p.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user profile %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query user profile: %w", err)
	}

	if err := decodeJSON(prefs, &p.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	if err := decodeJSON(dates, &p.ImportantDates); err != nil {
		return nil, fmt.Errorf("decode important dates: %w", err)
	}
	if p.Interests, err = decodeList(interests); err != nil {
		return nil, fmt.Errorf("decode interests: %w", err)
	}
	return &p, nil
}
