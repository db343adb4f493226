package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fentz26/concierge/internal/models"
)

// PutSession inserts or replaces a conversation session with its contexts and messages.
func (s *Store) PutSession(ctx context.Context, sess models.ConversationSession) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_sessions WHERE id = ?`, sess.ID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO conversation_sessions (id, title, start_time, end_time) VALUES (?, ?, ?, ?)`,
			sess.ID, sess.Title, sess.StartTime.UTC(), nullTime(sess.EndTime),
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		for i, c := range sess.Contexts {
			related, err := encodeList(c.RelatedMemories)
			if err != nil {
				return fmt.Errorf("encode related memories: %w", err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO conversation_contexts (id, session_id, position, name, topic, color, related_memories, start_time, end_time)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				c.ID, sess.ID, i, c.Name, c.Topic, c.Color, related, c.StartTime.UTC(), nullTime(c.EndTime),
			)
			if err != nil {
				return fmt.Errorf("insert context %s: %w", c.ID, err)
			}
		}

		for i, m := range sess.Messages {
			meta, err := encodeJSON(m.Metadata, "{}")
			if err != nil {
				return fmt.Errorf("encode metadata: %w", err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO conversation_messages (id, session_id, position, context_id, sender, content, metadata, timestamp)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				m.ID, sess.ID, i, m.ContextID, m.Sender, m.Content, meta, m.Timestamp.UTC(),
			)
			if err != nil {
				return fmt.Errorf("insert message %s: %w", m.ID, err)
			}
		}
		return nil
	})
}

// ListSessions returns every session, oldest first, with contexts and messages loaded.
func (s *Store) ListSessions(ctx context.Context) ([]models.ConversationSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, start_time, end_time FROM conversation_sessions ORDER BY start_time ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}

	var sessions []models.ConversationSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range sessions {
		if err := s.loadSession(ctx, &sessions[i]); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// GetSession retrieves one session with its contexts and messages.
func (s *Store) GetSession(ctx context.Context, id string) (*models.ConversationSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, title, start_time, end_time FROM conversation_sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	if err := s.loadSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func scanSession(row scanner) (*models.ConversationSession, error) {
	var sess models.ConversationSession
	var endTime sql.NullTime
	if err := row.Scan(&sess.ID, &sess.Title, &sess.StartTime, &endTime); err != nil {
		return nil, err
	}
	sess.EndTime = timePtr(endTime)
	return &sess, nil
}

func (s *Store) loadSession(ctx context.Context, sess *models.ConversationSession) error {
	contexts, err := s.listContexts(ctx, sess.ID)
	if err != nil {
		return err
	}
	messages, err := s.listMessages(ctx, sess.ID)
	if err != nil {
		return err
	}
	sess.Contexts = contexts
	sess.Messages = messages
	return nil
}

func (s *Store) listContexts(ctx context.Context, sessionID string) ([]models.ConversationContext, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, topic, color, related_memories, start_time, end_time
		 FROM conversation_contexts WHERE session_id = ? ORDER BY position ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query contexts: %w", err)
	}
	defer rows.Close()

	var out []models.ConversationContext
	for rows.Next() {
		c := models.ConversationContext{SessionID: sessionID}
		var related string
		var endTime sql.NullTime
		if err := rows.Scan(&c.ID, &c.Name, &c.Topic, &c.Color, &related, &c.StartTime, &endTime); err != nil {
			return nil, fmt.Errorf("scan context: %w", err)
		}
		if c.RelatedMemories, err = decodeList(related); err != nil {
			return nil, fmt.Errorf("decode related memories: %w", err)
		}
		c.EndTime = timePtr(endTime)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) listMessages(ctx context.Context, sessionID string) ([]models.ConversationMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, context_id, sender, content, metadata, timestamp
		 FROM conversation_messages WHERE session_id = ? ORDER BY position ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []models.ConversationMessage
	for rows.Next() {
		m := models.ConversationMessage{SessionID: sessionID}
		var meta string
		if err := rows.Scan(&m.ID, &m.ContextID, &m.Sender, &m.Content, &meta, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := decodeJSON(meta, &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		if len(m.Metadata) == 0 {
			m.Metadata = nil
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
