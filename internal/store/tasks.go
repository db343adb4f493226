package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fentz26/concierge/internal/models"
)

const taskColumns = `id, title, description, status, priority, current_step_id, tags, metadata,
	start_time, due_date, completed_at, created_at, updated_at`

// CreateTask inserts a new task with its steps. Missing ids are generated,
// missing timestamps default to now and an empty status becomes pending.
func (s *Store) CreateTask(ctx context.Context, task models.Task) (*models.Task, error) {
	out := task.Clone()
	now := time.Now().UTC()
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if out.Status == "" {
		out.Status = models.TaskStatusPending
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = out.CreatedAt
	}
	for i := range out.Steps {
		if out.Steps[i].ID == "" {
			out.Steps[i].ID = uuid.New().String()
		}
		if out.Steps[i].Status == "" {
			out.Steps[i].Status = models.TaskStatusPending
		}
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertTask(ctx, tx, out); err != nil {
			return err
		}
		return insertSteps(ctx, tx, out.ID, out.Steps)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debugf("Task %s created with %d steps", out.ID, len(out.Steps))
	return &out, nil
}

// GetTask retrieves a task and its steps by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}

	steps, err := listSteps(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	task.Steps = steps
	return task, nil
}

// ListTasks returns all tasks in creation order, optionally filtered by status.
func (s *Store) ListTasks(ctx context.Context, status string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []interface{}

	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Steps are loaded after the cursor is released: the pool has a single connection.
	rows.Close()

	for i := range tasks {
		steps, err := listSteps(ctx, s.db, tasks[i].ID)
		if err != nil {
			return nil, err
		}
		tasks[i].Steps = steps
	}
	return tasks, nil
}

// PutTask replaces a stored task and all of its steps in one transaction.
func (s *Store) PutTask(ctx context.Context, task models.Task) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		tags, err := encodeList(task.Tags)
		if err != nil {
			return fmt.Errorf("encode tags: %w", err)
		}
		meta, err := encodeJSON(task.Metadata, "{}")
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, current_step_id = ?,
				tags = ?, metadata = ?, start_time = ?, due_date = ?, completed_at = ?, updated_at = ?
			 WHERE id = ?`,
			task.Title, task.Description, task.Status, task.Priority, task.CurrentStepID,
			tags, meta, nullTime(task.StartTime), nullTime(task.DueDate), nullTime(task.CompletedAt), task.UpdatedAt.UTC(),
			task.ID,
		)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM steps WHERE task_id = ?`, task.ID); err != nil {
			return fmt.Errorf("delete steps: %w", err)
		}
		return insertSteps(ctx, tx, task.ID, task.Steps)
	})
}

// DeleteTask removes a task and its steps.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

func insertTask(ctx context.Context, q querier, task models.Task) error {
	tags, err := encodeList(task.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	meta, err := encodeJSON(task.Metadata, "{}")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Description, task.Status, task.Priority, task.CurrentStepID, tags, meta,
		nullTime(task.StartTime), nullTime(task.DueDate), nullTime(task.CompletedAt), task.CreatedAt.UTC(), task.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func insertSteps(ctx context.Context, tx *sql.Tx, taskID string, steps []models.Step) error {
	if len(steps) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO steps (task_id, id, position, title, description, status, progress, dependencies, start_time, end_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare step insert: %w", err)
	}
	defer stmt.Close()

	for i, st := range steps {
		deps, err := encodeList(st.Dependencies)
		if err != nil {
			return fmt.Errorf("encode dependencies: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			taskID, st.ID, i, st.Title, st.Description, st.Status, st.Progress, deps,
			nullTime(st.StartTime), nullTime(st.EndTime),
		)
		if err != nil {
			return fmt.Errorf("insert step %s: %w", st.ID, err)
		}
	}
	return nil
}

func listSteps(ctx context.Context, q querier, taskID string) ([]models.Step, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, title, description, status, progress, dependencies, start_time, end_time
		 FROM steps WHERE task_id = ? ORDER BY position ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var steps []models.Step
	for rows.Next() {
		var st models.Step
		var deps string
		var startTime, endTime sql.NullTime
		if err := rows.Scan(&st.ID, &st.Title, &st.Description, &st.Status, &st.Progress, &deps, &startTime, &endTime); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if st.Dependencies, err = decodeList(deps); err != nil {
			return nil, fmt.Errorf("decode dependencies of step %s: %w", st.ID, err)
		}
		st.StartTime = timePtr(startTime)
		st.EndTime = timePtr(endTime)
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row scanner) (*models.Task, error) {
	var task models.Task
	var tags, meta string
	var startTime, dueDate, completedAt sql.NullTime

	err := row.Scan(
		&task.ID, &task.Title, &task.Description, &task.Status, &task.Priority, &task.CurrentStepID, &tags, &meta,
		&startTime, &dueDate, &completedAt, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if task.Tags, err = decodeList(tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := decodeJSON(meta, &task.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if len(task.Metadata) == 0 {
		task.Metadata = nil
	}
	task.StartTime = timePtr(startTime)
	task.DueDate = timePtr(dueDate)
	task.CompletedAt = timePtr(completedAt)
	return &task, nil
}
