package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/handsofstluke/pantry/pkg/db"
)

const taskColumns = `id, title, task_date, start_time, end_time, kind,
	source_id, recipient_id, capacity, status, notes, created_at, updated_at`

// InsertTask inserts a new task record
func (d *DB) InsertTask(ctx context.Context, task *db.Task) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO tasks (id, title, task_date, start_time, end_time, kind,
			source_id, recipient_id, capacity, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, task.ID, task.Title, task.Date, task.StartTime, task.EndTime, task.Kind,
		nullable(task.SourceID), nullable(task.RecipientID),
		task.Capacity, task.Status, task.Notes, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// GetTask retrieves a single task by id
func (d *DB) GetTask(ctx context.Context, id string) (*db.Task, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// GetTaskForClaim retrieves a task with its active signup count and the
// emails currently holding active signups
func (d *DB) GetTaskForClaim(ctx context.Context, id string) (*db.TaskClaimState, error) {
	task, err := d.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := d.pool.Query(ctx, `
		SELECT COALESCE(u.email, g.email)
		FROM signups s
		LEFT JOIN users u ON u.id = s.user_id
		LEFT JOIN guest_volunteers g ON g.id = s.guest_id
		WHERE s.task_id = $1 AND s.status <> 'CANCELLED'
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query active signups: %w", err)
	}
	defer rows.Close()

	state := &db.TaskClaimState{Task: *task}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan signup email: %w", err)
		}
		state.ActiveEmails = append(state.ActiveEmails, email)
		state.ActiveCount++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active signups: %w", err)
	}

	return state, nil
}

// ListTasks retrieves tasks matching the filter, each with its active
// signup count, ordered by date then start time
func (d *DB) ListTasks(ctx context.Context, filter db.TaskFilter) ([]db.TaskClaimState, error) {
	query := `
		SELECT t.id, t.title, t.task_date, t.start_time, t.end_time, t.kind,
			t.source_id, t.recipient_id, t.capacity, t.status, t.notes,
			t.created_at, t.updated_at,
			COUNT(s.id) FILTER (WHERE s.status <> 'CANCELLED') AS active_count
		FROM tasks t
		LEFT JOIN signups s ON s.task_id = t.id
		WHERE 1=1`
	args := []any{}

	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND t.task_date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND t.task_date <= $%d", len(args))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		query += fmt.Sprintf(" AND t.kind = $%d", len(args))
	}

	query += ` GROUP BY t.id ORDER BY t.task_date, t.start_time`

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var states []db.TaskClaimState
	for rows.Next() {
		var state db.TaskClaimState
		var sourceID, recipientID *string
		if err := rows.Scan(&state.Task.ID, &state.Task.Title, &state.Task.Date,
			&state.Task.StartTime, &state.Task.EndTime, &state.Task.Kind,
			&sourceID, &recipientID, &state.Task.Capacity, &state.Task.Status,
			&state.Task.Notes, &state.Task.CreatedAt, &state.Task.UpdatedAt,
			&state.ActiveCount); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if sourceID != nil {
			state.Task.SourceID = *sourceID
		}
		if recipientID != nil {
			state.Task.RecipientID = *recipientID
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return states, nil
}

// ApplyClaim recomputes task status after a claim. The status becomes FILLED
// when the new active count reaches capacity; a DONE task is never touched.
func (d *DB) ApplyClaim(ctx context.Context, taskID string, newActiveCount int) (db.TaskStatus, error) {
	return applyClaimTx(ctx, d.pool, taskID, newActiveCount)
}

// ReleaseClaim recomputes task status after a cancellation, reverting
// FILLED to OPEN when a slot opened and the task is not DONE
func (d *DB) ReleaseClaim(ctx context.Context, taskID string) error {
	return releaseClaimTx(ctx, d.pool, taskID)
}

func applyClaimTx(ctx context.Context, q rowQuerier, taskID string, newActiveCount int) (db.TaskStatus, error) {
	var status db.TaskStatus
	err := q.QueryRow(ctx, `
		UPDATE tasks SET
			status = CASE
				WHEN status = 'DONE' THEN status
				WHEN $2 >= capacity THEN 'FILLED'
				ELSE 'OPEN'
			END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING status
	`, taskID, newActiveCount).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", db.ErrNotFound
		}
		return "", fmt.Errorf("failed to apply claim to task: %w", err)
	}
	return status, nil
}

func releaseClaimTx(ctx context.Context, q rowQuerier, taskID string) error {
	var status db.TaskStatus
	err := q.QueryRow(ctx, `
		UPDATE tasks t SET
			status = CASE
				WHEN t.status = 'DONE' THEN t.status
				WHEN (SELECT COUNT(*) FROM signups s
					WHERE s.task_id = t.id AND s.status <> 'CANCELLED') >= t.capacity
					THEN 'FILLED'
				ELSE 'OPEN'
			END,
			updated_at = NOW()
		WHERE t.id = $1
		RETURNING t.status
	`, taskID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.ErrNotFound
		}
		return fmt.Errorf("failed to release claim on task: %w", err)
	}
	return nil
}

// rowQuerier covers both *pgxpool.Pool and pgx.Tx so the status transitions
// can run standalone or inside the claim transaction
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanTask(row pgx.Row) (*db.Task, error) {
	var task db.Task
	var sourceID, recipientID *string
	var date time.Time
	if err := row.Scan(&task.ID, &task.Title, &date, &task.StartTime,
		&task.EndTime, &task.Kind, &sourceID, &recipientID, &task.Capacity,
		&task.Status, &task.Notes, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}
	task.Date = date
	if sourceID != nil {
		task.SourceID = *sourceID
	}
	if recipientID != nil {
		task.RecipientID = *recipientID
	}
	return &task, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
