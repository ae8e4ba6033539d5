package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/handsofstluke/pantry/pkg/db"
)

// CompleteTask records the food log for a task, marks its active signups
// COMPLETED and flips the task to DONE, all in one transaction. The unique
// constraint on food_logs.task_id makes a second completion fail with
// ErrConflict.
func (d *DB) CompleteTask(ctx context.Context, taskID string, log *db.FoodLog) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status db.TaskStatus
	err = tx.QueryRow(ctx, `
		SELECT status FROM tasks WHERE id = $1 FOR UPDATE
	`, taskID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.ErrNotFound
		}
		return fmt.Errorf("failed to lock task row: %w", err)
	}
	if status == db.TaskDone {
		return db.ErrConflict
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO food_logs (id, task_id, pounds, items, completed_by, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, log.ID, taskID, log.Pounds, log.Items, log.CompletedBy, log.CompletedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrConflict
		}
		return fmt.Errorf("failed to insert food log: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE signups SET status = 'COMPLETED', updated_at = NOW()
		WHERE task_id = $1 AND status IN ('PENDING', 'CONFIRMED')
	`, taskID)
	if err != nil {
		return fmt.Errorf("failed to complete signups: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE tasks SET status = 'DONE', updated_at = NOW() WHERE id = $1
	`, taskID)
	if err != nil {
		return fmt.Errorf("failed to mark task done: %w", err)
	}

	if err := insertAuditTx(ctx, tx, &db.AuditEntry{
		ID:     uuid.New().String(),
		Action: db.AuditTaskCompleted,
		Details: map[string]string{
			"task_id":      taskID,
			"food_log_id":  log.ID,
			"completed_by": log.CompletedBy,
		},
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
