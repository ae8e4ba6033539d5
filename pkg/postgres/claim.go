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

// ClaimAsGuest claims one capacity slot for a guest volunteer. The capacity
// check, guest resolution, signup insert, audit entry and task status update
// commit as one transaction.
//
// SELECT ... FOR UPDATE on the task row serialises concurrent claimants:
// a second transaction blocks on the same lock until the first commits, so
// two racers for the last slot produce exactly one success and one
// ErrTaskFull, never two successes.
func (d *DB) ClaimAsGuest(ctx context.Context, taskID string, contact db.GuestContact) (*db.Signup, db.TaskStatus, error) {
	return d.claim(ctx, taskID, contact.Email, func(ctx context.Context, tx pgx.Tx) (string, string, string, error) {
		guest, err := resolveGuestTx(ctx, tx, contact)
		if err != nil {
			return "", "", "", err
		}
		return "", guest.ID, db.AuditGuestSignup, nil
	})
}

// ClaimAsUser claims one capacity slot for a registered user. The user's
// verified identity comes from the authentication layer; only existence and
// the duplicate-claim rule are checked here.
func (d *DB) ClaimAsUser(ctx context.Context, taskID, userID string) (*db.Signup, db.TaskStatus, error) {
	user, err := d.GetUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	return d.claim(ctx, taskID, user.Email, func(ctx context.Context, tx pgx.Tx) (string, string, string, error) {
		return userID, "", db.AuditUserSignup, nil
	})
}

// claim runs the shared claim transaction. resolve returns the identity to
// attach the signup to (userID or guestID) and the audit action; it runs
// inside the transaction after the task row is locked. The returned status
// is the one the status update computed inside the transaction.
func (d *DB) claim(
	ctx context.Context,
	taskID, email string,
	resolve func(ctx context.Context, tx pgx.Tx) (userID, guestID, auditAction string, err error),
) (*db.Signup, db.TaskStatus, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the task row; concurrent claimants queue here
	var capacity int
	var status db.TaskStatus
	var title string
	err = tx.QueryRow(ctx, `
		SELECT capacity, status, title FROM tasks WHERE id = $1 FOR UPDATE
	`, taskID).Scan(&capacity, &status, &title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", db.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to lock task row: %w", err)
	}

	if status != db.TaskOpen {
		return nil, "", db.ErrTaskUnavailable
	}

	// Duplicate check: one active signup per resolved email per task,
	// across both guest and user signups
	var dupCount int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM signups s
		LEFT JOIN users u ON u.id = s.user_id
		LEFT JOIN guest_volunteers g ON g.id = s.guest_id
		WHERE s.task_id = $1 AND s.status <> 'CANCELLED'
			AND COALESCE(u.email, g.email) = $2
	`, taskID, email).Scan(&dupCount)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check existing signup: %w", err)
	}
	if dupCount > 0 {
		return nil, "", db.ErrAlreadyClaimed
	}

	// Commit-time capacity re-check, under the row lock
	var activeCount int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM signups WHERE task_id = $1 AND status <> 'CANCELLED'
	`, taskID).Scan(&activeCount)
	if err != nil {
		return nil, "", fmt.Errorf("failed to count active signups: %w", err)
	}
	if activeCount >= capacity {
		return nil, "", db.ErrTaskFull
	}

	userID, guestID, auditAction, err := resolve(ctx, tx)
	if err != nil {
		return nil, "", err
	}

	signup := &db.Signup{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		UserID:    userID,
		GuestID:   guestID,
		Status:    db.SignupConfirmed,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO signups (id, task_id, user_id, guest_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, signup.ID, signup.TaskID, nullable(signup.UserID), nullable(signup.GuestID),
		signup.Status, signup.CreatedAt, signup.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, "", db.ErrAlreadyClaimed
		}
		return nil, "", fmt.Errorf("failed to insert signup: %w", err)
	}

	newStatus, err := applyClaimTx(ctx, tx, taskID, activeCount+1)
	if err != nil {
		return nil, "", err
	}

	if err := insertAuditTx(ctx, tx, &db.AuditEntry{
		ID:     uuid.New().String(),
		Action: auditAction,
		Details: map[string]string{
			"task_id":    taskID,
			"task_title": title,
			"signup_id":  signup.ID,
			"email":      email,
		},
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return nil, "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return signup, newStatus, nil
}

// GetSignup retrieves a signup by id
func (d *DB) GetSignup(ctx context.Context, id string) (*db.Signup, error) {
	var signup db.Signup
	var userID, guestID *string
	err := d.pool.QueryRow(ctx, `
		SELECT id, task_id, user_id, guest_id, status, created_at, updated_at
		FROM signups WHERE id = $1
	`, id).Scan(&signup.ID, &signup.TaskID, &userID, &guestID, &signup.Status,
		&signup.CreatedAt, &signup.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get signup: %w", err)
	}
	if userID != nil {
		signup.UserID = *userID
	}
	if guestID != nil {
		signup.GuestID = *guestID
	}
	return &signup, nil
}

// ListSignupsByEmail retrieves all signups held by the identity with the
// given email, across guest and user records
func (d *DB) ListSignupsByEmail(ctx context.Context, email string) ([]db.Signup, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT s.id, s.task_id, s.user_id, s.guest_id, s.status, s.created_at, s.updated_at
		FROM signups s
		LEFT JOIN users u ON u.id = s.user_id
		LEFT JOIN guest_volunteers g ON g.id = s.guest_id
		WHERE COALESCE(u.email, g.email) = $1
		ORDER BY s.created_at
	`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query signups: %w", err)
	}
	defer rows.Close()

	var signups []db.Signup
	for rows.Next() {
		var signup db.Signup
		var userID, guestID *string
		if err := rows.Scan(&signup.ID, &signup.TaskID, &userID, &guestID,
			&signup.Status, &signup.CreatedAt, &signup.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan signup: %w", err)
		}
		if userID != nil {
			signup.UserID = *userID
		}
		if guestID != nil {
			signup.GuestID = *guestID
		}
		signups = append(signups, signup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signups: %w", err)
	}
	return signups, nil
}

// CancelSignup marks the signup CANCELLED and recomputes the owning task's
// status in one transaction, reverting FILLED to OPEN when a slot opens.
// Cancelling an already-cancelled signup fails with ErrConflict.
func (d *DB) CancelSignup(ctx context.Context, signupID string) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var taskID string
	err = tx.QueryRow(ctx, `SELECT task_id FROM signups WHERE id = $1`, signupID).Scan(&taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.ErrNotFound
		}
		return fmt.Errorf("failed to get signup: %w", err)
	}

	// Same lock ordering as the claim path: task row first
	var discard string
	if err := tx.QueryRow(ctx, `SELECT id FROM tasks WHERE id = $1 FOR UPDATE`, taskID).Scan(&discard); err != nil {
		return fmt.Errorf("failed to lock task row: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE signups SET status = 'CANCELLED', updated_at = NOW()
		WHERE id = $1 AND status <> 'CANCELLED'
	`, signupID)
	if err != nil {
		return fmt.Errorf("failed to cancel signup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrConflict
	}

	if err := releaseClaimTx(ctx, tx, taskID); err != nil {
		return err
	}

	if err := insertAuditTx(ctx, tx, &db.AuditEntry{
		ID:     uuid.New().String(),
		Action: db.AuditCancellation,
		Details: map[string]string{
			"task_id":   taskID,
			"signup_id": signupID,
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
