package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/handsofstluke/pantry/pkg/db"
)

const uniqueViolation = "23505"

// ResolveGuest finds or creates the guest volunteer for the contact's email.
// An existing guest gets its name and phone refreshed with the supplied
// values. The upsert on the email unique constraint makes concurrent
// first-time signups for the same email converge on one row.
func (d *DB) ResolveGuest(ctx context.Context, contact db.GuestContact) (*db.GuestVolunteer, error) {
	return resolveGuestTx(ctx, d.pool, contact)
}

// resolveGuestTx runs the guest upsert against either the pool or an open
// claim transaction
func resolveGuestTx(ctx context.Context, q rowQuerier, contact db.GuestContact) (*db.GuestVolunteer, error) {
	guest := &db.GuestVolunteer{
		Email:     contact.Email,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		Phone:     contact.Phone,
	}
	err := q.QueryRow(ctx, `
		INSERT INTO guest_volunteers (id, email, first_name, last_name, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (email) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			phone = EXCLUDED.phone,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, uuid.New().String(), contact.Email, contact.FirstName, contact.LastName, contact.Phone).
		Scan(&guest.ID, &guest.CreatedAt, &guest.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve guest volunteer: %w", err)
	}
	return guest, nil
}

// GetGuestByEmail retrieves a guest volunteer by email
func (d *DB) GetGuestByEmail(ctx context.Context, email string) (*db.GuestVolunteer, error) {
	var guest db.GuestVolunteer
	err := d.pool.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, phone, created_at, updated_at
		FROM guest_volunteers WHERE email = $1
	`, email).Scan(&guest.ID, &guest.Email, &guest.FirstName, &guest.LastName,
		&guest.Phone, &guest.CreatedAt, &guest.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get guest volunteer: %w", err)
	}
	return &guest, nil
}

// GetUserByEmail retrieves a registered user by email
func (d *DB) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	return d.getUser(ctx, `WHERE email = $1`, email)
}

// GetUser retrieves a registered user by id
func (d *DB) GetUser(ctx context.Context, id string) (*db.User, error) {
	return d.getUser(ctx, `WHERE id = $1`, id)
}

func (d *DB) getUser(ctx context.Context, where string, arg any) (*db.User, error) {
	var user db.User
	err := d.pool.QueryRow(ctx, `
		SELECT id, email, hashed_password, role, created_at, updated_at
		FROM users `+where, arg).
		Scan(&user.ID, &user.Email, &user.HashedPassword, &user.Role,
			&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// CreateUser inserts a registered user and their volunteer profile in one
// transaction. A duplicate email fails with ErrConflict.
func (d *DB) CreateUser(ctx context.Context, user *db.User, profile *db.VolunteerProfile) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, email, hashed_password, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.Email, user.HashedPassword, user.Role, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrConflict
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO volunteer_profiles (id, user_id, first_name, last_name, phone, sms_opt_in, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, profile.ID, user.ID, profile.FirstName, profile.LastName, profile.Phone,
		profile.SMSOptIn, profile.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert volunteer profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (d *DB) SetUserRole(ctx context.Context, userID string, role db.Role) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE users SET role = $2, updated_at = now() WHERE id = $1
	`, userID, role)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// MergeGuestIntoUser re-points all signups of the guest sharing the user's
// email to the user and deletes the guest record, in one transaction.
// Returns the number of signups migrated; no-op returning 0 when no guest
// exists for the email.
func (d *DB) MergeGuestIntoUser(ctx context.Context, userID, email string) (int, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the guest row so a concurrent merge or signup settles behind us
	var guestID string
	err = tx.QueryRow(ctx, `
		SELECT id FROM guest_volunteers WHERE email = $1 FOR UPDATE
	`, email).Scan(&guestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to lock guest volunteer: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE signups SET user_id = $1, guest_id = NULL, updated_at = NOW()
		WHERE guest_id = $2
	`, userID, guestID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, db.ErrConflict
		}
		return 0, fmt.Errorf("failed to migrate guest signups: %w", err)
	}
	migrated := int(tag.RowsAffected())

	if _, err := tx.Exec(ctx, `DELETE FROM guest_volunteers WHERE id = $1`, guestID); err != nil {
		return 0, fmt.Errorf("failed to delete guest volunteer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return migrated, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
