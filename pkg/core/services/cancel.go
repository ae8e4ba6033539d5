package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/handsofstluke/pantry/pkg/db"
)

// CancelStore defines the database operations needed to cancel a signup
type CancelStore interface {
	GetSignup(ctx context.Context, id string) (*db.Signup, error)
	GetTask(ctx context.Context, id string) (*db.Task, error)
	GetUser(ctx context.Context, id string) (*db.User, error)
	GetGuestByEmail(ctx context.Context, email string) (*db.GuestVolunteer, error)
	CancelSignup(ctx context.Context, signupID string) error
}

// CancelSignup cancels a signup on behalf of the requester. Volunteers may
// only cancel their own signups; admins may cancel any. The status write and
// the task status release commit as one unit in the store.
func CancelSignup(
	ctx context.Context,
	store CancelStore,
	notifier Notifier,
	logger *zap.Logger,
	signupID string,
	requester Identity,
) error {
	if signupID == "" {
		return fmt.Errorf("signup id is required: %w", ErrInvalidRequest)
	}

	logger.Info("Cancelling signup",
		zap.String("signup_id", signupID),
		zap.String("requester", requester.Email))

	signup, err := store.GetSignup(ctx, signupID)
	if err != nil {
		return fmt.Errorf("failed to load signup: %w", err)
	}

	if !requester.IsAdmin() {
		owned, err := ownsSignup(ctx, store, signup, requester)
		if err != nil {
			return err
		}
		if !owned {
			return db.ErrForbidden
		}
	}

	if err := store.CancelSignup(ctx, signupID); err != nil {
		return err
	}

	logger.Info("Signup cancelled", zap.String("signup_id", signupID))

	if notifier != nil {
		task, err := store.GetTask(ctx, signup.TaskID)
		if err != nil {
			logger.Warn("Failed to load task for cancellation email", zap.Error(err))
			return nil
		}
		email, err := signupEmail(ctx, store, signup, requester)
		if err != nil || email == "" {
			return nil
		}
		if err := notifier.Send(email, TemplateSignupCancelled, map[string]string{
			"task_title": task.Title,
			"task_date":  task.Date.Format("Monday, January 2"),
		}); err != nil {
			logger.Warn("Failed to send cancellation email",
				zap.String("email", email),
				zap.Error(err))
		}
	}
	return nil
}

// ownsSignup reports whether the requester holds the signup, matching by
// user id for account signups and by email for guest signups
func ownsSignup(ctx context.Context, store CancelStore, signup *db.Signup, requester Identity) (bool, error) {
	if signup.UserID != "" {
		return signup.UserID == requester.UserID, nil
	}
	if signup.GuestID != "" && requester.Email != "" {
		guest, err := store.GetGuestByEmail(ctx, normalizeEmail(requester.Email))
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("failed to look up guest: %w", err)
		}
		return guest.ID == signup.GuestID, nil
	}
	return false, nil
}

func signupEmail(ctx context.Context, store CancelStore, signup *db.Signup, requester Identity) (string, error) {
	if signup.UserID != "" {
		user, err := store.GetUser(ctx, signup.UserID)
		if err != nil {
			return "", err
		}
		return user.Email, nil
	}
	// Guest signup: a non-admin requester is the guest themselves
	if !requester.IsAdmin() {
		return normalizeEmail(requester.Email), nil
	}
	return "", nil
}
