package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/handsofstluke/pantry/pkg/db"
)

// ClaimRequest is a guest quick-signup for one task
type ClaimRequest struct {
	TaskID    string `json:"task_id" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone" validate:"omitempty"`
}

// ClaimResult reports a successful claim
type ClaimResult struct {
	Signup     *db.Signup
	TaskStatus db.TaskStatus
}

// ClaimStore defines the database operations needed to claim a task
type ClaimStore interface {
	GetTaskForClaim(ctx context.Context, id string) (*db.TaskClaimState, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	ClaimAsGuest(ctx context.Context, taskID string, contact db.GuestContact) (*db.Signup, db.TaskStatus, error)
	ClaimAsUser(ctx context.Context, taskID, userID string) (*db.Signup, db.TaskStatus, error)
}

// ClaimTask turns a guest quick-signup into a durable, capacity-respecting
// signup. Validation and the early task checks are read-then-decide; the
// store's claim operation repeats the capacity check atomically with the
// writes, so racing claimants for the last slot get exactly one success.
// The confirmation email is sent after commit and never fails the claim.
func ClaimTask(
	ctx context.Context,
	store ClaimStore,
	notifier Notifier,
	logger *zap.Logger,
	req ClaimRequest,
) (*ClaimResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	logger.Info("Starting task claim",
		zap.String("task_id", req.TaskID),
		zap.String("email", req.Email))

	// Step 1: load task state and check availability
	state, err := store.GetTaskForClaim(ctx, req.TaskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if state.Task.Status != db.TaskOpen {
		logger.Info("Task not open", zap.String("status", string(state.Task.Status)))
		return nil, db.ErrTaskUnavailable
	}

	// Step 2: reject a repeat claim by the same identity
	for _, email := range state.ActiveEmails {
		if strings.EqualFold(email, req.Email) {
			return nil, db.ErrAlreadyClaimed
		}
	}

	// A registered email must claim through the authenticated path; never
	// create a duplicate guest for it
	if _, err := store.GetUserByEmail(ctx, req.Email); err == nil {
		logger.Info("Email belongs to a registered account", zap.String("email", req.Email))
		return nil, fmt.Errorf("email is registered, sign in to claim: %w", db.ErrConflict)
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to check registered users: %w", err)
	}

	// Steps 3-5: resolve guest, re-check capacity and write, one atomic unit
	signup, taskStatus, err := store.ClaimAsGuest(ctx, req.TaskID, db.GuestContact{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Claim committed",
		zap.String("signup_id", signup.ID),
		zap.String("task_id", req.TaskID))

	// Step 6: best-effort confirmation, outside the atomic unit
	notifyClaim(notifier, logger, req.Email, req.FirstName, &state.Task)

	return &ClaimResult{Signup: signup, TaskStatus: taskStatus}, nil
}

// ClaimTaskAsUser claims a task for an authenticated registered user. The
// identity is trusted as verified by the authentication layer.
func ClaimTaskAsUser(
	ctx context.Context,
	store ClaimStore,
	notifier Notifier,
	logger *zap.Logger,
	taskID string,
	identity Identity,
) (*ClaimResult, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task id is required: %w", ErrInvalidRequest)
	}
	if identity.UserID == "" {
		return nil, db.ErrForbidden
	}

	logger.Info("Starting authenticated task claim",
		zap.String("task_id", taskID),
		zap.String("user_id", identity.UserID))

	state, err := store.GetTaskForClaim(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if state.Task.Status != db.TaskOpen {
		return nil, db.ErrTaskUnavailable
	}
	for _, email := range state.ActiveEmails {
		if strings.EqualFold(email, identity.Email) {
			return nil, db.ErrAlreadyClaimed
		}
	}

	signup, taskStatus, err := store.ClaimAsUser(ctx, taskID, identity.UserID)
	if err != nil {
		return nil, err
	}

	logger.Info("Claim committed",
		zap.String("signup_id", signup.ID),
		zap.String("task_id", taskID))

	notifyClaim(notifier, logger, identity.Email, "", &state.Task)

	return &ClaimResult{Signup: signup, TaskStatus: taskStatus}, nil
}

func notifyClaim(notifier Notifier, logger *zap.Logger, email, firstName string, task *db.Task) {
	if notifier == nil {
		return
	}
	err := notifier.Send(email, TemplateSignupConfirmation, map[string]string{
		"first_name": firstName,
		"task_title": task.Title,
		"task_date":  task.Date.Format("Monday, January 2"),
		"start_time": task.StartTime,
		"end_time":   task.EndTime,
	})
	if err != nil {
		// Soft failure only; the claim stands
		logger.Warn("Failed to send confirmation email",
			zap.String("email", email),
			zap.Error(err))
	}
}
