package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/handsofstluke/pantry/pkg/db"
)

const bcryptCost = 12

// RegisterRequest creates a registered account
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone" validate:"omitempty"`
}

// RegisterResult reports the created account and how much guest history was
// folded into it
type RegisterResult struct {
	UserID            string
	MergedSignupCount int
}

// RegisterStore defines the database operations needed to register an account
type RegisterStore interface {
	CreateUser(ctx context.Context, user *db.User, profile *db.VolunteerProfile) error
	MergeGuestIntoUser(ctx context.Context, userID, email string) (int, error)
	InsertAudit(ctx context.Context, entry *db.AuditEntry) error
}

// RegisterAccount creates a registered user with a bcrypt-hashed password and
// merges any guest history for the same email into the new account: the
// guest's signups are re-pointed to the user and the guest record is deleted.
// The merge is idempotent; with no matching guest it is a no-op returning 0.
func RegisterAccount(
	ctx context.Context,
	store RegisterStore,
	notifier Notifier,
	logger *zap.Logger,
	req RegisterRequest,
) (*RegisterResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	logger.Info("Registering account", zap.String("email", req.Email))

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &db.User{
		ID:             uuid.New().String(),
		Email:          req.Email,
		HashedPassword: string(hashed),
		Role:           db.RoleVolunteer,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	profile := &db.VolunteerProfile{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}

	if err := store.CreateUser(ctx, user, profile); err != nil {
		return nil, err
	}

	merged, err := store.MergeGuestIntoUser(ctx, user.ID, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to merge guest history: %w", err)
	}
	if merged > 0 {
		logger.Info("Merged guest signups into new account",
			zap.String("user_id", user.ID),
			zap.Int("count", merged))
	}

	if err := store.InsertAudit(ctx, &db.AuditEntry{
		ID:     uuid.New().String(),
		Action: db.AuditRegistration,
		Details: map[string]string{
			"user_id":        user.ID,
			"email":          req.Email,
			"merged_signups": fmt.Sprintf("%d", merged),
		},
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		logger.Warn("Failed to write registration audit entry", zap.Error(err))
	}

	if notifier != nil {
		if err := notifier.Send(req.Email, TemplateAccountWelcome, map[string]string{
			"first_name": req.FirstName,
		}); err != nil {
			logger.Warn("Failed to send welcome email",
				zap.String("email", req.Email),
				zap.Error(err))
		}
	}

	return &RegisterResult{UserID: user.ID, MergedSignupCount: merged}, nil
}
