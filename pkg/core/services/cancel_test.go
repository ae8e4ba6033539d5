package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/handsofstluke/pantry/pkg/db"
	"github.com/handsofstluke/pantry/pkg/memstore"
)

func TestCancelSignup_GuestOwnerReopensTask(t *testing.T) {
	store := memstore.New()
	notifier := &mockNotifier{}
	logger := zap.NewNop()
	task := insertOpenTask(t, store, 1)

	result, err := ClaimTask(context.Background(), store, nil, logger, guestClaim(task.ID, "pat@example.com"))
	require.NoError(t, err)
	require.Equal(t, db.TaskFilled, result.TaskStatus)

	err = CancelSignup(context.Background(), store, notifier, logger, result.Signup.ID, Identity{Email: "pat@example.com"})
	require.NoError(t, err)

	signup, err := store.GetSignup(context.Background(), result.Signup.ID)
	require.NoError(t, err)
	assert.Equal(t, db.SignupCancelled, signup.Status)

	// The released spot reopens the task
	stored, err := store.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, db.TaskOpen, stored.Status)

	sends := notifier.sent()
	require.Len(t, sends, 1)
	assert.Equal(t, TemplateSignupCancelled, sends[0].kind)
	assert.Equal(t, "pat@example.com", sends[0].recipient)
}

func TestCancelSignup_SpotReclaimableAfterCancel(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()
	task := insertOpenTask(t, store, 1)

	first, err := ClaimTask(context.Background(), store, nil, logger, guestClaim(task.ID, "pat@example.com"))
	require.NoError(t, err)

	err = CancelSignup(context.Background(), store, nil, logger, first.Signup.ID, Identity{Email: "pat@example.com"})
	require.NoError(t, err)

	// The same volunteer may claim again once the old signup is cancelled
	second, err := ClaimTask(context.Background(), store, nil, logger, guestClaim(task.ID, "pat@example.com"))
	require.NoError(t, err)
	assert.NotEqual(t, first.Signup.ID, second.Signup.ID)
}

func TestCancelSignup_NotOwner(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()
	task := insertOpenTask(t, store, 2)

	result, err := ClaimTask(context.Background(), store, nil, logger, guestClaim(task.ID, "pat@example.com"))
	require.NoError(t, err)

	err = CancelSignup(context.Background(), store, nil, logger, result.Signup.ID, Identity{Email: "stranger@example.com"})
	assert.ErrorIs(t, err, db.ErrForbidden)
}

func TestCancelSignup_AdminOverride(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()
	task := insertOpenTask(t, store, 2)

	result, err := ClaimTask(context.Background(), store, nil, logger, guestClaim(task.ID, "pat@example.com"))
	require.NoError(t, err)

	admin := Identity{UserID: "admin-1", Email: "admin@example.com", Role: db.RoleAdmin}
	err = CancelSignup(context.Background(), store, nil, logger, result.Signup.ID, admin)
	require.NoError(t, err)

	signup, err := store.GetSignup(context.Background(), result.Signup.ID)
	require.NoError(t, err)
	assert.Equal(t, db.SignupCancelled, signup.Status)
}

func TestCancelSignup_AlreadyCancelled(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()
	task := insertOpenTask(t, store, 2)

	result, err := ClaimTask(context.Background(), store, nil, logger, guestClaim(task.ID, "pat@example.com"))
	require.NoError(t, err)

	requester := Identity{Email: "pat@example.com"}
	require.NoError(t, CancelSignup(context.Background(), store, nil, logger, result.Signup.ID, requester))

	err = CancelSignup(context.Background(), store, nil, logger, result.Signup.ID, requester)
	assert.ErrorIs(t, err, db.ErrConflict)
}

func TestCancelSignup_UserOwner(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()
	task := insertOpenTask(t, store, 2)

	reg, err := RegisterAccount(context.Background(), store, nil, logger, RegisterRequest{
		Email:     "member@example.com",
		Password:  "correct-horse",
		FirstName: "Sam",
		LastName:  "Okafor",
	})
	require.NoError(t, err)

	identity := Identity{UserID: reg.UserID, Email: "member@example.com", Role: db.RoleVolunteer}
	result, err := ClaimTaskAsUser(context.Background(), store, nil, logger, task.ID, identity)
	require.NoError(t, err)

	require.NoError(t, CancelSignup(context.Background(), store, nil, logger, result.Signup.ID, identity))

	signup, err := store.GetSignup(context.Background(), result.Signup.ID)
	require.NoError(t, err)
	assert.Equal(t, db.SignupCancelled, signup.Status)
}

func TestCancelSignup_UnknownSignup(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()

	err := CancelSignup(context.Background(), store, nil, logger, "no-such-signup", Identity{Email: "pat@example.com"})
	assert.ErrorIs(t, err, db.ErrNotFound)
}
