package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/handsofstluke/pantry/pkg/db"
	"github.com/handsofstluke/pantry/pkg/memstore"
)

func TestRegisterAccount_HashesPassword(t *testing.T) {
	store := memstore.New()
	notifier := &mockNotifier{}
	logger := zap.NewNop()

	result, err := RegisterAccount(context.Background(), store, notifier, logger, RegisterRequest{
		Email:     "sam@example.com",
		Password:  "correct-horse",
		FirstName: "Sam",
		LastName:  "Okafor",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.UserID)
	assert.Zero(t, result.MergedSignupCount)

	user, err := store.GetUserByEmail(context.Background(), "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, db.RoleVolunteer, user.Role)
	assert.NotEqual(t, "correct-horse", user.HashedPassword)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte("correct-horse")))

	sends := notifier.sent()
	require.Len(t, sends, 1)
	assert.Equal(t, TemplateAccountWelcome, sends[0].kind)
}

func TestRegisterAccount_NormalizesEmail(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()

	result, err := RegisterAccount(context.Background(), store, nil, logger, RegisterRequest{
		Email:     "  Sam@Example.COM ",
		Password:  "correct-horse",
		FirstName: "Sam",
		LastName:  "Okafor",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.UserID)

	user, err := store.GetUserByEmail(context.Background(), "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", user.Email)
}

func TestRegisterAccount_MergesGuestHistory(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()
	first := insertOpenTask(t, store, 2)
	second := insertOpenTask(t, store, 2)

	for _, task := range []*db.Task{first, second} {
		_, err := ClaimTask(context.Background(), store, nil, logger, guestClaim(task.ID, "pat@example.com"))
		require.NoError(t, err)
	}

	result, err := RegisterAccount(context.Background(), store, nil, logger, RegisterRequest{
		Email:     "pat@example.com",
		Password:  "correct-horse",
		FirstName: "Pat",
		LastName:  "Rivera",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.MergedSignupCount)

	// Guest record is gone; signups now belong to the account
	_, err = store.GetGuestByEmail(context.Background(), "pat@example.com")
	assert.ErrorIs(t, err, db.ErrNotFound)

	signups, err := store.ListSignupsByEmail(context.Background(), "pat@example.com")
	require.NoError(t, err)
	require.Len(t, signups, 2)
	for _, signup := range signups {
		assert.Equal(t, result.UserID, signup.UserID)
		assert.Empty(t, signup.GuestID)
	}
}

func TestRegisterAccount_EmailCaseInsensitiveMerge(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()
	task := insertOpenTask(t, store, 2)

	_, err := ClaimTask(context.Background(), store, nil, logger, guestClaim(task.ID, "pat@example.com"))
	require.NoError(t, err)

	result, err := RegisterAccount(context.Background(), store, nil, logger, RegisterRequest{
		Email:     "Pat@Example.com",
		Password:  "correct-horse",
		FirstName: "Pat",
		LastName:  "Rivera",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.MergedSignupCount)
}

func TestRegisterAccount_DuplicateEmail(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()

	req := RegisterRequest{
		Email:     "sam@example.com",
		Password:  "correct-horse",
		FirstName: "Sam",
		LastName:  "Okafor",
	}
	_, err := RegisterAccount(context.Background(), store, nil, logger, req)
	require.NoError(t, err)

	_, err = RegisterAccount(context.Background(), store, nil, logger, req)
	assert.ErrorIs(t, err, db.ErrConflict)
}

func TestRegisterAccount_ShortPassword(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()

	_, err := RegisterAccount(context.Background(), store, nil, logger, RegisterRequest{
		Email:     "sam@example.com",
		Password:  "short",
		FirstName: "Sam",
		LastName:  "Okafor",
	})
	assert.Error(t, err)
}
