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

func TestCompleteTask_RecordsFoodLog(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()
	task := insertOpenTask(t, store, 2)

	claim, err := ClaimTask(context.Background(), store, nil, logger, guestClaim(task.ID, "pat@example.com"))
	require.NoError(t, err)

	admin := Identity{UserID: "admin-1", Email: "admin@example.com", Role: db.RoleAdmin}
	log, err := CompleteTask(context.Background(), store, logger, CompleteRequest{
		TaskID: task.ID,
		Pounds: 142.5,
		Items:  "produce, bread",
	}, admin)
	require.NoError(t, err)

	assert.Equal(t, task.ID, log.TaskID)
	assert.Equal(t, 142.5, log.Pounds)
	assert.Equal(t, "admin-1", log.CompletedBy)

	stored, err := store.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, db.TaskDone, stored.Status)

	signup, err := store.GetSignup(context.Background(), claim.Signup.ID)
	require.NoError(t, err)
	assert.Equal(t, db.SignupCompleted, signup.Status)
}

func TestCompleteTask_AdminOnly(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()
	task := insertOpenTask(t, store, 2)

	volunteer := Identity{UserID: "vol-1", Email: "vol@example.com", Role: db.RoleVolunteer}
	_, err := CompleteTask(context.Background(), store, logger, CompleteRequest{TaskID: task.ID, Pounds: 10}, volunteer)
	assert.ErrorIs(t, err, db.ErrForbidden)
}

func TestCompleteTask_Twice(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()
	task := insertOpenTask(t, store, 2)

	admin := Identity{UserID: "admin-1", Email: "admin@example.com", Role: db.RoleAdmin}
	_, err := CompleteTask(context.Background(), store, logger, CompleteRequest{TaskID: task.ID, Pounds: 10}, admin)
	require.NoError(t, err)

	_, err = CompleteTask(context.Background(), store, logger, CompleteRequest{TaskID: task.ID, Pounds: 10}, admin)
	assert.ErrorIs(t, err, db.ErrConflict)
}

func TestCompleteTask_DoneTaskRejectsClaims(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()
	task := insertOpenTask(t, store, 2)

	admin := Identity{UserID: "admin-1", Email: "admin@example.com", Role: db.RoleAdmin}
	_, err := CompleteTask(context.Background(), store, logger, CompleteRequest{TaskID: task.ID, Pounds: 10}, admin)
	require.NoError(t, err)

	_, err = ClaimTask(context.Background(), store, nil, logger, guestClaim(task.ID, "late@example.com"))
	assert.ErrorIs(t, err, db.ErrTaskUnavailable)
}

func TestCompleteTask_RequiresPositivePounds(t *testing.T) {
	store := memstore.New()
	logger := zap.NewNop()
	task := insertOpenTask(t, store, 2)

	admin := Identity{UserID: "admin-1", Email: "admin@example.com", Role: db.RoleAdmin}
	_, err := CompleteTask(context.Background(), store, logger, CompleteRequest{TaskID: task.ID, Pounds: 0}, admin)
	assert.Error(t, err)
}
