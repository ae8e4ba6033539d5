package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsofstluke/pantry/pkg/db"
)

func testTask(id string, capacity int) *db.Task {
	return &db.Task{
		ID:        id,
		Title:     "Pickup shift",
		Date:      time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		StartTime: "09:00",
		EndTime:   "11:00",
		Kind:      db.TaskPickup,
		Capacity:  capacity,
		Status:    db.TaskOpen,
	}
}

func TestResolveGuest_Idempotent(t *testing.T) {
	store := New()
	ctx := context.Background()

	first, err := store.ResolveGuest(ctx, db.GuestContact{Email: "pat@example.com", FirstName: "Pat", LastName: "Rivera"})
	require.NoError(t, err)

	// Same email resolves to the same guest, with contact details refreshed
	second, err := store.ResolveGuest(ctx, db.GuestContact{Email: "pat@example.com", FirstName: "Patricia", LastName: "Rivera"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Patricia", second.FirstName)
}

func TestClaimAsGuest_CapacityUnderContention(t *testing.T) {
	store := New()
	ctx := context.Background()
	require.NoError(t, store.InsertTask(ctx, testTask("task-1", 2)))

	const claimants = 12
	var wg sync.WaitGroup
	errs := make([]error, claimants)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _, errs[n] = store.ClaimAsGuest(ctx, "task-1", db.GuestContact{
				Email:     fmt.Sprintf("v%d@example.com", n),
				FirstName: "V",
				LastName:  fmt.Sprintf("%d", n),
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		}
	}
	assert.Equal(t, 2, wins)

	state, err := store.GetTaskForClaim(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, 2, state.ActiveCount)
	assert.Equal(t, db.TaskFilled, state.Task.Status)
	assert.Zero(t, state.Remaining())
}

func TestClaimAsGuest_ReturnsCommittedStatus(t *testing.T) {
	store := New()
	ctx := context.Background()
	require.NoError(t, store.InsertTask(ctx, testTask("task-1", 2)))

	_, status, err := store.ClaimAsGuest(ctx, "task-1", db.GuestContact{Email: "a@example.com", FirstName: "A", LastName: "One"})
	require.NoError(t, err)
	assert.Equal(t, db.TaskOpen, status)

	_, status, err = store.ClaimAsGuest(ctx, "task-1", db.GuestContact{Email: "b@example.com", FirstName: "B", LastName: "Two"})
	require.NoError(t, err)
	assert.Equal(t, db.TaskFilled, status)
}

func TestClaimAsGuest_SameEmailTwice(t *testing.T) {
	store := New()
	ctx := context.Background()
	require.NoError(t, store.InsertTask(ctx, testTask("task-1", 3)))

	contact := db.GuestContact{Email: "pat@example.com", FirstName: "Pat", LastName: "Rivera"}
	_, _, err := store.ClaimAsGuest(ctx, "task-1", contact)
	require.NoError(t, err)

	_, _, err = store.ClaimAsGuest(ctx, "task-1", contact)
	assert.ErrorIs(t, err, db.ErrAlreadyClaimed)
}

func TestApplyClaim_StatusTransitions(t *testing.T) {
	store := New()
	ctx := context.Background()
	require.NoError(t, store.InsertTask(ctx, testTask("task-1", 2)))

	status, err := store.ApplyClaim(ctx, "task-1", 1)
	require.NoError(t, err)
	assert.Equal(t, db.TaskOpen, status)

	status, err = store.ApplyClaim(ctx, "task-1", 2)
	require.NoError(t, err)
	assert.Equal(t, db.TaskFilled, status)

	require.NoError(t, store.ReleaseClaim(ctx, "task-1"))
	task, err := store.GetTask(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, db.TaskOpen, task.Status)
}

func TestCancelSignup_ReleasesSpot(t *testing.T) {
	store := New()
	ctx := context.Background()
	require.NoError(t, store.InsertTask(ctx, testTask("task-1", 1)))

	signup, _, err := store.ClaimAsGuest(ctx, "task-1", db.GuestContact{Email: "pat@example.com", FirstName: "Pat", LastName: "Rivera"})
	require.NoError(t, err)

	require.NoError(t, store.CancelSignup(ctx, signup.ID))
	assert.ErrorIs(t, store.CancelSignup(ctx, signup.ID), db.ErrConflict)

	state, err := store.GetTaskForClaim(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, 0, state.ActiveCount)
	assert.Equal(t, db.TaskOpen, state.Task.Status)
	assert.Empty(t, state.ActiveEmails)
}

func TestMergeGuestIntoUser_MovesSignups(t *testing.T) {
	store := New()
	ctx := context.Background()
	require.NoError(t, store.InsertTask(ctx, testTask("task-1", 2)))
	require.NoError(t, store.InsertTask(ctx, testTask("task-2", 2)))

	contact := db.GuestContact{Email: "pat@example.com", FirstName: "Pat", LastName: "Rivera"}
	_, _, err := store.ClaimAsGuest(ctx, "task-1", contact)
	require.NoError(t, err)
	_, _, err = store.ClaimAsGuest(ctx, "task-2", contact)
	require.NoError(t, err)

	user := &db.User{ID: "user-1", Email: "pat@example.com", Role: db.RoleVolunteer}
	require.NoError(t, store.CreateUser(ctx, user, &db.VolunteerProfile{ID: "prof-1", UserID: "user-1"}))

	moved, err := store.MergeGuestIntoUser(ctx, "user-1", "pat@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	// Second merge is a no-op
	moved, err = store.MergeGuestIntoUser(ctx, "user-1", "pat@example.com")
	require.NoError(t, err)
	assert.Zero(t, moved)

	signups, err := store.ListSignupsByEmail(ctx, "pat@example.com")
	require.NoError(t, err)
	require.Len(t, signups, 2)
	for _, s := range signups {
		assert.Equal(t, "user-1", s.UserID)
	}
}

func TestListTasks_DateRange(t *testing.T) {
	store := New()
	ctx := context.Background()

	early := testTask("task-early", 2)
	early.Date = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	late := testTask("task-late", 2)
	late.Date = time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertTask(ctx, early))
	require.NoError(t, store.InsertTask(ctx, late))

	states, err := store.ListTasks(ctx, db.TaskFilter{
		From: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "task-late", states[0].Task.ID)
}
