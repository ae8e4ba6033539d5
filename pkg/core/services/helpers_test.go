package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/handsofstluke/pantry/pkg/db"
	"github.com/handsofstluke/pantry/pkg/memstore"
)

// mockNotifier records every send so tests can assert on notifications
// without a real mail client
type mockNotifier struct {
	mu      sync.Mutex
	sends   []sentEmail
	sendErr error
}

type sentEmail struct {
	recipient string
	kind      TemplateKind
	data      map[string]string
}

func (m *mockNotifier) Send(recipientEmail string, kind TemplateKind, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sends = append(m.sends, sentEmail{recipient: recipientEmail, kind: kind, data: data})
	return nil
}

func (m *mockNotifier) sent() []sentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentEmail(nil), m.sends...)
}

func insertOpenTask(t *testing.T, store *memstore.Store, capacity int) *db.Task {
	t.Helper()
	task := &db.Task{
		ID:        uuid.New().String(),
		Title:     "Saturday pickup at FreshMart",
		Date:      time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		StartTime: "09:00",
		EndTime:   "11:00",
		Kind:      db.TaskPickup,
		SourceID:  "src-1",
		Capacity:  capacity,
		Status:    db.TaskOpen,
	}
	require.NoError(t, store.InsertTask(context.Background(), task))
	return task
}

func guestClaim(taskID, email string) ClaimRequest {
	return ClaimRequest{
		TaskID:    taskID,
		Email:     email,
		FirstName: "Pat",
		LastName:  "Rivera",
		Phone:     "555-0100",
	}
}
