package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/handsofstluke/pantry/internal/config"
	"github.com/handsofstluke/pantry/pkg/core/services"
	"github.com/handsofstluke/pantry/pkg/db"
	"github.com/handsofstluke/pantry/pkg/memstore"
)

func newTestServer(t *testing.T) (*Server, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	cfg := &config.Config{OrgName: "Hands of St. Luke Pantry", HTTPAddr: ":0"}
	return NewServer(store, nil, cfg, zap.NewNop()), store
}

func seedTask(t *testing.T, store *memstore.Store, capacity int) *db.Task {
	t.Helper()
	task := &db.Task{
		ID:        uuid.New().String(),
		Title:     "Saturday pickup",
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

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func withBasicAuth(email, password string) func(*http.Request) {
	return func(r *http.Request) {
		r.SetBasicAuth(email, password)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	rec := doJSON(t, server.Router(), http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hands of St. Luke Pantry")
}

func TestGuestClaimFlow(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()
	task := seedTask(t, store, 1)

	rec := doJSON(t, router, http.MethodPost, "/tasks/"+task.ID+"/claim", map[string]string{
		"email":      "pat@example.com",
		"first_name": "Pat",
		"last_name":  "Rivera",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Signup struct {
			ID     string `json:"id"`
			TaskID string `json:"task_id"`
			Status string `json:"status"`
		} `json:"signup"`
		TaskStatus string `json:"task_status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, task.ID, resp.Signup.TaskID)
	assert.Equal(t, "CONFIRMED", resp.Signup.Status)
	assert.Equal(t, "FILLED", resp.TaskStatus)

	// The filled task no longer shows as an opportunity
	rec = doJSON(t, router, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	// A second claimant is turned away with a conflict
	rec = doJSON(t, router, http.MethodPost, "/tasks/"+task.ID+"/claim", map[string]string{
		"email":      "other@example.com",
		"first_name": "Ola",
		"last_name":  "Dunn",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestClaimUnknownTask(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server.Router(), http.MethodPost, "/tasks/nope/claim", map[string]string{
		"email":      "pat@example.com",
		"first_name": "Pat",
		"last_name":  "Rivera",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClaimValidation(t *testing.T) {
	server, store := newTestServer(t)
	task := seedTask(t, store, 2)

	rec := doJSON(t, server.Router(), http.MethodPost, "/tasks/"+task.ID+"/claim", map[string]string{
		"email":      "not-an-email",
		"first_name": "Pat",
		"last_name":  "Rivera",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDuplicateClaimRejected(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()
	task := seedTask(t, store, 3)

	body := map[string]string{"email": "pat@example.com", "first_name": "Pat", "last_name": "Rivera"}
	rec := doJSON(t, router, http.MethodPost, "/tasks/"+task.ID+"/claim", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/tasks/"+task.ID+"/claim", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already signed up")
}

func TestRegisterAndAuthenticatedClaim(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()
	task := seedTask(t, store, 2)

	rec := doJSON(t, router, http.MethodPost, "/accounts", map[string]string{
		"email":      "sam@example.com",
		"password":   "correct-horse",
		"first_name": "Sam",
		"last_name":  "Okafor",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Claim with the new credentials, no body needed
	rec = doJSON(t, router, http.MethodPost, "/tasks/"+task.ID+"/claim", nil,
		withBasicAuth("sam@example.com", "correct-horse"))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Wrong password is rejected
	rec = doJSON(t, router, http.MethodPost, "/tasks/"+task.ID+"/claim", nil,
		withBasicAuth("sam@example.com", "wrong"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegisterMergesGuestSignups(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()
	task := seedTask(t, store, 2)

	rec := doJSON(t, router, http.MethodPost, "/tasks/"+task.ID+"/claim", map[string]string{
		"email":      "pat@example.com",
		"first_name": "Pat",
		"last_name":  "Rivera",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/accounts", map[string]string{
		"email":      "pat@example.com",
		"password":   "correct-horse",
		"first_name": "Pat",
		"last_name":  "Rivera",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		UserID            string `json:"user_id"`
		MergedSignupCount int    `json:"merged_signup_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.MergedSignupCount)

	// The merged signup shows up under the account
	rec = doJSON(t, router, http.MethodGet, "/me/signups", nil,
		withBasicAuth("pat@example.com", "correct-horse"))
	require.Equal(t, http.StatusOK, rec.Code)

	var signups []signupView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signups))
	require.Len(t, signups, 1)
	assert.Equal(t, task.ID, signups[0].TaskID)
}

func TestSignupLookupRateLimited(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	// All httptest requests share one RemoteAddr, so they count against
	// the same per-IP bucket
	for i := 0; i < 30; i++ {
		rec := doJSON(t, router, http.MethodGet, "/me/signups?email=pat@example.com", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/me/signups?email=pat@example.com", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestGuestCancelFlow(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()
	task := seedTask(t, store, 1)

	rec := doJSON(t, router, http.MethodPost, "/tasks/"+task.ID+"/claim", map[string]string{
		"email":      "pat@example.com",
		"first_name": "Pat",
		"last_name":  "Rivera",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var claim claimResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claim))

	// A stranger cannot cancel it
	rec = doJSON(t, router, http.MethodPost, "/signups/"+claim.Signup.ID+"/cancel", map[string]string{
		"email": "stranger@example.com",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/signups/"+claim.Signup.ID+"/cancel", map[string]string{
		"email": "pat@example.com",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The task is claimable again
	rec = doJSON(t, router, http.MethodGet, "/tasks/"+task.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view taskView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "OPEN", view.Status)
	assert.Equal(t, 1, view.Remaining)
}

func TestCompleteTaskRequiresAdmin(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()
	task := seedTask(t, store, 1)

	rec := doJSON(t, router, http.MethodPost, "/accounts", map[string]string{
		"email":      "sam@example.com",
		"password":   "correct-horse",
		"first_name": "Sam",
		"last_name":  "Okafor",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/tasks/"+task.ID+"/complete", map[string]any{
		"pounds": 50.0,
	}, withBasicAuth("sam@example.com", "correct-horse"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCompleteTaskAsAdmin(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()
	task := seedTask(t, store, 1)

	registerAdmin(t, store, "admin@example.com", "correct-horse")

	rec := doJSON(t, router, http.MethodPost, "/tasks/"+task.ID+"/complete", map[string]any{
		"pounds": 82.0,
		"items":  "produce",
	}, withBasicAuth("admin@example.com", "correct-horse"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "82")

	// Completing twice conflicts
	rec = doJSON(t, router, http.MethodPost, "/tasks/"+task.ID+"/complete", map[string]any{
		"pounds": 82.0,
	}, withBasicAuth("admin@example.com", "correct-horse"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListSourcesAndRecipients(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()
	ctx := context.Background()

	require.NoError(t, store.InsertSource(ctx, &db.Source{ID: "src-1", Name: "FreshMart Grocery"}))
	require.NoError(t, store.InsertRecipient(ctx, &db.Recipient{ID: "rec-1", Name: "St. Luke Shelter"}))

	rec := doJSON(t, router, http.MethodGet, "/sources", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "FreshMart Grocery")

	rec = doJSON(t, router, http.MethodGet, "/recipients", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "St. Luke Shelter")
}

func TestCreateTaskEndpoint(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()

	registerAdmin(t, store, "admin@example.com", "correct-horse")

	rec := doJSON(t, router, http.MethodPost, "/tasks", map[string]any{
		"title":      "Morning pickup",
		"date":       "2026-09-12",
		"start_time": "09:00",
		"end_time":   "11:00",
		"kind":       "PICKUP",
		"source_id":  "src-1",
		"capacity":   2,
	}, withBasicAuth("admin@example.com", "correct-horse"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var view taskView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "Morning pickup", view.Title)
	assert.Equal(t, "OPEN", view.Status)

	// Anonymous creation is forbidden
	rec = doJSON(t, router, http.MethodPost, "/tasks", map[string]any{
		"title": "Sneaky task",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTaskDateFilters(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()

	early := seedTask(t, store, 2)
	late := seedTask(t, store, 2)
	lateCopy := *late
	lateCopy.Date = time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertTask(context.Background(), &lateCopy))

	rec := doJSON(t, router, http.MethodGet, "/tasks?from=2026-09-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var views []taskView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, late.ID, views[0].ID)
	assert.NotEqual(t, early.ID, views[0].ID)

	rec = doJSON(t, router, http.MethodGet, "/tasks?from=banana", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// registerAdmin creates a user directly in the store with the ADMIN role,
// since the public registration endpoint only creates volunteers
func registerAdmin(t *testing.T, store *memstore.Store, email, password string) {
	t.Helper()
	logger := zap.NewNop()
	result, err := services.RegisterAccount(context.Background(), store, nil, logger, services.RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: "Ada",
		LastName:  "Admin",
	})
	require.NoError(t, err)

	require.NoError(t, store.SetUserRole(context.Background(), result.UserID, db.RoleAdmin))
}
