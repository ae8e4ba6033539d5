package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/handsofstluke/pantry/pkg/core/services"
	"github.com/handsofstluke/pantry/pkg/db"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "org": s.cfg.OrgName})
}

// taskView is the JSON shape for a task with its live availability
type taskView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Kind        string `json:"kind"`
	SourceID    string `json:"source_id,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
	Capacity    int    `json:"capacity"`
	Status      string `json:"status"`
	Notes       string `json:"notes,omitempty"`
	ActiveCount int    `json:"active_count"`
	Remaining   int    `json:"remaining"`
}

func toTaskView(state db.TaskClaimState) taskView {
	return taskView{
		ID:          state.Task.ID,
		Title:       state.Task.Title,
		Date:        state.Task.Date.Format("2006-01-02"),
		StartTime:   state.Task.StartTime,
		EndTime:     state.Task.EndTime,
		Kind:        string(state.Task.Kind),
		SourceID:    state.Task.SourceID,
		RecipientID: state.Task.RecipientID,
		Capacity:    state.Task.Capacity,
		Status:      string(state.Task.Status),
		Notes:       state.Task.Notes,
		ActiveCount: state.ActiveCount,
		Remaining:   state.Remaining(),
	}
}

type signupView struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func toSignupView(signup db.Signup) signupView {
	return signupView{
		ID:        signup.ID,
		TaskID:    signup.TaskID,
		Status:    string(signup.Status),
		CreatedAt: signup.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTaskFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	states, err := services.ListOpportunities(r.Context(), s.store, s.logger, filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	views := make([]taskView, 0, len(states))
	for _, state := range states {
		views = append(views, toTaskView(state))
	}
	writeJSON(w, http.StatusOK, views)
}

func parseTaskFilter(r *http.Request) (db.TaskFilter, error) {
	var filter db.TaskFilter
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return filter, err
		}
		filter.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return filter, err
		}
		filter.To = t
	}
	filter.Kind = db.TaskKind(r.URL.Query().Get("kind"))
	return filter, nil
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	identity, err := s.requireAuth(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var req services.CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := services.CreateTask(r.Context(), s.store, s.logger, req, identity)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskView(db.TaskClaimState{Task: *task}))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	state, err := s.store.GetTaskForClaim(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskView(*state))
}

// guestClaimBody is the claim payload for anonymous volunteers. Authenticated
// requests send no body; the account's contact details are used instead.
type guestClaimBody struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type claimResponse struct {
	Signup     signupView `json:"signup"`
	TaskStatus string     `json:"task_status"`
}

func (s *Server) handleClaimTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	identity, err := s.authenticate(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var result *services.ClaimResult
	if identity.UserID != "" {
		result, err = services.ClaimTaskAsUser(r.Context(), s.store, s.notifier, s.logger, taskID, identity)
	} else {
		var body guestClaimBody
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		result, err = services.ClaimTask(r.Context(), s.store, s.notifier, s.logger, services.ClaimRequest{
			TaskID:    taskID,
			Email:     body.Email,
			FirstName: body.FirstName,
			LastName:  body.LastName,
			Phone:     body.Phone,
		})
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, claimResponse{
		Signup:     toSignupView(*result.Signup),
		TaskStatus: string(result.TaskStatus),
	})
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	identity, err := s.requireAuth(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var body struct {
		Pounds float64 `json:"pounds"`
		Items  string  `json:"items"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log, err := services.CompleteTask(r.Context(), s.store, s.logger, services.CompleteRequest{
		TaskID: chi.URLParam(r, "id"),
		Pounds: body.Pounds,
		Items:  body.Items,
	}, identity)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"task_id":      log.TaskID,
		"pounds":       log.Pounds,
		"items":        log.Items,
		"completed_at": log.CompletedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleCancelSignup(w http.ResponseWriter, r *http.Request) {
	identity, err := s.authenticate(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	// Guests have no credentials; they prove ownership with the email
	// they signed up under
	if identity.UserID == "" {
		var body struct {
			Email string `json:"email"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		identity = services.Identity{Email: body.Email}
	}

	if err := services.CancelSignup(r.Context(), s.store, s.notifier, s.logger, chi.URLParam(r, "id"), identity); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegisterAccount(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := services.RegisterAccount(r.Context(), s.store, s.notifier, s.logger, req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user_id":             result.UserID,
		"merged_signup_count": result.MergedSignupCount,
	})
}

func (s *Server) handleMySignups(w http.ResponseWriter, r *http.Request) {
	identity, err := s.authenticate(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	email := identity.Email
	if email == "" {
		email = r.URL.Query().Get("email")
	}
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	signups, err := s.store.ListSignupsByEmail(r.Context(), email)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	views := make([]signupView, 0, len(signups))
	for _, signup := range signups {
		views = append(views, toSignupView(signup))
	}
	writeJSON(w, http.StatusOK, views)
}

type locationView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Contact string `json:"contact,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.ListSources(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	views := make([]locationView, 0, len(sources))
	for _, src := range sources {
		views = append(views, locationView{ID: src.ID, Name: src.Name, Address: src.Address, Contact: src.Contact, Notes: src.Notes})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleListRecipients(w http.ResponseWriter, r *http.Request) {
	recipients, err := s.store.ListRecipients(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	views := make([]locationView, 0, len(recipients))
	for _, rec := range recipients {
		views = append(views, locationView{ID: rec.ID, Name: rec.Name, Address: rec.Address, Contact: rec.Contact, Notes: rec.Notes})
	}
	writeJSON(w, http.StatusOK, views)
}
