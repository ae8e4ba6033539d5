// Package api exposes the claiming workflow over HTTP for the web UI.
// Handlers translate requests to service calls and map the error taxonomy
// to HTTP statuses.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/handsofstluke/pantry/internal/config"
	"github.com/handsofstluke/pantry/pkg/core/services"
	"github.com/handsofstluke/pantry/pkg/db"
)

// Server holds the HTTP API dependencies
type Server struct {
	store    db.Database
	notifier services.Notifier
	cfg      *config.Config
	logger   *zap.Logger
}

// NewServer constructs the API server
func NewServer(store db.Database, notifier services.Notifier, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{store: store, notifier: notifier, cfg: cfg, logger: logger}
}

// Router builds the chi router with all routes and middleware
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Get("/health", s.handleHealth)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.handleListOpportunities)
		r.Post("/", s.handleCreateTask)
		r.Get("/{id}", s.handleGetTask)
		r.Post("/{id}/claim", s.handleClaimTask)
		r.Post("/{id}/complete", s.handleCompleteTask)
	})

	r.Post("/signups/{id}/cancel", s.handleCancelSignup)
	r.Post("/accounts", s.handleRegisterAccount)

	// Guests look up signups by bare email, so throttle the endpoint to
	// keep it from being used to probe other volunteers' addresses
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(30, time.Minute))
		r.Get("/me/signups", s.handleMySignups)
	})
	r.Get("/sources", s.handleListSources)
	r.Get("/recipients", s.handleListRecipients)

	return r
}

// ErrorResponse is the standard JSON error envelope
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps the error taxonomy to HTTP statuses. "Task is full"
// and "already signed up" stay distinct so the UI can guide the volunteer.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, db.ErrTaskUnavailable):
		writeError(w, http.StatusConflict, "task is not available for signup")
	case errors.Is(err, db.ErrTaskFull):
		writeError(w, http.StatusConflict, "task is full")
	case errors.Is(err, db.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, "you are already signed up for this task")
	case errors.Is(err, db.ErrForbidden):
		writeError(w, http.StatusForbidden, "not allowed")
	case errors.Is(err, db.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		// Infrastructure failures stay internal; the caller gets a
		// generic message
		s.logger.Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}
