package api

import (
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/handsofstluke/pantry/pkg/core/services"
	"github.com/handsofstluke/pantry/pkg/db"
)

// authenticate resolves HTTP basic auth credentials to an Identity. It
// returns the zero Identity when no credentials are supplied, so public
// endpoints keep working for anonymous guests; bad credentials are an error.
func (s *Server) authenticate(r *http.Request) (services.Identity, error) {
	email, password, ok := r.BasicAuth()
	if !ok {
		return services.Identity{}, nil
	}

	user, err := s.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return services.Identity{}, db.ErrForbidden
		}
		return services.Identity{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return services.Identity{}, db.ErrForbidden
	}

	return services.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// requireAuth is authenticate for endpoints that make no sense anonymously.
func (s *Server) requireAuth(r *http.Request) (services.Identity, error) {
	identity, err := s.authenticate(r)
	if err != nil {
		return services.Identity{}, err
	}
	if identity.UserID == "" {
		return services.Identity{}, db.ErrForbidden
	}
	return identity, nil
}
