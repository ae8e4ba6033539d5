package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest marks request errors that struct tags cannot express,
// such as a pickup task referencing a recipient
var ErrInvalidRequest = errors.New("invalid request")

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// validateStruct runs struct tag validation on a request payload
func validateStruct(req any) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// normalizeEmail lowercases and trims an email so identity matching is
// consistent across guest and user records
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
