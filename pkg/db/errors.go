package db

import "errors"

// Sentinel errors returned by store implementations. Callers match them with
// errors.Is; the API layer maps them to HTTP statuses.
var (
	// ErrNotFound is returned when a referenced task or signup does not exist
	ErrNotFound = errors.New("not found")

	// ErrTaskUnavailable is returned when a task exists but is not OPEN
	ErrTaskUnavailable = errors.New("task is not available for signup")

	// ErrTaskFull is returned when the capacity re-check at commit time
	// found no slot remaining
	ErrTaskFull = errors.New("task is full")

	// ErrAlreadyClaimed is returned when the identity already holds an
	// active signup on the task
	ErrAlreadyClaimed = errors.New("already signed up for this task")

	// ErrForbidden is returned when the requester lacks rights to act on
	// the signup
	ErrForbidden = errors.New("not allowed")

	// ErrConflict is returned when an identity or uniqueness invariant
	// would be violated (duplicate account email, second food log, or a
	// user and guest coexisting for the same email at merge time)
	ErrConflict = errors.New("conflicting record exists")
)
