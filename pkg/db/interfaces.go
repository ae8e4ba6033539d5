package db

import (
	"context"
	"time"
)

// GuestContact is the contact info supplied with a guest quick-signup
type GuestContact struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// TaskFilter narrows task listings. Zero values are ignored.
type TaskFilter struct {
	From time.Time
	To   time.Time
	Kind TaskKind
}

// TaskStore is the task registry: source of truth for task existence,
// capacity and status
type TaskStore interface {
	InsertTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	// GetTaskForClaim returns the task with its active (non-cancelled)
	// signup count and the emails holding those signups
	GetTaskForClaim(ctx context.Context, id string) (*TaskClaimState, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]TaskClaimState, error)
	// ApplyClaim recomputes status after a claim: FILLED when the active
	// count reaches capacity, otherwise unchanged at OPEN. Never writes DONE.
	ApplyClaim(ctx context.Context, taskID string, newActiveCount int) (TaskStatus, error)
	// ReleaseClaim recomputes status after a cancellation, reverting
	// FILLED to OPEN if a slot opened and the task is not DONE
	ReleaseClaim(ctx context.Context, taskID string) error
}

// IdentityStore resolves and deduplicates volunteer identities
type IdentityStore interface {
	// ResolveGuest finds the guest volunteer for the email, refreshing
	// name and phone with the supplied values, or creates one. Race-safe:
	// two concurrent first-time resolutions for one email yield one row.
	ResolveGuest(ctx context.Context, contact GuestContact) (*GuestVolunteer, error)
	GetGuestByEmail(ctx context.Context, email string) (*GuestVolunteer, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, user *User, profile *VolunteerProfile) error
	SetUserRole(ctx context.Context, userID string, role Role) error
	// MergeGuestIntoUser re-points all signups of the guest sharing the
	// user's email to the user and deletes the guest record, returning the
	// number of signups migrated. No-op returning 0 when no guest exists.
	MergeGuestIntoUser(ctx context.Context, userID, email string) (int, error)
}

// SignupStore handles the claim records themselves. Claim and cancel
// operations are atomic: the capacity check, signup write, audit entry and
// task status update commit as one unit.
type SignupStore interface {
	ClaimAsGuest(ctx context.Context, taskID string, contact GuestContact) (*Signup, TaskStatus, error)
	ClaimAsUser(ctx context.Context, taskID, userID string) (*Signup, TaskStatus, error)
	GetSignup(ctx context.Context, id string) (*Signup, error)
	ListSignupsByEmail(ctx context.Context, email string) ([]Signup, error)
	CancelSignup(ctx context.Context, signupID string) error
}

// LocationStore holds pickup sources and delivery recipients
type LocationStore interface {
	InsertSource(ctx context.Context, s *Source) error
	ListSources(ctx context.Context) ([]Source, error)
	InsertRecipient(ctx context.Context, r *Recipient) error
	ListRecipients(ctx context.Context) ([]Recipient, error)
}

// CompletionStore records task outcomes
type CompletionStore interface {
	// CompleteTask inserts the food log, marks active signups COMPLETED
	// and flips the task to DONE as one unit. A second completion for the
	// same task fails with ErrConflict.
	CompleteTask(ctx context.Context, taskID string, log *FoodLog) error
}

// AuditStore is append-only; the core never reads audit entries back
type AuditStore interface {
	InsertAudit(ctx context.Context, entry *AuditEntry) error
}

// Database is the full store contract. Both postgres.DB and
// memstore.Store implement it.
type Database interface {
	TaskStore
	IdentityStore
	SignupStore
	LocationStore
	CompletionStore
	AuditStore
}
