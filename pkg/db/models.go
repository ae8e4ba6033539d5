package db

import "time"

// TaskKind distinguishes pickup runs from deliveries
type TaskKind string

const (
	TaskPickup   TaskKind = "PICKUP"
	TaskDelivery TaskKind = "DELIVERY"
)

// TaskStatus is the lifecycle state of a task
type TaskStatus string

const (
	TaskOpen   TaskStatus = "OPEN"
	TaskFilled TaskStatus = "FILLED"
	TaskDone   TaskStatus = "DONE"
)

// SignupStatus is the lifecycle state of a signup
type SignupStatus string

const (
	SignupPending   SignupStatus = "PENDING"
	SignupConfirmed SignupStatus = "CONFIRMED"
	SignupCompleted SignupStatus = "COMPLETED"
	SignupCancelled SignupStatus = "CANCELLED"
)

// Role is a registered user's role
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleVolunteer Role = "VOLUNTEER"
)

// Task represents a schedulable unit of work with fixed volunteer capacity
type Task struct {
	ID          string
	Title       string
	Date        time.Time
	StartTime   string // HH:MM
	EndTime     string // HH:MM
	Kind        TaskKind
	SourceID    string // set for pickups
	RecipientID string // set for deliveries
	Capacity    int
	Status      TaskStatus
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskClaimState is a task together with its current active signup count,
// read as one consistent unit for claim validation
type TaskClaimState struct {
	Task        Task
	ActiveCount int
	// Emails of identities holding active signups, used for the
	// already-claimed check across both guest and user signups
	ActiveEmails []string
}

// Remaining returns the number of unclaimed spots
func (t *TaskClaimState) Remaining() int {
	n := t.Task.Capacity - t.ActiveCount
	if n < 0 {
		return 0
	}
	return n
}

// User is a registered account
type User struct {
	ID             string
	Email          string
	HashedPassword string
	Role           Role
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// VolunteerProfile holds contact details and preferences for a registered user
type VolunteerProfile struct {
	ID        string
	UserID    string
	FirstName string
	LastName  string
	Phone     string
	SMSOptIn  bool
	Notes     string
}

// GuestVolunteer is an anonymous volunteer identified only by email,
// created implicitly on first quick-signup
type GuestVolunteer struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Signup claims one capacity slot on one task for exactly one identity.
// Exactly one of UserID/GuestID is set.
type Signup struct {
	ID        string
	TaskID    string
	UserID    string
	GuestID   string
	Status    SignupStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Source is a pickup location (store, food bank)
type Source struct {
	ID      string
	Name    string
	Address string
	Contact string
	Notes   string
}

// Recipient is a delivery destination
type Recipient struct {
	ID      string
	Name    string
	Address string
	Contact string
	Notes   string
}

// FoodLog records the outcome of a completed task, one per task
type FoodLog struct {
	ID          string
	TaskID      string
	Pounds      float64
	Items       string
	CompletedBy string // user or guest id
	CompletedAt time.Time
}

// AuditEntry is an append-only record of a significant state change
type AuditEntry struct {
	ID        string
	Action    string
	Details   map[string]string
	CreatedAt time.Time
}

// Audit actions written by the claiming workflow
const (
	AuditGuestSignup   = "GUEST_SIGNUP"
	AuditUserSignup    = "USER_SIGNUP"
	AuditCancellation  = "SIGNUP_CANCELLED"
	AuditRegistration  = "ACCOUNT_CREATED"
	AuditTaskCompleted = "TASK_COMPLETED"
)
