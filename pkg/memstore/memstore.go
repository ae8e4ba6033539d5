// Package memstore implements db.Database in memory. It backs tests and
// local development without a PostgreSQL instance; a single mutex gives the
// claim path the same one-at-a-time semantics the postgres implementation
// gets from row locks.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/handsofstluke/pantry/pkg/db"
)

var _ db.Database = (*Store)(nil)

// Store is an in-memory db.Database
type Store struct {
	mu       sync.Mutex
	tasks    map[string]*db.Task
	users    map[string]*db.User
	profiles map[string]*db.VolunteerProfile // keyed by user id
	guests   map[string]*db.GuestVolunteer
	signups  map[string]*db.Signup
	sources  map[string]*db.Source
	recips   map[string]*db.Recipient
	foodLogs map[string]*db.FoodLog // keyed by task id
	audit    []db.AuditEntry
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		tasks:    make(map[string]*db.Task),
		users:    make(map[string]*db.User),
		profiles: make(map[string]*db.VolunteerProfile),
		guests:   make(map[string]*db.GuestVolunteer),
		signups:  make(map[string]*db.Signup),
		sources:  make(map[string]*db.Source),
		recips:   make(map[string]*db.Recipient),
		foodLogs: make(map[string]*db.FoodLog),
	}
}

// Task registry.

func (s *Store) InsertTask(ctx context.Context, task *db.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*db.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *task
	return &copied, nil
}

func (s *Store) GetTaskForClaim(ctx context.Context, id string) (*db.TaskClaimState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskClaimState(id)
}

func (s *Store) ListTasks(ctx context.Context, filter db.TaskFilter) ([]db.TaskClaimState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var states []db.TaskClaimState
	for id, task := range s.tasks {
		if !filter.From.IsZero() && task.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && task.Date.After(filter.To) {
			continue
		}
		if filter.Kind != "" && task.Kind != filter.Kind {
			continue
		}
		state, err := s.taskClaimState(id)
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}

	sort.Slice(states, func(i, j int) bool {
		a, b := states[i].Task, states[j].Task
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.StartTime < b.StartTime
	})
	return states, nil
}

func (s *Store) ApplyClaim(ctx context.Context, taskID string, newActiveCount int) (db.TaskStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyClaimLocked(taskID, newActiveCount)
}

func (s *Store) ReleaseClaim(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseClaimLocked(taskID)
}

func (s *Store) applyClaimLocked(taskID string, newActiveCount int) (db.TaskStatus, error) {
	task, ok := s.tasks[taskID]
	if !ok {
		return "", db.ErrNotFound
	}
	if task.Status != db.TaskDone {
		if newActiveCount >= task.Capacity {
			task.Status = db.TaskFilled
		} else {
			task.Status = db.TaskOpen
		}
		task.UpdatedAt = time.Now().UTC()
	}
	return task.Status, nil
}

func (s *Store) releaseClaimLocked(taskID string) error {
	task, ok := s.tasks[taskID]
	if !ok {
		return db.ErrNotFound
	}
	if task.Status == db.TaskDone {
		return nil
	}
	if s.activeCountLocked(taskID) >= task.Capacity {
		task.Status = db.TaskFilled
	} else {
		task.Status = db.TaskOpen
	}
	task.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) taskClaimState(id string) (*db.TaskClaimState, error) {
	task, ok := s.tasks[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	state := &db.TaskClaimState{Task: *task}
	for _, signup := range s.signups {
		if signup.TaskID == id && signup.Status != db.SignupCancelled {
			state.ActiveCount++
			state.ActiveEmails = append(state.ActiveEmails, s.signupEmailLocked(signup))
		}
	}
	return state, nil
}

func (s *Store) activeCountLocked(taskID string) int {
	n := 0
	for _, signup := range s.signups {
		if signup.TaskID == taskID && signup.Status != db.SignupCancelled {
			n++
		}
	}
	return n
}

func (s *Store) signupEmailLocked(signup *db.Signup) string {
	if signup.UserID != "" {
		if user, ok := s.users[signup.UserID]; ok {
			return user.Email
		}
	}
	if signup.GuestID != "" {
		if guest, ok := s.guests[signup.GuestID]; ok {
			return guest.Email
		}
	}
	return ""
}

// Identity resolution.

func (s *Store) ResolveGuest(ctx context.Context, contact db.GuestContact) (*db.GuestVolunteer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveGuestLocked(contact), nil
}

func (s *Store) resolveGuestLocked(contact db.GuestContact) *db.GuestVolunteer {
	for _, guest := range s.guests {
		if strings.EqualFold(guest.Email, contact.Email) {
			guest.FirstName = contact.FirstName
			guest.LastName = contact.LastName
			guest.Phone = contact.Phone
			guest.UpdatedAt = time.Now().UTC()
			copied := *guest
			return &copied
		}
	}
	guest := &db.GuestVolunteer{
		ID:        uuid.New().String(),
		Email:     contact.Email,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		Phone:     contact.Phone,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.guests[guest.ID] = guest
	copied := *guest
	return &copied
}

func (s *Store) GetGuestByEmail(ctx context.Context, email string) (*db.GuestVolunteer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, guest := range s.guests {
		if strings.EqualFold(guest.Email, email) {
			copied := *guest
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *Store) GetUser(ctx context.Context, id string) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *Store) CreateUser(ctx context.Context, user *db.User, profile *db.VolunteerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return db.ErrConflict
		}
	}
	copiedUser := *user
	copiedProfile := *profile
	s.users[user.ID] = &copiedUser
	s.profiles[user.ID] = &copiedProfile
	return nil
}

func (s *Store) SetUserRole(ctx context.Context, userID string, role db.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) MergeGuestIntoUser(ctx context.Context, userID, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var guest *db.GuestVolunteer
	for _, g := range s.guests {
		if strings.EqualFold(g.Email, email) {
			guest = g
			break
		}
	}
	if guest == nil {
		return 0, nil
	}

	migrated := 0
	for _, signup := range s.signups {
		if signup.GuestID == guest.ID {
			signup.GuestID = ""
			signup.UserID = userID
			signup.UpdatedAt = time.Now().UTC()
			migrated++
		}
	}
	delete(s.guests, guest.ID)
	return migrated, nil
}

// Claiming.

func (s *Store) ClaimAsGuest(ctx context.Context, taskID string, contact db.GuestContact) (*db.Signup, db.TaskStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimLocked(taskID, contact.Email, func() (string, string, string) {
		guest := s.resolveGuestLocked(contact)
		return "", guest.ID, db.AuditGuestSignup
	})
}

func (s *Store) ClaimAsUser(ctx context.Context, taskID, userID string) (*db.Signup, db.TaskStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, "", db.ErrNotFound
	}
	return s.claimLocked(taskID, user.Email, func() (string, string, string) {
		return userID, "", db.AuditUserSignup
	})
}

// claimLocked mirrors the postgres claim transaction: the mutex plays the
// part of the task row lock, so the capacity check and the writes are one
// atomic step.
func (s *Store) claimLocked(taskID, email string, resolve func() (userID, guestID, auditAction string)) (*db.Signup, db.TaskStatus, error) {
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, "", db.ErrNotFound
	}
	if task.Status != db.TaskOpen {
		return nil, "", db.ErrTaskUnavailable
	}

	for _, signup := range s.signups {
		if signup.TaskID == taskID && signup.Status != db.SignupCancelled &&
			strings.EqualFold(s.signupEmailLocked(signup), email) {
			return nil, "", db.ErrAlreadyClaimed
		}
	}

	active := s.activeCountLocked(taskID)
	if active >= task.Capacity {
		return nil, "", db.ErrTaskFull
	}

	userID, guestID, auditAction := resolve()
	signup := &db.Signup{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		UserID:    userID,
		GuestID:   guestID,
		Status:    db.SignupConfirmed,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.signups[signup.ID] = signup

	newStatus, err := s.applyClaimLocked(taskID, active+1)
	if err != nil {
		return nil, "", err
	}

	s.audit = append(s.audit, db.AuditEntry{
		ID:     uuid.New().String(),
		Action: auditAction,
		Details: map[string]string{
			"task_id":    taskID,
			"task_title": task.Title,
			"signup_id":  signup.ID,
			"email":      email,
		},
		CreatedAt: time.Now().UTC(),
	})

	copied := *signup
	return &copied, newStatus, nil
}

func (s *Store) GetSignup(ctx context.Context, id string) (*db.Signup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	signup, ok := s.signups[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *signup
	return &copied, nil
}

func (s *Store) ListSignupsByEmail(ctx context.Context, email string) ([]db.Signup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var signups []db.Signup
	for _, signup := range s.signups {
		if strings.EqualFold(s.signupEmailLocked(signup), email) {
			signups = append(signups, *signup)
		}
	}
	sort.Slice(signups, func(i, j int) bool {
		return signups[i].CreatedAt.Before(signups[j].CreatedAt)
	})
	return signups, nil
}

func (s *Store) CancelSignup(ctx context.Context, signupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	signup, ok := s.signups[signupID]
	if !ok {
		return db.ErrNotFound
	}
	if signup.Status == db.SignupCancelled {
		return db.ErrConflict
	}

	signup.Status = db.SignupCancelled
	signup.UpdatedAt = time.Now().UTC()

	if err := s.releaseClaimLocked(signup.TaskID); err != nil {
		return err
	}

	s.audit = append(s.audit, db.AuditEntry{
		ID:     uuid.New().String(),
		Action: db.AuditCancellation,
		Details: map[string]string{
			"task_id":   signup.TaskID,
			"signup_id": signupID,
		},
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// Locations.

func (s *Store) InsertSource(ctx context.Context, src *db.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *src
	s.sources[src.ID] = &copied
	return nil
}

func (s *Store) ListSources(ctx context.Context) ([]db.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sources []db.Source
	for _, src := range s.sources {
		sources = append(sources, *src)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	return sources, nil
}

func (s *Store) InsertRecipient(ctx context.Context, r *db.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *r
	s.recips[r.ID] = &copied
	return nil
}

func (s *Store) ListRecipients(ctx context.Context) ([]db.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recipients []db.Recipient
	for _, r := range s.recips {
		recipients = append(recipients, *r)
	}
	sort.Slice(recipients, func(i, j int) bool { return recipients[i].Name < recipients[j].Name })
	return recipients, nil
}

// Completion.

func (s *Store) CompleteTask(ctx context.Context, taskID string, log *db.FoodLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return db.ErrNotFound
	}
	if task.Status == db.TaskDone {
		return db.ErrConflict
	}
	if _, exists := s.foodLogs[taskID]; exists {
		return db.ErrConflict
	}

	copied := *log
	s.foodLogs[taskID] = &copied

	for _, signup := range s.signups {
		if signup.TaskID == taskID &&
			(signup.Status == db.SignupPending || signup.Status == db.SignupConfirmed) {
			signup.Status = db.SignupCompleted
			signup.UpdatedAt = time.Now().UTC()
		}
	}

	task.Status = db.TaskDone
	task.UpdatedAt = time.Now().UTC()

	s.audit = append(s.audit, db.AuditEntry{
		ID:     uuid.New().String(),
		Action: db.AuditTaskCompleted,
		Details: map[string]string{
			"task_id":      taskID,
			"food_log_id":  log.ID,
			"completed_by": log.CompletedBy,
		},
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// Audit.

func (s *Store) InsertAudit(ctx context.Context, entry *db.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, *entry)
	return nil
}

// AuditEntries returns a copy of the audit log, oldest first. Test helper;
// the core itself never reads audit entries.
func (s *Store) AuditEntries() []db.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]db.AuditEntry, len(s.audit))
	copy(entries, s.audit)
	return entries
}
