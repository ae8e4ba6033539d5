package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/handsofstluke/pantry/internal/config"
	"github.com/handsofstluke/pantry/pkg/db"
)

// CreateTaskRequest publishes a single task
type CreateTaskRequest struct {
	Title       string      `json:"title" validate:"required"`
	Date        string      `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string      `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string      `json:"end_time" validate:"required,datetime=15:04"`
	Kind        db.TaskKind `json:"kind" validate:"required,oneof=PICKUP DELIVERY"`
	SourceID    string      `json:"source_id" validate:"omitempty"`
	RecipientID string      `json:"recipient_id" validate:"omitempty"`
	Capacity    int         `json:"capacity" validate:"required,min=1"`
	Notes       string      `json:"notes" validate:"omitempty"`
}

// TaskStore defines the database operations needed to publish tasks
type TaskStore interface {
	InsertTask(ctx context.Context, task *db.Task) error
	ListTasks(ctx context.Context, filter db.TaskFilter) ([]db.TaskClaimState, error)
	ListSources(ctx context.Context) ([]db.Source, error)
	ListRecipients(ctx context.Context) ([]db.Recipient, error)
}

// CreateTask publishes a single task. Admin only. Pickups reference a source
// location, deliveries a recipient.
func CreateTask(
	ctx context.Context,
	store TaskStore,
	logger *zap.Logger,
	req CreateTaskRequest,
	requester Identity,
) (*db.Task, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !requester.IsAdmin() {
		return nil, db.ErrForbidden
	}
	if req.Kind == db.TaskPickup && req.RecipientID != "" {
		return nil, fmt.Errorf("pickup tasks reference a source, not a recipient: %w", ErrInvalidRequest)
	}
	if req.Kind == db.TaskDelivery && req.SourceID != "" {
		return nil, fmt.Errorf("delivery tasks reference a recipient, not a source: %w", ErrInvalidRequest)
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to parse task date: %w", err)
	}

	now := time.Now().UTC()
	task := &db.Task{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Date:        date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Kind:        req.Kind,
		SourceID:    req.SourceID,
		RecipientID: req.RecipientID,
		Capacity:    req.Capacity,
		Status:      db.TaskOpen,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	logger.Info("Creating task",
		zap.String("id", task.ID),
		zap.String("title", task.Title),
		zap.String("date", req.Date),
		zap.Int("capacity", task.Capacity))

	if err := store.InsertTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// GenerateWeek stamps out one week of tasks from the configured recurring
// templates, starting at weekStart. Template locations are matched by name
// against the sources or recipients table. Returns the created tasks.
func GenerateWeek(
	ctx context.Context,
	store TaskStore,
	cfg *config.Config,
	logger *zap.Logger,
	weekStart time.Time,
	requester Identity,
) ([]db.Task, error) {
	if !requester.IsAdmin() {
		return nil, db.ErrForbidden
	}
	if len(cfg.TaskTemplates) == 0 {
		return nil, fmt.Errorf("no task templates configured: %w", ErrInvalidRequest)
	}

	weekStart = weekStart.Truncate(24 * time.Hour)
	weekEnd := weekStart.AddDate(0, 0, 7)

	logger.Info("Generating weekly tasks",
		zap.Time("week_start", weekStart),
		zap.Int("templates", len(cfg.TaskTemplates)))

	sourceIDs, recipientIDs, err := locationIndex(ctx, store)
	if err != nil {
		return nil, err
	}

	var created []db.Task
	for i, tmpl := range cfg.TaskTemplates {
		rule, err := rrule.StrToRRule(tmpl.RRule)
		if err != nil {
			return nil, fmt.Errorf("invalid rrule in taskTemplates[%d]: %w", i, err)
		}
		rule.DTStart(weekStart)

		dates := rule.Between(weekStart, weekEnd, true)
		logger.Debug("Template occurrences",
			zap.String("title", tmpl.Title),
			zap.Int("count", len(dates)))

		for _, date := range dates {
			if !date.Before(weekEnd) {
				continue
			}
			task := db.Task{
				ID:        uuid.New().String(),
				Title:     tmpl.Title,
				Date:      date,
				StartTime: tmpl.StartTime,
				EndTime:   tmpl.EndTime,
				Kind:      db.TaskKind(tmpl.Kind),
				Capacity:  tmpl.Capacity,
				Status:    db.TaskOpen,
				Notes:     tmpl.Notes,
				CreatedAt: time.Now().UTC(),
				UpdatedAt: time.Now().UTC(),
			}
			switch task.Kind {
			case db.TaskPickup:
				task.SourceID = sourceIDs[tmpl.Location]
			case db.TaskDelivery:
				task.RecipientID = recipientIDs[tmpl.Location]
			}
			if err := store.InsertTask(ctx, &task); err != nil {
				return nil, fmt.Errorf("failed to insert generated task: %w", err)
			}
			created = append(created, task)
		}
	}

	logger.Info("Weekly tasks generated", zap.Int("count", len(created)))
	return created, nil
}

// ListOpportunities returns open tasks with at least one unclaimed spot,
// matching the filter
func ListOpportunities(ctx context.Context, store TaskStore, logger *zap.Logger, filter db.TaskFilter) ([]db.TaskClaimState, error) {
	states, err := store.ListTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	var open []db.TaskClaimState
	for _, state := range states {
		if state.Task.Status == db.TaskOpen && state.Remaining() > 0 {
			open = append(open, state)
		}
	}

	logger.Debug("Listed opportunities",
		zap.Int("total", len(states)),
		zap.Int("open", len(open)))
	return open, nil
}

func locationIndex(ctx context.Context, store TaskStore) (map[string]string, map[string]string, error) {
	sources, err := store.ListSources(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list sources: %w", err)
	}
	recipients, err := store.ListRecipients(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list recipients: %w", err)
	}

	sourceIDs := make(map[string]string, len(sources))
	for _, s := range sources {
		sourceIDs[s.Name] = s.ID
	}
	recipientIDs := make(map[string]string, len(recipients))
	for _, r := range recipients {
		recipientIDs[r.Name] = r.ID
	}
	return sourceIDs, recipientIDs, nil
}
