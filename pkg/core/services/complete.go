package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/handsofstluke/pantry/pkg/db"
)

// CompleteRequest records the outcome of a finished task
type CompleteRequest struct {
	TaskID string  `json:"task_id" validate:"required"`
	Pounds float64 `json:"pounds" validate:"required,gt=0"`
	Items  string  `json:"items" validate:"omitempty"`
}

// CompleteStore defines the database operations needed to complete a task
type CompleteStore interface {
	GetTask(ctx context.Context, id string) (*db.Task, error)
	CompleteTask(ctx context.Context, taskID string, log *db.FoodLog) error
}

// CompleteTask records the food log for a task and flips it to DONE. Only
// admins complete tasks. One food log per task: a second completion fails
// with ErrConflict.
func CompleteTask(
	ctx context.Context,
	store CompleteStore,
	logger *zap.Logger,
	req CompleteRequest,
	requester Identity,
) (*db.FoodLog, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !requester.IsAdmin() {
		return nil, db.ErrForbidden
	}

	logger.Info("Completing task",
		zap.String("task_id", req.TaskID),
		zap.Float64("pounds", req.Pounds))

	if _, err := store.GetTask(ctx, req.TaskID); err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	log := &db.FoodLog{
		ID:          uuid.New().String(),
		TaskID:      req.TaskID,
		Pounds:      req.Pounds,
		Items:       req.Items,
		CompletedBy: requester.UserID,
		CompletedAt: time.Now().UTC(),
	}
	if err := store.CompleteTask(ctx, req.TaskID, log); err != nil {
		return nil, err
	}

	logger.Info("Task completed", zap.String("task_id", req.TaskID))
	return log, nil
}
