package store

import (
	"context"
	"time"

	"github.com/phrazzld/squash-api/internal/domain"
)

// TaskStore defines the persistence interface for compression tasks.
// It is the single source of truth for task existence and status; every
// mutation is keyed by the task's unique ID.
type TaskStore interface {
	// CreateTask inserts a new pending task for the given stored file name
	// and returns the task with its ledger-assigned ID populated.
	CreateTask(ctx context.Context, fileName string) (*domain.Task, error)

	// GetTask retrieves a task by its ID.
	// Returns ErrTaskNotFound if no task exists with the given ID.
	GetTask(ctx context.Context, id int64) (*domain.Task, error)

	// GetPendingTasks retrieves all tasks with "pending" status,
	// oldest first.
	GetPendingTasks(ctx context.Context) ([]*domain.Task, error)

	// GetProcessingTasks retrieves tasks with "processing" status.
	// If olderThan is non-zero, only tasks that have been in that state
	// longer than the specified duration are returned.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]*domain.Task, error)

	// ClaimTask atomically transitions a task from pending to processing.
	// It reports whether this caller won the claim; a false result with a
	// nil error means another worker already moved the task out of pending.
	ClaimTask(ctx context.Context, id int64) (bool, error)

	// UpdateTaskStatus updates the status of a task. The error message is
	// recorded alongside terminal failures and cleared otherwise.
	// Returns ErrTaskNotFound (wrapped in ErrUpdateFailed) if no task
	// exists with the given ID.
	UpdateTaskStatus(ctx context.Context, id int64, status domain.TaskStatus, errorMsg string) error
}
