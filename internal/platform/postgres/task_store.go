package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/squash-api/internal/domain"
	"github.com/phrazzld/squash-api/internal/platform/logger"
	"github.com/phrazzld/squash-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL
type PostgresTaskStore struct {
	db store.DBTX
}

// Interface conformance check.
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgresTaskStore
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{
		db: db,
	}
}

// CreateTask inserts a new pending task row and returns the task with its
// assigned ID.
func (s *PostgresTaskStore) CreateTask(
	ctx context.Context,
	fileName string,
) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	task, err := domain.NewTask(fileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO compression_tasks (file_name, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err = s.db.QueryRowContext(ctx, query,
		task.FileName,
		task.Status,
		task.ErrorMessage,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID)

	if err != nil {
		log.Error("failed to save task",
			"file_name", fileName,
			"error", err)
		return nil, store.NewStoreError("task", "create", "failed to save task", err)
	}

	return task, nil
}

// GetTask retrieves a task by its ID.
func (s *PostgresTaskStore) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, file_name, status, error_message, created_at, updated_at
		FROM compression_tasks
		WHERE id = $1
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			"task_id", id,
			"error", err)
		return nil, store.NewStoreError("task", "get", "failed to get task", err)
	}

	return task, nil
}

// GetPendingTasks retrieves all tasks with "pending" status
func (s *PostgresTaskStore) GetPendingTasks(ctx context.Context) ([]*domain.Task, error) {
	return s.getTasksByStatus(ctx, domain.TaskStatusPending, 0)
}

// GetProcessingTasks retrieves tasks with "processing" status
func (s *PostgresTaskStore) GetProcessingTasks(
	ctx context.Context,
	olderThan time.Duration,
) ([]*domain.Task, error) {
	return s.getTasksByStatus(ctx, domain.TaskStatusProcessing, olderThan)
}

// ClaimTask attempts the pending -> processing transition for the given
// task. The conditional WHERE clause makes the update atomic: of two
// workers racing on the same row, exactly one observes a row count of 1.
func (s *PostgresTaskStore) ClaimTask(ctx context.Context, id int64) (bool, error) {
	log := logger.FromContext(ctx)

	query := `
		UPDATE compression_tasks
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.TaskStatusProcessing,
		time.Now().UTC(),
		id,
		domain.TaskStatusPending,
	)
	if err != nil {
		log.Error("failed to claim task",
			"task_id", id,
			"error", err)
		return false, store.NewStoreError("task", "claim", "failed to execute claim", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, store.NewStoreError("task", "claim", "failed to get rows affected", err)
	}

	return rowsAffected == 1, nil
}

// UpdateTaskStatus updates the status of a task in the database. The
// target status must be one of the known values; transition ordering is
// enforced upstream, pending -> processing by the conditional claim and
// the backward sweep edge by the dispatcher.
func (s *PostgresTaskStore) UpdateTaskStatus(
	ctx context.Context,
	id int64,
	status domain.TaskStatus,
	errorMsg string,
) error {
	log := logger.FromContext(ctx)

	if err := status.Validate(); err != nil {
		return fmt.Errorf("%w: %q", err, status)
	}

	query := `
		UPDATE compression_tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		status,
		errorMsg,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		log.Error("failed to update task status",
			"task_id", id,
			"status", status,
			"error", err)
		return store.NewStoreError("task", "update", "failed to execute update", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			"task_id", id,
			"error", err)
		return store.NewStoreError("task", "update", "failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		log.Warn("no task found with ID to update status",
			"task_id", id)
		return fmt.Errorf("%w: %w", store.ErrUpdateFailed, store.ErrTaskNotFound)
	}

	return nil
}

// getTasksByStatus is a helper method to get tasks by status with optional age filter
func (s *PostgresTaskStore) getTasksByStatus(
	ctx context.Context,
	status domain.TaskStatus,
	olderThan time.Duration,
) ([]*domain.Task, error) {
	log := logger.FromContext(ctx)

	var query string
	var args []any

	if olderThan > 0 {
		query = `
			SELECT id, file_name, status, error_message, created_at, updated_at
			FROM compression_tasks
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = []any{status, time.Now().UTC().Add(-olderThan)}
	} else {
		query = `
			SELECT id, file_name, status, error_message, created_at, updated_at
			FROM compression_tasks
			WHERE status = $1
			ORDER BY created_at ASC
		`
		args = []any{status}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks by status",
			"status", status,
			"error", err)
		return nil, store.NewStoreError("task", "list", "failed to query tasks by status", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row",
				"status", status,
				"error", err)
			return nil, store.NewStoreError("task", "list", "failed to scan task row", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows",
			"status", status,
			"error", err)
		return nil, store.NewStoreError("task", "list", "error iterating task rows", err)
	}

	return tasks, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask maps one task row onto a domain.Task.
func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var errorMessage sql.NullString

	if err := row.Scan(
		&task.ID,
		&task.FileName,
		&task.Status,
		&errorMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}

	task.ErrorMessage = errorMessage.String
	return &task, nil
}
