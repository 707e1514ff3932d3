package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/squash-api/internal/domain"
	"github.com/phrazzld/squash-api/internal/platform/filestore"
	"github.com/phrazzld/squash-api/internal/store"
)

// Codec is the compression capability used by workers:
// compress bytes, return bytes or fail.
type Codec interface {
	Compress(data []byte) ([]byte, error)
}

// Worker executes the compression lifecycle for a single task. One Worker
// instance is shared by all goroutines; Process is safe for concurrent use
// because every invocation operates on a distinct task row.
type Worker struct {
	tasks      store.TaskStore
	uploads    *filestore.Store
	compressed *filestore.Store
	codec      Codec
	logger     *slog.Logger
}

// NewWorker creates a Worker over the given ledger, blob stores, and codec.
func NewWorker(
	tasks store.TaskStore,
	uploads *filestore.Store,
	compressed *filestore.Store,
	codec Codec,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		tasks:      tasks,
		uploads:    uploads,
		compressed: compressed,
		codec:      codec,
		logger:     logger,
	}
}

// Process runs one task through its state machine:
//
//  1. claim pending -> processing (atomic; losing the claim means a
//     sibling dispatch already owns the task)
//  2. read the source blob
//  3. compress
//  4. write the compressed blob
//  5. record the terminal status
//
// Every failure is contained to this task; Process never panics the
// process or touches sibling tasks.
func (w *Worker) Process(ctx context.Context, t *domain.Task) {
	logger := w.logger.With(
		"task_id", t.ID,
		"file_name", t.FileName,
	)

	claimed, err := w.tasks.ClaimTask(ctx, t.ID)
	if err != nil {
		// A ledger fault on the claim degrades observability but does not
		// abort the work; the terminal write below remains authoritative.
		logger.Error("failed to mark task as processing, continuing", "error", err)
	} else if !claimed {
		logger.Info("task no longer pending, skipping duplicate dispatch")
		return
	}

	logger.Info("processing task")

	if err := w.compress(t); err != nil {
		logger.Error("task failed", "error", err)
		w.finish(ctx, logger, t, domain.TaskStatusFailed, err.Error())
		return
	}

	logger.Info("task completed")
	w.finish(ctx, logger, t, domain.TaskStatusCompleted, "")
}

// compress performs steps 2-4: read, encode, write.
func (w *Worker) compress(t *domain.Task) error {
	data, err := w.uploads.Read(t.FileName)
	if err != nil {
		return fmt.Errorf("failed to read source blob: %w", err)
	}

	encoded, err := w.codec.Compress(data)
	if err != nil {
		return fmt.Errorf("failed to compress blob: %w", err)
	}

	if err := w.compressed.SaveBytes(t.CompressedName(), encoded); err != nil {
		return fmt.Errorf("failed to write compressed blob: %w", err)
	}

	return nil
}

// finish records the authoritative terminal status. A failure to persist
// it is an operational fault worth loud logging, but the blob writes are
// not rolled back.
func (w *Worker) finish(
	ctx context.Context,
	logger *slog.Logger,
	t *domain.Task,
	status domain.TaskStatus,
	errorMsg string,
) {
	if err := w.tasks.UpdateTaskStatus(ctx, t.ID, status, errorMsg); err != nil {
		logger.Error("failed to record terminal task status",
			"status", status,
			"error", err)
	}
}
