package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/squash-api/internal/domain"
	"github.com/phrazzld/squash-api/internal/platform/filestore"
	"github.com/phrazzld/squash-api/internal/store"
)

// UploadService is the task ingestor: it turns one incoming upload into
// one blob-store write plus one ledger insert. From the caller's view the
// pair is atomic: if the insert fails, the orphaned blob is removed.
type UploadService struct {
	tasks   store.TaskStore
	uploads *filestore.Store
	logger  *slog.Logger

	// now is injected for deterministic storage-name tests.
	now func() time.Time
}

// NewUploadService creates a new UploadService.
func NewUploadService(
	tasks store.TaskStore,
	uploads *filestore.Store,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		tasks:   tasks,
		uploads: uploads,
		logger:  logger,
		now:     time.Now,
	}
}

// StoreFile persists one uploaded payload under a collision-resistant
// storage name and records a pending compression task for it.
// On ledger failure the stored blob is deleted before the error returns,
// so a task row never references a blob that was not written.
func (s *UploadService) StoreFile(
	ctx context.Context,
	originalName string,
	r io.Reader,
) (*domain.Task, error) {
	if originalName == "" {
		return nil, domain.ErrEmptyTaskFileName
	}

	storageName := s.storageName(originalName)

	if err := s.uploads.Save(storageName, r); err != nil {
		s.logger.Error("failed to store uploaded blob",
			"file_name", storageName,
			"error", err)
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}

	task, err := s.tasks.CreateTask(ctx, storageName)
	if err != nil {
		// Compensating delete: the ledger is the source of truth, so a
		// blob without a row must not survive.
		if rmErr := s.uploads.Remove(storageName); rmErr != nil {
			s.logger.Error("failed to remove orphaned blob after ledger error",
				"file_name", storageName,
				"error", rmErr)
		}
		s.logger.Error("failed to register uploaded file",
			"file_name", storageName,
			"error", err)
		return nil, fmt.Errorf("failed to register uploaded file: %w", err)
	}

	s.logger.Info("upload accepted",
		"task_id", task.ID,
		"file_name", task.FileName)

	return task, nil
}

// storageName derives a collision-resistant storage name by prefixing the
// original name with a nanosecond timestamp and normalizing whitespace.
// Two uploads of the same name within the same nanosecond may still
// collide; that window is accepted.
func (s *UploadService) storageName(originalName string) string {
	normalized := strings.Join(strings.Fields(originalName), "_")
	return fmt.Sprintf("%d_%s", s.now().UnixNano(), normalized)
}
