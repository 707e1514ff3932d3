package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/squash-api/internal/domain"
	"github.com/phrazzld/squash-api/internal/platform/filestore"
	"github.com/phrazzld/squash-api/internal/service"
	"github.com/phrazzld/squash-api/internal/store"
)

// stubTaskStore implements store.TaskStore with overridable behavior for
// the operations the upload service touches.
type stubTaskStore struct {
	createTaskFn func(ctx context.Context, fileName string) (*domain.Task, error)
}

func (s *stubTaskStore) CreateTask(ctx context.Context, fileName string) (*domain.Task, error) {
	if s.createTaskFn != nil {
		return s.createTaskFn(ctx, fileName)
	}
	task, err := domain.NewTask(fileName)
	if err != nil {
		return nil, err
	}
	task.ID = 1
	return task, nil
}

func (s *stubTaskStore) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	return nil, store.ErrTaskNotFound
}

func (s *stubTaskStore) GetPendingTasks(ctx context.Context) ([]*domain.Task, error) {
	return nil, nil
}

func (s *stubTaskStore) GetProcessingTasks(
	ctx context.Context,
	olderThan time.Duration,
) ([]*domain.Task, error) {
	return nil, nil
}

func (s *stubTaskStore) ClaimTask(ctx context.Context, id int64) (bool, error) {
	return false, nil
}

func (s *stubTaskStore) UpdateTaskStatus(
	ctx context.Context,
	id int64,
	status domain.TaskStatus,
	errorMsg string,
) error {
	return nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStoreFileSuccess(t *testing.T) {
	t.Parallel()

	uploads := filestore.New(afero.NewMemMapFs(), "uploads")
	var insertedName string
	tasks := &stubTaskStore{
		createTaskFn: func(ctx context.Context, fileName string) (*domain.Task, error) {
			insertedName = fileName
			task, err := domain.NewTask(fileName)
			require.NoError(t, err)
			task.ID = 42
			return task, nil
		},
	}

	svc := service.NewUploadService(tasks, uploads, newTestLogger())

	task, err := svc.StoreFile(context.Background(), "my report.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	assert.Equal(t, int64(42), task.ID)
	assert.Equal(t, domain.TaskStatusPending, task.Status)

	// Storage name gets a timestamp prefix and normalized whitespace.
	assert.Regexp(t, `^\d+_my_report\.txt$`, task.FileName)
	assert.Equal(t, task.FileName, insertedName)

	data, err := uploads.Read(task.FileName)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestStoreFileDistinctNamesForSameUpload(t *testing.T) {
	t.Parallel()

	uploads := filestore.New(afero.NewMemMapFs(), "uploads")
	svc := service.NewUploadService(&stubTaskStore{}, uploads, newTestLogger())

	first, err := svc.StoreFile(context.Background(), "a.txt", strings.NewReader("one"))
	require.NoError(t, err)
	second, err := svc.StoreFile(context.Background(), "a.txt", strings.NewReader("two"))
	require.NoError(t, err)

	assert.NotEqual(t, first.FileName, second.FileName)
}

func TestStoreFileLedgerFailureRemovesBlob(t *testing.T) {
	t.Parallel()

	uploads := filestore.New(afero.NewMemMapFs(), "uploads")
	var insertedName string
	tasks := &stubTaskStore{
		createTaskFn: func(ctx context.Context, fileName string) (*domain.Task, error) {
			insertedName = fileName
			return nil, errors.New("connection refused")
		},
	}

	svc := service.NewUploadService(tasks, uploads, newTestLogger())

	task, err := svc.StoreFile(context.Background(), "a.txt", strings.NewReader("hello"))
	assert.Nil(t, task)
	assert.ErrorContains(t, err, "failed to register uploaded file")

	// The compensating delete must leave no orphaned blob behind.
	require.NotEmpty(t, insertedName)
	ok, existsErr := uploads.Exists(insertedName)
	require.NoError(t, existsErr)
	assert.False(t, ok)
}

func TestStoreFileBlobFailureSkipsLedger(t *testing.T) {
	t.Parallel()

	// A read-only filesystem forces the blob write to fail.
	uploads := filestore.New(afero.NewReadOnlyFs(afero.NewMemMapFs()), "uploads")
	inserted := false
	tasks := &stubTaskStore{
		createTaskFn: func(ctx context.Context, fileName string) (*domain.Task, error) {
			inserted = true
			return nil, fmt.Errorf("unexpected insert")
		},
	}

	svc := service.NewUploadService(tasks, uploads, newTestLogger())

	task, err := svc.StoreFile(context.Background(), "a.txt", strings.NewReader("hello"))
	assert.Nil(t, task)
	assert.ErrorContains(t, err, "failed to store uploaded file")
	assert.False(t, inserted, "no task row may exist for an unwritten blob")
}

func TestStoreFileEmptyName(t *testing.T) {
	t.Parallel()

	uploads := filestore.New(afero.NewMemMapFs(), "uploads")
	svc := service.NewUploadService(&stubTaskStore{}, uploads, newTestLogger())

	task, err := svc.StoreFile(context.Background(), "", strings.NewReader("hello"))
	assert.Nil(t, task)
	assert.ErrorIs(t, err, domain.ErrEmptyTaskFileName)
}
