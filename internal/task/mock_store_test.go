package task

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/squash-api/internal/domain"
	"github.com/phrazzld/squash-api/internal/store"
)

// mockTaskStore is a test double for store.TaskStore. It keeps tasks in
// memory behind a mutex so concurrent workers in tests behave like they
// would against the real ledger. Individual operations can be overridden
// through the function fields.
type mockTaskStore struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]*domain.Task

	createTaskFn         func(ctx context.Context, fileName string) (*domain.Task, error)
	getPendingTasksFn    func(ctx context.Context) ([]*domain.Task, error)
	getProcessingTasksFn func(ctx context.Context, olderThan time.Duration) ([]*domain.Task, error)
	claimTaskFn          func(ctx context.Context, id int64) (bool, error)
	updateTaskStatusFn   func(ctx context.Context, id int64, status domain.TaskStatus, errorMsg string) error
}

var _ store.TaskStore = (*mockTaskStore)(nil)

func newMockTaskStore() *mockTaskStore {
	return &mockTaskStore{
		tasks: make(map[int64]*domain.Task),
	}
}

// addPending seeds a pending task and returns it.
func (m *mockTaskStore) addPending(fileName string) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	now := time.Now().UTC()
	t := &domain.Task{
		ID:        m.nextID,
		FileName:  fileName,
		Status:    domain.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.tasks[t.ID] = t
	return t
}

// snapshot returns a copy of the stored task.
func (m *mockTaskStore) snapshot(id int64) (domain.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, false
	}
	return *t, true
}

func (m *mockTaskStore) CreateTask(ctx context.Context, fileName string) (*domain.Task, error) {
	if m.createTaskFn != nil {
		return m.createTaskFn(ctx, fileName)
	}
	t := m.addPending(fileName)
	copied := *t
	return &copied, nil
}

func (m *mockTaskStore) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	t, ok := m.snapshot(id)
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return &t, nil
}

func (m *mockTaskStore) GetPendingTasks(ctx context.Context) ([]*domain.Task, error) {
	if m.getPendingTasksFn != nil {
		return m.getPendingTasksFn(ctx)
	}
	return m.tasksByStatus(domain.TaskStatusPending), nil
}

func (m *mockTaskStore) GetProcessingTasks(
	ctx context.Context,
	olderThan time.Duration,
) ([]*domain.Task, error) {
	if m.getProcessingTasksFn != nil {
		return m.getProcessingTasksFn(ctx, olderThan)
	}

	cutoff := time.Now().UTC().Add(-olderThan)

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Task
	for _, t := range m.tasks {
		if t.Status != domain.TaskStatusProcessing {
			continue
		}
		if olderThan > 0 && !t.UpdatedAt.Before(cutoff) {
			continue
		}
		copied := *t
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockTaskStore) ClaimTask(ctx context.Context, id int64) (bool, error) {
	if m.claimTaskFn != nil {
		return m.claimTaskFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok || t.Status != domain.TaskStatusPending {
		return false, nil
	}
	t.Status = domain.TaskStatusProcessing
	t.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *mockTaskStore) UpdateTaskStatus(
	ctx context.Context,
	id int64,
	status domain.TaskStatus,
	errorMsg string,
) error {
	if m.updateTaskStatusFn != nil {
		return m.updateTaskStatusFn(ctx, id, status, errorMsg)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	t.Status = status
	t.ErrorMessage = errorMsg
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// tasksByStatus returns copies of all tasks in the given status.
func (m *mockTaskStore) tasksByStatus(status domain.TaskStatus) []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Task
	for _, t := range m.tasks {
		if t.Status == status {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out
}
