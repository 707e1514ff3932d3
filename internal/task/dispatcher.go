package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/squash-api/internal/domain"
	"github.com/phrazzld/squash-api/internal/platform/filestore"
	"github.com/phrazzld/squash-api/internal/store"
)

// DispatcherConfig holds configuration for the dispatcher.
type DispatcherConfig struct {
	// StaleTaskAge defines how long a task can be in processing state
	// before the sweeper considers it abandoned and resets it to pending.
	StaleTaskAge time.Duration

	// SweepInterval defines how often to check for stale processing tasks.
	// Zero disables the sweeper.
	SweepInterval time.Duration
}

// DefaultDispatcherConfig returns a DispatcherConfig with reasonable defaults.
// The sweeper is off by default.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		StaleTaskAge:  30 * time.Minute,
		SweepInterval: 0,
	}
}

// Dispatcher scans the ledger for pending tasks and launches one
// independent worker goroutine per task. It holds no reference to any
// worker's completion beyond a wait group the process drains on shutdown.
type Dispatcher struct {
	tasks      store.TaskStore
	compressed *filestore.Store
	worker     *Worker
	config     DispatcherConfig
	logger     *slog.Logger

	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(
	tasks store.TaskStore,
	compressed *filestore.Store,
	worker *Worker,
	config DispatcherConfig,
	logger *slog.Logger,
) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		tasks:      tasks,
		compressed: compressed,
		worker:     worker,
		config:     config,
		logger:     logger,
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// DispatchPending scans for pending tasks and spawns a worker for each.
// It returns the number of tasks dispatched without waiting for any of
// them: the contract is "work accepted", not "work completed".
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	if err := d.compressed.EnsureRoot(); err != nil {
		return 0, fmt.Errorf("failed to prepare compressed storage: %w", err)
	}

	pending, err := d.tasks.GetPendingTasks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to scan for pending tasks: %w", err)
	}

	if len(pending) == 0 {
		d.logger.Info("no pending tasks to dispatch")
		return 0, nil
	}

	// Workers outlive the triggering HTTP request, so they run on a
	// detached context that keeps request-scoped values (trace ID) but
	// not its cancellation.
	workerCtx := context.WithoutCancel(ctx)

	for _, t := range pending {
		d.wg.Add(1)
		go func(t *domain.Task) {
			defer d.wg.Done()
			d.worker.Process(workerCtx, t)
		}(t)
	}

	d.logger.Info("dispatched pending tasks", "count", len(pending))
	return len(pending), nil
}

// Start launches the stale-task sweeper when configured. It returns
// immediately; call Shutdown to stop the sweeper and drain in-flight
// workers.
func (d *Dispatcher) Start() {
	if d.config.SweepInterval <= 0 {
		d.logger.Debug("stale task sweeper disabled")
		return
	}

	d.wg.Add(1)
	go d.sweepLoop()
}

// Shutdown cancels the sweeper and blocks until all outstanding workers
// have finished or the context expires.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.cancelFunc()
	return d.drain(ctx)
}

// drain blocks until outstanding workers finish or the context expires.
func (d *Dispatcher) drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out draining workers: %w", ctx.Err())
	}
}

// sweepLoop periodically resets tasks stuck in processing state (for
// example after a crash mid-flight) back to pending so a later dispatch
// can retry them.
func (d *Dispatcher) sweepLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.sweepOnce(d.ctx)
		}
	}
}

// sweepOnce resets every sufficiently old processing task to pending.
func (d *Dispatcher) sweepOnce(ctx context.Context) {
	stale, err := d.tasks.GetProcessingTasks(ctx, d.config.StaleTaskAge)
	if err != nil {
		d.logger.Error("failed to check for stale tasks", "error", err)
		return
	}

	if len(stale) == 0 {
		return
	}

	d.logger.Info("found stale processing tasks", "count", len(stale))

	for _, t := range stale {
		// Only the processing -> pending edge is a legal reset; anything
		// else the scan hands back is left untouched.
		if err := t.UpdateStatus(domain.TaskStatusPending); err != nil {
			d.logger.Warn("skipping task that cannot be reset",
				"task_id", t.ID,
				"status", t.Status,
				"error", err)
			continue
		}

		if err := d.tasks.UpdateTaskStatus(
			ctx, t.ID, domain.TaskStatusPending, "reset after stale processing",
		); err != nil {
			d.logger.Error("failed to reset stale task",
				"task_id", t.ID,
				"error", err)
		}
	}
}
