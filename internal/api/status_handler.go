package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/squash-api/internal/api/shared"
	"github.com/phrazzld/squash-api/internal/domain"
)

// TaskReader is the read-only ledger access the status handler depends on.
type TaskReader interface {
	GetTask(ctx context.Context, id int64) (*domain.Task, error)
}

// StatusHandler handles task status lookup requests.
type StatusHandler struct {
	tasks TaskReader
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(tasks TaskReader) *StatusHandler {
	return &StatusHandler{
		tasks: tasks,
	}
}

// GetTaskStatus handles GET /check/{task_id} requests. It is read-only
// and safe to call at any concurrency against in-flight workers; the
// observed status is whichever state the task is in at read time.
func (h *StatusHandler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "task_id"), 10, 64)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task ID must be an integer")
		return
	}

	task, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskStatusResponse{
		ID:       task.ID,
		FileName: task.FileName,
		Status:   string(task.Status),
	})
}
