package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/phrazzld/squash-api/internal/api/shared"
)

// Dispatcher is the fan-out capability the compress handler depends on.
type Dispatcher interface {
	DispatchPending(ctx context.Context) (int, error)
}

// CompressHandler handles batch compression trigger requests.
type CompressHandler struct {
	dispatcher Dispatcher
}

// NewCompressHandler creates a new CompressHandler.
func NewCompressHandler(dispatcher Dispatcher) *CompressHandler {
	return &CompressHandler{
		dispatcher: dispatcher,
	}
}

// CompressAll handles POST /compressor/compress requests. It scans for
// pending tasks, launches background workers for each, and returns the
// dispatched count without waiting for any worker to finish.
func (h *CompressHandler) CompressAll(w http.ResponseWriter, r *http.Request) {
	count, err := h.dispatcher.DispatchPending(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to dispatch compression tasks", err)
		return
	}

	resp := CompressResponse{Dispatched: count}
	if count == 0 {
		resp.Message = "no files to compress"
	} else {
		resp.Message = fmt.Sprintf("started compressing %d files in background", count)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
