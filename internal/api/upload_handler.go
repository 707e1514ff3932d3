package api

import (
	"context"
	"io"
	"net/http"

	"github.com/phrazzld/squash-api/internal/api/shared"
	"github.com/phrazzld/squash-api/internal/domain"
	"github.com/phrazzld/squash-api/internal/platform/logger"
)

// Uploader is the ingest capability the upload handler depends on.
type Uploader interface {
	StoreFile(ctx context.Context, originalName string, r io.Reader) (*domain.Task, error)
}

// UploadHandler handles multipart file upload requests.
type UploadHandler struct {
	uploads Uploader
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploads Uploader) *UploadHandler {
	return &UploadHandler{
		uploads: uploads,
	}
}

// UploadFiles handles POST /uploader/upload requests. Each file part is
// processed independently: the response enumerates which parts were
// accepted (with their task IDs) and which failed, and only a request
// with zero usable parts is rejected outright.
func (h *UploadHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	reader, err := r.MultipartReader()
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
			"Request must be multipart/form-data", err)
		return
	}

	resp := UploadResponse{}
	usableParts := 0

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Error("failed to read multipart body", "error", err)
			resp.Errors = append(resp.Errors, UploadErrorResult{
				Error: "Failed to read file data",
			})
			break
		}

		if part.FormName() == "" && part.FileName() == "" {
			_ = part.Close()
			continue
		}

		if part.FileName() == "" {
			// A form field without a filename cannot become a task.
			resp.Errors = append(resp.Errors, UploadErrorResult{
				File:  part.FormName(),
				Error: "Skipped field without filename",
			})
			_ = part.Close()
			continue
		}

		usableParts++

		task, err := h.uploads.StoreFile(r.Context(), part.FileName(), part)
		_ = part.Close()
		if err != nil {
			resp.Errors = append(resp.Errors, UploadErrorResult{
				File:  part.FileName(),
				Error: GetSafeErrorMessage(err),
			})
			continue
		}

		resp.Uploaded = append(resp.Uploaded, UploadedFileResult{
			ID:     task.ID,
			File:   task.FileName,
			Status: string(task.Status),
		})
	}

	// Only a request with no usable file parts fails as a whole; any
	// storage-level failures are already enumerated per item.
	if usableParts == 0 {
		if len(resp.Errors) == 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "No files were uploaded")
			return
		}
		shared.RespondWithJSON(w, r, http.StatusBadRequest, resp)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
