package api

// Common request/response structures

// UploadedFileResult describes the outcome for one file part of an
// upload request that was accepted.
type UploadedFileResult struct {
	ID     int64  `json:"id"`
	File   string `json:"file"`
	Status string `json:"status"`
}

// UploadErrorResult describes the outcome for one file part that failed.
type UploadErrorResult struct {
	File  string `json:"file,omitempty"`
	Error string `json:"error"`
}

// UploadResponse enumerates per-item outcomes for a multi-file upload.
// A request is never reduced to a single pass/fail while any item succeeded.
type UploadResponse struct {
	Uploaded []UploadedFileResult `json:"uploaded"`
	Errors   []UploadErrorResult  `json:"errors,omitempty"`
}

// CompressResponse reports how many pending tasks a dispatch call started.
type CompressResponse struct {
	Dispatched int    `json:"dispatched"`
	Message    string `json:"message"`
}

// TaskStatusResponse is the body of a status lookup.
type TaskStatusResponse struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	Status   string `json:"status"`
}
