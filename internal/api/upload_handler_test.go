package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/squash-api/internal/api"
	"github.com/phrazzld/squash-api/internal/domain"
)

// stubUploader records StoreFile calls and can be made to fail per file name.
type stubUploader struct {
	nextID   int64
	received map[string][]byte
	failOn   string
}

func newStubUploader() *stubUploader {
	return &stubUploader{received: make(map[string][]byte)}
}

func (s *stubUploader) StoreFile(ctx context.Context, originalName string, r io.Reader) (*domain.Task, error) {
	if originalName == s.failOn {
		return nil, errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.received[originalName] = data
	s.nextID++
	return &domain.Task{
		ID:       s.nextID,
		FileName: "1700000000_" + originalName,
		Status:   domain.TaskStatusPending,
	}, nil
}

// multipartBody builds a multipart/form-data body from name/content pairs.
// An empty content marks the part as a plain form field without a filename.
func multipartBody(t *testing.T, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for name, content := range files {
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = io.Copy(part, strings.NewReader(content))
		require.NoError(t, err)
	}
	for name, value := range fields {
		require.NoError(t, w.WriteField(name, value))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func uploadRequest(t *testing.T, uploader api.Uploader, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	handler := api.NewUploadHandler(uploader)
	req := httptest.NewRequest(http.MethodPost, "/uploader/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.UploadFiles(rec, req)
	return rec
}

func TestUploadFilesAcceptsMultiple(t *testing.T) {
	t.Parallel()

	uploader := newStubUploader()
	body, contentType := multipartBody(t,
		map[string]string{"a.txt": "alpha", "b.txt": "beta"}, nil)

	rec := uploadRequest(t, uploader, body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Uploaded, 2)
	assert.Empty(t, resp.Errors)

	for _, item := range resp.Uploaded {
		assert.NotZero(t, item.ID)
		assert.Equal(t, "pending", item.Status)
	}

	// The handler must stream the part bodies through untouched.
	assert.Equal(t, []byte("alpha"), uploader.received["a.txt"])
	assert.Equal(t, []byte("beta"), uploader.received["b.txt"])
}

func TestUploadFilesPartialFailure(t *testing.T) {
	t.Parallel()

	uploader := newStubUploader()
	uploader.failOn = "bad.txt"
	body, contentType := multipartBody(t,
		map[string]string{"good.txt": "fine", "bad.txt": "doomed"}, nil)

	rec := uploadRequest(t, uploader, body, contentType)
	require.Equal(t, http.StatusOK, rec.Code,
		"one failed item must not fail the whole request")

	var resp api.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Uploaded, 1)
	assert.Equal(t, "1700000000_good.txt", resp.Uploaded[0].File)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "bad.txt", resp.Errors[0].File)
	assert.NotContains(t, resp.Errors[0].Error, "disk full",
		"raw storage errors must not leak to clients")
}

func TestUploadFilesSkipsBareFields(t *testing.T) {
	t.Parallel()

	uploader := newStubUploader()
	body, contentType := multipartBody(t,
		map[string]string{"a.txt": "alpha"},
		map[string]string{"description": "not a file"})

	rec := uploadRequest(t, uploader, body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Uploaded, 1)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "description", resp.Errors[0].File)
	assert.Equal(t, "Skipped field without filename", resp.Errors[0].Error)
}

func TestUploadFilesRejectsEmptyRequest(t *testing.T) {
	t.Parallel()

	uploader := newStubUploader()
	body, contentType := multipartBody(t, nil, nil)

	rec := uploadRequest(t, uploader, body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No files were uploaded")
	assert.Empty(t, uploader.received)
}

func TestUploadFilesRejectsFieldsOnlyRequest(t *testing.T) {
	t.Parallel()

	uploader := newStubUploader()
	body, contentType := multipartBody(t, nil,
		map[string]string{"description": "not a file"})

	rec := uploadRequest(t, uploader, body, contentType)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp api.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Uploaded)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "description", resp.Errors[0].File)
}

func TestUploadFilesRejectsNonMultipart(t *testing.T) {
	t.Parallel()

	rec := uploadRequest(t, newStubUploader(),
		strings.NewReader(`{"file":"a.txt"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "multipart/form-data")
}
