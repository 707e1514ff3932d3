package domain

import (
	"errors"
	"time"
)

// TaskStatus represents the processing state of a compression task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// CompressedSuffix is appended to a task's file name to derive the name
// of the compressed blob.
const CompressedSuffix = ".gz"

// Common validation errors for Task
var (
	ErrEmptyTaskFileName   = errors.New("task file name cannot be empty")
	ErrInvalidTaskStatus   = errors.New("invalid task status")
	ErrInvalidTransition   = errors.New("invalid task status transition")
	ErrTaskAlreadyTerminal = errors.New("task is already in a terminal state")
)

// Task represents one unit of upload-then-compress work. It tracks the
// stored file name and the processing state of the background compression.
// The ID is assigned by the ledger on insert; a zero ID means the task has
// not been persisted yet.
type Task struct {
	ID           int64      `json:"id"`
	FileName     string     `json:"file_name"`
	Status       TaskStatus `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewTask creates a new Task for the given stored file name. The status is
// set to pending and the creation/update timestamps are initialized.
// Returns an error if validation fails.
func NewTask(fileName string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		FileName:  fileName,
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.FileName == "" {
		return ErrEmptyTaskFileName
	}

	return t.Status.Validate()
}

// CompressedName returns the blob name of the compressed output for this task.
func (t *Task) CompressedName() string {
	return t.FileName + CompressedSuffix
}

// IsTerminal reports whether the task has reached a state from which no
// further transition is allowed.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// UpdateStatus moves the task to the given status, enforcing the monotonic
// path pending -> processing -> {completed|failed}. The UpdatedAt timestamp
// is refreshed on success.
func (t *Task) UpdateStatus(status TaskStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}

	if !canTransition(t.Status, status) {
		if t.IsTerminal() {
			return ErrTaskAlreadyTerminal
		}
		return ErrInvalidTransition
	}

	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// canTransition reports whether moving from one status to another is legal.
// The sweep that resets stale processing tasks back to pending is the single
// sanctioned backward edge.
func canTransition(from, to TaskStatus) bool {
	switch from {
	case TaskStatusPending:
		return to == TaskStatusProcessing
	case TaskStatusProcessing:
		return to == TaskStatusCompleted || to == TaskStatusFailed || to == TaskStatusPending
	default:
		return false
	}
}

// Validate returns ErrInvalidTaskStatus unless the status is one of the
// known values.
func (s TaskStatus) Validate() error {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return nil
	default:
		return ErrInvalidTaskStatus
	}
}
