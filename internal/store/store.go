// Package store persists tasks as single keyed records. Stores offer only
// get/set-by-key semantics: no multi-row transactions, no locks. Every
// engine component is written against that model.
package store

import (
	"context"
	"fmt"

	"github.com/iambrandonn/liaison/internal/protocol"
)

// Repository is the keyed task store
type Repository interface {
	// GetTask loads a task by id; returns NotFoundError if absent
	GetTask(ctx context.Context, id string) (*protocol.Task, error)
	// SaveTask durably writes the whole task record (last-write-wins)
	SaveTask(ctx context.Context, t *protocol.Task) error
	// FindByThread returns the task whose thread id matches; NotFoundError if none
	FindByThread(ctx context.Context, threadID string) (*protocol.Task, error)
	// ListTasks returns all tasks
	ListTasks(ctx context.Context) ([]*protocol.Task, error)
	// Close releases store resources
	Close() error
}

// NotFoundError indicates no task matched the lookup
type NotFoundError struct {
	TaskID   string
	ThreadID string
}

func (e *NotFoundError) Error() string {
	if e.ThreadID != "" {
		return fmt.Sprintf("no task for thread %s", e.ThreadID)
	}
	return fmt.Sprintf("task %s not found", e.TaskID)
}

// WriteError wraps a failed durable write. Callers treat the whole
// ingestion attempt as not-yet-processed so a retry is safe.
type WriteError struct {
	TaskID string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to persist task %s: %v", e.TaskID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
