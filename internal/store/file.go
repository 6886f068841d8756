package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/iambrandonn/liaison/internal/fsutil"
	"github.com/iambrandonn/liaison/internal/protocol"
)

// FileStore persists each task as one JSON document under <dir>/tasks/.
// Writes are atomic renames; a record is either the old version or the new
// one, matching the keyed-store contract.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir, creating it if needed
func NewFileStore(dir string) (*FileStore, error) {
	tasksDir := filepath.Join(dir, "tasks")
	if err := os.MkdirAll(tasksDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create task store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

var _ Repository = (*FileStore)(nil)

func (s *FileStore) taskPath(id string) string {
	return filepath.Join(s.dir, "tasks", id+".json")
}

// GetTask loads a task record from its JSON file
func (s *FileStore) GetTask(ctx context.Context, id string) (*protocol.Task, error) {
	data, err := os.ReadFile(s.taskPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{TaskID: id}
		}
		return nil, fmt.Errorf("failed to read task %s: %w", id, err)
	}

	var t protocol.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse task %s: %w", id, err)
	}
	return &t, nil
}

// SaveTask writes the full record atomically
func (s *FileStore) SaveTask(ctx context.Context, t *protocol.Task) error {
	t.UpdatedAt = time.Now().UTC()
	if err := fsutil.AtomicWriteJSON(s.taskPath(t.ID), t); err != nil {
		return &WriteError{TaskID: t.ID, Err: err}
	}
	return nil
}

// FindByThread scans task files for a matching thread id
func (s *FileStore) FindByThread(ctx context.Context, threadID string) (*protocol.Task, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.ThreadID != "" && t.ThreadID == threadID {
			return t, nil
		}
	}
	return nil, &NotFoundError{ThreadID: threadID}
}

// ListTasks reads every task record, ordered by id
func (s *FileStore) ListTasks(ctx context.Context) ([]*protocol.Task, error) {
	tasksDir := filepath.Join(s.dir, "tasks")
	entries, err := os.ReadDir(tasksDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list task store: %w", err)
	}

	var tasks []*protocol.Task
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		t, err := s.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// Close is a no-op for the file store
func (s *FileStore) Close() error {
	return nil
}
