package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iambrandonn/liaison/internal/protocol"
)

// MemoryStore is an in-process Repository, used by tests and ephemeral runs
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string][]byte)}
}

var _ Repository = (*MemoryStore)(nil)

// GetTask loads a deep copy of the stored task
func (s *MemoryStore) GetTask(ctx context.Context, id string) (*protocol.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.tasks[id]
	if !ok {
		return nil, &NotFoundError{TaskID: id}
	}
	return decodeTask(data)
}

// SaveTask stores a serialized copy so callers never share memory with the
// store (the same isolation a real keyed store provides)
func (s *MemoryStore) SaveTask(ctx context.Context, t *protocol.Task) error {
	t.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(t)
	if err != nil {
		return &WriteError{TaskID: t.ID, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = data
	return nil
}

// FindByThread scans for a task with a matching thread id
func (s *MemoryStore) FindByThread(ctx context.Context, threadID string) (*protocol.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, data := range s.tasks {
		t, err := decodeTask(data)
		if err != nil {
			continue
		}
		if t.ThreadID != "" && t.ThreadID == threadID {
			return t, nil
		}
	}
	return nil, &NotFoundError{ThreadID: threadID}
}

// ListTasks returns all tasks ordered by id
func (s *MemoryStore) ListTasks(ctx context.Context) ([]*protocol.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tasks := make([]*protocol.Task, 0, len(ids))
	for _, id := range ids {
		t, err := decodeTask(s.tasks[id])
		if err != nil {
			return nil, fmt.Errorf("failed to decode task %s: %w", id, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}

func decodeTask(data []byte) (*protocol.Task, error) {
	var t protocol.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
