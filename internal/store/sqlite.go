package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/iambrandonn/liaison/internal/protocol"
)

// schema keeps the task record as one opaque JSON document per row. The
// engine only ever reads and writes whole rows by key, so the columns are
// just the key, the lookup index, and the document.
const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	thread_id TEXT,
	status TEXT NOT NULL,
	record TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_thread ON tasks(thread_id);
`

// SQLiteStore is a Repository over a single sqlite table
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and initializes) a sqlite-backed store
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

var _ Repository = (*SQLiteStore)(nil)

// GetTask loads a task document by id
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*protocol.Task, error) {
	var record string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM tasks WHERE id = ?`, id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{TaskID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task %s: %w", id, err)
	}
	return decodeTask([]byte(record))
}

// SaveTask upserts the whole task document (last-write-wins)
func (s *SQLiteStore) SaveTask(ctx context.Context, t *protocol.Task) error {
	t.UpdatedAt = time.Now().UTC()
	record, err := json.Marshal(t)
	if err != nil {
		return &WriteError{TaskID: t.ID, Err: err}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, thread_id, status, record, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   thread_id = excluded.thread_id,
		   status = excluded.status,
		   record = excluded.record,
		   updated_at = excluded.updated_at`,
		t.ID, t.ThreadID, string(t.Status), string(record), t.UpdatedAt.Unix())
	if err != nil {
		return &WriteError{TaskID: t.ID, Err: err}
	}
	return nil
}

// FindByThread looks up a task by its message-thread id
func (s *SQLiteStore) FindByThread(ctx context.Context, threadID string) (*protocol.Task, error) {
	var record string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM tasks WHERE thread_id = ? LIMIT 1`, threadID).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ThreadID: threadID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query thread %s: %w", threadID, err)
	}
	return decodeTask([]byte(record))
}

// ListTasks returns all task documents ordered by id
func (s *SQLiteStore) ListTasks(ctx context.Context) ([]*protocol.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*protocol.Task
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		t, err := decodeTask([]byte(record))
		if err != nil {
			return nil, fmt.Errorf("failed to decode task record: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
