// Package auditlog records ingestion outcomes to an append-only NDJSON
// file, one record per inbound message, for operator review.
package auditlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iambrandonn/liaison/internal/ndjson"
	"github.com/iambrandonn/liaison/internal/protocol"
)

// Outcome labels what ingestion did with a message
type Outcome string

const (
	OutcomeIngested  Outcome = "ingested"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
)

// Record is one audit line
type Record struct {
	Timestamp         time.Time                  `json:"ts"`
	MessageID         string                     `json:"message_id"`
	TaskID            string                     `json:"task_id,omitempty"`
	Sender            string                     `json:"sender,omitempty"`
	Outcome           Outcome                    `json:"outcome"`
	Reason            string                     `json:"reason,omitempty"`
	ConversationState protocol.ConversationState `json:"conversation_state,omitempty"`
	TaskStatus        protocol.TaskStatus        `json:"task_status,omitempty"`
}

// Log appends ingestion records to an NDJSON file
type Log struct {
	file    *os.File
	encoder *ndjson.Encoder
	logger  *slog.Logger
	mu      sync.Mutex
}

// Open creates or reopens the audit log at logPath
func Open(logPath string, logger *slog.Logger) (*Log, error) {
	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &Log{
		file:    file,
		encoder: ndjson.NewEncoder(file, logger),
		logger:  logger,
	}, nil
}

// Write appends one record, stamping the time if unset
func (l *Log) Write(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	return l.encoder.Encode(rec)
}

// Ingested records a successfully processed message
func (l *Log) Ingested(msg protocol.InboundMessage, t *protocol.Task) {
	l.write(Record{
		MessageID:         msg.ID,
		TaskID:            t.ID,
		Sender:            msg.From,
		Outcome:           OutcomeIngested,
		ConversationState: t.ConversationState,
		TaskStatus:        t.Status,
	})
}

// Duplicate records a message skipped as already processed
func (l *Log) Duplicate(msg protocol.InboundMessage, taskID string) {
	l.write(Record{
		MessageID: msg.ID,
		TaskID:    taskID,
		Sender:    msg.From,
		Outcome:   OutcomeDuplicate,
	})
}

// Rejected records a message that could not be ingested
func (l *Log) Rejected(msg protocol.InboundMessage, reason string) {
	l.write(Record{
		MessageID: msg.ID,
		Sender:    msg.From,
		Outcome:   OutcomeRejected,
		Reason:    reason,
	})
}

func (l *Log) write(rec Record) {
	if err := l.Write(rec); err != nil {
		l.logger.Error("audit log write failed",
			"message_id", rec.MessageID,
			"error", err)
	}
}

// Close closes the underlying file
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
