// Package gateway receives inbound messages, correlates them to a task,
// verifies the sender, and drives ingestion: clean, append, reconcile,
// mark processed, persist.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/iambrandonn/liaison/internal/bodyclean"
	"github.com/iambrandonn/liaison/internal/idempotency"
	"github.com/iambrandonn/liaison/internal/ledger"
	"github.com/iambrandonn/liaison/internal/protocol"
	"github.com/iambrandonn/liaison/internal/reconcile"
	"github.com/iambrandonn/liaison/internal/store"
)

// Thread-to-task resolutions are cached briefly so a burst of replies on
// the same thread does not rescan the store each time.
const (
	threadCacheTTL     = 5 * time.Minute
	threadCacheCleanup = 10 * time.Minute
)

// Task reference patterns matched in a message body, the fallback when
// thread correlation fails. Both the bracketed form tasks print at
// creation and the looser "Task #<id>" form people type by hand.
var taskRefRes = []*regexp.Regexp{
	regexp.MustCompile(`\[task:([A-Za-z0-9-]+)\]`),
	regexp.MustCompile(`(?i)\btask #([A-Za-z0-9-]+)`),
}

// CorrelationError indicates a message could not be matched to any task
type CorrelationError struct {
	MessageID string
	ThreadID  string
}

func (e *CorrelationError) Error() string {
	return fmt.Sprintf("message %s (thread %q) does not correlate to any task", e.MessageID, e.ThreadID)
}

// UnknownSenderError indicates a correlated message came from an address
// that is neither party to the task.
type UnknownSenderError struct {
	Sender string
	TaskID string
}

func (e *UnknownSenderError) Error() string {
	return fmt.Sprintf("sender %q is not a party to task %s", e.Sender, e.TaskID)
}

// Gateway ingests inbound messages for their correlated task
type Gateway struct {
	repo    store.Repository
	ledger  *ledger.Ledger
	engine  *reconcile.Engine
	threads *cache.Cache
	logger  *slog.Logger
}

// New creates a gateway
func New(repo store.Repository, led *ledger.Ledger, engine *reconcile.Engine, logger *slog.Logger) *Gateway {
	return &Gateway{
		repo:    repo,
		ledger:  led,
		engine:  engine,
		threads: cache.New(threadCacheTTL, threadCacheCleanup),
		logger:  logger,
	}
}

// Ingest processes one inbound message end to end and returns the updated
// task. A message already processed (or judged a near-duplicate by the
// ledger) is acknowledged without re-running reconciliation.
func (g *Gateway) Ingest(ctx context.Context, msg protocol.InboundMessage) (*protocol.Task, error) {
	t, err := g.resolveTask(ctx, msg)
	if err != nil {
		return nil, err
	}

	sender := NormalizeAddress(msg.From)
	role, ok := g.senderRole(t, sender)
	if !ok {
		g.logger.Warn("message from unknown sender dropped",
			"task_id", t.ID,
			"message_id", msg.ID,
			"sender", sender)
		return nil, &UnknownSenderError{Sender: sender, TaskID: t.ID}
	}

	if idempotency.HasProcessed(t, msg.ID) {
		g.logger.Info("message already processed, skipping",
			"task_id", t.ID,
			"message_id", msg.ID)
		return t, nil
	}

	cleaned := bodyclean.Clean(msg.PlainBody)
	event := protocol.ConversationEvent{
		ID:             msg.ID,
		Timestamp:      msg.Timestamp,
		SenderRole:     role,
		SenderIdentity: sender,
		Type:           "message",
		Content:        cleaned,
		RawContent:     msg.PlainBody,
	}

	appended := g.ledger.Append(t, event)
	if !appended {
		g.logger.Info("near-duplicate message absorbed",
			"task_id", t.ID,
			"message_id", msg.ID,
			"sender", sender)
	} else {
		g.logger.Info("message appended",
			"task_id", t.ID,
			"message_id", msg.ID,
			"role", string(role),
			"content_chars", len(cleaned))
		g.engine.ReconcileTask(ctx, t)
	}

	// A reply from the delegate clears any outstanding follow-up marker.
	if role == protocol.RoleDelegate {
		t.FollowUpSentAt = nil
	}

	// Marked only after reconciliation so a crash mid-run leaves the
	// message eligible for a clean retry.
	idempotency.MarkProcessed(t, msg.ID)

	if t.ThreadID == "" && msg.ThreadID != "" {
		t.ThreadID = msg.ThreadID
	}
	t.UpdatedAt = time.Now().UTC()

	if err := g.repo.SaveTask(ctx, t); err != nil {
		return nil, fmt.Errorf("ingest message %s: %w", msg.ID, err)
	}
	if t.ThreadID != "" {
		g.threads.Set(t.ThreadID, t.ID, cache.DefaultExpiration)
	}
	return t, nil
}

// resolveTask correlates a message to its task: thread id first, then an
// explicit task reference in the body.
func (g *Gateway) resolveTask(ctx context.Context, msg protocol.InboundMessage) (*protocol.Task, error) {
	if msg.ThreadID != "" {
		if cached, found := g.threads.Get(msg.ThreadID); found {
			if t, err := g.repo.GetTask(ctx, cached.(string)); err == nil {
				return t, nil
			}
			g.threads.Delete(msg.ThreadID)
		}
		t, err := g.repo.FindByThread(ctx, msg.ThreadID)
		if err == nil {
			g.threads.Set(msg.ThreadID, t.ID, cache.DefaultExpiration)
			return t, nil
		}
	}

	for _, re := range taskRefRes {
		m := re.FindStringSubmatch(msg.PlainBody)
		if m == nil {
			continue
		}
		t, err := g.repo.GetTask(ctx, m[1])
		if err == nil {
			g.logger.Info("correlated via body task reference",
				"task_id", t.ID,
				"message_id", msg.ID)
			return t, nil
		}
	}

	return nil, &CorrelationError{MessageID: msg.ID, ThreadID: msg.ThreadID}
}

// senderRole maps a normalized sender address to its role on the task
func (g *Gateway) senderRole(t *protocol.Task, sender string) (protocol.Role, bool) {
	switch sender {
	case NormalizeAddress(t.DelegatorAddress):
		return protocol.RoleDelegator, true
	case NormalizeAddress(t.DelegateAddress):
		return protocol.RoleDelegate, true
	}
	return "", false
}

// NormalizeAddress reduces a sender header to a bare lowercase address:
// "Dana Smith <Dana@Example.com>" becomes "dana@example.com".
func NormalizeAddress(from string) string {
	addr := from
	if open := strings.LastIndex(from, "<"); open >= 0 {
		if close := strings.Index(from[open:], ">"); close > 0 {
			addr = from[open+1 : open+close]
		}
	}
	return strings.ToLower(strings.TrimSpace(addr))
}
