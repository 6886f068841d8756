package ledger

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iambrandonn/liaison/internal/protocol"
)

// TruncationMarker is appended to event content clipped by the size bound
const TruncationMarker = "...[truncated]"

// DuplicateWindow is how close two same-sender, same-content events must be
// to count as one message delivered twice.
const DuplicateWindow = time.Second

// SnippetMax caps the last-message summary snippet
const SnippetMax = 160

// Bounds configures the ledger's retention limits
type Bounds struct {
	// MaxEvents is the hard cap on retained events
	MaxEvents int
	// TrimTarget is the event count after a size-triggered trim
	TrimTarget int
	// MaxSerializedChars bounds the JSON-serialized size of the event list
	MaxSerializedChars int
	// MaxContentChars is the per-event content cap applied as a last resort
	MaxContentChars int
}

// DefaultBounds returns the standard retention limits
func DefaultBounds() Bounds {
	return Bounds{
		MaxEvents:          30,
		TrimTarget:         20,
		MaxSerializedChars: 45000,
		MaxContentChars:    500,
	}
}

// Ledger appends conversation events to a task's bounded log. All mutation
// happens on the task struct; persisting the result is the caller's single
// logical write.
type Ledger struct {
	bounds Bounds
	logger *slog.Logger
}

// New creates a ledger with default bounds
func New(logger *slog.Logger) *Ledger {
	return NewWithBounds(DefaultBounds(), logger)
}

// NewWithBounds creates a ledger with explicit bounds
func NewWithBounds(b Bounds, logger *slog.Logger) *Ledger {
	if b.MaxEvents <= 0 {
		b.MaxEvents = DefaultBounds().MaxEvents
	}
	if b.TrimTarget <= 0 || b.TrimTarget > b.MaxEvents {
		b.TrimTarget = DefaultBounds().TrimTarget
	}
	if b.MaxSerializedChars <= 0 {
		b.MaxSerializedChars = DefaultBounds().MaxSerializedChars
	}
	if b.MaxContentChars <= 0 {
		b.MaxContentChars = DefaultBounds().MaxContentChars
	}
	return &Ledger{bounds: b, logger: logger}
}

// Append normalizes the event, rejects duplicates, appends it to the task's
// conversation log, enforces the retention bounds, and refreshes the
// last-message summary. Returns false without mutation for duplicates.
func (l *Ledger) Append(t *protocol.Task, event protocol.ConversationEvent) bool {
	normalize(&event)

	if l.isDuplicate(t, &event) {
		l.logger.Debug("duplicate event rejected",
			"task_id", t.ID,
			"event_id", event.ID,
			"sender", event.SenderIdentity)
		return false
	}

	t.Log.Events = append(t.Log.Events, event)
	l.enforceBounds(t)
	refreshSummary(&t.Log)
	return true
}

// AppendSystemNote records an internally-generated annotation (lifecycle
// transitions, decision outcomes) as a system event.
func (l *Ledger) AppendSystemNote(t *protocol.Task, note string) bool {
	return l.Append(t, protocol.ConversationEvent{
		SenderRole:     protocol.RoleSystem,
		SenderIdentity: "liaison",
		Type:           "system-note",
		Content:        note,
	})
}

func normalize(event *protocol.ConversationEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Type == "" {
		event.Type = "message"
	}
}

// isDuplicate checks both identity (same id) and near-duplicate content
// (same sender, same content, timestamps within DuplicateWindow).
func (l *Ledger) isDuplicate(t *protocol.Task, event *protocol.ConversationEvent) bool {
	for i := range t.Log.Events {
		existing := &t.Log.Events[i]
		if existing.ID == event.ID {
			return true
		}
		if existing.SenderIdentity == event.SenderIdentity &&
			existing.Content == event.Content {
			delta := event.Timestamp.Sub(existing.Timestamp)
			if delta < 0 {
				delta = -delta
			}
			if delta <= DuplicateWindow {
				return true
			}
		}
	}
	return false
}

// enforceBounds applies the retention limits: hard event-count cap first,
// then the serialized-size bound via progressive trimming and content
// truncation. The most recent event is never the one dropped.
func (l *Ledger) enforceBounds(t *protocol.Task) {
	if n := len(t.Log.Events); n > l.bounds.MaxEvents {
		t.Log.Events = t.Log.Events[n-l.bounds.MaxEvents:]
	}

	if serializedLen(t.Log.Events) <= l.bounds.MaxSerializedChars {
		return
	}

	// Step 1: keep only the most recent TrimTarget events
	if n := len(t.Log.Events); n > l.bounds.TrimTarget {
		t.Log.Events = t.Log.Events[n-l.bounds.TrimTarget:]
		l.logger.Warn("ledger trimmed for size",
			"task_id", t.ID,
			"dropped", n-l.bounds.TrimTarget,
			"retained", l.bounds.TrimTarget)
	}
	if serializedLen(t.Log.Events) <= l.bounds.MaxSerializedChars {
		return
	}

	// Step 2: truncate oversized content, oldest first, re-checking as we go
	for i := range t.Log.Events {
		evt := &t.Log.Events[i]
		if len(evt.Content) > l.bounds.MaxContentChars {
			evt.Content = clipRunes(evt.Content, l.bounds.MaxContentChars) + TruncationMarker
			evt.RawContent = ""
			if serializedLen(t.Log.Events) <= l.bounds.MaxSerializedChars {
				return
			}
		}
	}

	if over := serializedLen(t.Log.Events) - l.bounds.MaxSerializedChars; over > 0 {
		l.logger.Warn("ledger still over size budget after truncation",
			"task_id", t.ID,
			"overflow_chars", over)
	}
}

func serializedLen(events []protocol.ConversationEvent) int {
	data, err := json.Marshal(events)
	if err != nil {
		return 0
	}
	return len(data)
}

// refreshSummary recomputes the cheap last-message triple
func refreshSummary(log *protocol.ConversationLog) {
	if len(log.Events) == 0 {
		log.LastMessageAt = nil
		log.LastSender = ""
		log.LastSnippet = ""
		return
	}
	last := log.Events[len(log.Events)-1]
	ts := last.Timestamp
	log.LastMessageAt = &ts
	log.LastSender = last.SenderIdentity
	log.LastSnippet = Snippet(last.Content)
}

// Snippet collapses whitespace and clips to SnippetMax bytes
func Snippet(content string) string {
	return clipRunes(strings.Join(strings.Fields(content), " "), SnippetMax)
}

// clipRunes clips s to at most max bytes without splitting a rune
func clipRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
