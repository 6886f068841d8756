// Package classify defines the boundary to the external text classifier.
// The classifier is untrusted and fallible: every caller goes through
// Sanitize, and any error or malformed output is treated as "no new
// information" by the reconcile engine rather than a fatal failure.
package classify

import (
	"context"
	"log/slog"
	"time"

	"github.com/iambrandonn/liaison/internal/protocol"
)

// Intent classifies the latest message in the conversation
type Intent string

const (
	IntentAcceptance      Intent = "acceptance"
	IntentRejection       Intent = "rejection"
	IntentCounterProposal Intent = "counter_proposal"
	IntentChangeRequest   Intent = "change_request"
	IntentStatusUpdate    Intent = "status_update"
	IntentCompletionClaim Intent = "completion_claim"
	IntentBlocker         Intent = "blocker"
	IntentQuestion        Intent = "question"
	IntentOther           Intent = "other"
)

// TranscriptLine is one attributed line of the conversation transcript
type TranscriptLine struct {
	MessageID string        `json:"message_id"`
	Role      protocol.Role `json:"role"`
	Sender    string        `json:"sender"`
	Timestamp time.Time     `json:"timestamp"`
	Content   string        `json:"content"`
}

// Input carries the full chronological transcript plus the task's current
// effective and pending state.
type Input struct {
	TaskID     string           `json:"task_id"`
	Transcript []TranscriptLine `json:"transcript"`

	Name            string `json:"name"`
	DueDate         string `json:"due_date,omitempty"`
	ProposedDueDate string `json:"proposed_due_date,omitempty"`
	Scope           string `json:"scope,omitempty"`

	Status            protocol.TaskStatus        `json:"status"`
	ConversationState protocol.ConversationState `json:"conversation_state"`
	PendingDecision   *protocol.PendingDecision  `json:"pending_decision,omitempty"`
	PendingChanges    []protocol.PendingChange   `json:"pending_changes,omitempty"`
}

// Result is the classifier's output. All fields are optional on the wire;
// Sanitize fills safe defaults.
type Result struct {
	Intent            Intent                              `json:"intent"`
	ConversationState protocol.ConversationState          `json:"conversation_state"`
	PendingChanges    []protocol.PendingChange            `json:"pending_changes,omitempty"`
	Summary           string                              `json:"summary,omitempty"`
	RequiresAction    bool                                `json:"requires_action"`
	Snapshot          protocol.DerivedSnapshot            `json:"task_snapshot"`
	Provenance        map[string]protocol.FieldProvenance `json:"provenance,omitempty"`
}

// Adapter is the single synchronous classifier call
type Adapter interface {
	Classify(ctx context.Context, input Input) (*Result, error)
}

// Sanitize enforces the adapter contract on untrusted output: an
// unrecognized conversation state falls back to active, the intent defaults
// to other, and nil collections become empty ones. Returns the same pointer
// for convenience.
func Sanitize(res *Result, logger *slog.Logger) *Result {
	if res == nil {
		return &Result{
			Intent:            IntentOther,
			ConversationState: protocol.ConvActive,
			Provenance:        map[string]protocol.FieldProvenance{},
		}
	}
	if !protocol.ValidConversationState(res.ConversationState) {
		logger.Warn("classifier returned unknown conversation state, falling back",
			"state", string(res.ConversationState))
		res.ConversationState = protocol.ConvActive
	}
	if res.Intent == "" {
		res.Intent = IntentOther
	}
	if res.Provenance == nil {
		res.Provenance = map[string]protocol.FieldProvenance{}
	}
	return res
}
