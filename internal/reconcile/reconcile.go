// Package reconcile merges classifier output into durable task state. The
// merge is guarded: pending negotiations are never silently cleared, and
// derived fields only move when the extraction clears the confidence gate.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iambrandonn/liaison/internal/classify"
	"github.com/iambrandonn/liaison/internal/dates"
	"github.com/iambrandonn/liaison/internal/decision"
	"github.com/iambrandonn/liaison/internal/ledger"
	"github.com/iambrandonn/liaison/internal/protocol"
	"github.com/iambrandonn/liaison/internal/store"
	"github.com/iambrandonn/liaison/internal/task"
	"github.com/iambrandonn/liaison/internal/transcript"
)

// ConfidenceThreshold gates replacement of an already-populated snapshot
// field. Empty fields may be seeded by lower-confidence extractions.
const ConfidenceThreshold = 0.6

// Engine rebuilds a task's derived state from its conversation ledger
type Engine struct {
	repo      store.Repository
	adapter   classify.Adapter
	ledger    *ledger.Ledger
	decisions *decision.Manager
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a reconciliation engine
func New(repo store.Repository, adapter classify.Adapter, led *ledger.Ledger, decisions *decision.Manager, logger *slog.Logger) *Engine {
	return &Engine{
		repo:      repo,
		adapter:   adapter,
		ledger:    led,
		decisions: decisions,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile loads the task, merges classifier output, and persists the
// result. Safe to call repeatedly: given the same ledger contents the
// second run is a no-op.
func (e *Engine) Reconcile(ctx context.Context, taskID string) (protocol.DerivedSnapshot, error) {
	t, err := e.repo.GetTask(ctx, taskID)
	if err != nil {
		return protocol.DerivedSnapshot{}, fmt.Errorf("reconcile: %w", err)
	}

	e.ReconcileTask(ctx, t)

	if err := e.repo.SaveTask(ctx, t); err != nil {
		return protocol.DerivedSnapshot{}, fmt.Errorf("reconcile: %w", err)
	}
	return t.Snapshot, nil
}

// ReconcileTask merges derived state into an already-loaded task without
// persisting, so a caller mid-ingestion can fold the result into its own
// single durable write. Classifier failure leaves the task untouched
// except for the analysis timestamp.
func (e *Engine) ReconcileTask(ctx context.Context, t *protocol.Task) {
	lines := transcript.Build(t)
	if len(lines) == 0 {
		return
	}

	input := classify.Input{
		TaskID:            t.ID,
		Transcript:        lines,
		Name:              t.Name,
		DueDate:           t.DueDate,
		Scope:             t.Scope,
		Status:            t.Status,
		ConversationState: t.ConversationState,
		PendingDecision:   t.PendingDecision,
		PendingChanges:    t.PendingChanges,
	}
	if dec := t.DecisionFor(protocol.ParamDueDate); dec != nil {
		input.ProposedDueDate = dec.ProposedValue
	}

	result, err := e.adapter.Classify(ctx, input)
	if err != nil {
		// Classification failure means no new information: prior state,
		// pending changes, and the decision slot all stay as they were.
		e.logger.Warn("classification failed, retaining prior state",
			"task_id", t.ID,
			"error", err)
		now := e.now()
		t.LastAnalyzedAt = &now
		return
	}
	result = classify.Sanitize(result, e.logger)

	latest := latestHumanEvent(t)

	// Route the latest message through the decision slot before anything
	// else: explicit protocol semantics outrank classifier inference.
	outcome := e.routeDecision(t, result, latest)

	e.mergePendingChanges(t, result)
	e.mergeConversationState(t, result, outcome)
	e.mergeSnapshot(t, result)
	e.fillDatesFallback(t, latest)
	e.advanceLifecycle(t, latest)

	if result.Summary != "" {
		t.AnalysisSummary = result.Summary
	}
	t.RequiresAction = result.RequiresAction

	now := e.now()
	t.LastAnalyzedAt = &now
}

// routeDecision applies the latest message's classified intent to the
// single-slot negotiation. Returns the outcome (OutcomeNone when the
// message had no protocol effect).
func (e *Engine) routeDecision(t *protocol.Task, result *classify.Result, latest *protocol.ConversationEvent) decision.Outcome {
	if latest == nil {
		return decision.Outcome{Kind: decision.OutcomeNone}
	}
	sender := latest.SenderRole

	switch result.Intent {
	case classify.IntentAcceptance:
		out := e.decisions.Accept(t, sender)
		if out.Kind == decision.OutcomeApplied && out.Decision != nil {
			e.recordAppliedValue(t, out.Decision.Parameter, latest)
		}
		e.noteOutcome(t, out)
		return out

	case classify.IntentRejection:
		out := e.decisions.Reject(t, sender)
		e.noteOutcome(t, out)
		return out

	case classify.IntentCounterProposal, classify.IntentChangeRequest:
		param, proposed := proposalFrom(result)
		if proposed == "" {
			return decision.Outcome{Kind: decision.OutcomeNone}
		}
		var out decision.Outcome
		if dec := t.PendingDecision; dec != nil && dec.Parameter == param && sender == dec.AwaitingFrom {
			out = e.decisions.Counter(t, sender, proposed, latest.ID)
		} else if t.PendingDecision == nil {
			out = e.decisions.Propose(t, param, proposed, sender, latest.ID)
		} else {
			// A negotiation is open on another parameter (or the sender is
			// not the awaited party); the request survives as a pending
			// change without touching the slot.
			out = decision.Outcome{Kind: decision.OutcomeNone}
		}
		e.noteOutcome(t, out)
		return out
	}

	return decision.Outcome{Kind: decision.OutcomeNone}
}

// recordAppliedValue updates the snapshot when a negotiation lands: the
// effective parameter moved via the explicit protocol, so provenance notes
// full confidence in the confirming message.
func (e *Engine) recordAppliedValue(t *protocol.Task, param protocol.Parameter, latest *protocol.ConversationEvent) {
	if t.Provenance == nil {
		t.Provenance = map[string]protocol.FieldProvenance{}
	}
	var field string
	switch param {
	case protocol.ParamName:
		field = protocol.FieldName
	case protocol.ParamDueDate:
		field = protocol.FieldDueDateEffective
		t.Snapshot.DueDateProposed = ""
		delete(t.Provenance, protocol.FieldDueDateProposed)
	case protocol.ParamScope:
		field = protocol.FieldScopeSummary
	default:
		return
	}
	t.Snapshot.SetField(field, t.EffectiveValue(param))
	t.Provenance[field] = protocol.FieldProvenance{
		SourceMessageID: latest.ID,
		SourceSnippet:   ledger.Snippet(latest.Content),
		Confidence:      1.0,
		ExtractedAt:     e.now(),
	}
}

func (e *Engine) noteOutcome(t *protocol.Task, out decision.Outcome) {
	if out.Kind == decision.OutcomeNone || out.Summary == "" {
		return
	}
	e.ledger.AppendSystemNote(t, out.Summary)
}

// mergePendingChanges keeps the existing list when the adapter returns
// nothing: the classifier only reliably detects new requests, not the
// absence of old ones.
func (e *Engine) mergePendingChanges(t *protocol.Task, result *classify.Result) {
	if len(result.PendingChanges) == 0 {
		return
	}
	changes := make([]protocol.PendingChange, 0, len(result.PendingChanges))
	for _, ch := range result.PendingChanges {
		if ch.ID == "" {
			// Re-detections of a change already tracked keep their id, so
			// re-running reconciliation over an unchanged ledger is a no-op.
			if existing := matchingChange(t, ch); existing != nil {
				ch.ID = existing.ID
			} else {
				ch.ID = uuid.New().String()
			}
		}
		if ch.Status == "" {
			ch.Status = protocol.ChangePending
		}
		changes = append(changes, ch)
	}
	t.PendingChanges = changes
}

func matchingChange(t *protocol.Task, ch protocol.PendingChange) *protocol.PendingChange {
	for i := range t.PendingChanges {
		existing := &t.PendingChanges[i]
		if existing.Parameter == ch.Parameter && existing.ProposedValue == ch.ProposedValue {
			return existing
		}
	}
	return nil
}

// mergeConversationState picks the new conversation state: an explicit
// decision outcome wins over classifier inference, and an open negotiation
// can never be talked into resolved or active by the classifier alone.
func (e *Engine) mergeConversationState(t *protocol.Task, result *classify.Result, outcome decision.Outcome) {
	state := result.ConversationState
	if outcome.Kind != decision.OutcomeNone {
		state = outcome.State
	}

	if t.PendingDecision != nil &&
		(state == protocol.ConvResolved || state == protocol.ConvActive) {
		forced := protocol.ConvAwaitingCounterpart
		if t.PendingDecision.AwaitingFrom == t.PendingDecision.RequestedBy {
			forced = protocol.ConvAwaitingConfirmation
		}
		e.logger.Info("awaiting-confirmation override",
			"task_id", t.ID,
			"classifier_state", string(state),
			"forced_state", string(forced),
			"awaiting_from", string(t.PendingDecision.AwaitingFrom))
		state = forced
	}

	t.ConversationState = state
}

// mergeSnapshot applies the confidence-gated field merge: a populated field
// is replaced only by a non-empty extraction at or above the threshold; an
// empty field may be seeded by any non-empty extraction.
func (e *Engine) mergeSnapshot(t *protocol.Task, result *classify.Result) {
	if t.Provenance == nil {
		t.Provenance = map[string]protocol.FieldProvenance{}
	}
	for _, field := range protocol.SnapshotFields() {
		newVal := result.Snapshot.Field(field)
		if newVal == "" {
			continue
		}
		prov := result.Provenance[field]
		current := t.Snapshot.Field(field)
		if current != "" && prov.Confidence < ConfidenceThreshold {
			e.logger.Debug("extraction below confidence gate, keeping prior value",
				"task_id", t.ID,
				"field", field,
				"confidence", prov.Confidence)
			continue
		}
		if current == newVal {
			continue
		}
		if prov.ExtractedAt.IsZero() {
			prov.ExtractedAt = e.now()
		}
		t.Snapshot.SetField(field, newVal)
		t.Provenance[field] = prov
	}
}

// fillDatesFallback runs the regex extractor over the latest message and
// fills a due-date field only when the classifier left it empty. The fixed
// low confidence means it can never displace a classifier value later.
func (e *Engine) fillDatesFallback(t *protocol.Task, latest *protocol.ConversationEvent) {
	if latest == nil {
		return
	}

	target := protocol.FieldDueDateEffective
	if t.DecisionFor(protocol.ParamDueDate) != nil {
		target = protocol.FieldDueDateProposed
	}
	if t.Snapshot.Field(target) != "" {
		return
	}

	date, snippet, ok := dates.Extract(latest.Content, latest.Timestamp)
	if !ok {
		return
	}

	t.Snapshot.SetField(target, date)
	t.Provenance[target] = protocol.FieldProvenance{
		SourceMessageID: latest.ID,
		SourceSnippet:   snippet,
		Confidence:      dates.Confidence,
		ExtractedAt:     e.now(),
	}
	e.logger.Debug("date fallback filled empty field",
		"task_id", t.ID,
		"field", target,
		"date", date)
}

// advanceLifecycle moves the coarse status when the merged conversation
// state implies a lifecycle event.
func (e *Engine) advanceLifecycle(t *protocol.Task, latest *protocol.ConversationEvent) {
	if latest == nil {
		return
	}
	trig, ok := task.FromConversation(t.Status, t.ConversationState, latest.SenderRole)
	if !ok {
		return
	}
	prev := t.Status
	if err := task.Apply(t, trig); err != nil {
		return
	}
	e.logger.Info("lifecycle transition",
		"task_id", t.ID,
		"from", string(prev),
		"to", string(t.Status),
		"trigger", string(trig))

	if trig == task.TriggerCompletionRejected {
		e.ledger.AppendSystemNote(t, "Completion rejected by delegator; task returned to active.")
	}
}

// proposalFrom digs the proposed parameter change out of the classifier
// result: the first pending change wins, with the proposed due date as a
// fallback.
func proposalFrom(result *classify.Result) (protocol.Parameter, string) {
	for _, ch := range result.PendingChanges {
		if ch.ProposedValue != "" && ch.Parameter != "" {
			return ch.Parameter, ch.ProposedValue
		}
	}
	if result.Snapshot.DueDateProposed != "" {
		return protocol.ParamDueDate, result.Snapshot.DueDateProposed
	}
	return "", ""
}

// latestHumanEvent returns the most recent non-system ledger event
func latestHumanEvent(t *protocol.Task) *protocol.ConversationEvent {
	for i := len(t.Log.Events) - 1; i >= 0; i-- {
		if t.Log.Events[i].SenderRole != protocol.RoleSystem {
			return &t.Log.Events[i]
		}
	}
	return nil
}
