// Package decision manages the single-slot two-party negotiation over a
// task parameter. A delegator-proposed change applies as soon as the
// delegate accepts it; a delegate-proposed change needs the delegator's
// approval and then the delegate's confirmation. An open slot is never
// silently dropped; only confirmation, rejection, or a replacing
// counter-proposal on the same parameter clears or changes it.
package decision

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/iambrandonn/liaison/internal/protocol"
)

// OutcomeKind labels what a decision operation did
type OutcomeKind string

const (
	// OutcomeNone means the slot was untouched
	OutcomeNone OutcomeKind = "none"
	// OutcomeProposed means a new negotiation slot was opened
	OutcomeProposed OutcomeKind = "proposed"
	// OutcomeApproved means the counterpart accepted; the original proposer
	// must still confirm before the value applies
	OutcomeApproved OutcomeKind = "approved"
	// OutcomeApplied means the proposal was confirmed and is now effective
	OutcomeApplied OutcomeKind = "applied"
	// OutcomeReplaced means a counter-proposal took over the slot
	OutcomeReplaced OutcomeKind = "replaced"
	// OutcomeRejected means the slot was cleared by an explicit rejection
	OutcomeRejected OutcomeKind = "rejected"
)

// Outcome describes the result of applying a message to the decision slot
type Outcome struct {
	Kind     OutcomeKind
	Decision *protocol.PendingDecision
	// State is the conversation state implied by the outcome
	State protocol.ConversationState
	// Summary is a one-sentence record suitable for the other party
	Summary string
}

// Manager mutates the task's decision slot. All operations run inside the
// single-threaded ingestion model; conflicting writes are last-write-wins
// at the storage layer.
type Manager struct {
	logger *slog.Logger
}

// New creates a decision manager
func New(logger *slog.Logger) *Manager {
	return &Manager{logger: logger}
}

// Propose opens the negotiation slot for a parameter. If a slot for the
// same parameter already exists with the same proposed value and proposer,
// the proposal is idempotent and nothing changes. A slot open on a
// different parameter blocks the proposal entirely: one negotiation at a
// time, and the open one is never displaced.
func (m *Manager) Propose(t *protocol.Task, param protocol.Parameter, proposed string, requestedBy protocol.Role, messageID string) Outcome {
	if open := t.PendingDecision; open != nil && open.Parameter != param {
		m.logger.Warn("proposal deferred, another negotiation is open",
			"task_id", t.ID,
			"parameter", string(param),
			"open_parameter", string(open.Parameter))
		return Outcome{Kind: OutcomeNone, Decision: open, State: t.ConversationState}
	}
	existing := t.DecisionFor(param)
	if existing != nil && existing.ProposedValue == proposed && existing.RequestedBy == requestedBy {
		return Outcome{Kind: OutcomeNone, Decision: existing, State: t.ConversationState}
	}

	dec := &protocol.PendingDecision{
		Type:          "parameter_change",
		Parameter:     param,
		CurrentValue:  t.EffectiveValue(param),
		ProposedValue: proposed,
		RequestedBy:   requestedBy,
		AwaitingFrom:  requestedBy.Counterpart(),
		MessageID:     messageID,
		CreatedAt:     time.Now().UTC(),
	}
	t.PendingDecision = dec

	m.logger.Info("negotiation opened",
		"task_id", t.ID,
		"parameter", string(param),
		"proposed", proposed,
		"requested_by", string(requestedBy),
		"awaiting_from", string(dec.AwaitingFrom))

	return Outcome{
		Kind:     OutcomeProposed,
		Decision: dec,
		State:    protocol.ConvChangeRequested,
		Summary:  fmt.Sprintf("%s proposed changing %s to %q; awaiting %s.", requestedBy, param, proposed, dec.AwaitingFrom),
	}
}

// Accept processes an acceptance from the awaited party. The two sides are
// not symmetric: a delegator-proposed change applies the moment the delegate
// accepts it, while a delegate-proposed change needs the delegator's
// approval and then the delegate's confirmation before it lands. Acceptances
// from a party that is not awaited leave the slot untouched.
func (m *Manager) Accept(t *protocol.Task, from protocol.Role) Outcome {
	dec := t.PendingDecision
	if dec == nil || from != dec.AwaitingFrom {
		return Outcome{Kind: OutcomeNone, Decision: dec, State: t.ConversationState}
	}

	if from != dec.RequestedBy && dec.RequestedBy == protocol.RoleDelegate {
		// Delegator approval of the delegate's request: the delegate must
		// still confirm
		dec.AwaitingFrom = dec.RequestedBy
		m.logger.Info("proposal approved, awaiting proposer confirmation",
			"task_id", t.ID,
			"parameter", string(dec.Parameter),
			"proposed", dec.ProposedValue,
			"awaiting_from", string(dec.AwaitingFrom))
		return Outcome{
			Kind:     OutcomeApproved,
			Decision: dec,
			State:    protocol.ConvAwaitingConfirmation,
			Summary:  fmt.Sprintf("%s approved changing %s to %q; awaiting %s confirmation.", from, dec.Parameter, dec.ProposedValue, dec.AwaitingFrom),
		}
	}

	// Either the proposer confirming an approved change, or the delegate
	// accepting the delegator's request outright: the value becomes
	// effective
	applied := dec.ProposedValue
	param := dec.Parameter
	t.SetEffectiveValue(param, applied)
	t.PendingDecision = nil

	m.logger.Info("proposal confirmed and applied",
		"task_id", t.ID,
		"parameter", string(param),
		"value", applied)

	return Outcome{
		Kind:     OutcomeApplied,
		Decision: dec,
		State:    protocol.ConvResolved,
		Summary:  fmt.Sprintf("%s is now %q, confirmed by the %s.", param, applied, from),
	}
}

// Counter replaces the slot with a different value raised by the awaited
// party: roles flip and the old proposal is discarded in favor of the new
// one. The slot never lands on empty through this path.
func (m *Manager) Counter(t *protocol.Task, from protocol.Role, proposed string, messageID string) Outcome {
	dec := t.PendingDecision
	if dec == nil || from != dec.AwaitingFrom {
		return Outcome{Kind: OutcomeNone, Decision: dec, State: t.ConversationState}
	}
	if proposed == "" || proposed == dec.ProposedValue {
		// Same value restated is agreement territory, not a counter
		return Outcome{Kind: OutcomeNone, Decision: dec, State: t.ConversationState}
	}

	dec.ProposedValue = proposed
	dec.CurrentValue = t.EffectiveValue(dec.Parameter)
	dec.RequestedBy = from
	dec.AwaitingFrom = from.Counterpart()
	dec.MessageID = messageID
	dec.CreatedAt = time.Now().UTC()

	m.logger.Info("counter-proposal replaced negotiation",
		"task_id", t.ID,
		"parameter", string(dec.Parameter),
		"proposed", proposed,
		"requested_by", string(from),
		"awaiting_from", string(dec.AwaitingFrom))

	return Outcome{
		Kind:     OutcomeReplaced,
		Decision: dec,
		State:    protocol.ConvCounterpartProposed,
		Summary:  fmt.Sprintf("%s countered with %s %q; awaiting %s.", from, dec.Parameter, proposed, dec.AwaitingFrom),
	}
}

// Reject clears the slot on an explicit rejection. The conversation state
// moves to awaiting the original proposer, who must decide how to proceed;
// a rejection never leaves the task looking resolved.
func (m *Manager) Reject(t *protocol.Task, from protocol.Role) Outcome {
	dec := t.PendingDecision
	if dec == nil || from != dec.AwaitingFrom {
		return Outcome{Kind: OutcomeNone, Decision: dec, State: t.ConversationState}
	}

	param := dec.Parameter
	proposed := dec.ProposedValue
	proposer := dec.RequestedBy
	t.PendingDecision = nil

	m.logger.Info("proposal rejected",
		"task_id", t.ID,
		"parameter", string(param),
		"proposed", proposed,
		"rejected_by", string(from))

	return Outcome{
		Kind:    OutcomeRejected,
		State:   protocol.ConvAwaitingCounterpart,
		Summary: fmt.Sprintf("%s rejected changing %s to %q; awaiting next step from %s.", from, param, proposed, proposer),
	}
}
