package task

import (
	"fmt"

	"github.com/iambrandonn/liaison/internal/protocol"
)

// Trigger is a lifecycle-moving occurrence. Only first-response, blockers,
// completion and cancellation move the coarse status; day-to-day negotiation
// stays within the conversation state.
type Trigger string

const (
	TriggerAssigned           Trigger = "assigned"
	TriggerFirstAcceptance    Trigger = "first_acceptance"
	TriggerBlockerReported    Trigger = "blocker_reported"
	TriggerBlockerCleared     Trigger = "blocker_cleared"
	TriggerCompletionClaimed  Trigger = "completion_claimed"
	TriggerCompletionApproved Trigger = "completion_approved"
	TriggerCompletionRejected Trigger = "completion_rejected"
	TriggerCancelled          Trigger = "cancelled"
)

// InvalidTransitionError reports a trigger that does not apply to the
// current status.
type InvalidTransitionError struct {
	From    protocol.TaskStatus
	Trigger Trigger
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid lifecycle transition: %s from status %s", e.Trigger, e.From)
}

// Next returns the status a trigger moves the task to. Cancellation is
// reachable from any non-closed state; everything else is position-specific.
func Next(current protocol.TaskStatus, trig Trigger) (protocol.TaskStatus, error) {
	if trig == TriggerCancelled {
		if current == protocol.StatusClosed || current == protocol.StatusCancelled {
			return current, &InvalidTransitionError{From: current, Trigger: trig}
		}
		return protocol.StatusCancelled, nil
	}

	switch current {
	case protocol.StatusDrafted:
		if trig == TriggerAssigned {
			return protocol.StatusAwaitingFirstResp, nil
		}
	case protocol.StatusAwaitingFirstResp:
		if trig == TriggerFirstAcceptance {
			return protocol.StatusActive, nil
		}
	case protocol.StatusActive:
		switch trig {
		case TriggerBlockerReported:
			return protocol.StatusBlocked, nil
		case TriggerCompletionClaimed:
			return protocol.StatusCompletionPending, nil
		}
	case protocol.StatusBlocked:
		if trig == TriggerBlockerCleared {
			return protocol.StatusActive, nil
		}
	case protocol.StatusCompletionPending:
		switch trig {
		case TriggerCompletionApproved:
			return protocol.StatusClosed, nil
		case TriggerCompletionRejected:
			return protocol.StatusActive, nil
		}
	}

	return current, &InvalidTransitionError{From: current, Trigger: trig}
}

// FromConversation derives the lifecycle trigger, if any, implied by the
// merged conversation state and the role that sent the latest message.
// Returns false when the conversation activity has no lifecycle effect.
func FromConversation(status protocol.TaskStatus, conv protocol.ConversationState, sender protocol.Role) (Trigger, bool) {
	switch status {
	case protocol.StatusAwaitingFirstResp:
		if sender == protocol.RoleDelegate {
			return TriggerFirstAcceptance, true
		}
	case protocol.StatusActive:
		switch conv {
		case protocol.ConvBlockerReported:
			return TriggerBlockerReported, true
		case protocol.ConvCompletionPending:
			return TriggerCompletionClaimed, true
		}
	case protocol.StatusBlocked:
		switch conv {
		case protocol.ConvActive, protocol.ConvUpdateReceived, protocol.ConvResolved:
			return TriggerBlockerCleared, true
		}
	case protocol.StatusCompletionPending:
		if sender == protocol.RoleDelegator {
			switch conv {
			case protocol.ConvResolved:
				return TriggerCompletionApproved, true
			case protocol.ConvRejected:
				return TriggerCompletionRejected, true
			}
		}
	}
	return "", false
}

// Apply advances the task's status for a trigger. On completion rejection
// the caller is expected to append a system note to the ledger; Apply only
// moves the status.
func Apply(t *protocol.Task, trig Trigger) error {
	next, err := Next(t.Status, trig)
	if err != nil {
		return err
	}
	t.Status = next
	return nil
}
