package protocol

import (
	"time"
)

// Role identifies which side of the conversation a message came from
type Role string

const (
	RoleDelegator Role = "delegator"
	RoleDelegate  Role = "delegate"
	RoleSystem    Role = "system"
)

// Counterpart returns the other human party. System has no counterpart.
func (r Role) Counterpart() Role {
	switch r {
	case RoleDelegator:
		return RoleDelegate
	case RoleDelegate:
		return RoleDelegator
	default:
		return ""
	}
}

// TaskStatus is the coarse lifecycle bucket for a task.
// It is deliberately coarser than ConversationState: most conversation
// activity happens while the status stays active.
type TaskStatus string

const (
	StatusDrafted           TaskStatus = "drafted"
	StatusAwaitingFirstResp TaskStatus = "awaiting_first_response"
	StatusActive            TaskStatus = "active"
	StatusBlocked           TaskStatus = "blocked"
	StatusCompletionPending TaskStatus = "completion_pending"
	StatusClosed            TaskStatus = "closed"
	StatusCancelled         TaskStatus = "cancelled"
)

// ConversationState is the fine-grained negotiation state derived from
// the conversation, persisted as a string.
type ConversationState string

const (
	ConvActive               ConversationState = "active"
	ConvUpdateReceived       ConversationState = "update_received"
	ConvChangeRequested      ConversationState = "change_requested"
	ConvCompletionPending    ConversationState = "completion_pending"
	ConvBlockerReported      ConversationState = "blocker_reported"
	ConvAwaitingCounterpart  ConversationState = "awaiting_counterpart"
	ConvAwaitingConfirmation ConversationState = "awaiting_confirmation"
	ConvCounterpartProposed  ConversationState = "counterpart_proposed"
	ConvNegotiating          ConversationState = "negotiating"
	ConvResolved             ConversationState = "resolved"
	ConvRejected             ConversationState = "rejected"
)

// ValidConversationState reports whether s is a member of the known enum.
// Classifier output must be validated through this before being persisted.
func ValidConversationState(s ConversationState) bool {
	switch s {
	case ConvActive, ConvUpdateReceived, ConvChangeRequested,
		ConvCompletionPending, ConvBlockerReported, ConvAwaitingCounterpart,
		ConvAwaitingConfirmation, ConvCounterpartProposed, ConvNegotiating,
		ConvResolved, ConvRejected:
		return true
	default:
		return false
	}
}

// Parameter names a negotiable task parameter
type Parameter string

const (
	ParamName    Parameter = "name"
	ParamDueDate Parameter = "due_date"
	ParamScope   Parameter = "scope"
)

// ChangeStatus tracks a PendingChange through its life
type ChangeStatus string

const (
	ChangePending   ChangeStatus = "pending"
	ChangeApproved  ChangeStatus = "approved"
	ChangeRejected  ChangeStatus = "rejected"
	ChangeConfirmed ChangeStatus = "confirmed"
)

// InboundMessage is the shape delivered by the messaging collaborator
type InboundMessage struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	From      string    `json:"from"`
	PlainBody string    `json:"plain_body"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationEvent is one immutable entry in a task's conversation ledger
type ConversationEvent struct {
	ID             string            `json:"id"`
	Timestamp      time.Time         `json:"timestamp"`
	SenderRole     Role              `json:"sender_role"`
	SenderIdentity string            `json:"sender_identity"`
	Type           string            `json:"type"`
	Content        string            `json:"content"`
	RawContent     string            `json:"raw_content,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// ConversationLog holds a task's bounded event history plus a cheap
// last-message summary that can be displayed without re-parsing the events.
type ConversationLog struct {
	Events        []ConversationEvent `json:"events"`
	LastMessageAt *time.Time          `json:"last_message_at,omitempty"`
	LastSender    string              `json:"last_sender,omitempty"`
	LastSnippet   string              `json:"last_snippet,omitempty"`
}

// PendingChange is an outstanding proposal extracted from the conversation.
// Multiple may coexist for different parameters; they are facts, separate
// from the single-slot PendingDecision confirmation protocol.
type PendingChange struct {
	ID               string       `json:"id"`
	Parameter        Parameter    `json:"parameter"`
	ChangeType       string       `json:"change_type"`
	CurrentValue     string       `json:"current_value"`
	ProposedValue    string       `json:"proposed_value"`
	RequestedBy      Role         `json:"requested_by"`
	AwaitingFrom     Role         `json:"awaiting_from,omitempty"`
	RequiresApproval bool         `json:"requires_approval"`
	Status           ChangeStatus `json:"status"`
	Reasoning        string       `json:"reasoning,omitempty"`
}

// PendingDecision is the one live two-party negotiation on a parameter.
// A task holds at most one per parameter; it is cleared only by explicit
// confirmation, explicit rejection, or replacement by a counter-proposal.
type PendingDecision struct {
	Type          string    `json:"type"`
	Parameter     Parameter `json:"parameter"`
	CurrentValue  string    `json:"current_value"`
	ProposedValue string    `json:"proposed_value"`
	RequestedBy   Role      `json:"requested_by"`
	AwaitingFrom  Role      `json:"awaiting_from"`
	MessageID     string    `json:"message_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Snapshot field keys, used in provenance maps
const (
	FieldName             = "name"
	FieldDueDateEffective = "due_date_effective"
	FieldDueDateProposed  = "due_date_proposed"
	FieldScopeSummary     = "scope_summary"
)

// FieldProvenance records which message a derived value came from and how
// confident the extractor was.
type FieldProvenance struct {
	SourceMessageID string    `json:"source_message_id"`
	SourceSnippet   string    `json:"source_snippet,omitempty"`
	Confidence      float64   `json:"confidence"`
	ExtractedAt     time.Time `json:"extracted_at"`
}

// DerivedSnapshot is the classifier's best current reconstruction of the
// task's true parameters. Dates are ISO strings (YYYY-MM-DD).
type DerivedSnapshot struct {
	Name             string `json:"name,omitempty"`
	DueDateEffective string `json:"due_date_effective,omitempty"`
	DueDateProposed  string `json:"due_date_proposed,omitempty"`
	ScopeSummary     string `json:"scope_summary,omitempty"`
}

// Field returns the snapshot value for a field key
func (s *DerivedSnapshot) Field(key string) string {
	switch key {
	case FieldName:
		return s.Name
	case FieldDueDateEffective:
		return s.DueDateEffective
	case FieldDueDateProposed:
		return s.DueDateProposed
	case FieldScopeSummary:
		return s.ScopeSummary
	default:
		return ""
	}
}

// SetField sets the snapshot value for a field key
func (s *DerivedSnapshot) SetField(key, value string) {
	switch key {
	case FieldName:
		s.Name = value
	case FieldDueDateEffective:
		s.DueDateEffective = value
	case FieldDueDateProposed:
		s.DueDateProposed = value
	case FieldScopeSummary:
		s.ScopeSummary = value
	}
}

// SnapshotFields lists the tracked snapshot field keys in display order
func SnapshotFields() []string {
	return []string{FieldName, FieldDueDateEffective, FieldDueDateProposed, FieldScopeSummary}
}

// Task is the unit of work: effective parameters plus all derived
// conversation state. It is persisted as a single keyed record; the store
// offers no multi-row transactions, so everything a reconcile run needs
// lives on this one struct.
type Task struct {
	ID string `json:"id"`

	// Effective parameters
	Name             string `json:"name"`
	DueDate          string `json:"due_date,omitempty"`
	Scope            string `json:"scope,omitempty"`
	DelegatorAddress string `json:"delegator_address"`
	DelegateAddress  string `json:"delegate_address"`

	// Message-thread correlation
	ThreadID string `json:"thread_id,omitempty"`

	Status            TaskStatus        `json:"status"`
	ConversationState ConversationState `json:"conversation_state"`

	PendingChanges  []PendingChange  `json:"pending_changes,omitempty"`
	PendingDecision *PendingDecision `json:"pending_decision,omitempty"`

	Snapshot   DerivedSnapshot            `json:"derived_snapshot"`
	Provenance map[string]FieldProvenance `json:"derived_provenance,omitempty"`

	Log ConversationLog `json:"conversation_log"`

	// Processed inbound message ids (at-most-once guard)
	ProcessedMessageIDs []string `json:"processed_message_ids,omitempty"`

	// Classifier-produced one-sentence summary of where things stand
	AnalysisSummary string `json:"analysis_summary,omitempty"`
	RequiresAction  bool   `json:"requires_action,omitempty"`

	LastAnalyzedAt *time.Time `json:"last_analyzed_at,omitempty"`
	FollowUpSentAt *time.Time `json:"follow_up_sent_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DecisionFor returns the pending decision if it targets the given
// parameter, nil otherwise.
func (t *Task) DecisionFor(param Parameter) *PendingDecision {
	if t.PendingDecision != nil && t.PendingDecision.Parameter == param {
		return t.PendingDecision
	}
	return nil
}

// EffectiveValue returns the task's current effective value for a parameter
func (t *Task) EffectiveValue(param Parameter) string {
	switch param {
	case ParamName:
		return t.Name
	case ParamDueDate:
		return t.DueDate
	case ParamScope:
		return t.Scope
	default:
		return ""
	}
}

// SetEffectiveValue sets the task's effective value for a parameter
func (t *Task) SetEffectiveValue(param Parameter, value string) {
	switch param {
	case ParamName:
		t.Name = value
	case ParamDueDate:
		t.DueDate = value
	case ParamScope:
		t.Scope = value
	}
}
