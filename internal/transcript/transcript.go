// Package transcript converts a task's conversation ledger into the
// chronological, attributed form the classifier consumes, and renders the
// same history for console display.
package transcript

import (
	"fmt"
	"strings"

	"github.com/iambrandonn/liaison/internal/classify"
	"github.com/iambrandonn/liaison/internal/protocol"
)

// Build produces the classifier transcript from the task's ledger. Events
// are already in chronological append order; system notes are included so
// the classifier sees decision outcomes in context.
func Build(t *protocol.Task) []classify.TranscriptLine {
	lines := make([]classify.TranscriptLine, 0, len(t.Log.Events))
	for _, evt := range t.Log.Events {
		lines = append(lines, classify.TranscriptLine{
			MessageID: evt.ID,
			Role:      evt.SenderRole,
			Sender:    evt.SenderIdentity,
			Timestamp: evt.Timestamp,
			Content:   evt.Content,
		})
	}
	return lines
}

// Format renders the conversation for console output
func Format(t *protocol.Task) string {
	if len(t.Log.Events) == 0 {
		return "(no conversation yet)"
	}

	var b strings.Builder
	for _, evt := range t.Log.Events {
		ts := evt.Timestamp.Format("2006-01-02 15:04")
		switch evt.SenderRole {
		case protocol.RoleSystem:
			fmt.Fprintf(&b, "[%s] -- %s\n", ts, evt.Content)
		default:
			fmt.Fprintf(&b, "[%s] %s (%s): %s\n", ts, evt.SenderIdentity, evt.SenderRole, evt.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatSummary renders the cheap last-message summary triple
func FormatSummary(t *protocol.Task) string {
	if t.Log.LastMessageAt == nil {
		return "(no messages)"
	}
	return fmt.Sprintf("%s  %s: %s",
		t.Log.LastMessageAt.Format("2006-01-02 15:04"),
		t.Log.LastSender,
		t.Log.LastSnippet)
}
