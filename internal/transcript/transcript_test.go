package transcript

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iambrandonn/liaison/internal/protocol"
)

func sampleTask() *protocol.Task {
	t1 := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Minute)
	task := &protocol.Task{
		Log: protocol.ConversationLog{
			Events: []protocol.ConversationEvent{
				{
					ID:             "m1",
					Timestamp:      t1,
					SenderRole:     protocol.RoleDelegator,
					SenderIdentity: "dana@example.com",
					Content:        "Can you own the Q1 report?",
				},
				{
					ID:             "m2",
					Timestamp:      t2,
					SenderRole:     protocol.RoleDelegate,
					SenderIdentity: "sam@example.com",
					Content:        "Yes, on it.",
				},
				{
					ID:             "n1",
					Timestamp:      t3,
					SenderRole:     protocol.RoleSystem,
					SenderIdentity: "liaison",
					Type:           "system-note",
					Content:        "Task moved to active.",
				},
			},
			LastMessageAt: &t3,
			LastSender:    "liaison",
			LastSnippet:   "Task moved to active.",
		},
	}
	return task
}

func TestBuildIncludesSystemNotes(t *testing.T) {
	lines := Build(sampleTask())

	require.Len(t, lines, 3)
	require.Equal(t, "m1", lines[0].MessageID)
	require.Equal(t, protocol.RoleDelegator, lines[0].Role)
	require.Equal(t, "Can you own the Q1 report?", lines[0].Content)
	require.Equal(t, protocol.RoleSystem, lines[2].Role)
}

func TestBuildEmptyLedger(t *testing.T) {
	require.Empty(t, Build(&protocol.Task{}))
}

func TestFormat(t *testing.T) {
	out := Format(sampleTask())

	require.Contains(t, out, "[2026-02-10 09:00] dana@example.com (delegator): Can you own the Q1 report?")
	require.Contains(t, out, "[2026-02-10 10:00] sam@example.com (delegate): Yes, on it.")
	require.Contains(t, out, "[2026-02-10 10:01] -- Task moved to active.")
}

func TestFormatEmpty(t *testing.T) {
	require.Equal(t, "(no conversation yet)", Format(&protocol.Task{}))
}

func TestFormatSummary(t *testing.T) {
	require.Equal(t, "2026-02-10 10:01  liaison: Task moved to active.", FormatSummary(sampleTask()))
	require.Equal(t, "(no messages)", FormatSummary(&protocol.Task{}))
}
