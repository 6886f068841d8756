package gateway

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iambrandonn/liaison/internal/classify"
	"github.com/iambrandonn/liaison/internal/decision"
	"github.com/iambrandonn/liaison/internal/ledger"
	"github.com/iambrandonn/liaison/internal/protocol"
	"github.com/iambrandonn/liaison/internal/reconcile"
	"github.com/iambrandonn/liaison/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGateway(t *testing.T, steps ...classify.ScriptStep) (*Gateway, *store.MemoryStore, *classify.ScriptedAdapter) {
	t.Helper()
	logger := testLogger()
	repo := store.NewMemoryStore()
	adapter := classify.NewScriptedAdapter(steps...)
	led := ledger.New(logger)
	engine := reconcile.New(repo, adapter, led, decision.New(logger), logger)
	return New(repo, led, engine, logger), repo, adapter
}

func statusUpdateStep() classify.ScriptStep {
	return classify.ScriptStep{Result: &classify.Result{
		Intent:            classify.IntentStatusUpdate,
		ConversationState: protocol.ConvUpdateReceived,
		Summary:           "Progress report.",
	}}
}

func seedTask(t *testing.T, repo *store.MemoryStore, thread string) {
	t.Helper()
	require.NoError(t, repo.SaveTask(context.Background(), &protocol.Task{
		ID:                "t1",
		Name:              "Q1 report",
		DelegatorAddress:  "dana@example.com",
		DelegateAddress:   "sam@example.com",
		ThreadID:          thread,
		Status:            protocol.StatusActive,
		ConversationState: protocol.ConvActive,
	}))
}

func message(id, thread, from, body string) protocol.InboundMessage {
	return protocol.InboundMessage{
		ID:        id,
		ThreadID:  thread,
		From:      from,
		PlainBody: body,
		Timestamp: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestIngestByThread(t *testing.T) {
	gw, repo, _ := newGateway(t, statusUpdateStep())
	seedTask(t, repo, "thread-1")

	got, err := gw.Ingest(context.Background(), message("m1", "thread-1", "Sam Jones <Sam@Example.com>", "Making good progress."))
	require.NoError(t, err)
	require.Equal(t, "t1", got.ID)
	require.Len(t, got.Log.Events, 1)

	evt := got.Log.Events[0]
	require.Equal(t, protocol.RoleDelegate, evt.SenderRole)
	require.Equal(t, "sam@example.com", evt.SenderIdentity)
	require.Equal(t, "Making good progress.", evt.Content)
	require.Equal(t, []string{"m1"}, got.ProcessedMessageIDs)
	require.Equal(t, protocol.ConvUpdateReceived, got.ConversationState)

	// Persisted, not just returned
	stored, err := repo.GetTask(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, stored.Log.Events, 1)
}

func TestIngestByBodyTaskRef(t *testing.T) {
	gw, repo, _ := newGateway(t, statusUpdateStep())
	seedTask(t, repo, "")

	msg := message("m1", "unknown-thread", "dana@example.com", "Checking in on [task:t1] - any news?")
	got, err := gw.Ingest(context.Background(), msg)
	require.NoError(t, err)
	require.Equal(t, "t1", got.ID)
	require.Equal(t, protocol.RoleDelegator, got.Log.Events[0].SenderRole)

	// The task adopts the thread for future correlation
	require.Equal(t, "unknown-thread", got.ThreadID)
}

func TestIngestDelegateReplyClearsFollowUp(t *testing.T) {
	gw, repo, _ := newGateway(t, statusUpdateStep(), statusUpdateStep())
	seedTask(t, repo, "thread-1")

	ctx := context.Background()
	seeded, err := repo.GetTask(ctx, "t1")
	require.NoError(t, err)
	sent := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	seeded.FollowUpSentAt = &sent
	require.NoError(t, repo.SaveTask(ctx, seeded))

	// A delegator message leaves the marker alone
	got, err := gw.Ingest(ctx, message("m1", "thread-1", "dana@example.com", "Any update?"))
	require.NoError(t, err)
	require.NotNil(t, got.FollowUpSentAt)

	// The delegate's reply clears it
	got, err = gw.Ingest(ctx, message("m2", "thread-1", "sam@example.com", "On it, draft tomorrow."))
	require.NoError(t, err)
	require.Nil(t, got.FollowUpSentAt)
}

func TestIngestByBodyTaskNumberRef(t *testing.T) {
	gw, repo, _ := newGateway(t, statusUpdateStep())
	seedTask(t, repo, "")

	msg := message("m1", "unknown-thread", "dana@example.com", "Any movement on task #t1?")
	got, err := gw.Ingest(context.Background(), msg)
	require.NoError(t, err)
	require.Equal(t, "t1", got.ID)
}

func TestIngestCorrelationFailure(t *testing.T) {
	gw, repo, _ := newGateway(t, statusUpdateStep())
	seedTask(t, repo, "thread-1")

	_, err := gw.Ingest(context.Background(), message("m1", "other-thread", "sam@example.com", "No reference here."))
	require.Error(t, err)
	var corrErr *CorrelationError
	require.ErrorAs(t, err, &corrErr)
	require.Equal(t, "m1", corrErr.MessageID)
}

func TestIngestUnknownSender(t *testing.T) {
	gw, repo, adapter := newGateway(t, statusUpdateStep())
	seedTask(t, repo, "thread-1")

	_, err := gw.Ingest(context.Background(), message("m1", "thread-1", "mallory@example.com", "Let me take over this task."))
	require.Error(t, err)
	var senderErr *UnknownSenderError
	require.ErrorAs(t, err, &senderErr)
	require.Equal(t, "mallory@example.com", senderErr.Sender)

	// Nothing reached the ledger or the classifier
	stored, err := repo.GetTask(context.Background(), "t1")
	require.NoError(t, err)
	require.Empty(t, stored.Log.Events)
	require.Equal(t, 0, adapter.Calls())
}

func TestIngestAlreadyProcessedSkips(t *testing.T) {
	gw, repo, adapter := newGateway(t, statusUpdateStep())
	seedTask(t, repo, "thread-1")
	ctx := context.Background()

	msg := message("m1", "thread-1", "sam@example.com", "First delivery.")
	_, err := gw.Ingest(ctx, msg)
	require.NoError(t, err)
	require.Equal(t, 1, adapter.Calls())

	// Redelivery of the same message id is acknowledged without effect
	got, err := gw.Ingest(ctx, msg)
	require.NoError(t, err)
	require.Len(t, got.Log.Events, 1)
	require.Equal(t, 1, adapter.Calls())
}

func TestIngestNearDuplicateAbsorbed(t *testing.T) {
	gw, repo, adapter := newGateway(t, statusUpdateStep())
	seedTask(t, repo, "thread-1")
	ctx := context.Background()

	first := message("m1", "thread-1", "sam@example.com", "Same body twice.")
	_, err := gw.Ingest(ctx, first)
	require.NoError(t, err)

	// Same sender and content, new id, timestamps within the window
	dup := message("m2", "thread-1", "sam@example.com", "Same body twice.")
	dup.Timestamp = first.Timestamp.Add(200 * time.Millisecond)
	got, err := gw.Ingest(ctx, dup)
	require.NoError(t, err)

	require.Len(t, got.Log.Events, 1)
	// Absorbed duplicates still count as processed so redelivery stays quiet
	require.Contains(t, got.ProcessedMessageIDs, "m2")
	require.Equal(t, 1, adapter.Calls())
}

func TestIngestCleansBody(t *testing.T) {
	gw, repo, _ := newGateway(t, statusUpdateStep())
	seedTask(t, repo, "thread-1")

	body := "Draft attached.\n\nOn Mon, Feb 9, 2026, Dana wrote:\n> Please send the draft.\n-- \nSam"
	got, err := gw.Ingest(context.Background(), message("m1", "thread-1", "sam@example.com", body))
	require.NoError(t, err)

	evt := got.Log.Events[0]
	require.Equal(t, "Draft attached.", evt.Content)
	require.Equal(t, body, evt.RawContent)
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sam@example.com", "sam@example.com"},
		{"Sam Jones <sam@example.com>", "sam@example.com"},
		{"\"Jones, Sam\" <Sam.Jones@Example.COM>", "sam.jones@example.com"},
		{"  SAM@EXAMPLE.COM  ", "sam@example.com"},
		{"<sam@example.com>", "sam@example.com"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, NormalizeAddress(tt.in), tt.in)
	}
}
