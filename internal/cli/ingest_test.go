package cli

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iambrandonn/liaison/internal/gateway"
	"github.com/iambrandonn/liaison/internal/store"
)

func TestDecodeMessageFingerprintsMissingID(t *testing.T) {
	raw := `{"thread_id":"th-1","from":"sam@example.com","plain_body":"Done with the draft."}`

	first, err := decodeMessage(strings.NewReader(raw))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(first.ID, "msg:"))
	require.False(t, first.Timestamp.IsZero())

	// A re-delivery of the same id-less message hashes to the same id, so
	// the idempotency tracker catches it
	second, err := decodeMessage(strings.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestDecodeMessageKeepsProvidedID(t *testing.T) {
	raw := `{"id":"m1","thread_id":"th-1","from":"sam@example.com","plain_body":"Hi."}`

	msg, err := decodeMessage(strings.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "m1", msg.ID)
}

func TestDecodeMessageRequiresFrom(t *testing.T) {
	_, err := decodeMessage(strings.NewReader(`{"id":"m1","plain_body":"Hi."}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "from")
}

func TestRetryableErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "write error is retried",
			err:  &store.WriteError{TaskID: "t1", Err: fmt.Errorf("disk full")},
			want: true,
		},
		{
			name: "wrapped write error is retried",
			err:  fmt.Errorf("ingest message m1: %w", &store.WriteError{TaskID: "t1", Err: fmt.Errorf("disk full")}),
			want: true,
		},
		{
			name: "correlation error is rejected",
			err:  &gateway.CorrelationError{MessageID: "m1"},
			want: false,
		},
		{
			name: "unknown sender is rejected",
			err:  &gateway.UnknownSenderError{Sender: "x@example.com", TaskID: "t1"},
			want: false,
		},
		{
			name: "generic error is rejected",
			err:  fmt.Errorf("malformed message"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, retryable(tt.err))
		})
	}
}
