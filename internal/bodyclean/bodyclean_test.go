package bodyclean

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanQuotedReply(t *testing.T) {
	body := "Sounds good, I'll take it.\n\nOn Mon, Feb 9, 2026 at 4:12 PM Dana Smith <dana@example.com> wrote:\n> Can you own the Q1 report?\n> Due end of month."

	require.Equal(t, "Sounds good, I'll take it.", Clean(body))
}

func TestCleanOriginalMessageSeparator(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "original message marker",
			body: "Here's my update.\n\n-----Original Message-----\nFrom: dana@example.com\nolder text",
			want: "Here's my update.",
		},
		{
			name: "forwarded message marker",
			body: "See below.\n\n---------- Forwarded message ----------\nearlier thread",
			want: "See below.",
		},
		{
			name: "from header line",
			body: "Reply above.\nFrom: Dana <dana@example.com>\nquoted part",
			want: "Reply above.",
		},
		{
			name: "long separator",
			body: "New content.\n________\nquoted part",
			want: "New content.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Clean(tt.body))
		})
	}
}

func TestCleanQuotedLines(t *testing.T) {
	body := "Agreed on the scope.\n> earlier point one\n> earlier point two\nOne more thing from me."

	require.Equal(t, "Agreed on the scope.\nOne more thing from me.", Clean(body))
}

func TestCleanSignature(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "dash-dash delimiter",
			body: "Done with the draft.\n-- \nSam Jones\nAcme Corp",
			want: "Done with the draft.",
		},
		{
			name: "closing phrase after content",
			body: "Draft is attached.\n\nBest regards,\nSam",
			want: "Draft is attached.",
		},
		{
			name: "sent from device",
			body: "Quick yes from me.\nSent from my phone",
			want: "Quick yes from me.",
		},
		{
			name: "closing phrase only message survives",
			body: "Thanks,\nSam",
			want: "Thanks,\nSam",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Clean(tt.body))
		})
	}
}

func TestCleanCollapsesNewlines(t *testing.T) {
	body := "First paragraph.\n\n\n\n\nSecond paragraph."
	require.Equal(t, "First paragraph.\n\nSecond paragraph.", Clean(body))
}

func TestCleanCRLF(t *testing.T) {
	body := "Line one.\r\n\r\nOn Tue, Feb 10, 2026, Dana wrote:\r\n> quoted"
	require.Equal(t, "Line one.", Clean(body))
}

func TestCleanEmptyWhenOnlyQuoted(t *testing.T) {
	body := "On Mon, Feb 9, 2026, Dana wrote:\n> everything here is quoted"
	require.Equal(t, "", Clean(body))
}
