package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Tuesday
var ref = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		snippet string
	}{
		{
			name:    "iso date",
			text:    "Let's target 2026-03-15 for the final draft.",
			want:    "2026-03-15",
			snippet: "2026-03-15",
		},
		{
			name:    "month day with year",
			text:    "Can you finish by Mar 15, 2026?",
			want:    "2026-03-15",
			snippet: "Mar 15, 2026",
		},
		{
			name:    "month day without year ahead of ref",
			text:    "Due March 15 at the latest.",
			want:    "2026-03-15",
			snippet: "March 15",
		},
		{
			name:    "month day without year already past rolls over",
			text:    "We said January 5, remember?",
			want:    "2027-01-05",
			snippet: "January 5",
		},
		{
			name:    "day month form",
			text:    "Deadline is 15 March.",
			want:    "2026-03-15",
			snippet: "15 March",
		},
		{
			name:    "ordinal day",
			text:    "Aim for Feb 21st please.",
			want:    "2026-02-21",
			snippet: "Feb 21st",
		},
		{
			name:    "by weekday",
			text:    "Need it by Friday.",
			want:    "2026-02-13",
			snippet: "by Friday",
		},
		{
			name:    "weekday same as ref goes to next week",
			text:    "Have it ready by Tuesday.",
			want:    "2026-02-17",
			snippet: "by Tuesday",
		},
		{
			name:    "tomorrow",
			text:    "I'll send it tomorrow.",
			want:    "2026-02-11",
			snippet: "tomorrow",
		},
		{
			name:    "end of week",
			text:    "Should land by end of the week.",
			want:    "2026-02-13",
			snippet: "end of the week",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, snippet, ok := Extract(tt.text, ref)
			require.True(t, ok)
			require.Equal(t, tt.want, date)
			require.Equal(t, tt.snippet, snippet)
		})
	}
}

func TestExtractNoDate(t *testing.T) {
	tests := []string{
		"Working on it, will keep you posted.",
		"The budget is 2026 dollars and 03 cents.",
		"May I ask a question?",
	}

	for _, text := range tests {
		_, _, ok := Extract(text, ref)
		require.False(t, ok, text)
	}
}

func TestExtractInvalidCalendarDate(t *testing.T) {
	_, _, ok := Extract("Due 2026-02-31, somehow.", ref)
	require.False(t, ok)
}

func TestConfidenceBelowMergeGate(t *testing.T) {
	require.Less(t, Confidence, 0.6)
}
