// classifier-fixture is a deterministic stand-in for the real classifier.
// It reads one classification input as JSON on stdin and writes one result
// as JSON on stdout.
//
// With --script it replays canned results from a JSON array, keeping a
// cursor file so consecutive invocations walk the script in order. Without
// a script it falls back to keyword heuristics over the latest message, so
// local demos work without a model behind them.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/iambrandonn/liaison/internal/classify"
	"github.com/iambrandonn/liaison/internal/dates"
	"github.com/iambrandonn/liaison/internal/protocol"
)

func main() {
	scriptFile := flag.String("script", "", "Path to a JSON array of canned results")
	cursorFile := flag.String("cursor", "", "Cursor file for script playback (defaults to <script>.cursor)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	var input classify.Input
	if err := json.NewDecoder(os.Stdin).Decode(&input); err != nil {
		logger.Error("failed to parse input", "error", err)
		os.Exit(1)
	}

	var result *classify.Result
	var err error
	if *scriptFile != "" {
		result, err = nextScripted(*scriptFile, *cursorFile)
	} else {
		result = heuristic(input)
	}
	if err != nil {
		logger.Error("script playback failed", "error", err)
		os.Exit(1)
	}

	if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
		logger.Error("failed to write result", "error", err)
		os.Exit(1)
	}
}

// nextScripted returns the next canned result, advancing the cursor file.
// Past the end of the script the last entry repeats.
func nextScripted(scriptPath, cursorPath string) (*classify.Result, error) {
	data, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	var results []classify.Result
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("script %s is empty", scriptPath)
	}

	if cursorPath == "" {
		cursorPath = scriptPath + ".cursor"
	}

	idx := 0
	if raw, err := os.ReadFile(cursorPath); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(string(raw))); err == nil {
			idx = n
		}
	}
	if idx >= len(results) {
		idx = len(results) - 1
	}

	if err := os.WriteFile(cursorPath, []byte(strconv.Itoa(idx+1)), 0600); err != nil {
		return nil, fmt.Errorf("failed to advance cursor: %w", err)
	}

	res := results[idx]
	return &res, nil
}

// heuristic classifies the latest transcript line by keyword. Crude on
// purpose: it exists so the pipeline runs end to end without a model.
func heuristic(input classify.Input) *classify.Result {
	res := &classify.Result{
		Intent:            classify.IntentOther,
		ConversationState: protocol.ConvActive,
		Provenance:        map[string]protocol.FieldProvenance{},
	}

	line := latestLine(input)
	if line == nil {
		res.Summary = "No conversation yet."
		return res
	}
	text := strings.ToLower(line.Content)

	switch {
	case containsAny(text, "sounds good", "works for me", "confirmed", "agreed", "deal", "yes, that"):
		res.Intent = classify.IntentAcceptance
		res.ConversationState = protocol.ConvResolved
		res.Summary = "Latest message reads as an acceptance."

	case containsAny(text, "can't do", "cannot do", "won't work", "no, that", "not possible"):
		res.Intent = classify.IntentRejection
		res.ConversationState = protocol.ConvAwaitingCounterpart
		res.RequiresAction = true
		res.Summary = "Latest message reads as a rejection."

	case containsAny(text, "how about", "instead", "could we push", "what about", "counter"):
		res.Intent = classify.IntentCounterProposal
		res.ConversationState = protocol.ConvCounterpartProposed
		res.RequiresAction = true
		res.Summary = "Latest message proposes an alternative."

	case containsAny(text, "blocked", "waiting on", "stuck", "can't proceed"):
		res.Intent = classify.IntentBlocker
		res.ConversationState = protocol.ConvBlockerReported
		res.RequiresAction = true
		res.Summary = "Latest message reports a blocker."

	case containsAny(text, "done", "finished", "completed", "ready for review"):
		res.Intent = classify.IntentCompletionClaim
		res.ConversationState = protocol.ConvCompletionPending
		res.RequiresAction = true
		res.Summary = "Latest message claims completion."

	case strings.Contains(text, "?"):
		res.Intent = classify.IntentQuestion
		res.ConversationState = protocol.ConvAwaitingCounterpart
		res.RequiresAction = true
		res.Summary = "Latest message asks a question."

	default:
		res.Intent = classify.IntentStatusUpdate
		res.Summary = "Latest message is a status update."
	}

	if date, snippet, ok := dates.Extract(line.Content, line.Timestamp); ok {
		field := protocol.FieldDueDateEffective
		if res.Intent == classify.IntentCounterProposal {
			field = protocol.FieldDueDateProposed
			res.Snapshot.DueDateProposed = date
		} else {
			res.Snapshot.DueDateEffective = date
		}
		res.Provenance[field] = protocol.FieldProvenance{
			SourceSnippet: snippet,
			Confidence:    dates.Confidence,
		}
	}

	return res
}

func latestLine(input classify.Input) *classify.TranscriptLine {
	for i := len(input.Transcript) - 1; i >= 0; i-- {
		if input.Transcript[i].Role != protocol.RoleSystem {
			return &input.Transcript[i]
		}
	}
	return nil
}

func containsAny(text string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
