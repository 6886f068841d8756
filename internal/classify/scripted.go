package classify

import (
	"context"
	"fmt"
	"sync"
)

// ScriptStep is one canned classifier response. Exactly one of Result or
// Err should be set; a nil Result with a nil Err replays as a malformed
// (empty) response.
type ScriptStep struct {
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// ScriptedAdapter replays canned responses in order, for deterministic
// tests. Once the script is exhausted the last step repeats.
type ScriptedAdapter struct {
	mu    sync.Mutex
	steps []ScriptStep
	calls int
}

// NewScriptedAdapter creates an adapter that replays the given steps
func NewScriptedAdapter(steps ...ScriptStep) *ScriptedAdapter {
	return &ScriptedAdapter{steps: steps}
}

// Classify returns the next scripted response
func (a *ScriptedAdapter) Classify(ctx context.Context, input Input) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.steps) == 0 {
		return nil, fmt.Errorf("scripted adapter has no responses")
	}

	idx := a.calls
	if idx >= len(a.steps) {
		idx = len(a.steps) - 1
	}
	a.calls++

	step := a.steps[idx]
	if step.Err != nil {
		return nil, step.Err
	}
	if step.Result == nil {
		return nil, fmt.Errorf("scripted adapter step %d has no result", idx)
	}
	// Copy so callers can't mutate the script
	result := *step.Result
	return &result, nil
}

// Calls reports how many times Classify has been invoked
func (a *ScriptedAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}
