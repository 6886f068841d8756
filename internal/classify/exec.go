package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single classifier invocation
const DefaultTimeout = 60 * time.Second

// ExecAdapter invokes an external classifier process: the Input is written
// as JSON to the process's stdin and a single JSON Result is read from its
// stdout. Stderr is captured for diagnostics only.
type ExecAdapter struct {
	cmd     []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecAdapter creates an adapter running the given command
func NewExecAdapter(cmd []string, timeout time.Duration, logger *slog.Logger) (*ExecAdapter, error) {
	if len(cmd) == 0 {
		return nil, fmt.Errorf("classifier command is empty")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecAdapter{cmd: cmd, timeout: timeout, logger: logger}, nil
}

// Classify runs one subprocess invocation. Any spawn, timeout, or decode
// failure surfaces as an error; the reconcile engine maps all of them to
// "no new information".
func (a *ExecAdapter) Classify(ctx context.Context, input Input) (*Result, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classifier input: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.cmd[0], a.cmd[1:]...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	if stderr.Len() > 0 {
		a.logger.Debug("classifier stderr",
			"task_id", input.TaskID,
			"stderr", stderr.String())
	}
	if err != nil {
		return nil, fmt.Errorf("classifier process failed: %w", err)
	}

	var result Result
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse classifier output: %w", err)
	}

	a.logger.Debug("classifier call complete",
		"task_id", input.TaskID,
		"duration_ms", time.Since(start).Milliseconds(),
		"state", string(result.ConversationState),
		"intent", string(result.Intent))

	return &result, nil
}
