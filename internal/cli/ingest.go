package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iambrandonn/liaison/internal/gateway"
	"github.com/iambrandonn/liaison/internal/idempotency"
	"github.com/iambrandonn/liaison/internal/protocol"
	"github.com/iambrandonn/liaison/internal/transcript"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest one inbound message",
	Long: `Ingest a single inbound message from a JSON file, or from standard
input when no file is given. The message is correlated to its task,
appended to the conversation, and the task state reconciled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	a, err := buildApp(cmd, logger)
	if err != nil {
		return err
	}
	defer a.close()

	var reader io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open message file: %w", err)
		}
		defer f.Close()
		reader = f
	}

	msg, err := decodeMessage(reader)
	if err != nil {
		return err
	}

	t, err := ingestOne(cmd, a, msg)
	if err != nil {
		return err
	}
	if t != nil {
		fmt.Fprintln(cmd.OutOrStdout(), transcript.FormatSummary(t))
	}
	return nil
}

// decodeMessage parses an inbound message, filling the id and timestamp
// when the source omitted them. An id-less message gets a content
// fingerprint, not a random id, so a re-delivery of the same message still
// trips the idempotency tracker.
func decodeMessage(r io.Reader) (protocol.InboundMessage, error) {
	var msg protocol.InboundMessage
	if err := json.NewDecoder(r).Decode(&msg); err != nil {
		return msg, fmt.Errorf("failed to parse inbound message: %w", err)
	}
	if msg.From == "" {
		return msg, fmt.Errorf("inbound message is missing 'from'")
	}
	if msg.ID == "" {
		msg.ID = idempotency.Fingerprint(&msg)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return msg, nil
}

// ingestOne runs a message through the gateway and records the outcome in
// the audit log. Correlation and sender failures are reported but not
// fatal to a sweep.
func ingestOne(cmd *cobra.Command, a *app, msg protocol.InboundMessage) (*protocol.Task, error) {
	ctx := cmd.Context()

	t, err := a.gateway.Ingest(ctx, msg)
	if err != nil {
		var corrErr *gateway.CorrelationError
		var senderErr *gateway.UnknownSenderError
		switch {
		case errors.As(err, &corrErr):
			a.audit.Rejected(msg, "no matching task")
		case errors.As(err, &senderErr):
			a.audit.Rejected(msg, fmt.Sprintf("unknown sender %s", senderErr.Sender))
		default:
			a.audit.Rejected(msg, err.Error())
		}
		return nil, err
	}

	a.audit.Ingested(msg, t)
	return t, nil
}
