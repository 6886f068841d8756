package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iambrandonn/liaison/internal/protocol"
	"github.com/iambrandonn/liaison/internal/store"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Ingest every message waiting in the inbox directory",
	Long: `Sweep the configured inbox directory for *.json message files and
ingest each one in name order. Successfully ingested messages move to a
processed/ subdirectory; rejected ones move to rejected/. A message that
fails only to persist stays in the inbox for the next sweep. Re-running a
sweep is safe: already-processed message ids are skipped.`,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	a, err := buildApp(cmd, logger)
	if err != nil {
		return err
	}
	defer a.close()

	inboxDir := resolveInboxDir(a.cfg, a.dataDir)
	entries, err := os.ReadDir(inboxDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(cmd.OutOrStdout(), "Inbox %s does not exist; nothing to do\n", inboxDir)
			return nil
		}
		return fmt.Errorf("failed to read inbox: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	if len(names) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Inbox empty")
		return nil
	}

	processedDir := filepath.Join(inboxDir, "processed")
	rejectedDir := filepath.Join(inboxDir, "rejected")
	for _, dir := range []string{processedDir, rejectedDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	var ingested, rejected, deferred int
	for _, name := range names {
		path := filepath.Join(inboxDir, name)

		msg, err := readMessageFile(path)
		if err != nil {
			logger.Warn("skipping unreadable message file",
				"file", name,
				"error", err)
			moveTo(path, rejectedDir, logger)
			rejected++
			continue
		}

		if _, err := ingestOne(cmd, a, msg); err != nil {
			if retryable(err) {
				// A failed durable write is not a rejection: the file stays
				// in the inbox so the next sweep retries it.
				logger.Warn("persistence failed, leaving message for next sweep",
					"file", name,
					"message_id", msg.ID,
					"error", err)
				deferred++
				continue
			}
			logger.Warn("message rejected",
				"file", name,
				"message_id", msg.ID,
				"error", err)
			moveTo(path, rejectedDir, logger)
			rejected++
			continue
		}

		moveTo(path, processedDir, logger)
		ingested++
	}

	logger.Info("sweep complete",
		"inbox", inboxDir,
		"ingested", ingested,
		"rejected", rejected,
		"deferred", deferred)
	fmt.Fprintf(cmd.OutOrStdout(), "Swept %d message(s): %d ingested, %d rejected, %d deferred\n", len(names), ingested, rejected, deferred)
	return nil
}

// retryable reports whether an ingestion error should leave the message in
// the inbox for a later attempt instead of moving it to rejected/.
func retryable(err error) bool {
	var writeErr *store.WriteError
	return errors.As(err, &writeErr)
}

func readMessageFile(path string) (msg protocol.InboundMessage, err error) {
	f, err := os.Open(path)
	if err != nil {
		return msg, err
	}
	defer f.Close()
	return decodeMessage(f)
}

func moveTo(path, dir string, logger *slog.Logger) {
	dest := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		logger.Warn("failed to move message file",
			"file", path,
			"dest", dest,
			"error", err)
	}
}
