package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var followupCmd = &cobra.Command{
	Use:   "followup <task-id>",
	Short: "Record that a follow-up nudge was sent for a task",
	Long: `Record that a follow-up message was sent to the delegate outside this
tool. The timestamp is stored on the task so later sweeps know a nudge is
already outstanding; it clears automatically when the delegate replies.`,
	Args: cobra.ExactArgs(1),
	RunE: runFollowup,
}

func runFollowup(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	a, err := buildApp(cmd, logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	t, err := a.repo.GetTask(ctx, args[0])
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	t.FollowUpSentAt = &now
	t.UpdatedAt = now
	a.ledger.AppendSystemNote(t, "Follow-up sent to delegate.")

	if err := a.repo.SaveTask(ctx, t); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	logger.Info("follow-up recorded",
		"task_id", t.ID,
		"sent_at", now.Format(time.RFC3339))
	fmt.Fprintf(cmd.OutOrStdout(), "Recorded follow-up for task %s\n", t.ID)
	return nil
}
