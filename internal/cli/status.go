package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iambrandonn/liaison/internal/protocol"
	"github.com/iambrandonn/liaison/internal/transcript"
)

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show task state, or list all tasks",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Bool("transcript", false, "Include the full conversation transcript")
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	a, err := buildApp(cmd, logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		tasks, err := a.repo.ListTasks(ctx)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks")
			return nil
		}
		for _, t := range tasks {
			fmt.Fprintf(out, "%s  %-20s %-24s %s\n", t.ID, t.Status, t.ConversationState, t.Name)
		}
		return nil
	}

	t, err := a.repo.GetTask(ctx, args[0])
	if err != nil {
		return err
	}

	printTask(cmd, t)

	if full, _ := cmd.Flags().GetBool("transcript"); full && len(t.Log.Events) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, transcript.Format(t))
	}
	return nil
}

func printTask(cmd *cobra.Command, t *protocol.Task) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Task %s\n", t.ID)
	fmt.Fprintf(out, "  name:               %s\n", t.Name)
	fmt.Fprintf(out, "  status:             %s\n", t.Status)
	fmt.Fprintf(out, "  conversation state: %s\n", t.ConversationState)
	fmt.Fprintf(out, "  delegator:          %s\n", t.DelegatorAddress)
	fmt.Fprintf(out, "  delegate:           %s\n", t.DelegateAddress)
	fmt.Fprintf(out, "  due date:           %s\n", valueOrDash(t.DueDate))
	fmt.Fprintf(out, "  scope:              %s\n", valueOrDash(t.Scope))

	if dec := t.PendingDecision; dec != nil {
		fmt.Fprintf(out, "  pending decision:   %s %q -> %q (requested by %s, awaiting %s)\n",
			dec.Parameter, dec.CurrentValue, dec.ProposedValue, dec.RequestedBy, dec.AwaitingFrom)
	}
	for _, ch := range t.PendingChanges {
		fmt.Fprintf(out, "  pending change:     %s -> %q [%s]\n", ch.Parameter, ch.ProposedValue, ch.Status)
	}
	if t.AnalysisSummary != "" {
		fmt.Fprintf(out, "  summary:            %s\n", t.AnalysisSummary)
	}
	if t.RequiresAction {
		fmt.Fprintln(out, "  requires action:    yes")
	}
	if t.FollowUpSentAt != nil {
		fmt.Fprintf(out, "  follow-up sent:     %s\n", t.FollowUpSentAt.Format("2006-01-02 15:04"))
	}
	if summary := transcript.FormatSummary(t); summary != "" {
		fmt.Fprintf(out, "  last message:       %s\n", summary)
	}
}
