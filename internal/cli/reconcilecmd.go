package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <task-id>",
	Short: "Re-run reconciliation for a task",
	Long: `Re-run classification and state reconciliation over a task's existing
conversation. Useful after upgrading the classifier; given an unchanged
conversation the result is identical to the previous run.`,
	Args: cobra.ExactArgs(1),
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	a, err := buildApp(cmd, logger)
	if err != nil {
		return err
	}
	defer a.close()

	snapshot, err := a.engine.Reconcile(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Task %s reconciled\n", args[0])
	fmt.Fprintf(out, "  name:              %s\n", valueOrDash(snapshot.Name))
	fmt.Fprintf(out, "  due date:          %s\n", valueOrDash(snapshot.DueDateEffective))
	fmt.Fprintf(out, "  proposed due date: %s\n", valueOrDash(snapshot.DueDateProposed))
	fmt.Fprintf(out, "  scope:             %s\n", valueOrDash(snapshot.ScopeSummary))
	return nil
}

func valueOrDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
