package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iambrandonn/liaison/internal/protocol"
	"github.com/iambrandonn/liaison/internal/task"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new delegated task",
	Long: `Create a new delegated task in the drafted state. Pass --assigned when
the assignment email has already gone out; the task then starts waiting
for the delegate's first response.`,
	RunE: runCreate,
}

func init() {
	createCmd.Flags().String("name", "", "Task name (required)")
	createCmd.Flags().String("delegator", "", "Delegator email address (required)")
	createCmd.Flags().String("delegate", "", "Delegate email address (required)")
	createCmd.Flags().String("due", "", "Due date, YYYY-MM-DD")
	createCmd.Flags().String("scope", "", "Scope summary")
	createCmd.Flags().String("thread", "", "Message thread id to correlate replies on")
	createCmd.Flags().Bool("assigned", false, "Assignment message already sent")
	createCmd.MarkFlagRequired("name")
	createCmd.MarkFlagRequired("delegator")
	createCmd.MarkFlagRequired("delegate")
}

func runCreate(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	a, err := buildApp(cmd, logger)
	if err != nil {
		return err
	}
	defer a.close()

	name, _ := cmd.Flags().GetString("name")
	delegator, _ := cmd.Flags().GetString("delegator")
	delegate, _ := cmd.Flags().GetString("delegate")
	due, _ := cmd.Flags().GetString("due")
	scope, _ := cmd.Flags().GetString("scope")
	thread, _ := cmd.Flags().GetString("thread")
	assigned, _ := cmd.Flags().GetBool("assigned")

	now := time.Now().UTC()
	t := &protocol.Task{
		ID:                uuid.New().String(),
		Name:              name,
		DueDate:           due,
		Scope:             scope,
		DelegatorAddress:  delegator,
		DelegateAddress:   delegate,
		ThreadID:          thread,
		Status:            protocol.StatusDrafted,
		ConversationState: protocol.ConvActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	t.Snapshot.Name = name
	t.Snapshot.DueDateEffective = due
	t.Snapshot.ScopeSummary = scope

	if assigned {
		if err := task.Apply(t, task.TriggerAssigned); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if err := a.repo.SaveTask(ctx, t); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	logger.Info("task created",
		"task_id", t.ID,
		"name", name,
		"status", string(t.Status))
	fmt.Fprintf(cmd.OutOrStdout(), "Created task %s (%s)\n", t.ID, t.Status)
	fmt.Fprintf(cmd.OutOrStdout(), "Reference it in message bodies as [task:%s]\n", t.ID)
	return nil
}
