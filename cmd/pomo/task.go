package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fentz26/pomo/internal/lifecycle"
	"github.com/fentz26/pomo/internal/models"
	"github.com/fentz26/pomo/internal/reconcile"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage pomodoro tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, most actionable first",
	RunE:  runTaskList,
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a task, or promote a record with --record",
	RunE:  runTaskAdd,
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update [task-id]",
	Short: "Edit a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskUpdate,
}

var taskStartCmd = &cobra.Command{
	Use:   "start [task-id]",
	Short: "Start a focus session on a task",
	Args:  cobra.ExactArgs(1),
	RunE:  taskOp("Started", (*lifecycle.Controller).Start),
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete [task-id]",
	Short: "Complete the active session (defaults to the active task)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTaskComplete,
}

var taskSkipCmd = &cobra.Command{
	Use:   "skip [task-id]",
	Short: "Skip a task",
	Args:  cobra.ExactArgs(1),
	RunE:  taskOp("Skipped", (*lifecycle.Controller).Skip),
}

var taskResetCmd = &cobra.Command{
	Use:   "reset [task-id]",
	Short: "Return a task to pending",
	Args:  cobra.ExactArgs(1),
	RunE:  taskOp("Reset", (*lifecycle.Controller).Reset),
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete [task-id]",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  taskOp("Deleted", (*lifecycle.Controller).Delete),
}

var taskGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Ask the backend to plan a fresh task list",
	RunE:  runTaskGenerate,
}

var (
	listLimit    int
	taskTitle    string
	taskDesc     string
	taskEstimate int
	taskPriority int
	taskRecord   string
)

func init() {
	taskCmd.AddCommand(taskListCmd, taskAddCmd, taskUpdateCmd, taskStartCmd, taskCompleteCmd,
		taskSkipCmd, taskResetCmd, taskDeleteCmd, taskGenerateCmd)

	taskListCmd.Flags().IntVar(&listLimit, "limit", 0, "Show only the first N tasks")

	for _, c := range []*cobra.Command{taskAddCmd, taskUpdateCmd} {
		c.Flags().StringVar(&taskTitle, "title", "", "Task title")
		c.Flags().StringVar(&taskDesc, "desc", "", "Task description")
		c.Flags().IntVar(&taskEstimate, "estimate", 1, "Estimated pomodoros")
		c.Flags().IntVar(&taskPriority, "priority", 50, "Priority score (higher is more urgent)")
	}
	taskAddCmd.Flags().StringVar(&taskRecord, "record", "", "Promote a record to a task and start it")
}

func runTaskList(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	printTasks(s.ctrl.State(), listLimit)
	return nil
}

func printTasks(state lifecycle.State, limit int) {
	tasks := state.Tasks
	if limit > 0 {
		tasks = reconcile.Top(tasks, limit)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPOMODOROS\tFOCUS\tPRIORITY")
	for _, t := range tasks {
		status := string(t.Status)
		if t.ID == state.Snapshot.ActiveTaskID {
			status = fmt.Sprintf("%s %02d:%02d", status, state.Snapshot.MinutesRemaining, state.Snapshot.SecondsRemaining)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d (%d%%)\t%dm\t%d\n",
			truncateID(t.ID), truncate(t.Title, 40), status,
			t.PomodorosCompleted, t.EstimatedPomodoros, t.Progress(), t.TotalFocusTime, t.PriorityScore)
	}
	w.Flush()
}

type taskAction func(*lifecycle.Controller, context.Context, string) ([]models.PomodoroTask, error)

func taskOp(verb string, action taskAction) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout()
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		task, err := s.resolveTask(args[0])
		if err != nil {
			return err
		}
		if _, err := action(s.ctrl, ctx, task.ID); err != nil {
			return err
		}
		fmt.Printf("%s task: %s (%s)\n", verb, task.Title, truncateID(task.ID))
		return nil
	}
}

func runTaskComplete(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	state := s.ctrl.State()
	task, ok := state.Active()
	if len(args) == 1 {
		if task, err = s.resolveTask(args[0]); err != nil {
			return err
		}
		ok = task.ID == state.Snapshot.ActiveTaskID
	}
	if !ok {
		return fmt.Errorf("%w: start a task before completing it", lifecycle.ErrNoActiveTask)
	}

	if _, err := s.ctrl.Complete(ctx, task.ID); err != nil {
		return err
	}
	fmt.Printf("Completed pomodoro on %s\n", task.Title)
	return nil
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if taskRecord != "" {
		task, err := s.ctrl.AddRecord(ctx, taskRecord)
		if err != nil {
			return err
		}
		fmt.Printf("Added and started task: %s (%s)\n", task.Title, truncateID(task.ID))
		return nil
	}

	if taskTitle == "" {
		return fmt.Errorf("--title is required")
	}
	task, err := s.ctrl.Create(ctx, taskFields(cmd))
	if err != nil {
		return err
	}
	fmt.Printf("Created task: %s\n", task.ID)
	return nil
}

func runTaskUpdate(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	task, err := s.resolveTask(args[0])
	if err != nil {
		return err
	}
	updated, err := s.ctrl.Update(ctx, task.ID, taskFields(cmd))
	if err != nil {
		return err
	}
	fmt.Printf("Updated task: %s (%s)\n", updated.Title, truncateID(updated.ID))
	return nil
}

// taskFields sends only the flags the user set.
func taskFields(cmd *cobra.Command) models.TaskFields {
	var f models.TaskFields
	if cmd.Flags().Changed("title") {
		f.Title = &taskTitle
	}
	if cmd.Flags().Changed("desc") {
		f.Description = &taskDesc
	}
	if cmd.Flags().Changed("estimate") {
		f.EstimatedPomodoros = &taskEstimate
	}
	if cmd.Flags().Changed("priority") {
		f.PriorityScore = &taskPriority
	}
	return f
}

func runTaskGenerate(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.ctrl.Generate(ctx); err != nil {
		return err
	}
	printTasks(s.ctrl.State(), 0)
	return nil
}
