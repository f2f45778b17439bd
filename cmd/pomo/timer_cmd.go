package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/fentz26/pomo/internal/lifecycle"
	"github.com/fentz26/pomo/internal/tui"
	"github.com/spf13/cobra"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Inspect and drive the focus countdown",
}

var timerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active task and remaining time",
	RunE:  runTimerStatus,
}

var timerPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the countdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTimer((*lifecycle.Controller).Pause, "Paused")
	},
}

var timerResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused countdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTimer((*lifecycle.Controller).Resume, "Resumed")
	},
}

var timerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the countdown in the foreground until the session ends",
	RunE:  runTimerRun,
}

var timerLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent lifecycle decisions",
	RunE:  runTimerLog,
}

var logLimit int

func init() {
	timerCmd.AddCommand(timerStatusCmd, timerPauseCmd, timerResumeCmd, timerRunCmd, timerLogCmd)
	timerLogCmd.Flags().IntVar(&logLimit, "limit", 20, "Number of entries to show")
}

func runTimerStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout()
	defer cancel()

	s, err := openLocalSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	state := s.ctrl.State()
	if !state.Snapshot.HasActive() {
		fmt.Println("No active task")
		return nil
	}

	title := state.Snapshot.ActiveTaskID
	if task, ok := state.Active(); ok {
		title = task.Title
	}
	status := "running"
	if !state.Snapshot.IsRunning {
		status = "paused"
	}
	fmt.Printf("%s  %s (%s)\n",
		tui.FormatClock(state.Snapshot.MinutesRemaining, state.Snapshot.SecondsRemaining), title, status)
	return nil
}

func setTimer(action func(*lifecycle.Controller) error, verb string) error {
	ctx, cancel := withTimeout()
	defer cancel()

	s, err := openLocalSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := action(s.ctrl); err != nil {
		return err
	}
	snap := s.ctrl.State().Snapshot
	fmt.Printf("%s at %s\n", verb, tui.FormatClock(snap.MinutesRemaining, snap.SecondsRemaining))
	return nil
}

func runTimerRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout()
	s, err := openSession(ctx)
	cancel()
	if err != nil {
		return err
	}
	defer s.Close()

	if !s.ctrl.State().Snapshot.HasActive() {
		return fmt.Errorf("%w: start a task first", lifecycle.ErrNoActiveTask)
	}
	if err := s.ctrl.Resume(); err != nil {
		return err
	}

	changes, unsubscribe := s.ctrl.Subscribe()
	defer unsubscribe()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	s.ctrl.StartClock()
	defer s.ctrl.StopClock()

	lastID := ""
	for {
		state := s.ctrl.State()
		if !state.Snapshot.HasActive() {
			fmt.Println("\nNo active task left")
			return nil
		}
		if state.Snapshot.ActiveTaskID != lastID {
			if lastID != "" {
				fmt.Println()
			}
			lastID = state.Snapshot.ActiveTaskID
			if task, ok := state.Active(); ok {
				fmt.Printf("Focusing on %s (%d/%d pomodoros)\n", task.Title, task.PomodorosCompleted, task.EstimatedPomodoros)
			}
		}
		fmt.Printf("\r%s ", tui.FormatClock(state.Snapshot.MinutesRemaining, state.Snapshot.SecondsRemaining))

		select {
		case <-changes:
		case <-sigChan:
			// The snapshot is already persisted, the next run resumes from here.
			fmt.Println("\nStopped")
			return nil
		}
	}
}

func runTimerLog(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout()
	defer cancel()

	s, err := openLocalSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.store.ListJournal(logLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No journal entries")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tOUTCOME\tTASK\tDETAILS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Action, e.Outcome,
			truncateID(e.TaskID), truncate(e.Details, 50))
	}
	w.Flush()
	return nil
}
