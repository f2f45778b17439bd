package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show focus statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout()
	defer cancel()

	stats, err := newClient().Stats(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TODAY")
	fmt.Fprintf(w, "  Completed tasks\t%d\n", stats.Today.CompletedTasks)
	fmt.Fprintf(w, "  Pomodoros\t%d\n", stats.Today.Pomodoros)
	fmt.Fprintf(w, "  Focus\t%dm (%.1fh)\n", stats.Today.FocusTime, stats.Today.FocusHours)
	fmt.Fprintln(w, "ALL TIME")
	fmt.Fprintf(w, "  Tasks\t%d (%d pending, %d active, %d skipped)\n",
		stats.Total.TotalTasks, stats.Total.PendingTasks, stats.Total.ActiveTasks, stats.Total.SkippedTasks)
	fmt.Fprintf(w, "  Completed\t%d (%.1f%%)\n", stats.Total.CompletedTasks, stats.Total.CompletionRate)
	fmt.Fprintf(w, "  Pomodoros\t%d\n", stats.Total.TotalPomodoros)
	fmt.Fprintf(w, "  Focus\t%dm\n", stats.Total.TotalFocusTime)
	return w.Flush()
}
