package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Manage the to-do records tasks are planned from",
}

var recordAddCmd = &cobra.Command{
	Use:   "add [content]",
	Short: "Add a record",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordAdd,
}

var recordListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records",
	RunE:  runRecordList,
}

var recordPriority string

func init() {
	recordCmd.AddCommand(recordAddCmd, recordListCmd)
	recordAddCmd.Flags().StringVar(&recordPriority, "priority", "medium", "Priority: urgent, high, medium or low")
}

func runRecordAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout()
	defer cancel()

	rec, err := newClient().CreateRecord(ctx, args[0], recordPriority)
	if err != nil {
		return err
	}
	fmt.Printf("Created record: %s\n", rec.ID)
	return nil
}

func runRecordList(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout()
	defer cancel()

	records, err := newClient().ListRecords(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No records found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRIORITY\tCONTENT\tCREATED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			truncateID(r.ID), r.Priority, truncate(r.Content, 50), r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
	return nil
}
