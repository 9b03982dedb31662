package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spindlehq/spindle/internal/cli"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past sessions and usage",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if a.store == nil {
			return fmt.Errorf("history is disabled")
		}

		sessions, err := a.store.RecentSessions(ctx, 20)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPROVIDER\tMODEL\tUPDATED")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				s.ID, s.Provider, s.Model, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if a.store == nil {
			return fmt.Errorf("history is disabled")
		}

		messages, err := a.store.Messages(ctx, args[0])
		if err != nil {
			return err
		}
		for _, m := range messages {
			fmt.Printf("%s %s\n", cli.Style(m.Role+":", cli.Bold), m.Content)
		}
		return nil
	},
}

var usageDays int

var historyUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Aggregate token usage per provider and model",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if a.store == nil {
			return fmt.Errorf("history is disabled")
		}

		stats, err := a.store.Usage(ctx, usageDays)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tMODEL\tREQUESTS\tTOKENS\tAVG LATENCY")
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.0fms\n",
				s.Provider, s.Model, s.Requests, s.TotalTokens, s.AvgLatencyMS)
		}
		return w.Flush()
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if a.store == nil {
			return fmt.Errorf("history is disabled")
		}

		if err := a.store.DeleteSession(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("%s deleted %s\n", cli.CheckMark(), args[0])
		return nil
	},
}

func init() {
	historyUsageCmd.Flags().IntVar(&usageDays, "days", 30, "aggregation window in days")
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyUsageCmd, historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}
