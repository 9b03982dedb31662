package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spindlehq/spindle/internal/cli"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe every provider and report latency",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		results := a.mgr.HealthCheck(ctx)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, h := range results {
			mark := cli.CheckMark()
			detail := h.Latency.String()
			if !h.Healthy {
				mark = cli.CrossMark()
				detail = h.Err
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", mark, h.Provider, detail)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
