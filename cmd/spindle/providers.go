package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Show configured providers and their status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		up := make(map[string]bool)
		for _, p := range a.mgr.Available() {
			up[p.Name()] = true
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tPRIORITY\tENABLED\tUP\tENDPOINT")
		for _, cfg := range a.cfg.Providers {
			endpoint := cfg.Endpoint
			if endpoint == "" {
				endpoint = cfg.Auth.BaseURL
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
				cfg.Name, cfg.Kind, cfg.Priority,
				yesNo(cfg.Enabled), yesNo(up[cfg.Name]), endpoint)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
