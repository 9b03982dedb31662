package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spindlehq/spindle/internal/cli"
	"github.com/spindlehq/spindle/internal/provider"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models across all available providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		var all []provider.ModelInfo
		for _, p := range a.mgr.Available() {
			models, err := p.Models(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", cli.CrossMark(), p.Name(), err)
				continue
			}
			all = append(all, models...)
		}

		if modelsJSON {
			cli.PrettyPrint(all)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tPROVIDER\tCTX\tMAX OUT\tTOOLS\tVISION\tPRICE/1K IN")
		for _, m := range all {
			price := "-"
			if m.Pricing != nil {
				price = fmt.Sprintf("%.5f %s", m.Pricing.Input, m.Pricing.Currency)
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
				m.ID, m.Provider,
				m.Capabilities.ContextWindow, m.Capabilities.MaxTokens,
				yesNo(m.Capabilities.Tools), yesNo(m.Capabilities.Vision), price)
		}
		return w.Flush()
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(modelsCmd)
}
