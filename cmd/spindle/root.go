package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spindlehq/spindle/internal/platform/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "spindle",
	Short: "Chat with local and remote LLM backends from the terminal",
	Long: `Spindle sends chat requests to interchangeable LLM backends: a local
inference server (Ollama and compatible) and a remote aggregator gateway
(OpenRouter and compatible). It picks a backend per request using a
configurable strategy, streams responses, and can execute file and shell
tools on the model's behalf.

Configuration lives in spindle.yaml (current directory or
~/.config/spindle); API keys are read from the environment.`,
	Version: AppVersion,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel("debug")
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
