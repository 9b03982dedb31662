package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spindlehq/spindle/internal/chat"
	"github.com/spindlehq/spindle/internal/cli"
	"github.com/spindlehq/spindle/internal/provider"
	"github.com/spindlehq/spindle/internal/provider/manager"
)

var chatFlags struct {
	model       string
	provider    string
	strategy    string
	resume      string
	temperature float64
	noStream    bool
	noTools     bool
}

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Chat with a model, interactively or one-shot",
	Long: `With a prompt argument, sends a single request and prints the reply.
Without one, starts an interactive session; /exit or Ctrl-D leaves it.

The backend is chosen by --provider when given, otherwise by the selection
strategy (--strategy or chat.strategy in config). Ctrl-C cancels the
in-flight request without losing the session.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		prov, model, err := pickBackend(ctx, a)
		if err != nil {
			return err
		}

		opts := chat.Options{
			Provider:      prov,
			Model:         model,
			SystemPrompt:  a.cfg.Chat.SystemPrompt,
			Temperature:   chatFlags.temperature,
			MaxToolRounds: a.cfg.Chat.MaxToolRounds,
			Store:         a.store,
			Recorder:      a.recorder,
			Out:           os.Stdout,
		}
		if !chatFlags.noTools {
			reg, err := a.newToolRegistry()
			if err != nil {
				return err
			}
			opts.Tools = reg
		}

		var session *chat.Session
		if chatFlags.resume != "" {
			session, err = chat.Resume(ctx, a.log, opts, chatFlags.resume)
		} else {
			session, err = chat.NewSession(ctx, a.log, opts)
		}
		if err != nil {
			return err
		}

		if len(args) == 1 {
			return askOnce(ctx, session, args[0])
		}
		return repl(ctx, session, prov, model)
	},
}

func askOnce(ctx context.Context, session *chat.Session, prompt string) error {
	if chatFlags.noStream {
		reply, err := session.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	}
	return session.Ask(ctx, prompt)
}

func repl(ctx context.Context, session *chat.Session, prov provider.Provider, model string) error {
	fmt.Fprintf(os.Stderr, "%s %s via %s",
		cli.Arrow(), cli.Style(model, cli.Bold), prov.Name())
	if session.ID() != "" {
		fmt.Fprintf(os.Stderr, " (session %s)", session.ID())
	}
	fmt.Fprintln(os.Stderr)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(os.Stderr, cli.Style("> ", cli.Cyan))
		if !scanner.Scan() {
			fmt.Fprintln(os.Stderr)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/exit" || line == "/quit":
			return nil
		}

		if err := session.Ask(ctx, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Keep the session alive across request failures.
			fmt.Fprintf(os.Stderr, "%s %v\n", cli.CrossMark(), err)
		}
	}
}

// pickBackend resolves the provider (pinned or by strategy) and the model
// to use. With no explicit model, the provider's first listed model wins.
func pickBackend(ctx context.Context, a *app) (provider.Provider, string, error) {
	name := chatFlags.provider
	if name == "" {
		name = a.cfg.Chat.Provider
	}

	var prov provider.Provider
	var err error
	if name != "" {
		prov, err = a.mgr.Get(name)
	} else {
		strategy := chatFlags.strategy
		if strategy == "" {
			strategy = a.cfg.Chat.Strategy
		}
		prov, err = a.mgr.Best(ctx, manager.Strategy(strategy), nil)
	}
	if err != nil {
		return nil, "", err
	}

	model := chatFlags.model
	if model == "" {
		model = a.cfg.Chat.Model
	}
	if model == "" {
		models, err := prov.Models(ctx)
		if err != nil {
			return nil, "", err
		}
		if len(models) == 0 {
			return nil, "", fmt.Errorf("provider %s lists no models; pass --model", prov.Name())
		}
		model = models[0].ID
	}
	return prov, model, nil
}

func init() {
	chatCmd.Flags().StringVarP(&chatFlags.model, "model", "m", "", "model id to use")
	chatCmd.Flags().StringVarP(&chatFlags.provider, "provider", "p", "", "pin a provider by name")
	chatCmd.Flags().StringVarP(&chatFlags.strategy, "strategy", "s", "", "selection strategy: first-available, fastest, cheapest, most-capable, random")
	chatCmd.Flags().StringVar(&chatFlags.resume, "resume", "", "resume a session by id")
	chatCmd.Flags().Float64VarP(&chatFlags.temperature, "temperature", "t", 0, "sampling temperature")
	chatCmd.Flags().BoolVar(&chatFlags.noStream, "no-stream", false, "wait for the full reply instead of streaming")
	chatCmd.Flags().BoolVar(&chatFlags.noTools, "no-tools", false, "disable tool execution")
	rootCmd.AddCommand(chatCmd)
}
