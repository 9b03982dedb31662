package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/spindlehq/spindle/internal/cache"
	"github.com/spindlehq/spindle/internal/cli"
	"github.com/spindlehq/spindle/internal/config"
	"github.com/spindlehq/spindle/internal/history"
	"github.com/spindlehq/spindle/internal/platform/logger"
	"github.com/spindlehq/spindle/internal/platform/otel"
	"github.com/spindlehq/spindle/internal/provider/manager"
	"github.com/spindlehq/spindle/internal/provider/registry"
	"github.com/spindlehq/spindle/internal/tools"
)

// app wires the pieces every command needs: config, logger, the provider
// manager, and the optional history store.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	mgr      *manager.Manager
	store    *history.Store
	recorder *history.Recorder
	closers  []func() error
}

// newApp loads configuration and initializes the provider manager. An
// init failure of individual providers is tolerated; total failure is not.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger.Initialize(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		EnableColor: cli.Enabled(),
	})
	log := logger.Get()

	a := &app{cfg: cfg, log: log}

	if cfg.Tracing.Enabled {
		f, err := os.Create(cfg.Tracing.Path)
		if err != nil {
			return nil, fmt.Errorf("opening trace output: %w", err)
		}
		shutdown, err := otel.InitTracer("spindle", log, f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			err := shutdown(context.Background())
			_ = f.Close()
			return err
		})
	}

	var cacheSvc cache.Service
	if cfg.Cache.Backend == "redis" {
		r := cache.NewRedis(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
		a.closers = append(a.closers, r.Close)
		cacheSvc = r
	} else {
		cacheSvc = cache.NewMemory()
	}

	a.mgr = manager.New(log, registry.Default(), cacheSvc, cfg.Providers)
	if err := a.mgr.Init(ctx); err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, a.mgr.Close)

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			log.Warn("history disabled", zap.Error(err))
		} else {
			a.store = store
			a.recorder = history.NewRecorder(log, store)
			a.recorder.Start(ctx)
			a.closers = append(a.closers, func() error {
				a.recorder.Stop()
				return store.Close()
			})
		}
	}
	return a, nil
}

// newToolRegistry builds the tool sandbox rooted at the configured
// workdir, defaulting to the current directory.
func (a *app) newToolRegistry() (*tools.Registry, error) {
	if !a.cfg.Tools.Enabled {
		return nil, nil
	}

	workdir := a.cfg.Tools.Workdir
	if workdir == "" {
		workdir = "."
	}
	sb, err := tools.NewSandbox(workdir)
	if err != nil {
		return nil, err
	}

	reg := tools.NewRegistry(confirmOnTerminal, a.cfg.Tools.AutoApprove)
	tools.RegisterDefaults(reg, sb)
	return reg, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("shutdown error", zap.Error(err))
		}
	}
	logger.Sync()
}

// confirmOnTerminal asks on stderr so it never mixes with piped output.
func confirmOnTerminal(name, args string) bool {
	fmt.Fprintf(os.Stderr, "%s run %s with %s? [y/N] ", cli.Arrow(), cli.Style(name, cli.Bold), args)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}
