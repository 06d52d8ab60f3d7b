package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/sitepipe/internal/build"
	"git.home.luguber.info/inful/sitepipe/internal/config"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
	"git.home.luguber.info/inful/sitepipe/internal/preview"
	"git.home.luguber.info/inful/sitepipe/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Output   string        `short:"o" help:"Override the configured output directory" type:"path"`
	Interval time.Duration `help:"Also rebuild on this interval (overrides watch.interval)"`
	Serve    bool          `help:"Serve the output with live reload and /metrics"`
	Addr     string        `help:"Preview server address (overrides preview.addr)"`
	NoCache  bool          `name:"no-cache" help:"Disable the execution cache"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if w.Interval > 0 {
		cfg.Watch.Interval = w.Interval
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	hub := preview.NewLiveReloadHub(g.Logger)
	svc := build.NewBuildService().
		WithLogger(g.Logger).
		WithRecorder(metrics.NewPrometheusRecorder(reg)).
		WithObserver(hub)
	defer func() {
		if err := svc.Close(); err != nil {
			g.Logger.Warn("Closing build service failed", "error", err)
		}
	}()

	if w.Serve {
		siteDir := w.Output
		if siteDir == "" {
			siteDir = cfg.OutputDir()
		}
		server := preview.NewServer(siteDir, hub, reg, g.Logger)
		if err := server.Start(w.previewAddr(cfg)); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				g.Logger.Warn("Preview server shutdown error", "error", err)
			}
		}()
	}

	watcher := watch.New(svc, cfg,
		watch.WithLogger(g.Logger),
		watch.WithOutputDir(w.Output),
		watch.WithBuildOptions(build.BuildOptions{NoCache: w.NoCache}),
		watch.WithConfigFile(root.Config, func() (*config.Config, error) {
			next, err := config.Load(root.Config)
			if err == nil && w.Interval > 0 {
				next.Watch.Interval = w.Interval
			}
			return next, err
		}),
	)
	return watcher.Run(ctx)
}

func (w *WatchCmd) previewAddr(cfg *config.Config) string {
	if w.Addr != "" {
		return w.Addr
	}
	return cfg.Preview.Addr
}
