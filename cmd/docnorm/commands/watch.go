package commands

import (
	"context"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docnorm/internal/metrics"
	"git.home.luguber.info/inful/docnorm/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Roots   []string `arg:"" optional:"" help:"Roots to watch (overrides configured roots)"`
	NoState bool     `help:"Disable the incremental state store"`
}

// Run executes the watch command, blocking until SIGINT/SIGTERM.
func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root, w.Roots)
	if err != nil {
		return err
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Watch.MetricsAddr != "" {
		recorder = metrics.NewPrometheusRecorder(prom.NewRegistry())
	}

	r, store, err := buildRunner(cfg, w.NoState, recorder)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	service, err := watch.NewService(cfg, r, recorder)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return service.Run(ctx)
}
