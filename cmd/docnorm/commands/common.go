package commands

import (
	"errors"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docnorm/internal/config"
	"git.home.luguber.info/inful/docnorm/internal/metrics"
	"git.home.luguber.info/inful/docnorm/internal/runner"
	"git.home.luguber.info/inful/docnorm/internal/state"
)

// ErrNotConformant is returned by check when documents need changes. The
// entry point maps it to exit code 1, distinct from processing failures.
var ErrNotConformant = errors.New("documents are not conformant")

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (docnorm.yaml if present)"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Normalize NormalizeCmd `cmd:"" default:"withargs" help:"Normalize markdown documents under the configured roots"`
	Check     CheckCmd     `cmd:"" help:"Report non-conformant documents without writing"`
	Init      InitCmd      `cmd:"" help:"Initialize a new configuration file"`
	Watch     WatchCmd     `cmd:"" help:"Watch the roots and normalize continuously"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig resolves the config file and applies root overrides given as
// positional arguments.
func loadConfig(root *CLI, rootArgs []string) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	if len(rootArgs) > 0 {
		cfg.Roots = rootArgs
	}
	return cfg, nil
}

// buildRunner wires the runner with the configured state store.
func buildRunner(cfg *config.Config, noState bool, recorder metrics.Recorder) (*runner.Runner, *state.Store, error) {
	var store *state.Store
	if !noState && cfg.State.Path != "" {
		var err error
		store, err = state.Open(cfg.State.Path)
		if err != nil {
			return nil, nil, err
		}
	}
	return runner.New(cfg, store, recorder), store, nil
}
