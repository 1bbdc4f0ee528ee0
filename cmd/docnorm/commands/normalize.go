package commands

import (
	"context"
	"os"

	docerrors "git.home.luguber.info/inful/docnorm/internal/errors"
	"git.home.luguber.info/inful/docnorm/internal/runner"
)

// NormalizeCmd implements the 'normalize' command.
type NormalizeCmd struct {
	Roots    []string `arg:"" optional:"" help:"Roots to scan (overrides configured roots)"`
	Format   string   `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
	DryRun   bool     `help:"Show what would change without writing"`
	Force    bool     `help:"Reprocess files even when unchanged since the last run"`
	NoState  bool     `help:"Disable the incremental state store for this run"`
	NoBackup bool     `help:"Do not create .bak copies of modified files"`
	Jobs     int      `short:"j" help:"Number of parallel workers (overrides config)"`
	Quiet    bool     `short:"q" help:"Only show failures and the summary line"`
}

// Run executes the normalize command.
func (n *NormalizeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root, n.Roots)
	if err != nil {
		return err
	}
	if n.Jobs > 0 {
		cfg.Jobs = n.Jobs
	}
	if n.NoBackup {
		cfg.Output.BackupSuffix = ""
	}

	r, store, err := buildRunner(cfg, n.NoState || n.DryRun, nil)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	report, err := r.Run(context.Background(), runner.Options{
		DryRun: n.DryRun,
		Force:  n.Force,
	})
	if err != nil {
		return err
	}

	formatter, err := runner.NewFormatter(n.Format, root.Verbose, n.Quiet)
	if err != nil {
		return err
	}
	if err := formatter.Format(os.Stdout, report); err != nil {
		return err
	}

	if report.HasFailures() {
		return docerrors.New(docerrors.CategoryProcess, docerrors.SeverityError,
			"some files failed to normalize")
	}
	return nil
}
