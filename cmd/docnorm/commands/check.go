package commands

import (
	"context"
	"os"

	docerrors "git.home.luguber.info/inful/docnorm/internal/errors"
	"git.home.luguber.info/inful/docnorm/internal/runner"
)

// CheckCmd implements the 'check' command: a read-only pass whose exit code
// tells CI whether the tree is conformant.
type CheckCmd struct {
	Roots  []string `arg:"" optional:"" help:"Roots to scan (overrides configured roots)"`
	Format string   `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
	Quiet  bool     `short:"q" help:"Only show failures and the summary line"`
}

// Run executes the check command.
func (c *CheckCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root, c.Roots)
	if err != nil {
		return err
	}

	// Check never consults or updates the state store: its verdict must be
	// derived from the files as they are now.
	r, _, err := buildRunner(cfg, true, nil)
	if err != nil {
		return err
	}

	report, err := r.Run(context.Background(), runner.Options{Check: true})
	if err != nil {
		return err
	}

	formatter, err := runner.NewFormatter(c.Format, root.Verbose, c.Quiet)
	if err != nil {
		return err
	}
	if err := formatter.Format(os.Stdout, report); err != nil {
		return err
	}

	if report.HasFailures() {
		return docerrors.New(docerrors.CategoryProcess, docerrors.SeverityError,
			"some files failed to check")
	}
	if report.Changed > 0 {
		return ErrNotConformant
	}
	return nil
}
