package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docnorm/cmd/docnorm/commands"
	docerrors "git.home.luguber.info/inful/docnorm/internal/errors"
	"git.home.luguber.info/inful/docnorm/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("docnorm"),
		kong.Description("Normalize markdown documentation into a consistent layout: anchored title, numbered sections, table of contents and navigation footer."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	if err := ctx.Run(&commands.Global{}); err != nil {
		if errors.Is(err, commands.ErrNotConformant) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "docnorm: %v\n", err)
		os.Exit(docerrors.ExitCode(err))
	}
}
