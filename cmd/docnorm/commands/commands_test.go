package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docnorm/internal/config"
	dtesting "git.home.luguber.info/inful/docnorm/internal/testing"
)

const sampleDoc = `# User Guide

Some introductory words.

## Getting Started

Install it.

## Usage

Run it.
`

// writeConfig serializes cfg next to the tree so commands load it like users do.
func writeConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "docnorm.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func testTree(t *testing.T) (*dtesting.TreeBuilder, *CLI) {
	t.Helper()
	tree := dtesting.NewTreeBuilder(t).
		WithDoc("guide.md", sampleDoc).
		WithConfig(func(cfg *config.Config) {
			cfg.State.Path = filepath.Join(t.TempDir(), "state.db")
		})
	root := &CLI{Config: writeConfig(t, tree.Config())}
	return tree, root
}

func TestNormalizeCommand(t *testing.T) {
	tree, root := testTree(t)

	cmd := &NormalizeCmd{Format: "text"}
	require.NoError(t, cmd.Run(&Global{}, root))

	tree.Assert().
		AssertFileContains("guide.md", `# User Guide <a id="top"></a>`).
		AssertFileContains("guide.md", "## Table of Contents").
		AssertFileContains("guide.md", "## 2. Getting Started").
		AssertFileContains("guide.md", "[Top](#top)")

	// Second invocation is a no-op thanks to the state store.
	require.NoError(t, cmd.Run(&Global{}, root))
}

func TestNormalizeCommandDryRun(t *testing.T) {
	tree, root := testTree(t)

	cmd := &NormalizeCmd{Format: "text", DryRun: true}
	require.NoError(t, cmd.Run(&Global{}, root))

	tree.Assert().
		AssertFileNotContains("guide.md", "Table of Contents").
		AssertFileEquals("guide.md", sampleDoc)
}

func TestNormalizeCommandNoBackup(t *testing.T) {
	tree := dtesting.NewTreeBuilder(t).
		WithDoc("guide.md", sampleDoc).
		WithConfig(func(cfg *config.Config) {
			cfg.Output.BackupSuffix = ".bak"
			cfg.State.Path = filepath.Join(t.TempDir(), "state.db")
		})
	root := &CLI{Config: writeConfig(t, tree.Config())}

	cmd := &NormalizeCmd{Format: "text", NoBackup: true}
	require.NoError(t, cmd.Run(&Global{}, root))

	tree.Assert().
		AssertFileContains("guide.md", "## Table of Contents").
		AssertFileNotExists("guide.md.bak")
}

func TestNormalizeCommandJobsAndQuiet(t *testing.T) {
	tree, root := testTree(t)

	cmd := &NormalizeCmd{Format: "text", Jobs: 1, Quiet: true}
	require.NoError(t, cmd.Run(&Global{}, root))

	tree.Assert().AssertFileContains("guide.md", "## Table of Contents")
}

func TestCheckCommand(t *testing.T) {
	tree, root := testTree(t)

	cmd := &CheckCmd{Format: "text"}
	err := cmd.Run(&Global{}, root)
	require.ErrorIs(t, err, ErrNotConformant)

	// Check never writes.
	tree.Assert().AssertFileEquals("guide.md", sampleDoc)

	// After normalization the check passes.
	require.NoError(t, (&NormalizeCmd{Format: "text"}).Run(&Global{}, root))
	require.NoError(t, cmd.Run(&Global{}, root))
}

func TestCheckCommandJSONFormat(t *testing.T) {
	_, root := testTree(t)

	cmd := &CheckCmd{Format: "json"}
	err := cmd.Run(&Global{}, root)
	require.ErrorIs(t, err, ErrNotConformant)
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docnorm.yaml")
	root := &CLI{Config: path}

	require.NoError(t, (&InitCmd{}).Run(&Global{}, root))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"docs"}, cfg.Roots)

	err = (&InitCmd{}).Run(&Global{}, root)
	require.Error(t, err)
	require.NoError(t, (&InitCmd{Force: true}).Run(&Global{}, root))
}

func TestNormalizeCommandRootOverride(t *testing.T) {
	tree, root := testTree(t)

	other := dtesting.NewTreeBuilder(t).WithDoc("notes.md", sampleDoc)

	cmd := &NormalizeCmd{Roots: []string{other.Root()}, Format: "text", NoState: true}
	require.NoError(t, cmd.Run(&Global{}, root))

	other.Assert().AssertFileContains("notes.md", "## Table of Contents")
	tree.Assert().AssertFileEquals("guide.md", sampleDoc)
}
