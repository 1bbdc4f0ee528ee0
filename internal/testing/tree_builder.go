package testing

import (
	"os"
	"path/filepath"
	"testing"

	"git.home.luguber.info/inful/docnorm/internal/config"
)

// TreeBuilder provides a fluent interface for laying out a documentation tree
// under a temp directory for integration tests.
type TreeBuilder struct {
	t    *testing.T
	root string
	cfg  config.Config
}

// NewTreeBuilder creates a builder rooted at a fresh temp directory.
func NewTreeBuilder(t *testing.T) *TreeBuilder {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Roots = []string{root}
	cfg.Output.BackupSuffix = ""
	return &TreeBuilder{t: t, root: root, cfg: cfg}
}

// Root returns the tree's base directory.
func (tb *TreeBuilder) Root() string { return tb.root }

// WithDoc writes a markdown file at a path relative to the root.
func (tb *TreeBuilder) WithDoc(relPath, content string) *TreeBuilder {
	tb.t.Helper()
	full := filepath.Join(tb.root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), testDirPermissions); err != nil {
		tb.t.Fatalf("Failed to create directory for %s: %v", relPath, err)
	}
	if err := os.WriteFile(full, []byte(content), testFilePermissions); err != nil {
		tb.t.Fatalf("Failed to write %s: %v", relPath, err)
	}
	return tb
}

// WithConfig mutates the config the tree will be processed with.
func (tb *TreeBuilder) WithConfig(mutate func(*config.Config)) *TreeBuilder {
	mutate(&tb.cfg)
	return tb
}

// Config returns the accumulated configuration.
func (tb *TreeBuilder) Config() *config.Config {
	cfg := tb.cfg
	return &cfg
}

// Assert returns file assertions rooted at the tree.
func (tb *TreeBuilder) Assert() *FileAssertions {
	return NewFileAssertions(tb.t, tb.root)
}
