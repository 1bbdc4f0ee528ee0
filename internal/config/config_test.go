package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	docerrors "git.home.luguber.info/inful/docnorm/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "docnorm.yaml", `
roots:
  - guides
  - reference
exclude:
  - "drafts/**"
jobs: 4
normalize:
  toc_depth: 2
  numbering_start: 1
  labels:
    introduction: Overview
watch:
  quiet_window: 250ms
  max_delay: 5s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"guides", "reference"}, cfg.Roots)
	require.Equal(t, []string{"drafts/**"}, cfg.Exclude)
	require.Equal(t, 4, cfg.Jobs)
	require.Equal(t, 2, cfg.Normalize.TocDepth)
	require.Equal(t, 1, cfg.Normalize.NumberingStart)
	require.Equal(t, "Overview", cfg.Normalize.Labels.Introduction)
	require.Equal(t, 250*time.Millisecond, cfg.Watch.QuietWindow.D)
	require.Equal(t, 5*time.Second, cfg.Watch.MaxDelay.D)

	// Unset fields keep defaults.
	require.True(t, cfg.RespectGitignore)
	require.True(t, cfg.Normalize.RequireTOC)
	require.Equal(t, "Table of Contents", cfg.Normalize.Labels.TableOfContents)
	require.Equal(t, ".bak", cfg.Output.BackupSuffix)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "docnorm.json", `{
  "roots": ["docs"],
  "normalize": {"section_numbering": false},
  "watch": {"quiet_window": "1s", "max_delay": "10s"}
}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.False(t, cfg.Normalize.SectionNumbering)
	require.Equal(t, time.Second, cfg.Watch.QuietWindow.D)
}

func TestLoadUnknownKeyRejected(t *testing.T) {
	dir := t.TempDir()

	yamlPath := writeFile(t, dir, "bad.yaml", "rootz:\n  - docs\n")
	_, err := Load(yamlPath)
	require.Error(t, err)
	require.True(t, docerrors.IsCategory(err, docerrors.CategoryConfig))

	jsonPath := writeFile(t, dir, "bad.json", `{"rootz": ["docs"]}`)
	_, err = Load(jsonPath)
	require.Error(t, err)
	require.True(t, docerrors.IsCategory(err, docerrors.CategoryConfig))
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.True(t, docerrors.IsCategory(err, docerrors.CategoryConfig))
}

func TestLoadMissingDefaultPathFallsBack(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default().Roots, cfg.Roots)
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("DOCNORM_TEST_ROOT", "handbook")
	dir := t.TempDir()
	path := writeFile(t, dir, "docnorm.yaml", "roots:\n  - ${DOCNORM_TEST_ROOT}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"handbook"}, cfg.Roots)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no roots", func(c *Config) { c.Roots = nil }},
		{"negative jobs", func(c *Config) { c.Jobs = -1 }},
		{"negative max depth", func(c *Config) { c.MaxDepth = -1 }},
		{"toc depth too shallow", func(c *Config) { c.Normalize.TocDepth = 1 }},
		{"toc depth too deep", func(c *Config) { c.Normalize.TocDepth = 7 }},
		{"numbering start zero", func(c *Config) { c.Normalize.NumberingStart = 0 }},
		{"negative toc min sections", func(c *Config) { c.Normalize.TocMinSections = -1 }},
		{"format missing top", func(c *Config) { c.Normalize.NavigationFormat = "{previous} | {next}" }},
		{"zero quiet window", func(c *Config) { c.Watch.QuietWindow.D = 0 }},
		{"max delay below quiet window", func(c *Config) { c.Watch.MaxDelay.D = c.Watch.QuietWindow.D / 2 }},
		{"bad nats backoff", func(c *Config) {
			c.Watch.NATS.URL = "nats://localhost:4222"
			c.Watch.NATS.Backoff = "random"
		}},
		{"nats without subject", func(c *Config) {
			c.Watch.NATS.URL = "nats://localhost:4222"
			c.Watch.NATS.Subject = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, docerrors.IsCategory(err, docerrors.CategoryValidation))
		})
	}

	cfg := Default()
	require.NoError(t, cfg.Validate())
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docnorm.yaml")

	require.NoError(t, Init(path, false))

	// The generated example must load cleanly.
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, []string{"docs"}, cfg.Roots)

	// Refuses to clobber without force.
	err = Init(path, false)
	require.Error(t, err)
	require.NoError(t, Init(path, true))
}

func TestNormalizeOptionsMapping(t *testing.T) {
	cfg := Default()
	cfg.Normalize.TocDepth = 4
	cfg.Normalize.Labels.Navigation = "Links"

	opts := cfg.NormalizeOptions()
	require.Equal(t, 4, opts.TocDepth)
	require.Equal(t, "Links", opts.Labels.Navigation)
	require.True(t, opts.RequireIntroduction)
}
