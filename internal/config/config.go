// Package config resolves the tool configuration from defaults, an optional
// .env file, a YAML or JSON config file, and CLI overrides. Unknown keys and
// syntax errors are fatal at startup, before any document is touched.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docnorm/internal/docmodel"
	docerrors "git.home.luguber.info/inful/docnorm/internal/errors"
	"git.home.luguber.info/inful/docnorm/internal/normalize"
	"git.home.luguber.info/inful/docnorm/internal/scanner"
)

// DefaultPath is probed when no config file is given on the command line.
const DefaultPath = "docnorm.yaml"

// Config is the resolved application configuration.
type Config struct {
	// Roots are the directories scanned for markdown files.
	Roots []string `yaml:"roots" json:"roots"`

	// Include and Exclude are doublestar globs relative to each root.
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`

	// MaxDepth limits recursion below each root; 0 means unlimited.
	MaxDepth int `yaml:"max_depth" json:"max_depth"`

	// RespectGitignore skips files matched by the root's .gitignore.
	RespectGitignore bool `yaml:"respect_gitignore" json:"respect_gitignore"`

	// Jobs is the worker count for a run; 0 means one per CPU.
	Jobs int `yaml:"jobs" json:"jobs"`

	Normalize  NormalizeConfig  `yaml:"normalize" json:"normalize"`
	Navigation NavigationConfig `yaml:"navigation" json:"navigation"`
	Output     OutputConfig     `yaml:"output" json:"output"`
	State      StateConfig      `yaml:"state" json:"state"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
}

// NormalizeConfig mirrors the per-document normalization options.
type NormalizeConfig struct {
	RequireIntroduction bool            `yaml:"require_introduction" json:"require_introduction"`
	RequireTOC          bool            `yaml:"require_toc" json:"require_toc"`
	RequireNavigation   bool            `yaml:"require_navigation" json:"require_navigation"`
	TocCollapsible      bool            `yaml:"toc_collapsible" json:"toc_collapsible"`
	SectionNumbering    bool            `yaml:"section_numbering" json:"section_numbering"`
	TocMinSections      int             `yaml:"toc_min_sections" json:"toc_min_sections"`
	TocDepth            int             `yaml:"toc_depth" json:"toc_depth"`
	NumberingStart      int             `yaml:"numbering_start" json:"numbering_start"`
	NavigationFormat    string          `yaml:"navigation_format" json:"navigation_format"`
	MinContentLength    int             `yaml:"min_content_length" json:"min_content_length"`
	MaxTitleLength      int             `yaml:"max_title_length" json:"max_title_length"`
	Labels              docmodel.Labels `yaml:"labels" json:"labels"`
}

// NavigationConfig controls cross-file navigation sequencing.
type NavigationConfig struct {
	// Sequence links each file's previous/next to its neighbors in scan
	// order within the same root.
	Sequence bool `yaml:"sequence" json:"sequence"`
}

// OutputConfig controls write-back behavior.
type OutputConfig struct {
	// BackupSuffix, when set, copies the original to <path><suffix> before
	// the first overwrite.
	BackupSuffix string `yaml:"backup_suffix" json:"backup_suffix"`
}

// StateConfig locates the incremental-state database.
type StateConfig struct {
	Path string `yaml:"path" json:"path"`
}

// WatchConfig controls the continuous mode.
type WatchConfig struct {
	QuietWindow    Duration   `yaml:"quiet_window" json:"quiet_window"`
	MaxDelay       Duration   `yaml:"max_delay" json:"max_delay"`
	RescanInterval Duration   `yaml:"rescan_interval" json:"rescan_interval"`
	MetricsAddr    string     `yaml:"metrics_addr" json:"metrics_addr"`
	NATS           NATSConfig `yaml:"nats" json:"nats"`
}

// NATSConfig gates run-event publishing; empty URL disables it.
type NATSConfig struct {
	URL          string   `yaml:"url" json:"url"`
	Subject      string   `yaml:"subject" json:"subject"`
	MaxRetries   int      `yaml:"max_retries" json:"max_retries"`
	Backoff      string   `yaml:"backoff" json:"backoff"` // fixed|linear|exponential
	InitialDelay Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxBackoff   Duration `yaml:"max_backoff" json:"max_backoff"`
}

// Load resolves the configuration. An empty path probes DefaultPath and
// falls back to pure defaults when it does not exist; an explicit path must
// exist. A `.env` file in the working directory is loaded first so ${VAR}
// expansion inside the config file can see it.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the CLI
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			cfg := Default()
			return &cfg, nil
		}
		if os.IsNotExist(err) {
			return nil, docerrors.New(docerrors.CategoryConfig, docerrors.SeverityFatal,
				"configuration file not found").WithContext("path", path)
		}
		return nil, docerrors.Wrap(err, docerrors.CategoryConfig, docerrors.SeverityFatal,
			"failed to read config file").WithContext("path", path)
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(expanded))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, docerrors.Wrap(err, docerrors.CategoryConfig, docerrors.SeverityFatal,
				"failed to parse YAML config").WithContext("path", path)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(expanded))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, docerrors.Wrap(err, docerrors.CategoryConfig, docerrors.SeverityFatal,
				"failed to parse JSON config").WithContext("path", path)
		}
	default:
		return nil, docerrors.New(docerrors.CategoryConfig, docerrors.SeverityFatal,
			"unsupported config file extension").WithContext("path", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the full default configuration.
func Default() Config {
	return Config{
		Roots:            []string{"docs"},
		Include:          append([]string(nil), scanner.DefaultInclude...),
		RespectGitignore: true,
		Normalize: NormalizeConfig{
			RequireIntroduction: true,
			RequireTOC:          true,
			RequireNavigation:   true,
			TocCollapsible:      true,
			SectionNumbering:    true,
			TocMinSections:      2,
			TocDepth:            3,
			NumberingStart:      2,
			NavigationFormat:    normalize.DefaultNavigationFormat,
			MaxTitleLength:      80,
			Labels:              docmodel.DefaultLabels(),
		},
		Output: OutputConfig{BackupSuffix: ".bak"},
		State:  StateConfig{Path: filepath.Join(".docnorm", "state.db")},
		Watch: WatchConfig{
			QuietWindow: Duration{D: 2 * time.Second},
			MaxDelay:    Duration{D: 30 * time.Second},
			NATS: NATSConfig{
				Subject:      "docnorm.runs",
				MaxRetries:   3,
				Backoff:      "exponential",
				InitialDelay: Duration{D: 500 * time.Millisecond},
				MaxBackoff:   Duration{D: 10 * time.Second},
			},
		},
	}
}

// Validate checks cross-field constraints. Violations are fatal at startup.
func (c *Config) Validate() error {
	fail := func(msg string) error {
		return docerrors.New(docerrors.CategoryValidation, docerrors.SeverityFatal, msg)
	}

	if len(c.Roots) == 0 {
		return fail("at least one root is required")
	}
	if c.MaxDepth < 0 {
		return fail("max_depth must be >= 0")
	}
	if c.Jobs < 0 {
		return fail("jobs must be >= 0")
	}

	n := c.Normalize
	if n.TocMinSections < 0 {
		return fail("normalize.toc_min_sections must be >= 0")
	}
	if n.TocDepth < 2 || n.TocDepth > 6 {
		return fail("normalize.toc_depth must be between 2 and 6")
	}
	if n.NumberingStart < 1 {
		return fail("normalize.numbering_start must be >= 1")
	}
	if n.MinContentLength < 0 {
		return fail("normalize.min_content_length must be >= 0")
	}
	for _, ph := range []string{"{previous}", "{next}", "{top}"} {
		if !strings.Contains(n.NavigationFormat, ph) {
			return fail(fmt.Sprintf("normalize.navigation_format must contain %s", ph))
		}
	}

	w := c.Watch
	if w.QuietWindow.D <= 0 {
		return fail("watch.quiet_window must be > 0")
	}
	if w.MaxDelay.D < w.QuietWindow.D {
		return fail("watch.max_delay must be >= watch.quiet_window")
	}
	if w.NATS.URL != "" {
		switch w.NATS.Backoff {
		case "fixed", "linear", "exponential":
		default:
			return fail("watch.nats.backoff must be fixed, linear or exponential")
		}
		if w.NATS.Subject == "" {
			return fail("watch.nats.subject is required when nats is enabled")
		}
	}

	return nil
}

// NormalizeOptions converts the config into per-document options.
func (c *Config) NormalizeOptions() normalize.Options {
	n := c.Normalize
	return normalize.Options{
		RequireIntroduction: n.RequireIntroduction,
		RequireTOC:          n.RequireTOC,
		RequireNavigation:   n.RequireNavigation,
		TocCollapsible:      n.TocCollapsible,
		SectionNumbering:    n.SectionNumbering,
		TocMinSections:      n.TocMinSections,
		TocDepth:            n.TocDepth,
		NumberingStart:      n.NumberingStart,
		NavigationFormat:    n.NavigationFormat,
		MinContentLength:    n.MinContentLength,
		MaxTitleLength:      n.MaxTitleLength,
		Labels:              n.Labels,
	}
}

// ScannerOptions converts the config into scan options.
func (c *Config) ScannerOptions() scanner.Options {
	return scanner.Options{
		Include:          c.Include,
		Exclude:          c.Exclude,
		MaxDepth:         c.MaxDepth,
		RespectGitignore: c.RespectGitignore,
	}
}

// Init writes a commented example configuration. It refuses to overwrite an
// existing file unless force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return docerrors.New(docerrors.CategoryConfig, docerrors.SeverityFatal,
			"configuration file already exists (use --force to overwrite)").WithContext("path", path)
	} else if err != nil && !os.IsNotExist(err) {
		return docerrors.Wrap(err, docerrors.CategoryConfig, docerrors.SeverityFatal,
			"failed to stat config path").WithContext("path", path)
	}

	if err := os.WriteFile(path, []byte(exampleConfig), fs.FileMode(0o644)); err != nil {
		return docerrors.Wrap(err, docerrors.CategoryConfig, docerrors.SeverityFatal,
			"failed to write config file").WithContext("path", path)
	}
	return nil
}

const exampleConfig = `# docnorm configuration
# Directories scanned for markdown documents.
roots:
  - docs

# Doublestar globs relative to each root. Exclusion wins.
include:
  - "**/*.md"
  - "**/*.markdown"
exclude: []

# 0 means unlimited nesting.
max_depth: 0
respect_gitignore: true

# Worker count; 0 means one per CPU.
jobs: 0

normalize:
  require_introduction: true
  require_toc: true
  require_navigation: true
  toc_collapsible: true
  section_numbering: true
  toc_min_sections: 2
  toc_depth: 3
  numbering_start: 2
  navigation_format: "{previous} | {next} | {top}"
  min_content_length: 0
  max_title_length: 80
  labels:
    introduction: Introduction
    table_of_contents: Table of Contents
    navigation: Navigation

navigation:
  # Link previous/next to scan-order neighbors within the same root.
  sequence: false

output:
  backup_suffix: ".bak"

state:
  path: .docnorm/state.db

watch:
  quiet_window: 2s
  max_delay: 30s
  # 0 disables scheduled full passes.
  rescan_interval: 0s
  # Empty disables the metrics endpoint, e.g. ":9464" to enable.
  metrics_addr: ""
  nats:
    # Empty disables event publishing, e.g. nats://localhost:4222
    url: ""
    subject: docnorm.runs
    max_retries: 3
    backoff: exponential
    initial_delay: 500ms
    max_backoff: 10s
`
