package runner

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/docnorm/internal/normalize"
)

// Status classifies the outcome for one file.
type Status string

const (
	StatusConformant Status = "conformant"
	StatusChanged    Status = "changed"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// FileResult is the outcome for one scanned file.
type FileResult struct {
	Path    string                  `json:"path"`
	RelPath string                  `json:"rel_path"`
	Status  Status                  `json:"status"`
	Summary normalize.ChangeSummary `json:"summary,omitzero"`
	Reason  string                  `json:"reason,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// Report aggregates one run over a file set.
type Report struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	DryRun     bool         `json:"dry_run"`
	Check      bool         `json:"check"`
	Files      int          `json:"files"`
	Conformant int          `json:"conformant"`
	Changed    int          `json:"changed"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	Results    []FileResult `json:"results"`
	ScanErrors []string     `json:"scan_errors,omitempty"`
}

// HasFailures reports whether any file failed or a scan error occurred.
func (r *Report) HasFailures() bool {
	return r.Failed > 0 || len(r.ScanErrors) > 0
}

// Outcome is the run-level label used for metrics and events.
func (r *Report) Outcome() string {
	switch {
	case r.Failed == r.Files && r.Files > 0:
		return "failed"
	case r.HasFailures():
		return "partial"
	default:
		return "success"
	}
}

func (r *Report) finalize() {
	sort.Slice(r.Results, func(i, j int) bool { return r.Results[i].Path < r.Results[j].Path })
	r.Files = len(r.Results)
	r.Conformant, r.Changed, r.Skipped, r.Failed = 0, 0, 0, 0
	for _, res := range r.Results {
		switch res.Status {
		case StatusConformant:
			r.Conformant++
		case StatusChanged:
			r.Changed++
		case StatusSkipped:
			r.Skipped++
		case StatusFailed:
			r.Failed++
		}
	}
}

// Formatter renders a report for output.
type Formatter interface {
	Format(w io.Writer, report *Report) error
}

// TextFormatter renders a report as human-readable text.
type TextFormatter struct {
	// Verbose includes conformant and skipped files in the listing.
	Verbose bool
	// Quiet suppresses changed-file lines and warnings; failures, scan
	// errors and the summary footer are still printed.
	Quiet bool
}

// Format outputs the report in human-readable text format.
func (f *TextFormatter) Format(w io.Writer, report *Report) error {
	for _, res := range report.Results {
		switch res.Status {
		case StatusChanged:
			if f.Quiet {
				continue
			}
			verb := "normalized"
			if report.Check || report.DryRun {
				verb = "would change"
			}
			if _, err := fmt.Fprintf(w, "  %s  %s%s\n", verb, res.RelPath, describeSummary(res.Summary)); err != nil {
				return err
			}
		case StatusFailed:
			if _, err := fmt.Fprintf(w, "  failed      %s: %s\n", res.RelPath, res.Error); err != nil {
				return err
			}
		case StatusConformant, StatusSkipped:
			if f.Quiet || !f.Verbose {
				continue
			}
			if _, err := fmt.Fprintf(w, "  %-11s %s\n", res.Status, res.RelPath); err != nil {
				return err
			}
		}
		if f.Quiet {
			continue
		}
		for _, flag := range res.Summary.Flags {
			line := fmt.Sprintf("    warning: %s: %s", flag.Code, flag.Message)
			if flag.Line > 0 {
				line = fmt.Sprintf("%s (line %d)", line, flag.Line)
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}

	for _, scanErr := range report.ScanErrors {
		if _, err := fmt.Fprintf(w, "  scan error: %s\n", scanErr); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, strings.Repeat("━", 60)); err != nil {
		return err
	}
	dur := report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)
	_, err := fmt.Fprintf(w, "%d files: %d conformant, %d changed, %d skipped, %d failed (%s)\n",
		report.Files, report.Conformant, report.Changed, report.Skipped, report.Failed, dur)
	return err
}

func describeSummary(sum normalize.ChangeSummary) string {
	var parts []string
	add := func(name string, action normalize.Action) {
		if action != "" && action != normalize.ActionNone {
			parts = append(parts, fmt.Sprintf("%s %s", name, action))
		}
	}
	add("title", sum.Title)
	add("introduction", sum.Introduction)
	add("toc", sum.TOC)
	add("navigation", sum.Navigation)
	if sum.Renumbered > 0 {
		parts = append(parts, fmt.Sprintf("%d renumbered", sum.Renumbered))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// JSONFormatter renders a report as a single JSON document.
type JSONFormatter struct{}

// Format outputs the report as indented JSON.
func (f *JSONFormatter) Format(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// NewFormatter returns the formatter for an output format name.
func NewFormatter(format string, verbose, quiet bool) (Formatter, error) {
	switch format {
	case "", "text":
		return &TextFormatter{Verbose: verbose, Quiet: quiet}, nil
	case "json":
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
