// Package runner executes a normalization pass over a scanned file set: a
// bounded worker pool reads, processes and writes documents, optionally
// skipping files whose stored hash shows the previous output is still intact.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docnorm/internal/config"
	docerrors "git.home.luguber.info/inful/docnorm/internal/errors"
	"git.home.luguber.info/inful/docnorm/internal/logfields"
	"git.home.luguber.info/inful/docnorm/internal/metrics"
	"git.home.luguber.info/inful/docnorm/internal/normalize"
	"git.home.luguber.info/inful/docnorm/internal/scanner"
	"git.home.luguber.info/inful/docnorm/internal/state"
)

// Options alters a single run, layered on top of the config.
type Options struct {
	// DryRun processes everything but writes nothing.
	DryRun bool
	// Check processes everything, writes nothing, and treats non-conformant
	// files as a reportable condition rather than work to do.
	Check bool
	// Force normalizes files even when the state store says they are
	// unchanged since the last run.
	Force bool
}

// Runner executes normalization passes.
type Runner struct {
	cfg      *config.Config
	proc     *normalize.Processor
	store    *state.Store // nil disables incremental skipping
	recorder metrics.Recorder
	logger   *slog.Logger
}

// New constructs a Runner. store may be nil; recorder may be nil for noop.
func New(cfg *config.Config, store *state.Store, recorder metrics.Recorder) *Runner {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Runner{
		cfg:      cfg,
		proc:     normalize.NewProcessor(),
		store:    store,
		recorder: recorder,
		logger:   slog.Default(),
	}
}

// Run scans the configured roots and normalizes every matched file. Scan
// errors for individual roots are reported, not fatal; the returned error is
// reserved for conditions that prevented the run entirely.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	runID := uuid.NewString()
	started := time.Now()

	files, scanErrs := scanner.Scan(r.cfg.Roots, r.cfg.ScannerOptions())

	report := &Report{
		RunID:     runID,
		StartedAt: started,
		DryRun:    opts.DryRun,
		Check:     opts.Check,
	}
	for _, err := range scanErrs {
		report.ScanErrors = append(report.ScanErrors, err.Error())
	}

	neighbors := sequenceNeighbors(files, r.cfg.Navigation.Sequence)

	jobs := r.cfg.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > len(files) {
		jobs = len(files)
	}
	if jobs < 1 {
		jobs = 1
	}
	r.recorder.SetWorkerCount(jobs)

	r.logger.Info("run started",
		logfields.RunID(runID),
		logfields.Files(len(files)),
		slog.Int("jobs", jobs),
		slog.Bool("dry_run", opts.DryRun),
		slog.Bool("check", opts.Check),
	)

	tasks := make(chan scanner.File)
	var wg sync.WaitGroup
	var mu sync.Mutex
	worker := func() {
		defer wg.Done()
		for file := range tasks {
			select {
			case <-ctx.Done():
				return
			default:
			}
			start := time.Now()
			res := r.processFile(ctx, file, neighbors[file.Path], runID, opts)
			r.recorder.ObserveFileDuration(string(res.Status), time.Since(start))
			r.recorder.IncFileResult(string(res.Status))
			mu.Lock()
			report.Results = append(report.Results, res)
			mu.Unlock()
		}
	}
	wg.Add(jobs)
	for range jobs {
		go worker()
	}
	for _, file := range files {
		select {
		case <-ctx.Done():
			close(tasks)
			wg.Wait()
			return nil, ctx.Err()
		case tasks <- file:
		}
	}
	close(tasks)
	wg.Wait()

	report.FinishedAt = time.Now()
	report.finalize()
	r.recorder.ObserveRunDuration(report.FinishedAt.Sub(started))
	r.recorder.IncRunOutcome(report.Outcome())

	if r.store != nil && !opts.DryRun && !opts.Check {
		if err := r.store.RecordRun(ctx, state.RunRecord{
			RunID:      runID,
			StartedAt:  started,
			FinishedAt: report.FinishedAt,
			Files:      report.Files,
			Changed:    report.Changed,
			Failed:     report.Failed,
			Skipped:    report.Skipped,
		}); err != nil {
			r.logger.Warn("failed to record run", logfields.RunID(runID), logfields.Error(err))
		}
	}

	r.logger.Info("run finished",
		logfields.RunID(runID),
		logfields.Files(report.Files),
		logfields.Changed(report.Changed),
		logfields.Skipped(report.Skipped),
		logfields.Failed(report.Failed),
		logfields.DurationMS(float64(report.FinishedAt.Sub(started).Milliseconds())),
	)
	return report, nil
}

type neighborLinks struct {
	previous string
	next     string
}

// sequenceNeighbors links each file to its scan-order neighbors within the
// same root. Targets are slash-separated paths relative to the file's own
// directory so the links survive directory moves of the whole tree.
func sequenceNeighbors(files []scanner.File, enabled bool) map[string]neighborLinks {
	links := make(map[string]neighborLinks, len(files))
	if !enabled {
		return links
	}
	byRoot := make(map[string][]scanner.File)
	for _, f := range files {
		byRoot[f.Root] = append(byRoot[f.Root], f)
	}
	for _, group := range byRoot {
		for i, f := range group {
			var nl neighborLinks
			if i > 0 {
				nl.previous = relativeTarget(f.Path, group[i-1].Path)
			}
			if i < len(group)-1 {
				nl.next = relativeTarget(f.Path, group[i+1].Path)
			}
			links[f.Path] = nl
		}
	}
	return links
}

func relativeTarget(from, to string) string {
	rel, err := filepath.Rel(filepath.Dir(from), to)
	if err != nil {
		return filepath.ToSlash(to)
	}
	return filepath.ToSlash(rel)
}

func (r *Runner) processFile(ctx context.Context, file scanner.File, links neighborLinks, runID string, opts Options) FileResult {
	res := FileResult{Path: file.Path, RelPath: file.RelPath}

	content, err := os.ReadFile(file.Path) // #nosec G304 -- path comes from the scanner
	if err != nil {
		res.Status = StatusFailed
		res.Error = docerrors.Wrap(err, docerrors.CategoryFileSystem, docerrors.SeverityError,
			"failed to read file").Error()
		return res
	}

	popts := r.cfg.NormalizeOptions()
	popts.SourceName = filepath.Base(file.Path)
	popts.Previous = links.previous
	popts.Next = links.next

	// Hashes are salted with the effective options so a config change or a
	// new navigation neighbor invalidates the stored state for the file.
	fingerprint := optionsFingerprint(popts)
	contentHash := state.HashWith(content, fingerprint)
	if r.store != nil && !opts.Force {
		unchanged, err := r.store.Unchanged(ctx, file.Path, contentHash)
		if err != nil {
			r.logger.Warn("state lookup failed", logfields.Path(file.Path), logfields.Error(err))
		} else if unchanged {
			res.Status = StatusSkipped
			res.Reason = "unchanged since last run"
			return res
		}
	}

	popts.Force = opts.Force

	out, sum, err := r.proc.Process(content, popts)
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}
	res.Summary = sum

	if !sum.Changed {
		if sum.HasFlag("content-too-short") || sum.HasFlag("unclosed-fence") {
			res.Status = StatusSkipped
			res.Reason = "not safely normalizable"
		} else {
			res.Status = StatusConformant
			r.recordState(ctx, file.Path, contentHash, contentHash, runID, opts)
		}
		return res
	}

	res.Status = StatusChanged
	if opts.DryRun || opts.Check {
		return res
	}

	if err := r.writeFile(file.Path, content, out); err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}
	r.recordState(ctx, file.Path, contentHash, state.HashWith(out, fingerprint), runID, opts)
	return res
}

// optionsFingerprint digests the per-file normalize options. Force is a
// run-level override, not part of the output shape, so it is excluded.
func optionsFingerprint(opts normalize.Options) string {
	opts.Force = false
	data, err := json.Marshal(opts)
	if err != nil {
		return ""
	}
	return state.Hash(data)
}

func (r *Runner) recordState(ctx context.Context, path, contentHash, resultHash, runID string, opts Options) {
	if r.store == nil || opts.DryRun || opts.Check {
		return
	}
	if err := r.store.Record(ctx, path, contentHash, resultHash, runID); err != nil {
		r.logger.Warn("failed to record file state", logfields.Path(path), logfields.Error(err))
	}
}

// writeFile atomically replaces path with out, taking a one-time backup of
// the original when a backup suffix is configured.
func (r *Runner) writeFile(path string, original, out []byte) error {
	if bytes.Equal(original, out) {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return docerrors.Wrap(err, docerrors.CategoryFileSystem, docerrors.SeverityError,
			"failed to stat file").WithContext("path", path)
	}
	mode := info.Mode().Perm()

	if suffix := r.cfg.Output.BackupSuffix; suffix != "" {
		backup := path + suffix
		if _, err := os.Stat(backup); os.IsNotExist(err) {
			if err := os.WriteFile(backup, original, mode); err != nil {
				return docerrors.Wrap(err, docerrors.CategoryFileSystem, docerrors.SeverityError,
					"failed to write backup").WithContext("path", backup)
			}
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".docnorm-*")
	if err != nil {
		return docerrors.Wrap(err, docerrors.CategoryFileSystem, docerrors.SeverityError,
			"failed to create temp file").WithContext("path", path)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return docerrors.Wrap(err, docerrors.CategoryFileSystem, docerrors.SeverityError,
			"failed to write temp file").WithContext("path", path)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return docerrors.Wrap(err, docerrors.CategoryFileSystem, docerrors.SeverityError,
			"failed to close temp file").WithContext("path", path)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		_ = os.Remove(tmpName)
		return docerrors.Wrap(err, docerrors.CategoryFileSystem, docerrors.SeverityError,
			"failed to set file mode").WithContext("path", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return docerrors.Wrap(err, docerrors.CategoryFileSystem, docerrors.SeverityError,
			"failed to replace file").WithContext("path", path)
	}
	return nil
}
