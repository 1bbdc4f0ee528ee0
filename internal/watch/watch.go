// Package watch runs the normalizer continuously: filesystem events are
// coalesced through a debouncer, each flush triggers a pass over the
// configured roots, and optional scheduled rescans catch anything the
// watcher missed. Run events can be published to NATS and metrics exposed
// over HTTP.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docnorm/internal/config"
	docerrors "git.home.luguber.info/inful/docnorm/internal/errors"
	"git.home.luguber.info/inful/docnorm/internal/logfields"
	"git.home.luguber.info/inful/docnorm/internal/metrics"
	"git.home.luguber.info/inful/docnorm/internal/runner"
)

// Service owns the watcher, debouncer, scheduler and publisher for one
// continuous session.
type Service struct {
	cfg       *config.Config
	runner    *runner.Runner
	recorder  metrics.Recorder
	publisher *Publisher
	logger    *slog.Logger

	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	scheduler gocron.Scheduler

	metricsSrv *http.Server

	runCh chan string // trigger reasons, capacity 1
}

// NewService wires a Service from the config. The runner must be constructed
// by the caller so command-level options (force, state store) apply.
func NewService(cfg *config.Config, r *runner.Runner, recorder metrics.Recorder) (*Service, error) {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, docerrors.Wrap(err, docerrors.CategoryWatch, docerrors.SeverityFatal,
			"failed to create file watcher")
	}

	s := &Service{
		cfg:      cfg,
		runner:   r,
		recorder: recorder,
		logger:   slog.Default(),
		watcher:  watcher,
		runCh:    make(chan string, 1),
	}

	s.debouncer, err = NewDebouncer(DebouncerConfig{
		QuietWindow: cfg.Watch.QuietWindow.D,
		MaxDelay:    cfg.Watch.MaxDelay.D,
	}, s.onFlush)
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}

	publisher, err := NewPublisher(cfg.Watch.NATS, recorder)
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}
	s.publisher = publisher

	return s, nil
}

// Run blocks until ctx is canceled. It performs one full pass at startup, so
// a freshly watched tree is immediately conformant.
func (s *Service) Run(ctx context.Context) error {
	defer s.close()

	for _, root := range s.cfg.Roots {
		if err := s.addRecursive(root); err != nil {
			return err
		}
	}

	if err := s.startScheduler(); err != nil {
		return err
	}
	s.startMetrics()

	go func() {
		if err := s.debouncer.Run(ctx); err != nil {
			s.logger.Error("debouncer stopped", logfields.Error(err))
		}
	}()
	go s.eventLoop(ctx)

	s.execute(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("watch stopped")
			return nil
		case trigger := <-s.runCh:
			s.execute(ctx, trigger)
		}
	}
}

// execute runs one pass and publishes its outcome.
func (s *Service) execute(ctx context.Context, trigger string) {
	report, err := s.runner.Run(ctx, runner.Options{})
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("pass failed", logfields.Error(err))
		}
		return
	}
	s.publisher.Publish(ctx, eventFromReport(report, trigger))
}

// onFlush is called by the debouncer. The runner scans the full root set, so
// the paths only inform logging; coalescing them into one pass keeps the
// incremental skip effective.
func (s *Service) onFlush(paths []string, reason string) {
	s.recorder.IncDebounceFlush(reason)
	s.logger.Info("changes detected",
		logfields.Files(len(paths)),
		slog.String("reason", reason),
	)
	s.trigger("watch")
}

func (s *Service) trigger(reason string) {
	select {
	case s.runCh <- reason:
	default:
		// A run is already queued; the pending one covers these changes.
	}
}

// eventLoop feeds filesystem events into the debouncer and keeps the
// directory set current as the tree grows.
func (s *Service) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (s *Service) handleEvent(event fsnotify.Event) {
	if s.ignored(event.Name) {
		return
	}
	s.recorder.IncWatchEvent(event.Op.String())

	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := s.addRecursive(event.Name); err != nil {
				s.logger.Warn("failed to watch new directory",
					logfields.Path(event.Name), logfields.Error(err))
			}
			return
		}
	}

	if !isMarkdown(event.Name) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	s.debouncer.Notify(event.Name)
}

// ignored filters hidden paths, backups and our own temp files. Events from
// the tool's own atomic writes still arrive for the final .md path; the
// state store's hash check turns those into skips, and idempotence
// guarantees the follow-up pass writes nothing.
func (s *Service) ignored(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".docnorm-") {
		return true
	}
	if suffix := s.cfg.Output.BackupSuffix; suffix != "" && strings.HasSuffix(base, suffix) {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// addRecursive watches root and every non-hidden directory below it.
func (s *Service) addRecursive(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return docerrors.Wrap(err, docerrors.CategoryWatch, docerrors.SeverityFatal,
			"failed to resolve root").WithContext("root", root)
	}
	return filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return docerrors.Wrap(err, docerrors.CategoryWatch, docerrors.SeverityFatal,
				"failed to walk root").WithContext("root", abs)
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); strings.HasPrefix(name, ".") && path != abs {
			return fs.SkipDir
		}
		if err := s.watcher.Add(path); err != nil {
			return docerrors.Wrap(err, docerrors.CategoryWatch, docerrors.SeverityFatal,
				"failed to watch directory").WithContext("path", path)
		}
		return nil
	})
}

// startScheduler arms the optional periodic full rescan.
func (s *Service) startScheduler() error {
	interval := s.cfg.Watch.RescanInterval.D
	if interval <= 0 {
		return nil
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return docerrors.Wrap(err, docerrors.CategoryWatch, docerrors.SeverityFatal,
			"failed to create scheduler")
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.trigger("rescan") }),
		gocron.WithName("rescan"),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return docerrors.Wrap(err, docerrors.CategoryWatch, docerrors.SeverityFatal,
			"failed to schedule rescan")
	}
	scheduler.Start()
	s.scheduler = scheduler
	s.logger.Info("scheduled rescan enabled", slog.Duration("interval", interval))
	return nil
}

// startMetrics exposes Prometheus metrics when an address is configured and
// the recorder is Prometheus-backed.
func (s *Service) startMetrics() {
	addr := s.cfg.Watch.MetricsAddr
	if addr == "" {
		return
	}
	reg, ok := recorderRegistry(s.recorder)
	if !ok {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	s.metricsSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server stopped", logfields.Error(err))
		}
	}()
	s.logger.Info("metrics endpoint enabled", slog.String("addr", addr))
}

func (s *Service) close() {
	if s.scheduler != nil {
		if err := s.scheduler.Shutdown(); err != nil {
			s.logger.Warn("scheduler shutdown failed", logfields.Error(err))
		}
	}
	if s.metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = s.metricsSrv.Shutdown(shutdownCtx)
		cancel()
	}
	if err := s.watcher.Close(); err != nil {
		s.logger.Warn("watcher close failed", logfields.Error(err))
	}
	s.publisher.Close()
}

// recorderRegistry extracts the registry from a Prometheus-backed recorder.
type registryProvider interface {
	Registry() *prom.Registry
}

func recorderRegistry(r metrics.Recorder) (*prom.Registry, bool) {
	if p, ok := r.(registryProvider); ok {
		return p.Registry(), true
	}
	return nil, false
}
