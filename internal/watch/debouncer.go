package watch

import (
	"context"
	"sync"
	"time"

	docerrors "git.home.luguber.info/inful/docnorm/internal/errors"
	"git.home.luguber.info/inful/docnorm/internal/util/sets"
)

// DebouncerConfig holds the timing knobs for event coalescing.
type DebouncerConfig struct {
	// QuietWindow is the idle period after the last event before a flush.
	QuietWindow time.Duration
	// MaxDelay bounds how long a busy burst can postpone the flush.
	MaxDelay time.Duration
}

// Debouncer coalesces bursts of file events into a single flush: a flush
// fires once the stream has been quiet for QuietWindow, or after MaxDelay of
// sustained activity, whichever comes first. It is safe to run as a single
// goroutine with concurrent Notify callers.
type Debouncer struct {
	cfg   DebouncerConfig
	flush func(paths []string, reason string)

	notifyCh chan string
	// kickCh wakes Run when a path had to be merged directly into pending
	// because notifyCh was full, so the flush timers still get armed.
	kickCh chan struct{}

	mu      sync.Mutex
	pending sets.Set[string]
}

// NewDebouncer validates the config and constructs a Debouncer. flush is
// called from the Run goroutine with the coalesced paths.
func NewDebouncer(cfg DebouncerConfig, flush func(paths []string, reason string)) (*Debouncer, error) {
	if cfg.QuietWindow <= 0 {
		return nil, docerrors.New(docerrors.CategoryValidation, docerrors.SeverityFatal,
			"quiet window must be > 0")
	}
	if cfg.MaxDelay < cfg.QuietWindow {
		return nil, docerrors.New(docerrors.CategoryValidation, docerrors.SeverityFatal,
			"max delay must be >= quiet window")
	}
	if flush == nil {
		return nil, docerrors.New(docerrors.CategoryValidation, docerrors.SeverityFatal,
			"flush callback is required")
	}
	return &Debouncer{
		cfg:      cfg,
		flush:    flush,
		notifyCh: make(chan string, 64),
		kickCh:   make(chan struct{}, 1),
		pending:  sets.New[string](),
	}, nil
}

// Notify records a changed path. It never blocks the caller for long: when
// the buffer is full the path is merged under the lock instead.
func (d *Debouncer) Notify(path string) {
	select {
	case d.notifyCh <- path:
	default:
		d.mu.Lock()
		d.pending.Add(path)
		d.mu.Unlock()
		select {
		case d.kickCh <- struct{}{}:
		default:
		}
	}
}

// Run processes notifications until the context is canceled. A final flush is
// not attempted on shutdown; pending paths are picked up by the next full
// pass.
func (d *Debouncer) Run(ctx context.Context) error {
	quietTimer := time.NewTimer(time.Hour)
	stopTimer(quietTimer)
	maxTimer := time.NewTimer(time.Hour)
	stopTimer(maxTimer)

	var (
		quietC <-chan time.Time
		maxC   <-chan time.Time
	)

	// arm restarts the quiet window and opens the max-delay window when no
	// burst is in flight.
	arm := func() {
		resetTimer(quietTimer, d.cfg.QuietWindow)
		quietC = quietTimer.C
		if maxC == nil {
			resetTimer(maxTimer, d.cfg.MaxDelay)
			maxC = maxTimer.C
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-d.notifyCh:
			d.mu.Lock()
			d.pending.Add(path)
			d.mu.Unlock()
			arm()
		case <-d.kickCh:
			arm()
		case <-quietC:
			d.emit("quiet")
			quietC, maxC = nil, nil
			stopTimer(maxTimer)
		case <-maxC:
			d.emit("max-delay")
			quietC, maxC = nil, nil
			stopTimer(quietTimer)
		}
	}
}

func (d *Debouncer) emit(reason string) {
	d.mu.Lock()
	if len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	paths := sets.Sorted(d.pending)
	d.pending = sets.New[string]()
	d.mu.Unlock()

	d.flush(paths, reason)
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, after time.Duration) {
	stopTimer(t)
	t.Reset(after)
}
