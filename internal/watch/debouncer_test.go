package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type flushCollector struct {
	mu      sync.Mutex
	flushes [][]string
	reasons []string
	signal  chan struct{}
}

func newFlushCollector() *flushCollector {
	return &flushCollector{signal: make(chan struct{}, 16)}
}

func (c *flushCollector) flush(paths []string, reason string) {
	c.mu.Lock()
	c.flushes = append(c.flushes, paths)
	c.reasons = append(c.reasons, reason)
	c.mu.Unlock()
	c.signal <- struct{}{}
}

func (c *flushCollector) wait(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-c.signal:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for flush")
	}
}

func (c *flushCollector) snapshot() ([][]string, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]string(nil), c.flushes...), append([]string(nil), c.reasons...)
}

func TestDebouncerConfigValidation(t *testing.T) {
	flush := func([]string, string) {}

	_, err := NewDebouncer(DebouncerConfig{QuietWindow: 0, MaxDelay: time.Second}, flush)
	require.Error(t, err)

	_, err = NewDebouncer(DebouncerConfig{QuietWindow: time.Second, MaxDelay: time.Millisecond}, flush)
	require.Error(t, err)

	_, err = NewDebouncer(DebouncerConfig{QuietWindow: time.Second, MaxDelay: time.Second}, nil)
	require.Error(t, err)
}

func TestDebouncerOverflowStillFlushes(t *testing.T) {
	c := newFlushCollector()
	d, err := NewDebouncer(DebouncerConfig{
		QuietWindow: 20 * time.Millisecond,
		MaxDelay:    time.Second,
	}, c.flush)
	require.NoError(t, err)

	// Fill the notification buffer before Run drains it so the next Notify
	// takes the merge path; its path must still reach a flush.
	for range cap(d.notifyCh) {
		d.notifyCh <- "docs/burst.md"
	}
	d.Notify("docs/late.md")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	c.wait(t, time.Second)
	flushes, _ := c.snapshot()
	require.Len(t, flushes, 1)
	require.Contains(t, flushes[0], "docs/late.md")
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	c := newFlushCollector()
	d, err := NewDebouncer(DebouncerConfig{
		QuietWindow: 30 * time.Millisecond,
		MaxDelay:    time.Second,
	}, c.flush)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	d.Notify("docs/b.md")
	d.Notify("docs/a.md")
	d.Notify("docs/b.md")

	c.wait(t, time.Second)
	flushes, reasons := c.snapshot()
	require.Len(t, flushes, 1)
	require.Equal(t, []string{"docs/a.md", "docs/b.md"}, flushes[0])
	require.Equal(t, "quiet", reasons[0])
}

func TestDebouncerMaxDelayBoundsBusyStream(t *testing.T) {
	c := newFlushCollector()
	d, err := NewDebouncer(DebouncerConfig{
		QuietWindow: 40 * time.Millisecond,
		MaxDelay:    120 * time.Millisecond,
	}, c.flush)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	// Keep the stream busier than the quiet window for longer than max delay.
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(15 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				d.Notify("docs/hot.md")
			}
		}
	}()

	c.wait(t, time.Second)
	close(stop)

	_, reasons := c.snapshot()
	require.Equal(t, "max-delay", reasons[0])
}

func TestDebouncerSeparateBursts(t *testing.T) {
	c := newFlushCollector()
	d, err := NewDebouncer(DebouncerConfig{
		QuietWindow: 20 * time.Millisecond,
		MaxDelay:    time.Second,
	}, c.flush)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	d.Notify("docs/a.md")
	c.wait(t, time.Second)

	d.Notify("docs/b.md")
	c.wait(t, time.Second)

	flushes, _ := c.snapshot()
	require.Len(t, flushes, 2)
	require.Equal(t, []string{"docs/a.md"}, flushes[0])
	require.Equal(t, []string{"docs/b.md"}, flushes[1])
}
