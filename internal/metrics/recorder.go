package metrics

import "time"

// Recorder defines observability hooks for runs and per-file processing.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe on the NoopRecorder so injection stays optional.
type Recorder interface {
	ObserveFileDuration(status string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncFileResult(status string)
	IncRunOutcome(outcome string) // outcome: success|partial|failed
	SetWorkerCount(n int)
	IncWatchEvent(op string)
	IncDebounceFlush(reason string) // reason: quiet|max-delay
	IncPublishRetry()
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveFileDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)          {}
func (NoopRecorder) IncFileResult(string)                      {}
func (NoopRecorder) IncRunOutcome(string)                      {}
func (NoopRecorder) SetWorkerCount(int)                        {}
func (NoopRecorder) IncWatchEvent(string)                      {}
func (NoopRecorder) IncDebounceFlush(string)                   {}
func (NoopRecorder) IncPublishRetry()                          {}
