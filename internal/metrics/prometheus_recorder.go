package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	reg             *prom.Registry
	fileDuration    *prom.HistogramVec
	runDuration     prom.Histogram
	fileResults     *prom.CounterVec
	runOutcomes     *prom.CounterVec
	workerCount     prom.Gauge
	watchEvents     *prom.CounterVec
	debounceFlushes *prom.CounterVec
	publishRetries  prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.once.Do(func() {
		pr.fileDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docnorm",
			Name:      "file_duration_seconds",
			Help:      "Duration of individual file normalizations",
			Buckets:   prom.DefBuckets,
		}, []string{"status"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docnorm",
			Name:      "run_duration_seconds",
			Help:      "Total run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.fileResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docnorm",
			Name:      "file_results_total",
			Help:      "File results by status",
		}, []string{"status"})
		pr.runOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docnorm",
			Name:      "run_outcomes_total",
			Help:      "Run outcomes by final status",
		}, []string{"outcome"})
		pr.workerCount = prom.NewGauge(prom.GaugeOpts{
			Namespace: "docnorm",
			Name:      "worker_count",
			Help:      "Worker count used by the last run",
		})
		pr.watchEvents = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docnorm",
			Name:      "watch_events_total",
			Help:      "Filesystem events seen by the watcher",
		}, []string{"op"})
		pr.debounceFlushes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docnorm",
			Name:      "debounce_flushes_total",
			Help:      "Debounce flushes by trigger reason",
		}, []string{"reason"})
		pr.publishRetries = prom.NewCounter(prom.CounterOpts{
			Namespace: "docnorm",
			Name:      "publish_retries_total",
			Help:      "Retried run-event publish attempts",
		})
		reg.MustRegister(pr.fileDuration, pr.runDuration, pr.fileResults,
			pr.runOutcomes, pr.workerCount, pr.watchEvents, pr.debounceFlushes,
			pr.publishRetries)
	})
	return pr
}

// Registry exposes the backing registry for HTTP serving.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	if p == nil {
		return nil
	}
	return p.reg
}

func (p *PrometheusRecorder) ObserveFileDuration(status string, d time.Duration) {
	if p == nil || p.fileDuration == nil {
		return
	}
	p.fileDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncFileResult(status string) {
	if p == nil || p.fileResults == nil {
		return
	}
	p.fileResults.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p == nil || p.runOutcomes == nil {
		return
	}
	p.runOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetWorkerCount(n int) {
	if p == nil || p.workerCount == nil {
		return
	}
	p.workerCount.Set(float64(n))
}

func (p *PrometheusRecorder) IncWatchEvent(op string) {
	if p == nil || p.watchEvents == nil {
		return
	}
	p.watchEvents.WithLabelValues(op).Inc()
}

func (p *PrometheusRecorder) IncDebounceFlush(reason string) {
	if p == nil || p.debounceFlushes == nil {
		return
	}
	p.debounceFlushes.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) IncPublishRetry() {
	if p == nil || p.publishRetries == nil {
		return
	}
	p.publishRetries.Inc()
}

// HTTPHandler returns an http.Handler serving Prometheus metrics for the
// provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
