package watch

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/docnorm/internal/config"
	docerrors "git.home.luguber.info/inful/docnorm/internal/errors"
	"git.home.luguber.info/inful/docnorm/internal/logfields"
	"git.home.luguber.info/inful/docnorm/internal/metrics"
	"git.home.luguber.info/inful/docnorm/internal/retry"
	"git.home.luguber.info/inful/docnorm/internal/runner"
)

// RunEvent is the JSON payload published after each completed pass.
type RunEvent struct {
	RunID      string    `json:"run_id"`
	Trigger    string    `json:"trigger"` // watch|rescan|startup
	Outcome    string    `json:"outcome"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Files      int       `json:"files"`
	Changed    int       `json:"changed"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
}

// Publisher sends run events to NATS with bounded retries. A nil Publisher is
// valid and publishes nothing.
type Publisher struct {
	conn     *nats.Conn
	subject  string
	policy   retry.Policy
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewPublisher connects to NATS per the config. A config with an empty URL
// returns (nil, nil): publishing disabled.
func NewPublisher(cfg config.NATSConfig, recorder metrics.Recorder) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	conn, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, docerrors.Wrap(err, docerrors.CategoryWatch, docerrors.SeverityFatal,
			"failed to connect to NATS").WithContext("url", cfg.URL)
	}

	policy := retry.NewPolicy(retry.BackoffMode(cfg.Backoff),
		cfg.InitialDelay.D, cfg.MaxBackoff.D, cfg.MaxRetries)

	slog.Info("run event publishing enabled", logfields.Subject(cfg.Subject))

	return &Publisher{
		conn:     conn,
		subject:  cfg.Subject,
		policy:   policy,
		recorder: recorder,
		logger:   slog.Default(),
	}, nil
}

// Publish sends one run event, retrying per the policy. Exhausted retries are
// logged, not returned: event delivery must never fail a run.
func (p *Publisher) Publish(ctx context.Context, event RunEvent) {
	if p == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal run event", logfields.RunID(event.RunID), logfields.Error(err))
		return
	}

	for attempt := 0; ; attempt++ {
		err = p.conn.Publish(p.subject, data)
		if err == nil {
			p.logger.Debug("published run event",
				logfields.RunID(event.RunID), logfields.Subject(p.subject))
			return
		}
		if attempt >= p.policy.MaxRetries {
			break
		}
		p.recorder.IncPublishRetry()
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.policy.Delay(attempt + 1)):
		}
	}

	p.logger.Warn("giving up on run event",
		logfields.RunID(event.RunID), logfields.Subject(p.subject), logfields.Error(err))
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// eventFromReport converts a run report into its published form.
func eventFromReport(report *runner.Report, trigger string) RunEvent {
	return RunEvent{
		RunID:      report.RunID,
		Trigger:    trigger,
		Outcome:    report.Outcome(),
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Files:      report.Files,
		Changed:    report.Changed,
		Skipped:    report.Skipped,
		Failed:     report.Failed,
	}
}
