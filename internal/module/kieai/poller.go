package kieai

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/uniedit/videogen/internal/shared/errors"
	"github.com/uniedit/videogen/internal/shared/metrics"
)

// TaskQuerier reads remote task state.
type TaskQuerier interface {
	RecordInfo(ctx context.Context, apiKey, taskID string) (*TaskRecord, error)
}

var _ TaskQuerier = (*Client)(nil)

// PollerConfig bounds the polling loop.
type PollerConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPollerConfig returns a 5 second interval with a 120 attempt ceiling.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:    5 * time.Second,
		MaxAttempts: 120,
	}
}

// Poller drives a task to a terminal state with fixed-interval queries.
type Poller struct {
	querier TaskQuerier
	config  PollerConfig
	label   string
	logger  *zap.Logger
	metrics *metrics.Metrics
	wait    func(ctx context.Context, d time.Duration) error
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollerLogger sets the poller logger.
func WithPollerLogger(l *zap.Logger) PollerOption {
	return func(p *Poller) { p.logger = l }
}

// WithPollerMetrics sets the metrics sink.
func WithPollerMetrics(m *metrics.Metrics) PollerOption {
	return func(p *Poller) { p.metrics = m }
}

// NewPoller creates a poller. Non-positive limits fall back to the defaults.
func NewPoller(q TaskQuerier, cfg PollerConfig, opts ...PollerOption) *Poller {
	def := DefaultPollerConfig()
	if cfg.Interval < 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	p := &Poller{
		querier: q,
		config:  cfg,
		label:   "generic",
		logger:  zap.NewNop(),
		wait:    sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Named returns a copy of the poller that reports metrics under label.
func (p *Poller) Named(label string) *Poller {
	cp := *p
	cp.label = label
	return &cp
}

// Config returns the poller limits.
func (p *Poller) Config() PollerConfig {
	return p.config
}

// Poll queries taskID until it succeeds, fails or runs out of attempts.
// Exactly one query is issued per attempt and the loop waits only between attempts.
func (p *Poller) Poll(ctx context.Context, apiKey, taskID string, extract Extractor) (Result, error) {
	if extract == nil {
		extract = ParseResult
	}
	log := p.logger.With(zap.String("task_id", taskID), zap.String("variant", p.label))

	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		if err := ContextError(ctx); err != nil {
			return Result{}, err
		}

		p.metrics.RecordPollAttempt(p.label)
		record, err := p.querier.RecordInfo(ctx, apiKey, taskID)
		if err != nil {
			return Result{}, err
		}

		switch record.State {
		case StateSuccess:
			log.Info("task succeeded", zap.Int("attempts", attempt), zap.Int64("cost_time", record.CostTime))
			return extract(record.ResultJSON)
		case StateFail:
			msg := msgOr(record.FailMsg, msgOr(string(record.FailCode), "unknown error"))
			log.Warn("task failed", zap.Int("attempts", attempt), zap.String("fail_msg", msg))
			return Result{}, apperrors.RemoteFailed(msg)
		}

		log.Debug("task pending", zap.Int("attempt", attempt), zap.String("state", string(record.State)))
		if attempt == p.config.MaxAttempts {
			break
		}
		if err := p.wait(ctx, p.config.Interval); err != nil {
			return Result{}, err
		}
	}

	log.Warn("task polling timed out", zap.Int("attempts", p.config.MaxAttempts))
	return Result{}, apperrors.Timeout("operation timed out waiting for task " + taskID)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ContextError(ctx)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ContextError(ctx)
	case <-t.C:
		return nil
	}
}
