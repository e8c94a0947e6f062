package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/uniedit/videogen/internal/module/kieai"
	"github.com/uniedit/videogen/internal/module/provider"
	apperrors "github.com/uniedit/videogen/internal/shared/errors"
	"github.com/uniedit/videogen/internal/shared/logger"
	"github.com/uniedit/videogen/internal/shared/metrics"
)

const storeTimeout = 5 * time.Second

// Config holds orchestration settings.
type Config struct {
	UploadConcurrency int
	Limits            provider.Limits
	RotationInterval  time.Duration
	RunTimeout        time.Duration
}

// DefaultConfig returns sequential uploads, a 5 second message rotation and a 15 minute run ceiling.
func DefaultConfig() Config {
	return Config{
		UploadConcurrency: 1,
		Limits:            provider.DefaultLimits(),
		RotationInterval:  5 * time.Second,
		RunTimeout:        15 * time.Minute,
	}
}

// Service runs variants end to end: validate, upload, submit, poll.
type Service struct {
	registry *provider.Registry
	store    StatusStore
	config   Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu          sync.Mutex
	controllers map[provider.Family]*Controller
	active      map[string]*Run
	wg          sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithStore sets the status store. The default is an in-memory store without expiry.
func WithStore(s StatusStore) Option {
	return func(svc *Service) { svc.store = s }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(svc *Service) { svc.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(svc *Service) { svc.metrics = m }
}

// NewService creates a generation service over registry.
func NewService(registry *provider.Registry, cfg Config, opts ...Option) *Service {
	def := DefaultConfig()
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = def.UploadConcurrency
	}
	if cfg.Limits.MaxImageBytes <= 0 {
		cfg.Limits = def.Limits
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = def.RunTimeout
	}

	s := &Service{
		registry:    registry,
		config:      cfg,
		logger:      zap.NewNop(),
		now:         time.Now,
		controllers: make(map[provider.Family]*Controller),
		active:      make(map[string]*Run),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewMemoryStore(0)
	}
	s.logger = s.logger.Named("generation")
	return s
}

// Variants lists the runnable variants.
func (s *Service) Variants() []provider.Variant {
	return s.registry.Variants()
}

// Variant returns one variant by name.
func (s *Service) Variant(name string) (provider.Variant, error) {
	a, err := s.registry.Lookup(name)
	if err != nil {
		return provider.Variant{}, err
	}
	return a.Variant(), nil
}

// Controller returns the controller of family.
func (s *Service) Controller(family provider.Family) *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.controllers[family]
	if !ok {
		c = newController(family)
		s.controllers[family] = c
	}
	return c
}

// Run executes a request to completion on the caller's goroutine.
func (s *Service) Run(ctx context.Context, req Request) (Status, error) {
	p, err := s.prepare(ctx, req)
	if err != nil {
		return p.statusOrZero(), err
	}
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	release := s.begin(p, cancel)
	defer release()
	err = s.execute(runCtx, p)
	return p.run.Status(), err
}

// Start validates the request, launches the run in the background and
// returns its initial status. Validation failures are returned directly.
func (s *Service) Start(ctx context.Context, req Request) (Status, error) {
	p, err := s.prepare(ctx, req)
	if err != nil {
		return p.statusOrZero(), err
	}
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.RunTimeout)
	release := s.begin(p, cancel)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		defer release()
		_ = s.execute(runCtx, p)
	}()
	return p.run.Status(), nil
}

// Get returns the latest status of a run.
func (s *Service) Get(ctx context.Context, runID string) (Status, error) {
	s.mu.Lock()
	r, ok := s.active[runID]
	s.mu.Unlock()
	if ok {
		return r.Status(), nil
	}
	return s.store.Get(ctx, runID)
}

// Cancel stops an in-flight run and waits for it to settle. Cancelling a
// finished run returns its final status unchanged.
func (s *Service) Cancel(ctx context.Context, runID string) (Status, error) {
	s.mu.Lock()
	r, ok := s.active[runID]
	s.mu.Unlock()
	if !ok {
		return s.store.Get(ctx, runID)
	}

	r.Cancel()
	select {
	case <-r.Done():
	case <-ctx.Done():
		return r.Status(), kieai.ContextError(ctx)
	}
	return r.Status(), nil
}

// Shutdown cancels every in-flight run and waits for them to finish.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, r := range s.active {
		r.Cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type prepared struct {
	run     *Run
	adapter *provider.Adapter
	input   provider.Input
	apiKey  string
	started time.Time
	log     *zap.Logger
}

func (p *prepared) statusOrZero() Status {
	if p == nil || p.run == nil {
		return Status{}
	}
	return p.run.Status()
}

// prepare resolves the variant and validates the request. No network call happens here.
func (s *Service) prepare(ctx context.Context, req Request) (*prepared, error) {
	adapter, err := s.registry.Lookup(req.Variant)
	if err != nil {
		return nil, err
	}
	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		return nil, apperrors.ConfigurationError("Kie.ai API key is not configured")
	}

	variant := adapter.Variant()
	run := newRun(variant, s.now)
	p := &prepared{
		run:     run,
		adapter: adapter,
		apiKey:  apiKey,
		started: s.now(),
		log:     s.logger.With(zap.String("run_id", run.ID()), zap.String("variant", variant.Name)),
	}

	s.metrics.RunStarted()
	_ = run.advance(StateValidating)
	s.save(ctx, run)

	input, err := variant.Decode(req.Payload)
	if err == nil {
		input.Attach(req.Images, req.Videos)
		err = input.Validate(s.config.Limits)
	}
	if err != nil {
		return p, s.conclude(ctx, p, kieai.Result{}, err)
	}
	p.input = input
	return p, nil
}

// begin installs a validated run on its family controller, cancelling the
// run it replaces. The returned func unregisters it.
func (s *Service) begin(p *prepared, cancel context.CancelFunc) func() {
	run := p.run
	run.bind(cancel)

	ctrl := s.Controller(p.adapter.Variant().Family)
	s.mu.Lock()
	s.active[run.ID()] = run
	s.mu.Unlock()
	ctrl.install(run)

	return func() {
		ctrl.release(run)
		s.mu.Lock()
		delete(s.active, run.ID())
		s.mu.Unlock()
	}
}

// execute runs the network phase of a validated run.
func (s *Service) execute(ctx context.Context, p *prepared) error {
	run := p.run
	ctx = logger.ContextWithLogger(ctx, p.log)
	rot := StartRotation(LoadingMessages(run.Status().Family), s.config.RotationInterval, func(msg string) {
		if run.setMessage(msg) {
			s.save(ctx, run)
		}
	})
	run.setMessage(rot.Current())
	p.log.Info("run started")

	res, err := s.pipeline(ctx, p)
	rot.Stop()
	return s.conclude(ctx, p, res, err)
}

func (s *Service) pipeline(ctx context.Context, p *prepared) (kieai.Result, error) {
	run := p.run

	groups := p.input.Uploads()
	var urls [][]string
	if hasAssets(groups) {
		if err := s.transition(ctx, run, StateUploading); err != nil {
			return kieai.Result{}, err
		}
		var err error
		urls, err = p.adapter.Upload(ctx, p.apiKey, groups, s.config.UploadConcurrency)
		if err != nil {
			return kieai.Result{}, err
		}
	}

	if err := s.transition(ctx, run, StateSubmitting); err != nil {
		return kieai.Result{}, err
	}
	taskID, err := p.adapter.Submit(ctx, p.apiKey, p.input.Build(urls))
	if err != nil {
		return kieai.Result{}, err
	}
	run.setTaskID(taskID)
	p.log.Info("task submitted", zap.String("task_id", taskID))

	if err := s.transition(ctx, run, StatePolling); err != nil {
		return kieai.Result{}, err
	}
	return p.adapter.Poll(ctx, p.apiKey, taskID)
}

func (s *Service) transition(ctx context.Context, run *Run, next State) error {
	if err := kieai.ContextError(ctx); err != nil {
		return err
	}
	if err := run.advance(next); err != nil {
		return err
	}
	s.save(ctx, run)
	return nil
}

// conclude moves the run to its terminal state, records the outcome and
// returns the error the run ended with.
func (s *Service) conclude(ctx context.Context, p *prepared, res kieai.Result, err error) error {
	run := p.run
	outcome := StateSucceeded
	switch {
	case err == nil:
		if serr := run.succeed(res); serr != nil {
			p.log.Error("record success", zap.Error(serr))
		}
	case isCancellation(ctx, err):
		outcome = StateCancelled
		if !errors.Is(err, apperrors.ErrCancelled) {
			err = apperrors.Cancelled("run cancelled")
		}
		if ferr := run.finish(StateCancelled, err); ferr != nil {
			p.log.Error("record cancellation", zap.Error(ferr))
		}
	default:
		outcome = StateFailed
		if ferr := run.finish(StateFailed, err); ferr != nil {
			p.log.Error("record failure", zap.Error(ferr))
		}
	}
	s.save(ctx, run)

	elapsed := s.now().Sub(p.started)
	s.metrics.RunFinished(run.Status().Variant, string(outcome), elapsed)

	fields := []zap.Field{zap.String("state", string(outcome)), zap.Duration("elapsed", elapsed)}
	switch outcome {
	case StateSucceeded:
		p.log.Info("run succeeded", append(fields, zap.String("result", res.Value()))...)
	case StateFailed:
		p.log.Warn("run failed", append(fields, zap.String("code", apperrors.CodeOf(err)), zap.Error(err))...)
	default:
		p.log.Info("run cancelled", fields...)
	}
	return err
}

// save persists a snapshot. The run keeps going when the store is unavailable.
func (s *Service) save(ctx context.Context, run *Run) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	run.saveMu.Lock()
	defer run.saveMu.Unlock()
	if err := s.store.Save(ctx, run.Status()); err != nil {
		s.logger.Warn("save run status", zap.String("run_id", run.ID()), zap.Error(err))
	}
}

func isCancellation(ctx context.Context, err error) bool {
	return errors.Is(err, apperrors.ErrCancelled) || errors.Is(ctx.Err(), context.Canceled)
}

func hasAssets(groups []provider.UploadGroup) bool {
	for _, g := range groups {
		if len(g.Assets) > 0 {
			return true
		}
	}
	return false
}
