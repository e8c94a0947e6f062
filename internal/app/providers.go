package app

import (
	"context"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	generationhttp "github.com/uniedit/videogen/internal/adapter/inbound/http/generation"
	redisadapter "github.com/uniedit/videogen/internal/adapter/outbound/redis"
	"github.com/uniedit/videogen/internal/infra/httpclient"
	"github.com/uniedit/videogen/internal/infra/ratelimit"
	"github.com/uniedit/videogen/internal/module/generation"
	"github.com/uniedit/videogen/internal/module/kieai"
	"github.com/uniedit/videogen/internal/module/prompt"
	"github.com/uniedit/videogen/internal/module/provider"
	"github.com/uniedit/videogen/internal/shared/cache"
	"github.com/uniedit/videogen/internal/shared/config"
	"github.com/uniedit/videogen/internal/shared/logger"
	"github.com/uniedit/videogen/internal/shared/metrics"
	"github.com/uniedit/videogen/internal/shared/middleware"
)

const (
	shutdownGrace = 10 * time.Second
	// idempotencyLockMargin covers uploads and response writing beyond the run timeout.
	idempotencyLockMargin = time.Minute
)

// ===== Infrastructure Providers =====

// InfraSet provides infrastructure dependencies.
var InfraSet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,
	ProvideHTTPClient,
	ProvideRedisClient,
)

// ProvideLogger creates the root zap logger.
func ProvideLogger(cfg *config.Config) *zap.Logger {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// ProvideRegistry creates the prometheus registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a metrics instance, or nil when metrics are disabled.
func ProvideMetrics(cfg *config.Config, reg *prometheus.Registry) *metrics.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New(cfg.Metrics.Namespace, reg)
}

// ProvideHTTPClient creates a shared HTTP client with connection pooling.
func ProvideHTTPClient(cfg *config.Config) *http.Client {
	return httpclient.New(cfg.HTTPClient)
}

// ProvideRedisClient creates a Redis client. Run status falls back to memory
// when no address is configured or the server is unreachable.
func ProvideRedisClient(cfg *config.Config, log *zap.Logger) (goredis.UniversalClient, func()) {
	if cfg.Redis.Address == "" {
		return nil, func() {}
	}
	client, err := cache.NewRedisClient(context.Background(), &cfg.Redis)
	if err != nil {
		log.Warn("Redis connection failed, keeping run status in memory", zap.Error(err))
		return nil, func() {}
	}
	return client, func() { _ = cache.Close(client) }
}

// ===== Kie.ai Providers =====

// KieAISet provides the gateway client, poller and variant registry.
var KieAISet = wire.NewSet(
	ProvideKieClient,
	wire.Bind(new(provider.Gateway), new(*kieai.Client)),
	wire.Bind(new(kieai.TaskQuerier), new(*kieai.Client)),
	ProvidePoller,
	ProvideVariantRegistry,
)

// ProvideKieClient creates the Kie.ai gateway client.
func ProvideKieClient(cfg *config.Config, client *http.Client, log *zap.Logger, m *metrics.Metrics) *kieai.Client {
	kcfg := &kieai.Config{
		BaseURL:       cfg.KieAI.BaseURL,
		UploadBaseURL: cfg.KieAI.UploadBaseURL,
	}
	if cfg.Breaker.Enabled {
		kcfg.Breaker = &kieai.BreakerConfig{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			MaxHalfOpen:      cfg.Breaker.MaxHalfOpen,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
		}
	}
	return kieai.NewClient(kcfg,
		kieai.WithHTTPClient(client),
		kieai.WithLogger(log),
		kieai.WithMetrics(m),
	)
}

// ProvidePoller creates the shared task poller.
func ProvidePoller(cfg *config.Config, q kieai.TaskQuerier, log *zap.Logger, m *metrics.Metrics) *kieai.Poller {
	return kieai.NewPoller(q,
		kieai.PollerConfig{Interval: cfg.KieAI.PollInterval, MaxAttempts: cfg.KieAI.MaxPollAttempts},
		kieai.WithPollerLogger(log.Named("poller")),
		kieai.WithPollerMetrics(m),
	)
}

// ProvideVariantRegistry binds every variant to the gateway.
func ProvideVariantRegistry(cfg *config.Config, gw provider.Gateway, poller *kieai.Poller) *provider.Registry {
	return provider.NewRegistry(gw, poller, provider.WithCallbackURL(cfg.KieAI.CallbackURL))
}

// ===== Generation Providers =====

// GenerationSet provides orchestration, the prompt generator and the HTTP handler.
var GenerationSet = wire.NewSet(
	ProvideStatusStore,
	ProvideGenerationService,
	ProvidePromptGenerator,
	ProvideSubmissionLimiter,
	ProvideIdempotencyStore,
	ProvideGenerationHandler,
)

// ProvideStatusStore stores run status in Redis when available, otherwise in memory.
func ProvideStatusStore(cfg *config.Config, client goredis.UniversalClient) generation.StatusStore {
	if client == nil {
		return generation.NewMemoryStore(cfg.Redis.StatusTTL)
	}
	return redisadapter.NewRunStatusStore(client, cfg.Redis.StatusTTL)
}

// ProvideGenerationService creates the generation service. Cleanup cancels in-flight runs.
func ProvideGenerationService(
	cfg *config.Config,
	registry *provider.Registry,
	store generation.StatusStore,
	log *zap.Logger,
	m *metrics.Metrics,
) (*generation.Service, func()) {
	svc := generation.NewService(registry,
		generation.Config{
			UploadConcurrency: cfg.KieAI.UploadConcurrency,
			Limits:            provider.Limits{MaxImageBytes: cfg.KieAI.MaxImageBytes},
			RotationInterval:  cfg.Generation.RotationInterval,
			RunTimeout:        cfg.Generation.RunTimeout,
		},
		generation.WithStore(store),
		generation.WithLogger(log),
		generation.WithMetrics(m),
	)
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := svc.Shutdown(ctx); err != nil {
			log.Warn("generation shutdown incomplete", zap.Error(err))
		}
	}
	return svc, cleanup
}

// ProvidePromptGenerator creates the Gemini prompt generator.
func ProvidePromptGenerator(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) *prompt.Generator {
	return prompt.NewGenerator(prompt.GeminiBackend{},
		prompt.Config{PromptModel: cfg.Gemini.PromptModel, TestModel: cfg.Gemini.TestModel},
		log, m)
}

// ProvideSubmissionLimiter limits run creation per caller, shared through Redis
// when available. Nil when rate limiting is disabled.
func ProvideSubmissionLimiter(cfg *config.Config, client goredis.UniversalClient) middleware.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	if client == nil {
		return ratelimit.NewMemoryLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}
	return redisadapter.NewRateLimiter(client, cfg.RateLimit.Limit, cfg.RateLimit.Window)
}

// ProvideIdempotencyStore keeps replayable submissions in Redis. Nil without Redis.
func ProvideIdempotencyStore(client goredis.UniversalClient) middleware.IdempotencyStore {
	if client == nil {
		return nil
	}
	return redisadapter.NewIdempotencyStore(client)
}

// ProvideGenerationHandler creates the generation HTTP handler. Repeated
// submissions are replayed before they count against the rate limit.
func ProvideGenerationHandler(
	cfg *config.Config,
	svc *generation.Service,
	gen *prompt.Generator,
	limiter middleware.Limiter,
	idem middleware.IdempotencyStore,
	log *zap.Logger,
) *generationhttp.Handler {
	h := generationhttp.NewHandler(svc, gen,
		generationhttp.Keys{KieAI: cfg.KieAI.APIKey, Gemini: cfg.Gemini.APIKey},
		cfg.Server.MaxUploadBytes)
	if idem != nil {
		h.GuardSubmissions(middleware.Idempotency(idem, middleware.IdempotencyConfig{
			TTL:     cfg.Generation.IdempotencyTTL,
			LockTTL: cfg.Generation.RunTimeout + idempotencyLockMargin,
			Scope:   generationhttp.SubmissionKey,
		}, log))
	}
	if limiter != nil {
		h.GuardSubmissions(middleware.RateLimit(limiter, generationhttp.SubmissionKey, log))
	}
	return h
}

// ===== Master Set =====

// AppSet is the master provider set that includes all dependencies.
var AppSet = wire.NewSet(
	InfraSet,
	KieAISet,
	GenerationSet,
)
