package app

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	generationhttp "github.com/uniedit/videogen/internal/adapter/inbound/http/generation"
	"github.com/uniedit/videogen/internal/module/generation"
	"github.com/uniedit/videogen/internal/module/kieai"
	"github.com/uniedit/videogen/internal/module/prompt"
	"github.com/uniedit/videogen/internal/module/provider"
	"github.com/uniedit/videogen/internal/shared/config"
	"github.com/uniedit/videogen/internal/shared/metrics"
	"github.com/uniedit/videogen/internal/shared/middleware"
)

// Dependencies holds everything the application wires together.
type Dependencies struct {
	Config     *config.Config
	Logger     *zap.Logger
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	HTTPClient *http.Client
	Redis      goredis.UniversalClient

	// Kie.ai
	KieClient *kieai.Client
	Poller    *kieai.Poller
	Variants  *provider.Registry

	// Generation
	Store             generation.StatusStore
	Generation        *generation.Service
	Prompts           *prompt.Generator
	Limiter           middleware.Limiter
	Idempotency       middleware.IdempotencyStore
	GenerationHandler *generationhttp.Handler
}

// App represents the application.
type App struct {
	deps    *Dependencies
	router  *gin.Engine
	cleanup func()
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	deps, cleanup, err := InitializeDependencies(cfg)
	if err != nil {
		return nil, fmt.Errorf("init dependencies: %w", err)
	}

	app := &App{deps: deps, cleanup: cleanup}
	app.router = app.setupRouter()
	app.registerRoutes()
	return app, nil
}

func (a *App) setupRouter() *gin.Engine {
	if a.deps.Config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.deps.Logger))
	r.Use(middleware.Recovery(a.deps.Logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if a.deps.Metrics != nil {
		r.Use(middleware.Metrics(a.deps.Metrics))
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.deps.Registry, promhttp.HandlerOpts{})))
	}

	r.GET("/health", a.health)

	return r
}

func (a *App) registerRoutes() {
	v1 := a.router.Group("/api/v1")
	a.deps.GenerationHandler.RegisterRoutes(v1)
}

func (a *App) health(c *gin.Context) {
	store := "memory"
	if a.deps.Redis != nil {
		store = "redis"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"breaker":  a.deps.KieClient.BreakerState().String(),
		"store":    store,
		"variants": len(a.deps.Variants.Variants()),
	})
}

// Router returns the HTTP handler.
func (a *App) Router() http.Handler {
	return a.router
}

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger {
	return a.deps.Logger
}

// Stop cancels in-flight runs and releases connections.
func (a *App) Stop() {
	if a.cleanup != nil {
		a.cleanup()
	}
	_ = a.deps.Logger.Sync()
}
