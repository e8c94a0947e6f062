package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	KieAI      KieAIConfig      `mapstructure:"kieai"`
	HTTPClient HTTPClientConfig `mapstructure:"http_client"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Generation GenerationConfig `mapstructure:"generation"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// KieAIConfig holds the Kie.ai gateway settings shared by every adapter.
type KieAIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	UploadBaseURL     string        `mapstructure:"upload_base_url"`
	APIKey            string        `mapstructure:"api_key"`
	CallbackURL       string        `mapstructure:"callback_url"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	MaxPollAttempts   int           `mapstructure:"max_poll_attempts"`
	UploadConcurrency int           `mapstructure:"upload_concurrency"`
	MaxImageBytes     int64         `mapstructure:"max_image_bytes"`
}

// HTTPClientConfig holds HTTP client configuration for connection pooling.
type HTTPClientConfig struct {
	// Connection pool settings
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `mapstructure:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`

	// Timeout settings
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	ResponseTimeout     time.Duration `mapstructure:"response_timeout"`

	KeepAlive time.Duration `mapstructure:"keep_alive"`
}

// BreakerConfig configures the circuit breaker in front of the Kie.ai gateway.
type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	MaxHalfOpen      uint32        `mapstructure:"max_half_open"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// GeminiConfig holds settings for the prompt generator.
type GeminiConfig struct {
	APIKey      string `mapstructure:"api_key"`
	PromptModel string `mapstructure:"prompt_model"`
	TestModel   string `mapstructure:"test_model"`
}

// RedisConfig holds Redis configuration. An empty address keeps run status in memory.
type RedisConfig struct {
	Address   string        `mapstructure:"address"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	StatusTTL time.Duration `mapstructure:"status_ttl"`
}

// GenerationConfig holds orchestration settings.
type GenerationConfig struct {
	RotationInterval time.Duration `mapstructure:"rotation_interval"`
	RunTimeout       time.Duration `mapstructure:"run_timeout"`
	IdempotencyTTL   time.Duration `mapstructure:"idempotency_ttl"`
}

// RateLimitConfig caps generation submissions per caller.
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

// MetricsConfig holds prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// Load loads configuration from .env, file and environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/videogen")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("VIDEOGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Secrets
	if key := os.Getenv("VIDEOGEN_KIEAI_API_KEY"); key != "" {
		cfg.KieAI.APIKey = key
	}
	if key := os.Getenv("VIDEOGEN_GEMINI_API_KEY"); key != "" {
		cfg.Gemini.APIKey = key
	}
	if password := os.Getenv("VIDEOGEN_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would make the poller or uploader misbehave.
func (c *Config) Validate() error {
	if c.KieAI.PollInterval < 0 {
		return fmt.Errorf("kieai.poll_interval must not be negative")
	}
	if c.KieAI.MaxPollAttempts < 1 {
		return fmt.Errorf("kieai.max_poll_attempts must be at least 1")
	}
	if c.KieAI.UploadConcurrency < 1 {
		return fmt.Errorf("kieai.upload_concurrency must be at least 1")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Limit < 1 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate_limit needs a positive limit and window when enabled")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Minute)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_upload_bytes", 200<<20)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Kie.ai defaults
	v.SetDefault("kieai.base_url", "https://api.kie.ai/api/v1")
	v.SetDefault("kieai.upload_base_url", "https://kieai.redpandaai.co")
	v.SetDefault("kieai.api_key", "")
	v.SetDefault("kieai.callback_url", "")
	v.SetDefault("kieai.poll_interval", 5*time.Second)
	v.SetDefault("kieai.max_poll_attempts", 120)
	v.SetDefault("kieai.upload_concurrency", 1)
	v.SetDefault("kieai.max_image_bytes", 10<<20)

	// HTTP client defaults
	v.SetDefault("http_client.max_idle_conns", 100)
	v.SetDefault("http_client.max_idle_conns_per_host", 20)
	v.SetDefault("http_client.max_conns_per_host", 50)
	v.SetDefault("http_client.idle_conn_timeout", 90*time.Second)
	v.SetDefault("http_client.dial_timeout", 30*time.Second)
	v.SetDefault("http_client.tls_handshake_timeout", 10*time.Second)
	v.SetDefault("http_client.response_timeout", 120*time.Second)
	v.SetDefault("http_client.keep_alive", 30*time.Second)

	// Breaker defaults
	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.max_half_open", 1)
	v.SetDefault("breaker.interval", 60*time.Second)
	v.SetDefault("breaker.timeout", 30*time.Second)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.prompt_model", "gemini-3-pro-preview")
	v.SetDefault("gemini.test_model", "gemini-3-flash-preview")

	// Redis defaults
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.status_ttl", time.Hour)

	// Generation defaults
	v.SetDefault("generation.rotation_interval", 5*time.Second)
	v.SetDefault("generation.run_timeout", 15*time.Minute)
	v.SetDefault("generation.idempotency_ttl", 24*time.Hour)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.limit", 10)
	v.SetDefault("rate_limit.window", time.Minute)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "videogen")
}
