package kieai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	apperrors "github.com/uniedit/videogen/internal/shared/errors"
	"github.com/uniedit/videogen/internal/shared/metrics"
)

const (
	DefaultBaseURL       = "https://api.kie.ai/api/v1"
	DefaultUploadBaseURL = "https://kieai.redpandaai.co"

	maxResponseBytes = 4 << 20
)

// Config contains gateway endpoints and breaker settings.
type Config struct {
	BaseURL       string
	UploadBaseURL string
	Breaker       *BreakerConfig
}

// BreakerConfig configures the circuit breaker around gateway calls.
// Only transport failures count against it; envelope rejections do not.
type BreakerConfig struct {
	FailureThreshold uint32
	MaxHalfOpen      uint32
	Interval         time.Duration
	Timeout          time.Duration
}

// DefaultConfig returns the public gateway endpoints with a breaker.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       DefaultBaseURL,
		UploadBaseURL: DefaultUploadBaseURL,
		Breaker: &BreakerConfig{
			FailureThreshold: 5,
			MaxHalfOpen:      1,
			Interval:         60 * time.Second,
			Timeout:          30 * time.Second,
		},
	}
}

// Client talks to the Kie.ai task and upload endpoints.
type Client struct {
	baseURL       string
	uploadBaseURL string
	http          *http.Client
	breaker       *gobreaker.CircuitBreaker[*rawResponse]
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// NewClient creates a gateway client.
func NewClient(cfg *Config, opts ...Option) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &Client{
		baseURL:       strings.TrimRight(orDefault(cfg.BaseURL, DefaultBaseURL), "/"),
		uploadBaseURL: strings.TrimRight(orDefault(cfg.UploadBaseURL, DefaultUploadBaseURL), "/"),
		http:          http.DefaultClient,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("kieai")

	if cfg.Breaker != nil {
		b := cfg.Breaker
		c.breaker = gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
			Name:        "kieai",
			MaxRequests: b.MaxHalfOpen,
			Interval:    b.Interval,
			Timeout:     b.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= b.FailureThreshold
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}
	return c
}

// BreakerState reports the breaker state, or closed when no breaker is configured.
func (c *Client) BreakerState() gobreaker.State {
	if c.breaker == nil {
		return gobreaker.StateClosed
	}
	return c.breaker.State()
}

type rawResponse struct {
	status int
	body   []byte
}

func (r *rawResponse) statusText() string {
	if t := http.StatusText(r.status); t != "" {
		return t
	}
	return fmt.Sprintf("HTTP %d", r.status)
}

func (r *rawResponse) ok() bool {
	return r.status >= 200 && r.status < 300
}

// do sends one request. Transport failures become RemoteUnavailable,
// caller cancellation becomes Cancelled, and any HTTP response is returned as is.
func (c *Client) do(ctx context.Context, op, method, url, apiKey string, payload any) (*rawResponse, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, apperrors.Internal("marshal request", err)
		}
		body = bytes.NewReader(data)
	}

	send := func() (*rawResponse, error) {
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return &rawResponse{status: resp.StatusCode, body: data}, nil
	}

	start := time.Now()
	var (
		raw *rawResponse
		err error
	)
	if c.breaker != nil {
		raw, err = c.breaker.Execute(send)
	} else {
		raw, err = send()
	}

	if err != nil {
		if ctxErr := ContextError(ctx); ctxErr != nil {
			c.metrics.RecordKieRequest(op, "cancelled", time.Since(start))
			return nil, ctxErr
		}
		c.metrics.RecordKieRequest(op, "unavailable", time.Since(start))
		c.logger.Warn("gateway call failed", zap.String("operation", op), zap.Error(err))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.RemoteUnavailable("kie.ai gateway circuit open", err)
		}
		return nil, apperrors.RemoteUnavailable(op, err)
	}
	c.metrics.RecordKieRequest(op, statusLabel(raw), time.Since(start))
	return raw, nil
}

func statusLabel(r *rawResponse) string {
	if r.ok() {
		return "ok"
	}
	return fmt.Sprintf("http_%d", r.status)
}

// ContextError maps a finished context to Cancelled or Timeout. It returns nil while ctx is live.
func ContextError(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout("run deadline exceeded")
	default:
		return apperrors.Cancelled("")
	}
}

func requireKey(apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return apperrors.ConfigurationError("kie.ai api key is not set")
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func msgOr(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}
