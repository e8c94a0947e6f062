package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	apperrors "github.com/uniedit/videogen/internal/shared/errors"
	"github.com/uniedit/videogen/internal/shared/metrics"
)

const (
	DefaultPromptModel = "gemini-3-pro-preview"
	DefaultTestModel   = "gemini-3-flash-preview"
)

// ContentGenerator runs one generateContent call with the given key.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, apiKey, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiBackend calls the Gemini API directly. Keys arrive per request,
// so a client is built per call.
type GeminiBackend struct{}

var _ ContentGenerator = GeminiBackend{}

func (GeminiBackend) GenerateContent(ctx context.Context, apiKey, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client.Models.GenerateContent(ctx, model, contents, cfg)
}

// Config selects models for the generator.
type Config struct {
	PromptModel string
	TestModel   string
}

// Generator expands a short idea into a DetailedVideoPrompt and checks Gemini keys.
type Generator struct {
	backend ContentGenerator
	config  Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewGenerator creates a generator. A nil backend uses GeminiBackend.
func NewGenerator(backend ContentGenerator, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Generator {
	if backend == nil {
		backend = GeminiBackend{}
	}
	if cfg.PromptModel == "" {
		cfg.PromptModel = DefaultPromptModel
	}
	if cfg.TestModel == "" {
		cfg.TestModel = DefaultTestModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		backend: backend,
		config:  cfg,
		logger:  logger.Named("prompt"),
		metrics: m,
	}
}

// Generate asks Gemini for a structured prompt built around idea.
func (g *Generator) Generate(ctx context.Context, apiKey, idea string, opts Options) (*DetailedVideoPrompt, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, apperrors.ConfigurationError("gemini api key is not set")
	}
	if strings.TrimSpace(idea) == "" {
		return nil, apperrors.ValidationError("idea is required")
	}

	contents := []*genai.Content{{Parts: []*genai.Part{genai.NewPartFromText(buildInstruction(idea, opts))}}}
	resp, err := g.backend.GenerateContent(ctx, apiKey, g.config.PromptModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   detailedPromptSchema(),
		Temperature:      genai.Ptr[float32](0.9),
		TopP:             genai.Ptr[float32](0.95),
		TopK:             genai.Ptr[float32](64),
	})
	if err != nil {
		g.metrics.RecordPromptRequest("generate", "error")
		g.logger.Warn("prompt generation failed", zap.String("model", g.config.PromptModel), zap.Error(err))
		return nil, classify("generate detailed prompt", err)
	}

	text := strings.TrimSpace(resp.Text())
	var out DetailedVideoPrompt
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		g.metrics.RecordPromptRequest("generate", "malformed")
		return nil, apperrors.MalformedResult("gemini returned a prompt that is not valid JSON")
	}
	if out.FullTextPrompt == "" {
		g.metrics.RecordPromptRequest("generate", "malformed")
		return nil, apperrors.MalformedResult(`gemini returned a prompt without "full_text_prompt"`)
	}

	g.metrics.RecordPromptRequest("generate", "ok")
	g.logger.Info("detailed prompt generated", zap.String("title", out.Title), zap.Int("chars", len([]rune(out.FullTextPrompt))))
	return &out, nil
}

// TestKey makes the smallest possible call to check that apiKey is usable.
func (g *Generator) TestKey(ctx context.Context, apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return apperrors.ConfigurationError("gemini api key is empty")
	}

	_, err := g.backend.GenerateContent(ctx, apiKey, g.config.TestModel, genai.Text("hello"), &genai.GenerateContentConfig{
		MaxOutputTokens: 1,
		ThinkingConfig:  &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
	})
	if err != nil {
		g.metrics.RecordPromptRequest("test_key", "error")
		return classify("test gemini key", err)
	}
	g.metrics.RecordPromptRequest("test_key", "ok")
	return nil
}

func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return apperrors.Cancelled("")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout(op + ": deadline exceeded")
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperrors.ConfigurationError("invalid or unauthorized gemini api key")
		case http.StatusTooManyRequests:
			return apperrors.RateLimited("gemini rate limit exceeded, try again later")
		case http.StatusBadRequest:
			return apperrors.RemoteRejected(op + ": " + msgOrStatus(apiErr))
		}
	}
	return apperrors.RemoteUnavailable(op, err)
}

func msgOrStatus(e genai.APIError) string {
	if e.Message != "" {
		return e.Message
	}
	return e.Status
}

func buildInstruction(idea string, opts Options) string {
	var b strings.Builder
	b.WriteString("Expand the user's short video idea into a detailed, creative video prompt that follows the JSON schema. ")
	b.WriteString("Be concrete enough for a video generation model such as Veo or Sora to produce a high quality clip. ")
	b.WriteString(`The "full_text_prompt" field must be one complete text prompt that combines every element.`)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "User idea: %q\n", idea)

	section := func(label string, items []string) {
		if len(items) > 0 {
			fmt.Fprintf(&b, "%s: %s\n", label, strings.Join(items, ", "))
		}
	}
	section("Characters to include", opts.Characters)
	section("Situations or plot", opts.Scenarios)
	section("Preferred camera angles", opts.CameraAngles)
	section("Preferred visual styles or filters", opts.Styles)
	return b.String()
}

func detailedPromptSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	strList := func(item, desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeArray, Items: str(item), Description: desc}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": str("Title of the video"),
			"genre": str("Genre, for example fantasy, comedy or sci-fi"),
			"characters": {
				Type:        genai.TypeArray,
				Description: "Cast of the video",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":        str("Character name"),
						"description": str("Appearance and traits"),
						"costume":     str("Costume"),
					},
					Required: []string{"name", "description"},
				},
			},
			"scenario":          str("Main situation and plot"),
			"background":        str("Setting and background"),
			"camera_angle":      str("Main camera angle or shot"),
			"style":             str("Visual style or filter"),
			"dialogue_snippets": strList("Key line of dialogue", "Dialogue that may appear in the video"),
			"music_mood":        str("Mood of the music"),
			"sound_effects":     strList("Sound effect", "Main sound effects"),
			"full_text_prompt":  str("Detailed text prompt combining every element above"),
		},
		Required: []string{"title", "scenario", "background", "full_text_prompt"},
	}
}
