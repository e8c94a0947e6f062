package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

type fakeBackend struct {
	text   string
	err    error
	calls  int
	key    string
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

func (f *fakeBackend) GenerateContent(_ context.Context, apiKey, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.key = apiKey
	f.model = model
	f.config = cfg
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(f.text, genai.RoleModel)}},
	}, nil
}

func TestGenerate(t *testing.T) {
	t.Run("returns the decoded prompt", func(t *testing.T) {
		backend := &fakeBackend{text: `{"title":"Park run","scenario":"a dog runs","background":"city park","full_text_prompt":"A golden retriever sprints across a sunny park"}`}
		g := NewGenerator(backend, Config{}, nil, nil)

		out, err := g.Generate(context.Background(), "gkey", "dog in a park", Options{
			Characters:   []string{"brave hero"},
			CameraAngles: []string{"drone shot", "close-up"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Park run", out.Title)
		assert.Equal(t, "A golden retriever sprints across a sunny park", out.FullTextPrompt)

		assert.Equal(t, "gkey", backend.key)
		assert.Equal(t, DefaultPromptModel, backend.model)
		assert.Contains(t, backend.prompt, `"dog in a park"`)
		assert.Contains(t, backend.prompt, "brave hero")
		assert.Contains(t, backend.prompt, "drone shot, close-up")
		assert.NotContains(t, backend.prompt, "visual styles")

		require.NotNil(t, backend.config)
		assert.Equal(t, "application/json", backend.config.ResponseMIMEType)
		assert.Equal(t, float32(0.9), *backend.config.Temperature)
		assert.Equal(t, float32(64), *backend.config.TopK)
		assert.ElementsMatch(t, []string{"title", "scenario", "background", "full_text_prompt"}, backend.config.ResponseSchema.Required)
	})

	t.Run("empty idea is rejected before calling gemini", func(t *testing.T) {
		backend := &fakeBackend{}
		g := NewGenerator(backend, Config{}, nil, nil)

		_, err := g.Generate(context.Background(), "gkey", "   ", Options{})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Zero(t, backend.calls)
	})

	t.Run("missing key", func(t *testing.T) {
		g := NewGenerator(&fakeBackend{}, Config{}, nil, nil)
		_, err := g.Generate(context.Background(), "", "idea", Options{})
		assert.ErrorIs(t, err, apperrors.ErrConfiguration)
	})

	t.Run("non JSON answer is malformed", func(t *testing.T) {
		g := NewGenerator(&fakeBackend{text: "sure! here is your prompt"}, Config{}, nil, nil)
		_, err := g.Generate(context.Background(), "gkey", "idea", Options{})
		assert.ErrorIs(t, err, apperrors.ErrMalformedResult)
	})

	t.Run("answer without full text prompt is malformed", func(t *testing.T) {
		g := NewGenerator(&fakeBackend{text: `{"title":"x"}`}, Config{}, nil, nil)
		_, err := g.Generate(context.Background(), "gkey", "idea", Options{})
		assert.ErrorIs(t, err, apperrors.ErrMalformedResult)
	})
}

func TestTestKey(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "valid", err: nil},
		{name: "unauthorized", err: genai.APIError{Code: 401, Message: "API key not valid"}, wantErr: apperrors.ErrConfiguration},
		{name: "forbidden", err: genai.APIError{Code: 403}, wantErr: apperrors.ErrConfiguration},
		{name: "rate limited", err: genai.APIError{Code: 429}, wantErr: apperrors.ErrRateLimited},
		{name: "bad request", err: genai.APIError{Code: 400, Message: "bad"}, wantErr: apperrors.ErrRemoteRejected},
		{name: "transport", err: errors.New("connection reset"), wantErr: apperrors.ErrRemoteUnavailable},
		{name: "cancelled", err: context.Canceled, wantErr: apperrors.ErrCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{err: tt.err}
			g := NewGenerator(backend, Config{TestModel: "flash"}, nil, nil)

			err := g.TestKey(context.Background(), "gkey")
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, "flash", backend.model)
			assert.Equal(t, int32(1), backend.config.MaxOutputTokens)
			assert.Equal(t, int32(0), *backend.config.ThinkingConfig.ThinkingBudget)
		})
	}

	t.Run("empty key makes no call", func(t *testing.T) {
		backend := &fakeBackend{}
		err := NewGenerator(backend, Config{}, nil, nil).TestKey(context.Background(), "")
		assert.ErrorIs(t, err, apperrors.ErrConfiguration)
		assert.Zero(t, backend.calls)
	})
}

func TestParseDetailedPrompt(t *testing.T) {
	p, err := ParseDetailedPrompt([]byte(`{"title":"t","full_text_prompt":"a cat on a roof"}`))
	require.NoError(t, err)
	assert.Equal(t, "a cat on a roof", p.FullTextPrompt)

	p, err = ParseDetailedPrompt([]byte(`"{\"full_text_prompt\":\"quoted\"}"`))
	require.NoError(t, err)
	assert.Equal(t, "quoted", p.FullTextPrompt)

	for _, bad := range []string{"", "{", `{"title":"no text"}`, `{"full_text_prompt":"  "}`} {
		_, err := ParseDetailedPrompt([]byte(bad))
		assert.ErrorIs(t, err, apperrors.ErrValidation, "input %q", bad)
	}
}
