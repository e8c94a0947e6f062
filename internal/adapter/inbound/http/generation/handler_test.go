package generationhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniedit/videogen/internal/module/generation"
	"github.com/uniedit/videogen/internal/module/kieai"
	"github.com/uniedit/videogen/internal/module/prompt"
	"github.com/uniedit/videogen/internal/module/provider"
	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRuns struct {
	last     generation.Request
	waited   bool
	runErr   error
	statuses map[string]generation.Status
}

func (f *fakeRuns) Variants() []provider.Variant { return provider.Catalog() }

func (f *fakeRuns) Variant(name string) (provider.Variant, error) {
	for _, v := range provider.Catalog() {
		if v.Name == name {
			return v, nil
		}
	}
	return provider.Variant{}, apperrors.NotFound("variant " + name)
}

func (f *fakeRuns) Run(_ context.Context, req generation.Request) (generation.Status, error) {
	f.last, f.waited = req, true
	if f.runErr != nil {
		return generation.Status{RunID: "run-1", State: generation.StateFailed}, f.runErr
	}
	return generation.Status{
		RunID:  "run-1",
		State:  generation.StateSucceeded,
		Result: &kieai.Result{Kind: kieai.ResultVideo, URL: "https://cdn/v.mp4"},
	}, nil
}

func (f *fakeRuns) Start(_ context.Context, req generation.Request) (generation.Status, error) {
	f.last = req
	if f.runErr != nil {
		return generation.Status{}, f.runErr
	}
	return generation.Status{RunID: "run-2", State: generation.StateValidating}, nil
}

func (f *fakeRuns) Get(_ context.Context, runID string) (generation.Status, error) {
	st, ok := f.statuses[runID]
	if !ok {
		return generation.Status{}, apperrors.NotFound("run " + runID)
	}
	return st, nil
}

func (f *fakeRuns) Cancel(ctx context.Context, runID string) (generation.Status, error) {
	st, err := f.Get(ctx, runID)
	if err != nil {
		return st, err
	}
	st.State = generation.StateCancelled
	return st, nil
}

type fakePrompts struct {
	key     string
	idea    string
	opts    prompt.Options
	testErr error
}

func (f *fakePrompts) Generate(_ context.Context, apiKey, idea string, opts prompt.Options) (*prompt.DetailedVideoPrompt, error) {
	f.key, f.idea, f.opts = apiKey, idea, opts
	if apiKey == "" {
		return nil, apperrors.ConfigurationError("Gemini API key is not configured")
	}
	return &prompt.DetailedVideoPrompt{Title: "T", FullTextPrompt: "a cat surfing at dawn"}, nil
}

func (f *fakePrompts) TestKey(_ context.Context, apiKey string) error {
	f.key = apiKey
	return f.testErr
}

func newRouter(runs *fakeRuns, prompts *fakePrompts, keys Keys, maxUpload int64) *gin.Engine {
	r := gin.New()
	NewHandler(runs, prompts, keys, maxUpload).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListVariantsAndSchema(t *testing.T) {
	r := newRouter(&fakeRuns{}, &fakePrompts{}, Keys{}, 0)

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/variants", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Variants []VariantResponse `json:"variants"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Variants, len(provider.Catalog()))
	assert.Equal(t, provider.VariantSeedance, list.Variants[0].Name)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/variants/veo-3.1/schema", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"generation_type"`)
	assert.NotContains(t, w.Body.String(), `"Images"`)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/variants/nope/schema", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"variant nope not found"}}`, w.Body.String())
}

func TestCreateGenerationJSON(t *testing.T) {
	runs := &fakeRuns{}
	r := newRouter(runs, &fakePrompts{}, Keys{KieAI: "server-key"}, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations/seedance-1.5-pro", strings.NewReader(`{"prompt":"a cat"}`))
	req.Header.Set("Content-Type", "application/json")
	w := do(r, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"run_id":"run-2"`)
	assert.False(t, runs.waited)
	assert.Equal(t, "seedance-1.5-pro", runs.last.Variant)
	assert.Equal(t, "server-key", runs.last.APIKey)
	assert.JSONEq(t, `{"prompt":"a cat"}`, string(runs.last.Payload))
}

func TestCreateGenerationWaitUsesBearerKey(t *testing.T) {
	runs := &fakeRuns{}
	r := newRouter(runs, &fakePrompts{}, Keys{KieAI: "server-key"}, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations/seedance-1.5-pro?wait=true", strings.NewReader(`{"prompt":"a cat"}`))
	req.Header.Set("Authorization", "Bearer user-key")
	w := do(r, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, runs.waited)
	assert.Equal(t, "user-key", runs.last.APIKey)
	assert.Contains(t, w.Body.String(), `"url":"https://cdn/v.mp4"`)

	w = do(r, httptest.NewRequest(http.MethodPost, "/api/v1/generations/seedance-1.5-pro?wait=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateGenerationMultipart(t *testing.T) {
	runs := &fakeRuns{}
	r := newRouter(runs, &fakePrompts{}, Keys{KieAI: "k"}, 1<<20)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("payload", `{"prompt":"a cat"}`))
	for _, name := range []string{"first.png", "last.png"} {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="images"; filename="`+name+`"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("png-" + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations/veo-3.1", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := do(r, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"prompt":"a cat"}`, string(runs.last.Payload))
	require.Len(t, runs.last.Images, 2)
	assert.Equal(t, "first.png", runs.last.Images[0].Name)
	assert.Equal(t, "image/png", runs.last.Images[0].MIMEType)
	assert.Equal(t, []byte("png-last.png"), runs.last.Images[1].Data)
	assert.Empty(t, runs.last.Videos)
}

func TestCreateGenerationBodyTooLarge(t *testing.T) {
	runs := &fakeRuns{}
	r := newRouter(runs, &fakePrompts{}, Keys{KieAI: "k"}, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations/seedance-1.5-pro", bytes.NewReader(make([]byte, 2<<20)))
	w := do(r, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "exceeds 1 MB")
	assert.Empty(t, runs.last.Variant)
}

func TestCreateGenerationErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperrors.ValidationError("prompt is required"), http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"missing key", apperrors.ConfigurationError("Kie.ai API key is not configured"), http.StatusUnauthorized, "CONFIGURATION_ERROR"},
		{"remote failure", apperrors.Prefix("seedance-1.5-pro", apperrors.RemoteFailed("quota exceeded")), http.StatusBadGateway, "REMOTE_FAILED"},
		{"timeout", apperrors.Timeout("operation timed out waiting for task t1"), http.StatusGatewayTimeout, "TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(&fakeRuns{runErr: tt.err}, &fakePrompts{}, Keys{}, 0)

			w := do(r, httptest.NewRequest(http.MethodPost, "/api/v1/generations/seedance-1.5-pro?wait=1", strings.NewReader(`{}`)))

			assert.Equal(t, tt.status, w.Code)
			var body apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.err.Error(), body.Error.Message)
		})
	}
}

func TestGetAndCancelGeneration(t *testing.T) {
	runs := &fakeRuns{statuses: map[string]generation.Status{
		"run-9": {RunID: "run-9", State: generation.StatePolling, Message: "Almost there!"},
	}}
	r := newRouter(runs, &fakePrompts{}, Keys{}, 0)

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/generations/run-9", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"polling"`)
	assert.Contains(t, w.Body.String(), `"message":"Almost there!"`)

	w = do(r, httptest.NewRequest(http.MethodDelete, "/api/v1/generations/run-9", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"cancelled"`)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/generations/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateDetailedPrompt(t *testing.T) {
	prompts := &fakePrompts{}
	r := newRouter(&fakeRuns{}, prompts, Keys{Gemini: "gemini-server"}, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/prompts/detailed",
		strings.NewReader(`{"idea":"a cat surfing","styles":["anime"],"camera_angles":["drone shot"]}`))
	req.Header.Set("Content-Type", "application/json")
	w := do(r, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"full_text_prompt":"a cat surfing at dawn"`)
	assert.Equal(t, "gemini-server", prompts.key)
	assert.Equal(t, "a cat surfing", prompts.idea)
	assert.Equal(t, []string{"anime"}, prompts.opts.Styles)
	assert.Equal(t, []string{"drone shot"}, prompts.opts.CameraAngles)

	w = do(r, httptest.NewRequest(http.MethodPost, "/api/v1/prompts/detailed", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	r = newRouter(&fakeRuns{}, prompts, Keys{}, 0)
	w = do(r, httptest.NewRequest(http.MethodPost, "/api/v1/prompts/detailed", strings.NewReader(`{"idea":"x"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTestGeminiKey(t *testing.T) {
	prompts := &fakePrompts{}
	r := newRouter(&fakeRuns{}, prompts, Keys{Gemini: "server"}, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/keys/gemini/test", nil)
	req.Header.Set("Authorization", "Bearer candidate")
	w := do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "candidate", prompts.key)
	assert.Contains(t, w.Body.String(), `"valid":true`)

	prompts.testErr = apperrors.RateLimited("Gemini quota exhausted")
	w = do(r, httptest.NewRequest(http.MethodPost, "/api/v1/keys/gemini/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "server", prompts.key)
}

func TestBearerOr(t *testing.T) {
	tests := []struct {
		header, want string
	}{
		{"", "fallback"},
		{"Bearer abc", "abc"},
		{"Bearer   ", "fallback"},
		{"Basic abc", "fallback"},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			c.Request.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, bearerOr(c, "fallback"), tt.header)
	}
}

func TestSubmissionKey(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Request.RemoteAddr = "10.0.0.7:4000"
	assert.Equal(t, "ip:10.0.0.7", SubmissionKey(c))

	c.Request.Header.Set("Authorization", "Bearer user-key")
	key := SubmissionKey(c)
	assert.True(t, strings.HasPrefix(key, "key:"))
	assert.NotContains(t, key, "user-key")
	assert.Len(t, key, len("key:")+16)
}

func TestGuardSubmissionsOnlyWrapsCreate(t *testing.T) {
	runs := &fakeRuns{statuses: map[string]generation.Status{"run-1": {RunID: "run-1"}}}
	h := NewHandler(runs, &fakePrompts{}, Keys{KieAI: "k"}, 0)
	guarded := 0
	h.GuardSubmissions(func(c *gin.Context) {
		guarded++
		c.AbortWithStatus(http.StatusTooManyRequests)
	})
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))

	w := do(r, httptest.NewRequest(http.MethodPost, "/api/v1/generations/seedance-1.5-pro", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Empty(t, runs.last.Variant)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/generations/run-1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, guarded)
}
