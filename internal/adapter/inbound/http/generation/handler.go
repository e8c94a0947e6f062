package generationhttp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/uniedit/videogen/internal/module/generation"
	"github.com/uniedit/videogen/internal/module/kieai"
	"github.com/uniedit/videogen/internal/module/prompt"
	"github.com/uniedit/videogen/internal/module/provider"
	apperrors "github.com/uniedit/videogen/internal/shared/errors"
	"github.com/uniedit/videogen/internal/shared/logger"
	"github.com/uniedit/videogen/internal/shared/response"
)

// RunService is the generation surface the handler drives.
type RunService interface {
	Variants() []provider.Variant
	Variant(name string) (provider.Variant, error)
	Run(ctx context.Context, req generation.Request) (generation.Status, error)
	Start(ctx context.Context, req generation.Request) (generation.Status, error)
	Get(ctx context.Context, runID string) (generation.Status, error)
	Cancel(ctx context.Context, runID string) (generation.Status, error)
}

// PromptService is the Gemini surface the handler drives.
type PromptService interface {
	Generate(ctx context.Context, apiKey, idea string, opts prompt.Options) (*prompt.DetailedVideoPrompt, error)
	TestKey(ctx context.Context, apiKey string) error
}

var (
	_ RunService    = (*generation.Service)(nil)
	_ PromptService = (*prompt.Generator)(nil)
)

// Keys are the server-side credentials used when a request carries none.
type Keys struct {
	KieAI  string
	Gemini string
}

// Handler handles generation HTTP requests.
type Handler struct {
	runs           RunService
	prompts        PromptService
	keys           Keys
	maxUploadBytes int64
	submitGuards   []gin.HandlerFunc
}

// NewHandler creates a new generation handler. maxUploadBytes caps a
// multipart request body; zero disables the cap.
func NewHandler(runs RunService, prompts PromptService, keys Keys, maxUploadBytes int64) *Handler {
	return &Handler{runs: runs, prompts: prompts, keys: keys, maxUploadBytes: maxUploadBytes}
}

// GuardSubmissions runs mw in front of run creation only.
func (h *Handler) GuardSubmissions(mw ...gin.HandlerFunc) {
	h.submitGuards = append(h.submitGuards, mw...)
}

// RegisterRoutes registers generation routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/variants", h.ListVariants)
	r.GET("/variants/:variant/schema", h.GetVariantSchema)

	gen := r.Group("/generations")
	{
		submit := append(append([]gin.HandlerFunc{}, h.submitGuards...), h.CreateGeneration)
		gen.POST("/:variant", submit...)
		gen.GET("/:run_id", h.GetGeneration)
		gen.DELETE("/:run_id", h.CancelGeneration)
	}

	r.POST("/prompts/detailed", h.GenerateDetailedPrompt)
	r.POST("/keys/gemini/test", h.TestGeminiKey)
}

// ListVariants lists every runnable variant.
func (h *Handler) ListVariants(c *gin.Context) {
	variants := h.runs.Variants()
	out := make([]VariantResponse, 0, len(variants))
	for _, v := range variants {
		out = append(out, toVariantResponse(v))
	}
	c.JSON(http.StatusOK, gin.H{"variants": out})
}

// GetVariantSchema returns the JSON Schema of a variant payload.
func (h *Handler) GetVariantSchema(c *gin.Context) {
	v, err := h.runs.Variant(c.Param("variant"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, v.Schema())
}

// CreateGeneration starts a run. With ?wait=true it blocks until the run
// is terminal and returns the final status.
func (h *Handler) CreateGeneration(c *gin.Context) {
	wait := false
	if raw := c.Query("wait"); raw != "" {
		var err error
		if wait, err = strconv.ParseBool(raw); err != nil {
			response.BadRequest(c, "wait must be a boolean")
			return
		}
	}

	req, err := h.bindRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.Variant = c.Param("variant")
	req.APIKey = bearerOr(c, h.keys.KieAI)

	log := logger.FromContext(c.Request.Context())
	if wait {
		status, err := h.runs.Run(c.Request.Context(), req)
		if err != nil {
			log.Info("generation failed", zap.String("variant", req.Variant), zap.String("run_id", status.RunID), zap.Error(err))
			response.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
		return
	}

	status, err := h.runs.Start(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	log.Info("generation started", zap.String("variant", req.Variant), zap.String("run_id", status.RunID))
	c.JSON(http.StatusAccepted, status)
}

// GetGeneration returns the status of a run.
func (h *Handler) GetGeneration(c *gin.Context) {
	status, err := h.runs.Get(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// CancelGeneration cancels a run.
func (h *Handler) CancelGeneration(c *gin.Context) {
	status, err := h.runs.Cancel(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GenerateDetailedPrompt expands an idea into a DetailedVideoPrompt.
func (h *Handler) GenerateDetailedPrompt(c *gin.Context) {
	var req DetailedPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.ValidationError("idea is required"))
		return
	}

	doc, err := h.prompts.Generate(c.Request.Context(), bearerOr(c, h.keys.Gemini), req.Idea, req.Options)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// TestGeminiKey checks that a Gemini key is usable.
func (h *Handler) TestGeminiKey(c *gin.Context) {
	if err := h.prompts.TestKey(c.Request.Context(), bearerOr(c, h.keys.Gemini)); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, KeyTestResponse{Valid: true, Message: "Gemini API key is valid"})
}

// bindRequest reads either a multipart form (payload field plus images and
// videos files) or a raw JSON body.
func (h *Handler) bindRequest(c *gin.Context) (generation.Request, error) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return generation.Request{}, bodyError(err)
		}
		return generation.Request{Payload: body}, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return generation.Request{}, bodyError(err)
	}
	req := generation.Request{}
	if vals := form.Value["payload"]; len(vals) > 0 {
		req.Payload = []byte(vals[0])
	}
	if req.Images, err = readFiles(form.File["images"]); err != nil {
		return generation.Request{}, err
	}
	if req.Videos, err = readFiles(form.File["videos"]); err != nil {
		return generation.Request{}, err
	}
	return req, nil
}

func readFiles(headers []*multipart.FileHeader) ([]kieai.Asset, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	assets := make([]kieai.Asset, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, apperrors.Validationf("read file %q: %v", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, apperrors.Validationf("read file %q: %v", fh.Filename, err)
		}
		assets = append(assets, kieai.Asset{
			Name:     fh.Filename,
			MIMEType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	return assets, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.Validationf("request body exceeds %d MB", tooLarge.Limit>>20)
	}
	return apperrors.Validationf("read request body: %v", err)
}

// SubmissionKey identifies the caller for submission rate limits: a digest of
// the bearer key when one is sent, the client IP otherwise.
func SubmissionKey(c *gin.Context) string {
	if token := bearerOr(c, ""); token != "" {
		sum := sha256.Sum256([]byte(token))
		return "key:" + hex.EncodeToString(sum[:8])
	}
	return "ip:" + c.ClientIP()
}

// bearerOr returns the bearer token of the request, or fallback.
func bearerOr(c *gin.Context, fallback string) string {
	auth := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		if token = strings.TrimSpace(token); token != "" {
			return token
		}
	}
	return fallback
}
