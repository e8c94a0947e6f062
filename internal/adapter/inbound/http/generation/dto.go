package generationhttp

import (
	"github.com/uniedit/videogen/internal/module/kieai"
	"github.com/uniedit/videogen/internal/module/prompt"
	"github.com/uniedit/videogen/internal/module/provider"
)

// VariantResponse describes one runnable variant.
type VariantResponse struct {
	Name       string           `json:"name"`
	Family     provider.Family  `json:"family"`
	Model      string           `json:"model"`
	Endpoint   string           `json:"endpoint"`
	ResultKind kieai.ResultKind `json:"result_kind"`
}

func toVariantResponse(v provider.Variant) VariantResponse {
	return VariantResponse{
		Name:       v.Name,
		Family:     v.Family,
		Model:      v.Model,
		Endpoint:   string(v.Endpoint),
		ResultKind: v.ResultKind,
	}
}

// DetailedPromptRequest asks Gemini to expand an idea into a DetailedVideoPrompt.
type DetailedPromptRequest struct {
	Idea string `json:"idea" binding:"required"`
	prompt.Options
}

// KeyTestResponse reports a successful key check.
type KeyTestResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}
