package provider

import (
	"github.com/uniedit/videogen/internal/module/kieai"
	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

const (
	VeoQuality = "veo3"
	VeoFast    = "veo3_fast"
)

// VeoInput drives Veo 3.1 through the dedicated Veo endpoint.
type VeoInput struct {
	Media
	PromptOptions

	Prompt            string                  `json:"prompt" validate:"required,max=10000" jsonschema:"minLength=1,maxLength=10000"`
	Model             string                  `json:"model" validate:"required,oneof=veo3 veo3_fast" jsonschema:"enum=veo3,enum=veo3_fast,default=veo3_fast"`
	GenerationType    kieai.VeoGenerationType `json:"generation_type" validate:"required,oneof=TEXT_2_VIDEO FIRST_AND_LAST_FRAMES_2_VIDEO REFERENCE_2_VIDEO" jsonschema:"enum=TEXT_2_VIDEO,enum=FIRST_AND_LAST_FRAMES_2_VIDEO,enum=REFERENCE_2_VIDEO,default=TEXT_2_VIDEO"`
	AspectRatio       string                  `json:"aspect_ratio" validate:"required,oneof=16:9 9:16 Auto" jsonschema:"enum=16:9,enum=9:16,enum=Auto,default=16:9"`
	Seed              *int                    `json:"seed,omitempty" validate:"omitempty,gte=10000,lte=99999" jsonschema:"minimum=10000,maximum=99999"`
	Watermark         string                  `json:"watermark,omitempty" validate:"max=100"`
	EnableTranslation bool                    `json:"enable_translation" jsonschema:"default=true"`
}

func newVeoInput() Input {
	return &VeoInput{
		Model:             VeoFast,
		GenerationType:    kieai.VeoTextToVideo,
		AspectRatio:       "16:9",
		EnableTranslation: true,
	}
}

func (in *VeoInput) Validate(l Limits) error {
	if err := in.resolve(&in.Prompt); err != nil {
		return err
	}
	if err := validateStruct(in); err != nil {
		return err
	}

	switch in.GenerationType {
	case kieai.VeoTextToVideo:
		return in.checkMedia(l, 0, 0, 0, 0)
	case kieai.VeoFirstAndLastToVideo:
		return in.checkMedia(l, 1, 2, 0, 0)
	default:
		if in.Model != VeoFast {
			return apperrors.ValidationError("REFERENCE_2_VIDEO requires model veo3_fast")
		}
		if in.AspectRatio != "16:9" {
			return apperrors.ValidationError("REFERENCE_2_VIDEO requires aspect_ratio 16:9")
		}
		return in.checkMedia(l, 1, 3, 0, 0)
	}
}

func (in *VeoInput) Uploads() []UploadGroup {
	return []UploadGroup{{Path: "veo31-input-images", Assets: in.Images}}
}

// Build returns a kieai.VeoRequest rather than a generic task input.
func (in *VeoInput) Build(urls [][]string) any {
	return kieai.VeoRequest{
		Prompt:            in.Prompt,
		ImageURLs:         urlsAt(urls, 0),
		Model:             in.Model,
		GenerationType:    in.GenerationType,
		AspectRatio:       in.AspectRatio,
		Seeds:             in.Seed,
		EnableTranslation: in.EnableTranslation,
		Watermark:         in.Watermark,
	}
}
