package provider

import (
	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

// HailuoInput drives both Hailuo 2.3 image-to-video tiers. The tier is the variant.
type HailuoInput struct {
	Media
	PromptOptions

	Prompt     string `json:"prompt" validate:"required,max=5000" jsonschema:"minLength=1,maxLength=5000"`
	Duration   string `json:"duration" validate:"required,oneof=6 10" jsonschema:"enum=6,enum=10,default=6"`
	Resolution string `json:"resolution" validate:"required,oneof=768P 1080P" jsonschema:"enum=768P,enum=1080P,default=768P"`
}

type hailuoBody struct {
	Prompt     string `json:"prompt"`
	ImageURL   string `json:"image_url"`
	Duration   string `json:"duration"`
	Resolution string `json:"resolution"`
}

func newHailuoInput() Input { return &HailuoInput{Duration: "6", Resolution: "768P"} }

func (in *HailuoInput) Validate(l Limits) error {
	if err := in.resolve(&in.Prompt); err != nil {
		return err
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.Duration == "10" && in.Resolution == "1080P" {
		return apperrors.ValidationError("10 second videos are not available at 1080P")
	}
	return in.checkMedia(l, 1, 1, 0, 0)
}

func (in *HailuoInput) Uploads() []UploadGroup {
	return []UploadGroup{{Path: "hailuo-input-image", Assets: in.Images}}
}

func (in *HailuoInput) Build(urls [][]string) any {
	return hailuoBody{
		Prompt:     in.Prompt,
		ImageURL:   firstURL(urls, 0),
		Duration:   in.Duration,
		Resolution: in.Resolution,
	}
}
