package provider

import (
	"strings"

	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

const (
	GrokModeFun    = "fun"
	GrokModeNormal = "normal"
	GrokModeSpicy  = "spicy"
)

// GrokTextInput drives grok-imagine/text-to-video. Spicy is not available
// for text input and is sent as normal.
type GrokTextInput struct {
	Media
	PromptOptions

	Prompt string `json:"prompt" validate:"required,max=5000" jsonschema:"minLength=1,maxLength=5000"`
	Mode   string `json:"mode" validate:"required,oneof=fun normal spicy" jsonschema:"enum=fun,enum=normal,enum=spicy,default=normal"`
}

type grokTextBody struct {
	Prompt string `json:"prompt"`
	Mode   string `json:"mode"`
}

func newGrokTextInput() Input { return &GrokTextInput{Mode: GrokModeNormal} }

func (in *GrokTextInput) Validate(l Limits) error {
	if err := in.resolve(&in.Prompt); err != nil {
		return err
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	return in.checkMedia(l, 0, 0, 0, 0)
}

func (in *GrokTextInput) Uploads() []UploadGroup { return nil }

func (in *GrokTextInput) Build([][]string) any {
	mode := in.Mode
	if mode == GrokModeSpicy {
		mode = GrokModeNormal
	}
	return grokTextBody{Prompt: in.Prompt, Mode: mode}
}

// GrokImageInput drives grok-imagine/image-to-video. The source is either one
// uploaded image or a previous Grok image task (task_id plus index), never both.
type GrokImageInput struct {
	Media
	PromptOptions

	Prompt string `json:"prompt,omitempty" validate:"max=5000" jsonschema:"maxLength=5000"`
	Mode   string `json:"mode" validate:"required,oneof=fun normal spicy" jsonschema:"enum=fun,enum=normal,enum=spicy,default=normal"`
	TaskID string `json:"task_id,omitempty" validate:"max=100"`
	Index  *int   `json:"index,omitempty" validate:"omitempty,gte=0,lte=5" jsonschema:"minimum=0,maximum=5"`
}

type grokImageBody struct {
	ImageURLs []string `json:"image_urls,omitempty"`
	TaskID    string   `json:"task_id,omitempty"`
	Index     *int     `json:"index,omitempty"`
	Prompt    string   `json:"prompt,omitempty"`
	Mode      string   `json:"mode"`
}

func newGrokImageInput() Input { return &GrokImageInput{Mode: GrokModeNormal} }

func (in *GrokImageInput) Validate(l Limits) error {
	if err := in.resolve(&in.Prompt); err != nil {
		return err
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	if err := in.checkMedia(l, 0, 1, 0, 0); err != nil {
		return err
	}

	in.TaskID = strings.TrimSpace(in.TaskID)
	hasImage := len(in.Images) > 0
	hasTask := in.TaskID != ""
	switch {
	case hasImage && hasTask:
		return apperrors.ValidationError("provide either an image or task_id, not both")
	case !hasImage && !hasTask:
		return apperrors.ValidationError("an image or task_id is required")
	}
	// Index selects one of a Grok task's images and is ignored for uploads.
	if hasTask && in.Index == nil {
		in.Index = new(int)
	}
	return nil
}

func (in *GrokImageInput) Uploads() []UploadGroup {
	return []UploadGroup{{Path: "grok-input-image", Assets: in.Images}}
}

func (in *GrokImageInput) Build(urls [][]string) any {
	body := grokImageBody{Prompt: in.Prompt, Mode: in.Mode}
	if u := urlsAt(urls, 0); len(u) > 0 {
		body.ImageURLs = u
		// Spicy only applies to Grok-generated sources.
		if body.Mode == GrokModeSpicy {
			body.Mode = GrokModeNormal
		}
		return body
	}
	body.TaskID = in.TaskID
	body.Index = in.Index
	return body
}
