package provider

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

// SoraTextInput drives the Sora 2 and Sora 2 Pro text-to-video models.
type SoraTextInput struct {
	Media
	PromptOptions

	Prompt          string `json:"prompt" validate:"required,max=10000" jsonschema:"minLength=1,maxLength=10000"`
	AspectRatio     string `json:"aspect_ratio" validate:"required,oneof=portrait landscape" jsonschema:"enum=portrait,enum=landscape,default=landscape"`
	NFrames         string `json:"n_frames" validate:"required,oneof=10 15" jsonschema:"enum=10,enum=15,default=10"`
	Size            string `json:"size" validate:"required,oneof=standard high" jsonschema:"enum=standard,enum=high"`
	RemoveWatermark bool   `json:"remove_watermark" jsonschema:"default=true"`
}

// SoraImageInput drives the Sora 2 and Sora 2 Pro image-to-video models with one image.
type SoraImageInput struct {
	SoraTextInput
}

type soraBody struct {
	Prompt          string   `json:"prompt"`
	ImageURLs       []string `json:"image_urls,omitempty"`
	AspectRatio     string   `json:"aspect_ratio"`
	NFrames         string   `json:"n_frames"`
	Size            string   `json:"size"`
	RemoveWatermark bool     `json:"remove_watermark"`
}

func soraDefaults(pro bool) SoraTextInput {
	size := "standard"
	if pro {
		size = "high"
	}
	return SoraTextInput{
		AspectRatio:     "landscape",
		NFrames:         "10",
		Size:            size,
		RemoveWatermark: true,
	}
}

func newSoraTextInput(pro bool) Input {
	in := soraDefaults(pro)
	return &in
}

func newSoraImageInput(pro bool) Input {
	return &SoraImageInput{SoraTextInput: soraDefaults(pro)}
}

func (in *SoraTextInput) Validate(l Limits) error {
	if err := in.resolve(&in.Prompt); err != nil {
		return err
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	return in.checkMedia(l, 0, 0, 0, 0)
}

func (in *SoraTextInput) Uploads() []UploadGroup { return nil }

func (in *SoraTextInput) Build(urls [][]string) any {
	return soraBody{
		Prompt:          in.Prompt,
		ImageURLs:       urlsAt(urls, 0),
		AspectRatio:     in.AspectRatio,
		NFrames:         in.NFrames,
		Size:            in.Size,
		RemoveWatermark: in.RemoveWatermark,
	}
}

func (in *SoraImageInput) Validate(l Limits) error {
	if err := in.resolve(&in.Prompt); err != nil {
		return err
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	return in.checkMedia(l, 1, 1, 0, 0)
}

func (in *SoraImageInput) Uploads() []UploadGroup {
	return []UploadGroup{{Path: "sora2-input-image", Assets: in.Images}}
}

// SoraWatermarkInput removes the watermark from a published Sora video.
type SoraWatermarkInput struct {
	Media

	VideoURL string `json:"video_url" validate:"required,max=500,startswith=https://sora.chatgpt.com/" jsonschema:"maxLength=500,pattern=^https://sora\\.chatgpt\\.com/"`
}

type soraWatermarkBody struct {
	VideoURL string `json:"video_url"`
}

func newSoraWatermarkInput() Input { return &SoraWatermarkInput{} }

func (in *SoraWatermarkInput) Validate(l Limits) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	return in.checkMedia(l, 0, 0, 0, 0)
}

func (in *SoraWatermarkInput) Uploads() []UploadGroup { return nil }

func (in *SoraWatermarkInput) Build([][]string) any {
	return soraWatermarkBody{VideoURL: in.VideoURL}
}

// SoraCharacterInput creates a reusable character from one video clip.
type SoraCharacterInput struct {
	Media

	CharacterPrompt   string `json:"character_prompt,omitempty" validate:"max=5000" jsonschema:"maxLength=5000"`
	SafetyInstruction string `json:"safety_instruction,omitempty" validate:"max=5000" jsonschema:"maxLength=5000"`
}

type soraCharacterBody struct {
	CharacterFileURL  []string `json:"character_file_url"`
	CharacterPrompt   string   `json:"character_prompt,omitempty"`
	SafetyInstruction string   `json:"safety_instruction,omitempty"`
}

func newSoraCharacterInput() Input { return &SoraCharacterInput{} }

func (in *SoraCharacterInput) Validate(l Limits) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	return in.checkMedia(l, 0, 0, 1, 1)
}

func (in *SoraCharacterInput) Uploads() []UploadGroup {
	return []UploadGroup{{Path: "sora2-character-video", Assets: in.Videos}}
}

func (in *SoraCharacterInput) Build(urls [][]string) any {
	return soraCharacterBody{
		CharacterFileURL:  urlsAt(urls, 0),
		CharacterPrompt:   in.CharacterPrompt,
		SafetyInstruction: in.SafetyInstruction,
	}
}

// Shot is one storyboard scene. Durations are seconds and may be fractional.
type Shot struct {
	Scene    string  `json:"scene" validate:"required,max=5000" jsonschema:"minLength=1,maxLength=5000"`
	Duration float64 `json:"duration" validate:"gt=0" jsonschema:"exclusiveMinimum=0"`
}

// SoraStoryboardInput drives sora-2-pro-storyboard. Shot durations must add up to n_frames.
type SoraStoryboardInput struct {
	Media

	NFrames     string `json:"n_frames" validate:"required,oneof=10 15 25" jsonschema:"enum=10,enum=15,enum=25,default=15"`
	AspectRatio string `json:"aspect_ratio" validate:"required,oneof=portrait landscape" jsonschema:"enum=portrait,enum=landscape,default=landscape"`
	Shots       []Shot `json:"shots" validate:"required,min=1,dive" jsonschema:"minItems=1"`
}

type storyboardShot struct {
	Scene    string  `json:"Scene"`
	Duration float64 `json:"duration"`
}

type soraStoryboardBody struct {
	NFrames     string           `json:"n_frames"`
	ImageURLs   []string         `json:"image_urls,omitempty"`
	AspectRatio string           `json:"aspect_ratio"`
	Shots       []storyboardShot `json:"shots"`
}

func newSoraStoryboardInput() Input {
	return &SoraStoryboardInput{NFrames: "15", AspectRatio: "landscape"}
}

func (in *SoraStoryboardInput) Validate(l Limits) error {
	for i := range in.Shots {
		in.Shots[i].Scene = strings.TrimSpace(in.Shots[i].Scene)
	}
	if err := validateStruct(in); err != nil {
		return err
	}

	total, _ := strconv.ParseFloat(in.NFrames, 64)
	var sum float64
	for _, s := range in.Shots {
		sum += s.Duration
	}
	if math.Abs(sum-total) > 1e-6 {
		return apperrors.ValidationError(fmt.Sprintf(
			"shot durations add up to %ss but n_frames is %ss", strconv.FormatFloat(sum, 'f', -1, 64), in.NFrames))
	}
	return in.checkMedia(l, 0, 1, 0, 0)
}

func (in *SoraStoryboardInput) Uploads() []UploadGroup {
	return []UploadGroup{{Path: "sora2-storyboard-image", Assets: in.Images}}
}

func (in *SoraStoryboardInput) Build(urls [][]string) any {
	shots := make([]storyboardShot, len(in.Shots))
	for i, s := range in.Shots {
		shots[i] = storyboardShot{Scene: s.Scene, Duration: s.Duration}
	}
	return soraStoryboardBody{
		NFrames:     in.NFrames,
		ImageURLs:   urlsAt(urls, 0),
		AspectRatio: in.AspectRatio,
		Shots:       shots,
	}
}
