package provider

// SeedanceInput drives bytedance/seedance-1.5-pro. Up to two reference images are optional.
type SeedanceInput struct {
	Media
	PromptOptions

	Prompt        string `json:"prompt" validate:"required,min=3,max=2500" jsonschema:"minLength=3,maxLength=2500"`
	AspectRatio   string `json:"aspect_ratio" validate:"required,oneof=1:1 21:9 4:3 3:4 16:9 9:16" jsonschema:"enum=1:1,enum=21:9,enum=4:3,enum=3:4,enum=16:9,enum=9:16,default=1:1"`
	Resolution    string `json:"resolution" validate:"required,oneof=480p 720p" jsonschema:"enum=480p,enum=720p,default=720p"`
	Duration      string `json:"duration" validate:"required,oneof=4 8 12" jsonschema:"enum=4,enum=8,enum=12,default=8"`
	FixedLens     bool   `json:"fixed_lens" jsonschema:"default=true"`
	GenerateAudio bool   `json:"generate_audio" jsonschema:"default=true"`
}

type seedanceBody struct {
	Prompt        string   `json:"prompt"`
	InputURLs     []string `json:"input_urls,omitempty"`
	AspectRatio   string   `json:"aspect_ratio"`
	Resolution    string   `json:"resolution"`
	Duration      string   `json:"duration"`
	FixedLens     bool     `json:"fixed_lens"`
	GenerateAudio bool     `json:"generate_audio"`
}

func newSeedanceInput() Input {
	return &SeedanceInput{
		AspectRatio:   "1:1",
		Resolution:    "720p",
		Duration:      "8",
		FixedLens:     true,
		GenerateAudio: true,
	}
}

func (in *SeedanceInput) Validate(l Limits) error {
	if err := in.resolve(&in.Prompt); err != nil {
		return err
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	return in.checkMedia(l, 0, 2, 0, 0)
}

func (in *SeedanceInput) Uploads() []UploadGroup {
	return []UploadGroup{{Path: "seedance-input-images", Assets: in.Images}}
}

func (in *SeedanceInput) Build(urls [][]string) any {
	return seedanceBody{
		Prompt:        in.Prompt,
		InputURLs:     urlsAt(urls, 0),
		AspectRatio:   in.AspectRatio,
		Resolution:    in.Resolution,
		Duration:      in.Duration,
		FixedLens:     in.FixedLens,
		GenerateAudio: in.GenerateAudio,
	}
}
