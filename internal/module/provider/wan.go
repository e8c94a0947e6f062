package provider

// WanTextInput drives wan/2-6-text-to-video.
type WanTextInput struct {
	Media
	PromptOptions

	Prompt     string `json:"prompt" validate:"required,max=5000" jsonschema:"minLength=1,maxLength=5000"`
	Duration   string `json:"duration" validate:"required,oneof=5 10 15" jsonschema:"enum=5,enum=10,enum=15,default=5"`
	Resolution string `json:"resolution" validate:"required,oneof=720p 1080p" jsonschema:"enum=720p,enum=1080p,default=1080p"`
	MultiShots bool   `json:"multi_shots"`
}

type wanTextBody struct {
	Prompt     string `json:"prompt"`
	Duration   string `json:"duration"`
	Resolution string `json:"resolution"`
	MultiShots bool   `json:"multi_shots"`
}

func newWanTextInput() Input {
	return &WanTextInput{Duration: "5", Resolution: "1080p"}
}

func (in *WanTextInput) Validate(l Limits) error {
	if err := in.resolve(&in.Prompt); err != nil {
		return err
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	return in.checkMedia(l, 0, 0, 0, 0)
}

func (in *WanTextInput) Uploads() []UploadGroup { return nil }

func (in *WanTextInput) Build([][]string) any {
	return wanTextBody{
		Prompt:     in.Prompt,
		Duration:   in.Duration,
		Resolution: in.Resolution,
		MultiShots: in.MultiShots,
	}
}

// WanImageInput drives wan/2-6-image-to-video with one to three images.
type WanImageInput struct {
	Media
	PromptOptions

	Prompt     string `json:"prompt" validate:"required,max=5000" jsonschema:"minLength=1,maxLength=5000"`
	Duration   string `json:"duration" validate:"required,oneof=5 10 15" jsonschema:"enum=5,enum=10,enum=15,default=5"`
	Resolution string `json:"resolution" validate:"required,oneof=720p 1080p" jsonschema:"enum=720p,enum=1080p,default=1080p"`
}

type wanImageBody struct {
	Prompt     string   `json:"prompt"`
	ImageURLs  []string `json:"image_urls"`
	Duration   string   `json:"duration"`
	Resolution string   `json:"resolution"`
}

func newWanImageInput() Input {
	return &WanImageInput{Duration: "5", Resolution: "1080p"}
}

func (in *WanImageInput) Validate(l Limits) error {
	if err := in.resolve(&in.Prompt); err != nil {
		return err
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	return in.checkMedia(l, 1, 3, 0, 0)
}

func (in *WanImageInput) Uploads() []UploadGroup {
	return []UploadGroup{{Path: "wan26-input-images", Assets: in.Images}}
}

func (in *WanImageInput) Build(urls [][]string) any {
	return wanImageBody{
		Prompt:     in.Prompt,
		ImageURLs:  urlsAt(urls, 0),
		Duration:   in.Duration,
		Resolution: in.Resolution,
	}
}

// WanVideoInput drives wan/2-6-video-to-video with one to three source videos.
type WanVideoInput struct {
	Media
	PromptOptions

	Prompt     string `json:"prompt" validate:"required,max=5000" jsonschema:"minLength=1,maxLength=5000"`
	Duration   string `json:"duration" validate:"required,oneof=5 10" jsonschema:"enum=5,enum=10,default=5"`
	Resolution string `json:"resolution" validate:"required,oneof=720p 1080p" jsonschema:"enum=720p,enum=1080p,default=1080p"`
}

type wanVideoBody struct {
	Prompt     string   `json:"prompt"`
	VideoURLs  []string `json:"video_urls"`
	Duration   string   `json:"duration"`
	Resolution string   `json:"resolution"`
}

func newWanVideoInput() Input {
	return &WanVideoInput{Duration: "5", Resolution: "1080p"}
}

func (in *WanVideoInput) Validate(l Limits) error {
	if err := in.resolve(&in.Prompt); err != nil {
		return err
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	return in.checkMedia(l, 0, 0, 1, 3)
}

func (in *WanVideoInput) Uploads() []UploadGroup {
	return []UploadGroup{{Path: "wan26-input-videos", Assets: in.Videos}}
}

func (in *WanVideoInput) Build(urls [][]string) any {
	return wanVideoBody{
		Prompt:     in.Prompt,
		VideoURLs:  urlsAt(urls, 0),
		Duration:   in.Duration,
		Resolution: in.Resolution,
	}
}
