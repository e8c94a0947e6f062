package provider

// KlingTextInput drives kling/2-6-text-to-video. A single reference image is optional.
type KlingTextInput struct {
	Media
	PromptOptions

	Prompt   string `json:"prompt" validate:"required,max=5000" jsonschema:"minLength=1,maxLength=5000"`
	Sound    bool   `json:"sound"`
	Duration string `json:"duration" validate:"required,oneof=5 10" jsonschema:"enum=5,enum=10,default=5"`
}

// KlingImageInput drives kling-2.6/image-to-video with exactly one image.
type KlingImageInput struct {
	Media
	PromptOptions

	Prompt   string `json:"prompt" validate:"required,max=2500" jsonschema:"minLength=1,maxLength=2500"`
	Sound    bool   `json:"sound"`
	Duration string `json:"duration" validate:"required,oneof=5 10" jsonschema:"enum=5,enum=10,default=5"`
}

type klingBody struct {
	Prompt    string   `json:"prompt"`
	ImageURLs []string `json:"image_urls,omitempty"`
	Sound     bool     `json:"sound"`
	Duration  string   `json:"duration"`
}

func newKlingTextInput() Input  { return &KlingTextInput{Duration: "5"} }
func newKlingImageInput() Input { return &KlingImageInput{Duration: "5"} }

func (in *KlingTextInput) Validate(l Limits) error {
	if err := in.resolve(&in.Prompt); err != nil {
		return err
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	return in.checkMedia(l, 0, 1, 0, 0)
}

func (in *KlingTextInput) Uploads() []UploadGroup {
	return []UploadGroup{{Path: "kling-t2v-input-image", Assets: in.Images}}
}

func (in *KlingTextInput) Build(urls [][]string) any {
	return klingBody{Prompt: in.Prompt, ImageURLs: urlsAt(urls, 0), Sound: in.Sound, Duration: in.Duration}
}

func (in *KlingImageInput) Validate(l Limits) error {
	if err := in.resolve(&in.Prompt); err != nil {
		return err
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	return in.checkMedia(l, 1, 1, 0, 0)
}

func (in *KlingImageInput) Uploads() []UploadGroup {
	return []UploadGroup{{Path: "kling-i2v-input-image", Assets: in.Images}}
}

func (in *KlingImageInput) Build(urls [][]string) any {
	return klingBody{Prompt: in.Prompt, ImageURLs: urlsAt(urls, 0), Sound: in.Sound, Duration: in.Duration}
}
