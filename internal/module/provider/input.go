package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/uniedit/videogen/internal/module/kieai"
	"github.com/uniedit/videogen/internal/module/prompt"
	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

// Input is the typed request of one variant.
//
// Validate runs before any network call. Uploads lists the asset groups to
// stage in order, and Build receives one URL list per group in the same order.
type Input interface {
	Attach(images, videos []kieai.Asset)
	Validate(limits Limits) error
	Uploads() []UploadGroup
	Build(urls [][]string) any
}

// Limits are the size limits applied to attached files.
type Limits struct {
	MaxImageBytes int64
}

// DefaultLimits allows images up to 10 MB.
func DefaultLimits() Limits {
	return Limits{MaxImageBytes: 10 << 20}
}

// UploadGroup is a set of assets staged under one upload path.
type UploadGroup struct {
	Path   string
	Assets []kieai.Asset
}

// Media carries the files attached to a request. It is never part of the JSON payload.
type Media struct {
	Images []kieai.Asset `json:"-"`
	Videos []kieai.Asset `json:"-"`
}

// Attach sets the request files.
func (m *Media) Attach(images, videos []kieai.Asset) {
	m.Images = images
	m.Videos = videos
}

// checkMedia enforces counts and content types for attached files.
func (m *Media) checkMedia(l Limits, minImages, maxImages, minVideos, maxVideos int) error {
	if err := checkAssets("images", "image/", m.Images, minImages, maxImages, l.MaxImageBytes); err != nil {
		return err
	}
	return checkAssets("videos", "video/", m.Videos, minVideos, maxVideos, 0)
}

func checkAssets(field, typePrefix string, assets []kieai.Asset, minCount, maxCount int, maxBytes int64) error {
	switch n := len(assets); {
	case maxCount == 0 && n > 0:
		return apperrors.Validationf("%s are not accepted by this variant", field)
	case n < minCount && minCount == maxCount:
		return apperrors.Validationf("exactly %d %s required", minCount, pluralize(field, minCount))
	case n < minCount:
		return apperrors.Validationf("at least %d %s required", minCount, pluralize(field, minCount))
	case n > maxCount:
		return apperrors.Validationf("at most %d %s allowed", maxCount, pluralize(field, maxCount))
	}
	for _, a := range assets {
		if a.Size() == 0 {
			return apperrors.Validationf("%s: file %q is empty", field, a.Name)
		}
		if ct := a.ContentType(); !strings.HasPrefix(ct, typePrefix) {
			return apperrors.Validationf("%s: file %q has type %s, want %s*", field, a.Name, ct, typePrefix)
		}
		if maxBytes > 0 && int64(a.Size()) > maxBytes {
			return apperrors.Validationf("%s: file %q exceeds %d MB", field, a.Name, maxBytes>>20)
		}
	}
	return nil
}

func pluralize(field string, n int) string {
	if n == 1 {
		return strings.TrimSuffix(field, "s") + " is"
	}
	return field + " are"
}

const (
	PromptModeText = "text"
	PromptModeJSON = "json"
)

// PromptOptions switches a prompt-bearing input to a DetailedVideoPrompt document,
// whose full_text_prompt replaces the plain prompt.
type PromptOptions struct {
	PromptMode string          `json:"prompt_mode,omitempty" validate:"omitempty,oneof=text json" jsonschema:"enum=text,enum=json,default=text"`
	PromptJSON json.RawMessage `json:"prompt_json,omitempty" jsonschema:"type=object"`
}

// resolve normalizes *p in place.
func (o PromptOptions) resolve(p *string) error {
	switch o.PromptMode {
	case "", PromptModeText:
	case PromptModeJSON:
		doc, err := prompt.ParseDetailedPrompt(o.PromptJSON)
		if err != nil {
			return err
		}
		*p = doc.FullTextPrompt
	default:
		return apperrors.Validationf("prompt_mode must be one of [text json]")
	}
	*p = strings.TrimSpace(*p)
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs tag validation and folds every failure into one ValidationError.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Internal("validate input", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return apperrors.ValidationError(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	// Drop the root type and embedded struct names; field names are json names.
	parts := strings.Split(fe.Namespace(), ".")
	kept := parts[:0]
	for _, p := range parts[1:] {
		if p != "" && !unicode.IsUpper(rune(p[0])) {
			kept = append(kept, p)
		}
	}
	field := strings.Join(kept, ".")
	if field == "" {
		field = fe.Field()
	}

	unit := "items"
	if fe.Kind() == reflect.String {
		unit = "characters"
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s %s", field, fe.Param(), unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s %s", field, fe.Param(), unit)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", field, fe.Param())
	case "startswith":
		return fmt.Sprintf("%s must start with %s", field, fe.Param())
	case "url":
		return field + " must be a URL"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func urlsAt(urls [][]string, i int) []string {
	if i < len(urls) {
		return urls[i]
	}
	return nil
}

func firstURL(urls [][]string, i int) string {
	if u := urlsAt(urls, i); len(u) > 0 {
		return u[0]
	}
	return ""
}
