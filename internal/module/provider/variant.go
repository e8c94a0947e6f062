package provider

import (
	"encoding/json"

	"github.com/uniedit/videogen/internal/module/kieai"
	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

// Family groups the variants of one provider. Each family gets its own run controller.
type Family string

const (
	FamilySeedance Family = "seedance"
	FamilyWan      Family = "wan"
	FamilyKling    Family = "kling"
	FamilyGrok     Family = "grok"
	FamilyHailuo   Family = "hailuo"
	FamilySora     Family = "sora"
	FamilyVeo      Family = "veo"
)

// Endpoint selects the create-task route.
type Endpoint string

const (
	EndpointGeneric Endpoint = "generic"
	EndpointVeo     Endpoint = "veo"
)

// Variant is one (provider, mode) pair with a fixed model name.
type Variant struct {
	Name       string           `json:"name"`
	Family     Family           `json:"family"`
	Model      string           `json:"model"`
	Endpoint   Endpoint         `json:"endpoint"`
	ResultKind kieai.ResultKind `json:"result_kind"`

	newInput func() Input
}

// Extractor returns the result extractor that matches the variant's result kind.
func (v Variant) Extractor() kieai.Extractor {
	if v.ResultKind == kieai.ResultCharacter {
		return kieai.CharacterObject
	}
	return kieai.MediaURL
}

// NewInput returns a fresh input pre-filled with the variant defaults.
func (v Variant) NewInput() Input {
	return v.newInput()
}

// Decode parses a JSON payload over the variant defaults.
func (v Variant) Decode(payload []byte) (Input, error) {
	in := v.newInput()
	if len(payload) == 0 {
		return in, nil
	}
	if err := json.Unmarshal(payload, in); err != nil {
		return nil, apperrors.Validationf("invalid %s payload: %v", v.Name, err)
	}
	return in, nil
}

const (
	VariantSeedance          = "seedance-1.5-pro"
	VariantWanT2V            = "wan-2.6-t2v"
	VariantWanI2V            = "wan-2.6-i2v"
	VariantWanV2V            = "wan-2.6-v2v"
	VariantKlingT2V          = "kling-2.6-t2v"
	VariantKlingI2V          = "kling-2.6-i2v"
	VariantGrokT2V           = "grok-imagine-t2v"
	VariantGrokI2V           = "grok-imagine-i2v"
	VariantHailuoPro         = "hailuo-2.3-pro"
	VariantHailuoStandard    = "hailuo-2.3-standard"
	VariantSoraProT2V        = "sora-2-pro-t2v"
	VariantSoraProI2V        = "sora-2-pro-i2v"
	VariantSoraT2V           = "sora-2-t2v"
	VariantSoraI2V           = "sora-2-i2v"
	VariantSoraWatermark     = "sora-2-watermark-remover"
	VariantSoraCharacters    = "sora-2-characters"
	VariantSoraProStoryboard = "sora-2-pro-storyboard"
	VariantVeo               = "veo-3.1"
)

func video(name string, family Family, model string, newInput func() Input) Variant {
	return Variant{
		Name:       name,
		Family:     family,
		Model:      model,
		Endpoint:   EndpointGeneric,
		ResultKind: kieai.ResultVideo,
		newInput:   newInput,
	}
}

// Catalog returns every supported variant in display order.
func Catalog() []Variant {
	return []Variant{
		video(VariantSeedance, FamilySeedance, "bytedance/seedance-1.5-pro", newSeedanceInput),
		video(VariantWanT2V, FamilyWan, "wan/2-6-text-to-video", newWanTextInput),
		video(VariantWanI2V, FamilyWan, "wan/2-6-image-to-video", newWanImageInput),
		video(VariantWanV2V, FamilyWan, "wan/2-6-video-to-video", newWanVideoInput),
		video(VariantKlingT2V, FamilyKling, "kling/2-6-text-to-video", newKlingTextInput),
		video(VariantKlingI2V, FamilyKling, "kling-2.6/image-to-video", newKlingImageInput),
		video(VariantGrokT2V, FamilyGrok, "grok-imagine/text-to-video", newGrokTextInput),
		video(VariantGrokI2V, FamilyGrok, "grok-imagine/image-to-video", newGrokImageInput),
		video(VariantHailuoPro, FamilyHailuo, "hailuo/2-3-image-to-video-pro", newHailuoInput),
		video(VariantHailuoStandard, FamilyHailuo, "hailuo/2-3-image-to-video-standard", newHailuoInput),
		video(VariantSoraProT2V, FamilySora, "sora-2-pro-text-to-video", func() Input { return newSoraTextInput(true) }),
		video(VariantSoraProI2V, FamilySora, "sora-2-pro-image-to-video", func() Input { return newSoraImageInput(true) }),
		video(VariantSoraT2V, FamilySora, "sora-2-text-to-video", func() Input { return newSoraTextInput(false) }),
		video(VariantSoraI2V, FamilySora, "sora-2-image-to-video", func() Input { return newSoraImageInput(false) }),
		video(VariantSoraWatermark, FamilySora, "sora-watermark-remover", newSoraWatermarkInput),
		{
			Name:       VariantSoraCharacters,
			Family:     FamilySora,
			Model:      "sora-2-characters",
			Endpoint:   EndpointGeneric,
			ResultKind: kieai.ResultCharacter,
			newInput:   newSoraCharacterInput,
		},
		video(VariantSoraProStoryboard, FamilySora, "sora-2-pro-storyboard", newSoraStoryboardInput),
		{
			Name:       VariantVeo,
			Family:     FamilyVeo,
			Model:      VeoFast,
			Endpoint:   EndpointVeo,
			ResultKind: kieai.ResultVideo,
			newInput:   newVeoInput,
		},
	}
}
