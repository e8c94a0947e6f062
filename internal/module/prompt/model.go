package prompt

import (
	"encoding/json"
	"strings"

	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

// Character is one cast member of a detailed prompt.
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Costume     string `json:"costume,omitempty"`
}

// DetailedVideoPrompt is a structured scene description whose FullTextPrompt
// is what gets sent to a video model.
type DetailedVideoPrompt struct {
	Title            string      `json:"title"`
	Genre            string      `json:"genre,omitempty"`
	Characters       []Character `json:"characters,omitempty"`
	Scenario         string      `json:"scenario"`
	Background       string      `json:"background"`
	CameraAngle      string      `json:"camera_angle,omitempty"`
	Style            string      `json:"style,omitempty"`
	DialogueSnippets []string    `json:"dialogue_snippets,omitempty"`
	MusicMood        string      `json:"music_mood,omitempty"`
	SoundEffects     []string    `json:"sound_effects,omitempty"`
	FullTextPrompt   string      `json:"full_text_prompt"`
}

// Options narrows the generated prompt. Every list is optional.
type Options struct {
	Characters   []string `json:"characters,omitempty"`
	Scenarios    []string `json:"scenarios,omitempty"`
	CameraAngles []string `json:"camera_angles,omitempty"`
	Styles       []string `json:"styles,omitempty"`
}

// ParseDetailedPrompt decodes a DetailedVideoPrompt document and requires full_text_prompt.
func ParseDetailedPrompt(raw []byte) (*DetailedVideoPrompt, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, apperrors.ValidationError("prompt_json is empty")
	}

	// A JSON string holding the document is accepted as well.
	var quoted string
	if err := json.Unmarshal(raw, &quoted); err == nil {
		raw = []byte(quoted)
	}

	var p DetailedVideoPrompt
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, apperrors.ValidationError("prompt_json is not a valid JSON object")
	}
	if strings.TrimSpace(p.FullTextPrompt) == "" {
		return nil, apperrors.ValidationError(`prompt_json is missing "full_text_prompt"`)
	}
	return &p, nil
}
