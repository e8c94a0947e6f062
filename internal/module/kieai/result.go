package kieai

import (
	"encoding/json"
	"strings"

	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

// ResultKind is the variant of a GenerationResult.
type ResultKind string

const (
	ResultVideo     ResultKind = "video"
	ResultCharacter ResultKind = "characterId"
)

// Result is the terminal artifact of a successful task.
type Result struct {
	Kind        ResultKind `json:"type"`
	URL         string     `json:"url,omitempty"`
	CharacterID string     `json:"id,omitempty"`
	RawJSON     string     `json:"raw_json,omitempty"`
}

// Value returns the URL or character id, whichever the variant carries.
func (r Result) Value() string {
	if r.Kind == ResultCharacter {
		return r.CharacterID
	}
	return r.URL
}

// Extractor turns a resultJson string into a Result.
type Extractor func(resultJSON string) (Result, error)

type resultPayload struct {
	ResultURLs   []string `json:"resultUrls"`
	ResultObject *struct {
		CharacterID string `json:"character_id"`
	} `json:"resultObject"`
}

func decodeResult(resultJSON string) (resultPayload, error) {
	var payload resultPayload
	if strings.TrimSpace(resultJSON) == "" {
		return payload, apperrors.MalformedResult("task succeeded but result missing")
	}
	if err := json.Unmarshal([]byte(resultJSON), &payload); err != nil {
		return payload, apperrors.MalformedResult("task succeeded but the result is not valid JSON")
	}
	return payload, nil
}

func (p resultPayload) url() (string, bool) {
	if len(p.ResultURLs) > 0 && p.ResultURLs[0] != "" {
		return p.ResultURLs[0], true
	}
	return "", false
}

func (p resultPayload) characterID() (string, bool) {
	if p.ResultObject != nil && p.ResultObject.CharacterID != "" {
		return p.ResultObject.CharacterID, true
	}
	return "", false
}

// ParseResult takes the resultUrls branch when it has a first entry,
// then the resultObject.character_id branch, and fails otherwise.
func ParseResult(resultJSON string) (Result, error) {
	payload, err := decodeResult(resultJSON)
	if err != nil {
		return Result{}, err
	}
	if u, ok := payload.url(); ok {
		return Result{Kind: ResultVideo, URL: u}, nil
	}
	if id, ok := payload.characterID(); ok {
		return Result{Kind: ResultCharacter, CharacterID: id, RawJSON: resultJSON}, nil
	}
	return Result{}, apperrors.MalformedResult("task succeeded but no result URL or character id was found")
}

// MediaURL requires the resultUrls branch.
func MediaURL(resultJSON string) (Result, error) {
	payload, err := decodeResult(resultJSON)
	if err != nil {
		return Result{}, err
	}
	u, ok := payload.url()
	if !ok {
		return Result{}, apperrors.MalformedResult("task succeeded but no result URL was found")
	}
	return Result{Kind: ResultVideo, URL: u}, nil
}

// CharacterObject requires the resultObject.character_id branch and keeps the raw JSON.
func CharacterObject(resultJSON string) (Result, error) {
	payload, err := decodeResult(resultJSON)
	if err != nil {
		return Result{}, err
	}
	id, ok := payload.characterID()
	if !ok {
		return Result{}, apperrors.MalformedResult("task succeeded but no character id was found")
	}
	return Result{Kind: ResultCharacter, CharacterID: id, RawJSON: resultJSON}, nil
}
