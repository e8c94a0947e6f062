package kieai

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// State is the remote task state reported by recordInfo.
type State string

const (
	StateWaiting State = "waiting"
	StateSuccess State = "success"
	StateFail    State = "fail"
)

// IsTerminal reports whether the state ends polling.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateFail
}

// envelope is the common {code, msg, data} response wrapper.
type envelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *T     `json:"data"`
}

type createTaskRequest struct {
	Model       string `json:"model"`
	Input       any    `json:"input"`
	CallBackURL string `json:"callBackUrl,omitempty"`
}

type createTaskData struct {
	TaskID string `json:"taskId"`
}

// TaskRecord is one remote generation job as reported by recordInfo.
type TaskRecord struct {
	TaskID       string     `json:"taskId"`
	Model        string     `json:"model"`
	State        State      `json:"state"`
	Param        string     `json:"param"`
	ResultJSON   string     `json:"resultJson"`
	FailCode     flexString `json:"failCode"`
	FailMsg      string     `json:"failMsg"`
	CostTime     int64      `json:"costTime"`
	CompleteTime int64      `json:"completeTime"`
	CreateTime   int64      `json:"createTime"`
}

// flexString accepts a JSON string, number or null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// VeoGenerationType selects how Veo uses the supplied images.
type VeoGenerationType string

const (
	VeoTextToVideo         VeoGenerationType = "TEXT_2_VIDEO"
	VeoFirstAndLastToVideo VeoGenerationType = "FIRST_AND_LAST_FRAMES_2_VIDEO"
	VeoReferenceToVideo    VeoGenerationType = "REFERENCE_2_VIDEO"
)

// VeoRequest is the flat body accepted by the Veo endpoint.
// EnableFallback is deprecated upstream and always sent as false.
type VeoRequest struct {
	Prompt            string            `json:"prompt"`
	ImageURLs         []string          `json:"imageUrls,omitempty"`
	Model             string            `json:"model,omitempty"`
	GenerationType    VeoGenerationType `json:"generationType,omitempty"`
	AspectRatio       string            `json:"aspectRatio,omitempty"`
	Seeds             *int              `json:"seeds,omitempty"`
	EnableTranslation bool              `json:"enableTranslation"`
	Watermark         string            `json:"watermark,omitempty"`
	EnableFallback    bool              `json:"enableFallback"`
	CallBackURL       string            `json:"callBackUrl,omitempty"`
}

// Asset is a local file to be staged on the upload endpoint.
type Asset struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Size returns the asset size in bytes.
func (a Asset) Size() int {
	return len(a.Data)
}

// ContentType returns the declared MIME type, or a sniffed one.
func (a Asset) ContentType() string {
	ct := a.MIMEType
	if ct == "" || ct == "application/octet-stream" {
		ct = mimetype.Detect(a.Data).String()
	}
	if base, _, found := strings.Cut(ct, ";"); found {
		ct = base
	}
	return strings.TrimSpace(ct)
}

// DataURL encodes the asset as a base64 data URL.
func (a Asset) DataURL() string {
	return "data:" + a.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

type uploadRequest struct {
	Base64Data string `json:"base64Data"`
	UploadPath string `json:"uploadPath"`
	FileName   string `json:"fileName"`
}

type uploadResponse struct {
	Success bool           `json:"success"`
	Code    int            `json:"code"`
	Msg     string         `json:"msg"`
	Data    *UploadedAsset `json:"data"`
}

// UploadedAsset is a staged file. Its URL expires server-side after a few days.
type UploadedAsset struct {
	FileID       string `json:"fileId"`
	FileName     string `json:"fileName"`
	OriginalName string `json:"originalName"`
	FileSize     int64  `json:"fileSize"`
	MIMEType     string `json:"mimeType"`
	UploadPath   string `json:"uploadPath"`
	FileURL      string `json:"fileUrl"`
	DownloadURL  string `json:"downloadUrl"`
	UploadTime   string `json:"uploadTime"`
	ExpiresAt    string `json:"expiresAt"`
}

// URLs returns the fileUrl of each asset in order.
func URLs(assets []*UploadedAsset) []string {
	urls := make([]string, len(assets))
	for i, a := range assets {
		urls[i] = a.FileURL
	}
	return urls
}
