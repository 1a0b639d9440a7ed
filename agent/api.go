package agent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrRequestFailed is wrapped by every error caused by the agent returning a
// non-2xx response, as opposed to the request not getting through at all.
var ErrRequestFailed = errors.New("agent request failed")

// ErrUnsupportedFileType is returned for uploads with an extension outside
// the accepted set. The check happens before any network call.
var ErrUnsupportedFileType = errors.New("unsupported file type: only CSV, PDF, and Excel files are accepted")

var allowedUploadExts = map[string]bool{
	".csv":  true,
	".pdf":  true,
	".xls":  true,
	".xlsx": true,
}

// ChatResponse is the agent's reply to one text chat turn.
type ChatResponse struct {
	Response string `json:"response"`
	Audio    string `json:"audio,omitempty"` // base64-encoded playable clip
}

// UploadResult describes an analyzed document.
type UploadResult struct {
	Filename   string `json:"filename"`
	FileType   string `json:"file_type"`
	Shape      []int  `json:"shape,omitempty"` // [rows, cols] for tabular files
	AIInsights string `json:"ai_insights"`
}

// TranslationResult is the outcome of a persona-voiced translation.
type TranslationResult struct {
	Success        bool   `json:"success"`
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
	Audio          string `json:"audio,omitempty"` // base64-encoded playable clip
	Error          string `json:"error,omitempty"`
}

// apiError is the agent's failure payload shape.
type apiError struct {
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (e apiError) message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Error
}

// API calls the remote agent's HTTP endpoints.
type API struct {
	rc *resty.Client
}

// NewAPI creates an API client for the agent behind serverURL.
func NewAPI(serverURL string) *API {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(serverURL, "/")).
		SetTimeout(60 * time.Second)
	return &API{rc: rc}
}

// Chat sends one text message for the given chat session and returns the
// assistant's reply, optionally with a synthesized audio clip.
func (a *API) Chat(ctx context.Context, message, chatID string) (*ChatResponse, error) {
	var out ChatResponse
	var failure apiError

	resp, err := a.rc.R().
		SetContext(ctx).
		SetBody(map[string]string{"message": message, "chat_id": chatID}).
		SetResult(&out).
		SetError(&failure).
		Post("/chat")
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	if resp.IsError() {
		return nil, requestError("chat", resp.Status(), failure)
	}
	return &out, nil
}

// Upload sends one document for analysis. Files with an unsupported
// extension are rejected locally with ErrUnsupportedFileType and never reach
// the network.
func (a *API) Upload(ctx context.Context, path string) (*UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !allowedUploadExts[ext] {
		return nil, ErrUnsupportedFileType
	}

	var out UploadResult
	var failure apiError

	resp, err := a.rc.R().
		SetContext(ctx).
		SetFile("file", path).
		SetResult(&out).
		SetError(&failure).
		Post("/upload")
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}
	if resp.IsError() {
		return nil, requestError("upload", resp.Status(), failure)
	}
	return &out, nil
}

// Translate asks the agent to translate text into targetLanguage, voiced by
// the given persona.
func (a *API) Translate(ctx context.Context, text, targetLanguage, persona string) (*TranslationResult, error) {
	var out TranslationResult

	resp, err := a.rc.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"text":            text,
			"target_language": targetLanguage,
			"persona":         persona,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/multilingual-voice")
	if err != nil {
		return nil, fmt.Errorf("translate request: %w", err)
	}
	if resp.IsError() || !out.Success {
		return nil, requestError("translate", resp.Status(), apiError{Error: out.Error})
	}
	return &out, nil
}

func requestError(op, status string, failure apiError) error {
	if msg := failure.message(); msg != "" {
		return fmt.Errorf("%w: %s: %s", ErrRequestFailed, op, msg)
	}
	return fmt.Errorf("%w: %s: status %s", ErrRequestFailed, op, status)
}
