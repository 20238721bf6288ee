package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/voicebridge/types"
)

// Transcriber converts caller audio into text. An empty transcript or a
// NO_TRANSCRIPT error both mean "nothing worth replying to".
type Transcriber interface {
	Transcribe(ctx context.Context, frame types.AudioFrame) (string, error)
}

// Config holds the configuration for the HTTP transcription adapter.
type Config struct {
	// BaseURL is the base URL of the transcription engine. Empty means no
	// engine is configured; every call fails with NO_TRANSCRIPT.
	BaseURL string

	// APIKey is the authentication key for the engine's API.
	APIKey string

	// Model is the recognition model to request.
	Model string

	// Language is the expected caller language (BCP 47).
	Language string

	// Timeout is the HTTP client timeout. Defaults to 15s if zero.
	Timeout time.Duration

	// EndpointPath is the transcription endpoint path. Defaults to "/v1/transcriptions".
	EndpointPath string
}

// HTTPTranscriber calls a request/response transcription engine.
type HTTPTranscriber struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a transcription adapter with the given config.
func New(cfg Config, logger *zap.Logger) *HTTPTranscriber {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/transcriptions"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPTranscriber{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "stt")),
	}
}

type transcribeRequest struct {
	Audio      string `json:"audio"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
	Model      string `json:"model,omitempty"`
	Language   string `json:"language,omitempty"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe sends one frame of audio to the engine and returns its
// transcript. Transport and engine failures surface as NO_TRANSCRIPT so
// the session treats them identically to silence.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, frame types.AudioFrame) (string, error) {
	if t.cfg.BaseURL == "" {
		return "", types.NewError(types.ErrNoTranscript, "no transcription engine configured")
	}
	if frame.Empty() {
		return "", nil
	}

	body, err := json.Marshal(transcribeRequest{
		Audio:      base64.StdEncoding.EncodeToString(frame.Data),
		Encoding:   string(frame.Encoding),
		SampleRate: frame.SampleRate,
		Model:      t.cfg.Model,
		Language:   t.cfg.Language,
	})
	if err != nil {
		return "", types.NewError(types.ErrNoTranscript, "failed to encode request").WithCause(err)
	}

	url := strings.TrimRight(t.cfg.BaseURL, "/") + t.cfg.EndpointPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", types.NewError(types.ErrNoTranscript, "failed to create request").WithCause(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return "", types.NewError(types.ErrNoTranscript, "transcription request failed").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", types.NewError(types.ErrNoTranscript,
			fmt.Sprintf("engine returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", types.NewError(types.ErrNoTranscript, "failed to decode response").WithCause(err)
	}

	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", types.NewError(types.ErrNoTranscript, "engine returned no confident result")
	}

	t.logger.Debug("transcribed frame",
		zap.Int("audio_bytes", len(frame.Data)),
		zap.Int("transcript_len", len(text)),
	)
	return text, nil
}
