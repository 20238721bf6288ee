package tts

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

// Synthesizer turns reply text into linear PCM audio. One attempt per
// turn; a failure means that turn is played as silence.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (types.AudioFrame, error)
}

// Config holds the configuration for the HTTP synthesis adapter.
type Config struct {
	// BaseURL is the base URL of the synthesis engine.
	BaseURL string

	// APIKey is the authentication key for the engine's API.
	APIKey string

	// Voice selects the engine voice.
	Voice string

	// SampleRate is the PCM rate to request. Defaults to 16000.
	SampleRate int

	// Timeout is the HTTP client timeout. Defaults to 15s if zero.
	Timeout time.Duration

	// EndpointPath is the synthesis endpoint path. Defaults to "/v1/synthesize".
	EndpointPath string
}

// HTTPSynthesizer calls a request/response synthesis engine.
type HTTPSynthesizer struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a synthesis adapter with the given config.
func New(cfg Config, logger *zap.Logger) *HTTPSynthesizer {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/synthesize"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSynthesizer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "tts")),
	}
}

type synthesizeRequest struct {
	Text       string `json:"text"`
	Voice      string `json:"voice,omitempty"`
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
}

type synthesizeResponse struct {
	Audio      string `json:"audio"`
	SampleRate int    `json:"sample_rate"`
}

// Synthesize requests PCM16 audio for the given text.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) (types.AudioFrame, error) {
	if s.cfg.BaseURL == "" {
		return types.AudioFrame{}, types.NewError(types.ErrSynthesis, "no synthesis engine configured")
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:       text,
		Voice:      s.cfg.Voice,
		SampleRate: s.cfg.SampleRate,
		Encoding:   string(types.EncodingPCM16),
	})
	if err != nil {
		return types.AudioFrame{}, types.NewError(types.ErrSynthesis, "failed to encode request").WithCause(err)
	}

	url := strings.TrimRight(s.cfg.BaseURL, "/") + s.cfg.EndpointPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return types.AudioFrame{}, types.NewError(types.ErrSynthesis, "failed to create request").WithCause(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return types.AudioFrame{}, types.NewError(types.ErrSynthesis, "synthesis request failed").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return types.AudioFrame{}, types.NewError(types.ErrAuthentication,
			fmt.Sprintf("engine rejected credentials with status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return types.AudioFrame{}, types.NewError(types.ErrSynthesis,
			fmt.Sprintf("engine returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var out synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return types.AudioFrame{}, types.NewError(types.ErrSynthesis, "failed to decode response").WithCause(err)
	}

	data, err := base64.StdEncoding.DecodeString(out.Audio)
	if err != nil {
		return types.AudioFrame{}, types.NewError(types.ErrSynthesis, "engine returned invalid audio").WithCause(err)
	}

	rate := out.SampleRate
	if rate == 0 {
		rate = s.cfg.SampleRate
	}

	s.logger.Debug("synthesized reply",
		zap.Int("text_len", len(text)),
		zap.Int("pcm_bytes", len(data)),
		zap.Int("sample_rate", rate),
	)
	return types.NewPCMFrame(data, rate), nil
}
