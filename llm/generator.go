package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/voicebridge/types"
)

// Generator produces the agent's reply to a caller utterance given the
// ordered dialogue history.
type Generator interface {
	GenerateReply(ctx context.Context, history []types.Turn, utterance string) (string, error)
}

// Config holds the configuration for the chat completion adapter.
type Config struct {
	// BaseURL is the base URL of the completion API (e.g. "https://api.openai.com").
	BaseURL string

	// APIKey is the authentication key for the API.
	APIKey string

	// Model is the model to request.
	Model string

	// SystemPrompt seeds the conversation. Defaults to a phone-agent prompt.
	SystemPrompt string

	// Temperature for sampling.
	Temperature float64

	// Timeout is the HTTP client timeout. Defaults to 15s if zero.
	Timeout time.Duration

	// EndpointPath is the chat completions endpoint path. Defaults to "/v1/chat/completions".
	EndpointPath string
}

// ChatGenerator calls an OpenAI-compatible chat completions endpoint.
type ChatGenerator struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a reply generator with the given config.
func New(cfg Config, logger *zap.Logger) *ChatGenerator {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = "You are a helpful voice agent on a phone call. Keep replies short and speakable."
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatGenerator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "reply_generator")),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// buildMessages maps the dialogue history onto chat roles and appends the
// new utterance as the final user message.
func (g *ChatGenerator) buildMessages(history []types.Turn, utterance string) []chatMessage {
	msgs := make([]chatMessage, 0, len(history)+2)
	msgs = append(msgs, chatMessage{Role: "system", Content: g.cfg.SystemPrompt})
	for _, turn := range history {
		role := "user"
		if turn.Role == types.RoleAgent {
			role = "assistant"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: turn.Content})
	}
	return append(msgs, chatMessage{Role: "user", Content: utterance})
}

// GenerateReply asks the model for the next agent turn.
func (g *ChatGenerator) GenerateReply(ctx context.Context, history []types.Turn, utterance string) (string, error) {
	if g.cfg.BaseURL == "" {
		return "", types.NewError(types.ErrReplyGeneration, "no reply engine configured")
	}

	body, err := json.Marshal(chatRequest{
		Model:       g.cfg.Model,
		Messages:    g.buildMessages(history, utterance),
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return "", types.NewError(types.ErrReplyGeneration, "failed to encode request").WithCause(err)
	}

	url := strings.TrimRight(g.cfg.BaseURL, "/") + g.cfg.EndpointPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", types.NewError(types.ErrReplyGeneration, "failed to create request").WithCause(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", types.NewError(types.ErrReplyGeneration, "completion request failed").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", types.NewError(types.ErrAuthentication,
			fmt.Sprintf("completion API rejected credentials with status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", types.NewError(types.ErrReplyGeneration,
			fmt.Sprintf("completion API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", types.NewError(types.ErrReplyGeneration, "failed to decode response").WithCause(err)
	}
	if len(out.Choices) == 0 {
		return "", types.NewError(types.ErrReplyGeneration, "completion API returned no choices")
	}

	reply := strings.TrimSpace(out.Choices[0].Message.Content)
	if reply == "" {
		return "", types.NewError(types.ErrReplyGeneration, "completion API returned empty reply")
	}

	g.logger.Debug("generated reply",
		zap.Int("history_turns", len(history)),
		zap.Int("reply_len", len(reply)),
	)
	return reply, nil
}

// EchoReply is the deterministic fallback used when reply generation
// fails. The session speaks this instead of propagating the error.
func EchoReply(utterance string) string {
	return "You said: " + utterance
}
