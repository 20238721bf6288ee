package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/voicebridge/types"
)

// --- Interface compliance ---

func TestChatGenerator_ImplementsGenerator(t *testing.T) {
	var _ Generator = (*ChatGenerator)(nil)
}

// --- Message mapping ---

func TestBuildMessages_MapsRoles(t *testing.T) {
	g := New(Config{SystemPrompt: "be brief"}, zap.NewNop())

	history := []types.Turn{
		types.NewCallerTurn("I need a taxi"),
		types.NewAgentTurn("Where to?"),
	}

	msgs := g.buildMessages(history, "the airport")

	require.Len(t, msgs, 4)
	assert.Equal(t, chatMessage{Role: "system", Content: "be brief"}, msgs[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "I need a taxi"}, msgs[1])
	assert.Equal(t, chatMessage{Role: "assistant", Content: "Where to?"}, msgs[2])
	assert.Equal(t, chatMessage{Role: "user", Content: "the airport"}, msgs[3])
}

// --- Happy path ---

func TestGenerateReply_ReturnsModelText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.NotEmpty(t, req.Messages)
		assert.Equal(t, "system", req.Messages[0].Role)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Sure, let's get that scheduled."}},
			},
		})
	}))
	defer srv.Close()

	g := New(Config{BaseURL: srv.URL, Model: "gpt-4o-mini"}, zap.NewNop())
	reply, err := g.GenerateReply(context.Background(), nil, "book a ride")

	require.NoError(t, err)
	assert.Equal(t, "Sure, let's get that scheduled.", reply)
}

// --- Failures ---

func TestGenerateReply_NoEngineConfigured(t *testing.T) {
	g := New(Config{}, zap.NewNop())

	_, err := g.GenerateReply(context.Background(), nil, "hi")

	require.Error(t, err)
	assert.Equal(t, types.ErrReplyGeneration, types.GetErrorCode(err))
}

func TestGenerateReply_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := New(Config{BaseURL: srv.URL, APIKey: "wrong"}, zap.NewNop())
	_, err := g.GenerateReply(context.Background(), nil, "hi")

	require.Error(t, err)
	assert.Equal(t, types.ErrAuthentication, types.GetErrorCode(err))
}

func TestGenerateReply_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	g := New(Config{BaseURL: srv.URL}, zap.NewNop())
	_, err := g.GenerateReply(context.Background(), nil, "hi")

	require.Error(t, err)
	assert.Equal(t, types.ErrReplyGeneration, types.GetErrorCode(err))
}

// --- Fallback ---

func TestEchoReply_Deterministic(t *testing.T) {
	assert.Equal(t, "You said: book a ride", EchoReply("book a ride"))
	assert.Equal(t, EchoReply("x"), EchoReply("x"))
}
