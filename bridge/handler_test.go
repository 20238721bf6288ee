package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/BaSui01/voicebridge/types"
)

// --- Harness ---

func newStreamServer(t *testing.T, adapters Adapters, maxSessions int64, limiter *rate.Limiter) (*httptest.Server, *Registry) {
	t.Helper()
	reg := NewRegistry(maxSessions, nil)
	cfg := DefaultSessionConfig()
	cfg.QueueDepth = 8
	srv := httptest.NewServer(NewHandler(reg, adapters, cfg, limiter, nil, nil))
	t.Cleanup(srv.Close)
	return srv, reg
}

func dialStream(t *testing.T, srv *httptest.Server, callID string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?callId=" + callID
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, env Envelope) {
	t.Helper()
	data, err := json.Marshal(env)
	require.NoError(t, err)
	sendRaw(t, conn, data)
}

func sendRaw(t *testing.T, conn *websocket.Conn, data []byte) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func mediaEnvelope(payload []byte) Envelope {
	return Envelope{
		Event: EventMedia,
		Media: &MediaPayload{Payload: base64.StdEncoding.EncodeToString(payload)},
	}
}

// --- Refusals ---

func TestHandler_RefusesConnectWithoutCallID(t *testing.T) {
	srv, reg := newStreamServer(t, Adapters{}, 0, nil)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, reg.Len())
}

func TestHandler_RefusesConnectOverRateLimit(t *testing.T) {
	srv, _ := newStreamServer(t, Adapters{}, 0, rate.NewLimiter(0, 0))

	resp, err := http.Get(srv.URL + "/?callId=CA1")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestHandler_RefusesDuplicateCall(t *testing.T) {
	stt := &stubTranscriber{fn: func(context.Context, types.AudioFrame) (string, error) {
		return "", types.NewError(types.ErrNoTranscript, "no speech detected")
	}}
	srv, reg := newStreamServer(t, Adapters{Transcriber: stt}, 0, nil)

	first := dialStream(t, srv, "CA125")
	require.Eventually(t, func() bool { return reg.Len() == 1 }, time.Second, 5*time.Millisecond)

	second := dialStream(t, srv, "CA125")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := second.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))

	// The first connection is unaffected.
	assert.Equal(t, 1, reg.Len())
	sendEnvelope(t, first, Envelope{Event: EventStart, Start: &StartPayload{StreamSID: "MZ1"}})
}

// --- Conversation round trip ---

func TestHandler_ConversationRoundTrip(t *testing.T) {
	replyPCM := testReplyPCM(t)
	adapters, _ := replyAdapters("book a ride", "Sure, let's get that scheduled.", replyPCM)
	srv, reg := newStreamServer(t, adapters, 0, nil)

	conn := dialStream(t, srv, "CA124")
	sendEnvelope(t, conn, Envelope{Event: EventConnect})
	sendEnvelope(t, conn, Envelope{Event: EventStart, Start: &StartPayload{StreamSID: "MZ1", CallSID: "CA124"}})
	sendEnvelope(t, conn, mediaEnvelope([]byte{0xFF, 0x7F, 0x80, 0x00}))

	clearEnv := readEnvelope(t, conn)
	mediaEnv := readEnvelope(t, conn)
	markEnv := readEnvelope(t, conn)

	assert.Equal(t, EventClear, clearEnv.Event)
	assert.Equal(t, EventMedia, mediaEnv.Event)
	assert.Equal(t, EventMark, markEnv.Event)
	assert.Equal(t, "MZ1", mediaEnv.StreamSID)

	require.NotNil(t, mediaEnv.Media)
	assert.Equal(t, expectedLinePayload(t, replyPCM), mediaEnv.Media.Payload)
	require.NotNil(t, markEnv.Mark)
	assert.NotEmpty(t, markEnv.Mark.Name)

	// The platform announcing the call's end tears the session down.
	sendEnvelope(t, conn, Envelope{Event: EventClosed})
	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHandler_SilentCallerGetsNoReply(t *testing.T) {
	stt := &stubTranscriber{fn: func(context.Context, types.AudioFrame) (string, error) {
		return "", types.NewError(types.ErrNoTranscript, "no speech detected")
	}}
	srv, _ := newStreamServer(t, Adapters{Transcriber: stt}, 0, nil)

	conn := dialStream(t, srv, "CA123")
	sendEnvelope(t, conn, mediaEnvelope([]byte{0xFF, 0xFF}))

	require.Eventually(t, func() bool { return stt.Calls() >= 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, _, err := conn.Read(ctx)
	assert.Error(t, err, "a silent utterance must not produce outbound messages")
}

func TestHandler_MalformedMessageDoesNotKillSession(t *testing.T) {
	replyPCM := testReplyPCM(t)
	adapters, _ := replyAdapters("book a ride", "Sure, let's get that scheduled.", replyPCM)
	srv, _ := newStreamServer(t, adapters, 0, nil)

	conn := dialStream(t, srv, "CA126")
	sendRaw(t, conn, []byte("clearly not json"))
	sendRaw(t, conn, []byte(`{"no":"event"}`))
	sendEnvelope(t, conn, mediaEnvelope([]byte{0xFF, 0x7F}))

	assert.Equal(t, EventClear, readEnvelope(t, conn).Event)
	assert.Equal(t, EventMedia, readEnvelope(t, conn).Event)
	assert.Equal(t, EventMark, readEnvelope(t, conn).Event)
}

func TestHandler_InvalidMediaPayloadIsDropped(t *testing.T) {
	stt := &stubTranscriber{fn: func(context.Context, types.AudioFrame) (string, error) {
		return "", types.NewError(types.ErrNoTranscript, "no speech detected")
	}}
	srv, _ := newStreamServer(t, Adapters{Transcriber: stt}, 0, nil)

	conn := dialStream(t, srv, "CA127")
	sendEnvelope(t, conn, Envelope{Event: EventMedia, Media: &MediaPayload{Payload: "not base64!!"}})
	sendEnvelope(t, conn, Envelope{Event: EventMedia})
	sendEnvelope(t, conn, mediaEnvelope([]byte{0xFF}))

	// Only the well-formed frame reaches the pipeline.
	require.Eventually(t, func() bool { return stt.Calls() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte{0xFF}, stt.LastFrame().Data)
}
