package bridge

import (
	"encoding/base64"
	"encoding/json"

	"github.com/BaSui01/voicebridge/types"
)

// Event names exchanged on the media stream socket.
const (
	EventConnect = "connect"
	EventStart   = "start"
	EventMedia   = "media"
	EventMark    = "mark"
	EventClear   = "clear"
	EventClosed  = "closed"
	EventStop    = "stop"
)

// MediaPayload carries one frame of base64-encoded line-format audio.
type MediaPayload struct {
	Payload string `json:"payload"`
}

// StartPayload announces stream metadata at the beginning of a call.
type StartPayload struct {
	StreamSID string `json:"streamSid"`
	CallSID   string `json:"callSid,omitempty"`
}

// MarkPayload labels a position in the outbound audio stream; the remote
// end echoes it back once playback reaches that point.
type MarkPayload struct {
	Name string `json:"name"`
}

// Envelope is the JSON message exchanged over the stream socket, tagged
// by its Event discriminator.
type Envelope struct {
	Event     string        `json:"event"`
	StreamSID string        `json:"streamSid,omitempty"`
	Media     *MediaPayload `json:"media,omitempty"`
	Start     *StartPayload `json:"start,omitempty"`
	Mark      *MarkPayload  `json:"mark,omitempty"`
}

// ParseEnvelope decodes one inbound message. Messages that are not JSON
// objects or lack the event discriminator fail with MALFORMED_EVENT; the
// caller logs and drops them without disturbing the session.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, types.NewError(types.ErrMalformedEvent, "message is not valid JSON").WithCause(err)
	}
	if env.Event == "" {
		return nil, types.NewError(types.ErrMalformedEvent, "message has no event discriminator")
	}
	return &env, nil
}

// NewClearEnvelope builds the barge-in instruction: the remote endpoint
// discards any audio still queued for playback.
func NewClearEnvelope(streamSID string) Envelope {
	return Envelope{Event: EventClear, StreamSID: streamSID}
}

// NewMediaEnvelope builds an outbound audio message from raw line-format
// bytes.
func NewMediaEnvelope(streamSID string, payload []byte) Envelope {
	return Envelope{
		Event:     EventMedia,
		StreamSID: streamSID,
		Media:     &MediaPayload{Payload: base64.StdEncoding.EncodeToString(payload)},
	}
}

// NewMarkEnvelope builds a playback checkpoint label.
func NewMarkEnvelope(streamSID, name string) Envelope {
	return Envelope{
		Event:     EventMark,
		StreamSID: streamSID,
		Mark:      &MarkPayload{Name: name},
	}
}
