package bridge

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/voicebridge/internal/metrics"
	"github.com/BaSui01/voicebridge/types"
)

// Handler accepts the telephony platform's stream connections and wires
// each one to a call session. The call identifier travels as the callId
// query parameter on the connection URI.
type Handler struct {
	registry  *Registry
	adapters  Adapters
	cfg       SessionConfig
	limiter   *rate.Limiter
	logger    *zap.Logger
	collector *metrics.Collector
}

// NewHandler creates the stream socket handler. A nil limiter accepts
// connects unthrottled.
func NewHandler(registry *Registry, adapters Adapters, cfg SessionConfig, limiter *rate.Limiter, logger *zap.Logger, collector *metrics.Collector) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry:  registry,
		adapters:  adapters,
		cfg:       cfg,
		limiter:   limiter,
		logger:    logger.With(zap.String("component", "stream_handler")),
		collector: collector,
	}
}

// ServeHTTP upgrades the connection, registers a session for the call,
// and pumps inbound events until the socket closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	callID := r.URL.Query().Get("callId")
	if callID == "" {
		h.logger.Warn("refusing connect without call identifier", zap.String("remote", r.RemoteAddr))
		http.Error(w, "missing callId", http.StatusBadRequest)
		return
	}

	if h.limiter != nil && !h.limiter.Allow() {
		h.logger.Warn("refusing connect, rate limit exceeded", zap.String("call_id", callID))
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.String("call_id", callID), zap.Error(err))
		return
	}

	sess := NewSession(callID, newWSConn(conn), h.adapters, h.cfg, h.logger, h.collector)
	if err := h.registry.Register(callID, sess); err != nil {
		h.logger.Warn("refusing connection", zap.String("call_id", callID), zap.Error(err))
		conn.Close(websocket.StatusPolicyViolation, string(types.GetErrorCode(err)))
		return
	}

	h.collector.SessionOpened()
	defer func() {
		sess.Close()
		h.registry.Unregister(callID)
		h.collector.SessionClosed()
	}()

	h.logger.Info("call connected", zap.String("call_id", callID))

	sess.Start(r.Context())
	h.readLoop(r.Context(), conn, sess)
}

// readLoop decodes inbound messages and dispatches them. A malformed
// message is logged and dropped; it never tears the session down.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, sess *Session) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			h.logger.Info("socket closed", zap.String("call_id", sess.CallID()), zap.Error(err))
			return
		}

		env, err := ParseEnvelope(data)
		if err != nil {
			h.logger.Warn("dropping malformed message",
				zap.String("call_id", sess.CallID()),
				zap.Error(err),
			)
			continue
		}
		h.collector.EventReceived(env.Event)

		switch env.Event {
		case EventMedia:
			h.dispatchMedia(sess, env)
		case EventStart:
			sess.HandleStart(env.Start)
		case EventClosed, EventStop:
			h.logger.Info("remote end signalled closure",
				zap.String("call_id", sess.CallID()),
				zap.String("event", env.Event),
			)
			return
		case EventConnect, EventMark:
			// Informational only.
		default:
			h.logger.Debug("ignoring unknown event",
				zap.String("call_id", sess.CallID()),
				zap.String("event", env.Event),
			)
		}
	}
}

// dispatchMedia routes one media event to its owning session. Media for a
// call without a live session is dropped and logged.
func (h *Handler) dispatchMedia(sess *Session, env *Envelope) {
	live, ok := h.registry.Lookup(sess.CallID())
	if !ok || live != sess {
		h.logger.Warn("dropping media for unknown call", zap.String("call_id", sess.CallID()))
		return
	}
	if env.Media == nil {
		h.logger.Warn("dropping media event without payload", zap.String("call_id", sess.CallID()))
		return
	}

	raw, err := base64.StdEncoding.DecodeString(env.Media.Payload)
	if err != nil {
		h.logger.Warn("dropping media with invalid payload encoding",
			zap.String("call_id", sess.CallID()),
			zap.Error(err),
		)
		return
	}
	sess.HandleMedia(types.NewULawFrame(raw))
}
