package bridge

import (
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// SetupHandler answers the telephony platform's new-call webhook with the
// declarative instruction that connects the call's media stream to this
// bridge. Request signature verification belongs to the deployment layer
// in front of this handler.
type SetupHandler struct {
	publicHost string
	logger     *zap.Logger
}

// NewSetupHandler creates the call-setup responder. publicHost is the
// externally reachable host the platform will open the stream socket to.
func NewSetupHandler(publicHost string, logger *zap.Logger) *SetupHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SetupHandler{
		publicHost: publicHost,
		logger:     logger.With(zap.String("component", "call_setup")),
	}
}

// ServeHTTP returns the connect-to-stream instruction for one new call.
// A notification without a call identifier is refused.
func (h *SetupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	callID := r.FormValue("CallSid")
	if callID == "" {
		h.logger.Warn("refusing call setup without CallSid", zap.String("remote", r.RemoteAddr))
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	q := url.Values{}
	q.Set("callId", callID)
	streamURL := fmt.Sprintf("wss://%s/media?%s", h.publicHost, q.Encode())

	h.logger.Info("answering call setup", zap.String("call_id", callID))

	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprintf(w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<Response><Connect><Stream url=\"%s\"/></Connect></Response>", streamURL)
}
