package bridge

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/voicebridge/audio"
	"github.com/BaSui01/voicebridge/internal/channel"
	"github.com/BaSui01/voicebridge/internal/metrics"
	"github.com/BaSui01/voicebridge/llm"
	"github.com/BaSui01/voicebridge/stt"
	"github.com/BaSui01/voicebridge/tts"
	"github.com/BaSui01/voicebridge/types"
)

// State is the session's turn-taking state.
type State int32

const (
	// StateIdle means the session is waiting for caller audio.
	StateIdle State = iota
	// StateProcessing means one utterance pipeline is in flight.
	StateProcessing
	// StateClosed is terminal: the socket closed or the registry tore the
	// session down.
	StateClosed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is the outbound half of the stream socket owned by a session.
type Conn interface {
	WriteEnvelope(ctx context.Context, env Envelope) error
	Close() error
}

// Adapters bundles the external services a session talks to.
type Adapters struct {
	Transcriber stt.Transcriber
	Synthesizer tts.Synthesizer
	Replies     llm.Generator
}

// SessionConfig tunes the per-call pipeline.
type SessionConfig struct {
	// QueueDepth is the inbound media queue depth. Zero keeps at most one
	// utterance in flight and sheds frames arriving mid-processing.
	QueueDepth int

	// MinUtteranceBytes accumulates inbound audio until this many bytes
	// are buffered before running the pipeline. 1 processes every frame.
	MinUtteranceBytes int

	// AdapterTimeout bounds each external adapter call; a timeout counts
	// as that adapter's documented failure.
	AdapterTimeout time.Duration
}

// DefaultSessionConfig returns the default tuning: frame-level
// processing with at most one utterance in flight.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		QueueDepth:        0,
		MinUtteranceBytes: 1,
		AdapterTimeout:    15 * time.Second,
	}
}

// Session is one live call: it exclusively owns the socket, the dialogue
// history, and the turn-taking state machine. Nothing outside the
// session's own processing path touches that state.
type Session struct {
	callID   string
	sid      string
	conn     Conn
	adapters Adapters
	cfg      SessionConfig

	history *Conversation
	queue   *channel.DropQueue[types.AudioFrame]
	state   atomic.Int32

	mu        sync.Mutex
	streamSID string

	// pending accumulates audio toward the utterance threshold. Only the
	// run loop touches it.
	pending []byte

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	logger    *zap.Logger
	collector *metrics.Collector
}

// NewSession creates a session for the given call. The connection is
// owned by the session from here on.
func NewSession(callID string, conn Conn, adapters Adapters, cfg SessionConfig, logger *zap.Logger, collector *metrics.Collector) *Session {
	if cfg.MinUtteranceBytes < 1 {
		cfg.MinUtteranceBytes = 1
	}
	if cfg.AdapterTimeout <= 0 {
		cfg.AdapterTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sid := uuid.NewString()
	return &Session{
		callID:   callID,
		sid:      sid,
		conn:     conn,
		adapters: adapters,
		cfg:      cfg,
		history:  NewConversation(),
		queue:    channel.NewDropQueue[types.AudioFrame](cfg.QueueDepth),
		done:     make(chan struct{}),
		logger: logger.With(
			zap.String("component", "session"),
			zap.String("call_id", callID),
			zap.String("session_id", sid),
		),
		collector: collector,
	}
}

// CallID returns the call identifier.
func (s *Session) CallID() string { return s.callID }

// State returns the current turn-taking state.
func (s *Session) State() State { return State(s.state.Load()) }

// History returns the dialogue history.
func (s *Session) History() *Conversation { return s.history }

// DroppedFrames returns how many inbound frames were shed while busy.
func (s *Session) DroppedFrames() int64 { return s.queue.Dropped() }

// Done is closed once the run loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start launches the session's run loop. Call it exactly once.
func (s *Session) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(runCtx)
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	for {
		frame, err := s.queue.Pop(ctx)
		if err != nil {
			return
		}
		s.processFrame(ctx, frame)
	}
}

// HandleStart records stream metadata from the platform's start event.
func (s *Session) HandleStart(p *StartPayload) {
	if p == nil || p.StreamSID == "" {
		return
	}
	s.mu.Lock()
	s.streamSID = p.StreamSID
	s.mu.Unlock()
}

// StreamSID returns the platform's stream identifier, if announced.
func (s *Session) StreamSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamSID
}

// HandleMedia offers one inbound audio frame to the pipeline. Frames
// arriving while an utterance is already in flight are shed, which caps
// latency growth at the cost of losing audio during agent processing.
func (s *Session) HandleMedia(frame types.AudioFrame) {
	if s.State() == StateClosed {
		return
	}
	if !s.queue.TryPush(frame) {
		s.collector.FrameDropped()
		s.logger.Debug("shedding frame while busy",
			zap.Int("frame_bytes", len(frame.Data)),
			zap.Int64("dropped_total", s.queue.Dropped()),
		)
	}
}

// Close moves the session to its terminal state and releases everything
// it owns. It is idempotent and safe from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		s.queue.Close()
		if s.cancel != nil {
			s.cancel()
		}
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("closing connection", zap.Error(err))
		}
		s.logger.Info("session closed", zap.Int("turns", s.history.Len()))
	})
}

// processFrame runs one turn of the pipeline: buffer to the utterance
// threshold, then transcribe, generate a reply, synthesize it, and send
// it down the line behind a clear event.
func (s *Session) processFrame(ctx context.Context, frame types.AudioFrame) {
	s.pending = append(s.pending, frame.Data...)
	if len(s.pending) < s.cfg.MinUtteranceBytes {
		return
	}
	utterance := types.NewULawFrame(s.pending)
	s.pending = nil

	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateProcessing)) {
		return
	}
	defer s.state.CompareAndSwap(int32(StateProcessing), int32(StateIdle))

	started := time.Now()

	transcript := s.transcribe(ctx, utterance)
	if transcript == "" {
		// Nothing worth replying to; no reply cycle runs.
		return
	}
	s.history.Append(types.RoleCaller, transcript)

	reply := s.generateReply(ctx, transcript)
	s.history.Append(types.RoleAgent, reply)

	pcm, ok := s.synthesize(ctx, reply)
	if !ok {
		// Synthesis failed: this turn plays as silence.
		return
	}

	line, err := audio.EncodeForLine(pcm)
	if err != nil {
		s.logger.Error("failed to encode reply for the line", zap.Error(err))
		return
	}

	s.sendReply(ctx, line)
	s.collector.ObservePipeline(time.Since(started))
}

func (s *Session) transcribe(ctx context.Context, utterance types.AudioFrame) string {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.AdapterTimeout)
	defer cancel()

	text, err := s.adapters.Transcriber.Transcribe(callCtx, utterance)
	if err != nil {
		s.collector.AdapterFailure("stt")
		if types.GetErrorCode(err) == types.ErrNoTranscript {
			s.logger.Debug("no transcript for utterance", zap.Error(err))
		} else {
			s.logger.Warn("transcription failed", zap.Error(err))
		}
		return ""
	}
	return strings.TrimSpace(text)
}

func (s *Session) generateReply(ctx context.Context, transcript string) string {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.AdapterTimeout)
	defer cancel()

	reply, err := s.adapters.Replies.GenerateReply(callCtx, s.history.Snapshot(), transcript)
	if err != nil {
		s.collector.AdapterFailure("llm")
		s.logger.Warn("reply generation failed, using fallback", zap.Error(err))
		return llm.EchoReply(transcript)
	}
	return reply
}

func (s *Session) synthesize(ctx context.Context, reply string) (types.AudioFrame, bool) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.AdapterTimeout)
	defer cancel()

	frame, err := s.adapters.Synthesizer.Synthesize(callCtx, reply)
	if err != nil {
		s.collector.AdapterFailure("tts")
		s.logger.Warn("synthesis failed, skipping playback for this turn", zap.Error(err))
		return types.AudioFrame{}, false
	}
	return frame, true
}

// sendReply flushes the remote playback buffer and streams the new reply
// behind it, then labels the burst with a mark for playback tracking.
func (s *Session) sendReply(ctx context.Context, line types.AudioFrame) {
	streamSID := s.StreamSID()

	if err := s.send(ctx, NewClearEnvelope(streamSID)); err != nil {
		return
	}
	if err := s.send(ctx, NewMediaEnvelope(streamSID, line.Data)); err != nil {
		return
	}
	_ = s.send(ctx, NewMarkEnvelope(streamSID, uuid.NewString()))
}

// send writes one envelope if the session is still live. A closed session
// never emits another outbound message.
func (s *Session) send(ctx context.Context, env Envelope) error {
	if s.State() == StateClosed {
		return types.NewError(types.ErrSessionClosed, "session is closed").WithCallID(s.callID)
	}
	if err := s.conn.WriteEnvelope(ctx, env); err != nil {
		s.logger.Warn("outbound write failed", zap.String("event", env.Event), zap.Error(err))
		return err
	}
	s.collector.MessageSent(env.Event)
	return nil
}
