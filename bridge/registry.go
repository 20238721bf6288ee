package bridge

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/BaSui01/voicebridge/types"
)

// Registry is the process-wide table of live call sessions keyed by call
// identifier. It is the only mutable state shared across calls; all
// access goes through its lock.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	sem      *semaphore.Weighted
	logger   *zap.Logger
}

// NewRegistry creates a registry. maxSessions caps concurrent live calls;
// zero means unlimited.
func NewRegistry(maxSessions int64, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		sessions: make(map[string]*Session),
		logger:   logger.With(zap.String("component", "registry")),
	}
	if maxSessions > 0 {
		r.sem = semaphore.NewWeighted(maxSessions)
	}
	return r
}

// Register claims the call identifier for the given session. The caller
// must refuse the connection when this fails.
func (r *Registry) Register(callID string, sess *Session) error {
	if callID == "" {
		return types.NewError(types.ErrMalformedEvent, "empty call identifier")
	}
	if r.sem != nil && !r.sem.TryAcquire(1) {
		return types.NewError(types.ErrAtCapacity, "session limit reached").WithCallID(callID).WithRetryable(true)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[callID]; exists {
		if r.sem != nil {
			r.sem.Release(1)
		}
		return types.NewError(types.ErrDuplicateCall, "call already has a live session").WithCallID(callID)
	}

	r.sessions[callID] = sess
	r.logger.Info("session registered",
		zap.String("call_id", callID),
		zap.Int("live_sessions", len(r.sessions)),
	)
	return nil
}

// Lookup returns the live session for the call identifier, if any.
func (r *Registry) Lookup(callID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[callID]
	return sess, ok
}

// Unregister removes the call's session. It is idempotent.
func (r *Registry) Unregister(callID string) {
	r.mu.Lock()
	_, existed := r.sessions[callID]
	delete(r.sessions, callID)
	live := len(r.sessions)
	r.mu.Unlock()

	if !existed {
		return
	}
	if r.sem != nil {
		r.sem.Release(1)
	}
	r.logger.Info("session unregistered",
		zap.String("call_id", callID),
		zap.Int("live_sessions", live),
	)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll tears down every live session; used on process shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for callID, sess := range sessions {
		sess.Close()
		if r.sem != nil {
			r.sem.Release(1)
		}
		r.logger.Info("session closed on shutdown", zap.String("call_id", callID))
	}
}
