package bridge

import (
	"sync"

	"github.com/BaSui01/voicebridge/types"
)

// Conversation is the per-call dialogue history: an append-only ordered
// list of turns, discarded with its session. The reply generator receives
// a snapshot as context.
type Conversation struct {
	mu    sync.Mutex
	turns []types.Turn
}

// NewConversation creates an empty dialogue history.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append records one turn. Turns are immutable once appended.
func (c *Conversation) Append(role types.Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, types.NewTurn(role, content))
}

// Snapshot returns a copy of the history in insertion order.
func (c *Conversation) Snapshot() []types.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of recorded turns.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}
