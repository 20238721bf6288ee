package types

import "time"

// Role identifies who produced a dialogue turn.
type Role string

const (
	// RoleCaller marks speech transcribed from the human on the line.
	RoleCaller Role = "caller"
	// RoleAgent marks replies generated by the bridge.
	RoleAgent Role = "agent"
)

// Turn is one utterance in a call's dialogue history. Turns are immutable
// once recorded.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn creates a turn stamped with the current time.
func NewTurn(role Role, content string) Turn {
	return Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewCallerTurn creates a caller turn.
func NewCallerTurn(content string) Turn {
	return NewTurn(RoleCaller, content)
}

// NewAgentTurn creates an agent turn.
func NewAgentTurn(content string) Turn {
	return NewTurn(RoleAgent, content)
}
