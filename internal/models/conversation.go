package models

import "time"

// MaxTurns caps stored conversation history; older turns are silently
// dropped on write.
const MaxTurns = 10

// Turn is one exchange: the learner's utterance, the tutor's reply and
// its translation.
type Turn struct {
	User        string    `json:"user"`
	AI          string    `json:"ai"`
	Translation string    `json:"translation"`
	Timestamp   time.Time `json:"timestamp"`
}

// Conversation is a bounded-lifetime tutoring session. ExpiresAt is the
// sole authority on usability; it is never extended by reads or appends.
// SystemPrompt, when set, replaces the per-level tutor prompt for the
// whole session.
type Conversation struct {
	ID           string    `json:"conversation_id"`
	UserID       int64     `json:"user_id"`
	Level        Level     `json:"level"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	History      []Turn    `json:"history"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (c *Conversation) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// AppendTurn adds a turn and enforces the history cap, dropping the
// oldest turns first.
func (c *Conversation) AppendTurn(t Turn) {
	c.History = append(c.History, t)
	if len(c.History) > MaxTurns {
		c.History = c.History[len(c.History)-MaxTurns:]
	}
}
