package domain

import "context"

// Intent is the coarse meaning the router assigned to a user message.
type Intent string

const (
	IntentCausal      Intent = "causal"
	IntentAttribution Intent = "attribution"
	IntentHome        Intent = "home"
	IntentUnknown     Intent = "unknown"
)

// Decision is what a Classifier wants done with a user message.
type Decision struct {
	Intent Intent
	From   ViewMode

	// Next is empty when the mode must stay as it is.
	Next ViewMode

	Reply          string
	UsesTransition bool
	LoadingLabel   string
}

// ChangesMode reports whether the decision carries a target mode.
func (d Decision) ChangesMode() bool {
	return d.Next != ""
}

// Classifier maps free text to a Decision. Implementations must be pure.
type Classifier interface {
	Classify(text string, current ViewMode) Decision
}

// SessionStore defines session's persistence
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	UpdateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id SessionID) (*Session, error)
	ListSessionsByUser(ctx context.Context, userID UserID, limit int) ([]*Session, error)
}

// MessageStore defines message's persistence. Reads return messages in
// insertion order; limit <= 0 means all of them.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *Message) error
	GetMessagesBySession(ctx context.Context, sessionID SessionID, limit int) ([]*Message, error)
}
