package domain

// Message represents a any message in a timeline (user or agent).
// Messages are never mutated once appended.
type Message struct {
	ID        MessageID
	SessionID SessionID
	Author    Role
	Text      string
	CreatedAt Timestamp

	// Mode is the view mode that was live when the message was written
	Mode ViewMode
}

// PendingTransition is a mode switch waiting for the simulated loading to finish.
type PendingTransition struct {
	Target   ViewMode
	Label    string
	Progress int // 0..100
}

// ViewState is everything the dashboard region needs to render.
type ViewState struct {
	Mode    ViewMode
	Pending *PendingTransition
}

// Idle reports whether no transition is in flight.
func (v ViewState) Idle() bool {
	return v.Pending == nil
}

// Clone returns a copy that shares nothing with v.
func (v ViewState) Clone() ViewState {
	out := ViewState{Mode: v.Mode}
	if v.Pending != nil {
		p := *v.Pending
		out.Pending = &p
	}
	return out
}

// Session holds one user's conversation with the agent and its live view state.
type Session struct {
	ID        SessionID
	UserID    UserID
	Title     string
	CreatedAt Timestamp
	UpdatedAt Timestamp

	View ViewState
}
