package domain

import (
	"fmt"
	"time"
)

type SessionID string
type UserID string
type MessageID string

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// ViewMode selects which canned dashboard panel is displayed.
type ViewMode string

const (
	ModeDefault     ViewMode = "default"     // KPI dashboard
	ModeAttribution ViewMode = "attribution" // Last click vs multi-touch attribution
	ModeCausal      ViewMode = "causal"      // Control vs treatment lift
)

// Valid reports whether m is one of the three known modes.
func (m ViewMode) Valid() bool {
	switch m {
	case ModeDefault, ModeAttribution, ModeCausal:
		return true
	}
	return false
}

// ParseViewMode accepts the canonical names plus a couple of aliases.
func ParseViewMode(s string) (ViewMode, error) {
	switch s {
	case "default", "home", "main":
		return ModeDefault, nil
	case "attribution", "mta":
		return ModeAttribution, nil
	case "causal", "did", "lift":
		return ModeCausal, nil
	}
	return "", fmt.Errorf("view mode %q: %w", s, ErrInvalidMode)
}

type Timestamp = time.Time
