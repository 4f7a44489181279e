package domain

import "errors"

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionExists     = errors.New("session already exists")
	ErrTransitionPending = errors.New("a view transition is still in progress")
	ErrInvalidMode       = errors.New("invalid view mode")
)
