package session

import "errors"

// Sentinel errors for controller operations.
var (
	ErrEmptyMessage     = errors.New("message content is empty")
	ErrAwaitingResponse = errors.New("awaiting AI response")
	ErrSessionClosed    = errors.New("session is closed")
)
