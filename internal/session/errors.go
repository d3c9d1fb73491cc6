package session

import "errors"

var (
	// ErrNotFound is returned when no transcript is stored for a session.
	ErrNotFound = errors.New("session: not found")
	// ErrExpired marks a transcript older than MaxAge.
	ErrExpired = errors.New("session: transcript expired")
	// ErrVersionMismatch marks a transcript written with another schema.
	ErrVersionMismatch = errors.New("session: schema version mismatch")
	// ErrCorrupt marks a transcript that is not valid JSON or whose chat
	// state and lead cursor contradict each other.
	ErrCorrupt = errors.New("session: corrupt transcript")
)
