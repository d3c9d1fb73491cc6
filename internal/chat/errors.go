package chat

import "errors"

var (
	ErrUnknownMessage       = errors.New("chat: message not found")
	ErrReactionsDisabled    = errors.New("chat: reactions are disabled")
	ErrUnsupportedReaction  = errors.New("chat: unsupported reaction")
	ErrNotAwaitingConsent   = errors.New("chat: no lead is awaiting consent")
	ErrInvalidTransition    = errors.New("chat: invalid state transition")
	ErrMissingKnowledgeBase = errors.New("chat: business info and client config are required")
)
