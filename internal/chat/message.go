package chat

import (
	"time"

	"github.com/sirahlabs/smartchat/internal/knowledge"
)

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// MessageStatus tracks delivery of a visitor message.
type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Reactions lists the emoji a visitor may react with.
var Reactions = []string{"👍", "❤️", "😂", "😮"}

type Reaction struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// Message is one transcript entry. Messages are append-only; only Status and
// Reactions change after creation.
type Message struct {
	ID           string                 `json:"id"`
	Role         Role                   `json:"role"`
	Content      string                 `json:"content"`
	Timestamp    time.Time              `json:"timestamp"`
	QuickReplies []knowledge.QuickReply `json:"quickReplies,omitempty"`
	Attachments  []Attachment           `json:"attachments,omitempty"`
	Status       MessageStatus          `json:"status,omitempty"`
	Reactions    []Reaction             `json:"reactions,omitempty"`
	IntentLevel  IntentLevel            `json:"intentLevel,omitempty"`
}

func isAllowedReaction(emoji string) bool {
	for _, r := range Reactions {
		if r == emoji {
			return true
		}
	}
	return false
}
