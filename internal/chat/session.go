package chat

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirahlabs/smartchat/internal/knowledge"
)

// State is the conversation's lead-capture state.
type State string

const (
	StateIdle           State = "idle"
	StateQualifying     State = "qualifying"
	StateCollectingLead State = "collecting-lead"
	StateConsentPending State = "consent-pending"
	StateLeadSubmitted  State = "lead-submitted"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateIdle, StateQualifying, StateCollectingLead, StateConsentPending, StateLeadSubmitted:
		return true
	}
	return false
}

// LeadField is the lead-form cursor. The empty value means no field is
// being collected.
type LeadField string

const (
	FieldNone  LeadField = ""
	FieldName  LeadField = "name"
	FieldPhone LeadField = "phone"
	FieldEmail LeadField = "email"
)

// Valid reports whether f is a known cursor, including FieldNone.
func (f LeadField) Valid() bool {
	switch f {
	case FieldNone, FieldName, FieldPhone, FieldEmail:
		return true
	}
	return false
}

type PendingLead struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// IsEmpty reports whether no field has been captured.
func (p PendingLead) IsEmpty() bool {
	return p == PendingLead{}
}

// LeadContext accumulates signals attached to the next submitted lead.
type LeadContext struct {
	IntentLevel      IntentLevel         `json:"intentLevel"`
	ServiceDiscussed string              `json:"serviceDiscussed,omitempty"`
	QualifyingAnswer string              `json:"qualifyingAnswer,omitempty"`
	HighIntentCount  int                 `json:"highIntentCount"`
	Reactions        map[string][]string `json:"reactions,omitempty"`
}

// Session is one visitor's conversation. The host owns it and passes it to
// every Engine call; the engine keeps no per-session state of its own.
type Session struct {
	ID          string             `json:"id"`
	Lang        knowledge.Language `json:"lang"`
	Messages    []Message          `json:"messages"`
	State       State              `json:"chatState"`
	PendingLead PendingLead        `json:"pendingLead"`
	LeadField   LeadField          `json:"leadField"`
	Context     LeadContext        `json:"leadContext"`
	PageURL     string             `json:"pageUrl,omitempty"`
	LastUpdated time.Time          `json:"lastUpdated"`
}

// NewSession returns an idle session with an empty transcript.
func NewSession(id string, lang knowledge.Language) *Session {
	return &Session{
		ID:      id,
		Lang:    lang,
		State:   StateIdle,
		Context: LeadContext{IntentLevel: IntentLow},
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *Session) Clone() *Session {
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		m.QuickReplies = append([]knowledge.QuickReply(nil), m.QuickReplies...)
		m.Attachments = append([]Attachment(nil), m.Attachments...)
		m.Reactions = append([]Reaction(nil), m.Reactions...)
		out.Messages[i] = m
	}
	if s.Context.Reactions != nil {
		out.Context.Reactions = make(map[string][]string, len(s.Context.Reactions))
		for k, v := range s.Context.Reactions {
			out.Context.Reactions[k] = append([]string(nil), v...)
		}
	}
	return &out
}

// Message returns the message with id.
func (s *Session) Message(id string) (*Message, bool) {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			return &s.Messages[i], true
		}
	}
	return nil, false
}

func (s *Session) append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

// reactionSummary flattens reaction counts across the transcript, ordered
// by emoji for stable output, e.g. "❤️x1, 👍x2".
func (s *Session) reactionSummary() string {
	totals := map[string]int{}
	for _, emojis := range s.Context.Reactions {
		for _, e := range emojis {
			totals[e]++
		}
	}
	if len(totals) == 0 {
		return ""
	}
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%sx%d", k, totals[k]))
	}
	return strings.Join(parts, ", ")
}
