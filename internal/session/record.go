package session

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirahlabs/smartchat/internal/chat"
	"github.com/sirahlabs/smartchat/internal/knowledge"
)

const (
	// SchemaVersion is bumped whenever the stored shape changes; older
	// transcripts are discarded rather than migrated.
	SchemaVersion = 1
	// MaxAge is how long a transcript survives without activity.
	MaxAge = 24 * time.Hour

	keyPrefix = "sirah_smartchat_history"
)

var whitespace = regexp.MustCompile(`\s+`)

// StorageKey is the per-business namespace for stored transcripts.
func StorageKey(businessName string) string {
	if businessName == "" {
		return keyPrefix
	}
	return keyPrefix + "_" + whitespace.ReplaceAllString(strings.ToLower(businessName), "_")
}

type storedMessage struct {
	ID        string    `json:"id"`
	Role      chat.Role `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// record is the persisted transcript. Only id, role, content and timestamp
// survive per message; the lead context is kept so a resumed session submits
// the same lead it would have before the restart.
type record struct {
	Version     int              `json:"version"`
	Messages    []storedMessage  `json:"messages"`
	ChatState   chat.State       `json:"chatState"`
	PendingLead chat.PendingLead `json:"pendingLead"`
	LeadField   *chat.LeadField  `json:"leadField"`
	LastUpdated time.Time        `json:"lastUpdated"`

	Lang        knowledge.Language `json:"lang,omitempty"`
	PageURL     string             `json:"pageUrl,omitempty"`
	LeadContext *chat.LeadContext  `json:"leadContext,omitempty"`
}

// Encode serializes s in the stored schema.
func Encode(s *chat.Session) ([]byte, error) {
	rec := record{
		Version:     SchemaVersion,
		Messages:    make([]storedMessage, 0, len(s.Messages)),
		ChatState:   s.State,
		PendingLead: s.PendingLead,
		LastUpdated: s.LastUpdated.UTC(),
		Lang:        s.Lang,
		PageURL:     s.PageURL,
	}
	for _, m := range s.Messages {
		rec.Messages = append(rec.Messages, storedMessage{ID: m.ID, Role: m.Role, Content: m.Content, Timestamp: m.Timestamp.UTC()})
	}
	if s.LeadField != chat.FieldNone {
		field := s.LeadField
		rec.LeadField = &field
	}
	ctx := s.Context
	rec.LeadContext = &ctx

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("session: encode %s: %w", s.ID, err)
	}
	return data, nil
}

// Decode restores session id from data. Transcripts from another schema
// version or older than MaxAge at now are rejected.
func Decode(id string, data []byte, now time.Time) (*chat.Session, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w: %v", id, ErrCorrupt, err)
	}
	if rec.Version != SchemaVersion {
		return nil, fmt.Errorf("session: decode %s: version %d: %w", id, rec.Version, ErrVersionMismatch)
	}
	if now.Sub(rec.LastUpdated) > MaxAge {
		return nil, fmt.Errorf("session: decode %s: %w", id, ErrExpired)
	}
	field, err := rec.cursor()
	if err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", id, err)
	}

	s := chat.NewSession(id, knowledge.ParseLanguage(string(rec.Lang)))
	s.State = rec.ChatState
	s.PendingLead = rec.PendingLead
	s.LeadField = field
	if rec.LeadContext != nil {
		s.Context = *rec.LeadContext
	}
	s.PageURL = rec.PageURL
	s.LastUpdated = rec.LastUpdated
	s.Messages = make([]chat.Message, 0, len(rec.Messages))
	for _, m := range rec.Messages {
		s.Messages = append(s.Messages, chat.Message{ID: m.ID, Role: m.Role, Content: m.Content, Timestamp: m.Timestamp})
	}
	return s, nil
}

// cursor returns the stored lead cursor once it agrees with the chat state:
// a field is set exactly when a lead is being collected.
func (r record) cursor() (chat.LeadField, error) {
	if !r.ChatState.Valid() {
		return chat.FieldNone, fmt.Errorf("chat state %q: %w", r.ChatState, ErrCorrupt)
	}
	field := chat.FieldNone
	if r.LeadField != nil {
		field = *r.LeadField
		if field == chat.FieldNone || !field.Valid() {
			return chat.FieldNone, fmt.Errorf("lead field %q: %w", field, ErrCorrupt)
		}
	}
	if (field != chat.FieldNone) != (r.ChatState == chat.StateCollectingLead) {
		return chat.FieldNone, fmt.Errorf("lead field %q in state %s: %w", field, r.ChatState, ErrCorrupt)
	}
	return field, nil
}
