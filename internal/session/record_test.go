package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirahlabs/smartchat/internal/chat"
	"github.com/sirahlabs/smartchat/internal/knowledge"
)

func sampleSession(now time.Time) *chat.Session {
	s := chat.NewSession("abc", knowledge.Tamil)
	s.State = chat.StateCollectingLead
	s.LeadField = chat.FieldPhone
	s.PendingLead = chat.PendingLead{Name: "Priya"}
	s.Context.HighIntentCount = 1
	s.Context.IntentLevel = chat.IntentHigh
	s.PageURL = "https://example.com/book"
	s.LastUpdated = now
	s.Messages = []chat.Message{
		{ID: "1", Role: chat.RoleUser, Content: "book", Timestamp: now, Status: chat.StatusRead},
		{ID: "2", Role: chat.RoleBot, Content: "May I have your name?", Timestamp: now,
			QuickReplies: []knowledge.QuickReply{{Value: "x"}}},
	}
	return s
}

func TestStorageKey(t *testing.T) {
	if got := StorageKey("Sirah  Dental\tCare"); got != "sirah_smartchat_history_sirah_dental_care" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := StorageKey(""); got != "sirah_smartchat_history" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestDecodeRestoresConversationState(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	data, err := Encode(sampleSession(now))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s, err := Decode("abc", data, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.State != chat.StateCollectingLead || s.LeadField != chat.FieldPhone {
		t.Fatalf("unexpected state %s/%s", s.State, s.LeadField)
	}
	if s.PendingLead.Name != "Priya" || s.Lang != knowledge.Tamil || s.Context.HighIntentCount != 1 {
		t.Fatalf("lead context not restored: %+v", s)
	}
	if len(s.Messages) != 2 || s.Messages[1].Content != "May I have your name?" {
		t.Fatalf("messages not restored: %+v", s.Messages)
	}
	if s.Messages[1].QuickReplies != nil || s.Messages[0].Status != "" {
		t.Fatalf("only id, role, content and timestamp should survive: %+v", s.Messages)
	}
}

func TestEncodeWritesNullLeadFieldWhenIdle(t *testing.T) {
	s := chat.NewSession("abc", knowledge.English)
	data, err := Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), `"leadField":null`) || !strings.Contains(string(data), `"version":1`) {
		t.Fatalf("unexpected encoding %s", data)
	}
}

func TestDecodeRejectsUnusableTranscripts(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	fresh, _ := Encode(sampleSession(now))

	if _, err := Decode("abc", fresh, now.Add(25*time.Hour)); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if _, err := Decode("abc", []byte(`{"version":2,"lastUpdated":"2024-01-01T10:00:00Z"}`), now); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
	_, err := Decode("abc", []byte(`{not json`), now)
	if !errors.Is(err, ErrCorrupt) || !Discarded(err) {
		t.Fatalf("expected a discarded ErrCorrupt, got %v", err)
	}
}

func TestDecodeRejectsInconsistentLeadCursor(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	stamp := `"lastUpdated":"2024-01-01T09:00:00Z"`
	cases := []struct {
		name string
		raw  string
	}{
		{"unknown field", `{"version":1,"chatState":"idle","leadField":"bogus",` + stamp + `}`},
		{"unknown field while collecting", `{"version":1,"chatState":"collecting-lead","leadField":"address",` + stamp + `}`},
		{"empty field", `{"version":1,"chatState":"collecting-lead","leadField":"",` + stamp + `}`},
		{"field outside collection", `{"version":1,"chatState":"idle","leadField":"phone",` + stamp + `}`},
		{"collecting without field", `{"version":1,"chatState":"collecting-lead","leadField":null,` + stamp + `}`},
		{"unknown state", `{"version":1,"chatState":"waiting","leadField":null,` + stamp + `}`},
		{"missing state", `{"version":1,` + stamp + `}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode("abc", []byte(tc.raw), now)
			if !errors.Is(err, ErrCorrupt) || !Discarded(err) {
				t.Fatalf("expected a discarded ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestDecodeAcceptsConsistentCursor(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	stamp := `"lastUpdated":"2024-01-01T09:00:00Z"`
	for _, raw := range []string{
		`{"version":1,"chatState":"collecting-lead","leadField":"email",` + stamp + `}`,
		`{"version":1,"chatState":"consent-pending","leadField":null,` + stamp + `}`,
		`{"version":1,"chatState":"lead-submitted",` + stamp + `}`,
	} {
		if _, err := Decode("abc", []byte(raw), now); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
}
