package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sirahlabs/smartchat/pkg/logging"
)

type stubLister struct {
	events []AuditEvent
	err    error
	got    string
}

func (s *stubLister) ListBySession(_ context.Context, sessionID string) ([]AuditEvent, error) {
	s.got = sessionID
	return s.events, s.err
}

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/admin/sessions/{sessionID}/audit", h.ListSessionEvents)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestListSessionEvents(t *testing.T) {
	lister := &stubLister{events: []AuditEvent{{
		ID:        "evt-1",
		EventType: EventConsentGranted,
		SessionID: "sess-1",
		CreatedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}}}
	rec := serve(NewHandler(lister, logging.Discard()), "/admin/sessions/sess-1/audit")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if lister.got != "sess-1" {
		t.Fatalf("expected lookup for sess-1, got %q", lister.got)
	}
	var body struct {
		Events []AuditEvent `json:"events"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Events) != 1 || body.Events[0].EventType != EventConsentGranted {
		t.Fatalf("unexpected events: %+v", body.Events)
	}
}

func TestListSessionEventsEmptyAndError(t *testing.T) {
	rec := serve(NewHandler(&stubLister{}, logging.Discard()), "/admin/sessions/none/audit")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(body["events"]) != "[]" {
		t.Fatalf("expected empty list, got %s", body["events"])
	}

	rec = serve(NewHandler(&stubLister{err: errors.New("db down")}, logging.Discard()), "/admin/sessions/x/audit")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
