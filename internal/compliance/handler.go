package compliance

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sirahlabs/smartchat/pkg/logging"
)

// EventLister reads audit events; *AuditService satisfies it.
type EventLister interface {
	ListBySession(ctx context.Context, sessionID string) ([]AuditEvent, error)
}

// Handler serves the admin audit trail.
type Handler struct {
	events EventLister
	logger *logging.Logger
}

func NewHandler(events EventLister, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{events: events, logger: logger}
}

// ListSessionEvents handles GET /admin/sessions/{sessionID}/audit
func (h *Handler) ListSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if id == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}
	events, err := h.events.ListBySession(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list audit events", "error", err, "session_id", id)
		http.Error(w, "failed to list audit events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []AuditEvent{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id": id,
		"events":     events,
	})
}
