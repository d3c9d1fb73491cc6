// Package compliance keeps an append-only record of visitor consent so every
// stored lead can be traced back to the prompt the visitor agreed to.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventType names a consent event.
type AuditEventType string

const (
	// EventConsentRequested is logged when the consent prompt is shown.
	EventConsentRequested AuditEventType = "consent.requested"
	// EventConsentGranted is logged when the visitor agrees to store details.
	EventConsentGranted AuditEventType = "consent.granted"
	// EventConsentDeclined is logged when the visitor refuses.
	EventConsentDeclined AuditEventType = "consent.declined"
	// EventLeadCaptured is logged when a lead is handed to delivery.
	EventLeadCaptured AuditEventType = "lead.captured"
)

// AuditEvent is one immutable audit row.
type AuditEvent struct {
	ID           string          `json:"id"`
	EventType    AuditEventType  `json:"event_type"`
	BusinessName string          `json:"business_name"`
	SessionID    string          `json:"session_id"`
	Details      json.RawMessage `json:"details,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// AuditDetails holds event-specific attributes. Contact values are never
// stored here, only which fields were present.
type AuditDetails struct {
	PromptText     string   `json:"prompt_text,omitempty"`
	Language       string   `json:"language,omitempty"`
	PageURL        string   `json:"page_url,omitempty"`
	FieldsCaptured []string `json:"fields_captured,omitempty"`
}

// AuditService writes consent events to the consent_audit_events table.
type AuditService struct {
	db  *sql.DB
	now func() time.Time
}

func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db, now: time.Now}
}

// LogEvent records event, filling in the ID and timestamp when empty.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}
	if len(event.Details) == 0 {
		event.Details = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO consent_audit_events (
			id, event_type, business_name, session_id, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(event.EventType),
		event.BusinessName,
		event.SessionID,
		[]byte(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: log audit event: %w", err)
	}
	return nil
}

func (s *AuditService) logWithDetails(ctx context.Context, typ AuditEventType, business, sessionID string, details AuditDetails) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("compliance: encode details: %w", err)
	}
	return s.LogEvent(ctx, AuditEvent{
		EventType:    typ,
		BusinessName: business,
		SessionID:    sessionID,
		Details:      raw,
	})
}

// LogConsentRequested records that prompt was shown in lang.
func (s *AuditService) LogConsentRequested(ctx context.Context, business, sessionID, prompt, lang string) error {
	return s.logWithDetails(ctx, EventConsentRequested, business, sessionID, AuditDetails{PromptText: prompt, Language: lang})
}

// LogConsentDecision records the visitor's answer to the consent prompt.
func (s *AuditService) LogConsentDecision(ctx context.Context, business, sessionID string, granted bool, lang string) error {
	typ := EventConsentDeclined
	if granted {
		typ = EventConsentGranted
	}
	return s.logWithDetails(ctx, typ, business, sessionID, AuditDetails{Language: lang})
}

// LogLeadCaptured records which contact fields a captured lead carried.
func (s *AuditService) LogLeadCaptured(ctx context.Context, business, sessionID, pageURL string, fields []string) error {
	return s.logWithDetails(ctx, EventLeadCaptured, business, sessionID, AuditDetails{PageURL: pageURL, FieldsCaptured: fields})
}

// ListBySession returns a session's events, oldest first.
func (s *AuditService) ListBySession(ctx context.Context, sessionID string) ([]AuditEvent, error) {
	query := `
		SELECT id, event_type, business_name, session_id, details, created_at
		FROM consent_audit_events
		WHERE session_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("compliance: query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var (
			e       AuditEvent
			typ     string
			details []byte
		)
		if err := rows.Scan(&e.ID, &typ, &e.BusinessName, &e.SessionID, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("compliance: scan audit event: %w", err)
		}
		e.EventType = AuditEventType(typ)
		e.Details = json.RawMessage(details)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: iterate audit events: %w", err)
	}
	return events, nil
}
