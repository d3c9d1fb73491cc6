package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_LogEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuditService(db)
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return at }

	mock.ExpectExec("INSERT INTO consent_audit_events").
		WithArgs(sqlmock.AnyArg(), "consent.requested", "Sirah Dental Care", "s1", []byte(`{}`), at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = service.LogEvent(context.Background(), AuditEvent{
		EventType:    EventConsentRequested,
		BusinessName: "Sirah Dental Care",
		SessionID:    "s1",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditService_LogConsentDecision(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	service := NewAuditService(db)

	tests := []struct {
		granted bool
		want    string
	}{
		{true, "consent.granted"},
		{false, "consent.declined"},
	}
	for _, tt := range tests {
		mock.ExpectExec("INSERT INTO consent_audit_events").
			WithArgs(sqlmock.AnyArg(), tt.want, "Sirah Dental Care", "s1", []byte(`{"language":"ta"}`), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		require.NoError(t, service.LogConsentDecision(context.Background(), "Sirah Dental Care", "s1", tt.granted, "ta"))
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditService_LogLeadCapturedKeepsFieldNamesOnly(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	service := NewAuditService(db)

	mock.ExpectExec("INSERT INTO consent_audit_events").
		WithArgs(sqlmock.AnyArg(), "lead.captured", "Sirah Dental Care", "s1",
			[]byte(`{"page_url":"https://example.com","fields_captured":["name","phone"]}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = service.LogLeadCaptured(context.Background(), "Sirah Dental Care", "s1", "https://example.com", []string{"name", "phone"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditService_LogEventError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	service := NewAuditService(db)

	mock.ExpectExec("INSERT INTO consent_audit_events").WillReturnError(errors.New("connection reset"))
	err = service.LogConsentRequested(context.Background(), "Biz", "s1", "Before we continue", "en")
	assert.ErrorContains(t, err, "compliance: log audit event")
}

func TestAuditService_ListBySession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	service := NewAuditService(db)

	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "event_type", "business_name", "session_id", "details", "created_at"}).
		AddRow("e1", "consent.requested", "Biz", "s1", []byte(`{}`), at).
		AddRow("e2", "consent.granted", "Biz", "s1", []byte(`{"language":"en"}`), at.Add(time.Minute))
	mock.ExpectQuery("SELECT id, event_type, business_name, session_id, details, created_at").
		WithArgs("s1").
		WillReturnRows(rows)

	events, err := service.ListBySession(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventConsentGranted, events[1].EventType)
	assert.JSONEq(t, `{"language":"en"}`, string(events[1].Details))
	assert.NoError(t, mock.ExpectationsWereMet())
}
