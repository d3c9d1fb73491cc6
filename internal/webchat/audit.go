package webchat

import (
	"context"
	"sync"
	"time"

	"github.com/sirahlabs/smartchat/internal/chat"
	"github.com/sirahlabs/smartchat/internal/leads"
	"github.com/sirahlabs/smartchat/pkg/logging"
)

const auditTimeout = 5 * time.Second

// ConsentAuditor records consent decisions.
type ConsentAuditor interface {
	LogConsentRequested(ctx context.Context, business, sessionID, prompt, lang string) error
	LogConsentDecision(ctx context.Context, business, sessionID string, granted bool, lang string) error
	LogLeadCaptured(ctx context.Context, business, sessionID, pageURL string, fields []string) error
}

// AuditLog writes consent events in the background so a chat turn never
// waits on the audit database. A nil *AuditLog records nothing.
type AuditLog struct {
	audit  ConsentAuditor
	logger *logging.Logger
	wg     sync.WaitGroup
}

// NewAuditLog returns nil when audit is nil.
func NewAuditLog(audit ConsentAuditor, logger *logging.Logger) *AuditLog {
	if audit == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AuditLog{audit: audit, logger: logger}
}

// ConsentRequested records that prompt was shown to sessionID.
func (a *AuditLog) ConsentRequested(ctx context.Context, business, sessionID, prompt, lang string) {
	a.record(ctx, sessionID, func(ctx context.Context) error {
		return a.audit.LogConsentRequested(ctx, business, sessionID, prompt, lang)
	})
}

// ConsentDecision records the visitor's answer.
func (a *AuditLog) ConsentDecision(ctx context.Context, business, sessionID string, granted bool, lang string) {
	a.record(ctx, sessionID, func(ctx context.Context) error {
		return a.audit.LogConsentDecision(ctx, business, sessionID, granted, lang)
	})
}

// Sink wraps next so every captured lead also leaves an audit row.
func (a *AuditLog) Sink(next chat.LeadSink) chat.LeadSink {
	if a == nil {
		return next
	}
	return chat.LeadSinkFunc(func(ctx context.Context, lead leads.LeadData) {
		next.Submit(ctx, lead)
		fields := []string{"name", "phone"}
		if lead.Email != "" {
			fields = append(fields, "email")
		}
		a.record(ctx, lead.SessionID, func(ctx context.Context) error {
			return a.audit.LogLeadCaptured(ctx, lead.BusinessName, lead.SessionID, lead.PageURL, fields)
		})
	})
}

// record runs write detached from the caller's cancellation.
func (a *AuditLog) record(ctx context.Context, sessionID string, write func(context.Context) error) {
	if a == nil {
		return
	}
	base := context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(base, auditTimeout)
		defer cancel()
		if err := write(ctx); err != nil {
			a.logger.Error("consent audit failed", "session_id", sessionID, "error", err)
		}
	}()
}

// Wait blocks until pending audit writes finish or ctx is done.
func (a *AuditLog) Wait(ctx context.Context) error {
	if a == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
