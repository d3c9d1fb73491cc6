package notify

import (
	"github.com/sirahlabs/smartchat/internal/config"
	"github.com/sirahlabs/smartchat/pkg/logging"
)

// Provider names accepted by EMAIL_PROVIDER.
const (
	ProviderAuto     = "auto"
	ProviderSendGrid = "sendgrid"
	ProviderSES      = "ses"
	ProviderStub     = "stub"
)

// NewEmailSender picks the email provider from cfg. "auto" prefers SendGrid
// when an API key is set, then SES when a client and sender address are
// available, and otherwise the stub.
func NewEmailSender(cfg *config.Config, ses SESAPI, logger *logging.Logger) EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	sendGrid := func() EmailSender {
		if s := NewSendGridSender(SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			return s
		}
		return nil
	}
	sesSender := func() EmailSender {
		if cfg.SESFromEmail == "" {
			return nil
		}
		if s := NewSESSender(ses, SESConfig{FromEmail: cfg.SESFromEmail, FromName: cfg.SESFromName}, logger); s != nil {
			return s
		}
		return nil
	}

	var sender EmailSender
	switch cfg.EmailProvider {
	case ProviderSendGrid:
		sender = sendGrid()
	case ProviderSES:
		sender = sesSender()
	case ProviderStub:
	default:
		if sender = sendGrid(); sender == nil {
			sender = sesSender()
		}
	}
	if sender == nil {
		logger.Warn("no email provider configured, lead emails will only be logged", "provider", cfg.EmailProvider)
		return NewStubEmailSender(logger)
	}
	return sender
}
