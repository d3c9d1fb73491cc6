package chat

import (
	"context"
	"regexp"
	"strings"

	"github.com/sirahlabs/smartchat/internal/knowledge"
	"github.com/sirahlabs/smartchat/internal/leads"
)

// LeadSink receives completed leads. Implementations must not block the
// caller on delivery and have no way to report failure back to the turn.
type LeadSink interface {
	Submit(ctx context.Context, lead leads.LeadData)
}

// LeadSinkFunc adapts a function to LeadSink.
type LeadSinkFunc func(ctx context.Context, lead leads.LeadData)

func (f LeadSinkFunc) Submit(ctx context.Context, lead leads.LeadData) { f(ctx, lead) }

// SkipToken lets a visitor leave the optional email blank.
const SkipToken = "skip"

var phonePattern = regexp.MustCompile(`[\d\s\-+()]{8,}`)

// ValidPhone reports whether v contains a run of at least eight digits,
// spaces, dashes, plus signs or parentheses.
func ValidPhone(v string) bool {
	return phonePattern.MatchString(v)
}

// ParseEmail normalizes the email step. It returns the address to store
// ("" when skipped) and false when the input must be re-prompted.
func ParseEmail(v string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(v))
	if email == "" || email == SkipToken {
		return "", true
	}
	if !strings.Contains(email, "@") {
		return "", false
	}
	return email, true
}

func invalidPhoneText(lang knowledge.Language) string {
	if lang == knowledge.Tamil {
		return "சரியான தொலைபேசி எண்ணை உள்ளிடவும்."
	}
	return "Please enter a valid phone number."
}

func invalidEmailText(lang knowledge.Language) string {
	if lang == knowledge.Tamil {
		return `சரியான மின்னஞ்சலை உள்ளிடவும் அல்லது தவிர்க்க "skip" என்று தட்டச்சு செய்யவும்.`
	}
	return `Please enter a valid email or type "skip" to continue.`
}

func consentDeclinedText(lang knowledge.Language) string {
	if lang == knowledge.Tamil {
		return "பரவாயில்லை! உங்கள் கேள்விகளுக்கு உதவ நான் இங்கே இருக்கிறேன்."
	}
	return "No problem! I'm here to help with any questions you have."
}

// isoMillis matches JavaScript's Date.toISOString output.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"
