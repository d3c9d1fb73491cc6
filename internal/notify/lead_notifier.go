package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/sirahlabs/smartchat/internal/leads"
)

// LeadNotifier emails the business whenever a lead is captured. It is a
// leads.Sink.
type LeadNotifier struct {
	sender EmailSender
	to     string
}

// NewLeadNotifier returns nil when there is no recipient.
func NewLeadNotifier(sender EmailSender, to string) *LeadNotifier {
	if sender == nil || strings.TrimSpace(to) == "" {
		return nil
	}
	return &LeadNotifier{sender: sender, to: strings.TrimSpace(to)}
}

func (n *LeadNotifier) Name() string { return "email" }

func (n *LeadNotifier) Deliver(ctx context.Context, lead leads.LeadData) error {
	msg := LeadEmail(lead)
	msg.To = n.to
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: lead email: %w", err)
	}
	return nil
}

// LeadEmail renders the notification for lead. The recipient is left blank.
func LeadEmail(lead leads.LeadData) EmailMessage {
	rows := [][2]string{
		{"Name", lead.Name},
		{"Phone", lead.Phone},
		{"Email", lead.Email},
		{"Intent", lead.IntentLevel},
		{"Service", lead.ServiceDiscussed},
		{"Qualifying answer", lead.QualifyingAnswer},
		{"Language", lead.Language},
		{"Page", lead.PageURL},
		{"Reactions", lead.Reactions},
		{"Captured", lead.Timestamp},
	}

	var text, table strings.Builder
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		fmt.Fprintf(&text, "%s: %s\n", r[0], r[1])
		fmt.Fprintf(&table, "<tr><th align=\"left\">%s</th><td>%s</td></tr>", r[0], html.EscapeString(r[1]))
	}

	business := lead.BusinessName
	if business == "" {
		business = "your website"
	}
	return EmailMessage{
		Subject: fmt.Sprintf("New lead from %s: %s", business, lead.Name),
		Body:    text.String(),
		HTML:    "<h2>New chat lead</h2><table>" + table.String() + "</table>",
		ReplyTo: lead.Email,
	}
}

var _ leads.Sink = (*LeadNotifier)(nil)
