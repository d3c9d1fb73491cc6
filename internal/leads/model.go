package leads

import (
	"net/url"
	"strings"
	"time"
)

// Source tags every lead captured by the widget.
const Source = "Sirah SmartChat"

// LeadData is a captured lead as handed to delivery sinks. It is immutable
// once built.
type LeadData struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	Email            string `json:"email,omitempty"`
	Source           string `json:"source"`
	Timestamp        string `json:"timestamp"`
	BusinessName     string `json:"businessName"`
	IntentLevel      string `json:"intentLevel,omitempty"`
	ServiceDiscussed string `json:"serviceDiscussed,omitempty"`
	QualifyingAnswer string `json:"qualifyingAnswer,omitempty"`
	PageURL          string `json:"pageUrl,omitempty"`
	Language         string `json:"language,omitempty"`
	Reactions        string `json:"reactions,omitempty"`
	SessionID        string `json:"sessionId,omitempty"`
}

// Validate checks the minimum a stored lead needs.
func (d LeadData) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(d.Phone) == "" && strings.TrimSpace(d.Email) == "" {
		return ErrMissingContact
	}
	return nil
}

// Form encodes the non-empty fields as form values, the shape external
// form endpoints accept.
func (d LeadData) Form() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("name", d.Name)
	set("phone", d.Phone)
	set("email", d.Email)
	set("source", d.Source)
	set("timestamp", d.Timestamp)
	set("businessName", d.BusinessName)
	set("intentLevel", d.IntentLevel)
	set("serviceDiscussed", d.ServiceDiscussed)
	set("qualifyingAnswer", d.QualifyingAnswer)
	set("pageUrl", d.PageURL)
	set("language", d.Language)
	set("reactions", d.Reactions)
	return v
}

// Lead is a stored lead.
type Lead struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LeadData
}

// ListFilter pages through stored leads, newest first.
type ListFilter struct {
	BusinessName string
	Limit        int
	Offset       int
}
