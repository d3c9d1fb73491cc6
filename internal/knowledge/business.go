package knowledge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// BusinessInfo is the read-only knowledge base for one business.
type BusinessInfo struct {
	BusinessName string       `json:"businessName"`
	BusinessType string       `json:"businessType,omitempty"`
	Tagline      string       `json:"tagline,omitempty"`
	Location     string       `json:"location,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	Email        string       `json:"email,omitempty"`
	Website      string       `json:"website,omitempty"`
	WorkingHours WorkingHours `json:"workingHours"`
	Services     []Service    `json:"services"`
	Doctors      []Doctor     `json:"doctors"`
	FAQ          []FAQ        `json:"faq"`
	Intents      Intents      `json:"intents"`
}

type Service struct {
	Name        LocalizedText `json:"name"`
	Description LocalizedText `json:"description"`
}

type Doctor struct {
	Name           string        `json:"name"`
	Specialization LocalizedText `json:"specialization"`
	Experience     string        `json:"experience"`
}

type FAQ struct {
	Q LocalizedText `json:"q"`
	A LocalizedText `json:"a"`
}

// Intent is one named lead-intent trigger. Name is the key it was declared
// under in the document (appointment, pricing, enquiry, ...).
type Intent struct {
	Name     string        `json:"-"`
	Keywords []string      `json:"keywords"`
	Response LocalizedText `json:"response"`
}

// Intents keeps business intents in document order, since matching scans
// them in that order. The JSON form is an object keyed by intent name.
type Intents []Intent

// Lookup returns the intent declared under name.
func (in Intents) Lookup(name string) (Intent, bool) {
	for _, it := range in {
		if it.Name == name {
			return it, true
		}
	}
	return Intent{}, false
}

func (in *Intents) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*in = nil
		return nil
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.New("knowledge: decode intents: expected object")
	}
	byName := orderedmap.New[string, Intent]()
	if err := byName.UnmarshalJSON(trimmed); err != nil {
		return fmt.Errorf("knowledge: decode intents: %w", err)
	}
	out := make(Intents, 0, byName.Len())
	for pair := byName.Oldest(); pair != nil; pair = pair.Next() {
		it := pair.Value
		it.Name = pair.Key
		out = append(out, it)
	}
	*in = out
	return nil
}

func (in Intents) MarshalJSON() ([]byte, error) {
	byName := orderedmap.New[string, Intent]()
	for _, it := range in {
		byName.Set(it.Name, it)
	}
	return byName.MarshalJSON()
}

// Window is one day's opening window in HH:MM 24-hour time.
type Window struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Schedule maps a lower-case weekday name to its window. A nil entry or a
// missing key means the business is closed that day.
type Schedule map[string]*Window

// WorkingHours is either a display text alone or a display text plus a
// structured schedule.
type WorkingHours struct {
	Text     LocalizedText `json:"text"`
	Schedule Schedule      `json:"schedule,omitempty"`
}

// Get returns the display text for lang.
func (w WorkingHours) Get(lang Language) string {
	return w.Text.Get(lang)
}

func (w *WorkingHours) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*w = WorkingHours{}
		return nil
	}
	if trimmed[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return fmt.Errorf("knowledge: decode working hours: %w", err)
		}
		_, hasText := fields["text"]
		_, hasSchedule := fields["schedule"]
		if hasText || hasSchedule {
			type plain WorkingHours
			var out plain
			if err := json.Unmarshal(trimmed, &out); err != nil {
				return fmt.Errorf("knowledge: decode working hours: %w", err)
			}
			out.Schedule = normalizeSchedule(out.Schedule)
			*w = WorkingHours(out)
			return nil
		}
	}
	var text LocalizedText
	if err := text.UnmarshalJSON(trimmed); err != nil {
		return err
	}
	*w = WorkingHours{Text: text}
	return nil
}

func normalizeSchedule(s Schedule) Schedule {
	if s == nil {
		return nil
	}
	out := make(Schedule, len(s))
	for day, win := range s {
		out[strings.ToLower(strings.TrimSpace(day))] = win
	}
	return out
}
