package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Language is a widget display language.
type Language string

const (
	English Language = "en"
	Tamil   Language = "ta"
)

// ParseLanguage maps user input to a supported language, defaulting to English.
func ParseLanguage(v string) Language {
	if Language(strings.ToLower(strings.TrimSpace(v))) == Tamil {
		return Tamil
	}
	return English
}

// LocalizedText is either a single string used for every language or a
// per-language pair. Documents may use either form for any text field.
type LocalizedText struct {
	plain   string
	en      string
	ta      string
	isPlain bool
}

// Plain builds a text that reads the same in every language.
func Plain(s string) LocalizedText {
	return LocalizedText{plain: s, isPlain: true}
}

// Localized builds a per-language text.
func Localized(en, ta string) LocalizedText {
	return LocalizedText{en: en, ta: ta}
}

// Get resolves the text for lang. Tamil falls back to English when the
// Tamil variant is empty. Absent text resolves to "".
func (t LocalizedText) Get(lang Language) string {
	if t.isPlain {
		return t.plain
	}
	if lang == Tamil && t.ta != "" {
		return t.ta
	}
	return t.en
}

// IsZero reports whether no variant carries text.
func (t LocalizedText) IsZero() bool {
	return t.plain == "" && t.en == "" && t.ta == ""
}

func (t *LocalizedText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = LocalizedText{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("knowledge: decode text: %w", err)
		}
		*t = Plain(s)
		return nil
	}
	var pair struct {
		EN string `json:"en"`
		TA string `json:"ta"`
	}
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("knowledge: decode localized text: %w", err)
	}
	*t = Localized(pair.EN, pair.TA)
	return nil
}

func (t LocalizedText) MarshalJSON() ([]byte, error) {
	if t.isPlain {
		return json.Marshal(t.plain)
	}
	return json.Marshal(struct {
		EN string `json:"en"`
		TA string `json:"ta"`
	}{t.en, t.ta})
}
