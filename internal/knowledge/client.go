package knowledge

import "strings"

// Mode selects where captured leads go.
type Mode string

const (
	ModeBrowser Mode = "browser"
	ModeHybrid  Mode = "hybrid"
)

// FormEndpointPlaceholder is the value shipped in template configs before a
// client supplies a real form endpoint.
const FormEndpointPlaceholder = "REPLACE_WITH_CLIENT_FORM_URL"

// ClientConfig is the per-deployment widget configuration.
type ClientConfig struct {
	BotName             string              `json:"botName"`
	Language            Language            `json:"language"`
	EnableTamil         bool                `json:"enableTamil"`
	Mode                Mode                `json:"mode"`
	RequireConsent      bool                `json:"requireConsent"`
	GoogleFormEndpoint  string              `json:"googleFormEndpoint"`
	Theme               Theme               `json:"theme"`
	Features            Features            `json:"features"`
	WelcomeMessage      LocalizedText       `json:"welcomeMessage"`
	QuickReplies        []QuickReply        `json:"quickReplies,omitempty"`
	ConversationStages  *ConversationStages `json:"conversationStages,omitempty"`
	QualifyingQuestions LocalizedText       `json:"qualifyingQuestions,omitempty"`
	LabelSets           struct {
		EN Labels `json:"en"`
		TA Labels `json:"ta"`
	} `json:"labels"`
}

type Theme struct {
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor,omitempty"`
	AccentColor    string `json:"accentColor,omitempty"`
	Position       string `json:"position"`
}

type Features struct {
	EnableQuickReplies bool `json:"enableQuickReplies"`
	EnableEmojiPicker  bool `json:"enableEmojiPicker"`
	EnableReactions    bool `json:"enableReactions"`
	EnableReadReceipts bool `json:"enableReadReceipts"`
	EnableLeadScoring  bool `json:"enableLeadScoring"`
	EnableSounds       bool `json:"enableSounds"`
	EnableAttachments  bool `json:"enableAttachments"`
}

// QuickReply is a suggested reply chip. Value is sent as the utterance.
type QuickReply struct {
	Label  LocalizedText `json:"label"`
	Value  string        `json:"value"`
	Intent string        `json:"intent,omitempty"`
	Icon   string        `json:"icon,omitempty"`
}

// ConversationStages groups quick replies by where the conversation is.
type ConversationStages struct {
	Welcome  []QuickReply `json:"welcome"`
	Services []QuickReply `json:"services"`
	Booking  []QuickReply `json:"booking"`
	General  []QuickReply `json:"general"`
}

// Stage names a quick-reply group.
type Stage string

const (
	StageWelcome  Stage = "welcome"
	StageServices Stage = "services"
	StageBooking  Stage = "booking"
	StageGeneral  Stage = "general"
)

// Labels are the widget's UI strings for one language.
type Labels struct {
	Placeholder        string `json:"placeholder"`
	Send               string `json:"send"`
	PoweredBy          string `json:"poweredBy"`
	ConsentTitle       string `json:"consentTitle"`
	ConsentMessage     string `json:"consentMessage"`
	ConsentAgree       string `json:"consentAgree"`
	ConsentDecline     string `json:"consentDecline"`
	NameLabel          string `json:"nameLabel"`
	PhoneLabel         string `json:"phoneLabel"`
	EmailLabel         string `json:"emailLabel"`
	SubmitLead         string `json:"submitLead"`
	ThankYou           string `json:"thankYou"`
	Close              string `json:"close"`
	OutsideHours       string `json:"outsideHours,omitempty"`
	WelcomeBack        string `json:"welcomeBack,omitempty"`
	QualifyingQuestion string `json:"qualifyingQuestion,omitempty"`
}

var defaultLabels = Labels{
	Placeholder:    "Type your message...",
	Send:           "Send",
	PoweredBy:      "Powered by Sirah SmartChat",
	ConsentTitle:   "Before we continue",
	ConsentMessage: "We'd like to save your contact details to assist you better.",
	ConsentAgree:   "I agree",
	ConsentDecline: "No thanks",
	NameLabel:      "May I have your name?",
	PhoneLabel:     "Your phone number?",
	EmailLabel:     "Email (optional, press enter to skip)?",
	SubmitLead:     "Submit",
	ThankYou:       "Thank you! We'll be in touch soon.",
	Close:          "Close",
	WelcomeBack:    "Welcome back!",
}

// Labels returns the label set for lang with blanks filled from the
// English defaults.
func (c *ClientConfig) Labels(lang Language) Labels {
	l := c.LabelSets.EN
	if lang == Tamil {
		l = c.LabelSets.TA
	}
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&l.Placeholder, defaultLabels.Placeholder)
	fill(&l.Send, defaultLabels.Send)
	fill(&l.PoweredBy, defaultLabels.PoweredBy)
	fill(&l.ConsentTitle, defaultLabels.ConsentTitle)
	fill(&l.ConsentMessage, defaultLabels.ConsentMessage)
	fill(&l.ConsentAgree, defaultLabels.ConsentAgree)
	fill(&l.ConsentDecline, defaultLabels.ConsentDecline)
	fill(&l.NameLabel, defaultLabels.NameLabel)
	fill(&l.PhoneLabel, defaultLabels.PhoneLabel)
	fill(&l.EmailLabel, defaultLabels.EmailLabel)
	fill(&l.SubmitLead, defaultLabels.SubmitLead)
	fill(&l.ThankYou, defaultLabels.ThankYou)
	fill(&l.Close, defaultLabels.Close)
	fill(&l.WelcomeBack, defaultLabels.WelcomeBack)
	return l
}

// ResolveLanguage returns lang when the deployment supports it, otherwise
// the configured default language.
func (c *ClientConfig) ResolveLanguage(lang Language) Language {
	if lang == Tamil && c.EnableTamil {
		return Tamil
	}
	if lang == English {
		return English
	}
	if c.Language == Tamil && c.EnableTamil {
		return Tamil
	}
	return English
}

// StageReplies returns the quick replies configured for stage. The welcome
// stage falls back to the flat quickReplies list.
func (c *ClientConfig) StageReplies(stage Stage) []QuickReply {
	if c.ConversationStages != nil {
		var replies []QuickReply
		switch stage {
		case StageWelcome:
			replies = c.ConversationStages.Welcome
		case StageServices:
			replies = c.ConversationStages.Services
		case StageBooking:
			replies = c.ConversationStages.Booking
		case StageGeneral:
			replies = c.ConversationStages.General
		}
		if len(replies) > 0 {
			return replies
		}
	}
	if stage == StageWelcome {
		return c.QuickReplies
	}
	return nil
}

// FormSubmissionEnabled reports whether leads should be posted to the
// client's external form endpoint.
func (c *ClientConfig) FormSubmissionEnabled() bool {
	endpoint := strings.TrimSpace(c.GoogleFormEndpoint)
	return c.Mode == ModeHybrid && endpoint != "" && endpoint != FormEndpointPlaceholder
}
