package chat

import (
	"math"
	"strings"

	"github.com/sirahlabs/smartchat/internal/knowledge"
)

// IntentLevel grades how close a visitor is to converting.
type IntentLevel string

const (
	IntentLow    IntentLevel = "low"
	IntentMedium IntentLevel = "medium"
	IntentHigh   IntentLevel = "high"
)

func (l IntentLevel) rank() int {
	switch l {
	case IntentHigh:
		return 3
	case IntentMedium:
		return 2
	case IntentLow:
		return 1
	}
	return 0
}

// IntentType names a specific intent. Business-defined intents use the key
// they were declared under, so values outside these constants are possible.
type IntentType string

const (
	IntentNone        IntentType = ""
	IntentAppointment IntentType = "appointment"
	IntentPricing     IntentType = "pricing"
	IntentEnquiry     IntentType = "enquiry"
	IntentService     IntentType = "service"
	IntentGeneral     IntentType = "general"
)

// IntentResult is the classifier's verdict for one utterance.
type IntentResult struct {
	Level      IntentLevel `json:"level"`
	Type       IntentType  `json:"type,omitempty"`
	Confidence float64     `json:"confidence"`
}

var highIntentKeywords = []string{
	"appointment", "book", "booking", "schedule", "visit", "consultation",
	"price", "cost", "pricing", "fee", "charge", "how much", "rates",
	"buy", "purchase", "order", "proceed", "confirm", "yes", "ready",
	"முன்பதிவு", "சந்திப்பு", "விலை", "செலவு", "கட்டணம்",
}

var mediumIntentKeywords = []string{
	"service", "services", "treatment", "treatments", "options", "available",
	"offer", "provide", "doctor", "specialist", "information", "details",
	"tell me", "know more", "interested", "considering",
	"சேவை", "சிகிச்சை", "மருத்துவர்", "தகவல்",
}

var lowIntentKeywords = []string{
	"hello", "hi", "hey", "timing", "hours", "location", "where", "address",
	"contact", "phone", "email", "thanks", "thank you", "okay", "ok",
	"வணக்கம்", "நேரம்", "எங்கே", "முகவரி", "நன்றி",
}

// bookingButtonKeywords mark a clicked quick reply as a booking action.
var bookingButtonKeywords = []string{"book", "appointment", "proceed", "yes", "confirm", "pricing", "price"}

// DetectIntent scores utterance against the keyword tiers and resolves a
// specific intent type from the business intents, then the services.
func DetectIntent(utterance string, info *knowledge.BusinessInfo) IntentResult {
	normalized := Normalize(utterance)

	high := countHits(normalized, highIntentKeywords)
	medium := countHits(normalized, mediumIntentKeywords)
	low := countHits(normalized, lowIntentKeywords)

	res := IntentResult{Level: IntentLow, Confidence: 0.3}
	switch {
	case high > 0:
		res.Level = IntentHigh
		res.Confidence = math.Min(0.9, 0.5+float64(high)*0.15)
	case medium > 0:
		res.Level = IntentMedium
		res.Confidence = math.Min(0.7, 0.4+float64(medium)*0.1)
	case low > 0:
		res.Confidence = math.Min(0.5, 0.3+float64(low)*0.1)
	}

	res.Type = intentType(normalized, info)
	if res.Type == IntentAppointment || res.Type == IntentPricing {
		res.Level = IntentHigh
		res.Confidence = math.Max(res.Confidence, 0.8)
	}
	return res
}

func intentType(normalized string, info *knowledge.BusinessInfo) IntentType {
	if info == nil {
		return IntentNone
	}
	for _, it := range info.Intents {
		for _, kw := range it.Keywords {
			kw = strings.ToLower(kw)
			if kw != "" && strings.Contains(normalized, kw) {
				return IntentType(it.Name)
			}
		}
	}
	for _, svc := range info.Services {
		first, _, _ := strings.Cut(strings.ToLower(svc.Name.Get(knowledge.English)), " ")
		if first != "" && strings.Contains(normalized, first) {
			return IntentService
		}
	}
	return IntentNone
}

// ShouldTriggerLeadCapture decides whether the classifier alone should start
// lead collection: on a high-intent turn, on a booking-style quick reply, or
// once the session has seen two or more high-intent turns.
func ShouldTriggerLeadCapture(level IntentLevel, highIntentCount int, clickedLabel string) bool {
	if level == IntentHigh {
		return true
	}
	if clickedLabel != "" {
		label := strings.ToLower(clickedLabel)
		for _, kw := range bookingButtonKeywords {
			if strings.Contains(label, kw) {
				return true
			}
		}
	}
	return highIntentCount >= 2
}
