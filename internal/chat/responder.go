package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirahlabs/smartchat/internal/hours"
	"github.com/sirahlabs/smartchat/internal/knowledge"
)

// MatcherName identifies which responder answered an utterance.
type MatcherName string

const (
	MatchFAQ        MatcherName = "faq"
	MatchService    MatcherName = "service"
	MatchDoctor     MatcherName = "doctor"
	MatchHours      MatcherName = "hours"
	MatchLocation   MatcherName = "location"
	MatchContact    MatcherName = "contact"
	MatchLeadIntent MatcherName = "lead_intent"
	MatchFallback   MatcherName = "fallback"
)

// MatchInput is everything a matcher may look at. Now is passed in so the
// hours matcher stays a pure function.
type MatchInput struct {
	Utterance string
	Business  *knowledge.BusinessInfo
	Lang      knowledge.Language
	Now       time.Time
}

// Answer is a matcher's response.
type Answer struct {
	Matcher   MatcherName
	Text      string
	Stage     knowledge.Stage
	StartLead bool
	Intent    string
	Service   string
}

// Matcher either answers or declines.
type Matcher struct {
	Name  MatcherName
	Match func(MatchInput) (Answer, bool)
}

// Chain runs matchers in order; the first answer wins.
type Chain []Matcher

// DefaultChain is the standard responder order.
func DefaultChain() Chain {
	return Chain{
		{MatchFAQ, matchFAQ},
		{MatchService, matchService},
		{MatchDoctor, matchDoctor},
		{MatchHours, matchHours},
		{MatchLocation, matchLocation},
		{MatchContact, matchContact},
		{MatchLeadIntent, matchLeadIntent},
	}
}

// Respond returns exactly one answer, falling back when no matcher fires.
// in.Utterance is normalized here.
func (c Chain) Respond(in MatchInput) Answer {
	in.Utterance = Normalize(in.Utterance)
	if in.Business == nil {
		in.Business = &knowledge.BusinessInfo{}
	}
	for _, m := range c {
		if ans, ok := m.Match(in); ok {
			ans.Matcher = m.Name
			return ans
		}
	}
	return fallback(in)
}

var (
	doctorKeywords   = []string{"doctor", "dr", "dentist", "specialist", "மருத்துவர்", "டாக்டர்"}
	hoursKeywords    = []string{"timing", "time", "hour", "open", "close", "when", "நேரம்", "திறப்பு"}
	locationKeywords = []string{"where", "location", "address", "direction", "எங்கே", "முகவரி"}
	contactKeywords  = []string{"contact", "phone", "call", "email", "தொடர்பு", "அழைப்பு"}
)

func matchFAQ(in MatchInput) (Answer, bool) {
	for _, f := range in.Business.FAQ {
		words := longWords(strings.ToLower(f.Q.Get(in.Lang)))
		hits := 0
		for _, w := range words {
			if strings.Contains(in.Utterance, w) {
				hits++
			}
		}
		if hits >= 2 || (len(words) <= 3 && hits >= 1) {
			return Answer{Text: f.A.Get(in.Lang), Stage: knowledge.StageGeneral}, true
		}
	}
	return Answer{}, false
}

func matchService(in MatchInput) (Answer, bool) {
	for _, svc := range in.Business.Services {
		name := svc.Name.Get(in.Lang)
		for _, w := range longWords(strings.ToLower(name)) {
			if !strings.Contains(in.Utterance, w) {
				continue
			}
			desc := svc.Description.Get(in.Lang)
			text := fmt.Sprintf("Yes, we offer %s. %s. Would you like to know more about this service?", name, desc)
			if in.Lang == knowledge.Tamil {
				text = fmt.Sprintf("ஆம், நாங்கள் %s வழங்குகிறோம். %s. இந்த சேவையைப் பற்றி மேலும் அறிய விரும்புகிறீர்களா?", name, desc)
			}
			return Answer{Text: text, Stage: knowledge.StageServices, Service: svc.Name.Get(knowledge.English)}, true
		}
	}
	return Answer{}, false
}

func matchDoctor(in MatchInput) (Answer, bool) {
	if !containsAny(in.Utterance, doctorKeywords) {
		return Answer{}, false
	}
	lines := make([]string, 0, len(in.Business.Doctors))
	for _, d := range in.Business.Doctors {
		lines = append(lines, fmt.Sprintf("%s - %s (%s)", d.Name, d.Specialization.Get(in.Lang), d.Experience))
	}
	header := "Our doctors:\n"
	if in.Lang == knowledge.Tamil {
		header = "எங்கள் மருத்துவர்கள்:\n"
	}
	return Answer{Text: header + strings.Join(lines, "\n"), Stage: knowledge.StageGeneral}, true
}

func matchHours(in MatchInput) (Answer, bool) {
	if !containsAny(in.Utterance, hoursKeywords) {
		return Answer{}, false
	}
	wh := in.Business.WorkingHours
	text := hours.Text(wh, in.Lang)
	if wh.Schedule != nil {
		if closed := hours.OutsideHoursMessage(hours.CheckIfOpen(wh.Schedule, in.Now), in.Lang); closed != "" {
			if text != "" {
				text += "\n\n"
			}
			text += closed
		}
	}
	return Answer{Text: text, Stage: knowledge.StageBooking}, true
}

func matchLocation(in MatchInput) (Answer, bool) {
	if !containsAny(in.Utterance, locationKeywords) {
		return Answer{}, false
	}
	text := in.Business.Location
	if text == "" {
		text = "Location not available."
	}
	return Answer{Text: text, Stage: knowledge.StageBooking}, true
}

func matchContact(in MatchInput) (Answer, bool) {
	if !containsAny(in.Utterance, contactKeywords) {
		return Answer{}, false
	}
	header := "Contact us at:"
	if in.Lang == knowledge.Tamil {
		header = "எங்களை தொடர்பு கொள்ளவும்:"
	}
	text := fmt.Sprintf("%s\n📞 %s\n📧 %s", header, in.Business.Phone, in.Business.Email)
	return Answer{Text: text, Stage: knowledge.StageBooking}, true
}

func matchLeadIntent(in MatchInput) (Answer, bool) {
	for _, it := range in.Business.Intents {
		for _, kw := range it.Keywords {
			kw = Normalize(kw)
			if kw != "" && strings.Contains(in.Utterance, kw) {
				return Answer{Text: it.Response.Get(in.Lang), StartLead: true, Intent: it.Name}, true
			}
		}
	}
	return Answer{}, false
}

func fallback(in MatchInput) Answer {
	name := in.Business.BusinessName
	if name == "" {
		name = "our business"
	}
	text := fmt.Sprintf("Thanks for reaching out to %s! I'm not sure I understood your question. Could you ask about our services, timings, or booking an appointment?", name)
	if in.Lang == knowledge.Tamil {
		text = fmt.Sprintf("%s-க்கு வருகை தந்தமைக்கு நன்றி! உங்கள் கேள்வியைப் புரிந்துகொள்ள முடியவில்லை. எங்கள் சேவைகள், நேரம் அல்லது சந்திப்பு பற்றி கேட்கலாமா?", name)
	}
	return Answer{Matcher: MatchFallback, Text: text, Stage: knowledge.StageWelcome}
}
