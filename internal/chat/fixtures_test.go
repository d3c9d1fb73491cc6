package chat

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sirahlabs/smartchat/internal/knowledge"
	"github.com/sirahlabs/smartchat/internal/leads"
	"github.com/sirahlabs/smartchat/pkg/logging"
)

// 2024-01-01 is a Monday.
var mondayMorning = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func testBusiness() *knowledge.BusinessInfo {
	weekday := &knowledge.Window{Open: "09:00", Close: "18:00"}
	return &knowledge.BusinessInfo{
		BusinessName: "Sirah Dental Care",
		Location:     "12 Anna Salai, Chennai",
		Phone:        "+91 44 1234 5678",
		Email:        "hello@sirahdental.example",
		WorkingHours: knowledge.WorkingHours{
			Text: knowledge.Localized("Mon-Sat: 9:00 AM - 6:00 PM", "திங்கள்-சனி: காலை 9:00 - மாலை 6:00"),
			Schedule: knowledge.Schedule{
				"monday":    weekday,
				"tuesday":   weekday,
				"wednesday": weekday,
				"thursday":  weekday,
				"friday":    weekday,
				"saturday":  {Open: "09:00", Close: "14:00"},
				"sunday":    nil,
			},
		},
		Services: []knowledge.Service{
			{Name: knowledge.Localized("Teeth Cleaning", "பல் சுத்தம்"), Description: knowledge.Plain("Professional scaling and polishing")},
			{Name: knowledge.Localized("Root Canal", "வேர் சிகிச்சை"), Description: knowledge.Localized("Painless root canal treatment", "வலியில்லா வேர் சிகிச்சை")},
		},
		Doctors: []knowledge.Doctor{
			{Name: "Dr. Priya", Specialization: knowledge.Localized("Orthodontist", "பல் சீரமைப்பு நிபுணர்"), Experience: "12 years"},
			{Name: "Dr. Arun", Specialization: knowledge.Plain("Endodontist"), Experience: "8 years"},
		},
		FAQ: []knowledge.FAQ{
			{Q: knowledge.Plain("Do you accept insurance claims?"), A: knowledge.Plain("Yes, we accept most major insurance providers.")},
			{Q: knowledge.Plain("Is parking available?"), A: knowledge.Plain("Free parking is available behind the clinic.")},
		},
		Intents: knowledge.Intents{
			{Name: "pricing", Keywords: []string{"price", "cost", "fee"}, Response: knowledge.Plain("Our pricing depends on the treatment.")},
			{Name: "appointment", Keywords: []string{"appointment", "book", "schedule"}, Response: knowledge.Localized("I'd be happy to help you book an appointment!", "சந்திப்பை முன்பதிவு செய்ய உதவுகிறேன்!")},
			{Name: "enquiry", Keywords: []string{"enquiry"}, Response: knowledge.Plain("Sure, let me take your details.")},
		},
	}
}

func testClient() *knowledge.ClientConfig {
	return &knowledge.ClientConfig{
		BotName:        "Sirah Assistant",
		Language:       knowledge.English,
		EnableTamil:    true,
		Mode:           knowledge.ModeBrowser,
		WelcomeMessage: knowledge.Plain("Hi! How can we help you today?"),
		Features: knowledge.Features{
			EnableQuickReplies: true,
			EnableReactions:    true,
			EnableReadReceipts: true,
			EnableLeadScoring:  true,
		},
		QuickReplies: []knowledge.QuickReply{
			{Label: knowledge.Plain("Our services"), Value: "services"},
		},
		ConversationStages: &knowledge.ConversationStages{
			Booking: []knowledge.QuickReply{{Label: knowledge.Plain("Book now"), Value: "book"}},
			General: []knowledge.QuickReply{{Label: knowledge.Plain("Timings"), Value: "timing"}},
		},
	}
}

type captureSink struct {
	mu    sync.Mutex
	leads []leads.LeadData
}

func (c *captureSink) Submit(_ context.Context, lead leads.LeadData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leads = append(c.leads, lead)
}

func (c *captureSink) all() []leads.LeadData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]leads.LeadData(nil), c.leads...)
}

type engineFixture struct {
	engine *Engine
	sink   *captureSink
	now    time.Time
}

func newTestEngine(t *testing.T, tweak func(*Options)) *engineFixture {
	t.Helper()
	fx := &engineFixture{sink: &captureSink{}, now: mondayMorning}
	seq := 0
	opts := Options{
		Business: testBusiness(),
		Client:   testClient(),
		Sink:     fx.sink,
		Logger:   logging.Discard(),
		Now:      func() time.Time { return fx.now },
		NewID: func() string {
			seq++
			return "m" + strconv.Itoa(seq)
		},
	}
	if tweak != nil {
		tweak(&opts)
	}
	e, err := NewEngine(opts)
	require.NoError(t, err)
	fx.engine = e
	return fx
}
