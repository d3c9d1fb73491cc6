package webchat

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sirahlabs/smartchat/internal/chat"
	"github.com/sirahlabs/smartchat/internal/knowledge"
	"github.com/sirahlabs/smartchat/internal/leads"
	"github.com/sirahlabs/smartchat/internal/session"
	"github.com/sirahlabs/smartchat/pkg/logging"
)

func testKnowledge() (*knowledge.BusinessInfo, *knowledge.ClientConfig) {
	info := &knowledge.BusinessInfo{
		BusinessName: "Sirah Dental Care",
		Location:     "12 Anna Salai, Chennai",
		Phone:        "+91 44 1234 5678",
		Email:        "hello@sirahdental.example",
		Services: []knowledge.Service{
			{Name: knowledge.Plain("Teeth Cleaning"), Description: knowledge.Plain("Professional scaling")},
		},
		Intents: knowledge.Intents{
			{Name: "appointment", Keywords: []string{"appointment", "book"}, Response: knowledge.Plain("I'd be happy to help you book!")},
		},
	}
	client := &knowledge.ClientConfig{
		BotName:        "Sirah Assistant",
		Language:       knowledge.English,
		Mode:           knowledge.ModeBrowser,
		WelcomeMessage: knowledge.Plain("Hi! How can we help you today?"),
		Features: knowledge.Features{
			EnableReactions:   true,
			EnableLeadScoring: true,
		},
	}
	return info, client
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

// syncSaver writes straight through to a store so tests can observe saves
// without waiting on a background goroutine.
type syncSaver struct {
	store session.Store
	saves int
}

func (s *syncSaver) Enqueue(sess *chat.Session) bool {
	s.saves++
	return s.store.Save(context.Background(), sess.Clone()) == nil
}

type fakeAuditor struct {
	mu        sync.Mutex
	requested []string
	decisions []bool
	captured  [][]string
}

func (f *fakeAuditor) LogConsentRequested(_ context.Context, _, sessionID, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, sessionID)
	return nil
}

func (f *fakeAuditor) LogConsentDecision(_ context.Context, _, _ string, granted bool, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, granted)
	return nil
}

func (f *fakeAuditor) LogLeadCaptured(_ context.Context, _, _, _ string, fields []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captured = append(f.captured, fields)
	return nil
}

type serviceFixture struct {
	svc   *Service
	sink  *captureSink
	store *session.MemoryStore
	saver *syncSaver
	audit *fakeAuditor
	log   *AuditLog
}

func newTestService(t *testing.T, tweak func(*knowledge.ClientConfig)) *serviceFixture {
	t.Helper()
	info, client := testKnowledge()
	if tweak != nil {
		tweak(client)
	}
	fx := &serviceFixture{
		sink:  &captureSink{},
		store: session.NewMemoryStore(),
		audit: &fakeAuditor{},
	}
	fx.saver = &syncSaver{store: fx.store}
	fx.log = NewAuditLog(fx.audit, logging.Discard())
	seq := 0
	engine, err := chat.NewEngine(chat.Options{
		Business: info,
		Client:   client,
		Sink:     fx.log.Sink(fx.sink),
		Logger:   logging.Discard(),
		NewID: func() string {
			seq++
			return "m" + strconv.Itoa(seq)
		},
	})
	require.NoError(t, err)
	fx.svc = NewService(ServiceOptions{
		Engine: engine,
		Store:  fx.store,
		Saver:  fx.saver,
		Audit:  fx.log,
		Logger: logging.Discard(),
	})
	return fx
}
