package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sirahlabs/smartchat/internal/hours"
	"github.com/sirahlabs/smartchat/internal/knowledge"
	"github.com/sirahlabs/smartchat/internal/leads"
	"github.com/sirahlabs/smartchat/pkg/logging"
)

// Options configures an Engine.
type Options struct {
	Business *knowledge.BusinessInfo
	Client   *knowledge.ClientConfig
	Sink     LeadSink
	Chain    Chain
	Logger   *logging.Logger

	// Now supplies wall-clock time in the business's location.
	Now func() time.Time
	// TypingDelay pauses before every reply; FollowUpDelay pauses between
	// a lead-intent answer and the name prompt.
	TypingDelay   time.Duration
	FollowUpDelay time.Duration
	NewID         func() string
}

// Engine turns visitor input into bot replies and state transitions. It is
// safe for concurrent use across sessions; a single session must not be
// passed to two calls at once.
type Engine struct {
	business      *knowledge.BusinessInfo
	client        *knowledge.ClientConfig
	sink          LeadSink
	chain         Chain
	logger        *logging.Logger
	now           func() time.Time
	typingDelay   time.Duration
	followUpDelay time.Duration
	newID         func() string
}

// Reply is the outcome of one call.
type Reply struct {
	Messages []Message    `json:"messages"`
	Matcher  MatcherName  `json:"matcher,omitempty"`
	Intent   IntentResult `json:"intent"`
	State    State        `json:"chatState"`
	From     State        `json:"-"`
	// AwaitingConsent asks the host to render the agree/decline choice.
	AwaitingConsent bool `json:"awaitingConsent,omitempty"`
	// Cancelled means the context ended during a typing pause and the
	// remaining bot messages were not emitted.
	Cancelled bool `json:"cancelled,omitempty"`
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.Business == nil || opts.Client == nil {
		return nil, ErrMissingKnowledgeBase
	}
	e := &Engine{
		business:      opts.Business,
		client:        opts.Client,
		sink:          opts.Sink,
		chain:         opts.Chain,
		logger:        opts.Logger,
		now:           opts.Now,
		typingDelay:   opts.TypingDelay,
		followUpDelay: opts.FollowUpDelay,
		newID:         opts.NewID,
	}
	if e.chain == nil {
		e.chain = DefaultChain()
	}
	if e.logger == nil {
		e.logger = logging.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	if e.sink == nil {
		e.sink = LeadSinkFunc(func(context.Context, leads.LeadData) {})
	}
	if err := hours.Validate(opts.Business.WorkingHours.Schedule); err != nil {
		e.logger.Warn("working hours schedule has unreadable entries", "error", err)
	}
	return e, nil
}

// Business returns the loaded business profile.
func (e *Engine) Business() *knowledge.BusinessInfo { return e.business }

// Client returns the loaded widget configuration.
func (e *Engine) Client() *knowledge.ClientConfig { return e.client }

// NewSession starts a session in the deployment's default language.
func (e *Engine) NewSession(id string) *Session {
	if id == "" {
		id = e.newID()
	}
	s := NewSession(id, e.client.ResolveLanguage(e.client.Language))
	s.LastUpdated = e.now()
	return s
}

// SetLanguage switches the session language when the deployment allows it.
func (e *Engine) SetLanguage(s *Session, lang knowledge.Language) {
	s.Lang = e.client.ResolveLanguage(lang)
}

// Welcome emits the welcome message for an empty transcript. A restored
// transcript gets nothing.
func (e *Engine) Welcome(s *Session) Reply {
	if len(s.Messages) > 0 {
		return Reply{State: s.State, From: s.State}
	}
	text := e.client.WelcomeMessage.Get(s.Lang)
	if text == "" {
		text = e.fallbackWelcome(s.Lang)
	}
	msgs := []Message{e.botMessage(s, text, knowledge.StageWelcome)}

	if sched := e.business.WorkingHours.Schedule; sched != nil {
		st := hours.CheckIfOpen(sched, e.now())
		if !st.IsOpen {
			note := e.client.Labels(s.Lang).OutsideHours
			if note == "" {
				note = hours.OutsideHoursMessage(st, s.Lang)
			}
			msgs = append(msgs, e.botMessage(s, note, ""))
		}
	}
	s.append(msgs...)
	s.LastUpdated = e.now()
	return Reply{Messages: msgs, State: s.State, From: s.State}
}

func (e *Engine) fallbackWelcome(lang knowledge.Language) string {
	bot := e.client.BotName
	if bot == "" {
		bot = "your assistant"
	}
	if lang == knowledge.Tamil {
		return "வணக்கம்! நான் " + bot + "."
	}
	return "Hi! I'm " + bot + ". How can I help you today?"
}

// HandleUtterance processes one free-text message.
func (e *Engine) HandleUtterance(ctx context.Context, s *Session, text string) Reply {
	return e.handle(ctx, s, text, "")
}

// HandleQuickReply processes a tapped quick reply. Its value is the
// utterance; its label can escalate to lead capture on its own.
func (e *Engine) HandleQuickReply(ctx context.Context, s *Session, qr knowledge.QuickReply) Reply {
	return e.handle(ctx, s, qr.Value, qr.Label.Get(s.Lang))
}

func (e *Engine) handle(ctx context.Context, s *Session, text, clicked string) Reply {
	from := s.State
	text = strings.TrimSpace(text)
	// An empty line only means something as "skip" on the email step.
	if text == "" && s.LeadField != FieldEmail {
		return Reply{State: s.State, From: from}
	}

	var user *Message
	if text != "" {
		s.append(Message{
			ID:        e.newID(),
			Role:      RoleUser,
			Content:   text,
			Timestamp: e.now(),
			Status:    StatusSent,
		})
		user = &s.Messages[len(s.Messages)-1]
	}
	s.LastUpdated = e.now()

	if err := pause(ctx, e.typingDelay); err != nil {
		return Reply{State: s.State, From: from, Cancelled: true}
	}

	var r Reply
	switch {
	case s.LeadField != FieldNone:
		r = e.collect(ctx, s, text)
	case s.State == StateConsentPending:
		r = Reply{Messages: []Message{e.consentPrompt(s)}, AwaitingConsent: true}
		s.append(r.Messages...)
	default:
		r = e.respond(ctx, s, text, clicked, user)
	}

	if user != nil && len(r.Messages) > 0 {
		e.markSeen(s)
	}
	r.State = s.State
	r.From = from
	s.LastUpdated = e.now()
	return r
}

func (e *Engine) respond(ctx context.Context, s *Session, text, clicked string, user *Message) Reply {
	ans := e.chain.Respond(MatchInput{
		Utterance: text,
		Business:  e.business,
		Lang:      s.Lang,
		Now:       e.now(),
	})
	if ans.Service != "" {
		s.Context.ServiceDiscussed = ans.Service
	}

	scoring := e.client.Features.EnableLeadScoring
	intent := DetectIntent(text, e.business)
	level, highCount := IntentLow, 0
	if scoring {
		if intent.Level == IntentHigh {
			s.Context.HighIntentCount++
		}
		if intent.Level.rank() > s.Context.IntentLevel.rank() {
			s.Context.IntentLevel = intent.Level
		}
		if user != nil {
			user.IntentLevel = intent.Level
		}
		level, highCount = intent.Level, s.Context.HighIntentCount
	}

	startLead := ans.StartLead
	if !startLead && ShouldTriggerLeadCapture(level, highCount, clicked) {
		startLead = true
	}
	if s.State != StateIdle {
		startLead = false
	}

	stage := ans.Stage
	if startLead {
		stage = ""
	}
	r := Reply{Matcher: ans.Matcher, Intent: intent}
	answer := e.botMessage(s, ans.Text, stage)
	s.append(answer)
	r.Messages = append(r.Messages, answer)
	e.logger.Debug("utterance answered", "session_id", s.ID, "matcher", ans.Matcher, "intent", intent.Level)

	if !startLead {
		return r
	}

	// The form only opens once its first prompt is shown.
	if err := pause(ctx, e.followUpDelay); err != nil {
		r.Cancelled = true
		return r
	}
	s.State = StateCollectingLead
	s.LeadField = FieldName
	s.PendingLead = PendingLead{}
	prompt := e.botMessage(s, e.client.Labels(s.Lang).NameLabel, "")
	s.append(prompt)
	r.Messages = append(r.Messages, prompt)
	return r
}

// collect runs one step of the lead form.
func (e *Engine) collect(ctx context.Context, s *Session, text string) Reply {
	labels := e.client.Labels(s.Lang)
	var r Reply
	say := func(content string) {
		m := e.botMessage(s, content, "")
		s.append(m)
		r.Messages = append(r.Messages, m)
	}

	switch s.LeadField {
	case FieldName:
		s.PendingLead.Name = text
		s.LeadField = FieldPhone
		say(labels.PhoneLabel)
	case FieldPhone:
		if !ValidPhone(text) {
			say(invalidPhoneText(s.Lang))
			return r
		}
		s.PendingLead.Phone = text
		s.LeadField = FieldEmail
		say(labels.EmailLabel)
	case FieldEmail:
		email, ok := ParseEmail(text)
		if !ok {
			say(invalidEmailText(s.Lang))
			return r
		}
		s.PendingLead.Email = email
		s.LeadField = FieldNone
		if e.client.RequireConsent {
			s.State = StateConsentPending
			m := e.consentPrompt(s)
			s.append(m)
			r.Messages = append(r.Messages, m)
			r.AwaitingConsent = true
			return r
		}
		r.Messages = append(r.Messages, e.submit(ctx, s))
	}
	return r
}

// HandleConsent resolves a pending consent prompt.
func (e *Engine) HandleConsent(ctx context.Context, s *Session, agreed bool) (Reply, error) {
	from := s.State
	if s.State != StateConsentPending {
		return Reply{State: s.State, From: from}, ErrNotAwaitingConsent
	}
	var msg Message
	if agreed {
		msg = e.submit(ctx, s)
	} else {
		s.State = StateIdle
		s.PendingLead = PendingLead{}
		s.Context.HighIntentCount = 0
		msg = e.botMessage(s, consentDeclinedText(s.Lang), knowledge.StageGeneral)
		s.append(msg)
	}
	s.LastUpdated = e.now()
	return Reply{Messages: []Message{msg}, State: s.State, From: from}, nil
}

// Reset returns a session that finished a lead to idle so it can capture
// another. The transcript is kept.
func (e *Engine) Reset(s *Session) error {
	if s.State != StateLeadSubmitted {
		return ErrInvalidTransition
	}
	s.State = StateIdle
	s.LeadField = FieldNone
	s.PendingLead = PendingLead{}
	s.LastUpdated = e.now()
	return nil
}

// React adds one emoji reaction to a message.
func (e *Engine) React(s *Session, messageID, emoji string) error {
	if !e.client.Features.EnableReactions {
		return ErrReactionsDisabled
	}
	if !isAllowedReaction(emoji) {
		return ErrUnsupportedReaction
	}
	msg, ok := s.Message(messageID)
	if !ok {
		return ErrUnknownMessage
	}
	found := false
	for i := range msg.Reactions {
		if msg.Reactions[i].Emoji == emoji {
			msg.Reactions[i].Count++
			found = true
			break
		}
	}
	if !found {
		msg.Reactions = append(msg.Reactions, Reaction{Emoji: emoji, Count: 1})
	}
	if s.Context.Reactions == nil {
		s.Context.Reactions = make(map[string][]string)
	}
	s.Context.Reactions[messageID] = append(s.Context.Reactions[messageID], emoji)
	s.LastUpdated = e.now()
	return nil
}

func (e *Engine) submit(ctx context.Context, s *Session) Message {
	lead := e.buildLead(s)
	e.sink.Submit(ctx, lead)
	e.logger.Info("lead captured", "session_id", s.ID, "business", lead.BusinessName, "intent", lead.IntentLevel)

	s.State = StateLeadSubmitted
	s.LeadField = FieldNone
	s.PendingLead = PendingLead{}
	s.Context.HighIntentCount = 0
	msg := e.botMessage(s, e.client.Labels(s.Lang).ThankYou, "")
	s.append(msg)
	return msg
}

func (e *Engine) buildLead(s *Session) leads.LeadData {
	lead := leads.LeadData{
		Name:             s.PendingLead.Name,
		Phone:            s.PendingLead.Phone,
		Email:            s.PendingLead.Email,
		Source:           leads.Source,
		Timestamp:        e.now().UTC().Format(isoMillis),
		BusinessName:     e.business.BusinessName,
		ServiceDiscussed: s.Context.ServiceDiscussed,
		QualifyingAnswer: s.Context.QualifyingAnswer,
		PageURL:          s.PageURL,
		Language:         string(s.Lang),
		Reactions:        s.reactionSummary(),
		SessionID:        s.ID,
	}
	if e.client.Features.EnableLeadScoring {
		lead.IntentLevel = string(s.Context.IntentLevel)
	}
	return lead
}

func (e *Engine) consentPrompt(s *Session) Message {
	labels := e.client.Labels(s.Lang)
	return e.botMessage(s, labels.ConsentTitle+"\n\n"+labels.ConsentMessage, "")
}

func (e *Engine) botMessage(s *Session, content string, stage knowledge.Stage) Message {
	m := Message{
		ID:        e.newID(),
		Role:      RoleBot,
		Content:   content,
		Timestamp: e.now(),
	}
	if stage != "" && e.client.Features.EnableQuickReplies {
		m.QuickReplies = e.client.StageReplies(stage)
	}
	return m
}

// markSeen advances visitor messages once the bot has answered.
func (e *Engine) markSeen(s *Session) {
	status := StatusDelivered
	if e.client.Features.EnableReadReceipts {
		status = StatusRead
	}
	for i := range s.Messages {
		m := &s.Messages[i]
		if m.Role == RoleUser && (m.Status == StatusSent || m.Status == StatusSending) {
			m.Status = status
		}
	}
}

// pause sleeps for d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
