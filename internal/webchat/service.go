package webchat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sirahlabs/smartchat/internal/chat"
	"github.com/sirahlabs/smartchat/internal/knowledge"
	"github.com/sirahlabs/smartchat/internal/observability/metrics"
	"github.com/sirahlabs/smartchat/internal/session"
	"github.com/sirahlabs/smartchat/pkg/logging"
)

// ErrUnknownSession is returned for operations on a session that was never
// started or has expired.
var ErrUnknownSession = errors.New("webchat: unknown session")

const idleEviction = 30 * time.Minute

// Saver persists session snapshots; *session.AsyncWriter satisfies it.
type Saver interface {
	Enqueue(s *chat.Session) bool
}

// Service runs chat turns for many visitors. Live sessions stay in memory
// and are written behind through the Saver; the Store is consulted only when
// a session is not live, e.g. after a restart.
type Service struct {
	engine  *chat.Engine
	store   session.Store
	saver   Saver
	audit   *AuditLog
	metrics *metrics.ChatMetrics
	logger  *logging.Logger
	now     func() time.Time

	mu   sync.Mutex
	live map[string]*liveSession
}

type liveSession struct {
	mu       sync.Mutex
	sess     *chat.Session
	lastUsed time.Time
}

type ServiceOptions struct {
	Engine  *chat.Engine
	Store   session.Store
	Saver   Saver
	Audit   *AuditLog
	Metrics *metrics.ChatMetrics
	Logger  *logging.Logger
}

func NewService(opts ServiceOptions) *Service {
	if opts.Engine == nil {
		panic("webchat: engine cannot be nil")
	}
	if opts.Store == nil {
		opts.Store = session.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return &Service{
		engine:  opts.Engine,
		store:   opts.Store,
		saver:   opts.Saver,
		audit:   opts.Audit,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		now:     time.Now,
		live:    make(map[string]*liveSession),
	}
}

// Engine exposes the underlying engine for read-only lookups.
func (s *Service) Engine() *chat.Engine { return s.engine }

// TurnResult is a reply together with the session it was applied to.
type TurnResult struct {
	Session *chat.Session
	Reply   chat.Reply
}

// Start resumes id when a usable transcript exists, otherwise it opens a new
// session and emits the welcome messages. An empty id mints one.
func (s *Service) Start(ctx context.Context, id string, lang knowledge.Language, pageURL string) (TurnResult, error) {
	if id == "" {
		id = uuid.NewString()
	}
	var res TurnResult
	err := s.withSession(ctx, id, true, func(sess *chat.Session) error {
		if lang != "" {
			s.engine.SetLanguage(sess, lang)
		}
		if pageURL != "" {
			sess.PageURL = pageURL
		}
		res.Reply = s.engine.Welcome(sess)
		res.Session = sess.Clone()
		return nil
	})
	return res, err
}

// Message runs one free-text turn.
func (s *Service) Message(ctx context.Context, id, text, transport string) (TurnResult, error) {
	return s.turn(ctx, id, transport, func(sess *chat.Session) chat.Reply {
		return s.engine.HandleUtterance(ctx, sess, text)
	})
}

// QuickReply runs a tapped quick reply as a turn.
func (s *Service) QuickReply(ctx context.Context, id string, qr knowledge.QuickReply, transport string) (TurnResult, error) {
	return s.turn(ctx, id, transport, func(sess *chat.Session) chat.Reply {
		return s.engine.HandleQuickReply(ctx, sess, qr)
	})
}

// Consent answers a pending consent prompt.
func (s *Service) Consent(ctx context.Context, id string, agreed bool) (TurnResult, error) {
	var res TurnResult
	err := s.withSession(ctx, id, false, func(sess *chat.Session) error {
		reply, err := s.engine.HandleConsent(ctx, sess, agreed)
		if err != nil {
			return err
		}
		s.observe(sess, reply, "", 0)
		s.audit.ConsentDecision(ctx, s.business(), sess.ID, agreed, string(sess.Lang))
		res = TurnResult{Session: sess.Clone(), Reply: reply}
		return nil
	})
	return res, err
}

// React adds a reaction to one of the session's messages.
func (s *Service) React(ctx context.Context, id, messageID, emoji string) (*chat.Session, error) {
	var out *chat.Session
	err := s.withSession(ctx, id, false, func(sess *chat.Session) error {
		if err := s.engine.React(sess, messageID, emoji); err != nil {
			return err
		}
		out = sess.Clone()
		return nil
	})
	return out, err
}

// Reset lets a session that already submitted a lead capture another.
func (s *Service) Reset(ctx context.Context, id string) (*chat.Session, error) {
	var out *chat.Session
	err := s.withSession(ctx, id, false, func(sess *chat.Session) error {
		from := sess.State
		if err := s.engine.Reset(sess); err != nil {
			return err
		}
		s.metrics.ObserveTransition(string(from), string(sess.State))
		out = sess.Clone()
		return nil
	})
	return out, err
}

// SetLanguage switches the session language.
func (s *Service) SetLanguage(ctx context.Context, id string, lang knowledge.Language) (*chat.Session, error) {
	var out *chat.Session
	err := s.withSession(ctx, id, false, func(sess *chat.Session) error {
		s.engine.SetLanguage(sess, lang)
		out = sess.Clone()
		return nil
	})
	return out, err
}

// History returns a copy of the session without changing it.
func (s *Service) History(ctx context.Context, id string) (*chat.Session, error) {
	var out *chat.Session
	err := s.withSessionReadOnly(ctx, id, func(sess *chat.Session) {
		out = sess.Clone()
	})
	return out, err
}

func (s *Service) turn(ctx context.Context, id, transport string, run func(*chat.Session) chat.Reply) (TurnResult, error) {
	var res TurnResult
	err := s.withSession(ctx, id, false, func(sess *chat.Session) error {
		start := s.now()
		reply := run(sess)
		s.observe(sess, reply, transport, s.now().Sub(start).Seconds())
		if reply.AwaitingConsent {
			labels := s.engine.Client().Labels(sess.Lang)
			s.audit.ConsentRequested(ctx, s.business(), sess.ID, labels.ConsentMessage, string(sess.Lang))
		}
		res = TurnResult{Session: sess.Clone(), Reply: reply}
		return nil
	})
	return res, err
}

// observe records turn metrics when transport is set; state transitions are
// always recorded.
func (s *Service) observe(sess *chat.Session, reply chat.Reply, transport string, seconds float64) {
	if transport != "" && !reply.Cancelled && len(reply.Messages) > 0 {
		s.metrics.ObserveTurn(string(reply.Matcher), string(sess.Lang))
		if reply.Intent.Level != "" {
			s.metrics.ObserveIntent(string(reply.Intent.Level))
		}
		s.metrics.ObserveTurnLatency(transport, seconds)
	}
	s.metrics.ObserveTransition(string(reply.From), string(reply.State))
	if reply.From != reply.State {
		s.logger.Info("chat state changed", "session_id", sess.ID, "from", reply.From, "to", reply.State)
	}
}

func (s *Service) business() string {
	return s.engine.Business().BusinessName
}

// withSession runs fn with exclusive access to session id and schedules a
// save afterwards. With create set, a missing session is started fresh.
func (s *Service) withSession(ctx context.Context, id string, create bool, fn func(*chat.Session) error) error {
	ls, err := s.acquire(ctx, id, create)
	if err != nil {
		return err
	}
	defer ls.mu.Unlock()

	if err := fn(ls.sess); err != nil {
		return err
	}
	ls.lastUsed = s.now()
	if s.saver != nil {
		s.saver.Enqueue(ls.sess)
	}
	return nil
}

func (s *Service) withSessionReadOnly(ctx context.Context, id string, fn func(*chat.Session)) error {
	ls, err := s.acquire(ctx, id, false)
	if err != nil {
		return err
	}
	defer ls.mu.Unlock()
	fn(ls.sess)
	return nil
}

// acquire returns the live entry for id with its lock held.
func (s *Service) acquire(ctx context.Context, id string, create bool) (*liveSession, error) {
	if id == "" {
		return nil, ErrUnknownSession
	}
	ls := s.entry(id)
	for !s.lockLive(id, ls) {
		ls = s.entry(id)
	}
	if ls.sess != nil {
		return ls, nil
	}

	sess, err := s.store.Load(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrCorrupt):
		s.logger.Warn("discarding corrupt transcript", "session_id", id, "error", err)
		sess = s.engine.NewSession(id)
	case session.Discarded(err) && create:
		sess = s.engine.NewSession(id)
	case session.Discarded(err):
		s.drop(id, ls)
		ls.mu.Unlock()
		return nil, ErrUnknownSession
	default:
		s.metrics.ObserveSessionStoreError("load")
		s.logger.Error("session load failed", "session_id", id, "error", err)
		if !create {
			s.drop(id, ls)
			ls.mu.Unlock()
			return nil, fmt.Errorf("webchat: load session: %w", err)
		}
		sess = s.engine.NewSession(id)
	}
	ls.sess = sess
	ls.lastUsed = s.now()
	return ls, nil
}

// entry returns the live entry for id, registering an empty one if needed.
func (s *Service) entry(id string) *liveSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.live[id]
	if !ok {
		ls = &liveSession{}
		s.live[id] = ls
	}
	return ls
}

// lockLive locks ls and reports whether it is still the live entry for id.
// An entry evicted or dropped while the caller waited is left unlocked.
func (s *Service) lockLive(id string, ls *liveSession) bool {
	ls.mu.Lock()
	s.mu.Lock()
	current := s.live[id] == ls
	s.mu.Unlock()
	if !current {
		ls.mu.Unlock()
	}
	return current
}

func (s *Service) drop(id string, ls *liveSession) {
	s.mu.Lock()
	if s.live[id] == ls {
		delete(s.live, id)
	}
	s.mu.Unlock()
}

// Evict forgets live sessions idle for longer than the eviction window.
// Their transcripts remain in the store.
func (s *Service) Evict() int {
	cutoff := s.now().Add(-idleEviction)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, ls := range s.live {
		if !ls.mu.TryLock() {
			continue
		}
		if ls.sess != nil && ls.lastUsed.Before(cutoff) {
			delete(s.live, id)
			n++
		}
		ls.mu.Unlock()
	}
	return n
}
