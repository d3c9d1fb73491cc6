package webchat

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"github.com/sirahlabs/smartchat/internal/chat"
	"github.com/sirahlabs/smartchat/internal/knowledge"
	"github.com/sirahlabs/smartchat/pkg/logging"
)

//go:embed static/widget.js
var defaultWidgetJS []byte

const maxBodyBytes = 16 << 10

// Handler exposes the chat service over JSON HTTP and a WebSocket.
type Handler struct {
	svc      *Service
	logger   *logging.Logger
	widgetJS []byte
}

// NewHandler creates the web chat handler. A nil widgetJS serves the
// bundled widget script.
func NewHandler(svc *Service, widgetJS []byte, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if len(widgetJS) == 0 {
		widgetJS = defaultWidgetJS
	}
	return &Handler{svc: svc, logger: logger, widgetJS: widgetJS}
}

// Routes returns the /chat subtree.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/config", h.HandleConfig)
	r.Post("/session", h.HandleStart)
	r.Post("/message", h.HandleMessage)
	r.Post("/quick-reply", h.HandleQuickReply)
	r.Post("/consent", h.HandleConsent)
	r.Post("/reaction", h.HandleReaction)
	r.Post("/reset", h.HandleReset)
	r.Post("/language", h.HandleLanguage)
	r.Get("/history", h.HandleHistory)
	r.Get("/ws", h.HandleWebSocket)
	return r
}

// TurnResponse is returned by every state-changing endpoint.
type TurnResponse struct {
	SessionID       string             `json:"session_id"`
	Lang            knowledge.Language `json:"lang"`
	Messages        []chat.Message     `json:"messages"`
	ChatState       chat.State         `json:"chatState"`
	LeadField       chat.LeadField     `json:"leadField,omitempty"`
	AwaitingConsent bool               `json:"awaitingConsent,omitempty"`
	Matcher         chat.MatcherName   `json:"matcher,omitempty"`
	Intent          *chat.IntentResult `json:"intent,omitempty"`
}

func turnResponse(res TurnResult) TurnResponse {
	out := TurnResponse{
		SessionID:       res.Session.ID,
		Lang:            res.Session.Lang,
		Messages:        res.Reply.Messages,
		ChatState:       res.Session.State,
		LeadField:       res.Session.LeadField,
		AwaitingConsent: res.Reply.AwaitingConsent || res.Session.State == chat.StateConsentPending,
		Matcher:         res.Reply.Matcher,
	}
	if out.Messages == nil {
		out.Messages = []chat.Message{}
	}
	if res.Reply.Intent.Level != "" {
		intent := res.Reply.Intent
		out.Intent = &intent
	}
	return out
}

func sessionResponse(sess *chat.Session) TurnResponse {
	msgs := sess.Messages
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return TurnResponse{
		SessionID:       sess.ID,
		Lang:            sess.Lang,
		Messages:        msgs,
		ChatState:       sess.State,
		LeadField:       sess.LeadField,
		AwaitingConsent: sess.State == chat.StateConsentPending,
	}
}

type startRequest struct {
	SessionID string `json:"session_id"`
	Lang      string `json:"lang"`
	PageURL   string `json:"page_url"`
}

type messageRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type quickReplyRequest struct {
	SessionID string `json:"session_id"`
	Value     string `json:"value"`
	Label     string `json:"label"`
}

type consentRequest struct {
	SessionID string `json:"session_id"`
	Agreed    bool   `json:"agreed"`
}

type reactionRequest struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
	Lang      string `json:"lang"`
}

// HandleStart opens or resumes a session. The response carries the whole
// transcript so a reloaded widget can redraw it.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Start(r.Context(), req.SessionID, parseLang(req.Lang), req.PageURL)
	if err != nil {
		h.fail(w, err)
		return
	}
	out := sessionResponse(res.Session)
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	res, err := h.svc.Message(r.Context(), req.SessionID, req.Text, "http")
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turnResponse(res))
}

func (h *Handler) HandleQuickReply(w http.ResponseWriter, r *http.Request) {
	var req quickReplyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.SessionID == "" || strings.TrimSpace(req.Value) == "" {
		http.Error(w, "session_id and value are required", http.StatusBadRequest)
		return
	}
	qr := knowledge.QuickReply{Label: knowledge.Plain(req.Label), Value: req.Value}
	res, err := h.svc.QuickReply(r.Context(), req.SessionID, qr, "http")
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turnResponse(res))
}

func (h *Handler) HandleConsent(w http.ResponseWriter, r *http.Request) {
	var req consentRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Consent(r.Context(), req.SessionID, req.Agreed)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turnResponse(res))
}

func (h *Handler) HandleReaction(w http.ResponseWriter, r *http.Request) {
	var req reactionRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.svc.React(r.Context(), req.SessionID, req.MessageID, req.Emoji)
	if err != nil {
		h.fail(w, err)
		return
	}
	msg, _ := sess.Message(req.MessageID)
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"message":    msg,
	})
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.svc.Reset(r.Context(), req.SessionID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

func (h *Handler) HandleLanguage(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.svc.SetLanguage(r.Context(), req.SessionID, parseLang(req.Lang))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// HandleHistory returns the stored transcript for ?session=.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	sess, err := h.svc.History(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// HandleConfig returns the public widget configuration.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	client := h.svc.Engine().Client()
	lang := client.ResolveLanguage(parseLang(r.URL.Query().Get("lang")))
	writeJSON(w, http.StatusOK, map[string]any{
		"botName":        client.BotName,
		"businessName":   h.svc.Engine().Business().BusinessName,
		"lang":           lang,
		"enableTamil":    client.EnableTamil,
		"requireConsent": client.RequireConsent,
		"theme":          client.Theme,
		"features":       client.Features,
		"labels":         client.Labels(lang),
		"reactions":      chat.Reactions,
	})
}

// HandleWidgetJS serves the embeddable widget script.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(h.widgetJS)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("webchat request failed", "error", err)
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownSession), errors.Is(err, chat.ErrUnknownMessage):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrNotAwaitingConsent), errors.Is(err, chat.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, chat.ErrReactionsDisabled):
		return http.StatusForbidden
	case errors.Is(err, chat.ErrUnsupportedReaction):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func parseLang(v string) knowledge.Language {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return knowledge.ParseLanguage(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Inbound is a frame sent by the widget over the WebSocket.
type Inbound struct {
	Type      string `json:"type"` // message, quick_reply, consent, reaction, reset, language, ping
	Text      string `json:"text,omitempty"`
	Value     string `json:"value,omitempty"`
	Label     string `json:"label,omitempty"`
	Agreed    bool   `json:"agreed,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Emoji     string `json:"emoji,omitempty"`
	Lang      string `json:"lang,omitempty"`
}

// Outbound is a frame sent to the widget.
type Outbound struct {
	Type            string         `json:"type"` // session, typing, message, reaction, state, error, pong
	SessionID       string         `json:"session_id,omitempty"`
	Message         *chat.Message  `json:"message,omitempty"`
	Messages        []chat.Message `json:"messages,omitempty"`
	ChatState       chat.State     `json:"chatState,omitempty"`
	LeadField       chat.LeadField `json:"leadField,omitempty"`
	AwaitingConsent bool           `json:"awaitingConsent,omitempty"`
	Lang            string         `json:"lang,omitempty"`
	Text            string         `json:"text,omitempty"`
}

// HandleWebSocket upgrades to a WebSocket carrying one session. Closing the
// socket cancels any turn still waiting out its typing delay.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	q := r.URL.Query()
	res, err := h.svc.Start(ctx, q.Get("session"), parseLang(q.Get("lang")), q.Get("page"))
	if err != nil {
		_ = websocket.JSON.Send(conn, Outbound{Type: "error", Text: "could not start session"})
		return
	}
	sessionID := res.Session.ID
	start := sessionResponse(res.Session)
	if err := websocket.JSON.Send(conn, Outbound{
		Type:            "session",
		SessionID:       sessionID,
		Messages:        start.Messages,
		ChatState:       start.ChatState,
		LeadField:       start.LeadField,
		AwaitingConsent: start.AwaitingConsent,
		Lang:            string(start.Lang),
	}); err != nil {
		return
	}
	h.logger.Info("webchat connection opened", "session_id", sessionID)

	inbound := make(chan Inbound)
	go func() {
		defer cancel()
		defer close(inbound)
		for {
			var msg Inbound
			if err := websocket.JSON.Receive(conn, &msg); err != nil {
				h.logger.Debug("webchat connection closed", "session_id", sessionID, "error", err)
				return
			}
			select {
			case inbound <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for msg := range inbound {
		if err := h.handleFrame(ctx, conn, sessionID, msg); err != nil {
			return
		}
	}
}

// handleFrame processes one inbound frame. A returned error means the
// socket is unusable.
func (h *Handler) handleFrame(ctx context.Context, conn *websocket.Conn, id string, msg Inbound) error {
	send := func(out Outbound) error { return websocket.JSON.Send(conn, out) }

	var (
		res TurnResult
		err error
	)
	switch msg.Type {
	case "ping":
		return send(Outbound{Type: "pong"})
	case "message":
		if err := send(Outbound{Type: "typing"}); err != nil {
			return err
		}
		res, err = h.svc.Message(ctx, id, msg.Text, "ws")
	case "quick_reply":
		if err := send(Outbound{Type: "typing"}); err != nil {
			return err
		}
		res, err = h.svc.QuickReply(ctx, id, knowledge.QuickReply{Label: knowledge.Plain(msg.Label), Value: msg.Value}, "ws")
	case "consent":
		res, err = h.svc.Consent(ctx, id, msg.Agreed)
	case "reaction":
		sess, rerr := h.svc.React(ctx, id, msg.MessageID, msg.Emoji)
		if rerr != nil {
			return send(Outbound{Type: "error", Text: rerr.Error()})
		}
		m, _ := sess.Message(msg.MessageID)
		return send(Outbound{Type: "reaction", Message: m})
	case "reset", "language":
		var sess *chat.Session
		if msg.Type == "reset" {
			sess, err = h.svc.Reset(ctx, id)
		} else {
			sess, err = h.svc.SetLanguage(ctx, id, parseLang(msg.Lang))
		}
		if err != nil {
			return send(Outbound{Type: "error", Text: err.Error()})
		}
		return send(stateFrame(sessionResponse(sess)))
	default:
		return nil
	}

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		text := "Sorry, something went wrong. Please try again."
		if statusFor(err) < http.StatusInternalServerError {
			text = err.Error()
		} else {
			h.logger.Error("webchat turn failed", "session_id", id, "error", err)
		}
		return send(Outbound{Type: "error", Text: text})
	}
	if res.Reply.Cancelled {
		return ctx.Err()
	}
	for i := range res.Reply.Messages {
		if err := send(Outbound{Type: "message", Message: &res.Reply.Messages[i]}); err != nil {
			return err
		}
	}
	return send(stateFrame(turnResponse(res)))
}

func stateFrame(t TurnResponse) Outbound {
	return Outbound{
		Type:            "state",
		SessionID:       t.SessionID,
		ChatState:       t.ChatState,
		LeadField:       t.LeadField,
		AwaitingConsent: t.AwaitingConsent,
		Lang:            string(t.Lang),
	}
}
