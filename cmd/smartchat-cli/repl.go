package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirahlabs/smartchat/internal/chat"
	"github.com/sirahlabs/smartchat/internal/knowledge"
	"github.com/sirahlabs/smartchat/internal/leads"
)

const replHelp = `commands:
  /agree, /decline     answer the consent prompt
  /react <n> <emoji>   react to bot message n
  /lang <en|ta>        switch language
  /reset               start a new lead after submitting one
  /quit                exit
  <number>             tap a quick reply`

func printLeadSink(w io.Writer) chat.LeadSink {
	return chat.LeadSinkFunc(func(_ context.Context, lead leads.LeadData) {
		data, _ := json.Marshal(lead)
		fmt.Fprintf(w, "[lead] %s\n", data)
	})
}

// repl holds the terminal-side view of one session.
type repl struct {
	engine  *chat.Engine
	sess    *chat.Session
	out     io.Writer
	choices []knowledge.QuickReply
	botIDs  []string
}

func runREPL(ctx context.Context, engine *chat.Engine, lang knowledge.Language, in io.Reader, out io.Writer) error {
	r := &repl{engine: engine, sess: engine.NewSession("cli"), out: out}
	if lang != "" {
		engine.SetLanguage(r.sess, lang)
	}
	r.print(engine.Welcome(r.sess))
	fmt.Fprintln(out, "(type /help for commands)")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if done := r.handle(ctx, scanner.Text()); done {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	fields := strings.Fields(trimmed)
	switch {
	case trimmed == "/quit":
		return true
	case trimmed == "/help":
		fmt.Fprintln(r.out, replHelp)
	case trimmed == "/agree" || trimmed == "/decline":
		reply, err := r.engine.HandleConsent(ctx, r.sess, trimmed == "/agree")
		if err != nil {
			fmt.Fprintf(r.out, "! %v\n", err)
			return false
		}
		r.print(reply)
	case trimmed == "/reset":
		if err := r.engine.Reset(r.sess); err != nil {
			fmt.Fprintf(r.out, "! %v\n", err)
			return false
		}
		fmt.Fprintln(r.out, "(session reset)")
	case len(fields) == 2 && fields[0] == "/lang":
		r.engine.SetLanguage(r.sess, knowledge.ParseLanguage(fields[1]))
		fmt.Fprintf(r.out, "(language: %s)\n", r.sess.Lang)
	case len(fields) == 3 && fields[0] == "/react":
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 || n > len(r.botIDs) {
			fmt.Fprintln(r.out, "! no such message")
			return false
		}
		if err := r.engine.React(r.sess, r.botIDs[n-1], fields[2]); err != nil {
			fmt.Fprintf(r.out, "! %v\n", err)
			return false
		}
		fmt.Fprintf(r.out, "(reacted %s to #%d)\n", fields[2], n)
	default:
		if n, err := strconv.Atoi(trimmed); err == nil && n >= 1 && n <= len(r.choices) {
			r.print(r.engine.HandleQuickReply(ctx, r.sess, r.choices[n-1]))
			return false
		}
		r.print(r.engine.HandleUtterance(ctx, r.sess, line))
	}
	return false
}

func (r *repl) print(reply chat.Reply) {
	for _, m := range reply.Messages {
		r.botIDs = append(r.botIDs, m.ID)
		fmt.Fprintf(r.out, "#%d %s\n", len(r.botIDs), m.Content)
		if len(m.QuickReplies) > 0 {
			r.choices = m.QuickReplies
			for i, qr := range m.QuickReplies {
				fmt.Fprintf(r.out, "   [%d] %s\n", i+1, qr.Label.Get(r.sess.Lang))
			}
		}
	}
	if reply.AwaitingConsent {
		labels := r.engine.Client().Labels(r.sess.Lang)
		fmt.Fprintf(r.out, "   /agree (%s)  /decline (%s)\n", labels.ConsentAgree, labels.ConsentDecline)
	}
}
