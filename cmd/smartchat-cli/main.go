// Command smartchat-cli drives the chat engine from a terminal against local
// knowledge documents.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sirahlabs/smartchat/internal/chat"
	appconfig "github.com/sirahlabs/smartchat/internal/config"
	"github.com/sirahlabs/smartchat/internal/hours"
	"github.com/sirahlabs/smartchat/internal/knowledge"
)

type rootOptions struct {
	clientConfig string
	businessInfo string
	lang         string
	timezone     string
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(appconfig.Load()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *appconfig.Config) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "smartchat-cli",
		Short:        "Talk to the SmartChat engine from a terminal",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.clientConfig, "client-config", cfg.ClientConfigPath, "path to client-config.json")
	root.PersistentFlags().StringVar(&opts.businessInfo, "business-info", cfg.BusinessInfoPath, "path to business_info.json")
	root.PersistentFlags().StringVar(&opts.lang, "lang", "", "conversation language (en or ta)")
	root.PersistentFlags().StringVar(&opts.timezone, "tz", cfg.BusinessTimezone, "IANA zone the opening hours are written in")

	root.AddCommand(newChatCmd(opts, cfg), newClassifyCmd(opts), newHoursCmd(opts), newValidateCmd(opts), newPublishCmd(opts, cfg))
	return root
}

func (o *rootOptions) load(ctx context.Context) (*knowledge.Bundle, error) {
	return knowledge.Load(ctx, knowledge.FileSource{}, o.clientConfig, o.businessInfo)
}

func (o *rootOptions) location() *time.Location {
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func newChatCmd(opts *rootOptions, cfg *appconfig.Config) *cobra.Command {
	var typingDelay time.Duration
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bundle, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			loc := opts.location()
			out := cmd.OutOrStdout()
			engine, err := chat.NewEngine(chat.Options{
				Business:      bundle.Business,
				Client:        bundle.Client,
				Sink:          printLeadSink(out),
				Now:           func() time.Time { return time.Now().In(loc) },
				TypingDelay:   typingDelay,
				FollowUpDelay: typingDelay,
			})
			if err != nil {
				return err
			}
			return runREPL(cmd.Context(), engine, knowledge.ParseLanguage(opts.lang), cmd.InOrStdin(), out)
		},
	}
	cmd.Flags().DurationVar(&typingDelay, "typing-delay", cfg.TypingDelay, "pause before each bot reply")
	return cmd
}

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <utterance>",
		Short: "Show which responder answers an utterance and its intent score",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			lang := bundle.Client.ResolveLanguage(knowledge.ParseLanguage(opts.lang))
			ans := chat.DefaultChain().Respond(chat.MatchInput{
				Utterance: text,
				Business:  bundle.Business,
				Lang:      lang,
				Now:       time.Now().In(opts.location()),
			})
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"utterance": text,
				"matcher":   ans.Matcher,
				"startLead": ans.StartLead,
				"intent":    chat.DetectIntent(text, bundle.Business),
				"answer":    ans.Text,
			})
		},
	}
}

func newHoursCmd(opts *rootOptions) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "hours",
		Short: "Report whether the business is open",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bundle, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			now := time.Now().In(opts.location())
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = t.In(opts.location())
			}
			wh := bundle.Business.WorkingHours
			lang := bundle.Client.ResolveLanguage(knowledge.ParseLanguage(opts.lang))
			st := hours.CheckIfOpen(wh.Schedule, now)
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"at":      now.Format(time.RFC3339),
				"status":  st,
				"hours":   hours.Text(wh, lang),
				"message": hours.OutsideHoursMessage(st, lang),
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluate at this RFC3339 time instead of now")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
