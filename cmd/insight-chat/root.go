package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/insight-agent/internal/adapters/tui"
	"github.com/PabloGalante/insight-agent/internal/app/conversation"
	"github.com/PabloGalante/insight-agent/internal/bootstrap"
	"github.com/PabloGalante/insight-agent/internal/config"
	"github.com/PabloGalante/insight-agent/internal/domain"
	"github.com/PabloGalante/insight-agent/internal/observability"
)

type rootOptions struct {
	keywords string
	step     int
	delay    time.Duration
	user     string
	logFile  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "insight-chat",
		Short: "Chat with the marketing insight agent in the terminal",
		Long: `Opens a two-pane terminal UI: the conversation on the left and the
dashboard selected by your last question on the right.

Ask about performance or attribution ("기여도", "성과 분석") or about
campaign lift ("효과 검증"); type /home to return to the main dashboard.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.keywords, "keywords", "", "YAML keyword catalog (default: built-in vocabulary)")
	cmd.PersistentFlags().IntVar(&opts.step, "step", 0, "transition progress per step, 1-100 (default from config)")
	cmd.PersistentFlags().DurationVar(&opts.delay, "delay", 0, "pause between transition steps (default from config)")
	cmd.PersistentFlags().StringVar(&opts.user, "user", "", "user id for the session (default: $USER)")
	cmd.Flags().StringVar(&opts.logFile, "log-file", filepath.Join(os.TempDir(), "insight-chat.log"), "where to write logs")

	cmd.AddCommand(newAskCmd(opts))
	return cmd
}

// loadConfig merges flags over the environment config.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.keywords != "" {
		cfg.KeywordsFile = opts.keywords
	}
	if cmd.Flags().Changed("step") {
		cfg.TransitionStep = opts.step
	}
	if cmd.Flags().Changed("delay") {
		cfg.TransitionDelay = opts.delay
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func userID(opts *rootOptions) domain.UserID {
	if opts.user != "" {
		return domain.UserID(opts.user)
	}
	if u := os.Getenv("USER"); u != "" {
		return domain.UserID(u)
	}
	return "local"
}

func runChat(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	logFile, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	observability.Configure(logFile, cfg.LogLevel)

	app, err := bootstrap.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	return tui.Run(cmd.Context(), tui.Config{
		Service:   app.Service,
		UserID:    userID(opts),
		StepDelay: cfg.TransitionDelay,
	})
}

// newAskCmd answers one question without the UI, useful in scripts.
func newAskCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the reply and resulting view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			cfg.TransitionDelay = 0
			observability.Configure(cmd.ErrOrStderr(), "error")

			app, err := bootstrap.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			started, err := app.Service.StartSession(cmd.Context(), conversation.StartSessionInput{UserID: userID(root)})
			if err != nil {
				return err
			}
			out, err := app.Service.Submit(cmd.Context(), conversation.SendMessageInput{
				SessionID: started.Session.ID,
				UserID:    started.Session.UserID,
				Text:      args[0],
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, out.AgentMessage.Text)
			fmt.Fprintf(w, "view: %s\n", out.Session.View.Mode)
			return nil
		},
	}
}
