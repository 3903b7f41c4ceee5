package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/chatbox/internal/tui"
)

func newTUICmd(flags *rootFlags) *cobra.Command {
	var (
		logFile  string
		markdown bool
	)

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the chat widget in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return errors.New("tui needs an interactive terminal, use `chatbox send` instead")
			}

			// The widget owns the screen, so logs go to a file or nowhere.
			var logOut io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return errors.Wrap(err, "failed to open log file")
				}
				defer f.Close()
				logOut = f
			}

			a, err := loadApp(cmd, flags, logOut)
			if err != nil {
				return err
			}

			session, err := a.chatSvc.CreateSession(cmd.Context(), a.cfg.Chat.Profile)
			if err != nil {
				return errors.Wrap(err, "failed to create session")
			}
			defer a.chatSvc.CloseSession(cmd.Context(), session.ID) //nolint:errcheck

			conv, err := a.chatSvc.Conversation(cmd.Context(), session.ID)
			if err != nil {
				return err
			}
			p, err := a.chatSvc.Profile(cmd.Context(), session.ID)
			if err != nil {
				return err
			}

			if err := tui.Run(cmd.Context(), conv, p, tui.WithMarkdown(markdown)); err != nil {
				return errors.Wrap(err, "tui exited")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file while the widget is open")
	cmd.Flags().BoolVar(&markdown, "markdown", true, "render bot replies as markdown")
	return cmd
}
