package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/chatbox/internal/model/chat"
)

func newSendCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "send <text>",
		Short: "Send one message and print the resulting thread",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			session, err := a.chatSvc.CreateSession(ctx, a.cfg.Chat.Profile)
			if err != nil {
				return errors.Wrap(err, "failed to create session")
			}
			defer a.chatSvc.CloseSession(ctx, session.ID) //nolint:errcheck

			conv, err := a.chatSvc.Conversation(ctx, session.ID)
			if err != nil {
				return err
			}

			if err := conv.Submit(strings.Join(args, " ")); err != nil {
				return errors.Wrap(err, "failed to send message")
			}
			conv.Wait()

			printThread(cmd.OutOrStdout(), conv.Snapshot())
			return nil
		},
	}
}

func printThread(w io.Writer, snap chat.Snapshot) {
	for _, msg := range snap.Messages {
		fmt.Fprintf(w, "%s: %s\n", msg.Sender, msg.Text)
	}
}
