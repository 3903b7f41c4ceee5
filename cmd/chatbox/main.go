package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("chatbox failed")
		os.Exit(1)
	}
}

type rootFlags struct {
	endpoint string
	profile  string
	logLevel string
	strict   bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "chatbox",
		Short:         "Chat widget backed by a GraphQL postMessage endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.endpoint, "endpoint", "", "GraphQL endpoint (overrides CHATBOX_ENDPOINT)")
	pf.StringVar(&flags.profile, "profile", "", "widget profile / locale (overrides CHATBOX_PROFILE)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	pf.BoolVar(&flags.strict, "strict-replies", false, "treat replies without postMessage as failures")

	root.AddCommand(
		newServeCmd(flags),
		newTUICmd(flags),
		newSendCmd(flags),
	)
	return root
}
