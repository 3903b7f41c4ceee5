package main

import (
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/chatbox/internal/client/graphql"
	"github.com/zhouzirui/chatbox/internal/config"
	"github.com/zhouzirui/chatbox/internal/logging"
	"github.com/zhouzirui/chatbox/internal/model/profile"
	chatService "github.com/zhouzirui/chatbox/internal/service/chat"
)

// app bundles what every subcommand needs.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	profiles *profile.MemoryStore
	client   *graphql.Client
	chatSvc  *chatService.Service
}

// loadApp reads .env and the environment, applies flag overrides and wires
// the chat service. logOut receives log output.
func loadApp(cmd *cobra.Command, flags *rootFlags, logOut io.Writer) (*app, error) {
	envErr := godotenv.Load()

	cfg, err := config.Decode()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	pf := cmd.Flags()
	if pf.Changed("endpoint") {
		cfg.Chat.Endpoint = flags.endpoint
	}
	if pf.Changed("profile") {
		cfg.Chat.Profile = flags.profile
	}
	if pf.Changed("log-level") {
		cfg.Logging.Level = flags.logLevel
	}
	if pf.Changed("strict-replies") {
		cfg.Chat.StrictReplies = flags.strict
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	if logOut == nil {
		logOut = os.Stderr
	}
	logger := logging.Setup(logOut, cfg.Logging.Level, cfg.Logging.Format)
	if envErr != nil && !os.IsNotExist(envErr) {
		logger.Warn().Err(envErr).Msg("failed to load .env file, continuing with system environment variables only")
	}

	profiles := profile.NewMemoryStore(profile.Seed())
	if _, ok := profiles.FindByID(cfg.Chat.Profile); !ok {
		return nil, errors.Errorf("unknown profile %q", cfg.Chat.Profile)
	}

	client := graphql.New(cfg.Chat.Endpoint,
		graphql.WithTimeout(cfg.Chat.RequestTimeout),
		graphql.WithLogger(logger.With().Str("component", "graphql").Logger()),
	)

	chatSvc := chatService.NewService(client, profiles, chatService.Config{
		DefaultProfile: cfg.Chat.Profile,
		StrictReplies:  cfg.Chat.StrictReplies,
		Logger:         logger.With().Str("component", "chat").Logger(),
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		profiles: profiles,
		client:   client,
		chatSvc:  chatSvc,
	}, nil
}
