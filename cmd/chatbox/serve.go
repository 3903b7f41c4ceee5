package main

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/chatbox/internal/handler"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat widget API (REST, SSE and WebSocket)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, flags, nil)
			if err != nil {
				return err
			}

			router := handler.NewRouter(a.profiles, a.chatSvc)
			srv := &http.Server{
				Addr:              a.cfg.Server.Addr,
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			a.logger.Info().
				Str("addr", srv.Addr).
				Str("endpoint", a.client.Endpoint()).
				Str("profile", a.cfg.Chat.Profile).
				Msg("chatbox listening")

			if err := runServer(cmd.Context(), srv); err != nil {
				return errors.Wrap(err, "server error")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := a.chatSvc.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn().Err(err).Msg("sessions still busy at shutdown")
			}
			return nil
		},
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
