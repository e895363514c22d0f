package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/manno/shipmate/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the conversational endpoint over HTTP",
	Long: `Serve the provisioning conversation on a single HTTP endpoint.

POST /v1/chat accepts {"session_key": "...", "message": "..."} and returns the
assistant's reply together with the session's current stage. Sessions live in
process memory; messages for the same session key are processed strictly one
at a time.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := GetLogger()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		conv, err := buildConversation(ctx, cmd)
		if err != nil {
			logger.Error("failed to wire conversation", "error", err)
			return err
		}

		addr, _ := cmd.Flags().GetString("listen-addr")
		srv := &http.Server{
			Addr:              addr,
			Handler:           server.NewHandler(conv, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server failed", "error", err)
				return err
			}
			return nil
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen-addr", ":8080", "address to listen on")
	registerProvisionFlags(serveCmd)
}
