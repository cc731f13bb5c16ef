package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical/cropcare/internal/server"
	"github.com/spherical/cropcare/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the CropCare HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := buildApp(ctx, cfg, "")
		if err != nil {
			return err
		}
		defer a.Close()

		store := session.NewStore(cfg.Session.TTL, cfg.Session.CleanupInterval)
		srv := server.New(a.flow, store, a.logger, server.Config{
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
		})

		httpServer := &http.Server{
			Addr:         cfg.Addr(),
			Handler:      srv.Router(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}

		a.logger.Info().
			Str("addr", cfg.Addr()).
			Str("model", cfg.LLM.Model).
			Str("cache", cfg.Cache.Driver).
			Int("ocr_concurrency", cfg.OCR.Concurrency).
			Msg("Starting CropCare API")

		serverErrors := make(chan error, 1)
		go func() {
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case sig := <-shutdown:
			a.logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("Graceful shutdown failed")
			if err := httpServer.Close(); err != nil {
				a.logger.Error().Err(err).Msg("Forced shutdown failed")
			}
		}

		a.logger.Info().Msg("Server stopped")
		return nil
	},
}
