package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/config"
	fvhttp "github.com/sagarc03/filevault/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the filevault HTTP API. With the local object store the same
server also accepts the presigned blob uploads and downloads.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5708, "HTTP server port (env: FILEVAULT_SERVER_PORT)")
	serveCmd.Flags().String("auth-mode", "", "identity mode: jwt, header (env: FILEVAULT_AUTH_MODE)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	identity, err := fvhttp.IdentityMiddleware(fvhttp.IdentityConfig{
		Mode:     cfg.Auth.Mode,
		Header:   cfg.Auth.Header,
		Keys:     a.keys,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		Leeway:   cfg.Auth.Leeway,
	})
	if err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	if cfg.Auth.Mode == fvhttp.IdentityModeJWT && a.keys.Len() == 0 {
		slog.Warn("jwt identity mode has no keys configured, every API request will be rejected")
	}

	handlerConfig := fvhttp.HandlerConfig{
		Identity:     identity,
		Metrics:      a.metrics,
		CORS:         cfg.CORS,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}
	if a.registry != nil {
		handlerConfig.Gatherer = a.registry
	}

	if local := a.objects.Local; local != nil {
		handlerConfig.Blobs = fvhttp.NewBlobHandler(fvhttp.BlobHandlerConfig{
			Prefix:   local.RoutePrefix(),
			Store:    local.Blobs(),
			Verifier: filevault.NewSignatureVerifier(cfg.ObjectStore.Local.Region, cfg.ObjectStore.Local.Service, a.objects.SigningKeys.Find),
			Metrics:  a.metrics,
			MaxBytes: cfg.Server.MaxBlobBytes,
		})
		slog.Info("serving local blobs", "prefix", local.RoutePrefix(), "public_url", cfg.ObjectStore.Local.PublicURL)
	}

	handler := fvhttp.NewHandler(&handlerConfig, a.service)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server",
		"addr", addr,
		"database", cfg.Database.Type,
		"objectstore", cfg.ObjectStore.Type,
		"auth", cfg.Auth.Mode,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
