package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/guardian/internal/api/handlers"
	"github.com/cloo-solutions/guardian/internal/api/middleware"
	"github.com/cloo-solutions/guardian/internal/config"
	"github.com/cloo-solutions/guardian/internal/server"
	"github.com/cloo-solutions/guardian/internal/telemetry"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the Guardian API server on the specified port",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on (overrides GUARDIAN_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", defaultMigrationsPath, "Migrations source URL")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	shutdownTelemetry := initTelemetry(cfg)
	defer shutdownTelemetry()

	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetString("port")
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	migrationsPath, _ := cmd.Flags().GetString("migrations")

	app, err := NewApp(ctx, cfg, appOptions{migrate: !noMigrate, migrationsPath: migrationsPath})
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on port %s (vector backend: %s)", cfg.Port, cfg.VectorBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func newRouter(app *App) http.Handler {
	documents := handlers.NewDocumentHandler(app.Ingest, app.Advisory, app.Query, app.Index)
	if app.Archive != nil {
		documents.WithDownloader(app.Archive)
	}

	var validator middleware.TokenValidator
	if app.Config.HasAPIToken() {
		validator = middleware.StaticToken(app.Config.APIToken)
	} else {
		log.Println("GUARDIAN_API_TOKEN not set; API is open")
	}

	return server.NewRouter(server.RouterConfig{
		TokenValidator:  validator,
		DocumentHandler: documents,
		WebHandler:      handlers.NewWebHandler(app.Research),
		AllowedOrigins:  app.Config.CORSOrigins,
		MaxBodyBytes:    app.Config.MaxUploadBytes,
	})
}

// initTelemetry starts Sentry when a DSN is configured and returns its flush
// function.
func initTelemetry(cfg *config.Config) func() {
	if !cfg.HasSentry() {
		return func() {}
	}

	// 10% sampling in production, everything in development.
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return func() {}
	}
	return shutdown
}
