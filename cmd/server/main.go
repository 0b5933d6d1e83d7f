package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"taxrecon/internal/app"
	"taxrecon/internal/config"
	"taxrecon/internal/handler"
	"taxrecon/internal/logging"
	"taxrecon/internal/router"
)

// @title taxrecon API
// @version 1.0
// @description Tax document analysis and field reconciliation.
// @BasePath /api/v1
func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Install(logging.New(cfg.Log))
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	maxUpload := cfg.Server.MaxUploadBytes()
	r := router.Setup(router.Handlers{
		Analysis:  handler.NewAnalysisHandler(a.Service, maxUpload),
		Compare:   handler.NewCompareHandler(a.Service),
		Telemetry: handler.NewTelemetryHandler(a.Service),
		Health:    handler.NewHealthHandler(a.Checks),
	}, cfg.CORS.AllowedOrigins, maxUpload)

	srv := newHTTPServer(&cfg.Server, r)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	grace := shutdownGrace(&cfg.Server)
	log.Info().Dur("grace", grace).Msg("shutdown signal received, draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func newHTTPServer(cfg *config.ServerConfig, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Port,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

func shutdownGrace(cfg *config.ServerConfig) time.Duration {
	if cfg.ShutdownGrace <= 0 {
		return 30 * time.Second
	}
	return cfg.ShutdownGrace
}
