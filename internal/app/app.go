// Package app wires configuration into the analysis services shared by the
// HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"taxrecon/internal/analysis"
	"taxrecon/internal/analysis/claude"
	"taxrecon/internal/analysis/gemini"
	"taxrecon/internal/analysis/openai"
	"taxrecon/internal/config"
	"taxrecon/internal/handler"
	"taxrecon/internal/pdfpages"
	"taxrecon/internal/port"
	"taxrecon/internal/repository/sqlstore"
	"taxrecon/internal/secondary"
	"taxrecon/internal/service"
	s3storage "taxrecon/internal/storage/s3"
	"taxrecon/internal/telemetry"
	"taxrecon/internal/workerpool"
)

var registerOnce sync.Once

// RegisterProviders makes the built-in providers available to
// analysis.NewModel. It is safe to call more than once.
func RegisterProviders() {
	registerOnce.Do(func() {
		analysis.RegisterProvider("gemini", gemini.Factory)
		analysis.RegisterProvider("claude", claude.Factory)
		analysis.RegisterProvider("openai", openai.Factory)
	})
}

// App holds the long-lived dependencies built at startup.
type App struct {
	Service service.DocumentService
	Checks  map[string]handler.Check

	db   *sqlx.DB
	pool *workerpool.Pool
	sink *telemetry.AsyncSink
}

// Build constructs every dependency named by cfg. Optional parts (telemetry
// persistence, result archive, secondary source) are skipped when unset.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	RegisterProviders()
	a := &App{Checks: map[string]handler.Check{}}

	model, err := analysis.BuildModel(ctx, &cfg.Analysis)
	if err != nil {
		return nil, fmt.Errorf("building analysis model: %w", err)
	}
	renderer := pdfpages.NewRenderer(cfg.Analysis.PDF)

	var repo port.TelemetryRepository
	if cfg.Telemetry.Persist {
		a.db, err = sqlstore.NewDB(&cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := sqlstore.Migrate(&cfg.DB, a.db); err != nil {
			_ = a.db.Close()
			return nil, err
		}
		repo = sqlstore.NewTelemetryRepo(a.db)
		a.Checks["database"] = a.db.PingContext
	}
	a.sink = telemetry.NewAsyncSink(repo, cfg.Telemetry.BufferSize)

	orchestrator := analysis.NewOrchestrator(model,
		analysis.WithPageRenderer(renderer),
		analysis.WithTelemetry(a.sink),
		analysis.WithRetryPolicy(analysis.RetryPolicyFromConfig(cfg.Analysis.Retry)),
		analysis.WithGeneration(cfg.Analysis.Generation),
		analysis.WithPDF(cfg.Analysis.PDF),
	)

	deps := service.Deps{
		Analyzer:      orchestrator,
		Telemetry:     repo,
		MaxBatchItems: cfg.Batch.MaxItems,
	}

	a.pool = workerpool.New(cfg.Batch.PoolSize)
	deps.Batch = service.NewBatchCoordinator(orchestrator, a.pool)

	if cfg.Secondary.Enabled() {
		secondaryModel, modelErr := analysis.NewModel(ctx, &cfg.Secondary)
		if modelErr != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("building secondary source: %w", modelErr)
		}
		deps.Secondary = secondary.NewModelFieldSource(secondaryModel, renderer, &cfg.Analysis).WithTelemetry(a.sink)
		log.Info().Str("provider", secondaryModel.Provider()).Str("model", secondaryModel.Endpoint()).
			Msg("app.Build: secondary field source enabled")
	}

	if cfg.S3.ArchiveEnabled {
		archive, check, s3Err := NewArchive(ctx, &cfg.S3)
		if s3Err != nil {
			a.Close(ctx)
			return nil, s3Err
		}
		deps.Archive = archive
		a.Checks["archive"] = check
	}

	a.Service = service.NewDocumentService(deps)
	log.Info().Str("provider", model.Provider()).Str("model", model.Endpoint()).
		Int("pool_size", a.pool.Size()).Bool("telemetry_persist", repo != nil).
		Bool("archive", deps.Archive != nil).Msg("app.Build: ready")
	return a, nil
}

// NewArchive builds the S3-backed result archive and a readiness check for
// its bucket.
func NewArchive(ctx context.Context, cfg *config.S3Config) (*service.ResultArchive, handler.Check, error) {
	client, err := s3storage.NewClient(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize S3 client: %w", err)
	}
	archive := service.NewResultArchive(client, cfg)
	return archive, archive.Check, nil
}

// Close drains the worker pool, flushes telemetry and closes the database, in
// that order.
func (a *App) Close(ctx context.Context) {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.sink != nil {
		flushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := a.sink.Close(flushCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Int64("dropped", a.sink.Dropped()).Msg("app.Close: telemetry not fully flushed")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("app.Close: closing database")
		}
	}
}
