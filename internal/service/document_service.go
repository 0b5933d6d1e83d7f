package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"taxrecon/internal/domain"
	"taxrecon/internal/insights"
	"taxrecon/internal/port"
	"taxrecon/internal/reconcile"
)

const defaultMaxBatchItems = 50

// DocumentService is the application surface shared by the HTTP API and the CLI.
type DocumentService interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.StructuredResult, error)
	AnalyzeBatch(ctx context.Context, reqs []domain.AnalysisRequest) ([]domain.StructuredResult, error)
	Reconcile(ctx context.Context, req domain.AnalysisRequest, secondary map[string]string) (*domain.Reconciliation, error)
	Compare(primary, secondary map[string]string) domain.ComparisonResult
	Insights(results []domain.StructuredResult) domain.BatchInsights
	RecentTelemetry(ctx context.Context, limit int) ([]domain.TelemetryRecord, error)
}

// Deps lists the collaborators of a DocumentService. Only Analyzer and Batch
// are required.
type Deps struct {
	Analyzer      Analyzer
	Batch         *BatchCoordinator
	Secondary     port.FieldSource
	Archive       *ResultArchive
	Telemetry     port.TelemetryRepository
	MaxBatchItems int
}

type documentService struct {
	analyzer      Analyzer
	batch         *BatchCoordinator
	secondary     port.FieldSource
	archive       *ResultArchive
	telemetry     port.TelemetryRepository
	maxBatchItems int
}

// NewDocumentService creates a new DocumentService implementation.
func NewDocumentService(deps Deps) DocumentService {
	maxItems := deps.MaxBatchItems
	if maxItems <= 0 {
		maxItems = defaultMaxBatchItems
	}
	return &documentService{
		analyzer:      deps.Analyzer,
		batch:         deps.Batch,
		secondary:     deps.Secondary,
		archive:       deps.Archive,
		telemetry:     deps.Telemetry,
		maxBatchItems: maxItems,
	}
}

func (s *documentService) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.StructuredResult, error) {
	res, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	s.store(ctx, req.Name, res)
	return res, nil
}

func (s *documentService) AnalyzeBatch(ctx context.Context, reqs []domain.AnalysisRequest) ([]domain.StructuredResult, error) {
	if len(reqs) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if len(reqs) > s.maxBatchItems {
		return nil, fmt.Errorf("%w: %d items, limit %d", domain.ErrBatchTooLarge, len(reqs), s.maxBatchItems)
	}

	results := s.batch.AnalyzeBatch(ctx, reqs)
	for i := range results {
		if !results[i].IsError() {
			s.store(ctx, reqs[i].Name, &results[i])
		}
	}
	return results, nil
}

// Reconcile analyzes req and compares its fields with secondary. When
// secondary is nil the configured field source supplies it, concurrently with
// the primary analysis.
func (s *documentService) Reconcile(ctx context.Context, req domain.AnalysisRequest, secondary map[string]string) (*domain.Reconciliation, error) {
	if secondary == nil && s.secondary == nil {
		return nil, domain.ErrNoSecondarySource
	}

	var primary *domain.StructuredResult
	if secondary != nil {
		res, err := s.Analyze(ctx, req)
		if err != nil {
			return nil, err
		}
		primary = res
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			res, err := s.Analyze(gctx, req)
			if err != nil {
				return err
			}
			primary = res
			return nil
		})
		g.Go(func() error {
			fields, err := s.secondary.ExtractFields(gctx, port.SourceInput{
				Content:     req.Content,
				ContentType: req.ContentType,
				Name:        req.Name,
			})
			if err != nil {
				return fmt.Errorf("secondary extraction: %w", err)
			}
			secondary = fields
			return nil
		})
		if err := g.Wait(); err != nil {
			log.Error().Err(err).Str("doc", req.Name).Msg("documentService.Reconcile: extraction failed")
			return nil, err
		}
	}

	cmp := reconcile.Compare(primary.ExtractedFields, secondary)
	out := &domain.Reconciliation{
		Document:    req.Name,
		Primary:     *primary,
		Secondary:   secondary,
		Comparison:  cmp,
		Counts:      cmp.Counts(),
		NeedsReview: cmp.NeedsReview(),
	}
	log.Info().Str("doc", req.Name).Int("matching", out.Counts.Matching).
		Int("discrepancies", out.Counts.Discrepancies).Bool("needs_review", out.NeedsReview).
		Msg("documentService.Reconcile: compared")
	return out, nil
}

func (s *documentService) Compare(primary, secondary map[string]string) domain.ComparisonResult {
	return reconcile.Compare(primary, secondary)
}

func (s *documentService) Insights(results []domain.StructuredResult) domain.BatchInsights {
	return insights.Summarize(results)
}

func (s *documentService) RecentTelemetry(ctx context.Context, limit int) ([]domain.TelemetryRecord, error) {
	if s.telemetry == nil {
		return nil, domain.ErrTelemetryUnavailable
	}
	return s.telemetry.ListRecent(ctx, limit)
}

// store archives res when an archive is configured. Failures are logged only.
func (s *documentService) store(ctx context.Context, name string, res *domain.StructuredResult) {
	if s.archive == nil {
		return
	}
	key, err := s.archive.Store(ctx, name, res)
	if err != nil {
		log.Warn().Err(err).Str("doc", name).Msg("documentService.store: archive upload failed")
		return
	}
	log.Debug().Str("doc", name).Str("key", key).Msg("documentService.store: result archived")
}
