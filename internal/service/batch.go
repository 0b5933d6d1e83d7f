package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"taxrecon/internal/domain"
	"taxrecon/internal/workerpool"
)

// Analyzer analyzes one document. *analysis.Orchestrator implements it.
type Analyzer interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.StructuredResult, error)
}

// BatchCoordinator fans a batch out over the shared worker pool. A failing
// item becomes an error result at its own index and never aborts the batch.
type BatchCoordinator struct {
	analyzer Analyzer
	pool     *workerpool.Pool
}

// NewBatchCoordinator creates a coordinator. The pool is owned by the caller.
func NewBatchCoordinator(analyzer Analyzer, pool *workerpool.Pool) *BatchCoordinator {
	return &BatchCoordinator{analyzer: analyzer, pool: pool}
}

// AnalyzeBatch returns one result per request, in request order.
func (c *BatchCoordinator) AnalyzeBatch(ctx context.Context, reqs []domain.AnalysisRequest) []domain.StructuredResult {
	results := make([]domain.StructuredResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	start := time.Now()
	var wg sync.WaitGroup
	for i := range reqs {
		i := i
		wg.Add(1)
		err := c.pool.Submit(ctx, func(taskCtx context.Context) {
			defer wg.Done()
			results[i] = c.analyzeOne(taskCtx, reqs[i])
		})
		if err != nil {
			wg.Done()
			log.Warn().Err(err).Int("index", i).Str("doc", reqs[i].Name).
				Msg("batchCoordinator.AnalyzeBatch: item not scheduled")
			results[i] = domain.NewErrorResult(reqs[i].Name, err)
		}
	}
	wg.Wait()

	failed := 0
	for i := range results {
		if results[i].IsError() {
			failed++
		}
	}
	log.Info().Int("items", len(reqs)).Int("failed", failed).Int("pool_size", c.pool.Size()).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("batchCoordinator.AnalyzeBatch: batch complete")
	return results
}

func (c *BatchCoordinator) analyzeOne(ctx context.Context, req domain.AnalysisRequest) (res domain.StructuredResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("doc", req.Name).
				Msg("batchCoordinator.analyzeOne: analysis panicked")
			res = domain.NewErrorResult(req.Name, fmt.Errorf("internal error: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return domain.NewErrorResult(req.Name, err)
	}
	out, err := c.analyzer.Analyze(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("doc", req.Name).Msg("batchCoordinator.analyzeOne: item failed")
		return domain.NewErrorResult(req.Name, err)
	}
	return *out
}
