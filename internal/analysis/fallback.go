package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"taxrecon/internal/port"
)

// circuitState tracks rate-limit backoff for a single model.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackModel tries models in order, skipping those whose rate-limit circuit
// is open. It implements port.AnalysisModel.
type FallbackModel struct {
	models   []port.AnalysisModel
	circuits []*circuitState
	now      func() time.Time
}

// NewFallbackModel creates a FallbackModel from an ordered list of models.
func NewFallbackModel(models []port.AnalysisModel) *FallbackModel {
	circuits := make([]*circuitState, len(models))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackModel{models: models, circuits: circuits, now: time.Now}
}

// Provider joins the provider names of the chain, e.g. "gemini>claude".
func (f *FallbackModel) Provider() string {
	names := make([]string, len(f.models))
	for i, m := range f.models {
		names[i] = m.Provider()
	}
	return strings.Join(names, ">")
}

// Endpoint joins the endpoints of the chain.
func (f *FallbackModel) Endpoint() string {
	names := make([]string, len(f.models))
	for i, m := range f.models {
		names[i] = m.Endpoint()
	}
	return strings.Join(names, ">")
}

func (f *FallbackModel) Submit(ctx context.Context, prompt string, parts []port.ContentPart, cfg port.GenerationConfig) (string, error) {
	now := f.now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, m := range f.models {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			log.Debug().Str("provider", m.Provider()).Time("reset_at", resetAt).
				Msg("analysis.FallbackModel: skipping, circuit open")
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		text, err := m.Submit(ctx, prompt, parts, cfg)
		if err == nil {
			return text, nil
		}

		log.Warn().Err(err).Str("provider", m.Provider()).Msg("analysis.FallbackModel: provider failed")
		lastErr = err

		var emptyErr *EmptyResponseError
		if errors.As(err, &emptyErr) || ctx.Err() != nil {
			return "", err
		}

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil || allRateLimited {
		retryAfter := earliestReset.Sub(f.now())
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return "", NewRateLimitError("all", fmt.Errorf("all providers rate limited"), int(retryAfter.Seconds()))
	}

	return "", fmt.Errorf("all providers failed: %w", lastErr)
}
