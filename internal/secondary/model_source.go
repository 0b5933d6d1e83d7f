// Package secondary provides an independent field extraction source used as
// the right-hand side of reconciliation.
package secondary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"taxrecon/internal/analysis"
	"taxrecon/internal/config"
	"taxrecon/internal/domain"
	"taxrecon/internal/port"
)

// ModelFieldSource asks an analysis model for a flat label-to-value map. It
// implements port.FieldSource.
type ModelFieldSource struct {
	model     port.AnalysisModel
	renderer  port.PageRenderer
	prompts   *analysis.PromptBuilder
	decoder   *analysis.Decoder
	policy    analysis.RetryPolicy
	sleep     analysis.Sleeper
	gen       config.GenerationConfig
	pdf       config.PDFConfig
	telemetry port.TelemetrySink
	now       func() time.Time
}

// NewModelFieldSource creates a field source over model. renderer may be nil.
func NewModelFieldSource(model port.AnalysisModel, renderer port.PageRenderer, cfg *config.AnalysisConfig) *ModelFieldSource {
	return &ModelFieldSource{
		model:    model,
		renderer: renderer,
		prompts:  analysis.MustPromptBuilder(),
		decoder:  analysis.NewDecoder(),
		policy:   analysis.RetryPolicyFromConfig(cfg.Retry),
		sleep:    analysis.SleepContext,
		gen:      cfg.Generation.Bounded(),
		pdf:      cfg.PDF,
		now:      time.Now,
	}
}

// WithSleeper replaces the backoff sleeper and returns the source.
func (s *ModelFieldSource) WithSleeper(sleep analysis.Sleeper) *ModelFieldSource {
	s.sleep = sleep
	return s
}

// WithTelemetry records every model call attempt to sink and returns the source.
func (s *ModelFieldSource) WithTelemetry(sink port.TelemetrySink) *ModelFieldSource {
	s.telemetry = sink
	return s
}

func (s *ModelFieldSource) ExtractFields(ctx context.Context, input port.SourceInput) (map[string]string, error) {
	contentType, err := analysis.ResolveContentType(input.ContentType, input.Content)
	if err != nil {
		return nil, err
	}
	req := domain.AnalysisRequest{Content: input.Content, Name: input.Name, ContentType: contentType}
	parts, err := analysis.PrepareParts(s.renderer, &req, contentType, s.pdf.MaxPages, s.pdf.IncludeTextLayer)
	if err != nil {
		return nil, err
	}
	prompt, err := s.prompts.FieldExtraction(input.Name)
	if err != nil {
		return nil, fmt.Errorf("secondary.ExtractFields: building prompt: %w", err)
	}

	genCfg := port.GenerationConfig{
		Temperature:     s.gen.Temperature,
		TopP:            s.gen.TopP,
		TopK:            s.gen.TopK,
		MaxOutputTokens: s.gen.MaxOutputTokens,
	}

	reqMeta := map[string]any{
		"document":     input.Name,
		"content_type": contentType,
		"parts":        len(parts),
	}

	var raw string
	err = s.policy.Do(ctx, s.sleep, func(attempt int) error {
		start := s.now()
		text, callErr := s.model.Submit(ctx, prompt, parts, genCfg)
		if callErr == nil && strings.TrimSpace(text) == "" {
			callErr = &analysis.EmptyResponseError{Provider: s.model.Provider(), Document: input.Name}
		}
		s.recordCall(ctx, reqMeta, attempt, text, callErr, s.now().Sub(start))
		if callErr != nil {
			return callErr
		}
		raw = text
		return nil
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("secondary.ExtractFields %s: %w", input.Name, err)
	}

	fields, err := s.decoder.DecodeFields(raw)
	if err != nil {
		log.Warn().Err(err).Str("doc", input.Name).Str("provider", s.model.Provider()).
			Msg("secondary.ExtractFields: response is not a field map")
		return nil, fmt.Errorf("secondary.ExtractFields %s: %w", input.Name, domain.ErrInvalidFieldMap)
	}
	return fields, nil
}

func (s *ModelFieldSource) recordCall(ctx context.Context, reqMeta map[string]any, attempt int, text string, callErr error, elapsed time.Duration) {
	if s.telemetry == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("secondary.recordCall: telemetry sink panicked")
		}
	}()

	meta := make(map[string]any, len(reqMeta)+1)
	for k, v := range reqMeta {
		meta[k] = v
	}
	meta["attempt"] = attempt

	respMeta := map[string]any{}
	status := domain.CallStatusSuccess
	if callErr != nil {
		respMeta["error"] = callErr.Error()
		status = analysis.CallStatusOf(callErr)
	} else {
		respMeta["response_length"] = len(text)
	}

	s.telemetry.Record(ctx, domain.TelemetryRecord{
		ID:           uuid.New(),
		Service:      s.model.Provider(),
		Endpoint:     s.model.Endpoint(),
		Method:       "extract_fields",
		RequestMeta:  meta,
		ResponseMeta: respMeta,
		ElapsedMS:    elapsed.Milliseconds(),
		Status:       string(status),
		CreatedAt:    s.now().UTC(),
	})
}
