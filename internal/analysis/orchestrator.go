package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"taxrecon/internal/config"
	"taxrecon/internal/domain"
	"taxrecon/internal/port"
)

// ServiceName tags telemetry records produced by the core itself.
const ServiceName = "taxrecon"

const (
	modeSchema = "schema"
	modeCustom = "custom"
)

// Orchestrator prepares a document, submits it to the analysis model under
// the retry policy, records telemetry and decodes the answer.
type Orchestrator struct {
	model     port.AnalysisModel
	renderer  port.PageRenderer
	telemetry port.TelemetrySink
	prompts   *PromptBuilder
	decoder   *Decoder
	policy    RetryPolicy
	sleep     Sleeper
	gen       config.GenerationConfig
	pdf       config.PDFConfig
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPageRenderer sets the renderer used for paginated documents.
func WithPageRenderer(r port.PageRenderer) Option {
	return func(o *Orchestrator) { o.renderer = r }
}

// WithTelemetry sets the telemetry sink.
func WithTelemetry(s port.TelemetrySink) Option {
	return func(o *Orchestrator) { o.telemetry = s }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithSleeper replaces the backoff sleeper; tests use it to record delays.
func WithSleeper(s Sleeper) Option {
	return func(o *Orchestrator) { o.sleep = s }
}

// WithGeneration sets the sampling bounds. Values are clamped.
func WithGeneration(g config.GenerationConfig) Option {
	return func(o *Orchestrator) { o.gen = g.Bounded() }
}

// WithPDF sets page conversion settings.
func WithPDF(p config.PDFConfig) Option {
	return func(o *Orchestrator) { o.pdf = p }
}

// WithPromptBuilder replaces the embedded prompt templates.
func WithPromptBuilder(b *PromptBuilder) Option {
	return func(o *Orchestrator) { o.prompts = b }
}

// NewOrchestrator creates an Orchestrator around model.
func NewOrchestrator(model port.AnalysisModel, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		model:   model,
		decoder: NewDecoder(),
		policy:  DefaultRetryPolicy(),
		sleep:   SleepContext,
		gen: config.GenerationConfig{
			Temperature: 0.1, TopP: 0.95, TopK: 40, MaxOutputTokens: 8192,
		},
		pdf: config.PDFConfig{DPI: 150, MaxPages: 20, IncludeTextLayer: true},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.prompts == nil {
		o.prompts = MustPromptBuilder()
	}
	return o
}

// Analyze runs one document through the pipeline. The returned result is
// always well-formed; errors are returned only when the request is rejected up
// front, the provider answers with nothing, or retries are exhausted.
func (o *Orchestrator) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.StructuredResult, error) {
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("analysis.Analyze %s: %w", req.Name, domain.ErrEmptyContent)
	}
	contentType, err := ResolveContentType(req.ContentType, req.Content)
	if err != nil {
		return nil, err
	}

	parts, err := PrepareParts(o.renderer, &req, contentType, o.pdf.MaxPages, o.pdf.IncludeTextLayer)
	if err != nil {
		return nil, err
	}

	custom := req.HasCustomInstructions()
	prompt, err := o.prompts.Extraction(req.Name, req.CustomInstructions)
	if err != nil {
		return nil, fmt.Errorf("analysis.Analyze: building prompt: %w", err)
	}

	genCfg := port.GenerationConfig{
		Temperature:     o.gen.Temperature,
		TopP:            o.gen.TopP,
		TopK:            o.gen.TopK,
		MaxOutputTokens: o.gen.MaxOutputTokens,
	}
	mode := modeCustom
	if !custom {
		genCfg.Schema = domain.StructuredResultSchema()
		mode = modeSchema
	}

	reqMeta := map[string]any{
		"document":      req.Name,
		"content_type":  contentType,
		"request_bytes": requestBytes(parts) + len(prompt),
		"parts":         len(parts),
		"mode":          mode,
	}

	var raw string
	err = o.policy.Do(ctx, o.sleep, func(attempt int) error {
		start := o.now()
		text, callErr := o.model.Submit(ctx, prompt, parts, genCfg)
		if callErr == nil && strings.TrimSpace(text) == "" {
			callErr = &EmptyResponseError{Provider: o.model.Provider(), Document: req.Name}
		}
		elapsed := o.now().Sub(start)
		o.recordCall(ctx, reqMeta, attempt, text, callErr, elapsed)
		if callErr != nil {
			return callErr
		}
		raw = text
		return nil
	}, nil)
	if err != nil {
		log.Error().Err(err).Str("doc", req.Name).Str("provider", o.model.Provider()).
			Msg("analysis.Analyze: model call failed")
		return nil, fmt.Errorf("analysis.Analyze %s: %w", req.Name, err)
	}

	start := o.now()
	var (
		result  domain.StructuredResult
		outcome domain.DecodeOutcome
	)
	if custom {
		result, outcome = o.decoder.DecodeNarrative(raw, req.Name)
	} else {
		result, outcome = o.decoder.DecodeWithOutcome(raw, req.Name)
	}
	o.recordDecode(ctx, req.Name, raw, outcome, o.now().Sub(start))

	if outcome == domain.OutcomeFailedUsingFallback {
		log.Warn().Str("doc", req.Name).Int("raw_length", len(raw)).
			Msg("analysis.Analyze: response could not be parsed, using fallback result")
	}
	return &result, nil
}

func (o *Orchestrator) recordCall(ctx context.Context, reqMeta map[string]any, attempt int, text string, callErr error, elapsed time.Duration) {
	meta := make(map[string]any, len(reqMeta)+1)
	for k, v := range reqMeta {
		meta[k] = v
	}
	meta["attempt"] = attempt

	respMeta := map[string]any{}
	status := domain.CallStatusSuccess
	if callErr != nil {
		respMeta["error"] = callErr.Error()
		status = CallStatusOf(callErr)
	} else {
		respMeta["response_length"] = len(text)
	}

	o.emit(ctx, domain.TelemetryRecord{
		Service:      o.model.Provider(),
		Endpoint:     o.model.Endpoint(),
		Method:       "submit",
		RequestMeta:  meta,
		ResponseMeta: respMeta,
		ElapsedMS:    elapsed.Milliseconds(),
		Status:       string(status),
	})
}

func (o *Orchestrator) recordDecode(ctx context.Context, name, raw string, outcome domain.DecodeOutcome, elapsed time.Duration) {
	o.emit(ctx, domain.TelemetryRecord{
		Service:      ServiceName,
		Endpoint:     "response_decoder",
		Method:       "decode",
		RequestMeta:  map[string]any{"document": name, "raw_length": len(raw)},
		ResponseMeta: map[string]any{"outcome": string(outcome)},
		ElapsedMS:    elapsed.Milliseconds(),
		Status:       string(outcome),
	})
}

// emit hands a record to the sink. A misbehaving sink never affects analysis.
func (o *Orchestrator) emit(ctx context.Context, rec domain.TelemetryRecord) {
	if o.telemetry == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("method", rec.Method).
				Msg("analysis.emit: telemetry sink panicked")
		}
	}()
	rec.ID = uuid.New()
	rec.CreatedAt = o.now().UTC()
	o.telemetry.Record(ctx, rec)
}

// CallStatusOf maps a failed model call to its telemetry status.
func CallStatusOf(err error) domain.CallStatus {
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return domain.CallStatusRateLimited
	}
	var emptyErr *EmptyResponseError
	if errors.As(err, &emptyErr) {
		return domain.CallStatusEmptyResponse
	}
	return domain.CallStatusError
}
