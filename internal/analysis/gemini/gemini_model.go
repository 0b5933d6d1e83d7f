package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"taxrecon/internal/analysis"
	"taxrecon/internal/config"
	"taxrecon/internal/domain"
	"taxrecon/internal/port"
)

const (
	providerName = "gemini"
	defaultModel = "gemini-2.0-flash"
)

// Model implements port.AnalysisModel using the Gemini API through the genai SDK.
type Model struct {
	client *genai.Client
	model  string
}

// NewModel creates a Gemini-backed analysis model.
func NewModel(ctx context.Context, cfg *config.ProviderConfig) (*Model, error) {
	return newModel(ctx, cfg, "")
}

// NewModelWithEndpoint creates a model pointing at a custom API base URL (for testing).
func NewModelWithEndpoint(ctx context.Context, cfg *config.ProviderConfig, baseURL string) (*Model, error) {
	return newModel(ctx, cfg, baseURL)
}

// Factory adapts NewModel to analysis.ProviderFactory.
func Factory(ctx context.Context, cfg *config.ProviderConfig) (port.AnalysisModel, error) {
	return NewModel(ctx, cfg)
}

func newModel(ctx context.Context, cfg *config.ProviderConfig, baseURL string) (*Model, error) {
	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Model{client: client, model: model}, nil
}

func (m *Model) Provider() string { return providerName }

func (m *Model) Endpoint() string { return m.model }

func (m *Model) Submit(ctx context.Context, prompt string, parts []port.ContentPart, cfg port.GenerationConfig) (string, error) {
	gparts := make([]*genai.Part, 0, len(parts)+1)
	for _, p := range parts {
		if p.IsText() {
			gparts = append(gparts, genai.NewPartFromText(p.Text))
			continue
		}
		gparts = append(gparts, genai.NewPartFromBytes(p.Data, p.MimeType))
	}
	gparts = append(gparts, genai.NewPartFromText(prompt))
	contents := []*genai.Content{genai.NewContentFromParts(gparts, genai.RoleUser)}

	topK := float32(cfg.TopK)
	gcfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(cfg.Temperature),
		TopP:            genai.Ptr(cfg.TopP),
		TopK:            genai.Ptr(topK),
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
	if cfg.Schema != nil {
		gcfg.ResponseMIMEType = "application/json"
		gcfg.ResponseSchema = toGenaiSchema(cfg.Schema)
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, gcfg)
	if err != nil {
		return "", classify(err)
	}
	return responseText(resp), nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// classify maps genai API errors onto the retry taxonomy.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		baseErr := fmt.Errorf("gemini API error (status %d): %s", apiErr.Code, apiErr.Message)
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return analysis.NewRateLimitError(providerName, baseErr, 0)
		case apiErr.Code >= 500:
			return analysis.NewTransientError(providerName, baseErr)
		default:
			return baseErr
		}
	}
	return fmt.Errorf("calling gemini API: %w", err)
}

func toGenaiSchema(s *domain.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:             schemaType(s.Type),
		Description:      s.Description,
		Required:         s.Required,
		PropertyOrdering: s.Ordering,
		Items:            toGenaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}

func schemaType(t domain.SchemaType) genai.Type {
	switch t {
	case domain.SchemaObject:
		return genai.TypeObject
	case domain.SchemaArray:
		return genai.TypeArray
	default:
		return genai.TypeString
	}
}
