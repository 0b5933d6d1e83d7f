package claude

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"taxrecon/internal/analysis"
	"taxrecon/internal/config"
	"taxrecon/internal/domain"
	"taxrecon/internal/port"
)

const (
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	providerName = "claude"
)

// Model implements port.AnalysisModel using the Anthropic Messages API.
type Model struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewModel creates a Claude-backed analysis model from a provider config.
func NewModel(cfg *config.ProviderConfig) *Model {
	return newModel(cfg, apiURL)
}

// NewModelWithEndpoint creates a model pointing at a custom API endpoint (for testing).
func NewModelWithEndpoint(cfg *config.ProviderConfig, endpoint string) *Model {
	return newModel(cfg, endpoint)
}

// Factory adapts NewModel to analysis.ProviderFactory.
func Factory(_ context.Context, cfg *config.ProviderConfig) (port.AnalysisModel, error) {
	return NewModel(cfg), nil
}

func newModel(cfg *config.ProviderConfig, endpoint string) *Model {
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Model{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (m *Model) Provider() string { return providerName }

func (m *Model) Endpoint() string { return m.model }

func (m *Model) Submit(ctx context.Context, prompt string, parts []port.ContentPart, cfg port.GenerationConfig) (string, error) {
	if cfg.Schema != nil {
		withSchema, err := appendSchema(prompt, cfg.Schema)
		if err != nil {
			return "", err
		}
		prompt = withSchema
	}

	contentBlocks, err := buildContentBlocks(parts, prompt)
	if err != nil {
		return "", fmt.Errorf("building content blocks: %w", err)
	}

	reqBody := map[string]interface{}{
		"model":       m.model,
		"max_tokens":  cfg.MaxOutputTokens,
		"temperature": cfg.Temperature,
		"top_k":       cfg.TopK,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": contentBlocks,
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", m.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling anthropic API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", analysis.StatusError(providerName, resp.StatusCode, resp.Header.Get("Retry-After"), respBody)
	}

	return parseResponse(respBody)
}

func appendSchema(prompt string, schema *domain.Schema) (string, error) {
	encoded, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("marshaling response schema: %w", err)
	}
	return prompt + "\n\nThe JSON object must conform to this JSON schema:\n" + string(encoded), nil
}

func buildContentBlocks(parts []port.ContentPart, prompt string) ([]map[string]interface{}, error) {
	blocks := make([]map[string]interface{}, 0, len(parts)+1)
	for _, p := range parts {
		if p.IsText() {
			blocks = append(blocks, map[string]interface{}{"type": "text", "text": p.Text})
			continue
		}
		encoded := base64.StdEncoding.EncodeToString(p.Data)
		switch p.MimeType {
		case domain.ContentTypePDF:
			blocks = append(blocks, map[string]interface{}{
				"type": "document",
				"source": map[string]interface{}{
					"type":       "base64",
					"media_type": p.MimeType,
					"data":       encoded,
				},
			})
		case domain.ContentTypeJPEG, domain.ContentTypePNG, domain.ContentTypeWEBP:
			blocks = append(blocks, map[string]interface{}{
				"type": "image",
				"source": map[string]interface{}{
					"type":       "base64",
					"media_type": p.MimeType,
					"data":       encoded,
				},
			})
		default:
			return nil, fmt.Errorf("%w for claude: %s", domain.ErrUnsupportedContentType, p.MimeType)
		}
	}

	blocks = append(blocks, map[string]interface{}{
		"type": "text",
		"text": prompt,
	})
	return blocks, nil
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseResponse(body []byte) (string, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}

	if resp.StopReason == "max_tokens" {
		return "", fmt.Errorf("output truncated (stop_reason: max_tokens): response exceeded output token limit")
	}

	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	return sb.String(), nil
}
