package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"taxrecon/internal/analysis"
	"taxrecon/internal/config"
	"taxrecon/internal/domain"
	"taxrecon/internal/port"
)

const (
	apiURL       = "https://api.openai.com/v1/chat/completions"
	providerName = "openai"
)

// Model implements port.AnalysisModel using the OpenAI Chat Completions API.
type Model struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewModel creates an OpenAI-backed analysis model from a provider config.
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
		model = "gpt-4o"
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
	contentBlocks, err := buildContentBlocks(parts, prompt)
	if err != nil {
		return "", fmt.Errorf("building content blocks: %w", err)
	}

	reqBody := map[string]interface{}{
		"model":                 m.model,
		"max_completion_tokens": cfg.MaxOutputTokens,
		"temperature":           cfg.Temperature,
		"top_p":                 cfg.TopP,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": contentBlocks,
			},
		},
	}
	if cfg.Schema != nil {
		reqBody["response_format"] = map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   "structured_result",
				"schema": cfg.Schema,
			},
		}
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
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling openai API: %w", err)
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

func buildContentBlocks(parts []port.ContentPart, prompt string) ([]map[string]interface{}, error) {
	blocks := make([]map[string]interface{}, 0, len(parts)+1)
	for i, p := range parts {
		if p.IsText() {
			blocks = append(blocks, map[string]interface{}{"type": "text", "text": p.Text})
			continue
		}
		dataURI := fmt.Sprintf("data:%s;base64,%s", p.MimeType, base64.StdEncoding.EncodeToString(p.Data))
		switch p.MimeType {
		case domain.ContentTypePDF:
			blocks = append(blocks, map[string]interface{}{
				"type": "file",
				"file": map[string]interface{}{
					"filename":  fmt.Sprintf("document-%d.pdf", i+1),
					"file_data": dataURI,
				},
			})
		case domain.ContentTypeJPEG, domain.ContentTypePNG, domain.ContentTypeWEBP:
			blocks = append(blocks, map[string]interface{}{
				"type": "image_url",
				"image_url": map[string]interface{}{
					"url": dataURI,
				},
			})
		default:
			return nil, fmt.Errorf("%w for openai: %s", domain.ErrUnsupportedContentType, p.MimeType)
		}
	}

	blocks = append(blocks, map[string]interface{}{
		"type": "text",
		"text": prompt,
	})
	return blocks, nil
}

// apiResponse models the OpenAI Chat Completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func parseResponse(body []byte) (string, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	if resp.Choices[0].FinishReason == "length" {
		return "", fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit")
	}

	return resp.Choices[0].Message.Content, nil
}
