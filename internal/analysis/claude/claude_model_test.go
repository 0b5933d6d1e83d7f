package claude_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxrecon/internal/analysis"
	"taxrecon/internal/analysis/claude"
	"taxrecon/internal/config"
	"taxrecon/internal/domain"
	"taxrecon/internal/port"
)

func newTestModel(serverURL string) *claude.Model {
	cfg := &config.ProviderConfig{
		Provider:     "claude",
		APIKey:       "test-api-key",
		DefaultModel: "claude-sonnet-4-20250514",
		TimeoutSecs:  30,
	}
	return claude.NewModelWithEndpoint(cfg, serverURL)
}

var testGen = port.GenerationConfig{Temperature: 0.1, TopP: 0.95, TopK: 40, MaxOutputTokens: 8192}

func TestClaudeModel_Submit_PDF_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "claude-sonnet-4-20250514", reqBody["model"])
		assert.Equal(t, float64(8192), reqBody["max_tokens"])
		assert.Equal(t, float64(40), reqBody["top_k"])

		msg := reqBody["messages"].([]interface{})[0].(map[string]interface{})
		content := msg["content"].([]interface{})
		if !assert.Len(t, content, 2) {
			return
		}
		assert.Equal(t, "document", content[0].(map[string]interface{})["type"])
		prompt := content[1].(map[string]interface{})
		assert.Equal(t, "text", prompt["type"])
		assert.Contains(t, prompt["text"], "JSON schema")

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content":     []map[string]interface{}{{"type": "text", "text": `{"document_category":"Income"}`}},
			"stop_reason": "end_turn",
		})
	}))
	defer server.Close()

	cfg := testGen
	cfg.Schema = domain.StructuredResultSchema()
	text, err := newTestModel(server.URL).Submit(context.Background(), "analyze", []port.ContentPart{
		{MimeType: "application/pdf", Data: []byte("%PDF")},
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, `{"document_category":"Income"}`, text)
}

func TestClaudeModel_Submit_ImagePages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		msg := reqBody["messages"].([]interface{})[0].(map[string]interface{})
		content := msg["content"].([]interface{})
		if !assert.Len(t, content, 4) {
			return
		}
		assert.Equal(t, "image", content[0].(map[string]interface{})["type"])
		assert.Equal(t, "text", content[1].(map[string]interface{})["type"])
		assert.Equal(t, "image", content[2].(map[string]interface{})["type"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]interface{}{{"type": "text", "text": "plain answer"}},
		})
	}))
	defer server.Close()

	text, err := newTestModel(server.URL).Submit(context.Background(), "analyze", []port.ContentPart{
		{MimeType: "image/png", Data: []byte("p1")},
		{Text: "page 1 text"},
		{MimeType: "image/jpeg", Data: []byte("p2")},
	}, testGen)

	require.NoError(t, err)
	assert.Equal(t, "plain answer", text)
}

func TestClaudeModel_Submit_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "20")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error"}}`))
	}))
	defer server.Close()

	_, err := newTestModel(server.URL).Submit(context.Background(), "p", nil, testGen)

	var rlErr *analysis.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, 20*time.Second, rlErr.RetryAfter)
}

func TestClaudeModel_Submit_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`internal`))
	}))
	defer server.Close()

	_, err := newTestModel(server.URL).Submit(context.Background(), "p", nil, testGen)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.True(t, analysis.IsRetryable(err))
}

func TestClaudeModel_Submit_Truncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content":     []map[string]interface{}{{"type": "text", "text": `{"a":`}},
			"stop_reason": "max_tokens",
		})
	}))
	defer server.Close()

	_, err := newTestModel(server.URL).Submit(context.Background(), "p", nil, testGen)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_tokens")
	assert.False(t, analysis.IsRetryable(err))
}

func TestClaudeModel_Submit_UnsupportedContentType(t *testing.T) {
	_, err := newTestModel("http://unused").Submit(context.Background(), "p", []port.ContentPart{
		{MimeType: "image/tiff", Data: []byte("II*")},
	}, testGen)

	assert.ErrorIs(t, err, domain.ErrUnsupportedContentType)
}

func TestClaudeModel_Submit_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestModel(url).Submit(context.Background(), "p", nil, testGen)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "calling anthropic API")
	assert.True(t, analysis.IsRetryable(err))
}
