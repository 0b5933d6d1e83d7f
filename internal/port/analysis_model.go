package port

import (
	"context"

	"taxrecon/internal/domain"
)

// ContentPart is one ordered piece of a model request: either inline bytes with
// a MIME type or plain text.
type ContentPart struct {
	MimeType string
	Data     []byte
	Text     string
}

// IsText reports whether the part carries text rather than bytes.
func (p ContentPart) IsText() bool {
	return len(p.Data) == 0
}

// GenerationConfig bounds a single model call. A nil Schema means best-effort
// free-form output.
type GenerationConfig struct {
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
	Schema          *domain.Schema
}

// AnalysisModel abstracts the external multimodal analysis capability.
type AnalysisModel interface {
	// Submit sends the prompt and parts and returns the model's raw text output.
	Submit(ctx context.Context, prompt string, parts []ContentPart, cfg GenerationConfig) (string, error)
	// Provider names the capability, e.g. "gemini".
	Provider() string
	// Endpoint names the logical endpoint, typically the model id.
	Endpoint() string
}
