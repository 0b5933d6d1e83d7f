package port

import (
	"context"
)

// SourceInput carries the document handed to a secondary extraction source.
type SourceInput struct {
	Content     []byte
	ContentType string
	Name        string
}

// FieldSource produces an independent flat field map for a document. Its
// provenance is opaque to the reconciliation core.
type FieldSource interface {
	ExtractFields(ctx context.Context, input SourceInput) (map[string]string, error)
}
