package domain

import "errors"

var (
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrEmptyContent           = errors.New("document content is empty")
	ErrFileTooLarge           = errors.New("file exceeds maximum allowed size")
	ErrBatchTooLarge          = errors.New("batch exceeds maximum allowed size")
	ErrEmptyBatch             = errors.New("batch contains no documents")
	ErrNoSecondarySource      = errors.New("no secondary fields supplied and no secondary source configured")
	ErrInvalidFieldMap        = errors.New("field map must be a flat object of strings")
	ErrTelemetryUnavailable   = errors.New("telemetry store is not configured")
)
