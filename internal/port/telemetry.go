package port

import (
	"context"

	"taxrecon/internal/domain"
)

// TelemetrySink receives telemetry records. Record must not block the caller
// and never reports failure.
type TelemetrySink interface {
	Record(ctx context.Context, rec domain.TelemetryRecord)
}

// TelemetryRepository persists telemetry records.
type TelemetryRepository interface {
	Create(ctx context.Context, rec *domain.TelemetryRecord) error
	ListRecent(ctx context.Context, limit int) ([]domain.TelemetryRecord, error)
}
