package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"taxrecon/internal/domain"
)

// MockTelemetrySink is a mock implementation of port.TelemetrySink.
type MockTelemetrySink struct {
	mock.Mock
}

func (m *MockTelemetrySink) Record(ctx context.Context, rec domain.TelemetryRecord) {
	m.Called(ctx, rec)
}

// MockTelemetryRepo is a mock implementation of port.TelemetryRepository.
type MockTelemetryRepo struct {
	mock.Mock
}

func (m *MockTelemetryRepo) Create(ctx context.Context, rec *domain.TelemetryRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockTelemetryRepo) ListRecent(ctx context.Context, limit int) ([]domain.TelemetryRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TelemetryRecord), args.Error(1)
}
