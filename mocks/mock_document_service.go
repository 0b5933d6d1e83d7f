package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"taxrecon/internal/domain"
)

// MockDocumentService is a mock implementation of service.DocumentService.
type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.StructuredResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StructuredResult), args.Error(1)
}

func (m *MockDocumentService) AnalyzeBatch(ctx context.Context, reqs []domain.AnalysisRequest) ([]domain.StructuredResult, error) {
	args := m.Called(ctx, reqs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StructuredResult), args.Error(1)
}

func (m *MockDocumentService) Reconcile(ctx context.Context, req domain.AnalysisRequest, secondary map[string]string) (*domain.Reconciliation, error) {
	args := m.Called(ctx, req, secondary)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reconciliation), args.Error(1)
}

func (m *MockDocumentService) Compare(primary, secondary map[string]string) domain.ComparisonResult {
	args := m.Called(primary, secondary)
	return args.Get(0).(domain.ComparisonResult)
}

func (m *MockDocumentService) Insights(results []domain.StructuredResult) domain.BatchInsights {
	args := m.Called(results)
	return args.Get(0).(domain.BatchInsights)
}

func (m *MockDocumentService) RecentTelemetry(ctx context.Context, limit int) ([]domain.TelemetryRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TelemetryRecord), args.Error(1)
}
