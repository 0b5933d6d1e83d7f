package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"taxrecon/internal/port"
)

// MockAnalysisModel is a mock implementation of port.AnalysisModel.
type MockAnalysisModel struct {
	mock.Mock
}

func (m *MockAnalysisModel) Submit(ctx context.Context, prompt string, parts []port.ContentPart, cfg port.GenerationConfig) (string, error) {
	args := m.Called(ctx, prompt, parts, cfg)
	return args.String(0), args.Error(1)
}

func (m *MockAnalysisModel) Provider() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockAnalysisModel) Endpoint() string {
	args := m.Called()
	return args.String(0)
}
