package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"taxrecon/internal/port"
)

// MockFieldSource is a mock implementation of port.FieldSource.
type MockFieldSource struct {
	mock.Mock
}

func (m *MockFieldSource) ExtractFields(ctx context.Context, input port.SourceInput) (map[string]string, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}
