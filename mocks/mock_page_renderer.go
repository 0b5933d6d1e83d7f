package mocks

import (
	"github.com/stretchr/testify/mock"

	"taxrecon/internal/port"
)

// MockPageRenderer is a mock implementation of port.PageRenderer.
type MockPageRenderer struct {
	mock.Mock
}

func (m *MockPageRenderer) RenderPages(content []byte, maxPages int) ([]port.PageImage, error) {
	args := m.Called(content, maxPages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.PageImage), args.Error(1)
}
