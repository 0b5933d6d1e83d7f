package analysis_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"taxrecon/internal/analysis"
	"taxrecon/internal/port"
	"taxrecon/mocks"
)

func newMockModel(provider string) *mocks.MockAnalysisModel {
	m := new(mocks.MockAnalysisModel)
	m.On("Provider").Return(provider).Maybe()
	m.On("Endpoint").Return(provider + "-model").Maybe()
	return m
}

func TestFallbackModel_FirstSucceeds(t *testing.T) {
	m1 := newMockModel("gemini")
	m2 := newMockModel("claude")
	m1.On("Submit", mock.Anything, "prompt", mock.Anything, mock.Anything).Return("from gemini", nil)

	fm := analysis.NewFallbackModel([]port.AnalysisModel{m1, m2})

	text, err := fm.Submit(context.Background(), "prompt", nil, port.GenerationConfig{})

	assert.NoError(t, err)
	assert.Equal(t, "from gemini", text)
	m2.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, "gemini>claude", fm.Provider())
	assert.Equal(t, "gemini-model>claude-model", fm.Endpoint())
}

func TestFallbackModel_FirstFails_SecondSucceeds(t *testing.T) {
	m1 := newMockModel("gemini")
	m2 := newMockModel("claude")
	m1.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("generic error"))
	m2.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("from claude", nil)

	fm := analysis.NewFallbackModel([]port.AnalysisModel{m1, m2})

	text, err := fm.Submit(context.Background(), "prompt", nil, port.GenerationConfig{})

	assert.NoError(t, err)
	assert.Equal(t, "from claude", text)
}

func TestFallbackModel_AllRateLimited(t *testing.T) {
	m1 := newMockModel("gemini")
	m2 := newMockModel("claude")
	m1.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", analysis.NewRateLimitError("gemini", errors.New("429"), 60))
	m2.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", analysis.NewRateLimitError("claude", errors.New("429"), 30))

	fm := analysis.NewFallbackModel([]port.AnalysisModel{m1, m2})

	_, err := fm.Submit(context.Background(), "prompt", nil, port.GenerationConfig{})

	var rlErr *analysis.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "all", rlErr.Provider)
	assert.True(t, analysis.IsRetryable(err))
}

func TestFallbackModel_AllFail_NonRateLimit(t *testing.T) {
	m1 := newMockModel("gemini")
	m2 := newMockModel("claude")
	m1.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("error 1"))
	m2.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("error 2"))

	fm := analysis.NewFallbackModel([]port.AnalysisModel{m1, m2})

	_, err := fm.Submit(context.Background(), "prompt", nil, port.GenerationConfig{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all providers failed")
	var rlErr *analysis.RateLimitError
	assert.False(t, errors.As(err, &rlErr))
}

func TestFallbackModel_SkipsOpenCircuit(t *testing.T) {
	m1 := newMockModel("gemini")
	m2 := newMockModel("claude")
	m1.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", analysis.NewRateLimitError("gemini", errors.New("429"), 60)).Once()
	m2.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("from claude", nil)

	fm := analysis.NewFallbackModel([]port.AnalysisModel{m1, m2})

	text, err := fm.Submit(context.Background(), "prompt", nil, port.GenerationConfig{})
	assert.NoError(t, err)
	assert.Equal(t, "from claude", text)

	text, err = fm.Submit(context.Background(), "prompt", nil, port.GenerationConfig{})
	assert.NoError(t, err)
	assert.Equal(t, "from claude", text)

	m1.AssertNumberOfCalls(t, "Submit", 1)
}

func TestFallbackModel_EmptyResponseStopsChain(t *testing.T) {
	m1 := newMockModel("gemini")
	m2 := newMockModel("claude")
	m1.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", &analysis.EmptyResponseError{Provider: "gemini", Document: "a.pdf"})

	fm := analysis.NewFallbackModel([]port.AnalysisModel{m1, m2})

	_, err := fm.Submit(context.Background(), "prompt", nil, port.GenerationConfig{})

	var emptyErr *analysis.EmptyResponseError
	assert.True(t, errors.As(err, &emptyErr))
	m2.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
