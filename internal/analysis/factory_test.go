package analysis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxrecon/internal/analysis"
	"taxrecon/internal/config"
	"taxrecon/internal/port"
)

func registerStub(name string) {
	analysis.RegisterProvider(name, func(_ context.Context, cfg *config.ProviderConfig) (port.AnalysisModel, error) {
		return &scriptedModel{replies: []modelReply{{text: cfg.DefaultModel}}}, nil
	})
}

func TestFactory_RegisterAndCreate(t *testing.T) {
	registerStub("test-provider")

	m, err := analysis.NewModel(context.Background(), &config.ProviderConfig{
		Provider:     "test-provider",
		DefaultModel: "test-model",
	})

	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Contains(t, analysis.RegisteredProviders(), "test-provider")
}

func TestFactory_UnknownProvider(t *testing.T) {
	m, err := analysis.NewModel(context.Background(), &config.ProviderConfig{
		Provider: "nonexistent-provider-xyz",
	})

	assert.Nil(t, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown analysis provider")
}

func TestFactory_BuildModel(t *testing.T) {
	registerStub("stub-a")
	registerStub("stub-b")

	single, err := analysis.BuildModel(context.Background(), &config.AnalysisConfig{
		Primary: config.ProviderConfig{Provider: "stub-a"},
	})
	require.NoError(t, err)
	_, isChain := single.(*analysis.FallbackModel)
	assert.False(t, isChain)

	chained, err := analysis.BuildModel(context.Background(), &config.AnalysisConfig{
		Primary:  config.ProviderConfig{Provider: "stub-a"},
		Fallback: config.ProviderConfig{Provider: "stub-b"},
	})
	require.NoError(t, err)
	_, isChain = chained.(*analysis.FallbackModel)
	assert.True(t, isChain)

	_, err = analysis.BuildModel(context.Background(), &config.AnalysisConfig{
		Primary:  config.ProviderConfig{Provider: "stub-a"},
		Fallback: config.ProviderConfig{Provider: "missing"},
	})
	assert.Error(t, err)
}
