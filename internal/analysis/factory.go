package analysis

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"taxrecon/internal/config"
	"taxrecon/internal/port"
)

// ProviderFactory creates an AnalysisModel from a provider config.
type ProviderFactory func(ctx context.Context, cfg *config.ProviderConfig) (port.AnalysisModel, error)

// registry of provider factories, populated explicitly via RegisterProvider.
var (
	providersMu sync.RWMutex
	providers   = map[string]ProviderFactory{}
)

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[name] = factory
}

// RegisteredProviders returns the registered provider names, sorted.
func RegisteredProviders() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewModel creates an AnalysisModel from a provider config using the registered factory.
func NewModel(ctx context.Context, cfg *config.ProviderConfig) (port.AnalysisModel, error) {
	providersMu.RLock()
	factory, ok := providers[cfg.Provider]
	providersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown analysis provider: %s", cfg.Provider)
	}
	return factory(ctx, cfg)
}

// BuildModel creates the primary model and, when a fallback provider is
// configured, wraps both in a FallbackModel.
func BuildModel(ctx context.Context, cfg *config.AnalysisConfig) (port.AnalysisModel, error) {
	primary, err := NewModel(ctx, &cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("creating primary model: %w", err)
	}
	fbCfg := cfg.FallbackConfig()
	if fbCfg == nil {
		return primary, nil
	}
	secondary, err := NewModel(ctx, fbCfg)
	if err != nil {
		return nil, fmt.Errorf("creating fallback model: %w", err)
	}
	return NewFallbackModel([]port.AnalysisModel{primary, secondary}), nil
}
