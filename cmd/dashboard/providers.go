package main

import (
	"fmt"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/config"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/controller"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/provider"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/session"
	"go.uber.org/zap"
)

// newSelectorFactory returns a factory that builds a fresh provider pair per
// call. The controller client is shared since it holds no session state.
func newSelectorFactory(cfg *config.Config, logger *zap.Logger, metrics *provider.Metrics) (session.Factory, error) {
	initial, err := provider.ParseVariant(cfg.Provider.Default)
	if err != nil {
		return nil, err
	}

	client, err := controller.NewClient(cfg.Remote.BaseURL, controller.WithTimeout(cfg.Remote.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create controller client: %w", err)
	}

	opts := []provider.Option{
		provider.WithLogger(logger),
		provider.WithMetrics(metrics),
	}

	return func() (*provider.Selector, error) {
		return provider.NewSelector(initial,
			provider.NewSynthetic(opts...),
			provider.NewRemote(client, opts...),
		)
	}, nil
}
