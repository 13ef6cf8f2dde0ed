// Package container provides the dependency injection container setup.
package container

import (
	"go.uber.org/dig"

	"mcp-meta-server/internal/aggregator"
	"mcp-meta-server/internal/app"
	"mcp-meta-server/internal/cache"
	"mcp-meta-server/internal/config"
	"mcp-meta-server/internal/dedup"
	"mcp-meta-server/internal/metatools"
	"mcp-meta-server/internal/metrics"
	"mcp-meta-server/internal/registry"
	"mcp-meta-server/internal/router"
	"mcp-meta-server/internal/version"
)

// BuildContainer creates and configures the DI container with every core
// component. The resolved config.Config is provided separately by the
// caller (the CLI owns flag parsing), mirroring how asset values are
// provided after construction.
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	constructors := []any{
		metrics.New,
		cache.New,
		func() *registry.Registry {
			return registry.New(config.ServerName, version.Version)
		},
		router.New,
		func(reg *registry.Registry) aggregator.Caller {
			return aggregator.NewSessionCaller(reg)
		},
		func(cfg config.Config) dedup.Config {
			return cfg.DedupConfig()
		},
		aggregator.New,
		metatools.New,
		app.NewApp,
	}

	for _, c := range constructors {
		if err := container.Provide(c); err != nil {
			return nil, err
		}
	}

	return container, nil
}
