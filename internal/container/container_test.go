package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-meta-server/internal/app"
	"mcp-meta-server/internal/cache"
	"mcp-meta-server/internal/config"
	"mcp-meta-server/internal/metrics"
)

func TestBuildContainer(t *testing.T) {
	container, err := BuildContainer()
	require.NoError(t, err)
	require.NotNil(t, container)
}

func TestBuildContainer_AppResolution(t *testing.T) {
	container, err := BuildContainer()
	require.NoError(t, err)
	require.NoError(t, container.Provide(func() config.Config { return config.Default() }))

	var application *app.App
	err = container.Invoke(func(a *app.App) {
		application = a
	})
	require.NoError(t, err)
	assert.NotNil(t, application)
}

func TestBuildContainer_SharedSingletons(t *testing.T) {
	container, err := BuildContainer()
	require.NoError(t, err)
	require.NoError(t, container.Provide(func() config.Config { return config.Default() }))

	var first, second *metrics.Store
	require.NoError(t, container.Invoke(func(m *metrics.Store) { first = m }))
	require.NoError(t, container.Invoke(func(m *metrics.Store) { second = m }))
	assert.Same(t, first, second)

	var c *cache.Cache
	require.NoError(t, container.Invoke(func(cc *cache.Cache) { c = cc }))
	assert.NotNil(t, c)
}
