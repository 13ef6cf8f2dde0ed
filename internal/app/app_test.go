package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-meta-server/internal/aggregator"
	"mcp-meta-server/internal/cache"
	"mcp-meta-server/internal/config"
	"mcp-meta-server/internal/dedup"
	"mcp-meta-server/internal/metatools"
	"mcp-meta-server/internal/metrics"
	"mcp-meta-server/internal/registry"
	"mcp-meta-server/internal/router"
	"mcp-meta-server/internal/version"
)

type echoCaller struct{}

func (echoCaller) Call(_ context.Context, providerID, toolName string, _ map[string]any) (aggregator.CallResult, error) {
	return aggregator.CallResult{Value: providerID + "/" + toolName}, nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()

	reg := registry.New("test", "0.0.0")
	registry.SetConnectedForTest(reg, "P",
		registry.ToolSpec{Name: "file_read", Description: "read a file", InputSchema: map[string]any{"type": "object"}},
	)

	store := metrics.New()
	cacheStore := cache.New()
	rt := router.New(reg, store)
	agg := aggregator.New(reg, rt, store, cacheStore, echoCaller{}, dedup.DefaultConfig())
	agg.Rebuild()
	surface := metatools.New(reg, store, cacheStore, agg)

	a := NewApp(AppParams{
		Config:     config.Default(),
		Registry:   reg,
		Aggregator: agg,
		Surface:    surface,
	})
	a.server = mcp.NewServer(&mcp.Implementation{Name: config.ServerName, Version: version.Version}, nil)
	return a
}

func TestSyncExposedTools(t *testing.T) {
	a := newTestApp(t)
	a.surface.Register(a.server)

	a.syncExposedTools()
	assert.NotEmpty(t, a.exposed)

	// Re-syncing is stable: same inventory, same registration set.
	before := append([]string(nil), a.exposed...)
	a.syncExposedTools()
	assert.Equal(t, before, a.exposed)
}

func TestForwardHandler_Success(t *testing.T) {
	a := newTestApp(t)

	handler := a.forwardHandler("P:file_read")
	res, err := handler(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(`{"path":"/x"}`)},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	assert.Equal(t, "P/file_read", res.Content[0].(*mcp.TextContent).Text)
}

func TestForwardHandler_UnknownToolIsToolLevelError(t *testing.T) {
	a := newTestApp(t)

	handler := a.forwardHandler("ghost:nothing")
	res, err := handler(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(`{}`)},
	})
	require.NoError(t, err, "failures must surface as tool results, not protocol errors")
	assert.True(t, res.IsError)
}

func TestValueResult(t *testing.T) {
	res := valueResult("plain text")
	assert.Equal(t, "plain text", res.Content[0].(*mcp.TextContent).Text)
	assert.Nil(t, res.StructuredContent)

	obj := map[string]any{"k": "v"}
	res = valueResult(obj)
	assert.Equal(t, obj, res.StructuredContent)
	assert.JSONEq(t, `{"k":"v"}`, res.Content[0].(*mcp.TextContent).Text)
}

func TestExposedSchema(t *testing.T) {
	assert.Equal(t, map[string]any{"type": "object"}, exposedSchema(nil))

	raw := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string"},
		},
		"required": []any{"path"},
	}
	assert.Equal(t, raw, exposedSchema(raw))
}
