// Package metatools implements the eight built-in tools the aggregator
// exposes for introspection and control: discover_servers, analyze_usage,
// get_cache_stats, suggest_tools, batch_execute, optimize_routing,
// configure_deduplication and analyze_tool_similarity.
//
// Every handler returns a structured tool result; errors never cross the
// meta-tool boundary as Go errors. Bad arguments come back as a tool-level
// error result (isError=true) with a human-readable message.
package metatools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"mcp-meta-server/internal/aggregator"
	"mcp-meta-server/internal/cache"
	"mcp-meta-server/internal/metrics"
	"mcp-meta-server/internal/registry"
)

// The eight meta-tool names. Fixed: the upstream surface always contains
// exactly these, ahead of whatever provider tools are exposed.
const (
	NameDiscoverServers   = "discover_servers"
	NameAnalyzeUsage      = "analyze_usage"
	NameGetCacheStats     = "get_cache_stats"
	NameSuggestTools      = "suggest_tools"
	NameBatchExecute      = "batch_execute"
	NameOptimizeRouting   = "optimize_routing"
	NameConfigureDedup    = "configure_deduplication"
	NameAnalyzeSimilarity = "analyze_tool_similarity"
)

// Names returns every meta-tool name, in registration order.
func Names() []string {
	return []string{
		NameDiscoverServers,
		NameAnalyzeUsage,
		NameGetCacheStats,
		NameSuggestTools,
		NameBatchExecute,
		NameOptimizeRouting,
		NameConfigureDedup,
		NameAnalyzeSimilarity,
	}
}

// IsMetaTool reports whether name is one of the eight built-ins.
func IsMetaTool(name string) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Surface holds the dependencies the meta-tool handlers read and mutate.
type Surface struct {
	reg     *registry.Registry
	metrics *metrics.Store
	cache   *cache.Cache
	agg     *aggregator.Aggregator

	// OnInventoryChanged is invoked after configure_deduplication changed
	// the exposed tool set; the upstream-facing layer uses it to re-register
	// tools with the MCP server, which in turn emits the list-changed
	// notification. Nil is fine (tests).
	OnInventoryChanged func()
}

// New builds the meta-tool surface.
func New(reg *registry.Registry, store *metrics.Store, cacheStore *cache.Cache, agg *aggregator.Aggregator) *Surface {
	return &Surface{reg: reg, metrics: store, cache: cacheStore, agg: agg}
}

// Register adds all eight meta-tools to the MCP server.
func (s *Surface) Register(server *mcp.Server) {
	server.AddTool(discoverServersTool(), s.handleDiscoverServers)
	server.AddTool(analyzeUsageTool(), s.handleAnalyzeUsage)
	server.AddTool(getCacheStatsTool(), s.handleGetCacheStats)
	server.AddTool(suggestToolsTool(), s.handleSuggestTools)
	server.AddTool(batchExecuteTool(), s.handleBatchExecute)
	server.AddTool(optimizeRoutingTool(), s.handleOptimizeRouting)
	server.AddTool(configureDedupTool(), s.handleConfigureDedup)
	server.AddTool(analyzeSimilarityTool(), s.handleAnalyzeSimilarity)
}

// decodeArgs strictly unmarshals the raw tool arguments into out. Unknown
// fields are rejected, matching the additionalProperties:false schemas.
func decodeArgs(req *mcp.CallToolRequest, out any) error {
	raw := req.Params.Arguments
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// jsonResult wraps v as a successful structured tool result.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return usageError("failed to encode result: %v", err)
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(data)}},
		StructuredContent: v,
	}
}

// usageError is a tool-level failure: well-formed result, isError=true.
func usageError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
