package metatools

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// falseSchema expresses additionalProperties:false; every meta-tool input
// object carries it.
func falseSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

func objectSchema(properties map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           properties,
		Required:             required,
		AdditionalProperties: falseSchema(),
	}
}

func fptr(f float64) *float64 { return &f }

func discoverServersTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        NameDiscoverServers,
		Description: "List every registered downstream MCP server with its status, tool count and performance summary",
		InputSchema: objectSchema(nil),
	}
}

func analyzeUsageTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        NameAnalyzeUsage,
		Description: "Report tool usage metrics and cache statistics, overall or for one server",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"timeframe": {
				Type: "string",
				Enum: []any{"hour", "day", "week"},
			},
			"serverId": {Type: "string"},
		}),
	}
}

func getCacheStatsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        NameGetCacheStats,
		Description: "Return result cache statistics and tuning recommendations",
		InputSchema: objectSchema(nil),
	}
}

func suggestToolsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        NameSuggestTools,
		Description: "Rank available tools by relevance to a task description",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"task":    {Type: "string"},
			"context": {Type: "object"},
		}, "task"),
	}
}

func batchExecuteTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        NameBatchExecute,
		Description: "Execute multiple tool calls concurrently in bounded waves, preserving submission order in the results",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"operations": {
				Type: "array",
				Items: objectSchema(map[string]*jsonschema.Schema{
					"tool":      {Type: "string"},
					"arguments": {Type: "object"},
				}, "tool"),
			},
			"concurrency": {
				Type:    "integer",
				Minimum: fptr(1),
				Maximum: fptr(20),
			},
		}, "operations"),
	}
}

func optimizeRoutingTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        NameOptimizeRouting,
		Description: "Flag providers with low success rates or slow responses, with current cache statistics",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"tool": {Type: "string"},
		}),
	}
}

func configureDedupTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        NameConfigureDedup,
		Description: "Adjust tool deduplication settings; toggling rebuilds the exposed tool inventory",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"enabled":             {Type: "boolean"},
			"similarityThreshold": {Type: "number", Minimum: fptr(0), Maximum: fptr(1)},
			"autoMerge":           {Type: "boolean"},
			"getStats":            {Type: "boolean"},
		}),
	}
}

func analyzeSimilarityTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        NameAnalyzeSimilarity,
		Description: "Compare two tools pairwise, or list every tool similar to a target",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"tool1":       {Type: "string"},
			"tool2":       {Type: "string"},
			"listSimilar": {Type: "boolean"},
			"toolName":    {Type: "string"},
		}),
	}
}
