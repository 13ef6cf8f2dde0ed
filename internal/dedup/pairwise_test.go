package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mcp-meta-server/internal/registry"
)

func stringSchema(props ...string) map[string]any {
	properties := map[string]any{}
	for _, p := range props {
		properties[p] = map[string]any{"type": "string"}
	}
	return map[string]any{"type": "object", "properties": properties}
}

func TestCompare_BelowDefaultThreshold(t *testing.T) {
	// list_files vs listFiles: high name similarity, identical schemas,
	// empty descriptions. With default weights the score lands around 0.6,
	// below the 0.8 threshold.
	a := registry.ToolSpec{Name: "list_files", InputSchema: stringSchema("path")}
	b := registry.ToolSpec{Name: "listFiles", InputSchema: stringSchema("path")}

	sim := Compare(a, b, DefaultConfig())
	assert.Less(t, sim.Score, 0.8)
	assert.Greater(t, sim.Score, 0.5)
}

func TestCompare_EmptyDescriptionsScoreZero(t *testing.T) {
	a := registry.ToolSpec{Name: "x", InputSchema: stringSchema()}
	b := registry.ToolSpec{Name: "y", InputSchema: stringSchema()}

	cfg := DefaultConfig()
	cfg.NameWeight = 0
	cfg.SchemaWeight = 0
	cfg.DescriptionWeight = 1

	sim := Compare(a, b, cfg)
	assert.Equal(t, 0.0, sim.Score)
}

func TestCompare_ReasonConcatenation(t *testing.T) {
	a := registry.ToolSpec{Name: "read_file", Description: "read a file from disk", InputSchema: stringSchema("path")}
	b := registry.ToolSpec{Name: "read_files", Description: "read a file from disk", InputSchema: stringSchema("path")}

	sim := Compare(a, b, DefaultConfig())
	assert.Equal(t, "similar names, similar descriptions, similar schemas", sim.Reason)
	assert.Equal(t, StrategyName, sim.Strategy)
}

func TestCompare_NoSignificantSimilarities(t *testing.T) {
	a := registry.ToolSpec{Name: "alpha", Description: "does one thing", InputSchema: stringSchema("x")}
	b := registry.ToolSpec{Name: "zzzz", Description: "entirely unrelated concerns", InputSchema: stringSchema("completely", "different")}

	sim := Compare(a, b, DefaultConfig())
	assert.Equal(t, "no significant similarities", sim.Reason)
}

func TestCompare_StrategySchema(t *testing.T) {
	// Identical schemas, dissimilar names and descriptions: the schema
	// signal dominates.
	a := registry.ToolSpec{Name: "alpha", Description: "first thing entirely", InputSchema: stringSchema("path", "mode")}
	b := registry.ToolSpec{Name: "zulu", Description: "unrelated second tool", InputSchema: stringSchema("path", "mode")}

	sim := Compare(a, b, DefaultConfig())
	assert.Equal(t, StrategySchema, sim.Strategy)
}

func TestCompare_WeightsAreConfigurable(t *testing.T) {
	a := registry.ToolSpec{Name: "same_name", InputSchema: stringSchema("p")}
	b := registry.ToolSpec{Name: "same_name", InputSchema: stringSchema("p")}

	cfg := DefaultConfig()
	cfg.NameWeight = 1
	cfg.DescriptionWeight = 0
	cfg.SchemaWeight = 0

	sim := Compare(a, b, cfg)
	assert.InDelta(t, 1.0, sim.Score, 1e-9)
}
