package dedup

import (
	"strings"

	"mcp-meta-server/internal/registry"
	"mcp-meta-server/internal/similarity"
)

// Compare scores two tools under cfg's weights.
func Compare(a, b registry.ToolSpec, cfg Config) ToolSimilarity {
	nameSim := similarity.String(a.Name, b.Name)
	descSim := descriptionSimilarity(a.Description, b.Description)
	schemaSim := similarity.Schema(a.InputSchema, b.InputSchema)

	score := cfg.NameWeight*nameSim + cfg.DescriptionWeight*descSim + cfg.SchemaWeight*schemaSim

	var reasons []string
	if nameSim > 0.8 {
		reasons = append(reasons, "similar names")
	}
	if descSim > 0.7 {
		reasons = append(reasons, "similar descriptions")
	}
	if schemaSim > 0.8 {
		reasons = append(reasons, "similar schemas")
	}
	reason := "no significant similarities"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, ", ")
	}

	strategy := StrategyHybrid
	switch {
	case nameSim > 0.9 && schemaSim > 0.8:
		strategy = StrategyName
	case descSim > 0.8 && schemaSim > 0.7:
		strategy = StrategyDescription
	case schemaSim > 0.9:
		strategy = StrategySchema
	}

	return ToolSimilarity{Score: score, Reason: reason, Strategy: strategy}
}

// descriptionSimilarity treats two empty descriptions as dissimilar (0):
// absent text is no evidence of sameness.
func descriptionSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	return similarity.String(a, b)
}
