package dedup

import (
	"mcp-meta-server/internal/registry"
	"mcp-meta-server/internal/similarity"
)

// largeSetThreshold is the input size above which clustering switches from
// plain greedy grouping to the two-stage pre-grouped approximation.
const largeSetThreshold = 100

// preGroupNameThreshold is the cheap name-similarity cutoff used to
// pre-group large inputs before the greedy pass runs inside each group.
const preGroupNameThreshold = 0.6

// group is one cluster of members plus the pairwise scores that formed it
// (used to compute confidence).
type group struct {
	members []Member
	scores  []float64
}

// Cluster groups a flat list of (providerID, ToolSpec) pairs into merged
// tools. Returns the merged tools and clustering stats.
func Cluster(members []Member, cfg Config) ([]MergedTool, Stats) {
	var groups []group
	if len(members) <= largeSetThreshold {
		groups = greedyCluster(members, cfg)
	} else {
		groups = preGroupedCluster(members, cfg)
	}

	merged := make([]MergedTool, 0, len(groups))
	var totalConfidence float64
	mergedGroupCount := 0
	for _, g := range groups {
		mt := buildMergedTool(g)
		merged = append(merged, mt)
		totalConfidence += mt.Confidence
		if len(g.members) > 1 {
			mergedGroupCount++
		}
	}

	stats := Stats{
		TotalInputTools: len(members),
		MergedGroups:    mergedGroupCount,
	}
	if len(members) > 0 {
		stats.ReductionPercentage = float64(len(members)-len(merged)) / float64(len(members)) * 100
	}
	if len(merged) > 0 {
		stats.AvgConfidence = totalConfidence / float64(len(merged))
	}

	return merged, stats
}

// greedyCluster is the O(n^2)-worst-case single-pass grouping used for
// inputs of at most largeSetThreshold members.
func greedyCluster(members []Member, cfg Config) []group {
	processed := make([]bool, len(members))
	var groups []group

	for i := range members {
		if processed[i] {
			continue
		}
		g := group{members: []Member{members[i]}}
		processed[i] = true

		for j := i + 1; j < len(members); j++ {
			if processed[j] {
				continue
			}
			sim := Compare(members[i].Spec, members[j].Spec, cfg)
			if sim.Score >= cfg.SimilarityThreshold {
				g.members = append(g.members, members[j])
				g.scores = append(g.scores, sim.Score)
				processed[j] = true
			}
		}
		groups = append(groups, g)
	}
	return groups
}

// preGroupedCluster pre-groups members by cheap name similarity, then runs
// the greedy pass inside each pre-group. A pair whose name similarity
// falls below preGroupNameThreshold can never merge, even if their
// description and schema are identical, an accepted precision/performance
// trade-off for large inputs.
func preGroupedCluster(members []Member, cfg Config) []group {
	processed := make([]bool, len(members))
	var preGroups [][]Member

	for i := range members {
		if processed[i] {
			continue
		}
		pg := []Member{members[i]}
		processed[i] = true
		for j := i + 1; j < len(members); j++ {
			if processed[j] {
				continue
			}
			if similarity.String(members[i].Spec.Name, members[j].Spec.Name) >= preGroupNameThreshold {
				pg = append(pg, members[j])
				processed[j] = true
			}
		}
		preGroups = append(preGroups, pg)
	}

	var groups []group
	for _, pg := range preGroups {
		groups = append(groups, greedyCluster(pg, cfg)...)
	}
	return groups
}

// buildMergedTool picks the representative and computes the merged tool's
// exposed fields.
func buildMergedTool(g group) MergedTool {
	name := representativeName(g.members)
	description := longestDescription(g.members)
	schema := representativeSchema(g.members, description)

	confidence := 1.0
	if len(g.members) > 1 {
		var sum float64
		for _, s := range g.scores {
			sum += s
		}
		if len(g.scores) > 0 {
			confidence = sum / float64(len(g.scores))
		}
	}

	return MergedTool{
		Name:              name,
		Description:       description,
		InputSchema:       schema,
		Members:           g.members,
		Confidence:        confidence,
		PrimaryProviderID: representativeProvider(g.members, description),
	}
}

// representativeName returns the most frequent member tool name, ties
// broken by first encountered.
func representativeName(members []Member) string {
	counts := make(map[string]int)
	order := make([]string, 0, len(members))
	for _, m := range members {
		if counts[m.Spec.Name] == 0 {
			order = append(order, m.Spec.Name)
		}
		counts[m.Spec.Name]++
	}
	best := order[0]
	bestCount := counts[best]
	for _, name := range order[1:] {
		if counts[name] > bestCount {
			best = name
			bestCount = counts[name]
		}
	}
	return best
}

const noDescriptionPlaceholder = "No description available"

// longestDescription returns the longest non-empty member description, or
// the fixed placeholder if none have one.
func longestDescription(members []Member) string {
	best := ""
	for _, m := range members {
		if len(m.Spec.Description) > len(best) {
			best = m.Spec.Description
		}
	}
	if best == "" {
		return noDescriptionPlaceholder
	}
	return best
}

// representativeSchema returns the schema belonging to whichever member
// contributed the winning description (first encountered on ties), or the
// first member's schema if no description won.
func representativeSchema(members []Member, description string) map[string]any {
	if description != noDescriptionPlaceholder {
		for _, m := range members {
			if m.Spec.Description == description {
				return m.Spec.InputSchema
			}
		}
	}
	return members[0].Spec.InputSchema
}

func representativeProvider(members []Member, description string) string {
	if description != noDescriptionPlaceholder {
		for _, m := range members {
			if m.Spec.Description == description {
				return m.ProviderID
			}
		}
	}
	return members[0].ProviderID
}

// Flatten turns a provider's advertised tools into dedup Members, a
// convenience for callers assembling the flat input list from a registry
// snapshot.
func Flatten(providerID string, tools []registry.ToolSpec) []Member {
	out := make([]Member, 0, len(tools))
	for _, t := range tools {
		out = append(out, Member{ProviderID: providerID, Spec: t})
	}
	return out
}
