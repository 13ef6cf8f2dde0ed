// Package router turns a tool call target into a RoutingDecision: which
// provider to try first, and which to fall back to.
package router

import (
	"sort"

	"mcp-meta-server/internal/dedup"
	"mcp-meta-server/internal/metrics"
	"mcp-meta-server/internal/registry"
)

// maxFallbacks is the number of fallback providers carried in a
// RoutingDecision beyond the primary.
const maxFallbacks = 3

// Decision is a primary provider plus an ordered fallback chain for one
// tool invocation.
type Decision struct {
	Primary    string
	Fallbacks  []string
	Confidence float64
	Reasons    []string
	// ToolName is the unqualified tool name to invoke on Primary/Fallbacks.
	// For a namespaced target this is the target's own tool name; for a
	// merged target it may differ per candidate, so callers resolve it via
	// CandidateTool.
	ToolName string
}

// candidate pairs a provider with the tool name to call on it (merged
// members can expose different names per provider for "the same" tool).
type candidate struct {
	providerID string
	toolName   string
	score      float64
}

// Router resolves routing decisions from live registry + metrics state.
// Stateless beyond its dependencies: scores are recomputed on every call,
// since metrics are cheap and drift matters.
type Router struct {
	reg     *registry.Registry
	metrics *metrics.Store
}

// New creates a Router over the given registry and metrics store.
func New(reg *registry.Registry, store *metrics.Store) *Router {
	return &Router{reg: reg, metrics: store}
}

// ErrNoCandidate is returned when a routing target has no connected
// provider able to serve it.
type ErrNoCandidate struct{ Target string }

func (e *ErrNoCandidate) Error() string {
	return "router: no connected provider available for " + e.Target
}

// ResolveNamespaced routes a "<providerId>:<toolName>" target: there is no
// choice to make, only a connectivity check.
func (r *Router) ResolveNamespaced(providerID, toolName string) (Decision, error) {
	p, ok := r.reg.Get(providerID)
	if !ok || p.Status != registry.StatusConnected {
		return Decision{}, &ErrNoCandidate{Target: providerID + ":" + toolName}
	}
	return Decision{
		Primary:    providerID,
		ToolName:   toolName,
		Confidence: 1.0,
		Reasons:    []string{"namespaced target resolves to its own provider"},
	}, nil
}

// ResolveMerged routes a merged tool by ranking its connected members by
// the metrics score. Ties break by the member's insertion order in
// mt.Members.
func (r *Router) ResolveMerged(mt dedup.MergedTool) (Decision, error) {
	var candidates []candidate
	for i, m := range mt.Members {
		p, ok := r.reg.Get(m.ProviderID)
		if !ok || p.Status != registry.StatusConnected {
			continue
		}
		score := r.metrics.Score(m.ProviderID, m.Spec.Name)
		candidates = append(candidates, candidate{
			providerID: m.ProviderID,
			toolName:   m.Spec.Name,
			score:      score + stableTiebreak(i),
		})
	}
	if len(candidates) == 0 {
		return Decision{}, &ErrNoCandidate{Target: mt.Name}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	primary := candidates[0]
	fallbacks := candidates[1:]
	if len(fallbacks) > maxFallbacks {
		fallbacks = fallbacks[:maxFallbacks]
	}

	ids := make([]string, len(fallbacks))
	for i, c := range fallbacks {
		ids[i] = c.providerID
	}

	return Decision{
		Primary:    primary.providerID,
		Fallbacks:  ids,
		ToolName:   primary.toolName,
		Confidence: mt.Confidence,
		Reasons:    []string{"ranked by performance score"},
	}, nil
}

// CandidateTool returns the tool name to invoke on a given fallback
// provider of a merged target; merged members may expose different
// unqualified names for "the same" tool.
func CandidateTool(mt dedup.MergedTool, providerID string) (string, bool) {
	for _, m := range mt.Members {
		if m.ProviderID == providerID {
			return m.Spec.Name, true
		}
	}
	return "", false
}

// stableTiebreak nudges scores by a vanishingly small, strictly decreasing
// amount based on insertion order so sort.SliceStable's tie-break (first
// encountered wins) is preserved even though sort itself only guarantees
// stability relative to *input* order, not score order, after the nudge
// is added back out by equal float comparison. It must never be large
// enough to invert a genuine score difference.
func stableTiebreak(index int) float64 {
	return -float64(index) * 1e-12
}
