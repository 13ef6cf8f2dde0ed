// Package aggregator implements the tool namespace and invocation
// dispatch: it consolidates every connected provider's tools (optionally
// deduplicated) into one surface, resolves each call to a RoutingDecision,
// probes the cache, and walks the fallback chain on failure, updating
// metrics and cache as it goes.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mcp-meta-server/internal/apperr"
	"mcp-meta-server/internal/cache"
	"mcp-meta-server/internal/dedup"
	"mcp-meta-server/internal/jsonutil"
	"mcp-meta-server/internal/metrics"
	"mcp-meta-server/internal/registry"
	"mcp-meta-server/internal/router"
)

// CallResult is the outcome of invoking a tool on a provider. Value is
// whatever the provider returned, normalized to something JSON-shaped so it
// can be cached and replayed verbatim on a hit.
type CallResult struct {
	Value   any
	IsError bool
}

// Caller performs the actual remote tool invocation against a connected
// provider. Production code backs this with the registry's live client
// sessions; tests supply a stub so dispatch logic never has to spawn a
// child process to be exercised.
type Caller interface {
	Call(ctx context.Context, providerID, toolName string, args map[string]any) (CallResult, error)
}

// NamespacedTool is one entry of the non-deduplicated tool inventory.
type NamespacedTool struct {
	QualifiedName string
	ProviderID    string
	Spec          registry.ToolSpec
}

// ExposedTool is the provider-agnostic shape the upstream-facing layer
// registers with the MCP server: either a namespaced tool or a merged one,
// normalized to one name/description/schema triple.
type ExposedTool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Aggregator owns the tool inventory and the per-call dispatch state
// machine. Safe for concurrent use.
type Aggregator struct {
	mu sync.RWMutex

	reg     *registry.Registry
	rt      *router.Router
	metrics *metrics.Store
	cache   *cache.Cache
	caller  Caller

	dedupCfg dedup.Config
	merged   map[string]dedup.MergedTool
	stats    dedup.Stats
}

// New builds an Aggregator. dedupCfg is the initial deduplication
// configuration; call Rebuild once providers have connected to populate the
// tool inventory.
func New(reg *registry.Registry, rt *router.Router, metricsStore *metrics.Store, cacheStore *cache.Cache, caller Caller, dedupCfg dedup.Config) *Aggregator {
	return &Aggregator{
		reg:      reg,
		rt:       rt,
		metrics:  metricsStore,
		cache:    cacheStore,
		caller:   caller,
		dedupCfg: dedupCfg,
		merged:   make(map[string]dedup.MergedTool),
	}
}

// Rebuild takes a fresh snapshot of every connected provider's tools and, if
// deduplication is enabled, re-clusters them into merged tools. Called on
// startup and whenever the deduplication configuration changes. Returns true if the exposed tool set actually changed, which
// callers use to decide whether a list-changed notification is owed.
func (a *Aggregator) Rebuild() bool {
	before := a.ListTools()

	members := a.connectedMembers()

	a.mu.Lock()
	if a.dedupCfg.Enabled && len(members) > 0 {
		merged, stats := dedup.Cluster(members, a.dedupCfg)
		a.stats = stats
		a.merged = make(map[string]dedup.MergedTool, len(merged))
		// With autoMerge off, clustering still runs for its statistics but
		// the exposed surface stays namespaced.
		if a.dedupCfg.AutoMerge {
			for _, mt := range merged {
				a.merged[mt.Name] = mt
			}
		}
	} else {
		a.merged = make(map[string]dedup.MergedTool)
		a.stats = dedup.Stats{}
	}
	a.mu.Unlock()

	after := a.ListTools()
	return !sameToolNames(before, after)
}

func (a *Aggregator) connectedMembers() []dedup.Member {
	var members []dedup.Member
	for _, p := range a.reg.Snapshot() {
		if p.Status != registry.StatusConnected {
			continue
		}
		members = append(members, dedup.Flatten(p.Config.ID, p.Tools)...)
	}
	return members
}

func sameToolNames(a, b []ExposedTool) bool {
	if len(a) != len(b) {
		return false
	}
	names := make(map[string]bool, len(a))
	for _, t := range a {
		names[t.Name] = true
	}
	for _, t := range b {
		if !names[t.Name] {
			return false
		}
	}
	return true
}

// NamespacedTools returns the flat, non-deduplicated inventory of every
// connected provider's tools, used by meta-tools that explicitly want the
// raw surface regardless of the dedup toggle (suggest_tools,
// analyze_tool_similarity).
func (a *Aggregator) NamespacedTools() []NamespacedTool {
	var out []NamespacedTool
	for _, p := range a.reg.Snapshot() {
		if p.Status != registry.StatusConnected {
			continue
		}
		for _, t := range p.Tools {
			out = append(out, NamespacedTool{
				QualifiedName: qualify(p.Config.ID, t.Name),
				ProviderID:    p.Config.ID,
				Spec:          t,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName < out[j].QualifiedName })
	return out
}

// MergedTools returns the current merged-tool map's values, in stable
// (name-sorted) order.
func (a *Aggregator) MergedTools() []dedup.MergedTool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]dedup.MergedTool, 0, len(a.merged))
	for _, mt := range a.merged {
		out = append(out, mt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DedupStats returns the statistics from the most recent clustering run.
func (a *Aggregator) DedupStats() dedup.Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// DedupConfig returns the current deduplication configuration.
func (a *Aggregator) DedupConfig() dedup.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dedupCfg
}

// SetDedupConfig replaces the deduplication configuration and rebuilds
// the inventory. Returns whether the exposed tool set changed as a result.
func (a *Aggregator) SetDedupConfig(cfg dedup.Config) bool {
	before := a.ListTools()

	a.mu.Lock()
	a.dedupCfg = cfg
	a.mu.Unlock()
	a.Rebuild()

	return !sameToolNames(before, a.ListTools())
}

// ListTools returns what the upstream client should see: merged tools if
// dedup is enabled and produced a non-empty set, otherwise every namespaced
// tool. Meta-tools are not included here; callers that register the MCP
// server's tool set add those separately, since they never change.
func (a *Aggregator) ListTools() []ExposedTool {
	if merged := a.MergedTools(); a.DedupConfig().Enabled && len(merged) > 0 {
		out := make([]ExposedTool, 0, len(merged))
		for _, mt := range merged {
			out = append(out, ExposedTool{Name: mt.Name, Description: mt.Description, InputSchema: mt.InputSchema})
		}
		return out
	}

	namespaced := a.NamespacedTools()
	out := make([]ExposedTool, 0, len(namespaced))
	for _, t := range namespaced {
		out = append(out, ExposedTool{Name: t.QualifiedName, Description: t.Spec.Description, InputSchema: t.Spec.InputSchema})
	}
	return out
}

func qualify(providerID, toolName string) string {
	return providerID + ":" + toolName
}

// errAllCandidatesFailed is returned when every candidate in a routing
// decision's chain (primary + fallbacks) failed.
type errAllCandidatesFailed struct {
	target string
	cause  error
}

func (e *errAllCandidatesFailed) Error() string {
	return fmt.Sprintf("aggregator: all candidates failed for %q: %v", e.target, e.cause)
}

func (e *errAllCandidatesFailed) Unwrap() error { return e.cause }

// Invoke runs the full dispatch state machine for one tool call:
// Resolve -> CacheProbe -> Attempt (primary, then fallbacks) -> Cache&Done
// or surfaced failure. name is a merged tool's exposed name or a
// "<providerId>:<toolName>" namespaced target; it is never a meta-tool name
// (the caller is responsible for routing meta-tool calls elsewhere).
func (a *Aggregator) Invoke(ctx context.Context, name string, args map[string]any) (CallResult, error) {
	candidates, err := a.resolve(name)
	if err != nil {
		return CallResult{}, err
	}

	argsJSON, err := jsonutil.Canonical(args)
	if err != nil {
		return CallResult{}, fmt.Errorf("aggregator: canonicalizing arguments: %w", err)
	}

	logger := logrus.WithFields(logrus.Fields{"call": uuid.NewString(), "target": name})

	primary := candidates[0]
	primaryKey := cacheKey(primary.providerID, primary.toolName, argsJSON)
	primaryType := cache.ClassifyToolType(primary.toolName)
	if v, ok := a.cache.Get(primaryKey, primaryType); ok {
		logger.Debug("aggregator: cache hit")
		return CallResult{Value: v}, nil
	}

	var lastErr error
	for _, cand := range candidates {
		result, callErr := a.attempt(ctx, cand, args, argsJSON)
		if callErr == nil {
			return result, nil
		}
		logger.WithError(callErr).WithField("provider", cand.providerID).Warn("aggregator: candidate failed")
		lastErr = callErr
	}

	return CallResult{}, &errAllCandidatesFailed{target: name, cause: lastErr}
}

type boundCandidate struct {
	providerID string
	toolName   string
}

// resolve turns name into a RoutingDecision plus the ordered list of
// provider/tool pairs to attempt, merged-aware: a merged target's fallback
// members may expose a different unqualified tool name than the primary.
func (a *Aggregator) resolve(name string) ([]boundCandidate, error) {
	a.mu.RLock()
	mt, isMerged := a.merged[name]
	a.mu.RUnlock()

	if isMerged {
		decision, err := a.rt.ResolveMerged(mt)
		if err != nil {
			return nil, err
		}
		cands := []boundCandidate{{providerID: decision.Primary, toolName: decision.ToolName}}
		for _, pid := range decision.Fallbacks {
			toolName, ok := router.CandidateTool(mt, pid)
			if !ok {
				continue
			}
			cands = append(cands, boundCandidate{providerID: pid, toolName: toolName})
		}
		return cands, nil
	}

	providerID, toolName, ok := strings.Cut(name, ":")
	if !ok {
		return nil, apperr.MetaToolUsage(name, "unknown tool: not a merged name or \"provider:tool\"")
	}
	if _, err := a.rt.ResolveNamespaced(providerID, toolName); err != nil {
		return nil, err
	}
	return []boundCandidate{{providerID: providerID, toolName: toolName}}, nil
}

// attempt invokes one candidate, updating metrics and, on success, the
// cache under that candidate's own key (a fallback's success caches
// under the fallback's key, not the primary's).
func (a *Aggregator) attempt(ctx context.Context, cand boundCandidate, args map[string]any, argsJSON string) (CallResult, error) {
	start := time.Now()
	result, err := a.caller.Call(ctx, cand.providerID, cand.toolName, args)
	elapsed := time.Since(start)

	failed := err != nil || result.IsError
	if failed {
		if !isUncounted(err) {
			a.metrics.Record(cand.providerID, cand.toolName, false, elapsed)
		}
		if err != nil {
			a.reg.MarkDisconnected(cand.providerID, err)
			return CallResult{}, apperr.ToolInvocation(cand.providerID, cand.toolName, err)
		}
		return CallResult{}, apperr.ToolInvocation(cand.providerID, cand.toolName, fmt.Errorf("provider reported a tool-level error"))
	}

	a.metrics.Record(cand.providerID, cand.toolName, true, elapsed)

	key := cacheKey(cand.providerID, cand.toolName, argsJSON)
	toolType := cache.ClassifyToolType(cand.toolName)
	a.cache.Set(key, cand.toolName, argsJSON, result.Value, toolType, 0)

	return result, nil
}

func isUncounted(err error) bool {
	return err != nil && apperr.IsUncounted(err)
}

// cacheKey builds the canonical "<providerId>:<toolName>:<canonical-json>"
// cache key.
func cacheKey(providerID, toolName, argsJSON string) string {
	return providerID + ":" + toolName + ":" + argsJSON
}
