package metatools

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"mcp-meta-server/internal/aggregator"
	"mcp-meta-server/internal/cache"
	"mcp-meta-server/internal/dedup"
	"mcp-meta-server/internal/metrics"
	"mcp-meta-server/internal/registry"
)

const (
	defaultBatchConcurrency = 5
	maxBatchConcurrency     = 20
	suggestTopN             = 10
)

// metricRow is one (provider, tool) metrics entry, flattened and sorted
// for stable output.
type metricRow struct {
	Provider string
	Tool     string
	Snap     metrics.Snapshot
}

func (s *Surface) sortedMetrics() []metricRow {
	all := s.metrics.All()
	rows := make([]metricRow, 0, len(all))
	for k, snap := range all {
		rows = append(rows, metricRow{Provider: k[0], Tool: k[1], Snap: snap})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Provider != rows[j].Provider {
			return rows[i].Provider < rows[j].Provider
		}
		return rows[i].Tool < rows[j].Tool
	})
	return rows
}

func snapshotPayload(snap metrics.Snapshot) map[string]any {
	return map[string]any{
		"totalCalls":      snap.TotalCalls,
		"failureCount":    snap.FailureCount,
		"successRate":     snap.SuccessRate,
		"avgResponseTime": snap.AvgResponseMs,
		"lastUsed":        snap.LastUsed,
	}
}

func cacheStatsPayload(s cache.Stats) map[string]any {
	recommendations := s.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}
	return map[string]any{
		"size":            s.Size,
		"hitRate":         s.HitRate,
		"totalRequests":   s.TotalRequests,
		"totalHits":       s.TotalHits,
		"avgHitCount":     s.AvgHitCount,
		"oldestEntry":     s.OldestEntry,
		"newestEntry":     s.NewestEntry,
		"recommendations": recommendations,
	}
}

func (s *Surface) handleDiscoverServers(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	providers := s.reg.Snapshot()
	sort.Slice(providers, func(i, j int) bool { return providers[i].Config.ID < providers[j].Config.ID })

	rows := s.sortedMetrics()

	connected := 0
	servers := make([]map[string]any, 0, len(providers))
	for _, p := range providers {
		if p.Status == registry.StatusConnected {
			connected++
		}

		var totalCalls, failures int64
		var weightedMs float64
		for _, row := range rows {
			if row.Provider != p.Config.ID {
				continue
			}
			totalCalls += row.Snap.TotalCalls
			failures += row.Snap.FailureCount
			weightedMs += row.Snap.AvgResponseMs * float64(row.Snap.TotalCalls)
		}
		summary := map[string]any{
			"totalCalls":      totalCalls,
			"failureCount":    failures,
			"successRate":     1.0,
			"avgResponseTime": 0.0,
		}
		if totalCalls > 0 {
			summary["successRate"] = float64(totalCalls-failures) / float64(totalCalls)
			summary["avgResponseTime"] = weightedMs / float64(totalCalls)
		}

		servers = append(servers, map[string]any{
			"id":          p.Config.ID,
			"name":        p.Config.Name,
			"description": p.Config.Description,
			"status":      string(p.Status),
			"toolCount":   len(p.Tools),
			"command":     p.Config.Command,
			"metrics":     summary,
		})
	}

	return jsonResult(map[string]any{
		"totalServers":     len(providers),
		"connectedServers": connected,
		"servers":          servers,
	}), nil
}

type analyzeUsageInput struct {
	Timeframe string `json:"timeframe"`
	ServerID  string `json:"serverId"`
}

func timeframeWindow(timeframe string) (time.Duration, bool) {
	switch timeframe {
	case "hour":
		return time.Hour, true
	case "day":
		return 24 * time.Hour, true
	case "week":
		return 168 * time.Hour, true
	}
	return 0, false
}

func (s *Surface) handleAnalyzeUsage(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in analyzeUsageInput
	if err := decodeArgs(req, &in); err != nil {
		return usageError("invalid arguments: %v", err), nil
	}
	if in.Timeframe == "" {
		in.Timeframe = "day"
	}
	window, ok := timeframeWindow(in.Timeframe)
	if !ok {
		return usageError("unknown timeframe %q: expected hour, day, or week", in.Timeframe), nil
	}

	cutoff := time.Now().Add(-window)
	var rows []metricRow
	for _, row := range s.sortedMetrics() {
		if row.Snap.LastUsed.Before(cutoff) {
			continue
		}
		rows = append(rows, row)
	}

	var totalCalls, totalFailures int64
	for _, row := range rows {
		totalCalls += row.Snap.TotalCalls
		totalFailures += row.Snap.FailureCount
	}

	out := map[string]any{
		"timeframe":     in.Timeframe,
		"totalCalls":    totalCalls,
		"totalFailures": totalFailures,
		"cacheStats":    cacheStatsPayload(s.cache.GetStats()),
	}

	if in.ServerID != "" {
		if _, found := s.reg.Get(in.ServerID); !found {
			return usageError("unknown server %q", in.ServerID), nil
		}
		tools := make(map[string]any)
		for _, row := range rows {
			if row.Provider == in.ServerID {
				tools[row.Tool] = snapshotPayload(row.Snap)
			}
		}
		out["server"] = map[string]any{"id": in.ServerID, "tools": tools}
		return jsonResult(out), nil
	}

	type providerTotals struct {
		calls, failures int64
		weightedMs      float64
		tools           int64
	}
	perProvider := make(map[string]*providerTotals)
	for _, row := range rows {
		totals := perProvider[row.Provider]
		if totals == nil {
			totals = &providerTotals{}
			perProvider[row.Provider] = totals
		}
		totals.calls += row.Snap.TotalCalls
		totals.failures += row.Snap.FailureCount
		totals.weightedMs += row.Snap.AvgResponseMs * float64(row.Snap.TotalCalls)
		totals.tools++
	}

	overview := make(map[string]any)
	for provider, totals := range perProvider {
		entry := map[string]any{
			"totalCalls":      totals.calls,
			"failureCount":    totals.failures,
			"toolsUsed":       totals.tools,
			"successRate":     1.0,
			"avgResponseTime": 0.0,
		}
		if totals.calls > 0 {
			entry["successRate"] = float64(totals.calls-totals.failures) / float64(totals.calls)
			entry["avgResponseTime"] = totals.weightedMs / float64(totals.calls)
		}
		overview[provider] = entry
	}
	out["overview"] = overview

	return jsonResult(out), nil
}

func (s *Surface) handleGetCacheStats(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(cacheStatsPayload(s.cache.GetStats())), nil
}

type suggestToolsInput struct {
	Task    string         `json:"task"`
	Context map[string]any `json:"context"`
}

func (s *Surface) handleSuggestTools(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in suggestToolsInput
	if err := decodeArgs(req, &in); err != nil {
		return usageError("invalid arguments: %v", err), nil
	}
	if strings.TrimSpace(in.Task) == "" {
		return usageError("task is required"), nil
	}

	type suggestion struct {
		tool  aggregator.NamespacedTool
		score float64
	}

	tools := s.agg.NamespacedTools()
	suggestions := make([]suggestion, 0, len(tools))
	for _, t := range tools {
		snap := s.metrics.Get(t.ProviderID, t.Spec.Name)
		suggestions = append(suggestions, suggestion{
			tool:  t,
			score: relevanceScore(in.Task, t, snap),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool { return suggestions[i].score > suggestions[j].score })
	if len(suggestions) > suggestTopN {
		suggestions = suggestions[:suggestTopN]
	}

	out := make([]map[string]any, 0, len(suggestions))
	for _, sg := range suggestions {
		out = append(out, map[string]any{
			"tool":           sg.tool.QualifiedName,
			"provider":       sg.tool.ProviderID,
			"description":    sg.tool.Spec.Description,
			"relevanceScore": sg.score,
		})
	}
	return jsonResult(map[string]any{"task": in.Task, "suggestions": out}), nil
}

// relevanceScore ranks a namespaced tool against a task description:
// substring containment between task and qualified name is worth 0.5, the
// task/description word overlap up to 0.3, and observed performance up to
// 0.3 more. Clipped to 1.
func relevanceScore(task string, tool aggregator.NamespacedTool, snap metrics.Snapshot) float64 {
	taskLower := strings.ToLower(task)
	nameLower := strings.ToLower(tool.QualifiedName)
	descLower := strings.ToLower(tool.Spec.Description)

	score := 0.0
	if strings.Contains(taskLower, nameLower) || strings.Contains(nameLower, taskLower) {
		score += 0.5
	}

	taskWords := strings.Fields(taskLower)
	if len(taskWords) > 0 {
		descWords := make(map[string]bool)
		for _, w := range strings.Fields(descLower) {
			descWords[w] = true
		}
		matched := make(map[string]bool)
		for _, w := range taskWords {
			if descWords[w] {
				matched[w] = true
			}
		}
		score += 0.3 * float64(len(matched)) / float64(len(taskWords))
	}

	if snap.TotalCalls > 0 {
		responseScore := 1 - snap.AvgResponseMs/10000
		if responseScore < 0 {
			responseScore = 0
		}
		score += 0.2*snap.SuccessRate + 0.1*responseScore
	}

	if score > 1 {
		score = 1
	}
	return score
}

type batchOperation struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

type batchExecuteInput struct {
	Operations  []batchOperation `json:"operations"`
	Concurrency int              `json:"concurrency"`
}

func (s *Surface) handleBatchExecute(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in batchExecuteInput
	if err := decodeArgs(req, &in); err != nil {
		return usageError("invalid arguments: %v", err), nil
	}
	if len(in.Operations) == 0 {
		return usageError("operations must be a non-empty array"), nil
	}
	for i, op := range in.Operations {
		if op.Tool == "" {
			return usageError("operations[%d] is missing its tool name", i), nil
		}
	}
	concurrency := in.Concurrency
	if concurrency == 0 {
		concurrency = defaultBatchConcurrency
	}
	if concurrency < 1 || concurrency > maxBatchConcurrency {
		return usageError("concurrency %d out of range [1,%d]", concurrency, maxBatchConcurrency), nil
	}

	// Waves are strictly sequential; operations inside one wave run
	// concurrently. Results land at their submission index, so the output
	// order never depends on completion order.
	results := make([]map[string]any, len(in.Operations))
	for start := 0; start < len(in.Operations); start += concurrency {
		end := start + concurrency
		if end > len(in.Operations) {
			end = len(in.Operations)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				op := in.Operations[i]
				res, err := s.agg.Invoke(ctx, op.Tool, op.Arguments)
				if err != nil {
					results[i] = map[string]any{"tool": op.Tool, "status": "error", "error": err.Error()}
					return
				}
				results[i] = map[string]any{"tool": op.Tool, "status": "success", "result": res.Value}
			}(i)
		}
		wg.Wait()
	}

	succeeded := 0
	for _, r := range results {
		if r["status"] == "success" {
			succeeded++
		}
	}
	logrus.WithFields(logrus.Fields{"operations": len(results), "succeeded": succeeded}).Debug("metatools: batch execution finished")

	return jsonResult(map[string]any{
		"operations": len(results),
		"succeeded":  succeeded,
		"results":    results,
	}), nil
}

type optimizeRoutingInput struct {
	Tool string `json:"tool"`
}

func (s *Surface) handleOptimizeRouting(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in optimizeRoutingInput
	if err := decodeArgs(req, &in); err != nil {
		return usageError("invalid arguments: %v", err), nil
	}

	var warnings []string
	analyzed := 0
	for _, row := range s.sortedMetrics() {
		if in.Tool != "" && row.Tool != in.Tool {
			continue
		}
		analyzed++
		if row.Snap.TotalCalls == 0 {
			continue
		}
		target := row.Provider + ":" + row.Tool
		if row.Snap.SuccessRate < 0.8 {
			warnings = append(warnings, target+" has a low success rate - consider deprioritizing this provider")
		}
		if row.Snap.AvgResponseMs > 5000 {
			warnings = append(warnings, target+" is responding slowly - consider deprioritizing this provider")
		}
	}
	if warnings == nil {
		warnings = []string{}
	}

	return jsonResult(map[string]any{
		"analyzedTools": analyzed,
		"warnings":      warnings,
		"cacheStats":    cacheStatsPayload(s.cache.GetStats()),
	}), nil
}

type configureDedupInput struct {
	Enabled             *bool    `json:"enabled"`
	SimilarityThreshold *float64 `json:"similarityThreshold"`
	AutoMerge           *bool    `json:"autoMerge"`
	GetStats            bool     `json:"getStats"`
}

func (s *Surface) handleConfigureDedup(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in configureDedupInput
	if err := decodeArgs(req, &in); err != nil {
		return usageError("invalid arguments: %v", err), nil
	}
	if in.SimilarityThreshold != nil && (*in.SimilarityThreshold < 0 || *in.SimilarityThreshold > 1) {
		return usageError("similarityThreshold %v out of range [0,1]", *in.SimilarityThreshold), nil
	}

	cfg := s.agg.DedupConfig()
	if in.Enabled != nil {
		cfg.Enabled = *in.Enabled
	}
	if in.SimilarityThreshold != nil {
		cfg.SimilarityThreshold = *in.SimilarityThreshold
	}
	if in.AutoMerge != nil {
		cfg.AutoMerge = *in.AutoMerge
	}

	changed := s.agg.SetDedupConfig(cfg)
	if changed && s.OnInventoryChanged != nil {
		s.OnInventoryChanged()
	}

	out := map[string]any{
		"config": map[string]any{
			"enabled":             cfg.Enabled,
			"similarityThreshold": cfg.SimilarityThreshold,
			"autoMerge":           cfg.AutoMerge,
		},
		"inventoryRebuilt": changed,
	}

	if in.GetStats {
		stats := s.agg.DedupStats()
		out["stats"] = map[string]any{
			"totalInputTools":     stats.TotalInputTools,
			"mergedGroups":        stats.MergedGroups,
			"reductionPercentage": stats.ReductionPercentage,
			"avgConfidence":       stats.AvgConfidence,
		}
		out["toolCounts"] = map[string]any{
			"namespaced": len(s.agg.NamespacedTools()),
			"merged":     len(s.agg.MergedTools()),
			"exposed":    len(s.agg.ListTools()),
		}
	}

	return jsonResult(out), nil
}

type analyzeSimilarityInput struct {
	Tool1       string `json:"tool1"`
	Tool2       string `json:"tool2"`
	ListSimilar bool   `json:"listSimilar"`
	ToolName    string `json:"toolName"`
}

// findTool resolves a tool reference against the namespaced inventory:
// exact qualified name first, then first tool whose unqualified name
// matches.
func (s *Surface) findTool(name string) (aggregator.NamespacedTool, bool) {
	tools := s.agg.NamespacedTools()
	for _, t := range tools {
		if t.QualifiedName == name {
			return t, true
		}
	}
	for _, t := range tools {
		if t.Spec.Name == name {
			return t, true
		}
	}
	return aggregator.NamespacedTool{}, false
}

func similarityPayload(sim dedup.ToolSimilarity) map[string]any {
	return map[string]any{
		"score":    sim.Score,
		"reason":   sim.Reason,
		"strategy": string(sim.Strategy),
	}
}

func (s *Surface) handleAnalyzeSimilarity(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in analyzeSimilarityInput
	if err := decodeArgs(req, &in); err != nil {
		return usageError("invalid arguments: %v", err), nil
	}

	cfg := s.agg.DedupConfig()

	switch {
	case in.ListSimilar:
		if in.ToolName == "" {
			return usageError("toolName is required with listSimilar"), nil
		}
		target, ok := s.findTool(in.ToolName)
		if !ok {
			return usageError("unknown tool %q", in.ToolName), nil
		}

		type match struct {
			payload map[string]any
			score   float64
		}
		var matches []match
		for _, t := range s.agg.NamespacedTools() {
			if t.QualifiedName == target.QualifiedName {
				continue
			}
			sim := dedup.Compare(target.Spec, t.Spec, cfg)
			if sim.Score <= 0.5 {
				continue
			}
			payload := similarityPayload(sim)
			payload["tool"] = t.QualifiedName
			matches = append(matches, match{payload: payload, score: sim.Score})
		}
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

		out := make([]map[string]any, 0, len(matches))
		for _, m := range matches {
			out = append(out, m.payload)
		}
		return jsonResult(map[string]any{"tool": target.QualifiedName, "similar": out}), nil

	case in.Tool1 != "" && in.Tool2 != "":
		t1, ok := s.findTool(in.Tool1)
		if !ok {
			return usageError("unknown tool %q", in.Tool1), nil
		}
		t2, ok := s.findTool(in.Tool2)
		if !ok {
			return usageError("unknown tool %q", in.Tool2), nil
		}
		payload := similarityPayload(dedup.Compare(t1.Spec, t2.Spec, cfg))
		payload["tool1"] = t1.QualifiedName
		payload["tool2"] = t2.QualifiedName
		return jsonResult(payload), nil
	}

	return usageError("expected either tool1 and tool2, or listSimilar with toolName"), nil
}
