// Package cache implements the type-aware result cache: TTL expiry, LRU
// eviction, hit/miss statistics, and adaptive per-type TTL tuning.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// defaultMaxSize bounds the number of live entries before LRU eviction.
const defaultMaxSize = 1000

var defaultTTL = map[string]time.Duration{
	"filesystem":  60 * time.Second,
	"database":    180 * time.Second,
	"network":     120 * time.Second,
	"computation": 600 * time.Second,
	"static":      3600 * time.Second,
	"default":     300 * time.Second,
}

const (
	ttlFloor = 60 * time.Second
	ttlCap   = 3600 * time.Second
)

// noCacheNames and noCacheArgFragments drive ShouldCache's heuristics.
var noCacheNames = []string{"random", "uuid", "current_time", "now"}
var noCacheArgFragments = []string{"timestamp", "current"}

// entry is one cached result.
type entry struct {
	value      any
	toolType   string
	expiryAt   time.Time
	hitCount   int64
	lastAccess time.Time
}

// Stats is the cache's externally-reported summary.
type Stats struct {
	Size            int
	HitRate         float64
	TotalRequests   int64
	TotalHits       int64
	AvgHitCount     float64
	OldestEntry     time.Time
	NewestEntry     time.Time
	Recommendations []string
}

// Cache is a concurrency-safe, type-aware result cache.
type Cache struct {
	mu      sync.Mutex
	data    map[string]*entry
	maxSize int
	ttl     map[string]time.Duration

	totalRequests int64
	totalHits     int64
	typeRequests  map[string]int64

	now func() time.Time
}

// New creates an empty cache with the default type TTL table and a
// maxSize of 1000 entries.
func New() *Cache {
	ttl := make(map[string]time.Duration, len(defaultTTL))
	for k, v := range defaultTTL {
		ttl[k] = v
	}
	return &Cache{
		data:         make(map[string]*entry),
		maxSize:      defaultMaxSize,
		ttl:          ttl,
		typeRequests: make(map[string]int64),
		now:          time.Now,
	}
}

// ClassifyToolType maps a tool name to one of the fixed tool-type buckets,
// first match wins.
func ClassifyToolType(toolName string) string {
	name := strings.ToLower(toolName)
	switch {
	case containsAny(name, "file", "read", "write"):
		return "filesystem"
	case containsAny(name, "db", "sql", "query"):
		return "database"
	case containsAny(name, "http", "api", "request"):
		return "network"
	case containsAny(name, "compute", "calculate", "process"):
		return "computation"
	case containsAny(name, "static", "const", "reference"):
		return "static"
	default:
		return "default"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ShouldCache applies the no-cache heuristics: a tool name
// containing a volatility keyword, or an arguments blob whose lowercased
// JSON mentions "timestamp" or "current", is never cached.
func ShouldCache(toolName string, argsJSON string) bool {
	name := strings.ToLower(toolName)
	for _, bad := range noCacheNames {
		if strings.Contains(name, bad) {
			return false
		}
	}
	lowerArgs := strings.ToLower(argsJSON)
	for _, bad := range noCacheArgFragments {
		if strings.Contains(lowerArgs, bad) {
			return false
		}
	}
	return true
}

// Set stores value under key with the TTL for toolType, unless ttlOverride
// is non-zero. Rejects storage for keys ShouldCache would reject; callers
// pass the tool name and canonical args JSON they used to build key so Set
// can make that decision itself.
func (c *Cache) Set(key, toolName, argsJSON string, value any, toolType string, ttlOverride time.Duration) {
	if !ShouldCache(toolName, argsJSON) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxSize {
		c.evictOldestLocked()
	}

	ttl := ttlOverride
	if ttl <= 0 {
		ttl = c.ttlForLocked(toolType)
	}

	now := c.now()
	c.data[key] = &entry{
		value:      value,
		toolType:   toolType,
		expiryAt:   now.Add(ttl),
		hitCount:   0,
		lastAccess: now,
	}
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAccess time.Time
	first := true
	for k, e := range c.data {
		if first || e.lastAccess.Before(oldestAccess) {
			oldestKey = k
			oldestAccess = e.lastAccess
			first = false
		}
	}
	if !first {
		delete(c.data, oldestKey)
		logrus.WithField("key", oldestKey).Debug("cache: evicted LRU entry")
	}
}

// Get returns the cached value for key, if present and not expired.
// toolType is the caller's classification of the tool being looked up
// (known ahead of the lookup: the aggregator classifies before it builds
// the cache key); it is counted against the per-tool-type request tally
// whether this call hits or misses.
func (c *Cache) Get(key, toolType string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests++
	c.typeRequests[toolType]++

	e, ok := c.data[key]
	if !ok {
		return nil, false
	}

	now := c.now()
	if !e.expiryAt.After(now) {
		delete(c.data, key)
		return nil, false
	}

	e.hitCount++
	e.lastAccess = now
	c.totalHits++

	return e.value, true
}

func (c *Cache) ttlForLocked(toolType string) time.Duration {
	if ttl, ok := c.ttl[toolType]; ok {
		return ttl
	}
	return defaultTTL["default"]
}

// AdjustTTL applies the adaptive-TTL rule for every tool type: a hit rate
// above 0.7 grows the TTL by 20% (capped); below 0.2 shrinks it by 20%
// (floored). Called periodically and on every GetStats call.
func (c *Cache) AdjustTTL() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adjustTTLLocked()
}

func (c *Cache) adjustTTLLocked() {
	rates := c.typeHitRatesLocked()
	for toolType, rate := range rates {
		cur := c.ttlForLocked(toolType)
		switch {
		case rate > 0.7:
			cur = time.Duration(float64(cur) * 1.2)
			if cur > ttlCap {
				cur = ttlCap
			}
		case rate < 0.2:
			cur = time.Duration(float64(cur) * 0.8)
			if cur < ttlFloor {
				cur = ttlFloor
			}
		default:
			continue
		}
		c.ttl[toolType] = cur
	}
}

// typeHitRatesLocked computes, for every tool type seen in typeRequests,
// avgHitCount-of-live-entries-of-that-type / requests-for-that-type.
func (c *Cache) typeHitRatesLocked() map[string]float64 {
	sumHits := map[string]int64{}
	count := map[string]int64{}
	now := c.now()
	for _, e := range c.data {
		if !e.expiryAt.After(now) {
			continue
		}
		sumHits[e.toolType] += e.hitCount
		count[e.toolType]++
	}

	rates := make(map[string]float64, len(c.typeRequests))
	for toolType, reqs := range c.typeRequests {
		if reqs == 0 {
			rates[toolType] = 0
			continue
		}
		var avgHit float64
		if count[toolType] > 0 {
			avgHit = float64(sumHits[toolType]) / float64(count[toolType])
		}
		rates[toolType] = avgHit / float64(reqs)
	}
	return rates
}

// GetStats returns the current cache statistics and recommendations,
// triggering an adaptive-TTL pass as a side effect.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	c.adjustTTLLocked()

	var hitRate float64
	if c.totalRequests > 0 {
		hitRate = float64(c.totalHits) / float64(c.totalRequests)
	}

	var sumHit int64
	var oldest, newest time.Time
	first := true
	for _, e := range c.data {
		sumHit += e.hitCount
		if first || e.lastAccess.Before(oldest) {
			oldest = e.lastAccess
		}
		if first || e.lastAccess.After(newest) {
			newest = e.lastAccess
		}
		first = false
	}
	var avgHit float64
	if len(c.data) > 0 {
		avgHit = float64(sumHit) / float64(len(c.data))
	}

	stats := Stats{
		Size:          len(c.data),
		HitRate:       hitRate,
		TotalRequests: c.totalRequests,
		TotalHits:     c.totalHits,
		AvgHitCount:   avgHit,
		OldestEntry:   oldest,
		NewestEntry:   newest,
	}
	maxSize := c.maxSize
	c.mu.Unlock()

	stats.Recommendations = recommendations(stats, maxSize)
	return stats
}

func recommendations(s Stats, maxSize int) []string {
	var out []string
	if s.HitRate < 0.3 {
		out = append(out, "Low cache hit rate - consider reviewing cacheable tool types")
	}
	if maxSize > 0 && float64(s.Size)/float64(maxSize) > 0.9 {
		out = append(out, "Cache is near capacity - consider increasing maxSize")
	}
	if s.HitRate > 0.8 {
		out = append(out, "Excellent cache performance")
	}
	if s.TotalRequests < 10 {
		out = append(out, "Insufficient data to make recommendations")
	}
	return out
}

// Len reports the number of live entries, used by invariant tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
