package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyToolType(t *testing.T) {
	cases := map[string]string{
		"file_read":      "filesystem",
		"db_query":       "database",
		"http_request":   "network",
		"compute_sum":    "computation",
		"static_const":   "static",
		"something_else": "default",
	}
	for name, want := range cases {
		assert.Equal(t, want, ClassifyToolType(name), name)
	}
}

func TestShouldCache_Heuristics(t *testing.T) {
	assert.False(t, ShouldCache("get_random", "{}"))
	assert.False(t, ShouldCache("get_uuid", "{}"))
	assert.False(t, ShouldCache("read_file", `{"timestamp":1}`))
	assert.True(t, ShouldCache("read_file", `{"path":"/tmp/x"}`))
}

func TestCache_RoundTrip(t *testing.T) {
	c := New()
	key := `P:file_read:{"path":"/tmp/x"}`

	_, ok := c.Get(key, "filesystem")
	require.False(t, ok)

	c.Set(key, "file_read", `{"path":"/tmp/x"}`, "V1", "filesystem", 0)

	v, ok := c.Get(key, "filesystem")
	require.True(t, ok)
	assert.Equal(t, "V1", v)

	stats := c.GetStats()
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.TotalHits)
}

func TestCache_BypassForRandomTool(t *testing.T) {
	c := New()
	c.Set("P:get_random:{}", "get_random", "{}", "x", "default", 0)
	_, ok := c.Get("P:get_random:{}", "default")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c := New()
	fixed := time.Now()
	c.now = func() time.Time { return fixed }
	c.Set("k", "read_file", "{}", "v", "filesystem", time.Millisecond)

	c.now = func() time.Time { return fixed.Add(2 * time.Millisecond) }
	_, ok := c.Get("k", "filesystem")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_LRUEviction(t *testing.T) {
	c := New()
	c.maxSize = 2
	fixed := time.Now()
	c.now = func() time.Time { return fixed }
	c.Set("a", "read_file", "{}", 1, "filesystem", time.Hour)
	c.now = func() time.Time { return fixed.Add(time.Second) }
	c.Set("b", "read_file", "{}", 2, "filesystem", time.Hour)

	// Touch "b" so "a" becomes the LRU entry.
	c.now = func() time.Time { return fixed.Add(2 * time.Second) }
	c.Get("b", "filesystem")

	c.now = func() time.Time { return fixed.Add(3 * time.Second) }
	c.Set("c", "read_file", "{}", 3, "filesystem", time.Hour)

	assert.LessOrEqual(t, c.Len(), 2)
	_, ok := c.Get("a", "filesystem")
	assert.False(t, ok, "oldest-accessed entry should have been evicted")
}

func TestCache_AdaptiveTTL_GrowsOnHighHitRate(t *testing.T) {
	c := New()
	before := c.ttl["filesystem"]
	fixed := time.Now()
	c.now = func() time.Time { return fixed }
	c.Set("k", "read_file", "{}", "v", "filesystem", time.Hour)
	for i := 0; i < 5; i++ {
		c.Get("k", "filesystem")
	}
	c.AdjustTTL()
	assert.Greater(t, c.ttl["filesystem"], before)
}

func TestGetStats_Recommendations(t *testing.T) {
	c := New()
	stats := c.GetStats()
	assert.Contains(t, stats.Recommendations, "Insufficient data to make recommendations")
}
