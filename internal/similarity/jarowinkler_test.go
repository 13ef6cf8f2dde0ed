package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString_KnownValues(t *testing.T) {
	// m=9, t=0 over lengths 9/10 gives J=0.9667; a 4-char prefix bonus
	// lands at 0.98.
	assert.InDelta(t, 0.980, String("read_file", "read_files"), 0.001)
	assert.Equal(t, 0.0, String("foo", ""))
	assert.Equal(t, 1.0, String("", ""))
}

func TestString_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"list_files", "listFiles"},
		{"get_random", "current_time"},
		{"a", "b"},
		{"same", "same"},
	}
	for _, p := range pairs {
		assert.InDelta(t, String(p[0], p[1]), String(p[1], p[0]), 1e-9)
	}
}

func TestString_SelfSimilarity(t *testing.T) {
	for _, s := range []string{"a", "read_file", "x y z"} {
		assert.Equal(t, 1.0, String(s, s))
	}
}

func TestString_CaseInsensitive(t *testing.T) {
	assert.Equal(t, String("ReadFile", "readfile"), String("readfile", "readfile"))
}
