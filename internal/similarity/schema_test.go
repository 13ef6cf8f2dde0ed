package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchema_IdenticalSchemas(t *testing.T) {
	s := map[string]any{
		"type":       "object",
		"properties": map[string]any{"path": map[string]any{"type": "string"}},
		"required":   []any{"path"},
	}
	assert.Equal(t, 1.0, Schema(s, s))
}

func TestSchema_NilIsZero(t *testing.T) {
	s := map[string]any{"type": "object"}
	assert.Equal(t, 0.0, Schema(nil, s))
	assert.Equal(t, 0.0, Schema(s, nil))
}

func TestSchema_PartialOverlap(t *testing.T) {
	a := map[string]any{
		"properties": map[string]any{
			"path": map[string]any{"type": "string"},
		},
		"required": []any{"path"},
	}
	b := map[string]any{
		"properties": map[string]any{
			"path": map[string]any{"type": "string"},
		},
		"required": []any{},
	}
	// propSim=1 (same (name,type) pair), reqSim=0 (one empty, one not)
	assert.InDelta(t, 0.7, Schema(a, b), 1e-9)
}

func TestSchema_BothEmptyPropsAndRequired(t *testing.T) {
	a := map[string]any{}
	b := map[string]any{}
	assert.Equal(t, 1.0, Schema(a, b))
}
