package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectAll_RejectsDuplicateID(t *testing.T) {
	r := New("test-host", "0.0.0")
	cfgs := []Config{
		{ID: "a", Name: "A", Command: []string{"node", "a.js"}},
		{ID: "a", Name: "A again", Command: []string{"node", "a.js"}},
	}
	err := r.ConnectAll(context.Background(), cfgs)
	require.Error(t, err)
}

func TestConnectAll_InvalidCommandIsDisconnectedNotFatal(t *testing.T) {
	r := New("test-host", "0.0.0")
	cfgs := []Config{
		{ID: "bad", Name: "Bad", Command: []string{"rm", "-rf", "/"}},
	}
	err := r.ConnectAll(context.Background(), cfgs)
	require.NoError(t, err)

	p, ok := r.Get("bad")
	require.True(t, ok)
	assert.Equal(t, StatusDisconnected, p.Status)
	assert.Equal(t, 1, p.FailureCount)
	assert.Zero(t, p.SuccessRate)
	assert.Error(t, p.LastError)
}

func TestSnapshot_ReturnsAllRegisteredProviders(t *testing.T) {
	r := New("test-host", "0.0.0")
	_ = r.ConnectAll(context.Background(), []Config{
		{ID: "a", Name: "A", Command: []string{"sudo", "x"}},
		{ID: "b", Name: "B", Command: []string{"node", ".."}},
	})
	snap := r.Snapshot()
	assert.Len(t, snap, 2)
}

func TestShutdown_NoopOnEmptyRegistry(t *testing.T) {
	r := New("test-host", "0.0.0")
	r.Shutdown()
	r.Shutdown()
}

func TestMarkDisconnected_UnknownIDIsNoop(t *testing.T) {
	r := New("test-host", "0.0.0")
	r.MarkDisconnected("missing", nil)
	_, ok := r.Get("missing")
	assert.False(t, ok)
}
