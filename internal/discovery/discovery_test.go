package discovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-meta-server/internal/registry"
)

func TestFromEnv_ParsesJSONArray(t *testing.T) {
	raw, err := json.Marshal([]registry.Config{
		{ID: "a", Name: "Alpha", Command: []string{"node", "server.js"}},
	})
	require.NoError(t, err)
	t.Setenv(EnvVar, string(raw))

	cfgs := fromEnv()
	require.Len(t, cfgs, 1)
	assert.Equal(t, "a", cfgs[0].ID)
}

func TestFromEnv_IgnoresParseErrors(t *testing.T) {
	t.Setenv(EnvVar, "not json")
	assert.Nil(t, fromEnv())
}

func TestFromEnv_EmptyIsNil(t *testing.T) {
	t.Setenv(EnvVar, "")
	assert.Nil(t, fromEnv())
}

func TestFromDir_ReadsMatchingFiles(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, cfg registry.Config) {
		data, err := json.Marshal(cfg)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
	}

	write("alpha.mcp.json", registry.Config{ID: "a", Name: "Alpha", Command: []string{"node", "a.js"}})
	write("mcp-config.json", registry.Config{ID: "b", Name: "Beta", Command: []string{"python3", "b.py"}})
	write("ignored.txt", registry.Config{ID: "c", Name: "Gamma", Command: []string{"node", "c.js"}})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.mcp.json"), []byte("{bad"), 0o600))

	cfgs := fromDir(dir)
	ids := map[string]bool{}
	for _, c := range cfgs {
		ids[c.ID] = true
	}
	assert.True(t, ids["a"])
	assert.True(t, ids["b"])
	assert.False(t, ids["c"])
	assert.Len(t, cfgs, 2)
}

func TestFromDir_MissingDirIsNotAnError(t *testing.T) {
	assert.Nil(t, fromDir(filepath.Join(t.TempDir(), "does-not-exist")))
}

func TestDiscover_EnvWinsOnDuplicateID(t *testing.T) {
	// Point the platform config directories at a temp tree.
	root := t.TempDir()
	t.Setenv("HOME", root)
	t.Setenv("APPDATA", root)
	dir := configDirs()[0]
	require.NoError(t, os.MkdirAll(dir, 0o700))

	data, err := json.Marshal(registry.Config{ID: "a", Name: "FromDisk", Command: []string{"node", "disk.js"}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mcp.json"), data, 0o600))

	raw, err := json.Marshal([]registry.Config{{ID: "a", Name: "FromEnv", Command: []string{"node", "env.js"}}})
	require.NoError(t, err)
	t.Setenv(EnvVar, string(raw))

	deduped := Discover()
	require.Len(t, deduped, 1)
	assert.Equal(t, "FromEnv", deduped[0].Name)
}
