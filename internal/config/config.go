// Package config assembles the process configuration from CLI flags and
// the environment. There is no file watching or hot reload: everything is
// fixed at startup, and the only runtime-mutable knob (the deduplication
// config) is owned by the aggregator, seeded from here.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mcp-meta-server/internal/dedup"
	"mcp-meta-server/internal/discovery"
	"mcp-meta-server/internal/registry"
)

// ServerName is the MCP server name advertised to the upstream client.
const ServerName = "mcp-meta-server"

// Config is the resolved startup configuration.
type Config struct {
	// ConfigPath is the -c/--config value: a JSON file containing an array
	// of provider configs, or a directory of *.mcp.json files. Empty means
	// discovery runs only against the environment and platform directories.
	ConfigPath string

	LogLevel string

	DisableDedup        bool
	SimilarityThreshold float64
	AutoMerge           bool
}

// Default returns the configuration with every default value.
func Default() Config {
	return Config{
		LogLevel:            "info",
		SimilarityThreshold: 0.8,
		AutoMerge:           true,
	}
}

// Validate rejects out-of-range flag values before the server starts.
func (c Config) Validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("config: similarity threshold %v out of range [0,1]", c.SimilarityThreshold)
	}
	switch c.LogLevel {
	case "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}

// DedupConfig translates the startup flags into the aggregator's initial
// deduplication configuration, keeping the default weights.
func (c Config) DedupConfig() dedup.Config {
	out := dedup.DefaultConfig()
	out.Enabled = !c.DisableDedup
	out.SimilarityThreshold = c.SimilarityThreshold
	out.AutoMerge = c.AutoMerge
	return out
}

// ApplyConfigPath loads ConfigPath (a JSON file or a directory of
// *.mcp.json files) and marshals its provider configs into the
// MCP_SERVER_CONFIG environment variable, so the discovery component sees
// them through its normal env-var source.
func (c Config) ApplyConfigPath() error {
	if c.ConfigPath == "" {
		return nil
	}

	info, err := os.Stat(c.ConfigPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	var cfgs []registry.Config
	if info.IsDir() {
		cfgs, err = readConfigDir(c.ConfigPath)
	} else {
		cfgs, err = readConfigFile(c.ConfigPath)
	}
	if err != nil {
		return err
	}

	raw, err := json.Marshal(cfgs)
	if err != nil {
		return fmt.Errorf("config: marshaling provider configs: %w", err)
	}
	if err := os.Setenv(discovery.EnvVar, string(raw)); err != nil {
		return fmt.Errorf("config: setting %s: %w", discovery.EnvVar, err)
	}
	return nil
}

// readConfigFile parses path as either a JSON array of provider configs or
// a single provider config object.
func readConfigFile(path string) ([]registry.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var cfgs []registry.Config
	if err := json.Unmarshal(data, &cfgs); err == nil {
		return cfgs, nil
	}
	var one registry.Config
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return []registry.Config{one}, nil
}

func readConfigDir(dir string) ([]registry.Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var out []registry.Config
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mcp.json") {
			continue
		}
		cfgs, err := readConfigFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, cfgs...)
	}
	return out, nil
}
