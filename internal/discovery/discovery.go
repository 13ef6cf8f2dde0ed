// Package discovery finds downstream provider configs from the environment
// and from the platform-specific set of MCP config directories. It never
// fails the process: parse errors are logged and the offending source is
// skipped.
package discovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"mcp-meta-server/internal/registry"
)

// EnvVar is the environment variable expected to hold a JSON array of
// registry.Config objects.
const EnvVar = "MCP_SERVER_CONFIG"

// Discover returns the union of provider configs found in MCP_SERVER_CONFIG
// and the platform's config directories, first-seen id wins. Neither
// source failing to produce anything is an error; an empty result is
// valid (no configured providers).
func Discover() []registry.Config {
	seen := make(map[string]bool)
	var out []registry.Config

	add := func(cfgs []registry.Config, source string) {
		for _, c := range cfgs {
			if c.ID == "" || len(c.Command) == 0 {
				logrus.WithField("source", source).Warn("discovery: dropping config with missing id or command")
				continue
			}
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
		}
	}

	add(fromEnv(), "env:"+EnvVar)
	for _, dir := range configDirs() {
		add(fromDir(dir), dir)
	}

	return out
}

// fromEnv parses MCP_SERVER_CONFIG as a JSON array of provider configs. A
// parse error is logged and treated as "no configs from this source".
func fromEnv() []registry.Config {
	raw := os.Getenv(EnvVar)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var cfgs []registry.Config
	if err := json.Unmarshal([]byte(raw), &cfgs); err != nil {
		logrus.WithError(err).Warnf("discovery: failed to parse %s, ignoring", EnvVar)
		return nil
	}
	return cfgs
}

// configDirs returns the platform-specific directories that may contain
// *.mcp.json / mcp-config.json files. Directories that
// don't exist are simply skipped by fromDir.
func configDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		logrus.WithError(err).Warn("discovery: could not resolve home directory")
		home = ""
	}

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		return []string{
			filepath.Join(appData, "Claude Desktop", "mcp"),
			filepath.Join(appData, "Cursor", "mcp"),
			filepath.Join(appData, "Code", "User", "mcp"),
		}
	case "darwin":
		base := filepath.Join(home, "Library", "Application Support")
		return []string{
			filepath.Join(base, "Claude Desktop", "mcp"),
			filepath.Join(base, "Cursor", "mcp"),
			filepath.Join(base, "Code", "User", "mcp"),
		}
	default:
		base := filepath.Join(home, ".config")
		return []string{
			filepath.Join(base, "Claude Desktop", "mcp"),
			filepath.Join(base, "Cursor", "mcp"),
			filepath.Join(base, "Code", "User", "mcp"),
		}
	}
}

// fromDir reads every *.mcp.json or mcp-config.json file directly inside
// dir and parses it as a single registry.Config. A missing directory is
// not an error; a malformed file is logged and skipped.
func fromDir(dir string) []registry.Config {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var out []registry.Config
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".mcp.json") && name != "mcp-config.json" {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logrus.WithError(err).Warnf("discovery: failed to read %s", path)
			continue
		}

		var cfg registry.Config
		if err := json.Unmarshal(data, &cfg); err != nil {
			logrus.WithError(err).Warnf("discovery: failed to parse %s", path)
			continue
		}
		if cfg.ID == "" || cfg.Name == "" || len(cfg.Command) == 0 {
			logrus.Warnf("discovery: %s is missing id, name, or command, skipping", path)
			continue
		}
		out = append(out, cfg)
	}
	return out
}
