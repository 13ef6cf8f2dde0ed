// Package version holds the single version constant advertised over MCP
// and printed by --version.
package version

// Version is the server version string, overridable at build time with
// -ldflags "-X mcp-meta-server/internal/version.Version=x.y.z".
var Version = "1.0.0"
