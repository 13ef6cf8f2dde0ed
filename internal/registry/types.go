package registry

import "time"

// Status is a provider's connection lifecycle state.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Config describes a downstream MCP server to spawn. Immutable once
// registered: the registry never mutates a Config after ConnectAll records it.
type Config struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Command     []string `json:"command"`
	Description string   `json:"description,omitempty"`
}

// ToolSpec is a tool advertised by a provider. Names are unique per
// provider but not globally; that's what namespacing is for.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Provider is a registered downstream MCP server and its last-known state.
type Provider struct {
	Config Config
	Status Status
	Tools  []ToolSpec

	// ConnectedAt is zero when the provider has never reached StatusConnected.
	ConnectedAt time.Time
	// LastError is the most recent transport/handshake failure, if any,
	// kept for introspection.
	LastError error

	// FailureCount and SuccessRate are connect-level bookkeeping (distinct
	// from the per-tool metrics store): a provider that failed to connect
	// is recorded with FailureCount=1, SuccessRate=0.
	FailureCount int
	SuccessRate  float64
}

// ToolByName finds a tool by name among those the provider currently
// advertises. Returns false if not found.
func (p Provider) ToolByName(name string) (ToolSpec, bool) {
	for _, t := range p.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return ToolSpec{}, false
}
