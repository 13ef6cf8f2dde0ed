package registry

// SetConnectedForTest registers providerID as StatusConnected with the given
// tools, bypassing the normal spawn/handshake path. It exists so that other
// packages' tests (router, aggregator) can exercise routing and dispatch
// logic against a populated registry without spawning a real child process.
// Not used by production code.
func SetConnectedForTest(r *Registry, providerID string, tools ...ToolSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[providerID] = &record{
		provider: Provider{
			Config: Config{ID: providerID, Name: providerID},
			Status: StatusConnected,
			Tools:  tools,
		},
	}
}
