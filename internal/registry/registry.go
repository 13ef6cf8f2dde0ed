// Package registry owns the lifecycle of downstream MCP child processes:
// spawning, handshaking, tool listing, status tracking, and shutdown.
package registry

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"mcp-meta-server/internal/apperr"
)

// record is the registry's internal bookkeeping for one provider, holding
// the live session alongside the externally-visible Provider snapshot.
type record struct {
	provider Provider
	session  *mcp.ClientSession
}

// Registry tracks every configured downstream provider and its live
// session, if connected. A disconnected provider's record is retained
// (session=nil) so its metrics history isn't lost.
type Registry struct {
	mu       sync.Mutex
	records  map[string]*record
	client   *mcp.Client
	implName string
}

// New creates an empty registry. implName/implVersion identify this
// process to every downstream server during the MCP handshake.
func New(implName, implVersion string) *Registry {
	return &Registry{
		records: make(map[string]*record),
		client: mcp.NewClient(&mcp.Implementation{
			Name:    implName,
			Version: implVersion,
		}, nil),
		implName: implName,
	}
}

// ConnectAll validates and connects every config concurrently. Individual
// failures never abort the batch; each failure is recorded as a
// disconnected provider and logged. Returns an error only if two configs
// share an id.
func (r *Registry) ConnectAll(ctx context.Context, cfgs []Config) error {
	for _, cfg := range cfgs {
		r.mu.Lock()
		_, dup := r.records[cfg.ID]
		r.mu.Unlock()
		if dup {
			return apperr.Config(fmt.Sprintf("duplicate provider id %q", cfg.ID), nil)
		}
		r.mu.Lock()
		r.records[cfg.ID] = &record{provider: Provider{Config: cfg, Status: StatusConnecting}}
		r.mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, cfg := range cfgs {
		cfg := cfg
		g.Go(func() error {
			r.connectOne(gctx, cfg)
			return nil
		})
	}
	// connectOne never returns an error to g, so Wait always returns nil.
	_ = g.Wait()
	return nil
}

// connectOne validates, spawns, and handshakes a single provider, updating
// its record in place. Failures at any step leave the provider
// disconnected with the failure recorded, never abort the caller.
func (r *Registry) connectOne(ctx context.Context, cfg Config) {
	logger := logrus.WithFields(logrus.Fields{"provider": cfg.ID, "command": cfg.Command})

	if err := ValidateCommand(cfg); err != nil {
		logger.WithError(err).Warn("registry: provider config failed validation, marking disconnected")
		r.markDisconnected(cfg, err)
		return
	}

	sanitized := SanitizeArgs(cfg.Command)
	cmd := exec.CommandContext(ctx, sanitized[0], sanitized[1:]...)
	transport := &mcp.CommandTransport{Command: cmd}

	session, err := r.client.Connect(ctx, transport, nil)
	if err != nil {
		logger.WithError(err).Warn("registry: failed to connect to provider")
		r.markDisconnected(cfg, apperr.Config("connect failed", err))
		return
	}

	tools, err := listTools(ctx, session)
	if err != nil {
		logger.WithError(err).Warn("registry: failed to list tools")
		_ = session.Close()
		r.markDisconnected(cfg, apperr.Config("tool listing failed", err))
		return
	}

	r.mu.Lock()
	r.records[cfg.ID] = &record{
		provider: Provider{
			Config:      cfg,
			Status:      StatusConnected,
			Tools:       tools,
			ConnectedAt: time.Now(),
		},
		session: session,
	}
	r.mu.Unlock()
	logger.WithField("tools", len(tools)).Info("registry: provider connected")
}

// listTools drains a connected session's tool iterator into a flat slice.
func listTools(ctx context.Context, session *mcp.ClientSession) ([]ToolSpec, error) {
	var out []ToolSpec
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			return nil, err
		}
		out = append(out, ToolSpec{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schemaToMap(tool.InputSchema),
		})
	}
	return out, nil
}

// schemaToMap normalizes whatever shape InputSchema arrived in (the SDK
// hands clients the default JSON marshaling, a map[string]any) so the
// similarity kernel always has a plain map to walk.
func schemaToMap(v any) map[string]any {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

// markDisconnected records a connect/handshake failure for bookkeeping:
// the provider is retained as disconnected with failureCount=1,
// successRate=0.
func (r *Registry) markDisconnected(cfg Config, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[cfg.ID] = &record{
		provider: Provider{
			Config:       cfg,
			Status:       StatusDisconnected,
			LastError:    err,
			FailureCount: 1,
			SuccessRate:  0,
		},
	}
}

// Get returns a snapshot of one provider's current state.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Provider{}, false
	}
	return rec.provider, true
}

// Snapshot returns every registered provider's current state, in no
// particular order. Callers that need a consistent view for a rebuild
// (e.g. dedup's rebuildMerged) should treat the returned slice as that
// snapshot and not re-read the registry mid-computation.
func (r *Registry) Snapshot() []Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Provider, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.provider)
	}
	return out
}

// Session returns the live client session for a connected provider, if
// any.
func (r *Registry) Session(id string) (*mcp.ClientSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.session == nil {
		return nil, false
	}
	return rec.session, true
}

// MarkDisconnected transitions a provider to disconnected after a
// transport failure observed mid-session (e.g. a failed CallTool that
// indicates a dead child), retaining its tool list and metrics history.
func (r *Registry) MarkDisconnected(id string, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return
	}
	rec.provider.Status = StatusDisconnected
	rec.provider.LastError = cause
	rec.session = nil
}

// Shutdown closes every live session. Idempotent: closing an
// already-disconnected provider is a no-op.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.records {
		if rec.session == nil {
			continue
		}
		if err := rec.session.Close(); err != nil {
			logrus.WithError(err).WithField("provider", id).Warn("registry: error closing provider session")
		}
		rec.session = nil
		rec.provider.Status = StatusDisconnected
	}
}
