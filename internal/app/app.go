// Package app owns the application lifecycle: provider discovery and
// connection, the upstream MCP server, and graceful shutdown.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"go.uber.org/dig"

	"mcp-meta-server/internal/aggregator"
	"mcp-meta-server/internal/config"
	"mcp-meta-server/internal/discovery"
	"mcp-meta-server/internal/metatools"
	"mcp-meta-server/internal/registry"
	"mcp-meta-server/internal/version"
)

// App wires the registry, aggregator and meta-tool surface to one upstream
// MCP server over stdio, and manages startup/shutdown.
type App struct {
	cfg     config.Config
	reg     *registry.Registry
	agg     *aggregator.Aggregator
	surface *metatools.Surface

	server *mcp.Server

	mu      sync.Mutex
	exposed []string

	runCancel context.CancelFunc
	runDone   chan error
	stopOnce  sync.Once
}

// AppParams defines the dependencies for the App.
type AppParams struct {
	dig.In
	Config     config.Config
	Registry   *registry.Registry
	Aggregator *aggregator.Aggregator
	Surface    *metatools.Surface
}

// NewApp is the constructor for App, with dependencies injected by dig.
func NewApp(params AppParams) *App {
	return &App{
		cfg:     params.Config,
		reg:     params.Registry,
		agg:     params.Aggregator,
		surface: params.Surface,
		runDone: make(chan error, 1),
	}
}

// Start connects every discovered provider, builds the upstream MCP server
// and begins serving on stdio. Non-blocking: the serve loop runs in its own
// goroutine; Wait exposes its terminal error.
func (a *App) Start() error {
	if err := a.cfg.ApplyConfigPath(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a.runCancel = cancel

	cfgs := discovery.Discover()
	logrus.WithField("providers", len(cfgs)).Info("app: discovered provider configs")

	if err := a.reg.ConnectAll(runCtx, cfgs); err != nil {
		cancel()
		return fmt.Errorf("app: connecting providers: %w", err)
	}
	a.agg.Rebuild()

	a.server = mcp.NewServer(&mcp.Implementation{
		Name:    config.ServerName,
		Version: version.Version,
	}, nil)

	a.surface.Register(a.server)
	a.surface.OnInventoryChanged = a.syncExposedTools
	a.syncExposedTools()

	go func() {
		err := a.server.Run(runCtx, &mcp.StdioTransport{})
		if err != nil && runCtx.Err() == nil {
			logrus.WithError(err).Error("app: upstream session ended")
		}
		a.runDone <- err
	}()

	logrus.WithFields(logrus.Fields{
		"server":  config.ServerName,
		"version": version.Version,
		"tools":   len(a.agg.ListTools()) + len(metatools.Names()),
	}).Info("app: serving")
	return nil
}

// Wait blocks until the upstream session terminates, returning its error.
func (a *App) Wait() error {
	return <-a.runDone
}

// Stop tears the application down: cancels all in-flight outbound calls,
// closes every provider session, then the upstream session. Idempotent.
func (a *App) Stop(ctx context.Context) {
	a.stopOnce.Do(func() {
		if a.runCancel != nil {
			a.runCancel()
		}
		a.reg.Shutdown()

		if a.runCancel == nil {
			return
		}
		select {
		case <-a.runDone:
		case <-ctx.Done():
			logrus.Warn("app: shutdown deadline reached before the upstream session closed")
		}
		logrus.Info("app: stopped")
	})
}

// syncExposedTools reconciles the MCP server's dynamic tool set with the
// aggregator's current inventory. The SDK emits tools/list_changed to the
// upstream client on every add/remove. Meta-tools are untouched: they are
// registered once and never change.
func (a *App) syncExposedTools() {
	tools := a.agg.ListTools()

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.exposed) > 0 {
		a.server.RemoveTools(a.exposed...)
	}
	a.exposed = a.exposed[:0]

	for _, t := range tools {
		if metatools.IsMetaTool(t.Name) {
			logrus.WithField("tool", t.Name).Warn("app: provider tool shadows a meta-tool name, skipping")
			continue
		}
		a.server.AddTool(&mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: exposedSchema(t.InputSchema),
		}, a.forwardHandler(t.Name))
		a.exposed = append(a.exposed, t.Name)
	}
}

// forwardHandler adapts one exposed tool into the aggregator's dispatch
// path. All failures surface as tool-level errors, never protocol errors.
func (a *App) forwardHandler(name string) func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
			}
		}

		res, err := a.agg.Invoke(ctx, name, args)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return valueResult(res.Value), nil
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// valueResult renders a cached-or-fresh tool value back onto the wire:
// strings pass through as text, everything else re-encodes as JSON text
// with the structured form alongside when it is an object.
func valueResult(value any) *mcp.CallToolResult {
	if s, ok := value.(string); ok {
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: s}}}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to encode result: %v", err))
	}
	result := &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(data)}}}
	if _, ok := value.(map[string]any); ok {
		result.StructuredContent = value
	}
	return result
}

// exposedSchema passes the provider's schema through verbatim; a provider
// without one gets a permissive empty object schema.
func exposedSchema(raw map[string]any) any {
	if raw == nil {
		return map[string]any{"type": "object"}
	}
	return raw
}
