package aggregator

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"mcp-meta-server/internal/apperr"
	"mcp-meta-server/internal/registry"
)

// SessionCaller is the production Caller: it forwards each invocation to
// the registry's live client session for the target provider.
type SessionCaller struct {
	reg *registry.Registry
}

// NewSessionCaller builds a Caller backed by the registry's sessions.
func NewSessionCaller(reg *registry.Registry) *SessionCaller {
	return &SessionCaller{reg: reg}
}

// Call invokes toolName on providerID over its live MCP session. A
// cancellation observed mid-call is wrapped so it is never counted as a
// metric failure.
func (c *SessionCaller) Call(ctx context.Context, providerID, toolName string, args map[string]any) (CallResult, error) {
	session, ok := c.reg.Session(providerID)
	if !ok {
		return CallResult{}, apperr.ProviderUnavailable(providerID)
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return CallResult{}, apperr.AsCanceled(err)
		}
		return CallResult{}, err
	}

	return CallResult{Value: resultValue(result), IsError: result.IsError}, nil
}

// resultValue flattens an MCP tool result into a JSON-shaped value that
// can be cached and replayed on a hit. Structured content wins; otherwise
// the text blocks are joined.
func resultValue(result *mcp.CallToolResult) any {
	if result.StructuredContent != nil {
		return result.StructuredContent
	}
	var text string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			text += tc.Text
		}
	}
	return text
}
