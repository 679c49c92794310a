package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// Hooks logs MCP server lifecycle events and tool call latency.
type Hooks struct {
	logger zerolog.Logger
	clock  func() time.Time
	starts sync.Map // request id -> start time
}

// NewHooks constructs a Hooks instance with the provided logger.
func NewHooks(logger zerolog.Logger) *Hooks {
	return &Hooks{logger: logger.With().Str("component", "mcp").Logger(), clock: time.Now}
}

// Server returns the mcp-go hook set wired to this logger.
func (h *Hooks) Server() *server.Hooks {
	hooks := &server.Hooks{}

	hooks.AddOnRegisterSession(func(ctx context.Context, session server.ClientSession) {
		h.logger.Info().Str("session_id", session.SessionID()).Msg("session registered")
	})

	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		h.logger.Info().Str("session_id", session.SessionID()).Msg("session unregistered")
	})

	hooks.AddAfterListTools(func(ctx context.Context, id any, req *mcp.ListToolsRequest, res *mcp.ListToolsResult) {
		h.logger.Info().Int("tools", len(res.Tools)).Msg("list_tools served")
	})

	hooks.AddBeforeCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest) {
		h.ToolStarted(id)
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, res *mcp.CallToolResult) {
		h.ToolFinished(id, req.Params.Name, res != nil && res.IsError)
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		h.starts.Delete(key(id))
		h.logger.Error().Str("method", string(method)).Err(err).Msg("request error")
	})

	return hooks
}

// ToolStarted records the start of a tool call.
func (h *Hooks) ToolStarted(id any) {
	h.starts.Store(key(id), h.clock())
}

// ToolFinished logs the call outcome and its duration when the start was seen.
func (h *Hooks) ToolFinished(id any, tool string, failed bool) {
	evt := h.logger.Info()
	if failed {
		evt = h.logger.Warn()
	}
	evt = evt.Str("tool", tool).Bool("tool_error", failed)
	if v, ok := h.starts.LoadAndDelete(key(id)); ok {
		evt = evt.Dur("duration", h.clock().Sub(v.(time.Time)))
	}
	evt.Msg("tool call served")
}

// Pending reports how many calls started without finishing.
func (h *Hooks) Pending() int {
	n := 0
	h.starts.Range(func(_, _ any) bool { n++; return true })
	return n
}

// JSON-RPC ids arrive as numbers or strings.
func key(id any) string { return fmt.Sprint(id) }
