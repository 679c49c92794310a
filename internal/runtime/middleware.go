package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/topaplus/commandcenter/pkg/mcperr"
)

// Middleware enforces runtime limits for tool calls and HTTP requests using
// the Controller. It bounds global concurrency and applies an operation
// timeout to each call.
type Middleware struct {
	ctrl *Controller
}

// NewMiddleware constructs a Middleware bound to the provided Controller.
func NewMiddleware(ctrl *Controller) *Middleware {
	return &Middleware{ctrl: ctrl}
}

// acquire waits at most AcquireRequestTimeout for a request slot.
func (m *Middleware) acquire(ctx context.Context) error {
	if m.ctrl.limits.AcquireRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.ctrl.limits.AcquireRequestTimeout)
		defer cancel()
	}
	return m.ctrl.AcquireRequest(ctx)
}

func (m *Middleware) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.ctrl.limits.OperationTimeout > 0 {
		return context.WithTimeout(ctx, m.ctrl.limits.OperationTimeout)
	}
	return ctx, func() {}
}

func (m *Middleware) busyMessage() string {
	return fmt.Sprintf("concurrent request limit reached (max=%d)", m.ctrl.limits.MaxConcurrentRequests)
}

// ToolMiddleware implements mcp-go's tool handler middleware interface.
// It acquires a request slot, applies a timeout, and guarantees release.
func (m *Middleware) ToolMiddleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := m.acquire(ctx); err != nil {
			// Tool-level error so the client can retry.
			return mcperr.New(mcperr.BusyResource, m.busyMessage()), nil
		}
		defer m.ctrl.ReleaseRequest()

		callCtx, cancel := m.withTimeout(ctx)
		defer cancel()

		res, err := next(callCtx, req)

		// A surfaced deadline becomes a tool-level timeout.
		if errors.Is(err, context.DeadlineExceeded) || (callCtx.Err() == context.DeadlineExceeded && err == nil && res == nil) {
			return mcperr.New(mcperr.Timeout, ""), nil
		}
		return res, err
	}
}

// Gin applies the same request slot and timeout to HTTP handlers. Saturation
// answers 429 with the BUSY_RESOURCE error body.
func (m *Middleware) Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.acquire(c.Request.Context()); err != nil {
			e := mcperr.Lookup(mcperr.BusyResource)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": gin.H{
				"code":    e.Code,
				"message": m.busyMessage(),
				"details": e.NextSteps,
			}})
			return
		}
		defer m.ctrl.ReleaseRequest()

		ctx, cancel := m.withTimeout(c.Request.Context())
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
