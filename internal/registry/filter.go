package registry

import (
	"context"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// EnvEnableAdmin enables the admin tools when set to true, 1 or yes.
const EnvEnableAdmin = "COMMANDCENTER_ENABLE_ADMIN"

// adminTools mutate server state and stay hidden unless enabled.
var adminTools = map[string]bool{ToolRefreshSource: true}

// AdminToolFilter conditionally hides admin tools from discovery.
type AdminToolFilter struct {
	allowAdmin bool
}

// NewAdminToolFilter constructs a filter with an explicit setting.
func NewAdminToolFilter(allow bool) *AdminToolFilter {
	return &AdminToolFilter{allowAdmin: allow}
}

// NewAdminToolFilterFromEnv constructs a filter using COMMANDCENTER_ENABLE_ADMIN.
func NewAdminToolFilterFromEnv() *AdminToolFilter {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(EnvEnableAdmin)))
	return NewAdminToolFilter(v == "1" || v == "true" || v == "yes")
}

// Allowed reports whether a tool may be listed and called.
func (f *AdminToolFilter) Allowed(name string) bool {
	return f.allowAdmin || !adminTools[name]
}

// FilterTools implements server tool filtering semantics.
func (f *AdminToolFilter) FilterTools(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
	if f.allowAdmin {
		return tools
	}
	out := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		if f.Allowed(t.Name) {
			out = append(out, t)
		}
	}
	return out
}
