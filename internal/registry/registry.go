package registry

import (
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolSummary is how list_sources describes a callable tool.
type ToolSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Admin       bool   `json:"admin,omitempty"`
}

type entry struct {
	tool    mcp.Tool
	handler server.ToolHandlerFunc
}

// Registry is the in-process catalog of command center tools. Toolset.Call
// dispatches through it and list_sources reads it for discovery.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func New() *Registry {
	return &Registry{entries: map[string]entry{}}
}

// Register stores a tool with its handler, replacing any tool of that name.
func (r *Registry) Register(tool mcp.Tool, h server.ToolHandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[tool.Name] = entry{tool: tool, handler: h}
}

// Get returns the definition and handler of a tool.
func (r *Registry) Get(name string) (mcp.Tool, server.ToolHandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.tool, e.handler, ok
}

// Tools returns every definition sorted by name.
func (r *Registry) Tools() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]mcp.Tool, 0, len(r.entries))
	for _, e := range r.entries {
		tools = append(tools, e.tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Visible summarizes the tools the filter lets a client see.
func (r *Registry) Visible(f *AdminToolFilter) []ToolSummary {
	tools := r.Tools()
	out := make([]ToolSummary, 0, len(tools))
	for _, t := range tools {
		if f != nil && !f.Allowed(t.Name) {
			continue
		}
		out = append(out, ToolSummary{Name: t.Name, Description: t.Description, Admin: adminTools[t.Name]})
	}
	return out
}
