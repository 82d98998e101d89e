package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
)

// Registry holds the ordered set of tool provider connections and routes
// tool invocations to whichever provider advertises the tool first.
type Registry struct {
	logger *log.Logger

	mu    sync.RWMutex
	conns []*Connection
	tools map[string][]Tool // per connection name, refreshed via Refresh
}

func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(os.Stderr, "[MCP] ", log.LstdFlags)
	}
	return &Registry{logger: logger, tools: map[string][]Tool{}}
}

// Register appends a connection. Registration order decides resolution
// priority when two providers advertise the same tool name.
func (r *Registry) Register(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns = append(r.conns, conn)
}

// InitializeAll brings up every registered connection. A provider that
// fails to come up is logged and left uninitialized; the rest still work.
func (r *Registry) InitializeAll(ctx context.Context) {
	r.mu.RLock()
	conns := append([]*Connection(nil), r.conns...)
	r.mu.RUnlock()
	for _, conn := range conns {
		if err := conn.Initialize(ctx); err != nil {
			r.logger.Printf("initializing %s failed: %v", conn.Name, err)
			continue
		}
		r.logger.Printf("initialized %s", conn.Name)
	}
}

// Refresh re-enumerates tools from every connection. Providers whose
// enumeration fails are skipped with a warning and contribute no tools.
func (r *Registry) Refresh(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conn := range r.conns {
		tools, err := conn.ListTools(ctx)
		if err != nil {
			r.logger.Printf("listing tools from %s failed: %v", conn.Name, err)
			delete(r.tools, conn.Name)
			continue
		}
		r.logger.Printf("%s advertises %d tools", conn.Name, len(tools))
		r.tools[conn.Name] = tools
	}
}

// Tools returns the aggregated tool list in registration order.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Tool
	for _, conn := range r.conns {
		out = append(out, r.tools[conn.Name]...)
	}
	return out
}

// resolve finds the first connection advertising name, in registration
// order.
func (r *Registry) resolve(name string) *Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conn := range r.conns {
		for _, t := range r.tools[conn.Name] {
			if t.Name == name {
				return conn
			}
		}
	}
	return nil
}

// Execute routes a tool call to its provider. An unknown tool produces a
// soft textual result rather than an error, so the model can read it and
// adjust; provider failures are likewise folded into the result string.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) string {
	conn := r.resolve(name)
	if conn == nil {
		return fmt.Sprintf("未找到工具 %s", name)
	}
	result, err := conn.CallTool(ctx, name, args)
	if err != nil {
		r.logger.Printf("tool %s failed: %v", name, err)
		return fmt.Sprintf("Error: %v", err)
	}
	return result
}

// CloseAll tears connections down in reverse registration order. Close
// failures are logged by each connection; cleanup must not mask a
// workflow result.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.conns) - 1; i >= 0; i-- {
		r.conns[i].Cleanup()
	}
	r.tools = map[string][]Tool{}
}
