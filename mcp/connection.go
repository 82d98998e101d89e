package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// ServerSpec describes how to reach one tool provider. A spec with a URL
// connects over streamable HTTP; a spec with a Command spawns a subprocess
// speaking line-delimited JSON-RPC on stdio.
type ServerSpec struct {
	URL     string
	Command string
	Args    []string
	Env     map[string]string
}

var (
	// ErrNotReady is returned when a tool operation is attempted before
	// Initialize has succeeded or after Cleanup.
	ErrNotReady = errors.New("mcp: connection not initialized")
)

const (
	protocolVersion = "2024-11-05"

	callAttempts   = 2
	callRetryDelay = 1 * time.Second
)

// transport is the JSON-RPC session underneath a Connection.
type transport interface {
	call(ctx context.Context, method string, params interface{}) (json.RawMessage, error)
	notify(method string, params interface{}) error
	close() error
}

// Connection manages the lifecycle of a single tool provider session:
// uninitialized -> ready -> closed.
type Connection struct {
	Name string

	spec   ServerSpec
	logger *log.Logger

	mu   sync.Mutex
	sess transport
}

// NewConnection builds a connection for spec. It does not dial; call
// Initialize before using it.
func NewConnection(name string, spec ServerSpec, logger *log.Logger) *Connection {
	if logger == nil {
		logger = log.New(os.Stderr, "[MCP] ", log.LstdFlags)
	}
	return &Connection{Name: name, spec: spec, logger: logger}
}

// Initialize establishes the underlying session and performs the MCP
// handshake. It is a no-op on an already-ready connection.
func (c *Connection) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != nil {
		return nil
	}

	var sess transport
	var err error
	switch {
	case c.spec.Command != "":
		sess, err = newStdioTransport(c.spec)
	case c.spec.URL != "":
		sess, err = newHTTPTransport(c.spec.URL)
	default:
		return fmt.Errorf("mcp server %q: neither command nor url configured", c.Name)
	}
	if err != nil {
		return fmt.Errorf("mcp server %q: %w", c.Name, err)
	}

	params := map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]interface{}{},
		"clientInfo": map[string]interface{}{
			"name":    "xiaohongshu-workflow",
			"version": "1.0",
		},
	}
	if _, err := sess.call(ctx, "initialize", params); err != nil {
		_ = sess.close()
		return fmt.Errorf("mcp server %q: initialize: %w", c.Name, err)
	}
	if err := sess.notify("notifications/initialized", nil); err != nil {
		_ = sess.close()
		return fmt.Errorf("mcp server %q: initialized notification: %w", c.Name, err)
	}

	c.sess = sess
	return nil
}

// session returns the current transport or ErrNotReady.
func (c *Connection) session() (transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return nil, ErrNotReady
	}
	return c.sess, nil
}

// ListTools enumerates the tools the provider advertises.
func (c *Connection) ListTools(ctx context.Context) ([]Tool, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}
	raw, err := sess.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, fmt.Errorf("mcp server %q: tools/list: %w", c.Name, err)
	}

	// Servers disagree on the schema key; accept both spellings.
	var result struct {
		Tools []struct {
			Name        string                 `json:"name"`
			Description string                 `json:"description"`
			InputSchema map[string]interface{} `json:"inputSchema"`
			AltSchema   map[string]interface{} `json:"input_schema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp server %q: decoding tools/list: %w", c.Name, err)
	}
	tools := make([]Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema := t.InputSchema
		if schema == nil {
			schema = t.AltSchema
		}
		tools = append(tools, Tool{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return tools, nil
}

// CallTool invokes a named tool and returns its textual result. Transient
// failures are retried once after a fixed delay.
func (c *Connection) CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	sess, err := c.session()
	if err != nil {
		return "", err
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}

	var lastErr error
	for attempt := 1; attempt <= callAttempts; attempt++ {
		raw, err := sess.call(ctx, "tools/call", params)
		if err == nil {
			return flattenContent(raw), nil
		}
		lastErr = err
		if attempt < callAttempts {
			c.logger.Printf("tool %s on %s failed (attempt %d/%d): %v", name, c.Name, attempt, callAttempts, err)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(callRetryDelay):
			}
		}
	}
	return "", fmt.Errorf("mcp server %q: tools/call %s: %w", c.Name, name, lastErr)
}

// Cleanup tears down the session. It is safe to call multiple times and
// always discards the session; close failures are logged, never returned.
func (c *Connection) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return
	}
	if err := c.sess.close(); err != nil {
		c.logger.Printf("cleanup of %s: %v", c.Name, err)
	}
	c.sess = nil
}

// flattenContent extracts the text blocks from a tools/call result. When
// the payload is not in the content-block shape the raw JSON is returned
// so the caller still sees what the server said.
func flattenContent(raw json.RawMessage) string {
	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &result); err != nil || len(result.Content) == 0 {
		return string(raw)
	}
	var parts []string
	for _, block := range result.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return string(raw)
	}
	return strings.Join(parts, "\n")
}
