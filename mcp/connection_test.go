package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

// fakeTransport satisfies the transport interface for lifecycle and
// routing tests.
type fakeTransport struct {
	tools     []Tool
	callFn    func(name string, args map[string]interface{}) (string, error)
	callCount int
	closes    int
	closeErr  error
}

func (f *fakeTransport) call(_ context.Context, method string, params interface{}) (json.RawMessage, error) {
	switch method {
	case "initialize":
		return json.RawMessage(`{}`), nil
	case "tools/list":
		return json.Marshal(map[string]interface{}{"tools": f.tools})
	case "tools/call":
		f.callCount++
		p := params.(map[string]interface{})
		name, _ := p["name"].(string)
		args, _ := p["arguments"].(map[string]interface{})
		text, err := f.callFn(name, args)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{
			"content": []map[string]interface{}{{"type": "text", "text": text}},
		})
	default:
		return nil, fmt.Errorf("unexpected method %s", method)
	}
}

func (f *fakeTransport) notify(string, interface{}) error { return nil }

func (f *fakeTransport) close() error {
	f.closes++
	return f.closeErr
}

func connWithTransport(name string, ft *fakeTransport) *Connection {
	c := NewConnection(name, ServerSpec{}, nil)
	c.sess = ft
	return c
}

func TestCallToolBeforeInitialize(t *testing.T) {
	c := NewConnection("xhs", ServerSpec{URL: "http://localhost:18060/mcp"}, nil)
	if _, err := c.CallTool(context.Background(), "publish_content", nil); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
	if _, err := c.ListTools(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("ListTools err = %v, want ErrNotReady", err)
	}
}

func TestCallToolRetriesOnce(t *testing.T) {
	attempts := 0
	ft := &fakeTransport{
		callFn: func(string, map[string]interface{}) (string, error) {
			attempts++
			if attempts == 1 {
				return "", errors.New("transient")
			}
			return "ok", nil
		},
	}
	c := connWithTransport("jina", ft)
	result, err := c.CallTool(context.Background(), "search", map[string]interface{}{"q": "ai"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q, want ok", result)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestCallToolGivesUpAfterTwoAttempts(t *testing.T) {
	ft := &fakeTransport{
		callFn: func(string, map[string]interface{}) (string, error) {
			return "", errors.New("down")
		},
	}
	c := connWithTransport("jina", ft)
	if _, err := c.CallTool(context.Background(), "search", nil); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if ft.callCount != 2 {
		t.Errorf("attempts = %d, want 2", ft.callCount)
	}
}

func TestCleanupIdempotent(t *testing.T) {
	ft := &fakeTransport{}
	c := connWithTransport("xhs", ft)
	c.Cleanup()
	c.Cleanup()
	if ft.closes != 1 {
		t.Errorf("closes = %d, want 1", ft.closes)
	}
	if _, err := c.CallTool(context.Background(), "search", nil); !errors.Is(err, ErrNotReady) {
		t.Errorf("call after cleanup err = %v, want ErrNotReady", err)
	}
}

func TestCleanupSwallowsCloseError(t *testing.T) {
	ft := &fakeTransport{closeErr: errors.New("broken pipe")}
	c := connWithTransport("xhs", ft)
	// Close failures are logged, never surfaced; the session must be
	// gone regardless.
	c.Cleanup()
	if _, err := c.CallTool(context.Background(), "search", nil); !errors.Is(err, ErrNotReady) {
		t.Errorf("call after failed close err = %v, want ErrNotReady", err)
	}
	c.Cleanup()
	if ft.closes != 1 {
		t.Errorf("closes = %d, want 1", ft.closes)
	}
}

func TestListToolsAcceptsBothSchemaKeys(t *testing.T) {
	ft := &fakeTransport{tools: []Tool{{
		Name:        "search",
		Description: "web search",
		InputSchema: map[string]interface{}{"type": "object"},
	}}}
	c := connWithTransport("jina", ft)
	tools, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "search" {
		t.Fatalf("tools = %+v", tools)
	}
	if tools[0].InputSchema == nil {
		t.Error("input schema dropped during round trip")
	}
}

func TestFlattenContentFallsBackToRaw(t *testing.T) {
	raw := json.RawMessage(`{"ok":true,"note":"published"}`)
	if got := flattenContent(raw); got != string(raw) {
		t.Errorf("flattenContent = %q, want raw payload", got)
	}
}
