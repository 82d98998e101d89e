package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// rpcHandler implements just enough of a streamable HTTP tool provider
// for transport tests.
func rpcHandler(sse bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.Number            `json:"id"`
			Method string                 `json:"method"`
			Params map[string]interface{} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.ID.String() == "" { // notification
			w.WriteHeader(http.StatusAccepted)
			return
		}

		var result interface{}
		switch req.Method {
		case "initialize":
			result = map[string]interface{}{"protocolVersion": protocolVersion}
		case "tools/list":
			result = map[string]interface{}{"tools": []map[string]interface{}{
				{"name": "publish_content", "description": "publish", "inputSchema": map[string]interface{}{"type": "object"}},
			}}
		case "tools/call":
			result = map[string]interface{}{"content": []map[string]interface{}{
				{"type": "text", "text": "发布成功"},
			}}
		default:
			http.Error(w, "unknown method", http.StatusBadRequest)
			return
		}
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result}
		body, _ := json.Marshal(resp)

		w.Header().Set("Mcp-Session-Id", "sess-1")
		if sse {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprintf(w, ": keep-alive\n\ndata: %s\n\n", body)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}

func TestHTTPTransportJSON(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(false))
	defer srv.Close()

	c := NewConnection("xhs", ServerSpec{URL: srv.URL}, nil)
	ctx := context.Background()
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer c.Cleanup()

	tools, err := c.ListTools(ctx)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "publish_content" {
		t.Fatalf("tools = %+v", tools)
	}

	result, err := c.CallTool(ctx, "publish_content", map[string]interface{}{"title": "hi"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if result != "发布成功" {
		t.Errorf("result = %q, want 发布成功", result)
	}
}

func TestHTTPTransportSSE(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(true))
	defer srv.Close()

	c := NewConnection("xhs", ServerSpec{URL: srv.URL}, nil)
	ctx := context.Background()
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer c.Cleanup()

	result, err := c.CallTool(ctx, "publish_content", nil)
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if result != "发布成功" {
		t.Errorf("result = %q, want 发布成功", result)
	}
}

func TestHTTPTransportInitializeDouble(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(false))
	defer srv.Close()

	c := NewConnection("xhs", ServerSpec{URL: srv.URL}, nil)
	ctx := context.Background()
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	c.Cleanup()
	if _, err := c.ListTools(ctx); !errors.Is(err, ErrNotReady) {
		t.Errorf("list after cleanup err = %v, want ErrNotReady", err)
	}
}
