package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func registryWith(t *testing.T, conns ...*Connection) *Registry {
	t.Helper()
	r := NewRegistry(nil)
	for _, c := range conns {
		r.Register(c)
	}
	r.Refresh(context.Background())
	return r
}

func TestRegistryFirstMatchWins(t *testing.T) {
	first := &fakeTransport{
		tools: []Tool{{Name: "search"}},
		callFn: func(string, map[string]interface{}) (string, error) {
			return "from-first", nil
		},
	}
	second := &fakeTransport{
		tools: []Tool{{Name: "search"}},
		callFn: func(string, map[string]interface{}) (string, error) {
			return "from-second", nil
		},
	}
	r := registryWith(t,
		connWithTransport("a", first),
		connWithTransport("b", second),
	)

	result := r.Execute(context.Background(), "search", nil)
	if result != "from-first" {
		t.Errorf("result = %q, want from-first", result)
	}
	if second.callCount != 0 {
		t.Errorf("second provider was called %d times", second.callCount)
	}
}

func TestRegistryUnknownToolIsSoft(t *testing.T) {
	r := registryWith(t, connWithTransport("a", &fakeTransport{}))
	result := r.Execute(context.Background(), "no_such_tool", nil)
	if !strings.Contains(result, "no_such_tool") {
		t.Errorf("result = %q, want tool name in soft message", result)
	}
}

func TestRegistryProviderErrorBecomesResult(t *testing.T) {
	ft := &fakeTransport{
		tools: []Tool{{Name: "publish_content"}},
		callFn: func(string, map[string]interface{}) (string, error) {
			return "", errors.New("login expired")
		},
	}
	r := registryWith(t, connWithTransport("xhs", ft))
	result := r.Execute(context.Background(), "publish_content", nil)
	if !strings.HasPrefix(result, "Error:") {
		t.Errorf("result = %q, want Error: prefix", result)
	}
	if !strings.Contains(result, "login expired") {
		t.Errorf("result = %q, want provider error detail", result)
	}
}

func TestRegistrySkipsFailingEnumeration(t *testing.T) {
	good := &fakeTransport{tools: []Tool{{Name: "search"}}}
	r := NewRegistry(nil)
	broken := NewConnection("broken", ServerSpec{URL: "http://localhost:1/mcp"}, nil)
	r.Register(broken) // never initialized; enumeration fails
	r.Register(connWithTransport("good", good))
	r.Refresh(context.Background())

	tools := r.Tools()
	if len(tools) != 1 || tools[0].Name != "search" {
		t.Fatalf("tools = %+v, want just search", tools)
	}
}

func TestCloseAllReverseOrder(t *testing.T) {
	var order []string
	mk := func(name string) (*Connection, *fakeTransport) {
		ft := &fakeTransport{}
		c := connWithTransport(name, ft)
		return c, ft
	}
	a, fta := mk("a")
	b, ftb := mk("b")
	r := registryWith(t, a, b)

	// Wrap closes to record ordering through close counts is not enough;
	// swap in transports that append to order.
	a.sess = closeRecorder{ft: fta, name: "a", order: &order}
	b.sess = closeRecorder{ft: ftb, name: "b", order: &order}

	r.CloseAll()
	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Errorf("close order = %v, want [b a]", order)
	}
}

type closeRecorder struct {
	ft    *fakeTransport
	name  string
	order *[]string
}

func (c closeRecorder) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return c.ft.call(ctx, method, params)
}
func (c closeRecorder) notify(method string, params interface{}) error {
	return c.ft.notify(method, params)
}
func (c closeRecorder) close() error {
	*c.order = append(*c.order, c.name)
	return c.ft.close()
}
