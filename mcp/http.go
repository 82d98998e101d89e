package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// httpTransport speaks JSON-RPC over streamable HTTP: each request is a
// POST, and the reply is either a plain JSON body or an SSE stream whose
// data events carry the JSON-RPC response.
type httpTransport struct {
	url    string
	client *http.Client

	sessionID atomic.Value // string
	nextID    int64
}

func newHTTPTransport(url string) (*httpTransport, error) {
	return &httpTransport{
		url:    url,
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (t *httpTransport) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	id := atomic.AddInt64(&t.nextID, 1)
	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}
	body, err := t.post(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

func (t *httpTransport) notify(method string, params interface{}) error {
	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}
	_, err := t.post(context.Background(), req)
	return err
}

func (t *httpTransport) post(ctx context.Context, payload map[string]interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	if sid, _ := t.sessionID.Load().(string); sid != "" {
		httpReq.Header.Set("Mcp-Session-Id", sid)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		t.sessionID.Store(sid)
	}
	if resp.StatusCode == http.StatusAccepted {
		// Notifications are acknowledged without a body.
		return nil, nil
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return readSSEData(resp.Body)
	}
	return io.ReadAll(resp.Body)
}

// readSSEData returns the payload of the first data event carrying a
// JSON-RPC response.
func readSSEData(r io.Reader) ([]byte, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		// Skip keep-alives and anything that is not a response object.
		if !strings.Contains(payload, "\"jsonrpc\"") {
			continue
		}
		return []byte(payload), nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading event stream: %w", err)
	}
	return nil, fmt.Errorf("event stream closed without a response")
}

func (t *httpTransport) close() error {
	t.client.CloseIdleConnections()
	return nil
}
