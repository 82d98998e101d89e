// cmd/toolhost is a stdio JSON-RPC tool server exposing the built-in
// research tools (web search + page fetch) to the workflow agent.
//
// Start: `go run ./cmd/toolhost`
// The agent connects via stdio: "initialize", "tools/list" and "tools/call".
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tool-pressure/xiaohongshu/config"
	"github.com/tool-pressure/xiaohongshu/tools/web_fetch"
	"github.com/tool-pressure/xiaohongshu/tools/web_search"
)

const protocolVersion = "2024-11-05"

type rpcReq struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      any                    `json:"id"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params"`
}
type rpcResp struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      any                    `json:"id"`
	Result  map[string]interface{} `json:"result,omitempty"`
	Error   *rpcError              `json:"error,omitempty"`
}
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeResp(w io.Writer, id any, result map[string]interface{}, err error) {
	resp := rpcResp{JSONRPC: "2.0", ID: id}
	if err != nil {
		resp.Error = &rpcError{Code: -32000, Message: err.Error()}
	} else {
		resp.Result = result
	}
	enc := json.NewEncoder(w)
	_ = enc.Encode(resp)
}

// ToolDesc describes a single tool, including input schema.
type ToolDesc struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolHost holds the shared clients behind the advertised tools.
type ToolHost struct {
	Searcher web_search.WebSearcher
	Fetcher  web_fetch.WebFetcher

	CallTimeout time.Duration
	// MaxResults is the search result count when the caller omits k.
	MaxResults int

	tools []ToolDesc
}

// NewToolHost wires dependencies from the settings file and environment.
// SERPER_API_KEY in the environment overrides tools.serper_api_key.
func NewToolHost() (*ToolHost, error) {
	cfg, err := config.LoadConfig("")
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	serperKey := cfg.Tools.SerperAPIKey
	if serperKey == "" {
		return nil, errors.New("SERPER_API_KEY is required")
	}
	searcher, err := web_search.NewWebSearcher(web_search.SerperProvider, serperKey)
	if err != nil {
		return nil, fmt.Errorf("searcher: %w", err)
	}
	fetcher, err := web_fetch.NewWebFetcher(web_fetch.ReadabilityFetcherType, cfg.Tools.FetchTimeout, 0)
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}

	host := &ToolHost{
		Searcher:    searcher,
		Fetcher:     fetcher,
		CallTimeout: 60 * time.Second,
		MaxResults:  cfg.Tools.SearchMaxResults,
	}
	host.initTools()
	return host, nil
}

func (h *ToolHost) initTools() {
	h.tools = []ToolDesc{
		{
			Name:        "search_web",
			Description: "Search the web and return titles, links and snippets.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":   map[string]any{"type": "string"},
					"k":       map[string]any{"type": "integer", "minimum": 1, "maximum": 25},
					"sites":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"recency": map[string]any{"type": "integer", "minimum": 0},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "fetch_url",
			Description: "Fetch a web page and extract its readable article text.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url":       map[string]any{"type": "string"},
					"max_chars": map[string]any{"type": "integer", "minimum": 1000},
				},
				"required": []string{"url"},
			},
		},
	}
}

func (h *ToolHost) callTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	switch name {
	case "search_web":
		return h.tSearchWeb(ctx, args)
	case "fetch_url":
		return h.tFetchURL(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// tSearchWeb executes a search; returns a normalized result list.
// Input: query (string), k (int), sites ([]string, optional), recency (int days, optional).
func (h *ToolHost) tSearchWeb(ctx context.Context, args map[string]any) (map[string]any, error) {
	q := str(args["query"])
	if q == "" {
		return nil, errors.New("query is required")
	}
	k := asInt(args["k"])
	if k <= 0 {
		k = h.MaxResults
	}
	k = clampInt(k, 1, 25)
	sites := asStrSlice(args["sites"])
	recency := asInt(args["recency"])

	results, err := h.Searcher.Discover(ctx, q, k, sites, recency)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		out = append(out, map[string]any{"title": r.Title, "url": r.URL, "snippet": r.Snippet})
	}
	return textResult(map[string]any{"results": out})
}

// tFetchURL fetches and extracts readable content.
// Input: url (string), max_chars (optional).
func (h *ToolHost) tFetchURL(ctx context.Context, args map[string]any) (map[string]any, error) {
	target := str(args["url"])
	if target == "" {
		return nil, errors.New("url is required")
	}

	res, err := h.Fetcher.Exec(ctx, target)
	if err != nil {
		return nil, err
	}
	text := res.Text
	if maxChars := asInt(args["max_chars"]); maxChars > 0 && len(text) > maxChars {
		text = text[:maxChars]
	}
	return textResult(map[string]any{
		"url":       res.URL,
		"title":     res.Title,
		"byline":    res.Byline,
		"text":      text,
		"top_image": res.TopImage,
		"status":    res.Status,
		"fetch_ms":  res.FetchMS,
	})
}

// textResult wraps a payload as a single text content block.
func textResult(payload map[string]any) (map[string]any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"content": []map[string]any{{"type": "text", "text": string(data)}},
	}, nil
}

func str(v any) string { s, _ := v.(string); return s }
func asInt(v any) int {
	switch x := v.(type) {
	case float64:
		return int(x)
	case int:
		return x
	case json.Number:
		i, _ := x.Int64()
		return int(i)
	default:
		return 0
	}
}
func asStrSlice(v any) []string {
	if v == nil {
		return nil
	}
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Serve runs the stdio JSON-RPC loop.
func (h *ToolHost) Serve(in io.Reader, out io.Writer) error {
	rd := bufio.NewReader(in)
	dec := json.NewDecoder(rd)
	for {
		var req rpcReq
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			// skip malformed lines
			continue
		}

		switch req.Method {
		case "initialize":
			writeResp(out, req.ID, map[string]any{
				"protocolVersion": protocolVersion,
				"capabilities":    map[string]any{"tools": map[string]any{}},
				"serverInfo":      map[string]any{"name": "toolhost", "version": "1.0.0"},
			}, nil)

		case "notifications/initialized":
			// notification, no reply

		case "tools/list":
			writeResp(out, req.ID, map[string]any{"tools": h.tools}, nil)

		case "tools/call":
			name := ""
			args := map[string]any{}
			if v, ok := req.Params["name"].(string); ok {
				name = v
			}
			if m, ok := req.Params["arguments"].(map[string]any); ok {
				args = m
			}
			ctx, cancel := context.WithTimeout(context.Background(), h.CallTimeout)
			res, err := h.callTool(ctx, name, args)
			cancel()
			writeResp(out, req.ID, res, err)

		default:
			if req.ID == nil {
				continue // unknown notification
			}
			writeResp(out, req.ID, nil, fmt.Errorf("unknown method: %s", req.Method))
		}
	}
}

func main() {
	host, err := NewToolHost()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init error: %v\n", err)
		os.Exit(1)
	}
	if err := host.Serve(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "serve error: %v\n", err)
		os.Exit(1)
	}
}
