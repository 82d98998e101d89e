package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// anthropicAdapter translates between the OpenAI-shaped conversation the
// rest of the system speaks and the Anthropic messages protocol.
type anthropicAdapter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func newAnthropicAdapter(opts Options) *anthropicAdapter {
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if base == "" || strings.Contains(base, "api.openai.com") {
		base = defaultAnthropicBaseURL
	}
	base = strings.TrimSuffix(base, "/v1")
	return &anthropicAdapter{
		apiKey:     opts.APIKey,
		baseURL:    base,
		model:      opts.Model,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

func (a *anthropicAdapter) ChatCompletion(ctx context.Context, req Request) (ModelResponse, error) {
	system, messages := anthropicMessages(req.Messages)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	body := map[string]interface{}{
		"model":       a.model,
		"messages":    messages,
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
	}
	if system != "" {
		body["system"] = system
	}
	if len(req.Tools) > 0 {
		body["tools"] = anthropicTools(req.Tools)
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return ModelResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return ModelResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return ModelResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ModelResponse{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ModelResponse{}, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}

	var parsed struct {
		StopReason string `json:"stop_reason"`
		Content    []struct {
			Type  string          `json:"type"`
			Text  string          `json:"text"`
			ID    string          `json:"id"`
			Name  string          `json:"name"`
			Input json.RawMessage `json:"input"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ModelResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}

	out := ModelResponse{FinishReason: finishReason(parsed.StopReason)}
	var text strings.Builder
	for _, block := range parsed.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := "{}"
			if len(block.Input) > 0 {
				args = string(block.Input)
			}
			// Reuse the provider-issued id so tool results can refer
			// back to it.
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}
	out.Content = text.String()
	return out, nil
}

// anthropicMessages converts the conversation. The first system message
// moves to the dedicated system slot; later system turns are dropped.
// Tool results become tool_result content blocks addressed by call id,
// and assistant tool calls become tool_use blocks.
func anthropicMessages(msgs []ChatMessage) (string, []map[string]interface{}) {
	system := ""
	out := make([]map[string]interface{}, 0, len(msgs))
	for _, m := range msgs {
		switch {
		case m.Role == "system":
			if system == "" {
				system = m.Content
			}
		case m.Role == "tool":
			out = append(out, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{{
					"type":        "tool_result",
					"tool_use_id": m.ToolCallID,
					"content":     m.Content,
				}},
			})
		case m.Role == "assistant" && len(m.ToolCalls) > 0:
			var blocks []map[string]interface{}
			if m.Content != "" {
				blocks = append(blocks, map[string]interface{}{"type": "text", "text": m.Content})
			}
			for _, tc := range m.ToolCalls {
				var input map[string]interface{}
				if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil || input == nil {
					input = map[string]interface{}{}
				}
				blocks = append(blocks, map[string]interface{}{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Name,
					"input": input,
				})
			}
			out = append(out, map[string]interface{}{"role": "assistant", "content": blocks})
		default:
			out = append(out, map[string]interface{}{"role": m.Role, "content": m.Content})
		}
	}
	return system, out
}

// anthropicTools maps the OpenAI function-calling catalog onto the
// Anthropic tool shape; the argument schema carries over verbatim.
func anthropicTools(tools []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(tools))
	for _, t := range tools {
		if t["type"] != "function" {
			continue
		}
		fn, ok := t["function"].(map[string]interface{})
		if !ok {
			continue
		}
		desc, _ := fn["description"].(string)
		params, _ := fn["parameters"].(map[string]interface{})
		if params == nil {
			params = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		}
		out = append(out, map[string]interface{}{
			"name":         fn["name"],
			"description":  desc,
			"input_schema": params,
		})
	}
	return out
}

func finishReason(stopReason string) string {
	switch stopReason {
	case "tool_use":
		return "tool_calls"
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	default:
		return stopReason
	}
}
