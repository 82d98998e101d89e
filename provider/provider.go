package provider

import (
	"context"
	"strings"
	"time"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI     Client = "openai"
	Anthropic  Client = "anthropic"
	OpenRouter Client = "openrouter"
	DeepSeek   Client = "deepseek"
	Custom     Client = "custom"
)

// ParseClient maps a configured provider name onto a Client. Unknown
// names get the OpenAI-compatible adapter with whatever base URL the
// configuration carries.
func ParseClient(name string) Client {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "anthropic", "claude":
		return Anthropic
	case "openrouter":
		return OpenRouter
	case "deepseek":
		return DeepSeek
	case "openai":
		return OpenAI
	default:
		return Custom
	}
}

// ToolCall is one tool invocation requested by the model. Arguments is
// the raw JSON string exactly as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatMessage is one turn of the running conversation.
type ChatMessage struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Request is a single completion call.
type Request struct {
	Messages    []ChatMessage
	Tools       []map[string]interface{} // OpenAI function-calling format
	Temperature float64
	MaxTokens   int
}

// ModelResponse is the uniform result of a completion call. Degraded
// marks responses synthesized locally after a provider failure; the
// orchestration loop treats them like any other text-only answer.
type ModelResponse struct {
	Content        string
	ToolCalls      []ToolCall
	FinishReason   string
	Degraded       bool
	DegradedReason string
}

// HasToolCalls reports whether the model requested any tool invocations.
func (r ModelResponse) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// Adapter is the interface every provider implementation must satisfy.
type Adapter interface {
	ChatCompletion(ctx context.Context, req Request) (ModelResponse, error)
}

// Options carries adapter construction parameters.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewAdapter creates the adapter for a provider. Anthropic speaks its
// own protocol and gets the translating adapter; every other provider
// is OpenAI-compatible and shares the native one.
func NewAdapter(client Client, opts Options) Adapter {
	if opts.Timeout <= 0 {
		opts.Timeout = 180 * time.Second
	}
	switch client {
	case Anthropic:
		return newAnthropicAdapter(opts)
	default:
		return newOpenAIAdapter(opts)
	}
}
