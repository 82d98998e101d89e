package provider

import (
	"context"
	"fmt"
	"log"
	"os"
)

const (
	toolRoundTemperature = 0.8
	finalTemperature     = 0.3
)

// Completer wraps an Adapter with the two call shapes the orchestration
// loop needs. Provider failures never surface as errors: they are folded
// into a degraded text-only ModelResponse so a step can still finish.
type Completer struct {
	adapter   Adapter
	maxTokens int
	logger    *log.Logger
}

func NewCompleter(adapter Adapter, maxTokens int, logger *log.Logger) *Completer {
	if logger == nil {
		logger = log.New(os.Stderr, "[LLM] ", log.LstdFlags)
	}
	return &Completer{adapter: adapter, maxTokens: maxTokens, logger: logger}
}

// ToolCallResponse runs a completion expected to produce tool calls.
func (c *Completer) ToolCallResponse(ctx context.Context, messages []ChatMessage, tools []map[string]interface{}) ModelResponse {
	resp, err := c.adapter.ChatCompletion(ctx, Request{
		Messages:    messages,
		Tools:       tools,
		Temperature: toolRoundTemperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		c.logger.Printf("error getting LLM response: %v", err)
		return ModelResponse{
			Content:        fmt.Sprintf("I encountered an error: %v. Please try again or rephrase your request.", err),
			Degraded:       true,
			DegradedReason: err.Error(),
		}
	}
	return resp
}

// FinalResponse asks the model to decide between further tool calls and
// a final synthesized answer. The decision guidance is appended as a
// system turn; the lower temperature keeps the summary focused.
func (c *Completer) FinalResponse(ctx context.Context, messages []ChatMessage, tools []map[string]interface{}) ModelResponse {
	enhanced := make([]ChatMessage, 0, len(messages)+1)
	enhanced = append(enhanced, messages...)
	enhanced = append(enhanced, ChatMessage{
		Role:    "system",
		Content: decisionPrompt(originalQuestion(messages)),
	})

	resp, err := c.adapter.ChatCompletion(ctx, Request{
		Messages:    enhanced,
		Tools:       tools,
		Temperature: finalTemperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		c.logger.Printf("error getting final LLM response: %v", err)
		return ModelResponse{
			Content:        fmt.Sprintf("I encountered an error while generating the final response: %v. Please try again.", err),
			Degraded:       true,
			DegradedReason: err.Error(),
		}
	}
	return resp
}

// originalQuestion finds the first user turn; the decision prompt quotes
// it so the model judges sufficiency against the actual task.
func originalQuestion(messages []ChatMessage) string {
	for _, m := range messages {
		if m.Role == "user" {
			return m.Content
		}
	}
	return ""
}

func decisionPrompt(question string) string {
	return fmt.Sprintf(`Based on the tool execution results above, you need to decide whether to continue with more tool calls or provide a final summary for the original question: %q

Please analyze the current information and decide:

OPTION 1 - If you need more information to complete the task:
- Call additional tools to gather missing information
- Use tools for deeper research or verification
- Continue the investigation process

OPTION 2 - If you have sufficient information (this is the main task):
- Provide a comprehensive and well-structured final response
- Synthesize all tool results into a coherent answer
- Organize the information logically and make it actionable
- Include all relevant details from the tool outputs
- Use a professional and helpful tone

Make your decision based on whether the current information is sufficient to fully answer the original question and complete the task requirements.`, question)
}
