package core

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"

	"github.com/tool-pressure/xiaohongshu/provider"
)

const (
	// publishToolName is the terminal action: once it reports success
	// the step stops without another model round.
	publishToolName = "publish_content"

	// publishedConfirmation replaces a model-written answer after a
	// successful publish.
	publishedConfirmation = "内容已成功发布到小红书平台"

	// exhaustedMessage is the fallback answer when the iteration budget
	// runs out with no final text.
	exhaustedMessage = "任务执行超出最大迭代次数限制"

	defaultMaxIterations = 10
)

// publishMarkers flag a successful publish anywhere in the lowercased
// tool result.
var publishMarkers = []string{"success", "published", "成功"}

// CompletionClient is what the executor needs from the model side.
type CompletionClient interface {
	ToolCallResponse(ctx context.Context, messages []provider.ChatMessage, tools []map[string]interface{}) provider.ModelResponse
	FinalResponse(ctx context.Context, messages []provider.ChatMessage, tools []map[string]interface{}) provider.ModelResponse
}

// ToolRouter routes a tool invocation to whichever provider owns it and
// always produces a textual result.
type ToolRouter interface {
	Execute(ctx context.Context, name string, args map[string]interface{}) string
}

// Executor drives a single step through the tool-calling loop.
type Executor struct {
	llm           CompletionClient
	router        ToolRouter
	maxIterations int
	logger        *log.Logger
}

func NewExecutor(llm CompletionClient, router ToolRouter, maxIterations int, logger *log.Logger) *Executor {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[STEP] ", log.LstdFlags)
	}
	return &Executor{llm: llm, router: router, maxIterations: maxIterations, logger: logger}
}

// ExecuteStep runs one step to convergence: an initial completion, then
// bounded rounds of tool execution and decision follow-ups. Exhausting
// the budget is still a successful outcome; the step just keeps whatever
// answer the model produced last.
func (e *Executor) ExecuteStep(ctx context.Context, step StepSpec, tools []map[string]interface{}, previous []StepOutcome, topic string) StepOutcome {
	e.logger.Printf("executing step %s - %s", step.ID, step.Title)

	outcome := StepOutcome{StepID: step.ID, StepTitle: step.Title, Success: true}

	messages := []provider.ChatMessage{
		{Role: "system", Content: stepSystemPrompt(topic, step, previous)},
		{Role: "user", Content: step.Description},
	}

	resp := e.llm.ToolCallResponse(ctx, messages, tools)
	if !resp.HasToolCalls() {
		e.logger.Printf("step %s: no tool calls in first round, returning directly", step.ID)
		outcome.Response = resp.Content
		return outcome
	}

	finalContent := ""
	lastContent := ""
	for outcome.TotalIterations < e.maxIterations {
		if err := ctx.Err(); err != nil {
			outcome.Success = false
			outcome.Error = err.Error()
			return outcome
		}
		outcome.TotalIterations++
		iteration := outcome.TotalIterations
		e.logger.Printf("step %s: round %d with %d tool calls", step.ID, iteration, len(resp.ToolCalls))

		messages = append(messages, provider.ChatMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			args := parseArguments(call.Arguments)
			result := e.router.Execute(ctx, call.Name, args)

			if call.Name == publishToolName {
				if isPublishSuccess(result) {
					outcome.PublishSuccess = true
					e.logger.Printf("step %s: publish succeeded, stopping after this round", step.ID)
				} else {
					outcome.PublishError = result
					e.logger.Printf("step %s: publish failed: %s", step.ID, result)
				}
			}

			outcome.ToolCalls = append(outcome.ToolCalls, ToolCallRecord{
				Iteration: iteration,
				Name:      call.Name,
				Arguments: args,
				Result:    result,
			})
			messages = append(messages, provider.ChatMessage{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
			})
		}

		if outcome.PublishSuccess {
			finalContent = publishedConfirmation
			break
		}

		final := e.llm.FinalResponse(ctx, messages, tools)
		if final.HasToolCalls() {
			if final.Content != "" {
				lastContent = final.Content
			}
			resp = final
			continue
		}
		finalContent = final.Content
		break
	}

	if finalContent == "" && !outcome.PublishSuccess {
		e.logger.Printf("step %s: reached max iterations (%d), stopping tool calls", step.ID, e.maxIterations)
		// Keep whatever the model said alongside its last tool calls;
		// the fixed message is only for a silent exhaustion.
		finalContent = lastContent
		if finalContent == "" {
			finalContent = exhaustedMessage
		}
	}
	outcome.Response = finalContent
	return outcome
}

// parseArguments decodes the model-produced JSON arguments; malformed
// payloads degrade to an empty object rather than failing the call.
func parseArguments(raw string) map[string]interface{} {
	if raw == "" {
		return map[string]interface{}{}
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]interface{}{}
	}
	return args
}

func isPublishSuccess(result string) bool {
	lower := strings.ToLower(result)
	for _, marker := range publishMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
