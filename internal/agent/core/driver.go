package core

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/tool-pressure/xiaohongshu/mcp"
)

// publishErrorLimit bounds how much raw tool output is replayed into the
// user-facing failure message.
const publishErrorLimit = 500

// ToolCatalog is what the driver needs from the registry: connection
// lifecycle plus the aggregated tool list.
type ToolCatalog interface {
	InitializeAll(ctx context.Context)
	Refresh(ctx context.Context)
	Tools() []mcp.Tool
	CloseAll()
}

// StepRunner executes one plan step to convergence.
type StepRunner interface {
	ExecuteStep(ctx context.Context, step StepSpec, tools []map[string]interface{}, previous []StepOutcome, topic string) StepOutcome
}

// Driver runs the whole plan for a topic and assembles the final report.
type Driver struct {
	executor StepRunner
	registry ToolCatalog
	logger   *log.Logger
}

func NewDriver(executor StepRunner, registry ToolCatalog, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.New(os.Stderr, "[WORKFLOW] ", log.LstdFlags)
	}
	return &Driver{executor: executor, registry: registry, logger: logger}
}

// GenerateAndPublish executes the research plan sequentially, aborting
// on the first failed step, then verifies that the publish step actually
// published. Connections are torn down before returning.
func (d *Driver) GenerateAndPublish(ctx context.Context, topic string) Report {
	defer d.registry.CloseAll()

	d.logger.Printf("starting content generation for topic %q", topic)

	tools := d.registry.Tools()
	if len(tools) == 0 {
		d.registry.InitializeAll(ctx)
		d.registry.Refresh(ctx)
		tools = d.registry.Tools()
	}
	d.logger.Printf("%d tools available", len(tools))

	catalog := make([]map[string]interface{}, 0, len(tools))
	for _, t := range tools {
		catalog = append(catalog, t.OpenAI())
	}

	plan := ResearchPlan(topic)
	results := make([]StepOutcome, 0, len(plan))
	for _, step := range plan {
		outcome := d.executor.ExecuteStep(ctx, step, catalog, results, topic)
		results = append(results, outcome)

		if !outcome.Success {
			d.logger.Printf("step %s failed: %s", step.ID, outcome.Error)
			reason := outcome.Error
			if reason == "" {
				reason = "未知错误"
			}
			return Report{
				Success:     false,
				Error:       fmt.Sprintf("步骤 %s 执行失败: %s", step.ID, reason),
				FullResults: results,
			}
		}
		d.logger.Printf("step %s succeeded", step.ID)
	}

	publishStep := findOutcome(results, "step3")
	if publishStep == nil || !publishStep.PublishSuccess {
		d.logger.Printf("content generated but publish failed")
		message := "内容生成完成，但发布到小红书失败。"
		if publishStep != nil && publishStep.PublishError != "" {
			message += fmt.Sprintf("\n\n错误详情：%s", truncateRunes(publishStep.PublishError, publishErrorLimit)+overflowMark(publishStep.PublishError))
		} else {
			message += "\n请检查小红书MCP服务连接或稍后重试。"
		}
		return Report{Success: false, Error: message, FullResults: results}
	}

	content := extractPublishedContent(publishStep, topic)
	return Report{
		Success:       true,
		Title:         content.Title,
		Content:       content.Content,
		Tags:          content.Tags,
		Images:        content.Images,
		PublishStatus: "已成功发布",
		FullResults:   results,
	}
}

func findOutcome(results []StepOutcome, id string) *StepOutcome {
	for i := range results {
		if results[i].StepID == id {
			return &results[i]
		}
	}
	return nil
}

func overflowMark(s string) string {
	if len([]rune(s)) > publishErrorLimit {
		return "..."
	}
	return ""
}

// extractPublishedContent recovers what was actually published from the
// publish tool call arguments, falling back to topic-derived defaults.
func extractPublishedContent(outcome *StepOutcome, topic string) PublishedContent {
	content := PublishedContent{
		Title: fmt.Sprintf("关于%s的精彩内容", topic),
		Tags:  []string{topic},
	}
	if outcome == nil {
		return content
	}
	for _, call := range outcome.ToolCalls {
		if call.Name != publishToolName || len(call.Arguments) == 0 {
			continue
		}
		if title, ok := call.Arguments["title"].(string); ok && title != "" {
			content.Title = title
		}
		if body, ok := call.Arguments["content"].(string); ok {
			content.Content = body
		}
		if tags := stringSlice(call.Arguments["tags"]); tags != nil {
			content.Tags = tags
		}
		if images := stringSlice(call.Arguments["images"]); images != nil {
			content.Images = images
		}
		break
	}
	return content
}

func stringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
