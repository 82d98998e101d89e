package server

import (
	"context"
	"sort"
	"time"

	"github.com/tool-pressure/xiaohongshu/config"
	"github.com/tool-pressure/xiaohongshu/internal/agent/core"
	"github.com/tool-pressure/xiaohongshu/internal/agent/telemetry"
	"github.com/tool-pressure/xiaohongshu/mcp"
	"github.com/tool-pressure/xiaohongshu/provider"
)

// NewWorkflowFactory returns the production GeneratorFactory: a fresh
// adapter, tool connections and driver per run. The driver closes the
// connections when the run finishes.
func NewWorkflowFactory(tele *telemetry.Telemetry) GeneratorFactory {
	return func(ctx context.Context, cfg config.Config) (Generator, error) {
		adapter := provider.NewAdapter(provider.ParseClient(cfg.LLM.Provider), provider.Options{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: llmTimeout(cfg),
		})
		completer := provider.NewCompleter(adapter, cfg.LLM.MaxTokens, nil)

		registry := mcp.NewRegistry(nil)
		for _, conn := range buildConnections(cfg) {
			registry.Register(conn)
		}

		var llm core.CompletionClient = completer
		var router core.ToolRouter = registry
		if tele != nil {
			llm = instrumentedCompleter{inner: completer, tele: tele}
			router = instrumentedRouter{inner: registry, tele: tele}
		}

		executor := core.NewExecutor(llm, router, cfg.Workflow.MaxIterations, nil)
		var runner core.StepRunner = executor
		if cfg.Workflow.StepTimeout > 0 {
			runner = timedStepRunner{inner: executor, timeout: cfg.Workflow.StepTimeout}
		}
		return core.NewDriver(runner, registry, nil), nil
	}
}

// llmTimeout picks the model-call timeout, falling back to the general
// default when the llm section leaves it unset.
func llmTimeout(cfg config.Config) time.Duration {
	if cfg.LLM.Timeout > 0 {
		return cfg.LLM.Timeout
	}
	return cfg.General.DefaultTimeout
}

// buildConnections assembles the tool provider set from the settings:
// the remote xiaohongshu publisher, the bundled toolhost subprocess when
// a Serper key is present, the optional npx-launched providers, and any
// extra servers declared in the settings file. Order matters: the first
// provider advertising a name wins tool resolution.
func buildConnections(cfg config.Config) []*mcp.Connection {
	var conns []*mcp.Connection
	if cfg.MCP.XHSURL != "" {
		conns = append(conns, mcp.NewConnection("xiaohongshu-MCP", mcp.ServerSpec{URL: cfg.MCP.XHSURL}, nil))
	}
	if cfg.Tools.SerperAPIKey != "" {
		conns = append(conns, mcp.NewConnection("toolhost", mcp.ServerSpec{
			Command: "toolhost",
			Env:     map[string]string{"SERPER_API_KEY": cfg.Tools.SerperAPIKey},
		}, nil))
	}
	if cfg.Tools.JinaAPIKey != "" {
		conns = append(conns, mcp.NewConnection("jina-mcp-tools", mcp.ServerSpec{
			Command: "npx",
			Args:    []string{"-y", "jina-mcp-tools"},
			Env:     map[string]string{"JINA_API_KEY": cfg.Tools.JinaAPIKey},
		}, nil))
	}
	if cfg.Tools.TavilyAPIKey != "" {
		conns = append(conns, mcp.NewConnection("tavily-remote-mcp", mcp.ServerSpec{
			Command: "npx",
			Args:    []string{"-y", "mcp-remote", "https://mcp.tavily.com/mcp?tavilyApiKey=" + cfg.Tools.TavilyAPIKey},
		}, nil))
	}

	names := make([]string, 0, len(cfg.MCP.Servers))
	for name := range cfg.MCP.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec := cfg.MCP.Servers[name]
		conns = append(conns, mcp.NewConnection(name, mcp.ServerSpec{
			URL:     spec.URL,
			Command: spec.Command,
			Args:    spec.Args,
			Env:     spec.Env,
		}, nil))
	}
	return conns
}

// instrumentedRouter counts tool calls before delegating.
type instrumentedRouter struct {
	inner core.ToolRouter
	tele  *telemetry.Telemetry
}

func (r instrumentedRouter) Execute(ctx context.Context, name string, args map[string]interface{}) string {
	r.tele.RecordToolCall(name)
	return r.inner.Execute(ctx, name, args)
}

// instrumentedCompleter counts degraded model responses.
type instrumentedCompleter struct {
	inner core.CompletionClient
	tele  *telemetry.Telemetry
}

func (c instrumentedCompleter) ToolCallResponse(ctx context.Context, messages []provider.ChatMessage, tools []map[string]interface{}) provider.ModelResponse {
	resp := c.inner.ToolCallResponse(ctx, messages, tools)
	if resp.Degraded {
		c.tele.RecordLLMDegradation()
	}
	return resp
}

func (c instrumentedCompleter) FinalResponse(ctx context.Context, messages []provider.ChatMessage, tools []map[string]interface{}) provider.ModelResponse {
	resp := c.inner.FinalResponse(ctx, messages, tools)
	if resp.Degraded {
		c.tele.RecordLLMDegradation()
	}
	return resp
}

// timedStepRunner caps each step with the configured deadline.
type timedStepRunner struct {
	inner   core.StepRunner
	timeout time.Duration
}

func (r timedStepRunner) ExecuteStep(ctx context.Context, step core.StepSpec, tools []map[string]interface{}, previous []core.StepOutcome, topic string) core.StepOutcome {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.ExecuteStep(ctx, step, tools, previous, topic)
}
