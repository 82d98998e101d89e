package server

import (
	"context"
	"testing"
	"time"

	"github.com/tool-pressure/xiaohongshu/config"
	"github.com/tool-pressure/xiaohongshu/internal/agent/core"
	"github.com/tool-pressure/xiaohongshu/internal/agent/telemetry"
	"github.com/tool-pressure/xiaohongshu/provider"
)

func TestBuildConnectionsOrder(t *testing.T) {
	cfg := config.Config{
		MCP: config.MCPConfig{
			XHSURL: "http://localhost:18060/mcp",
			Servers: map[string]config.MCPServerSpec{
				"zeta":  {URL: "http://localhost:9001/mcp"},
				"alpha": {Command: "some-tool"},
			},
		},
		Tools: config.ToolsConfig{
			SerperAPIKey: "sk",
			JinaAPIKey:   "jk",
			TavilyAPIKey: "tk",
		},
	}

	conns := buildConnections(cfg)
	want := []string{"xiaohongshu-MCP", "toolhost", "jina-mcp-tools", "tavily-remote-mcp", "alpha", "zeta"}
	if len(conns) != len(want) {
		t.Fatalf("got %d connections, want %d", len(conns), len(want))
	}
	for i, name := range want {
		if conns[i].Name != name {
			t.Errorf("conns[%d] = %s, want %s", i, conns[i].Name, name)
		}
	}
}

func TestBuildConnectionsMinimal(t *testing.T) {
	cfg := config.Config{MCP: config.MCPConfig{XHSURL: "http://localhost:18060/mcp"}}
	conns := buildConnections(cfg)
	if len(conns) != 1 || conns[0].Name != "xiaohongshu-MCP" {
		t.Fatalf("unexpected connections: %v", conns)
	}
}

type degradedLLM struct {
	resp provider.ModelResponse
}

func (d degradedLLM) ToolCallResponse(ctx context.Context, messages []provider.ChatMessage, tools []map[string]interface{}) provider.ModelResponse {
	return d.resp
}

func (d degradedLLM) FinalResponse(ctx context.Context, messages []provider.ChatMessage, tools []map[string]interface{}) provider.ModelResponse {
	return d.resp
}

func TestInstrumentedCompleterCountsDegradations(t *testing.T) {
	tele := telemetry.NewTelemetry(config.TelemetryConfig{Enabled: true})
	llm := instrumentedCompleter{
		inner: degradedLLM{resp: provider.ModelResponse{Degraded: true, DegradedReason: "timeout"}},
		tele:  tele,
	}

	llm.ToolCallResponse(context.Background(), nil, nil)
	llm.FinalResponse(context.Background(), nil, nil)

	if got := tele.Snapshot().LLMDegradations; got != 2 {
		t.Errorf("LLMDegradations = %d, want 2", got)
	}
}

func TestInstrumentedCompleterIgnoresHealthyResponses(t *testing.T) {
	tele := telemetry.NewTelemetry(config.TelemetryConfig{Enabled: true})
	llm := instrumentedCompleter{
		inner: degradedLLM{resp: provider.ModelResponse{Content: "好的"}},
		tele:  tele,
	}

	llm.ToolCallResponse(context.Background(), nil, nil)

	if got := tele.Snapshot().LLMDegradations; got != 0 {
		t.Errorf("LLMDegradations = %d, want 0", got)
	}
}

type deadlineRunner struct {
	hadDeadline bool
	deadline    time.Time
}

func (r *deadlineRunner) ExecuteStep(ctx context.Context, step core.StepSpec, tools []map[string]interface{}, previous []core.StepOutcome, topic string) core.StepOutcome {
	r.deadline, r.hadDeadline = ctx.Deadline()
	return core.StepOutcome{StepID: step.ID, Success: true}
}

func TestTimedStepRunnerAppliesDeadline(t *testing.T) {
	inner := &deadlineRunner{}
	runner := timedStepRunner{inner: inner, timeout: 10 * time.Minute}

	outcome := runner.ExecuteStep(context.Background(), core.StepSpec{ID: "step1"}, nil, nil, "AI")
	if !outcome.Success {
		t.Fatalf("outcome = %+v", outcome)
	}
	if !inner.hadDeadline {
		t.Fatal("step context carried no deadline")
	}
	remaining := time.Until(inner.deadline)
	if remaining <= 0 || remaining > 10*time.Minute {
		t.Errorf("deadline %v from now, want within 10m", remaining)
	}
}

func TestLLMTimeoutFallsBackToGeneralDefault(t *testing.T) {
	cfg := config.Config{General: config.GeneralConfig{DefaultTimeout: 30 * time.Second}}
	if got := llmTimeout(cfg); got != 30*time.Second {
		t.Errorf("llmTimeout = %v, want general default", got)
	}
	cfg.LLM.Timeout = 3 * time.Minute
	if got := llmTimeout(cfg); got != 3*time.Minute {
		t.Errorf("llmTimeout = %v, want llm.timeout", got)
	}
}
