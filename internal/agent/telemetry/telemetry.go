package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tool-pressure/xiaohongshu/config"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xhs_workflow_runs_total",
		Help: "Generate-and-publish runs by outcome.",
	}, []string{"outcome"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xhs_workflow_run_duration_seconds",
		Help:    "Wall time of a full generate-and-publish run.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	stepIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xhs_step_iterations",
		Help:    "Tool-calling rounds needed per step.",
		Buckets: prometheus.LinearBuckets(0, 1, 11),
	}, []string{"step"})

	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xhs_tool_calls_total",
		Help: "Tool invocations by tool name.",
	}, []string{"tool"})

	llmDegradationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xhs_llm_degradations_total",
		Help: "Model calls that failed and were folded into degraded responses.",
	})
)

// Telemetry aggregates run statistics and mirrors them into prometheus.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger

	mu      sync.RWMutex
	metrics Metrics
}

// Metrics is the in-process view, exposed on the status endpoints.
type Metrics struct {
	TotalRuns       int64            `json:"total_runs"`
	SuccessfulRuns  int64            `json:"successful_runs"`
	FailedRuns      int64            `json:"failed_runs"`
	AverageRunTime  time.Duration    `json:"average_run_time"`
	StepExecutions  map[string]int64 `json:"step_executions"`
	ToolCalls       map[string]int64 `json:"tool_calls"`
	LLMDegradations int64            `json:"llm_degradations"`
}

// NewTelemetry creates a new telemetry instance
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	return &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		metrics: Metrics{
			StepExecutions: make(map[string]int64),
			ToolCalls:      make(map[string]int64),
		},
	}
}

// RecordRun tracks one completed generate-and-publish run.
func (t *Telemetry) RecordRun(success bool, duration time.Duration) {
	if !t.config.Enabled {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	runsTotal.WithLabelValues(outcome).Inc()
	runDuration.Observe(duration.Seconds())

	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.TotalRuns++
	if success {
		t.metrics.SuccessfulRuns++
	} else {
		t.metrics.FailedRuns++
	}
	// Running average over all runs.
	prev := t.metrics.AverageRunTime
	t.metrics.AverageRunTime = prev + (duration-prev)/time.Duration(t.metrics.TotalRuns)
}

// RecordStep tracks iterations spent by one step.
func (t *Telemetry) RecordStep(stepID string, iterations int) {
	if !t.config.Enabled {
		return
	}
	stepIterations.WithLabelValues(stepID).Observe(float64(iterations))
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.StepExecutions[stepID]++
}

// RecordToolCall tracks one tool invocation.
func (t *Telemetry) RecordToolCall(name string) {
	if !t.config.Enabled {
		return
	}
	toolCallsTotal.WithLabelValues(name).Inc()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.ToolCalls[name]++
}

// RecordLLMDegradation tracks a provider failure that was degraded into
// a text-only response.
func (t *Telemetry) RecordLLMDegradation() {
	if !t.config.Enabled {
		return
	}
	llmDegradationsTotal.Inc()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.LLMDegradations++
}

// Snapshot returns a copy of the in-process metrics.
func (t *Telemetry) Snapshot() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := t.metrics
	out.StepExecutions = make(map[string]int64, len(t.metrics.StepExecutions))
	for k, v := range t.metrics.StepExecutions {
		out.StepExecutions[k] = v
	}
	out.ToolCalls = make(map[string]int64, len(t.metrics.ToolCalls))
	for k, v := range t.metrics.ToolCalls {
		out.ToolCalls[k] = v
	}
	return out
}

// StartPeriodicLogging dumps a summary line at the given interval until
// the context is cancelled.
func (t *Telemetry) StartPeriodicLogging(ctx context.Context, interval time.Duration) {
	if !t.config.Enabled || !t.config.PeriodicLogs {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m := t.Snapshot()
				t.logger.Printf("runs=%d ok=%d failed=%d avg=%s degradations=%d",
					m.TotalRuns, m.SuccessfulRuns, m.FailedRuns, m.AverageRunTime, m.LLMDegradations)
			}
		}
	}()
}
