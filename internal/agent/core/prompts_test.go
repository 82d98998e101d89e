package core

import (
	"strings"
	"testing"
)

func TestResearchPlanShape(t *testing.T) {
	plan := ResearchPlan("AI芯片")
	if len(plan) != 3 {
		t.Fatalf("plan len = %d, want 3", len(plan))
	}
	if plan[0].ID != "step1" || plan[1].ID != "step2" || plan[2].ID != "step3" {
		t.Errorf("step ids = %s %s %s", plan[0].ID, plan[1].ID, plan[2].ID)
	}
	if !strings.Contains(plan[0].Description, "AI芯片") {
		t.Error("topic missing from research step")
	}
	if !strings.Contains(plan[2].Description, "publish_content") {
		t.Error("publish step must name the publish tool")
	}
}

func TestStepSystemPromptFirstStep(t *testing.T) {
	p := stepSystemPrompt("AI", ResearchPlan("AI")[0], nil)
	if !strings.Contains(p, "独立步骤") {
		t.Error("first step should get the no-dependencies guidance")
	}
	if !strings.Contains(p, "AI") {
		t.Error("topic missing from system prompt")
	}
}

func TestStepSystemPromptTruncatesPreviews(t *testing.T) {
	long := strings.Repeat("长", 1500)
	prev := []StepOutcome{{StepID: "step1", StepTitle: "检索", Response: long, Success: true}}
	p := stepSystemPrompt("AI", ResearchPlan("AI")[1], prev)
	if strings.Contains(p, long) {
		t.Error("preview not truncated")
	}
	if !strings.Contains(p, strings.Repeat("长", 1000)) {
		t.Error("first 1000 runes should survive")
	}
	if !strings.Contains(p, "前序步骤执行结果") {
		t.Error("previous-results section missing")
	}
}

func TestStepSystemPromptSkipsEmptyResponses(t *testing.T) {
	prev := []StepOutcome{{StepID: "step1", StepTitle: "检索", Response: "", Success: true}}
	p := stepSystemPrompt("AI", ResearchPlan("AI")[1], prev)
	if strings.Contains(p, "▸ step1") {
		t.Error("steps without answer text should not be replayed")
	}
}
