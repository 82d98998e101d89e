package core

// StepSpec is one unit of the research plan.
type StepSpec struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DependsOn   []string `json:"depends_on,omitempty"`
}

// ToolCallRecord captures one executed tool invocation inside a step.
type ToolCallRecord struct {
	Iteration int                    `json:"iteration"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	Result    string                 `json:"result"`
}

// StepOutcome is the result of running one step to convergence.
type StepOutcome struct {
	StepID          string           `json:"step_id"`
	StepTitle       string           `json:"step_title"`
	ToolCalls       []ToolCallRecord `json:"tool_calls,omitempty"`
	TotalIterations int              `json:"total_iterations"`
	Response        string           `json:"response"`
	Success         bool             `json:"success"`
	Error           string           `json:"error,omitempty"`
	PublishSuccess  bool             `json:"publish_success"`
	PublishError    string           `json:"publish_error,omitempty"`
}

// PublishedContent is the payload that actually went out, recovered from
// the publish tool call arguments.
type PublishedContent struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	Images  []string `json:"images"`
}

// Report is the overall result of a generate-and-publish run.
type Report struct {
	Success       bool          `json:"success"`
	Error         string        `json:"error,omitempty"`
	Title         string        `json:"title,omitempty"`
	Content       string        `json:"content,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	Images        []string      `json:"images,omitempty"`
	PublishStatus string        `json:"publish_status,omitempty"`
	FullResults   []StepOutcome `json:"full_results,omitempty"`
}
