package models

import (
	"errors"
	"time"

	"github.com/tool-pressure/xiaohongshu/internal/agent/core"
)

// ErrRunNotFound is returned when a run is not found
var ErrRunNotFound = errors.New("run not found")

// RunStatus is the lifecycle state of a generate-and-publish run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run tracks one generate-and-publish request end to end so that its
// status can be polled while the workflow is still going.
type Run struct {
	ID        string       `json:"id"`
	Topic     string       `json:"topic"`
	Status    RunStatus    `json:"status"`
	Report    *core.Report `json:"report,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
