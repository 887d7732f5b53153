package jobs

import (
	"encoding/json"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarmup prefetches the most requested dashboard selections.
	TaskDashboardWarmup = "dashboard:warmup"
	// TaskDashboardInvalidate drops every cached dashboard response.
	TaskDashboardInvalidate = "dashboard:invalidate"
)

// WarmupPayload scopes a warmup run.
type WarmupPayload struct {
	// Years is how many of the most recent years to prefetch.
	Years int `json:"years"`
	// ViewModes limits the run to these modes; empty means all.
	ViewModes []string `json:"view_modes,omitempty"`
}

// NewWarmupTask constructs an Asynq task for the cache warmup.
func NewWarmupTask(payload WarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}

// InvalidatePayload records why the cache is being dropped.
type InvalidatePayload struct {
	Reason string `json:"reason"`
}

// NewInvalidateTask constructs an Asynq task that bumps the cache version.
func NewInvalidateTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(InvalidatePayload{Reason: strings.TrimSpace(reason)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardInvalidate, data, asynq.MaxRetry(3)), nil
}
