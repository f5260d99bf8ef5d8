package jobs

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/agrotrace/agrotrace/internal/dashboard"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeTrendBatch is the task type for the all-orchard trend report.
	TaskTypeTrendBatch = "report:trend_batch"
)

// TrendBatchPayload fixes the batch inputs at enqueue time. Filters are a
// value copy of the requesting session's snapshot; the running batch never
// touches live dashboard state.
type TrendBatchPayload struct {
	JobID   string                   `json:"jobId"`
	Tenant  string                   `json:"tenant"`
	Filters dashboard.FilterSnapshot `json:"filters"`
	Spec    dashboard.TrendSpec      `json:"trendSpec"`
}

// NewTrendBatchTask constructs an Asynq task.
func NewTrendBatchTask(payload TrendBatchPayload) (*asynq.Task, error) {
	if payload.JobID == "" {
		return nil, errors.New("jobs: trend batch requires a job id")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeTrendBatch, data), nil
}
