// Package jobs contains the background task definitions and the Asynq
// worker that runs them.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCOGSSnapshot pre-computes and caches a COGS report for a
	// fixed range.
	TaskCOGSSnapshot = "cogs:snapshot"
	// TaskCOGSSnapshotDaily is the cron variant; the handler derives
	// the previous UTC day's range at execution time.
	TaskCOGSSnapshotDaily = "cogs:snapshot:daily"
)

// COGSSnapshotPayload bounds one snapshot computation. TraceID
// correlates worker log lines with the enqueue site.
type COGSSnapshotPayload struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	TraceID string    `json:"trace_id"`
}

// NewCOGSSnapshotTask constructs an Asynq task for a report snapshot.
func NewCOGSSnapshotTask(start, end time.Time) (*asynq.Task, error) {
	payload := COGSSnapshotPayload{
		StartAt: start,
		EndAt:   end,
		TraceID: uuid.NewString(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCOGSSnapshot, body, asynq.Queue(QueueDefault)), nil
}

// NewCOGSSnapshotDailyTask constructs the cron task; it carries no
// range, only a trace id.
func NewCOGSSnapshotDailyTask() (*asynq.Task, error) {
	body, err := json.Marshal(COGSSnapshotPayload{TraceID: uuid.NewString()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCOGSSnapshotDaily, body, asynq.Queue(QueueDefault)), nil
}
