package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mccmmj/cafe-web-sub004/internal/cogs"
)

// ReportWarmer is the service contract the snapshot handler needs.
type ReportWarmer interface {
	WarmReport(ctx context.Context, req cogs.ReportRequest) error
}

// NewCOGSSnapshotHandler returns the handler for TaskCOGSSnapshot. It
// computes the report for the payload's range and writes it through to
// the report cache.
func NewCOGSSnapshotHandler(warmer ReportWarmer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload COGSSnapshotPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		req := cogs.ReportRequest{
			StartAt:            payload.StartAt,
			EndAt:              payload.EndAt,
			IncludeTheoretical: true,
		}
		if err := warmer.WarmReport(ctx, req); err != nil {
			if logger != nil {
				logger.Error("cogs snapshot",
					slog.String("trace_id", payload.TraceID),
					slog.Any("error", err))
			}
			return err
		}
		if logger != nil {
			logger.Info("cogs snapshot warmed",
				slog.String("trace_id", payload.TraceID),
				slog.Time("start_at", payload.StartAt),
				slog.Time("end_at", payload.EndAt))
		}
		return nil
	}
}

// NewCOGSSnapshotDailyHandler returns the handler for the cron task; it
// derives the previous UTC day's range at execution time and delegates
// to the fixed-range handler logic.
func NewCOGSSnapshotDailyHandler(warmer ReportWarmer, logger *slog.Logger, now func() time.Time) asynq.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	fixed := NewCOGSSnapshotHandler(warmer, logger)
	return func(ctx context.Context, t *asynq.Task) error {
		var payload COGSSnapshotPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		end := now().UTC().Truncate(24 * time.Hour)
		payload.StartAt = end.Add(-24 * time.Hour)
		payload.EndAt = end
		body, err := json.Marshal(payload)
		if err != nil {
			return asynq.SkipRetry
		}
		return fixed(ctx, asynq.NewTask(TaskCOGSSnapshot, body))
	}
}
