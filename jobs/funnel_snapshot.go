package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/turyasin/Proposal-App-Live/internal/funnel"
	"github.com/turyasin/Proposal-App-Live/internal/observability"
)

const (
	// TaskTypeFunnelSnapshot triggers the scheduled funnel CSV snapshot.
	TaskTypeFunnelSnapshot = "funnel:snapshot"
)

// FunnelSnapshotPayload carries scheduling metadata.
type FunnelSnapshotPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewFunnelSnapshotTask constructs an Asynq task for the funnel snapshot.
func NewFunnelSnapshotTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(FunnelSnapshotPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeFunnelSnapshot, body, asynq.Queue(QueueDefault)), nil
}

// NewFunnelSnapshotHandler renders the full unfiltered funnel export and
// persists it so the latest snapshot stays downloadable without rebuilding.
func NewFunnelSnapshotHandler(svc *funnel.Service, metrics *observability.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload FunnelSnapshotPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			metrics.RecordJob(TaskTypeFunnelSnapshot, "skipped")
			return asynq.SkipRetry
		}
		takenAt := payload.ScheduledFor
		if takenAt.IsZero() {
			takenAt = time.Now()
		}
		snapshot, err := svc.TakeSnapshot(ctx, takenAt)
		if err != nil {
			metrics.RecordJob(TaskTypeFunnelSnapshot, "error")
			if logger != nil {
				logger.Error("funnel snapshot failed", slog.Any("error", err))
			}
			return err
		}
		metrics.RecordJob(TaskTypeFunnelSnapshot, "ok")
		if logger != nil {
			logger.Info("funnel snapshot stored",
				slog.String("snapshot_id", snapshot.ID.String()),
				slog.Int("rows", snapshot.RowCount))
		}
		return nil
	}
}
