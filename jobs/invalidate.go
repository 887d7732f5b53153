package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/insurance-market/dashboard/internal/jobs"
)

// Invalidator drops cached dashboard data.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// InvalidateJob bumps the dashboard cache version, typically after the
// backend loads a new quarter.
type InvalidateJob struct {
	Service Invalidator
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewInvalidateJob wires dependencies for the invalidation handler.
func NewInvalidateJob(service Invalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) *InvalidateJob {
	return &InvalidateJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle processes cache invalidation tasks.
func (j *InvalidateJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("dashboard invalidate: handler not configured")
	}
	var payload InvalidatePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskDashboardInvalidate)

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskDashboardInvalidate), slog.String("reason", payload.Reason))

	if err := j.Service.Invalidate(ctx); err != nil {
		logger.Error("invalidate dashboard cache", slog.Any("error", err))
		return tracker.End(err)
	}
	logger.Info("dashboard cache invalidated")
	return tracker.End(nil)
}
