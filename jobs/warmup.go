package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/hibiken/asynq"

	"github.com/insurance-market/dashboard/internal/dashboard"
	jobmetrics "github.com/insurance-market/dashboard/internal/jobs"
	"github.com/insurance-market/dashboard/internal/market"
	"github.com/insurance-market/dashboard/internal/market/filters"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Warmer is the part of the dashboard service the warmup drives.
type Warmer interface {
	Filters(ctx context.Context) (market.FilterOptions, error)
	Load(ctx context.Context, sel filters.Selection) dashboard.Snapshot
}

// WarmupJob pre-populates the dashboard cache for the latest periods, every
// quarter and view mode, with no ramo filter and the default ranking size.
type WarmupJob struct {
	Service Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewWarmupJob wires dependencies for the warmup handler.
func NewWarmupJob(service Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *WarmupJob {
	return &WarmupJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes dashboard warmup tasks.
func (j *WarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload WarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("dashboard warmup: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Years <= 0 {
		payload.Years = 1
	}

	tracker := j.metrics().Track(TaskDashboardWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("years", payload.Years))
	logger.Info("starting dashboard warmup")
	start := j.now()

	opts, err := j.Service.Filters(ctx)
	if err != nil {
		resultErr = fmt.Errorf("dashboard warmup: load filters: %w", err)
		logger.Error("load filter options", slog.Any("error", err))
		return resultErr
	}
	selections := plan(opts, payload)
	if len(selections) == 0 {
		logger.Info("no periods available for warmup")
		return resultErr
	}

	complete := 0
	for _, sel := range selections {
		if err := ctx.Err(); err != nil {
			resultErr = err
			return resultErr
		}
		ok := j.warm(ctx, sel, logger)
		j.metrics().AddWarmed(string(sel.ViewMode), ok, 1)
		if ok {
			complete++
		}
	}
	if complete == 0 {
		resultErr = errors.New("dashboard warmup: every selection failed")
		logger.Error("warmup failed", slog.Int("selections", len(selections)))
		return resultErr
	}

	logger.Info("completed dashboard warmup",
		slog.Int("selections", len(selections)),
		slog.Int("complete", complete),
		slog.Duration("duration", j.now().Sub(start)))
	return resultErr
}

func (j *WarmupJob) warm(ctx context.Context, sel filters.Selection, logger *slog.Logger) bool {
	// Bound each selection so one slow period cannot stall the run.
	selCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	snap := j.Service.Load(selCtx, sel)
	ok := true
	for scope, err := range map[string]error{
		filters.ScopeKPIs:         snap.KPIs.Err,
		filters.ScopeRanking:      snap.Ranking.Err,
		filters.ScopeDistribution: snap.Distribution.Err,
	} {
		if err != nil {
			ok = false
			logger.Warn("warm section",
				slog.String("key", sel.Key(scope)),
				slog.Any("error", err))
		}
	}
	return ok
}

// plan lists the selections to prefetch: the first payload.Years years the
// backend offers, crossed with every quarter and the requested view modes.
func plan(opts market.FilterOptions, payload WarmupPayload) []filters.Selection {
	years := opts.Years
	if len(years) > payload.Years {
		years = years[:payload.Years]
	}
	quarters := opts.Quarters
	if len(quarters) == 0 {
		quarters = market.QuarterCodes
	}
	modes := make([]market.ViewMode, 0, len(market.ViewModes))
	for _, m := range market.ViewModes {
		if len(payload.ViewModes) == 0 || slices.Contains(payload.ViewModes, string(m)) {
			modes = append(modes, m)
		}
	}

	out := make([]filters.Selection, 0, len(years)*len(quarters)*len(modes))
	for _, y := range years {
		for _, q := range quarters {
			for _, m := range modes {
				out = append(out, filters.Default().WithYear(y).WithQuarter(q).WithViewMode(m))
			}
		}
	}
	return out
}

func (j *WarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}

func (j *WarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *WarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
