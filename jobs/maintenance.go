package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/propertyhub/propertyhub/internal/jobs"
	"github.com/propertyhub/propertyhub/internal/platform/db"
	"github.com/propertyhub/propertyhub/internal/properties"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// Invalidator drops cached aggregates after a sweep changed data.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// SweepJob removes expired featured markers and stale idempotency keys.
type SweepJob struct {
	Querier   db.Querier
	Retention time.Duration
	Cache     Invalidator
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewSweepJob initialises the sweep handler. cache may be nil.
func NewSweepJob(q db.Querier, retention time.Duration, cache Invalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) *SweepJob {
	if retention <= 0 {
		retention = 72 * time.Hour
	}
	return &SweepJob{
		Querier:   q,
		Retention: retention,
		Cache:     cache,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the sweep.
func (j *SweepJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Querier == nil {
		return errors.New("maintenance sweep: handler not configured")
	}
	var payload MaintenanceSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("maintenance sweep: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskTypeMaintenanceSweep)
	defer func() { err = tracker.End(err) }()

	logger := j.logger()
	if payload.Featured {
		expired, err := properties.NewQueries(j.Querier).ExpireFeatured(ctx, j.now())
		if err != nil {
			logger.Error("expire featured markers", slog.Any("error", err))
			return err
		}
		j.metrics().AddSwept("featured_expiry", expired)
		if expired > 0 && j.Cache != nil {
			j.Cache.Invalidate(ctx)
		}
		logger.Info("expired featured markers", slog.Int64("rows", expired))
	}
	if payload.Idempotency {
		removed, err := shared.NewIdempotencyStore(j.Querier).Cleanup(ctx, j.Retention)
		if err != nil {
			logger.Error("cleanup idempotency keys", slog.Any("error", err))
			return err
		}
		j.metrics().AddSwept("idempotency_cleanup", removed)
		logger.Info("removed idempotency keys", slog.Int64("rows", removed))
	}
	return nil
}

func (j *SweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeMaintenanceSweep))
	}
	return slog.Default().With(slog.String("job", TaskTypeMaintenanceSweep))
}

func (j *SweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
