package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"wealthlens/internal/cache"
	apperrors "wealthlens/internal/errors"
	"wealthlens/internal/events"
	"wealthlens/internal/metrics"
)

// Job names, used for lock keys, metrics labels and events.
const (
	JobISINBackfill = "isin_backfill"
	JobNAVUpdate    = "nav_update"
)

// JobOptions bounds the pipeline jobs.
type JobOptions struct {
	Workers            int
	ItemTimeout        time.Duration
	RunTimeout         time.Duration
	SchemeMasterMaxAge time.Duration
	ISINCacheTTL       time.Duration
}

// DefaultJobOptions returns the options used when none are configured.
func DefaultJobOptions() JobOptions {
	return JobOptions{
		Workers:            5,
		ItemTimeout:        20 * time.Second,
		RunTimeout:         15 * time.Minute,
		SchemeMasterMaxAge: 7 * 24 * time.Hour,
		ISINCacheTTL:       24 * time.Hour,
	}
}

func (o JobOptions) withDefaults() JobOptions {
	d := DefaultJobOptions()
	if o.Workers < 1 {
		o.Workers = d.Workers
	}
	if o.ItemTimeout <= 0 {
		o.ItemTimeout = d.ItemTimeout
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = d.RunTimeout
	}
	if o.SchemeMasterMaxAge <= 0 {
		o.SchemeMasterMaxAge = d.SchemeMasterMaxAge
	}
	if o.ISINCacheTTL <= 0 {
		o.ISINCacheTTL = d.ISINCacheTTL
	}
	return o
}

// lockTTL outlives the run deadline so a crashed holder eventually frees the job.
func (o JobOptions) lockTTL() time.Duration {
	return o.RunTimeout + time.Minute
}

// acquireJobLock takes the job's lock, mapping contention to ErrJobAlreadyRunning.
func acquireJobLock(ctx context.Context, locker cache.Locker, job string, ttl time.Duration) (cache.Lock, error) {
	lock, err := locker.Acquire(ctx, "job:"+job, ttl)
	if err != nil {
		if errors.Is(err, cache.ErrLockNotAcquired) {
			metrics.JobRunsTotal.WithLabelValues(job, metrics.StatusSkipped).Inc()
			return nil, apperrors.ErrJobAlreadyRunning
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return lock, nil
}

func releaseJobLock(lock cache.Lock, log *zap.SugaredLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := lock.Release(ctx); err != nil {
		log.Warnw("Failed to release job lock", "error", err)
	}
}

func recordJobRun(job string, started time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusFailure
	}
	metrics.JobRunsTotal.WithLabelValues(job, status).Inc()
	metrics.JobDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
}

// publish sends an event and logs failures; events never fail the caller.
func publish(ctx context.Context, publisher events.Publisher, log *zap.SugaredLogger, evt events.Event) {
	if err := publisher.Publish(ctx, evt); err != nil {
		log.Warnw("Failed to publish event", "type", evt.Type, "key", evt.Key, "error", err)
	}
}
