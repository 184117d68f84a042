// Package scheduler runs the daily data pipeline: ISIN backfill, NAV update
// and portfolio snapshots, in that order.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"wealthlens/internal/calendar"
	apperrors "wealthlens/internal/errors"
	"wealthlens/internal/logger"
	"wealthlens/internal/services"
)

var (
	// ErrSchedulerAlreadyRunning is returned when Start is called twice.
	ErrSchedulerAlreadyRunning = errors.New("scheduler already running")

	// ErrInvalidRunAt is returned for a run time that is not HH:MM.
	ErrInvalidRunAt = errors.New("run time must be HH:MM")
)

// DefaultRunAt is the market-local time of the daily run. AMFI publishes the
// previous session's NAVs well before it.
const DefaultRunAt = "06:30"

// Config holds configuration for the scheduler.
type Config struct {
	// RunAt is the market-local time of day, as HH:MM.
	RunAt string
}

// Scheduler triggers the pipeline jobs once a day.
type Scheduler struct {
	backfill  services.BackfillServicer
	navUpdate services.NAVUpdateServicer
	snapshots services.PortfolioSnapshotServicer
	calendar  *calendar.Calendar

	hour   int
	minute int
	now    func() time.Time

	stopCh   chan struct{}
	stoppedC chan struct{}
	running  bool
	mu       sync.Mutex
}

// New creates a Scheduler. snapshots may be nil to skip snapshot recording.
func New(
	backfill services.BackfillServicer,
	navUpdate services.NAVUpdateServicer,
	snapshots services.PortfolioSnapshotServicer,
	cal *calendar.Calendar,
	config Config,
) (*Scheduler, error) {
	if config.RunAt == "" {
		config.RunAt = DefaultRunAt
	}
	hour, minute, err := parseRunAt(config.RunAt)
	if err != nil {
		return nil, err
	}
	if cal == nil {
		if cal, err = calendar.New(nil); err != nil {
			return nil, err
		}
	}

	return &Scheduler{
		backfill:  backfill,
		navUpdate: navUpdate,
		snapshots: snapshots,
		calendar:  cal,
		hour:      hour,
		minute:    minute,
		now:       time.Now,
	}, nil
}

func parseRunAt(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRunAt, s)
	}
	return t.Hour(), t.Minute(), nil
}

// Start launches the daily loop in the background. A stopped scheduler may be
// started again.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSchedulerAlreadyRunning
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.stoppedC = make(chan struct{})

	logger.Named("scheduler").Infow("Scheduler started", "run_at", fmt.Sprintf("%02d:%02d", s.hour, s.minute))
	go s.loop(ctx, s.stopCh, s.stoppedC)
	return nil
}

// Stop signals the loop to exit and waits for an in-progress run to finish
// or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	stopCh, stoppedC := s.stopCh, s.stoppedC
	s.mu.Unlock()

	log := logger.Named("scheduler")
	close(stopCh)

	select {
	case <-stoppedC:
		log.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		log.Warn("Scheduler shutdown timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}, stoppedC chan<- struct{}) {
	defer close(stoppedC)
	log := logger.Named("scheduler")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		next := s.nextRun(s.now())
		log.Infow("Next pipeline run scheduled", "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.RunOnce(ctx)
		}
	}
}

// nextRun returns the first run time strictly after now.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	local := now.In(s.calendar.Location())
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, local.Location())
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunOnce runs the pipeline once. A failing step is logged and the following
// steps still run; a job already running elsewhere is skipped.
func (s *Scheduler) RunOnce(ctx context.Context) {
	log := logger.Named("scheduler")
	started := s.now()

	if _, err := s.backfill.RunISINBackfill(ctx, false); err != nil {
		logStepError(log.With("job", services.JobISINBackfill), err)
	}

	snapshotDate := s.calendar.PreviousTradingDay(started)
	navOutcome, err := s.navUpdate.RunNAVUpdate(ctx, nil)
	if err != nil {
		logStepError(log.With("job", services.JobNAVUpdate), err)
	} else if d, parseErr := calendar.ParseDate(navOutcome.TargetDate); parseErr == nil {
		snapshotDate = d
	}

	if s.snapshots == nil {
		return
	}
	count, err := s.snapshots.RecordSnapshots(ctx, snapshotDate)
	if err != nil {
		log.Errorw("Portfolio snapshot recording failed", "error", err)
		return
	}
	log.Infow("Portfolio snapshots recorded", "count", count, "snapshot_date", calendar.FormatDate(snapshotDate))
}

func logStepError(log *zap.SugaredLogger, err error) {
	if errors.Is(err, apperrors.ErrJobAlreadyRunning) {
		log.Infow("Job already running elsewhere, skipping")
		return
	}
	log.Errorw("Pipeline step failed", "error", err)
}
