/*
scheduler.go - Nightly background jobs

PURPOSE:
  Runs the engine's housekeeping on a cron schedule:
  - HolidaySyncJob stores the statutory holidays of the current and the
    next year for the configured region, so targets for the turn of the
    year never miss a holiday.
  - LedgerRefreshJob recomputes every active employee's ledger snapshot.
    Snapshots are refreshed after each write anyway; the nightly run
    catches month rollovers and holiday edits.

DESIGN:
  - robfig/cron with a seconds field ("0 0 3 * * *" = 03:00:00 daily)
  - Jobs implement Job; failures are logged, never fatal
  - Jobs act as service.System

USAGE:
  sched := NewScheduler(log)
  sched.AddJob("0 0 3 * * *", NewHolidaySyncJob(engine, log))
  sched.Start()
  defer sched.Stop()

SEE ALSO:
  - service/holidays.go: SyncHolidays
  - service/ledger.go: RefreshAllLedgers
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/warp/worktime-engine/service"
)

// jobTimeout bounds a single job run.
const jobTimeout = 5 * time.Minute

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job under a cron spec with a seconds field.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", job.Name()).Msg("Running job")

		if err := job.Run(); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		} else {
			s.log.Debug().Str("job", job.Name()).Msg("Job completed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run()
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

// =============================================================================
// HOLIDAY SYNC
// =============================================================================

// HolidaySyncJob stores missing statutory holidays for this and next year.
type HolidaySyncJob struct {
	engine *service.Engine
	log    zerolog.Logger
}

func NewHolidaySyncJob(engine *service.Engine, log zerolog.Logger) *HolidaySyncJob {
	return &HolidaySyncJob{
		engine: engine,
		log:    log.With().Str("job", "holiday_sync").Logger(),
	}
}

func (j *HolidaySyncJob) Name() string { return "holiday_sync" }

func (j *HolidaySyncJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	year := j.engine.Today().Year()
	for _, y := range []int{year, year + 1} {
		added, err := j.engine.SyncHolidays(ctx, service.System, y, "")
		if err != nil {
			return fmt.Errorf("sync holidays %d: %w", y, err)
		}
		j.log.Debug().Int("year", y).Int("added", len(added)).Msg("holidays checked")
	}
	return nil
}

// =============================================================================
// LEDGER REFRESH
// =============================================================================

// LedgerRefreshJob recomputes every active employee's ledger snapshot.
type LedgerRefreshJob struct {
	engine *service.Engine
	log    zerolog.Logger
}

func NewLedgerRefreshJob(engine *service.Engine, log zerolog.Logger) *LedgerRefreshJob {
	return &LedgerRefreshJob{
		engine: engine,
		log:    log.With().Str("job", "ledger_refresh").Logger(),
	}
}

func (j *LedgerRefreshJob) Name() string { return "ledger_refresh" }

func (j *LedgerRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := j.engine.RefreshAllLedgers(ctx)
	j.log.Info().Int("employees", n).Msg("ledgers refreshed")
	return err
}
