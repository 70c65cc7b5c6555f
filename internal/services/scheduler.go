package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// CycleRunner runs one ingestion cycle
type CycleRunner interface {
	RunCycle(ctx context.Context, currencies []string) ([]*IngestOutcome, error)
}

// SchedulerConfig selects the trigger. A positive Interval takes precedence
// over Schedule, which is a five-field cron expression evaluated in UTC.
type SchedulerConfig struct {
	Currencies []string
	Interval   time.Duration
	Schedule   string
	RunOnStart bool
}

// Scheduler triggers ingestion cycles until stopped
type Scheduler struct {
	runner CycleRunner
	cfg    SchedulerConfig
}

// NewScheduler creates a new Scheduler
func NewScheduler(runner CycleRunner, cfg SchedulerConfig) *Scheduler {
	return &Scheduler{runner: runner, cfg: cfg}
}

// Start launches the scheduler in the background and returns a stop function.
// A trigger that fires while a cycle is still running is skipped. Stop cancels
// the running cycle and returns once it has finished.
func (s *Scheduler) Start(parent context.Context) (func(), error) {
	ctx, cancel := context.WithCancel(parent)
	var wg sync.WaitGroup

	if s.cfg.Interval > 0 {
		log.Infof("Scheduling ingestion every %s", s.cfg.Interval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx)
		}()
		return func() {
			cancel()
			wg.Wait()
		}, nil
	}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log.StandardLogger()))),
	)
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.runOnce(ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid schedule %q: %w", s.cfg.Schedule, err)
	}
	log.Infof("Scheduling ingestion with cron %q (UTC)", s.cfg.Schedule)

	if s.cfg.RunOnStart {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runOnce(ctx)
		}()
	}
	c.Start()

	return func() {
		cancel()
		<-c.Stop().Done()
		wg.Wait()
	}, nil
}

// loop runs cycles back to back on a ticker. Ticks that arrive while a cycle
// runs are dropped by the ticker.
func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	if s.cfg.RunOnStart {
		s.runOnce(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.runner.RunCycle(ctx, s.cfg.Currencies); err != nil {
		log.Warnf("Scheduled ingestion skipped: %v", err)
	}
}
