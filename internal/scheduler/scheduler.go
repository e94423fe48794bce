package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Fuuurma/FinanceHub-sub001/internal/config"
	"github.com/Fuuurma/FinanceHub-sub001/internal/monitoring"
)

const (
	JobDriftMonitor    = "drift_monitor"
	JobVaRRefresh      = "var_refresh"
	JobSnapshotCleanup = "snapshot_cleanup"
)

// Jobs is the work the scheduler triggers
type Jobs interface {
	CheckAllDrift(ctx context.Context) (checked, alerts int, err error)
	RefreshVaR(ctx context.Context) error
	PruneSnapshots(ctx context.Context, retention time.Duration) (int64, error)
}

// Scheduler manages the background cron jobs
type Scheduler struct {
	cron    *cron.Cron
	cfg     config.SchedulerConfig
	jobs    Jobs
	metrics *monitoring.Metrics
	logger  *logrus.Logger

	tasks map[string]func(ctx context.Context) error

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler registers every job with a non-empty cron spec. Specs use the
// standard five field format and run in cfg.TimeZone.
func NewScheduler(cfg config.SchedulerConfig, jobs Jobs, metrics *monitoring.Metrics, logger *logrus.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	loc := time.UTC
	if cfg.TimeZone != "" {
		l, err := time.LoadLocation(cfg.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.TimeZone, err)
		}
		loc = l
	}

	cronLogger := cron.PrintfLogger(logger.WithField("component", "scheduler"))
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		cfg:     cfg,
		jobs:    jobs,
		metrics: metrics,
		logger:  logger,
		tasks:   make(map[string]func(ctx context.Context) error),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	specs := []struct {
		name string
		spec string
		task func(ctx context.Context) error
	}{
		{JobDriftMonitor, cfg.DriftCheckInterval, s.driftMonitor},
		{JobVaRRefresh, cfg.VaRRefreshInterval, s.varRefresh},
		{JobSnapshotCleanup, cfg.CleanupInterval, s.snapshotCleanup},
	}
	for _, j := range specs {
		if j.spec == "" {
			continue
		}
		name := j.name
		if _, err := s.cron.AddFunc(j.spec, func() { s.execute(name) }); err != nil {
			return nil, fmt.Errorf("register %s job: %w", name, err)
		}
		s.tasks[name] = j.task
	}

	return s, nil
}

// Start starts the cron scheduler. Jobs stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"component": "scheduler",
		"jobs":      s.Jobs(),
	}).Info("Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() error {
	done := s.cron.Stop()
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	<-done.Done()

	s.logger.WithField("component", "scheduler").Info("Scheduler stopped")
	return nil
}

// Jobs lists the registered job names
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunNow executes a registered job immediately (manual trigger)
func (s *Scheduler) RunNow(name string) error {
	if _, ok := s.tasks[name]; !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.execute(name)
}

func (s *Scheduler) execute(name string) error {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()

	ctx := parent
	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.cfg.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := s.tasks[name](ctx)
	duration := time.Since(start)
	s.metrics.RecordJobRun(name, duration, err)

	log := s.logger.WithFields(logrus.Fields{
		"component":   "scheduler",
		"job":         name,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		log.WithError(err).Error("Job failed")
		return err
	}
	log.Info("Job completed")
	return nil
}

func (s *Scheduler) driftMonitor(ctx context.Context) error {
	checked, alerts, err := s.jobs.CheckAllDrift(ctx)
	s.logger.WithFields(logrus.Fields{
		"component": "scheduler",
		"checked":   checked,
		"alerts":    alerts,
	}).Debug("Drift check finished")
	return err
}

func (s *Scheduler) varRefresh(ctx context.Context) error {
	return s.jobs.RefreshVaR(ctx)
}

func (s *Scheduler) snapshotCleanup(ctx context.Context) error {
	_, err := s.jobs.PruneSnapshots(ctx, s.cfg.SnapshotRetention)
	return err
}
