// Package scheduler runs periodic win-rate snapshot jobs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/gauger/internal/service"
)

// DefaultSnapshotTimeout bounds a snapshot run when none is configured
const DefaultSnapshotTimeout = 10 * time.Minute

// SnapshotRunner computes and stores a win-rate snapshot
type SnapshotRunner interface {
	Run(ctx context.Context) (*service.WinRateTable, error)
}

// Pruner removes snapshots computed before a cutoff
type Pruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler manages scheduled snapshot jobs
type Scheduler struct {
	cron            *cron.Cron
	logger          *logrus.Entry
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler evaluating cron expressions in UTC
func NewScheduler(logger *logrus.Logger) *Scheduler {
	entry := logger.WithField("component", "scheduler")
	cronLogger := cron.PrintfLogger(entry)
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger:          entry,
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleSnapshots runs the snapshot job on cronExpression, bounding each
// run by timeout. A non-positive timeout uses DefaultSnapshotTimeout.
func (s *Scheduler) ScheduleSnapshots(cronExpression string, runner SnapshotRunner, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultSnapshotTimeout
	}
	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.runSnapshot(ctx, runner)
	}

	if err := s.addJob(cronExpression, jobFunc); err != nil {
		return err
	}
	s.logger.WithField("cron", cronExpression).Info("Scheduled win rate snapshot job")
	return nil
}

// ScheduleRetention deletes snapshots older than retain on cronExpression
func (s *Scheduler) ScheduleRetention(cronExpression string, pruner Pruner, retain time.Duration) error {
	if retain <= 0 {
		return fmt.Errorf("retention must be positive, got %s", retain)
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		removed, err := pruner.DeleteBefore(ctx, time.Now().UTC().Add(-retain))
		if err != nil {
			s.logger.WithError(err).Error("Snapshot retention failed")
			return
		}
		s.logger.WithField("removed", removed).Info("Snapshot retention completed")
	}

	if err := s.addJob(cronExpression, jobFunc); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"cron":   cronExpression,
		"retain": retain.String(),
	}).Info("Scheduled snapshot retention job")
	return nil
}

// RunNow executes the snapshot job synchronously
func (s *Scheduler) RunNow(ctx context.Context, runner SnapshotRunner) {
	s.runSnapshot(ctx, runner)
}

func (s *Scheduler) runSnapshot(ctx context.Context, runner SnapshotRunner) {
	started := time.Now()
	s.logger.Info("Starting scheduled win rate snapshot")

	table, err := runner.Run(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled win rate snapshot failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"rows":        len(table.Rows()),
		"skipped":     table.Skipped,
		"duration_ms": time.Since(started).Milliseconds(),
	}).Info("Scheduled win rate snapshot completed")
}

func (s *Scheduler) addJob(cronExpression string, jobFunc func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}
	s.jobIDs = append(s.jobIDs, entryID)
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop stops the scheduler, waiting up to the graceful timeout for running jobs
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler stop timed out after %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() && (nextRun.IsZero() || entry.Next.Before(nextRun)) {
			nextRun = entry.Next
		}
	}
	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		if entry := s.cron.Entry(jobID); entry.Valid() {
			entries = append(entries, entry)
		}
	}
	return entries
}
