// Package scheduler drives the periodic maintenance work: the overdue
// sweep and staff log retention cleanup. It only enqueues tasks; the
// task queue workers do the actual processing.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/librarium/librarium/internal/config"
	"github.com/librarium/librarium/internal/tasks"
)

// MaintenanceScheduler enqueues recurring maintenance tasks on cron
// schedules.
type MaintenanceScheduler struct {
	client      *tasks.Client
	maintenance config.Maintenance
	audit       config.Audit

	cron       *cron.Cron
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewMaintenanceScheduler creates a new scheduler instance.
func NewMaintenanceScheduler(client *tasks.Client, maintenance config.Maintenance, audit config.Audit) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		client:      client,
		maintenance: maintenance,
		audit:       audit,
		cron:        cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler. Jobs with empty schedules are skipped.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.client == nil {
		log.Printf("Maintenance scheduler: task queue not configured, skipping")
		return nil
	}

	if s.maintenance.OverdueSweepEnabled && s.maintenance.OverdueSweepSchedule != "" {
		_, err := s.cron.AddFunc(s.maintenance.OverdueSweepSchedule, func() {
			s.enqueue(tasks.OverdueSweepTask{}, "overdue sweep")
		})
		if err != nil {
			return fmt.Errorf("failed to schedule overdue sweep: %w", err)
		}
		log.Printf("Maintenance scheduler: overdue sweep scheduled at '%s'", s.maintenance.OverdueSweepSchedule)
	}

	if s.maintenance.AuditCleanupSchedule != "" {
		retention := s.audit.RetentionDays
		_, err := s.cron.AddFunc(s.maintenance.AuditCleanupSchedule, func() {
			s.enqueue(tasks.CleanupStaffLogTask{RetentionDays: retention}, "staff log cleanup")
		})
		if err != nil {
			return fmt.Errorf("failed to schedule staff log cleanup: %w", err)
		}
		log.Printf("Maintenance scheduler: staff log cleanup scheduled at '%s'", s.maintenance.AuditCleanupSchedule)
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	// Monitor for context cancellation
	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Maintenance scheduler: stopped")
}

// IsRunning returns whether the scheduler is active.
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRuns returns the next fire time of every scheduled job.
func (s *MaintenanceScheduler) NextRuns() []time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	entries := s.cron.Entries()
	next := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		next = append(next, entry.Next)
	}
	return next
}

func (s *MaintenanceScheduler) enqueue(task backlite.Task, name string) {
	ids, err := s.client.Add(task).Save()
	if err != nil {
		log.Printf("Maintenance scheduler: failed to enqueue %s: %v", name, err)
		return
	}
	log.Printf("Maintenance scheduler: enqueued %s (task %s)", name, ids[0])
}
