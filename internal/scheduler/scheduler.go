// Package scheduler runs periodic combined syncs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	zsync "github.com/tbergmann/zot2rm/internal/sync"
)

// syncTimeout bounds one scheduled run so a hung rmapi call cannot block the
// schedule forever.
const syncTimeout = 30 * time.Minute

// Scheduler triggers a combined push/pull sync on a cron schedule. Overlapping
// runs are skipped, not queued.
type Scheduler struct {
	syncer   *zsync.Syncer
	schedule string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.Mutex
	isRunning  bool
	isSyncing  bool
	cancelFunc context.CancelFunc
}

// New creates a scheduler for the standard five-field cron schedule.
func New(syncer *zsync.Syncer, schedule string) *Scheduler {
	return &Scheduler{
		syncer:   syncer,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start schedules the sync job and begins ticking. It returns immediately;
// Stop (or cancelling ctx) shuts the scheduler down.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.schedule == "" {
		return fmt.Errorf("no sync_schedule configured")
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runSync()
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Scheduler started with schedule %q. Next run: %v", s.schedule, s.nextRunLocked())

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops accepting new runs and waits for a running sync to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("Scheduler stopped")
}

// NextRunTime returns when the next sync will fire, or nil when stopped.
func (s *Scheduler) NextRunTime() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}
	t := s.nextRunLocked()
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *Scheduler) nextRunLocked() time.Time {
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			return entry.Next
		}
	}
	return time.Time{}
}

func (s *Scheduler) runSync() {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		log.Printf("Scheduled sync skipped (previous run still in progress)")
		return
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	log.Printf("Scheduled sync starting")
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	res, err := s.syncer.Run(ctx, zsync.ModeBoth)
	if err != nil {
		log.Printf("Scheduled sync failed: %v", err)
		return
	}
	log.Printf("Scheduled sync finished in %v: %d processed, %d skipped, %d failed",
		time.Since(start).Round(time.Millisecond), res.Processed, res.Skipped, res.Failed)
}
