package sync

import (
	"context"
	"fmt"
	"log"
)

// Sync modes accepted on the command line and by the scheduler.
const (
	ModePush = "push"
	ModePull = "pull"
	ModeBoth = "both"
)

// ValidMode reports whether mode names a runnable sync mode.
func ValidMode(mode string) bool {
	switch mode {
	case ModePush, ModePull, ModeBoth:
		return true
	}
	return false
}

// Run executes one full sync in the given mode: preflight, then the push
// and/or pull phase, bracketed by a journal run when journaling is enabled.
// Journal failures never block the sync itself.
func (s *Syncer) Run(ctx context.Context, mode string) (Result, error) {
	if !ValidMode(mode) {
		return Result{}, fmt.Errorf("invalid sync mode %q", mode)
	}

	if err := s.Preflight(ctx); err != nil {
		return Result{}, fmt.Errorf("reMarkable storage is not reachable, run 'rmapi' once to authenticate: %w", err)
	}

	var runID string
	if s.journal != nil {
		id, err := s.journal.BeginRun(mode)
		if err != nil {
			log.Printf("Failed to start journal run: %v", err)
		} else {
			runID = id
		}
	}

	var total Result
	var pushed, pulled int

	if mode == ModePush || mode == ModeBoth {
		res, err := s.Push(ctx, runID)
		total = total.add(res)
		pushed = res.Processed
		if err != nil {
			s.finishRun(runID, pushed, pulled, total.Failed)
			return total, err
		}
	}

	if mode == ModePull || mode == ModeBoth {
		res, err := s.Pull(ctx, runID)
		total = total.add(res)
		pulled = res.Processed
		if err != nil {
			s.finishRun(runID, pushed, pulled, total.Failed)
			return total, err
		}
	}

	s.finishRun(runID, pushed, pulled, total.Failed)
	return total, nil
}

func (r Result) add(other Result) Result {
	return Result{
		Processed: r.Processed + other.Processed,
		Skipped:   r.Skipped + other.Skipped,
		Failed:    r.Failed + other.Failed,
	}
}

func (s *Syncer) finishRun(runID string, pushed, pulled, failed int) {
	if s.journal == nil || runID == "" {
		return
	}
	if err := s.journal.FinishRun(runID, pushed, pulled, failed); err != nil {
		log.Printf("Failed to finish journal run: %v", err)
	}
}
