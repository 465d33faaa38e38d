package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/ctxlog"
	"github.com/bissquit/statusboard/internal/pkg/periodic"
	"github.com/google/uuid"
)

// RunInfo describes a finished sync run.
type RunInfo struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Result     Result    `json:"result"`
}

// Status is the observable state of the syncer.
type Status struct {
	Configured bool     `json:"configured"`
	Running    bool     `json:"running"`
	LastRun    *RunInfo `json:"lastRun,omitempty"`
}

// Syncer runs the reconciler on a schedule and on demand, never more than one run
// at a time. With a distributed Locker the guarantee extends to other processes.
type Syncer struct {
	reconciler *Reconciler
	locker     Locker
	runner     *periodic.Runner
	now        func() time.Time

	runMu sync.Mutex

	mu      sync.Mutex
	running bool
	lastRun *RunInfo
}

// NewSyncer creates a syncer. locker may be nil.
func NewSyncer(reconciler *Reconciler, locker Locker, schedule periodic.Config) *Syncer {
	s := &Syncer{
		reconciler: reconciler,
		locker:     locker,
		now:        time.Now,
	}
	s.runner = periodic.New(schedule, s.scheduledRun)
	return s
}

// Start starts the periodic schedule.
func (s *Syncer) Start(ctx context.Context) {
	s.runner.Start(ctx)
}

// Stop stops the schedule and waits for an in-flight run.
func (s *Syncer) Stop() {
	s.runner.Stop()
}

// TryRun performs one run unless another is in progress, in which case it returns
// domain.ErrSyncInProgress.
func (s *Syncer) TryRun(ctx context.Context) (Result, error) {
	if !s.runMu.TryLock() {
		return Result{}, domain.ErrSyncInProgress
	}
	defer s.runMu.Unlock()

	runID := uuid.NewString()
	ctx, logger := ctxlog.With(ctx, "component", "sync", "run_id", runID)

	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("sync lock: %w", err)
		}
		if !ok {
			runsTotal.WithLabelValues("locked").Inc()
			return Result{}, domain.ErrSyncInProgress
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("failed to release sync lock", "error", err)
			}
		}()
	}

	started := s.now()
	s.setRunning(true)
	result := s.reconciler.Run(ctx)
	finished := s.now()

	s.mu.Lock()
	s.running = false
	s.lastRun = &RunInfo{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: finished,
		Result:     result,
	}
	s.mu.Unlock()

	recordRun(result, finished.Sub(started).Seconds())
	logger.Info("sync run finished",
		"updated", result.Updated,
		"errors", result.Errors,
		"skipped", result.Skipped,
		"duration", finished.Sub(started),
	)
	return result, nil
}

// Status returns a snapshot of the syncer state.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Configured: true, Running: s.running}
	if s.lastRun != nil {
		last := *s.lastRun
		st.LastRun = &last
	}
	return st
}

func (s *Syncer) setRunning(running bool) {
	s.mu.Lock()
	s.running = running
	s.mu.Unlock()
}

func (s *Syncer) scheduledRun(ctx context.Context) {
	_, err := s.TryRun(ctx)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		ctxlog.FromContext(ctx).Debug("sync run skipped, another run in progress")
	case err != nil:
		ctxlog.FromContext(ctx).Error("sync run failed", "error", err)
	}
}
