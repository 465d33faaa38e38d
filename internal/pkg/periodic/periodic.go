// Package periodic runs a job on a fixed interval in the background.
package periodic

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is one unit of periodic work. It must honor ctx cancellation.
type Job func(ctx context.Context)

// Config contains runner configuration.
type Config struct {
	Name         string
	Interval     time.Duration
	InitialDelay time.Duration
}

// Runner calls a Job after InitialDelay and then every Interval. A tick that
// arrives while the job is still running is dropped, so runs never overlap.
type Runner struct {
	config Config
	job    Job
	logger *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a runner. Start must be called to begin work.
func New(config Config, job Job) *Runner {
	return &Runner{
		config: config,
		job:    job,
		logger: slog.Default().With("component", config.Name),
		stopCh: make(chan struct{}),
	}
}

// Start launches the runner goroutine.
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("starting periodic job",
		"interval", r.config.Interval,
		"initial_delay", r.config.InitialDelay,
	)

	r.wg.Add(1)
	go r.run(ctx)
}

// Stop signals the runner to exit and waits for an in-flight job to finish.
// It is safe to call more than once.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
	r.logger.Info("periodic job stopped")
}

func (r *Runner) run(ctx context.Context) {
	defer r.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-r.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if r.config.InitialDelay > 0 {
		timer := time.NewTimer(r.config.InitialDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	r.job(ctx)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.job(ctx)
		}
	}
}
