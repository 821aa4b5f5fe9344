// Package worker runs the process-wide background jobs: the periodic
// due-reminder scan and the daily cleanup of stale device registrations.
// Both are strictly maintenance; neither failure may affect request
// handling, so errors are logged and the loops keep ticking.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/course-remind/internal/application/dispatch"
)

type dispatcher interface {
	Scan(ctx context.Context, prev, now time.Time) (*dispatch.ScanStats, error)
}

type reclaimer interface {
	ReclaimStale(ctx context.Context, olderThanDays int) (int, error)
}

// Options configures the scheduler's cadence.
type Options struct {
	ScanInterval    time.Duration
	CleanupDelay    time.Duration // first cleanup shortly after start
	CleanupInterval time.Duration
	RetentionDays   int
	Clock           quartz.Clock
}

// Scheduler owns the background goroutines. Start launches them, Stop waits
// for them to drain.
type Scheduler struct {
	dispatch dispatcher
	registry reclaimer
	opts     Options

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(d dispatcher, r reclaimer, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.ScanInterval <= 0 {
		opts.ScanInterval = 5 * time.Minute
	}
	if opts.CleanupDelay <= 0 {
		opts.CleanupDelay = time.Minute
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 24 * time.Hour
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = 30
	}
	return &Scheduler{dispatch: d, registry: r, opts: opts}
}

func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runScanLoop(ctx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runCleanupLoop(ctx)
	}()
}

// Stop cancels the loops and blocks until both have exited. Safe to call
// only after Start.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) runScanLoop(ctx context.Context) {
	clk := s.opts.Clock
	// Each tick claims the half-open window (prev, now]. prev only moves
	// when a tick completed, so a failed tick's window is folded into the
	// next one instead of being lost.
	prev := clk.Now()
	tkr := clk.TickerFunc(ctx, s.opts.ScanInterval, func() error {
		runJob("scan", func() {
			now := clk.Now()
			stats, err := s.dispatch.Scan(ctx, prev, now)
			if err != nil {
				slog.Error("reminder scan failed", "err", err)
				return
			}
			slog.Info("reminder scan",
				"users", stats.Users, "due", stats.Due,
				"delivered", stats.Delivered, "skipped", stats.Skipped)
			prev = now
		})
		return nil
	}, "scan")
	_ = tkr.Wait()
}

func (s *Scheduler) runCleanupLoop(ctx context.Context) {
	clk := s.opts.Clock
	t := clk.NewTimer(s.opts.CleanupDelay, "cleanup")
	select {
	case <-ctx.Done():
		t.Stop()
		return
	case <-t.C:
	}
	runJob("cleanup", func() { s.runCleanup(ctx) })

	tkr := clk.TickerFunc(ctx, s.opts.CleanupInterval, func() error {
		runJob("cleanup", func() { s.runCleanup(ctx) })
		return nil
	}, "cleanup")
	_ = tkr.Wait()
}

// runJob shields the loop from a panicking job. A tick that blows up is
// logged and dropped; the ticker keeps running.
func runJob(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("background job panicked", "job", name, "panic", r)
		}
	}()
	fn()
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	n, err := s.registry.ReclaimStale(ctx, s.opts.RetentionDays)
	if err != nil {
		slog.Error("device cleanup failed", "err", err)
		return
	}
	slog.Info("device cleanup", "reclaimed", n, "retention_days", s.opts.RetentionDays)
}
