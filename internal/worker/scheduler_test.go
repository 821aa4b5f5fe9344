package worker

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/course-remind/internal/application/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanWindow struct {
	prev, now time.Time
}

type fakeDispatcher struct {
	calls chan scanWindow
	err   error
}

func (f *fakeDispatcher) Scan(_ context.Context, prev, now time.Time) (*dispatch.ScanStats, error) {
	f.calls <- scanWindow{prev: prev, now: now}
	return &dispatch.ScanStats{}, f.err
}

type fakeReclaimer struct {
	calls chan int
}

func (f *fakeReclaimer) ReclaimStale(_ context.Context, olderThanDays int) (int, error) {
	f.calls <- olderThanDays
	return 2, nil
}

func TestScanLoop_TicksOverContiguousWindows(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	mClock := quartz.NewMock(t)
	mClock.Set(base)
	trap := mClock.Trap().TickerFunc("scan")
	defer trap.Close()

	d := &fakeDispatcher{calls: make(chan scanWindow, 8)}
	r := &fakeReclaimer{calls: make(chan int, 8)}
	s := NewScheduler(d, r, Options{
		ScanInterval: 5 * time.Minute,
		CleanupDelay: 24 * time.Hour, // out of this test's way
		Clock:        mClock,
	})
	s.Start(ctx)
	defer s.Stop()

	trap.MustWait(ctx).MustRelease(ctx)

	mClock.Advance(5 * time.Minute).MustWait(ctx)
	first := <-d.calls
	assert.Equal(t, base, first.prev)
	assert.Equal(t, base.Add(5*time.Minute), first.now)

	// The next window starts exactly where the previous one ended.
	mClock.Advance(5 * time.Minute).MustWait(ctx)
	second := <-d.calls
	assert.Equal(t, first.now, second.prev)
	assert.Equal(t, base.Add(10*time.Minute), second.now)
}

func TestScanLoop_FailedTickWindowIsFoldedIntoNext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	mClock := quartz.NewMock(t)
	mClock.Set(base)
	trap := mClock.Trap().TickerFunc("scan")
	defer trap.Close()

	d := &fakeDispatcher{calls: make(chan scanWindow, 8), err: assert.AnError}
	s := NewScheduler(d, &fakeReclaimer{calls: make(chan int, 8)}, Options{
		ScanInterval: 5 * time.Minute,
		CleanupDelay: 24 * time.Hour,
		Clock:        mClock,
	})
	s.Start(ctx)
	defer s.Stop()

	trap.MustWait(ctx).MustRelease(ctx)

	mClock.Advance(5 * time.Minute).MustWait(ctx)
	<-d.calls

	d.err = nil
	mClock.Advance(5 * time.Minute).MustWait(ctx)
	second := <-d.calls
	// prev did not move past the failed tick, so its window is retried.
	assert.Equal(t, base, second.prev)
	assert.Equal(t, base.Add(10*time.Minute), second.now)
}

type panickyDispatcher struct {
	calls chan scanWindow
	boom  bool
}

func (f *panickyDispatcher) Scan(_ context.Context, prev, now time.Time) (*dispatch.ScanStats, error) {
	if f.boom {
		f.boom = false
		panic("scan blew up")
	}
	f.calls <- scanWindow{prev: prev, now: now}
	return &dispatch.ScanStats{}, nil
}

func TestScanLoop_PanickingTickDoesNotKillTheLoop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	mClock := quartz.NewMock(t)
	mClock.Set(base)
	trap := mClock.Trap().TickerFunc("scan")
	defer trap.Close()

	d := &panickyDispatcher{calls: make(chan scanWindow, 8), boom: true}
	s := NewScheduler(d, &fakeReclaimer{calls: make(chan int, 8)}, Options{
		ScanInterval: 5 * time.Minute,
		CleanupDelay: 24 * time.Hour,
		Clock:        mClock,
	})
	s.Start(ctx)
	defer s.Stop()

	trap.MustWait(ctx).MustRelease(ctx)

	// The first tick panics; the ticker must survive it and run the next one.
	mClock.Advance(5 * time.Minute).MustWait(ctx)
	mClock.Advance(5 * time.Minute).MustWait(ctx)

	second := <-d.calls
	// The panicked tick never advanced prev, so its window is folded in.
	assert.Equal(t, base, second.prev)
	assert.Equal(t, base.Add(10*time.Minute), second.now)
}

func TestCleanupLoop_RunsShortlyAfterStart(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mClock := quartz.NewMock(t)
	mClock.Set(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	timerTrap := mClock.Trap().NewTimer("cleanup")
	defer timerTrap.Close()

	d := &fakeDispatcher{calls: make(chan scanWindow, 8)}
	r := &fakeReclaimer{calls: make(chan int, 8)}
	s := NewScheduler(d, r, Options{
		ScanInterval:  24 * time.Hour, // out of this test's way
		CleanupDelay:  time.Minute,
		RetentionDays: 30,
		Clock:         mClock,
	})
	s.Start(ctx)
	defer s.Stop()

	timerTrap.MustWait(ctx).MustRelease(ctx)
	mClock.Advance(time.Minute).MustWait(ctx)

	select {
	case days := <-r.calls:
		require.Equal(t, 30, days)
	case <-ctx.Done():
		t.Fatal("cleanup never ran")
	}
}
