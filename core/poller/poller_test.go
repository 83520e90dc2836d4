package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	logsvc "github.com/trezcool/tripsync/services/logger"
)

const tick = 5 * time.Millisecond

func TestPoller_TicksUntilStopped(t *testing.T) {
	var calls int32
	p := New(tick, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, logsvc.NewDiscardLogger())

	p.Start(context.Background())
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 }, time.Second, tick)

	p.Stop()
	after := atomic.LoadInt32(&calls)
	time.Sleep(10 * tick)
	assert.Equal(t, after, atomic.LoadInt32(&calls), "no fetch after Stop")
}

func TestPoller_SlowTickDoesNotBlockNext(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	p := New(tick, func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			select {
			case <-release:
			case <-ctx.Done():
			}
		}
		return errors.New("boom")
	}, logsvc.NewDiscardLogger())

	p.Start(context.Background())
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 }, time.Second, tick)
	close(release)
	p.Stop()
}

func TestPoller_StopCancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	var cancelled int32
	p := New(tick, func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		atomic.StoreInt32(&cancelled, 1)
		return ctx.Err()
	}, logsvc.NewDiscardLogger())

	p.Start(context.Background())
	<-started
	p.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&cancelled), "Stop waits for in-flight fetches")
}

func TestPoller_ParentContext(t *testing.T) {
	var calls int32
	ctx, cancel := context.WithCancel(context.Background())
	p := New(tick, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, logsvc.NewDiscardLogger())

	p.Start(ctx)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 1 }, time.Second, tick)
	cancel()
	p.Stop()

	after := atomic.LoadInt32(&calls)
	time.Sleep(10 * tick)
	assert.Equal(t, after, atomic.LoadInt32(&calls))
}

func TestPoller_RestartAfterStopIsNoop(t *testing.T) {
	var calls int32
	p := New(tick, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, logsvc.NewDiscardLogger())

	p.Stop()
	p.Start(context.Background())
	time.Sleep(10 * tick)
	assert.Zero(t, atomic.LoadInt32(&calls))
	p.Stop()
}

func TestPoller_CancelFromWithinFetch(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	var p *Poller
	p = New(tick, func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			p.Cancel()
			assert.Error(t, ctx.Err(), "own context is cancelled")
			close(done)
		}
		return nil
	}, logsvc.NewDiscardLogger())

	p.Start(context.Background())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Cancel blocked inside a fetch")
	}
	p.Stop()
	time.Sleep(10 * tick)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no fetch after Cancel")
}
