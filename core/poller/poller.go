// Package poller re-runs a fetch at a fixed interval until stopped.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/tripsync/core"
)

// Poller runs fetch on every tick of a fixed interval. Ticks are independent: each runs in its
// own goroutine, so a slow or failed fetch never delays the next one. No jitter, no backoff.
type Poller struct {
	interval time.Duration
	fetch    func(ctx context.Context) error
	logger   core.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

func New(interval time.Duration, fetch func(ctx context.Context) error, logger core.Logger) *Poller {
	return &Poller{interval: interval, fetch: fetch, logger: logger}
}

// Start begins ticking. The first fetch happens one interval after Start.
// The poller also stops when ctx is cancelled. Starting a running or stopped poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil || p.stopped {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.loop(ctx)
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		// a tick racing with Stop must not start a fetch
		p.mu.Lock()
		if ctx.Err() != nil {
			p.mu.Unlock()
			return
		}
		p.wg.Add(1)
		p.mu.Unlock()

		go func() {
			defer p.wg.Done()
			if err := p.fetch(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("poller: tick failed", err)
			}
		}()
	}
}

// Cancel stops the timer and cancels in-flight fetches without waiting for them.
// No fetch is started after Cancel returns. Unlike Stop, it is safe to call from within a fetch.
func (p *Poller) Cancel() {
	p.mu.Lock()
	p.stopped = true
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()
}

// Stop cancels the timer and in-flight fetches, then waits for them to return.
// No fetch is called after Stop returns.
func (p *Poller) Stop() {
	p.Cancel()
	p.wg.Wait()
}
