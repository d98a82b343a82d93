// Package availability keeps a live view of table status for one queried
// instant by polling the backend on a fixed interval.
package availability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/tablesched/internal/tables"
)

const DefaultInterval = 5 * time.Second

// StatusFetcher is the one backend call the poller needs.
type StatusFetcher interface {
	TableStatuses(ctx context.Context, at time.Time, member bool) (tables.Snapshot, error)
}

// Poller owns the current snapshot. Start begins a polling run for one
// instant; the returned handle stops it. The fixed interval is also the retry
// mechanism: a failed poll is logged, the previous snapshot kept, and the
// next tick tries again.
type Poller struct {
	Fetch    StatusFetcher
	Member   bool
	Interval time.Duration
	Logger   *slog.Logger

	mu      sync.Mutex
	issued  uint64
	applied uint64
	snap    tables.Snapshot
}

// Handle stops a polling run. Stop is idempotent and waits for the run loop
// to exit, so no request outlives a torn-down view.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (h *Handle) Stop() {
	h.once.Do(func() {
		h.cancel()
		<-h.done
	})
}

// Start launches a polling run for the given instant: one request
// immediately, then one per interval until the handle is stopped or ctx ends.
// A zero instant is not a valid query; the snapshot is cleared and no request
// is made.
func (p *Poller) Start(ctx context.Context, at time.Time) *Handle {
	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	if at.IsZero() {
		p.Clear()
		close(h.done)
		return h
	}

	go func() {
		defer close(h.done)
		p.run(runCtx, at)
	}()
	return h
}

func (p *Poller) run(ctx context.Context, at time.Time) {
	t := time.NewTicker(p.interval())
	defer t.Stop()

	p.pollOnce(ctx, at)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.pollOnce(ctx, at)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context, at time.Time) {
	p.mu.Lock()
	p.issued++
	seq := p.issued
	p.mu.Unlock()

	snap, err := p.Fetch.TableStatuses(ctx, at, p.Member)
	if err != nil {
		if ctx.Err() == nil {
			p.logger().Warn("table status poll failed", "at", at, "err", err)
		}
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// a slower poll finishing after a newer one must not clobber fresher data
	if seq < p.applied {
		return
	}
	p.applied = seq
	p.snap = snap
}

// Snapshot returns the last applied view. Status and id maps always come from
// the same response.
func (p *Poller) Snapshot() tables.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

func (p *Poller) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = tables.Snapshot{}
}

func (p *Poller) interval() time.Duration {
	if p.Interval > 0 {
		return p.Interval
	}
	return DefaultInterval
}

func (p *Poller) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
