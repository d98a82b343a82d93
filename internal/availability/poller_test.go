package availability

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablesched/internal/tables"
)

type fetchFunc func(ctx context.Context, at time.Time, member bool) (tables.Snapshot, error)

func (f fetchFunc) TableStatuses(ctx context.Context, at time.Time, member bool) (tables.Snapshot, error) {
	return f(ctx, at, member)
}

func snapWithStatus(n int, st tables.Status) tables.Snapshot {
	return tables.Snapshot{
		Status: map[int]tables.Status{n: st},
		IDs:    map[int]int64{n: int64(1000 + n)},
	}
}

func TestPollerImmediateThenInterval(t *testing.T) {
	var calls atomic.Int64
	p := &Poller{
		Fetch: fetchFunc(func(ctx context.Context, at time.Time, member bool) (tables.Snapshot, error) {
			calls.Add(1)
			return snapWithStatus(5, tables.StatusAvailable), nil
		}),
		Interval: 20 * time.Millisecond,
	}

	h := p.Start(context.Background(), time.Now().Add(time.Hour))

	// the first request fires before the first tick
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)

	h.Stop()
	after := calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no request may fire after Stop")

	assert.Equal(t, tables.StatusAvailable, p.Snapshot().StatusOf(5))
}

func TestPollerZeroInstantClearsAndStaysIdle(t *testing.T) {
	var calls atomic.Int64
	p := &Poller{
		Fetch: fetchFunc(func(ctx context.Context, at time.Time, member bool) (tables.Snapshot, error) {
			calls.Add(1)
			return snapWithStatus(5, tables.StatusAvailable), nil
		}),
		Interval: 5 * time.Millisecond,
	}

	// seed a snapshot, then restart with an invalid instant
	h := p.Start(context.Background(), time.Now().Add(time.Hour))
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)
	h.Stop()

	h = p.Start(context.Background(), time.Time{})
	h.Stop()

	assert.Empty(t, p.Snapshot().Status)
	before := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, before, calls.Load())
}

func TestPollerKeepsSnapshotOnFailure(t *testing.T) {
	var calls atomic.Int64
	p := &Poller{
		Fetch: fetchFunc(func(ctx context.Context, at time.Time, member bool) (tables.Snapshot, error) {
			if calls.Add(1) == 1 {
				return snapWithStatus(5, tables.StatusReserved), nil
			}
			return tables.Snapshot{}, errors.New("backend down")
		}),
		Interval: 10 * time.Millisecond,
	}

	h := p.Start(context.Background(), time.Now().Add(time.Hour))
	defer h.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	// stale-but-available beats empty
	assert.Equal(t, tables.StatusReserved, p.Snapshot().StatusOf(5))
}

func TestPollerDropsStaleResponse(t *testing.T) {
	slowEntered := make(chan struct{})
	release := make(chan struct{})
	var nthCall atomic.Int64

	p := &Poller{
		Fetch: fetchFunc(func(ctx context.Context, at time.Time, member bool) (tables.Snapshot, error) {
			if nthCall.Add(1) == 1 {
				close(slowEntered)
				<-release
				return snapWithStatus(5, tables.StatusAvailable), nil
			}
			return snapWithStatus(5, tables.StatusOccupied), nil
		}),
	}

	at := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.pollOnce(context.Background(), at) // slow, issued first
	}()
	<-slowEntered

	p.pollOnce(context.Background(), at) // fast, issued second, applied first
	close(release)
	wg.Wait()

	// the late first response must not clobber the fresher second one
	assert.Equal(t, tables.StatusOccupied, p.Snapshot().StatusOf(5))
}
