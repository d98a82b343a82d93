// Package scheduler drives active watches: on each tick it loads due watches,
// checks the floor, and attempts a booking for any with enough free tables.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/tablesched/internal/booking"
	"github.com/example/tablesched/internal/clock"
	"github.com/example/tablesched/internal/notify"
	"github.com/example/tablesched/internal/resto"
	"github.com/example/tablesched/internal/tables"
	"github.com/example/tablesched/internal/timeslot"
	"github.com/example/tablesched/internal/watch"
)

// Store is the slice of the watch repo the scheduler needs.
type Store interface {
	Due(ctx context.Context, limit int) ([]watch.Watch, error)
	MarkAttempt(ctx context.Context, id int64, success bool, note string, lastErr *string) error
	SetStatus(ctx context.Context, id int64, status string, lastErr *string) error
}

type Scheduler struct {
	Store    Store
	Client   *resto.Client
	Notifier notify.Notifier
	Interval time.Duration
	Clock    clock.Clock
	Logger   *slog.Logger

	wg sync.WaitGroup
}

func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	ws, err := s.Store.Due(ctx, 25)
	if err != nil {
		s.logger().Error("due watches query failed", "err", err)
		return
	}

	now := s.now()
	for _, w := range ws {
		if w.NextAttemptAt().After(now) {
			continue
		}
		w := w
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.attempt(ctx, w)
		}()
	}
}

func (s *Scheduler) attempt(ctx context.Context, w watch.Watch) {
	now := s.now()

	slot, ok := timeslot.ByLabel(w.SlotLabel)
	if !ok {
		msg := fmt.Sprintf("unknown time slot %q", w.SlotLabel)
		_ = s.Store.SetStatus(ctx, w.ID, watch.StatusFailed, &msg)
		return
	}
	start, err := timeslot.StartAt(w.Date, slot)
	if err != nil {
		msg := err.Error()
		_ = s.Store.SetStatus(ctx, w.ID, watch.StatusFailed, &msg)
		return
	}
	if !start.After(now) {
		msg := "slot start passed before a table freed up"
		_ = s.Store.SetStatus(ctx, w.ID, watch.StatusExpired, &msg)
		return
	}

	snap, err := s.Client.TableStatuses(ctx, start, w.Member)
	if err != nil {
		msg := fmt.Sprintf("table status poll failed: %v", err)
		_ = s.Store.MarkAttempt(ctx, w.ID, false, "", &msg)
		return
	}

	picked := pickTables(snap, w.Preferred, w.TableCount)
	if len(picked) < w.TableCount {
		msg := fmt.Sprintf("only %d of %d tables free", len(picked), w.TableCount)
		_ = s.Store.MarkAttempt(ctx, w.ID, false, "", &msg)
		s.failIfWindowEnded(ctx, w)
		return
	}

	sel := &tables.Selection{}
	for _, n := range picked {
		sel.Toggle(n, snap.StatusOf(n))
	}
	req, err := booking.Build(booking.Draft{
		Date:   w.Date,
		Slot:   w.SlotLabel,
		People: w.People,
		Name:   w.GuestName,
		Phone:  w.GuestPhone,
	}, sel, snap, w.Member, now)
	if err != nil {
		msg := err.Error()
		_ = s.Store.MarkAttempt(ctx, w.ID, false, "", &msg)
		s.failIfWindowEnded(ctx, w)
		return
	}

	res, err := booking.Submit(ctx, s.Client, req)
	if err != nil {
		msg := booking.UserMessage(err)
		s.logger().Warn("watch booking attempt failed", "watch", w.ID, "err", err)
		_ = s.Store.MarkAttempt(ctx, w.ID, false, "", &msg)
		s.failIfWindowEnded(ctx, w)
		return
	}

	note := fmt.Sprintf("booked reservation %d, tables %v", res.Key(), picked)
	_ = s.Store.MarkAttempt(ctx, w.ID, true, note, nil)
	s.logger().Info("watch booked", "watch", w.ID, "reservation", res.Key(), "tables", picked)

	if err := s.Notifier.BookingConfirmed(ctx, notify.Booking{
		Email:  w.NotifyEmail,
		Name:   w.GuestName,
		Date:   w.Date,
		Slot:   w.SlotLabel,
		People: w.People,
		Tables: picked,
	}); err != nil {
		s.logger().Warn("booking notification failed", "watch", w.ID, "err", err)
	}
}

func (s *Scheduler) failIfWindowEnded(ctx context.Context, w watch.Watch) {
	if s.now().After(w.WindowEndAt) {
		msg := "attempt window ended without success"
		_ = s.Store.SetStatus(ctx, w.ID, watch.StatusFailed, &msg)
	}
}

// pickTables chooses up to count free tables. A preferred list restricts the
// pick to those numbers; without one the whole floor is scanned in layout
// order.
func pickTables(snap tables.Snapshot, preferred []int, count int) []int {
	var picked []int
	seen := map[int]bool{}
	take := func(n int) {
		if len(picked) >= count || seen[n] {
			return
		}
		seen[n] = true
		if snap.StatusOf(n) == tables.StatusAvailable {
			picked = append(picked, n)
		}
	}
	for _, n := range preferred {
		take(n)
	}
	if len(preferred) == 0 {
		for _, n := range tables.Numbers() {
			take(n)
		}
	}
	return picked
}

func (s *Scheduler) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
