// Package booking validates a reservation draft and submits it. The draft is
// form state only; validation failures never reach the network, and a failed
// submission leaves the draft untouched for a manual retry.
package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/example/tablesched/internal/resto"
	"github.com/example/tablesched/internal/tables"
	"github.com/example/tablesched/internal/timeslot"
)

var (
	// ErrIncomplete covers any missing required field: date, slot, party
	// size, or table selection.
	ErrIncomplete = errors.New("date, time slot, party size, and at least one table are required")
	// ErrInvalidStart means the date/slot pair does not compose into a valid
	// instant.
	ErrInvalidStart = errors.New("invalid reservation date or time slot")
	// ErrPastStart guards the race between choosing a slot and submitting it.
	ErrPastStart = errors.New("the selected time has already passed")
	// ErrContactRequired applies to guest submissions only.
	ErrContactRequired = errors.New("name and phone are required for guest bookings")
)

// Draft is the in-progress form. Name and Phone matter only for guests.
type Draft struct {
	Date   string // YYYY-MM-DD
	Slot   string // slot label
	People int
	Name   string
	Phone  string
}

// Request is a validated, ready-to-send booking. The two implementations keep
// guest and member submissions apart at the type level instead of by
// optionally-present fields.
type Request interface {
	StartTime() time.Time
	send(ctx context.Context, c *resto.Client) (resto.Reservation, error)
}

type GuestRequest struct {
	Start    time.Time
	People   int
	TableIDs []int64
	Name     string
	Phone    string
}

func (r GuestRequest) StartTime() time.Time { return r.Start }

func (r GuestRequest) send(ctx context.Context, c *resto.Client) (resto.Reservation, error) {
	return c.ReserveGuest(ctx, resto.GuestReservation{
		StartTime: wireTime(r.Start),
		People:    r.People,
		TableIDs:  r.TableIDs,
		Name:      r.Name,
		Phone:     r.Phone,
	})
}

type MemberRequest struct {
	Start    time.Time
	People   int
	TableIDs []int64
}

func (r MemberRequest) StartTime() time.Time { return r.Start }

func (r MemberRequest) send(ctx context.Context, c *resto.Client) (resto.Reservation, error) {
	return c.ReserveMember(ctx, resto.MemberReservation{
		StartTime: wireTime(r.Start),
		People:    r.People,
		TableIDs:  r.TableIDs,
	})
}

// wireTime renders the slot start the way the backend expects it: RFC3339
// with the restaurant's +07:00 offset.
func wireTime(t time.Time) string {
	return t.In(timeslot.Zone()).Format(time.RFC3339)
}

// Build validates the draft against the current selection and poll snapshot
// and assembles the request for the caller's identity. Any rejection happens
// here, before a network call exists to fail.
func Build(d Draft, sel *tables.Selection, snap tables.Snapshot, member bool, now time.Time) (Request, error) {
	if d.Date == "" || d.Slot == "" || d.People < 1 || sel == nil || sel.Empty() {
		return nil, ErrIncomplete
	}

	slot, ok := timeslot.ByLabel(d.Slot)
	if !ok {
		return nil, ErrInvalidStart
	}
	start, err := timeslot.StartAt(d.Date, slot)
	if err != nil {
		return nil, ErrInvalidStart
	}
	if !start.After(now) {
		return nil, ErrPastStart
	}

	ids, err := snap.ResolveIDs(sel.Numbers())
	if err != nil {
		return nil, errors.Wrap(err, "resolve tables")
	}

	if member {
		return MemberRequest{Start: start, People: d.People, TableIDs: ids}, nil
	}
	if d.Name == "" || d.Phone == "" {
		return nil, ErrContactRequired
	}
	return GuestRequest{Start: start, People: d.People, TableIDs: ids, Name: d.Name, Phone: d.Phone}, nil
}

// Submit performs one booking attempt. There is no retry here; a failure is
// terminal for the attempt and the caller decides whether to resubmit.
func Submit(ctx context.Context, c *resto.Client, req Request) (resto.Reservation, error) {
	res, err := req.send(ctx, c)
	if err != nil {
		return resto.Reservation{}, errors.Wrap(err, "booking failed")
	}
	return res, nil
}

// UserMessage reduces a submission error to what the user should see: the
// server's message when the backend rejected the booking with one, the
// validation text for client-side rejections, and a generic failure otherwise.
func UserMessage(err error) string {
	var apiErr *resto.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, ErrIncomplete),
		errors.Is(err, ErrInvalidStart),
		errors.Is(err, ErrPastStart),
		errors.Is(err, ErrContactRequired):
		return errors.Cause(err).Error()
	}
	return "booking failed"
}
