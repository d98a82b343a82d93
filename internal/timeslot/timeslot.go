// Package timeslot defines the restaurant's fixed booking windows and decides
// which of them are still bookable for a given calendar date.
package timeslot

import (
	"time"

	"github.com/cockroachdb/errors"
)

// DateFormat is the wire format for calendar days.
const DateFormat = "2006-01-02"

var ErrBadDate = errors.New("invalid date (want YYYY-MM-DD)")

// Slot is one of the six fixed one-hour booking windows between 16:00 and
// 22:00.
type Slot struct {
	Label     string
	StartHour int
}

var slots = []Slot{
	{Label: "16:00 - 17:00", StartHour: 16},
	{Label: "17:00 - 18:00", StartHour: 17},
	{Label: "18:00 - 19:00", StartHour: 18},
	{Label: "19:00 - 20:00", StartHour: 19},
	{Label: "20:00 - 21:00", StartHour: 20},
	{Label: "21:00 - 22:00", StartHour: 21},
}

// zone is the restaurant's local time; slot starts are fixed to it regardless
// of where the process runs.
var zone = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}()

func Zone() *time.Location { return zone }

// All returns the full slot sequence in booking order.
func All() []Slot {
	return append([]Slot(nil), slots...)
}

// ByLabel resolves a slot from its display label, e.g. "18:00 - 19:00".
func ByLabel(label string) (Slot, bool) {
	for _, s := range slots {
		if s.Label == label {
			return s, true
		}
	}
	return Slot{}, false
}

// StartAt composes the instant at which the slot opens on the given date, in
// the restaurant's zone.
func StartAt(date string, s Slot) (time.Time, error) {
	d, err := time.ParseInLocation(DateFormat, date, zone)
	if err != nil {
		return time.Time{}, ErrBadDate
	}
	return time.Date(d.Year(), d.Month(), d.Day(), s.StartHour, 0, 0, 0, zone), nil
}

// Available returns the slots still bookable on date as of now: none for past
// dates, all six for future dates, and for today only the slots whose start is
// strictly after now. A slot starting at the current instant is already gone.
func Available(date string, now time.Time) ([]Slot, error) {
	if _, err := time.ParseInLocation(DateFormat, date, zone); err != nil {
		return nil, ErrBadDate
	}
	today := now.In(zone).Format(DateFormat)
	switch {
	case date < today:
		return nil, nil
	case date > today:
		return All(), nil
	}

	var out []Slot
	for _, s := range slots {
		start, err := StartAt(date, s)
		if err != nil {
			return nil, err
		}
		if start.After(now) {
			out = append(out, s)
		}
	}
	return out, nil
}
