// Package watch persists "book when free" requests: a date, slot, and party
// that the scheduler keeps trying to book while tables are taken, within an
// attempt window.
package watch

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/example/tablesched/internal/timeslot"
)

// Watch statuses.
const (
	StatusActive  = "active"
	StatusBooked  = "booked"
	StatusFailed  = "failed"
	StatusExpired = "expired"
)

type Watch struct {
	ID     int64
	UserID int64 // owning operator account

	Date       string // YYYY-MM-DD
	SlotLabel  string
	People     int
	TableCount int   // how many tables to book
	Preferred  []int // preferred display numbers, tried first; empty means any

	// identity used for the booking itself
	Member     bool
	GuestName  string
	GuestPhone string

	NotifyEmail string

	WindowStartAt time.Time
	WindowEndAt   time.Time
	IntervalSec   int

	Status        string
	LastAttemptAt *time.Time
	BookedAt      *time.Time
	LastError     *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (w Watch) Validate() error {
	if _, err := time.Parse(timeslot.DateFormat, w.Date); err != nil {
		return errors.New("reservation date required (YYYY-MM-DD)")
	}
	if _, ok := timeslot.ByLabel(w.SlotLabel); !ok {
		return errors.Newf("unknown time slot %q", w.SlotLabel)
	}
	if w.People < 1 {
		return errors.New("people must be >= 1")
	}
	if w.TableCount < 1 {
		return errors.New("table count must be >= 1")
	}
	if !w.Member && (w.GuestName == "" || w.GuestPhone == "") {
		return errors.New("guest watches need a name and phone")
	}
	if !w.WindowEndAt.After(w.WindowStartAt) {
		return errors.New("window end must be after window start")
	}
	if w.IntervalSec < 1 {
		return errors.New("interval seconds must be >= 1")
	}
	return nil
}

// NextAttemptAt spaces attempts by the watch's own interval.
func (w Watch) NextAttemptAt() time.Time {
	if w.LastAttemptAt == nil {
		return w.WindowStartAt
	}
	return w.LastAttemptAt.Add(time.Duration(w.IntervalSec) * time.Second)
}

func joinInts(nums []int) string {
	parts := make([]string, 0, len(nums))
	for _, n := range nums {
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, ",")
}

func parseInts(s string) []int {
	var out []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
