// Package tables models the seating floor: per-table status at a queried
// instant, the display-number grid, and the caller's table selection.
package tables

import "github.com/cockroachdb/errors"

// Status of a table at one queried instant. It is not a permanent property of
// the table.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusReserved  Status = "RESERVED"
	StatusOccupied  Status = "OCCUPIED"
)

// Selectable reports whether a table in this status may be toggled into a
// selection. Unknown status counts as selectable; the backend has the final
// word at submission time.
func (s Status) Selectable() bool {
	return s != StatusReserved && s != StatusOccupied
}

// Layout mirrors the floor plan as rows of display numbers, 0 marking a gap.
// The last column is the outdoor section.
var Layout = [][]int{
	{1, 2, 3, 4, 5, 0, 6},
	{7, 8, 9, 10, 11, 0, 12},
	{13, 14, 15, 16, 17, 0, 18},
	{19, 20, 21, 22, 23, 0, 24},
	{0, 0, 0, 0, 0, 0, 30},
	{25, 26, 27, 28, 29, 0, 0},
}

// Numbers returns every display number on the floor, reading order.
func Numbers() []int {
	var out []int
	for _, row := range Layout {
		for _, n := range row {
			if n != 0 {
				out = append(out, n)
			}
		}
	}
	return out
}

// Snapshot is one availability poll's view of the floor. Both maps come from
// the same response, so they are mutually consistent.
type Snapshot struct {
	Status map[int]Status // by display number
	IDs    map[int]int64  // display number -> backend table id
}

// StatusOf returns the table's status, or "" when the snapshot has no entry
// for it.
func (sn Snapshot) StatusOf(n int) Status {
	return sn.Status[n]
}

// ResolveIDs maps selected display numbers to backend ids. Every number must
// be present in the snapshot; submitting a table the backend never reported
// would send a zero id.
func (sn Snapshot) ResolveIDs(nums []int) ([]int64, error) {
	out := make([]int64, 0, len(nums))
	for _, n := range nums {
		id, ok := sn.IDs[n]
		if !ok {
			return nil, errors.Newf("table %d has no known backend id", n)
		}
		out = append(out, id)
	}
	return out, nil
}
