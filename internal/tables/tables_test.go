package tables_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablesched/internal/tables"
)

func TestToggle(t *testing.T) {
	t.Run("reserved and occupied tables are not toggleable", func(t *testing.T) {
		var sel tables.Selection
		sel.Toggle(3, tables.StatusReserved)
		sel.Toggle(4, tables.StatusOccupied)
		assert.True(t, sel.Empty())
	})

	t.Run("toggling an available table twice returns to the original state", func(t *testing.T) {
		var sel tables.Selection
		sel.Toggle(5, tables.StatusAvailable)
		assert.True(t, sel.Contains(5))
		sel.Toggle(5, tables.StatusAvailable)
		assert.False(t, sel.Contains(5))
		assert.True(t, sel.Empty())
	})

	t.Run("unknown status counts as selectable", func(t *testing.T) {
		var sel tables.Selection
		sel.Toggle(9, tables.Status(""))
		assert.True(t, sel.Contains(9))
	})

	t.Run("selection keeps toggle order", func(t *testing.T) {
		var sel tables.Selection
		sel.Toggle(7, tables.StatusAvailable)
		sel.Toggle(2, tables.StatusAvailable)
		sel.Toggle(5, tables.StatusAvailable)
		sel.Toggle(2, tables.StatusAvailable)
		assert.Equal(t, []int{7, 5}, sel.Numbers())
	})
}

func TestSnapshotResolveIDs(t *testing.T) {
	snap := tables.Snapshot{
		Status: map[int]tables.Status{5: tables.StatusAvailable, 7: tables.StatusAvailable},
		IDs:    map[int]int64{5: 1005, 7: 1007},
	}

	ids, err := snap.ResolveIDs([]int{5, 7})
	require.NoError(t, err)
	assert.Equal(t, []int64{1005, 1007}, ids)

	_, err = snap.ResolveIDs([]int{5, 8})
	assert.Error(t, err)
}

func TestLayout(t *testing.T) {
	nums := tables.Numbers()
	assert.Len(t, nums, 30)

	seen := map[int]bool{}
	for _, n := range nums {
		assert.False(t, seen[n], "table %d listed twice", n)
		seen[n] = true
	}
	for n := 1; n <= 30; n++ {
		assert.True(t, seen[n], "table %d missing from the floor", n)
	}
}
