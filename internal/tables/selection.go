package tables

// Selection is the ordered set of display numbers the caller has toggled on.
// It lives only as long as its view; nothing is persisted.
type Selection struct {
	nums []int
}

// Toggle flips membership of n. Tables currently RESERVED or OCCUPIED are not
// toggleable; the call is a silent no-op. No upper bound is enforced here;
// party-size rules belong to the backend.
func (s *Selection) Toggle(n int, status Status) {
	if !status.Selectable() {
		return
	}
	for i, m := range s.nums {
		if m == n {
			s.nums = append(s.nums[:i], s.nums[i+1:]...)
			return
		}
	}
	s.nums = append(s.nums, n)
}

func (s *Selection) Contains(n int) bool {
	for _, m := range s.nums {
		if m == n {
			return true
		}
	}
	return false
}

// Numbers returns the selected display numbers in toggle order.
func (s *Selection) Numbers() []int {
	return append([]int(nil), s.nums...)
}

func (s *Selection) Empty() bool { return len(s.nums) == 0 }

func (s *Selection) Clear() { s.nums = nil }
