package confset

import "sort"

// offsetTable flattens ordered units of known sizes into one dense index
// space. It stores cumulative counts and resolves a flat index to a
// (unit, local offset) pair by bisection, so lookup never walks the
// hierarchy the units came from.
type offsetTable struct {
	cum []int // cum[k] = total size of units [0..k]
}

func newOffsetTable(sizes []int) offsetTable {
	cum := make([]int, len(sizes))
	total := 0
	for k, n := range sizes {
		total += n
		cum[k] = total
	}
	return offsetTable{cum: cum}
}

// total returns the summed size of all units.
func (t offsetTable) total() int {
	if len(t.cum) == 0 {
		return 0
	}
	return t.cum[len(t.cum)-1]
}

// locate resolves flat index i to the owning unit and the local offset
// within it. The caller is responsible for range-checking i.
func (t offsetTable) locate(i int) (unit, local int) {
	unit = sort.Search(len(t.cum), func(k int) bool { return t.cum[k] > i })
	local = i
	if unit > 0 {
		local -= t.cum[unit-1]
	}
	return unit, local
}
