package confset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetTable(t *testing.T) {
	table := newOffsetTable([]int{3, 4, 1})
	require.Equal(t, 8, table.total())

	tests := []struct {
		flat  int
		unit  int
		local int
	}{
		{0, 0, 0},
		{2, 0, 2},
		{3, 1, 0},
		{6, 1, 3},
		{7, 2, 0},
	}
	for _, tt := range tests {
		unit, local := table.locate(tt.flat)
		assert.Equal(t, tt.unit, unit, "flat %d", tt.flat)
		assert.Equal(t, tt.local, local, "flat %d", tt.flat)
	}
}

func TestOffsetTableEmptyUnits(t *testing.T) {
	// Zero-size units never own an index; lookup skips past them.
	table := newOffsetTable([]int{0, 2, 0, 3})
	require.Equal(t, 5, table.total())

	unit, local := table.locate(0)
	assert.Equal(t, 1, unit)
	assert.Equal(t, 0, local)

	unit, local = table.locate(2)
	assert.Equal(t, 3, unit)
	assert.Equal(t, 0, local)
}

func TestOffsetTableEmpty(t *testing.T) {
	table := newOffsetTable(nil)
	require.Zero(t, table.total())
}
