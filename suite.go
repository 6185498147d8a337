package confset

// Suite composes independently configured flat datasets into one dense
// index space. Sub-datasets keep their configured order and their local
// indices stay contiguous; a global index routes to (sub-dataset, local)
// through an offset table built once at construction.
//
// Suite does not re-filter or re-validate sub-dataset contents; each
// sub-dataset owns its own qualification.
type Suite struct {
	subsets []Dataset
	table   offsetTable
}

// NewSuite creates a Suite over the given sub-datasets, in order.
func NewSuite(subsets ...Dataset) *Suite {
	sizes := make([]int, len(subsets))
	for i, d := range subsets {
		sizes[i] = d.Len()
	}
	return &Suite{
		subsets: subsets,
		table:   newOffsetTable(sizes),
	}
}

// Len returns the summed length of all sub-datasets.
func (s *Suite) Len() int { return s.table.total() }

// Get returns the sample at global index i, delegating to the owning
// sub-dataset.
func (s *Suite) Get(i int) (*Sample, error) {
	if i < 0 || i >= s.table.total() {
		return nil, &ErrIndexOutOfRange{Index: i, Len: s.table.total()}
	}
	subset, local := s.table.locate(i)
	return s.subsets[subset].Get(local)
}
