package confset

// Dataset is a finite, randomly addressable sequence of samples.
//
// Implementations are read-only once constructed; Len is stable across
// calls and must not trigger bulk I/O.
type Dataset interface {
	// Len returns the total number of samples.
	Len() int
	// Get returns the sample at flat position i. Indices outside
	// [0, Len) fail with *ErrIndexOutOfRange.
	Get(i int) (*Sample, error)
}

// sliceDataset is a Dataset over an in-memory sample slice.
type sliceDataset struct {
	samples []*Sample
}

func (d *sliceDataset) Len() int { return len(d.samples) }

func (d *sliceDataset) Get(i int) (*Sample, error) {
	if i < 0 || i >= len(d.samples) {
		return nil, &ErrIndexOutOfRange{Index: i, Len: len(d.samples)}
	}
	return d.samples[i], nil
}
