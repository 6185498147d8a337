package confset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/qmdata/confset/archive"
)

// countingStore wraps a Store and counts Open calls per archive name.
type countingStore struct {
	inner archive.Store
	opens map[string]int
}

func newCountingStore(inner archive.Store) *countingStore {
	return &countingStore{inner: inner, opens: make(map[string]int)}
}

func (s *countingStore) Open(name string) (archive.File, error) {
	s.opens[name]++
	return s.inner.Open(name)
}

// putReplica adds a replica group with numFrames recorded in the source
// metadata.
func putReplica(tg *archive.MemGroup, name string, frames int64) *archive.MemGroup {
	return tg.PutGroup(name).SetAttrInt("numFrames", frames)
}

// putTrajArrays adds coords/forces datasets for a replica of the data
// archive, with the required unit attributes and sequential values.
func putTrajArrays(rg *archive.MemGroup, frames, atoms int) {
	n := frames * atoms * 3
	rg.PutFloats("coords", []int{frames, atoms, 3}, seq(0, 1, n)).
		SetAttrString("unit", "Angstrom")
	rg.PutFloats("forces", []int{frames, atoms, 3}, seq(1000, 1, n)).
		SetAttrString("unit", "kcal/mol/Angstrom")
}

// twoReplicaStore is the reference scenario: one domain below every
// threshold, temperature 348 with replicas of 10 and 5 frames.
func twoReplicaStore() archive.MapStore {
	src := archive.NewMemory()
	dom := src.Root().PutGroup("dom1").
		SetAttrInt("numProteinAtoms", 50).
		SetAttrInt("numResidues", 10)
	tg := dom.PutGroup("348")
	putReplica(tg, "0", 10)
	putReplica(tg, "1", 5)

	data := archive.NewMemory()
	dg := data.Root().PutGroup("dom1")
	dg.PutInts("z", []int{3}, []int64{1, 6, 8})
	sims := dg.PutGroup("sims348K")
	putTrajArrays(sims.PutGroup("0"), 10, 3)
	putTrajArrays(sims.PutGroup("1"), 5, 3)

	return archive.MapStore{
		"source.h5":       src,
		"dataset_dom1.h5": data,
	}
}

func TestTrajSetScanCounts(t *testing.T) {
	ts, err := NewTrajSet(twoReplicaStore())
	require.NoError(t, err)

	require.Equal(t, 15, ts.Len())
	assert.Equal(t, []string{"dom1"}, ts.Domains())

	units, ok := ts.Units("dom1")
	require.True(t, ok)
	assert.Equal(t, []Unit{
		{Temperature: "348", Replica: "0"},
		{Temperature: "348", Replica: "1"},
	}, units)
}

func TestTrajSetStride(t *testing.T) {
	ts, err := NewTrajSet(twoReplicaStore(), WithStride(2))
	require.NoError(t, err)

	// ceil(10/2) + ceil(5/2) = 5 + 3.
	require.Equal(t, 8, ts.Len())

	// Entry 1 is frame 2 of replica "0" (stride keeps 0, 2, 4, ...).
	s, err := ts.Get(1)
	require.NoError(t, err)
	assert.InDelta(t, float64(2*9), s.Pos.At(0, 0), 1e-12)

	// Entry 5 is frame 0 of replica "1".
	s, err = ts.Get(5)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, s.Pos.At(0, 0), 1e-12)
}

func TestTrajSetGet(t *testing.T) {
	ts, err := NewTrajSet(twoReplicaStore())
	require.NoError(t, err)

	s, err := ts.Get(0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 6, 8}, s.Z)
	assert.Nil(t, s.Energy)

	rows, cols := s.Pos.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)
	assert.InDelta(t, 0.0, s.Pos.At(0, 0), 1e-12)
	assert.InDelta(t, 1000.0, s.Forces.At(0, 0), 1e-12)

	// Frame 3 of replica "0".
	s, err = ts.Get(3)
	require.NoError(t, err)
	assert.InDelta(t, float64(3*9), s.Pos.At(0, 0), 1e-12)

	// First frame of replica "1".
	s, err = ts.Get(10)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, s.Pos.At(0, 0), 1e-12)

	_, err = ts.Get(15)
	var rangeErr *ErrIndexOutOfRange
	require.ErrorAs(t, err, &rangeErr)
	_, err = ts.Get(-1)
	require.ErrorAs(t, err, &rangeErr)
}

func TestTrajSetLenDoesNotMaterialize(t *testing.T) {
	store := newCountingStore(twoReplicaStore())
	ts, err := NewTrajSet(store)
	require.NoError(t, err)

	require.Equal(t, 1, store.opens["source.h5"])
	require.Zero(t, store.opens["dataset_dom1.h5"])

	for range 5 {
		require.Equal(t, 15, ts.Len())
	}
	require.Zero(t, store.opens["dataset_dom1.h5"], "Len must not trigger the index build")

	_, err = ts.Get(0)
	require.NoError(t, err)
	require.Equal(t, 1, store.opens["dataset_dom1.h5"])

	// The flat index is built once; later gets reuse it.
	_, err = ts.Get(14)
	require.NoError(t, err)
	require.Equal(t, 1, store.opens["dataset_dom1.h5"])
}

func TestTrajSetDomainFilters(t *testing.T) {
	tests := []struct {
		name string
		opts []TrajSetOption
	}{
		{"atoms", []TrajSetOption{WithMaxAtoms(49)}},
		{"residues", []TrajSetOption{WithMaxResidues(9)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := NewTrajSet(twoReplicaStore(), tt.opts...)
			require.NoError(t, err)
			assert.Empty(t, ts.Domains())
			assert.Zero(t, ts.Len())

			_, ok := ts.Units("dom1")
			assert.False(t, ok, "domain must be absent from the qualifying set")
		})
	}
}

func TestTrajSetNonHAtomFilter(t *testing.T) {
	store := twoReplicaStore()
	store["source.h5"].Root().PutGroup("dom1").SetAttrInt("numNoHAtoms", 30)

	ts, err := NewTrajSet(store, WithMaxNonHAtoms(29))
	require.NoError(t, err)
	assert.Empty(t, ts.Domains())

	ts, err = NewTrajSet(store, WithMaxNonHAtoms(30))
	require.NoError(t, err)
	assert.Equal(t, []string{"dom1"}, ts.Domains())
}

func TestTrajSetReplicaFilters(t *testing.T) {
	store := twoReplicaStore()
	tg := store["source.h5"].Root().PutGroup("dom1").PutGroup("348")
	for _, rep := range []string{"0", "1"} {
		tg.PutGroup(rep).
			SetAttrFloat("min_gyration_radius", 1.2).
			SetAttrFloat("max_gyration_radius", 2.8).
			SetAttrFloat("alpha", 0.4).
			SetAttrFloat("beta", 0.25).
			SetAttrFloat("coil", 0.35)
	}

	t.Run("min frames keeps only the long replica", func(t *testing.T) {
		ts, err := NewTrajSet(store, WithMinFrames(8))
		require.NoError(t, err)
		require.Equal(t, 10, ts.Len())
		units, ok := ts.Units("dom1")
		require.True(t, ok)
		assert.Equal(t, []Unit{{Temperature: "348", Replica: "0"}}, units)
	})

	t.Run("gyration floor excludes all", func(t *testing.T) {
		ts, err := NewTrajSet(store, WithMinGyrationRadius(1.3))
		require.NoError(t, err)
		assert.Empty(t, ts.Domains())
	})

	t.Run("gyration ceiling excludes all", func(t *testing.T) {
		ts, err := NewTrajSet(store, WithMaxGyrationRadius(2.7))
		require.NoError(t, err)
		assert.Empty(t, ts.Domains())
	})

	t.Run("gyration bounds inside the recorded range pass", func(t *testing.T) {
		ts, err := NewTrajSet(store,
			WithMinGyrationRadius(1.0),
			WithMaxGyrationRadius(3.0),
		)
		require.NoError(t, err)
		require.Equal(t, 15, ts.Len())
	})

	t.Run("secondary structure must match closely", func(t *testing.T) {
		ts, err := NewTrajSet(store, WithSecondaryStructure(0.4, 0.25, 0.35))
		require.NoError(t, err)
		require.Equal(t, 15, ts.Len())

		ts, err = NewTrajSet(store, WithSecondaryStructure(0.5, 0.25, 0.25))
		require.NoError(t, err)
		assert.Empty(t, ts.Domains())
	})
}

func TestTrajSetMissingTemperatureEndsDomainScan(t *testing.T) {
	// The domain has trajectories only for label "348". A requested label
	// that is absent ends temperature evaluation for the domain: with
	// "320" requested first, "348" is never examined.
	ts, err := NewTrajSet(twoReplicaStore(), WithTemperatures([]string{"320", "348"}))
	require.NoError(t, err)
	assert.Empty(t, ts.Domains())
	assert.Zero(t, ts.Len())

	// With the present label first, its replicas qualify before the
	// missing label cuts the scan off.
	ts, err = NewTrajSet(twoReplicaStore(), WithTemperatures([]string{"348", "320"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"dom1"}, ts.Domains())
	assert.Equal(t, 15, ts.Len())
}

func TestTrajSetDomainAllowlist(t *testing.T) {
	ts, err := NewTrajSet(twoReplicaStore(), WithDomains([]string{"dom1"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"dom1"}, ts.Domains())
}

func TestTrajSetMissingSource(t *testing.T) {
	_, err := NewTrajSet(archive.MapStore{})
	require.ErrorIs(t, err, ErrMissingArchive)
}

func TestTrajSetMissingDataArchive(t *testing.T) {
	store := twoReplicaStore()
	delete(store, "dataset_dom1.h5")

	ts, err := NewTrajSet(store)
	require.NoError(t, err)
	require.Equal(t, 15, ts.Len(), "scan uses metadata only")

	_, err = ts.Get(0)
	require.ErrorIs(t, err, ErrMissingArchive)
}

func TestTrajSetUnitMismatch(t *testing.T) {
	store := twoReplicaStore()
	data := store["dataset_dom1.h5"]
	rg := data.Root().PutGroup("dom1").PutGroup("sims348K").PutGroup("0")
	rg.PutFloats("coords", []int{10, 3, 3}, seq(0, 1, 90)).
		SetAttrString("unit", "nm")

	ts, err := NewTrajSet(store)
	require.NoError(t, err)

	_, err = ts.Get(0)
	var unitErr *ErrUnitMismatch
	require.ErrorAs(t, err, &unitErr)
	assert.Equal(t, "coords", unitErr.Dataset)
	assert.Equal(t, "Angstrom", unitErr.Want)
	assert.Equal(t, "nm", unitErr.Got)
}

func TestTrajSetAtomMismatch(t *testing.T) {
	store := twoReplicaStore()
	data := store["dataset_dom1.h5"]
	// z claims 4 atoms, the arrays carry 3.
	data.Root().PutGroup("dom1").PutInts("z", []int{4}, []int64{1, 1, 6, 8})

	ts, err := NewTrajSet(store)
	require.NoError(t, err)

	_, err = ts.Get(0)
	var shapeErr *ErrShapeMismatch
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "coords atoms", shapeErr.Axis)
}

func TestTrajSetIndexCountMismatch(t *testing.T) {
	store := twoReplicaStore()
	// The metadata lies: 12 recorded frames against 10 stored.
	store["source.h5"].Root().PutGroup("dom1").PutGroup("348").
		PutGroup("0").SetAttrInt("numFrames", 12)

	ts, err := NewTrajSet(store)
	require.NoError(t, err)
	require.Equal(t, 17, ts.Len())

	_, err = ts.Get(0)
	var countErr *ErrIndexCountMismatch
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, 17, countErr.Want)
	assert.Equal(t, 15, countErr.Got)
}

func TestTrajSetIdempotence(t *testing.T) {
	opts := []TrajSetOption{WithStride(2)}

	a, err := NewTrajSet(twoReplicaStore(), opts...)
	require.NoError(t, err)
	b, err := NewTrajSet(twoReplicaStore(), opts...)
	require.NoError(t, err)

	require.Equal(t, a.Len(), b.Len())
	for i := 0; i < a.Len(); i++ {
		sa, err := a.Get(i)
		require.NoError(t, err)
		sb, err := b.Get(i)
		require.NoError(t, err)

		assert.Equal(t, sa.Z, sb.Z, "index %d", i)
		assert.True(t, mat.Equal(sa.Pos, sb.Pos), "index %d", i)
		assert.True(t, mat.Equal(sa.Forces, sb.Forces), "index %d", i)
	}
}

func TestTrajSetMetrics(t *testing.T) {
	var collector BasicMetricsCollector
	ts, err := NewTrajSet(twoReplicaStore(), WithTrajSetMetrics(&collector))
	require.NoError(t, err)

	require.Equal(t, int64(1), collector.ScanCount.Load())
	require.Equal(t, int64(15), collector.ScanFrames.Load())

	_, err = ts.Get(0)
	require.NoError(t, err)
	require.Equal(t, int64(1), collector.BuildCount.Load())
	require.Equal(t, int64(15), collector.BuildEntries.Load())
	require.Equal(t, int64(1), collector.GetCount.Load())
}
