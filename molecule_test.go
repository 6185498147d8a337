package confset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/qmdata/confset/archive"
)

// seq returns n sequential floats starting at base, spaced by step.
func seq(base, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + float64(i)*step
	}
	return out
}

// waterArchive builds an archive with one top-level group holding a single
// 3-atom molecule with the given number of frames.
func waterArchive(frames int) *archive.Memory {
	m := archive.NewMemory()
	mol := m.Root().PutGroup("molecules").PutGroup("mol001")
	mol.PutStrings("species", []string{"H", "H", "O"})
	mol.PutFloats("coordinates", []int{frames, 3, 3}, seq(0, 0.5, frames*9))
	mol.PutFloats("energies", []int{frames}, seq(-76.0, -0.1, frames))
	mol.PutFloats("forces", []int{frames, 3, 3}, seq(1, 1, frames*9))
	return m
}

func TestEnumeratorSamples(t *testing.T) {
	store := archive.MapStore{"water.h5": waterArchive(2)}
	enum := NewEnumerator(store, []string{"water.h5"})

	samples, err := enum.Collect()
	require.NoError(t, err)
	require.Len(t, samples, 2)

	refEnergy := ReferenceEnergy([]int{1, 1, 8})
	for i, s := range samples {
		assert.Equal(t, []int{1, 1, 8}, s.Z)
		require.NotNil(t, s.Energy)
		raw := -76.0 - 0.1*float64(i)
		assert.InDelta(t, raw*HartreeToEV-refEnergy, *s.Energy, 1e-9)

		rows, cols := s.Pos.Dims()
		assert.Equal(t, 3, rows)
		assert.Equal(t, 3, cols)
		// First coordinate of frame i.
		assert.InDelta(t, float64(i*9)*0.5, s.Pos.At(0, 0), 1e-12)
		// Forces are converted from Hartree to eV.
		assert.InDelta(t, float64(i*9+1)*HartreeToEV, s.Forces.At(0, 0), 1e-9)
		assert.Empty(t, s.Tag)
	}

	// Z is shared by reference across frames of one molecule.
	assert.Same(t, &samples[0].Z[0], &samples[1].Z[0])
}

func TestEnumeratorRestartable(t *testing.T) {
	store := archive.MapStore{"water.h5": waterArchive(3)}
	enum := NewEnumerator(store, []string{"water.h5"})

	first, err := enum.Collect()
	require.NoError(t, err)
	second, err := enum.Collect()
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Z, second[i].Z)
		assert.True(t, mat.Equal(first[i].Pos, second[i].Pos))
		assert.True(t, mat.Equal(first[i].Forces, second[i].Forces))
		assert.Equal(t, *first[i].Energy, *second[i].Energy)
	}
}

func TestEnumeratorEarlyBreak(t *testing.T) {
	store := archive.MapStore{"water.h5": waterArchive(5)}
	enum := NewEnumerator(store, []string{"water.h5"})

	n := 0
	for _, err := range enum.Samples() {
		require.NoError(t, err)
		n++
		if n == 2 {
			break
		}
	}
	require.Equal(t, 2, n)
}

func TestEnumeratorUnknownElement(t *testing.T) {
	m := archive.NewMemory()
	mol := m.Root().PutGroup("molecules").PutGroup("mol001")
	mol.PutStrings("species", []string{"H", "Xx"})
	mol.PutFloats("coordinates", []int{1, 2, 3}, seq(0, 1, 6))
	mol.PutFloats("energies", []int{1}, []float64{-1})
	mol.PutFloats("forces", []int{1, 2, 3}, seq(0, 1, 6))

	enum := NewEnumerator(archive.MapStore{"bad.h5": m}, []string{"bad.h5"})

	samples := 0
	var got error
	for s, err := range enum.Samples() {
		if err != nil {
			got = err
			continue
		}
		_ = s
		samples++
	}
	require.Zero(t, samples)
	var unknownErr *ErrUnknownElement
	require.ErrorAs(t, got, &unknownErr)
	assert.Equal(t, "Xx", unknownErr.Symbol)
	assert.Equal(t, "mol001", unknownErr.Molecule)
}

func TestEnumeratorShapeMismatch(t *testing.T) {
	m := archive.NewMemory()
	mol := m.Root().PutGroup("molecules").PutGroup("mol001")
	mol.PutStrings("species", []string{"H", "H", "O"})
	mol.PutFloats("coordinates", []int{2, 3, 3}, seq(0, 1, 18))
	// One energy for two coordinate frames.
	mol.PutFloats("energies", []int{1}, []float64{-1})
	mol.PutFloats("forces", []int{2, 3, 3}, seq(0, 1, 18))

	enum := NewEnumerator(archive.MapStore{"bad.h5": m}, []string{"bad.h5"})
	_, err := enum.Collect()

	var shapeErr *ErrShapeMismatch
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "energy frames", shapeErr.Axis)
}

func TestEnumeratorAtomCountMismatch(t *testing.T) {
	m := archive.NewMemory()
	mol := m.Root().PutGroup("molecules").PutGroup("mol001")
	mol.PutStrings("species", []string{"H", "H", "O"})
	// Forces carry 2 atoms, species carries 3.
	mol.PutFloats("coordinates", []int{1, 3, 3}, seq(0, 1, 9))
	mol.PutFloats("energies", []int{1}, []float64{-1})
	mol.PutFloats("forces", []int{1, 2, 3}, seq(0, 1, 6))

	enum := NewEnumerator(archive.MapStore{"bad.h5": m}, []string{"bad.h5"})
	_, err := enum.Collect()

	var shapeErr *ErrShapeMismatch
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "forces atoms", shapeErr.Axis)
	assert.Equal(t, 3, shapeErr.Want)
	assert.Equal(t, 2, shapeErr.Got)
}

func TestEnumeratorMissingArchive(t *testing.T) {
	enum := NewEnumerator(archive.MapStore{}, []string{"absent.h5"})
	_, err := enum.Collect()
	require.ErrorIs(t, err, ErrMissingArchive)
}

func TestEnumeratorFilterAndTransform(t *testing.T) {
	store := archive.MapStore{"water.h5": waterArchive(4)}

	var filtered int
	enum := NewEnumerator(store, []string{"water.h5"},
		WithSampleFilter(func(s *Sample) bool {
			filtered++
			// Keep every other frame, judged by the raw sample.
			return filtered%2 == 1
		}),
		WithSampleTransform(func(s *Sample) *Sample {
			s.Tag = "transformed"
			return s
		}),
	)

	samples, err := enum.Collect()
	require.NoError(t, err)
	require.Len(t, samples, 2)
	for _, s := range samples {
		assert.Equal(t, "transformed", s.Tag)
	}
}

func TestEnumeratorProvenance(t *testing.T) {
	store := archive.MapStore{"water.h5": waterArchive(1)}
	enum := NewEnumerator(store, []string{"water.h5"}, WithProvenance(true))

	samples, err := enum.Collect()
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "water.h5_mol001", samples[0].Tag)
}

func TestEnumeratorFlatten(t *testing.T) {
	store := archive.MapStore{"water.h5": waterArchive(3)}
	ds, err := NewEnumerator(store, []string{"water.h5"}).Flatten()
	require.NoError(t, err)

	require.Equal(t, 3, ds.Len())
	s, err := ds.Get(2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 8}, s.Z)

	_, err = ds.Get(3)
	var rangeErr *ErrIndexOutOfRange
	require.ErrorAs(t, err, &rangeErr)
}
