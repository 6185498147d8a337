package confset

import (
	"errors"
	"fmt"
	"iter"
	"path"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/qmdata/confset/archive"
)

// Enumerator streams every frame of every molecule in a set of archives as
// one flat, restartable sample sequence.
//
// Each archive holds a single top-level group whose children are molecules.
// Per molecule the enumerator maps the species list to atomic numbers,
// converts energies and forces from Hartree to eV, subtracts the molecule's
// total reference energy, and emits one sample per stored frame. Malformed
// molecules (unknown species, disagreeing array shapes) abort the archive
// pass; there is no skip-and-continue.
type Enumerator struct {
	store      archive.Store
	paths      []string
	filter     func(*Sample) bool
	transform  func(*Sample) *Sample
	provenance bool
	logger     *Logger
}

// EnumeratorOption configures an Enumerator.
type EnumeratorOption func(*Enumerator)

// WithSampleFilter sets an inclusion predicate. It receives each fully
// built sample and may reject it before any transform is applied.
func WithSampleFilter(filter func(*Sample) bool) EnumeratorOption {
	return func(e *Enumerator) { e.filter = filter }
}

// WithSampleTransform sets a transform applied to each sample after
// filtering, just before it is yielded.
func WithSampleTransform(transform func(*Sample) *Sample) EnumeratorOption {
	return func(e *Enumerator) { e.transform = transform }
}

// WithProvenance tags each sample with "<archive>_<molecule id>".
func WithProvenance(enabled bool) EnumeratorOption {
	return func(e *Enumerator) { e.provenance = enabled }
}

// WithEnumeratorLogger sets the logger. Defaults to NoopLogger.
func WithEnumeratorLogger(logger *Logger) EnumeratorOption {
	return func(e *Enumerator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEnumerator creates an Enumerator over the named archives, in order.
func NewEnumerator(store archive.Store, paths []string, opts ...EnumeratorOption) *Enumerator {
	e := &Enumerator{
		store:  store,
		paths:  paths,
		logger: NoopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Samples returns the sample sequence: archives in input order, molecules
// in sorted group order, frames in storage order. The sequence is lazy and
// finite; re-invoking it replays the identical sequence, since archives are
// read-only. On failure it yields (nil, err) once and stops.
func (e *Enumerator) Samples() iter.Seq2[*Sample, error] {
	return func(yield func(*Sample, error) bool) {
		for _, name := range e.paths {
			if !e.enumerateArchive(name, yield) {
				return
			}
		}
	}
}

// Collect materializes the full sequence.
func (e *Enumerator) Collect() ([]*Sample, error) {
	var out []*Sample
	for s, err := range e.Samples() {
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Flatten materializes the sequence as a randomly addressable Dataset,
// suitable for composition into a Suite.
func (e *Enumerator) Flatten() (Dataset, error) {
	samples, err := e.Collect()
	if err != nil {
		return nil, err
	}
	return &sliceDataset{samples: samples}, nil
}

func (e *Enumerator) enumerateArchive(name string, yield func(*Sample, error) bool) bool {
	f, err := e.store.Open(name)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			err = fmt.Errorf("%w: %s", ErrMissingArchive, name)
		}
		yield(nil, err)
		return false
	}
	defer f.Close()

	tops := f.Groups()
	if len(tops) == 0 {
		return true
	}
	// Single top-level group whose children are the molecules.
	root, err := f.Group(tops[0])
	if err != nil {
		yield(nil, err)
		return false
	}

	e.logger.WithArchive(name).Debug("enumerating archive", "molecules", len(root.Groups()))

	for _, molID := range root.Groups() {
		mol, err := root.Group(molID)
		if err != nil {
			yield(nil, err)
			return false
		}
		if !e.emitMolecule(name, molID, mol, yield) {
			return false
		}
	}
	return true
}

// emitMolecule reads one molecule's arrays and yields its frames. Returns
// false when iteration must stop, either because the consumer broke out or
// because the molecule is malformed (the terminal error has been yielded).
func (e *Enumerator) emitMolecule(name, molID string, mol archive.Group, yield func(*Sample, error) bool) bool {
	z, err := readSpecies(molID, mol)
	if err != nil {
		yield(nil, err)
		return false
	}

	coords, frames, atoms, err := readFrameArray(molID, mol, "coordinates", len(z))
	if err != nil {
		yield(nil, err)
		return false
	}
	energiesDS, err := mol.Dataset("energies")
	if err != nil {
		yield(nil, err)
		return false
	}
	energies, err := energiesDS.Float64s()
	if err != nil {
		yield(nil, err)
		return false
	}
	forces, forceFrames, _, err := readFrameArray(molID, mol, "forces", len(z))
	if err != nil {
		yield(nil, err)
		return false
	}

	if len(energies) != frames {
		yield(nil, &ErrShapeMismatch{Entity: molID, Axis: "energy frames", Want: frames, Got: len(energies)})
		return false
	}
	if forceFrames != frames {
		yield(nil, &ErrShapeMismatch{Entity: molID, Axis: "force frames", Want: frames, Got: forceFrames})
		return false
	}

	// Convert once for the whole molecule: Hartree -> eV for energies and
	// forces, then shift energies down by the composition's baseline.
	floats.Scale(HartreeToEV, forces)
	refEnergy := ReferenceEnergy(z)

	tag := ""
	if e.provenance {
		tag = path.Base(name) + "_" + molID
	}

	for i := 0; i < frames; i++ {
		row := atoms * 3
		energy := energies[i]*HartreeToEV - refEnergy
		s := &Sample{
			Z:      z,
			Pos:    mat.NewDense(atoms, 3, coords[i*row:(i+1)*row]),
			Forces: mat.NewDense(atoms, 3, forces[i*row:(i+1)*row]),
			Energy: &energy,
			Tag:    tag,
		}
		if e.filter != nil && !e.filter(s) {
			continue
		}
		if e.transform != nil {
			s = e.transform(s)
		}
		if !yield(s, nil) {
			return false
		}
	}
	return true
}

// readSpecies maps the molecule's element symbols to atomic numbers.
func readSpecies(molID string, mol archive.Group) ([]int, error) {
	ds, err := mol.Dataset("species")
	if err != nil {
		return nil, err
	}
	symbols, err := ds.Strings()
	if err != nil {
		return nil, err
	}
	z := make([]int, len(symbols))
	for i, sym := range symbols {
		n, ok := AtomicNumber(sym)
		if !ok {
			return nil, &ErrUnknownElement{Symbol: sym, Molecule: molID}
		}
		z[i] = n
	}
	return z, nil
}

// readFrameArray reads a frames x atoms x 3 dataset and validates its shape
// against the molecule's atom count.
func readFrameArray(molID string, mol archive.Group, name string, wantAtoms int) (data []float64, frames, atoms int, err error) {
	ds, err := mol.Dataset(name)
	if err != nil {
		return nil, 0, 0, err
	}
	dims := ds.Dims()
	if len(dims) != 3 || dims[2] != 3 {
		got := -1
		if len(dims) == 3 {
			got = dims[2]
		}
		return nil, 0, 0, &ErrShapeMismatch{Entity: molID, Axis: name + " columns", Want: 3, Got: got}
	}
	if dims[1] != wantAtoms {
		return nil, 0, 0, &ErrShapeMismatch{Entity: molID, Axis: name + " atoms", Want: wantAtoms, Got: dims[1]}
	}
	data, err = ds.Float64s()
	if err != nil {
		return nil, 0, 0, err
	}
	return data, dims[0], dims[1], nil
}
