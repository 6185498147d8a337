package confset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/qmdata/confset/archive"
)

const (
	defaultSourceFile  = "source.h5"
	defaultMaxAtoms    = 5000
	defaultMaxResidues = 1000
	defaultTemperature = "348"

	coordsUnit = "Angstrom"
	forcesUnit = "kcal/mol/Angstrom"
)

// Unit identifies one qualifying trajectory of a domain.
type Unit struct {
	Temperature string
	Replica     string
}

// TrajSet is a metadata-driven selective dataset over a four-level archive
// hierarchy: domain -> temperature -> replica -> frame.
//
// Construction runs a qualification scan that touches only attributes of a
// source archive: domain-level thresholds (atom, residue, non-hydrogen atom
// counts) and per-replica predicates (frame count, gyration radius bounds,
// secondary-structure fractions). Qualifying (temperature, replica) pairs
// and their striped frame counts are recorded; no bulk array is read.
//
// The flat index over the actual coordinate and force arrays is built on
// the first Get. Len is valid before that and never triggers the build.
// The build is not safe against concurrent first access from multiple
// goroutines; serialize the first Get or call it once before fanning out.
type TrajSet struct {
	store      archive.Store
	sourceFile string

	maxAtoms     int
	maxResidues  int
	maxNonHAtoms *int
	temperatures []string
	stride       int
	allow        []string
	preds        []replicaPredicate

	logger  *Logger
	metrics MetricsCollector

	order []string          // qualifying domains, scan order
	units map[string][]Unit // qualifying units per domain
	total int               // frames accumulated by the scan

	idx []flatEntry // nil until the first Get
}

// flatEntry maps one global frame number to the source arrays and in-array
// offset needed to produce one sample. The z, coords and forces slices are
// shared by reference across all entries of the same replica.
type flatEntry struct {
	z      []int
	coords []float64
	forces []float64
	atoms  int
	frame  int // absolute frame offset within the replica arrays
}

// TrajSetOption configures a TrajSet.
type TrajSetOption func(*TrajSet)

// WithSourceFile names the metadata source archive. Defaults to "source.h5".
func WithSourceFile(name string) TrajSetOption {
	return func(t *TrajSet) { t.sourceFile = name }
}

// WithMaxAtoms sets the maximum atom count per domain. Defaults to 5000.
func WithMaxAtoms(max int) TrajSetOption {
	return func(t *TrajSet) { t.maxAtoms = max }
}

// WithMaxResidues sets the maximum residue count per domain. Defaults to 1000.
func WithMaxResidues(max int) TrajSetOption {
	return func(t *TrajSet) { t.maxResidues = max }
}

// WithMaxNonHAtoms sets the maximum non-hydrogen atom count per domain.
// Unset by default.
func WithMaxNonHAtoms(max int) TrajSetOption {
	return func(t *TrajSet) { t.maxNonHAtoms = &max }
}

// WithTemperatures sets the temperature labels to index, in evaluation
// order. Defaults to ["348"].
func WithTemperatures(labels []string) TrajSetOption {
	return func(t *TrajSet) { t.temperatures = labels }
}

// WithStride keeps every n-th frame of each trajectory, starting at frame 0.
// Defaults to 1 (keep all frames).
func WithStride(n int) TrajSetOption {
	return func(t *TrajSet) { t.stride = n }
}

// WithDomains restricts the scan to an explicit domain allowlist instead of
// every domain present in the source archive.
func WithDomains(ids []string) TrajSetOption {
	return func(t *TrajSet) { t.allow = ids }
}

// WithMinFrames rejects replicas with fewer recorded frames.
func WithMinFrames(min int) TrajSetOption {
	return func(t *TrajSet) { t.preds = append(t.preds, minFramesPredicate(min)) }
}

// WithMinGyrationRadius rejects replicas whose minimum gyration radius
// falls below the floor.
func WithMinGyrationRadius(floor float64) TrajSetOption {
	return func(t *TrajSet) { t.preds = append(t.preds, gyrationFloorPredicate(floor)) }
}

// WithMaxGyrationRadius rejects replicas whose maximum gyration radius
// exceeds the ceiling.
func WithMaxGyrationRadius(ceiling float64) TrajSetOption {
	return func(t *TrajSet) { t.preds = append(t.preds, gyrationCeilingPredicate(ceiling)) }
}

// WithSecondaryStructure requires the recorded alpha-helix, beta-sheet and
// coil fractions to match the targets within closeness tolerance.
func WithSecondaryStructure(alpha, beta, coil float64) TrajSetOption {
	return func(t *TrajSet) { t.preds = append(t.preds, secondaryStructurePredicate(alpha, beta, coil)) }
}

// WithTrajSetLogger sets the logger. Defaults to NoopLogger.
func WithTrajSetLogger(logger *Logger) TrajSetOption {
	return func(t *TrajSet) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithTrajSetMetrics sets the metrics collector. Defaults to no-op.
func WithTrajSetMetrics(collector MetricsCollector) TrajSetOption {
	return func(t *TrajSet) {
		if collector != nil {
			t.metrics = collector
		}
	}
}

// NewTrajSet runs the qualification scan and returns the dataset. The scan
// reads only metadata; any unreadable attribute or missing source archive
// is fatal to construction.
func NewTrajSet(store archive.Store, opts ...TrajSetOption) (*TrajSet, error) {
	t := &TrajSet{
		store:        store,
		sourceFile:   defaultSourceFile,
		maxAtoms:     defaultMaxAtoms,
		maxResidues:  defaultMaxResidues,
		temperatures: []string{defaultTemperature},
		stride:       1,
		logger:       NoopLogger(),
		metrics:      NoopMetricsCollector{},
		units:        make(map[string][]Unit),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.stride < 1 {
		t.stride = 1
	}
	if err := t.scan(); err != nil {
		return nil, err
	}
	return t, nil
}

// Len returns the total frame count accumulated by the qualification scan.
// It is stable and never triggers the flat-index build.
func (t *TrajSet) Len() int { return t.total }

// Domains returns the qualifying domain ids in scan order. Domains with
// zero qualifying (temperature, replica) pairs are absent entirely.
func (t *TrajSet) Domains() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Units returns the qualifying (temperature, replica) pairs of a domain and
// whether the domain is in the qualifying set.
func (t *TrajSet) Units(id string) ([]Unit, bool) {
	units, ok := t.units[id]
	if !ok {
		return nil, false
	}
	out := make([]Unit, len(units))
	copy(out, units)
	return out, true
}

// Get returns the sample at flat position i: atomic numbers, one coordinate
// frame and one force frame. Trajectory samples carry no energy label. The
// first call builds the flat index.
func (t *TrajSet) Get(i int) (*Sample, error) {
	start := time.Now()
	s, err := t.get(i)
	t.metrics.RecordGet(time.Since(start), err)
	return s, err
}

func (t *TrajSet) get(i int) (*Sample, error) {
	if i < 0 || i >= t.total {
		return nil, &ErrIndexOutOfRange{Index: i, Len: t.total}
	}
	if t.idx == nil {
		if err := t.build(); err != nil {
			return nil, err
		}
	}
	e := t.idx[i]
	row := e.atoms * 3
	off := e.frame * row
	return &Sample{
		Z:      e.z,
		Pos:    mat.NewDense(e.atoms, 3, e.coords[off:off+row]),
		Forces: mat.NewDense(e.atoms, 3, e.forces[off:off+row]),
	}, nil
}

// scan is phase one: qualify (domain, temperature, replica) triples from
// source-archive attributes alone and accumulate the striped frame total.
func (t *TrajSet) scan() error {
	start := time.Now()
	f, err := t.store.Open(t.sourceFile)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrMissingArchive, t.sourceFile)
		}
		return err
	}
	defer f.Close()

	candidates := t.allow
	if candidates == nil {
		candidates = f.Groups()
	}

	for _, id := range candidates {
		g, err := f.Group(id)
		if err != nil {
			return err
		}
		units, frames, err := t.scanDomain(id, g)
		if err != nil {
			return err
		}
		if len(units) == 0 {
			// Absent from the qualifying set, not present with an
			// empty list.
			continue
		}
		t.order = append(t.order, id)
		t.units[id] = units
		t.total += frames
	}

	t.logger.LogScan(context.Background(), len(candidates), len(t.order), t.total, time.Since(start))
	t.metrics.RecordScan(len(candidates), len(t.order), t.total, time.Since(start))
	return nil
}

func (t *TrajSet) scanDomain(id string, g archive.Group) ([]Unit, int, error) {
	atoms, err := g.AttrInt("numProteinAtoms")
	if err != nil {
		return nil, 0, err
	}
	if atoms > int64(t.maxAtoms) {
		t.logger.LogExcluded(context.Background(), id, "numProteinAtoms")
		return nil, 0, nil
	}
	residues, err := g.AttrInt("numResidues")
	if err != nil {
		return nil, 0, err
	}
	if residues > int64(t.maxResidues) {
		t.logger.LogExcluded(context.Background(), id, "numResidues")
		return nil, 0, nil
	}
	if t.maxNonHAtoms != nil {
		nonH, err := g.AttrInt("numNoHAtoms")
		if err != nil {
			return nil, 0, err
		}
		if nonH > int64(*t.maxNonHAtoms) {
			t.logger.LogExcluded(context.Background(), id, "numNoHAtoms")
			return nil, 0, nil
		}
	}

	var units []Unit
	frames := 0
	for _, temp := range t.temperatures {
		if !g.HasGroup(temp) {
			// A missing label ends temperature evaluation for the
			// whole domain; later labels are never examined. Kept
			// for parity with the reference scan. Pairs that
			// already qualified for earlier labels stay.
			break
		}
		tg, err := g.Group(temp)
		if err != nil {
			return nil, 0, err
		}
		for _, replica := range tg.Groups() {
			rg, err := tg.Group(replica)
			if err != nil {
				return nil, 0, err
			}
			ok, err := qualifiesReplica(t.preds, rg)
			if err != nil {
				return nil, 0, err
			}
			if !ok {
				continue
			}
			numFrames, err := rg.AttrInt("numFrames")
			if err != nil {
				return nil, 0, err
			}
			units = append(units, Unit{Temperature: temp, Replica: replica})
			frames += ceilDiv(int(numFrames), t.stride)
		}
	}
	return units, frames, nil
}

// build is phase two: walk the qualifying units in scan order, read the
// bulk arrays with the configured stride and lay out the flat index. The
// entry count must equal the scan's frame total.
func (t *TrajSet) build() error {
	start := time.Now()
	idx := make([]flatEntry, 0, t.total)
	for _, id := range t.order {
		if err := t.appendDomain(&idx, id); err != nil {
			t.logger.LogBuild(context.Background(), 0, time.Since(start), err)
			t.metrics.RecordBuild(0, time.Since(start), err)
			return err
		}
	}
	if len(idx) != t.total {
		err := &ErrIndexCountMismatch{Want: t.total, Got: len(idx)}
		t.logger.LogBuild(context.Background(), 0, time.Since(start), err)
		t.metrics.RecordBuild(0, time.Since(start), err)
		return err
	}
	t.idx = idx
	t.logger.LogBuild(context.Background(), len(idx), time.Since(start), nil)
	t.metrics.RecordBuild(len(idx), time.Since(start), nil)
	return nil
}

func (t *TrajSet) appendDomain(idx *[]flatEntry, id string) error {
	name := dataFileName(id)
	f, err := t.store.Open(name)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrMissingArchive, name)
		}
		return err
	}
	defer f.Close()

	g, err := f.Group(id)
	if err != nil {
		return err
	}
	zds, err := g.Dataset("z")
	if err != nil {
		return err
	}
	zraw, err := zds.Ints()
	if err != nil {
		return err
	}
	z := make([]int, len(zraw))
	for i, v := range zraw {
		z[i] = int(v)
	}

	for _, u := range t.units[id] {
		if err := t.appendUnit(idx, id, g, u, z); err != nil {
			return err
		}
	}
	return nil
}

func (t *TrajSet) appendUnit(idx *[]flatEntry, id string, g archive.Group, u Unit, z []int) error {
	entity := id + "/" + u.Temperature + "/" + u.Replica

	sims, err := g.Group(simGroupName(u.Temperature))
	if err != nil {
		return err
	}
	rg, err := sims.Group(u.Replica)
	if err != nil {
		return err
	}

	coords, coordFrames, err := t.readTrajArray(rg, entity, "coords", coordsUnit, len(z))
	if err != nil {
		return err
	}
	forces, forceFrames, err := t.readTrajArray(rg, entity, "forces", forcesUnit, len(z))
	if err != nil {
		return err
	}

	// Frame counts must agree after striding; the index references both
	// arrays at the same absolute offsets.
	kept := ceilDiv(coordFrames, t.stride)
	if ceilDiv(forceFrames, t.stride) != kept {
		return &ErrShapeMismatch{Entity: entity, Axis: "frames", Want: coordFrames, Got: forceFrames}
	}

	for frame := 0; frame < coordFrames; frame += t.stride {
		*idx = append(*idx, flatEntry{
			z:      z,
			coords: coords,
			forces: forces,
			atoms:  len(z),
			frame:  frame,
		})
	}
	return nil
}

// readTrajArray reads one frames x atoms x 3 trajectory dataset, checking
// its declared physical unit exactly and its atom dimension against the
// domain's atomic-number array.
func (t *TrajSet) readTrajArray(rg archive.Group, entity, name, wantUnit string, atoms int) ([]float64, int, error) {
	ds, err := rg.Dataset(name)
	if err != nil {
		return nil, 0, err
	}
	unit, err := ds.AttrString("unit")
	if err != nil {
		return nil, 0, err
	}
	if unit != wantUnit {
		return nil, 0, &ErrUnitMismatch{Entity: entity, Dataset: name, Want: wantUnit, Got: unit}
	}
	dims := ds.Dims()
	if len(dims) != 3 || dims[2] != 3 {
		got := -1
		if len(dims) == 3 {
			got = dims[2]
		}
		return nil, 0, &ErrShapeMismatch{Entity: entity, Axis: name + " columns", Want: 3, Got: got}
	}
	if dims[1] != atoms {
		return nil, 0, &ErrShapeMismatch{Entity: entity, Axis: name + " atoms", Want: atoms, Got: dims[1]}
	}
	data, err := ds.Float64s()
	if err != nil {
		return nil, 0, err
	}
	return data, dims[0], nil
}

// dataFileName names the per-domain data archive.
func dataFileName(id string) string { return "dataset_" + id + ".h5" }

// simGroupName names the trajectory group for a temperature label.
func simGroupName(temp string) string { return "sims" + temp + "K" }

func ceilDiv(n, d int) int { return (n + d - 1) / d }
