package confset

import (
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/qmdata/confset/archive"
)

// Tolerances for matching recorded secondary-structure fractions against
// configured targets. Standard floating-point closeness, not equality:
// recorded fractions come from single-precision analysis pipelines.
const (
	fractionAbsTol = 1e-8
	fractionRelTol = 1e-5
)

// replicaPredicate decides whether one replica qualifies, reading only the
// replica group's attributes. Predicates compose with implicit AND: a
// replica qualifies iff every active predicate passes. Failing a predicate
// is a normal, silent exclusion, never an error; errors are reserved for
// unreadable metadata.
type replicaPredicate func(rg archive.Group) (bool, error)

// minFramesPredicate rejects replicas with fewer than min recorded frames.
func minFramesPredicate(min int) replicaPredicate {
	return func(rg archive.Group) (bool, error) {
		frames, err := rg.AttrInt("numFrames")
		if err != nil {
			return false, err
		}
		return frames >= int64(min), nil
	}
}

// gyrationFloorPredicate rejects replicas whose minimum gyration radius
// falls below the configured floor.
func gyrationFloorPredicate(floor float64) replicaPredicate {
	return func(rg archive.Group) (bool, error) {
		v, err := rg.AttrFloat("min_gyration_radius")
		if err != nil {
			return false, err
		}
		return v >= floor, nil
	}
}

// gyrationCeilingPredicate rejects replicas whose maximum gyration radius
// exceeds the configured ceiling.
func gyrationCeilingPredicate(ceiling float64) replicaPredicate {
	return func(rg archive.Group) (bool, error) {
		v, err := rg.AttrFloat("max_gyration_radius")
		if err != nil {
			return false, err
		}
		return v <= ceiling, nil
	}
}

// secondaryStructurePredicate requires the replica's recorded alpha-helix,
// beta-sheet and coil fractions to match the targets within closeness
// tolerance.
func secondaryStructurePredicate(alpha, beta, coil float64) replicaPredicate {
	targets := [3]float64{alpha, beta, coil}
	attrs := [3]string{"alpha", "beta", "coil"}
	return func(rg archive.Group) (bool, error) {
		for i, name := range attrs {
			v, err := rg.AttrFloat(name)
			if err != nil {
				return false, err
			}
			if !scalar.EqualWithinAbsOrRel(v, targets[i], fractionAbsTol, fractionRelTol) {
				return false, nil
			}
		}
		return true, nil
	}
}

// qualifiesReplica evaluates all predicates against one replica group.
func qualifiesReplica(preds []replicaPredicate, rg archive.Group) (bool, error) {
	for _, p := range preds {
		ok, err := p(rg)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
