package confset

import "gonum.org/v1/gonum/mat"

// Sample is one conformation: the unit returned to a training consumer.
//
// Z is shared by reference across all samples of the same molecule or
// domain; Pos and Forces view the frame's rows of the underlying trajectory
// arrays. Samples are immutable by convention once emitted.
type Sample struct {
	// Z holds one atomic number per atom.
	Z []int
	// Pos is the coordinate frame, atoms x 3, in Angstrom.
	Pos *mat.Dense
	// Forces is the negated energy gradient, atoms x 3. Nil when the
	// source dataset carries no forces.
	Forces *mat.Dense
	// Energy is the reference-corrected potential energy in eV. Nil for
	// datasets that do not label energies.
	Energy *float64
	// Tag identifies the sample's provenance (archive and molecule id).
	// Empty unless provenance tagging is enabled.
	Tag string
}

// NumAtoms returns the number of atoms in the conformation.
func (s *Sample) NumAtoms() int { return len(s.Z) }
