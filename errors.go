package confset

import (
	"errors"
	"fmt"
)

// ErrMissingArchive is returned when an archive that the index expects to
// exist (after any download step) is absent from the store.
//
// Implementations wrap it so callers can test with errors.Is.
var ErrMissingArchive = errors.New("archive not found")

// ErrUnknownElement indicates a species symbol outside the fixed element
// table. The whole archive pass is aborted; there is no per-molecule skip.
type ErrUnknownElement struct {
	Symbol   string
	Molecule string
}

func (e *ErrUnknownElement) Error() string {
	return fmt.Sprintf("unknown element %q in molecule %q", e.Symbol, e.Molecule)
}

// ErrShapeMismatch indicates that array dimensions disagree within one
// molecule or replica. Fatal; there is no partial-entity recovery.
type ErrShapeMismatch struct {
	Entity string // molecule id, or "domain/temperature/replica"
	Axis   string // which dimension disagrees, e.g. "frames", "atoms"
	Want   int
	Got    int
}

func (e *ErrShapeMismatch) Error() string {
	return fmt.Sprintf("shape mismatch in %s: %s is %d, want %d", e.Entity, e.Axis, e.Got, e.Want)
}

// ErrUnitMismatch indicates that a dataset declares a physical unit other
// than the one required. Fatal during index construction.
type ErrUnitMismatch struct {
	Entity  string
	Dataset string
	Want    string
	Got     string
}

func (e *ErrUnitMismatch) Error() string {
	return fmt.Sprintf("unit mismatch in %s: %s declares %q, want %q", e.Entity, e.Dataset, e.Got, e.Want)
}

// ErrIndexCountMismatch indicates that the flat index built from bulk arrays
// disagrees with the frame count accumulated during the metadata scan. The
// two phases must agree about qualification and striding; a mismatch is an
// internal-consistency failure and is never tolerated.
type ErrIndexCountMismatch struct {
	Want int // frames accumulated by the metadata scan
	Got  int // entries produced by the index build
}

func (e *ErrIndexCountMismatch) Error() string {
	return fmt.Sprintf("index count mismatch: built %d entries, metadata scan counted %d", e.Got, e.Want)
}

// ErrIndexOutOfRange indicates a flat index outside [0, Len).
type ErrIndexOutOfRange struct {
	Index int
	Len   int
}

func (e *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Len)
}
