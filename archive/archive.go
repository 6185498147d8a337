// Package archive defines read-only access to hierarchical scientific
// containers: named groups carrying scalar attributes and bulk numeric
// datasets.
//
// The interfaces deliberately expose only what the indexing layer consumes
// (group listing, attribute scalars, flattened numeric arrays, unit
// attributes); on-disk format internals stay behind the concrete backends.
// archive/hdf5 reads HDF5 files, Memory backs tests.
//
// Stores hand out a fresh handle per Open call and callers close it when
// the read completes. Handles are never cached across operations: a handle
// opened before a process fork is unsafe in the children, and multi-worker
// data loaders fork routinely.
package archive

import "os"

// ErrNotFound is returned when an archive does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store opens archives by name.
type Store interface {
	// Open opens an archive for reading.
	Open(name string) (File, error)
}

// File is an open archive: its root group plus a handle to close.
type File interface {
	Group
	// Close releases the handle. Reads through groups or datasets
	// obtained from this file are invalid afterwards.
	Close() error
}

// Group is one level of the archive hierarchy.
type Group interface {
	// Groups returns the names of all child groups in sorted order.
	Groups() []string
	// Group opens the named child group.
	Group(name string) (Group, error)
	// HasGroup reports whether the named child group exists.
	HasGroup(name string) bool
	// Dataset opens the named child dataset.
	Dataset(name string) (Dataset, error)
	// AttrInt reads an integer scalar attribute.
	AttrInt(name string) (int64, error)
	// AttrFloat reads a float scalar attribute.
	AttrFloat(name string) (float64, error)
	// AttrString reads a string scalar attribute.
	AttrString(name string) (string, error)
}

// Dataset is a bulk array within a group. Numeric reads return the array
// flattened in row-major order; Dims describes the logical shape.
type Dataset interface {
	// Dims returns the dataset's dimensions.
	Dims() []int
	// Float64s reads the full dataset as a flat float64 slice.
	Float64s() ([]float64, error)
	// Ints reads the full dataset as a flat int64 slice.
	Ints() ([]int64, error)
	// Strings reads the full dataset as a string slice.
	Strings() ([]string, error)
	// AttrString reads a string scalar attribute of the dataset.
	AttrString(name string) (string, error)
}
