// Package hdf5 implements archive.Store for HDF5 files using the pure-Go
// scigolib reader. No cgo, no libhdf5 — archives stay readable from forked
// data-loader workers without shared native handles.
package hdf5

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/scigolib/hdf5"

	"github.com/qmdata/confset/archive"
)

// Store opens HDF5 archives relative to a root directory.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Open opens the named archive. Each call opens a fresh handle; callers
// close the returned File when the read completes.
func (s *Store) Open(name string) (archive.File, error) {
	path := filepath.Join(s.root, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", archive.ErrNotFound, path)
	}
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &file{f: f, group: group{g: f.Root(), path: path}}, nil
}

type file struct {
	group
	f *hdf5.File
}

func (f *file) Close() error { return f.f.Close() }

type group struct {
	g    *hdf5.Group
	path string
}

func (g group) Groups() []string {
	var names []string
	for _, child := range g.g.Children() {
		if _, ok := child.(*hdf5.Group); ok {
			names = append(names, child.Name())
		}
	}
	sort.Strings(names)
	return names
}

func (g group) Group(name string) (archive.Group, error) {
	child := g.childGroup(name)
	if child == nil {
		return nil, fmt.Errorf("%s: group %q: not found", g.path, name)
	}
	return group{g: child, path: g.path + "/" + name}, nil
}

func (g group) HasGroup(name string) bool {
	return g.childGroup(name) != nil
}

func (g group) childGroup(name string) *hdf5.Group {
	for _, child := range g.g.Children() {
		if grp, ok := child.(*hdf5.Group); ok && grp.Name() == name {
			return grp
		}
	}
	return nil
}

func (g group) Dataset(name string) (archive.Dataset, error) {
	for _, child := range g.g.Children() {
		ds, ok := child.(*hdf5.Dataset)
		if !ok || ds.Name() != name {
			continue
		}
		path := g.path + "/" + name
		info, err := ds.Info()
		if err != nil {
			return nil, fmt.Errorf("%s: shape: %w", path, err)
		}
		dims, err := parseDims(info)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return dataset{ds: ds, path: path, dims: dims}, nil
	}
	return nil, fmt.Errorf("%s: dataset %q: not found", g.path, name)
}

// attr finds the named attribute on the group and decodes its value. The
// reader exposes group attributes only as a full listing, so lookup scans.
func (g group) attr(name string) (any, error) {
	attrs, err := g.g.Attributes()
	if err != nil {
		return nil, fmt.Errorf("%s: attribute %q: %w", g.path, name, err)
	}
	for _, a := range attrs {
		if a.Name != name {
			continue
		}
		v, err := a.ReadValue()
		if err != nil {
			return nil, fmt.Errorf("%s: attribute %q: %w", g.path, name, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("%s: attribute %q: not found", g.path, name)
}

func (g group) AttrInt(name string) (int64, error) {
	v, err := g.attr(name)
	if err != nil {
		return 0, err
	}
	return toInt64(v, g.path, name)
}

func (g group) AttrFloat(name string) (float64, error) {
	v, err := g.attr(name)
	if err != nil {
		return 0, err
	}
	return toFloat64(v, g.path, name)
}

func (g group) AttrString(name string) (string, error) {
	v, err := g.attr(name)
	if err != nil {
		return "", err
	}
	return toString(v, g.path, name)
}

type dataset struct {
	ds   *hdf5.Dataset
	path string
	dims []int
}

func (d dataset) Dims() []int { return d.dims }

func (d dataset) Float64s() ([]float64, error) {
	data, err := d.ds.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read: %w", d.path, err)
	}
	return data, nil
}

// Ints reads an integer dataset. The reader widens every numeric element
// type to float64; converting back is exact for the magnitudes stored here
// (indices, counts, atomic numbers).
func (d dataset) Ints() ([]int64, error) {
	data, err := d.ds.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read: %w", d.path, err)
	}
	out := make([]int64, len(data))
	for i, x := range data {
		out[i] = int64(x)
	}
	return out, nil
}

func (d dataset) Strings() ([]string, error) {
	data, err := d.ds.ReadStrings()
	if err != nil {
		return nil, fmt.Errorf("%s: read: %w", d.path, err)
	}
	return data, nil
}

func (d dataset) AttrString(name string) (string, error) {
	v, err := d.ds.ReadAttribute(name)
	if err != nil {
		return "", fmt.Errorf("%s: attribute %q: %w", d.path, name, err)
	}
	return toString(v, d.path, name)
}

// dimsRe matches the dataspace segment of a dataset info line, e.g.
// "1D array [96]", "2D array [32 x 3]", "3D array [10 3 3]".
var dimsRe = regexp.MustCompile(`\d+D array \[([^\]]*)\]`)

// parseDims extracts the logical shape from the reader's dataset info
// string; the info line is the only shape accessor the reader exposes.
func parseDims(info string) ([]int, error) {
	if m := dimsRe.FindStringSubmatch(info); m != nil {
		var dims []int
		for _, field := range strings.Fields(m[1]) {
			if field == "x" {
				continue
			}
			n, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("shape %q: %w", info, err)
			}
			dims = append(dims, n)
		}
		return dims, nil
	}
	if strings.Contains(info, "scalar") {
		return nil, nil
	}
	return nil, fmt.Errorf("shape: cannot parse %q", info)
}

func toInt64(v any, path, name string) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float64:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("%s: attribute %q has type %T, want integer", path, name, v)
	}
}

func toFloat64(v any, path, name string) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("%s: attribute %q has type %T, want float", path, name, v)
	}
}

func toString(v any, path, name string) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	default:
		return "", fmt.Errorf("%s: attribute %q has type %T, want string", path, name, v)
	}
}
