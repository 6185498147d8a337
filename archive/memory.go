package archive

import (
	"fmt"
	"sort"
)

// Memory is an in-memory archive implementation for testing.
// It holds groups, attributes and datasets without any filesystem
// dependency. Build the hierarchy with the chainable Put/Set helpers,
// then serve it through a MapStore.
type Memory struct {
	root *MemGroup
}

// NewMemory creates an empty in-memory archive.
func NewMemory() *Memory {
	return &Memory{root: newMemGroup()}
}

// Root returns the archive's root group for population.
func (m *Memory) Root() *MemGroup { return m.root }

// MapStore is a Store over named in-memory archives.
type MapStore map[string]*Memory

// Open opens the named archive. Unknown names fail with ErrNotFound.
func (s MapStore) Open(name string) (File, error) {
	m, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return &memFile{MemGroup: m.root}, nil
}

type memFile struct {
	*MemGroup
}

func (f *memFile) Close() error { return nil }

type memAttr struct {
	isString bool
	isFloat  bool
	i        int64
	f        float64
	s        string
}

// MemGroup is one group of an in-memory archive.
type MemGroup struct {
	groups   map[string]*MemGroup
	datasets map[string]*MemDataset
	attrs    map[string]memAttr
}

func newMemGroup() *MemGroup {
	return &MemGroup{
		groups:   make(map[string]*MemGroup),
		datasets: make(map[string]*MemDataset),
		attrs:    make(map[string]memAttr),
	}
}

// PutGroup returns the named child group, creating it if needed.
func (g *MemGroup) PutGroup(name string) *MemGroup {
	child, ok := g.groups[name]
	if !ok {
		child = newMemGroup()
		g.groups[name] = child
	}
	return child
}

// SetAttrInt sets an integer attribute and returns the group for chaining.
func (g *MemGroup) SetAttrInt(name string, v int64) *MemGroup {
	g.attrs[name] = memAttr{i: v}
	return g
}

// SetAttrFloat sets a float attribute and returns the group for chaining.
func (g *MemGroup) SetAttrFloat(name string, v float64) *MemGroup {
	g.attrs[name] = memAttr{isFloat: true, f: v}
	return g
}

// SetAttrString sets a string attribute and returns the group for chaining.
func (g *MemGroup) SetAttrString(name, v string) *MemGroup {
	g.attrs[name] = memAttr{isString: true, s: v}
	return g
}

// PutFloats adds a float dataset with the given shape.
func (g *MemGroup) PutFloats(name string, dims []int, data []float64) *MemDataset {
	ds := &MemDataset{dims: dims, floats: data, attrs: make(map[string]string)}
	g.datasets[name] = ds
	return ds
}

// PutInts adds an integer dataset with the given shape.
func (g *MemGroup) PutInts(name string, dims []int, data []int64) *MemDataset {
	ds := &MemDataset{dims: dims, ints: data, attrs: make(map[string]string)}
	g.datasets[name] = ds
	return ds
}

// PutStrings adds a string dataset.
func (g *MemGroup) PutStrings(name string, data []string) *MemDataset {
	ds := &MemDataset{dims: []int{len(data)}, strings: data, attrs: make(map[string]string)}
	g.datasets[name] = ds
	return ds
}

func (g *MemGroup) Groups() []string {
	names := make([]string, 0, len(g.groups))
	for name := range g.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *MemGroup) Group(name string) (Group, error) {
	child, ok := g.groups[name]
	if !ok {
		return nil, fmt.Errorf("group %q not found", name)
	}
	return child, nil
}

func (g *MemGroup) HasGroup(name string) bool {
	_, ok := g.groups[name]
	return ok
}

func (g *MemGroup) Dataset(name string) (Dataset, error) {
	ds, ok := g.datasets[name]
	if !ok {
		return nil, fmt.Errorf("dataset %q not found", name)
	}
	return ds, nil
}

func (g *MemGroup) AttrInt(name string) (int64, error) {
	a, ok := g.attrs[name]
	if !ok {
		return 0, fmt.Errorf("attribute %q not found", name)
	}
	if a.isString {
		return 0, fmt.Errorf("attribute %q is not numeric", name)
	}
	if a.isFloat {
		return int64(a.f), nil
	}
	return a.i, nil
}

func (g *MemGroup) AttrFloat(name string) (float64, error) {
	a, ok := g.attrs[name]
	if !ok {
		return 0, fmt.Errorf("attribute %q not found", name)
	}
	if a.isString {
		return 0, fmt.Errorf("attribute %q is not numeric", name)
	}
	if a.isFloat {
		return a.f, nil
	}
	return float64(a.i), nil
}

func (g *MemGroup) AttrString(name string) (string, error) {
	a, ok := g.attrs[name]
	if !ok {
		return "", fmt.Errorf("attribute %q not found", name)
	}
	if !a.isString {
		return "", fmt.Errorf("attribute %q is not a string", name)
	}
	return a.s, nil
}

// MemDataset is a dataset of an in-memory archive.
type MemDataset struct {
	dims    []int
	floats  []float64
	ints    []int64
	strings []string
	attrs   map[string]string
}

// SetAttrString sets a string attribute and returns the dataset for chaining.
func (d *MemDataset) SetAttrString(name, v string) *MemDataset {
	d.attrs[name] = v
	return d
}

func (d *MemDataset) Dims() []int {
	dims := make([]int, len(d.dims))
	copy(dims, d.dims)
	return dims
}

func (d *MemDataset) Float64s() ([]float64, error) {
	if d.floats == nil {
		return nil, fmt.Errorf("dataset is not float-typed")
	}
	// Return a copy to prevent external mutation
	out := make([]float64, len(d.floats))
	copy(out, d.floats)
	return out, nil
}

func (d *MemDataset) Ints() ([]int64, error) {
	if d.ints == nil {
		return nil, fmt.Errorf("dataset is not integer-typed")
	}
	out := make([]int64, len(d.ints))
	copy(out, d.ints)
	return out, nil
}

func (d *MemDataset) Strings() ([]string, error) {
	if d.strings == nil {
		return nil, fmt.Errorf("dataset is not string-typed")
	}
	out := make([]string, len(d.strings))
	copy(out, d.strings)
	return out, nil
}

func (d *MemDataset) AttrString(name string) (string, error) {
	v, ok := d.attrs[name]
	if !ok {
		return "", fmt.Errorf("attribute %q not found", name)
	}
	return v, nil
}
