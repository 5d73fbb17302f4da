package field

import (
	"errors"
	"fmt"

	"github.com/notargets/FVKernel/dimension"
)

var (
	ErrMissingHistory = errors.New("field has insufficient old-time history")
	ErrShapeMismatch  = errors.New("field shapes do not match")
)

// PatchSpec names a boundary patch and its number of faces
type PatchSpec struct {
	Name string
	Size int
}

// Patch holds one value per boundary face of a named patch
type Patch[T Value[T]] struct {
	Name   string
	Values []T
}

// Field is a cell-centred field with boundary face values and up to two
// retained old-time snapshots. The snapshots are owned by the field and are
// advanced only through StoreOldTimes or SetOldTimes.
type Field[T Value[T]] struct {
	Name     string
	Dims     dimension.Set
	Internal []T
	Patches  []Patch[T]

	old *Field[T]
}

// New allocates a zero valued field for nCells cells and the given patches
func New[T Value[T]](name string, dims dimension.Set, nCells int,
	patches []PatchSpec) *Field[T] {
	f := &Field[T]{
		Name:     name,
		Dims:     dims,
		Internal: make([]T, nCells),
		Patches:  make([]Patch[T], len(patches)),
	}
	for i, ps := range patches {
		f.Patches[i] = Patch[T]{Name: ps.Name, Values: make([]T, ps.Size)}
	}
	return f
}

// NewUniform allocates a field with every interior and boundary value set to v
func NewUniform[T Value[T]](name string, dims dimension.Set, nCells int,
	patches []PatchSpec, v T) *Field[T] {
	f := New[T](name, dims, nCells, patches)
	f.Fill(v)
	return f
}

// Fill sets every interior and boundary value to v
func (f *Field[T]) Fill(v T) {
	for i := range f.Internal {
		f.Internal[i] = v
	}
	for p := range f.Patches {
		for i := range f.Patches[p].Values {
			f.Patches[p].Values[i] = v
		}
	}
}

// NCells returns the number of interior values
func (f *Field[T]) NCells() int { return len(f.Internal) }

// PatchSpecs returns the boundary layout of the field
func (f *Field[T]) PatchSpecs() []PatchSpec {
	specs := make([]PatchSpec, len(f.Patches))
	for i, p := range f.Patches {
		specs[i] = PatchSpec{Name: p.Name, Size: len(p.Values)}
	}
	return specs
}

// Clone deep copies the current values. The clone carries no history.
func (f *Field[T]) Clone() *Field[T] {
	c := &Field[T]{
		Name:     f.Name,
		Dims:     f.Dims,
		Internal: make([]T, len(f.Internal)),
		Patches:  make([]Patch[T], len(f.Patches)),
	}
	copy(c.Internal, f.Internal)
	for i, p := range f.Patches {
		c.Patches[i] = Patch[T]{Name: p.Name, Values: make([]T, len(p.Values))}
		copy(c.Patches[i].Values, p.Values)
	}
	return c
}

// Shape is anything laid out as cells plus boundary patches: fields of any
// value type and meshes
type Shape interface {
	NCells() int
	PatchSpecs() []PatchSpec
}

// SameShape reports whether o has the same cell count and patch layout as f
func (f *Field[T]) SameShape(o Shape) bool {
	if f.NCells() != o.NCells() {
		return false
	}
	ps := o.PatchSpecs()
	if len(ps) != len(f.Patches) {
		return false
	}
	for i, p := range f.Patches {
		if len(p.Values) != ps[i].Size {
			return false
		}
	}
	return true
}

// Old returns the previous time level, or nil before the first StoreOldTimes
func (f *Field[T]) Old() *Field[T] { return f.old }

// OldOld returns the time level two steps back, or nil
func (f *Field[T]) OldOld() *Field[T] {
	if f.old == nil {
		return nil
	}
	return f.old.old
}

// NOldTimes returns the number of retained snapshots (0, 1 or 2)
func (f *Field[T]) NOldTimes() int {
	switch {
	case f.old == nil:
		return 0
	case f.old.old == nil:
		return 1
	default:
		return 2
	}
}

// StoreOldTimes is called by the time loop at the start of each step. The
// current values become old and the previous old values become old-old. On
// the first call both snapshots are seeded from the current value, so a
// second time derivative of a freshly initialised field is zero.
func (f *Field[T]) StoreOldTimes() {
	if f.old == nil {
		f.old = f.snapshot(f.Name + "_0")
		f.old.old = f.snapshot(f.Name + "_0_0")
		return
	}
	prev := f.old
	prev.old = nil
	prev.Name = f.Name + "_0_0"
	f.old = f.snapshot(f.Name + "_0")
	f.old.old = prev
}

// SetOldTimes installs explicit snapshots, e.g. when restarting from stored
// time levels. Both must match the shape and dimensions of f.
func (f *Field[T]) SetOldTimes(old, oldOld *Field[T]) error {
	for _, s := range []*Field[T]{old, oldOld} {
		if s == nil {
			return fmt.Errorf("%s: nil snapshot: %w", f.Name, ErrMissingHistory)
		}
		if !f.SameShape(s) {
			return fmt.Errorf("%s: snapshot %s: %w", f.Name, s.Name, ErrShapeMismatch)
		}
		if err := dimension.Check(f.Dims, s.Dims, f.Name+" snapshot "+s.Name); err != nil {
			return err
		}
	}
	o := old.Clone()
	o.Name = f.Name + "_0"
	oo := oldOld.Clone()
	oo.Name = f.Name + "_0_0"
	o.old = oo
	f.old = o
	return nil
}

// CheckHistory verifies that depth snapshots exist and match the field
func (f *Field[T]) CheckHistory(depth int) error {
	if n := f.NOldTimes(); n < depth {
		return fmt.Errorf("%s: need %d old-time levels, have %d: %w",
			f.Name, depth, n, ErrMissingHistory)
	}
	for s := f.old; s != nil && depth > 0; s, depth = s.old, depth-1 {
		if !f.SameShape(s) {
			return fmt.Errorf("%s: snapshot %s: %w", f.Name, s.Name, ErrShapeMismatch)
		}
	}
	return nil
}

func (f *Field[T]) snapshot(name string) *Field[T] {
	s := f.Clone()
	s.Name = name
	return s
}
