package mesh

import (
	"errors"
	"fmt"

	"github.com/notargets/FVKernel/field"
)

var (
	ErrNonPositiveVolume = errors.New("cell volume must be strictly positive")
	ErrCellCount         = errors.New("cell count mismatch")
)

// VolumeHistory exposes per-cell control volumes at the current and two
// previous time levels. For a mesh that has never moved all three levels hold
// identical values.
type VolumeHistory interface {
	field.Shape
	Moving() bool
	V() []float64
	V0() []float64
	V00() []float64
}

// Mesh is an in-memory VolumeHistory. Motion is applied through Move, which
// shifts the volume history by one level.
type Mesh struct {
	patches []field.PatchSpec
	v       []float64
	v0      []float64
	v00     []float64
	moving  bool
}

// NewStatic creates a mesh whose old volume levels are seeded from volumes
func NewStatic(volumes []float64, patches []field.PatchSpec) (*Mesh, error) {
	if err := Validate(volumes); err != nil {
		return nil, err
	}
	m := &Mesh{
		patches: append([]field.PatchSpec(nil), patches...),
		v:       append([]float64(nil), volumes...),
		v0:      append([]float64(nil), volumes...),
		v00:     append([]float64(nil), volumes...),
	}
	return m, nil
}

// Move installs the volumes of the new time level. After the first call the
// mesh reports Moving() == true.
func (m *Mesh) Move(volumes []float64) error {
	if len(volumes) != len(m.v) {
		return fmt.Errorf("move: got %d volumes for %d cells: %w",
			len(volumes), len(m.v), ErrCellCount)
	}
	if err := Validate(volumes); err != nil {
		return fmt.Errorf("move: %w", err)
	}
	// Rotate storage so no slice handed out earlier is written to
	m.v00, m.v0 = m.v0, m.v
	m.v = append([]float64(nil), volumes...)
	m.moving = true
	return nil
}

func (m *Mesh) NCells() int                   { return len(m.v) }
func (m *Mesh) PatchSpecs() []field.PatchSpec { return append([]field.PatchSpec(nil), m.patches...) }
func (m *Mesh) Moving() bool                  { return m.moving }
func (m *Mesh) V() []float64                  { return m.v }
func (m *Mesh) V0() []float64                 { return m.v0 }
func (m *Mesh) V00() []float64                { return m.v00 }

// NBoundaryFaces returns the total number of faces across all patches
func (m *Mesh) NBoundaryFaces() (n int) {
	for _, p := range m.patches {
		n += p.Size
	}
	return
}

// TotalVolume sums the current cell volumes
func (m *Mesh) TotalVolume() (vol float64) {
	for _, v := range m.v {
		vol += v
	}
	return
}

// Validate reports the first non-positive volume, if any
func Validate(volumes []float64) error {
	for i, v := range volumes {
		if !(v > 0) {
			return fmt.Errorf("cell %d has volume %g: %w", i, v, ErrNonPositiveVolume)
		}
	}
	return nil
}
