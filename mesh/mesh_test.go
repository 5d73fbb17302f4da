package mesh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/notargets/FVKernel/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewStaticSeedsHistory(t *testing.T) {
	m, err := NewStatic([]float64{1, 2}, []field.PatchSpec{{Name: "wall", Size: 3}})
	require.NoError(t, err)
	assert.False(t, m.Moving())
	assert.Equal(t, 2, m.NCells())
	assert.Equal(t, []float64{1, 2}, m.V())
	assert.Equal(t, m.V(), m.V0())
	assert.Equal(t, m.V(), m.V00())
	assert.Equal(t, 3, m.NBoundaryFaces())
	assert.Equal(t, 3.0, m.TotalVolume())
}

func TestNewStaticRejectsNonPositive(t *testing.T) {
	for _, vols := range [][]float64{{1, 0}, {-1}, {1, 2, -0.5}} {
		_, err := NewStatic(vols, nil)
		assert.ErrorIs(t, err, ErrNonPositiveVolume)
	}
}

func TestMoveShiftsHistory(t *testing.T) {
	m, err := NewStatic([]float64{1}, nil)
	require.NoError(t, err)

	require.NoError(t, m.Move([]float64{2}))
	assert.True(t, m.Moving())
	assert.Equal(t, []float64{2}, m.V())
	assert.Equal(t, []float64{1}, m.V0())
	assert.Equal(t, []float64{1}, m.V00())

	v := m.V()
	require.NoError(t, m.Move([]float64{3}))
	assert.Equal(t, []float64{3}, m.V())
	assert.Equal(t, []float64{2}, m.V0())
	assert.Equal(t, []float64{1}, m.V00())
	assert.Equal(t, []float64{2}, v, "previously returned slices are not overwritten")

	assert.ErrorIs(t, m.Move([]float64{1, 2}), ErrCellCount)
	assert.ErrorIs(t, m.Move([]float64{0}), ErrNonPositiveVolume)
}

func TestNewBox(t *testing.T) {
	m, err := NewBox(2, 3, 4, 1, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 24, m.NCells())
	assert.InDelta(t, 0.25, m.V()[0], 1e-15)
	assert.InDelta(t, 6.0, m.TotalVolume(), 1e-12)
	specs := m.PatchSpecs()
	require.Len(t, specs, 6)
	assert.Equal(t, field.PatchSpec{Name: "xmin", Size: 12}, specs[0])
	assert.Equal(t, field.PatchSpec{Name: "ymax", Size: 8}, specs[3])
	assert.Equal(t, field.PatchSpec{Name: "zmax", Size: 6}, specs[5])
	assert.Equal(t, 52, m.NBoundaryFaces())

	_, err = NewBox(0, 1, 1, 1, 1, 1)
	assert.Error(t, err)
}

// twoTets shares the face (1,2,3) between a corner tet and its mirror
func twoTets() ([]r3.Vec, [][4]int) {
	verts := []r3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1},
		{X: 1, Y: 1, Z: 1},
	}
	return verts, [][4]int{{0, 1, 2, 3}, {1, 2, 3, 4}}
}

func TestTetVolume(t *testing.T) {
	verts, etov := twoTets()
	c := etov[1]
	assert.InDelta(t, 1.0/6, TetVolume(verts[0], verts[1], verts[2], verts[3]), 1e-15)
	assert.InDelta(t, 1.0/3, TetVolume(verts[c[0]], verts[c[1]], verts[c[2]], verts[c[3]]), 1e-15)
	// Orientation does not change the sign
	assert.InDelta(t, 1.0/6, TetVolume(verts[1], verts[0], verts[2], verts[3]), 1e-15)
}

func TestNewTetMesh(t *testing.T) {
	verts, etov := twoTets()
	tm, err := NewTetMesh(verts, etov)
	require.NoError(t, err)
	assert.Equal(t, 2, tm.NCells())
	assert.InDelta(t, 0.5, tm.TotalVolume(), 1e-15)
	assert.Len(t, tm.BoundaryFaces, 6)
	assert.Equal(t, []field.PatchSpec{{Name: BoundaryPatch, Size: 6}}, tm.PatchSpecs())
	for _, bf := range tm.BoundaryFaces {
		assert.False(t, bf[0] == 0 && bf[1] == 2, "shared face must not be a boundary face")
	}

	_, err = NewTetMesh(verts, [][4]int{{0, 1, 2, 7}})
	assert.Error(t, err)

	// Coplanar points give a zero volume cell
	_, err = NewTetMesh(verts, [][4]int{{0, 1, 2, 2}})
	assert.ErrorIs(t, err, ErrNonPositiveVolume)
}

func TestTetMeshDeform(t *testing.T) {
	verts, etov := twoTets()
	tm, err := NewTetMesh(verts, etov)
	require.NoError(t, err)

	stretch := func(s float64) func(r3.Vec) r3.Vec {
		return func(x r3.Vec) r3.Vec { return r3.Vec{X: s * x.X, Y: x.Y, Z: x.Z} }
	}
	require.NoError(t, tm.Deform(stretch(2)))
	assert.True(t, tm.Moving())
	assert.InDelta(t, 1.0/3, tm.V()[0], 1e-15)
	assert.InDelta(t, 1.0/6, tm.V0()[0], 1e-15)

	// Deformation is applied to the reference coordinates, not accumulated
	require.NoError(t, tm.Deform(stretch(3)))
	assert.InDelta(t, 0.5, tm.V()[0], 1e-15)
	assert.InDelta(t, 1.0/3, tm.V0()[0], 1e-15)
	assert.InDelta(t, 1.0/6, tm.V00()[0], 1e-15)
	assert.Equal(t, 1.0, tm.Reference[1].X)
}

const twoTetNeutral = `        CONTROL INFO 2.0.0
** GAMBIT NEUTRAL FILE
Two tets
PROGRAM:                  Test     VERSION:  1.0
Mon Jan  1 00:00:00 2025
     NUMNP     NELEM     NGRPS    NBSETS     NDFCD     NDFVL
         5         2         1         1         3         3
ENDOFSECTION
   NODAL COORDINATES 2.0.0
         1   0.00000000000e+00   0.00000000000e+00   0.00000000000e+00
         2   1.00000000000e+00   0.00000000000e+00   0.00000000000e+00
         3   0.00000000000e+00   1.00000000000e+00   0.00000000000e+00
         4   0.00000000000e+00   0.00000000000e+00   1.00000000000e+00
         5   1.00000000000e+00   1.00000000000e+00   1.00000000000e+00
ENDOFSECTION
   ELEMENTS/CELLS 2.0.0
         1         6         4         1         2         3         4
         2         6         4         2         3         4         5
ENDOFSECTION
       BOUNDARY CONDITIONS 2.0.0
wall            1         1         0         0         0         0         0         0
         1         6         1
ENDOFSECTION`

func TestReadTetMesh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "two.neu")
	require.NoError(t, os.WriteFile(path, []byte(twoTetNeutral), 0644))

	tm, err := ReadTetMesh(path)
	require.NoError(t, err)
	assert.Equal(t, 2, tm.NCells())
	assert.InDelta(t, 0.5, tm.TotalVolume(), 1e-12)
	assert.Equal(t, 6, tm.NBoundaryFaces())

	_, err = ReadTetMesh(filepath.Join(t.TempDir(), "missing.neu"))
	assert.Error(t, err)
}
