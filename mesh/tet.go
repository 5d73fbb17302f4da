package mesh

import (
	"fmt"
	"math"
	"sort"

	"github.com/notargets/FVKernel/field"
	gmesh "github.com/notargets/gocfd/DG3D/mesh"
	"github.com/notargets/gocfd/DG3D/mesh/readers"
	"gonum.org/v1/gonum/spatial/r3"
)

// BoundaryPatch is the patch name given to all boundary faces of a tet mesh
const BoundaryPatch = "boundary"

// tetFaces lists the local vertex triples of the four faces of a tetrahedron
var tetFaces = [4][3]int{{0, 1, 2}, {0, 1, 3}, {1, 2, 3}, {0, 2, 3}}

// TetMesh is a tetrahedral mesh whose cell volumes follow vertex motion
type TetMesh struct {
	*Mesh
	Reference []r3.Vec // vertex coordinates as read
	Vertices  []r3.Vec // current vertex coordinates
	EToV      [][4]int
	// BoundaryFaces holds (cell, local face) for each face of the boundary patch
	BoundaryFaces [][2]int
}

// ReadTetMesh reads a Gambit neutral or Gmsh file and builds the volume
// history of its tetrahedra. Lower dimensional elements are ignored.
func ReadTetMesh(path string) (*TetMesh, error) {
	gm, err := readers.ReadMeshFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mesh %s: %w", path, err)
	}
	verts := make([]r3.Vec, len(gm.Vertices))
	for i, v := range gm.Vertices {
		verts[i] = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	}
	var etov [][4]int
	for k := 0; k < gm.NumElements; k++ {
		et := gm.ElementTypes[k]
		if et.GetDimension() != 3 {
			continue
		}
		if et != gmesh.Tet && et != gmesh.Tet10 {
			return nil, fmt.Errorf("mesh %s: element %d is not tetrahedral (type=%v)",
				path, k, et)
		}
		nodes := gm.EtoV[k]
		if len(nodes) < 4 {
			return nil, fmt.Errorf("mesh %s: tetrahedral element %d has %d nodes",
				path, k, len(nodes))
		}
		etov = append(etov, [4]int{nodes[0], nodes[1], nodes[2], nodes[3]})
	}
	if len(etov) == 0 {
		return nil, fmt.Errorf("mesh %s does not have any tets", path)
	}
	return NewTetMesh(verts, etov)
}

// NewTetMesh builds a TetMesh from vertex coordinates and cell connectivity
func NewTetMesh(verts []r3.Vec, etov [][4]int) (*TetMesh, error) {
	for k, cell := range etov {
		for _, n := range cell {
			if n < 0 || n >= len(verts) {
				return nil, fmt.Errorf("cell %d references vertex %d of %d", k, n, len(verts))
			}
		}
	}
	tm := &TetMesh{
		Reference: append([]r3.Vec(nil), verts...),
		Vertices:  append([]r3.Vec(nil), verts...),
		EToV:      etov,
	}
	tm.BoundaryFaces = findBoundaryFaces(etov)
	m, err := NewStatic(tm.cellVolumes(), []field.PatchSpec{
		{Name: BoundaryPatch, Size: len(tm.BoundaryFaces)},
	})
	if err != nil {
		return nil, err
	}
	tm.Mesh = m
	return tm, nil
}

// Deform moves every vertex to fn(reference position) and pushes the new
// cell volumes into the volume history
func (tm *TetMesh) Deform(fn func(r3.Vec) r3.Vec) error {
	for i, x := range tm.Reference {
		tm.Vertices[i] = fn(x)
	}
	return tm.Move(tm.cellVolumes())
}

func (tm *TetMesh) cellVolumes() []float64 {
	vols := make([]float64, len(tm.EToV))
	for k, c := range tm.EToV {
		vols[k] = TetVolume(tm.Vertices[c[0]], tm.Vertices[c[1]],
			tm.Vertices[c[2]], tm.Vertices[c[3]])
	}
	return vols
}

// TetVolume returns the unsigned volume of the tetrahedron abcd
func TetVolume(a, b, c, d r3.Vec) float64 {
	ab, ac, ad := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(d, a)
	return math.Abs(r3.Dot(ab, r3.Cross(ac, ad))) / 6
}

// findBoundaryFaces returns faces owned by exactly one cell, in cell order
func findBoundaryFaces(etov [][4]int) [][2]int {
	type key [3]int
	count := make(map[key]int)
	faceKey := func(cell [4]int, f int) key {
		k := key{cell[tetFaces[f][0]], cell[tetFaces[f][1]], cell[tetFaces[f][2]]}
		sort.Ints(k[:])
		return k
	}
	for _, cell := range etov {
		for f := range tetFaces {
			count[faceKey(cell, f)]++
		}
	}
	var bf [][2]int
	for k, cell := range etov {
		for f := range tetFaces {
			if count[faceKey(cell, f)] == 1 {
				bf = append(bf, [2]int{k, f})
			}
		}
	}
	return bf
}
