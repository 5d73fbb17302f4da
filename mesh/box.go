package mesh

import (
	"fmt"

	"github.com/notargets/FVKernel/field"
)

// NewBox creates a uniform nx*ny*nz hexahedral box of size lx*ly*lz with the
// six patches xmin, xmax, ymin, ymax, zmin, zmax
func NewBox(nx, ny, nz int, lx, ly, lz float64) (*Mesh, error) {
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, fmt.Errorf("invalid box resolution %dx%dx%d", nx, ny, nz)
	}
	cellVol := (lx / float64(nx)) * (ly / float64(ny)) * (lz / float64(nz))
	volumes := make([]float64, nx*ny*nz)
	for i := range volumes {
		volumes[i] = cellVol
	}
	patches := []field.PatchSpec{
		{Name: "xmin", Size: ny * nz},
		{Name: "xmax", Size: ny * nz},
		{Name: "ymin", Size: nx * nz},
		{Name: "ymax", Size: nx * nz},
		{Name: "zmin", Size: nx * ny},
		{Name: "zmax", Size: nx * ny},
	}
	return NewStatic(volumes, patches)
}
