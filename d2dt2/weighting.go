package d2dt2

import (
	"github.com/notargets/FVKernel/field"
	"gonum.org/v1/gonum/floats"
)

// weighting selects one variant of
//
//	scale·(coefft·a·(φ - φ⁰) + coefft00·b·(φ⁰⁰ - φ⁰)) / V
//
// a and b hold per-entry weights (nil means 1). perV is nil when the result
// is not divided by the cell volume.
type weighting struct {
	scale float64
	a, b  []float64
	perV  []float64
}

func (w weighting) at(i int) (a, b float64) {
	if w.a == nil {
		return 1, 1
	}
	return w.a[i], w.b[i]
}

// blend evaluates the explicit formula at entry i. Differences are taken
// first so a value held constant over three levels gives exactly zero.
func blend[T field.Value[T]](c Coefficients, w weighting, i int, cur, old, oldOld T) T {
	a, b := w.at(i)
	neg := old.Scale(-1)
	r := cur.Add(neg).Scale(c.Coefft * a).
		Add(oldOld.Add(neg).Scale(c.Coefft00 * b)).
		Scale(w.scale)
	if w.perV != nil {
		r = r.Scale(1 / w.perV[i])
	}
	return r
}

// diagSource evaluates the implicit pair at entry i for the integrated
// weights a and b
func diagSource[T field.Value[T]](c Coefficients, w weighting, i int, old, oldOld T) (float64, T) {
	a, b := w.at(i)
	diag := c.Coefft * w.scale * a
	src := old.Scale(c.Coefft*a + c.Coefft00*b).
		Add(oldOld.Scale(-c.Coefft00 * b)).
		Scale(w.scale)
	return diag, src
}

// pairSums returns cur+old and old+oldOld
func pairSums[F ~float64](cur, old, oldOld []F) (a, b []float64) {
	a, b = make([]float64, len(cur)), make([]float64, len(cur))
	for i := range cur {
		a[i] = float64(cur[i] + old[i])
		b[i] = float64(old[i] + oldOld[i])
	}
	return
}

// mulWeights multiplies weight vectors where nil stands for all ones
func mulWeights(x, y []float64) []float64 {
	switch {
	case x == nil:
		return y
	case y == nil:
		return x
	}
	r := make([]float64, len(x))
	floats.MulTo(r, x, y)
	return r
}

// integrate multiplies weights by the cell volumes
func integrate(x, vols []float64) []float64 {
	if x == nil {
		return append([]float64(nil), vols...)
	}
	return mulWeights(x, vols)
}
