// Package fvm holds implicit operator contributions of finite volume terms.
//
// A Matrix represents the equation Diag·ψ - Source = 0 per cell, where ψ is
// the unknown at the new time level and Source collects known old-time
// contributions. Only diagonal terms are represented; off-diagonal coupling
// from spatial operators is not part of this package.
package fvm

import (
	"errors"
	"fmt"

	"github.com/notargets/FVKernel/dimension"
	"github.com/notargets/FVKernel/field"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrSizeMismatch = errors.New("matrix size mismatch")
	ErrPsiMismatch  = errors.New("matrices are for different fields")
)

// Matrix is the per-cell diagonal and source of an implicit term in ψ
type Matrix[T field.Value[T]] struct {
	PsiName string
	PsiDims dimension.Set
	Dims    dimension.Set // dimensions of the integrated term
	Diag    []float64
	Source  []T
}

// New allocates a zero contribution for psi over nCells cells
func New[T field.Value[T]](psiName string, psiDims, dims dimension.Set, nCells int) *Matrix[T] {
	return &Matrix[T]{
		PsiName: psiName,
		PsiDims: psiDims,
		Dims:    dims,
		Diag:    make([]float64, nCells),
		Source:  make([]T, nCells),
	}
}

func (m *Matrix[T]) NCells() int { return len(m.Diag) }

// Residual returns Diag·ψ - Source
func (m *Matrix[T]) Residual(psi []T) ([]T, error) {
	if len(psi) != len(m.Diag) {
		return nil, fmt.Errorf("residual of %s: %d values for %d cells: %w",
			m.PsiName, len(psi), len(m.Diag), ErrSizeMismatch)
	}
	r := make([]T, len(psi))
	for i, v := range psi {
		r[i] = v.Scale(m.Diag[i]).Add(m.Source[i].Scale(-1))
	}
	return r, nil
}

// Add sums another contribution in ψ into m
func (m *Matrix[T]) Add(o *Matrix[T]) error {
	if err := m.checkCompatible(o, "+"); err != nil {
		return err
	}
	floats.Add(m.Diag, o.Diag)
	for i := range m.Source {
		m.Source[i] = m.Source[i].Add(o.Source[i])
	}
	return nil
}

// Sub subtracts another contribution in ψ from m
func (m *Matrix[T]) Sub(o *Matrix[T]) error {
	if err := m.checkCompatible(o, "-"); err != nil {
		return err
	}
	floats.Sub(m.Diag, o.Diag)
	for i := range m.Source {
		m.Source[i] = m.Source[i].Add(o.Source[i].Scale(-1))
	}
	return nil
}

func (m *Matrix[T]) Negate() { m.Scale(-1) }

func (m *Matrix[T]) Scale(f float64) {
	floats.Scale(f, m.Diag)
	for i := range m.Source {
		m.Source[i] = m.Source[i].Scale(f)
	}
}

// Sp adds the implicit linear source coeff·ψ integrated over the cell
// volumes. coeffDims must make coeff·ψ·V dimensionally consistent with m.
func (m *Matrix[T]) Sp(coeff []float64, coeffDims dimension.Set, vols []float64) error {
	if len(coeff) != len(m.Diag) || len(vols) != len(m.Diag) {
		return fmt.Errorf("Sp on %s: %d coefficients, %d volumes for %d cells: %w",
			m.PsiName, len(coeff), len(vols), len(m.Diag), ErrSizeMismatch)
	}
	term := coeffDims.Mul(m.PsiDims).Mul(dimension.Volume)
	if err := dimension.Check(m.Dims, term, "Sp("+m.PsiName+")"); err != nil {
		return err
	}
	for i := range m.Diag {
		m.Diag[i] += coeff[i] * vols[i]
	}
	return nil
}

func (m *Matrix[T]) checkCompatible(o *Matrix[T], op string) error {
	if m.PsiName != o.PsiName {
		return fmt.Errorf("%s %s %s: %w", m.PsiName, op, o.PsiName, ErrPsiMismatch)
	}
	if len(m.Diag) != len(o.Diag) {
		return fmt.Errorf("%s %s: %d vs %d cells: %w",
			m.PsiName, op, len(m.Diag), len(o.Diag), ErrSizeMismatch)
	}
	if err := dimension.Check(m.PsiDims, o.PsiDims, "unknown "+op+" on "+m.PsiName); err != nil {
		return err
	}
	return dimension.Check(m.Dims, o.Dims, "operator "+op+" on "+m.PsiName)
}
