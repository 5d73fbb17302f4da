package field

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Value is the algebra a field's element type must support. Every
// discretization in this module is written against it, so scalar, vector and
// tensor fields share a single implementation.
type Value[T any] interface {
	Add(T) T
	Scale(float64) T
}

// Scalar is a single float64 per cell
type Scalar float64

func (s Scalar) Add(o Scalar) Scalar    { return s + o }
func (s Scalar) Scale(f float64) Scalar { return Scalar(f * float64(s)) }

// Vector is a 3 component vector
type Vector r3.Vec

func NewVector(x, y, z float64) Vector { return Vector{X: x, Y: y, Z: z} }

func (v Vector) Add(o Vector) Vector {
	return Vector(r3.Add(r3.Vec(v), r3.Vec(o)))
}

func (v Vector) Scale(f float64) Vector {
	return Vector(r3.Scale(f, r3.Vec(v)))
}

func (v Vector) Mag() float64 { return r3.Norm(r3.Vec(v)) }

// Tensor is a 3x3 tensor stored row major: xx xy xz yx yy yz zx zy zz
type Tensor [9]float64

func (t Tensor) Add(o Tensor) (r Tensor) {
	floats.AddTo(r[:], t[:], o[:])
	return
}

func (t Tensor) Scale(f float64) (r Tensor) {
	floats.ScaleTo(r[:], f, t[:])
	return
}

func (t Tensor) At(i, j int) float64 { return t[3*i+j] }

// Identity returns the unit tensor scaled by f
func Identity(f float64) Tensor {
	return Tensor{f, 0, 0, 0, f, 0, 0, 0, f}
}
