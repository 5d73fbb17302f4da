package builder

import (
	"fmt"
)

// Direction indicates parameter data flow
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
	DirectionInOut
	DirectionScalar
)

// ParamBuilder provides a fluent interface for declaring kernel parameters
type ParamBuilder struct {
	Spec ParamSpec
}

// ParamSpec holds the complete specification for a kernel parameter. Array
// parameters are bound to flat host slices holding Stride values per cell in
// cell order.
type ParamSpec struct {
	Name      string
	Direction Direction

	HostArray  []float64
	HostScalar interface{}

	DataType DataType
	Size     int64 // values for arrays, 1 for scalars

	DoCopyTo   bool
	DoCopyBack bool

	Alignment AlignmentType
}

// Input creates a parameter specification for a const input
func Input(deviceName string) *ParamBuilder {
	return &ParamBuilder{Spec: ParamSpec{Name: deviceName, Direction: DirectionInput}}
}

// Output creates a parameter specification for a non-const output
func Output(deviceName string) *ParamBuilder {
	return &ParamBuilder{Spec: ParamSpec{Name: deviceName, Direction: DirectionOutput}}
}

// InOut creates a parameter specification for a non-const input/output
func InOut(deviceName string) *ParamBuilder {
	return &ParamBuilder{Spec: ParamSpec{Name: deviceName, Direction: DirectionInOut}}
}

// Scalar creates a parameter specification for a scalar value
func Scalar(deviceName string) *ParamBuilder {
	return &ParamBuilder{Spec: ParamSpec{Name: deviceName, Direction: DirectionScalar}}
}

// Bind associates a host variable with this parameter. Arrays bind a
// []float64, scalars a float64, float32, int32 or int64 default value.
func (p *ParamBuilder) Bind(hostVar interface{}) *ParamBuilder {
	switch v := hostVar.(type) {
	case []float64:
		p.Spec.HostArray = v
		p.Spec.Size = int64(len(v))
		p.Spec.DataType = Float64
	case float64:
		p.Spec.HostScalar, p.Spec.Size, p.Spec.DataType = v, 1, Float64
	case float32:
		p.Spec.HostScalar, p.Spec.Size, p.Spec.DataType = v, 1, Float32
	case int32:
		p.Spec.HostScalar, p.Spec.Size, p.Spec.DataType = v, 1, INT32
	case int, int64:
		p.Spec.HostScalar, p.Spec.Size, p.Spec.DataType = v, 1, INT64
	default:
		p.Spec.HostScalar = v
	}
	return p
}

// CopyTo sets host→device copy before kernel execution
func (p *ParamBuilder) CopyTo() *ParamBuilder {
	p.Spec.DoCopyTo = true
	return p
}

// CopyBack sets device→host copy after kernel execution
func (p *ParamBuilder) CopyBack() *ParamBuilder {
	p.Spec.DoCopyBack = true
	return p
}

// Type sets the type of a scalar declared without a binding
func (p *ParamBuilder) Type(dataType DataType) *ParamBuilder {
	p.Spec.DataType = dataType
	return p
}

// Align sets memory alignment requirements
func (p *ParamBuilder) Align(alignment AlignmentType) *ParamBuilder {
	p.Spec.Alignment = alignment
	return p
}

// Validate checks if the parameter specification is complete and valid
func (p *ParamSpec) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("parameter name cannot be empty")
	}
	if p.Direction == DirectionScalar {
		if p.DataType == 0 {
			return fmt.Errorf("scalar %s needs type or binding", p.Name)
		}
		if p.DoCopyTo || p.DoCopyBack {
			return fmt.Errorf("scalar %s cannot have copy operations", p.Name)
		}
		return nil
	}
	if p.HostArray == nil {
		if p.HostScalar != nil {
			return fmt.Errorf("array %s bound to unsupported host type %T", p.Name, p.HostScalar)
		}
		return fmt.Errorf("array %s needs a []float64 binding", p.Name)
	}
	if p.Size == 0 {
		return fmt.Errorf("array %s needs size", p.Name)
	}
	return nil
}

// IsConst returns whether this parameter should be const in the kernel signature
func (p *ParamSpec) IsConst() bool {
	switch p.Direction {
	case DirectionOutput, DirectionInOut:
		return false
	default:
		return true
	}
}
