package dimension

import "fmt"

// Scalar is a named single value carrying dimensions, e.g. a uniform density
type Scalar struct {
	Name  string
	Dims  Set
	Value float64
}

func NewScalar(name string, dims Set, value float64) Scalar {
	return Scalar{Name: name, Dims: dims, Value: value}
}

func (s Scalar) Add(o Scalar) (Scalar, error) {
	if err := Check(s.Dims, o.Dims, s.Name+" + "+o.Name); err != nil {
		return Scalar{}, err
	}
	return Scalar{Name: s.Name + "+" + o.Name, Dims: s.Dims, Value: s.Value + o.Value}, nil
}

func (s Scalar) Sub(o Scalar) (Scalar, error) {
	if err := Check(s.Dims, o.Dims, s.Name+" - "+o.Name); err != nil {
		return Scalar{}, err
	}
	return Scalar{Name: s.Name + "-" + o.Name, Dims: s.Dims, Value: s.Value - o.Value}, nil
}

func (s Scalar) Mul(o Scalar) Scalar {
	return Scalar{Name: s.Name + "*" + o.Name, Dims: s.Dims.Mul(o.Dims), Value: s.Value * o.Value}
}

func (s Scalar) Div(o Scalar) Scalar {
	return Scalar{Name: s.Name + "|" + o.Name, Dims: s.Dims.Div(o.Dims), Value: s.Value / o.Value}
}

func (s Scalar) String() string {
	return fmt.Sprintf("%s %v %g", s.Name, s.Dims, s.Value)
}
