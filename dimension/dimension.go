package dimension

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMismatch is returned when two quantities with different dimensions are
// combined additively
var ErrMismatch = errors.New("dimension mismatch")

// Index into a Set
const (
	MassIdx = iota
	LengthIdx
	TimeIdx
	TemperatureIdx
	MolesIdx
	CurrentIdx
	LuminousIdx
	nBase
)

// Set holds the SI base exponents of a physical quantity
type Set [nBase]float64

var (
	Dimless     = Set{}
	Mass        = Set{MassIdx: 1}
	Length      = Set{LengthIdx: 1}
	Time        = Set{TimeIdx: 1}
	Temperature = Set{TemperatureIdx: 1}
	Volume      = Length.Pow(3)
	Density     = Mass.Div(Volume)
)

// New builds a Set from exponents given in base order
func New(exps ...float64) (s Set) {
	if len(exps) > nBase {
		panic(fmt.Sprintf("dimension set takes at most %d exponents, got %d",
			nBase, len(exps)))
	}
	copy(s[:], exps)
	return
}

func (s Set) Mul(o Set) (r Set) {
	for i := range s {
		r[i] = s[i] + o[i]
	}
	return
}

func (s Set) Div(o Set) (r Set) {
	for i := range s {
		r[i] = s[i] - o[i]
	}
	return
}

func (s Set) Pow(n int) (r Set) {
	for i := range s {
		// +0 clears the sign of zero exponents so String never prints -0
		r[i] = s[i]*float64(n) + 0
	}
	return
}

func (s Set) Equal(o Set) bool {
	return s == o
}

func (s Set) IsDimensionless() bool {
	return s == Dimless
}

// String prints the bracket form used in field headers, e.g. [0 1 -2 0 0 0 0]
func (s Set) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, e := range s {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(fmt.Sprintf("%g", e))
	}
	sb.WriteString("]")
	return sb.String()
}

// Check returns an ErrMismatch wrapped error when a and b differ
func Check(a, b Set, op string) error {
	if a != b {
		return fmt.Errorf("%s: %v vs %v: %w", op, a, b, ErrMismatch)
	}
	return nil
}
