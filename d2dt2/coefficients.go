package d2dt2

import (
	"github.com/notargets/FVKernel/timecontrol"
	"go.uber.org/zap/zapcore"
)

// Coefficients blend the current, old and old-old values into a second
// derivative for variable step sizes. With dt == dt0 they reduce to
// 1, 1, 2 and 1/dt², the classical (φ - 2φ⁰ + φ⁰⁰)/dt².
type Coefficients struct {
	Coefft   float64 // (dt+dt0)/(2 dt)
	Coefft00 float64 // (dt+dt0)/(2 dt0)
	Coefft0  float64 // Coefft + Coefft00
	RDeltaT2 float64 // 4/(dt+dt0)²
}

// NewCoefficients assumes dt > 0 and dt0 > 0
func NewCoefficients(dt, dt0 float64) Coefficients {
	sum := dt + dt0
	c := Coefficients{
		Coefft:   sum / (2 * dt),
		Coefft00: sum / (2 * dt0),
		RDeltaT2: 4 / (sum * sum),
	}
	c.Coefft0 = c.Coefft + c.Coefft00
	return c
}

func coefficientsOf(t timecontrol.StepSizes) Coefficients {
	return NewCoefficients(t.DeltaT(), t.DeltaT0())
}

func (c Coefficients) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddFloat64("coefft", c.Coefft)
	enc.AddFloat64("coefft00", c.Coefft00)
	enc.AddFloat64("coefft0", c.Coefft0)
	enc.AddFloat64("rDeltaT2", c.RDeltaT2)
	return nil
}
