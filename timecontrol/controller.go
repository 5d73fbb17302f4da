package timecontrol

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrDegenerateStep is returned for step sizes that are not strictly positive
var ErrDegenerateStep = errors.New("time step must be strictly positive")

// StepSizes is what a time discretization needs from the time controller
type StepSizes interface {
	DeltaT() float64  // current step
	DeltaT0() float64 // previous step
}

// Controller owns the current and previous step sizes
type Controller struct {
	time  float64
	index int
	dt    float64 // current step
	dt0   float64 // previous step
	last  float64 // dt of the most recent Advance
}

// New starts the clock at startTime. The previous step is taken equal to dt
// until a step has been completed.
func New(startTime, dt float64) (*Controller, error) {
	if !(dt > 0) {
		return nil, fmt.Errorf("initial step %g: %w", dt, ErrDegenerateStep)
	}
	return &Controller{time: startTime, dt: dt, dt0: dt, last: dt}, nil
}

func (c *Controller) DeltaT() float64  { return c.dt }
func (c *Controller) DeltaT0() float64 { return c.dt0 }
func (c *Controller) Time() float64    { return c.time }
func (c *Controller) Index() int       { return c.index }

// SetDeltaT changes the size of the next step. Once a step has been taken it
// does not affect DeltaT0.
func (c *Controller) SetDeltaT(dt float64) error {
	if !(dt > 0) {
		return fmt.Errorf("step %g at index %d: %w", dt, c.index, ErrDegenerateStep)
	}
	c.dt = dt
	if c.index == 0 {
		// No step taken yet, so the first step has no different predecessor
		c.dt0, c.last = dt, dt
	}
	return nil
}

// Advance moves the clock forward by DeltaT. Afterwards DeltaT0 is the size
// of the step taken by the previous Advance.
func (c *Controller) Advance() {
	c.dt0 = c.last
	c.last = c.dt
	c.time += c.dt
	c.index++
}

// Historian is anything that keeps old-time snapshots
type Historian interface {
	StoreOldTimes()
}

// Loop drives the controller and advances every tracked history at the start
// of each step. Histories are registered explicitly by the caller.
type Loop struct {
	*Controller
	tracked []Historian
	logger  *zap.Logger
}

func NewLoop(c *Controller, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{Controller: c, logger: logger}
}

// Track registers histories to be advanced by Step, in registration order
func (l *Loop) Track(h ...Historian) {
	l.tracked = append(l.tracked, h...)
}

// Step advances the clock and stores the old times of all tracked
// histories. The first Step seeds old and old-old snapshots from the initial
// values.
func (l *Loop) Step() {
	l.Advance()
	for _, h := range l.tracked {
		h.StoreOldTimes()
	}
	l.logger.Debug("time step",
		zap.Int("index", l.Index()),
		zap.Float64("time", l.Time()),
		zap.Float64("deltaT", l.DeltaT()),
		zap.Float64("deltaT0", l.DeltaT0()))
}

// Run steps until endTime is reached, calling body after each step. The step
// is clipped so the final time lands on endTime.
func (l *Loop) Run(endTime float64, body func(*Loop) error) error {
	const eps = 1e-12
	for l.Time() < endTime-eps*endTime {
		if remaining := endTime - l.Time(); l.DeltaT() > remaining {
			if err := l.SetDeltaT(remaining); err != nil {
				return err
			}
		}
		l.Step()
		if err := body(l); err != nil {
			return fmt.Errorf("step %d (t=%g): %w", l.Index(), l.Time(), err)
		}
	}
	return nil
}
