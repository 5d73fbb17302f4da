package main

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/notargets/FVKernel/d2dt2"
	"github.com/notargets/FVKernel/dimension"
	"github.com/notargets/FVKernel/field"
	"github.com/notargets/FVKernel/fvm"
	"github.com/notargets/FVKernel/mesh"
	"github.com/notargets/FVKernel/partitions"
	"github.com/notargets/FVKernel/timecontrol"
	"github.com/notargets/FVKernel/utils"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// operator is the implicit part of the d2dt2 scheme the oscillator needs.
// Both the host and the device schemes provide it.
type operator interface {
	FvmD2dt2Uniform(rho dimension.Scalar, vf *field.Field[field.Scalar]) (*fvm.Matrix[field.Scalar], error)
	FvmD2dt2Weighted(rho, vf *field.Field[field.Scalar]) (*fvm.Matrix[field.Scalar], error)
}

// Sample is the solution at one output time
type Sample struct {
	Time   float64
	DeltaT float64
	Mean   float64 // volume weighted mean of φ
	Exact  float64
}

// History is the result of a run
type History struct {
	RunID    string
	Case     string
	Cells    int
	Samples  []Sample
	MaxError float64
}

// movingMesh is the volume history of the case with its motion applied
type movingMesh interface {
	mesh.VolumeHistory
	moveTo(t float64) error
}

type boxMesh struct {
	*mesh.Mesh
	reference []float64
	motion    MeshMotion
}

func (b *boxMesh) moveTo(t float64) error {
	s := scaleAt(b.motion, t)
	vols := make([]float64, len(b.reference))
	for i, v := range b.reference {
		vols[i] = v * s * s * s
	}
	return b.Move(vols)
}

type tetMesh struct {
	*mesh.TetMesh
	motion MeshMotion
}

func (tm *tetMesh) moveTo(t float64) error {
	s := scaleAt(tm.motion, t)
	return tm.Deform(func(x r3.Vec) r3.Vec { return r3.Scale(s, x) })
}

func scaleAt(m MeshMotion, t float64) float64 {
	return 1 + m.Amplitude*math.Sin(2*math.Pi*m.Frequency*t)
}

func buildMesh(c *Case) (movingMesh, error) {
	if c.Mesh.File != "" {
		tm, err := mesh.ReadTetMesh(c.Mesh.File)
		if err != nil {
			return nil, err
		}
		return &tetMesh{TetMesh: tm, motion: c.Mesh.Motion}, nil
	}
	b := c.Mesh.Box
	m, err := mesh.NewBox(b.NX, b.NY, b.NZ, b.LX, b.LY, b.LZ)
	if err != nil {
		return nil, err
	}
	return &boxMesh{Mesh: m, reference: append([]float64(nil), m.V()...), motion: c.Mesh.Motion}, nil
}

// Simulate integrates the case. Each step assembles d2dt2(rho,phi) + rho ω² phi
// and solves the diagonal system cell by cell.
func Simulate(c *Case, logger *zap.Logger) (*History, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := uuid.New().String()
	logger = logger.With(zap.String("run", runID), zap.String("case", c.Name))

	m, err := buildMesh(c)
	if err != nil {
		return nil, err
	}
	n := m.NCells()

	ctrl, err := timecontrol.New(c.Time.Start, c.Time.DeltaT)
	if err != nil {
		return nil, err
	}
	loop := timecontrol.NewLoop(ctrl, logger)

	op, free, err := newOperator(c, m, ctrl, logger)
	if err != nil {
		return nil, err
	}
	defer free()

	phi := field.NewUniform[field.Scalar]("phi", dimension.Dimless, n,
		m.PatchSpecs(), field.Scalar(c.Physics.Amplitude))
	rhoU := dimension.NewScalar("rho", dimension.Density, c.Physics.Density)
	rho := field.NewUniform[field.Scalar]("rho", dimension.Density, n,
		m.PatchSpecs(), field.Scalar(c.Physics.Density))
	loop.Track(phi, rho)

	omega2 := c.Physics.Omega * c.Physics.Omega
	spCoeff := make([]float64, n)
	for i := range spCoeff {
		spCoeff[i] = c.Physics.Density * omega2
	}
	spDims := dimension.Density.Mul(dimension.Time.Pow(-2))

	h := &History{RunID: runID, Case: c.Name, Cells: n}
	h.record(c, ctrl, m, phi)
	logger.Info("starting run",
		zap.Int("cells", n),
		zap.Bool("device", c.Device.Enabled),
		zap.Float64("omega", c.Physics.Omega),
		zap.Float64("endTime", c.Time.End))

	schedule := c.Time.Schedule
	err = loop.Run(c.Time.End, func(l *timecontrol.Loop) error {
		if c.Mesh.Motion.Amplitude > 0 {
			if err := m.moveTo(l.Time()); err != nil {
				return err
			}
		}
		var eqn *fvm.Matrix[field.Scalar]
		var err error
		if c.Physics.DensityField {
			eqn, err = op.FvmD2dt2Weighted(rho, phi)
		} else {
			eqn, err = op.FvmD2dt2Uniform(rhoU, phi)
		}
		if err != nil {
			return err
		}
		if err := eqn.Sp(spCoeff, spDims, m.V()); err != nil {
			return err
		}
		for i := range phi.Internal {
			phi.Internal[i] = eqn.Source[i].Scale(1 / eqn.Diag[i])
		}
		if l.Index()%c.Output.Every == 0 {
			h.record(c, ctrl, m, phi)
		}

		for len(schedule) > 0 && l.Time() >= schedule[0].At {
			logger.Debug("step size change",
				zap.Float64("time", l.Time()),
				zap.Float64("deltaT", schedule[0].DeltaT))
			if err := l.SetDeltaT(schedule[0].DeltaT); err != nil {
				return err
			}
			schedule = schedule[1:]
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if last := h.Samples[len(h.Samples)-1]; last.Time < ctrl.Time() {
		h.record(c, ctrl, m, phi)
	}
	logger.Info("finished run",
		zap.Int("steps", ctrl.Index()),
		zap.Float64("time", ctrl.Time()),
		zap.Float64("maxError", h.MaxError))
	return h, nil
}

func newOperator(c *Case, m mesh.VolumeHistory, ctrl *timecontrol.Controller,
	logger *zap.Logger) (operator, func(), error) {
	if !c.Device.Enabled {
		pool := partitions.NewPool(c.Device.Workers, logger)
		return d2dt2.New[field.Scalar](m, ctrl, d2dt2.WithExecutor(pool), d2dt2.WithLogger(logger)),
			func() {}, nil
	}
	device, err := utils.CreateDevice(logger, c.Device.Backends...)
	if err != nil {
		return nil, nil, err
	}
	ds, err := d2dt2.NewDeviceScheme(device, m, ctrl, c.Device.PartitionSize, d2dt2.WithLogger(logger))
	if err != nil {
		device.Free()
		return nil, nil, err
	}
	return ds, func() {
		ds.Free()
		device.Free()
	}, nil
}

func (h *History) record(c *Case, ctrl *timecontrol.Controller, m mesh.VolumeHistory, phi *field.Field[field.Scalar]) {
	var sum, vol float64
	for i, v := range m.V() {
		sum += float64(phi.Internal[i]) * v
		vol += v
	}
	t := ctrl.Time() - c.Time.Start
	s := Sample{
		Time:   ctrl.Time(),
		DeltaT: ctrl.DeltaT(),
		Mean:   sum / vol,
		Exact:  c.Physics.Amplitude * math.Cos(c.Physics.Omega*t),
	}
	h.Samples = append(h.Samples, s)
	h.MaxError = math.Max(h.MaxError, math.Abs(s.Mean-s.Exact))
}
