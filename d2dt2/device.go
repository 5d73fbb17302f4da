package d2dt2

import (
	"fmt"

	"github.com/notargets/FVKernel/dimension"
	"github.com/notargets/FVKernel/field"
	"github.com/notargets/FVKernel/fvm"
	"github.com/notargets/FVKernel/mesh"
	"github.com/notargets/FVKernel/partitions"
	"github.com/notargets/FVKernel/runner"
	"github.com/notargets/FVKernel/runner/builder"
	"github.com/notargets/FVKernel/timecontrol"
	"github.com/notargets/gocca"
	"go.uber.org/zap"
)

// DeviceScheme evaluates d2dt2 of scalar fields with generated OCCA kernels.
// Cell values run on the device, partitioned into blocks of about
// partitionSize cells. Boundary values are few and evaluated on the host.
//
// A DeviceScheme owns device memory and is not safe for concurrent use.
type DeviceScheme struct {
	host    *Scheme[field.Scalar]
	device  *gocca.OCCADevice
	k       []int
	logger  *zap.Logger
	kernels map[builder.D2dt2Variant]*deviceKernel
}

// deviceKernel is one compiled variant with its bound host buffers
type deviceKernel struct {
	runner  *runner.Runner
	variant builder.D2dt2Variant
	buffers map[string][]float64
}

func NewDeviceScheme(device *gocca.OCCADevice, m mesh.VolumeHistory, t timecontrol.StepSizes,
	partitionSize int, opts ...Option) (*DeviceScheme, error) {
	if device == nil {
		return nil, fmt.Errorf("device scheme needs a device")
	}
	layout, err := (&partitions.PartitionBuilder{
		NumCells:            m.NCells(),
		TargetPartitionSize: partitionSize,
	}).BuildPartitions()
	if err != nil {
		return nil, fmt.Errorf("partitioning %d cells: %w", m.NCells(), err)
	}
	host := New[field.Scalar](m, t, opts...)
	return &DeviceScheme{
		host:    host,
		device:  device,
		k:       layout.K(),
		logger:  host.logger,
		kernels: make(map[builder.D2dt2Variant]*deviceKernel),
	}, nil
}

// Free releases the kernels and device memory of every compiled variant
func (ds *DeviceScheme) Free() {
	for v, dk := range ds.kernels {
		dk.runner.Free()
		delete(ds.kernels, v)
	}
}

func (ds *DeviceScheme) FvcD2dt2(vf *field.Field[field.Scalar]) (*field.Field[field.Scalar], error) {
	if err := ds.host.check(vf, nil); err != nil {
		return nil, err
	}
	c := ds.host.coefficients("fvcD2dt2", vf.Name)
	res := field.New[field.Scalar](fmt.Sprintf("d2dt2(%s)", vf.Name),
		vf.Dims.Mul(perTime2), vf.NCells(), vf.PatchSpecs())
	if err := ds.explicit(c, res, vf, nil, 1); err != nil {
		return nil, err
	}
	return res, nil
}

func (ds *DeviceScheme) FvcD2dt2Uniform(rho dimension.Scalar, vf *field.Field[field.Scalar]) (*field.Field[field.Scalar], error) {
	if err := ds.host.check(vf, nil); err != nil {
		return nil, err
	}
	c := ds.host.coefficients("fvcD2dt2", rho.Name+","+vf.Name)
	res := field.New[field.Scalar](fmt.Sprintf("d2dt2(%s,%s)", rho.Name, vf.Name),
		rho.Dims.Mul(vf.Dims).Mul(perTime2), vf.NCells(), vf.PatchSpecs())
	if err := ds.explicit(c, res, vf, nil, rho.Value); err != nil {
		return nil, err
	}
	return res, nil
}

func (ds *DeviceScheme) FvcD2dt2Weighted(rho, vf *field.Field[field.Scalar]) (*field.Field[field.Scalar], error) {
	if err := ds.host.check(vf, rho); err != nil {
		return nil, err
	}
	c := ds.host.coefficients("fvcD2dt2", rho.Name+","+vf.Name)
	res := field.New[field.Scalar](fmt.Sprintf("d2dt2(%s,%s)", rho.Name, vf.Name),
		rho.Dims.Mul(vf.Dims).Mul(perTime2), vf.NCells(), vf.PatchSpecs())
	if err := ds.explicit(c, res, vf, rho, 1); err != nil {
		return nil, err
	}
	return res, nil
}

func (ds *DeviceScheme) FvmD2dt2(vf *field.Field[field.Scalar]) (*fvm.Matrix[field.Scalar], error) {
	if err := ds.host.check(vf, nil); err != nil {
		return nil, err
	}
	c := ds.host.coefficients("fvmD2dt2", vf.Name)
	m := fvm.New[field.Scalar](vf.Name, vf.Dims, vf.Dims.Mul(dimension.Volume).Mul(perTime2), vf.NCells())
	if err := ds.implicit(c, m, vf, nil, 1); err != nil {
		return nil, err
	}
	return m, nil
}

func (ds *DeviceScheme) FvmD2dt2Uniform(rho dimension.Scalar, vf *field.Field[field.Scalar]) (*fvm.Matrix[field.Scalar], error) {
	if err := ds.host.check(vf, nil); err != nil {
		return nil, err
	}
	c := ds.host.coefficients("fvmD2dt2", rho.Name+","+vf.Name)
	m := fvm.New[field.Scalar](vf.Name, vf.Dims,
		rho.Dims.Mul(vf.Dims).Mul(dimension.Volume).Mul(perTime2), vf.NCells())
	if err := ds.implicit(c, m, vf, nil, rho.Value); err != nil {
		return nil, err
	}
	return m, nil
}

func (ds *DeviceScheme) FvmD2dt2Weighted(rho, vf *field.Field[field.Scalar]) (*fvm.Matrix[field.Scalar], error) {
	if err := ds.host.check(vf, rho); err != nil {
		return nil, err
	}
	c := ds.host.coefficients("fvmD2dt2", rho.Name+","+vf.Name)
	m := fvm.New[field.Scalar](vf.Name, vf.Dims,
		rho.Dims.Mul(vf.Dims).Mul(dimension.Volume).Mul(perTime2), vf.NCells())
	if err := ds.implicit(c, m, vf, rho, 1); err != nil {
		return nil, err
	}
	return m, nil
}

func (ds *DeviceScheme) explicit(c Coefficients, res, vf *field.Field[field.Scalar],
	rho *field.Field[field.Scalar], factor float64) error {
	v := builder.D2dt2Variant{Moving: ds.host.mesh.Moving(), Density: rho != nil}
	dk, err := ds.kernel(v)
	if err != nil {
		return err
	}
	dk.load(ds.host.mesh, vf, rho)
	if err := dk.run(c, ds.scale(c, v, factor)); err != nil {
		return fmt.Errorf("%s interior: %w", res.Name, err)
	}
	for i, x := range dk.buffers["out"] {
		res.Internal[i] = field.Scalar(x)
	}
	return ds.host.boundary(c, res, vf, rho, factor)
}

func (ds *DeviceScheme) implicit(c Coefficients, m *fvm.Matrix[field.Scalar], vf *field.Field[field.Scalar],
	rho *field.Field[field.Scalar], factor float64) error {
	v := builder.D2dt2Variant{Implicit: true, Moving: ds.host.mesh.Moving(), Density: rho != nil}
	dk, err := ds.kernel(v)
	if err != nil {
		return err
	}
	dk.load(ds.host.mesh, vf, rho)
	if err := dk.run(c, ds.scale(c, v, factor)); err != nil {
		return fmt.Errorf("d2dt2 operator for %s: %w", vf.Name, err)
	}
	copy(m.Diag, dk.buffers["diag"])
	for i, x := range dk.buffers["source"] {
		m.Source[i] = field.Scalar(x)
	}
	return nil
}

// scale matches cellWeights: each pairwise sum of time levels halves it
func (ds *DeviceScheme) scale(c Coefficients, v builder.D2dt2Variant, factor float64) float64 {
	scale := c.RDeltaT2 * factor
	if v.Moving {
		scale *= 0.5
	}
	if v.Density {
		scale *= 0.5
	}
	return scale
}

// kernel returns the compiled variant, building it on first use
func (ds *DeviceScheme) kernel(v builder.D2dt2Variant) (*deviceKernel, error) {
	if dk, ok := ds.kernels[v]; ok {
		return dk, nil
	}
	kr := runner.NewRunner(ds.device, builder.Config{K: ds.k}, runner.WithLogger(ds.logger))
	dk := &deviceKernel{runner: kr, variant: v, buffers: make(map[string][]float64)}

	n := kr.GetTotalElements()
	var (
		params  []*builder.ParamBuilder
		configs []*runner.ParamConfig
	)
	for _, name := range v.Inputs() {
		dk.buffers[name] = make([]float64, n)
		params = append(params, builder.Input(name).Bind(dk.buffers[name]).Align(builder.CacheLineAlign))
	}
	for _, name := range v.Outputs() {
		dk.buffers[name] = make([]float64, n)
		params = append(params, builder.Output(name).Bind(dk.buffers[name]).Align(builder.CacheLineAlign))
	}
	for _, name := range builder.D2dt2Scalars {
		params = append(params, builder.Scalar(name).Type(builder.Float64))
	}
	if err := kr.DefineBindings(params...); err != nil {
		kr.Free()
		return nil, err
	}
	if err := kr.AllocateDevice(); err != nil {
		kr.Free()
		return nil, err
	}
	for _, name := range v.Inputs() {
		configs = append(configs, kr.Param(name).CopyTo())
	}
	for _, name := range v.Outputs() {
		configs = append(configs, kr.Param(name).CopyBack())
	}
	for _, name := range builder.D2dt2Scalars {
		configs = append(configs, kr.Param(name))
	}
	if _, err := kr.ConfigureKernel(v.KernelName(), configs...); err != nil {
		kr.Free()
		return nil, err
	}
	if _, err := kr.BuildKernel(builder.D2dt2Kernel(v), v.KernelName()); err != nil {
		kr.Free()
		return nil, err
	}
	ds.kernels[v] = dk
	return dk, nil
}

// load copies the inputs of the variant into the bound host buffers
func (dk *deviceKernel) load(m mesh.VolumeHistory, vf, rho *field.Field[field.Scalar]) {
	setScalars := func(name string, src []field.Scalar) {
		if dst, ok := dk.buffers[name]; ok {
			for i, x := range src {
				dst[i] = float64(x)
			}
		}
	}
	setScalars("phi", vf.Internal)
	setScalars("phi0", vf.Old().Internal)
	setScalars("phi00", vf.OldOld().Internal)
	if rho != nil {
		setScalars("rho", rho.Internal)
		setScalars("rho0", rho.Old().Internal)
		setScalars("rho00", rho.OldOld().Internal)
	}
	copy(dk.buffers["V"], m.V())
	if dk.variant.Moving {
		copy(dk.buffers["V0"], m.V0())
		copy(dk.buffers["V00"], m.V00())
	}
}

func (dk *deviceKernel) run(c Coefficients, scale float64) error {
	return dk.runner.ExecuteKernel(dk.variant.KernelName(), c.Coefft, c.Coefft00, scale)
}
