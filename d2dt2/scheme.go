// Package d2dt2 implements the Euler second-order time derivative of finite
// volume fields on static and deforming meshes, for variable time steps.
//
// Explicit evaluation (Fvc*) returns a new field holding ∂²φ/∂t². Implicit
// assembly (Fvm*) returns the diagonal and source of the term integrated over
// the cell volumes. Each has an unweighted, a uniform density and a density
// field variant. All calls are stateless and read only the histories kept by
// the field, the mesh and the time controller.
package d2dt2

import (
	"errors"
	"fmt"

	"github.com/notargets/FVKernel/dimension"
	"github.com/notargets/FVKernel/field"
	"github.com/notargets/FVKernel/fvm"
	"github.com/notargets/FVKernel/mesh"
	"github.com/notargets/FVKernel/partitions"
	"github.com/notargets/FVKernel/timecontrol"
	"go.uber.org/zap"
)

// ErrMeshMismatch is returned when a field does not have the mesh cell count
var ErrMeshMismatch = errors.New("field does not match mesh")

var perTime2 = dimension.Time.Pow(-2)

type options struct {
	exec   partitions.Executor
	logger *zap.Logger
}

// Option configures a Scheme or a DeviceScheme
type Option func(*options)

// WithExecutor sets how cell loops are split across goroutines. The default
// runs inline.
func WithExecutor(e partitions.Executor) Option {
	return func(o *options) { o.exec = e }
}

// WithLogger sets the logger for per-call debug output. The default is a no-op.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{exec: partitions.Serial{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Scheme evaluates d2dt2 for fields with values of type T
type Scheme[T field.Value[T]] struct {
	mesh   mesh.VolumeHistory
	time   timecontrol.StepSizes
	exec   partitions.Executor
	logger *zap.Logger
}

// New creates a scheme over the volume history of m and the step sizes of t
func New[T field.Value[T]](m mesh.VolumeHistory, t timecontrol.StepSizes, opts ...Option) *Scheme[T] {
	o := buildOptions(opts)
	return &Scheme[T]{mesh: m, time: t, exec: o.exec, logger: o.logger}
}

// FvcD2dt2 returns d2dt2(vf)
func (s *Scheme[T]) FvcD2dt2(vf *field.Field[T]) (*field.Field[T], error) {
	if err := s.check(vf, nil); err != nil {
		return nil, err
	}
	c := s.coefficients("fvcD2dt2", vf.Name)
	res := field.New[T](fmt.Sprintf("d2dt2(%s)", vf.Name),
		vf.Dims.Mul(perTime2), vf.NCells(), vf.PatchSpecs())
	if err := s.explicit(c, res, vf, nil, 1); err != nil {
		return nil, err
	}
	return res, nil
}

// FvcD2dt2Uniform returns d2dt2(rho,vf) for a density constant in space and
// time, which is rho times the unweighted result
func (s *Scheme[T]) FvcD2dt2Uniform(rho dimension.Scalar, vf *field.Field[T]) (*field.Field[T], error) {
	if err := s.check(vf, nil); err != nil {
		return nil, err
	}
	c := s.coefficients("fvcD2dt2", rho.Name+","+vf.Name)
	res := field.New[T](fmt.Sprintf("d2dt2(%s,%s)", rho.Name, vf.Name),
		rho.Dims.Mul(vf.Dims).Mul(perTime2), vf.NCells(), vf.PatchSpecs())
	if err := s.explicit(c, res, vf, nil, rho.Value); err != nil {
		return nil, err
	}
	return res, nil
}

// FvcD2dt2Weighted returns d2dt2(rho,vf) for a density field with its own
// history. Time levels of rho are averaged pairwise with those of the volume.
func (s *Scheme[T]) FvcD2dt2Weighted(rho *field.Field[field.Scalar], vf *field.Field[T]) (*field.Field[T], error) {
	if err := s.check(vf, rho); err != nil {
		return nil, err
	}
	c := s.coefficients("fvcD2dt2", rho.Name+","+vf.Name)
	res := field.New[T](fmt.Sprintf("d2dt2(%s,%s)", rho.Name, vf.Name),
		rho.Dims.Mul(vf.Dims).Mul(perTime2), vf.NCells(), vf.PatchSpecs())
	if err := s.explicit(c, res, vf, rho, 1); err != nil {
		return nil, err
	}
	return res, nil
}

// FvmD2dt2 returns the implicit operator of d2dt2(vf) integrated over the
// cells
func (s *Scheme[T]) FvmD2dt2(vf *field.Field[T]) (*fvm.Matrix[T], error) {
	if err := s.check(vf, nil); err != nil {
		return nil, err
	}
	c := s.coefficients("fvmD2dt2", vf.Name)
	m := fvm.New[T](vf.Name, vf.Dims, vf.Dims.Mul(dimension.Volume).Mul(perTime2), vf.NCells())
	if err := s.implicit(c, m, vf, nil, 1); err != nil {
		return nil, err
	}
	return m, nil
}

// FvmD2dt2Uniform returns the implicit operator of d2dt2(rho,vf) for a
// density constant in space and time
func (s *Scheme[T]) FvmD2dt2Uniform(rho dimension.Scalar, vf *field.Field[T]) (*fvm.Matrix[T], error) {
	if err := s.check(vf, nil); err != nil {
		return nil, err
	}
	c := s.coefficients("fvmD2dt2", rho.Name+","+vf.Name)
	m := fvm.New[T](vf.Name, vf.Dims,
		rho.Dims.Mul(vf.Dims).Mul(dimension.Volume).Mul(perTime2), vf.NCells())
	if err := s.implicit(c, m, vf, nil, rho.Value); err != nil {
		return nil, err
	}
	return m, nil
}

// FvmD2dt2Weighted returns the implicit operator of d2dt2(rho,vf) for a
// density field with its own history
func (s *Scheme[T]) FvmD2dt2Weighted(rho *field.Field[field.Scalar], vf *field.Field[T]) (*fvm.Matrix[T], error) {
	if err := s.check(vf, rho); err != nil {
		return nil, err
	}
	c := s.coefficients("fvmD2dt2", rho.Name+","+vf.Name)
	m := fvm.New[T](vf.Name, vf.Dims,
		rho.Dims.Mul(vf.Dims).Mul(dimension.Volume).Mul(perTime2), vf.NCells())
	if err := s.implicit(c, m, vf, rho, 1); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Scheme[T]) explicit(c Coefficients, res, vf *field.Field[T],
	rho *field.Field[field.Scalar], factor float64) error {
	old, oldOld := vf.Old(), vf.OldOld()

	w := s.cellWeights(c, rho)
	w.scale *= factor
	err := s.exec.Run(vf.NCells(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			res.Internal[i] = blend(c, w, i, vf.Internal[i], old.Internal[i], oldOld.Internal[i])
		}
	})
	if err != nil {
		return fmt.Errorf("%s interior: %w", res.Name, err)
	}
	return s.boundary(c, res, vf, rho, factor)
}

// boundary evaluates the patch values of res. Boundary faces have no volume
// so only density weights them.
func (s *Scheme[T]) boundary(c Coefficients, res, vf *field.Field[T],
	rho *field.Field[field.Scalar], factor float64) error {
	old, oldOld := vf.Old(), vf.OldOld()
	for p := range vf.Patches {
		bw := weighting{scale: c.RDeltaT2 * factor}
		if rho != nil {
			bw.scale *= 0.5
			bw.a, bw.b = pairSums(rho.Patches[p].Values,
				rho.Old().Patches[p].Values, rho.OldOld().Patches[p].Values)
		}
		cur, o, oo := vf.Patches[p].Values, old.Patches[p].Values, oldOld.Patches[p].Values
		out := res.Patches[p].Values
		err := s.exec.Run(len(cur), func(lo, hi int) {
			for i := lo; i < hi; i++ {
				out[i] = blend(c, bw, i, cur[i], o[i], oo[i])
			}
		})
		if err != nil {
			return fmt.Errorf("%s patch %s: %w", res.Name, res.Patches[p].Name, err)
		}
	}
	return nil
}

func (s *Scheme[T]) implicit(c Coefficients, m *fvm.Matrix[T], vf *field.Field[T],
	rho *field.Field[field.Scalar], factor float64) error {
	old, oldOld := vf.Old(), vf.OldOld()

	w := s.cellWeights(c, rho)
	w.scale *= factor
	if w.perV == nil {
		// Static: integrate over V directly. Moving weights already carry
		// the pairwise volume sums.
		vols := s.mesh.V()
		w.a, w.b = integrate(w.a, vols), integrate(w.b, vols)
	}
	w.perV = nil
	err := s.exec.Run(vf.NCells(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			m.Diag[i], m.Source[i] = diagSource(c, w, i, old.Internal[i], oldOld.Internal[i])
		}
	})
	if err != nil {
		return fmt.Errorf("d2dt2 operator for %s: %w", vf.Name, err)
	}
	return nil
}

// cellWeights combines volume and density weights for the interior. Each
// pairwise sum of two time levels halves the scale.
func (s *Scheme[T]) cellWeights(c Coefficients, rho *field.Field[field.Scalar]) weighting {
	w := weighting{scale: c.RDeltaT2}
	if s.mesh.Moving() {
		w.a, w.b = pairSums(s.mesh.V(), s.mesh.V0(), s.mesh.V00())
		w.scale *= 0.5
		w.perV = s.mesh.V()
	}
	if rho != nil {
		ra, rb := pairSums(rho.Internal, rho.Old().Internal, rho.OldOld().Internal)
		w.a, w.b = mulWeights(w.a, ra), mulWeights(w.b, rb)
		w.scale *= 0.5
	}
	return w
}

func (s *Scheme[T]) coefficients(op, args string) Coefficients {
	c := coefficientsOf(s.time)
	s.logger.Debug(op,
		zap.String("args", args),
		zap.Bool("moving", s.mesh.Moving()),
		zap.Object("coefficients", c))
	return c
}

// check verifies that vf, and rho when given, match the mesh and carry two
// old-time levels
func (s *Scheme[T]) check(vf *field.Field[T], rho *field.Field[field.Scalar]) error {
	if !vf.SameShape(s.mesh) {
		return fmt.Errorf("%s: %d cells, mesh has %d: %w",
			vf.Name, vf.NCells(), s.mesh.NCells(), ErrMeshMismatch)
	}
	if err := vf.CheckHistory(2); err != nil {
		return err
	}
	if rho == nil {
		return nil
	}
	if !rho.SameShape(vf) {
		return fmt.Errorf("density %s does not match %s: %w",
			rho.Name, vf.Name, field.ErrShapeMismatch)
	}
	return rho.CheckHistory(2)
}
