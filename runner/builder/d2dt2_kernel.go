package builder

import (
	"fmt"
	"strings"
)

// D2dt2Variant selects one generated second time derivative kernel
type D2dt2Variant struct {
	Implicit bool // diag and source instead of the explicit value
	Moving   bool // volume weighted
	Density  bool // weighted by a density field with history
}

// D2dt2Scalars are the scalar arguments of every d2dt2 kernel, in order
var D2dt2Scalars = []string{"coefft", "coefft00", "scale"}

func (v D2dt2Variant) KernelName() string {
	name := "d2dt2_fvc"
	if v.Implicit {
		name = "d2dt2_fvm"
	}
	if v.Moving {
		name += "_moving"
	} else {
		name += "_static"
	}
	if v.Density {
		name += "_rho"
	}
	return name
}

// Inputs lists the per-cell arrays read by the kernel
func (v D2dt2Variant) Inputs() []string {
	var in []string
	if !v.Implicit {
		in = append(in, "phi")
	}
	in = append(in, "phi0", "phi00")
	switch {
	case v.Moving:
		in = append(in, "V", "V0", "V00")
	case v.Implicit:
		in = append(in, "V")
	}
	if v.Density {
		in = append(in, "rho", "rho0", "rho00")
	}
	return in
}

// Outputs lists the per-cell arrays written by the kernel
func (v D2dt2Variant) Outputs() []string {
	if v.Implicit {
		return []string{"diag", "source"}
	}
	return []string{"out"}
}

// ParamSpecs returns unbound parameter specs in kernel argument order
func (v D2dt2Variant) ParamSpecs() []ParamSpec {
	var specs []ParamSpec
	for _, name := range v.Inputs() {
		specs = append(specs, Input(name).Spec)
	}
	for _, name := range v.Outputs() {
		specs = append(specs, Output(name).Spec)
	}
	for _, name := range D2dt2Scalars {
		specs = append(specs, Scalar(name).Type(Float64).Spec)
	}
	return specs
}

// weights returns the C expressions of the weights a and b, where the
// result is
//
//	scale*(coefft*a*(phi - phi0) + coefft00*b*(phi00 - phi0))
func (v D2dt2Variant) weights() (a, b string) {
	var as, bs []string
	switch {
	case v.Moving:
		as = append(as, "(V[cell] + V0[cell])")
		bs = append(bs, "(V0[cell] + V00[cell])")
	case v.Implicit:
		as = append(as, "V[cell]")
		bs = append(bs, "V[cell]")
	}
	if v.Density {
		as = append(as, "(rho[cell] + rho0[cell])")
		bs = append(bs, "(rho0[cell] + rho00[cell])")
	}
	if len(as) == 0 {
		return "REAL_ONE", "REAL_ONE"
	}
	return strings.Join(as, "*"), strings.Join(bs, "*")
}

// D2dt2Kernel generates the OKL source of the variant
func D2dt2Kernel(v D2dt2Variant) string {
	a, b := v.weights()
	var body strings.Builder
	body.WriteString(fmt.Sprintf("const real_t a = %s;\n", a))
	body.WriteString(fmt.Sprintf("const real_t b = %s;\n", b))
	if v.Implicit {
		body.WriteString("diag[cell] = coefft*scale*a;\n")
		body.WriteString("source[cell] = scale*((coefft*a + coefft00*b)*phi0[cell] - coefft00*b*phi00[cell]);\n")
	} else {
		body.WriteString("real_t r = scale*(coefft*a*(phi[cell] - phi0[cell]) + coefft00*b*(phi00[cell] - phi0[cell]));\n")
		if v.Moving {
			body.WriteString("r /= V[cell];\n")
		}
		body.WriteString("out[cell] = r;\n")
	}
	return GenerateCellKernel(v.KernelName(), v.ParamSpecs(), body.String())
}
