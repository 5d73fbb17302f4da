package d2dt2

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/notargets/FVKernel/dimension"
	"github.com/notargets/FVKernel/field"
	"github.com/notargets/FVKernel/mesh"
	"github.com/notargets/FVKernel/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Device kernels may contract multiply-adds, so agreement is approximate
var deviceApprox = cmpopts.EquateApprox(1e-9, 1e-9)

func TestDeviceMatchesHost(t *testing.T) {
	device := utils.CreateTestDevice()
	defer device.Free()

	for _, moving := range []bool{false, true} {
		name := "static"
		if moving {
			name = "moving"
		}
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(5))
			m, err := mesh.NewBox(5, 4, 3, 1, 1, 1)
			require.NoError(t, err)
			n := m.NCells()
			if moving {
				for step := 0; step < 2; step++ {
					moved := make([]float64, n)
					for i, v := range m.V() {
						moved[i] = v * (1 + 0.2*rng.Float64())
					}
					require.NoError(t, m.Move(moved))
				}
			}
			vf := withHistory(t, "phi", m, randomValues(rng, n), randomValues(rng, n), randomValues(rng, n))
			rho := withHistory(t, "rho", m, filled(n, 1.2), filled(n, 1.1), filled(n, 0.9))
			rhoU := dimension.NewScalar("rho", dimension.Density, 2.5)
			time := steps{0.2, 0.1}

			host := New[field.Scalar](m, time)
			ds, err := NewDeviceScheme(device, m, time, 16)
			require.NoError(t, err)
			defer ds.Free()

			type fvc func() (*field.Field[field.Scalar], error)
			explicit := map[string][2]fvc{
				"plain": {
					func() (*field.Field[field.Scalar], error) { return host.FvcD2dt2(vf) },
					func() (*field.Field[field.Scalar], error) { return ds.FvcD2dt2(vf) },
				},
				"uniform": {
					func() (*field.Field[field.Scalar], error) { return host.FvcD2dt2Uniform(rhoU, vf) },
					func() (*field.Field[field.Scalar], error) { return ds.FvcD2dt2Uniform(rhoU, vf) },
				},
				"weighted": {
					func() (*field.Field[field.Scalar], error) { return host.FvcD2dt2Weighted(rho, vf) },
					func() (*field.Field[field.Scalar], error) { return ds.FvcD2dt2Weighted(rho, vf) },
				},
			}
			for variant, pair := range explicit {
				want, err := pair[0]()
				require.NoError(t, err)
				got, err := pair[1]()
				require.NoError(t, err, variant)
				assert.Equal(t, want.Name, got.Name)
				assert.Equal(t, want.Dims, got.Dims)
				if diff := cmp.Diff(floatsOf(want.Internal), floatsOf(got.Internal), deviceApprox); diff != "" {
					t.Errorf("%s interior mismatch (-host +device):\n%s", variant, diff)
				}
				assert.Equal(t, want.Patches, got.Patches, "%s boundary is evaluated on the host", variant)
			}

			wantM, err := host.FvmD2dt2Weighted(rho, vf)
			require.NoError(t, err)
			gotM, err := ds.FvmD2dt2Weighted(rho, vf)
			require.NoError(t, err)
			assert.Equal(t, wantM.Dims, gotM.Dims)
			if diff := cmp.Diff(wantM.Diag, gotM.Diag, deviceApprox); diff != "" {
				t.Errorf("diag mismatch (-host +device):\n%s", diff)
			}
			if diff := cmp.Diff(floatsOf(wantM.Source), floatsOf(gotM.Source), deviceApprox); diff != "" {
				t.Errorf("source mismatch (-host +device):\n%s", diff)
			}

			wantP, err := host.FvmD2dt2(vf)
			require.NoError(t, err)
			gotP, err := ds.FvmD2dt2(vf)
			require.NoError(t, err)
			if diff := cmp.Diff(wantP.Diag, gotP.Diag, deviceApprox); diff != "" {
				t.Errorf("plain diag mismatch (-host +device):\n%s", diff)
			}
			wantU, err := host.FvmD2dt2Uniform(rhoU, vf)
			require.NoError(t, err)
			gotU, err := ds.FvmD2dt2Uniform(rhoU, vf)
			require.NoError(t, err)
			if diff := cmp.Diff(floatsOf(wantU.Source), floatsOf(gotU.Source), deviceApprox); diff != "" {
				t.Errorf("uniform source mismatch (-host +device):\n%s", diff)
			}
		})
	}
}

func TestDeviceSchemeErrors(t *testing.T) {
	m := singleCell(t)
	_, err := NewDeviceScheme(nil, m, steps{0.1, 0.1}, 8)
	assert.Error(t, err)

	device := utils.CreateTestDevice()
	defer device.Free()
	_, err = NewDeviceScheme(device, m, steps{0.1, 0.1}, 0)
	assert.Error(t, err)

	ds, err := NewDeviceScheme(device, m, steps{0.1, 0.1}, 8)
	require.NoError(t, err)
	defer ds.Free()
	vf := field.New[field.Scalar]("phi", dimension.Length, 1, nil)
	_, err = ds.FvcD2dt2(vf)
	assert.ErrorIs(t, err, field.ErrMissingHistory)
}
