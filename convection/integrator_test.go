package convection

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/notargets/PAKernel/device"
	"github.com/notargets/PAKernel/kernels"
	"github.com/notargets/PAKernel/mesh"
	"github.com/notargets/PAKernel/runner"
	"github.com/notargets/PAKernel/runner/builder"
	"github.com/notargets/PAKernel/utils"
	"github.com/notargets/PAKernel/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func referenceMesh(t *testing.T, dim, order, q1d int) *mesh.BoxMesh {
	t.Helper()
	m, err := mesh.NewBoxMesh(mesh.Config{
		Dim:      dim,
		Order:    order,
		Q1D:      q1d,
		Elements: [3]int{1, 1, 1},
		Lower:    [3]float64{-1, -1, -1},
		Upper:    [3]float64{1, 1, 1},
	})
	require.NoError(t, err)
	return m
}

func deformedMesh(t *testing.T, dim, order, n int) *mesh.BoxMesh {
	t.Helper()
	lower, upper := [3]float64{0, 0, 0}, [3]float64{1, 2, 1}
	m, err := mesh.NewBoxMesh(mesh.Config{
		Dim:      dim,
		Order:    order,
		Elements: [3]int{n, n + 1, n},
		Lower:    lower,
		Upper:    upper,
		Deform:   mesh.Sinusoidal(dim, 0.04, lower, upper),
		Host:     device.NewHost(2),
	})
	require.NoError(t, err)
	return m
}

func rotation(x [3]float64) [3]float64 { return [3]float64{-x[1], x[0], 0.5} }

func randomVector(rng *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	return v
}

func TestIntegrator_BeforeAssemble(t *testing.T) {
	it := NewIntegrator()
	x, y := make([]float64, 4), make([]float64, 4)
	assert.PanicsWithValue(t, "AddMultPA called before AssemblePA", func() { _ = it.AddMultPA(x, y) })
	assert.PanicsWithValue(t, "AddMultTransposePA called before AssemblePA",
		func() { _ = it.AddMultTransposePA(x, y) })
	assert.Panics(t, func() { _ = it.Mult(x, y) })
	assert.Nil(t, it.OperatorData())
	assert.Equal(t, 1., it.Alpha())
}

func TestIntegrator_AssembleDiagonalNotImplemented(t *testing.T) {
	it := NewIntegrator()
	require.NoError(t, it.AssemblePA(referenceMesh(t, 2, 2, 3), kernels.ConstantVelocity{1, 0}))
	assert.PanicsWithValue(t, "AssembleDiagonalPA not implemented for the convection integrator",
		func() { it.AssembleDiagonalPA(make([]float64, 9)) })
}

func TestIntegrator_AffineReference(t *testing.T) {
	m := referenceMesh(t, 2, 3, 4)
	it := NewIntegrator(WithAlpha(1))
	require.NoError(t, it.AssemblePA(m, m.SampleVelocity(func([3]float64) [3]float64 {
		return [3]float64{1, 0}
	})))
	w := m.IntegrationRule().Weights
	op := it.OperatorData()
	nq := len(w)
	require.Len(t, op, 2*nq)
	assert.InDeltaSlicef(t, w, op[:nq], 1.e-14, "op(:,0) = W")
	assert.InDeltaSlicef(t, make([]float64, nq), op[nq:], 1.e-14, "op(:,1) = 0")
	assert.True(t, it.Kernel().Specialized)
	assert.Equal(t, "smem2D<4,4,4>", it.Kernel().Name())

	ones := make([]float64, m.NDofs())
	for i := range ones {
		ones[i] = 1
	}
	y := make([]float64, m.NDofs())
	require.NoError(t, it.Mult(ones, y))
	assert.Less(t, floats.Norm(y, math.Inf(1)), 1.e-12)
}

// For u = x on an isoparametric mesh, Σ_i (A u)_i = ∫ v·∇u = ∫ v_x
func TestIntegrator_IntegratesGradient(t *testing.T) {
	for _, dim := range []int{2, 3} {
		t.Run(fmt.Sprintf("%dD", dim), func(t *testing.T) {
			m := deformedMesh(t, dim, 3, 2)
			it := NewIntegrator(WithHost(device.NewHost(3)), WithAlpha(1.5))
			vel := make(kernels.ConstantVelocity, dim)
			vel[0] = 1
			require.NoError(t, it.AssemblePA(m, vel))
			u := m.Project(func(x [3]float64) float64 { return x[0] })
			y := make([]float64, m.NDofs())
			require.NoError(t, it.AddMultPA(u, y))
			assert.InDelta(t, 1.5*m.Volume(), floats.Sum(y), 1.e-10)
		})
	}
}

func TestIntegrator_Adjoint(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, dim := range []int{2, 3} {
		t.Run(fmt.Sprintf("%dD", dim), func(t *testing.T) {
			m := deformedMesh(t, dim, 2, 2)
			it := NewIntegrator(WithHost(device.NewHost(4)))
			require.NoError(t, it.AssemblePA(m, m.SampleVelocity(rotation)))
			u, v := randomVector(rng, m.NDofs()), randomVector(rng, m.NDofs())
			Au, Atv := make([]float64, m.NDofs()), make([]float64, m.NDofs())
			require.NoError(t, it.AddMultPA(u, Au))
			require.NoError(t, it.AddMultTransposePA(v, Atv))
			lhs := floats.Dot(Au, v)
			assert.InDelta(t, lhs, floats.Dot(u, Atv), 1.e-11*math.Max(1, math.Abs(lhs)))
		})
	}
}

func TestIntegrator_AlphaAndReassembly(t *testing.T) {
	m := deformedMesh(t, 2, 2, 2)
	vel := m.SampleVelocity(rotation)
	one := NewIntegrator()
	two := NewIntegrator(WithAlpha(2))
	require.NoError(t, one.AssemblePA(m, vel))
	require.NoError(t, two.AssemblePA(m, vel))
	scaled := append([]float64(nil), one.OperatorData()...)
	floats.Scale(2, scaled)
	assert.InDeltaSlice(t, scaled, two.OperatorData(), 1.e-14)

	// Reassembly replaces the coefficients
	require.NoError(t, one.AssemblePA(m, kernels.ConstantVelocity{0, 0}))
	assert.Equal(t, 0., floats.Norm(one.OperatorData(), math.Inf(1)))
}

func TestIntegrator_Dim1Rejected(t *testing.T) {
	space := fakeSpace{referenceMesh(t, 2, 1, 2)}
	assert.PanicsWithValue(t, "dim==1 not supported in AssemblePA", func() {
		_ = NewIntegrator().AssemblePA(space, kernels.ConstantVelocity{1})
	})
}

// fakeSpace reports dimension one over a valid 2D mesh
type fakeSpace struct{ *mesh.BoxMesh }

func (fakeSpace) Dim() int { return 1 }

func TestIntegrator_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	m := deformedMesh(t, 3, 1, 1)
	it := NewIntegrator(WithMetrics(metrics), WithLogger(logging.NewNop()))
	require.NoError(t, it.AssemblePA(m, m.SampleVelocity(rotation)))
	name := it.Kernel().Name()
	assert.Equal(t, "smem3D<2,2,1>", name)

	x, y := make([]float64, m.NDofs()), make([]float64, m.NDofs())
	require.NoError(t, it.AddMultPA(x, y))
	require.NoError(t, it.AddMultPA(x, y))
	require.NoError(t, it.AddMultTransposePA(x, y))

	assert.Equal(t, 1., testutil.ToFloat64(metrics.Dispatches.WithLabelValues("3", name, "assemble")))
	assert.Equal(t, 2., testutil.ToFloat64(metrics.Dispatches.WithLabelValues("3", name, "apply")))
	assert.Equal(t, 1., testutil.ToFloat64(metrics.Dispatches.WithLabelValues("3", name, "apply_transpose")))
	assert.Equal(t, 3, testutil.CollectAndCount(metrics.ApplySeconds))
	assert.Equal(t, 3, testutil.CollectAndCount(metrics.Dispatches))

	// A second registration of the same collectors fails
	assert.Panics(t, func() { NewMetrics(reg) })
	assert.NotPanics(t, func() { NewMetrics(nil) })
}

func TestIntegrator_Device(t *testing.T) {
	dev := utils.CreateTestDevice()
	if dev == nil {
		t.Skip("no OCCA device available")
	}
	defer dev.Free()
	rng := rand.New(rand.NewSource(4))
	for _, dim := range []int{2, 3} {
		t.Run(fmt.Sprintf("%dD", dim), func(t *testing.T) {
			kr := runner.NewRunner(dev, builder.Config{})
			defer kr.Free()
			m := deformedMesh(t, dim, 2, 2)
			vel := m.SampleVelocity(rotation)
			onDevice := NewIntegrator(WithDevice(kr))
			onHost := NewIntegrator()
			require.NoError(t, onDevice.AssemblePA(m, vel))
			require.NoError(t, onHost.AssemblePA(m, vel))

			x := randomVector(rng, m.NDofs())
			for _, transpose := range []bool{false, true} {
				yd, yh := make([]float64, m.NDofs()), make([]float64, m.NDofs())
				if transpose {
					require.NoError(t, onDevice.AddMultTransposePA(x, yd))
					require.NoError(t, onHost.AddMultTransposePA(x, yh))
				} else {
					require.NoError(t, onDevice.AddMultPA(x, yd))
					require.NoError(t, onHost.AddMultPA(x, yh))
				}
				assert.InDeltaSlicef(t, yh, yd, 1.e-11, "transpose=%v", transpose)
			}

			// The runner is bound to this operator's sizes
			other := deformedMesh(t, dim, 3, 1)
			assert.Error(t, onDevice.AssemblePA(other, other.SampleVelocity(rotation)))
		})
	}
}
