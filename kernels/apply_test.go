package kernels

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/notargets/PAKernel/device"
	"github.com/notargets/PAKernel/element"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type problem struct {
	dim, d1d, q1d, ne int
	maps              *element.DofToQuad
	op                []float64
}

func (p problem) ndof() int { return ipow(p.d1d, p.dim) * p.ne }

func ipow(b, n int) int {
	r := 1
	for i := 0; i < n; i++ {
		r *= b
	}
	return r
}

// newProblem sets up op on perturbed geometry with a varying velocity
func newProblem(t *testing.T, rng *rand.Rand, dim, d1d, q1d, ne int) problem {
	t.Helper()
	maps, err := element.NewDofToQuad(d1d-1, q1d)
	require.NoError(t, err)
	ir := element.NewIntegrationRule(dim, q1d)
	nq := ir.NPoints()
	vel := NewVelocityField(dim, nq, ne)
	for i := range vel.Values {
		vel.Values[i] = rng.NormFloat64()
	}
	op := make([]float64, nq*dim*ne)
	Setup(nil, dim, nq, ne, ir.Weights, randomJacobians(rng, dim, nq, ne), vel, 0.8, op)
	return problem{dim: dim, d1d: d1d, q1d: q1d, ne: ne, maps: maps, op: op}
}

func randomVector(rng *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = rng.Float64()*2 - 1
	}
	return v
}

func dot(a, b []float64) (s float64) {
	for i := range a {
		s += a[i] * b[i]
	}
	return
}

func normInf(a []float64) (m float64) {
	for _, v := range a {
		m = math.Max(m, math.Abs(v))
	}
	return
}

// Sizes covering catalogue entries and generic fallbacks
var testSizes = map[int][][2]int{
	2: {{2, 2}, {3, 4}, {4, 4}, {4, 5}, {5, 8}, {6, 3}, {9, 9}},
	3: {{2, 3}, {3, 3}, {3, 5}, {4, 5}, {5, 6}},
}

func TestApply_Adjoint(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	host := device.NewHost(4)
	for _, dim := range []int{2, 3} {
		for _, s := range testSizes[dim] {
			k := Select(dim, s[0], s[1])
			t.Run(fmt.Sprintf("%dD/%s/D%dQ%d", dim, k.Name(), s[0], s[1]), func(t *testing.T) {
				p := newProblem(t, rng, dim, s[0], s[1], 7)
				u := randomVector(rng, p.ndof())
				v := randomVector(rng, p.ndof())
				Au := make([]float64, p.ndof())
				Atv := make([]float64, p.ndof())
				Apply(host, dim, s[0], s[1], p.ne, p.maps, p.op, u, Au)
				ApplyTranspose(host, dim, s[0], s[1], p.ne, p.maps, p.op, v, Atv)
				lhs, rhs := dot(Au, v), dot(u, Atv)
				assert.InDelta(t, lhs, rhs, 1.e-11*math.Max(1, math.Abs(lhs)))
			})
		}
	}
}

func TestApply_Linearity(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	const a, b = 1.5, -0.25
	for _, dim := range []int{2, 3} {
		for _, s := range testSizes[dim] {
			t.Run(fmt.Sprintf("%dD/D%dQ%d", dim, s[0], s[1]), func(t *testing.T) {
				p := newProblem(t, rng, dim, s[0], s[1], 3)
				n := p.ndof()
				u, v := randomVector(rng, n), randomVector(rng, n)
				w := make([]float64, n)
				for i := range w {
					w[i] = a*u[i] + b*v[i]
				}
				for _, transpose := range []bool{false, true} {
					run := Apply
					if transpose {
						run = ApplyTranspose
					}
					Au, Av, Aw := make([]float64, n), make([]float64, n), make([]float64, n)
					run(nil, dim, s[0], s[1], p.ne, p.maps, p.op, u, Au)
					run(nil, dim, s[0], s[1], p.ne, p.maps, p.op, v, Av)
					run(nil, dim, s[0], s[1], p.ne, p.maps, p.op, w, Aw)
					for i := range Aw {
						assert.InDeltaf(t, a*Au[i]+b*Av[i], Aw[i], 1.e-12,
							"transpose=%v i=%d", transpose, i)
					}
				}
			})
		}
	}
}

func TestApply_Accumulates(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, dim := range []int{2, 3} {
		for _, s := range testSizes[dim] {
			t.Run(fmt.Sprintf("%dD/D%dQ%d", dim, s[0], s[1]), func(t *testing.T) {
				p := newProblem(t, rng, dim, s[0], s[1], 5)
				n := p.ndof()
				x := randomVector(rng, n)
				y0 := randomVector(rng, n)
				for _, transpose := range []bool{false, true} {
					run := Apply
					if transpose {
						run = ApplyTranspose
					}
					fresh := make([]float64, n)
					run(nil, dim, s[0], s[1], p.ne, p.maps, p.op, x, fresh)
					y := append([]float64(nil), y0...)
					run(nil, dim, s[0], s[1], p.ne, p.maps, p.op, x, y)
					for i := range y {
						assert.InDelta(t, y0[i]+fresh[i], y[i], 1.e-13)
					}
				}
			})
		}
	}
}

func TestApply_ZeroOperator(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for _, dim := range []int{2, 3} {
		const d1d, q1d, ne = 3, 4, 4
		maps, err := element.NewDofToQuad(d1d-1, q1d)
		require.NoError(t, err)
		ir := element.NewIntegrationRule(dim, q1d)
		nq := ir.NPoints()
		op := make([]float64, nq*dim*ne)
		zero := make(ConstantVelocity, dim)
		Setup(nil, dim, nq, ne, ir.Weights, randomJacobians(rng, dim, nq, ne), zero, 1, op)
		n := ipow(d1d, dim) * ne
		x := randomVector(rng, n)
		y := randomVector(rng, n)
		want := append([]float64(nil), y...)
		Apply(nil, dim, d1d, q1d, ne, maps, op, x, y)
		ApplyTranspose(nil, dim, d1d, q1d, ne, maps, op, x, y)
		assert.Equal(t, want, y, "dim=%d", dim)
	}
}

func affineProblem(t *testing.T, dim, order, q1d int) (*element.TensorElement, *element.DofToQuad, []float64) {
	t.Helper()
	el := element.NewTensorElement(dim, order)
	ir := element.NewIntegrationRule(dim, q1d)
	nq := ir.NPoints()
	vel := make(ConstantVelocity, dim)
	vel[0] = 1
	op := make([]float64, nq*dim)
	Setup(nil, dim, nq, 1, ir.Weights, identityJacobians(dim, nq, 1), vel, 1, op)
	return el, el.DofToQuad(q1d), op
}

// On the reference element with v = (1,0[,0]): op = [W, 0], constants are
// in the kernel of A and A applied to x sums to the element volume.
func TestApply_AffineReference(t *testing.T) {
	for _, dim := range []int{2, 3} {
		for _, order := range []int{1, 3, 5} {
			q1d := order + 1
			t.Run(fmt.Sprintf("%dD/P%d", dim, order), func(t *testing.T) {
				el, maps, op := affineProblem(t, dim, order, q1d)
				ir := element.NewIntegrationRule(dim, q1d)
				nq := ir.NPoints()
				assert.InDeltaSlice(t, ir.Weights, op[:nq], 1.e-15)
				assert.Equal(t, make([]float64, nq*(dim-1)), op[nq:])

				d1d := order + 1
				nd := ipow(d1d, dim)
				ones := make([]float64, nd)
				for i := range ones {
					ones[i] = 1
				}
				y := make([]float64, nd)
				Apply(nil, dim, d1d, q1d, 1, maps, op, ones, y)
				assert.Less(t, normInf(y), 1.e-12)

				// u(r) = r_x, du/dx = 1
				r := el.R1D()
				x := make([]float64, nd)
				for i := range x {
					x[i] = r[i%d1d]
				}
				y = make([]float64, nd)
				Apply(nil, dim, d1d, q1d, 1, maps, op, x, y)
				var sum float64
				for _, v := range y {
					sum += v
				}
				assert.InDelta(t, math.Pow(2, float64(dim)), sum, 1.e-12)
			})
		}
	}
}

func TestCatalogue_MatchesGeneric(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	host := device.NewHost(3)
	for _, dim := range []int{2, 3} {
		for _, k := range Catalogue(dim) {
			require.True(t, k.Specialized)
			g := Generic(dim, k.D1D, k.Q1D)
			t.Run(k.Name(), func(t *testing.T) {
				// A trailing partial batch
				ne := 2*k.NBZ + 1
				p := newProblem(t, rng, dim, k.D1D, k.Q1D, ne)
				n := p.ndof()
				x := randomVector(rng, n)
				for _, transpose := range []bool{false, true} {
					ys, yg := make([]float64, n), make([]float64, n)
					if transpose {
						k.ApplyTranspose(host, ne, p.maps, p.op, x, ys)
						g.ApplyTranspose(nil, ne, p.maps, p.op, x, yg)
					} else {
						k.Apply(host, ne, p.maps, p.op, x, ys)
						g.Apply(nil, ne, p.maps, p.op, x, yg)
					}
					scale := math.Max(1, normInf(yg))
					for i := range yg {
						assert.InDeltaf(t, yg[i], ys[i], 1.e-12*scale,
							"transpose=%v i=%d", transpose, i)
					}
				}
			})
		}
	}
}

func TestCatalogue_Listing(t *testing.T) {
	assert.Len(t, Catalogue(2), 11)
	assert.Len(t, Catalogue(3), 12)
	for _, dim := range []int{2, 3} {
		list := Catalogue(dim)
		for i := 1; i < len(list); i++ {
			prev, cur := list[i-1], list[i]
			assert.True(t, prev.D1D < cur.D1D || (prev.D1D == cur.D1D && prev.Q1D < cur.Q1D))
		}
		for _, k := range list {
			assert.LessOrEqual(t, k.D1D, DeviceLimits.MaxD1D)
			assert.LessOrEqual(t, k.Q1D, DeviceLimits.MaxQ1D)
			assert.Equal(t, DeviceLimits, k.Limits())
		}
	}
	assert.Panics(t, func() { Catalogue(1) })
}

func TestSelect(t *testing.T) {
	t.Run("Specialized", func(t *testing.T) {
		k := Select(2, 4, 4)
		assert.True(t, k.Specialized)
		assert.Equal(t, 4, k.NBZ)
		assert.Equal(t, "smem2D<4,4,4>", k.Name())
		assert.Equal(t, 8, Select(2, 2, 2).NBZ)
		assert.Equal(t, 1, Select(3, 8, 9).NBZ)
	})
	t.Run("Fallback", func(t *testing.T) {
		k := Select(2, 4, 5)
		assert.False(t, k.Specialized)
		assert.Equal(t, "generic2D", k.Name())
		assert.Equal(t, HostLimits, k.Limits())
		assert.False(t, Select(3, 9, 9).Specialized)
		assert.False(t, Select(3, 4, 4).Specialized)
	})
	t.Run("NoAliasing", func(t *testing.T) {
		// (1,18) and (16,2) share a packed key with catalogue sizes
		assert.False(t, Select(2, 1, 18).Specialized)
		assert.False(t, Select(2, 16, 2).Specialized)
		assert.False(t, Select(3, 1, 18).Specialized)
	})
	t.Run("Deterministic", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			assert.Equal(t, Select(3, 5, 6).Name(), Select(3, 5, 6).Name())
		}
	})
	t.Run("Dim", func(t *testing.T) {
		assert.PanicsWithValue(t, "dim==1 not supported in Select", func() { Select(1, 2, 2) })
		assert.Panics(t, func() { Select(4, 2, 2) })
		assert.Panics(t, func() { Generic(1, 2, 2) })
	})
}

func TestApply_Limits(t *testing.T) {
	assert.Panics(t, func() { HostLimits.Check(25, 4) })
	assert.Panics(t, func() { HostLimits.Check(4, 25) })
	assert.Panics(t, func() { HostLimits.Check(0, 4) })
	assert.NotPanics(t, func() { HostLimits.Check(24, 24) })
	assert.Panics(t, func() { DeviceLimits.Check(15, 4) })
	assert.NotPanics(t, func() { DeviceLimits.Check(14, 14) })

	// Generic kernels reject sizes over the host limits before any work
	maps, err := element.NewDofToQuad(24, 26)
	require.NoError(t, err)
	y := make([]float64, 25*25)
	assert.Panics(t, func() {
		Apply(nil, 2, 25, 26, 1, maps, make([]float64, 26*26*2), make([]float64, 25*25), y)
	})
	assert.Equal(t, make([]float64, 25*25), y)
}

func TestApply_BadArguments(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := newProblem(t, rng, 2, 3, 3, 2)
	n := p.ndof()
	x, y := randomVector(rng, n), make([]float64, n)

	t.Run("BeforeSetup", func(t *testing.T) {
		defer func() {
			r := recover()
			require.NotNil(t, r)
			assert.Contains(t, fmt.Sprint(r), "apply before setup")
		}()
		Apply(nil, 2, 3, 3, p.ne, p.maps, nil, x, y)
	})
	t.Run("MapsMismatch", func(t *testing.T) {
		assert.Panics(t, func() { Apply(nil, 2, 3, 4, p.ne, p.maps, p.op, x, y) })
		assert.Panics(t, func() { Apply(nil, 2, 3, 3, p.ne, nil, p.op, x, y) })
	})
	t.Run("VectorLengths", func(t *testing.T) {
		assert.Panics(t, func() { Apply(nil, 2, 3, 3, p.ne, p.maps, p.op, x[:n-1], y) })
		assert.Panics(t, func() { ApplyTranspose(nil, 2, 3, 3, p.ne, p.maps, p.op, x, y[:1]) })
	})
	t.Run("Unselected", func(t *testing.T) {
		assert.Panics(t, func() { Kernel{Dim: 2, D1D: 3, Q1D: 3}.Apply(nil, p.ne, p.maps, p.op, x, y) })
	})
	t.Run("Dim1", func(t *testing.T) {
		assert.Panics(t, func() { Apply(nil, 1, 3, 3, p.ne, p.maps, p.op, x, y) })
	})
}

func TestApply_HostMatchesSerial(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	for _, dim := range []int{2, 3} {
		p := newProblem(t, rng, dim, 3, 4, 37)
		n := p.ndof()
		x := randomVector(rng, n)
		for _, workers := range []int{2, 5, 16} {
			host := device.NewHost(workers)
			for _, transpose := range []bool{false, true} {
				run := Apply
				if transpose {
					run = ApplyTranspose
				}
				ys, yh := make([]float64, n), make([]float64, n)
				run(nil, dim, 3, 4, p.ne, p.maps, p.op, x, ys)
				run(host, dim, 3, 4, p.ne, p.maps, p.op, x, yh)
				assert.Equal(t, ys, yh, "dim=%d workers=%d transpose=%v", dim, workers, transpose)
			}
		}
	}
}
