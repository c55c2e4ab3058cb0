package runner

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/notargets/PAKernel/element"
	"github.com/notargets/PAKernel/kernels"
	"github.com/notargets/PAKernel/runner/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvectionSource(t *testing.T) {
	tests := []struct {
		dim       int
		transpose bool
		name      string
		shared    string
	}{
		{2, false, "convectionApply2D", "@shared real_t BDGu[NBZ][D1D][Q1D];"},
		{2, true, "convectionApplyTranspose2D", "@shared real_t GDBu1[NBZ][D1D][Q1D];"},
		{3, false, "convectionApply3D", "@shared real_t sm5[MDQ][MDQ][MDQ];"},
		{3, true, "convectionApplyTranspose3D", "@shared real_t s1[3][MDQ][MDQ][MDQ];"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := ConvectionSpec{Dim: tt.dim, D1D: 3, Q1D: 4, NBZ: 1, NE: 2}
			src := ConvectionSource(spec, tt.transpose)
			assert.Contains(t, src, "@kernel void "+tt.name+"(")
			assert.Contains(t, src, "@restrict const real_t *op")
			assert.Contains(t, src, "@restrict const real_t *x")
			assert.Contains(t, src, "@restrict real_t *y")
			assert.Contains(t, src, tt.shared)
			assert.Contains(t, src, "@outer")
			assert.Contains(t, src, "#define B(q,d) B_[d][q]")
			assert.Equal(t, strings.Count(src, "{"), strings.Count(src, "}"))
		})
	}
	assert.Panics(t, func() { ConvectionSource(ConvectionSpec{Dim: 1}, false) })
}

func TestConvectionParams(t *testing.T) {
	spec := ConvectionSpec{Dim: 3, D1D: 3, Q1D: 4, NBZ: 1, NE: 5}
	params := convectionParams(spec, builder.Float32)
	require.Len(t, params, 3)
	sizes := map[string]int64{}
	for _, p := range params {
		require.NoError(t, p.Spec.Validate())
		assert.Equal(t, builder.Float32, p.Spec.DataType)
		sizes[p.Spec.Name] = p.Spec.Bytes()
	}
	assert.Equal(t, map[string]int64{
		"op": int64(4 * spec.NOpData()),
		"x":  int64(4 * spec.NDofs()),
		"y":  int64(4 * spec.NDofs()),
	}, sizes)
	assert.True(t, params[0].Spec.IsConst())
	assert.True(t, params[1].Spec.IsConst())
	assert.False(t, params[2].Spec.IsConst())
}

func TestConvectionSpec(t *testing.T) {
	t.Run("FromCatalogue", func(t *testing.T) {
		s := ConvectionSpecFor(kernels.Select(2, 4, 4), 10)
		assert.Equal(t, ConvectionSpec{Dim: 2, D1D: 4, Q1D: 4, NBZ: 4, NE: 10}, s)
		assert.Equal(t, 1, ConvectionSpecFor(kernels.Select(2, 4, 5), 10).NBZ)
		assert.Equal(t, 1, ConvectionSpecFor(kernels.Select(3, 2, 2), 10).NBZ)
		assert.Equal(t, 16*10, s.NDofs())
		assert.Equal(t, 16*2*10, s.NOpData())
	})
	t.Run("Validate", func(t *testing.T) {
		assert.PanicsWithValue(t, "dim==1 not supported in the device convection kernels",
			func() { ConvectionSpec{Dim: 1, D1D: 2, Q1D: 2, NBZ: 1, NE: 1}.Validate() })
		assert.Panics(t, func() { ConvectionSpec{Dim: 2, D1D: 15, Q1D: 4, NBZ: 1, NE: 1}.Validate() })
		assert.Panics(t, func() { ConvectionSpec{Dim: 3, D1D: 2, Q1D: 2, NBZ: 2, NE: 1}.Validate() })
		assert.Panics(t, func() { ConvectionSpec{Dim: 2, D1D: 2, Q1D: 2, NBZ: 1, NE: 0}.Validate() })
		assert.NotPanics(t, func() { ConvectionSpec{Dim: 3, D1D: 14, Q1D: 14, NBZ: 1, NE: 1}.Validate() })
	})
	t.Run("Configure", func(t *testing.T) {
		maps, err := element.NewDofToQuad(2, 4)
		require.NoError(t, err)
		b := builder.NewBuilder(builder.Config{})
		ConvectionSpec{Dim: 2, D1D: 3, Q1D: 4, NBZ: 4, NE: 9}.Configure(b, maps)
		pre := b.GeneratePreamble()
		for _, def := range []string{"#define D1D 3", "#define Q1D 4", "#define MDQ 4",
			"#define NBZ 4", "#define NE 9", "#define DIM 2"} {
			assert.Contains(t, pre, def)
		}
		assert.Contains(t, pre, "const real_t B_[3][4]")
		assert.Contains(t, pre, "const real_t G_[3][4]")
		assert.Panics(t, func() {
			ConvectionSpec{Dim: 2, D1D: 4, Q1D: 4, NBZ: 1, NE: 1}.Configure(b, maps)
		})
	})
}

// Device kernels against the generic host kernels
func TestConvection_DeviceMatchesHost(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	cases := []struct{ dim, d1d, q1d, ne int }{
		{2, 3, 4, 9}, // catalogue NBZ=4 with a partial batch
		{2, 4, 5, 3},
		{3, 2, 3, 4},
		{3, 3, 5, 2},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%dD/D%dQ%d", c.dim, c.d1d, c.q1d), func(t *testing.T) {
			kr := newTestRunner(t, builder.Config{})
			maps, err := element.NewDofToQuad(c.d1d-1, c.q1d)
			require.NoError(t, err)
			spec := ConvectionSpecFor(kernels.Select(c.dim, c.d1d, c.q1d), c.ne)
			require.NoError(t, kr.SetupConvection(spec, maps))
			assert.Error(t, kr.SetupConvection(spec, maps))

			op := make([]float64, spec.NOpData())
			for i := range op {
				op[i] = rng.NormFloat64()
			}
			require.NoError(t, kr.UploadOperatorData(op))
			x := make([]float64, spec.NDofs())
			for i := range x {
				x[i] = rng.NormFloat64()
			}
			g := kernels.Generic(c.dim, c.d1d, c.q1d)
			for _, transpose := range []bool{false, true} {
				yd := make([]float64, spec.NDofs())
				yh := make([]float64, spec.NDofs())
				for i := range yd {
					yd[i] = float64(i)
					yh[i] = float64(i)
				}
				require.NoError(t, kr.ApplyConvection(transpose, x, yd))
				if transpose {
					g.ApplyTranspose(nil, c.ne, maps, op, x, yh)
				} else {
					g.Apply(nil, c.ne, maps, op, x, yh)
				}
				for i := range yh {
					assert.InDeltaf(t, yh[i], yd[i], 1.e-11*math.Max(1, math.Abs(yh[i])),
						"transpose=%v i=%d", transpose, i)
				}
			}
		})
	}
}

func TestSetupConvection_ReleasesOnFailure(t *testing.T) {
	kr := newTestRunner(t, builder.Config{})
	maps, err := element.NewDofToQuad(1, 3)
	require.NoError(t, err)
	spec := ConvectionSpecFor(kernels.Select(2, 2, 3), 4)

	require.NoError(t, kr.AllocateArray("y", spec.NDofs()))
	assert.ErrorContains(t, kr.SetupConvection(spec, maps), "array y already allocated")
	assert.Equal(t, []string{"y"}, kr.GetAllocatedArrays())
	assert.Empty(t, kr.Kernels)
	_, ok := kr.Convection()
	assert.False(t, ok)

	require.NoError(t, kr.FreeArray("y"))
	assert.Error(t, kr.FreeArray("y"))
	require.NoError(t, kr.SetupConvection(spec, maps))
	assert.Equal(t, []string{"op", "x", "y"}, kr.GetAllocatedArrays())
	assert.Len(t, kr.Kernels, 2)

	require.NoError(t, kr.FreeKernel(spec.ApplyKernelName()))
	assert.Error(t, kr.FreeKernel(spec.ApplyKernelName()))
}
