package element

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
)

func TestDofToQuad_Identities(t *testing.T) {
	for order := 1; order < 9; order++ {
		for _, q1d := range []int{order + 1, order + 2, 2*order + 1} {
			t.Run(fmt.Sprintf("P%d_Q%d", order, q1d), func(t *testing.T) {
				m, err := NewDofToQuad(order, q1d)
				assert.NoError(t, err)
				assert.Equal(t, order+1, m.D1D)
				assert.Equal(t, q1d, m.Q1D)
				m.Validate()
				// Partition of unity: rows of B sum to one, rows of G to zero
				for q := 0; q < q1d; q++ {
					var bs, gs float64
					for d := 0; d < m.D1D; d++ {
						bs += m.B[q+q1d*d]
						gs += m.G[q+q1d*d]
						assert.Equal(t, m.B[q+q1d*d], m.Bt[d+m.D1D*q])
						assert.Equal(t, m.G[q+q1d*d], m.Gt[d+m.D1D*q])
					}
					assert.InDelta(t, 1.0, bs, 1.e-11)
					assert.InDelta(t, 0.0, gs, 1.e-9)
				}
			})
		}
	}
}

func TestDofToQuad_Errors(t *testing.T) {
	_, err := NewDofToQuad(0, 3)
	assert.Error(t, err)
	_, err = NewDofToQuad(2, 0)
	assert.Error(t, err)

	m, _ := NewDofToQuad(2, 3)
	m.B = m.B[:2]
	assert.Panics(t, m.Validate)
}

func TestIntegrationRule(t *testing.T) {
	for dim := 1; dim <= 3; dim++ {
		for q1d := 1; q1d < 6; q1d++ {
			ir := NewIntegrationRule(dim, q1d)
			assert.Equal(t, int(math.Pow(float64(q1d), float64(dim))), ir.NPoints())
			// Weights sum to the reference volume 2^dim
			assert.InDelta(t, math.Pow(2, float64(dim)), floats.Sum(ir.Weights), 1.e-12)
		}
	}
	ir := NewIntegrationRule(2, 3)
	r := ir.Point(1 + 3*2)
	assert.Equal(t, ir.Points1D[1], r[0])
	assert.Equal(t, ir.Points1D[2], r[1])
	assert.Equal(t, ir.Weights1D[1]*ir.Weights1D[2], ir.Weights[1+3*2])

	assert.Panics(t, func() { NewIntegrationRule(4, 2) })
	assert.Panics(t, func() { NewIntegrationRule(2, 0) })
}

func TestDefaultQuad1D(t *testing.T) {
	tests := []struct{ order, geom, want int }{
		{1, 1, 2}, {2, 1, 3}, {3, 1, 4}, {1, 2, 3}, {4, 1, 5},
	}
	for _, tc := range tests {
		assert.Equalf(t, tc.want, DefaultQuad1D(tc.order, tc.geom),
			"order %d geom %d", tc.order, tc.geom)
	}
}

func TestTensorElement(t *testing.T) {
	el := NewTensorElement(3, 2)
	assert.Equal(t, 27, el.Np())
	assert.Equal(t, 9, el.NFp())
	assert.Equal(t, 8, el.NVp())
	assert.Equal(t, 1, el.NIp())
	assert.Equal(t, Hex, el.GeometryType())
	assert.Equal(t, D3, el.Dimensions())
	assert.Equal(t, "Hex2", el.ShortName())
	assert.Len(t, el.R1D(), 3)

	m := el.DofToQuad(4)
	assert.Same(t, m, el.DofToQuad(4))
	assert.Equal(t, 3, m.D1D)

	q := NewTensorElement(2, 1)
	assert.Equal(t, 4, q.Np())
	assert.Equal(t, 0, q.NIp())
	assert.Equal(t, Quad, q.GeometryType())

	assert.Panics(t, func() { NewTensorElement(4, 1) })
	assert.Panics(t, func() { NewTensorElement(2, 0) })
}

func TestGeometricFactors_Determinants(t *testing.T) {
	gf := NewGeometricFactors(2, 1, 2)
	// Element 0: diag(2,3), element 1: shear [[1,1],[0,1]]
	gf.J[gf.JIndex(0, 0, 0, 0)] = 2
	gf.J[gf.JIndex(0, 1, 1, 0)] = 3
	gf.J[gf.JIndex(0, 0, 0, 1)] = 1
	gf.J[gf.JIndex(0, 0, 1, 1)] = 1
	gf.J[gf.JIndex(0, 1, 1, 1)] = 1
	gf.ComputeDeterminants()
	assert.InDeltaSlicef(t, []float64{6, 1}, gf.DetJ, 1.e-14, "DetJ")
	assert.Equal(t, 1.0, gf.Jacobian(0, 1)[0][1])

	bad := NewGeometricFactors(2, 1, 1)
	assert.Panics(t, bad.ComputeDeterminants)
}
