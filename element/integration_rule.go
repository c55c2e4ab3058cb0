package element

import (
	"fmt"

	"github.com/notargets/PAKernel/element/library/gonudg"
)

// IntegrationRule is the tensor product Gauss-Legendre rule on [-1,1]^dim.
// Points are ordered with x fastest: q = qx + Q1D*(qy + Q1D*qz).
type IntegrationRule struct {
	Dim, Q1D  int
	Points1D  []float64
	Weights1D []float64
	Weights   []float64 // Length Q1D^dim
}

func NewIntegrationRule(dim, q1d int) *IntegrationRule {
	if dim < 1 || dim > 3 {
		panic(fmt.Sprintf("integration rule dimension must be 1, 2 or 3, have %d", dim))
	}
	if q1d < 1 {
		panic(fmt.Sprintf("integration rule needs at least one point, have %d", q1d))
	}
	x, w := gonudg.JacobiGQ(0, 0, q1d-1)
	nq := 1
	for i := 0; i < dim; i++ {
		nq *= q1d
	}
	ir := &IntegrationRule{
		Dim:       dim,
		Q1D:       q1d,
		Points1D:  x,
		Weights1D: w,
		Weights:   make([]float64, nq),
	}
	for q := 0; q < nq; q++ {
		wq := 1.
		for i, qq := 0, q; i < dim; i, qq = i+1, qq/q1d {
			wq *= w[qq%q1d]
		}
		ir.Weights[q] = wq
	}
	return ir
}

func (ir *IntegrationRule) NPoints() int { return len(ir.Weights) }

// Point returns the reference coordinates of tensor point q
func (ir *IntegrationRule) Point(q int) (r [3]float64) {
	for i := 0; i < ir.Dim; i++ {
		r[i] = ir.Points1D[q%ir.Q1D]
		q /= ir.Q1D
	}
	return
}

// DefaultQuad1D is the number of Gauss points per direction that integrates
// the convection form of a tensor element exactly on a mesh of geometric
// order geomOrder: polynomial degree 2*order + geomOrder.
func DefaultQuad1D(order, geomOrder int) int {
	degree := 2*order + geomOrder
	return degree/2 + 1
}
