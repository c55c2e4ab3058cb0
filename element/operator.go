package element

import (
	"fmt"

	"github.com/notargets/PAKernel/element/library/gonudg"
	"gonum.org/v1/gonum/mat"
)

// DofToQuad holds the 1D tensor basis tables from D1D nodal dofs to Q1D
// quadrature points. The flat tables are column major:
//
//	B(q,d)  = B[q + Q1D*d]   value of basis d at point q
//	G(q,d)  = G[q + Q1D*d]   derivative of basis d at point q
//	Bt(d,q) = Bt[d + D1D*q]
//	Gt(d,q) = Gt[d + D1D*q]
type DofToQuad struct {
	D1D, Q1D   int
	B, G       []float64
	Bt, Gt     []float64
	Bmat, Gmat *mat.Dense // [Q1D × D1D]
}

// NewDofToQuad builds the tables for the order N Lagrange basis on the
// Gauss-Lobatto-Legendre nodes evaluated at the q1d point Gauss-Legendre rule.
func NewDofToQuad(order, q1d int) (*DofToQuad, error) {
	if order < 1 {
		return nil, fmt.Errorf("basis order must be positive, have %d", order)
	}
	if q1d < 1 {
		return nil, fmt.Errorf("quadrature point count must be positive, have %d", q1d)
	}
	rNodes := gonudg.JacobiGL(0, 0, order)
	rq, _ := gonudg.JacobiGQ(0, 0, q1d-1)
	Bm, Gm, err := gonudg.InterpMatrix1D(rNodes, rq)
	if err != nil {
		return nil, fmt.Errorf("order %d basis tables: %w", order, err)
	}
	d1d := order + 1
	m := &DofToQuad{
		D1D:  d1d,
		Q1D:  q1d,
		B:    make([]float64, q1d*d1d),
		G:    make([]float64, q1d*d1d),
		Bt:   make([]float64, q1d*d1d),
		Gt:   make([]float64, q1d*d1d),
		Bmat: Bm,
		Gmat: Gm,
	}
	for q := 0; q < q1d; q++ {
		for d := 0; d < d1d; d++ {
			b, g := Bm.At(q, d), Gm.At(q, d)
			m.B[q+q1d*d] = b
			m.G[q+q1d*d] = g
			m.Bt[d+d1d*q] = b
			m.Gt[d+d1d*q] = g
		}
	}
	return m, nil
}

// Validate panics unless the flat tables match D1D and Q1D
func (m *DofToQuad) Validate() {
	n := m.D1D * m.Q1D
	if len(m.B) != n || len(m.G) != n || len(m.Bt) != n || len(m.Gt) != n {
		panic(fmt.Sprintf("basis tables must hold %d = D1D(%d) x Q1D(%d) values, have B=%d G=%d Bt=%d Gt=%d",
			n, m.D1D, m.Q1D, len(m.B), len(m.G), len(m.Bt), len(m.Gt)))
	}
}
