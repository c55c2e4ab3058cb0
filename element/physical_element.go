package element

import "fmt"

// GeometricFactors maps reference space [-1,1]^d to physical space at the
// quadrature points of every element. All data is stored for the entire mesh
// in column major order with the quadrature point index fastest.
type GeometricFactors struct {
	Dim, NQ, NE int

	// Jacobian ∂x_r/∂ξ_c, layout (NQ, Dim, Dim, NE):
	//   J[q + NQ*(r + Dim*(c + Dim*e))]
	J []float64

	// Jacobian determinant, layout (NQ, NE)
	DetJ []float64

	// Physical coordinates of the quadrature points, layout (NQ, Dim, NE)
	X []float64
}

func NewGeometricFactors(dim, nq, ne int) *GeometricFactors {
	return &GeometricFactors{
		Dim:  dim,
		NQ:   nq,
		NE:   ne,
		J:    make([]float64, nq*dim*dim*ne),
		DetJ: make([]float64, nq*ne),
		X:    make([]float64, nq*dim*ne),
	}
}

func (gf *GeometricFactors) JIndex(q, r, c, e int) int {
	return q + gf.NQ*(r+gf.Dim*(c+gf.Dim*e))
}

func (gf *GeometricFactors) XIndex(q, r, e int) int {
	return q + gf.NQ*(r+gf.Dim*e)
}

// Jacobian returns the Jacobian at quadrature point q of element e
func (gf *GeometricFactors) Jacobian(q, e int) (jac [3][3]float64) {
	for r := 0; r < gf.Dim; r++ {
		for c := 0; c < gf.Dim; c++ {
			jac[r][c] = gf.J[gf.JIndex(q, r, c, e)]
		}
	}
	return
}

// ComputeDeterminants fills DetJ from J and panics on an inverted element
func (gf *GeometricFactors) ComputeDeterminants() {
	for e := 0; e < gf.NE; e++ {
		for q := 0; q < gf.NQ; q++ {
			j := gf.Jacobian(q, e)
			var det float64
			switch gf.Dim {
			case 1:
				det = j[0][0]
			case 2:
				det = j[0][0]*j[1][1] - j[0][1]*j[1][0]
			case 3:
				det = j[0][0]*(j[1][1]*j[2][2]-j[1][2]*j[2][1]) -
					j[0][1]*(j[1][0]*j[2][2]-j[1][2]*j[2][0]) +
					j[0][2]*(j[1][0]*j[2][1]-j[1][1]*j[2][0])
			}
			if det <= 0 {
				panic(fmt.Sprintf("non-positive Jacobian determinant %g at point %d of element %d",
					det, q, e))
			}
			gf.DetJ[q+gf.NQ*e] = det
		}
	}
}
