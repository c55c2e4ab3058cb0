package gonudg

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Vandermonde1D initializes the 1D Vandermonde matrix V(i,j) = P_j(r_i) of
// the orthonormal Legendre polynomials up to order N.
func Vandermonde1D(N int, r []float64) *mat.Dense {
	V1D := mat.NewDense(len(r), N+1, nil)
	for j := 0; j <= N; j++ {
		V1D.SetCol(j, JacobiP(r, 0, 0, j))
	}
	return V1D
}

// GradVandermonde1D initializes the derivative of the 1D Vandermonde matrix,
// Vr(i,j) = dP_j/dr (r_i).
func GradVandermonde1D(N int, r []float64) *mat.Dense {
	Vr := mat.NewDense(len(r), N+1, nil)
	for j := 0; j <= N; j++ {
		Vr.SetCol(j, GradJacobiP(r, 0, 0, j))
	}
	return Vr
}

// InterpMatrix1D returns the matrices that evaluate the nodal Lagrange basis
// through rNodes (and its derivative) at the points rOut:
//
//	I(i,j) = l_j(rOut_i),  Ir(i,j) = l_j'(rOut_i)
//
// computed as V(rOut)*V(rNodes)^-1 and Vr(rOut)*V(rNodes)^-1.
func InterpMatrix1D(rNodes, rOut []float64) (I, Ir *mat.Dense, err error) {
	N := len(rNodes) - 1
	if N < 0 {
		return nil, nil, fmt.Errorf("no interpolation nodes")
	}
	V := Vandermonde1D(N, rNodes)
	var Vinv mat.Dense
	if err = Vinv.Inverse(V); err != nil {
		return nil, nil, fmt.Errorf("singular 1D Vandermonde matrix for %d nodes: %w",
			len(rNodes), err)
	}
	I = mat.NewDense(len(rOut), N+1, nil)
	I.Mul(Vandermonde1D(N, rOut), &Vinv)
	Ir = mat.NewDense(len(rOut), N+1, nil)
	Ir.Mul(GradVandermonde1D(N, rOut), &Vinv)
	return
}
