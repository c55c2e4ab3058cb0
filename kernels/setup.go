package kernels

import (
	"fmt"

	"github.com/notargets/PAKernel/device"
)

// Setup computes the operator coefficients at every quadrature point of
// every element,
//
//	op(q,:,e) = adj(J(q,e)) · (alpha * W(q) * v(q,e))
//
// with layouts W (nq), J (nq,dim,dim,ne), op (nq,dim,ne). op is overwritten.
// dim must be 2 or 3.
func Setup(host *device.Host, dim, nq, ne int, w, j []float64, vel Velocity,
	alpha float64, op []float64) {
	checkDim(dim, "Setup")
	if len(w) != nq {
		panic(fmt.Sprintf("quadrature weights have length %d, need %d", len(w), nq))
	}
	if len(j) != nq*dim*dim*ne {
		panic(fmt.Sprintf("Jacobians have length %d, need %d", len(j), nq*dim*dim*ne))
	}
	if len(op) != nq*dim*ne {
		panic(fmt.Sprintf("operator data has length %d, need %d", len(op), nq*dim*ne))
	}
	V, vs := velocityValues(vel, dim, nq, ne)
	if host == nil {
		host = device.Serial()
	}
	if dim == 2 {
		host.ForAllRange(nq*ne, func(start, end int) {
			setup2D(start, end, nq, w, j, V, vs, alpha, op)
		})
		return
	}
	host.ForAllRange(nq*ne, func(start, end int) {
		setup3D(start, end, nq, w, j, V, vs, alpha, op)
	})
}

// setup2D covers the flattened points [start,end). vs is the velocity
// stride, zero for a uniform velocity.
func setup2D(start, end, NQ int, W, J, V []float64, vs int, alpha float64, y []float64) {
	const DIM = 2
	for qg := start; qg < end; qg++ {
		e := qg / NQ
		q := qg % NQ
		jac := func(r, c int) float64 { return J[q+NQ*(r+DIM*(c+DIM*e))] }
		J11 := jac(0, 0)
		J21 := jac(1, 0)
		J12 := jac(0, 1)
		J22 := jac(1, 1)
		w := alpha * W[q]
		v := vs * (q + NQ*e)
		wx := w * V[v]
		wy := w * V[v+1]
		// adj(J) . {wx, wy}
		y[q+NQ*(0+DIM*e)] = wx*J22 - wy*J12
		y[q+NQ*(1+DIM*e)] = -wx*J21 + wy*J11
	}
}

func setup3D(start, end, NQ int, W, J, V []float64, vs int, alpha float64, y []float64) {
	const DIM = 3
	for qg := start; qg < end; qg++ {
		e := qg / NQ
		q := qg % NQ
		jac := func(r, c int) float64 { return J[q+NQ*(r+DIM*(c+DIM*e))] }
		J11, J12, J13 := jac(0, 0), jac(0, 1), jac(0, 2)
		J21, J22, J23 := jac(1, 0), jac(1, 1), jac(1, 2)
		J31, J32, J33 := jac(2, 0), jac(2, 1), jac(2, 2)
		w := alpha * W[q]
		v := vs * (q + NQ*e)
		wx := w * V[v]
		wy := w * V[v+1]
		wz := w * V[v+2]
		// A = adj(J)
		A11 := (J22 * J33) - (J23 * J32)
		A12 := (J32 * J13) - (J12 * J33)
		A13 := (J12 * J23) - (J22 * J13)
		A21 := (J31 * J23) - (J21 * J33)
		A22 := (J11 * J33) - (J13 * J31)
		A23 := (J21 * J13) - (J11 * J23)
		A31 := (J21 * J32) - (J31 * J22)
		A32 := (J31 * J12) - (J11 * J32)
		A33 := (J11 * J22) - (J12 * J21)
		y[q+NQ*(0+DIM*e)] = wx*A11 + wy*A12 + wz*A13
		y[q+NQ*(1+DIM*e)] = wx*A21 + wy*A22 + wz*A23
		y[q+NQ*(2+DIM*e)] = wx*A31 + wy*A32 + wz*A33
	}
}
