// Package kernels implements the partially assembled convection operator on
// tensor product elements: Setup of the operator coefficients and the sum
// factorized Apply and ApplyTranspose kernels, dispatched through a catalogue
// of size specialized variants.
//
// Layouts are column major with the first index fastest:
//
//	op  (NQ, dim, NE)              q = qx + Q1D*(qy + Q1D*qz)
//	x,y (D1D, D1D[, D1D], NE)
package kernels

import (
	"github.com/notargets/PAKernel/device"
	"github.com/notargets/PAKernel/element"
)

// Apply accumulates y += A x, A the convection operator described by op,
// using the kernel Select picks for (dim, d1d, q1d).
func Apply(host *device.Host, dim, d1d, q1d, ne int, maps *element.DofToQuad, op, x, y []float64) {
	Select(dim, d1d, q1d).Apply(host, ne, maps, op, x, y)
}

// ApplyTranspose accumulates y += A^T x
func ApplyTranspose(host *device.Host, dim, d1d, q1d, ne int, maps *element.DofToQuad, op, x, y []float64) {
	Select(dim, d1d, q1d).ApplyTranspose(host, ne, maps, op, x, y)
}
