package mesh

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// sumFactor holds the ping-pong buffers of a tensor contraction
type sumFactor struct {
	buf [2][]float64
}

// interpolate applies tables[a], a Q1D x D1D column major table, along axis a
// of the D1D^dim array u with the first axis fastest. The result has Q1D^dim
// values and is only valid until the next call.
func (s *sumFactor) interpolate(d1d, q1d int, tables [][]float64, u []float64) []float64 {
	dim := len(tables)
	shape := make([]int, dim)
	for i := range shape {
		shape[i] = d1d
	}
	in := u
	for a := 0; a < dim; a++ {
		pre, post := 1, 1
		for i := 0; i < a; i++ {
			pre *= shape[i]
		}
		for i := a + 1; i < dim; i++ {
			post *= shape[i]
		}
		n := pre * q1d * post
		b := a % 2
		if cap(s.buf[b]) < n {
			s.buf[b] = make([]float64, n)
		}
		out := s.buf[b][:n]
		// Each slab k is a row major D1D x pre block, so the contraction is
		// out_k = T^T in_k with T viewed as a row major D1D x Q1D matrix
		T := blas64.General{Rows: d1d, Cols: q1d, Stride: q1d, Data: tables[a]}
		for k := 0; k < post; k++ {
			blas64.Gemm(blas.Trans, blas.NoTrans, 1, T,
				blas64.General{Rows: d1d, Cols: pre, Stride: pre, Data: in[pre*d1d*k : pre*d1d*(k+1)]},
				0,
				blas64.General{Rows: q1d, Cols: pre, Stride: pre, Data: out[pre*q1d*k : pre*q1d*(k+1)]})
		}
		shape[a] = q1d
		in = out
	}
	return in
}
