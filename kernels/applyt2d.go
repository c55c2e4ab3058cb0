package kernels

import (
	"github.com/notargets/PAKernel/device"
	"github.com/notargets/PAKernel/element"
)

type scratchT2D struct {
	u, Bu, BBu []float64
	DBu        []float64 // [qy][qx][2]
	GDBu       []float64 // [dy][qx][2]
}

func newScratchT2D(D1D, Q1D int) *scratchT2D {
	return &scratchT2D{
		u:    make([]float64, D1D*D1D),
		Bu:   make([]float64, D1D*Q1D),
		BBu:  make([]float64, Q1D*Q1D),
		DBu:  make([]float64, 2*Q1D*Q1D),
		GDBu: make([]float64, 2*D1D*Q1D),
	}
}

// applyTransposeGeneric2D accumulates the 2D transpose action into y
func applyTransposeGeneric2D(host *device.Host, NE int, maps *element.DofToQuad, op, x, y []float64) {
	host.ForAllRange(NE, func(start, end int) {
		s := newScratchT2D(maps.D1D, maps.Q1D)
		for e := start; e < end; e++ {
			applyT2DElement(e, maps, op, x, y, s)
		}
	})
}

func applyT2DElement(e int, maps *element.DofToQuad, op, x, y []float64, s *scratchT2D) {
	var (
		D1D, Q1D  = maps.D1D, maps.Q1D
		NQ        = Q1D * Q1D
		B, Bt, Gt = maps.B, maps.Bt, maps.Gt
	)
	u := s.u
	xe := x[e*D1D*D1D:]
	copy(u, xe[:D1D*D1D])
	// Bu[dy][qx]
	Bu := s.Bu
	for dy := 0; dy < D1D; dy++ {
		for qx := 0; qx < Q1D; qx++ {
			var bu float64
			for dx := 0; dx < D1D; dx++ {
				bu += B[qx+Q1D*dx] * u[dx+D1D*dy]
			}
			Bu[qx+Q1D*dy] = bu
		}
	}
	// BBu[qy][qx]
	BBu := s.BBu
	for qx := 0; qx < Q1D; qx++ {
		for qy := 0; qy < Q1D; qy++ {
			var bbu float64
			for dy := 0; dy < D1D; dy++ {
				bbu += B[qy+Q1D*dy] * Bu[qx+Q1D*dy]
			}
			BBu[qx+Q1D*qy] = bbu
		}
	}
	// DBu[qy][qx][c] = op_c * u
	DBu := s.DBu
	ope := op[e*2*NQ:]
	for q := 0; q < NQ; q++ {
		X := BBu[q]
		DBu[2*q] = ope[q] * X
		DBu[2*q+1] = ope[q+NQ] * X
	}
	// GDBu[dy][qx][c]: component 0 keeps B along y, component 1 takes G
	GDBu := s.GDBu
	for qx := 0; qx < Q1D; qx++ {
		for dy := 0; dy < D1D; dy++ {
			var g0, g1 float64
			for qy := 0; qy < Q1D; qy++ {
				q := qx + Q1D*qy
				g0 += Bt[dy+D1D*qy] * DBu[2*q]
				g1 += Gt[dy+D1D*qy] * DBu[2*q+1]
			}
			i := qx + Q1D*dy
			GDBu[2*i] = g0
			GDBu[2*i+1] = g1
		}
	}
	ye := y[e*D1D*D1D:]
	for dx := 0; dx < D1D; dx++ {
		for dy := 0; dy < D1D; dy++ {
			var res float64
			for qx := 0; qx < Q1D; qx++ {
				i := qx + Q1D*dy
				res += Gt[dx+D1D*qx]*GDBu[2*i] + Bt[dx+D1D*qx]*GDBu[2*i+1]
			}
			ye[dx+D1D*dy] += res
		}
	}
}
