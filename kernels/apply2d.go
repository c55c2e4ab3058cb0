package kernels

import (
	"github.com/notargets/PAKernel/device"
	"github.com/notargets/PAKernel/element"
)

// scratch2D holds the per worker stage buffers of the generic 2D kernels
type scratch2D struct {
	u, Bu, Gu, GBu, BGu, DGu, BDGu []float64
}

func newScratch2D(D1D, Q1D int) *scratch2D {
	return &scratch2D{
		u:    make([]float64, D1D*D1D),
		Bu:   make([]float64, D1D*Q1D),
		Gu:   make([]float64, D1D*Q1D),
		GBu:  make([]float64, Q1D*Q1D),
		BGu:  make([]float64, Q1D*Q1D),
		DGu:  make([]float64, Q1D*Q1D),
		BDGu: make([]float64, D1D*Q1D),
	}
}

// applyGeneric2D accumulates the 2D convection action into y, one element
// per loop iteration with sizes taken at run time.
func applyGeneric2D(host *device.Host, NE int, maps *element.DofToQuad, op, x, y []float64) {
	host.ForAllRange(NE, func(start, end int) {
		s := newScratch2D(maps.D1D, maps.Q1D)
		for e := start; e < end; e++ {
			apply2DElement(e, maps, op, x, y, s)
		}
	})
}

func apply2DElement(e int, maps *element.DofToQuad, op, x, y []float64, s *scratch2D) {
	var (
		D1D, Q1D = maps.D1D, maps.Q1D
		NQ       = Q1D * Q1D
		B, G, Bt = maps.B, maps.G, maps.Bt
	)
	// u[dy][dx]
	u := s.u
	xe := x[e*D1D*D1D:]
	for dy := 0; dy < D1D; dy++ {
		for dx := 0; dx < D1D; dx++ {
			u[dx+D1D*dy] = xe[dx+D1D*dy]
		}
	}
	// Bu[dy][qx], Gu[dy][qx]
	Bu, Gu := s.Bu, s.Gu
	for dy := 0; dy < D1D; dy++ {
		for qx := 0; qx < Q1D; qx++ {
			var bu, gu float64
			for dx := 0; dx < D1D; dx++ {
				xv := u[dx+D1D*dy]
				bu += B[qx+Q1D*dx] * xv
				gu += G[qx+Q1D*dx] * xv
			}
			Bu[qx+Q1D*dy] = bu
			Gu[qx+Q1D*dy] = gu
		}
	}
	// GBu[qy][qx], BGu[qy][qx]
	GBu, BGu := s.GBu, s.BGu
	for qx := 0; qx < Q1D; qx++ {
		for qy := 0; qy < Q1D; qy++ {
			var gbu, bgu float64
			for dy := 0; dy < D1D; dy++ {
				gbu += G[qy+Q1D*dy] * Bu[qx+Q1D*dy]
				bgu += B[qy+Q1D*dy] * Gu[qx+Q1D*dy]
			}
			GBu[qx+Q1D*qy] = gbu
			BGu[qx+Q1D*qy] = bgu
		}
	}
	// DGu[qy][qx] = op . grad u
	DGu := s.DGu
	ope := op[e*2*NQ:]
	for qy := 0; qy < Q1D; qy++ {
		for qx := 0; qx < Q1D; qx++ {
			q := qx + Q1D*qy
			O1 := ope[q]
			O2 := ope[q+NQ]
			gradX := BGu[q]
			gradY := GBu[q]
			DGu[q] = (O1 * gradX) + (O2 * gradY)
		}
	}
	// BDGu[dy][qx]
	BDGu := s.BDGu
	for qx := 0; qx < Q1D; qx++ {
		for dy := 0; dy < D1D; dy++ {
			var bdgu float64
			for qy := 0; qy < Q1D; qy++ {
				bdgu += Bt[dy+D1D*qy] * DGu[qx+Q1D*qy]
			}
			BDGu[qx+Q1D*dy] = bdgu
		}
	}
	ye := y[e*D1D*D1D:]
	for dx := 0; dx < D1D; dx++ {
		for dy := 0; dy < D1D; dy++ {
			var bbdgu float64
			for qx := 0; qx < Q1D; qx++ {
				bbdgu += Bt[dx+D1D*qx] * BDGu[qx+Q1D*dy]
			}
			ye[dx+D1D*dy] += bbdgu
		}
	}
}
