package kernels

import (
	"github.com/notargets/PAKernel/device"
	"github.com/notargets/PAKernel/element"
)

// scratch3D holds the per worker stage buffers of the generic 3D apply.
// Index order follows the bracket order, e.g. Bu[dz][dy][qx].
type scratch3D struct {
	u, Bu, Gu, BBu, GBu, BGu []float64
	GBBu, BGBu, BBGu, DGu    []float64
	BDGu, BBDGu              []float64
}

func newScratch3D(D1D, Q1D int) *scratch3D {
	DDQ, DQQ, QQQ := D1D*D1D*Q1D, D1D*Q1D*Q1D, Q1D*Q1D*Q1D
	return &scratch3D{
		u:     make([]float64, D1D*D1D*D1D),
		Bu:    make([]float64, DDQ),
		Gu:    make([]float64, DDQ),
		BBu:   make([]float64, DQQ),
		GBu:   make([]float64, DQQ),
		BGu:   make([]float64, DQQ),
		GBBu:  make([]float64, QQQ),
		BGBu:  make([]float64, QQQ),
		BBGu:  make([]float64, QQQ),
		DGu:   make([]float64, QQQ),
		BDGu:  make([]float64, DQQ),
		BBDGu: make([]float64, DDQ),
	}
}

// applyGeneric3D accumulates the 3D convection action into y
func applyGeneric3D(host *device.Host, NE int, maps *element.DofToQuad, op, x, y []float64) {
	host.ForAllRange(NE, func(start, end int) {
		s := newScratch3D(maps.D1D, maps.Q1D)
		for e := start; e < end; e++ {
			apply3DElement(e, maps, op, x, y, s)
		}
	})
}

func apply3DElement(e int, maps *element.DofToQuad, op, x, y []float64, s *scratch3D) {
	var (
		D1D, Q1D = maps.D1D, maps.Q1D
		ND       = D1D * D1D * D1D
		NQ       = Q1D * Q1D * Q1D
		B, G, Bt = maps.B, maps.G, maps.Bt
	)
	u := s.u
	copy(u, x[e*ND:(e+1)*ND])

	// Contract x: Bu[dz][dy][qx], Gu[dz][dy][qx]
	Bu, Gu := s.Bu, s.Gu
	for dz := 0; dz < D1D; dz++ {
		for dy := 0; dy < D1D; dy++ {
			ud := u[D1D*(dy+D1D*dz):]
			for qx := 0; qx < Q1D; qx++ {
				var bu, gu float64
				for dx := 0; dx < D1D; dx++ {
					xv := ud[dx]
					bu += B[qx+Q1D*dx] * xv
					gu += G[qx+Q1D*dx] * xv
				}
				i := qx + Q1D*(dy+D1D*dz)
				Bu[i] = bu
				Gu[i] = gu
			}
		}
	}
	// Contract y: BBu, GBu, BGu [dz][qy][qx]
	BBu, GBu, BGu := s.BBu, s.GBu, s.BGu
	for dz := 0; dz < D1D; dz++ {
		for qx := 0; qx < Q1D; qx++ {
			for qy := 0; qy < Q1D; qy++ {
				var bbu, gbu, bgu float64
				for dy := 0; dy < D1D; dy++ {
					bx := B[qy+Q1D*dy]
					gx := G[qy+Q1D*dy]
					j := qx + Q1D*(dy+D1D*dz)
					bbu += bx * Bu[j]
					gbu += gx * Bu[j]
					bgu += bx * Gu[j]
				}
				i := qx + Q1D*(qy+Q1D*dz)
				BBu[i] = bbu
				GBu[i] = gbu
				BGu[i] = bgu
			}
		}
	}
	// Contract z: GBBu, BGBu, BBGu [qz][qy][qx]
	GBBu, BGBu, BBGu := s.GBBu, s.BGBu, s.BBGu
	for qx := 0; qx < Q1D; qx++ {
		for qy := 0; qy < Q1D; qy++ {
			for qz := 0; qz < Q1D; qz++ {
				var gbbu, bgbu, bbgu float64
				for dz := 0; dz < D1D; dz++ {
					bx := B[qz+Q1D*dz]
					gx := G[qz+Q1D*dz]
					j := qx + Q1D*(qy+Q1D*dz)
					gbbu += gx * BBu[j]
					bgbu += bx * GBu[j]
					bbgu += bx * BGu[j]
				}
				i := qx + Q1D*(qy+Q1D*qz)
				GBBu[i] = gbbu
				BGBu[i] = bgbu
				BBGu[i] = bbgu
			}
		}
	}
	// DGu[qz][qy][qx] = op . grad u
	DGu := s.DGu
	ope := op[e*3*NQ:]
	for q := 0; q < NQ; q++ {
		O1 := ope[q]
		O2 := ope[q+NQ]
		O3 := ope[q+2*NQ]
		gradX := BBGu[q]
		gradY := BGBu[q]
		gradZ := GBBu[q]
		DGu[q] = (O1 * gradX) + (O2 * gradY) + (O3 * gradZ)
	}
	// Project z: BDGu[dz][qy][qx]
	BDGu := s.BDGu
	for qx := 0; qx < Q1D; qx++ {
		for qy := 0; qy < Q1D; qy++ {
			for dz := 0; dz < D1D; dz++ {
				var bdgu float64
				for qz := 0; qz < Q1D; qz++ {
					bdgu += Bt[dz+D1D*qz] * DGu[qx+Q1D*(qy+Q1D*qz)]
				}
				BDGu[qx+Q1D*(qy+Q1D*dz)] = bdgu
			}
		}
	}
	// Project y: BBDGu[dz][dy][qx]
	BBDGu := s.BBDGu
	for dz := 0; dz < D1D; dz++ {
		for qx := 0; qx < Q1D; qx++ {
			for dy := 0; dy < D1D; dy++ {
				var bbdgu float64
				for qy := 0; qy < Q1D; qy++ {
					bbdgu += Bt[dy+D1D*qy] * BDGu[qx+Q1D*(qy+Q1D*dz)]
				}
				BBDGu[qx+Q1D*(dy+D1D*dz)] = bbdgu
			}
		}
	}
	// Project x and accumulate
	ye := y[e*ND:]
	for dz := 0; dz < D1D; dz++ {
		for dy := 0; dy < D1D; dy++ {
			for dx := 0; dx < D1D; dx++ {
				var bbbdgu float64
				for qx := 0; qx < Q1D; qx++ {
					bbbdgu += Bt[dx+D1D*qx] * BBDGu[qx+Q1D*(dy+D1D*dz)]
				}
				ye[dx+D1D*(dy+D1D*dz)] += bbbdgu
			}
		}
	}
}
