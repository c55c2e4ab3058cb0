package kernels

import (
	"github.com/notargets/PAKernel/device"
	"github.com/notargets/PAKernel/element"
)

// scratchT3D holds the per worker stage buffers of the generic 3D transpose.
// Three component buffers interleave the component last: DBu[qz][qy][qx][c].
type scratchT3D struct {
	u, Bu, BBu, BBBu []float64
	DBu, GDBu, GGDBu []float64
}

func newScratchT3D(D1D, Q1D int) *scratchT3D {
	DDQ, DQQ, QQQ := D1D*D1D*Q1D, D1D*Q1D*Q1D, Q1D*Q1D*Q1D
	return &scratchT3D{
		u:     make([]float64, D1D*D1D*D1D),
		Bu:    make([]float64, DDQ),
		BBu:   make([]float64, DQQ),
		BBBu:  make([]float64, QQQ),
		DBu:   make([]float64, 3*QQQ),
		GDBu:  make([]float64, 3*DQQ),
		GGDBu: make([]float64, 3*DDQ),
	}
}

// applyTransposeGeneric3D accumulates the 3D transpose action into y
func applyTransposeGeneric3D(host *device.Host, NE int, maps *element.DofToQuad, op, x, y []float64) {
	host.ForAllRange(NE, func(start, end int) {
		s := newScratchT3D(maps.D1D, maps.Q1D)
		for e := start; e < end; e++ {
			applyT3DElement(e, maps, op, x, y, s)
		}
	})
}

func applyT3DElement(e int, maps *element.DofToQuad, op, x, y []float64, s *scratchT3D) {
	var (
		D1D, Q1D  = maps.D1D, maps.Q1D
		ND        = D1D * D1D * D1D
		NQ        = Q1D * Q1D * Q1D
		B, Bt, Gt = maps.B, maps.Bt, maps.Gt
	)
	u := s.u
	copy(u, x[e*ND:(e+1)*ND])

	// Bu[dz][dy][qx]
	Bu := s.Bu
	for dz := 0; dz < D1D; dz++ {
		for dy := 0; dy < D1D; dy++ {
			for qx := 0; qx < Q1D; qx++ {
				var bu float64
				for dx := 0; dx < D1D; dx++ {
					bu += B[qx+Q1D*dx] * u[dx+D1D*(dy+D1D*dz)]
				}
				Bu[qx+Q1D*(dy+D1D*dz)] = bu
			}
		}
	}
	// BBu[dz][qy][qx]
	BBu := s.BBu
	for dz := 0; dz < D1D; dz++ {
		for qx := 0; qx < Q1D; qx++ {
			for qy := 0; qy < Q1D; qy++ {
				var bbu float64
				for dy := 0; dy < D1D; dy++ {
					bbu += B[qy+Q1D*dy] * Bu[qx+Q1D*(dy+D1D*dz)]
				}
				BBu[qx+Q1D*(qy+Q1D*dz)] = bbu
			}
		}
	}
	// BBBu[qz][qy][qx]
	BBBu := s.BBBu
	for qx := 0; qx < Q1D; qx++ {
		for qy := 0; qy < Q1D; qy++ {
			for qz := 0; qz < Q1D; qz++ {
				var bbbu float64
				for dz := 0; dz < D1D; dz++ {
					bbbu += B[qz+Q1D*dz] * BBu[qx+Q1D*(qy+Q1D*dz)]
				}
				BBBu[qx+Q1D*(qy+Q1D*qz)] = bbbu
			}
		}
	}
	// DBu[qz][qy][qx][c] = op_c * u
	DBu := s.DBu
	ope := op[e*3*NQ:]
	for q := 0; q < NQ; q++ {
		X := BBBu[q]
		DBu[3*q] = ope[q] * X
		DBu[3*q+1] = ope[q+NQ] * X
		DBu[3*q+2] = ope[q+2*NQ] * X
	}
	// GDBu[dz][qy][qx][c]: G along z for component 2 only
	GDBu := s.GDBu
	for qx := 0; qx < Q1D; qx++ {
		for qy := 0; qy < Q1D; qy++ {
			for dz := 0; dz < D1D; dz++ {
				var g0, g1, g2 float64
				for qz := 0; qz < Q1D; qz++ {
					bz := Bt[dz+D1D*qz]
					gz := Gt[dz+D1D*qz]
					j := 3 * (qx + Q1D*(qy+Q1D*qz))
					g0 += bz * DBu[j]
					g1 += bz * DBu[j+1]
					g2 += gz * DBu[j+2]
				}
				i := 3 * (qx + Q1D*(qy+Q1D*dz))
				GDBu[i] = g0
				GDBu[i+1] = g1
				GDBu[i+2] = g2
			}
		}
	}
	// GGDBu[dz][dy][qx][c]: G along y for component 1 only
	GGDBu := s.GGDBu
	for dz := 0; dz < D1D; dz++ {
		for qx := 0; qx < Q1D; qx++ {
			for dy := 0; dy < D1D; dy++ {
				var g0, g1, g2 float64
				for qy := 0; qy < Q1D; qy++ {
					by := Bt[dy+D1D*qy]
					gy := Gt[dy+D1D*qy]
					j := 3 * (qx + Q1D*(qy+Q1D*dz))
					g0 += by * GDBu[j]
					g1 += gy * GDBu[j+1]
					g2 += by * GDBu[j+2]
				}
				i := 3 * (qx + Q1D*(dy+D1D*dz))
				GGDBu[i] = g0
				GGDBu[i+1] = g1
				GGDBu[i+2] = g2
			}
		}
	}
	// G along x for component 0 only, sum the components into y
	ye := y[e*ND:]
	for dz := 0; dz < D1D; dz++ {
		for dy := 0; dy < D1D; dy++ {
			for dx := 0; dx < D1D; dx++ {
				var res float64
				for qx := 0; qx < Q1D; qx++ {
					bx := Bt[dx+D1D*qx]
					gx := Gt[dx+D1D*qx]
					j := 3 * (qx + Q1D*(dy+D1D*dz))
					res += gx * GGDBu[j]
					res += bx * GGDBu[j+1]
					res += bx * GGDBu[j+2]
				}
				ye[dx+D1D*(dy+D1D*dz)] += res
			}
		}
	}
}
