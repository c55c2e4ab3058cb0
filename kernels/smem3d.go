package kernels

import (
	"github.com/notargets/PAKernel/device"
	"github.com/notargets/PAKernel/element"
)

// smem3D is the staging memory of one 3D thread group (one element). The
// apply kernel reuses six buffers of MDQ^3 values, MDQ = max(D1D,Q1D):
//
//	stage      sm0   sm1   sm2   sm3   sm4   sm5
//	load       u
//	x          .     Bu    Gu
//	y          .     .     .     BBu   GBu   BGu
//	z          GBBu  BGBu  BBGu  .     .     .
//	op         .     .     .     DGu
//	Bt z       .     .     .     .     BDGu
//	Bt y       .     .     .     .     .     BBDGu
//
// A buffer is dead once its last reader stage has finished, so the next
// stage may overwrite it. The transpose kernel ping-pongs between two
// buffers of 3*MDQ^3 values.
type smem3D struct {
	D1D, Q1D int
	sm       [6][]float64
}

func newSmem3D(D1D, Q1D int, transpose bool) *smem3D {
	mdq := max(D1D, Q1D)
	n := mdq * mdq * mdq
	sm := &smem3D{D1D: D1D, Q1D: Q1D}
	if transpose {
		sm.sm[0] = make([]float64, 3*n)
		sm.sm[1] = make([]float64, 3*n)
		return sm
	}
	for i := range sm.sm {
		sm.sm[i] = make([]float64, n)
	}
	return sm
}

// smemApply3D returns the 3D apply kernel for one catalogue entry
func smemApply3D(D1D, Q1D int) kernelFunc {
	return func(host *device.Host, NE int, maps *element.DofToQuad, op, x, y []float64) {
		host.ForAllRange(NE, func(start, end int) {
			sm := newSmem3D(D1D, Q1D, false)
			for e := start; e < end; e++ {
				sm.apply(e, maps, op, x, y)
			}
		})
	}
}

// smemApplyTranspose3D returns the 3D transpose kernel for one entry
func smemApplyTranspose3D(D1D, Q1D int) kernelFunc {
	return func(host *device.Host, NE int, maps *element.DofToQuad, op, x, y []float64) {
		host.ForAllRange(NE, func(start, end int) {
			sm := newSmem3D(D1D, Q1D, true)
			for e := start; e < end; e++ {
				sm.applyTranspose(e, maps, op, x, y)
			}
		})
	}
}

func (s *smem3D) apply(e int, maps *element.DofToQuad, op, x, y []float64) {
	var (
		D1D, Q1D = s.D1D, s.Q1D
		ND, NQ   = D1D * D1D * D1D, Q1D * Q1D * Q1D
		B, G, Bt = maps.B, maps.G, maps.Bt
		sm0, sm1 = s.sm[0], s.sm[1]
		sm2, sm3 = s.sm[2], s.sm[3]
		sm4, sm5 = s.sm[4], s.sm[5]
	)
	u := sm0 // [dz][dy][dx]
	for dz := 0; dz < D1D; dz++ {
		for dy := 0; dy < D1D; dy++ {
			for dx := 0; dx < D1D; dx++ {
				i := dx + D1D*(dy+D1D*dz)
				u[i] = x[i+ND*e]
			}
		}
	}
	Bu, Gu := sm1, sm2 // [dz][dy][qx]
	for dz := 0; dz < D1D; dz++ {
		for dy := 0; dy < D1D; dy++ {
			for qx := 0; qx < Q1D; qx++ {
				var bu, gu float64
				for dx := 0; dx < D1D; dx++ {
					xv := u[dx+D1D*(dy+D1D*dz)]
					bu += B[qx+Q1D*dx] * xv
					gu += G[qx+Q1D*dx] * xv
				}
				Bu[qx+Q1D*(dy+D1D*dz)] = bu
				Gu[qx+Q1D*(dy+D1D*dz)] = gu
			}
		}
	}
	BBu, GBu, BGu := sm3, sm4, sm5 // [dz][qy][qx]
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
	GBBu, BGBu, BBGu := sm0, sm1, sm2 // [qz][qy][qx]
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
	DGu := sm3 // [qz][qy][qx]
	ope := op[3*NQ*e:]
	for qz := 0; qz < Q1D; qz++ {
		for qy := 0; qy < Q1D; qy++ {
			for qx := 0; qx < Q1D; qx++ {
				q := qx + Q1D*(qy+Q1D*qz)
				DGu[q] = ope[q]*BBGu[q] + ope[q+NQ]*BGBu[q] + ope[q+2*NQ]*GBBu[q]
			}
		}
	}
	BDGu := sm4 // [dz][qy][qx]
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
	BBDGu := sm5 // [dz][dy][qx]
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
	for dz := 0; dz < D1D; dz++ {
		for dy := 0; dy < D1D; dy++ {
			for dx := 0; dx < D1D; dx++ {
				var bbbdgu float64
				for qx := 0; qx < Q1D; qx++ {
					bbbdgu += Bt[dx+D1D*qx] * BBDGu[qx+Q1D*(dy+D1D*dz)]
				}
				y[dx+D1D*(dy+D1D*dz)+ND*e] += bbbdgu
			}
		}
	}
}

func (s *smem3D) applyTranspose(e int, maps *element.DofToQuad, op, x, y []float64) {
	var (
		D1D, Q1D  = s.D1D, s.Q1D
		ND, NQ    = D1D * D1D * D1D, Q1D * Q1D * Q1D
		B, Bt, Gt = maps.B, maps.Bt, maps.Gt
		sm0, sm1  = s.sm[0], s.sm[1]
	)
	u := sm0 // [dz][dy][dx]
	copy(u, x[ND*e:ND*(e+1)])

	Bu := sm1 // [dz][dy][qx]
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
	BBu := sm0 // [dz][qy][qx]
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
	BBBu := sm1 // [qz][qy][qx]
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
	DBu := sm0 // [qz][qy][qx][3]
	ope := op[3*NQ*e:]
	for q := 0; q < NQ; q++ {
		X := BBBu[q]
		DBu[3*q] = ope[q] * X
		DBu[3*q+1] = ope[q+NQ] * X
		DBu[3*q+2] = ope[q+2*NQ] * X
	}
	GDBu := sm1 // [dz][qy][qx][3]
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
				GDBu[i], GDBu[i+1], GDBu[i+2] = g0, g1, g2
			}
		}
	}
	GGDBu := sm0 // [dz][dy][qx][3]
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
				GGDBu[i], GGDBu[i+1], GGDBu[i+2] = g0, g1, g2
			}
		}
	}
	for dz := 0; dz < D1D; dz++ {
		for dy := 0; dy < D1D; dy++ {
			for dx := 0; dx < D1D; dx++ {
				var res float64
				for qx := 0; qx < Q1D; qx++ {
					bx := Bt[dx+D1D*qx]
					gx := Gt[dx+D1D*qx]
					j := 3 * (qx + Q1D*(dy+D1D*dz))
					res += gx*GGDBu[j] + bx*GGDBu[j+1] + bx*GGDBu[j+2]
				}
				y[dx+D1D*(dy+D1D*dz)+ND*e] += res
			}
		}
	}
}
