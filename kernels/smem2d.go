package kernels

import (
	"github.com/notargets/PAKernel/device"
	"github.com/notargets/PAKernel/element"
)

// smem2D is the staging memory of one 2D thread group working on a batch of
// NBZ elements. Every buffer is [NBZ][..][..] with the batch slot tidz
// outermost. A stage loop finishing is the group barrier: each stage only
// reads buffers completed by earlier stages and writes every destination
// cell exactly once.
type smem2D struct {
	D1D, Q1D, NBZ int

	u    []float64 // [NBZ][D1D][D1D]
	Bu   []float64 // [NBZ][D1D][Q1D]
	Gu   []float64 // [NBZ][D1D][Q1D]
	GBu  []float64 // [NBZ][Q1D][Q1D]
	BGu  []float64 // [NBZ][Q1D][Q1D]
	DGu  []float64 // [NBZ][Q1D][Q1D]
	BDGu []float64 // [NBZ][D1D][Q1D]

	// Transpose stages
	BBu  []float64 // [NBZ][Q1D][Q1D]
	DBu  []float64 // [NBZ][Q1D][Q1D][2]
	GDBu []float64 // [NBZ][D1D][Q1D][2]
}

func newSmem2D(D1D, Q1D, NBZ int, transpose bool) *smem2D {
	DD, DQ, QQ := D1D*D1D, D1D*Q1D, Q1D*Q1D
	sm := &smem2D{
		D1D: D1D, Q1D: Q1D, NBZ: NBZ,
		u:  make([]float64, NBZ*DD),
		Bu: make([]float64, NBZ*DQ),
	}
	if transpose {
		sm.BBu = make([]float64, NBZ*QQ)
		sm.DBu = make([]float64, NBZ*QQ*2)
		sm.GDBu = make([]float64, NBZ*DQ*2)
		return sm
	}
	sm.Gu = make([]float64, NBZ*DQ)
	sm.GBu = make([]float64, NBZ*QQ)
	sm.BGu = make([]float64, NBZ*QQ)
	sm.DGu = make([]float64, NBZ*QQ)
	sm.BDGu = make([]float64, NBZ*DQ)
	return sm
}

// smemApply2D returns the batched 2D apply kernel for one catalogue entry
func smemApply2D(D1D, Q1D, NBZ int) kernelFunc {
	return func(host *device.Host, NE int, maps *element.DofToQuad, op, x, y []float64) {
		host.ForAllBatch(NE, NBZ, func(start, end int) {
			sm := newSmem2D(D1D, Q1D, NBZ, false)
			for e0 := start; e0 < end; e0 += NBZ {
				sm.apply(e0, min(NBZ, end-e0), maps, op, x, y)
			}
		})
	}
}

// smemApplyTranspose2D returns the batched 2D transpose kernel
func smemApplyTranspose2D(D1D, Q1D, NBZ int) kernelFunc {
	return func(host *device.Host, NE int, maps *element.DofToQuad, op, x, y []float64) {
		host.ForAllBatch(NE, NBZ, func(start, end int) {
			sm := newSmem2D(D1D, Q1D, NBZ, true)
			for e0 := start; e0 < end; e0 += NBZ {
				sm.applyTranspose(e0, min(NBZ, end-e0), maps, op, x, y)
			}
		})
	}
}

// apply runs the group on elements e0 .. e0+nb-1
func (sm *smem2D) apply(e0, nb int, maps *element.DofToQuad, op, x, y []float64) {
	var (
		D1D, Q1D   = sm.D1D, sm.Q1D
		DD, DQ, QQ = D1D * D1D, D1D * Q1D, Q1D * Q1D
		B, G, Bt   = maps.B, maps.G, maps.Bt
	)
	for tidz := 0; tidz < nb; tidz++ {
		e := e0 + tidz
		for dy := 0; dy < D1D; dy++ {
			for dx := 0; dx < D1D; dx++ {
				sm.u[tidz*DD+dx+D1D*dy] = x[dx+D1D*(dy+D1D*e)]
			}
		}
	}
	for tidz := 0; tidz < nb; tidz++ {
		u := sm.u[tidz*DD:]
		Bu, Gu := sm.Bu[tidz*DQ:], sm.Gu[tidz*DQ:]
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
	}
	for tidz := 0; tidz < nb; tidz++ {
		Bu, Gu := sm.Bu[tidz*DQ:], sm.Gu[tidz*DQ:]
		GBu, BGu := sm.GBu[tidz*QQ:], sm.BGu[tidz*QQ:]
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
	}
	for tidz := 0; tidz < nb; tidz++ {
		ope := op[(e0+tidz)*2*QQ:]
		GBu, BGu, DGu := sm.GBu[tidz*QQ:], sm.BGu[tidz*QQ:], sm.DGu[tidz*QQ:]
		for qy := 0; qy < Q1D; qy++ {
			for qx := 0; qx < Q1D; qx++ {
				q := qx + Q1D*qy
				DGu[q] = ope[q]*BGu[q] + ope[q+QQ]*GBu[q]
			}
		}
	}
	for tidz := 0; tidz < nb; tidz++ {
		DGu, BDGu := sm.DGu[tidz*QQ:], sm.BDGu[tidz*DQ:]
		for qx := 0; qx < Q1D; qx++ {
			for dy := 0; dy < D1D; dy++ {
				var bdgu float64
				for qy := 0; qy < Q1D; qy++ {
					bdgu += Bt[dy+D1D*qy] * DGu[qx+Q1D*qy]
				}
				BDGu[qx+Q1D*dy] = bdgu
			}
		}
	}
	for tidz := 0; tidz < nb; tidz++ {
		e := e0 + tidz
		BDGu := sm.BDGu[tidz*DQ:]
		for dx := 0; dx < D1D; dx++ {
			for dy := 0; dy < D1D; dy++ {
				var bbdgu float64
				for qx := 0; qx < Q1D; qx++ {
					bbdgu += Bt[dx+D1D*qx] * BDGu[qx+Q1D*dy]
				}
				y[dx+D1D*(dy+D1D*e)] += bbdgu
			}
		}
	}
}

func (sm *smem2D) applyTranspose(e0, nb int, maps *element.DofToQuad, op, x, y []float64) {
	var (
		D1D, Q1D   = sm.D1D, sm.Q1D
		DD, DQ, QQ = D1D * D1D, D1D * Q1D, Q1D * Q1D
		B, Bt, Gt  = maps.B, maps.Bt, maps.Gt
	)
	for tidz := 0; tidz < nb; tidz++ {
		e := e0 + tidz
		for dy := 0; dy < D1D; dy++ {
			for dx := 0; dx < D1D; dx++ {
				sm.u[tidz*DD+dx+D1D*dy] = x[dx+D1D*(dy+D1D*e)]
			}
		}
	}
	for tidz := 0; tidz < nb; tidz++ {
		u, Bu := sm.u[tidz*DD:], sm.Bu[tidz*DQ:]
		for dy := 0; dy < D1D; dy++ {
			for qx := 0; qx < Q1D; qx++ {
				var bu float64
				for dx := 0; dx < D1D; dx++ {
					bu += B[qx+Q1D*dx] * u[dx+D1D*dy]
				}
				Bu[qx+Q1D*dy] = bu
			}
		}
	}
	for tidz := 0; tidz < nb; tidz++ {
		Bu, BBu := sm.Bu[tidz*DQ:], sm.BBu[tidz*QQ:]
		for qx := 0; qx < Q1D; qx++ {
			for qy := 0; qy < Q1D; qy++ {
				var bbu float64
				for dy := 0; dy < D1D; dy++ {
					bbu += B[qy+Q1D*dy] * Bu[qx+Q1D*dy]
				}
				BBu[qx+Q1D*qy] = bbu
			}
		}
	}
	for tidz := 0; tidz < nb; tidz++ {
		ope := op[(e0+tidz)*2*QQ:]
		BBu, DBu := sm.BBu[tidz*QQ:], sm.DBu[tidz*2*QQ:]
		for qy := 0; qy < Q1D; qy++ {
			for qx := 0; qx < Q1D; qx++ {
				q := qx + Q1D*qy
				X := BBu[q]
				DBu[2*q] = ope[q] * X
				DBu[2*q+1] = ope[q+QQ] * X
			}
		}
	}
	for tidz := 0; tidz < nb; tidz++ {
		DBu, GDBu := sm.DBu[tidz*2*QQ:], sm.GDBu[tidz*2*DQ:]
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
	}
	for tidz := 0; tidz < nb; tidz++ {
		e := e0 + tidz
		GDBu := sm.GDBu[tidz*2*DQ:]
		for dx := 0; dx < D1D; dx++ {
			for dy := 0; dy < D1D; dy++ {
				var res float64
				for qx := 0; qx < Q1D; qx++ {
					i := qx + Q1D*dy
					res += Gt[dx+D1D*qx]*GDBu[2*i] + Bt[dx+D1D*qx]*GDBu[2*i+1]
				}
				y[dx+D1D*(dy+D1D*e)] += res
			}
		}
	}
}
