package runner

import (
	"fmt"

	"github.com/notargets/PAKernel/runner/builder"
)

// Basis table accessors over the static B_ and G_ arrays
const basisMacros = `#define B(q,d) B_[d][q]
#define G(q,d) G_[d][q]
#define Bt(d,q) B_[d][q]
#define Gt(d,q) G_[d][q]
#define NQ (Q1D*Q1D*(DIM == 3 ? Q1D : 1))
#define ND (D1D*D1D*(DIM == 3 ? D1D : 1))
#define NBLOCKS ((NE + NBZ - 1) / NBZ)
`

// Every @inner block spans NBZ x MDQ x MDQ threads and guards the active
// range, so consecutive blocks are separated by OCCA barriers
const apply2DBody = `
  for (int eb = 0; eb < NBLOCKS; ++eb; @outer) {
    @shared real_t u[NBZ][D1D][D1D];
    @shared real_t Bu[NBZ][D1D][Q1D];
    @shared real_t Gu[NBZ][D1D][Q1D];
    @shared real_t GBu[NBZ][Q1D][Q1D];
    @shared real_t BGu[NBZ][Q1D][Q1D];
    @shared real_t DGu[NBZ][Q1D][Q1D];
    @shared real_t BDGu[NBZ][D1D][Q1D];

    for (int tz = 0; tz < NBZ; ++tz; @inner) {
      for (int ty = 0; ty < MDQ; ++ty; @inner) {
        for (int tx = 0; tx < MDQ; ++tx; @inner) {
          const int e = eb*NBZ + tz;
          if (e < NE && ty < D1D && tx < D1D) {
            u[tz][ty][tx] = x[tx + D1D*(ty + D1D*e)];
          }
        }
      }
    }
    for (int tz = 0; tz < NBZ; ++tz; @inner) {
      for (int dy = 0; dy < MDQ; ++dy; @inner) {
        for (int qx = 0; qx < MDQ; ++qx; @inner) {
          if (dy < D1D && qx < Q1D) {
            real_t bu = REAL_ZERO, gu = REAL_ZERO;
            for (int dx = 0; dx < D1D; ++dx) {
              const real_t xv = u[tz][dy][dx];
              bu += B(qx,dx) * xv;
              gu += G(qx,dx) * xv;
            }
            Bu[tz][dy][qx] = bu;
            Gu[tz][dy][qx] = gu;
          }
        }
      }
    }
    for (int tz = 0; tz < NBZ; ++tz; @inner) {
      for (int qy = 0; qy < MDQ; ++qy; @inner) {
        for (int qx = 0; qx < MDQ; ++qx; @inner) {
          if (qy < Q1D && qx < Q1D) {
            real_t gbu = REAL_ZERO, bgu = REAL_ZERO;
            for (int dy = 0; dy < D1D; ++dy) {
              gbu += G(qy,dy) * Bu[tz][dy][qx];
              bgu += B(qy,dy) * Gu[tz][dy][qx];
            }
            GBu[tz][qy][qx] = gbu;
            BGu[tz][qy][qx] = bgu;
          }
        }
      }
    }
    for (int tz = 0; tz < NBZ; ++tz; @inner) {
      for (int qy = 0; qy < MDQ; ++qy; @inner) {
        for (int qx = 0; qx < MDQ; ++qx; @inner) {
          const int e = eb*NBZ + tz;
          if (e < NE && qy < Q1D && qx < Q1D) {
            const int q = qx + Q1D*qy;
            DGu[tz][qy][qx] = op[q + NQ*(0 + 2*e)] * BGu[tz][qy][qx]
                            + op[q + NQ*(1 + 2*e)] * GBu[tz][qy][qx];
          }
        }
      }
    }
    for (int tz = 0; tz < NBZ; ++tz; @inner) {
      for (int dy = 0; dy < MDQ; ++dy; @inner) {
        for (int qx = 0; qx < MDQ; ++qx; @inner) {
          if (dy < D1D && qx < Q1D) {
            real_t bdgu = REAL_ZERO;
            for (int qy = 0; qy < Q1D; ++qy) {
              bdgu += Bt(dy,qy) * DGu[tz][qy][qx];
            }
            BDGu[tz][dy][qx] = bdgu;
          }
        }
      }
    }
    for (int tz = 0; tz < NBZ; ++tz; @inner) {
      for (int dy = 0; dy < MDQ; ++dy; @inner) {
        for (int dx = 0; dx < MDQ; ++dx; @inner) {
          const int e = eb*NBZ + tz;
          if (e < NE && dy < D1D && dx < D1D) {
            real_t bbdgu = REAL_ZERO;
            for (int qx = 0; qx < Q1D; ++qx) {
              bbdgu += Bt(dx,qx) * BDGu[tz][dy][qx];
            }
            y[dx + D1D*(dy + D1D*e)] += bbdgu;
          }
        }
      }
    }
  }
`

const applyTranspose2DBody = `
  for (int eb = 0; eb < NBLOCKS; ++eb; @outer) {
    @shared real_t u[NBZ][D1D][D1D];
    @shared real_t Bu[NBZ][D1D][Q1D];
    @shared real_t BBu[NBZ][Q1D][Q1D];
    @shared real_t DBu0[NBZ][Q1D][Q1D];
    @shared real_t DBu1[NBZ][Q1D][Q1D];
    @shared real_t GDBu0[NBZ][D1D][Q1D];
    @shared real_t GDBu1[NBZ][D1D][Q1D];

    for (int tz = 0; tz < NBZ; ++tz; @inner) {
      for (int ty = 0; ty < MDQ; ++ty; @inner) {
        for (int tx = 0; tx < MDQ; ++tx; @inner) {
          const int e = eb*NBZ + tz;
          if (e < NE && ty < D1D && tx < D1D) {
            u[tz][ty][tx] = x[tx + D1D*(ty + D1D*e)];
          }
        }
      }
    }
    for (int tz = 0; tz < NBZ; ++tz; @inner) {
      for (int dy = 0; dy < MDQ; ++dy; @inner) {
        for (int qx = 0; qx < MDQ; ++qx; @inner) {
          if (dy < D1D && qx < Q1D) {
            real_t bu = REAL_ZERO;
            for (int dx = 0; dx < D1D; ++dx) {
              bu += B(qx,dx) * u[tz][dy][dx];
            }
            Bu[tz][dy][qx] = bu;
          }
        }
      }
    }
    for (int tz = 0; tz < NBZ; ++tz; @inner) {
      for (int qy = 0; qy < MDQ; ++qy; @inner) {
        for (int qx = 0; qx < MDQ; ++qx; @inner) {
          if (qy < Q1D && qx < Q1D) {
            real_t bbu = REAL_ZERO;
            for (int dy = 0; dy < D1D; ++dy) {
              bbu += B(qy,dy) * Bu[tz][dy][qx];
            }
            BBu[tz][qy][qx] = bbu;
          }
        }
      }
    }
    for (int tz = 0; tz < NBZ; ++tz; @inner) {
      for (int qy = 0; qy < MDQ; ++qy; @inner) {
        for (int qx = 0; qx < MDQ; ++qx; @inner) {
          const int e = eb*NBZ + tz;
          if (e < NE && qy < Q1D && qx < Q1D) {
            const int q = qx + Q1D*qy;
            const real_t X = BBu[tz][qy][qx];
            DBu0[tz][qy][qx] = op[q + NQ*(0 + 2*e)] * X;
            DBu1[tz][qy][qx] = op[q + NQ*(1 + 2*e)] * X;
          }
        }
      }
    }
    for (int tz = 0; tz < NBZ; ++tz; @inner) {
      for (int dy = 0; dy < MDQ; ++dy; @inner) {
        for (int qx = 0; qx < MDQ; ++qx; @inner) {
          if (dy < D1D && qx < Q1D) {
            real_t g0 = REAL_ZERO, g1 = REAL_ZERO;
            for (int qy = 0; qy < Q1D; ++qy) {
              g0 += Bt(dy,qy) * DBu0[tz][qy][qx];
              g1 += Gt(dy,qy) * DBu1[tz][qy][qx];
            }
            GDBu0[tz][dy][qx] = g0;
            GDBu1[tz][dy][qx] = g1;
          }
        }
      }
    }
    for (int tz = 0; tz < NBZ; ++tz; @inner) {
      for (int dy = 0; dy < MDQ; ++dy; @inner) {
        for (int dx = 0; dx < MDQ; ++dx; @inner) {
          const int e = eb*NBZ + tz;
          if (e < NE && dy < D1D && dx < D1D) {
            real_t res = REAL_ZERO;
            for (int qx = 0; qx < Q1D; ++qx) {
              res += Gt(dx,qx) * GDBu0[tz][dy][qx] + Bt(dx,qx) * GDBu1[tz][dy][qx];
            }
            y[dx + D1D*(dy + D1D*e)] += res;
          }
        }
      }
    }
  }
`

// The 3D kernels run MDQ x MDQ threads per element and loop over the third
// direction. Six MDQ^3 buffers are reused once their last reader is done:
// GBBu, BGBu, BBGu overwrite u, Bu, Gu and DGu overwrites BBu.
const apply3DBody = `
  for (int e = 0; e < NE; ++e; @outer) {
    @shared real_t sm0[MDQ][MDQ][MDQ];
    @shared real_t sm1[MDQ][MDQ][MDQ];
    @shared real_t sm2[MDQ][MDQ][MDQ];
    @shared real_t sm3[MDQ][MDQ][MDQ];
    @shared real_t sm4[MDQ][MDQ][MDQ];
    @shared real_t sm5[MDQ][MDQ][MDQ];

    for (int dy = 0; dy < MDQ; ++dy; @inner) {
      for (int dx = 0; dx < MDQ; ++dx; @inner) {
        if (dy < D1D && dx < D1D) {
          for (int dz = 0; dz < D1D; ++dz) {
            sm0[dz][dy][dx] = x[dx + D1D*(dy + D1D*(dz + D1D*e))];
          }
        }
      }
    }
    for (int dy = 0; dy < MDQ; ++dy; @inner) {
      for (int qx = 0; qx < MDQ; ++qx; @inner) {
        if (dy < D1D && qx < Q1D) {
          for (int dz = 0; dz < D1D; ++dz) {
            real_t bu = REAL_ZERO, gu = REAL_ZERO;
            for (int dx = 0; dx < D1D; ++dx) {
              const real_t xv = sm0[dz][dy][dx];
              bu += B(qx,dx) * xv;
              gu += G(qx,dx) * xv;
            }
            sm1[dz][dy][qx] = bu;
            sm2[dz][dy][qx] = gu;
          }
        }
      }
    }
    for (int qy = 0; qy < MDQ; ++qy; @inner) {
      for (int qx = 0; qx < MDQ; ++qx; @inner) {
        if (qy < Q1D && qx < Q1D) {
          for (int dz = 0; dz < D1D; ++dz) {
            real_t bbu = REAL_ZERO, gbu = REAL_ZERO, bgu = REAL_ZERO;
            for (int dy = 0; dy < D1D; ++dy) {
              bbu += B(qy,dy) * sm1[dz][dy][qx];
              gbu += G(qy,dy) * sm1[dz][dy][qx];
              bgu += B(qy,dy) * sm2[dz][dy][qx];
            }
            sm3[dz][qy][qx] = bbu;
            sm4[dz][qy][qx] = gbu;
            sm5[dz][qy][qx] = bgu;
          }
        }
      }
    }
    for (int qy = 0; qy < MDQ; ++qy; @inner) {
      for (int qx = 0; qx < MDQ; ++qx; @inner) {
        if (qy < Q1D && qx < Q1D) {
          for (int qz = 0; qz < Q1D; ++qz) {
            real_t gbbu = REAL_ZERO, bgbu = REAL_ZERO, bbgu = REAL_ZERO;
            for (int dz = 0; dz < D1D; ++dz) {
              gbbu += G(qz,dz) * sm3[dz][qy][qx];
              bgbu += B(qz,dz) * sm4[dz][qy][qx];
              bbgu += B(qz,dz) * sm5[dz][qy][qx];
            }
            sm0[qz][qy][qx] = gbbu;
            sm1[qz][qy][qx] = bgbu;
            sm2[qz][qy][qx] = bbgu;
          }
        }
      }
    }
    for (int qy = 0; qy < MDQ; ++qy; @inner) {
      for (int qx = 0; qx < MDQ; ++qx; @inner) {
        if (qy < Q1D && qx < Q1D) {
          for (int qz = 0; qz < Q1D; ++qz) {
            const int q = qx + Q1D*(qy + Q1D*qz);
            sm3[qz][qy][qx] = op[q + NQ*(0 + 3*e)] * sm2[qz][qy][qx]
                            + op[q + NQ*(1 + 3*e)] * sm1[qz][qy][qx]
                            + op[q + NQ*(2 + 3*e)] * sm0[qz][qy][qx];
          }
        }
      }
    }
    for (int qy = 0; qy < MDQ; ++qy; @inner) {
      for (int qx = 0; qx < MDQ; ++qx; @inner) {
        if (qy < Q1D && qx < Q1D) {
          for (int dz = 0; dz < D1D; ++dz) {
            real_t bdgu = REAL_ZERO;
            for (int qz = 0; qz < Q1D; ++qz) {
              bdgu += Bt(dz,qz) * sm3[qz][qy][qx];
            }
            sm4[dz][qy][qx] = bdgu;
          }
        }
      }
    }
    for (int dy = 0; dy < MDQ; ++dy; @inner) {
      for (int qx = 0; qx < MDQ; ++qx; @inner) {
        if (dy < D1D && qx < Q1D) {
          for (int dz = 0; dz < D1D; ++dz) {
            real_t bbdgu = REAL_ZERO;
            for (int qy = 0; qy < Q1D; ++qy) {
              bbdgu += Bt(dy,qy) * sm4[dz][qy][qx];
            }
            sm5[dz][dy][qx] = bbdgu;
          }
        }
      }
    }
    for (int dy = 0; dy < MDQ; ++dy; @inner) {
      for (int dx = 0; dx < MDQ; ++dx; @inner) {
        if (dy < D1D && dx < D1D) {
          for (int dz = 0; dz < D1D; ++dz) {
            real_t bbbdgu = REAL_ZERO;
            for (int qx = 0; qx < Q1D; ++qx) {
              bbbdgu += Bt(dx,qx) * sm5[dz][dy][qx];
            }
            y[dx + D1D*(dy + D1D*(dz + D1D*e))] += bbbdgu;
          }
        }
      }
    }
  }
`

// The transpose ping-pongs between two buffers holding up to three
// components each
const applyTranspose3DBody = `
  for (int e = 0; e < NE; ++e; @outer) {
    @shared real_t s0[3][MDQ][MDQ][MDQ];
    @shared real_t s1[3][MDQ][MDQ][MDQ];

    for (int dy = 0; dy < MDQ; ++dy; @inner) {
      for (int dx = 0; dx < MDQ; ++dx; @inner) {
        if (dy < D1D && dx < D1D) {
          for (int dz = 0; dz < D1D; ++dz) {
            s0[0][dz][dy][dx] = x[dx + D1D*(dy + D1D*(dz + D1D*e))];
          }
        }
      }
    }
    for (int dy = 0; dy < MDQ; ++dy; @inner) {
      for (int qx = 0; qx < MDQ; ++qx; @inner) {
        if (dy < D1D && qx < Q1D) {
          for (int dz = 0; dz < D1D; ++dz) {
            real_t bu = REAL_ZERO;
            for (int dx = 0; dx < D1D; ++dx) {
              bu += B(qx,dx) * s0[0][dz][dy][dx];
            }
            s1[0][dz][dy][qx] = bu;
          }
        }
      }
    }
    for (int qy = 0; qy < MDQ; ++qy; @inner) {
      for (int qx = 0; qx < MDQ; ++qx; @inner) {
        if (qy < Q1D && qx < Q1D) {
          for (int dz = 0; dz < D1D; ++dz) {
            real_t bbu = REAL_ZERO;
            for (int dy = 0; dy < D1D; ++dy) {
              bbu += B(qy,dy) * s1[0][dz][dy][qx];
            }
            s0[0][dz][qy][qx] = bbu;
          }
        }
      }
    }
    for (int qy = 0; qy < MDQ; ++qy; @inner) {
      for (int qx = 0; qx < MDQ; ++qx; @inner) {
        if (qy < Q1D && qx < Q1D) {
          for (int qz = 0; qz < Q1D; ++qz) {
            real_t bbbu = REAL_ZERO;
            for (int dz = 0; dz < D1D; ++dz) {
              bbbu += B(qz,dz) * s0[0][dz][qy][qx];
            }
            s1[0][qz][qy][qx] = bbbu;
          }
        }
      }
    }
    for (int qy = 0; qy < MDQ; ++qy; @inner) {
      for (int qx = 0; qx < MDQ; ++qx; @inner) {
        if (qy < Q1D && qx < Q1D) {
          for (int qz = 0; qz < Q1D; ++qz) {
            const int q = qx + Q1D*(qy + Q1D*qz);
            const real_t X = s1[0][qz][qy][qx];
            s0[0][qz][qy][qx] = op[q + NQ*(0 + 3*e)] * X;
            s0[1][qz][qy][qx] = op[q + NQ*(1 + 3*e)] * X;
            s0[2][qz][qy][qx] = op[q + NQ*(2 + 3*e)] * X;
          }
        }
      }
    }
    for (int qy = 0; qy < MDQ; ++qy; @inner) {
      for (int qx = 0; qx < MDQ; ++qx; @inner) {
        if (qy < Q1D && qx < Q1D) {
          for (int dz = 0; dz < D1D; ++dz) {
            real_t g0 = REAL_ZERO, g1 = REAL_ZERO, g2 = REAL_ZERO;
            for (int qz = 0; qz < Q1D; ++qz) {
              g0 += Bt(dz,qz) * s0[0][qz][qy][qx];
              g1 += Bt(dz,qz) * s0[1][qz][qy][qx];
              g2 += Gt(dz,qz) * s0[2][qz][qy][qx];
            }
            s1[0][dz][qy][qx] = g0;
            s1[1][dz][qy][qx] = g1;
            s1[2][dz][qy][qx] = g2;
          }
        }
      }
    }
    for (int dy = 0; dy < MDQ; ++dy; @inner) {
      for (int qx = 0; qx < MDQ; ++qx; @inner) {
        if (dy < D1D && qx < Q1D) {
          for (int dz = 0; dz < D1D; ++dz) {
            real_t g0 = REAL_ZERO, g1 = REAL_ZERO, g2 = REAL_ZERO;
            for (int qy = 0; qy < Q1D; ++qy) {
              g0 += Bt(dy,qy) * s1[0][dz][qy][qx];
              g1 += Gt(dy,qy) * s1[1][dz][qy][qx];
              g2 += Bt(dy,qy) * s1[2][dz][qy][qx];
            }
            s0[0][dz][dy][qx] = g0;
            s0[1][dz][dy][qx] = g1;
            s0[2][dz][dy][qx] = g2;
          }
        }
      }
    }
    for (int dy = 0; dy < MDQ; ++dy; @inner) {
      for (int dx = 0; dx < MDQ; ++dx; @inner) {
        if (dy < D1D && dx < D1D) {
          for (int dz = 0; dz < D1D; ++dz) {
            real_t res = REAL_ZERO;
            for (int qx = 0; qx < Q1D; ++qx) {
              res += Gt(dx,qx) * s0[0][dz][dy][qx]
                   + Bt(dx,qx) * (s0[1][dz][dy][qx] + s0[2][dz][dy][qx]);
            }
            y[dx + D1D*(dy + D1D*(dz + D1D*e))] += res;
          }
        }
      }
    }
  }
`

// convectionParams describes the kernel arguments of spec in the runner's
// float type
func convectionParams(spec ConvectionSpec, dt builder.DataType) []*builder.ParamBuilder {
	return []*builder.ParamBuilder{
		builder.Input("op").Type(dt).Size(spec.NOpData()),
		builder.Input("x").Type(dt).Size(spec.NDofs()),
		builder.InOut("y").Type(dt).Size(spec.NDofs()),
	}
}

// ConvectionSource returns the OKL source of a convection kernel, to be
// compiled after a preamble configured by ConvectionSpec.Configure
func ConvectionSource(spec ConvectionSpec, transpose bool) string {
	var body string
	switch {
	case spec.Dim == 2 && !transpose:
		body = apply2DBody
	case spec.Dim == 2:
		body = applyTranspose2DBody
	case spec.Dim == 3 && !transpose:
		body = apply3DBody
	case spec.Dim == 3:
		body = applyTranspose3DBody
	default:
		panic(fmt.Sprintf("no device convection kernel for dim %d", spec.Dim))
	}
	name := spec.ApplyKernelName()
	if transpose {
		name = spec.ApplyTransposeKernelName()
	}
	return basisMacros + "\n" +
		builder.GenerateKernelDeclaration(name, convectionParams(spec, builder.Float64)...) + " {" +
		body + "}\n"
}
