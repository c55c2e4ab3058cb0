package mesh

import (
	"math"

	"github.com/notargets/PAKernel/kernels"
)

// VelocityFunc evaluates a velocity at a physical point. Components beyond
// the mesh dimension are ignored.
type VelocityFunc func(x [3]float64) [3]float64

// SampleVelocity evaluates f at the physical quadrature points. A velocity
// that comes out identical at every point is returned as a
// kernels.ConstantVelocity, otherwise as a *kernels.VelocityField.
func (m *BoxMesh) SampleVelocity(f VelocityFunc) kernels.Velocity {
	var (
		dim = m.cfg.Dim
		nq  = m.rule.NPoints()
		gf  = m.geom
	)
	field := kernels.NewVelocityField(dim, nq, m.ne)
	m.cfg.Host.ForAll(m.ne, func(e int) {
		for q := 0; q < nq; q++ {
			var x [3]float64
			for i := 0; i < dim; i++ {
				x[i] = gf.X[gf.XIndex(q, i, e)]
			}
			v := f(x)
			for i := 0; i < dim; i++ {
				field.Set(i, q, e, v[i])
			}
		}
	})
	uniform := true
	for i := dim; i < len(field.Values) && uniform; i++ {
		uniform = field.Values[i] == field.Values[i%dim]
	}
	if uniform {
		return kernels.ConstantVelocity(append([]float64(nil), field.Values[:dim]...))
	}
	return field
}

// Project interpolates f at the nodes, giving an element-local dof vector
// laid out (D1D, D1D[, D1D], NE)
func (m *BoxMesh) Project(f func(x [3]float64) float64) []float64 {
	nd := m.el.Np()
	u := make([]float64, nd*m.ne)
	m.cfg.Host.ForAll(m.ne, func(e int) {
		for d := 0; d < nd; d++ {
			u[d+nd*e] = f(m.NodeCoordinates(d, e))
		}
	})
	return u
}

// Sinusoidal displaces interior points of the box [lower,upper] by
// amplitude*L_i*Π_j sin(π x̂_j) in every direction i, x̂ the unit box
// coordinate. The boundary is fixed, and elements stay valid for
// amplitude < 1/(π dim).
func Sinusoidal(dim int, amplitude float64, lower, upper [3]float64) Deformation {
	return func(x [3]float64) (y [3]float64) {
		s := amplitude
		for j := 0; j < dim; j++ {
			s *= math.Sin(math.Pi * (x[j] - lower[j]) / (upper[j] - lower[j]))
		}
		for i := 0; i < dim; i++ {
			y[i] = x[i] + s*(upper[i]-lower[i])
		}
		return
	}
}
