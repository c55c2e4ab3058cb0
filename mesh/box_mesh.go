// Package mesh builds structured tensor product meshes of [lower,upper] boxes
// and provides the quantities the convection operator reads from them: basis
// tables, quadrature weights, geometric factors and sampled coefficients.
package mesh

import (
	"fmt"
	"strings"

	"github.com/notargets/PAKernel/device"
	"github.com/notargets/PAKernel/element"
)

// Deformation maps a point of the undeformed box to its physical location
type Deformation func(x [3]float64) [3]float64

type Config struct {
	Dim, Order int
	Q1D        int    // 0 selects element.DefaultQuad1D(Order, Order)
	Elements   [3]int // Per direction, entries beyond Dim ignored
	Lower      [3]float64
	Upper      [3]float64
	Deform     Deformation
	Host       *device.Host // nil runs serially
}

// BoxMesh is a Dim dimensional box split into Elements[0] x Elements[1]
// [x Elements[2]] tensor elements, numbered with x fastest:
// e = ex + Nx*(ey + Ny*ez). Nodal coordinates use the element's GLL nodes so
// a deformed mesh is represented at the same order as the solution.
type BoxMesh struct {
	cfg   Config
	el    *element.TensorElement
	rule  *element.IntegrationRule
	maps  *element.DofToQuad
	ne    int
	nodes []float64 // (ND, Dim, NE)
	geom  *element.GeometricFactors
}

func (cfg Config) validate() error {
	if cfg.Dim != 2 && cfg.Dim != 3 {
		return fmt.Errorf("box mesh dimension must be 2 or 3, have %d", cfg.Dim)
	}
	if cfg.Order < 1 {
		return fmt.Errorf("box mesh order must be positive, have %d", cfg.Order)
	}
	if cfg.Q1D < 0 {
		return fmt.Errorf("quadrature points per direction must not be negative, have %d", cfg.Q1D)
	}
	for i := 0; i < cfg.Dim; i++ {
		if cfg.Elements[i] < 1 {
			return fmt.Errorf("need at least one element in direction %d, have %d", i, cfg.Elements[i])
		}
		if cfg.Upper[i] <= cfg.Lower[i] {
			return fmt.Errorf("empty extent in direction %d: [%g,%g]", i, cfg.Lower[i], cfg.Upper[i])
		}
	}
	return nil
}

// NewBoxMesh builds the mesh and its geometric factors. It returns an error
// for an invalid configuration and panics if the deformation inverts an
// element.
func NewBoxMesh(cfg Config) (*BoxMesh, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Q1D == 0 {
		cfg.Q1D = element.DefaultQuad1D(cfg.Order, cfg.Order)
	}
	if cfg.Host == nil {
		cfg.Host = device.Serial()
	}
	m := &BoxMesh{
		cfg:  cfg,
		el:   element.NewTensorElement(cfg.Dim, cfg.Order),
		rule: element.NewIntegrationRule(cfg.Dim, cfg.Q1D),
		ne:   1,
	}
	for i := 0; i < cfg.Dim; i++ {
		m.ne *= cfg.Elements[i]
	}
	m.maps = m.el.DofToQuad(cfg.Q1D)
	m.buildNodes()
	m.buildGeometricFactors()
	return m, nil
}

// NewUnitBoxMesh is the undeformed [0,1]^dim box with n elements per direction
func NewUnitBoxMesh(dim, order, n int) (*BoxMesh, error) {
	return NewBoxMesh(Config{
		Dim:      dim,
		Order:    order,
		Elements: [3]int{n, n, n},
		Upper:    [3]float64{1, 1, 1},
	})
}

func (m *BoxMesh) Dim() int                                    { return m.cfg.Dim }
func (m *BoxMesh) NE() int                                     { return m.ne }
func (m *BoxMesh) Order() int                                  { return m.cfg.Order }
func (m *BoxMesh) Element() *element.TensorElement             { return m.el }
func (m *BoxMesh) DofToQuad() *element.DofToQuad               { return m.maps }
func (m *BoxMesh) IntegrationRule() *element.IntegrationRule   { return m.rule }
func (m *BoxMesh) GeometricFactors() *element.GeometricFactors { return m.geom }

// NDofs is the length of an element-local vector: D1D^dim * NE
func (m *BoxMesh) NDofs() int { return m.el.Np() * m.ne }

// elementCoords returns the integer position of element e in the box
func (m *BoxMesh) elementCoords(e int) (ijk [3]int) {
	for i := 0; i < m.cfg.Dim; i++ {
		ijk[i] = e % m.cfg.Elements[i]
		e /= m.cfg.Elements[i]
	}
	return
}

// NodeCoordinates returns the physical coordinates of local node d of e
func (m *BoxMesh) NodeCoordinates(d, e int) (x [3]float64) {
	nd := m.el.Np()
	for i := 0; i < m.cfg.Dim; i++ {
		x[i] = m.nodes[d+nd*(i+m.cfg.Dim*e)]
	}
	return
}

func (m *BoxMesh) buildNodes() {
	var (
		dim = m.cfg.Dim
		d1d = m.cfg.Order + 1
		nd  = m.el.Np()
		r   = m.el.R1D()
	)
	m.nodes = make([]float64, nd*dim*m.ne)
	m.cfg.Host.ForAll(m.ne, func(e int) {
		ijk := m.elementCoords(e)
		for d := 0; d < nd; d++ {
			var x [3]float64
			for i, dd := 0, d; i < dim; i, dd = i+1, dd/d1d {
				h := (m.cfg.Upper[i] - m.cfg.Lower[i]) / float64(m.cfg.Elements[i])
				x[i] = m.cfg.Lower[i] + h*(float64(ijk[i])+0.5*(r[dd%d1d]+1))
			}
			if m.cfg.Deform != nil {
				x = m.cfg.Deform(x)
			}
			for i := 0; i < dim; i++ {
				m.nodes[d+nd*(i+dim*e)] = x[i]
			}
		}
	})
}

// buildGeometricFactors interpolates the nodal coordinates and their
// reference derivatives to the quadrature points by sum factorization:
// X = (B x B [x B]) x and dx/dξ_c uses G along axis c and B elsewhere.
func (m *BoxMesh) buildGeometricFactors() {
	var (
		dim      = m.cfg.Dim
		d1d, q1d = m.maps.D1D, m.maps.Q1D
		nd, nq   = m.el.Np(), m.rule.NPoints()
	)
	gf := element.NewGeometricFactors(dim, nq, m.ne)
	m.cfg.Host.ForAllRange(m.ne, func(start, end int) {
		var s sumFactor
		tables := make([][]float64, dim)
		for e := start; e < end; e++ {
			for i := 0; i < dim; i++ {
				xi := m.nodes[nd*(i+dim*e) : nd*(i+1+dim*e)]
				for a := range tables {
					tables[a] = m.maps.B
				}
				copy(gf.X[gf.XIndex(0, i, e):], s.interpolate(d1d, q1d, tables, xi))
				for c := 0; c < dim; c++ {
					for a := range tables {
						tables[a] = m.maps.B
					}
					tables[c] = m.maps.G
					copy(gf.J[gf.JIndex(0, i, c, e):], s.interpolate(d1d, q1d, tables, xi))
				}
			}
		}
	})
	gf.ComputeDeterminants()
	m.geom = gf
}

// Volume integrates det(J) over the mesh
func (m *BoxMesh) Volume() (vol float64) {
	nq := m.rule.NPoints()
	for e := 0; e < m.ne; e++ {
		for q := 0; q < nq; q++ {
			vol += m.rule.Weights[q] * m.geom.DetJ[q+nq*e]
		}
	}
	return
}

func (m *BoxMesh) String() string {
	var sb strings.Builder
	sb.WriteString("=== BoxMesh Summary ===\n")
	sb.WriteString(fmt.Sprintf("  Element: %s (%s)\n", m.el.Name(), m.el.ShortName()))
	sb.WriteString(fmt.Sprintf("  Elements: %v = %d\n", m.cfg.Elements[:m.cfg.Dim], m.ne))
	sb.WriteString(fmt.Sprintf("  Box: %v to %v\n", m.cfg.Lower[:m.cfg.Dim], m.cfg.Upper[:m.cfg.Dim]))
	sb.WriteString(fmt.Sprintf("  D1D=%d Q1D=%d, %d dofs, %d quadrature points\n",
		m.maps.D1D, m.maps.Q1D, m.NDofs(), m.rule.NPoints()*m.ne))
	sb.WriteString(fmt.Sprintf("  Deformed: %v\n", m.cfg.Deform != nil))
	return sb.String()
}
