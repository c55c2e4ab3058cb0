package element

import (
	"fmt"

	"github.com/notargets/PAKernel/element/library/gonudg"
)

// ElementProperties contains metadata describing an element type
type ElementProperties struct {
	Name       string          // Full descriptive name (e.g., "Lagrange Hexahedron Order 3")
	ShortName  string          // Abbreviated name (e.g., "Hex3")
	Type       ElementGeometry // Element shape
	Order      int             // Polynomial order
	Np         int             // Total number of nodes in element
	NFp        int             // Number of nodes per face
	NVp        int             // Number of vertex nodes (equals number of vertices)
	NIp        int             // Number of strictly interior nodes
	NFaces     int             // Number of faces in each element
	Dimensions Dimensionality  // Spatial dimension
}

// TensorElement is a nodal Lagrange element on [-1,1]^dim whose nodes are the
// tensor product of the 1D Gauss-Lobatto-Legendre points.
type TensorElement struct {
	props ElementProperties
	r1D   []float64
	maps  map[int]*DofToQuad
}

var _ Element = (*TensorElement)(nil)

func NewTensorElement(dim, order int) *TensorElement {
	if dim < 1 || dim > 3 {
		panic(fmt.Sprintf("tensor element dimension must be 1, 2 or 3, have %d", dim))
	}
	if order < 1 {
		panic(fmt.Sprintf("tensor element order must be positive, have %d", order))
	}
	geom := GeometryForDim(dim)
	d1d := order + 1
	np, nfp := 1, 1
	for i := 0; i < dim; i++ {
		np *= d1d
		if i > 0 {
			nfp *= d1d
		}
	}
	interior := 1
	for i := 0; i < dim; i++ {
		interior *= d1d - 2
	}
	longName := map[ElementGeometry]string{
		Line: "Segment", Quad: "Quadrilateral", Hex: "Hexahedron",
	}[geom]
	return &TensorElement{
		props: ElementProperties{
			Name:       fmt.Sprintf("Lagrange %s Order %d", longName, order),
			ShortName:  fmt.Sprintf("%s%d", geom, order),
			Type:       geom,
			Order:      order,
			Np:         np,
			NFp:        nfp,
			NVp:        1 << dim,
			NIp:        interior,
			NFaces:     2 * dim,
			Dimensions: Dimensionality(dim),
		},
		r1D:  gonudg.JacobiGL(0, 0, order),
		maps: make(map[int]*DofToQuad),
	}
}

func (el *TensorElement) GetProperties() ElementProperties { return el.props }

func (el *TensorElement) Name() string                  { return el.props.Name }
func (el *TensorElement) ShortName() string             { return el.props.ShortName }
func (el *TensorElement) GeometryType() ElementGeometry { return el.props.Type }
func (el *TensorElement) Order() int                    { return el.props.Order }
func (el *TensorElement) Np() int                       { return el.props.Np }
func (el *TensorElement) NFp() int                      { return el.props.NFp }
func (el *TensorElement) NVp() int                      { return el.props.NVp }
func (el *TensorElement) NIp() int                      { return el.props.NIp }
func (el *TensorElement) Dimensions() Dimensionality    { return el.props.Dimensions }
func (el *TensorElement) R1D() []float64                { return el.r1D }

// DofToQuad returns the cached basis tables for a q1d point Gauss rule
func (el *TensorElement) DofToQuad(q1d int) *DofToQuad {
	if m, ok := el.maps[q1d]; ok {
		return m
	}
	m, err := NewDofToQuad(el.props.Order, q1d)
	if err != nil {
		panic(err)
	}
	el.maps[q1d] = m
	return m
}

func (el *TensorElement) String() string {
	return fmt.Sprintf("%s: Np=%d NFp=%d NVp=%d NIp=%d",
		el.props.Name, el.props.Np, el.props.NFp, el.props.NVp, el.props.NIp)
}
