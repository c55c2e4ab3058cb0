package element

import "fmt"

type Dimensionality uint8

const (
	D0 Dimensionality = iota
	D1
	D2
	D3
)

type ElementGeometry uint8

const (
	Line ElementGeometry = iota
	Quad
	Hex
)

func (g ElementGeometry) String() string {
	switch g {
	case Line:
		return "Line"
	case Quad:
		return "Quad"
	case Hex:
		return "Hex"
	}
	return fmt.Sprintf("ElementGeometry(%d)", uint8(g))
}

// GeometryForDim returns the tensor product geometry of the given dimension
func GeometryForDim(dim int) ElementGeometry {
	switch dim {
	case 1:
		return Line
	case 2:
		return Quad
	case 3:
		return Hex
	}
	panic(fmt.Sprintf("no tensor product geometry for dimension %d", dim))
}

// Element is the tensor product finite element seen by the operator kernels
type Element interface {
	Name() string
	ShortName() string
	GeometryType() ElementGeometry
	Order() int
	Np() int  // Number of nodal dofs, (Order+1)^dim
	NFp() int // Number of face dofs
	NVp() int // Number of vertex dofs
	NIp() int // Number of interior dofs
	Dimensions() Dimensionality

	// 1D reference nodes shared by every tensor direction
	R1D() []float64

	// Basis tables from the 1D nodes to a 1D quadrature rule of q1d points
	DofToQuad(q1d int) *DofToQuad
}
