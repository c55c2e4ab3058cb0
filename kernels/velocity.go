package kernels

import "fmt"

// Velocity is the convection velocity sampled for Setup: either one
// uniform vector or a vector per quadrature point of every element.
type Velocity interface {
	// Dim returns the number of velocity components
	Dim() int
	isVelocity()
}

// ConstantVelocity is a uniform velocity vector of length dim
type ConstantVelocity []float64

func (v ConstantVelocity) Dim() int  { return len(v) }
func (ConstantVelocity) isVelocity() {}

// VelocityField holds one velocity vector per quadrature point and element,
// layout (Dim, NQ, NE): Values[i + Dim*(q + NQ*e)].
type VelocityField struct {
	NDim, NQ, NE int
	Values       []float64
}

func NewVelocityField(dim, nq, ne int) *VelocityField {
	return &VelocityField{NDim: dim, NQ: nq, NE: ne, Values: make([]float64, dim*nq*ne)}
}

func (v *VelocityField) Dim() int  { return v.NDim }
func (*VelocityField) isVelocity() {}

// At returns component i at point q of element e
func (v *VelocityField) At(i, q, e int) float64 {
	return v.Values[i+v.NDim*(q+v.NQ*e)]
}

// Set assigns component i at point q of element e
func (v *VelocityField) Set(i, q, e int, val float64) {
	v.Values[i+v.NDim*(q+v.NQ*e)] = val
}

// velocityValues resolves the layout once: the flat values and the stride
// between consecutive (q,e) points, zero for a uniform velocity.
func velocityValues(vel Velocity, dim, nq, ne int) (vals []float64, stride int) {
	if vel == nil {
		panic("velocity is nil")
	}
	if vel.Dim() != dim {
		panic(fmt.Sprintf("velocity has %d components, mesh dimension is %d", vel.Dim(), dim))
	}
	switch v := vel.(type) {
	case ConstantVelocity:
		return v, 0
	case *VelocityField:
		if v.NQ != nq || v.NE != ne || len(v.Values) != dim*nq*ne {
			panic(fmt.Sprintf("velocity field is (%d,%d,%d) with %d values, need (%d,%d,%d)",
				v.NDim, v.NQ, v.NE, len(v.Values), dim, nq, ne))
		}
		return v.Values, dim
	}
	panic(fmt.Sprintf("unknown velocity type %T", vel))
}
