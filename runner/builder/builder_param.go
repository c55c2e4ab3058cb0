package builder

import "fmt"

// Direction indicates parameter data flow
type Direction int

const (
	DirectionInput Direction = iota
	DirectionInOut
)

// ParamBuilder provides a fluent interface for building kernel parameters
type ParamBuilder struct {
	Spec ParamSpec
}

// ParamSpec holds the specification of one kernel parameter
type ParamSpec struct {
	Name      string
	Direction Direction
	DataType  DataType
	Size      int64 // Number of values
}

// Input creates a parameter specification for a const input array
func Input(deviceName string) *ParamBuilder {
	return &ParamBuilder{Spec: ParamSpec{Name: deviceName, Direction: DirectionInput}}
}

// InOut creates a parameter specification for a non-const input/output array
func InOut(deviceName string) *ParamBuilder {
	return &ParamBuilder{Spec: ParamSpec{Name: deviceName, Direction: DirectionInOut}}
}

// Type sets the data type
func (p *ParamBuilder) Type(dataType DataType) *ParamBuilder {
	p.Spec.DataType = dataType
	return p
}

// Size sets the number of values of an array
func (p *ParamBuilder) Size(elements int) *ParamBuilder {
	p.Spec.Size = int64(elements)
	return p
}

// Validate checks if the parameter specification is complete and valid
func (p *ParamSpec) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("parameter name cannot be empty")
	}
	if p.DataType == 0 {
		return fmt.Errorf("parameter %s needs a type", p.Name)
	}
	if p.Size <= 0 {
		return fmt.Errorf("array %s needs a positive size, have %d", p.Name, p.Size)
	}
	return nil
}

// IsConst returns whether this parameter should be const in the kernel signature
func (p *ParamSpec) IsConst() bool {
	return p.Direction == DirectionInput
}

// Bytes returns the device allocation size of the array
func (p *ParamSpec) Bytes() int64 {
	return p.Size * p.DataType.Size()
}

// typeName returns the preamble typedef for the parameter's data type
func (p *ParamSpec) typeName() string {
	switch p.DataType {
	case Float32, Float64:
		return "real_t"
	default:
		return "int_t"
	}
}
