package builder

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// DataType represents the precision of numerical data
type DataType int

const (
	Float32 DataType = iota + 1
	Float64
	INT32
	INT64
)

func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case INT32:
		return "int32"
	case INT64:
		return "int64"
	}
	return fmt.Sprintf("DataType(%d)", int(dt))
}

// Size returns the number of bytes of one value
func (dt DataType) Size() int64 {
	switch dt {
	case Float32, INT32:
		return 4
	default:
		return 8
	}
}

// Builder generates the kernel preamble shared by the kernels of one runner:
// type definitions, compile time sizes and static basis tables.
type Builder struct {
	// Type configuration
	FloatType DataType
	IntType   DataType

	// Compile time integer constants, emitted as #define
	Defines map[string]int

	// Static data to embed
	StaticMatrices map[string]mat.Matrix

	// Generated code
	KernelPreamble string
}

// Config holds configuration for creating a Builder
type Config struct {
	FloatType DataType
	IntType   DataType
	Defines   map[string]int
}

// NewBuilder creates a new Builder instance
func NewBuilder(cfg Config) *Builder {
	floatType := cfg.FloatType
	if floatType == 0 {
		floatType = Float64
	}
	intType := cfg.IntType
	if intType == 0 {
		intType = INT64
	}
	if floatType != Float32 && floatType != Float64 {
		panic(fmt.Sprintf("invalid float type %d", floatType))
	}
	if intType != INT32 && intType != INT64 {
		panic(fmt.Sprintf("invalid int type %d", intType))
	}
	kb := &Builder{
		FloatType:      floatType,
		IntType:        intType,
		Defines:        make(map[string]int),
		StaticMatrices: make(map[string]mat.Matrix),
	}
	for name, val := range cfg.Defines {
		kb.AddDefine(name, val)
	}
	return kb
}

// AddDefine adds a compile time integer constant
func (kb *Builder) AddDefine(name string, value int) {
	if name == "" {
		panic("define name cannot be empty")
	}
	kb.Defines[name] = value
}

// AddStaticMatrix adds a matrix to be embedded as static const in Kernels
func (kb *Builder) AddStaticMatrix(name string, m mat.Matrix) {
	kb.StaticMatrices[name] = m
}

// GeneratePreamble generates the kernel preamble with type definitions,
// constants and static matrices. Output is deterministic.
func (kb *Builder) GeneratePreamble() string {
	var sb strings.Builder

	sb.WriteString(kb.generateTypeDefinitions())

	if len(kb.Defines) > 0 {
		sb.WriteString("// Compile time sizes\n")
		for _, name := range sortedKeys(kb.Defines) {
			sb.WriteString(fmt.Sprintf("#define %s %d\n", name, kb.Defines[name]))
		}
		sb.WriteString("\n")
	}

	if len(kb.StaticMatrices) > 0 {
		sb.WriteString("// Static matrices\n")
		for _, name := range sortedKeys(kb.StaticMatrices) {
			sb.WriteString(kb.formatStaticMatrix(name, kb.StaticMatrices[name]))
			sb.WriteString("\n")
		}
	}

	kb.KernelPreamble = sb.String()
	return kb.KernelPreamble
}

func (kb *Builder) generateTypeDefinitions() string {
	var sb strings.Builder

	floatTypeStr, intTypeStr := "double", "long"
	if kb.FloatType == Float32 {
		floatTypeStr = "float"
	}
	if kb.IntType == INT32 {
		intTypeStr = "int"
	}

	sb.WriteString("// Type definitions\n")
	sb.WriteString(fmt.Sprintf("typedef %s real_t;\n", floatTypeStr))
	sb.WriteString(fmt.Sprintf("typedef %s int_t;\n", intTypeStr))
	sb.WriteString("\n")

	if kb.FloatType == Float32 {
		sb.WriteString("#define REAL_ZERO 0.0f\n")
		sb.WriteString("#define REAL_ONE 1.0f\n")
	} else {
		sb.WriteString("#define REAL_ZERO 0.0\n")
		sb.WriteString("#define REAL_ONE 1.0\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// formatStaticMatrix emits m as a column major C array, name[col][row], so
// that name[j][i] == m(i,j).
func (kb *Builder) formatStaticMatrix(name string, m mat.Matrix) string {
	rows, cols := m.Dims()
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("const real_t %s[%d][%d] = {\n", name, cols, rows))
	for j := 0; j < cols; j++ {
		sb.WriteString("    {")
		for i := 0; i < rows; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			if kb.FloatType == Float32 {
				sb.WriteString(fmt.Sprintf("%.7ef", m.At(i, j)))
			} else {
				sb.WriteString(fmt.Sprintf("%.15e", m.At(i, j)))
			}
		}
		sb.WriteString("}")
		if j < cols-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("};\n")

	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
