package builder

import (
	"fmt"
	"strings"
)

// GenerateKernelSignature generates the parameter list for kernel functions,
// in the order the parameters will be passed at launch.
func GenerateKernelSignature(params ...*ParamBuilder) string {
	list := make([]string, 0, len(params))
	for _, pb := range params {
		p := &pb.Spec
		constStr := ""
		if p.IsConst() {
			constStr = "const "
		}
		list = append(list, fmt.Sprintf("@restrict %s%s *%s", constStr, p.typeName(), p.Name))
	}
	return strings.Join(list, ",\n\t")
}

// GenerateKernelDeclaration generates a complete kernel function declaration
func GenerateKernelDeclaration(kernelName string, params ...*ParamBuilder) string {
	return fmt.Sprintf("@kernel void %s(\n\t%s\n)",
		kernelName,
		GenerateKernelSignature(params...))
}
