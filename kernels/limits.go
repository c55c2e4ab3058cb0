package kernels

import "fmt"

// DofQuadLimits caps the number of dofs and quadrature points per direction
// a kernel can be launched with.
type DofQuadLimits struct {
	MaxD1D, MaxQ1D int
}

var (
	// HostLimits bound the generic kernels, sized by run time arguments
	HostLimits = DofQuadLimits{MaxD1D: 24, MaxQ1D: 24}

	// DeviceLimits bound the specialized kernels and the OCCA device
	// kernels, whose staging buffers live in shared memory
	DeviceLimits = DofQuadLimits{MaxD1D: 14, MaxQ1D: 14}
)

// Check panics if d1d or q1d is outside the limits
func (l DofQuadLimits) Check(d1d, q1d int) {
	if d1d < 1 || q1d < 1 {
		panic(fmt.Sprintf("dofs and quadrature points per direction must be positive, have D1D=%d Q1D=%d",
			d1d, q1d))
	}
	if d1d > l.MaxD1D {
		panic(fmt.Sprintf("D1D=%d exceeds the limit MaxD1D=%d", d1d, l.MaxD1D))
	}
	if q1d > l.MaxQ1D {
		panic(fmt.Sprintf("Q1D=%d exceeds the limit MaxQ1D=%d", q1d, l.MaxQ1D))
	}
}

func checkDim(dim int, where string) {
	if dim == 1 {
		panic(fmt.Sprintf("dim==1 not supported in %s", where))
	}
	if dim != 2 && dim != 3 {
		panic(fmt.Sprintf("unsupported dimension %d in %s", dim, where))
	}
}
