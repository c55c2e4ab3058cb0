package runner

import (
	"fmt"

	"github.com/notargets/PAKernel/element"
	"github.com/notargets/PAKernel/kernels"
	"github.com/notargets/PAKernel/runner/builder"
)

// ConvectionSpec sizes the device kernels of one convection operator. All
// sizes become compile time constants of the generated source.
type ConvectionSpec struct {
	Dim, D1D, Q1D int
	NBZ           int // Elements per thread block, 2D only
	NE            int
}

// ConvectionSpecFor sizes the device kernels like the host catalogue does:
// the batch size of a catalogue entry, otherwise one element per block
func ConvectionSpecFor(k kernels.Kernel, ne int) ConvectionSpec {
	nbz := k.NBZ
	if k.Dim == 3 || nbz < 1 {
		nbz = 1
	}
	return ConvectionSpec{Dim: k.Dim, D1D: k.D1D, Q1D: k.Q1D, NBZ: nbz, NE: ne}
}

// Validate panics on sizes the device kernels cannot run
func (s ConvectionSpec) Validate() {
	if s.Dim == 1 {
		panic("dim==1 not supported in the device convection kernels")
	}
	if s.Dim != 2 && s.Dim != 3 {
		panic(fmt.Sprintf("unsupported dimension %d in the device convection kernels", s.Dim))
	}
	kernels.DeviceLimits.Check(s.D1D, s.Q1D)
	if s.NBZ < 1 || (s.Dim == 3 && s.NBZ != 1) {
		panic(fmt.Sprintf("invalid elements per block NBZ=%d for dim %d", s.NBZ, s.Dim))
	}
	if s.NE < 1 {
		panic(fmt.Sprintf("need at least one element, have NE=%d", s.NE))
	}
}

func (s ConvectionSpec) NDofs() int   { return ipow(s.D1D, s.Dim) * s.NE }
func (s ConvectionSpec) NOpData() int { return ipow(s.Q1D, s.Dim) * s.Dim * s.NE }

// ApplyKernelName and ApplyTransposeKernelName name the compiled kernels
func (s ConvectionSpec) ApplyKernelName() string {
	return fmt.Sprintf("convectionApply%dD", s.Dim)
}

func (s ConvectionSpec) ApplyTransposeKernelName() string {
	return fmt.Sprintf("convectionApplyTranspose%dD", s.Dim)
}

// Configure adds the compile time sizes and the basis tables to b. The
// tables become B_[D1D][Q1D] and G_[D1D][Q1D] with B_[d][q] = B(q,d).
func (s ConvectionSpec) Configure(b *builder.Builder, maps *element.DofToQuad) {
	s.Validate()
	maps.Validate()
	if maps.D1D != s.D1D || maps.Q1D != s.Q1D {
		panic(fmt.Sprintf("basis tables are D1D=%d Q1D=%d, device kernels are D1D=%d Q1D=%d",
			maps.D1D, maps.Q1D, s.D1D, s.Q1D))
	}
	b.AddDefine("DIM", s.Dim)
	b.AddDefine("D1D", s.D1D)
	b.AddDefine("Q1D", s.Q1D)
	b.AddDefine("MDQ", max(s.D1D, s.Q1D))
	b.AddDefine("NBZ", s.NBZ)
	b.AddDefine("NE", s.NE)
	b.AddStaticMatrix("B_", maps.Bmat)
	b.AddStaticMatrix("G_", maps.Gmat)
}

// SetupConvection configures the runner for one operator, allocates op, x
// and y and compiles both kernels. On failure it releases whatever it
// allocated or built, so the call can be retried.
func (kr *Runner) SetupConvection(spec ConvectionSpec, maps *element.DofToQuad) (err error) {
	if kr.conv != nil {
		return fmt.Errorf("runner already holds a convection operator")
	}
	spec.Configure(kr.Builder, maps)

	var arrays, built []string
	defer func() {
		if err == nil {
			return
		}
		for _, name := range built {
			_ = kr.FreeKernel(name)
		}
		for _, name := range arrays {
			_ = kr.FreeArray(name)
		}
	}()
	for _, p := range convectionParams(spec, kr.FloatType) {
		if err = kr.AllocateParam(p); err != nil {
			return err
		}
		arrays = append(arrays, p.Spec.Name)
	}
	for _, transpose := range []bool{false, true} {
		name := spec.ApplyKernelName()
		if transpose {
			name = spec.ApplyTransposeKernelName()
		}
		if _, err = kr.BuildKernel(ConvectionSource(spec, transpose), name); err != nil {
			return err
		}
		built = append(built, name)
	}
	kr.conv = &spec
	kr.logger.Info("device convection kernels ready",
		"dim", spec.Dim, "D1D", spec.D1D, "Q1D", spec.Q1D, "NBZ", spec.NBZ, "NE", spec.NE,
		"arrays", kr.GetAllocatedArrays())
	return nil
}

// UploadOperatorData copies the operator coefficients to the device
func (kr *Runner) UploadOperatorData(op []float64) error {
	if kr.conv == nil {
		return fmt.Errorf("no convection operator set up")
	}
	return kr.CopyToDevice("op", op)
}

// ApplyConvection accumulates y += A x, or y += A^T x, on the device
func (kr *Runner) ApplyConvection(transpose bool, x, y []float64) error {
	if kr.conv == nil {
		return fmt.Errorf("no convection operator set up")
	}
	name := kr.conv.ApplyKernelName()
	if transpose {
		name = kr.conv.ApplyTransposeKernelName()
	}
	if err := kr.CopyToDevice("x", x); err != nil {
		return err
	}
	if err := kr.CopyToDevice("y", y); err != nil {
		return err
	}
	if err := kr.RunKernel(name, "op", "x", "y"); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return kr.CopyFromDevice("y", y)
}

// Convection returns the sizes of the operator set up on the runner
func (kr *Runner) Convection() (ConvectionSpec, bool) {
	if kr.conv == nil {
		return ConvectionSpec{}, false
	}
	return *kr.conv, true
}

func ipow(b, n int) int {
	r := 1
	for i := 0; i < n; i++ {
		r *= b
	}
	return r
}
