// Package convection provides the partially assembled convection integrator
//
//	(α v · ∇u, w)
//
// on tensor product meshes. AssemblePA evaluates the operator coefficients
// once; AddMultPA and AddMultTransposePA then apply the operator matrix free,
// on host workers or on an OCCA device.
package convection

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/notargets/PAKernel/device"
	"github.com/notargets/PAKernel/element"
	"github.com/notargets/PAKernel/kernels"
	"github.com/notargets/PAKernel/runner"
	"github.com/notargets/PAKernel/utils/logging"
)

// FESpace is what the integrator reads from a discretization: the basis
// tables, the quadrature rule and the geometric factors of every element
type FESpace interface {
	Dim() int
	NE() int
	DofToQuad() *element.DofToQuad
	IntegrationRule() *element.IntegrationRule
	GeometricFactors() *element.GeometricFactors
}

type Integrator struct {
	alpha   float64
	host    *device.Host
	runner  *runner.Runner
	logger  *slog.Logger
	metrics *Metrics

	// Set by AssemblePA
	dim, ne int
	maps    *element.DofToQuad
	kernel  kernels.Kernel
	op      []float64
}

type Option func(*Integrator)

// WithAlpha scales the operator, default 1
func WithAlpha(alpha float64) Option {
	return func(it *Integrator) { it.alpha = alpha }
}

// WithHost runs the host kernels on host's workers, default serial
func WithHost(host *device.Host) Option {
	return func(it *Integrator) { it.host = host }
}

// WithDevice applies the operator with the OCCA kernels of r. The runner
// must not be shared with another operator.
func WithDevice(r *runner.Runner) Option {
	return func(it *Integrator) { it.runner = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(it *Integrator) { it.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(it *Integrator) { it.metrics = m }
}

func NewIntegrator(opts ...Option) *Integrator {
	it := &Integrator{
		alpha:  1,
		host:   device.Serial(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(it)
	}
	if it.host == nil {
		it.host = device.Serial()
	}
	return it
}

func (it *Integrator) Alpha() float64 { return it.alpha }

// AssemblePA computes and stores the operator coefficients for space and
// velocity vel, replacing any earlier assembly. Inconsistent inputs panic;
// device failures are returned.
func (it *Integrator) AssemblePA(space FESpace, vel kernels.Velocity) error {
	var (
		dim  = space.Dim()
		ne   = space.NE()
		maps = space.DofToQuad()
		ir   = space.IntegrationRule()
		gf   = space.GeometricFactors()
		nq   = ir.NPoints()
	)
	if dim == 1 {
		panic("dim==1 not supported in AssemblePA")
	}
	if maps.Q1D != ir.Q1D {
		panic(fmt.Sprintf("basis tables use Q1D=%d, integration rule has Q1D=%d", maps.Q1D, ir.Q1D))
	}
	if gf.Dim != dim || gf.NQ != nq || gf.NE != ne {
		panic(fmt.Sprintf("geometric factors are (dim=%d, NQ=%d, NE=%d), space is (dim=%d, NQ=%d, NE=%d)",
			gf.Dim, gf.NQ, gf.NE, dim, nq, ne))
	}
	start := time.Now()
	op := make([]float64, nq*dim*ne)
	kernels.Setup(it.host, dim, nq, ne, ir.Weights, gf.J, vel, it.alpha, op)

	k := kernels.Select(dim, maps.D1D, maps.Q1D)
	k.Limits().Check(maps.D1D, maps.Q1D)
	if it.runner != nil {
		if err := it.assembleDevice(k, ne, maps, op); err != nil {
			return err
		}
	}
	it.dim, it.ne, it.maps, it.kernel, it.op = dim, ne, maps, k, op
	it.metrics.observe(dim, it.kernelLabel(), "assemble", start)
	it.logger.Info("assembled convection operator",
		"dim", dim, "elements", ne, "D1D", maps.D1D, "Q1D", maps.Q1D,
		"kernel", it.kernelLabel(), "alpha", it.alpha)
	return nil
}

func (it *Integrator) assembleDevice(k kernels.Kernel, ne int, maps *element.DofToQuad, op []float64) error {
	spec := runner.ConvectionSpecFor(k, ne)
	current, ok := it.runner.Convection()
	if ok && current != spec {
		return fmt.Errorf("device runner holds a %+v operator, need %+v", current, spec)
	}
	if !ok {
		if err := it.runner.SetupConvection(spec, maps); err != nil {
			return fmt.Errorf("device convection setup: %w", err)
		}
	}
	if err := it.runner.UploadOperatorData(op); err != nil {
		return fmt.Errorf("device convection setup: %w", err)
	}
	return nil
}

func (it *Integrator) kernelLabel() string {
	if it.runner != nil {
		return "occa-" + it.runner.Device.Mode()
	}
	return it.kernel.Name()
}

// AddMultPA accumulates y += A x
func (it *Integrator) AddMultPA(x, y []float64) error {
	return it.apply(false, x, y)
}

// AddMultTransposePA accumulates y += A^T x
func (it *Integrator) AddMultTransposePA(x, y []float64) error {
	return it.apply(true, x, y)
}

// Mult sets y = A x
func (it *Integrator) Mult(x, y []float64) error {
	clear(y)
	return it.AddMultPA(x, y)
}

func (it *Integrator) apply(transpose bool, x, y []float64) error {
	what, label := "AddMultPA", "apply"
	if transpose {
		what, label = "AddMultTransposePA", "apply_transpose"
	}
	if it.op == nil {
		panic(fmt.Sprintf("%s called before AssemblePA", what))
	}
	start := time.Now()
	switch {
	case it.runner != nil:
		if err := it.runner.ApplyConvection(transpose, x, y); err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
	case transpose:
		it.kernel.ApplyTranspose(it.host, it.ne, it.maps, it.op, x, y)
	default:
		it.kernel.Apply(it.host, it.ne, it.maps, it.op, x, y)
	}
	it.metrics.observe(it.dim, it.kernelLabel(), label, start)
	return nil
}

// AssembleDiagonalPA is not available for the convection operator
func (it *Integrator) AssembleDiagonalPA(diag []float64) {
	panic("AssembleDiagonalPA not implemented for the convection integrator")
}

// OperatorData returns the assembled coefficients, layout (NQ, dim, NE).
// The slice is owned by the integrator.
func (it *Integrator) OperatorData() []float64 { return it.op }

// Kernel returns the host kernel selected by AssemblePA
func (it *Integrator) Kernel() kernels.Kernel { return it.kernel }
