package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/notargets/PAKernel/convection"
	"github.com/notargets/PAKernel/device"
	"github.com/notargets/PAKernel/mesh"
	"github.com/notargets/PAKernel/runner"
	"github.com/notargets/PAKernel/runner/builder"
	"github.com/notargets/PAKernel/utils"
	"github.com/notargets/PAKernel/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gonum.org/v1/gonum/floats"
)

// Report is the outcome of one run
type Report struct {
	Kernel      string
	NDofs       int
	AdjointErr  float64 // |<Au,v> - <u,A^T v>| / max(1, |<Au,v>|)
	Apply       time.Duration
	ApplyT      time.Duration
	Repetitions int
}

func (r Report) write(out io.Writer) {
	perDof := func(d time.Duration) float64 {
		return float64(r.NDofs) * float64(r.Repetitions) / d.Seconds() / 1e6
	}
	fmt.Fprintf(out, "kernel:            %s\n", r.Kernel)
	fmt.Fprintf(out, "dofs:              %d\n", r.NDofs)
	fmt.Fprintf(out, "adjoint error:     %.3e\n", r.AdjointErr)
	fmt.Fprintf(out, "apply:             %v per call, %.2f MDof/s\n",
		r.Apply/time.Duration(r.Repetitions), perDof(r.Apply))
	fmt.Fprintf(out, "apply transpose:   %v per call, %.2f MDof/s\n",
		r.ApplyT/time.Duration(r.Repetitions), perDof(r.ApplyT))
}

func velocityFunc(name string) mesh.VelocityFunc {
	if name == "uniform" {
		return func([3]float64) [3]float64 { return [3]float64{1, 0.5, 0.25} }
	}
	// Rigid rotation about the box center, with a constant axial component
	return func(x [3]float64) [3]float64 {
		return [3]float64{-(x[1] - 0.5), x[0] - 0.5, 0.25}
	}
}

func buildMesh(cfg Config, host *device.Host) (*mesh.BoxMesh, error) {
	mcfg := mesh.Config{
		Dim:      cfg.Dim,
		Order:    cfg.Order,
		Q1D:      cfg.Q1D,
		Elements: [3]int{cfg.Elements, cfg.Elements, cfg.Elements},
		Upper:    [3]float64{1, 1, 1},
		Host:     host,
	}
	if cfg.Deformation > 0 {
		mcfg.Deform = mesh.Sinusoidal(cfg.Dim, cfg.Deformation, mcfg.Lower, mcfg.Upper)
	}
	return mesh.NewBoxMesh(mcfg)
}

func run(ctx context.Context, cfg Config, out io.Writer) error {
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := logging.NewLogger(level)
	host := device.NewHost(cfg.Workers, device.WithLogger(logger))

	m, err := buildMesh(cfg, host)
	if err != nil {
		return err
	}
	logger.Debug("mesh ready", "summary", m.String())

	reg := prometheus.NewRegistry()
	opts := []convection.Option{
		convection.WithAlpha(cfg.Alpha),
		convection.WithHost(host),
		convection.WithLogger(logger),
		convection.WithMetrics(convection.NewMetrics(reg)),
	}
	if cfg.Backend == "occa" {
		dev, err := utils.CreateDevice(logger, cfg.Device)
		if err != nil {
			return err
		}
		defer dev.Free()
		kr := runner.NewRunner(dev, builder.Config{FloatType: cfg.FloatType()}, runner.WithLogger(logger))
		defer kr.Free()
		opts = append(opts, convection.WithDevice(kr))
	}
	it := convection.NewIntegrator(opts...)
	if err := it.AssemblePA(m, m.SampleVelocity(velocityFunc(cfg.Velocity))); err != nil {
		return err
	}

	rep, err := measure(it, m.NDofs(), cfg.Repetitions)
	if err != nil {
		return err
	}
	rep.Kernel = it.Kernel().Name()
	if cfg.Backend == "occa" {
		rep.Kernel = fmt.Sprintf("occa (host equivalent %s)", rep.Kernel)
	}
	fmt.Fprint(out, m.String())
	rep.write(out)

	if cfg.MetricsAddr == "" {
		return nil
	}
	return serveMetrics(ctx, cfg.MetricsAddr, reg, logger)
}

func measure(it *convection.Integrator, n, reps int) (rep Report, err error) {
	rng := rand.New(rand.NewSource(1))
	u, v := make([]float64, n), make([]float64, n)
	for i := range u {
		u[i], v[i] = rng.Float64()-0.5, rng.Float64()-0.5
	}
	Au, Atv := make([]float64, n), make([]float64, n)
	if err = it.AddMultPA(u, Au); err != nil {
		return
	}
	if err = it.AddMultTransposePA(v, Atv); err != nil {
		return
	}
	lhs := floats.Dot(Au, v)
	rep.AdjointErr = math.Abs(lhs-floats.Dot(u, Atv)) / math.Max(1, math.Abs(lhs))
	rep.NDofs, rep.Repetitions = n, reps

	start := time.Now()
	for i := 0; i < reps; i++ {
		if err = it.AddMultPA(u, Au); err != nil {
			return
		}
	}
	rep.Apply = time.Since(start)
	start = time.Now()
	for i := 0; i < reps; i++ {
		if err = it.AddMultTransposePA(v, Atv); err != nil {
			return
		}
	}
	rep.ApplyT = time.Since(start)
	return
}

// serveMetrics exposes reg on addr until ctx is done or the process is
// interrupted
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
