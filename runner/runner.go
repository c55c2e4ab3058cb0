package runner

import (
	"log/slog"
	"sort"

	"github.com/notargets/PAKernel/runner/builder"
	"github.com/notargets/PAKernel/utils/logging"
	"github.com/notargets/gocca"
)

// ArrayMetadata stores information about allocated arrays
type ArrayMetadata struct {
	Length   int // Number of values
	DataType builder.DataType
}

// Runner orchestrates kernel compilation and execution on one OCCA device
type Runner struct {
	*builder.Builder
	Device        *gocca.OCCADevice
	Kernels       map[string]*gocca.OCCAKernel
	PooledMemory  map[string]*gocca.OCCAMemory
	arrayMetadata map[string]ArrayMetadata
	conv          *ConvectionSpec
	logger        *slog.Logger
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(kr *Runner) { kr.logger = logger }
}

// NewRunner creates a new Runner instance
func NewRunner(device *gocca.OCCADevice, cfg builder.Config, opts ...Option) (kr *Runner) {
	if device == nil {
		panic("runner needs a device")
	}
	kr = &Runner{
		Builder:       builder.NewBuilder(cfg),
		Device:        device,
		Kernels:       make(map[string]*gocca.OCCAKernel),
		PooledMemory:  make(map[string]*gocca.OCCAMemory),
		arrayMetadata: make(map[string]ArrayMetadata),
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(kr)
	}
	return
}

// GetMemory returns the device memory for a named array
func (kr *Runner) GetMemory(name string) *gocca.OCCAMemory {
	return kr.PooledMemory[name]
}

// GetArrayMetadata returns metadata for a named array
func (kr *Runner) GetArrayMetadata(name string) (ArrayMetadata, bool) {
	meta, exists := kr.arrayMetadata[name]
	return meta, exists
}

// GetAllocatedArrays returns a sorted list of allocated array names
func (kr *Runner) GetAllocatedArrays() []string {
	arrays := make([]string, 0, len(kr.arrayMetadata))
	for name := range kr.arrayMetadata {
		arrays = append(arrays, name)
	}
	sort.Strings(arrays)
	return arrays
}

// Free releases all resources
func (kr *Runner) Free() {
	for _, kernel := range kr.Kernels {
		kernel.Free()
	}
	for _, mem := range kr.PooledMemory {
		mem.Free()
	}
	kr.Kernels = make(map[string]*gocca.OCCAKernel)
	kr.PooledMemory = make(map[string]*gocca.OCCAMemory)
	kr.arrayMetadata = make(map[string]ArrayMetadata)
	kr.conv = nil
}
