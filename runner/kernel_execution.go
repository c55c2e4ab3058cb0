package runner

import (
	"fmt"

	"github.com/notargets/gocca"
)

// BuildKernel compiles and registers a kernel with the program
func (kr *Runner) BuildKernel(kernelSource, kernelName string) (*gocca.OCCAKernel, error) {
	kr.GeneratePreamble()

	// Combine preamble with kernel source
	fullSource := kr.KernelPreamble + "\n" + kernelSource

	var kernel *gocca.OCCAKernel
	var err error

	if kr.Device.Mode() == "OpenMP" {
		// Workaround for OCCA bug: OpenMP doesn't get default -O3 flag
		props := gocca.JsonParse(`{"compiler_flags": "-O3"}`)
		defer props.Free()
		kernel, err = kr.Device.BuildKernelFromString(fullSource, kernelName, props)
	} else {
		kernel, err = kr.Device.BuildKernelFromString(fullSource, kernelName, nil)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to build kernel %s: %w", kernelName, err)
	}
	if kernel == nil {
		return nil, fmt.Errorf("kernel build returned nil for %s", kernelName)
	}
	if old, exists := kr.Kernels[kernelName]; exists {
		old.Free()
	}
	kr.Kernels[kernelName] = kernel
	kr.logger.Debug("built kernel", "name", kernelName, "mode", kr.Device.Mode())
	return kernel, nil
}

// FreeKernel releases a compiled kernel
func (kr *Runner) FreeKernel(kernelName string) error {
	kernel, exists := kr.Kernels[kernelName]
	if !exists {
		return fmt.Errorf("kernel %s not compiled", kernelName)
	}
	kernel.Free()
	delete(kr.Kernels, kernelName)
	return nil
}

// RunKernel launches a compiled kernel with the named arrays as arguments,
// in order, and waits for the device
func (kr *Runner) RunKernel(kernelName string, arrays ...string) error {
	kernel, exists := kr.Kernels[kernelName]
	if !exists {
		return fmt.Errorf("kernel %s not compiled", kernelName)
	}
	args := make([]interface{}, 0, len(arrays))
	for _, name := range arrays {
		mem, exists := kr.PooledMemory[name]
		if !exists {
			return fmt.Errorf("memory for %s not found", name)
		}
		args = append(args, mem)
	}
	if err := kernel.RunWithArgs(args...); err != nil {
		return fmt.Errorf("kernel execution failed: %w", err)
	}
	kr.Device.Finish()
	return nil
}
