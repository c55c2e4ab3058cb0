package runner

import (
	"fmt"
	"unsafe"

	"github.com/notargets/PAKernel/runner/builder"
	"github.com/notargets/gocca"
)

// AllocateArray allocates a zeroed device array of n values of FloatType
func (kr *Runner) AllocateArray(name string, n int) error {
	return kr.AllocateParam(builder.InOut(name).Type(kr.FloatType).Size(n))
}

// AllocateParam allocates a zeroed device array sized by an array parameter
// specification. Its type must be the runner's FloatType.
func (kr *Runner) AllocateParam(p *builder.ParamBuilder) error {
	spec := &p.Spec
	if err := spec.Validate(); err != nil {
		return err
	}
	if _, exists := kr.PooledMemory[spec.Name]; exists {
		return fmt.Errorf("array %s already allocated", spec.Name)
	}
	if spec.DataType != kr.FloatType {
		return fmt.Errorf("array %s is %v, runner works in %v", spec.Name, spec.DataType, kr.FloatType)
	}
	n, bytes := int(spec.Size), spec.Bytes()
	var mem *gocca.OCCAMemory
	if kr.FloatType == builder.Float32 {
		zero := make([]float32, n)
		mem = kr.Device.Malloc(bytes, unsafe.Pointer(&zero[0]), nil)
	} else {
		zero := make([]float64, n)
		mem = kr.Device.Malloc(bytes, unsafe.Pointer(&zero[0]), nil)
	}
	kr.PooledMemory[spec.Name] = mem
	kr.arrayMetadata[spec.Name] = ArrayMetadata{Length: n, DataType: kr.FloatType}
	kr.logger.Debug("allocated array", "name", spec.Name, "length", n, "bytes", bytes)
	return nil
}

// FreeArray releases a named array
func (kr *Runner) FreeArray(name string) error {
	mem, exists := kr.PooledMemory[name]
	if !exists {
		return fmt.Errorf("no device memory allocated for %s", name)
	}
	mem.Free()
	delete(kr.PooledMemory, name)
	delete(kr.arrayMetadata, name)
	return nil
}

func (kr *Runner) checkArray(name string, n int) (*gocca.OCCAMemory, error) {
	mem, exists := kr.PooledMemory[name]
	if !exists {
		return nil, fmt.Errorf("no device memory allocated for %s", name)
	}
	if meta, _ := kr.GetArrayMetadata(name); meta.Length != n {
		return nil, fmt.Errorf("array %s holds %d values, host data has %d", name, meta.Length, n)
	}
	return mem, nil
}

// CopyToDevice copies host data into a named array, converting to float32
// when the runner works in single precision
func (kr *Runner) CopyToDevice(name string, data []float64) error {
	mem, err := kr.checkArray(name, len(data))
	if err != nil {
		return err
	}
	if kr.FloatType == builder.Float32 {
		converted := make([]float32, len(data))
		for i, v := range data {
			converted[i] = float32(v)
		}
		mem.CopyFrom(unsafe.Pointer(&converted[0]), int64(len(converted)*4))
		return nil
	}
	mem.CopyFrom(unsafe.Pointer(&data[0]), int64(len(data)*8))
	return nil
}

// CopyFromDevice copies a named array back into host data
func (kr *Runner) CopyFromDevice(name string, data []float64) error {
	mem, err := kr.checkArray(name, len(data))
	if err != nil {
		return err
	}
	if kr.FloatType == builder.Float32 {
		temp, err := CopyArrayToHost[float32](kr, name)
		if err != nil {
			return err
		}
		for i, v := range temp {
			data[i] = float64(v)
		}
		return nil
	}
	mem.CopyTo(unsafe.Pointer(&data[0]), int64(len(data)*8))
	return nil
}
