package runner

import (
	"fmt"
	"unsafe"
)

// CopyArrayToHost copies a named array back in its device precision. T must
// match the runner's FloatType.
func CopyArrayToHost[T float32 | float64](kr *Runner, name string) ([]T, error) {
	metadata, exists := kr.arrayMetadata[name]
	if !exists {
		return nil, fmt.Errorf("array %s not found", name)
	}

	var sample T
	requestedType := GetDataTypeFromSample(sample)
	if requestedType != metadata.DataType {
		return nil, fmt.Errorf("type mismatch: array is %v, requested %v",
			metadata.DataType, requestedType)
	}

	memory := kr.GetMemory(name)
	if memory == nil {
		return nil, fmt.Errorf("memory for %s not found", name)
	}
	result := make([]T, metadata.Length)
	memory.CopyTo(unsafe.Pointer(&result[0]), int64(metadata.Length)*int64(unsafe.Sizeof(sample)))
	return result, nil
}
