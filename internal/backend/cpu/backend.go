// Package cpu implements the CPU numeric backend for the deconv engine:
// BLAS-backed matrix multiplies, the unroll/fold column transforms, and the
// grouped, batched drivers for the transposed-convolution operations.
package cpu

import (
	"github.com/deconv-ml/deconv/internal/tensor"
)

// CPUBackend implements the numeric operations on CPU.
type CPUBackend struct{}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// floatData returns the typed element slice of a raw tensor. The caller
// guarantees T matches the tensor's dtype (the public entry points dispatch
// on dtype exactly once).
func floatData[T tensor.Float](r *tensor.RawTensor) []T {
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(r.AsFloat32()).([]T)
	default:
		return any(r.AsFloat64()).([]T)
	}
}
