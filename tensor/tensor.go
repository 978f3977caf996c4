// Copyright 2025 Deconv ML Library. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/deconv-ml/deconv/internal/tensor"
)

// Shape represents tensor dimensions, outermost first.
type Shape = tensor.Shape

// DataType represents the element type of a tensor.
type DataType = tensor.DataType

// Supported data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int32   = tensor.Int32
	Int64   = tensor.Int64
)

// Float constrains the element types the compute kernels accept.
type Float = tensor.Float

// RawTensor is the dense tensor representation: a dtype-tagged, strided
// view into a flat backing buffer.
//
// RawTensor provides:
//   - Shape and type information via Shape(), DType(), Strides()
//   - Type-safe data access via AsFloat32() and AsFloat64()
//   - Storage-sharing views via View(), Narrow() and Select()
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32)
//	data := raw.AsFloat32() // type-safe access
type RawTensor = tensor.RawTensor

// NewRaw creates a zero-initialized tensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// MustNewRaw is NewRaw that panics on an invalid shape.
func MustNewRaw(shape Shape, dtype DataType) *RawTensor {
	return tensor.MustNewRaw(shape, dtype)
}
