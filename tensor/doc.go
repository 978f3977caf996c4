// Copyright 2025 Deconv ML Library. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense tensor type the deconv layers operate
// on.
//
// # Overview
//
// This package contains:
//   - RawTensor: a dtype-tagged, strided view into flat storage
//   - Shape: dimension bookkeeping with row-major strides
//   - DataType: the supported element types
//
// # Basic Usage
//
//	import "github.com/deconv-ml/deconv/tensor"
//
//	func main() {
//	    x := tensor.MustNewRaw(tensor.Shape{1, 3, 8, 8}, tensor.Float32)
//	    data := x.AsFloat32()
//	    for i := range data {
//	        data[i] = float32(i)
//	    }
//	}
//
// Views created by View, Narrow and Select share their parent's storage;
// the typed accessors require a contiguous layout and panic otherwise.
package tensor
