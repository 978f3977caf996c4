// Copyright 2025 Deconv ML Library. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the CPU compute backend.
//
// The backend implements the transposed-convolution kernels on top of
// gonum's pure-Go BLAS: the per-group matrix products go through GEMM and
// the spatial scatter/gather runs as explicit column transforms (unroll and
// fold). Both float32 and float64 tensors are supported.
package cpu
