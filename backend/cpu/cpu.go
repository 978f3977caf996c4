// Copyright 2025 Deconv ML Library. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/deconv-ml/deconv/internal/backend/cpu"
)

// Backend represents the CPU backend implementation.
//
// The CPU backend runs the column transforms in pure Go and delegates the
// matrix products to gonum's BLAS implementation.
type Backend = internalcpu.CPUBackend

// New creates a new CPU backend.
//
// Example:
//
//	import (
//	    "github.com/deconv-ml/deconv/backend/cpu"
//	    "github.com/deconv-ml/deconv/nn"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    layer := nn.NewConvTranspose2D(nn.Config{
//	        InPlanes: 3, OutPlanes: 16,
//	        KernelH: 4, KernelW: 4,
//	        StrideH: 2, StrideW: 2,
//	    }, backend)
//	    _ = layer
//	}
func New() *Backend {
	return internalcpu.New()
}
