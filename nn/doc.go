// Copyright 2025 Deconv ML Library. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the transposed-convolution layer.
//
// # Overview
//
// ConvTranspose2D implements a grouped 2D transposed (fractionally-strided)
// convolution: the gradient of an ordinary convolution with respect to its
// input, used as a forward operation to grow spatial resolution. Typical
// uses are decoder stages, learned upsampling and segmentation heads.
//
// Per spatial axis the output size is
//
//	out = (in − 1)·stride − 2·pad + kernel + adj
//
// where adj in [0, stride) disambiguates between the input sizes a strided
// convolution would have mapped to the same output size. The adjustment can
// be set in the configuration or derived per call from a target tensor's
// trailing two dimensions (ForwardWithTarget).
//
// # Basic Usage
//
//	import (
//	    "github.com/deconv-ml/deconv/backend/cpu"
//	    "github.com/deconv-ml/deconv/nn"
//	    "github.com/deconv-ml/deconv/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    layer := nn.NewConvTranspose2D(nn.Config{
//	        InPlanes: 16, OutPlanes: 8,
//	        KernelH: 4, KernelW: 4,
//	        StrideH: 2, StrideW: 2,
//	        PadH: 1, PadW: 1,
//	    }, backend)
//
//	    input := tensor.MustNewRaw(tensor.Shape{1, 16, 14, 14}, tensor.Float32)
//	    output := layer.Forward(input) // [1, 8, 28, 28]
//	    _ = output
//	}
//
// # Training
//
// The layer exposes the three gradient entry points separately so callers
// can skip what they don't need:
//
//	gradInput := layer.InputGradient(input, gradOutput)
//	layer.AccumulateGradients(input, gradOutput, 1.0)
//	layer.ApplyUpdate(0.01) // or hand layer.Parameters() to optim.NewSGD
//
// Parameter gradients accumulate across calls until ResetGradients, which
// is what makes gradient accumulation over micro-batches work.
//
// The output and input-gradient tensors returned by the layer are owned by
// it and reused across calls; clone them if they must survive the next
// call. A layer instance is not safe for concurrent use.
package nn
