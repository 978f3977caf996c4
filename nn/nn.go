// Copyright 2025 Deconv ML Library. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/deconv-ml/deconv/internal/backend/cpu"
	"github.com/deconv-ml/deconv/internal/nn"
	"github.com/deconv-ml/deconv/internal/tensor"
)

// Parameter represents a trainable tensor paired with its gradient
// accumulator.
type Parameter = nn.Parameter

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter(name string, t *tensor.RawTensor) *Parameter {
	return nn.NewParameter(name, t)
}

// ConvTranspose2D is a 2D transposed (fractionally-strided) convolution
// layer.
type ConvTranspose2D = nn.ConvTranspose2D

// Config describes a ConvTranspose2D layer. Zero values select the
// defaults: stride 1, groups 1, bias enabled, float32 elements.
type Config = nn.Config

// InitPolicy selects the weight/bias initialization at construction.
type InitPolicy = nn.InitPolicy

// Supported initialization policies.
const (
	InitDefault  = nn.InitDefault
	InitXavier   = nn.InitXavier
	InitBilinear = nn.InitBilinear
)

// NewConvTranspose2D creates a transposed-convolution layer.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewConvTranspose2D(nn.Config{
//	    InPlanes: 16, OutPlanes: 8,
//	    KernelH: 4, KernelW: 4,
//	    StrideH: 2, StrideW: 2,
//	    PadH: 1, PadW: 1,
//	}, backend)
//	output := layer.Forward(input) // doubles the spatial size
func NewConvTranspose2D(cfg Config, backend *cpu.CPUBackend) *ConvTranspose2D {
	return nn.NewConvTranspose2D(cfg, backend)
}

// OutputSize computes the spatial output size of a transposed convolution
// along one axis:
//
//	out = (in − 1)·stride − 2·pad + kernel + adj
func OutputSize(inputSize, kernel, stride, pad, adj int) int {
	return nn.OutputSize(inputSize, kernel, stride, pad, adj)
}

// DeriveAdjustment computes the output-size adjustment that makes
// OutputSize hit an explicit target size.
func DeriveAdjustment(targetSize, kernel, pad, stride int) int {
	return nn.DeriveAdjustment(targetSize, kernel, pad, stride)
}
