package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/chewxy/math32"

	"github.com/deconv-ml/deconv/internal/tensor"
)

// InitPolicy selects the weight/bias initialization at construction.
type InitPolicy int

// Supported initialization policies.
const (
	// InitDefault draws weight and bias from U(-stdv, stdv) with
	// stdv = 1/sqrt(kernelW * kernelH * inPlanes).
	InitDefault InitPolicy = iota
	// InitXavier draws the weight from the Glorot uniform distribution
	// U(-b, b) with b = sqrt(6/(fanIn+fanOut)); the bias stays zero.
	InitXavier
	// InitBilinear fills every kernel plane with the bilinear upsampling
	// filter. Requires a square kernel and a rank-5 weight tensor; the
	// usual configuration is groups = inPlanes = outPlanes for channelwise
	// upsampling. The bias stays zero.
	InitBilinear
)

// initParameters fills freshly allocated weight and bias tensors according
// to the policy. bias is nil when the layer has no bias.
func (c *ConvTranspose2D) initParameters(policy InitPolicy) {
	switch policy {
	case InitDefault:
		c.initUniform()
	case InitXavier:
		c.initXavier()
	case InitBilinear:
		c.initBilinear()
	default:
		panic(fmt.Sprintf("convtranspose2d: unknown init policy %d", policy))
	}
}

func (c *ConvTranspose2D) initUniform() {
	switch c.dtype {
	case tensor.Float32:
		stdv := 1 / math32.Sqrt(float32(c.kernelW*c.kernelH*c.inPlanes))
		fillUniform(c.weight.Tensor().AsFloat32(), stdv)
		if c.bias != nil {
			fillUniform(c.bias.Tensor().AsFloat32(), stdv)
		}
	case tensor.Float64:
		stdv := 1 / math.Sqrt(float64(c.kernelW*c.kernelH*c.inPlanes))
		fillUniform(c.weight.Tensor().AsFloat64(), stdv)
		if c.bias != nil {
			fillUniform(c.bias.Tensor().AsFloat64(), stdv)
		}
	}
}

func (c *ConvTranspose2D) initXavier() {
	inPg := c.inPlanes / c.groups
	outPg := c.outPlanes / c.groups
	fanIn := inPg * c.kernelH * c.kernelW
	fanOut := outPg * c.kernelH * c.kernelW

	switch c.dtype {
	case tensor.Float32:
		bound := math32.Sqrt(6 / float32(fanIn+fanOut))
		fillUniform(c.weight.Tensor().AsFloat32(), bound)
	case tensor.Float64:
		bound := math.Sqrt(6 / float64(fanIn+fanOut))
		fillUniform(c.weight.Tensor().AsFloat64(), bound)
	}
}

func (c *ConvTranspose2D) initBilinear() {
	wShape := c.weight.Tensor().Shape()
	if len(wShape) != 5 {
		panic(fmt.Sprintf("convtranspose2d: bilinear init needs a rank-5 weight tensor, got rank %d", len(wShape)))
	}
	kH, kW := wShape[3], wShape[4]
	if kH != kW {
		panic(fmt.Sprintf("convtranspose2d: bilinear init needs a square kernel, got %dx%d", kH, kW))
	}

	switch c.dtype {
	case tensor.Float32:
		f := math32.Ceil(float32(kW) / 2)
		center := (2*f - 1 - float32(int(f)%2)) / (2 * f)
		data := c.weight.Tensor().AsFloat32()
		for i := range data {
			x := float32(i % kW)
			y := float32((i / kW) % kH)
			data[i] = (1 - math32.Abs(x/f-center)) * (1 - math32.Abs(y/f-center))
		}
	case tensor.Float64:
		f := math.Ceil(float64(kW) / 2)
		center := (2*f - 1 - float64(int(f)%2)) / (2 * f)
		data := c.weight.Tensor().AsFloat64()
		for i := range data {
			x := float64(i % kW)
			y := float64((i / kW) % kH)
			data[i] = (1 - math.Abs(x/f-center)) * (1 - math.Abs(y/f-center))
		}
	}
}

// fillUniform fills data with values drawn from U(-bound, bound).
func fillUniform[T tensor.Float](data []T, bound T) {
	for i := range data {
		//nolint:gosec // math/rand is fine for weight initialization
		data[i] = T(rand.Float64()*2-1) * bound
	}
}
