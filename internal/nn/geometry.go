package nn

import (
	"fmt"

	"github.com/deconv-ml/deconv/internal/tensor"
)

// OutputSize computes the spatial output size of a transposed convolution
// along one axis:
//
//	out = (in − 1)·stride − 2·pad + kernel + adj
func OutputSize(inputSize, kernel, stride, pad, adj int) int {
	return (inputSize-1)*stride - 2*pad + kernel + adj
}

// DeriveAdjustment computes the output-size adjustment that makes
// OutputSize hit an explicit target size:
//
//	adj = (target + 2·pad − kernel) mod stride
//
// The result is normalized into [0, stride).
func DeriveAdjustment(targetSize, kernel, pad, stride int) int {
	adj := (targetSize + 2*pad - kernel) % stride
	if adj < 0 {
		adj += stride
	}
	return adj
}

// geometry is the shape state resolved once per call and threaded through
// the forward pass and its matching backward passes. Callers supplying a
// target-size tensor must pass the same target to forward and backward so
// both resolve identical adjustments.
type geometry struct {
	batch      int
	batched    bool // input arrived rank-4
	inH, inW   int
	outH, outW int
	adjH, adjW int
}

// resolveGeometry derives the per-call geometry from the input tensor and
// an optional target-size tensor. Only the target's trailing two dimensions
// are read; its values are ignored.
func (c *ConvTranspose2D) resolveGeometry(input, target *tensor.RawTensor) geometry {
	shape := input.Shape()
	g := geometry{adjH: c.adjH, adjW: c.adjW}

	switch len(shape) {
	case 3:
		g.batch = 1
		g.inH, g.inW = shape[1], shape[2]
	case 4:
		g.batched = true
		g.batch = shape[0]
		g.inH, g.inW = shape[2], shape[3]
	default:
		panic(fmt.Sprintf("convtranspose2d: expected 3D [C,H,W] or 4D [N,C,H,W] input, got %dD", len(shape)))
	}

	if target != nil {
		ts := target.Shape()
		if len(ts) < 2 {
			panic(fmt.Sprintf("convtranspose2d: target-size tensor must have at least 2 dims, got shape %v", ts))
		}
		g.adjH = DeriveAdjustment(ts[len(ts)-2], c.kernelH, c.padH, c.strideH)
		g.adjW = DeriveAdjustment(ts[len(ts)-1], c.kernelW, c.padW, c.strideW)
	}

	g.outH = OutputSize(g.inH, c.kernelH, c.strideH, c.padH, g.adjH)
	g.outW = OutputSize(g.inW, c.kernelW, c.strideW, c.padW, g.adjW)
	if g.outH < 1 && g.outW < 1 {
		panic(fmt.Sprintf("convtranspose2d: input %dx%d gives output %dx%d, too small (kernel %dx%d, stride %dx%d, pad %dx%d, adj %dx%d)",
			g.inH, g.inW, g.outH, g.outW, c.kernelH, c.kernelW, c.strideH, c.strideW, c.padH, c.padW, g.adjH, g.adjW))
	}

	return g
}

// checkShape validates the input (and, when given, the gradient-output)
// tensor against the layer configuration and resolved geometry. It fails
// fast with a message naming the offending dimensions and performs no
// partial mutation.
func (c *ConvTranspose2D) checkShape(input, gradOutput *tensor.RawTensor, g geometry) {
	shape := input.Shape()
	chDim := 0
	if g.batched {
		chDim = 1
	}
	if shape[chDim] != c.inPlanes {
		panic(fmt.Sprintf("convtranspose2d: input channels %d != expected %d (input shape %v)", shape[chDim], c.inPlanes, shape))
	}
	if !input.IsContiguous() {
		panic(fmt.Sprintf("convtranspose2d: input must be contiguous (shape %v, strides %v)", shape, input.Strides()))
	}

	wrank := len(c.weight.Tensor().Shape())
	if wrank != 3 && wrank != 5 {
		panic(fmt.Sprintf("convtranspose2d: weight must be rank 3 or 5, got rank %d", wrank))
	}
	if c.bias != nil {
		bs := c.bias.Tensor().Shape()
		if len(bs) != 1 || bs[0] != c.outPlanes {
			panic(fmt.Sprintf("convtranspose2d: bias shape %v, expected [%d]", bs, c.outPlanes))
		}
	}

	if gradOutput != nil {
		want := tensor.Shape{c.outPlanes, g.outH, g.outW}
		if g.batched {
			want = tensor.Shape{g.batch, c.outPlanes, g.outH, g.outW}
		}
		if !gradOutput.Shape().Equal(want) {
			panic(fmt.Sprintf("convtranspose2d: gradOutput shape %v, expected %v", gradOutput.Shape(), want))
		}
		if !gradOutput.IsContiguous() {
			panic(fmt.Sprintf("convtranspose2d: gradOutput must be contiguous (shape %v, strides %v)", gradOutput.Shape(), gradOutput.Strides()))
		}
	}
}
