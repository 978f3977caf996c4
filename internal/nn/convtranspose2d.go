package nn

import (
	"fmt"
	"time"

	"github.com/deconv-ml/deconv/internal/backend/cpu"
	"github.com/deconv-ml/deconv/internal/tensor"
)

// ConvTranspose2D is a 2D transposed (fractionally-strided) convolution
// layer. Its forward pass computes what an ordinary convolution's
// backward-to-input pass would compute, producing a spatially larger output
// from a smaller input.
//
// Input shape:  [batch, inPlanes, inH, inW] or [inPlanes, inH, inW]
// Weight shape: [groups, inPlanes/groups, outPlanes/groups, kernelH, kernelW]
// Bias shape:   [outPlanes] (absent with NoBias)
// Output shape: [batch, outPlanes, outH, outW]
//
// where, per spatial axis:
//
//	out = (in − 1)·stride − 2·pad + kernel + adj      (0 ≤ adj < stride)
//
// The output and input-gradient tensors returned by Forward and
// InputGradient are owned by the layer and reused across calls; callers
// must not retain them past the next call.
//
// Backward calls assume the geometry of the matching forward call: the same
// input rank, spatial size and, for target-size invocations, the same
// target tensor. Calling them with mismatched geometry is a caller error.
// A layer instance is not safe for concurrent calls without external
// locking.
type ConvTranspose2D struct {
	inPlanes  int
	outPlanes int
	kernelH   int
	kernelW   int
	strideH   int
	strideW   int
	padH      int
	padW      int
	adjH      int
	adjW      int
	groups    int
	dtype     tensor.DataType

	weight *Parameter // [groups, inPlanes/groups, outPlanes/groups, kH, kW]
	bias   *Parameter // [outPlanes] or nil

	scratch    convScratch
	unrollTime time.Duration
	foldTime   time.Duration

	backend *cpu.CPUBackend
}

// Config describes a ConvTranspose2D layer. Zero values select the
// defaults: stride 1, groups 1, bias enabled, float32 elements, InitDefault
// initialization.
type Config struct {
	InPlanes  int // number of input channels
	OutPlanes int // number of output channels

	KernelH, KernelW int
	StrideH, StrideW int // default 1
	PadH, PadW       int
	AdjH, AdjW       int // extra output size, 0 ≤ adj < stride

	Groups int  // channel groups, default 1
	NoBias bool // disable the additive bias term

	DType tensor.DataType // Float32 (default) or Float64
	Init  InitPolicy
}

// NewConvTranspose2D creates a transposed-convolution layer. All
// configuration errors fail immediately.
func NewConvTranspose2D(cfg Config, backend *cpu.CPUBackend) *ConvTranspose2D {
	if cfg.StrideH == 0 {
		cfg.StrideH = 1
	}
	if cfg.StrideW == 0 {
		cfg.StrideW = 1
	}
	if cfg.Groups == 0 {
		cfg.Groups = 1
	}

	if cfg.InPlanes <= 0 || cfg.OutPlanes <= 0 {
		panic(fmt.Sprintf("convtranspose2d: invalid planes in=%d, out=%d", cfg.InPlanes, cfg.OutPlanes))
	}
	if cfg.KernelH <= 0 || cfg.KernelW <= 0 {
		panic(fmt.Sprintf("convtranspose2d: invalid kernel size %dx%d", cfg.KernelH, cfg.KernelW))
	}
	if cfg.StrideH <= 0 || cfg.StrideW <= 0 {
		panic(fmt.Sprintf("convtranspose2d: invalid stride %dx%d", cfg.StrideH, cfg.StrideW))
	}
	if cfg.PadH < 0 || cfg.PadW < 0 {
		panic(fmt.Sprintf("convtranspose2d: invalid padding %dx%d", cfg.PadH, cfg.PadW))
	}
	if cfg.AdjH < 0 || cfg.AdjH > cfg.StrideH-1 || cfg.AdjW < 0 || cfg.AdjW > cfg.StrideW-1 {
		panic(fmt.Sprintf("convtranspose2d: adjustment %dx%d must satisfy 0 ≤ adj ≤ stride-1 (stride %dx%d)",
			cfg.AdjH, cfg.AdjW, cfg.StrideH, cfg.StrideW))
	}
	if cfg.Groups <= 0 || cfg.InPlanes%cfg.Groups != 0 || cfg.OutPlanes%cfg.Groups != 0 {
		panic(fmt.Sprintf("convtranspose2d: groups %d must divide inPlanes %d and outPlanes %d",
			cfg.Groups, cfg.InPlanes, cfg.OutPlanes))
	}
	if !cfg.DType.IsFloat() {
		panic(fmt.Sprintf("convtranspose2d: unsupported dtype %s (need float32 or float64)", cfg.DType))
	}

	inPg := cfg.InPlanes / cfg.Groups
	outPg := cfg.OutPlanes / cfg.Groups

	c := &ConvTranspose2D{
		inPlanes:  cfg.InPlanes,
		outPlanes: cfg.OutPlanes,
		kernelH:   cfg.KernelH,
		kernelW:   cfg.KernelW,
		strideH:   cfg.StrideH,
		strideW:   cfg.StrideW,
		padH:      cfg.PadH,
		padW:      cfg.PadW,
		adjH:      cfg.AdjH,
		adjW:      cfg.AdjW,
		groups:    cfg.Groups,
		dtype:     cfg.DType,
		backend:   backend,
	}

	weight := tensor.MustNewRaw(tensor.Shape{cfg.Groups, inPg, outPg, cfg.KernelH, cfg.KernelW}, cfg.DType)
	c.weight = NewParameter("convtranspose2d.weight", weight)
	if !cfg.NoBias {
		bias := tensor.MustNewRaw(tensor.Shape{cfg.OutPlanes}, cfg.DType)
		c.bias = NewParameter("convtranspose2d.bias", bias)
	}

	c.initParameters(cfg.Init)
	return c
}

// convScratch holds the lazily sized buffers reused across calls, keyed by
// the geometry they were sized for. A geometry change invalidates and
// reallocates everything; stale buffer sizes are a correctness bug, not an
// efficiency one.
type convScratch struct {
	batch      int
	inH, inW   int
	outH, outW int

	columns   *tensor.RawTensor // [outPlanes/groups * kH * kW, inH * inW]
	ones      *tensor.RawTensor // [outH * outW], all ones
	output    *tensor.RawTensor // [batch, outPlanes, outH, outW]
	gradInput *tensor.RawTensor // [batch, inPlanes, inH, inW]

	// Parameter-gradient partials, allocated on first use of
	// AccumulateGradients for the current geometry.
	gradWeightBuf *tensor.RawTensor // [batch, weight.NumElements()]
	gradBiasBuf   *tensor.RawTensor // [batch, outPlanes]
	onesBatch     *tensor.RawTensor // [batch], all ones
}

func (s *convScratch) matches(g geometry) bool {
	return s.columns != nil &&
		s.batch == g.batch &&
		s.inH == g.inH && s.inW == g.inW &&
		s.outH == g.outH && s.outW == g.outW
}

func (c *ConvTranspose2D) ensureScratch(g geometry) {
	if c.scratch.matches(g) {
		return
	}

	outPg := c.outPlanes / c.groups
	c.scratch = convScratch{
		batch: g.batch,
		inH:   g.inH, inW: g.inW,
		outH: g.outH, outW: g.outW,
		columns:   tensor.MustNewRaw(tensor.Shape{outPg * c.kernelH * c.kernelW, g.inH * g.inW}, c.dtype),
		ones:      tensor.MustNewRaw(tensor.Shape{g.outH * g.outW}, c.dtype),
		output:    tensor.MustNewRaw(tensor.Shape{g.batch, c.outPlanes, g.outH, g.outW}, c.dtype),
		gradInput: tensor.MustNewRaw(tensor.Shape{g.batch, c.inPlanes, g.inH, g.inW}, c.dtype),
	}
	c.scratch.ones.Fill(1)
}

func (c *ConvTranspose2D) ensureAccumScratch(g geometry) {
	c.ensureScratch(g)
	if c.scratch.gradWeightBuf != nil {
		return
	}

	c.scratch.gradWeightBuf = tensor.MustNewRaw(tensor.Shape{g.batch, c.weight.Tensor().NumElements()}, c.dtype)
	if c.bias != nil {
		c.scratch.gradBiasBuf = tensor.MustNewRaw(tensor.Shape{g.batch, c.outPlanes}, c.dtype)
	}
	c.scratch.onesBatch = tensor.MustNewRaw(tensor.Shape{g.batch}, c.dtype)
	c.scratch.onesBatch.Fill(1)
}

func (c *ConvTranspose2D) args(g geometry) cpu.ConvTranspose2DArgs {
	return cpu.ConvTranspose2DArgs{
		Batch:     g.batch,
		InPlanes:  c.inPlanes,
		OutPlanes: c.outPlanes,
		InH:       g.inH, InW: g.inW,
		OutH: g.outH, OutW: g.outW,
		KernelH: c.kernelH, KernelW: c.kernelW,
		StrideH: c.strideH, StrideW: c.strideW,
		PadH: c.padH, PadW: c.padW,
		DilationH: 1, DilationW: 1,
		Groups: c.groups,
	}
}

// forceBatch views a rank-3 input as a batch of one; rank-4 inputs pass
// through unchanged.
func (c *ConvTranspose2D) forceBatch(t *tensor.RawTensor, g geometry) *tensor.RawTensor {
	if g.batched {
		return t
	}
	s := t.Shape()
	return t.View(tensor.Shape{1, s[0], s[1], s[2]})
}

// Forward computes the transposed-convolution output for input, using the
// configured output adjustment.
func (c *ConvTranspose2D) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	return c.forward(input, nil)
}

// ForwardWithTarget computes the output with the adjustment derived from
// the target tensor's trailing two dimensions; the target's values are
// ignored. The same target must be supplied to the matching backward calls.
func (c *ConvTranspose2D) ForwardWithTarget(input, target *tensor.RawTensor) *tensor.RawTensor {
	return c.forward(input, target)
}

func (c *ConvTranspose2D) forward(input, target *tensor.RawTensor) *tensor.RawTensor {
	g := c.resolveGeometry(input, target)
	c.checkShape(input, nil, g)
	c.ensureScratch(g)

	var bias *tensor.RawTensor
	if c.bias != nil {
		bias = c.bias.Tensor()
	}

	tm := c.backend.ConvTranspose2D(c.scratch.output, c.forceBatch(input, g),
		c.weight.Tensor(), bias, c.scratch.columns, c.scratch.ones, c.args(g))
	c.unrollTime += tm.Unroll
	c.foldTime += tm.Fold

	if !g.batched {
		return c.scratch.output.View(tensor.Shape{c.outPlanes, g.outH, g.outW})
	}
	return c.scratch.output
}

// InputGradient computes the gradient w.r.t. the input. It must be invoked
// with the same geometry as the matching Forward call.
func (c *ConvTranspose2D) InputGradient(input, gradOutput *tensor.RawTensor) *tensor.RawTensor {
	return c.inputGradient(input, nil, gradOutput)
}

// InputGradientWithTarget is InputGradient for a paired (input, target-size)
// activity. The second return value is the gradient for the target tensor:
// all zeros in the target's exact shape, since only the target's shape ever
// entered the computation.
func (c *ConvTranspose2D) InputGradientWithTarget(input, target, gradOutput *tensor.RawTensor) (*tensor.RawTensor, *tensor.RawTensor) {
	gradInput := c.inputGradient(input, target, gradOutput)
	gradTarget := tensor.MustNewRaw(target.Shape(), target.DType())
	return gradInput, gradTarget
}

func (c *ConvTranspose2D) inputGradient(input, target, gradOutput *tensor.RawTensor) *tensor.RawTensor {
	g := c.resolveGeometry(input, target)
	c.checkShape(input, gradOutput, g)
	c.ensureScratch(g)

	tm := c.backend.ConvTranspose2DInputBackward(c.scratch.gradInput,
		c.forceBatch(gradOutput, g), c.weight.Tensor(), c.scratch.columns, c.args(g))
	c.unrollTime += tm.Unroll
	c.foldTime += tm.Fold

	if !g.batched {
		return c.scratch.gradInput.View(tensor.Shape{c.inPlanes, g.inH, g.inW})
	}
	return c.scratch.gradInput
}

// AccumulateGradients adds scale-weighted parameter gradients into the
// layer's gradient accumulators. Gradients are never reset here; call
// ResetGradients between optimization steps.
func (c *ConvTranspose2D) AccumulateGradients(input, gradOutput *tensor.RawTensor, scale float64) {
	c.accumulateGradients(input, nil, gradOutput, scale)
}

// AccumulateGradientsWithTarget is AccumulateGradients for a paired
// (input, target-size) activity; the adjustment is re-derived from the
// target exactly as in the matching forward call.
func (c *ConvTranspose2D) AccumulateGradientsWithTarget(input, target, gradOutput *tensor.RawTensor, scale float64) {
	c.accumulateGradients(input, target, gradOutput, scale)
}

func (c *ConvTranspose2D) accumulateGradients(input, target, gradOutput *tensor.RawTensor, scale float64) {
	g := c.resolveGeometry(input, target)
	c.checkShape(input, gradOutput, g)
	c.ensureAccumScratch(g)

	c.scratch.gradWeightBuf.Zero()
	var gradBias *tensor.RawTensor
	if c.bias != nil {
		gradBias = c.bias.Grad()
		c.scratch.gradBiasBuf.Zero()
	}

	tm := c.backend.ConvTranspose2DParamBackward(c.weight.Grad(), gradBias,
		c.forceBatch(input, g), c.forceBatch(gradOutput, g),
		c.scratch.columns, c.scratch.ones,
		c.scratch.gradWeightBuf, c.scratch.gradBiasBuf, c.scratch.onesBatch,
		scale, c.args(g))
	c.unrollTime += tm.Unroll
	c.foldTime += tm.Fold
}

// ResetGradients zeroes the weight and bias gradient accumulators. The
// parameters themselves are untouched.
func (c *ConvTranspose2D) ResetGradients() {
	c.weight.ZeroGrad()
	if c.bias != nil {
		c.bias.ZeroGrad()
	}
}

// ApplyUpdate applies param ← param − rate·grad to the weight and, if
// enabled, the bias.
func (c *ConvTranspose2D) ApplyUpdate(rate float64) {
	c.weight.Update(rate)
	if c.bias != nil {
		c.bias.Update(rate)
	}
}

// ClearState releases all scratch buffers (including the reused output and
// input-gradient tensors) and resets the timing counters.
func (c *ConvTranspose2D) ClearState() {
	c.scratch = convScratch{}
	c.unrollTime = 0
	c.foldTime = 0
}

// UnrollTime returns the cumulative time spent in the unroll (im2col)
// transform since construction or the last ClearState.
func (c *ConvTranspose2D) UnrollTime() time.Duration {
	return c.unrollTime
}

// FoldTime returns the cumulative time spent in the fold (col2im)
// transform since construction or the last ClearState.
func (c *ConvTranspose2D) FoldTime() time.Duration {
	return c.foldTime
}

// Parameters returns all trainable parameters.
func (c *ConvTranspose2D) Parameters() []*Parameter {
	if c.bias != nil {
		return []*Parameter{c.weight, c.bias}
	}
	return []*Parameter{c.weight}
}

// Weight returns the weight parameter.
func (c *ConvTranspose2D) Weight() *Parameter {
	return c.weight
}

// Bias returns the bias parameter, or nil when bias is disabled.
func (c *ConvTranspose2D) Bias() *Parameter {
	return c.bias
}

// ComputeOutputSize computes the output spatial dimensions for a given
// input size under the configured adjustment.
//
// Returns: [outHeight, outWidth].
func (c *ConvTranspose2D) ComputeOutputSize(inputH, inputW int) [2]int {
	return [2]int{
		OutputSize(inputH, c.kernelH, c.strideH, c.padH, c.adjH),
		OutputSize(inputW, c.kernelW, c.strideW, c.padW, c.adjW),
	}
}

// String returns a string representation of the layer.
func (c *ConvTranspose2D) String() string {
	return fmt.Sprintf("ConvTranspose2D(in=%d, out=%d, kernel=(%d, %d), stride=(%d, %d), pad=(%d, %d), adj=(%d, %d), groups=%d, bias=%v, dtype=%s)",
		c.inPlanes, c.outPlanes, c.kernelH, c.kernelW, c.strideH, c.strideW,
		c.padH, c.padW, c.adjH, c.adjW, c.groups, c.bias != nil, c.dtype)
}
