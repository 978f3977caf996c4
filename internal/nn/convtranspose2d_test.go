package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deconv-ml/deconv/internal/backend/cpu"
	"github.com/deconv-ml/deconv/internal/tensor"
)

// naiveArgs describes a reference-computation geometry.
type naiveArgs struct {
	batch, inP, outP int
	inH, inW         int
	kH, kW           int
	sH, sW           int
	pH, pW           int
	adjH, adjW       int
	groups           int
}

func (a naiveArgs) outSize() (int, int) {
	return (a.inH-1)*a.sH - 2*a.pH + a.kH + a.adjH,
		(a.inW-1)*a.sW - 2*a.pW + a.kW + a.adjW
}

// naiveForward is a direct triple-loop transposed convolution: every input
// element stamps a weighted kernel into the output. Used as the reference
// the GEMM-based path is checked against.
func naiveForward(in, w, bias []float64, a naiveArgs) []float64 {
	outH, outW := a.outSize()
	inPg := a.inP / a.groups
	outPg := a.outP / a.groups

	out := make([]float64, a.batch*a.outP*outH*outW)
	for n := 0; n < a.batch; n++ {
		for g := 0; g < a.groups; g++ {
			for icg := 0; icg < inPg; icg++ {
				ic := g*inPg + icg
				for ih := 0; ih < a.inH; ih++ {
					for iw := 0; iw < a.inW; iw++ {
						v := in[((n*a.inP+ic)*a.inH+ih)*a.inW+iw]
						for ocg := 0; ocg < outPg; ocg++ {
							oc := g*outPg + ocg
							for kh := 0; kh < a.kH; kh++ {
								oh := ih*a.sH - a.pH + kh
								if oh < 0 || oh >= outH {
									continue
								}
								for kw := 0; kw < a.kW; kw++ {
									ow := iw*a.sW - a.pW + kw
									if ow < 0 || ow >= outW {
										continue
									}
									wv := w[(((g*inPg+icg)*outPg+ocg)*a.kH+kh)*a.kW+kw]
									out[((n*a.outP+oc)*outH+oh)*outW+ow] += v * wv
								}
							}
						}
					}
				}
			}
		}
		if bias != nil {
			for oc := 0; oc < a.outP; oc++ {
				base := ((n*a.outP + oc) * outH) * outW
				for i := 0; i < outH*outW; i++ {
					out[base+i] += bias[oc]
				}
			}
		}
	}
	return out
}

// naiveInputGrad computes the input gradient by walking the same index
// relation as naiveForward in the opposite direction.
func naiveInputGrad(gout, w []float64, a naiveArgs) []float64 {
	outH, outW := a.outSize()
	inPg := a.inP / a.groups
	outPg := a.outP / a.groups

	gin := make([]float64, a.batch*a.inP*a.inH*a.inW)
	for n := 0; n < a.batch; n++ {
		for g := 0; g < a.groups; g++ {
			for icg := 0; icg < inPg; icg++ {
				ic := g*inPg + icg
				for ih := 0; ih < a.inH; ih++ {
					for iw := 0; iw < a.inW; iw++ {
						var sum float64
						for ocg := 0; ocg < outPg; ocg++ {
							oc := g*outPg + ocg
							for kh := 0; kh < a.kH; kh++ {
								oh := ih*a.sH - a.pH + kh
								if oh < 0 || oh >= outH {
									continue
								}
								for kw := 0; kw < a.kW; kw++ {
									ow := iw*a.sW - a.pW + kw
									if ow < 0 || ow >= outW {
										continue
									}
									wv := w[(((g*inPg+icg)*outPg+ocg)*a.kH+kh)*a.kW+kw]
									sum += gout[((n*a.outP+oc)*outH+oh)*outW+ow] * wv
								}
							}
						}
						gin[((n*a.inP+ic)*a.inH+ih)*a.inW+iw] = sum
					}
				}
			}
		}
	}
	return gin
}

// naiveParamGrad computes scale-weighted weight and bias gradients.
func naiveParamGrad(in, gout []float64, scale float64, a naiveArgs) (gw, gb []float64) {
	outH, outW := a.outSize()
	inPg := a.inP / a.groups
	outPg := a.outP / a.groups

	gw = make([]float64, a.groups*inPg*outPg*a.kH*a.kW)
	gb = make([]float64, a.outP)
	for n := 0; n < a.batch; n++ {
		for g := 0; g < a.groups; g++ {
			for icg := 0; icg < inPg; icg++ {
				ic := g*inPg + icg
				for ih := 0; ih < a.inH; ih++ {
					for iw := 0; iw < a.inW; iw++ {
						v := in[((n*a.inP+ic)*a.inH+ih)*a.inW+iw]
						for ocg := 0; ocg < outPg; ocg++ {
							oc := g*outPg + ocg
							for kh := 0; kh < a.kH; kh++ {
								oh := ih*a.sH - a.pH + kh
								if oh < 0 || oh >= outH {
									continue
								}
								for kw := 0; kw < a.kW; kw++ {
									ow := iw*a.sW - a.pW + kw
									if ow < 0 || ow >= outW {
										continue
									}
									gw[(((g*inPg+icg)*outPg+ocg)*a.kH+kh)*a.kW+kw] +=
										scale * v * gout[((n*a.outP+oc)*outH+oh)*outW+ow]
								}
							}
						}
					}
				}
			}
		}
		for oc := 0; oc < a.outP; oc++ {
			base := ((n*a.outP + oc) * outH) * outW
			for i := 0; i < outH*outW; i++ {
				gb[oc] += scale * gout[base+i]
			}
		}
	}
	return gw, gb
}

// fillPattern writes a deterministic, sign-alternating pattern.
func fillPattern(data []float64, seed int) {
	for i := range data {
		data[i] = float64((i*31+seed*17)%23)*0.25 - 2.75
	}
}

func fillPattern32(data []float32, seed int) {
	for i := range data {
		data[i] = float32((i*31+seed*17)%23)*0.25 - 2.75
	}
}

// TestConvTranspose2D_ForwardMatchesNaive exercises the full GEMM + fold
// path against the loop reference on an awkward geometry: rectangular
// kernel, stride 2, padding, adjustment, two groups, bias, batch of two.
func TestConvTranspose2D_ForwardMatchesNaive(t *testing.T) {
	a := naiveArgs{
		batch: 2, inP: 4, outP: 6,
		inH: 5, inW: 4,
		kH: 3, kW: 2,
		sH: 2, sW: 2,
		pH: 1, pW: 0,
		adjH: 1, adjW: 0,
		groups: 2,
	}

	layer := NewConvTranspose2D(Config{
		InPlanes: a.inP, OutPlanes: a.outP,
		KernelH: a.kH, KernelW: a.kW,
		StrideH: a.sH, StrideW: a.sW,
		PadH: a.pH, PadW: a.pW,
		AdjH: a.adjH, AdjW: a.adjW,
		Groups: a.groups,
		DType:  tensor.Float64,
	}, cpu.New())

	fillPattern(layer.Weight().Tensor().AsFloat64(), 1)
	fillPattern(layer.Bias().Tensor().AsFloat64(), 2)

	input := tensor.MustNewRaw(tensor.Shape{a.batch, a.inP, a.inH, a.inW}, tensor.Float64)
	fillPattern(input.AsFloat64(), 3)

	output := layer.Forward(input)

	want := naiveForward(input.AsFloat64(), layer.Weight().Tensor().AsFloat64(),
		layer.Bias().Tensor().AsFloat64(), a)

	outH, outW := a.outSize()
	require.True(t, output.Shape().Equal(tensor.Shape{a.batch, a.outP, outH, outW}))

	got := output.AsFloat64()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "output[%d]", i)
	}
}

// TestConvTranspose2D_InputGradientMatchesNaive checks the unroll + GEMM
// backward path against the loop reference.
func TestConvTranspose2D_InputGradientMatchesNaive(t *testing.T) {
	a := naiveArgs{
		batch: 2, inP: 3, outP: 4,
		inH: 4, inW: 5,
		kH: 2, kW: 3,
		sH: 2, sW: 1,
		pH: 0, pW: 1,
		adjH: 1, adjW: 0,
		groups: 1,
	}
	outH, outW := a.outSize()

	layer := NewConvTranspose2D(Config{
		InPlanes: a.inP, OutPlanes: a.outP,
		KernelH: a.kH, KernelW: a.kW,
		StrideH: a.sH, StrideW: a.sW,
		PadH: a.pH, PadW: a.pW,
		AdjH: a.adjH, AdjW: a.adjW,
		DType: tensor.Float64,
	}, cpu.New())
	fillPattern(layer.Weight().Tensor().AsFloat64(), 4)

	input := tensor.MustNewRaw(tensor.Shape{a.batch, a.inP, a.inH, a.inW}, tensor.Float64)
	fillPattern(input.AsFloat64(), 5)

	gradOutput := tensor.MustNewRaw(tensor.Shape{a.batch, a.outP, outH, outW}, tensor.Float64)
	fillPattern(gradOutput.AsFloat64(), 6)

	gradInput := layer.InputGradient(input, gradOutput)

	want := naiveInputGrad(gradOutput.AsFloat64(), layer.Weight().Tensor().AsFloat64(), a)
	got := gradInput.AsFloat64()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "gradInput[%d]", i)
	}
}

// TestConvTranspose2D_ParamGradientMatchesNaive checks the accumulated
// weight and bias gradients, including the scale factor.
func TestConvTranspose2D_ParamGradientMatchesNaive(t *testing.T) {
	a := naiveArgs{
		batch: 3, inP: 4, outP: 4,
		inH: 3, inW: 3,
		kH: 3, kW: 3,
		sH: 2, sW: 2,
		groups: 2,
	}
	outH, outW := a.outSize()

	layer := NewConvTranspose2D(Config{
		InPlanes: a.inP, OutPlanes: a.outP,
		KernelH: a.kH, KernelW: a.kW,
		StrideH: a.sH, StrideW: a.sW,
		Groups:  a.groups,
		DType:   tensor.Float64,
	}, cpu.New())

	input := tensor.MustNewRaw(tensor.Shape{a.batch, a.inP, a.inH, a.inW}, tensor.Float64)
	fillPattern(input.AsFloat64(), 7)

	gradOutput := tensor.MustNewRaw(tensor.Shape{a.batch, a.outP, outH, outW}, tensor.Float64)
	fillPattern(gradOutput.AsFloat64(), 8)

	layer.AccumulateGradients(input, gradOutput, 0.5)

	wantGW, wantGB := naiveParamGrad(input.AsFloat64(), gradOutput.AsFloat64(), 0.5, a)

	gotGW := layer.Weight().Grad().AsFloat64()
	for i := range wantGW {
		assert.InDelta(t, wantGW[i], gotGW[i], 1e-9, "gradWeight[%d]", i)
	}
	gotGB := layer.Bias().Grad().AsFloat64()
	for i := range wantGB {
		assert.InDelta(t, wantGB[i], gotGB[i], 1e-9, "gradBias[%d]", i)
	}
}

// TestConvTranspose2D_BatchedVsUnbatched checks that a rank-3 input behaves
// exactly like the same frame wrapped in a batch of one.
func TestConvTranspose2D_BatchedVsUnbatched(t *testing.T) {
	layer := NewConvTranspose2D(Config{
		InPlanes: 2, OutPlanes: 3,
		KernelH: 3, KernelW: 3,
		StrideH: 2, StrideW: 2,
	}, cpu.New())

	frame := tensor.MustNewRaw(tensor.Shape{2, 4, 4}, tensor.Float32)
	fillPattern32(frame.AsFloat32(), 9)

	// The layer reuses its output tensor; clone before the second call.
	outUnbatched := layer.Forward(frame).Clone()
	require.Equal(t, 3, len(outUnbatched.Shape()))

	batched := tensor.MustNewRaw(tensor.Shape{1, 2, 4, 4}, tensor.Float32)
	copy(batched.AsFloat32(), frame.AsFloat32())
	outBatched := layer.Forward(batched)
	require.Equal(t, 4, len(outBatched.Shape()))

	assert.Equal(t, outUnbatched.AsFloat32(), outBatched.AsFloat32())
}

// TestConvTranspose2D_OneByOneProjection checks the kernel-1 stride-1
// shortcut, which skips the column transforms entirely: the layer reduces
// to a per-pixel channel projection.
func TestConvTranspose2D_OneByOneProjection(t *testing.T) {
	layer := NewConvTranspose2D(Config{
		InPlanes: 2, OutPlanes: 3,
		KernelH: 1, KernelW: 1,
		NoBias:  true,
		DType:   tensor.Float64,
	}, cpu.New())

	w := layer.Weight().Tensor().AsFloat64() // [1, 2, 3, 1, 1] layout
	copy(w, []float64{1, 2, 3, 4, 5, 6})     // w[ic][oc]

	input := tensor.MustNewRaw(tensor.Shape{1, 2, 2, 2}, tensor.Float64)
	fillPattern(input.AsFloat64(), 10)
	in := input.AsFloat64()

	output := layer.Forward(input)
	got := output.AsFloat64()

	for oc := 0; oc < 3; oc++ {
		for p := 0; p < 4; p++ {
			want := in[p]*w[oc] + in[4+p]*w[3+oc]
			assert.InDelta(t, want, got[oc*4+p], 1e-12, "oc=%d p=%d", oc, p)
		}
	}

	// No column transform ran, so the counters must remain zero.
	assert.Zero(t, layer.UnrollTime())
	assert.Zero(t, layer.FoldTime())
}

// TestConvTranspose2D_GroupIndependence verifies that zeroing the second
// group's weights leaves the first group's output channels untouched and
// zeroes the second's.
func TestConvTranspose2D_GroupIndependence(t *testing.T) {
	layer := NewConvTranspose2D(Config{
		InPlanes: 4, OutPlanes: 4,
		KernelH: 3, KernelW: 3,
		StrideH: 2, StrideW: 2,
		Groups:  2,
		NoBias:  true,
		DType:   tensor.Float64,
	}, cpu.New())
	fillPattern(layer.Weight().Tensor().AsFloat64(), 11)

	input := tensor.MustNewRaw(tensor.Shape{1, 4, 3, 3}, tensor.Float64)
	fillPattern(input.AsFloat64(), 12)

	before := layer.Forward(input).Clone()

	layer.Weight().Tensor().Narrow(0, 1, 1).Zero()
	after := layer.Forward(input)

	outHW := 7 * 7
	bd, ad := before.AsFloat64(), after.AsFloat64()
	for i := 0; i < 2*outHW; i++ {
		assert.Equal(t, bd[i], ad[i], "group 0 output changed at %d", i)
	}
	for i := 2 * outHW; i < 4*outHW; i++ {
		assert.Zero(t, ad[i], "group 1 output not zero at %d", i)
	}
}

// TestConvTranspose2D_NoBiasMatchesZeroBias checks that a bias-free layer
// computes the same output as one whose bias is explicitly zero.
func TestConvTranspose2D_NoBiasMatchesZeroBias(t *testing.T) {
	backend := cpu.New()
	cfg := Config{
		InPlanes: 2, OutPlanes: 2,
		KernelH: 3, KernelW: 3,
		StrideH: 2, StrideW: 2,
		DType:   tensor.Float64,
	}

	withBias := NewConvTranspose2D(cfg, backend)
	withBias.Bias().Tensor().Zero()

	cfg.NoBias = true
	noBias := NewConvTranspose2D(cfg, backend)
	require.Nil(t, noBias.Bias())
	copy(noBias.Weight().Tensor().AsFloat64(), withBias.Weight().Tensor().AsFloat64())

	input := tensor.MustNewRaw(tensor.Shape{1, 2, 4, 4}, tensor.Float64)
	fillPattern(input.AsFloat64(), 13)

	a := withBias.Forward(input).Clone()
	b := noBias.Forward(input)
	assert.Equal(t, a.AsFloat64(), b.AsFloat64())
}

// TestConvTranspose2D_TargetSize checks the target-driven adjustment path:
// the output takes the target's trailing spatial dims, and the gradient for
// the target tensor is all zeros in the target's exact shape.
func TestConvTranspose2D_TargetSize(t *testing.T) {
	layer := NewConvTranspose2D(Config{
		InPlanes: 1, OutPlanes: 1,
		KernelH: 3, KernelW: 3,
		StrideH: 2, StrideW: 2,
	}, cpu.New())

	input := tensor.MustNewRaw(tensor.Shape{1, 3, 3}, tensor.Float32)
	fillPattern32(input.AsFloat32(), 14)

	// Plain forward gives 7x7; the target asks for 8x8.
	target := tensor.MustNewRaw(tensor.Shape{5, 1, 8, 8}, tensor.Float32)
	output := layer.ForwardWithTarget(input, target)
	require.True(t, output.Shape().Equal(tensor.Shape{1, 8, 8}))

	gradOutput := tensor.MustNewRaw(tensor.Shape{1, 8, 8}, tensor.Float32)
	gradOutput.Fill(1)

	gradInput, gradTarget := layer.InputGradientWithTarget(input, target, gradOutput)
	assert.True(t, gradInput.Shape().Equal(input.Shape()))

	require.True(t, gradTarget.Shape().Equal(target.Shape()))
	for i, v := range gradTarget.AsFloat32() {
		require.Zero(t, v, "gradTarget[%d]", i)
	}
}

// TestConvTranspose2D_GradientAccumulation checks that two identical
// accumulations double the gradient and that ResetGradients restores the
// single-pass value on the next accumulation.
func TestConvTranspose2D_GradientAccumulation(t *testing.T) {
	layer := NewConvTranspose2D(Config{
		InPlanes: 2, OutPlanes: 2,
		KernelH: 2, KernelW: 2,
		DType:   tensor.Float64,
	}, cpu.New())

	input := tensor.MustNewRaw(tensor.Shape{1, 2, 3, 3}, tensor.Float64)
	fillPattern(input.AsFloat64(), 15)
	gradOutput := tensor.MustNewRaw(tensor.Shape{1, 2, 4, 4}, tensor.Float64)
	fillPattern(gradOutput.AsFloat64(), 16)

	layer.AccumulateGradients(input, gradOutput, 1)
	single := layer.Weight().Grad().Clone()
	singleBias := layer.Bias().Grad().Clone()

	layer.AccumulateGradients(input, gradOutput, 1)
	double := layer.Weight().Grad().AsFloat64()
	for i, s := range single.AsFloat64() {
		assert.InDelta(t, 2*s, double[i], 1e-12, "gradWeight[%d]", i)
	}
	doubleBias := layer.Bias().Grad().AsFloat64()
	for i, s := range singleBias.AsFloat64() {
		assert.InDelta(t, 2*s, doubleBias[i], 1e-12, "gradBias[%d]", i)
	}

	layer.ResetGradients()
	layer.AccumulateGradients(input, gradOutput, 1)
	assert.Equal(t, single.AsFloat64(), layer.Weight().Grad().AsFloat64())
	assert.Equal(t, singleBias.AsFloat64(), layer.Bias().Grad().AsFloat64())
}

// TestConvTranspose2D_ApplyUpdate checks param ← param − rate·grad.
func TestConvTranspose2D_ApplyUpdate(t *testing.T) {
	layer := NewConvTranspose2D(Config{
		InPlanes: 1, OutPlanes: 1,
		KernelH: 2, KernelW: 2,
		DType:   tensor.Float64,
	}, cpu.New())

	w := layer.Weight().Tensor().AsFloat64()
	copy(w, []float64{1, 2, 3, 4})
	g := layer.Weight().Grad().AsFloat64()
	copy(g, []float64{10, 20, 30, 40})
	layer.Bias().Tensor().Fill(1)
	layer.Bias().Grad().Fill(4)

	layer.ApplyUpdate(0.5)

	assert.InDeltaSlice(t, []float64{-4, -8, -12, -16}, w, 1e-12)
	assert.InDelta(t, -1, layer.Bias().Tensor().AsFloat64()[0], 1e-12)
}

// TestConvTranspose2D_Float32MatchesFloat64 runs the same configuration in
// both precisions and checks agreement to single-precision tolerance.
func TestConvTranspose2D_Float32MatchesFloat64(t *testing.T) {
	backend := cpu.New()
	cfg := Config{
		InPlanes: 2, OutPlanes: 4,
		KernelH: 3, KernelW: 3,
		StrideH: 2, StrideW: 2,
		PadH: 1, PadW: 1,
	}

	cfg.DType = tensor.Float32
	l32 := NewConvTranspose2D(cfg, backend)
	cfg.DType = tensor.Float64
	l64 := NewConvTranspose2D(cfg, backend)

	w64 := l64.Weight().Tensor().AsFloat64()
	fillPattern(w64, 17)
	b64 := l64.Bias().Tensor().AsFloat64()
	fillPattern(b64, 18)
	w32 := l32.Weight().Tensor().AsFloat32()
	for i, v := range w64 {
		w32[i] = float32(v)
	}
	b32 := l32.Bias().Tensor().AsFloat32()
	for i, v := range b64 {
		b32[i] = float32(v)
	}

	in32 := tensor.MustNewRaw(tensor.Shape{2, 2, 4, 4}, tensor.Float32)
	in64 := tensor.MustNewRaw(tensor.Shape{2, 2, 4, 4}, tensor.Float64)
	fillPattern(in64.AsFloat64(), 19)
	d32 := in32.AsFloat32()
	for i, v := range in64.AsFloat64() {
		d32[i] = float32(v)
	}

	out32 := l32.Forward(in32).AsFloat32()
	out64 := l64.Forward(in64).AsFloat64()
	require.Len(t, out32, len(out64))
	for i := range out64 {
		assert.InDelta(t, out64[i], float64(out32[i]), 1e-4, "output[%d]", i)
	}
}

// TestConvTranspose2D_TimingCounters checks the column-transform counters
// accumulate across calls and that ClearState resets them.
func TestConvTranspose2D_TimingCounters(t *testing.T) {
	layer := NewConvTranspose2D(Config{
		InPlanes: 4, OutPlanes: 4,
		KernelH: 3, KernelW: 3,
		StrideH: 2, StrideW: 2,
	}, cpu.New())

	input := tensor.MustNewRaw(tensor.Shape{2, 4, 16, 16}, tensor.Float32)
	fillPattern32(input.AsFloat32(), 20)

	var gradOutput *tensor.RawTensor
	for i := 0; i < 20; i++ {
		out := layer.Forward(input)
		if gradOutput == nil {
			gradOutput = tensor.MustNewRaw(out.Shape(), tensor.Float32)
			gradOutput.Fill(1)
		}
		layer.InputGradient(input, gradOutput)
	}

	assert.Positive(t, int64(layer.FoldTime()), "forward should accumulate fold time")
	assert.Positive(t, int64(layer.UnrollTime()), "backward should accumulate unroll time")

	layer.ClearState()
	assert.Zero(t, layer.UnrollTime())
	assert.Zero(t, layer.FoldTime())

	// The layer must keep working after its scratch is released.
	out := layer.Forward(input)
	require.True(t, out.Shape().Equal(tensor.Shape{2, 4, 33, 33}))
}

func TestNewConvTranspose2D_Validation(t *testing.T) {
	backend := cpu.New()

	cases := map[string]Config{
		"zero planes":        {InPlanes: 0, OutPlanes: 1, KernelH: 1, KernelW: 1},
		"zero kernel":        {InPlanes: 1, OutPlanes: 1, KernelH: 0, KernelW: 1},
		"negative pad":       {InPlanes: 1, OutPlanes: 1, KernelH: 1, KernelW: 1, PadH: -1},
		"adj >= stride":      {InPlanes: 1, OutPlanes: 1, KernelH: 1, KernelW: 1, StrideH: 2, StrideW: 2, AdjH: 2},
		"negative adj":       {InPlanes: 1, OutPlanes: 1, KernelH: 1, KernelW: 1, AdjW: -1},
		"indivisible groups": {InPlanes: 3, OutPlanes: 4, KernelH: 1, KernelW: 1, Groups: 2},
		"non-float dtype":    {InPlanes: 1, OutPlanes: 1, KernelH: 1, KernelW: 1, DType: tensor.Int32},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			require.Panics(t, func() { NewConvTranspose2D(cfg, backend) })
		})
	}
}

func TestConvTranspose2D_ShapeErrors(t *testing.T) {
	layer := NewConvTranspose2D(Config{
		InPlanes: 2, OutPlanes: 2,
		KernelH: 3, KernelW: 3,
	}, cpu.New())

	t.Run("wrong channel count", func(t *testing.T) {
		input := tensor.MustNewRaw(tensor.Shape{1, 3, 4, 4}, tensor.Float32)
		require.Panics(t, func() { layer.Forward(input) })
	})

	t.Run("non-contiguous input", func(t *testing.T) {
		base := tensor.MustNewRaw(tensor.Shape{2, 4, 4}, tensor.Float32)
		view := base.Narrow(1, 0, 2) // inner-axis narrow: not contiguous
		require.Panics(t, func() { layer.Forward(view) })
	})

	t.Run("wrong gradOutput shape", func(t *testing.T) {
		input := tensor.MustNewRaw(tensor.Shape{2, 4, 4}, tensor.Float32)
		gradOutput := tensor.MustNewRaw(tensor.Shape{2, 5, 5}, tensor.Float32) // should be 6x6
		require.Panics(t, func() { layer.InputGradient(input, gradOutput) })
	})
}

func TestConvTranspose2D_Accessors(t *testing.T) {
	layer := NewConvTranspose2D(Config{
		InPlanes: 2, OutPlanes: 3,
		KernelH: 4, KernelW: 4,
		StrideH: 2, StrideW: 2,
		PadH: 1, PadW: 1,
	}, cpu.New())

	assert.Equal(t, [2]int{14, 14}, layer.ComputeOutputSize(7, 7))
	assert.Len(t, layer.Parameters(), 2)
	assert.Contains(t, layer.String(), "ConvTranspose2D(in=2, out=3")

	noBias := NewConvTranspose2D(Config{
		InPlanes: 2, OutPlanes: 3,
		KernelH: 4, KernelW: 4,
		NoBias:  true,
	}, cpu.New())
	assert.Len(t, noBias.Parameters(), 1)
	assert.Nil(t, noBias.Bias())
}
