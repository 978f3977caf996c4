package cpu

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/blas"

	"github.com/deconv-ml/deconv/internal/tensor"
)

// ConvTranspose2DInputBackward computes the gradient w.r.t. the input of a
// grouped 2D transposed convolution. This path mirrors an ordinary
// convolution's forward pass: the gradient-output frame is unrolled into the
// column buffer, which the weight matrix then contracts back to input shape.
//
// Shapes:
//
//	gradOutput: [batch, outPlanes, outH, outW]
//	weight:     [groups, inPlanes/groups, outPlanes/groups * kernelH * kernelW]
//	gradInput:  [batch, inPlanes, inH, inW]
//	columns:    [outPlanes/groups * kernelH * kernelW, inH * inW] scratch
func (cpu *CPUBackend) ConvTranspose2DInputBackward(gradInput, gradOutput, weight, columns *tensor.RawTensor, a ConvTranspose2DArgs) ColTiming {
	switch gradOutput.DType() {
	case tensor.Float32:
		return convTranspose2DInputBackward[float32](gradInput, gradOutput, weight, columns, a)
	case tensor.Float64:
		return convTranspose2DInputBackward[float64](gradInput, gradOutput, weight, columns, a)
	default:
		panic(fmt.Sprintf("convtranspose2d: unsupported dtype %s (need float32 or float64)", gradOutput.DType()))
	}
}

func convTranspose2DInputBackward[T tensor.Float](gradInput, gradOutput, weight, columns *tensor.RawTensor, a ConvTranspose2DArgs) ColTiming {
	inHW := a.InH * a.InW
	outHW := a.OutH * a.OutW
	inPg := a.InPlanes / a.Groups
	outPg := a.OutPlanes / a.Groups
	colRows := outPg * a.KernelH * a.KernelW
	wBlock := inPg * colRows

	gin := floatData[T](gradInput)
	gout := floatData[T](gradOutput)
	w := floatData[T](weight)

	fast := a.fastPath()
	var colData []T
	if !fast {
		colData = floatData[T](columns)
	}

	var tm ColTiming
	for n := 0; n < a.Batch; n++ {
		ginN := gin[n*a.InPlanes*inHW:][: a.InPlanes*inHW : a.InPlanes*inHW]
		goutN := gout[n*a.OutPlanes*outHW:][: a.OutPlanes*outHW : a.OutPlanes*outHW]

		for g := 0; g < a.Groups; g++ {
			wG := w[g*wBlock:][:wBlock:wBlock]
			ginG := ginN[g*inPg*inHW:][: inPg*inHW : inPg*inHW]
			goutG := goutN[g*outPg*outHW:][: outPg*outHW : outPg*outHW]

			cols := columnView[T]{data: colData}
			if fast {
				// unroll is the identity; read the gradient frame directly.
				cols = columnView[T]{data: goutG, borrowed: true}
			} else {
				start := time.Now()
				im2col(cols.data, goutG, outPg, a.OutH, a.OutW,
					a.KernelH, a.KernelW, a.PadH, a.PadW,
					a.StrideH, a.StrideW, a.DilationH, a.DilationW)
				tm.Unroll += time.Since(start)
			}

			// gradInput = weight · columns
			gemm(blas.NoTrans, blas.NoTrans, inPg, inHW, colRows,
				T(1), wG, colRows, cols.data, inHW, T(0), ginG, inHW)
		}
	}

	return tm
}

// ConvTranspose2DParamBackward accumulates scale-weighted gradients w.r.t.
// weight and bias.
//
// Per batch element and group, the unrolled gradient-output frame is
// contracted against the input slice into a per-batch-element partial
// weight gradient (row n of gradWeightBuf); the per-element bias gradient
// is a matrix-vector product of the gradient frame against a ones vector.
// The partials are then reduced across the batch into the shared gradWeight
// and gradBias accumulators with a ones-vector GEMV, adding onto whatever
// the accumulators already hold.
//
// Extra shapes:
//
//	gradWeightBuf: [batch, weight.NumElements()], zeroed by the caller
//	gradBiasBuf:   [batch, outPlanes], zeroed by the caller (nil without bias)
//	onesBatch:     [batch] filled with 1
func (cpu *CPUBackend) ConvTranspose2DParamBackward(gradWeight, gradBias, input, gradOutput, columns, ones, gradWeightBuf, gradBiasBuf, onesBatch *tensor.RawTensor, scale float64, a ConvTranspose2DArgs) ColTiming {
	switch gradOutput.DType() {
	case tensor.Float32:
		return convTranspose2DParamBackward[float32](gradWeight, gradBias, input, gradOutput, columns, ones, gradWeightBuf, gradBiasBuf, onesBatch, scale, a)
	case tensor.Float64:
		return convTranspose2DParamBackward[float64](gradWeight, gradBias, input, gradOutput, columns, ones, gradWeightBuf, gradBiasBuf, onesBatch, scale, a)
	default:
		panic(fmt.Sprintf("convtranspose2d: unsupported dtype %s (need float32 or float64)", gradOutput.DType()))
	}
}

func convTranspose2DParamBackward[T tensor.Float](gradWeight, gradBias, input, gradOutput, columns, ones, gradWeightBuf, gradBiasBuf, onesBatch *tensor.RawTensor, scale float64, a ConvTranspose2DArgs) ColTiming {
	inHW := a.InH * a.InW
	outHW := a.OutH * a.OutW
	inPg := a.InPlanes / a.Groups
	outPg := a.OutPlanes / a.Groups
	colRows := outPg * a.KernelH * a.KernelW
	wBlock := inPg * colRows
	wNumel := a.Groups * wBlock

	in := floatData[T](input)
	gout := floatData[T](gradOutput)
	gw := floatData[T](gradWeight)
	gwBuf := floatData[T](gradWeightBuf)
	onesB := floatData[T](onesBatch)

	fast := a.fastPath()
	var colData []T
	if !fast {
		colData = floatData[T](columns)
	}

	var gb, gbBuf, onesData []T
	if gradBias != nil {
		gb = floatData[T](gradBias)
		gbBuf = floatData[T](gradBiasBuf)
		onesData = floatData[T](ones)
	}

	var tm ColTiming
	for n := 0; n < a.Batch; n++ {
		inN := in[n*a.InPlanes*inHW:][: a.InPlanes*inHW : a.InPlanes*inHW]
		goutN := gout[n*a.OutPlanes*outHW:][: a.OutPlanes*outHW : a.OutPlanes*outHW]
		gwBufN := gwBuf[n*wNumel:][:wNumel:wNumel]

		for g := 0; g < a.Groups; g++ {
			inG := inN[g*inPg*inHW:][: inPg*inHW : inPg*inHW]
			goutG := goutN[g*outPg*outHW:][: outPg*outHW : outPg*outHW]
			gwBufG := gwBufN[g*wBlock:][:wBlock:wBlock]

			cols := columnView[T]{data: colData}
			if fast {
				cols = columnView[T]{data: goutG, borrowed: true}
			} else {
				start := time.Now()
				im2col(cols.data, goutG, outPg, a.OutH, a.OutW,
					a.KernelH, a.KernelW, a.PadH, a.PadW,
					a.StrideH, a.StrideW, a.DilationH, a.DilationW)
				tm.Unroll += time.Since(start)
			}

			// partial gradWeight += scale · input · columnsᵀ
			gemm(blas.NoTrans, blas.Trans, inPg, colRows, inHW,
				T(scale), inG, inHW, cols.data, inHW, T(1), gwBufG, colRows)
		}

		if gradBias != nil {
			gbBufN := gbBuf[n*a.OutPlanes:][: a.OutPlanes : a.OutPlanes]
			// partial gradBias += scale · gradOutput · ones
			gemv(blas.NoTrans, a.OutPlanes, outHW,
				T(scale), goutN, outHW, onesData, 1, T(1), gbBufN, 1)
		}
	}

	// Reduce the per-batch partials into the shared accumulators.
	gemv(blas.Trans, a.Batch, wNumel, T(1), gwBuf, wNumel, onesB, 1, T(1), gw, 1)
	if gradBias != nil {
		gemv(blas.Trans, a.Batch, a.OutPlanes, T(1), gbBuf, a.OutPlanes, onesB, 1, T(1), gb, 1)
	}

	return tm
}
