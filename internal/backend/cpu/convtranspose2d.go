package cpu

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/blas"

	"github.com/deconv-ml/deconv/internal/tensor"
)

// ConvTranspose2DArgs carries the configuration and resolved per-call
// geometry of one transposed-convolution invocation. The layer computes it
// once per call and passes the identical value to the forward kernel and to
// the matching backward kernels.
type ConvTranspose2DArgs struct {
	Batch                int
	InPlanes, OutPlanes  int
	InH, InW             int
	OutH, OutW           int
	KernelH, KernelW     int
	StrideH, StrideW     int
	PadH, PadW           int
	DilationH, DilationW int
	Groups               int
}

// fastPath reports whether the column buffer can alias the spatial tensor
// directly: a 1x1 kernel at stride 1 with no padding makes unroll and fold
// the identity.
func (a ConvTranspose2DArgs) fastPath() bool {
	return a.KernelH == 1 && a.KernelW == 1 &&
		a.StrideH == 1 && a.StrideW == 1 &&
		a.PadH == 0 && a.PadW == 0
}

// ColTiming reports time spent in the column transforms during one call.
type ColTiming struct {
	Unroll time.Duration
	Fold   time.Duration
}

// Add accumulates another timing sample.
func (t *ColTiming) Add(other ColTiming) {
	t.Unroll += other.Unroll
	t.Fold += other.Fold
}

// columnView pairs column-matrix data with its provenance. A borrowed view
// aliases a slice of a caller-visible tensor and skips the transform pass;
// borrowed views on the gradient paths are read-only.
type columnView[T tensor.Float] struct {
	data     []T
	borrowed bool
}

// ConvTranspose2D runs the forward pass of a grouped 2D transposed
// convolution.
//
// Shapes:
//
//	input:   [batch, inPlanes, inH, inW]
//	weight:  [groups, inPlanes/groups, outPlanes/groups * kernelH * kernelW] (flattened view)
//	bias:    [outPlanes] or nil
//	output:  [batch, outPlanes, outH, outW]
//	columns: [outPlanes/groups * kernelH * kernelW, inH * inW] scratch
//	ones:    [outH * outW] filled with 1, used for the bias outer product
//
// For every batch element and group the per-group weight matrix is
// multiplied with the input slice to produce the column buffer, which Fold
// scatters into the output; the bias is then added as a rank-1 update.
func (cpu *CPUBackend) ConvTranspose2D(output, input, weight, bias, columns, ones *tensor.RawTensor, a ConvTranspose2DArgs) ColTiming {
	switch input.DType() {
	case tensor.Float32:
		return convTranspose2DForward[float32](output, input, weight, bias, columns, ones, a)
	case tensor.Float64:
		return convTranspose2DForward[float64](output, input, weight, bias, columns, ones, a)
	default:
		panic(fmt.Sprintf("convtranspose2d: unsupported dtype %s (need float32 or float64)", input.DType()))
	}
}

func convTranspose2DForward[T tensor.Float](output, input, weight, bias *tensor.RawTensor, columns, ones *tensor.RawTensor, a ConvTranspose2DArgs) ColTiming {
	inHW := a.InH * a.InW
	outHW := a.OutH * a.OutW
	inPg := a.InPlanes / a.Groups
	outPg := a.OutPlanes / a.Groups
	colRows := outPg * a.KernelH * a.KernelW
	wBlock := inPg * colRows

	in := floatData[T](input)
	w := floatData[T](weight)
	out := floatData[T](output)

	fast := a.fastPath()
	var colData []T
	if !fast {
		colData = floatData[T](columns)
	}

	var biasData, onesData []T
	if bias != nil {
		biasData = floatData[T](bias)
		onesData = floatData[T](ones)
	}

	var tm ColTiming
	for n := 0; n < a.Batch; n++ {
		inN := in[n*a.InPlanes*inHW:][: a.InPlanes*inHW : a.InPlanes*inHW]
		outN := out[n*a.OutPlanes*outHW:][: a.OutPlanes*outHW : a.OutPlanes*outHW]

		for g := 0; g < a.Groups; g++ {
			wG := w[g*wBlock:][:wBlock:wBlock]
			inG := inN[g*inPg*inHW:][: inPg*inHW : inPg*inHW]
			outG := outN[g*outPg*outHW:][: outPg*outHW : outPg*outHW]

			cols := columnView[T]{data: colData}
			if fast {
				// unroll/fold are the identity; write straight into the
				// output slice.
				cols = columnView[T]{data: outG, borrowed: true}
			}

			// columns = weightᵀ · input
			gemm(blas.Trans, blas.NoTrans, colRows, inHW, inPg,
				T(1), wG, colRows, inG, inHW, T(0), cols.data, inHW)

			if !cols.borrowed {
				start := time.Now()
				col2im(outG, cols.data, outPg, a.OutH, a.OutW,
					a.KernelH, a.KernelW, a.PadH, a.PadW,
					a.StrideH, a.StrideW, a.DilationH, a.DilationW)
				tm.Fold += time.Since(start)
			}
		}

		if bias != nil {
			// output += bias ⊗ ones
			gemm(blas.NoTrans, blas.NoTrans, a.OutPlanes, outHW, 1,
				T(1), biasData, 1, onesData, outHW, T(1), outN, outHW)
		}
	}

	return tm
}
