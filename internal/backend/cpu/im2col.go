package cpu

import (
	"fmt"

	"github.com/deconv-ml/deconv/internal/tensor"
)

// Unroll rearranges the sliding-window patches of a spatial tensor into the
// columns of a matrix (im2col).
//
// Input shape:  [channels, height, width]
// Output shape: [channels*kernelH*kernelW, colH*colW]
//
// where colH = (height + 2*padH - (dilationH*(kernelH-1)+1))/strideH + 1 and
// colW accordingly. Column j holds the flattened receptive-field patch
// feeding output position j; positions falling outside the padded input are
// zero.
func (cpu *CPUBackend) Unroll(im *tensor.RawTensor, kernelH, kernelW, padH, padW, strideH, strideW, dilationH, dilationW int) *tensor.RawTensor {
	channels, height, width := colTransformCheck("unroll", im.Shape(), im.DType(), kernelH, kernelW, strideH, strideW)

	colH := colSize(height, kernelH, padH, strideH, dilationH)
	colW := colSize(width, kernelW, padW, strideW, dilationW)
	if colH < 1 || colW < 1 {
		panic(fmt.Sprintf("unroll: kernel %dx%d with stride %dx%d does not fit input %dx%d (pad %dx%d)",
			kernelH, kernelW, strideH, strideW, height, width, padH, padW))
	}

	col := tensor.MustNewRaw(tensor.Shape{channels * kernelH * kernelW, colH * colW}, im.DType())

	switch im.DType() {
	case tensor.Float32:
		im2col(col.AsFloat32(), im.AsFloat32(), channels, height, width, kernelH, kernelW, padH, padW, strideH, strideW, dilationH, dilationW)
	case tensor.Float64:
		im2col(col.AsFloat64(), im.AsFloat64(), channels, height, width, kernelH, kernelW, padH, padW, strideH, strideW, dilationH, dilationW)
	}

	return col
}

// Fold is the adjoint of Unroll (col2im): it scatter-accumulates each
// column of the matrix back into the receptive field it was taken from,
// summing where windows overlap.
//
// Input shape:  [channels*kernelH*kernelW, colH*colW]
// Output shape: [channels, height, width]
func (cpu *CPUBackend) Fold(col *tensor.RawTensor, channels, height, width, kernelH, kernelW, padH, padW, strideH, strideW, dilationH, dilationW int) *tensor.RawTensor {
	if kernelH <= 0 || kernelW <= 0 {
		panic(fmt.Sprintf("fold: invalid kernel size %dx%d", kernelH, kernelW))
	}
	if strideH <= 0 || strideW <= 0 {
		panic(fmt.Sprintf("fold: invalid stride %dx%d", strideH, strideW))
	}
	if !col.DType().IsFloat() {
		panic(fmt.Sprintf("fold: unsupported dtype %s (need float32 or float64)", col.DType()))
	}

	colH := colSize(height, kernelH, padH, strideH, dilationH)
	colW := colSize(width, kernelW, padW, strideW, dilationW)
	want := tensor.Shape{channels * kernelH * kernelW, colH * colW}
	if !col.Shape().Equal(want) {
		panic(fmt.Sprintf("fold: column matrix shape %v does not match expected %v for a %dx%dx%d image", col.Shape(), want, channels, height, width))
	}

	im := tensor.MustNewRaw(tensor.Shape{channels, height, width}, col.DType())

	switch col.DType() {
	case tensor.Float32:
		col2im(im.AsFloat32(), col.AsFloat32(), channels, height, width, kernelH, kernelW, padH, padW, strideH, strideW, dilationH, dilationW)
	case tensor.Float64:
		col2im(im.AsFloat64(), col.AsFloat64(), channels, height, width, kernelH, kernelW, padH, padW, strideH, strideW, dilationH, dilationW)
	}

	return im
}

func colTransformCheck(op string, shape tensor.Shape, dt tensor.DataType, kernelH, kernelW, strideH, strideW int) (channels, height, width int) {
	if len(shape) != 3 {
		panic(fmt.Sprintf("%s: expected 3D input [C,H,W], got %dD", op, len(shape)))
	}
	if kernelH <= 0 || kernelW <= 0 {
		panic(fmt.Sprintf("%s: invalid kernel size %dx%d", op, kernelH, kernelW))
	}
	if strideH <= 0 || strideW <= 0 {
		panic(fmt.Sprintf("%s: invalid stride %dx%d", op, strideH, strideW))
	}
	if !dt.IsFloat() {
		panic(fmt.Sprintf("%s: unsupported dtype %s (need float32 or float64)", op, dt))
	}
	return shape[0], shape[1], shape[2]
}

// colSize is the number of sliding-window positions along one axis.
func colSize(size, kernel, pad, stride, dilation int) int {
	return (size+2*pad-(dilation*(kernel-1)+1))/stride + 1
}

// im2col writes the column matrix for one [channels, height, width] frame.
// Layout matches Unroll: row c*kernelH*kernelW+k holds kernel offset k of
// channel c across all window positions.
func im2col[T tensor.Float](col, im []T, channels, height, width, kernelH, kernelW, padH, padW, strideH, strideW, dilationH, dilationW int) {
	colH := colSize(height, kernelH, padH, strideH, dilationH)
	colW := colSize(width, kernelW, padW, strideW, dilationW)
	rows := channels * kernelH * kernelW

	for r := 0; r < rows; r++ {
		wOffset := r % kernelW
		hOffset := (r / kernelW) % kernelH
		c := r / (kernelH * kernelW)

		for h := 0; h < colH; h++ {
			hIm := h*strideH - padH + hOffset*dilationH
			rowBase := (r*colH + h) * colW

			if hIm < 0 || hIm >= height {
				for w := 0; w < colW; w++ {
					col[rowBase+w] = 0
				}
				continue
			}

			imBase := (c*height + hIm) * width
			for w := 0; w < colW; w++ {
				wIm := w*strideW - padW + wOffset*dilationW
				if wIm >= 0 && wIm < width {
					col[rowBase+w] = im[imBase+wIm]
				} else {
					col[rowBase+w] = 0
				}
			}
		}
	}
}

// col2im zeroes the destination frame, then scatter-accumulates the column
// matrix back into it. Overlapping windows sum.
func col2im[T tensor.Float](im, col []T, channels, height, width, kernelH, kernelW, padH, padW, strideH, strideW, dilationH, dilationW int) {
	colH := colSize(height, kernelH, padH, strideH, dilationH)
	colW := colSize(width, kernelW, padW, strideW, dilationW)
	rows := channels * kernelH * kernelW

	n := channels * height * width
	for i := 0; i < n; i++ {
		im[i] = 0
	}

	for r := 0; r < rows; r++ {
		wOffset := r % kernelW
		hOffset := (r / kernelW) % kernelH
		c := r / (kernelH * kernelW)

		for h := 0; h < colH; h++ {
			hIm := h*strideH - padH + hOffset*dilationH
			if hIm < 0 || hIm >= height {
				continue
			}
			rowBase := (r*colH + h) * colW
			imBase := (c*height + hIm) * width

			for w := 0; w < colW; w++ {
				wIm := w*strideW - padW + wOffset*dilationW
				if wIm >= 0 && wIm < width {
					im[imBase+wIm] += col[rowBase+w]
				}
			}
		}
	}
}
