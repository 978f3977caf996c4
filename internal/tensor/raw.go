package tensor

import (
	"fmt"
	"unsafe"
)

// RawTensor is the low-level dense tensor representation: a dtype-tagged,
// strided view into a flat backing buffer. Views created by Narrow, Select
// and View share the buffer of their parent; everything else owns its
// storage exclusively.
type RawTensor struct {
	data   []byte // backing storage, shared between views
	shape  Shape
	stride []int
	dtype  DataType
	offset int // element offset into the backing storage
}

// NewRaw creates a new RawTensor with the given shape and type.
// The storage is zero-initialized.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		data:   make([]byte, shape.NumElements()*dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		offset: 0,
	}, nil
}

// MustNewRaw is NewRaw that panics on an invalid shape.
func MustNewRaw(shape Shape, dtype DataType) *RawTensor {
	r, err := NewRaw(shape, dtype)
	if err != nil {
		panic(fmt.Sprintf("tensor: %v", err))
	}
	return r
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides, in elements.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// IsContiguous reports whether the tensor's elements are laid out densely
// in row-major order. Narrowing along any axis but the outermost produces
// a non-contiguous view.
func (r *RawTensor) IsContiguous() bool {
	want := r.shape.ComputeStrides()
	for i := range want {
		if r.shape[i] != 1 && r.stride[i] != want[i] {
			return false
		}
	}
	return true
}

// AsFloat32 interprets the data as []float32 covering exactly this tensor's
// elements. Panics if the dtype is not Float32 or the tensor is not
// contiguous.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	r.requireContiguous("AsFloat32")
	data := r.data[r.offset*4:]
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), r.NumElements())
}

// AsFloat64 interprets the data as []float64 covering exactly this tensor's
// elements. Panics if the dtype is not Float64 or the tensor is not
// contiguous.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", r.dtype))
	}
	r.requireContiguous("AsFloat64")
	data := r.data[r.offset*8:]
	return unsafe.Slice((*float64)(unsafe.Pointer(&data[0])), r.NumElements())
}

func (r *RawTensor) requireContiguous(op string) {
	if !r.IsContiguous() {
		panic(fmt.Sprintf("tensor: %s requires a contiguous tensor (shape %v, strides %v)", op, r.shape, r.stride))
	}
}

// View returns a tensor sharing this tensor's storage with a new shape.
// The element count must match and the tensor must be contiguous.
func (r *RawTensor) View(shape Shape) *RawTensor {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("view: invalid shape: %v", err))
	}
	if shape.NumElements() != r.NumElements() {
		panic(fmt.Sprintf("view: incompatible shapes: %v -> %v (different number of elements)", r.shape, shape))
	}
	r.requireContiguous("View")

	return &RawTensor{
		data:   r.data,
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  r.dtype,
		offset: r.offset,
	}
}

// Narrow returns a view of this tensor restricted to [start, start+length)
// along dim. The view shares storage; narrowing any axis but the outermost
// yields a non-contiguous view.
func (r *RawTensor) Narrow(dim, start, length int) *RawTensor {
	if dim < 0 || dim >= len(r.shape) {
		panic(fmt.Sprintf("narrow: invalid dim %d for %dD tensor", dim, len(r.shape)))
	}
	if start < 0 || length <= 0 || start+length > r.shape[dim] {
		panic(fmt.Sprintf("narrow: invalid range [%d, %d) for dim %d of size %d", start, start+length, dim, r.shape[dim]))
	}

	shape := r.shape.Clone()
	shape[dim] = length

	return &RawTensor{
		data:   r.data,
		shape:  shape,
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		offset: r.offset + start*r.stride[dim],
	}
}

// Select returns a view of this tensor with dim fixed at index, dropping
// that dimension.
func (r *RawTensor) Select(dim, index int) *RawTensor {
	if dim < 0 || dim >= len(r.shape) {
		panic(fmt.Sprintf("select: invalid dim %d for %dD tensor", dim, len(r.shape)))
	}
	if index < 0 || index >= r.shape[dim] {
		panic(fmt.Sprintf("select: index %d out of range for dim %d of size %d", index, dim, r.shape[dim]))
	}

	shape := make(Shape, 0, len(r.shape)-1)
	stride := make([]int, 0, len(r.stride)-1)
	for i := range r.shape {
		if i == dim {
			continue
		}
		shape = append(shape, r.shape[i])
		stride = append(stride, r.stride[i])
	}

	return &RawTensor{
		data:   r.data,
		shape:  shape,
		stride: stride,
		dtype:  r.dtype,
		offset: r.offset + index*r.stride[dim],
	}
}

// Zero fills the tensor with zeros. Requires a contiguous tensor.
func (r *RawTensor) Zero() {
	r.requireContiguous("Zero")
	sz := r.dtype.Size()
	clear(r.data[r.offset*sz : (r.offset+r.NumElements())*sz])
}

// Fill sets every element to v. Requires a contiguous float tensor.
func (r *RawTensor) Fill(v float64) {
	switch r.dtype {
	case Float32:
		data := r.AsFloat32()
		f := float32(v)
		for i := range data {
			data[i] = f
		}
	case Float64:
		data := r.AsFloat64()
		for i := range data {
			data[i] = v
		}
	default:
		panic(fmt.Sprintf("fill: unsupported dtype %s", r.dtype))
	}
}

// Clone returns a contiguous deep copy of this tensor.
func (r *RawTensor) Clone() *RawTensor {
	r.requireContiguous("Clone")
	out := MustNewRaw(r.shape, r.dtype)
	sz := r.dtype.Size()
	copy(out.data, r.data[r.offset*sz:(r.offset+r.NumElements())*sz])
	return out
}
