// Package nn implements the transposed-convolution layer: configuration,
// trainable parameters with accumulated gradients, shape policy, scratch
// buffer management and initialization policies.
package nn

import (
	"fmt"

	"gorgonia.org/vecf32"
	"gorgonia.org/vecf64"

	"github.com/deconv-ml/deconv/internal/tensor"
)

// Parameter is a trainable tensor paired with its gradient accumulator.
//
// The gradient tensor has the same shape and dtype as the parameter and is
// allocated zeroed at construction. Gradient operations add into it; it is
// never reset implicitly; call ZeroGrad between optimization steps.
type Parameter struct {
	name   string
	tensor *tensor.RawTensor
	grad   *tensor.RawTensor
}

// NewParameter creates a parameter wrapping an initialized tensor, with a
// zeroed gradient accumulator of the same shape.
func NewParameter(name string, t *tensor.RawTensor) *Parameter {
	return &Parameter{
		name:   name,
		tensor: t,
		grad:   tensor.MustNewRaw(t.Shape(), t.DType()),
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.RawTensor {
	return p.tensor
}

// Grad returns the gradient accumulator.
func (p *Parameter) Grad() *tensor.RawTensor {
	return p.grad
}

// ZeroGrad zeroes the gradient accumulator. The parameter itself is
// untouched.
func (p *Parameter) ZeroGrad() {
	p.grad.Zero()
}

// Update applies one gradient-descent step in place:
//
//	param ← param − rate · grad
func (p *Parameter) Update(rate float64) {
	switch p.tensor.DType() {
	case tensor.Float32:
		w := p.tensor.AsFloat32()
		step := append([]float32(nil), p.grad.AsFloat32()...)
		vecf32.Scale(step, float32(-rate))
		vecf32.Add(w, step)
	case tensor.Float64:
		w := p.tensor.AsFloat64()
		step := append([]float64(nil), p.grad.AsFloat64()...)
		vecf64.Scale(step, -rate)
		vecf64.Add(w, step)
	default:
		panic(fmt.Sprintf("parameter %s: unsupported dtype %s", p.name, p.tensor.DType()))
	}
}
