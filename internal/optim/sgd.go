// Package optim implements parameter optimization over the layer's
// (parameter, gradient) pairs.
package optim

import (
	"fmt"

	"gorgonia.org/vecf32"
	"gorgonia.org/vecf64"

	"github.com/deconv-ml/deconv/internal/nn"
	"github.com/deconv-ml/deconv/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * grad
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + grad
//	param = param - lr * velocity
//
// Gradients are read from each parameter's accumulator; the caller decides
// when to reset them (ZeroGrad), which is what makes gradient accumulation
// across micro-batches work.
type SGD struct {
	params     []*nn.Parameter
	lr         float64
	momentum   float64
	velocities map[*nn.Parameter]*tensor.RawTensor
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float64 // learning rate (default: 0.01)
	Momentum float64 // momentum factor (default: 0, range [0, 1))
}

// NewSGD creates a new SGD optimizer over the given parameters.
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*nn.Parameter]*tensor.RawTensor),
	}
}

// Step applies one gradient-descent update to every parameter.
func (s *SGD) Step() {
	for _, param := range s.params {
		if s.momentum == 0 {
			param.Update(s.lr)
			continue
		}
		s.stepWithMomentum(param)
	}
}

func (s *SGD) stepWithMomentum(param *nn.Parameter) {
	velocity, ok := s.velocities[param]
	if !ok {
		velocity = tensor.MustNewRaw(param.Tensor().Shape(), param.Tensor().DType())
		s.velocities[param] = velocity
	}

	switch param.Tensor().DType() {
	case tensor.Float32:
		v := velocity.AsFloat32()
		vecf32.Scale(v, float32(s.momentum))
		vecf32.Add(v, param.Grad().AsFloat32())

		step := append([]float32(nil), v...)
		vecf32.Scale(step, float32(-s.lr))
		vecf32.Add(param.Tensor().AsFloat32(), step)
	case tensor.Float64:
		v := velocity.AsFloat64()
		vecf64.Scale(v, s.momentum)
		vecf64.Add(v, param.Grad().AsFloat64())

		step := append([]float64(nil), v...)
		vecf64.Scale(step, -s.lr)
		vecf64.Add(param.Tensor().AsFloat64(), step)
	default:
		panic(fmt.Sprintf("sgd: unsupported dtype %s", param.Tensor().DType()))
	}
}

// ZeroGrad clears the gradient accumulators of all parameters.
func (s *SGD) ZeroGrad() {
	for _, param := range s.params {
		param.ZeroGrad()
	}
}

// LR returns the current learning rate.
func (s *SGD) LR() float64 {
	return s.lr
}

// SetLR updates the learning rate (for scheduling).
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}
