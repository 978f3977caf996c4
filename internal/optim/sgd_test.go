package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deconv-ml/deconv/internal/nn"
	"github.com/deconv-ml/deconv/internal/tensor"
)

func makeParam(t *testing.T, dtype tensor.DataType, values, grads []float64) *nn.Parameter {
	t.Helper()
	w := tensor.MustNewRaw(tensor.Shape{len(values)}, dtype)
	p := nn.NewParameter("test.weight", w)

	switch dtype {
	case tensor.Float32:
		wd, gd := w.AsFloat32(), p.Grad().AsFloat32()
		for i := range values {
			wd[i] = float32(values[i])
			gd[i] = float32(grads[i])
		}
	case tensor.Float64:
		copy(w.AsFloat64(), values)
		copy(p.Grad().AsFloat64(), grads)
	}
	return p
}

func TestSGD_Step(t *testing.T) {
	p := makeParam(t, tensor.Float64, []float64{1, 2, 3}, []float64{10, 20, 30})
	sgd := NewSGD([]*nn.Parameter{p}, SGDConfig{LR: 0.1})

	sgd.Step()

	assert.InDeltaSlice(t, []float64{0, 0, 0}, p.Tensor().AsFloat64(), 1e-12)
}

func TestSGD_DefaultLR(t *testing.T) {
	p := makeParam(t, tensor.Float64, []float64{1}, []float64{1})
	sgd := NewSGD([]*nn.Parameter{p}, SGDConfig{})

	assert.Equal(t, 0.01, sgd.LR())
	sgd.Step()
	assert.InDelta(t, 0.99, p.Tensor().AsFloat64()[0], 1e-12)
}

func TestSGD_Momentum(t *testing.T) {
	p := makeParam(t, tensor.Float64, []float64{0}, []float64{1})
	sgd := NewSGD([]*nn.Parameter{p}, SGDConfig{LR: 1, Momentum: 0.5})

	// Step 1: velocity = 1, param = -1.
	sgd.Step()
	assert.InDelta(t, -1, p.Tensor().AsFloat64()[0], 1e-12)

	// Step 2 with the same gradient: velocity = 0.5 + 1 = 1.5, param = -2.5.
	sgd.Step()
	assert.InDelta(t, -2.5, p.Tensor().AsFloat64()[0], 1e-12)
}

func TestSGD_MomentumFloat32(t *testing.T) {
	p := makeParam(t, tensor.Float32, []float64{0}, []float64{2})
	sgd := NewSGD([]*nn.Parameter{p}, SGDConfig{LR: 0.5, Momentum: 0.9})

	sgd.Step()
	assert.InDelta(t, -1, float64(p.Tensor().AsFloat32()[0]), 1e-6)
}

func TestSGD_ZeroGrad(t *testing.T) {
	p := makeParam(t, tensor.Float64, []float64{1, 2}, []float64{3, 4})
	sgd := NewSGD([]*nn.Parameter{p}, SGDConfig{LR: 0.1})

	sgd.ZeroGrad()
	assert.Equal(t, []float64{0, 0}, p.Grad().AsFloat64())

	sgd.Step()
	assert.Equal(t, []float64{1, 2}, p.Tensor().AsFloat64())
}

func TestSGD_SetLR(t *testing.T) {
	p := makeParam(t, tensor.Float64, []float64{1}, []float64{1})
	sgd := NewSGD([]*nn.Parameter{p}, SGDConfig{LR: 0.1})

	sgd.SetLR(0.2)
	assert.Equal(t, 0.2, sgd.LR())
	sgd.Step()
	assert.InDelta(t, 0.8, p.Tensor().AsFloat64()[0], 1e-12)
}
