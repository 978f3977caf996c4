package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deconv-ml/deconv/internal/tensor"
)

func TestParameter_GradAllocatedZeroed(t *testing.T) {
	w := tensor.MustNewRaw(tensor.Shape{2, 3}, tensor.Float32)
	w.Fill(5)
	p := NewParameter("w", w)

	assert.Equal(t, "w", p.Name())
	require.True(t, p.Grad().Shape().Equal(w.Shape()))
	assert.Equal(t, w.DType(), p.Grad().DType())
	for _, v := range p.Grad().AsFloat32() {
		assert.Zero(t, v)
	}
}

func TestParameter_Update(t *testing.T) {
	w := tensor.MustNewRaw(tensor.Shape{3}, tensor.Float64)
	copy(w.AsFloat64(), []float64{1, 2, 3})
	p := NewParameter("w", w)
	copy(p.Grad().AsFloat64(), []float64{2, 4, 6})

	p.Update(0.5)

	assert.InDeltaSlice(t, []float64{0, 0, 0}, w.AsFloat64(), 1e-12)

	// The gradient is untouched; a second update steps again.
	p.Update(0.5)
	assert.InDeltaSlice(t, []float64{-1, -2, -3}, w.AsFloat64(), 1e-12)
}

func TestParameter_ZeroGrad(t *testing.T) {
	w := tensor.MustNewRaw(tensor.Shape{2}, tensor.Float32)
	w.Fill(1)
	p := NewParameter("w", w)
	p.Grad().Fill(7)

	p.ZeroGrad()

	assert.Equal(t, []float32{0, 0}, p.Grad().AsFloat32())
	assert.Equal(t, []float32{1, 1}, w.AsFloat32())
}
