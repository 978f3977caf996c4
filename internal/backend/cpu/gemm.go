package cpu

import (
	"gonum.org/v1/gonum/blas"
	blasimpl "gonum.org/v1/gonum/blas/gonum"

	"github.com/deconv-ml/deconv/internal/tensor"
)

// impl is the pure-Go gonum BLAS implementation. Row-major storage
// throughout, matching the tensor layout.
var impl blasimpl.Implementation

// gemm computes C = alpha*op(A)*op(B) + beta*C for row-major matrices,
// where op(A) is m×k, op(B) is k×n and C is m×n. The leading dimensions
// are the row strides of the stored (untransposed) matrices.
func gemm[T tensor.Float](tA, tB blas.Transpose, m, n, k int, alpha T, a []T, lda int, b []T, ldb int, beta T, c []T, ldc int) {
	switch av := any(a).(type) {
	case []float32:
		impl.Sgemm(tA, tB, m, n, k,
			any(alpha).(float32), av, lda,
			any(b).([]float32), ldb,
			any(beta).(float32), any(c).([]float32), ldc)
	case []float64:
		impl.Dgemm(tA, tB, m, n, k,
			any(alpha).(float64), any(a).([]float64), lda,
			any(b).([]float64), ldb,
			any(beta).(float64), any(c).([]float64), ldc)
	}
}

// gemv computes y = alpha*op(A)*x + beta*y for a row-major m×n matrix A.
func gemv[T tensor.Float](tA blas.Transpose, m, n int, alpha T, a []T, lda int, x []T, incX int, beta T, y []T, incY int) {
	switch av := any(a).(type) {
	case []float32:
		impl.Sgemv(tA, m, n,
			any(alpha).(float32), av, lda,
			any(x).([]float32), incX,
			any(beta).(float32), any(y).([]float32), incY)
	case []float64:
		impl.Dgemv(tA, m, n,
			any(alpha).(float64), any(a).([]float64), lda,
			any(x).([]float64), incX,
			any(beta).(float64), any(y).([]float64), incY)
	}
}
