// Package render converts decoded radiograph pixel data into displayable
// 8-bit grayscale images.
//
// The renderer applies either a linear window (center/width) or a min-max
// auto-contrast stretch, then corrects for photometric polarity and encodes
// the result as a lossless grayscale PNG. Every function in this package is
// pure: it holds no shared state and is safe to call from many goroutines.
package render

import (
	"fmt"
)

// Number is the set of sample types a Matrix can be built from
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Matrix is one grayscale frame of samples in native intensity units
// (rescale slope and intercept already applied).
//
// Samples are stored row-major as float64 so that later subtraction and
// scaling can never overflow the original integer type. A frame with an
// explicit single-channel axis has shape (rows, cols, 1) and is squeezed
// to (rows, cols) when rendered.
type Matrix struct {
	data  []float64
	shape []int

	// kind is the name of the original sample type, kept for diagnostics
	kind string
}

// NewMatrix builds a Matrix from row-major samples of any numeric type.
// The samples are copied; the caller may reuse data afterwards.
func NewMatrix[T Number](data []T, shape ...int) Matrix {
	buf := make([]float64, len(data))
	for i, v := range data {
		buf[i] = float64(v)
	}

	var zero T
	return Matrix{
		data:  buf,
		shape: append([]int(nil), shape...),
		kind:  fmt.Sprintf("%T", zero),
	}
}

// FromRows builds a 2-D Matrix from a slice of rows. Ragged input produces
// a Matrix that Render rejects with a ShapeError.
func FromRows[T Number](rows [][]T) Matrix {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}

	flat := make([]T, 0, len(rows)*cols)
	for _, row := range rows {
		flat = append(flat, row...)
	}

	return NewMatrix(flat, len(rows), cols)
}

// Shape returns a copy of the matrix dimensions
func (m Matrix) Shape() []int {
	return append([]int(nil), m.shape...)
}

// Kind returns the name of the sample type the matrix was built from
func (m Matrix) Kind() string {
	return m.kind
}

// Len returns the number of samples held by the matrix
func (m Matrix) Len() int {
	return len(m.data)
}

// squeeze reduces the matrix to two dimensions, dropping a trailing
// singleton channel axis. Anything else that is not 2-D is rejected.
func (m Matrix) squeeze() (rows, cols int, err error) {
	shape := m.shape
	if len(shape) == 3 && shape[2] == 1 {
		shape = shape[:2]
	}

	if len(shape) != 2 {
		return 0, 0, &ShapeError{
			Shape:  m.Shape(),
			Reason: "expected a 2-D grayscale frame",
		}
	}

	if shape[0] <= 0 || shape[1] <= 0 {
		return 0, 0, &ShapeError{
			Shape:  m.Shape(),
			Reason: "matrix is empty",
		}
	}

	if shape[0]*shape[1] != len(m.data) {
		return 0, 0, &ShapeError{
			Shape:  m.Shape(),
			Reason: fmt.Sprintf("shape holds %d samples but %d were supplied", shape[0]*shape[1], len(m.data)),
		}
	}

	return shape[0], shape[1], nil
}
