package render

import (
	"fmt"
)

// ShapeError reports a pixel matrix that cannot be reduced to a single 2-D
// grayscale frame, such as multi-channel colour data.
type ShapeError struct {
	// Shape is the shape of the rejected matrix
	Shape []int

	// Reason describes what is wrong with the shape
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("render: invalid pixel matrix shape %v: %s", e.Shape, e.Reason)
}

// EncodingError reports a tone-mapped buffer that could not be encoded.
// It carries enough context to diagnose the failure without re-running.
type EncodingError struct {
	Rows, Cols int

	// Kind is the sample type of the buffer handed to the encoder
	Kind string

	// Min and Max are the sample bounds of the buffer
	Min, Max uint8

	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("render: encoding %dx%d %s image (min=%d, max=%d): %v",
		e.Rows, e.Cols, e.Kind, e.Min, e.Max, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}
