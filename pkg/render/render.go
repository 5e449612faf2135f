package render

import (
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	displayMax = 255.0

	// flatPositive is the uniform value for a flat image with positive samples
	flatPositive = 128.0
)

// Render tone-maps a pixel matrix into an 8-bit grayscale image.
//
// When w is usable the windowed branch is applied: the sample Lower() maps
// to 0, Upper() maps to 255, and values outside saturate. Otherwise the
// matrix is min-max stretched over the full display range. A flat matrix
// renders uniformly as 128 when its value is positive and 0 otherwise.
// Inverted polarity is applied last, as 255-v.
//
// Non-finite samples never fail the call: NaN renders as 0, +Inf as 255 and
// -Inf as 0 (before polarity), and they are ignored when computing the
// auto-contrast range.
//
// The returned image has the squeezed shape of m. Render returns a
// *ShapeError when m is not reducible to a 2-D frame.
func Render(m Matrix, w *Window, p Polarity) (*image.Gray, error) {
	rows, cols, err := m.squeeze()
	if err != nil {
		return nil, err
	}

	// Work on a private copy so the caller's matrix is never touched
	work := mat.NewDense(rows, cols, append([]float64(nil), m.data...))

	if w.Usable() {
		applyWindow(work, *w)
	} else {
		autoContrast(work)
	}

	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := uint8(work.At(y, x))
			if p == Inverted {
				v = 255 - v
			}
			img.Pix[y*img.Stride+x] = v
		}
	}

	return img, nil
}

// applyWindow maps lower..lower+width linearly onto 0..255 in place
func applyWindow(work *mat.Dense, w Window) {
	lower := w.Lower()
	work.Apply(func(_, _ int, s float64) float64 {
		return toDisplay((s - lower) / w.Width * displayMax)
	}, work)
}

// autoContrast stretches the finite sample range onto 0..255 in place
func autoContrast(work *mat.Dense) {
	lo, hi, ok := finiteBounds(work.RawMatrix().Data)

	if !ok || hi <= lo {
		flat := 0.0
		if ok && lo > 0 {
			flat = flatPositive
		}
		work.Apply(func(_, _ int, s float64) float64 {
			if math.IsNaN(s) || math.IsInf(s, 0) {
				return toDisplay(s)
			}
			return flat
		}, work)
		return
	}

	// Ranges wider than MaxFloat64 are normalised on halved values
	scale := 1.0
	if math.IsInf(hi-lo, 0) {
		scale = 0.5
	}
	lo, span := lo*scale, hi*scale-lo*scale
	work.Apply(func(_, _ int, s float64) float64 {
		return toDisplay((s*scale - lo) / span * displayMax)
	}, work)
}

// finiteBounds returns the minimum and maximum finite values in data.
// ok is false when data holds no finite value.
func finiteBounds(data []float64) (lo, hi float64, ok bool) {
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, ok
}

// toDisplay clips v to [0,255] and rounds it to the nearest integer level.
// NaN maps to 0.
func toDisplay(v float64) float64 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= displayMax:
		return displayMax
	}
	return math.Round(v)
}
