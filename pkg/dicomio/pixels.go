package dicomio

import (
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"dicomrender/pkg/render"
)

// readPixels extracts frame index of ds as a rescaled sample matrix
func readPixels(ds *dicom.Dataset, index int) (render.Matrix, error) {
	elem := findElement(ds, tag.PixelData)
	if elem == nil || elem.Value == nil {
		return render.Matrix{}, ErrNoPixelData
	}

	info, ok := elem.Value.GetValue().(dicom.PixelDataInfo)
	if !ok {
		return render.Matrix{}, fmt.Errorf("%w: unexpected value type %v", ErrNoPixelData, elem.Value.ValueType())
	}

	if index < 0 || index >= len(info.Frames) {
		return render.Matrix{}, fmt.Errorf("%w: frame %d requested, object has %d", ErrNoPixelData, index, len(info.Frames))
	}

	fr := info.Frames[index]
	if fr.Encapsulated {
		return render.Matrix{}, fmt.Errorf("%w: frame %d is encapsulated", ErrUnsupportedPixelData, index)
	}

	nf := fr.NativeData
	signed := floatOr(ds, tag.PixelRepresentation, 0) == 1
	r := rescale{
		slope:     floatOr(ds, tag.RescaleSlope, 1),
		intercept: floatOr(ds, tag.RescaleIntercept, 0),
	}
	if r.slope == 0 {
		// A zero slope would flatten every frame; treat it as missing
		r.slope = 1
	}

	return nativeToMatrix(nf.Data, nf.Rows, nf.Cols, nf.BitsPerSample, signed, r)
}

// rescale maps stored values to native intensity units
type rescale struct {
	slope, intercept float64
}

func (r rescale) apply(v float64) float64 {
	return v*r.slope + r.intercept
}

// nativeToMatrix converts per-pixel sample tuples into a matrix of shape
// (rows, cols, samplesPerPixel). Signed data that arrives as raw unsigned
// words is reinterpreted as two's complement using bits.
func nativeToMatrix(data [][]int, rows, cols, bits int, signed bool, r rescale) (render.Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return render.Matrix{}, fmt.Errorf("%w: frame is %dx%d", ErrInvalidDimensions, rows, cols)
	}
	if len(data) != rows*cols {
		return render.Matrix{}, fmt.Errorf("%w: frame is %dx%d but holds %d pixels", ErrInvalidDimensions, rows, cols, len(data))
	}

	spp := 1
	if len(data) > 0 && len(data[0]) > 0 {
		spp = len(data[0])
	}

	samples := make([]float64, 0, rows*cols*spp)
	for i, px := range data {
		if len(px) != spp {
			return render.Matrix{}, fmt.Errorf("pixel %d has %d samples, expected %d", i, len(px), spp)
		}
		for _, v := range px {
			if signed && bits > 0 && bits < 64 && v >= 1<<(bits-1) {
				v -= 1 << bits
			}
			samples = append(samples, r.apply(float64(v)))
		}
	}

	return render.NewMatrix(samples, rows, cols, spp), nil
}
