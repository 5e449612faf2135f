package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
)

// Encoder writes rendered images as lossless 8-bit grayscale PNG
type Encoder struct {
	// Compression trades encoding speed for output size; it never affects
	// the decoded pixels.
	Compression png.CompressionLevel
}

// EncodePNG encodes img with default compression
func EncodePNG(img *image.Gray) ([]byte, error) {
	return Encoder{}.Encode(img)
}

// Encode encodes img as a single-channel PNG. Any failure is returned as an
// *EncodingError describing the buffer.
func (e Encoder) Encode(img *image.Gray) ([]byte, error) {
	if img == nil {
		return nil, &EncodingError{Kind: "uint8", Err: errors.New("nil image")}
	}

	enc := &png.Encoder{CompressionLevel: e.Compression}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		lo, hi := pixBounds(img)
		return nil, &EncodingError{
			Rows: img.Rect.Dy(),
			Cols: img.Rect.Dx(),
			Kind: "uint8",
			Min:  lo,
			Max:  hi,
			Err:  err,
		}
	}

	return buf.Bytes(), nil
}

// RenderPNG renders m and encodes the result with default compression
func RenderPNG(m Matrix, w *Window, p Polarity) ([]byte, error) {
	img, err := Render(m, w, p)
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}

// ParseCompression maps a configuration name to a PNG compression level.
// An empty name selects the default level.
func ParseCompression(name string) (png.CompressionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "fast", "speed":
		return png.BestSpeed, nil
	case "best", "size":
		return png.BestCompression, nil
	default:
		return png.DefaultCompression, fmt.Errorf("unknown png compression %q (want default, none, fast or best)", name)
	}
}

// pixBounds returns the smallest and largest samples in the visible area
func pixBounds(img *image.Gray) (lo, hi uint8) {
	b := img.Rect
	first := true
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := img.GrayAt(x, y).Y
			if first {
				lo, hi, first = v, v, false
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi
}
