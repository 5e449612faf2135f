package render

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Stats summarises the display levels of a rendered image
type Stats struct {
	Mean    float64 `yaml:"mean"`
	StdDev  float64 `yaml:"stdDev"`
	Min     uint8   `yaml:"min"`
	Max     uint8   `yaml:"max"`
	Entropy float64 `yaml:"entropy"`
}

// Summarize computes level statistics over the visible area of img.
// Entropy is the Shannon entropy in bits of the 256-level histogram.
func Summarize(img *image.Gray) Stats {
	if img == nil || img.Rect.Empty() {
		return Stats{}
	}

	b := img.Rect
	levels := make([]float64, 0, b.Dx()*b.Dy())
	var hist [256]int

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := img.GrayAt(x, y).Y
			levels = append(levels, float64(v))
			hist[v]++
		}
	}

	mean, std := stat.PopMeanStdDev(levels, nil)
	lo, hi := pixBounds(img)

	entropy := 0.0
	n := float64(len(levels))
	for _, count := range hist {
		if count > 0 {
			p := float64(count) / n
			entropy -= p * math.Log2(p)
		}
	}

	return Stats{
		Mean:    mean,
		StdDev:  std,
		Min:     lo,
		Max:     hi,
		Entropy: entropy,
	}
}
