package render

import (
	"image"
	"math"
	"testing"
)

// TestSummarize checks statistics of a two-level image
func TestSummarize(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	copy(img.Pix, []uint8{0, 255, 0, 255})

	s := Summarize(img)
	if s.Min != 0 || s.Max != 255 {
		t.Errorf("Expected bounds 0..255, got %d..%d", s.Min, s.Max)
	}
	if math.Abs(s.Mean-127.5) > 1e-9 {
		t.Errorf("Expected mean 127.5, got %f", s.Mean)
	}
	if math.Abs(s.StdDev-127.5) > 1e-9 {
		t.Errorf("Expected population std dev 127.5, got %f", s.StdDev)
	}
	if math.Abs(s.Entropy-1) > 1e-9 {
		t.Errorf("Expected entropy of 1 bit, got %f", s.Entropy)
	}
}

// TestSummarizeFlat checks a uniform image has zero spread and entropy
func TestSummarizeFlat(t *testing.T) {
	img, err := Render(NewMatrix([]int{50, 50, 50}, 1, 3), nil, Normal)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	s := Summarize(img)
	if s.Mean != 128 || s.StdDev != 0 || s.Entropy != 0 {
		t.Errorf("Unexpected stats for flat image: %+v", s)
	}

	if (Summarize(nil) != Stats{}) {
		t.Error("Expected zero stats for nil image")
	}
}
