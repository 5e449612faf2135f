package render

import (
	"fmt"
	"math"
	"strings"
)

// Window is a display window: samples in [Center-Width/2, Center+Width/2]
// are stretched linearly over the full 8-bit range.
type Window struct {
	Center float64 `yaml:"center"`
	Width  float64 `yaml:"width"`
}

// Usable reports whether the window can drive tone mapping. A nil window,
// a non-positive width, or non-finite values disable windowing.
func (w *Window) Usable() bool {
	if w == nil {
		return false
	}
	if math.IsNaN(w.Center) || math.IsInf(w.Center, 0) || math.IsInf(w.Width, 0) {
		return false
	}
	return w.Width > 0
}

// Lower returns the sample value that maps to display black
func (w Window) Lower() float64 {
	return w.Center - w.Width/2
}

// Upper returns the sample value that maps to display white
func (w Window) Upper() float64 {
	return w.Center + w.Width/2
}

func (w Window) String() string {
	return fmt.Sprintf("C=%g W=%g", w.Center, w.Width)
}

// Polarity says whether low sample values render dark or light
type Polarity int

const (
	// Normal renders low samples dark (MONOCHROME2)
	Normal Polarity = iota

	// Inverted renders low samples light (MONOCHROME1)
	Inverted
)

func (p Polarity) String() string {
	switch p {
	case Normal:
		return "normal"
	case Inverted:
		return "inverted"
	default:
		return fmt.Sprintf("Polarity(%d)", int(p))
	}
}

// PolarityFromPhotometric maps a Photometric Interpretation value to a
// Polarity. Only MONOCHROME1 is inverted; every other value, including an
// absent one, is Normal.
func PolarityFromPhotometric(value string) Polarity {
	if strings.EqualFold(strings.TrimSpace(value), "MONOCHROME1") {
		return Inverted
	}
	return Normal
}
