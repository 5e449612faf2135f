// Package dicomio decodes DICOM objects into the inputs of the pixel
// renderer: a rescaled sample matrix, an optional display window, the
// photometric polarity, and display metadata.
package dicomio

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"dicomrender/internal/models"
	"dicomrender/pkg/render"
)

var (
	// ErrParse is returned when the input is not a readable DICOM stream
	ErrParse = errors.New("dicomio: cannot parse DICOM data")

	// ErrNoPixelData is returned when the object carries no Pixel Data element
	ErrNoPixelData = errors.New("dicomio: no pixel data")

	// ErrUnsupportedPixelData is returned for encapsulated (compressed) frames
	ErrUnsupportedPixelData = errors.New("dicomio: unsupported pixel data encoding")

	// ErrInvalidDimensions is returned when Rows or Columns are not positive
	ErrInvalidDimensions = errors.New("dicomio: invalid image dimensions")
)

// Frame is one decoded frame ready for rendering
type Frame struct {
	// Pixels has shape (rows, cols, samplesPerPixel) with rescale applied
	Pixels render.Matrix

	// Window is nil unless both center and width were present and parsed
	Window *render.Window

	Polarity render.Polarity

	Meta models.DicomMeta
}

// Option configures decoding
type Option func(*options)

type options struct {
	frame  int
	logger *log.Logger
}

// WithFrame selects which frame of a multi-frame object to decode
func WithFrame(index int) Option {
	return func(o *options) {
		o.frame = index
	}
}

// WithLogger sets the logger used for attribute warnings
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	return o
}

// DecodeFile decodes the DICOM file at path
func DecodeFile(path string, opts ...Option) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	return Decode(f, info.Size(), opts...)
}

// Decode reads size bytes of DICOM data from r and decodes one frame
func Decode(r io.Reader, size int64, opts ...Option) (*Frame, error) {
	o := buildOptions(opts)

	ds, err := dicom.Parse(r, size, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return fromDataset(&ds, o)
}

// fromDataset assembles a Frame from a parsed dataset
func fromDataset(ds *dicom.Dataset, o options) (*Frame, error) {
	meta, err := readMeta(ds, o.logger)
	if err != nil {
		return nil, err
	}

	pixels, err := readPixels(ds, o.frame)
	if err != nil {
		return nil, err
	}

	return &Frame{
		Pixels:   pixels,
		Window:   resolveWindow(meta, o.logger),
		Polarity: render.PolarityFromPhotometric(meta.PhotometricInterpretation),
		Meta:     meta,
	}, nil
}

// resolveWindow returns a window only when both attributes are present.
// A lone center or width is dropped so the frame falls back to auto-contrast.
func resolveWindow(meta models.DicomMeta, logger *log.Logger) *render.Window {
	switch {
	case meta.WindowCenter != nil && meta.WindowWidth != nil:
		return &render.Window{Center: *meta.WindowCenter, Width: *meta.WindowWidth}
	case meta.WindowCenter != nil:
		logger.Printf("Warning: WindowCenter %g present without WindowWidth, ignoring window", *meta.WindowCenter)
	case meta.WindowWidth != nil:
		logger.Printf("Warning: WindowWidth %g present without WindowCenter, ignoring window", *meta.WindowWidth)
	}
	return nil
}

// findElement returns the element for t, or nil when it is absent
func findElement(ds *dicom.Dataset, t tag.Tag) *dicom.Element {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return nil
	}
	return elem
}
