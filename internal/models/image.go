package models

import (
	"dicomrender/pkg/render"
)

// DicomMeta holds the display-relevant acquisition metadata read from a
// DICOM object
type DicomMeta struct {
	// PatientID is "N/A" when the attribute is missing
	PatientID string `yaml:"patientId"`

	// StudyDate is kept in its DICOM DA form (YYYYMMDD)
	StudyDate string `yaml:"studyDate"`

	// Modality is "N/A" when the attribute is missing
	Modality string `yaml:"modality"`

	// PixelSpacing is the physical row and column spacing in mm.
	// It always has two entries and defaults to [1, 1].
	PixelSpacing []float64 `yaml:"pixelSpacing,flow"`

	// WindowCenter and WindowWidth are the first values of the stored
	// attributes, or nil when absent or unparsable
	WindowCenter *float64 `yaml:"windowCenter,omitempty"`
	WindowWidth  *float64 `yaml:"windowWidth,omitempty"`

	// Rows and Columns are the frame dimensions in pixels
	Rows    int `yaml:"rows"`
	Columns int `yaml:"columns"`

	// PhotometricInterpretation is the raw attribute value
	PhotometricInterpretation string `yaml:"photometricInterpretation,omitempty"`
}

// ImagePayload is one rendered image ready for transport
type ImagePayload struct {
	// ID identifies the payload in a store
	ID string `yaml:"id"`

	// Source is the path the image was decoded from
	Source string `yaml:"source"`

	// PNGData is the rendered image, base64 encoded
	PNGData string `yaml:"-"`

	// Meta is the metadata of the source object
	Meta DicomMeta `yaml:"meta"`

	// Window is the window the image was rendered with, nil for auto-contrast
	Window *render.Window `yaml:"window,omitempty"`

	// Stats describes the rendered display levels
	Stats render.Stats `yaml:"stats"`
}
