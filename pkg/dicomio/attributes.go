package dicomio

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"dicomrender/internal/models"
)

// readMeta collects the display metadata of ds
func readMeta(ds *dicom.Dataset, logger *log.Logger) (models.DicomMeta, error) {
	meta := models.DicomMeta{
		PatientID:                 stringOr(ds, tag.PatientID, "N/A"),
		StudyDate:                 stringOr(ds, tag.StudyDate, ""),
		Modality:                  stringOr(ds, tag.Modality, "N/A"),
		PhotometricInterpretation: stringOr(ds, tag.PhotometricInterpretation, ""),
		PixelSpacing:              pixelSpacing(ds, logger),
	}

	meta.WindowCenter = optionalFloat(ds, tag.WindowCenter, "WindowCenter", logger)
	meta.WindowWidth = optionalFloat(ds, tag.WindowWidth, "WindowWidth", logger)

	rows, rowsOK := firstInt(ds, tag.Rows)
	cols, colsOK := firstInt(ds, tag.Columns)
	if !rowsOK || !colsOK || rows <= 0 || cols <= 0 {
		return meta, fmt.Errorf("%w: rows=%d columns=%d", ErrInvalidDimensions, rows, cols)
	}
	meta.Rows = rows
	meta.Columns = cols

	return meta, nil
}

// stringsOf returns the textual values of the element for t
func stringsOf(ds *dicom.Dataset, t tag.Tag) []string {
	elem := findElement(ds, t)
	if elem == nil || elem.Value == nil {
		return nil
	}

	switch v := elem.Value.GetValue().(type) {
	case []string:
		return v
	case []int:
		out := make([]string, len(v))
		for i, n := range v {
			out[i] = strconv.Itoa(n)
		}
		return out
	case []float64:
		out := make([]string, len(v))
		for i, f := range v {
			out[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return out
	}
	return nil
}

// stringOr returns the first value of t, or def when it is absent or blank
func stringOr(ds *dicom.Dataset, t tag.Tag, def string) string {
	values := stringsOf(ds, t)
	if len(values) == 0 {
		return def
	}
	s := strings.TrimSpace(strings.TrimRight(values[0], "\x00"))
	if s == "" {
		return def
	}
	return s
}

// floatsOf parses every value of t as a float. ok is false when the element
// is absent, empty, or any value fails to parse.
func floatsOf(ds *dicom.Dataset, t tag.Tag) (values []float64, ok bool, err error) {
	raw := stringsOf(ds, t)
	if len(raw) == 0 {
		return nil, false, nil
	}

	values = make([]float64, 0, len(raw))
	for _, s := range raw {
		// Some writers pack multiple DS values into one backslash-joined string
		for _, part := range strings.Split(s, "\\") {
			part = strings.TrimSpace(strings.TrimRight(part, "\x00"))
			if part == "" {
				continue
			}
			f, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, false, fmt.Errorf("parsing %q: %w", part, err)
			}
			values = append(values, f)
		}
	}

	return values, len(values) > 0, nil
}

// optionalFloat returns the first value of t, or nil when it is absent or
// cannot be parsed
func optionalFloat(ds *dicom.Dataset, t tag.Tag, name string, logger *log.Logger) *float64 {
	values, ok, err := floatsOf(ds, t)
	if err != nil {
		logger.Printf("Warning: could not parse %s: %v, treating as absent", name, err)
		return nil
	}
	if !ok {
		return nil
	}
	v := values[0]
	return &v
}

// floatOr returns the first value of t, or def when it is absent or invalid
func floatOr(ds *dicom.Dataset, t tag.Tag, def float64) float64 {
	values, ok, err := floatsOf(ds, t)
	if err != nil || !ok {
		return def
	}
	return values[0]
}

// firstInt returns the first value of t as an integer
func firstInt(ds *dicom.Dataset, t tag.Tag) (int, bool) {
	values, ok, err := floatsOf(ds, t)
	if err != nil || !ok {
		return 0, false
	}
	return int(values[0]), true
}

// pixelSpacing returns the first two PixelSpacing values, duplicating a lone
// value and defaulting to [1, 1]
func pixelSpacing(ds *dicom.Dataset, logger *log.Logger) []float64 {
	values, ok, err := floatsOf(ds, tag.PixelSpacing)
	if err != nil {
		logger.Printf("Warning: could not parse PixelSpacing: %v, defaulting to [1 1]", err)
		return []float64{1, 1}
	}

	switch {
	case !ok:
		return []float64{1, 1}
	case len(values) == 1:
		return []float64{values[0], values[0]}
	default:
		return []float64{values[0], values[1]}
	}
}
