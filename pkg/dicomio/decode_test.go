package dicomio

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
	"github.com/suyashkumar/dicom/pkg/uid"

	"dicomrender/pkg/render"
)

// newDataset builds an in-memory dataset from tag/value pairs
func newDataset(t *testing.T, values map[tag.Tag]interface{}) *dicom.Dataset {
	t.Helper()

	ds := &dicom.Dataset{}
	for tg, v := range values {
		elem, err := dicom.NewElement(tg, v)
		if err != nil {
			t.Fatalf("Failed to create element %v: %v", tg, err)
		}
		ds.Elements = append(ds.Elements, elem)
	}
	return ds
}

// bufferLogger returns a logger writing into a buffer for inspection
func bufferLogger() (*log.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return log.New(&buf, "", 0), &buf
}

// TestReadMetaDefaults verifies defaults for absent attributes
func TestReadMetaDefaults(t *testing.T) {
	ds := newDataset(t, map[tag.Tag]interface{}{
		tag.Rows:    []int{4},
		tag.Columns: []int{3},
	})
	logger, _ := bufferLogger()

	meta, err := readMeta(ds, logger)
	if err != nil {
		t.Fatalf("readMeta failed: %v", err)
	}

	if meta.PatientID != "N/A" || meta.Modality != "N/A" {
		t.Errorf("Expected N/A defaults, got patient=%q modality=%q", meta.PatientID, meta.Modality)
	}
	if meta.StudyDate != "" {
		t.Errorf("Expected empty study date, got %q", meta.StudyDate)
	}
	if len(meta.PixelSpacing) != 2 || meta.PixelSpacing[0] != 1 || meta.PixelSpacing[1] != 1 {
		t.Errorf("Expected default pixel spacing [1 1], got %v", meta.PixelSpacing)
	}
	if meta.WindowCenter != nil || meta.WindowWidth != nil {
		t.Error("Expected no window attributes")
	}
	if meta.Rows != 4 || meta.Columns != 3 {
		t.Errorf("Expected 4x3, got %dx%d", meta.Rows, meta.Columns)
	}
}

// TestReadMetaValues verifies list-valued attributes resolve to their first value
func TestReadMetaValues(t *testing.T) {
	ds := newDataset(t, map[tag.Tag]interface{}{
		tag.Rows:                      []int{512},
		tag.Columns:                   []int{256},
		tag.PatientID:                 []string{"PAT-001"},
		tag.StudyDate:                 []string{"20240131"},
		tag.Modality:                  []string{"CR"},
		tag.WindowCenter:              []string{"40", "80"},
		tag.WindowWidth:               []string{"400", "800"},
		tag.PixelSpacing:              []string{"0.5"},
		tag.PhotometricInterpretation: []string{"MONOCHROME1"},
	})
	logger, _ := bufferLogger()

	meta, err := readMeta(ds, logger)
	if err != nil {
		t.Fatalf("readMeta failed: %v", err)
	}

	if meta.PatientID != "PAT-001" || meta.StudyDate != "20240131" || meta.Modality != "CR" {
		t.Errorf("Unexpected identifying metadata: %+v", meta)
	}
	if meta.WindowCenter == nil || *meta.WindowCenter != 40 {
		t.Errorf("Expected window center 40, got %v", meta.WindowCenter)
	}
	if meta.WindowWidth == nil || *meta.WindowWidth != 400 {
		t.Errorf("Expected window width 400, got %v", meta.WindowWidth)
	}
	if meta.PixelSpacing[0] != 0.5 || meta.PixelSpacing[1] != 0.5 {
		t.Errorf("Expected a lone spacing value to be duplicated, got %v", meta.PixelSpacing)
	}

	w := resolveWindow(meta, logger)
	if w == nil || w.Center != 40 || w.Width != 400 {
		t.Errorf("Expected window C=40 W=400, got %v", w)
	}
	if render.PolarityFromPhotometric(meta.PhotometricInterpretation) != render.Inverted {
		t.Error("Expected MONOCHROME1 to resolve to inverted polarity")
	}
}

// TestReadMetaInvalidDimensions verifies missing Rows is rejected
func TestReadMetaInvalidDimensions(t *testing.T) {
	ds := newDataset(t, map[tag.Tag]interface{}{
		tag.Columns: []int{3},
	})
	logger, _ := bufferLogger()

	if _, err := readMeta(ds, logger); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Expected ErrInvalidDimensions, got %v", err)
	}
}

// TestPartialWindow verifies a lone center or width disables windowing
func TestPartialWindow(t *testing.T) {
	tests := []struct {
		name   string
		values map[tag.Tag]interface{}
		warn   string
	}{
		{
			name:   "center-only",
			values: map[tag.Tag]interface{}{tag.WindowCenter: []string{"40"}},
			warn:   "without WindowWidth",
		},
		{
			name:   "width-only",
			values: map[tag.Tag]interface{}{tag.WindowWidth: []string{"400"}},
			warn:   "without WindowCenter",
		},
		{
			name: "unparsable-width",
			values: map[tag.Tag]interface{}{
				tag.WindowCenter: []string{"40"},
				tag.WindowWidth:  []string{"wide"},
			},
			warn: "could not parse WindowWidth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.values[tag.Rows] = []int{1}
			tt.values[tag.Columns] = []int{1}
			ds := newDataset(t, tt.values)
			logger, buf := bufferLogger()

			meta, err := readMeta(ds, logger)
			if err != nil {
				t.Fatalf("readMeta failed: %v", err)
			}
			if w := resolveWindow(meta, logger); w != nil {
				t.Errorf("Expected no window, got %v", w)
			}
			if !strings.Contains(buf.String(), tt.warn) {
				t.Errorf("Expected warning containing %q, got %q", tt.warn, buf.String())
			}
		})
	}
}

// TestNativeToMatrix verifies rescale and signed reinterpretation
func TestNativeToMatrix(t *testing.T) {
	data := [][]int{{0}, {1}, {65535}, {32768}}

	m, err := nativeToMatrix(data, 2, 2, 16, true, rescale{slope: 2, intercept: -1})
	if err != nil {
		t.Fatalf("nativeToMatrix failed: %v", err)
	}

	shape := m.Shape()
	if len(shape) != 3 || shape[0] != 2 || shape[1] != 2 || shape[2] != 1 {
		t.Fatalf("Expected shape [2 2 1], got %v", shape)
	}

	// Stored 0, 1, 65535, 32768 become -1, 1, -3, -65537 after rescale.
	// Two narrow windows pin down each value's position.
	tests := []struct {
		w    render.Window
		want []uint8
	}{
		{render.Window{Center: 0, Width: 2}, []uint8{0, 255, 0, 0}},
		{render.Window{Center: -2, Width: 2}, []uint8{255, 255, 0, 0}},
	}

	for _, tt := range tests {
		w := tt.w
		img, err := render.Render(m, &w, render.Normal)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		got := []uint8{img.GrayAt(0, 0).Y, img.GrayAt(1, 0).Y, img.GrayAt(0, 1).Y, img.GrayAt(1, 1).Y}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("Window %v pixel %d: expected %d, got %d", w, i, tt.want[i], got[i])
			}
		}
	}
}

// TestNativeToMatrixErrors covers malformed native frames
func TestNativeToMatrixErrors(t *testing.T) {
	identity := rescale{slope: 1}

	if _, err := nativeToMatrix([][]int{{1}}, 0, 1, 16, false, identity); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Expected ErrInvalidDimensions for zero rows, got %v", err)
	}
	if _, err := nativeToMatrix([][]int{{1}, {2}}, 2, 2, 16, false, identity); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Expected ErrInvalidDimensions for short frame, got %v", err)
	}
	if _, err := nativeToMatrix([][]int{{1, 2, 3}, {4}}, 1, 2, 8, false, identity); err == nil {
		t.Error("Expected error for inconsistent samples per pixel")
	}
}

// TestColourFrameRejected verifies RGB frames reach the renderer as 3-D and fail
func TestColourFrameRejected(t *testing.T) {
	m, err := nativeToMatrix([][]int{{1, 2, 3}, {4, 5, 6}}, 1, 2, 8, false, rescale{slope: 1})
	if err != nil {
		t.Fatalf("nativeToMatrix failed: %v", err)
	}

	_, err = render.Render(m, nil, render.Normal)
	var shapeErr *render.ShapeError
	if !errors.As(err, &shapeErr) {
		t.Errorf("Expected *render.ShapeError, got %v", err)
	}
}

// TestFromDatasetNoPixelData verifies objects without pixels are rejected
func TestFromDatasetNoPixelData(t *testing.T) {
	ds := newDataset(t, map[tag.Tag]interface{}{
		tag.Rows:    []int{2},
		tag.Columns: []int{2},
	})
	logger, _ := bufferLogger()

	_, err := fromDataset(ds, options{logger: logger})
	if !errors.Is(err, ErrNoPixelData) {
		t.Errorf("Expected ErrNoPixelData, got %v", err)
	}
}

// TestDecodeGarbage verifies truncated non-DICOM input fails
func TestDecodeGarbage(t *testing.T) {
	garbage := []byte("not dicom")

	if _, err := Decode(bytes.NewReader(garbage), int64(len(garbage))); err == nil {
		t.Error("Expected error for non-DICOM input")
	}
}

// TestDecodeFileMissing verifies a missing file surfaces the open error
func TestDecodeFileMissing(t *testing.T) {
	if _, err := DecodeFile("does-not-exist.dcm"); err == nil {
		t.Error("Expected error for missing file")
	}
}

// element is one tag/value pair of an encoded test object
type element struct {
	tag   tag.Tag
	value interface{}
}

// nativeFrame wraps 16-bit single-sample pixel values as a native frame
func nativeFrame(rows, cols int, values ...int) *frame.Frame {
	data := make([][]int, len(values))
	for i, v := range values {
		data[i] = []int{v}
	}
	return &frame.Frame{
		NativeData: frame.NativeFrame{
			BitsPerSample: 16,
			Rows:          rows,
			Cols:          cols,
			Data:          data,
		},
	}
}

// encodeDataset writes a 2x2 Implicit VR Little Endian object holding frames,
// preceded by extra attributes, and returns the encoded bytes
func encodeDataset(t *testing.T, extra []element, frames ...*frame.Frame) []byte {
	t.Helper()

	elems := []element{
		{tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.1"}},
		{tag.MediaStorageSOPInstanceUID, []string{"1.2.3.4.5.6.7"}},
		{tag.TransferSyntaxUID, []string{uid.ImplicitVRLittleEndian}},
	}
	elems = append(elems, extra...)
	elems = append(elems,
		element{tag.SamplesPerPixel, []int{1}},
		element{tag.NumberOfFrames, []string{strconv.Itoa(len(frames))}},
		element{tag.Rows, []int{2}},
		element{tag.Columns, []int{2}},
		element{tag.BitsAllocated, []int{16}},
		element{tag.PixelData, dicom.PixelDataInfo{Frames: frames}},
	)

	ds := dicom.Dataset{}
	for _, e := range elems {
		elem, err := dicom.NewElement(e.tag, e.value)
		if err != nil {
			t.Fatalf("Failed to create element %v: %v", e.tag, err)
		}
		ds.Elements = append(ds.Elements, elem)
	}
	sort.Slice(ds.Elements, func(i, j int) bool {
		a, b := ds.Elements[i].Tag, ds.Elements[j].Tag
		return a.Group < b.Group || (a.Group == b.Group && a.Element < b.Element)
	})

	var buf bytes.Buffer
	if err := dicom.Write(&buf, ds); err != nil {
		t.Fatalf("Failed to write dataset: %v", err)
	}
	return buf.Bytes()
}

// TestDecodeRoundTrip writes a signed, rescaled MONOCHROME1 object and
// decodes it back from disk
func TestDecodeRoundTrip(t *testing.T) {
	data := encodeDataset(t, []element{
		{tag.Modality, []string{"CT"}},
		{tag.PatientID, []string{"PAT-002"}},
		{tag.PhotometricInterpretation, []string{"MONOCHROME1"}},
		{tag.PixelSpacing, []string{"0.5", "0.25"}},
		{tag.PixelRepresentation, []int{1}},
		{tag.WindowCenter, []string{"200", "300"}},
		{tag.WindowWidth, []string{"400", "500"}},
		{tag.RescaleIntercept, []string{"-10"}},
		{tag.RescaleSlope, []string{"2"}},
	}, nativeFrame(2, 2, 0, 100, 200, 65535))

	path := filepath.Join(t.TempDir(), "roundtrip.dcm")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	logger, _ := bufferLogger()

	fr, err := DecodeFile(path, WithLogger(logger))
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}

	shape := fr.Pixels.Shape()
	if len(shape) != 3 || shape[0] != 2 || shape[1] != 2 || shape[2] != 1 {
		t.Errorf("Expected shape [2 2 1], got %v", shape)
	}
	if fr.Window == nil || fr.Window.Center != 200 || fr.Window.Width != 400 {
		t.Errorf("Expected window C=200 W=400, got %v", fr.Window)
	}
	if fr.Polarity != render.Inverted {
		t.Errorf("Expected inverted polarity, got %v", fr.Polarity)
	}
	if fr.Meta.Modality != "CT" || fr.Meta.PatientID != "PAT-002" {
		t.Errorf("Unexpected metadata: %+v", fr.Meta)
	}
	if fr.Meta.PixelSpacing[0] != 0.5 || fr.Meta.PixelSpacing[1] != 0.25 {
		t.Errorf("Expected pixel spacing [0.5 0.25], got %v", fr.Meta.PixelSpacing)
	}

	// Stored 0, 100, 200, 65535 become -10, 190, 390, -12: the last word is
	// signed and every value is rescaled. Auto-contrast over -12..390 pins
	// each one down.
	img, err := render.Render(fr.Pixels, nil, render.Normal)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	got := []uint8{img.GrayAt(0, 0).Y, img.GrayAt(1, 0).Y, img.GrayAt(0, 1).Y, img.GrayAt(1, 1).Y}
	want := []uint8{1, 128, 255, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Pixel %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

// TestDecodeFrameSelection verifies WithFrame picks a frame and rejects
// indices past the end
func TestDecodeFrameSelection(t *testing.T) {
	data := encodeDataset(t, nil,
		nativeFrame(2, 2, 0, 0, 0, 0),
		nativeFrame(2, 2, 0, 10, 20, 30))
	logger, _ := bufferLogger()

	fr, err := Decode(bytes.NewReader(data), int64(len(data)), WithFrame(1), WithLogger(logger))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	img, err := render.Render(fr.Pixels, nil, fr.Polarity)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	// The first frame is flat; only the second one yields a ramp
	if img.GrayAt(0, 0).Y != 0 || img.GrayAt(1, 1).Y != 255 {
		t.Errorf("Expected the second frame's ramp, got %v", img.Pix)
	}

	_, err = Decode(bytes.NewReader(data), int64(len(data)), WithFrame(2), WithLogger(logger))
	if !errors.Is(err, ErrNoPixelData) {
		t.Errorf("Expected ErrNoPixelData for frame 2, got %v", err)
	}
	_, err = Decode(bytes.NewReader(data), int64(len(data)), WithFrame(-1), WithLogger(logger))
	if !errors.Is(err, ErrNoPixelData) {
		t.Errorf("Expected ErrNoPixelData for frame -1, got %v", err)
	}
}

// TestFromDatasetEncapsulated verifies compressed frames are rejected
func TestFromDatasetEncapsulated(t *testing.T) {
	ds := newDataset(t, map[tag.Tag]interface{}{
		tag.Rows:    []int{2},
		tag.Columns: []int{2},
		tag.PixelData: dicom.PixelDataInfo{
			IsEncapsulated: true,
			Frames: []*frame.Frame{{
				Encapsulated:     true,
				EncapsulatedData: frame.EncapsulatedFrame{Data: []byte{1, 2, 3, 4}},
			}},
		},
	})
	logger, _ := bufferLogger()

	_, err := fromDataset(ds, options{logger: logger})
	if !errors.Is(err, ErrUnsupportedPixelData) {
		t.Errorf("Expected ErrUnsupportedPixelData, got %v", err)
	}
}

// TestReadPixelsRescaleDefaults verifies a zero slope is treated as 1
func TestReadPixelsRescaleDefaults(t *testing.T) {
	ds := newDataset(t, map[tag.Tag]interface{}{
		tag.RescaleSlope:     []string{"0"},
		tag.RescaleIntercept: []string{"5"},
		tag.PixelData: dicom.PixelDataInfo{
			Frames: []*frame.Frame{nativeFrame(1, 2, 0, 10)},
		},
	})

	m, err := readPixels(ds, 0)
	if err != nil {
		t.Fatalf("readPixels failed: %v", err)
	}

	// 0 and 10 become 5 and 15; a zero slope would have flattened them
	w := render.Window{Center: 10, Width: 10}
	img, err := render.Render(m, &w, render.Normal)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if img.GrayAt(0, 0).Y != 0 || img.GrayAt(1, 0).Y != 255 {
		t.Errorf("Expected [0 255], got %v", img.Pix)
	}
}
