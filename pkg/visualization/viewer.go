package visualization

import (
	"encoding/base64"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	"gopkg.in/yaml.v3"

	"dicomrender/internal/models"
	"dicomrender/pkg/render"
)

// Viewer writes a rendered radiograph and its derived previews to disk
type Viewer struct {
	// img is the full-resolution rendered image
	img *image.Gray

	// encoder controls PNG compression for every file written
	encoder render.Encoder
}

// NewViewer creates a viewer for a rendered image
func NewViewer(img *image.Gray, encoder render.Encoder) *Viewer {
	return &Viewer{
		img:     img,
		encoder: encoder,
	}
}

// Image returns the full-resolution image
func (v *Viewer) Image() *image.Gray {
	return v.img
}

// Thumbnail returns a copy of the image scaled so its longest edge is at
// most maxDim pixels, keeping the aspect ratio. Images already within the
// limit are returned unscaled.
func (v *Viewer) Thumbnail(maxDim int) (*image.Gray, error) {
	if maxDim <= 0 {
		return nil, fmt.Errorf("thumbnail size must be positive, got %d", maxDim)
	}

	b := v.img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return v.img, nil
	}

	// Scale the longest edge to maxDim, keeping at least one pixel
	tw, th := maxDim, maxDim
	if w >= h {
		th = max(1, h*maxDim/w)
	} else {
		tw = max(1, w*maxDim/h)
	}

	dst := image.NewGray(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Rect, v.img, b, draw.Src, nil)

	return dst, nil
}

// SavePNG writes the full-resolution image as PNG
func (v *Viewer) SavePNG(filename string) error {
	return v.saveImage(v.img, filename)
}

// SaveThumbnail writes a downscaled preview as PNG
func (v *Viewer) SaveThumbnail(maxDim int, filename string) error {
	thumb, err := v.Thumbnail(maxDim)
	if err != nil {
		return err
	}
	return v.saveImage(thumb, filename)
}

func (v *Viewer) saveImage(img *image.Gray, filename string) error {
	data, err := v.encoder.Encode(img)
	if err != nil {
		return err
	}
	return writeFile(filename, data)
}

// SavePayload writes the PNG held in a stored payload without re-encoding it
func SavePayload(payload models.ImagePayload, filename string) error {
	data, err := base64.StdEncoding.DecodeString(payload.PNGData)
	if err != nil {
		return fmt.Errorf("decoding stored image %s: %w", payload.ID, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("payload %s holds no image", payload.ID)
	}
	return writeFile(filename, data)
}

// SaveSidecar writes the payload metadata as YAML
func SaveSidecar(payload models.ImagePayload, filename string) error {
	data, err := yaml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling sidecar for %s: %w", payload.ID, err)
	}
	return writeFile(filename, data)
}

// writeFile writes data, creating the parent directory if needed
func writeFile(filename string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
