package services

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// PreviewRenderer produces the blurred stand-in shown before an unlock: the
// image is shrunk to SampleWidth pixels and blown back up with
// nearest-neighbour sampling, so only coarse blocks of colour survive.
type PreviewRenderer struct {
	SampleWidth uint
	MaxWidth    uint
	Quality     int
}

func NewPreviewRenderer() PreviewRenderer {
	return PreviewRenderer{SampleWidth: 16, MaxWidth: 480, Quality: 70}
}

// Render returns a JPEG preview of an encoded JPEG, PNG, GIF, BMP or TIFF
// image. EXIF orientation is applied before sampling.
func (r PreviewRenderer) Render(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	width := r.MaxWidth
	if w := uint(img.Bounds().Dx()); w < width {
		width = w
	}
	sample := r.SampleWidth
	if sample > width {
		sample = width
	}

	small := resize.Resize(sample, 0, img, resize.Bilinear)
	blocky := resize.Resize(width, 0, small, resize.NearestNeighbor)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, blocky, &jpeg.Options{Quality: r.Quality}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
