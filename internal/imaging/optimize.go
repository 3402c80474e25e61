package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 1024
	DefaultJPEGQuality  = 80
	JPEGMIME            = "image/jpeg"
)

// ErrDecode is returned when the upload is not an image any registered
// decoder understands.
var ErrDecode = errors.New("imaging: unsupported or corrupt image")

// Result is an optimized image ready to be sent to a model.
type Result struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
	Format string
}

// Optimize fits the image inside a maxDim x maxDim box without enlarging it
// and re-encodes it as JPEG. Transparent areas are flattened onto white.
func Optimize(data []byte, maxDim, quality int) (*Result, error) {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := src.Bounds()
	width, height := FitInside(bounds.Dx(), bounds.Dy(), maxDim)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("imaging: encode jpeg: %w", err)
	}
	return &Result{
		Data:   buf.Bytes(),
		MIME:   JPEGMIME,
		Width:  width,
		Height: height,
		Format: format,
	}, nil
}

// FitInside scales (w, h) down to fit a maxDim square, keeping the aspect
// ratio. Images already inside the box are returned unchanged.
func FitInside(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w >= h {
		nh := h * maxDim / w
		if nh < 1 {
			nh = 1
		}
		return maxDim, nh
	}
	nw := w * maxDim / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxDim
}
