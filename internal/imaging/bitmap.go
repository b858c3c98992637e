// Package imaging holds the raw RGBA bitmap type shared by the resampler and
// the pixel differ, plus PNG decoding and encoding.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
)

// Bitmap is a non-premultiplied RGBA8 raster, 4 bytes per pixel, row-major.
type Bitmap struct {
	Width  int
	Height int
	Pix    []byte
}

// New allocates a zeroed (fully transparent) bitmap.
func New(width, height int) *Bitmap {
	return &Bitmap{Width: width, Height: height, Pix: make([]byte, width*height*4)}
}

// Pixels returns width*height.
func (b *Bitmap) Pixels() int {
	return b.Width * b.Height
}

// SameSize reports whether b and o have identical dimensions.
func (b *Bitmap) SameSize(o *Bitmap) bool {
	return b.Width == o.Width && b.Height == o.Height
}

// ImageReadError reports a bitmap that could not be read or decoded.
type ImageReadError struct {
	Path string
	Err  error
}

func (e *ImageReadError) Error() string {
	return fmt.Sprintf("could not read image %s: %v", e.Path, e.Err)
}

func (e *ImageReadError) Unwrap() error {
	return e.Err
}

// Load reads and decodes a PNG file.
func Load(path string) (*Bitmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ImageReadError{Path: path, Err: err}
	}
	defer f.Close()

	bm, err := Decode(f)
	if err != nil {
		return nil, &ImageReadError{Path: path, Err: err}
	}
	return bm, nil
}

// DecodeBytes decodes PNG data, naming the source for error reporting.
func DecodeBytes(name string, data []byte) (*Bitmap, error) {
	bm, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ImageReadError{Path: name, Err: err}
	}
	return bm, nil
}

// Decode reads a PNG stream into an RGBA8 bitmap.
func Decode(r io.Reader) (*Bitmap, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, err
	}
	return FromImage(img), nil
}

// FromImage converts any image into a non-premultiplied RGBA8 bitmap.
func FromImage(img image.Image) *Bitmap {
	bounds := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Stride != bounds.Dx()*4 || bounds.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return &Bitmap{Width: bounds.Dx(), Height: bounds.Dy(), Pix: nrgba.Pix}
}

// Image exposes the bitmap as an image.NRGBA sharing the same buffer.
func (b *Bitmap) Image() *image.NRGBA {
	return &image.NRGBA{Pix: b.Pix, Stride: b.Width * 4, Rect: image.Rect(0, 0, b.Width, b.Height)}
}

// Encode writes the bitmap as PNG.
func (b *Bitmap) Encode(w io.Writer) error {
	return png.Encode(w, b.Image())
}

// Save writes the bitmap as a PNG file, creating parent directories.
func (b *Bitmap) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := b.Encode(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
