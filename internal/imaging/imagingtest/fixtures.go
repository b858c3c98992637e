// Package imagingtest builds deterministic bitmap fixtures for tests.
package imagingtest

import (
	"path/filepath"
	"testing"

	"github.com/kamilpajak/visualgate/internal/imaging"
)

// Card renders a flat UI-card-like bitmap: a light background, a dark header
// bar and a mid-tone body stripe. Flat regions keep anti-aliasing detection
// out of the picture so pixel counts are exact.
func Card(width, height int) *imaging.Bitmap {
	bm := imaging.New(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := [4]byte{245, 245, 245, 255}
			switch {
			case y < height/4:
				c = [4]byte{30, 60, 120, 255}
			case y > height/2 && y < height*3/4:
				c = [4]byte{200, 170, 90, 255}
			}
			i := (y*width + x) * 4
			copy(bm.Pix[i:i+4], c[:])
		}
	}
	return bm
}

// Fill paints the rectangle [x0,x1) x [y0,y1) with an opaque color.
func Fill(bm *imaging.Bitmap, x0, y0, x1, y1 int, r, g, b byte) *imaging.Bitmap {
	out := &imaging.Bitmap{Width: bm.Width, Height: bm.Height, Pix: append([]byte(nil), bm.Pix...)}
	for y := y0; y < y1 && y < bm.Height; y++ {
		for x := x0; x < x1 && x < bm.Width; x++ {
			i := (y*bm.Width + x) * 4
			out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = r, g, b, 255
		}
	}
	return out
}

// CorruptBlock overlays a magenta block covering fraction of the columns on
// every row, so roughly fraction*100 percent of the pixels differ.
func CorruptBlock(bm *imaging.Bitmap, fraction float64) *imaging.Bitmap {
	return Fill(bm, 0, 0, int(float64(bm.Width)*fraction), bm.Height, 255, 0, 255)
}

// WritePNG saves bm under dir and returns its path.
func WritePNG(t testing.TB, dir, name string, bm *imaging.Bitmap) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := bm.Save(path); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}
