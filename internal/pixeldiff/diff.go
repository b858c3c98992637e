// Package pixeldiff compares two equally sized bitmaps pixel by pixel using a
// perceptual YIQ color distance, ignoring differences caused by anti-aliasing.
package pixeldiff

import (
	"bytes"
	"fmt"

	"github.com/kamilpajak/visualgate/internal/imaging"
)

// DefaultThreshold is the matching sensitivity on a 0..1 scale:
// 0 requires an exact match, 1 tolerates everything.
const DefaultThreshold = 0.1

// maxYIQDelta is the largest possible YIQ distance between two colors.
const maxYIQDelta = 35215

var (
	diffColor = [3]byte{255, 0, 0}
	aaColor   = [3]byte{255, 255, 0}
)

// fadeAlpha controls how strongly unchanged pixels are drawn in the highlight.
const fadeAlpha = 0.1

// Result is the raw outcome of Diff.
type Result struct {
	DiffPixels  int
	TotalPixels int
	Highlight   *imaging.Bitmap
}

// Diff compares expected and actual, which must have the same dimensions.
// Differing pixels are drawn red in the highlight, anti-aliased pixels yellow,
// and everything else as a faded grayscale copy of actual.
func Diff(expected, actual *imaging.Bitmap, threshold float64) (*Result, error) {
	if !expected.SameSize(actual) {
		return nil, fmt.Errorf("image sizes do not match: %dx%d vs %dx%d",
			expected.Width, expected.Height, actual.Width, actual.Height)
	}

	w, h := actual.Width, actual.Height
	res := &Result{TotalPixels: w * h, Highlight: imaging.New(w, h)}
	out := res.Highlight.Pix

	if bytes.Equal(expected.Pix, actual.Pix) {
		for i := 0; i < len(out); i += 4 {
			drawGray(actual.Pix, i, out)
		}
		return res, nil
	}

	maxDelta := maxYIQDelta * threshold * threshold

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pos := (y*w + x) * 4
			delta := colorDelta(expected.Pix, actual.Pix, pos, pos, false)

			if abs(delta) <= maxDelta {
				drawGray(actual.Pix, pos, out)
				continue
			}

			if antialiased(expected.Pix, x, y, w, h, actual.Pix) || antialiased(actual.Pix, x, y, w, h, expected.Pix) {
				drawPixel(out, pos, aaColor)
				continue
			}

			drawPixel(out, pos, diffColor)
			res.DiffPixels++
		}
	}

	return res, nil
}

// antialiased reports whether the pixel at (x1, y1) in img looks like part of
// an anti-aliased edge: it has both darker and brighter neighbors, and the
// extreme neighbors sit in flat regions in both images.
func antialiased(img []byte, x1, y1, w, h int, other []byte) bool {
	x0, y0 := max(x1-1, 0), max(y1-1, 0)
	x2, y2 := min(x1+1, w-1), min(y1+1, h-1)
	pos := (y1*w + x1) * 4

	zeroes := 0
	if x1 == x0 || x1 == x2 || y1 == y0 || y1 == y2 {
		zeroes = 1
	}

	var minDelta, maxDelta float64
	var minX, minY, maxX, maxY int

	for x := x0; x <= x2; x++ {
		for y := y0; y <= y2; y++ {
			if x == x1 && y == y1 {
				continue
			}

			delta := colorDelta(img, img, pos, (y*w+x)*4, true)

			switch {
			case delta == 0:
				zeroes++
				if zeroes > 2 {
					return false
				}
			case delta < minDelta:
				minDelta, minX, minY = delta, x, y
			case delta > maxDelta:
				maxDelta, maxX, maxY = delta, x, y
			}
		}
	}

	if minDelta == 0 || maxDelta == 0 {
		return false
	}

	return (hasManySiblings(img, minX, minY, w, h) && hasManySiblings(other, minX, minY, w, h)) ||
		(hasManySiblings(img, maxX, maxY, w, h) && hasManySiblings(other, maxX, maxY, w, h))
}

// hasManySiblings reports whether more than two neighbors of (x1, y1) share its exact color.
func hasManySiblings(img []byte, x1, y1, w, h int) bool {
	x0, y0 := max(x1-1, 0), max(y1-1, 0)
	x2, y2 := min(x1+1, w-1), min(y1+1, h-1)
	pos := (y1*w + x1) * 4

	zeroes := 0
	if x1 == x0 || x1 == x2 || y1 == y0 || y1 == y2 {
		zeroes = 1
	}

	for x := x0; x <= x2; x++ {
		for y := y0; y <= y2; y++ {
			if x == x1 && y == y1 {
				continue
			}
			pos2 := (y*w + x) * 4
			if bytes.Equal(img[pos:pos+4], img[pos2:pos2+4]) {
				zeroes++
			}
			if zeroes > 2 {
				return true
			}
		}
	}
	return false
}

// colorDelta returns the squared YIQ distance between pixel k of a and pixel
// m of b, after blending both onto white. The sign tells which is brighter.
// With yOnly set, only the luma difference is returned.
func colorDelta(a, b []byte, k, m int, yOnly bool) float64 {
	r1, g1, b1, a1 := float64(a[k]), float64(a[k+1]), float64(a[k+2]), float64(a[k+3])
	r2, g2, b2, a2 := float64(b[m]), float64(b[m+1]), float64(b[m+2]), float64(b[m+3])

	if a1 == a2 && r1 == r2 && g1 == g2 && b1 == b2 {
		return 0
	}

	if a1 < 255 {
		a1 /= 255
		r1, g1, b1 = blend(r1, a1), blend(g1, a1), blend(b1, a1)
	}
	if a2 < 255 {
		a2 /= 255
		r2, g2, b2 = blend(r2, a2), blend(g2, a2), blend(b2, a2)
	}

	y1, y2 := rgb2y(r1, g1, b1), rgb2y(r2, g2, b2)
	dy := y1 - y2
	if yOnly {
		return dy
	}

	di := rgb2i(r1, g1, b1) - rgb2i(r2, g2, b2)
	dq := rgb2q(r1, g1, b1) - rgb2q(r2, g2, b2)
	delta := 0.5053*dy*dy + 0.299*di*di + 0.1957*dq*dq

	if y1 > y2 {
		return -delta
	}
	return delta
}

func rgb2y(r, g, b float64) float64 { return r*0.29889531 + g*0.58662247 + b*0.11448223 }
func rgb2i(r, g, b float64) float64 { return r*0.59597799 - g*0.27417610 - b*0.32180189 }
func rgb2q(r, g, b float64) float64 { return r*0.21147017 - g*0.52261711 + b*0.31114694 }

// blend composites channel c with alpha a over white.
func blend(c, a float64) float64 { return 255 + (c-255)*a }

func drawPixel(out []byte, pos int, c [3]byte) {
	out[pos], out[pos+1], out[pos+2], out[pos+3] = c[0], c[1], c[2], 255
}

func drawGray(src []byte, pos int, out []byte) {
	r, g, b, a := float64(src[pos]), float64(src[pos+1]), float64(src[pos+2]), float64(src[pos+3])
	v := blend(rgb2y(r, g, b), fadeAlpha*a/255)
	gray := byte(v)
	out[pos], out[pos+1], out[pos+2], out[pos+3] = gray, gray, gray, 255
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
