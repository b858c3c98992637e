package imaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checker(w, h int) *Bitmap {
	bm := New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			bm.Pix[i] = byte(x * 17)
			bm.Pix[i+1] = byte(y * 31)
			bm.Pix[i+2] = byte((x + y) % 256)
			bm.Pix[i+3] = 255
		}
	}
	return bm
}

func TestResize_Identity(t *testing.T) {
	src := checker(7, 5)
	out := Resize(src, 7, 5)
	assert.Equal(t, src.Pix, out.Pix)
	assert.Equal(t, 7, out.Width)
	assert.Equal(t, 5, out.Height)
}

func TestResize_Deterministic(t *testing.T) {
	src := checker(13, 9)
	a := Resize(src, 5, 4)
	b := Resize(src, 5, 4)
	assert.Equal(t, a.Pix, b.Pix)
}

func TestResize_Downscale(t *testing.T) {
	src := checker(4, 4)
	out := Resize(src, 2, 2)
	require.Len(t, out.Pix, 2*2*4)

	// (1,1) maps to source (2,2)
	i := (1*2 + 1) * 4
	j := (2*4 + 2) * 4
	assert.Equal(t, src.Pix[j:j+4], out.Pix[i:i+4])
}

func TestResize_Upscale(t *testing.T) {
	src := checker(2, 1)
	out := Resize(src, 4, 1)

	// x = 0,1 -> 0 ; x = 2,3 -> 1
	assert.Equal(t, src.Pix[0:4], out.Pix[0:4])
	assert.Equal(t, src.Pix[0:4], out.Pix[4:8])
	assert.Equal(t, src.Pix[4:8], out.Pix[8:12])
	assert.Equal(t, src.Pix[4:8], out.Pix[12:16])
}

func TestResize_Degenerate(t *testing.T) {
	src := checker(10, 10)

	one := Resize(src, 1, 1)
	assert.Equal(t, src.Pix[0:4], one.Pix)

	empty := Resize(src, 0, 0)
	assert.Empty(t, empty.Pix)

	fromEmpty := Resize(New(0, 0), 3, 2)
	assert.Equal(t, make([]byte, 3*2*4), fromEmpty.Pix)
}
