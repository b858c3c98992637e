package imaging

// Resize scales src to width x height with nearest-neighbor sampling.
// Destination pixel (x, y) copies source pixel (x*srcW/dstW, y*srcH/dstH)
// verbatim, so the output is fully determined by the input.
func Resize(src *Bitmap, width, height int) *Bitmap {
	dst := New(width, height)
	if src.Width == 0 || src.Height == 0 {
		return dst
	}

	for y := 0; y < height; y++ {
		sy := y * src.Height / height
		srow := sy * src.Width * 4
		drow := y * width * 4
		for x := 0; x < width; x++ {
			sx := x * src.Width / width
			si := srow + sx*4
			di := drow + x*4
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}
