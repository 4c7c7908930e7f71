package framebuf

import (
	"image"
	"image/draw"
)

// ToRGBA converts packed RGB24 pixels to dst, allocating it when nil or
// of the wrong size.
func ToRGBA(pix []byte, width, height int, dst *image.RGBA) *image.RGBA {
	if dst == nil || dst.Rect.Dx() != width || dst.Rect.Dy() != height {
		dst = image.NewRGBA(image.Rect(0, 0, width, height))
	}
	n := width * height
	if len(pix) < n*3 {
		return dst
	}
	for i, j := 0, 0; i < n; i, j = i+1, j+3 {
		o := i * 4
		dst.Pix[o] = pix[j]
		dst.Pix[o+1] = pix[j+1]
		dst.Pix[o+2] = pix[j+2]
		dst.Pix[o+3] = 0xFF
	}
	return dst
}

// FromImage packs img into RGB24, reusing dst when it is large enough.
func FromImage(img image.Image, dst []byte) []byte {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) || rgba.Stride != b.Dx()*4 {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	n := b.Dx() * b.Dy()
	if cap(dst) < n*3 {
		dst = make([]byte, n*3)
	}
	dst = dst[:n*3]
	for i, j := 0, 0; i < n; i, j = i+1, j+3 {
		o := i * 4
		dst[j] = rgba.Pix[o]
		dst[j+1] = rgba.Pix[o+1]
		dst[j+2] = rgba.Pix[o+2]
	}
	return dst
}

// Image returns the frame as an image.
func (f *Frame) Image() *image.RGBA {
	return ToRGBA(f.Pix, f.Width, f.Height, nil)
}
