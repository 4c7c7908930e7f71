package testpattern

import (
	"fmt"
	"image/color"
	"time"

	"github.com/fogleman/gg"

	"github.com/user/avgrabber/pkg/framebuf"
)

// barColors are the SMPTE-style colour bars, left to right.
var barColors = []color.RGBA{
	{R: 192, G: 192, B: 192, A: 255},
	{R: 192, G: 192, B: 0, A: 255},
	{R: 0, G: 192, B: 192, A: 255},
	{R: 0, G: 192, B: 0, A: 255},
	{R: 192, G: 0, B: 192, A: 255},
	{R: 192, G: 0, B: 0, A: 255},
	{R: 0, G: 0, B: 192, A: 255},
}

// Renderer draws test pattern frames into a reused RGB24 buffer.
type Renderer struct {
	width  int
	height int
	dc     *gg.Context
	pix    []byte
}

// NewRenderer creates a renderer for frames of the given size.
func NewRenderer(width, height int) *Renderer {
	return &Renderer{
		width:  width,
		height: height,
		dc:     gg.NewContext(width, height),
	}
}

// Render draws frame n captured at t and returns its RGB24 pixels.
// The returned slice is reused by the next call.
func (r *Renderer) Render(n uint64, t time.Duration) []byte {
	dc := r.dc
	w := float64(r.width)
	h := float64(r.height)
	barsH := h * 2 / 3

	barW := w / float64(len(barColors))
	for i, c := range barColors {
		dc.SetColor(c)
		dc.DrawRectangle(float64(i)*barW, 0, barW+1, barsH)
		dc.Fill()
	}

	dc.SetColor(color.RGBA{R: 24, G: 24, B: 24, A: 255})
	dc.DrawRectangle(0, barsH, w, h-barsH)
	dc.Fill()

	// Marker sweeping across the bottom strip, one step per frame.
	size := h / 12
	travel := int(w - size)
	if travel < 1 {
		travel = 1
	}
	x := float64(int(n*4) % travel)
	dc.SetColor(color.White)
	dc.DrawRectangle(x, barsH+size/2, size, size)
	dc.Fill()

	dc.SetColor(color.RGBA{R: 235, G: 235, B: 235, A: 255})
	dc.DrawStringAnchored(label(n, t), w/2, h-size, 0.5, 0.5)

	r.pix = framebuf.FromImage(dc.Image(), r.pix)
	return r.pix
}

func label(n uint64, t time.Duration) string {
	total := t.Milliseconds()
	return fmt.Sprintf("%06d  %02d:%02d.%03d", n, total/60000, total/1000%60, total%1000)
}
