// Package display keeps a pixel copy of the device screen,
// redrawn from the primitive stream the device pushes.
package display

import (
	"image"
	"image/color"
	"strings"

	"github.com/bobbycar-graz/bobbyremote/display/framebuffer"
	"github.com/bobbycar-graz/bobbyremote/log2"
)

// Sink receives the whole surface on Flush.
// *framebuffer.Framebuffer satisfies it.
type Sink interface {
	Blit(pix []color.RGBA, size image.Point)
	Flush() error
}

type Display struct {
	log  *log2.Log
	pix  []color.RGBA
	size image.Point
	sink Sink
}

func New(log *log2.Log, size image.Point) *Display {
	if size.X < 0 || size.Y < 0 {
		size = image.Point{}
	}
	d := &Display{
		log:  log,
		pix:  make([]color.RGBA, size.X*size.Y),
		size: size,
	}
	d.fill(d.Bounds(), color.RGBA{0, 0, 0, 0xff})
	return d
}

func (d *Display) SetSink(s Sink) { d.sink = s }

func (d *Display) Size() image.Point       { return d.size }
func (d *Display) Bounds() image.Rectangle { return image.Rectangle{Max: d.size} }

func (d *Display) Clear() error {
	d.fill(d.Bounds(), color.RGBA{0, 0, 0, 0xff})
	return d.Flush()
}

func (d *Display) Flush() error {
	if d.sink == nil {
		return nil
	}
	d.sink.Blit(d.pix, d.size)
	return d.sink.Flush()
}

// At returns pixel color, zero value outside of surface.
func (d *Display) At(x, y int) color.RGBA {
	if !(image.Point{x, y}).In(d.Bounds()) {
		return color.RGBA{}
	}
	return d.get(x, y)
}

// Image returns a copy suitable for png.Encode.
func (d *Display) Image() *image.RGBA {
	img := image.NewRGBA(d.Bounds())
	for y := 0; y < d.size.Y; y++ {
		for x := 0; x < d.size.X; x++ {
			img.SetRGBA(x, y, d.get(x, y))
		}
	}
	return img
}

// String2 is a text picture of the surface, one cell per step*step block.
// A cell is lit when any pixel in the block is not black.
func (d *Display) String2(step int) string {
	if step < 1 {
		step = 1
	}
	b := strings.Builder{}
	b.Grow((d.size.X/step*2 + 1) * (d.size.Y / step))
	for y := 0; y+step <= d.size.Y; y += step {
		for x := 0; x+step <= d.size.X; x += step {
			if d.lit(x, y, step) {
				b.WriteString("██")
			} else {
				b.WriteString("  ")
			}
		}
		b.WriteRune('\n')
	}
	return b.String()
}

func (d *Display) lit(x0, y0, step int) bool {
	for y := y0; y < y0+step; y++ {
		for x := x0; x < x0+step; x++ {
			c := d.get(x, y)
			if c.R != 0 || c.G != 0 || c.B != 0 {
				return true
			}
		}
	}
	return false
}

func (d *Display) fill(r image.Rectangle, c color.RGBA) {
	r = r.Canon().Intersect(d.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := d.pix[y*d.size.X+r.Min.X : y*d.size.X+r.Max.X]
		for i := range row {
			row[i] = c
		}
	}
}

func (d *Display) plot(x, y int, c color.RGBA) {
	if x < 0 || y < 0 || x >= d.size.X || y >= d.size.Y {
		return
	}
	d.set(x, y, c)
}

func (d *Display) get(x, y int) color.RGBA    { return d.pix[y*d.size.X+x] }
func (d *Display) set(x, y int, c color.RGBA) { d.pix[y*d.size.X+x] = c }

var _ Sink = (*framebuffer.Framebuffer)(nil)
