package display

import (
	"image"
	"image/color"

	"github.com/bobbycar-graz/bobbyremote/display/framebuffer"
)

const (
	CmdDrawLine   = "drawLine"
	CmdDrawRect   = "drawRect"
	CmdFillRect   = "fillRect"
	CmdFillScreen = "fillScreen"
)

// Primitive is one element of a screenCtrl batch.
// Only fields meaningful for Cmd are set by the device.
type Primitive struct {
	Cmd   string `json:"cmd"`
	X1    int    `json:"x1,omitempty"`
	Y1    int    `json:"y1,omitempty"`
	X2    int    `json:"x2,omitempty"`
	Y2    int    `json:"y2,omitempty"`
	X     int    `json:"x,omitempty"`
	Y     int    `json:"y,omitempty"`
	W     int    `json:"w,omitempty"`
	H     int    `json:"h,omitempty"`
	Color uint16 `json:"color"`
}

// Render applies primitives in order and returns number of skipped ones.
// Unsupported commands are logged and skipped, the rest of the batch still applies.
func (d *Display) Render(ps []Primitive) (skipped int) {
	for _, p := range ps {
		c := framebuffer.Decode565(p.Color)
		switch p.Cmd {
		case CmdDrawLine:
			if !sane(p.X1) || !sane(p.Y1) || !sane(p.X2) || !sane(p.Y2) {
				skipped++
				d.log.Debugf("display skip %s out of range %v", p.Cmd, p)
				continue
			}
			d.line(p.X1, p.Y1, p.X2, p.Y2, c)

		case CmdDrawRect:
			if p.W == 0 || p.H == 0 {
				continue
			}
			r := image.Rect(p.X, p.Y, p.X+p.W, p.Y+p.H)
			x0, y0, x1, y1 := r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1
			d.fill(image.Rect(x0, y0, x1+1, y0+1), c)
			d.fill(image.Rect(x0, y1, x1+1, y1+1), c)
			d.fill(image.Rect(x0, y0, x0+1, y1+1), c)
			d.fill(image.Rect(x1, y0, x1+1, y1+1), c)

		case CmdFillRect:
			d.fill(image.Rect(p.X, p.Y, p.X+p.W, p.Y+p.H), c)

		case CmdFillScreen:
			d.fill(d.Bounds(), c)

		default:
			skipped++
			d.log.Debugf("display skip cmd=%s", p.Cmd)
		}
	}
	return skipped
}

// Bresenham, endpoints inclusive.
func (d *Display) line(x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		d.plot(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// Device coordinates are int16.
func sane(x int) bool { return x >= -1<<15 && x < 1<<15 }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
