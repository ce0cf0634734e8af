// Package framebuffer converts between RGB565 words and color.RGBA
// and mirrors pixels onto a Linux framebuffer device.
package framebuffer

import "image/color"

// Decode565 expands a 16 bit 5-6-5 color word. Low bits stay zero,
// so 0xffff decodes to (248,252,248).
func Decode565(c uint16) color.RGBA {
	return color.RGBA{
		R: uint8((c&0xf800)>>11) << 3,
		G: uint8((c&0x07e0)>>5) << 2,
		B: uint8(c&0x001f) << 3,
		A: 0xff,
	}
}

func Encode565(c color.RGBA) uint16 {
	return (uint16(c.R) & 0xf8 << 8) | (uint16(c.G) & 0xfc << 3) | (uint16(c.B) & 0xf8 >> 3)
}
