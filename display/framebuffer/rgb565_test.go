package framebuffer

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncode565(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input  color.RGBA
		expect uint16
	}{
		{color.RGBA{0, 0, 0, 0}, 0},
		{color.RGBA{0, 0, 0, 0xff}, 0},
		{color.RGBA{0xff, 0xff, 0xff, 0xff}, 0xffff},
		{color.RGBA{0xff, 0x00, 0x00, 0xff}, 0xf800},
		{color.RGBA{0x00, 0xff, 0x00, 0xff}, 0x07e0},
		{color.RGBA{0x00, 0x00, 0xff, 0xff}, 0x001f},
		{color.RGBA{0x0c, 0x0c, 0x0c, 0xff}, 0x0861},
	}
	for _, c := range cases {
		assert.Equal(t, c.expect, Encode565(c.input), c.input)
	}
}

func TestDecode565(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input  uint16
		expect color.RGBA
	}{
		{0x0000, color.RGBA{0, 0, 0, 0xff}},
		{0xf800, color.RGBA{248, 0, 0, 0xff}},
		{0x07e0, color.RGBA{0, 252, 0, 0xff}},
		{0x001f, color.RGBA{0, 0, 248, 0xff}},
		{0xffff, color.RGBA{248, 252, 248, 0xff}},
		{0x0861, color.RGBA{8, 12, 8, 0xff}},
	}
	for _, c := range cases {
		got := Decode565(c.input)
		assert.Equal(t, c.expect, got, "%04x", c.input)
		assert.Equal(t, c.input, Encode565(got), "round trip %04x", c.input)
	}
}
