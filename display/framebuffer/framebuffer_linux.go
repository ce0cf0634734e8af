package framebuffer

import (
	"encoding/binary"
	"image"
	"image/color"
	"os"
	"unsafe"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"
)

type Framebuffer struct {
	buf   []byte
	dev   *os.File
	finfo fixedScreenInfo
	vinfo variableScreenInfo
}

func New(dev string) (*Framebuffer, error) {
	devFile, err := os.OpenFile(dev, os.O_RDWR, os.ModeDevice)
	if err != nil {
		return nil, errors.Annotate(err, "open")
	}
	fb := &Framebuffer{dev: devFile}
	fd := fb.dev.Fd()

	if err = ioctl(fd, getFixedScreenInfo, uintptr(unsafe.Pointer(&fb.finfo))); err != nil {
		fb.dev.Close()
		return nil, errors.Annotate(err, "getFixedScreenInfo")
	}
	if err = ioctl(fd, getVariableScreenInfo, uintptr(unsafe.Pointer(&fb.vinfo))); err != nil {
		fb.dev.Close()
		return nil, errors.Annotate(err, "getVariableScreenInfo")
	}
	if !fb.is565() {
		fb.dev.Close()
		return nil, errors.NotSupportedf("color model bpp=%d red=%v green=%v blue=%v",
			fb.vinfo.Bits_per_pixel, fb.vinfo.Red, fb.vinfo.Green, fb.vinfo.Blue)
	}

	fb.buf = make([]byte, fb.stride()*fb.vinfo.Yres)
	return fb, nil
}

func (fb *Framebuffer) Close() error {
	return fb.dev.Close()
}

func (fb *Framebuffer) Flush() error {
	_, err := fb.dev.WriteAt(fb.buf, 0)
	return errors.Annotate(err, "framebuffer write")
}

func (fb *Framebuffer) Size() image.Point {
	return image.Point{X: int(fb.vinfo.Xres), Y: int(fb.vinfo.Yres)}
}

// Blit copies the top-left part of pix that fits the device into internal buffer,
// call Flush() to write to hardware.
func (fb *Framebuffer) Blit(pix []color.RGBA, size image.Point) {
	r := image.Rectangle{Max: size}.Intersect(image.Rectangle{Max: fb.Size()})
	stride := fb.stride()
	for y := 0; y < r.Max.Y; y++ {
		row := pix[y*size.X : y*size.X+r.Max.X]
		offset := uint32(y) * stride
		for x, c := range row {
			binary.LittleEndian.PutUint16(fb.buf[offset+uint32(x)*2:], Encode565(c))
		}
	}
}

func (fb *Framebuffer) is565() bool {
	return fb.vinfo.Bits_per_pixel == 16 &&
		fb.vinfo.Red == rgb565.Red && fb.vinfo.Green == rgb565.Green && fb.vinfo.Blue == rgb565.Blue
}

func (fb *Framebuffer) stride() uint32 {
	if fb.finfo.Line_length != 0 {
		return fb.finfo.Line_length
	}
	return fb.vinfo.Xres * fb.vinfo.Bits_per_pixel / 8
}

var rgb565 = variableScreenInfo{
	Red:   bitField{Offset: 11, Length: 5},
	Green: bitField{Offset: 5, Length: 6},
	Blue:  bitField{Offset: 0, Length: 5},
}

func ioctl(fd uintptr, cmd uintptr, data uintptr) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, cmd, data); errno != 0 {
		return os.NewSyscallError("ioctl", errno)
	}
	return nil
}
