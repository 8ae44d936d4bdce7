/*
DESCRIPTION
  Frame sources for the bgsegm harness: a numbered image-file sequence
  reader supporting JPEG, PNG, BMP and TIFF, plus mask and image
  writers. Device capture lives behind the CV build tag.

AUTHORS
  Trek Hopton <trek@ausocean.org>
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/pkg/errors"
)

// frameSource produces frames of fixed geometry until io.EOF.
type frameSource interface {
	Next() ([]uint8, error)
	Size() (w, h, channels int)
	Close() error
}

// newSource picks a frame source from the settings: a capture device
// when one is named, otherwise a file sequence.
func newSource(s Settings) (frameSource, error) {
	if s.Device != "" {
		return newCaptureSource(s.Device, s.Grayscale)
	}
	return newFileSource(s.Input, s.Pattern, s.Start, s.Grayscale)
}

// fileSource reads a numbered image sequence from a directory.
type fileSource struct {
	dir       string
	pattern   string
	next      int
	grayscale bool
	w, h, ch  int
	buf       []uint8
}

func newFileSource(dir, pattern string, start int, grayscale bool) (*fileSource, error) {
	f := &fileSource{dir: dir, pattern: pattern, next: start, grayscale: grayscale}
	img, err := f.decode(start)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read first frame %d", start)
	}
	b := img.Bounds()
	f.w, f.h = b.Dx(), b.Dy()
	f.ch = 3
	if grayscale {
		f.ch = 1
	}
	f.buf = make([]uint8, f.w*f.h*f.ch)
	return f, nil
}

func (f *fileSource) Size() (int, int, int) { return f.w, f.h, f.ch }

func (f *fileSource) Close() error { return nil }

// Next decodes the next numbered frame, returning io.EOF once the
// sequence runs out.
func (f *fileSource) Next() ([]uint8, error) {
	img, err := f.decode(f.next)
	if os.IsNotExist(errors.Cause(err)) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() != f.w || b.Dy() != f.h {
		return nil, errors.Errorf("frame %d is %dx%d, want %dx%d", f.next, b.Dx(), b.Dy(), f.w, f.h)
	}
	f.next++
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if f.grayscale {
				f.buf[i] = color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
				i++
				continue
			}
			r, g, bl, _ := img.At(x, y).RGBA()
			f.buf[i] = uint8(r >> 8)
			f.buf[i+1] = uint8(g >> 8)
			f.buf[i+2] = uint8(bl >> 8)
			i += 3
		}
	}
	return f.buf, nil
}

func (f *fileSource) decode(n int) (image.Image, error) {
	path := filepath.Join(f.dir, fmt.Sprintf(f.pattern, n))
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	img, _, err := image.Decode(fh)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode %s", path)
	}
	return img, nil
}

// writeMask saves a foreground mask as ou<n>.png in dir.
func writeMask(dir string, n int, mask []uint8, w, h int) error {
	img := &image.Gray{Pix: mask, Stride: w, Rect: image.Rect(0, 0, w, h)}
	return writePNG(filepath.Join(dir, fmt.Sprintf("ou%06d.png", n)), img)
}

// writeImage saves a reconstructed background as bg<n>.png in dir.
func writeImage(dir string, n int, pix []uint8, w, h, ch int) error {
	var img image.Image
	if ch == 1 {
		img = &image.Gray{Pix: pix, Stride: w, Rect: image.Rect(0, 0, w, h)}
	} else {
		rgba := image.NewNRGBA(image.Rect(0, 0, w, h))
		for i := 0; i < w*h; i++ {
			rgba.Pix[i*4] = pix[i*3]
			rgba.Pix[i*4+1] = pix[i*3+1]
			rgba.Pix[i*4+2] = pix[i*3+2]
			rgba.Pix[i*4+3] = 255
		}
		img = rgba
	}
	return writePNG(filepath.Join(dir, fmt.Sprintf("bg%06d.png", n)), img)
}

func writePNG(path string, img image.Image) error {
	fh, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", path)
	}
	defer fh.Close()
	return png.Encode(fh, img)
}
