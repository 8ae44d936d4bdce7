/*
DESCRIPTION
  3x3 projective transforms and perspective warping of the flat image
  planes the segmentation engine keeps: byte colour planes, 16-bit
  descriptor planes and 32-bit float feedback fields. Warping uses
  inverse mapping with nearest-neighbour sampling so that masks and
  descriptors stay valid values, and fills unmapped pixels with zero so
  the engine can detect and repair them.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package xform provides 3x3 homographies and perspective warps over
// flat row-major image planes.
package xform

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 projective transform mapping source pixel
// coordinates to destination coordinates.
type Homography struct {
	m *mat.Dense
}

// Identity returns the identity transform.
func Identity() Homography {
	return Homography{m: mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})}
}

// New builds a homography from nine row-major coefficients.
func New(vals []float64) (Homography, error) {
	if len(vals) != 9 {
		return Homography{}, errors.Errorf("homography needs 9 coefficients, got %d", len(vals))
	}
	c := make([]float64, 9)
	copy(c, vals)
	return Homography{m: mat.NewDense(3, 3, c)}, nil
}

// Coeffs returns the nine row-major coefficients.
func (h Homography) Coeffs() []float64 {
	out := make([]float64, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i*3+j] = h.m.At(i, j)
		}
	}
	return out
}

// Inverse returns the inverse transform.
func (h Homography) Inverse() (Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.m); err != nil {
		return Homography{}, errors.Wrap(err, "homography is singular")
	}
	return Homography{m: &inv}, nil
}

// Apply maps the point (x,y) through the transform.
func (h Homography) Apply(x, y float64) (float64, float64) {
	w := h.m.At(2, 0)*x + h.m.At(2, 1)*y + h.m.At(2, 2)
	nx := (h.m.At(0, 0)*x + h.m.At(0, 1)*y + h.m.At(0, 2)) / w
	ny := (h.m.At(1, 0)*x + h.m.At(1, 1)*y + h.m.At(1, 2)) / w
	return nx, ny
}

// WarpBytes warps the channels-interleaved byte plane src of size w x h
// through hom into dst, filling unmapped pixels with zero. dst and src
// must not alias.
func WarpBytes(dst, src []uint8, w, h, channels int, hom Homography) error {
	inv, err := hom.Inverse()
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = 0
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy, ok := inv.source(x, y, w, h)
			if !ok {
				continue
			}
			di, si := (y*w+x)*channels, (sy*w+sx)*channels
			for c := 0; c < channels; c++ {
				dst[di+c] = src[si+c]
			}
		}
	}
	return nil
}

// WarpUint16 warps the channels-interleaved 16-bit plane src through
// hom into dst, filling unmapped pixels with zero.
func WarpUint16(dst, src []uint16, w, h, channels int, hom Homography) error {
	inv, err := hom.Inverse()
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = 0
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy, ok := inv.source(x, y, w, h)
			if !ok {
				continue
			}
			di, si := (y*w+x)*channels, (sy*w+sx)*channels
			for c := 0; c < channels; c++ {
				dst[di+c] = src[si+c]
			}
		}
	}
	return nil
}

// WarpFloats warps the channels-interleaved float plane src through hom
// into dst, filling unmapped pixels with zero.
func WarpFloats(dst, src []float32, w, h, channels int, hom Homography) error {
	inv, err := hom.Inverse()
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = 0
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy, ok := inv.source(x, y, w, h)
			if !ok {
				continue
			}
			di, si := (y*w+x)*channels, (sy*w+sx)*channels
			for c := 0; c < channels; c++ {
				dst[di+c] = src[si+c]
			}
		}
	}
	return nil
}

// source maps destination pixel (x,y) back to the nearest source pixel,
// reporting whether it lands inside the frame.
func (h Homography) source(x, y, w, ht int) (int, int, bool) {
	fx, fy := h.Apply(float64(x), float64(y))
	sx, sy := int(fx+0.5), int(fy+0.5)
	if fx < -0.5 || fy < -0.5 || sx < 0 || sx >= w || sy < 0 || sy >= ht {
		return 0, 0, false
	}
	return sx, sy, true
}
