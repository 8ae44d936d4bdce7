/*
DESCRIPTION
  xform_test.go contains tests for homography construction, inversion
  and plane warping.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package xform

import (
	"bytes"
	"math"
	"testing"
)

func translation(dx, dy float64) Homography {
	h, _ := New([]float64{1, 0, dx, 0, 1, dy, 0, 0, 1})
	return h
}

func TestNewRejectsBadLength(t *testing.T) {
	if _, err := New([]float64{1, 2, 3}); err == nil {
		t.Error("expected error for 3 coefficients")
	}
}

func TestApplyTranslation(t *testing.T) {
	h := translation(3, -2)
	x, y := h.Apply(10, 10)
	if x != 13 || y != 8 {
		t.Errorf("Apply = (%v,%v), want (13,8)", x, y)
	}
}

func TestInverseRoundTrip(t *testing.T) {
	h, err := New([]float64{1.1, 0.02, 4, -0.01, 0.95, -2, 0.0001, 0, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inv, err := h.Inverse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	x0, y0 := 17.0, 23.0
	x1, y1 := h.Apply(x0, y0)
	x2, y2 := inv.Apply(x1, y1)
	if math.Abs(x2-x0) > 1e-9 || math.Abs(y2-y0) > 1e-9 {
		t.Errorf("round trip landed at (%v,%v), want (%v,%v)", x2, y2, x0, y0)
	}
}

func TestInverseSingular(t *testing.T) {
	h, _ := New(make([]float64, 9))
	if _, err := h.Inverse(); err == nil {
		t.Error("expected error inverting the zero matrix")
	}
}

func TestWarpBytesIdentity(t *testing.T) {
	const w, h = 16, 12
	src := make([]uint8, w*h)
	for i := range src {
		src[i] = uint8(i * 7)
	}
	dst := make([]uint8, w*h)
	if err := WarpBytes(dst, src, w, h, 1, Identity()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(dst, src) {
		t.Error("identity warp changed the plane")
	}
}

func TestWarpBytesTranslation(t *testing.T) {
	const w, h = 16, 12
	src := make([]uint8, w*h)
	src[5*w+4] = 200
	dst := make([]uint8, w*h)
	if err := WarpBytes(dst, src, w, h, 1, translation(3, 2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst[7*w+7] != 200 {
		t.Errorf("translated pixel = %d at (7,7), want 200", dst[7*w+7])
	}
	// The uncovered strip fills with zero.
	for y := 0; y < h; y++ {
		for x := 0; x < 3; x++ {
			if dst[y*w+x] != 0 {
				t.Fatalf("uncovered pixel (%d,%d) = %d, want 0", x, y, dst[y*w+x])
			}
		}
	}
}

func TestWarpFloatsAndShortsTranslation(t *testing.T) {
	const w, h = 8, 8
	fsrc := make([]float32, w*h)
	fsrc[3*w+3] = 1.5
	fdst := make([]float32, w*h)
	if err := WarpFloats(fdst, fsrc, w, h, 1, translation(1, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fdst[3*w+4] != 1.5 {
		t.Errorf("float at (4,3) = %v, want 1.5", fdst[3*w+4])
	}

	ssrc := make([]uint16, w*h*3)
	ssrc[(3*w+3)*3+1] = 0xabcd
	sdst := make([]uint16, w*h*3)
	if err := WarpUint16(sdst, ssrc, w, h, 3, translation(1, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sdst[(3*w+4)*3+1] != 0xabcd {
		t.Errorf("descriptor at (4,3) = %#x, want 0xabcd", sdst[(3*w+4)*3+1])
	}
}
