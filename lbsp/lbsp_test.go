/*
DESCRIPTION
  lbsp_test.go contains tests for the LBSP descriptor computation and
  the threshold LUT drift behaviour.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package lbsp

import "testing"

// flatImage returns a w*h image of constant intensity v.
func flatImage(w, h int, v uint8) []uint8 {
	img := make([]uint8, w*h)
	for i := range img {
		img[i] = v
	}
	return img
}

func TestGrayscaleFlat(t *testing.T) {
	img := flatImage(9, 9, 100)
	if d := Grayscale(img, 9, 4, 4, 100, 10); d != 0 {
		t.Errorf("flat image descriptor = %#x, want 0", d)
	}
}

func TestGrayscaleSingleBit(t *testing.T) {
	img := flatImage(9, 9, 100)
	// First pattern position is (-1,+1); exceeding the threshold there
	// must set only the top bit.
	img[5*9+3] = 120
	d := Grayscale(img, 9, 4, 4, 100, 10)
	if d != 0x8000 {
		t.Errorf("descriptor = %#x, want 0x8000", d)
	}
	// At threshold exactly, no bit sets.
	img[5*9+3] = 110
	if d := Grayscale(img, 9, 4, 4, 100, 10); d != 0 {
		t.Errorf("descriptor at threshold = %#x, want 0", d)
	}
}

func TestGrayscaleAllBits(t *testing.T) {
	img := flatImage(9, 9, 0)
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			if x != 4 || y != 4 {
				img[y*9+x] = 255
			}
		}
	}
	if d := Grayscale(img, 9, 4, 4, 0, 10); d != 0xffff {
		t.Errorf("descriptor = %#x, want 0xffff", d)
	}
}

func TestSingleColorChannel(t *testing.T) {
	w, h := 9, 9
	img := make([]uint8, w*h*3)
	for i := 0; i < w*h; i++ {
		img[i*3] = 50
	}
	// Perturb only the green channel of one neighbour.
	img[(5*w+3)*3+1] = 200
	if d := SingleColor(img, w, 3, 4, 4, 0, 50, 10); d != 0 {
		t.Errorf("red channel descriptor = %#x, want 0", d)
	}
	if d := SingleColor(img, w, 3, 4, 4, 1, 0, 10); d != 0x8000 {
		t.Errorf("green channel descriptor = %#x, want 0x8000", d)
	}
}

func TestThresholdLUT(t *testing.T) {
	tests := []struct {
		offset   int
		rel      float64
		channels int
		in       uint8
		want     uint8
	}{
		{0, 0.333, 3, 100, 33},
		{0, 0.333, 1, 100, 11},
		{0, 0.333, 3, 0, 0},
		{5, 0.5, 3, 255, 133},
		{0, 2.0, 3, 200, 255}, // saturates
	}
	for _, tt := range tests {
		l := NewThresholdLUT(tt.offset, tt.rel, tt.channels)
		if got := l[tt.in]; got != tt.want {
			t.Errorf("LUT(offset=%d,rel=%v,ch=%d)[%d] = %d, want %d",
				tt.offset, tt.rel, tt.channels, tt.in, got, tt.want)
		}
	}
}

func TestThresholdLUTDrift(t *testing.T) {
	orig := NewThresholdLUT(0, 0.333, 3)
	l := orig

	// Drifting down converges on the relaxed floor; entries already at
	// or below it never move.
	for i := 0; i < 300; i++ {
		l.DriftDown(0, 0.333)
	}
	for v := 0; v < 256; v++ {
		want := orig[v]
		if floor := sat8(ceilQuarter(v, 0.333)); want > floor {
			want = floor
		}
		if l[v] != want {
			t.Fatalf("entry %d drifted to %d, want %d", v, l[v], want)
		}
	}

	// Drifting up converges on the ceiling.
	for i := 0; i < 300; i++ {
		l.DriftUp(0, 0.333)
	}
	ceil := sat8(255 * 0.333)
	for v := 0; v < 256; v++ {
		if l[v] != ceil {
			t.Fatalf("entry %d drifted to %d, want ceiling %d", v, l[v], ceil)
		}
	}
}

func ceilQuarter(v int, rel float64) float64 {
	q := float64(v) * rel / 4
	if q != float64(int(q)) {
		return float64(int(q) + 1)
	}
	return q
}

func TestValidateROI(t *testing.T) {
	w, h := 8, 6
	roi := flatImage(w, h, 255)
	ValidateROI(roi, w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			interior := x >= 2 && x < w-2 && y >= 2 && y < h-2
			if (roi[y*w+x] != 0) != interior {
				t.Errorf("ROI at (%d,%d) = %d, interior %v", x, y, roi[y*w+x], interior)
			}
		}
	}
}
