/*
DESCRIPTION
  Local binary similarity pattern (LBSP) descriptors. An LBSP descriptor
  is a 16-bit string computed by comparing a reference intensity against
  sixteen neighbours arranged in a double-cross pattern inside a 5x5
  window; bit k is set when the absolute difference for neighbour k
  exceeds a per-intensity threshold.

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

// Package lbsp computes local binary similarity pattern descriptors and
// maintains the per-intensity comparison threshold lookup table they use.
package lbsp

// PatchSize is the side length of the comparison window. Descriptors can
// only be computed for pixels at least PatchSize/2 away from the frame
// border.
const PatchSize = 5

// DescBits is the number of comparison bits per descriptor.
const DescBits = 16

// Double-cross comparison pattern: the inner 3x3 ring occupies the high
// byte, the outer ring at distance two the low byte.
var pattern = [DescBits][2]int{
	{-1, 1}, {1, -1}, {1, 1}, {-1, -1},
	{0, 1}, {-1, 0}, {0, -1}, {1, 0},
	{-2, 2}, {2, -2}, {2, 2}, {-2, -2},
	{0, 2}, {-2, 0}, {0, -2}, {2, 0},
}

// Grayscale computes the descriptor for the single-channel image img of
// width w at (x,y), comparing against the reference intensity ref with
// threshold t. The caller must keep (x,y) inside the PatchSize/2 border.
func Grayscale(img []uint8, w, x, y int, ref, t uint8) uint16 {
	var d uint16
	for k := 0; k < DescBits; k++ {
		n := img[(y+pattern[k][1])*w+x+pattern[k][0]]
		if absdiff(n, ref) > t {
			d |= 1 << (DescBits - 1 - k)
		}
	}
	return d
}

// SingleColor computes the descriptor for channel c of the interleaved
// image img (stride channels bytes per pixel) of width w at (x,y).
func SingleColor(img []uint8, w, channels, x, y, c int, ref, t uint8) uint16 {
	var d uint16
	for k := 0; k < DescBits; k++ {
		n := img[((y+pattern[k][1])*w+x+pattern[k][0])*channels+c]
		if absdiff(n, ref) > t {
			d |= 1 << (DescBits - 1 - k)
		}
	}
	return d
}

// Color computes one descriptor per channel of the 3-channel interleaved
// image img at (x,y), using the per-channel references refs and
// thresholds ts, writing the results into out.
func Color(img []uint8, w, x, y int, refs []uint8, ts [3]uint8, out []uint16) {
	for c := 0; c < 3; c++ {
		out[c] = SingleColor(img, w, 3, x, y, c, refs[c], ts[c])
	}
}

// ValidateROI zeroes every ROI pixel closer than PatchSize/2 to the
// frame border, since no descriptor can be computed there.
func ValidateROI(roi []uint8, w, h int) {
	border := PatchSize / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < border || x >= w-border || y < border || y >= h-border {
				roi[y*w+x] = 0
			}
		}
	}
}

func absdiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
