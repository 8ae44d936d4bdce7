/*
DESCRIPTION
  Binary mask morphology: 3x3 erode/dilate/close, corner flood fill,
  and an odd-kernel majority (median) filter. Masks are flat row-major
  byte planes holding 0 or 255. Samples outside the frame replicate the
  nearest edge pixel.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>
  Scott Barnard <scott@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package morph implements the binary mask morphology used to clean up
// raw segmentation output.
package morph

// Dilate3x3 writes into dst the n-times 3x3 rectangular dilation of
// src. dst and src must not alias and must both be w*h bytes.
func Dilate3x3(dst, src []uint8, w, h, n int) {
	tmp := make([]uint8, w*h)
	copy(tmp, src)
	for i := 0; i < n; i++ {
		pass(dst, tmp, w, h, maxAt)
		copy(tmp, dst)
	}
	if n == 0 {
		copy(dst, src)
	}
}

// Erode3x3 writes into dst the n-times 3x3 rectangular erosion of src.
func Erode3x3(dst, src []uint8, w, h, n int) {
	tmp := make([]uint8, w*h)
	copy(tmp, src)
	for i := 0; i < n; i++ {
		pass(dst, tmp, w, h, minAt)
		copy(tmp, dst)
	}
	if n == 0 {
		copy(dst, src)
	}
}

// Close3x3 writes into dst the 3x3 closing (dilation then erosion) of
// src.
func Close3x3(dst, src []uint8, w, h int) {
	tmp := make([]uint8, w*h)
	pass(tmp, src, w, h, maxAt)
	pass(dst, tmp, w, h, minAt)
}

// FloodFill paints val over the 4-connected component of mask that
// contains (x,y), matching the component's original value.
func FloodFill(mask []uint8, w, h, x, y int, val uint8) {
	seed := mask[y*w+x]
	if seed == val {
		return
	}
	stack := make([][2]int, 0, w+h)
	stack = append(stack, [2]int{x, y})
	mask[y*w+x] = val
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		px, py := p[0], p[1]
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := px+d[0], py+d[1]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			if mask[ny*w+nx] == seed {
				mask[ny*w+nx] = val
				stack = append(stack, [2]int{nx, ny})
			}
		}
	}
}

// Invert flips every byte of mask between 0 and 255.
func Invert(mask []uint8) {
	for i := range mask {
		mask[i] = ^mask[i]
	}
}

// MedianBinary writes into dst the k x k majority filter of the binary
// mask src; k must be odd. dst and src must not alias.
func MedianBinary(dst, src []uint8, w, h, k int) {
	r := k / 2
	half := k * k / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			set := 0
			for dy := -r; dy <= r; dy++ {
				sy := clampi(y+dy, 0, h-1)
				for dx := -r; dx <= r; dx++ {
					sx := clampi(x+dx, 0, w-1)
					if src[sy*w+sx] != 0 {
						set++
					}
				}
			}
			if set > half {
				dst[y*w+x] = 255
			} else {
				dst[y*w+x] = 0
			}
		}
	}
}

func pass(dst, src []uint8, w, h int, f func([]uint8, int, int, int, int) uint8) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst[y*w+x] = f(src, w, h, x, y)
		}
	}
}

func maxAt(src []uint8, w, h, x, y int) uint8 {
	var m uint8
	for dy := -1; dy <= 1; dy++ {
		sy := clampi(y+dy, 0, h-1)
		for dx := -1; dx <= 1; dx++ {
			if v := src[sy*w+clampi(x+dx, 0, w-1)]; v > m {
				m = v
			}
		}
	}
	return m
}

func minAt(src []uint8, w, h, x, y int) uint8 {
	m := uint8(255)
	for dy := -1; dy <= 1; dy++ {
		sy := clampi(y+dy, 0, h-1)
		for dx := -1; dx <= 1; dx++ {
			if v := src[sy*w+clampi(x+dx, 0, w-1)]; v < m {
				m = v
			}
		}
	}
	return m
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
