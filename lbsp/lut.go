/*
DESCRIPTION
  Per-intensity threshold lookup table for LBSP comparisons, with the
  drift operations that let an engine relax or tighten its descriptors
  when they saturate or wash out.

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

import "math"

// ThresholdLUT maps a reference intensity to the comparison threshold
// used when computing its descriptor.
type ThresholdLUT [256]uint8

// NewThresholdLUT builds the table for the given base offset and
// relative threshold slope. Grayscale tables are scaled down by three
// since a single channel carries the whole comparison.
func NewThresholdLUT(offset int, rel float64, channels int) ThresholdLUT {
	var l ThresholdLUT
	for t := 0; t < 256; t++ {
		v := float64(offset) + float64(t)*rel
		if channels == 1 {
			v /= 3
		}
		l[t] = sat8(v)
	}
	return l
}

// DriftDown decrements each entry still above its relaxed floor,
// loosening descriptors that have stopped registering texture.
func (l *ThresholdLUT) DriftDown(offset int, rel float64) {
	for t := 0; t < 256; t++ {
		if l[t] > sat8(float64(offset)+math.Ceil(float64(t)*rel/4)) {
			l[t]--
		}
	}
}

// DriftUp increments each entry still below its ceiling, tightening
// descriptors that fire on too many comparisons.
func (l *ThresholdLUT) DriftUp(offset int, rel float64) {
	for t := 0; t < 256; t++ {
		if l[t] < sat8(float64(offset)+255*rel) {
			l[t]++
		}
	}
}

func sat8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}
