/*
DESCRIPTION
  Mask completion: morphological cleanup of the raw foreground mask
  (close, hole flood fill, pre-flood erosion, median, dilation) and the
  patch-level graph-cut smoothing entry point.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package segment

import (
	"github.com/pkg/errors"

	"github.com/ausocean/seg/graphcut"
	"github.com/ausocean/seg/morph"
)

// Complete cleans the raw mask in place: close small gaps, fill closed
// interior holes, union with the eroded closed mask, median filter, and
// refresh the dilated companion buffer that suppresses blinks.
func (s *Subtractor) Complete(fg []uint8) error {
	if !s.initialized {
		return errors.New("engine not initialized")
	}
	if len(fg) != s.totPx {
		return errors.Errorf("mask is %d bytes, want %d", len(fg), s.totPx)
	}
	w, h := s.w, s.h

	morph.Close3x3(s.fgPreFlood, fg, w, h)
	copy(s.fgFloodedHoles, s.fgPreFlood)
	morph.FloodFill(s.fgFloodedHoles, w, h, 0, 0, 255)
	morph.Invert(s.fgFloodedHoles)
	morph.Erode3x3(s.scratchMask, s.fgPreFlood, w, h, 3)
	copy(s.fgPreFlood, s.scratchMask)
	for i := range fg {
		fg[i] |= s.fgFloodedHoles[i] | s.fgPreFlood[i]
	}
	morph.MedianBinary(s.lastFG, fg, w, h, s.medianKernel)
	morph.Dilate3x3(s.lastFGDilated, s.lastFG, w, h, 3)

	// Suppress blinks under the stale dilated mask, then the fresh one.
	for i := range s.blinks {
		s.blinks[i] &= s.lastFGDilatedInv[i]
	}
	for i := range s.lastFGDilatedInv {
		s.lastFGDilatedInv[i] = ^s.lastFGDilated[i]
	}
	for i := range s.blinks {
		s.blinks[i] &= s.lastFGDilatedInv[i]
	}

	copy(fg, s.lastFG)
	return nil
}

// GraphCutSmooth refines the mask in place with patch-level min-cut
// labelling over the image, optionally blending in a patch-distance
// advisory map and the previous mask first.
func (s *Subtractor) GraphCutSmooth(image, advisory, lastMask, fg []uint8) error {
	if !s.initialized {
		return errors.New("engine not initialized")
	}
	if len(image) != s.totPx*s.channels {
		return errors.Errorf("image is %d bytes, want %d", len(image), s.totPx*s.channels)
	}
	if len(fg) != s.totPx {
		return errors.Errorf("mask is %d bytes, want %d", len(fg), s.totPx)
	}
	if advisory != nil && len(advisory) != s.totPx {
		return errors.Errorf("advisory map is %d bytes, want %d", len(advisory), s.totPx)
	}
	if lastMask != nil && len(lastMask) != s.totPx {
		return errors.Errorf("previous mask is %d bytes, want %d", len(lastMask), s.totPx)
	}
	graphcut.Smooth(image, s.channels, s.w, s.h, advisory, lastMask, fg, s.patchSize)
	return nil
}
