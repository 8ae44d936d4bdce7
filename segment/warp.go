/*
DESCRIPTION
  Model warping for camera motion. When the external motion compensator
  supplies a homography, every internal plane is warped with it, then
  pixels the warp left uninitialised (their update rate fell below the
  lower cap) are rebuilt from the new frame: descriptors recomputed,
  feedback reset, and sample banks reseeded from non-foreground
  neighbours.

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

package segment

import (
	"github.com/pkg/errors"

	"github.com/ausocean/seg/lbsp"
	"github.com/ausocean/seg/xform"
)

// Warp applies hom to the whole internal model and repairs pixels the
// warp uncovered, reading fresh observations from newFrame. The last
// colour cache is replaced by newFrame wholesale.
func (s *Subtractor) Warp(newFrame []uint8, hom xform.Homography) error {
	if !s.initialized {
		return errors.New("engine not initialized")
	}
	if len(newFrame) != s.totPx*s.channels {
		return errors.Errorf("frame is %d bytes, want %d", len(newFrame), s.totPx*s.channels)
	}

	copy(s.lastColor, newFrame)
	if err := s.warpAll(hom); err != nil {
		return err
	}
	s.repairUncovered(newFrame)
	return nil
}

func (s *Subtractor) warpAll(hom xform.Homography) error {
	w, h, ch := s.w, s.h, s.channels

	if err := s.warpShorts(s.lastDesc, w, h, ch, hom); err != nil {
		return err
	}
	for slot := 0; slot < s.nSamples; slot++ {
		if err := s.warpBytes(s.sampleColor[slot], w, h, ch, hom); err != nil {
			return err
		}
		if err := s.warpShorts(s.sampleDesc[slot], w, h, ch, hom); err != nil {
			return err
		}
	}

	floats := [][]float32{
		s.updateRate, s.distThreshold, s.variation, s.meanLastDist,
		s.meanMinDistLT, s.meanMinDistST, s.meanRawSegmLT, s.meanRawSegmST,
		s.meanFinalSegmLT, s.meanFinalSegmST,
	}
	for _, f := range floats {
		if err := s.warpFloats(f, w, h, 1, hom); err != nil {
			return err
		}
	}

	masks := [][]uint8{
		s.lastFG, s.unstable, s.blinks, s.lastRawFG,
		s.fgPreFlood, s.fgFloodedHoles, s.lastFGDilated, s.lastFGDilatedInv,
		s.currRawBlink, s.lastRawBlink,
	}
	for _, m := range masks {
		if err := s.warpBytes(m, w, h, 1, hom); err != nil {
			return err
		}
	}

	// Downsampled analysis planes warp at their own scale.
	if err := s.warpBytes(s.downFrame, s.downW, s.downH, ch, hom); err != nil {
		return err
	}
	if err := s.warpFloats(s.downLT, s.downW, s.downH, ch, hom); err != nil {
		return err
	}
	return s.warpFloats(s.downST, s.downW, s.downH, ch, hom)
}

// repairUncovered reinitialises every relevant pixel whose update rate
// was zeroed by the warp.
func (s *Subtractor) repairUncovered(newFrame []uint8) {
	w, h := s.w, s.h
	for _, px := range s.pxIdx {
		if s.updateRate[px] >= s.tLower {
			continue
		}
		info := s.pxInfo[px]
		if s.channels == 1 {
			v := newFrame[px]
			s.lastDesc[px] = lbsp.Grayscale(newFrame, w, info.x, info.y, v, s.lut[v])
		} else {
			i := px * 3
			ts := [3]uint8{s.lut[newFrame[i]], s.lut[newFrame[i+1]], s.lut[newFrame[i+2]]}
			lbsp.Color(newFrame, w, info.x, info.y, newFrame[i:i+3], ts, s.lastDesc[i:i+3])
		}
		s.updateRate[px] = s.tLower
		s.distThreshold[px] = 1
		s.variation[px] = 10
		for slot := 0; slot < s.nSamples; slot++ {
			sx, sy := s.rng.SamplePosition(info.x, info.y, patchBorder, w, h)
			spx := sy*w + sx
			if s.lastFG[spx] == 0 {
				s.copySample(slot, px, spx)
			}
		}
	}
}

func (s *Subtractor) warpBytes(p []uint8, w, h, ch int, hom xform.Homography) error {
	tmp := s.scratchBytes[:w*h*ch]
	if err := xform.WarpBytes(tmp, p[:w*h*ch], w, h, ch, hom); err != nil {
		return errors.Wrap(err, "byte plane warp")
	}
	copy(p, tmp)
	return nil
}

func (s *Subtractor) warpShorts(p []uint16, w, h, ch int, hom xform.Homography) error {
	tmp := s.scratchShorts[:w*h*ch]
	if err := xform.WarpUint16(tmp, p[:w*h*ch], w, h, ch, hom); err != nil {
		return errors.Wrap(err, "descriptor plane warp")
	}
	copy(p, tmp)
	return nil
}

func (s *Subtractor) warpFloats(p []float32, w, h, ch int, hom xform.Homography) error {
	tmp := s.scratchFloats[:w*h*ch]
	if err := xform.WarpFloats(tmp, p[:w*h*ch], w, h, ch, hom); err != nil {
		return errors.Wrap(err, "float plane warp")
	}
	copy(p, tmp)
	return nil
}
