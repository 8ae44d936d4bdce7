/*
DESCRIPTION
  Background sample model: N parallel colour+descriptor planes per
  pixel, the stochastic refresh that rewrites slots from neighbouring
  background pixels, and the averaged background reconstructions.

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

import "github.com/pkg/errors"

// Refresh rewrites a fraction of every relevant pixel's sample slots
// with samples drawn from random neighbours. Pixels currently masked
// foreground are left alone unless forceFG is set; likewise foreground
// neighbours are not sampled. Refresh(1, true) reseeds the entire model
// from the last seen frame.
func (s *Subtractor) Refresh(fraction float64, forceFG bool) error {
	if !s.initialized {
		return errors.New("engine not initialized")
	}
	if fraction <= 0 || fraction > 1 {
		return errors.Errorf("refresh fraction %v outside (0,1]", fraction)
	}
	n := s.nSamples
	if fraction < 1 {
		n = int(fraction * float64(s.nSamples))
	}
	start := 0
	if fraction < 1 {
		start = s.rng.Intn(s.nSamples)
	}
	for _, px := range s.pxIdx {
		if !forceFG && s.lastFG[px] != 0 {
			continue
		}
		info := s.pxInfo[px]
		for k := start; k < start+n; k++ {
			sx, sy := s.rng.SamplePosition(info.x, info.y, patchBorder, s.w, s.h)
			spx := sy*s.w + sx
			if !forceFG && s.lastFG[spx] != 0 {
				continue
			}
			s.copySample(k%s.nSamples, px, spx)
		}
	}
	return nil
}

// copySample overwrites slot of pixel px with the last seen colour and
// descriptor at pixel from.
func (s *Subtractor) copySample(slot, px, from int) {
	c := s.channels
	copy(s.sampleColor[slot][px*c:(px+1)*c], s.lastColor[from*c:(from+1)*c])
	copy(s.sampleDesc[slot][px*c:(px+1)*c], s.lastDesc[from*c:(from+1)*c])
}

// putSample stores the given colour and descriptors into slot of pixel
// px.
func (s *Subtractor) putSample(slot, px int, color []uint8, desc []uint16) {
	c := s.channels
	copy(s.sampleColor[slot][px*c:(px+1)*c], color)
	copy(s.sampleDesc[slot][px*c:(px+1)*c], desc)
}

// BackgroundImage writes the per-pixel mean of the sample colours into
// dst, which must hold w*h*channels bytes.
func (s *Subtractor) BackgroundImage(dst []uint8) error {
	if !s.initialized {
		return errors.New("engine not initialized")
	}
	nc := s.totPx * s.channels
	if len(dst) != nc {
		return errors.Errorf("destination is %d bytes, want %d", len(dst), nc)
	}
	acc := make([]float64, nc)
	for slot := 0; slot < s.nSamples; slot++ {
		p := s.sampleColor[slot]
		for i := 0; i < nc; i++ {
			acc[i] += float64(p[i])
		}
	}
	for i := 0; i < nc; i++ {
		dst[i] = uint8(acc[i]/float64(s.nSamples) + 0.5)
	}
	return nil
}

// BackgroundDescriptors writes the per-pixel mean of the sample
// descriptors into dst, which must hold w*h*channels values.
func (s *Subtractor) BackgroundDescriptors(dst []uint16) error {
	if !s.initialized {
		return errors.New("engine not initialized")
	}
	nc := s.totPx * s.channels
	if len(dst) != nc {
		return errors.Errorf("destination is %d values, want %d", len(dst), nc)
	}
	acc := make([]float64, nc)
	for slot := 0; slot < s.nSamples; slot++ {
		p := s.sampleDesc[slot]
		for i := 0; i < nc; i++ {
			acc[i] += float64(p[i])
		}
	}
	for i := 0; i < nc; i++ {
		dst[i] = uint16(acc[i]/float64(s.nSamples) + 0.5)
	}
	return nil
}
