/*
DESCRIPTION
  Frame-level analysis run after the classification pass: blink buffer
  rotation, post-morphology averages, LBSP threshold drift, and the
  downsampled inter-frame change analysis that rescales the learning
  rate caps and can trigger a partial model reset when the whole view
  shifts.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Russell Stanley <russell@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package segment

import "math"

// Auto model reset disables itself after this many frames without a
// reset, until a large excursion re-arms it.
const autoResetQuietFrames = 1000

// analyzeFrame runs the post-classification frame-level stage.
func (s *Subtractor) analyzeFrame(frame, fg []uint8, nonZeroDesc int, fLT, fST float32) {
	// A blink is a raw bit that flipped since the previous frame.
	for i := range fg {
		s.currRawBlink[i] = fg[i] ^ s.lastRawFG[i]
		s.blinks[i] = s.currRawBlink[i] | s.lastRawBlink[i]
	}
	copy(s.lastRawBlink, s.currRawBlink)
	copy(s.lastRawFG, fg)

	for i := range s.meanFinalSegmLT {
		v := float32(s.lastFG[i]) / 255
		s.meanFinalSegmLT[i] = s.meanFinalSegmLT[i]*(1-fLT) + v*fLT
		s.meanFinalSegmST[i] = s.meanFinalSegmST[i]*(1-fST) + v*fST
	}

	ratio := float32(nonZeroDesc) / float32(s.relPx)
	if ratio < descNonZeroRatioMin && s.lastNonZeroDescRatio < descNonZeroRatioMin {
		s.lut.DriftDown(int(s.cfg.LBSPThresholdOffset), s.cfg.RelLBSPThreshold)
	} else if ratio > descNonZeroRatioMax && s.lastNonZeroDescRatio > descNonZeroRatioMax {
		s.lut.DriftUp(int(s.cfg.LBSPThresholdOffset), s.cfg.RelLBSPThreshold)
	}
	s.lastNonZeroDescRatio = ratio

	if !s.learningRateScaling {
		return
	}

	s.downsample(frame)
	dn := len(s.downLT)
	for i := 0; i < dn; i++ {
		v := float32(s.downFrame[i])
		s.downLT[i] = s.downLT[i]*(1-fLT) + v*fLT
		s.downST[i] = s.downST[i]*(1-fST) + v*fST
	}

	// Truncated per-cell differences, as the distances are byte scaled.
	totDiff := 0
	cells := s.downW * s.downH
	if s.channels == 1 {
		for i := 0; i < cells; i++ {
			totDiff += int(math.Abs(float64(s.downST[i]-s.downLT[i]))) / 2
		}
	} else {
		for i := 0; i < cells; i++ {
			m := 0
			for c := 0; c < 3; c++ {
				d := int(math.Abs(float64(s.downST[i*3+c] - s.downLT[i*3+c])))
				if d > m {
					m = d
				}
			}
			totDiff += m
		}
	}
	colorDiffRatio := float32(totDiff) / float32(cells)
	resetThr := float32(s.minColorDist) / 2

	if s.autoReset {
		switch {
		case s.framesSinceLastReset > autoResetQuietFrames:
			s.autoReset = false
			s.log.Debug("auto model reset disabled after quiet period")
		case colorDiffRatio >= resetThr && s.modelResetCooldown == 0:
			s.framesSinceLastReset = 0
			if err := s.Refresh(0.1, false); err != nil {
				s.log.Error("model refresh failed", "error", err.Error())
			}
			s.modelResetCooldown = s.avgSamples / 4
			for i := range s.updateRate {
				s.updateRate[i] = 1
			}
			s.log.Info("frame-level change triggered model reset", "colorDiffRatio", colorDiffRatio)
		default:
			s.framesSinceLastReset++
		}
	} else if colorDiffRatio >= resetThr*2 {
		s.framesSinceLastReset = 0
		s.autoReset = true
	}

	if colorDiffRatio >= resetThr/2 {
		shift := uint(colorDiffRatio / 2)
		s.tLower = float32(maxInt(int(feedbackTLower)>>shift, 1))
		s.tUpper = float32(maxInt(int(feedbackTUpper)>>shift, 1))
	} else {
		s.tLower, s.tUpper = feedbackTLower, feedbackTUpper
	}
	if s.modelResetCooldown > 0 {
		s.modelResetCooldown--
	}
}

// downsample area-averages the input into the analysis plane, one cell
// per 8x8 block.
func (s *Subtractor) downsample(frame []uint8) {
	w, ch := s.w, s.channels
	for cy := 0; cy < s.downH; cy++ {
		y0, y1 := cy*s.h/s.downH, (cy+1)*s.h/s.downH
		for cx := 0; cx < s.downW; cx++ {
			x0, x1 := cx*w/s.downW, (cx+1)*w/s.downW
			for c := 0; c < ch; c++ {
				sum, n := 0, 0
				for y := y0; y < y1; y++ {
					for x := x0; x < x1; x++ {
						sum += int(frame[(y*w+x)*ch+c])
						n++
					}
				}
				s.downFrame[(cy*s.downW+cx)*ch+c] = uint8((sum + n/2) / n)
			}
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
