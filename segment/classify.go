/*
DESCRIPTION
  The per-pixel classification hot loop. Each relevant pixel is matched
  against its background samples on colour distance, descriptor Hamming
  distance and a combined score, short-circuiting as soon as enough
  samples agree. Match outcomes drive the model updates, the stochastic
  neighbour spread and the feedback controller. Monomorphised loops
  handle the single and three channel cases.

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

import (
	"math"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/ausocean/seg/lbsp"
)

// Normalisation ranges for colour and descriptor distances.
const (
	colorMaxRange1 = 255
	descMaxRange1  = lbsp.DescBits
	colorMaxRange3 = colorMaxRange1 * 3
	descMaxRange3  = descMaxRange1 * 3
)

// Process classifies one frame, writing 0 or 255 per pixel into fg.
// A positive learningRateOverride replaces the per-pixel update rate
// when deciding whether to absorb background samples.
func (s *Subtractor) Process(frame, fg []uint8, learningRateOverride float64) error {
	if !s.initialized {
		return errors.New("engine not initialized")
	}
	if len(frame) != s.totPx*s.channels {
		return errors.Errorf("frame is %d bytes, want %d", len(frame), s.totPx*s.channels)
	}
	if len(fg) != s.totPx {
		return errors.Errorf("mask is %d bytes, want %d", len(fg), s.totPx)
	}
	for i := range fg {
		fg[i] = 0
	}

	s.frameIndex++
	fLT := 1 / float32(minInt(s.frameIndex, s.avgSamples))
	fST := 1 / float32(minInt(s.frameIndex, s.avgSamples/4))

	var nonZeroDesc int
	if s.channels == 1 {
		nonZeroDesc = s.processGray(frame, fg, learningRateOverride, fLT, fST)
	} else {
		nonZeroDesc = s.processColor(frame, fg, learningRateOverride, fLT, fST)
	}

	s.analyzeFrame(frame, fg, nonZeroDesc, fLT, fST)
	return nil
}

func (s *Subtractor) processGray(frame, fg []uint8, override float64, fLT, fST float32) int {
	w := s.w
	nonZero := 0
	for _, px := range s.pxIdx {
		curr := frame[px]
		if curr == 0 && !s.cfg.ProcessZeroPixels {
			// Zeroed by the motion compensator; no valid observation.
			continue
		}
		info := s.pxInfo[px]
		x, y := info.x, info.y

		minDescDist := descMaxRange1
		minSumDist := colorMaxRange1
		wasUnstable := s.unstable[px] != 0

		colorThr := int(s.distThreshold[px] * float32(s.minColorDist))
		if !wasUnstable {
			colorThr -= s.stabColorOffset
		}
		if !s.cfg.DisableGrayscaleThresholdHalving {
			colorThr /= 2
		}
		descThr := 1<<uint(math.Floor(float64(s.distThreshold[px])+0.5)) + s.descDistOffset
		if wasUnstable {
			descThr += s.unstabDescOff
		}

		currIntra := lbsp.Grayscale(frame, w, x, y, curr, s.lut[curr])
		s.updateUnstable(px)

		matches, si := 0, 0
		for matches < s.reqSamples && si < s.nSamples {
			bgColor := s.sampleColor[si][px]
			colorDist := l1dist(curr, bgColor)
			if colorDist <= colorThr {
				bgIntra := s.sampleDesc[si][px]
				interDesc := lbsp.Grayscale(frame, w, x, y, bgColor, s.lut[bgColor])
				descDist := (hdist(currIntra, bgIntra) + hdist(interDesc, bgIntra)) / 2
				if descDist <= descThr {
					sumDist := minInt(descDist/4*(colorMaxRange1/descMaxRange1)+colorDist, colorMaxRange1)
					if sumDist <= colorThr {
						if minDescDist > descDist {
							minDescDist = descDist
						}
						if minSumDist > sumDist {
							minSumDist = sumDist
						}
						matches++
					}
				}
			}
			si++
		}

		lastDist := (float32(l1dist(curr, s.lastColor[px]))/colorMaxRange1 +
			float32(hdist(currIntra, s.lastDesc[px]))/descMaxRange1) / 2
		s.meanLastDist[px] = s.meanLastDist[px]*(1-fST) + lastDist*fST

		currFG := matches < s.reqSamples
		if currFG {
			normMin := minf(1, (float32(minSumDist)/colorMaxRange1+float32(minDescDist)/descMaxRange1)/2+
				float32(s.reqSamples-matches)/float32(s.reqSamples))
			s.emaMinDist(px, normMin, fLT, fST)
			s.meanRawSegmLT[px] = s.meanRawSegmLT[px]*(1-fLT) + fLT
			s.meanRawSegmST[px] = s.meanRawSegmST[px]*(1-fST) + fST
			fg[px] = 255
			if s.modelResetCooldown > 0 && s.rng.Intn(feedbackTLower) == 0 {
				slot := s.rng.Intn(s.nSamples)
				s.sampleDesc[slot][px] = currIntra
				s.sampleColor[slot][px] = curr
			}
		} else {
			normMin := (float32(minSumDist)/colorMaxRange1 + float32(minDescDist)/descMaxRange1) / 2
			s.emaMinDist(px, normMin, fLT, fST)
			s.meanRawSegmLT[px] = s.meanRawSegmLT[px] * (1 - fLT)
			s.meanRawSegmST[px] = s.meanRawSegmST[px] * (1 - fST)
			lr := s.learningRate(px, override)
			if s.rng.Intn(lr) == 0 {
				slot := s.rng.Intn(s.nSamples)
				s.sampleDesc[slot][px] = currIntra
				s.sampleColor[slot][px] = curr
			}
			npx, spread3 := s.spreadTarget(x, y, px)
			mod := lr
			if !spread3 {
				mod = lr/2 + 1
			}
			nRand := s.rng.Int()
			if nRand%mod == 0 ||
				(s.meanRawSegmST[npx] > ghostDetSMin && s.meanLastDist[npx] < ghostDetDMax &&
					nRand%int(s.tLower) == 0) {
				slot := s.rng.Intn(s.nSamples)
				s.sampleDesc[slot][npx] = currIntra
				s.sampleColor[slot][npx] = curr
			}
		}

		s.updateFeedback(px, currFG)

		if bits.OnesCount16(currIntra) >= 2 {
			nonZero++
		}
		s.lastDesc[px] = currIntra
		s.lastColor[px] = curr
	}
	return nonZero
}

func (s *Subtractor) processColor(frame, fg []uint8, override float64, fLT, fST float32) int {
	w := s.w
	nonZero := 0
	var currIntra, interDesc [3]uint16
	for _, px := range s.pxIdx {
		ci := px * 3
		curr := frame[ci : ci+3]
		if curr[0] == 0 && curr[1] == 0 && curr[2] == 0 && !s.cfg.ProcessZeroPixels {
			continue
		}
		info := s.pxInfo[px]
		x, y := info.x, info.y

		minTotDescDist := descMaxRange3
		minTotSumDist := colorMaxRange3
		wasUnstable := s.unstable[px] != 0

		baseThr := int(s.distThreshold[px] * float32(s.minColorDist))
		if !wasUnstable {
			baseThr -= s.stabColorOffset
		}
		descThr := 1<<uint(math.Floor(float64(s.distThreshold[px])+0.5)) + s.descDistOffset
		if wasUnstable {
			descThr += s.unstabDescOff
		}
		totColorThr := baseThr * 3
		totDescThr := descThr * 3
		scColorThr := totColorThr / 2

		ts := [3]uint8{s.lut[curr[0]], s.lut[curr[1]], s.lut[curr[2]]}
		lbsp.Color(frame, w, x, y, curr, ts, currIntra[:])
		s.updateUnstable(px)

		matches, si := 0, 0
		for matches < s.reqSamples && si < s.nSamples {
			bgColor := s.sampleColor[si][ci : ci+3]
			bgIntra := s.sampleDesc[si][ci : ci+3]
			totDescDist := 0
			totSumDist := 0
			ok := true
			for c := 0; c < 3; c++ {
				colorDist := l1dist(curr[c], bgColor[c])
				if colorDist > scColorThr {
					ok = false
					break
				}
				interDesc[c] = lbsp.SingleColor(frame, w, 3, x, y, c, bgColor[c], s.lut[bgColor[c]])
				descDist := (hdist(currIntra[c], bgIntra[c]) + hdist(interDesc[c], bgIntra[c])) / 2
				sumDist := minInt(descDist/2*(colorMaxRange1/descMaxRange1)+colorDist, colorMaxRange1)
				if sumDist > scColorThr {
					ok = false
					break
				}
				totDescDist += descDist
				totSumDist += sumDist
			}
			if ok && totDescDist <= totDescThr && totSumDist <= totColorThr {
				if minTotDescDist > totDescDist {
					minTotDescDist = totDescDist
				}
				if minTotSumDist > totSumDist {
					minTotSumDist = totSumDist
				}
				matches++
			}
			si++
		}

		lastDist := (float32(l1dist3(curr, s.lastColor[ci:ci+3]))/colorMaxRange3 +
			float32(hdist3(currIntra[:], s.lastDesc[ci:ci+3]))/descMaxRange3) / 2
		s.meanLastDist[px] = s.meanLastDist[px]*(1-fST) + lastDist*fST

		currFG := matches < s.reqSamples
		if currFG {
			normMin := minf(1, (float32(minTotSumDist)/colorMaxRange3+float32(minTotDescDist)/descMaxRange3)/2+
				float32(s.reqSamples-matches)/float32(s.reqSamples))
			s.emaMinDist(px, normMin, fLT, fST)
			s.meanRawSegmLT[px] = s.meanRawSegmLT[px]*(1-fLT) + fLT
			s.meanRawSegmST[px] = s.meanRawSegmST[px]*(1-fST) + fST
			fg[px] = 255
			if s.modelResetCooldown > 0 && s.rng.Intn(feedbackTLower) == 0 {
				s.putSample(s.rng.Intn(s.nSamples), px, curr, currIntra[:])
			}
		} else {
			normMin := (float32(minTotSumDist)/colorMaxRange3 + float32(minTotDescDist)/descMaxRange3) / 2
			s.emaMinDist(px, normMin, fLT, fST)
			s.meanRawSegmLT[px] = s.meanRawSegmLT[px] * (1 - fLT)
			s.meanRawSegmST[px] = s.meanRawSegmST[px] * (1 - fST)
			lr := s.learningRate(px, override)
			if s.rng.Intn(lr) == 0 {
				s.putSample(s.rng.Intn(s.nSamples), px, curr, currIntra[:])
			}
			npx, spread3 := s.spreadTarget(x, y, px)
			mod := lr
			if !spread3 {
				mod = lr/2 + 1
			}
			nRand := s.rng.Int()
			if nRand%mod == 0 ||
				(s.meanRawSegmST[npx] > ghostDetSMin && s.meanLastDist[npx] < ghostDetDMax &&
					nRand%int(s.tLower) == 0) {
				s.putSample(s.rng.Intn(s.nSamples), npx, curr, currIntra[:])
			}
		}

		s.updateFeedback(px, currFG)

		if bits.OnesCount16(currIntra[0])+bits.OnesCount16(currIntra[1])+bits.OnesCount16(currIntra[2]) >= 4 {
			nonZero++
		}
		copy(s.lastDesc[ci:ci+3], currIntra[:])
		copy(s.lastColor[ci:ci+3], curr)
	}
	return nonZero
}

// updateUnstable refreshes the unstable-region bit for px from the
// current distance threshold and the raw/final segmentation gap.
func (s *Subtractor) updateUnstable(px int) {
	if s.distThreshold[px] > unstableRegRDistMin ||
		s.meanRawSegmLT[px]-s.meanFinalSegmLT[px] > unstableRegRatioMin ||
		s.meanRawSegmST[px]-s.meanFinalSegmST[px] > unstableRegRatioMin {
		s.unstable[px] = 1
	} else {
		s.unstable[px] = 0
	}
}

// learningRate resolves the integer sample absorption period for px.
func (s *Subtractor) learningRate(px int, override float64) int {
	if override > 0 {
		return int(math.Ceil(override))
	}
	return int(math.Ceil(float64(s.updateRate[px])))
}

// spreadTarget picks the neighbour receiving this pixel's sample
// spread: 3x3 in stable regions when enabled, 5x5 otherwise.
func (s *Subtractor) spreadTarget(x, y, px int) (int, bool) {
	spread3 := s.use3x3Spread && s.unstable[px] == 0
	var nx, ny int
	if spread3 {
		nx, ny = s.rng.Neighbor3x3(x, y, patchBorder, s.w, s.h)
	} else {
		nx, ny = s.rng.Neighbor5x5(x, y, patchBorder, s.w, s.h)
	}
	return ny*s.w + nx, spread3
}

func (s *Subtractor) emaMinDist(px int, norm, fLT, fST float32) {
	s.meanMinDistLT[px] = s.meanMinDistLT[px]*(1-fLT) + norm*fLT
	s.meanMinDistST[px] = s.meanMinDistST[px]*(1-fST) + norm*fST
}

func l1dist(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func l1dist3(a, b []uint8) int {
	return l1dist(a[0], b[0]) + l1dist(a[1], b[1]) + l1dist(a[2], b[2])
}

func hdist(a, b uint16) int { return bits.OnesCount16(a ^ b) }

func hdist3(a, b []uint16) int {
	return hdist(a[0], b[0]) + hdist(a[1], b[1]) + hdist(a[2], b[2])
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
