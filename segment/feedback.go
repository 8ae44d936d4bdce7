/*
DESCRIPTION
  Per-pixel feedback controller. Three coupled scalar fields evolve from
  each pixel's match outcome: the learning rate divisor T(x), the
  variation modulator V(x), and the distance threshold factor R(x).
  Their intrinsic step parameters are defined here; tuning them should
  not be required in most cases.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package segment

const (
	// Thresholds detecting long-term ghosting, triggering forced sample
	// absorption: negligible inter-frame change and near-saturated
	// foreground output.
	ghostDetDMax = 0.010
	ghostDetSMin = 0.995

	// Step scale for dynamic distance threshold adjustments R(x).
	feedbackRVar = 0.01

	// Variation modulator V(x) step sizes.
	feedbackVIncr = 1.0
	feedbackVDecr = 0.1

	// Learning rate T(x) step sizes and clamp.
	feedbackTDecr  = 0.25
	feedbackTIncr  = 0.5
	feedbackTLower = 2.0
	feedbackTUpper = 256.0

	// Bounds defining unstable regions from segmentation noise and
	// local distance threshold values.
	unstableRegRatioMin = 0.100
	unstableRegRDistMin = 3.000

	// Bounds on the frame-global ratio of non-zero descriptors, outside
	// which the LBSP threshold LUT drifts.
	descNonZeroRatioMin = 0.100
	descNonZeroRatioMax = 0.500

	// Downsampling ratio for frame-level motion analysis.
	frameLevelDownsampleRatio = 8
)

// updateFeedback applies the end-of-pixel feedback rules given whether
// the pixel was just classified foreground. Order matters: T, then V,
// then R.
func (s *Subtractor) updateFeedback(px int, currFG bool) {
	minMean := s.meanMinDistLT[px]
	if s.meanMinDistST[px] < minMean {
		minMean = s.meanMinDistST[px]
	}
	maxMean := s.meanMinDistLT[px]
	if s.meanMinDistST[px] > maxMean {
		maxMean = s.meanMinDistST[px]
	}

	if s.lastFG[px] != 0 || (minMean < unstableRegRatioMin && currFG) {
		if s.updateRate[px] < s.tUpper {
			s.updateRate[px] += feedbackTIncr / (maxMean * s.variation[px])
		}
	} else if s.updateRate[px] > s.tLower {
		s.updateRate[px] -= feedbackTDecr * s.variation[px] / maxMean
	}
	if s.updateRate[px] < s.tLower {
		s.updateRate[px] = s.tLower
	} else if s.updateRate[px] > s.tUpper {
		s.updateRate[px] = s.tUpper
	}

	if maxMean > unstableRegRatioMin && s.blinks[px] != 0 {
		s.variation[px] += feedbackVIncr
	} else if s.variation[px] > feedbackVDecr {
		switch {
		case s.lastFG[px] != 0:
			s.variation[px] -= feedbackVDecr / 4
		case s.unstable[px] != 0:
			s.variation[px] -= feedbackVDecr / 2
		default:
			s.variation[px] -= feedbackVDecr
		}
		if s.variation[px] < feedbackVDecr {
			s.variation[px] = feedbackVDecr
		}
	}

	lim := 1 + minMean*2
	if s.distThreshold[px] < lim*lim {
		s.distThreshold[px] += feedbackRVar * (s.variation[px] - feedbackVDecr)
	} else {
		s.distThreshold[px] -= feedbackRVar / s.variation[px]
		if s.distThreshold[px] < 1 {
			s.distThreshold[px] = 1
		}
	}
}
