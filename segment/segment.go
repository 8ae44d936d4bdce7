/*
DESCRIPTION
  Per-pixel adaptive background/foreground segmentation engine. Every
  pixel inside a region of interest carries a bank of colour+descriptor
  background samples and a set of feedback fields that mutually regulate
  detection sensitivity and learning speed. Each processed frame yields
  a binary foreground mask.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>
  Russell Stanley <russell@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package segment implements per-pixel adaptive background subtraction
// for video from moving cameras.
package segment

import (
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/ausocean/seg/lbsp"
	"github.com/ausocean/seg/sampler"
	"github.com/ausocean/seg/segment/config"
)

// Reference frame size below which frame-level analysis is not worth
// running (QVGA).
const (
	defaultFrameWidth  = 320
	defaultFrameHeight = 240
)

// Smallest mask median filter kernel; grows with resolution up to 13.
const defaultMedianBlurKernelSize = 3

// patchBorder is the frame border inside which no descriptor exists.
const patchBorder = lbsp.PatchSize / 2

// pxInfo caches the coordinates and model index of a relevant pixel.
type pxInfo struct {
	x, y  int
	model int
}

// Subtractor is a background segmentation engine. It is not safe for
// concurrent use; all state is owned by the engine between Initialize
// and the end of its life.
type Subtractor struct {
	cfg config.Config
	log logging.Logger
	rng *sampler.Source

	w, h, channels int
	totPx, relPx   int

	roi    []uint8
	pxIdx  []int
	pxInfo []pxInfo

	lut lbsp.ThresholdLUT

	// Per-pixel feedback fields.
	updateRate      []float32
	distThreshold   []float32
	variation       []float32
	meanLastDist    []float32
	meanMinDistLT   []float32
	meanMinDistST   []float32
	meanRawSegmLT   []float32
	meanRawSegmST   []float32
	meanFinalSegmLT []float32
	meanFinalSegmST []float32

	// Downsampled planes for frame-level motion analysis.
	downW, downH int
	downFrame    []uint8
	downLT       []float32
	downST       []float32

	// Last-seen caches and masks.
	lastColor        []uint8
	lastDesc         []uint16
	lastRawFG        []uint8
	lastFG           []uint8
	lastFGDilated    []uint8
	lastFGDilatedInv []uint8
	fgFloodedHoles   []uint8
	fgPreFlood       []uint8
	currRawBlink     []uint8
	lastRawBlink     []uint8
	blinks           []uint8
	unstable         []uint8

	// Background sample banks, one plane per slot.
	sampleColor [][]uint8
	sampleDesc  [][]uint16

	// Scratch planes reused by warping and morphology.
	scratchBytes  []uint8
	scratchShorts []uint16
	scratchFloats []float32
	scratchMask   []uint8

	nSamples   int
	reqSamples int
	avgSamples int

	minColorDist    int
	stabColorOffset int
	descDistOffset  int
	unstabDescOff   int
	patchSize       int

	frameIndex           int
	framesSinceLastReset int
	modelResetCooldown   int
	lastNonZeroDescRatio float32

	learningRateScaling bool
	autoReset           bool
	use3x3Spread        bool
	medianKernel        int
	tLower, tUpper      float32

	initialized bool
}

// New returns an engine for the given validated config.
func New(c config.Config) (*Subtractor, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Subtractor{
		cfg:             c,
		log:             c.Logger,
		rng:             sampler.New(c.Seed),
		nSamples:        int(c.BGSamples),
		reqSamples:      int(c.RequiredBGSamples),
		avgSamples:      int(c.SamplesForMovingAvgs),
		minColorDist:    int(c.MinColorDistThreshold),
		stabColorOffset: int(c.MinColorDistThreshold) / 5,
		descDistOffset:  int(c.DescDistThresholdOffset),
		unstabDescOff:   int(c.DescDistThresholdOffset),
		patchSize:       int(c.GraphCutPatchSize),
	}, nil
}

// Initialize validates the first frame and optional ROI, allocates all
// model state, and seeds the sample banks from the frame. The frame is
// w x h with channels interleaved bytes; channels must be 1 or 3. A nil
// roi means the whole frame is relevant.
func (s *Subtractor) Initialize(frame []uint8, w, h, channels int, roi []uint8) error {
	if w <= 0 || h <= 0 || len(frame) == 0 {
		return errors.New("empty frame")
	}
	if channels != 1 && channels != 3 {
		return errors.Errorf("unsupported channel count %d", channels)
	}
	if len(frame) != w*h*channels {
		return errors.Errorf("frame is %d bytes, want %d", len(frame), w*h*channels)
	}
	if channels == 3 && isGrayscale(frame) {
		s.log.Warning("grayscale frames should be passed single-channel")
	}

	s.w, s.h, s.channels = w, h, channels
	s.totPx = w * h

	if err := s.buildROI(roi); err != nil {
		return err
	}

	s.frameIndex = 0
	s.framesSinceLastReset = 0
	s.modelResetCooldown = 0
	s.lastNonZeroDescRatio = 0

	s.allocate()
	s.lut = lbsp.NewThresholdLUT(int(s.cfg.LBSPThresholdOffset), s.cfg.RelLBSPThreshold, channels)

	// Pack the relevant pixels contiguously and seed the last-seen
	// caches from the first frame.
	s.pxIdx = make([]int, 0, s.relPx)
	s.pxInfo = make([]pxInfo, s.totPx)
	for px := 0; px < s.totPx; px++ {
		if s.roi[px] == 0 {
			continue
		}
		x, y := px%w, px/w
		s.pxInfo[px] = pxInfo{x: x, y: y, model: len(s.pxIdx)}
		s.pxIdx = append(s.pxIdx, px)
		if channels == 1 {
			v := frame[px]
			s.lastColor[px] = v
			s.lastDesc[px] = lbsp.Grayscale(frame, w, x, y, v, s.lut[v])
		} else {
			i := px * 3
			ts := [3]uint8{s.lut[frame[i]], s.lut[frame[i+1]], s.lut[frame[i+2]]}
			copy(s.lastColor[i:i+3], frame[i:i+3])
			lbsp.Color(frame, w, x, y, frame[i:i+3], ts, s.lastDesc[i:i+3])
		}
	}

	s.initialized = true
	return s.Refresh(1.0, true)
}

// buildROI derives the final region of interest: the supplied mask is
// expanded by the descriptor window radius, then border pixels that can
// hold no descriptor are cleared. Coverage of the expanded ROI decides
// whether frame-level learning controls are enabled.
func (s *Subtractor) buildROI(roi []uint8) error {
	w, h := s.w, s.h
	final := make([]uint8, s.totPx)
	if roi == nil {
		for i := range final {
			final[i] = 255
		}
	} else {
		if len(roi) != s.totPx {
			return errors.Errorf("ROI is %d bytes, want %d", len(roi), s.totPx)
		}
		for i, v := range roi {
			if v != 0 && v != 255 {
				return errors.New("ROI values must be 0 or 255")
			}
			final[i] = v
		}
		dilateROI(final, w, h, patchBorder)
	}
	origCount := 0
	for _, v := range final {
		if v != 0 {
			origCount++
		}
	}
	if origCount == 0 {
		return errors.New("ROI has no relevant pixels")
	}
	lbsp.ValidateROI(final, w, h)
	s.relPx = 0
	for _, v := range final {
		if v != 0 {
			s.relPx++
		}
	}
	if s.relPx == 0 {
		return errors.New("ROI has no relevant pixels after border validation")
	}
	s.roi = final

	if origCount >= s.totPx/2 && s.totPx >= defaultFrameWidth*defaultFrameHeight {
		s.learningRateScaling = true
		s.autoReset = true
		s.use3x3Spread = s.totPx <= defaultFrameWidth*defaultFrameHeight*2
		raw := int(float64(s.totPx)/(defaultFrameWidth*defaultFrameHeight)+0.5) + defaultMedianBlurKernelSize
		if raw > 14 {
			raw = 14
		}
		if raw%2 == 0 {
			raw--
		}
		s.medianKernel = raw
		s.tLower, s.tUpper = feedbackTLower, feedbackTUpper
	} else {
		s.learningRateScaling = false
		s.autoReset = false
		s.use3x3Spread = true
		s.medianKernel = defaultMedianBlurKernelSize
		s.tLower, s.tUpper = feedbackTLower*2, feedbackTUpper*2
	}
	if s.cfg.MedianBlurKernelSize != 0 {
		s.medianKernel = int(s.cfg.MedianBlurKernelSize)
	}
	return nil
}

func (s *Subtractor) allocate() {
	n, nc := s.totPx, s.totPx*s.channels

	s.updateRate = filled(n, s.tLower)
	s.distThreshold = filled(n, 1)
	s.variation = filled(n, 10)
	s.meanLastDist = make([]float32, n)
	s.meanMinDistLT = make([]float32, n)
	s.meanMinDistST = make([]float32, n)
	s.meanRawSegmLT = make([]float32, n)
	s.meanRawSegmST = make([]float32, n)
	s.meanFinalSegmLT = make([]float32, n)
	s.meanFinalSegmST = make([]float32, n)

	s.downW = s.w / frameLevelDownsampleRatio
	s.downH = s.h / frameLevelDownsampleRatio
	dn := s.downW * s.downH * s.channels
	s.downFrame = make([]uint8, dn)
	s.downLT = make([]float32, dn)
	s.downST = make([]float32, dn)

	s.lastColor = make([]uint8, nc)
	s.lastDesc = make([]uint16, nc)
	s.lastRawFG = make([]uint8, n)
	s.lastFG = make([]uint8, n)
	s.lastFGDilated = make([]uint8, n)
	s.lastFGDilatedInv = make([]uint8, n)
	s.fgFloodedHoles = make([]uint8, n)
	s.fgPreFlood = make([]uint8, n)
	s.currRawBlink = make([]uint8, n)
	s.lastRawBlink = make([]uint8, n)
	s.blinks = make([]uint8, n)
	s.unstable = make([]uint8, n)

	s.sampleColor = make([][]uint8, s.nSamples)
	s.sampleDesc = make([][]uint16, s.nSamples)
	for i := 0; i < s.nSamples; i++ {
		s.sampleColor[i] = make([]uint8, nc)
		s.sampleDesc[i] = make([]uint16, nc)
	}

	s.scratchBytes = make([]uint8, nc)
	s.scratchShorts = make([]uint16, nc)
	s.scratchFloats = make([]float32, nc)
	s.scratchMask = make([]uint8, n)
}

// Width returns the frame width the engine was initialised with.
func (s *Subtractor) Width() int { return s.w }

// Height returns the frame height the engine was initialised with.
func (s *Subtractor) Height() int { return s.h }

// Channels returns the channel count the engine was initialised with.
func (s *Subtractor) Channels() int { return s.channels }

// dilateROI grows the relevant region by n 3x3 dilation passes so that
// descriptor windows near the ROI edge see initialised pixels.
func dilateROI(roi []uint8, w, h, n int) {
	tmp := make([]uint8, len(roi))
	for i := 0; i < n; i++ {
		copy(tmp, roi)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if tmp[y*w+x] != 0 {
					continue
				}
				set := false
				for dy := -1; dy <= 1 && !set; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := x+dx, y+dy
						if nx < 0 || nx >= w || ny < 0 || ny >= h {
							continue
						}
						if tmp[ny*w+nx] != 0 {
							set = true
							break
						}
					}
				}
				if set {
					roi[y*w+x] = 255
				}
			}
		}
	}
}

func isGrayscale(frame []uint8) bool {
	for i := 0; i+2 < len(frame); i += 3 {
		if frame[i] != frame[i+1] || frame[i+1] != frame[i+2] {
			return false
		}
	}
	return true
}

func filled(n int, v float32) []float32 {
	f := make([]float32, n)
	for i := range f {
		f[i] = v
	}
	return f
}
