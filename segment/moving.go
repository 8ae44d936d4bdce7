/*
DESCRIPTION
  Session wrapper for moving-camera streams. Camera motion estimation is
  an external collaborator: each frame arrives with an optional
  homography describing the camera's movement since the previous frame.
  The wrapper compensates the frame, runs the engine, re-projects the
  mask, engages patch matching and graph-cut smoothing once warmed up,
  warps the model, and completes the mask.

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
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/ausocean/seg/patchmatch"
	"github.com/ausocean/seg/sampler"
	"github.com/ausocean/seg/segment/config"
	"github.com/ausocean/seg/xform"
)

// Frames processed before patch matching/graph-cut smoothing and
// morphological completion engage.
const (
	matchWarmup    = 5
	completeWarmup = 5
)

// Moving drives a Subtractor over a moving-camera stream.
type Moving struct {
	sub *Subtractor
	log logging.Logger
	rng *sampler.Source

	frameIdx  int
	lastFrame []uint8
	lastMask  []uint8
	warped    []uint8
	advisory  []uint8
	scratch   []uint8
}

// NewMoving returns a moving-camera session over a new engine built
// from the given config.
func NewMoving(c config.Config) (*Moving, error) {
	sub, err := New(c)
	if err != nil {
		return nil, err
	}
	return &Moving{sub: sub, log: c.Logger, rng: sampler.New(c.Seed + 1)}, nil
}

// Subtractor exposes the wrapped engine for accessors such as the
// reconstructed background image.
func (m *Moving) Subtractor() *Subtractor { return m.sub }

// Initialize initialises the wrapped engine from the first frame and
// allocates the session buffers.
func (m *Moving) Initialize(frame []uint8, w, h, channels int, roi []uint8) error {
	if err := m.sub.Initialize(frame, w, h, channels, roi); err != nil {
		return err
	}
	m.frameIdx = 1
	m.lastFrame = make([]uint8, w*h*channels)
	copy(m.lastFrame, frame)
	m.lastMask = make([]uint8, w*h)
	m.warped = make([]uint8, w*h*channels)
	m.advisory = make([]uint8, w*h)
	m.scratch = make([]uint8, w*h)
	return nil
}

// Work processes the next frame. hom, when non-nil, maps the previous
// frame's coordinates onto this frame's; nil means a static camera this
// frame. The foreground mask is written to fg.
func (m *Moving) Work(frame []uint8, hom *xform.Homography, fg []uint8, learningRateOverride float64) error {
	if m.lastFrame == nil {
		return errors.New("session not initialized")
	}
	w, h, ch := m.sub.w, m.sub.h, m.sub.channels
	if len(frame) != w*h*ch {
		return errors.Errorf("frame is %d bytes, want %d", len(frame), w*h*ch)
	}
	m.frameIdx++

	var inv xform.Homography
	if hom != nil {
		var err error
		inv, err = hom.Inverse()
		if err != nil {
			return errors.Wrap(err, "cannot invert motion homography")
		}
		// Classify in the model's frame of reference, then carry the
		// mask back to the camera's.
		if err := xform.WarpBytes(m.warped, frame, w, h, ch, inv); err != nil {
			return err
		}
		if err := m.sub.Process(m.warped, fg, learningRateOverride); err != nil {
			return err
		}
		if err := xform.WarpBytes(m.scratch, fg, w, h, 1, *hom); err != nil {
			return err
		}
		copy(fg, m.scratch)
	} else {
		if err := m.sub.Process(frame, fg, learningRateOverride); err != nil {
			return err
		}
	}

	if m.frameIdx > matchWarmup {
		if m.frameIdx == matchWarmup+1 {
			m.log.Debug("patch matching and graph-cut smoothing engaged", "frame", m.frameIdx)
		}
		proj := xform.Identity()
		if hom != nil {
			proj = inv
		}
		if _, err := patchmatch.Advisory(frame, m.lastFrame, w, h, ch, m.sub.patchSize, proj, m.rng, m.advisory); err != nil {
			return errors.Wrap(err, "patch match")
		}
		if hom != nil {
			if err := xform.WarpBytes(m.scratch, m.lastMask, w, h, 1, *hom); err != nil {
				return err
			}
			copy(m.lastMask, m.scratch)
		}
		if err := m.sub.GraphCutSmooth(frame, m.advisory, m.lastMask, fg); err != nil {
			return err
		}
	}

	if hom != nil {
		if err := m.sub.Warp(frame, *hom); err != nil {
			return err
		}
	}
	if m.frameIdx > completeWarmup {
		if err := m.sub.Complete(fg); err != nil {
			return err
		}
	}

	copy(m.lastFrame, frame)
	copy(m.lastMask, fg)
	return nil
}
