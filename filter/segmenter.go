/*
DESCRIPTION
  A filter that detects motion and discards frames without motion. The
  filter maintains a per-pixel adaptive background model and counts the
  foreground pixels of each frame's completed segmentation mask.

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

package filter

import (
	"io"

	"github.com/pkg/errors"

	"github.com/ausocean/seg/segment"
	"github.com/ausocean/seg/segment/config"
)

const defaultSegmenterMinPixels = 1000

// Segmenter is a motion filter backed by the adaptive background
// segmentation engine. Frames are raw interleaved bytes of the
// configured geometry; the first frame initialises the model and is
// not forwarded.
type Segmenter struct {
	dst io.WriteCloser
	sub *segment.Subtractor
	cfg config.Config

	fg          []uint8
	minPixels   int
	initialized bool
}

// NewSegmenter returns a pointer to a new Segmenter motion filter.
func NewSegmenter(dst io.WriteCloser, c config.Config) (*Segmenter, error) {
	if c.Width == 0 || c.Height == 0 {
		return nil, errors.New("filter requires frame geometry in config")
	}
	if c.Channels != 1 && c.Channels != 3 {
		return nil, errors.Errorf("unsupported channel count %d", c.Channels)
	}
	if c.MotionPixels == 0 {
		c.LogInvalidField("MotionPixels", defaultSegmenterMinPixels)
		c.MotionPixels = defaultSegmenterMinPixels
	}
	sub, err := segment.New(c)
	if err != nil {
		return nil, err
	}
	return &Segmenter{
		dst:       dst,
		sub:       sub,
		cfg:       c,
		fg:        make([]uint8, c.Width*c.Height),
		minPixels: int(c.MotionPixels),
	}, nil
}

// Write applies the segmentation filter to the video stream. Only
// frames with enough foreground pixels are written to the destination;
// frames without are discarded.
func (f *Segmenter) Write(frame []byte) (int, error) {
	w, h, ch := int(f.cfg.Width), int(f.cfg.Height), int(f.cfg.Channels)
	if len(frame) != w*h*ch {
		return 0, errors.Errorf("frame is %d bytes, want %d", len(frame), w*h*ch)
	}
	if !f.initialized {
		if err := f.sub.Initialize(frame, w, h, ch, nil); err != nil {
			return 0, errors.Wrap(err, "cannot initialise background model")
		}
		f.initialized = true
		return len(frame), nil
	}
	if err := f.sub.Process(frame, f.fg, 0); err != nil {
		return 0, errors.Wrap(err, "cannot segment frame")
	}
	if err := f.sub.Complete(f.fg); err != nil {
		return 0, errors.Wrap(err, "cannot complete mask")
	}
	motion := 0
	for _, v := range f.fg {
		if v != 0 {
			motion++
		}
	}
	if motion >= f.minPixels {
		return f.dst.Write(frame)
	}
	return len(frame), nil
}

// Close closes the destination. The engine holds no external
// resources.
func (f *Segmenter) Close() error { return f.dst.Close() }
