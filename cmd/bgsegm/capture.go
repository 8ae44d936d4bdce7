//go:build withcv
// +build withcv

/*
DESCRIPTION
  Live capture frame source using gocv.

AUTHORS
  Scott Barnard <scott@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"io"

	"gocv.io/x/gocv"

	"github.com/pkg/errors"
)

// captureSource reads frames from a gocv capture device.
type captureSource struct {
	cap       *gocv.VideoCapture
	img       gocv.Mat
	gray      gocv.Mat
	grayscale bool
	primed    bool
	w, h      int
}

// newCaptureSource opens the named capture device. Frame geometry is
// fixed by the first frame read here.
func newCaptureSource(device string, grayscale bool) (frameSource, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open capture device %s", device)
	}
	s := &captureSource{cap: vc, img: gocv.NewMat(), gray: gocv.NewMat(), grayscale: grayscale}
	if !vc.Read(&s.img) {
		s.Close()
		return nil, errors.Errorf("no frames from capture device %s", device)
	}
	s.primed = true
	s.w, s.h = s.img.Cols(), s.img.Rows()
	return s, nil
}

func (s *captureSource) Size() (int, int, int) {
	if s.grayscale {
		return s.w, s.h, 1
	}
	return s.w, s.h, 3
}

// Next reads a frame, converting to grayscale when configured. The
// frame read at open is returned before any further capture.
func (s *captureSource) Next() ([]uint8, error) {
	if s.primed {
		s.primed = false
	} else if !s.cap.Read(&s.img) {
		return nil, io.EOF
	}
	if s.grayscale {
		gocv.CvtColor(s.img, &s.gray, gocv.ColorBGRToGray)
		return s.gray.ToBytes(), nil
	}
	return s.img.ToBytes(), nil
}

// Close frees resources used by gocv. It has to be done manually, due
// to gocv using c-go.
func (s *captureSource) Close() error {
	s.img.Close()
	s.gray.Close()
	return s.cap.Close()
}
