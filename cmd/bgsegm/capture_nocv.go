//go:build !withcv
// +build !withcv

/*
DESCRIPTION
  Replaces the gocv capture source when bgsegm is built without Open CV
  installed. Device input is unavailable in this build; file sequences
  still work.

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

import "github.com/pkg/errors"

// newCaptureSource reports that device capture needs a CV build.
func newCaptureSource(device string, grayscale bool) (frameSource, error) {
	return nil, errors.New("device capture requires building with the withcv tag")
}
