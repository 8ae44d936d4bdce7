/*
DESCRIPTION
  Loading of per-frame homographies produced by an external camera
  motion estimator: a text file with one transform per line, nine
  whitespace-separated row-major coefficients each. Blank lines and #
  comments are skipped.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ausocean/seg/xform"
)

// loadHomographies reads one 3x3 transform per line from the file at
// path.
func loadHomographies(path string) ([]xform.Homography, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open homography file")
	}
	defer f.Close()

	var homs []xform.Homography
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 9 {
			return nil, errors.Errorf("line %d has %d fields, want 9", line, len(fields))
		}
		vals := make([]float64, 9)
		for i, fs := range fields {
			vals[i], err = strconv.ParseFloat(fs, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d field %d", line, i+1)
			}
		}
		h, err := xform.New(vals)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		homs = append(homs, h)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "cannot read homography file")
	}
	return homs, nil
}
