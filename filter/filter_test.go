/*
DESCRIPTION
  filter_test.go contains tests for the segmentation motion filter.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package filter

import (
	"bytes"
	"testing"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/seg/segment/config"
)

type recordWriteCloser struct {
	writes int
}

func (d *recordWriteCloser) Write(p []byte) (int, error) {
	d.writes++
	return len(p), nil
}

func (d *recordWriteCloser) Close() error { return nil }

func testFilterConfig() config.Config {
	return config.Config{
		Logger:       logging.New(logging.Debug, &bytes.Buffer{}, true),
		Width:        64,
		Height:       48,
		Channels:     1,
		MotionPixels: 300,
	}
}

func frame(v uint8) []byte {
	f := make([]byte, 64*48)
	for i := range f {
		f[i] = v
	}
	return f
}

func TestSegmenterForwardsMotion(t *testing.T) {
	dst := &recordWriteCloser{}
	f, err := NewSegmenter(dst, testFilterConfig())
	if err != nil {
		t.Fatalf("could not create filter: %v", err)
	}
	defer f.Close()

	// First frame initialises the model and is not forwarded.
	if _, err := f.Write(frame(100)); err != nil {
		t.Fatalf("could not write first frame: %v", err)
	}
	// Static frames carry no motion.
	for i := 0; i < 5; i++ {
		if _, err := f.Write(frame(100)); err != nil {
			t.Fatalf("could not write static frame: %v", err)
		}
	}
	if dst.writes != 0 {
		t.Fatalf("static frames forwarded %d times, want 0", dst.writes)
	}

	// A large bright block is motion.
	moving := frame(100)
	for y := 10; y < 35; y++ {
		for x := 10; x < 35; x++ {
			moving[y*64+x] = 255
		}
	}
	if _, err := f.Write(moving); err != nil {
		t.Fatalf("could not write moving frame: %v", err)
	}
	if dst.writes != 1 {
		t.Errorf("moving frame forwarded %d times, want 1", dst.writes)
	}
}

// The no-op filter must pass every frame through untouched.
func TestNoOpPassthrough(t *testing.T) {
	dst := &recordWriteCloser{}
	var f Filter = NewNoOp(dst)
	defer f.Close()
	for i := 0; i < 3; i++ {
		n, err := f.Write(frame(100))
		if err != nil {
			t.Fatalf("could not write frame: %v", err)
		}
		if n != 64*48 {
			t.Fatalf("wrote %d bytes, want %d", n, 64*48)
		}
	}
	if dst.writes != 3 {
		t.Errorf("forwarded %d frames, want 3", dst.writes)
	}
}

func TestSegmenterBadGeometry(t *testing.T) {
	c := testFilterConfig()
	c.Width = 0
	if _, err := NewSegmenter(&recordWriteCloser{}, c); err == nil {
		t.Error("expected error for missing geometry")
	}

	f, err := NewSegmenter(&recordWriteCloser{}, testFilterConfig())
	if err != nil {
		t.Fatalf("could not create filter: %v", err)
	}
	if _, err := f.Write(make([]byte, 10)); err == nil {
		t.Error("expected error for short frame")
	}
}
