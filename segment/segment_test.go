/*
DESCRIPTION
  segment_test.go contains behavioural tests for the segmentation
  engine: static scenes, new object detection and persistence, ROI
  masking, determinism, feedback invariants, model refresh and the
  background reconstructions.

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
	"bytes"
	"testing"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/seg/segment/config"
)

func testConfig(seed int64) config.Config {
	return config.Config{
		Logger: logging.New(logging.Debug, &bytes.Buffer{}, true),
		Seed:   seed,
	}
}

func newTestEngine(t *testing.T, seed int64) *Subtractor {
	t.Helper()
	s, err := New(testConfig(seed))
	if err != nil {
		t.Fatalf("could not create engine: %v", err)
	}
	return s
}

func constFrame(n int, v uint8) []uint8 {
	f := make([]uint8, n)
	for i := range f {
		f[i] = v
	}
	return f
}

// noiseFrame returns a deterministic pseudo-random frame.
func noiseFrame(n int, tick int) []uint8 {
	f := make([]uint8, n)
	state := uint32(tick*2654435761 + 1)
	for i := range f {
		state = state*1664525 + 1013904223
		f[i] = uint8(100 + (state>>24)%8)
	}
	return f
}

func countFG(fg []uint8) int {
	n := 0
	for _, v := range fg {
		if v != 0 {
			n++
		}
	}
	return n
}

// A static scene must settle to an empty mask from the first processed
// frame onward.
func TestStaticScene(t *testing.T) {
	const w, h = 320, 240
	s := newTestEngine(t, 0)
	frame := constFrame(w*h, 100)
	if err := s.Initialize(frame, w, h, 1, nil); err != nil {
		t.Fatalf("could not initialise: %v", err)
	}
	fg := make([]uint8, w*h)
	for i := 0; i < 30; i++ {
		if err := s.Process(frame, fg, 0); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if n := countFG(fg); n != 0 {
			t.Fatalf("frame %d: %d foreground pixels, want 0", i, n)
		}
	}
}

// A single bright pixel must be reported as foreground immediately and
// persist while held.
func TestNewObjectPersistence(t *testing.T) {
	const w, h = 320, 240
	s := newTestEngine(t, 0)
	base := constFrame(w*h, 100)
	if err := s.Initialize(base, w, h, 1, nil); err != nil {
		t.Fatalf("could not initialise: %v", err)
	}
	fg := make([]uint8, w*h)
	for i := 0; i < 3; i++ {
		if err := s.Process(base, fg, 0); err != nil {
			t.Fatalf("warmup frame %d: %v", i, err)
		}
	}

	bright := constFrame(w*h, 100)
	px := 10*w + 10
	bright[px] = 255
	for i := 0; i < 50; i++ {
		if err := s.Process(bright, fg, 0); err != nil {
			t.Fatalf("bright frame %d: %v", i, err)
		}
		if fg[px] != 255 {
			t.Fatalf("bright frame %d: pixel not foreground", i)
		}
		if n := countFG(fg); n != 1 {
			t.Fatalf("bright frame %d: %d foreground pixels, want 1", i, n)
		}
	}
}

// Pixels outside the region of interest must never report foreground.
func TestROIMasking(t *testing.T) {
	const w, h = 320, 240
	s := newTestEngine(t, 0)
	roi := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			roi[y*w+x] = 255
		}
	}
	if err := s.Initialize(noiseFrame(w*h, 0), w, h, 1, roi); err != nil {
		t.Fatalf("could not initialise: %v", err)
	}
	fg := make([]uint8, w*h)
	for i := 1; i <= 10; i++ {
		if err := s.Process(noiseFrame(w*h, i), fg, 0); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		// The dilated ROI reaches a couple of pixels past the halfway
		// line; everything further right must stay clear.
		for y := 0; y < h; y++ {
			for x := w/2 + 8; x < w; x++ {
				if fg[y*w+x] != 0 {
					t.Fatalf("frame %d: foreground at (%d,%d) outside ROI", i, x, y)
				}
			}
		}
	}
}

// Equal seeds and equal input must give bit-identical mask sequences.
func TestDeterminism(t *testing.T) {
	const w, h = 64, 48
	a := newTestEngine(t, 5)
	b := newTestEngine(t, 5)
	first := noiseFrame(w*h, 0)
	if err := a.Initialize(first, w, h, 1, nil); err != nil {
		t.Fatalf("could not initialise: %v", err)
	}
	if err := b.Initialize(first, w, h, 1, nil); err != nil {
		t.Fatalf("could not initialise: %v", err)
	}
	fga := make([]uint8, w*h)
	fgb := make([]uint8, w*h)
	for i := 1; i <= 15; i++ {
		frame := noiseFrame(w*h, i)
		if err := a.Process(frame, fga, 0); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if err := b.Process(frame, fgb, 0); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if !bytes.Equal(fga, fgb) {
			t.Fatalf("frame %d: masks diverged under equal seeds", i)
		}
	}
}

// Feedback fields must stay inside their documented bounds and the
// moving averages normalised.
func TestFeedbackInvariants(t *testing.T) {
	const w, h = 64, 48
	s := newTestEngine(t, 3)
	if err := s.Initialize(noiseFrame(w*h, 0), w, h, 1, nil); err != nil {
		t.Fatalf("could not initialise: %v", err)
	}
	fg := make([]uint8, w*h)
	for i := 1; i <= 40; i++ {
		frame := noiseFrame(w*h, i)
		if i%7 == 0 {
			// Throw in an excursion to exercise the feedback.
			frame = constFrame(w*h, 200)
		}
		if err := s.Process(frame, fg, 0); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	for _, px := range s.pxIdx {
		if s.updateRate[px] < s.tLower || s.updateRate[px] > s.tUpper {
			t.Fatalf("T(%d) = %v outside [%v,%v]", px, s.updateRate[px], s.tLower, s.tUpper)
		}
		if s.variation[px] < feedbackVDecr {
			t.Fatalf("V(%d) = %v below %v", px, s.variation[px], feedbackVDecr)
		}
		if s.distThreshold[px] < 1 {
			t.Fatalf("R(%d) = %v below 1", px, s.distThreshold[px])
		}
		for name, f := range map[string][]float32{
			"meanLastDist":    s.meanLastDist,
			"meanMinDistLT":   s.meanMinDistLT,
			"meanMinDistST":   s.meanMinDistST,
			"meanRawSegmLT":   s.meanRawSegmLT,
			"meanRawSegmST":   s.meanRawSegmST,
			"meanFinalSegmLT": s.meanFinalSegmLT,
			"meanFinalSegmST": s.meanFinalSegmST,
		} {
			if f[px] < 0 || f[px] > 1 {
				t.Fatalf("%s(%d) = %v outside [0,1]", name, px, f[px])
			}
		}
	}
}

// A full forced refresh immediately after initialisation must seed
// every slot from the first frame itself.
func TestRefreshSeedsFromFirstFrame(t *testing.T) {
	const w, h = 64, 48
	s := newTestEngine(t, 0)
	if err := s.Initialize(constFrame(w*h, 100), w, h, 1, nil); err != nil {
		t.Fatalf("could not initialise: %v", err)
	}
	if err := s.Refresh(1.0, true); err != nil {
		t.Fatalf("could not refresh: %v", err)
	}
	for _, px := range s.pxIdx {
		for slot := 0; slot < s.nSamples; slot++ {
			if s.sampleColor[slot][px] != 100 {
				t.Fatalf("slot %d of pixel %d = %d, want 100", slot, px, s.sampleColor[slot][px])
			}
			if s.sampleDesc[slot][px] != 0 {
				t.Fatalf("slot %d of pixel %d has descriptor %#x, want 0", slot, px, s.sampleDesc[slot][px])
			}
		}
	}
}

func TestRefreshBadFraction(t *testing.T) {
	const w, h = 64, 48
	s := newTestEngine(t, 0)
	if err := s.Initialize(constFrame(w*h, 100), w, h, 1, nil); err != nil {
		t.Fatalf("could not initialise: %v", err)
	}
	for _, frac := range []float64{0, -0.5, 1.5} {
		if err := s.Refresh(frac, false); err == nil {
			t.Errorf("expected error for fraction %v", frac)
		}
	}
}

// The reconstructed background must equal the per-pixel mean of the
// sample colours.
func TestBackgroundImageMean(t *testing.T) {
	const w, h = 64, 48
	s := newTestEngine(t, 2)
	if err := s.Initialize(noiseFrame(w*h, 0), w, h, 1, nil); err != nil {
		t.Fatalf("could not initialise: %v", err)
	}
	fg := make([]uint8, w*h)
	for i := 1; i <= 10; i++ {
		if err := s.Process(noiseFrame(w*h, i), fg, 0); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	bg := make([]uint8, w*h)
	if err := s.BackgroundImage(bg); err != nil {
		t.Fatalf("could not reconstruct background: %v", err)
	}
	for px := 0; px < w*h; px++ {
		var sum float64
		for slot := 0; slot < s.nSamples; slot++ {
			sum += float64(s.sampleColor[slot][px])
		}
		want := uint8(sum/float64(s.nSamples) + 0.5)
		if bg[px] != want {
			t.Fatalf("background at %d = %d, want %d", px, bg[px], want)
		}
	}
}

// A global illumination step floods the mask, then the feedback loop
// absorbs the new appearance.
func TestIlluminationStepAbsorbed(t *testing.T) {
	if testing.Short() {
		t.Skip("long feedback convergence test")
	}
	const w, h = 320, 240
	s := newTestEngine(t, 0)
	if err := s.Initialize(constFrame(w*h, 100), w, h, 1, nil); err != nil {
		t.Fatalf("could not initialise: %v", err)
	}
	fg := make([]uint8, w*h)
	for i := 0; i < 10; i++ {
		if err := s.Process(constFrame(w*h, 100), fg, 0); err != nil {
			t.Fatalf("warmup frame %d: %v", i, err)
		}
	}
	stepped := constFrame(w*h, 140)
	if err := s.Process(stepped, fg, 0); err != nil {
		t.Fatalf("step frame: %v", err)
	}
	if n := countFG(fg); n < s.relPx*9/10 {
		t.Fatalf("step frame: %d of %d pixels foreground, want >= 90%%", n, s.relPx)
	}
	for i := 0; i < 60; i++ {
		if err := s.Process(stepped, fg, 0); err != nil {
			t.Fatalf("post-step frame %d: %v", i, err)
		}
	}
	if n := countFG(fg); n > s.relPx/10 {
		t.Fatalf("after absorption: %d of %d pixels foreground, want <= 10%%", n, s.relPx)
	}
}

func TestInitializeErrors(t *testing.T) {
	tests := []struct {
		name     string
		frame    []uint8
		w, h, ch int
		roi      []uint8
	}{
		{name: "empty frame", frame: nil, w: 0, h: 0, ch: 1},
		{name: "bad channels", frame: make([]uint8, 64*48*2), w: 64, h: 48, ch: 2},
		{name: "short frame", frame: make([]uint8, 10), w: 64, h: 48, ch: 1},
		{name: "roi size mismatch", frame: make([]uint8, 64*48), w: 64, h: 48, ch: 1, roi: make([]uint8, 7)},
		{name: "empty roi", frame: make([]uint8, 64*48), w: 64, h: 48, ch: 1, roi: make([]uint8, 64*48)},
	}
	for _, tt := range tests {
		s := newTestEngine(t, 0)
		if err := s.Initialize(tt.frame, tt.w, tt.h, tt.ch, tt.roi); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestProcessShapeErrors(t *testing.T) {
	const w, h = 64, 48
	s := newTestEngine(t, 0)
	if err := s.Process(make([]uint8, w*h), make([]uint8, w*h), 0); err == nil {
		t.Error("expected error processing before initialise")
	}
	if err := s.Initialize(constFrame(w*h, 100), w, h, 1, nil); err != nil {
		t.Fatalf("could not initialise: %v", err)
	}
	if err := s.Process(make([]uint8, 10), make([]uint8, w*h), 0); err == nil {
		t.Error("expected error for short frame")
	}
	if err := s.Process(make([]uint8, w*h), make([]uint8, 10), 0); err == nil {
		t.Error("expected error for short mask")
	}
}
