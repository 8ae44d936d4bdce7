/*
DESCRIPTION
  Configuration for the background segmentation engine and the filters
  and harnesses built on it. A new config must be validated before use;
  validation logs and defaults bad or unset fields.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for the
// segmentation engine.
package config

import (
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
)

// Default values for the tunable engine parameters.
const (
	defaultRelLBSPThreshold        = 0.333
	defaultDescDistThresholdOffset = 3
	defaultMinColorDistThreshold   = 30
	defaultBGSamples               = 50
	defaultRequiredBGSamples       = 2
	defaultSamplesForMovingAvgs    = 100
	defaultGraphCutPatchSize       = 8
)

// Config provides parameters relevant to a segmentation engine
// instance. A new config must be passed through Validate before the
// engine is created.
type Config struct {
	// Logger holds an implementation of the logging.Logger interface;
	// it must be supplied by the caller.
	Logger logging.Logger

	// Frame geometry, used by stream filters and harnesses that feed
	// the engine raw frames. The engine itself takes geometry from the
	// initialisation frame.
	Width    uint
	Height   uint
	Channels uint

	// RelLBSPThreshold is the slope of the per-intensity LBSP
	// comparison threshold.
	RelLBSPThreshold float64

	// LBSPThresholdOffset is the base LBSP comparison threshold added
	// to every LUT entry.
	LBSPThresholdOffset uint

	// DescDistThresholdOffset is the base Hamming distance threshold
	// offset for descriptor matching.
	DescDistThresholdOffset uint

	// MinColorDistThreshold is the base L1 colour distance threshold
	// for sample matching.
	MinColorDistThreshold uint

	// BGSamples is the number of background samples kept per pixel, and
	// RequiredBGSamples how many must match for a background call.
	BGSamples         uint
	RequiredBGSamples uint

	// SamplesForMovingAvgs is the long-term moving average window; the
	// short-term window is a quarter of it.
	SamplesForMovingAvgs uint

	// MedianBlurKernelSize overrides the mask median filter kernel
	// size; it must be odd. Zero derives it from the frame size.
	MedianBlurKernelSize uint

	// GraphCutPatchSize is the patch tiling used by the graph-cut mask
	// smoother and the patch-distance advisory map.
	GraphCutPatchSize uint

	// Seed seeds the engine's random source. Runs with equal seeds and
	// equal input are bit-identical.
	Seed int64

	// DisableGrayscaleThresholdHalving lifts the halving of the
	// effective colour threshold on single-channel input. The halving
	// is asymmetric with the colour path and is kept by default for
	// behavioural parity.
	DisableGrayscaleThresholdHalving bool

	// ProcessZeroPixels classifies pixels whose input value is exactly
	// zero in every channel. By default they are skipped as
	// warp-invalidated; enable for imagery with genuine zero blacks.
	ProcessZeroPixels bool

	// MotionPixels is the number of foreground pixels a frame needs
	// before a stream filter treats it as containing motion.
	MotionPixels uint
}

// Validate checks for any errors in the config fields and defaults
// those which are invalid.
func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger not supplied")
	}
	if c.RelLBSPThreshold <= 0 || c.RelLBSPThreshold > 1 {
		c.LogInvalidField("RelLBSPThreshold", defaultRelLBSPThreshold)
		c.RelLBSPThreshold = defaultRelLBSPThreshold
	}
	if c.DescDistThresholdOffset == 0 {
		c.LogInvalidField("DescDistThresholdOffset", defaultDescDistThresholdOffset)
		c.DescDistThresholdOffset = defaultDescDistThresholdOffset
	}
	if c.MinColorDistThreshold == 0 {
		c.LogInvalidField("MinColorDistThreshold", defaultMinColorDistThreshold)
		c.MinColorDistThreshold = defaultMinColorDistThreshold
	}
	if c.BGSamples == 0 {
		c.LogInvalidField("BGSamples", defaultBGSamples)
		c.BGSamples = defaultBGSamples
	}
	if c.RequiredBGSamples == 0 {
		c.LogInvalidField("RequiredBGSamples", defaultRequiredBGSamples)
		c.RequiredBGSamples = defaultRequiredBGSamples
	}
	if c.RequiredBGSamples > c.BGSamples {
		return errors.Errorf("RequiredBGSamples (%d) exceeds BGSamples (%d)", c.RequiredBGSamples, c.BGSamples)
	}
	if c.SamplesForMovingAvgs == 0 {
		c.LogInvalidField("SamplesForMovingAvgs", defaultSamplesForMovingAvgs)
		c.SamplesForMovingAvgs = defaultSamplesForMovingAvgs
	}
	if c.MedianBlurKernelSize != 0 && c.MedianBlurKernelSize%2 == 0 {
		c.LogInvalidField("MedianBlurKernelSize", "derived")
		c.MedianBlurKernelSize = 0
	}
	if c.GraphCutPatchSize == 0 {
		c.LogInvalidField("GraphCutPatchSize", defaultGraphCutPatchSize)
		c.GraphCutPatchSize = defaultGraphCutPatchSize
	}
	return nil
}

// LogInvalidField logs a field that was invalid and has been set to a
// default value.
func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
