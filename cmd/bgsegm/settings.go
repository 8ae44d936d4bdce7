/*
DESCRIPTION
  YAML-backed settings for the bgsegm harness.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Settings holds harness configuration. Engine fields left zero are
// defaulted by config validation.
type Settings struct {
	// Frame input: a directory of numbered images, or a capture device
	// when built with CV support.
	Input   string `yaml:"input"`
	Pattern string `yaml:"pattern"` // e.g. in%06d.jpg
	Start   int    `yaml:"start"`
	Device  string `yaml:"device"`

	// Output directory for masks and reconstructed backgrounds.
	Output         string `yaml:"output"`
	SaveBackground bool   `yaml:"saveBackground"`

	// Grayscale converts input frames to a single channel.
	Grayscale bool `yaml:"grayscale"`

	// Moving drives the moving-camera session pipeline: homography
	// compensation, patch matching and graph-cut smoothing.
	// Homographies names a file holding one row-major 3x3 transform
	// (nine floats) per frame from an external motion estimator; frames
	// past its end use the identity.
	Moving       bool   `yaml:"moving"`
	Homographies string `yaml:"homographies"`

	// MotionGateOutput, when set, copies frames through a motion gate
	// into a raw stream: frames with at least MotionPixels foreground
	// pixels pass, or every frame when MotionPixels is zero.
	MotionGateOutput string `yaml:"motionGateOutput"`
	MotionPixels     uint   `yaml:"motionPixels"`

	// Engine parameters.
	RelLBSPThreshold        float64 `yaml:"relLBSPThreshold"`
	DescDistThresholdOffset uint    `yaml:"descDistThresholdOffset"`
	MinColorDistThreshold   uint    `yaml:"minColorDistThreshold"`
	BGSamples               uint    `yaml:"bgSamples"`
	RequiredBGSamples       uint    `yaml:"requiredBGSamples"`
	SamplesForMovingAvgs    uint    `yaml:"samplesForMovingAvgs"`
	MedianBlurKernelSize    uint    `yaml:"medianBlurKernelSize"`
	GraphCutPatchSize       uint    `yaml:"graphCutPatchSize"`
	Seed                    int64   `yaml:"seed"`
}

// defaultSettings returns the settings used when no YAML file is given.
func defaultSettings() Settings {
	return Settings{
		Input:   ".",
		Pattern: "in%06d.jpg",
		Output:  ".",
	}
}

// loadSettings merges the YAML file at path into s.
func loadSettings(path string, s *Settings) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "cannot read settings file")
	}
	if err := yaml.Unmarshal(b, s); err != nil {
		return errors.Wrap(err, "cannot parse settings file")
	}
	return nil
}
