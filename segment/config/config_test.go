/*
DESCRIPTION
  config_test.go contains tests for validation and defaulting of the
  segmentation engine configuration.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type dumbLogger struct{}

func (dl *dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dl *dumbLogger) SetLevel(l int8)                         {}
func (dl *dumbLogger) Debug(msg string, args ...interface{})   {}
func (dl *dumbLogger) Info(msg string, args ...interface{})    {}
func (dl *dumbLogger) Warning(msg string, args ...interface{}) {}
func (dl *dumbLogger) Error(msg string, args ...interface{})   {}
func (dl *dumbLogger) Fatal(msg string, args ...interface{})   {}

func TestValidate(t *testing.T) {
	dl := &dumbLogger{}

	want := Config{
		Logger:                  dl,
		RelLBSPThreshold:        defaultRelLBSPThreshold,
		DescDistThresholdOffset: defaultDescDistThresholdOffset,
		MinColorDistThreshold:   defaultMinColorDistThreshold,
		BGSamples:               defaultBGSamples,
		RequiredBGSamples:       defaultRequiredBGSamples,
		SamplesForMovingAvgs:    defaultSamplesForMovingAvgs,
		GraphCutPatchSize:       defaultGraphCutPatchSize,
	}

	got := Config{Logger: dl}
	err := (&got).Validate()
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	if !cmp.Equal(got, want) {
		t.Errorf("configs not equal\nwant: %v\ngot: %v", want, got)
	}
}

func TestValidateNoLogger(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Error("expected error for missing logger")
	}
}

func TestValidateBadSampleCounts(t *testing.T) {
	c := Config{Logger: &dumbLogger{}, BGSamples: 2, RequiredBGSamples: 5}
	if err := c.Validate(); err == nil {
		t.Error("expected error for RequiredBGSamples > BGSamples")
	}
}

func TestValidateEvenMedianKernel(t *testing.T) {
	c := Config{Logger: &dumbLogger{}, MedianBlurKernelSize: 4}
	if err := c.Validate(); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if c.MedianBlurKernelSize != 0 {
		t.Errorf("even kernel size kept as %d, want derived (0)", c.MedianBlurKernelSize)
	}
}
