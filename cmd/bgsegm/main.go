/*
DESCRIPTION
  bgsegm runs the adaptive background segmentation engine over a
  sequence of numbered image files, or over live capture when built with
  CV support, writing the per-frame foreground masks and reconstructed
  background images. In moving-camera mode frames are driven through the
  full session pipeline (homography compensation, patch matching and
  graph-cut smoothing); motion estimation stays external, supplied as a
  per-frame homography file. A motion gate can additionally copy the
  frames containing motion to a raw output stream.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>
  Russell Stanley <russell@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is a command line harness for the segmentation engine.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/seg/filter"
	"github.com/ausocean/seg/segment"
	"github.com/ausocean/seg/segment/config"
	"github.com/ausocean/seg/xform"
)

// Current software version.
const version = "v1.0.0"

// Logging configuration.
const (
	logPath      = "bgsegm.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

// Progress is logged every this many frames.
const logInterval = 100

func main() {
	var (
		showVersion  = flag.Bool("version", false, "show version")
		settingsPath = flag.String("config", "", "path to YAML settings file")
		input        = flag.String("input", "", "input directory (overrides settings)")
		output       = flag.String("output", "", "output directory (overrides settings)")
		device       = flag.String("device", "", "capture device (overrides settings; needs CV build)")
		moving       = flag.Bool("moving", false, "drive the moving-camera session pipeline")
	)
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Create lumberjack logger to handle logging to file.
	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)
	log.Info("starting bgsegm", "version", version)

	settings := defaultSettings()
	if *settingsPath != "" {
		if err := loadSettings(*settingsPath, &settings); err != nil {
			log.Fatal("could not load settings", "path", *settingsPath, "error", err.Error())
		}
	}
	if *input != "" {
		settings.Input = *input
	}
	if *output != "" {
		settings.Output = *output
	}
	if *device != "" {
		settings.Device = *device
	}
	if *moving {
		settings.Moving = true
	}

	src, err := newSource(settings)
	if err != nil {
		log.Fatal("could not open frame source", "error", err.Error())
	}
	defer src.Close()

	cfg := settings.engineConfig(log)

	frame, err := src.Next()
	if err != nil {
		log.Fatal("could not read first frame", "error", err.Error())
	}
	w, h, ch := src.Size()

	// The session is either the full moving-camera pipeline or the bare
	// engine with mask completion.
	var (
		mov *segment.Moving
		sub *segment.Subtractor
	)
	if settings.Moving {
		mov, err = segment.NewMoving(cfg)
		if err != nil {
			log.Fatal("could not create session", "error", err.Error())
		}
		if err := mov.Initialize(frame, w, h, ch, nil); err != nil {
			log.Fatal("could not initialise session", "error", err.Error())
		}
		sub = mov.Subtractor()
	} else {
		sub, err = segment.New(cfg)
		if err != nil {
			log.Fatal("could not create engine", "error", err.Error())
		}
		if err := sub.Initialize(frame, w, h, ch, nil); err != nil {
			log.Fatal("could not initialise engine", "error", err.Error())
		}
	}
	log.Info("engine initialised", "width", w, "height", h, "channels", ch, "moving", settings.Moving)

	// Camera motion comes from an external estimator as one homography
	// per frame; frames past the end of the file get the identity.
	var homs []xform.Homography
	if settings.Moving && settings.Homographies != "" {
		homs, err = loadHomographies(settings.Homographies)
		if err != nil {
			log.Fatal("could not load homographies", "path", settings.Homographies, "error", err.Error())
		}
		log.Info("loaded homographies", "count", len(homs))
	}

	// Optional motion gate copying motion-bearing frames to a raw
	// stream. Without a pixel threshold it degrades to a passthrough.
	var gate filter.Filter
	if settings.MotionGateOutput != "" {
		out, err := os.Create(settings.MotionGateOutput)
		if err != nil {
			log.Fatal("could not create motion gate output", "error", err.Error())
		}
		if settings.MotionPixels > 0 {
			gcfg := cfg
			gcfg.Width, gcfg.Height, gcfg.Channels = uint(w), uint(h), uint(ch)
			gate, err = filter.NewSegmenter(out, gcfg)
			if err != nil {
				log.Fatal("could not create motion gate", "error", err.Error())
			}
		} else {
			gate = filter.NewNoOp(out)
		}
		defer gate.Close()
		if _, err := gate.Write(frame); err != nil {
			log.Fatal("could not gate first frame", "error", err.Error())
		}
	}

	fg := make([]uint8, w*h)
	bg := make([]uint8, w*h*ch)
	for n := 1; ; n++ {
		frame, err = src.Next()
		if err == io.EOF {
			log.Info("input exhausted", "frames", n)
			return
		}
		if err != nil {
			log.Fatal("could not read frame", "frame", n, "error", err.Error())
		}
		if gate != nil {
			if _, err := gate.Write(frame); err != nil {
				log.Fatal("could not gate frame", "frame", n, "error", err.Error())
			}
		}
		if mov != nil {
			hom := xform.Identity()
			if n-1 < len(homs) {
				hom = homs[n-1]
			}
			if err := mov.Work(frame, &hom, fg, 0); err != nil {
				log.Fatal("could not process frame", "frame", n, "error", err.Error())
			}
		} else {
			if err := sub.Process(frame, fg, 0); err != nil {
				log.Fatal("could not process frame", "frame", n, "error", err.Error())
			}
			if err := sub.Complete(fg); err != nil {
				log.Fatal("could not complete mask", "frame", n, "error", err.Error())
			}
		}
		if err := writeMask(settings.Output, settings.Start+n, fg, w, h); err != nil {
			log.Fatal("could not write mask", "frame", n, "error", err.Error())
		}
		if settings.SaveBackground {
			if err := sub.BackgroundImage(bg); err != nil {
				log.Fatal("could not reconstruct background", "frame", n, "error", err.Error())
			}
			if err := writeImage(settings.Output, settings.Start+n, bg, w, h, ch); err != nil {
				log.Fatal("could not write background", "frame", n, "error", err.Error())
			}
		}
		if n%logInterval == 0 {
			log.Info("processed", "frames", n)
		}
	}
}

// engineConfig maps the harness settings onto an engine config.
func (s Settings) engineConfig(l logging.Logger) config.Config {
	return config.Config{
		Logger:                  l,
		RelLBSPThreshold:        s.RelLBSPThreshold,
		DescDistThresholdOffset: s.DescDistThresholdOffset,
		MinColorDistThreshold:   s.MinColorDistThreshold,
		BGSamples:               s.BGSamples,
		RequiredBGSamples:       s.RequiredBGSamples,
		SamplesForMovingAvgs:    s.SamplesForMovingAvgs,
		MedianBlurKernelSize:    s.MedianBlurKernelSize,
		GraphCutPatchSize:       s.GraphCutPatchSize,
		MotionPixels:            s.MotionPixels,
		Seed:                    s.Seed,
	}
}
