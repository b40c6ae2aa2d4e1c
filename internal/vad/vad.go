// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     vad
// Description: Voice activity gate for the silence detector
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package vad

import (
	"github.com/msto63/dolmetscher/internal/audio"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// Detector classifies audio as speech or non-speech
type Detector interface {
	// IsSpeech reports whether the samples contain speech
	IsSpeech(samples []float32) (bool, error)

	// Close releases resources
	Close() error
}

// Config holds VAD configuration
type Config struct {
	// SampleRate must be 8000, 16000, 32000 or 48000
	SampleRate int

	// Mode is the aggressiveness (0-3, higher filters more)
	Mode int
}

// DefaultConfig returns default VAD configuration
func DefaultConfig() Config {
	return Config{
		SampleRate: audio.DefaultSampleRate,
		Mode:       2,
	}
}

// Gate lowers the amplitude of loud frames that the detector classifies as
// non-speech, so fans, clicks and music count as silence. Quiet frames pass
// through untouched.
type Gate struct {
	detector Detector
	logger   *logging.Logger
	failed   bool
}

// NewGate wraps a detector
func NewGate(detector Detector, logger *logging.Logger) *Gate {
	if logger == nil {
		logger = logging.New("vad")
	}
	return &Gate{detector: detector, logger: logger}
}

// Apply returns the amplitude to feed the silence detector. Detector errors
// leave the amplitude unchanged and are logged once.
func (g *Gate) Apply(amplitude, threshold float64, f audio.Frame) float64 {
	if amplitude < threshold {
		return amplitude
	}
	speech, err := g.detector.IsSpeech(f.Samples)
	if err != nil {
		if !g.failed {
			g.logger.Warn("VAD failed, using amplitude only", "error", err)
			g.failed = true
		}
		return amplitude
	}
	if !speech {
		return 0
	}
	return amplitude
}

// Close releases the detector
func (g *Gate) Close() error {
	return g.detector.Close()
}
