// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     audio
// Description: RMS level metering
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package audio

import "math"

// MinDB is the floor reported for silence
const MinDB = -60.0

// RMS returns the root-mean-square of samples clamped to [0, 1]
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms > 1 {
		return 1
	}
	return rms
}

// ToDB converts a normalized amplitude to dBFS, floored at MinDB
func ToDB(amplitude float64) float64 {
	if amplitude <= 0 {
		return MinDB
	}
	db := 20 * math.Log10(amplitude)
	if db < MinDB {
		return MinDB
	}
	return db
}

// LevelMonitor computes the amplitude of each frame. With a smoothing
// factor of 0 it is a pure function of the frame; otherwise it returns an
// exponential moving average with that weight on the previous value.
type LevelMonitor struct {
	smoothing float64
	last      float64
}

// NewLevelMonitor creates a monitor; smoothing is clamped to [0, 1)
func NewLevelMonitor(smoothing float64) *LevelMonitor {
	if smoothing < 0 {
		smoothing = 0
	}
	if smoothing >= 1 {
		smoothing = 0.99
	}
	return &LevelMonitor{smoothing: smoothing}
}

// Observe returns the normalized amplitude of the frame. Empty frames
// return 0 without touching the smoothing state.
func (m *LevelMonitor) Observe(f Frame) float64 {
	if len(f.Samples) == 0 {
		return 0
	}
	rms := RMS(f.Samples)
	if m.smoothing == 0 {
		return rms
	}
	m.last = m.smoothing*m.last + (1-m.smoothing)*rms
	return m.last
}

// Reset clears the smoothing state
func (m *LevelMonitor) Reset() {
	m.last = 0
}
