// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     audio
// Description: Audio frames and frame sources
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package audio

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultSampleRate is the capture rate expected by the recognizer
	DefaultSampleRate = 16000

	// DefaultFramesPerBuffer is 32 ms at 16 kHz
	DefaultFramesPerBuffer = 512

	// DefaultChannels is mono audio
	DefaultChannels = 1
)

// Frame is one buffer of mono samples in [-1, 1] as delivered by a source.
// Frames are not retained by the level monitor.
type Frame struct {
	Samples    []float32
	SampleRate int
	CapturedAt time.Time
}

// Duration returns the playback duration of the frame
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || len(f.Samples) == 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// End returns the capture time of the last sample
func (f Frame) End() time.Time {
	return f.CapturedAt.Add(f.Duration())
}

// FromInt16 converts 16-bit PCM into a frame
func FromInt16(pcm []int16, sampleRate int, capturedAt time.Time) Frame {
	samples := make([]float32, len(pcm))
	for i, s := range pcm {
		samples[i] = float32(s) / 32768.0
	}
	return Frame{Samples: samples, SampleRate: sampleRate, CapturedAt: capturedAt}
}

// Int16 converts samples to 16-bit PCM, clipping out-of-range values
func Int16(samples []float32) []int16 {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		pcm[i] = int16(v)
	}
	return pcm
}

// Source delivers frames in capture order. Start opens a new capture
// segment and returns a channel that is closed when the segment ends,
// either through Stop or cancellation of ctx.
type Source interface {
	Start(ctx context.Context) (<-chan Frame, error)
	Stop() error
}
