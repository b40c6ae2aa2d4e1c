// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     audio
// Description: Utterance buffer
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package audio

import "time"

// Utterance collects the frames of one recording segment
type Utterance struct {
	samples    []float32
	sampleRate int
	startedAt  time.Time
}

// NewUtterance creates an empty buffer pre-sized for ~10 seconds
func NewUtterance(sampleRate int) *Utterance {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Utterance{
		samples:    make([]float32, 0, sampleRate*10),
		sampleRate: sampleRate,
	}
}

// Append adds the frame's samples
func (u *Utterance) Append(f Frame) {
	if len(f.Samples) == 0 {
		return
	}
	if len(u.samples) == 0 {
		u.startedAt = f.CapturedAt
		if f.SampleRate > 0 {
			u.sampleRate = f.SampleRate
		}
	}
	u.samples = append(u.samples, f.Samples...)
}

// Len returns the number of samples
func (u *Utterance) Len() int {
	return len(u.samples)
}

// Empty reports whether no audio was buffered
func (u *Utterance) Empty() bool {
	return len(u.samples) == 0
}

// SampleRate returns the rate of the buffered samples
func (u *Utterance) SampleRate() int {
	return u.sampleRate
}

// StartedAt returns the capture time of the first sample
func (u *Utterance) StartedAt() time.Time {
	return u.startedAt
}

// Duration returns the buffered duration
func (u *Utterance) Duration() time.Duration {
	return time.Duration(len(u.samples)) * time.Second / time.Duration(u.sampleRate)
}

// Take returns the buffered samples and leaves the buffer empty. The
// returned slice is not shared with later appends.
func (u *Utterance) Take() []float32 {
	out := u.samples
	u.samples = make([]float32, 0, cap(out))
	u.startedAt = time.Time{}
	return out
}

// Reset discards buffered audio
func (u *Utterance) Reset() {
	u.samples = u.samples[:0]
	u.startedAt = time.Time{}
}
