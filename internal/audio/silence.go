// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     audio
// Description: Silence detection with debounced prolonged-silence events
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package audio

import (
	"time"

	"github.com/msto63/dolmetscher/pkg/core/apperr"
)

const (
	// DefaultSilenceThreshold is the amplitude below which a frame is silent
	DefaultSilenceThreshold = 0.1

	// DefaultSilenceDuration is the silence run that ends an utterance
	DefaultSilenceDuration = 1500 * time.Millisecond
)

// SilenceConfig holds the thresholds for silence detection
type SilenceConfig struct {
	Threshold float64       `json:"threshold"` // amplitude in [0, 1]
	Duration  time.Duration `json:"duration"`  // required continuous silence, > 0
}

// DefaultSilenceConfig returns the default thresholds
func DefaultSilenceConfig() SilenceConfig {
	return SilenceConfig{
		Threshold: DefaultSilenceThreshold,
		Duration:  DefaultSilenceDuration,
	}
}

// Validate reports an INVALID_CONFIG error for out-of-range values
func (c SilenceConfig) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 || c.Threshold != c.Threshold {
		return apperr.Newf(apperr.CodeInvalidConfig, "silence threshold %v outside [0, 1]", c.Threshold).
			WithDetail("field", "threshold")
	}
	if c.Duration <= 0 {
		return apperr.Newf(apperr.CodeInvalidConfig, "silence duration %v must be positive", c.Duration).
			WithDetail("field", "duration")
	}
	return nil
}

// SilenceState is the detector state
type SilenceState int

const (
	Sounding SilenceState = iota
	Silent
)

// String returns the state name
func (s SilenceState) String() string {
	if s == Silent {
		return "silent"
	}
	return "sounding"
}

// SilenceEvent is the result of evaluating one frame
type SilenceEvent struct {
	State   SilenceState
	Elapsed time.Duration // length of the current silence run, 0 while sounding

	// ProlongedSilence is true only on the frame that completes the run
	ProlongedSilence bool

	// Recovered is true on the first sounding frame after a prolonged silence
	Recovered bool
}

// SilenceDetector turns per-frame amplitudes into a single prolonged
// silence event per silence run. It is owned by one goroutine and is not
// safe for concurrent use.
type SilenceDetector struct {
	cfg          SilenceConfig
	state        SilenceState
	silenceStart time.Time
}

// NewSilenceDetector creates a detector in the Sounding state
func NewSilenceDetector(cfg SilenceConfig) (*SilenceDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SilenceDetector{cfg: cfg}, nil
}

// Configure replaces the thresholds. They apply from the next Observe
// call; no event is raised or dropped by the change itself.
func (d *SilenceDetector) Configure(cfg SilenceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	d.cfg = cfg
	return nil
}

// Config returns the active thresholds
func (d *SilenceDetector) Config() SilenceConfig {
	return d.cfg
}

// State returns the current state
func (d *SilenceDetector) State() SilenceState {
	return d.state
}

// Arm resets the detector to Sounding with no pending silence run
func (d *SilenceDetector) Arm() {
	d.state = Sounding
	d.silenceStart = time.Time{}
}

// Observe evaluates a frame amplitude covering [start, end). A silence run
// is measured from the start of its first silent frame to the end of the
// latest one.
func (d *SilenceDetector) Observe(amplitude float64, start, end time.Time) SilenceEvent {
	if amplitude >= d.cfg.Threshold {
		ev := SilenceEvent{State: Sounding, Recovered: d.state == Silent}
		d.state = Sounding
		d.silenceStart = time.Time{}
		return ev
	}

	if d.silenceStart.IsZero() {
		d.silenceStart = start
	}
	elapsed := end.Sub(d.silenceStart)

	ev := SilenceEvent{State: d.state, Elapsed: elapsed}
	if d.state == Sounding && elapsed >= d.cfg.Duration {
		d.state = Silent
		ev.State = Silent
		ev.ProlongedSilence = true
	}
	return ev
}

// ObserveFrame is Observe with the frame's own time span
func (d *SilenceDetector) ObserveFrame(amplitude float64, f Frame) SilenceEvent {
	return d.Observe(amplitude, f.CapturedAt, f.End())
}
