// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     audio
// Description: Generated audio source for runs without a microphone
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package audio

import (
	"context"
	"math"
	"sync"
	"time"
)

// SyntheticConfig describes the generated signal: a tone burst of Speech
// followed by silence, repeated.
type SyntheticConfig struct {
	SampleRate int
	FrameSize  int
	Speech     time.Duration
	Pause      time.Duration
	Amplitude  float64
	Realtime   bool // pace frames at capture speed
}

// DefaultSyntheticConfig returns a 2 s utterance followed by 2 s of silence
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		SampleRate: DefaultSampleRate,
		FrameSize:  DefaultFramesPerBuffer,
		Speech:     2 * time.Second,
		Pause:      2 * time.Second,
		Amplitude:  0.4,
		Realtime:   true,
	}
}

// Synthetic is a Source producing a deterministic tone/silence pattern
type Synthetic struct {
	cfg SyntheticConfig

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSynthetic creates a generated source
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = DefaultFramesPerBuffer
	}
	return &Synthetic{cfg: cfg}
}

// Start begins generating frames
func (s *Synthetic) Start(ctx context.Context) (<-chan Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Frame, 16)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	go s.generate(ctx, out, done)
	return out, nil
}

func (s *Synthetic) generate(ctx context.Context, out chan<- Frame, done chan<- struct{}) {
	defer close(done)
	defer close(out)

	cfg := s.cfg
	frameDur := time.Duration(cfg.FrameSize) * time.Second / time.Duration(cfg.SampleRate)
	period := cfg.Speech + cfg.Pause
	base := time.Now()

	var ticker *time.Ticker
	if cfg.Realtime {
		ticker = time.NewTicker(frameDur)
		defer ticker.Stop()
	}

	for n := 0; ; n++ {
		offset := time.Duration(n) * frameDur
		frame := Frame{
			Samples:    make([]float32, cfg.FrameSize),
			SampleRate: cfg.SampleRate,
			CapturedAt: base.Add(offset),
		}
		if period <= 0 || offset%period < cfg.Speech {
			for i := range frame.Samples {
				t := float64(n*cfg.FrameSize+i) / float64(cfg.SampleRate)
				frame.Samples[i] = float32(cfg.Amplitude * math.Sqrt2 * math.Sin(2*math.Pi*220*t))
			}
		}

		select {
		case out <- frame:
		case <-ctx.Done():
			return
		}
		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Stop ends the current segment
func (s *Synthetic) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
	return nil
}
