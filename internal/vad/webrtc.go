// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     vad
// Description: WebRTC VAD implementation
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package vad

import (
	"fmt"
	"slices"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
	"github.com/msto63/dolmetscher/internal/audio"
)

var validRates = []int{8000, 16000, 32000, 48000}

// WebRTC implements Detector with WebRTC's VAD
type WebRTC struct {
	vad        *webrtcvad.VAD
	sampleRate int
	mode       int
}

// NewWebRTC creates a WebRTC detector
func NewWebRTC(cfg Config) (*WebRTC, error) {
	if !slices.Contains(validRates, cfg.SampleRate) {
		return nil, fmt.Errorf("invalid sample rate %d, must be one of %v", cfg.SampleRate, validRates)
	}

	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create WebRTC VAD: %w", err)
	}

	mode := min(max(cfg.Mode, 0), 3)
	if err := v.SetMode(mode); err != nil {
		return nil, fmt.Errorf("failed to set VAD mode: %w", err)
	}

	return &WebRTC{vad: v, sampleRate: cfg.SampleRate, mode: mode}, nil
}

// IsSpeech reports true if any 10 ms window contains speech
func (w *WebRTC) IsSpeech(samples []float32) (bool, error) {
	pcm := audio.Int16(samples)
	window := w.sampleRate / 100

	if len(pcm) < window {
		padded := make([]int16, window)
		copy(padded, pcm)
		pcm = padded
	}

	for i := 0; i+window <= len(pcm); i += window {
		active, err := w.vad.Process(w.sampleRate, int16ToBytes(pcm[i:i+window]))
		if err != nil {
			return false, fmt.Errorf("VAD processing failed: %w", err)
		}
		if active {
			return true, nil
		}
	}
	return false, nil
}

// Mode returns the aggressiveness mode
func (w *WebRTC) Mode() int {
	return w.mode
}

// Close releases resources
func (w *WebRTC) Close() error {
	return nil
}

// int16ToBytes converts samples to little-endian bytes
func int16ToBytes(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}
