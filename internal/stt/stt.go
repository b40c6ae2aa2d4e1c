// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     stt
// Description: Speech recognition interface
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package stt

import (
	"context"
	"time"

	"github.com/msto63/dolmetscher/internal/language"
)

// Recognizer converts one utterance into text
type Recognizer interface {
	// Recognize transcribes the request's samples
	Recognize(ctx context.Context, req Request) (Result, error)

	// Name identifies the engine in logs
	Name() string
}

// Request is one utterance handed off for recognition
type Request struct {
	Samples    []float32
	SampleRate int

	// Language is the expected spoken language
	Language language.Code
}

// Duration returns the audio duration of the request
func (r Request) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(r.Samples)) * time.Second / time.Duration(r.SampleRate)
}

// Result holds the recognition result
type Result struct {
	// Text is the transcribed text
	Text string

	// Language is the detected language
	Language language.Code

	// Confidence is the confidence score (0-1)
	Confidence float64

	// Duration is the audio duration
	Duration time.Duration
}
