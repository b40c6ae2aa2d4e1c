// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     tts
// Description: Speech synthesis interface
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package tts

import (
	"context"

	"github.com/msto63/dolmetscher/internal/language"
)

// Utterance is one piece of text to speak
type Utterance struct {
	Text     string
	Language language.Code
	Volume   float64 // 0..1
	Rate     int     // words per minute, 0 = engine default
}

// Synthesizer speaks text. Speak blocks until playback finishes or ctx is
// cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) error
	Name() string
}

// Config holds TTS configuration
type Config struct {
	// Engine is "say" or "log"
	Engine string

	// Voices overrides the voice per language
	Voices map[language.Code]string

	// Volume is the output volume (0..1)
	Volume float64

	// Rate is the speech rate in words per minute
	Rate int

	// Enabled turns speaking on or off
	Enabled bool
}

// DefaultConfig returns default TTS configuration
func DefaultConfig() Config {
	return Config{
		Engine:  "say",
		Volume:  1.0,
		Rate:    180,
		Enabled: true,
	}
}
