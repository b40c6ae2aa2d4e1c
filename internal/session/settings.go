// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     session
// Description: User preferences applied by the coordinator
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package session

import (
	"time"

	"github.com/msto63/dolmetscher/internal/audio"
	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
)

// DefaultMaxUtterance hands off a segment that never goes quiet
const DefaultMaxUtterance = 30 * time.Second

// Settings are the user preferences the coordinator acts on. A Settings
// value is immutable once published; changes replace the whole value.
type Settings struct {
	Silence        audio.SilenceConfig `json:"silence"`
	ManualMode     bool                `json:"manual_mode"`
	SourceLanguage language.Code       `json:"source_language"`
	TargetLanguage language.Code       `json:"target_language"`

	// MaxUtterance forces a handoff in automatic mode; 0 disables it
	MaxUtterance time.Duration `json:"max_utterance"`
}

// DefaultSettings returns French to English in automatic mode
func DefaultSettings() Settings {
	return Settings{
		Silence:        audio.DefaultSilenceConfig(),
		SourceLanguage: language.French,
		TargetLanguage: language.English,
		MaxUtterance:   DefaultMaxUtterance,
	}
}

// Validate reports INVALID_CONFIG for unusable settings
func (s Settings) Validate() error {
	if err := s.Silence.Validate(); err != nil {
		return err
	}
	if !s.SourceLanguage.Valid() {
		return apperr.Newf(apperr.CodeInvalidConfig, "unsupported source language %q", s.SourceLanguage).
			WithDetail("field", "source_language")
	}
	if !s.TargetLanguage.Valid() {
		return apperr.Newf(apperr.CodeInvalidConfig, "unsupported target language %q", s.TargetLanguage).
			WithDetail("field", "target_language")
	}
	if s.MaxUtterance < 0 {
		return apperr.Newf(apperr.CodeInvalidConfig, "max utterance %v must not be negative", s.MaxUtterance).
			WithDetail("field", "max_utterance")
	}
	return nil
}

// Swapped returns the settings with source and target exchanged
func (s Settings) Swapped() Settings {
	s.SourceLanguage, s.TargetLanguage = s.TargetLanguage, s.SourceLanguage
	return s
}
