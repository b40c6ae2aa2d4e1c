// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     translation
// Description: Translation stage enforcing input and model rules
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package translation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// Result holds a successful translation
type Result struct {
	SourceText     string
	TranslatedText string
	SourceLanguage language.Code
	TargetLanguage language.Code
	Confidence     float64
}

// Engine performs the actual translation of non-empty text for an
// installed pair.
type Engine interface {
	Translate(ctx context.Context, text string, pair language.Pair) (string, float64, error)
	Name() string
}

// ModelChecker reports installed translation models
type ModelChecker interface {
	HasTranslation(p language.Pair) bool
}

// Stage is the translation pipeline stage
type Stage struct {
	engine Engine
	models ModelChecker
	logger *logging.Logger
}

// NewStage creates a new translation stage
func NewStage(engine Engine, models ModelChecker, logger *logging.Logger) *Stage {
	if logger == nil {
		logger = logging.New("translation")
	}
	return &Stage{engine: engine, models: models, logger: logger}
}

// Name returns the stage name
func (s *Stage) Name() string {
	return "translation"
}

// Translate translates text from one language to another. Empty or
// whitespace-only text fails with EMPTY_INPUT; identical languages are a
// passthrough with confidence 1; a missing pair fails with MODEL_UNAVAILABLE.
func (s *Stage) Translate(ctx context.Context, text string, from, to language.Code) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, apperr.New(apperr.CodeEmptyInput, "nothing to translate").WithOperation("translate")
	}

	if from == to {
		return Result{
			SourceText:     text,
			TranslatedText: text,
			SourceLanguage: from,
			TargetLanguage: to,
			Confidence:     1.0,
		}, nil
	}

	pair := language.Pair{From: from, To: to}
	if s.models != nil && !s.models.HasTranslation(pair) {
		return Result{}, apperr.Newf(apperr.CodeModelUnavailable, "no translation model for %s", pair).
			WithOperation("translate").
			WithDetail("pair", pair.String())
	}

	start := time.Now()
	translated, confidence, err := s.engine.Translate(ctx, text, pair)
	if err != nil {
		var coded *apperr.Error
		if errors.As(err, &coded) {
			return Result{}, err
		}
		return Result{}, apperr.Wrap(err, apperr.CodeTranslationFailed, "engine "+s.engine.Name()).
			WithOperation("translate")
	}

	s.logger.Debug("Translated",
		"pair", pair.String(),
		"engine", s.engine.Name(),
		"duration", time.Since(start))

	return Result{
		SourceText:     text,
		TranslatedText: translated,
		SourceLanguage: from,
		TargetLanguage: to,
		Confidence:     confidence,
	}, nil
}
