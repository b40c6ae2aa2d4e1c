// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     stt
// Description: Offline stub recognizer returning canned phrases
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package stt

import (
	"context"
	"sync"
	"time"

	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
)

// StubConfidence is the confidence reported for every stub transcription
const StubConfidence = 0.92

// Phrases are the canned transcriptions per language
var Phrases = map[language.Code][]string{
	language.French: {
		"Bonjour, comment puis-je vous aider aujourd'hui ?",
		"Je voudrais réserver un billet pour Paris.",
		"Pourriez-vous m'indiquer le chemin vers la gare ?",
		"J'aimerais commander un café, s'il vous plaît.",
		"Quel temps fait-il aujourd'hui ?",
	},
	language.English: {
		"Hello, how can I help you today?",
		"I would like to book a ticket to Paris.",
		"Could you tell me the way to the train station?",
		"I would like to order a coffee, please.",
		"What's the weather like today?",
	},
	language.Spanish: {
		"Hola, ¿cómo puedo ayudarle hoy?",
		"Quisiera reservar un billete para París.",
	},
}

// ModelChecker reports installed recognizer models
type ModelChecker interface {
	HasSpeechModel(lang language.Code) bool
}

// Stub is a Recognizer that cycles through canned phrases
type Stub struct {
	models ModelChecker
	delay  time.Duration

	mu   sync.Mutex
	next map[language.Code]int
}

// NewStub creates a stub recognizer. delay simulates inference time.
func NewStub(models ModelChecker, delay time.Duration) *Stub {
	return &Stub{
		models: models,
		delay:  delay,
		next:   make(map[language.Code]int),
	}
}

// Name returns the engine name
func (s *Stub) Name() string {
	return "stub"
}

// Recognize returns the next canned phrase for the request language
func (s *Stub) Recognize(ctx context.Context, req Request) (Result, error) {
	if len(req.Samples) == 0 {
		return Result{}, apperr.New(apperr.CodeRecognitionFailed, "no audio to recognize").
			WithOperation("recognize")
	}
	if s.models != nil && !s.models.HasSpeechModel(req.Language) {
		return Result{}, apperr.Newf(apperr.CodeModelUnavailable, "no speech model for %s", req.Language).
			WithOperation("recognize")
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Result{}, apperr.Wrap(ctx.Err(), apperr.CodeRecognitionFailed, "recognition interrupted")
		}
	}

	// Without canned phrases the transcript is English and tagged as such
	lang := req.Language
	phrases := Phrases[lang]
	if len(phrases) == 0 {
		lang = language.English
		phrases = Phrases[lang]
	}

	s.mu.Lock()
	i := s.next[lang]
	s.next[lang] = (i + 1) % len(phrases)
	s.mu.Unlock()

	return Result{
		Text:       phrases[i],
		Language:   lang,
		Confidence: StubConfidence,
		Duration:   req.Duration(),
	}, nil
}
