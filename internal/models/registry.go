// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     models
// Description: Registry of installed speech and translation models
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package models

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
	"github.com/msto63/dolmetscher/pkg/core/health"
)

// DefaultSpeechLanguages are the recognizer models shipped by default
var DefaultSpeechLanguages = []language.Code{language.French, language.English, language.Spanish}

// DefaultPairs are the translation models shipped by default
var DefaultPairs = []language.Pair{
	{From: language.French, To: language.English},
	{From: language.English, To: language.French},
	{From: language.English, To: language.Spanish},
	{From: language.Spanish, To: language.English},
}

// Registry tracks which models are installed. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	speech map[language.Code]struct{}
	pairs  map[language.Pair]struct{}
}

// NewRegistry creates a registry with the given models installed
func NewRegistry(speech []language.Code, pairs []language.Pair) *Registry {
	r := &Registry{
		speech: make(map[language.Code]struct{}),
		pairs:  make(map[language.Pair]struct{}),
	}
	for _, l := range speech {
		r.speech[l] = struct{}{}
	}
	for _, p := range pairs {
		r.pairs[p] = struct{}{}
	}
	return r
}

// Default returns a registry with the default models
func Default() *Registry {
	return NewRegistry(DefaultSpeechLanguages, DefaultPairs)
}

// FromStrings builds a registry from configuration values
func FromStrings(speech, pairs []string) (*Registry, error) {
	langs := make([]language.Code, 0, len(speech))
	for _, s := range speech {
		l, err := language.Parse(s)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInvalidConfig, "invalid speech model language")
		}
		langs = append(langs, l)
	}
	ps := make([]language.Pair, 0, len(pairs))
	for _, s := range pairs {
		p, err := language.ParsePair(s)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInvalidConfig, "invalid translation pair")
		}
		ps = append(ps, p)
	}
	return NewRegistry(langs, ps), nil
}

// HasSpeechModel reports whether a recognizer model exists for lang
func (r *Registry) HasSpeechModel(lang language.Code) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.speech[lang]
	return ok
}

// HasTranslation reports whether a translation model exists for the pair
func (r *Registry) HasTranslation(p language.Pair) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.pairs[p]
	return ok
}

// RequireTranslation returns MODEL_UNAVAILABLE if the pair is missing
func (r *Registry) RequireTranslation(p language.Pair) error {
	if r.HasTranslation(p) {
		return nil
	}
	return apperr.Newf(apperr.CodeModelUnavailable, "no translation model for %s", p).
		WithDetail("pair", p.String())
}

// InstallSpeech adds a recognizer model
func (r *Registry) InstallSpeech(lang language.Code) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speech[lang] = struct{}{}
}

// RemoveSpeech removes a recognizer model
func (r *Registry) RemoveSpeech(lang language.Code) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.speech, lang)
}

// InstallPair adds a translation model
func (r *Registry) InstallPair(p language.Pair) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs[p] = struct{}{}
}

// RemovePair removes a translation model
func (r *Registry) RemovePair(p language.Pair) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pairs, p)
}

// SpeechLanguages returns the installed recognizer languages, sorted
func (r *Registry) SpeechLanguages() []language.Code {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]language.Code, 0, len(r.speech))
	for l := range r.speech {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// Pairs returns the installed translation pairs, sorted by name
func (r *Registry) Pairs() []language.Pair {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]language.Pair, 0, len(r.pairs))
	for p := range r.pairs {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b language.Pair) int {
		if a.String() < b.String() {
			return -1
		}
		if a.String() > b.String() {
			return 1
		}
		return 0
	})
	return out
}

// HealthCheck reports degraded when the configured languages cannot be
// translated in both directions.
func (r *Registry) HealthCheck(source, target func() language.Code) health.Checker {
	return health.NewChecker("models", func(ctx context.Context) health.CheckResult {
		src, dst := source(), target()
		result := health.CheckResult{
			Status: health.StatusHealthy,
			Details: map[string]interface{}{
				"speech": len(r.SpeechLanguages()),
				"pairs":  len(r.Pairs()),
			},
		}
		var missing []string
		if !r.HasSpeechModel(src) {
			missing = append(missing, "speech "+string(src))
		}
		if src != dst {
			for _, p := range []language.Pair{{From: src, To: dst}, {From: dst, To: src}} {
				if !r.HasTranslation(p) {
					missing = append(missing, "translation "+p.String())
				}
			}
		}
		if len(missing) > 0 {
			result.Status = health.StatusDegraded
			result.Message = fmt.Sprintf("missing models: %v", missing)
		} else {
			result.Message = "models available"
		}
		return result
	})
}
