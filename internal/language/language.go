// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     language
// Description: Supported languages and language pairs
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package language

import (
	"fmt"
	"strings"
)

// Code is an ISO 639-1 language code
type Code string

// Supported languages
const (
	English    Code = "en"
	French     Code = "fr"
	Spanish    Code = "es"
	German     Code = "de"
	Italian    Code = "it"
	Portuguese Code = "pt"
)

var displayNames = map[Code]string{
	English:    "English",
	French:     "Français",
	Spanish:    "Español",
	German:     "Deutsch",
	Italian:    "Italiano",
	Portuguese: "Português",
}

// All returns the supported languages in menu order
func All() []Code {
	return []Code{English, French, Spanish, German, Italian, Portuguese}
}

// Valid reports whether c is a supported language
func (c Code) Valid() bool {
	_, ok := displayNames[c]
	return ok
}

// DisplayName returns the native name of the language
func (c Code) DisplayName() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return string(c)
}

// String returns the code
func (c Code) String() string {
	return string(c)
}

// Parse normalizes and validates a language code ("FR", "fr-FR" -> "fr")
func Parse(s string) (Code, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, "-_"); i > 0 {
		s = s[:i]
	}
	c := Code(s)
	if !c.Valid() {
		return "", fmt.Errorf("unsupported language %q", s)
	}
	return c, nil
}

// Pair is a directed translation pair
type Pair struct {
	From Code
	To   Code
}

// String returns the pair as "from-to"
func (p Pair) String() string {
	return string(p.From) + "-" + string(p.To)
}

// Reverse returns the opposite direction
func (p Pair) Reverse() Pair {
	return Pair{From: p.To, To: p.From}
}

// ParsePair parses "fr-en" into a Pair
func ParsePair(s string) (Pair, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Pair{}, fmt.Errorf("invalid language pair %q, want from-to", s)
	}
	f, err := Parse(from)
	if err != nil {
		return Pair{}, err
	}
	t, err := Parse(to)
	if err != nil {
		return Pair{}, err
	}
	return Pair{From: f, To: t}, nil
}
