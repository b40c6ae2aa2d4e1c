// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     conversation
// Description: Conversation messages and direction
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package conversation

import (
	"time"

	"github.com/google/uuid"
	"github.com/msto63/dolmetscher/internal/language"
)

// Direction tells which side of the language pair spoke
type Direction string

const (
	SourceToTarget Direction = "source_to_target"
	TargetToSource Direction = "target_to_source"
)

// Message is one translated exchange. Messages are immutable once appended.
type Message struct {
	ID             string        `json:"id"`
	Original       string        `json:"original"`
	Translated     string        `json:"translated"`
	SourceLanguage language.Code `json:"source_language"`
	TargetLanguage language.Code `json:"target_language"`
	Confidence     float64       `json:"confidence"`
	Direction      Direction     `json:"direction"`
	Timestamp      time.Time     `json:"timestamp"`
}

// NewMessage creates a message with a fresh ID
func NewMessage(original, translated string, from, to language.Code, confidence float64, dir Direction, at time.Time) Message {
	return Message{
		ID:             uuid.New().String(),
		Original:       original,
		Translated:     translated,
		SourceLanguage: from,
		TargetLanguage: to,
		Confidence:     confidence,
		Direction:      dir,
		Timestamp:      at,
	}
}
