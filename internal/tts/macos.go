// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     tts
// Description: Speech output through the macOS say command
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package tts

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/msto63/dolmetscher/internal/language"
)

// DefaultVoices maps languages to voices installed with macOS
var DefaultVoices = map[language.Code]string{
	language.English:    "Samantha",
	language.French:     "Thomas",
	language.Spanish:    "Monica",
	language.German:     "Anna",
	language.Italian:    "Alice",
	language.Portuguese: "Luciana",
}

// MacOSSay implements Synthesizer using the say command
type MacOSSay struct {
	voices map[language.Code]string
}

// NewMacOSSay creates a say-based synthesizer. Voices missing from
// overrides fall back to DefaultVoices.
func NewMacOSSay(overrides map[language.Code]string) *MacOSSay {
	voices := make(map[language.Code]string, len(DefaultVoices))
	for l, v := range DefaultVoices {
		voices[l] = v
	}
	for l, v := range overrides {
		voices[l] = v
	}
	return &MacOSSay{voices: voices}
}

// IsAvailable checks if say can be run
func IsAvailable() bool {
	if runtime.GOOS != "darwin" {
		return false
	}
	_, err := exec.LookPath("say")
	return err == nil
}

// Name returns the engine name
func (m *MacOSSay) Name() string {
	return "say"
}

// Speak runs say and waits for it to finish
func (m *MacOSSay) Speak(ctx context.Context, u Utterance) error {
	cmd := exec.CommandContext(ctx, "say", m.args(u)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("say failed: %w: %s", err, out)
	}
	return nil
}

func (m *MacOSSay) args(u Utterance) []string {
	var args []string
	if voice := m.voices[u.Language]; voice != "" {
		args = append(args, "-v", voice)
	}
	if u.Rate > 0 {
		args = append(args, "-r", strconv.Itoa(u.Rate))
	}
	text := u.Text
	if u.Volume < 1 {
		text = fmt.Sprintf("[[volm %.2f]] %s", u.Volume, text)
	}
	return append(args, text)
}
