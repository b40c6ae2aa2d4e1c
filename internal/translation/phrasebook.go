// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     translation
// Description: Offline phrase-table engine
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
)

// PhrasebookConfidence is reported for every phrasebook translation
const PhrasebookConfidence = 0.89

var frToEn = [][2]string{
	{"Bonjour, comment puis-je vous aider aujourd'hui ?", "Hello, how can I help you today?"},
	{"Je voudrais réserver un billet pour Paris.", "I would like to book a ticket to Paris."},
	{"Pourriez-vous m'indiquer le chemin vers la gare ?", "Could you tell me the way to the train station?"},
	{"J'aimerais commander un café, s'il vous plaît.", "I would like to order a coffee, please."},
	{"Quel temps fait-il aujourd'hui ?", "What's the weather like today?"},
}

var enToEs = [][2]string{
	{"Hello, how can I help you today?", "Hola, ¿cómo puedo ayudarle hoy?"},
	{"I would like to book a ticket to Paris.", "Quisiera reservar un billete para París."},
}

// Phrasebook translates known phrases from built-in tables and marks
// everything else with the pair it was routed through.
type Phrasebook struct {
	tables map[language.Pair]map[string]string
	delay  time.Duration
}

// NewPhrasebook creates the engine. delay simulates inference time.
func NewPhrasebook(delay time.Duration) *Phrasebook {
	p := &Phrasebook{
		tables: make(map[language.Pair]map[string]string),
		delay:  delay,
	}
	p.AddTable(language.Pair{From: language.French, To: language.English}, frToEn)
	p.AddTable(language.Pair{From: language.English, To: language.Spanish}, enToEs)
	return p
}

// AddTable registers phrases for a pair and their reverse direction
func (p *Phrasebook) AddTable(pair language.Pair, phrases [][2]string) {
	forward := p.table(pair)
	reverse := p.table(pair.Reverse())
	for _, ph := range phrases {
		forward[normalize(ph[0])] = ph[1]
		reverse[normalize(ph[1])] = ph[0]
	}
}

func (p *Phrasebook) table(pair language.Pair) map[string]string {
	t, ok := p.tables[pair]
	if !ok {
		t = make(map[string]string)
		p.tables[pair] = t
	}
	return t
}

// Name returns the engine name
func (p *Phrasebook) Name() string {
	return "phrasebook"
}

// Translate looks the phrase up for the pair
func (p *Phrasebook) Translate(ctx context.Context, text string, pair language.Pair) (string, float64, error) {
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", 0, apperr.Wrap(ctx.Err(), apperr.CodeTranslationFailed, "translation interrupted")
		}
	}

	if out, ok := p.tables[pair][normalize(text)]; ok {
		return out, PhrasebookConfidence, nil
	}
	return fmt.Sprintf("[%s→%s] %s", pair.From, pair.To, strings.TrimSpace(text)), PhrasebookConfidence, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
