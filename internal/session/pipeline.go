// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     session
// Description: Recognition, translation and synthesis sequencing
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package session

import (
	"context"
	"time"

	"github.com/msto63/dolmetscher/internal/conversation"
	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/internal/stt"
	"github.com/msto63/dolmetscher/internal/translation"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// Recognizer is the recognition stage
type Recognizer interface {
	Recognize(ctx context.Context, req stt.Request) (stt.Result, error)
}

// Translator is the translation stage
type Translator interface {
	Translate(ctx context.Context, text string, from, to language.Code) (translation.Result, error)
}

// Synthesizer is the synthesis stage
type Synthesizer interface {
	Enqueue(text string, lang language.Code)
	StopAll()
}

// job is one utterance handed off for processing
type job struct {
	cycle      uint64
	samples    []float32
	sampleRate int
	source     language.Code
	target     language.Code
}

// outcome is sent back to the coordinator. Exactly one of message and
// err is set.
type outcome struct {
	cycle   uint64
	message *conversation.Message
	err     error
}

// Pipeline runs the stages of one processing cycle in order
type Pipeline struct {
	recognizer  Recognizer
	translator  Translator
	synthesizer Synthesizer
	logger      *logging.Logger
	now         func() time.Time
}

// NewPipeline creates a pipeline over the three stages
func NewPipeline(r Recognizer, t Translator, s Synthesizer, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.New("pipeline")
	}
	return &Pipeline{recognizer: r, translator: t, synthesizer: s, logger: logger, now: time.Now}
}

// run executes recognition, translation and synthesis. The first failing
// stage ends the cycle; synthesis is best-effort and cannot fail it.
func (p *Pipeline) run(ctx context.Context, j job) outcome {
	start := p.now()

	recognized, err := p.recognizer.Recognize(ctx, stt.Request{
		Samples:    j.samples,
		SampleRate: j.sampleRate,
		Language:   j.source,
	})
	if err != nil {
		return outcome{cycle: j.cycle, err: stageError(err, apperr.CodeRecognitionFailed, "recognition")}
	}

	from, to, dir := route(recognized.Language, j.source, j.target)

	translated, err := p.translator.Translate(ctx, recognized.Text, from, to)
	if err != nil {
		return outcome{cycle: j.cycle, err: stageError(err, apperr.CodeTranslationFailed, "translation")}
	}

	if p.synthesizer != nil {
		p.synthesizer.Enqueue(translated.TranslatedText, to)
	}

	msg := conversation.NewMessage(
		translated.SourceText,
		translated.TranslatedText,
		from, to,
		translated.Confidence,
		dir,
		p.now(),
	)

	p.logger.Info("Utterance translated",
		"cycle", j.cycle,
		"from", from,
		"to", to,
		"recognition_confidence", recognized.Confidence,
		"translation_confidence", translated.Confidence,
		"audio", recognized.Duration,
		"duration", p.now().Sub(start))

	return outcome{cycle: j.cycle, message: &msg}
}

// route picks the translation direction. A recognizer that reports the
// target language means the other party spoke, so the text goes back to
// the source language.
func route(detected, source, target language.Code) (from, to language.Code, dir conversation.Direction) {
	if detected == "" {
		detected = source
	}
	if detected == target && target != source {
		return target, source, conversation.TargetToSource
	}
	return detected, target, conversation.SourceToTarget
}

// stageError keeps coded stage errors and wraps anything else with the
// stage's failure code.
func stageError(err error, code apperr.Code, stage string) error {
	if apperr.CodeOf(err) != apperr.CodeUnknown {
		return err
	}
	return apperr.Wrap(err, code, stage+" failed")
}
