package tts

import (
	"context"

	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// LogSynthesizer writes utterances to the log instead of speaking them
type LogSynthesizer struct {
	logger *logging.Logger
}

// NewLogSynthesizer creates a log-only synthesizer
func NewLogSynthesizer(logger *logging.Logger) *LogSynthesizer {
	if logger == nil {
		logger = logging.New("tts")
	}
	return &LogSynthesizer{logger: logger}
}

// Name returns the engine name
func (l *LogSynthesizer) Name() string {
	return "log"
}

// Speak logs the utterance
func (l *LogSynthesizer) Speak(ctx context.Context, u Utterance) error {
	l.logger.Info("Speak", "language", u.Language, "volume", u.Volume, "text", u.Text)
	return ctx.Err()
}
