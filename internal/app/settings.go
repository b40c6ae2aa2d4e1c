package app

import (
	"github.com/msto63/dolmetscher/internal/audio"
	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/internal/memory"
	"github.com/msto63/dolmetscher/internal/session"
	"github.com/msto63/dolmetscher/internal/tts"
	"github.com/msto63/dolmetscher/pkg/core/config"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// SessionSettings converts the preference sections of cfg
func SessionSettings(cfg *config.Config) (session.Settings, error) {
	s := session.Settings{
		Silence: audio.SilenceConfig{
			Threshold: cfg.Silence.Threshold,
			Duration:  cfg.Silence.Duration.Duration,
		},
		ManualMode:     cfg.Session.ManualMode,
		SourceLanguage: language.Code(cfg.Session.SourceLanguage),
		TargetLanguage: language.Code(cfg.Session.TargetLanguage),
		MaxUtterance:   cfg.Session.MaxUtterance.Duration,
	}
	return s, s.Validate()
}

// LoggerConfig converts the logging section. The file output, if any, is
// opened by the caller.
func LoggerConfig(cfg *config.Config) logging.LoggerConfig {
	lc := logging.DefaultLoggerConfig("dolmetscher")
	lc.Level = cfg.Logging.Level
	lc.Format = cfg.Logging.Format
	return lc
}

func synthesisConfig(cfg *config.Config) tts.Config {
	voices := make(map[language.Code]string, len(cfg.Synthesis.Voices))
	for code, voice := range cfg.Synthesis.Voices {
		voices[language.Code(code)] = voice
	}
	return tts.Config{
		Engine:  cfg.Synthesis.Engine,
		Voices:  voices,
		Volume:  cfg.Synthesis.Volume,
		Rate:    cfg.Synthesis.Rate,
		Enabled: cfg.Synthesis.Enabled,
	}
}

func memoryConfig(cfg *config.Config) memory.Config {
	return memory.Config{
		Interval: cfg.Memory.Interval.Duration,
		Budget:   uint64(cfg.Memory.BudgetMB) << 20,
		Warning:  cfg.Memory.Warning,
		Critical: cfg.Memory.Critical,
	}
}

func captureConfig(cfg *config.Config) audio.CaptureConfig {
	return audio.CaptureConfig{
		SampleRate: cfg.Audio.SampleRate,
		BufferSize: cfg.Audio.FramesPerBuffer,
		DeviceName: cfg.Audio.Device,
		QueueSize:  cfg.Audio.QueueSize,
	}
}

func syntheticConfig(cfg *config.Config) audio.SyntheticConfig {
	sc := audio.DefaultSyntheticConfig()
	sc.SampleRate = cfg.Audio.SampleRate
	sc.FrameSize = cfg.Audio.FramesPerBuffer
	return sc
}
