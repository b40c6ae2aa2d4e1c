package vad

import (
	"errors"
	"testing"

	"github.com/msto63/dolmetscher/internal/audio"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

type fakeDetector struct {
	speech bool
	err    error
	calls  int
}

func (f *fakeDetector) IsSpeech([]float32) (bool, error) {
	f.calls++
	return f.speech, f.err
}

func (f *fakeDetector) Close() error { return nil }

func TestGate_Apply(t *testing.T) {
	frame := audio.Frame{Samples: make([]float32, 160), SampleRate: 16000}

	tests := []struct {
		name      string
		detector  *fakeDetector
		amplitude float64
		want      float64
		wantCalls int
	}{
		{"quiet frame skips detector", &fakeDetector{}, 0.05, 0.05, 0},
		{"loud speech passes", &fakeDetector{speech: true}, 0.4, 0.4, 1},
		{"loud noise becomes silence", &fakeDetector{speech: false}, 0.4, 0, 1},
		{"detector error keeps amplitude", &fakeDetector{err: errors.New("bad frame")}, 0.4, 0.4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(tt.detector, logging.Discard())
			if got := g.Apply(tt.amplitude, 0.1, frame); got != tt.want {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
			if tt.detector.calls != tt.wantCalls {
				t.Errorf("detector calls = %d, want %d", tt.detector.calls, tt.wantCalls)
			}
		})
	}
}

func TestNewWebRTC_InvalidRate(t *testing.T) {
	if _, err := NewWebRTC(Config{SampleRate: 44100, Mode: 2}); err == nil {
		t.Error("NewWebRTC(44100) should fail")
	}
}

func TestWebRTC_SilenceIsNotSpeech(t *testing.T) {
	w, err := NewWebRTC(DefaultConfig())
	if err != nil {
		t.Fatalf("NewWebRTC() error = %v", err)
	}
	defer w.Close()

	speech, err := w.IsSpeech(make([]float32, 480))
	if err != nil {
		t.Fatalf("IsSpeech() error = %v", err)
	}
	if speech {
		t.Error("all-zero frame classified as speech")
	}
}

func TestWebRTC_ModeClamped(t *testing.T) {
	w, err := NewWebRTC(Config{SampleRate: 16000, Mode: 9})
	if err != nil {
		t.Fatalf("NewWebRTC() error = %v", err)
	}
	if w.Mode() != 3 {
		t.Errorf("Mode() = %d, want 3", w.Mode())
	}
}
