package stt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/internal/models"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
)

func request(lang language.Code) Request {
	return Request{Samples: make([]float32, 16000), SampleRate: 16000, Language: lang}
}

func TestStub_Recognize(t *testing.T) {
	s := NewStub(models.Default(), 0)

	result, err := s.Recognize(context.Background(), request(language.French))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if result.Text != Phrases[language.French][0] {
		t.Errorf("Text = %q, want first French phrase", result.Text)
	}
	if result.Language != language.French {
		t.Errorf("Language = %v, want fr", result.Language)
	}
	if result.Confidence != StubConfidence {
		t.Errorf("Confidence = %v, want %v", result.Confidence, StubConfidence)
	}
	if result.Duration != time.Second {
		t.Errorf("Duration = %v, want 1s", result.Duration)
	}

	second, _ := s.Recognize(context.Background(), request(language.French))
	if second.Text != Phrases[language.French][1] {
		t.Errorf("second Text = %q, want second phrase", second.Text)
	}
}

func TestStub_Errors(t *testing.T) {
	s := NewStub(models.Default(), 0)

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"no audio", Request{SampleRate: 16000, Language: language.French}, apperr.ErrRecognitionFailed},
		{"no model", request(language.German), apperr.ErrModelUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Recognize(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("Recognize() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStub_DelayHonorsContext(t *testing.T) {
	s := NewStub(nil, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Recognize(ctx, request(language.English))
	if !errors.Is(err, apperr.ErrRecognitionFailed) {
		t.Errorf("Recognize() error = %v, want RECOGNITION_FAILED", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Recognize() error = %v, should wrap context.Canceled", err)
	}
}

func TestStub_FallbackIsTaggedEnglish(t *testing.T) {
	s := NewStub(models.NewRegistry([]language.Code{language.German}, nil), 0)

	result, err := s.Recognize(context.Background(), request(language.German))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if result.Language != language.English {
		t.Errorf("Language = %v, want en", result.Language)
	}
	if result.Text != Phrases[language.English][0] {
		t.Errorf("Text = %q, want first English phrase", result.Text)
	}
}
