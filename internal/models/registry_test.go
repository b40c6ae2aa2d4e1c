package models

import (
	"context"
	"errors"
	"testing"

	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
	"github.com/msto63/dolmetscher/pkg/core/health"
)

func TestDefault(t *testing.T) {
	r := Default()

	tests := []struct {
		pair language.Pair
		want bool
	}{
		{language.Pair{From: language.French, To: language.English}, true},
		{language.Pair{From: language.English, To: language.French}, true},
		{language.Pair{From: language.Spanish, To: language.English}, true},
		{language.Pair{From: language.French, To: language.German}, false},
		{language.Pair{From: language.German, To: language.Italian}, false},
	}

	for _, tt := range tests {
		t.Run(tt.pair.String(), func(t *testing.T) {
			if got := r.HasTranslation(tt.pair); got != tt.want {
				t.Errorf("HasTranslation(%v) = %v, want %v", tt.pair, got, tt.want)
			}
		})
	}

	if !r.HasSpeechModel(language.French) || r.HasSpeechModel(language.German) {
		t.Error("unexpected default speech models")
	}
}

func TestRegistry_RequireTranslation(t *testing.T) {
	r := Default()
	err := r.RequireTranslation(language.Pair{From: language.German, To: language.French})
	if !errors.Is(err, apperr.ErrModelUnavailable) {
		t.Errorf("RequireTranslation() error = %v, want MODEL_UNAVAILABLE", err)
	}
	if err := r.RequireTranslation(language.Pair{From: language.French, To: language.English}); err != nil {
		t.Errorf("RequireTranslation(fr-en) error = %v", err)
	}
}

func TestRegistry_InstallRemove(t *testing.T) {
	r := NewRegistry(nil, nil)
	p := language.Pair{From: language.German, To: language.English}

	r.InstallPair(p)
	r.InstallSpeech(language.German)
	if !r.HasTranslation(p) || !r.HasSpeechModel(language.German) {
		t.Fatal("installed models not reported")
	}

	r.RemovePair(p)
	r.RemoveSpeech(language.German)
	if r.HasTranslation(p) || r.HasSpeechModel(language.German) {
		t.Error("removed models still reported")
	}
}

func TestFromStrings(t *testing.T) {
	r, err := FromStrings([]string{"fr", "de"}, []string{"fr-de", "de-fr"})
	if err != nil {
		t.Fatalf("FromStrings() error = %v", err)
	}
	if got := len(r.Pairs()); got != 2 {
		t.Errorf("Pairs() len = %d, want 2", got)
	}
	if r.Pairs()[0].String() != "de-fr" {
		t.Errorf("Pairs() not sorted: %v", r.Pairs())
	}

	_, err = FromStrings(nil, []string{"fr:de"})
	if !errors.Is(err, apperr.ErrInvalidConfig) {
		t.Errorf("FromStrings(bad pair) error = %v, want INVALID_CONFIG", err)
	}
}

func TestRegistry_HealthCheck(t *testing.T) {
	r := Default()
	fr := func() language.Code { return language.French }
	en := func() language.Code { return language.English }
	de := func() language.Code { return language.German }

	if got := r.HealthCheck(fr, en).Check(context.Background()); got.Status != health.StatusHealthy {
		t.Errorf("fr/en status = %v, want healthy (%s)", got.Status, got.Message)
	}
	if got := r.HealthCheck(fr, de).Check(context.Background()); got.Status != health.StatusDegraded {
		t.Errorf("fr/de status = %v, want degraded", got.Status)
	}
}
