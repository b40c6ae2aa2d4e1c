package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/msto63/dolmetscher/internal/audio"
	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/internal/session"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
	"github.com/msto63/dolmetscher/pkg/core/config"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

func init() {
	RecognitionDelay = 0
	TranslationDelay = 0
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Storage.Enabled = true
	cfg.Storage.Path = filepath.Join(dir, "history.db")
	cfg.Archive.Dir = filepath.Join(dir, "transcripts")
	cfg.Synthesis.Engine = "log"
	cfg.VAD.Enabled = false
	cfg.Hotkey.Enabled = false
	return cfg
}

func testSource() audio.Source {
	return audio.NewSynthetic(audio.SyntheticConfig{
		SampleRate: audio.DefaultSampleRate,
		FrameSize:  1600,
		Speech:     time.Second,
		Pause:      3 * time.Second,
		Amplitude:  0.4,
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSessionSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Session.ManualMode = true
	cfg.Session.SourceLanguage = "es"
	cfg.Silence.Duration = config.Duration{Duration: 2 * time.Second}

	s, err := SessionSettings(cfg)
	if err != nil {
		t.Fatalf("SessionSettings() error = %v", err)
	}
	if !s.ManualMode {
		t.Error("ManualMode = false, want true")
	}
	if s.SourceLanguage != language.Spanish {
		t.Errorf("SourceLanguage = %v, want es", s.SourceLanguage)
	}
	if s.Silence.Duration != 2*time.Second {
		t.Errorf("Silence.Duration = %v, want 2s", s.Silence.Duration)
	}
	if s.MaxUtterance != session.DefaultMaxUtterance {
		t.Errorf("MaxUtterance = %v, want %v", s.MaxUtterance, session.DefaultMaxUtterance)
	}

	cfg.Session.TargetLanguage = "xx"
	if _, err := SessionSettings(cfg); !apperr.HasCode(err, apperr.CodeInvalidConfig) {
		t.Errorf("SessionSettings() error = %v, want INVALID_CONFIG", err)
	}
}

func TestMemoryConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Memory.BudgetMB = 512
	if got := memoryConfig(cfg).Budget; got != 512<<20 {
		t.Errorf("Budget = %d, want %d", got, 512<<20)
	}
}

func TestNew_InvalidPairs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Models.TranslationPairs = []string{"fr"}
	if _, err := New(context.Background(), Options{Config: cfg, Logger: logging.Discard(), Source: testSource(), DisableServers: true}); err == nil {
		t.Fatal("New() expected error for malformed pair")
	}
}

func TestApp_TranslatesPersistsAndArchives(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := New(ctx, Options{Config: cfg, Logger: logging.Discard(), Source: testSource(), DisableServers: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	runDone := make(chan error, 1)
	go func() { runDone <- a.Run(ctx, nil) }()

	c := a.Coordinator()
	waitFor(t, "coordinator", c.Running)

	if report := a.Health().Check(ctx); !report.Healthy() {
		t.Errorf("health = %s, want healthy", report.String())
	}

	if changed, err := c.Start(ctx); err != nil || !changed {
		t.Fatalf("Start() = %v, %v", changed, err)
	}

	// One second of tone, then silence ends the segment.
	waitFor(t, "translated message", func() bool { return c.Conversation().Len() == 1 })
	waitFor(t, "idle", func() bool { return c.State().Kind == session.StateIdle })

	msg := c.Conversation().Snapshot()[0]
	if msg.SourceLanguage != language.French || msg.TargetLanguage != language.English {
		t.Errorf("languages = %v→%v, want fr→en", msg.SourceLanguage, msg.TargetLanguage)
	}
	waitFor(t, "stored message", func() bool {
		n, _ := a.store.Count(ctx)
		return n == 1
	})

	if err := c.ClearConversation(ctx); err != nil {
		t.Fatalf("ClearConversation() error = %v", err)
	}
	waitFor(t, "archived transcript", func() bool {
		entries, _ := os.ReadDir(cfg.Archive.Dir)
		n, _ := a.store.Count(ctx)
		return len(entries) == 1 && n == 0
	})

	cancel()
	select {
	case err := <-runDone:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return")
	}
}

func TestApp_RestoresHistory(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := New(ctx, Options{Config: cfg, Logger: logging.Discard(), Source: testSource(), DisableServers: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	runDone := make(chan error, 1)
	runCtx, stop := context.WithCancel(ctx)
	go func() { runDone <- first.Run(runCtx, nil) }()

	c := first.Coordinator()
	waitFor(t, "coordinator", c.Running)
	c.Start(ctx)
	waitFor(t, "stored message", func() bool {
		n, _ := first.store.Count(ctx)
		return n == 1
	})
	stop()
	<-runDone
	first.Close()

	second, err := New(ctx, Options{Config: cfg, Logger: logging.Discard(), Source: testSource(), DisableServers: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer second.Close()

	if n := second.Coordinator().Conversation().Len(); n != 1 {
		t.Errorf("restored messages = %d, want 1", n)
	}
}

func TestApp_ApplyConfig(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := New(ctx, Options{Config: cfg, Logger: logging.Discard(), Source: testSource(), DisableServers: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()
	go a.Run(ctx, nil)
	waitFor(t, "coordinator", a.Coordinator().Running)

	next := testConfig(t)
	next.Session.ManualMode = true
	next.Silence.Threshold = 0.3
	next.Synthesis.Volume = 0.5
	a.applyConfig(next)

	s := a.Coordinator().Settings()
	if !s.ManualMode || s.Silence.Threshold != 0.3 {
		t.Errorf("settings = %+v, want manual mode and threshold 0.3", s)
	}
	if got := a.queue.Volume(); got != 0.5 {
		t.Errorf("Volume() = %v, want 0.5", got)
	}

	bad := testConfig(t)
	bad.Session.SourceLanguage = "xx"
	a.applyConfig(bad)
	if a.Coordinator().Settings().Silence.Threshold != 0.3 {
		t.Error("invalid reload replaced the settings")
	}
}
