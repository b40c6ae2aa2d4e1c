// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     app
// Description: Composition root wiring the session and its services
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/msto63/dolmetscher/internal/audio"
	"github.com/msto63/dolmetscher/internal/conversation"
	"github.com/msto63/dolmetscher/internal/hotkey"
	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/internal/memory"
	"github.com/msto63/dolmetscher/internal/models"
	"github.com/msto63/dolmetscher/internal/server"
	"github.com/msto63/dolmetscher/internal/session"
	"github.com/msto63/dolmetscher/internal/stt"
	"github.com/msto63/dolmetscher/internal/translation"
	"github.com/msto63/dolmetscher/internal/tts"
	"github.com/msto63/dolmetscher/internal/vad"
	"github.com/msto63/dolmetscher/pkg/core/config"
	coregrpc "github.com/msto63/dolmetscher/pkg/core/grpc"
	"github.com/msto63/dolmetscher/pkg/core/health"
	"github.com/msto63/dolmetscher/pkg/core/logging"
	"github.com/msto63/dolmetscher/pkg/core/version"
)

// Simulated inference times of the stub stages
var (
	RecognitionDelay = 400 * time.Millisecond
	TranslationDelay = 150 * time.Millisecond
)

const shutdownTimeout = 10 * time.Second

// Options control how the application is assembled
type Options struct {
	Config *config.Config

	// ConfigPath is watched for preference changes when set
	ConfigPath string

	Logger *logging.Logger

	// Source replaces the configured audio source
	Source audio.Source

	// DisableServers skips the HTTP and gRPC endpoints and the hotkey
	DisableServers bool
}

// App owns every long-lived component of a running translator
type App struct {
	cfg        *config.Config
	configPath string
	logger     *logging.Logger

	registry    *models.Registry
	source      audio.Source
	gate        *vad.Gate
	queue       *tts.Queue
	store       *conversation.SQLiteStore
	persister   *conversation.Persister
	coordinator *session.Coordinator
	memory      *memory.Monitor
	health      *health.Registry

	httpServer *server.Server
	grpcServer *coregrpc.Server
	hotkey     *hotkey.Listener

	closers []func() error
}

// New assembles the application. ctx bounds the synthesis queue.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(LoggerConfig(cfg))
	}

	a := &App{cfg: cfg, configPath: opts.ConfigPath, logger: logger}
	if err := a.build(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, opts Options) error {
	cfg := a.cfg

	settings, err := SessionSettings(cfg)
	if err != nil {
		return err
	}

	a.registry, err = models.FromStrings(cfg.Models.SpeechLanguages, cfg.Models.TranslationPairs)
	if err != nil {
		return err
	}

	a.source = opts.Source
	if a.source == nil {
		if a.source, err = a.newSource(); err != nil {
			return err
		}
	}

	var gate session.Gate
	if cfg.VAD.Enabled {
		detector, err := vad.NewWebRTC(vad.Config{SampleRate: cfg.Audio.SampleRate, Mode: cfg.VAD.Mode})
		if err != nil {
			return fmt.Errorf("failed to create VAD: %w", err)
		}
		a.gate = vad.NewGate(detector, a.logger.Named("vad"))
		a.closers = append(a.closers, a.gate.Close)
		gate = a.gate
	}

	a.queue = tts.NewQueue(ctx, a.newSynthesizer(), synthesisConfig(cfg), a.logger.Named("tts"))
	a.closers = append(a.closers, func() error { a.queue.Close(); return nil })

	if cfg.Storage.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
		a.store, err = conversation.NewSQLiteStore(conversation.SQLiteConfig{Path: cfg.Storage.Path})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, a.store.Close)
	}
	archiver := conversation.NewArchiver(cfg.Archive.Dir, ArchiveS3Config(cfg), a.logger.Named("archive"))
	a.persister = a.newPersister(archiver)

	log := conversation.NewLog()
	if _, err := a.persister.Restore(ctx, log, cfg.Storage.RestoreLimit); err != nil {
		a.logger.Warn("Failed to restore conversation", "error", err)
	}

	a.coordinator, err = session.New(session.Options{
		Settings:    settings,
		Source:      a.source,
		Recognizer:  stt.NewStub(a.registry, RecognitionDelay),
		Translator:  translation.NewStage(translation.NewPhrasebook(TranslationDelay), a.registry, a.logger.Named("translation")),
		Synthesizer: a.queue,
		Log:         log,
		Gate:        gate,
		Logger:      a.logger.Named("session"),
		Workers:     cfg.Session.Workers,
		Smoothing:   cfg.Session.Smoothing,
	})
	if err != nil {
		return err
	}

	a.memory = memory.NewMonitor(memoryConfig(cfg), a.logger.Named("memory"))
	a.health = a.newHealthRegistry()

	if !opts.DisableServers {
		if err := a.buildEndpoints(); err != nil {
			return err
		}
	}
	return nil
}

// newPersister avoids handing a typed nil store to the persister
func (a *App) newPersister(archiver *conversation.Archiver) *conversation.Persister {
	logger := a.logger.Named("persister")
	if a.store == nil {
		return conversation.NewPersister(nil, archiver, logger)
	}
	return conversation.NewPersister(a.store, archiver, logger)
}

func (a *App) newSource() (audio.Source, error) {
	if a.cfg.Audio.Source == "synthetic" {
		a.logger.Info("Using synthetic audio source")
		return audio.NewSynthetic(syntheticConfig(a.cfg)), nil
	}
	capture, err := audio.NewCapture(captureConfig(a.cfg), a.logger.Named("capture"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, capture.Close)
	return capture, nil
}

func (a *App) newSynthesizer() tts.Synthesizer {
	cfg := synthesisConfig(a.cfg)
	if cfg.Engine == "say" {
		if tts.IsAvailable() {
			return tts.NewMacOSSay(cfg.Voices)
		}
		a.logger.Warn("say is not available, synthesis is logged only")
	}
	return tts.NewLogSynthesizer(a.logger.Named("tts"))
}

func (a *App) newHealthRegistry() *health.Registry {
	registry := health.NewRegistry("dolmetscher", version.App)
	registry.Register(health.LivenessCheck("session", a.coordinator.Running))
	registry.Register(a.registry.HealthCheck(
		func() language.Code { return a.coordinator.Settings().SourceLanguage },
		func() language.Code { return a.coordinator.Settings().TargetLanguage },
	))
	registry.Register(a.memory.HealthCheck())
	if a.store != nil {
		registry.Register(health.PingCheck("storage", a.store.Ping))
	}
	return registry
}

func (a *App) buildEndpoints() error {
	cfg := a.cfg

	if cfg.Server.HTTP.Enabled {
		sc := server.DefaultConfig()
		sc.Host = cfg.Server.HTTP.Host
		sc.Port = cfg.Server.HTTP.Port
		sc.AllowedOrigins = cfg.Server.HTTP.AllowedOrigins
		sc.Version = version.API
		a.httpServer = server.New(sc, a.coordinator, a.health, a.logger.Named("http"))
	}

	if cfg.Server.GRPC.Enabled {
		gc := coregrpc.DefaultServerConfig()
		gc.Host = cfg.Server.GRPC.Host
		gc.Port = cfg.Server.GRPC.Port
		a.grpcServer = coregrpc.NewServer(gc, a.logger.Named("grpc"))
	}

	if cfg.Hotkey.Enabled {
		binding, err := hotkey.Parse(cfg.Hotkey.Key, cfg.Hotkey.Modifiers)
		if err != nil {
			return err
		}
		a.hotkey = hotkey.NewListener(binding, a.coordinator, a.logger.Named("hotkey"))
	}
	return nil
}

// ArchiveS3Config converts the archive upload section
func ArchiveS3Config(cfg *config.Config) conversation.S3Config {
	s := cfg.Archive.S3
	return conversation.S3Config{
		Bucket:          s.Bucket,
		Region:          s.Region,
		Endpoint:        s.Endpoint,
		Prefix:          s.Prefix,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
	}
}

// Coordinator returns the session coordinator
func (a *App) Coordinator() *session.Coordinator {
	return a.coordinator
}

// Health returns the health registry
func (a *App) Health() *health.Registry {
	return a.health
}

// Run starts every service and blocks until ctx is done or foreground
// returns. foreground may be nil.
func (a *App) Run(ctx context.Context, foreground func(ctx context.Context) error) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Subscribe before the loop starts so no message is missed.
	sub := a.coordinator.Subscribe()

	var wg sync.WaitGroup
	coordErr := make(chan error, 1)
	go func() {
		coordErr <- a.coordinator.Run(runCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.persist(runCtx, sub)
	}()

	a.memory.OnChange(func(from, to memory.Level, usage float64) {
		a.logger.Warn("Memory level changed", "from", from.String(), "to", to.String(), "usage", usage)
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.memory.Run(runCtx)
	}()

	if err := a.startEndpoints(runCtx, &wg); err != nil {
		cancel()
		<-a.coordinator.Done()
		wg.Wait()
		return err
	}

	if a.configPath != "" {
		if err := config.Watch(runCtx, a.configPath, a.logger.Named("config"), a.applyConfig); err != nil {
			a.logger.Warn("Config watcher not started", "error", err)
		}
	}

	a.logger.Info("meinDOLMETSCHER ready",
		"source", a.cfg.Session.SourceLanguage,
		"target", a.cfg.Session.TargetLanguage,
		"manual", a.cfg.Session.ManualMode,
	)

	var runErr error
	if foreground != nil {
		runErr = foreground(runCtx)
	} else {
		select {
		case <-runCtx.Done():
		case runErr = <-coordErr:
		}
	}

	cancel()
	a.stopEndpoints()
	<-a.coordinator.Done()
	wg.Wait()
	a.logger.Info("meinDOLMETSCHER stopped")
	return runErr
}

func (a *App) startEndpoints(ctx context.Context, wg *sync.WaitGroup) error {
	if a.grpcServer != nil {
		if err := a.grpcServer.StartAsync(); err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.grpcServer.TrackHealth(ctx, a.health)
		}()
	}

	if a.httpServer != nil {
		if err := a.httpServer.StartAsync(); err != nil {
			return err
		}
	}

	if a.hotkey != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.hotkey.Run(ctx); err != nil {
				a.logger.Warn("Hotkey unavailable", "error", err)
			}
		}()
	}
	return nil
}

func (a *App) stopEndpoints() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			a.logger.Warn("HTTP shutdown failed", "error", err)
		}
	}
	if a.grpcServer != nil {
		a.grpcServer.Stop(ctx)
	}
}

// persist writes conversation changes to storage until the subscription
// closes, which happens when the coordinator stops.
func (a *App) persist(ctx context.Context, sub *session.Subscription) {
	for ev := range sub.C {
		// The coordinator has stopped when ctx is done; finish the writes
		// with a fresh context.
		opCtx := ctx
		if ctx.Err() != nil {
			opCtx = context.Background()
		}

		switch ev.Type {
		case session.EventMessageAppended:
			if ev.Message == nil {
				continue
			}
			if err := a.persister.Appended(opCtx, *ev.Message); err != nil {
				a.logger.Warn("Failed to persist message", "error", err, "id", ev.Message.ID)
			}
		case session.EventConversationCleared:
			if err := a.persister.Cleared(opCtx); err != nil {
				a.logger.Warn("Failed to archive cleared conversation", "error", err)
			}
		}
	}
}

// applyConfig re-applies preferences after the config file changed
func (a *App) applyConfig(cfg *config.Config) {
	settings, err := SessionSettings(cfg)
	if err != nil {
		a.logger.Warn("Ignoring reloaded settings", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.coordinator.Configure(ctx, settings); err != nil {
		a.logger.Warn("Failed to apply reloaded settings", "error", err)
		return
	}

	a.queue.SetEnabled(cfg.Synthesis.Enabled)
	a.queue.SetVolume(cfg.Synthesis.Volume)
	a.logger.SetLevel(logging.ParseLevel(cfg.Logging.Level))
	a.logger.Info("Preferences reloaded")
}

// Close releases devices, storage and the synthesis queue
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
