// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     session
// Description: Session coordinator owning state, silence detection and log
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package session

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/msto63/dolmetscher/internal/audio"
	"github.com/msto63/dolmetscher/internal/conversation"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// ErrNotRunning is returned by commands sent before Run or after it ended
var ErrNotRunning = errors.New("session coordinator is not running")

// Gate adjusts frame amplitudes before silence detection
type Gate interface {
	Apply(amplitude, threshold float64, f audio.Frame) float64
}

// Options configures a Coordinator
type Options struct {
	Settings    Settings
	Source      audio.Source
	Recognizer  Recognizer
	Translator  Translator
	Synthesizer Synthesizer
	Log         *conversation.Log
	Gate        Gate
	Logger      *logging.Logger

	// Workers is the size of the pipeline worker pool
	Workers int

	// Smoothing is the level monitor's moving-average weight
	Smoothing float64
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
	cmdReset
	cmdClear
	cmdSwitch
	cmdConfigure
	cmdStopSpeaking
)

type command struct {
	kind     commandKind
	settings Settings
	reply    chan reply
}

type reply struct {
	changed bool
	err     error
}

// Coordinator serializes every change to the session state, the silence
// detector and the conversation log on the goroutine running Run. Frames,
// commands and pipeline outcomes all arrive there as messages.
type Coordinator struct {
	source   audio.Source
	pipeline *Pipeline
	synth    Synthesizer
	gate     Gate
	logger   *logging.Logger
	workers  int

	machine   *StateMachine
	detector  *audio.SilenceDetector
	monitor   *audio.LevelMonitor
	utterance *audio.Utterance
	log       *conversation.Log
	events    *Broadcaster

	settings atomic.Pointer[Settings]
	level    atomic.Uint64
	cycles   atomic.Uint64
	running  atomic.Bool

	commands chan command
	results  chan outcome
	done     chan struct{}

	// owned by the Run goroutine
	runCtx  context.Context
	frames  <-chan audio.Frame
	cycle   uint64
	pending bool
}

// New creates a coordinator. Settings are validated up front.
func New(opts Options) (*Coordinator, error) {
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	if opts.Source == nil || opts.Recognizer == nil || opts.Translator == nil {
		return nil, apperr.New(apperr.CodeInvalidConfig, "source, recognizer and translator are required")
	}
	if opts.Log == nil {
		opts.Log = conversation.NewLog()
	}
	if opts.Logger == nil {
		opts.Logger = logging.New("session")
	}

	detector, err := audio.NewSilenceDetector(opts.Settings.Silence)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		source:    opts.Source,
		pipeline:  NewPipeline(opts.Recognizer, opts.Translator, opts.Synthesizer, opts.Logger.Named("pipeline")),
		synth:     opts.Synthesizer,
		gate:      opts.Gate,
		logger:    opts.Logger,
		workers:   max(opts.Workers, 1),
		machine:   NewStateMachine(),
		detector:  detector,
		monitor:   audio.NewLevelMonitor(opts.Smoothing),
		utterance: audio.NewUtterance(audio.DefaultSampleRate),
		log:       opts.Log,
		events:    NewBroadcaster(),
		commands:  make(chan command),
		results:   make(chan outcome, 1),
		done:      make(chan struct{}),
	}
	s := opts.Settings
	c.settings.Store(&s)

	c.machine.AddListener(func(from, to State) {
		c.logger.Info("State changed", "from", from.Kind.Name(), "to", to.Kind.Name(), "reason", to.Reason)
		c.events.Publish(Event{Type: EventStateChanged, From: &from, To: &to})
	})
	return c, nil
}

// Run is the coordination loop. It returns when ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("session coordinator already running")
	}
	defer close(c.done)
	defer c.events.Close()

	c.runCtx = ctx
	pool := NewPool(ctx, c.workers, c.workers)
	defer pool.Close()

	c.logger.Info("Session coordinator started", "workers", c.workers)

	for {
		select {
		case <-ctx.Done():
			c.stopCapture()
			if c.synth != nil {
				c.synth.StopAll()
			}
			c.logger.Info("Session coordinator stopped")
			return nil

		case cmd := <-c.commands:
			cmd.reply <- c.handle(pool, cmd)

		case frame, ok := <-c.frames:
			if !ok {
				c.frames = nil
				c.captureEnded(pool)
				continue
			}
			c.observe(pool, frame)

		case out := <-c.results:
			c.finish(out)
		}
	}
}

// Done is closed when Run has returned
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) handle(pool *Pool, cmd command) reply {
	switch cmd.kind {
	case cmdStart:
		return c.start()
	case cmdStop:
		return c.stop(pool)
	case cmdReset:
		if c.machine.Current().Kind != StateError {
			return reply{}
		}
		return reply{changed: c.machine.Transition(Idle)}
	case cmdClear:
		removed := c.log.Clear()
		c.events.Publish(Event{Type: EventConversationCleared, Removed: removed})
		c.logger.Info("Conversation cleared", "removed", removed)
		return reply{changed: removed > 0}
	case cmdSwitch:
		next := c.Settings().Swapped()
		return c.configure(next)
	case cmdConfigure:
		return c.configure(cmd.settings)
	case cmdStopSpeaking:
		if c.synth != nil {
			c.synth.StopAll()
		}
		return reply{changed: c.synth != nil}
	}
	return reply{}
}

func (c *Coordinator) start() reply {
	current := c.machine.Current()
	if current.Kind != StateIdle && current.Kind != StateError {
		c.logger.Debug("Start ignored", "state", current.Kind.Name())
		return reply{}
	}

	frames, err := c.source.Start(c.runCtx)
	if err != nil {
		err = apperr.Wrap(err, apperr.CodeCaptureFailed, "failed to start capture")
		c.machine.Transition(Error(err.Error()))
		return reply{changed: true, err: err}
	}

	c.frames = frames
	c.detector.Arm()
	c.monitor.Reset()
	c.utterance.Reset()
	c.level.Store(0)
	c.machine.Transition(Recording)
	return reply{changed: true}
}

func (c *Coordinator) stop(pool *Pool) reply {
	if c.machine.Current().Kind != StateRecording {
		return reply{}
	}
	c.logger.Debug("Manual stop", "buffered", c.utterance.Duration())
	c.endSegment(pool, "manual")
	return reply{changed: true}
}

func (c *Coordinator) configure(next Settings) reply {
	if err := next.Validate(); err != nil {
		return reply{err: err}
	}
	if err := c.detector.Configure(next.Silence); err != nil {
		return reply{err: err}
	}
	c.settings.Store(&next)
	c.events.Publish(Event{Type: EventSettingsChanged, Settings: &next})
	c.logger.Debug("Settings applied",
		"manual", next.ManualMode,
		"source", next.SourceLanguage,
		"target", next.TargetLanguage,
		"threshold", next.Silence.Threshold,
		"duration", next.Silence.Duration)
	return reply{changed: true}
}

// observe evaluates one frame. It never blocks.
func (c *Coordinator) observe(pool *Pool, f audio.Frame) {
	if c.machine.Current().Kind != StateRecording {
		return
	}
	settings := c.Settings()

	amplitude := c.monitor.Observe(f)
	if c.gate != nil {
		amplitude = c.gate.Apply(amplitude, settings.Silence.Threshold, f)
	}
	c.level.Store(math.Float64bits(amplitude))
	c.utterance.Append(f)

	ev := c.detector.ObserveFrame(amplitude, f)
	if ev.ProlongedSilence {
		c.events.Publish(Event{Type: EventSilenceDetected})
		if !settings.ManualMode {
			c.logger.Debug("Prolonged silence", "elapsed", ev.Elapsed)
			c.endSegment(pool, "silence")
			return
		}
	}

	if !settings.ManualMode && settings.MaxUtterance > 0 && c.utterance.Duration() >= settings.MaxUtterance {
		c.logger.Info("Maximum utterance length reached", "limit", settings.MaxUtterance)
		c.endSegment(pool, "max_length")
	}
}

// captureEnded handles a source that closed its channel on its own
func (c *Coordinator) captureEnded(pool *Pool) {
	if c.machine.Current().Kind != StateRecording {
		return
	}
	c.logger.Warn("Audio source ended during recording")
	c.endSegment(pool, "source_closed")
}

// endSegment stops capture and either returns to Idle (nothing buffered)
// or hands the utterance to the pipeline.
func (c *Coordinator) endSegment(pool *Pool, trigger string) {
	c.stopCapture()
	c.level.Store(0)

	if c.utterance.Empty() {
		c.machine.Transition(Idle)
		return
	}

	settings := c.Settings()
	c.cycle++
	j := job{
		cycle:      c.cycle,
		sampleRate: c.utterance.SampleRate(),
		samples:    c.utterance.Take(),
		source:     settings.SourceLanguage,
		target:     settings.TargetLanguage,
	}

	c.machine.Transition(Processing)
	c.pending = true
	c.cycles.Add(1)

	accepted := pool.Submit(func(ctx context.Context) {
		out := c.pipeline.run(ctx, j)
		select {
		case c.results <- out:
		case <-ctx.Done():
		}
	})
	if !accepted {
		c.pending = false
		c.machine.Transition(Error("pipeline busy"))
		return
	}
	c.logger.Debug("Utterance handed off", "cycle", j.cycle, "trigger", trigger, "samples", len(j.samples))
}

func (c *Coordinator) finish(out outcome) {
	if !c.pending || out.cycle != c.cycle || c.machine.Current().Kind != StateProcessing {
		c.logger.Warn("Discarding stale pipeline outcome", "cycle", out.cycle)
		return
	}
	c.pending = false

	if out.err != nil {
		if coded := (*apperr.Error)(nil); errors.As(out.err, &coded) {
			c.logger.Error("Processing failed", append(coded.LogValues(), "error", out.err)...)
		} else {
			c.logger.Error("Processing failed", "error", out.err)
		}
		c.machine.Transition(Error(out.err.Error()))
		return
	}

	c.log.Append(*out.message)
	c.events.Publish(Event{Type: EventMessageAppended, Message: out.message})
	c.machine.Transition(Idle)
}

func (c *Coordinator) stopCapture() {
	if c.frames == nil {
		return
	}
	if err := c.source.Stop(); err != nil {
		c.logger.Warn("Failed to stop capture", "error", err)
	}
	c.frames = nil
}

// send delivers a command to the loop and waits for its reply
func (c *Coordinator) send(ctx context.Context, cmd command) (bool, error) {
	if !c.running.Load() {
		return false, ErrNotRunning
	}
	cmd.reply = make(chan reply, 1)
	select {
	case c.commands <- cmd:
	case <-c.done:
		return false, ErrNotRunning
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case r := <-cmd.reply:
		return r.changed, r.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Start begins recording from Idle or Error. It reports false when the
// session is already recording or processing.
func (c *Coordinator) Start(ctx context.Context) (bool, error) {
	return c.send(ctx, command{kind: cmdStart})
}

// Stop ends the recording. Buffered audio is still processed; without
// audio the session returns straight to Idle. It reports false unless the
// session was recording.
func (c *Coordinator) Stop(ctx context.Context) (bool, error) {
	return c.send(ctx, command{kind: cmdStop})
}

// Toggle starts when idle and stops when recording
func (c *Coordinator) Toggle(ctx context.Context) (bool, error) {
	if c.State().Kind == StateRecording {
		return c.Stop(ctx)
	}
	return c.Start(ctx)
}

// Reset moves an Error state back to Idle
func (c *Coordinator) Reset(ctx context.Context) (bool, error) {
	return c.send(ctx, command{kind: cmdReset})
}

// ClearConversation empties the conversation log
func (c *Coordinator) ClearConversation(ctx context.Context) error {
	_, err := c.send(ctx, command{kind: cmdClear})
	return err
}

// SwitchLanguages swaps source and target language
func (c *Coordinator) SwitchLanguages(ctx context.Context) error {
	_, err := c.send(ctx, command{kind: cmdSwitch})
	return err
}

// Configure replaces the settings; invalid settings fail with INVALID_CONFIG
// and leave the previous ones active.
func (c *Coordinator) Configure(ctx context.Context, s Settings) error {
	_, err := c.send(ctx, command{kind: cmdConfigure, settings: s})
	return err
}

// StopSpeaking interrupts synthesis and drops queued utterances
func (c *Coordinator) StopSpeaking(ctx context.Context) error {
	_, err := c.send(ctx, command{kind: cmdStopSpeaking})
	return err
}

// State returns the current session state
func (c *Coordinator) State() State {
	return c.machine.Current()
}

// StateDuration returns how long the current state has been active
func (c *Coordinator) StateDuration() time.Duration {
	return c.machine.StateDuration()
}

// Settings returns the active settings snapshot
func (c *Coordinator) Settings() Settings {
	return *c.settings.Load()
}

// Level returns the amplitude of the latest frame while recording
func (c *Coordinator) Level() float64 {
	return math.Float64frombits(c.level.Load())
}

// Cycles returns the number of utterances handed to the pipeline
func (c *Coordinator) Cycles() uint64 {
	return c.cycles.Load()
}

// Conversation returns the conversation log for reading
func (c *Coordinator) Conversation() *conversation.Log {
	return c.log
}

// Running reports whether Run is active
func (c *Coordinator) Running() bool {
	select {
	case <-c.done:
		return false
	default:
		return c.running.Load()
	}
}

// Subscribe returns a FIFO event subscription
func (c *Coordinator) Subscribe() *Subscription {
	return c.events.Subscribe()
}
