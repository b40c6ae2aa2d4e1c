package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/msto63/dolmetscher/internal/audio"
	"github.com/msto63/dolmetscher/internal/conversation"
	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/internal/models"
	"github.com/msto63/dolmetscher/internal/stt"
	"github.com/msto63/dolmetscher/internal/translation"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

const frameSize = 1600 // 100 ms at 16 kHz

// scriptedSource delivers a fixed set of frames per segment and keeps the
// channel open until Stop.
type scriptedSource struct {
	mu       sync.Mutex
	segments [][]audio.Frame
	starts   int
	stops    int
	startErr error
}

func (s *scriptedSource) Start(ctx context.Context) (<-chan audio.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return nil, s.startErr
	}
	var frames []audio.Frame
	if s.starts < len(s.segments) {
		frames = s.segments[s.starts]
	}
	s.starts++
	ch := make(chan audio.Frame, len(frames)+1)
	for _, f := range frames {
		ch <- f
	}
	return ch, nil
}

func (s *scriptedSource) Stop() error {
	s.mu.Lock()
	s.stops++
	s.mu.Unlock()
	return nil
}

func (s *scriptedSource) counts() (starts, stops int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops
}

// constantFrames returns frames whose RMS equals amplitude
func constantFrames(amplitude float32, total time.Duration) []audio.Frame {
	base := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	step := time.Duration(frameSize) * time.Second / audio.DefaultSampleRate
	n := int(total / step)
	frames := make([]audio.Frame, n)
	for i := range frames {
		samples := make([]float32, frameSize)
		for j := range samples {
			samples[j] = amplitude
		}
		frames[i] = audio.Frame{
			Samples:    samples,
			SampleRate: audio.DefaultSampleRate,
			CapturedAt: base.Add(time.Duration(i) * step),
		}
	}
	return frames
}

type fakeRecognizer struct {
	calls   atomic.Int32
	text    string
	block   chan struct{}
	entered chan struct{}
}

func (r *fakeRecognizer) Recognize(ctx context.Context, req stt.Request) (stt.Result, error) {
	r.calls.Add(1)
	if r.entered != nil {
		r.entered <- struct{}{}
	}
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return stt.Result{}, ctx.Err()
		}
	}
	text := r.text
	if text == "" {
		text = "Bonjour, comment puis-je vous aider aujourd'hui ?"
	}
	return stt.Result{Text: text, Language: req.Language, Confidence: 0.9, Duration: req.Duration()}, nil
}

type fakeSynth struct {
	mu    sync.Mutex
	texts []string
	stops int
}

func (s *fakeSynth) Enqueue(text string, lang language.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
}

func (s *fakeSynth) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *fakeSynth) enqueued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.texts)
}

type harness struct {
	c      *Coordinator
	source *scriptedSource
	rec    *fakeRecognizer
	synth  *fakeSynth
	sub    *Subscription
}

func newHarness(t *testing.T, settings Settings, registry *models.Registry, segments ...[]audio.Frame) *harness {
	t.Helper()
	if registry == nil {
		registry = models.Default()
	}
	h := &harness{
		source: &scriptedSource{segments: segments},
		rec:    &fakeRecognizer{},
		synth:  &fakeSynth{},
	}
	stage := translation.NewStage(translation.NewPhrasebook(0), registry, logging.Discard())

	c, err := New(Options{
		Settings:    settings,
		Source:      h.source,
		Recognizer:  h.rec,
		Translator:  stage,
		Synthesizer: h.synth,
		Logger:      logging.Discard(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.c = c
	h.sub = c.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	return h
}

func testSettings() Settings {
	s := DefaultSettings()
	s.Silence = audio.SilenceConfig{Threshold: 0.1, Duration: 1500 * time.Millisecond}
	s.MaxUtterance = 0
	return s
}

// waitFor reads events until one satisfies match
func (h *harness) waitFor(t *testing.T, match func(Event) bool) []Event {
	t.Helper()
	var seen []Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-h.sub.C:
			if !ok {
				t.Fatalf("subscription closed, saw %v", seen)
			}
			seen = append(seen, ev)
			if match(ev) {
				return seen
			}
		case <-timeout:
			t.Fatalf("timed out waiting for event, saw %d events", len(seen))
		}
	}
}

func toState(k Kind) func(Event) bool {
	return func(ev Event) bool {
		return ev.Type == EventStateChanged && ev.To.Kind == k
	}
}

func transitions(events []Event) []Kind {
	var kinds []Kind
	for _, ev := range events {
		if ev.Type == EventStateChanged {
			kinds = append(kinds, ev.To.Kind)
		}
	}
	return kinds
}

func TestCoordinator_SilenceHandsOffOnce(t *testing.T) {
	h := newHarness(t, testSettings(), nil, constantFrames(0.05, 2*time.Second))

	changed, err := h.c.Start(t.Context())
	if err != nil || !changed {
		t.Fatalf("Start() = %v, %v, want true, nil", changed, err)
	}

	events := h.waitFor(t, toState(StateIdle))

	got := transitions(events)
	want := []Kind{StateRecording, StateProcessing, StateIdle}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if calls := h.rec.calls.Load(); calls != 1 {
		t.Errorf("recognizer calls = %d, want 1", calls)
	}
	if n := h.c.Conversation().Len(); n != 1 {
		t.Errorf("conversation length = %d, want 1", n)
	}
	if n := h.synth.enqueued(); n != 1 {
		t.Errorf("synthesis enqueued = %d, want 1", n)
	}

	silences := 0
	for _, ev := range events {
		if ev.Type == EventSilenceDetected {
			silences++
		}
	}
	if silences != 1 {
		t.Errorf("silence events = %d, want 1", silences)
	}
	if _, stops := h.source.counts(); stops != 1 {
		t.Errorf("source stops = %d, want 1", stops)
	}
}

func TestCoordinator_MessageAppendedBeforeIdle(t *testing.T) {
	h := newHarness(t, testSettings(), nil, constantFrames(0.05, 2*time.Second))
	if _, err := h.c.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	events := h.waitFor(t, toState(StateIdle))
	appended := -1
	for i, ev := range events {
		if ev.Type == EventMessageAppended {
			appended = i
			if ev.Message.Translated != "Hello, how can I help you today?" {
				t.Errorf("Translated = %q, want phrasebook translation", ev.Message.Translated)
			}
			if ev.Message.Direction != conversation.SourceToTarget {
				t.Errorf("Direction = %v, want SourceToTarget", ev.Message.Direction)
			}
		}
	}
	if appended != len(events)-2 {
		t.Errorf("MessageAppended at %d of %d events, want directly before Idle", appended, len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Errorf("event %d seq %d not after %d", i, events[i].Seq, events[i-1].Seq)
		}
	}
}

func TestCoordinator_StopWhenIdleIsNoop(t *testing.T) {
	h := newHarness(t, testSettings(), nil)

	changed, err := h.c.Stop(t.Context())
	if err != nil || changed {
		t.Errorf("Stop() = %v, %v, want false, nil", changed, err)
	}
	if got := h.c.State(); got != Idle {
		t.Errorf("State() = %v, want Idle", got)
	}

	// A later command must be the first thing observed
	if err := h.c.ClearConversation(t.Context()); err != nil {
		t.Fatalf("ClearConversation() error = %v", err)
	}
	ev := <-h.sub.C
	if ev.Type != EventConversationCleared {
		t.Errorf("first event = %v, want %v", ev.Type, EventConversationCleared)
	}
}

func TestCoordinator_ModelUnavailable(t *testing.T) {
	registry := models.NewRegistry(models.DefaultSpeechLanguages, nil)
	h := newHarness(t, testSettings(), registry, constantFrames(0.05, 2*time.Second))

	if _, err := h.c.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.waitFor(t, toState(StateError))

	state := h.c.State()
	if state.Kind != StateError || state.Reason == "" {
		t.Errorf("State() = %+v, want Error with reason", state)
	}
	if n := h.c.Conversation().Len(); n != 0 {
		t.Errorf("conversation length = %d, want 0", n)
	}
	if n := h.synth.enqueued(); n != 0 {
		t.Errorf("synthesis enqueued = %d, want 0", n)
	}
}

func TestCoordinator_StartDuringProcessingRejected(t *testing.T) {
	h := newHarness(t, testSettings(), nil, constantFrames(0.05, 2*time.Second), constantFrames(0.05, 2*time.Second))
	h.rec.block = make(chan struct{})
	h.rec.entered = make(chan struct{}, 1)

	if _, err := h.c.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-h.rec.entered

	if got := h.c.State().Kind; got != StateProcessing {
		t.Fatalf("State() = %v, want Processing", got)
	}

	var wg sync.WaitGroup
	var accepted atomic.Int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if changed, _ := h.c.Start(t.Context()); changed {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := accepted.Load(); n != 0 {
		t.Errorf("accepted starts during processing = %d, want 0", n)
	}
	close(h.rec.block)
	h.waitFor(t, toState(StateIdle))

	if calls := h.rec.calls.Load(); calls != 1 {
		t.Errorf("recognizer calls = %d, want 1", calls)
	}
	if starts, _ := h.source.counts(); starts != 1 {
		t.Errorf("source starts = %d, want 1", starts)
	}
}

func TestCoordinator_ManualModeIgnoresSilence(t *testing.T) {
	settings := testSettings()
	settings.ManualMode = true
	h := newHarness(t, settings, nil, constantFrames(0.05, 3*time.Second))

	if _, err := h.c.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.waitFor(t, func(ev Event) bool { return ev.Type == EventSilenceDetected })

	if got := h.c.State().Kind; got != StateRecording {
		t.Errorf("State() after silence = %v, want Recording", got)
	}

	changed, err := h.c.Stop(t.Context())
	if err != nil || !changed {
		t.Fatalf("Stop() = %v, %v, want true, nil", changed, err)
	}
	h.waitFor(t, toState(StateIdle))
	if calls := h.rec.calls.Load(); calls != 1 {
		t.Errorf("recognizer calls = %d, want 1", calls)
	}
}

func TestCoordinator_StopWithoutAudio(t *testing.T) {
	h := newHarness(t, testSettings(), nil)

	if _, err := h.c.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	changed, err := h.c.Stop(t.Context())
	if err != nil || !changed {
		t.Fatalf("Stop() = %v, %v, want true, nil", changed, err)
	}

	events := h.waitFor(t, toState(StateIdle))
	got := transitions(events)
	if len(got) != 2 || got[0] != StateRecording || got[1] != StateIdle {
		t.Errorf("transitions = %v, want [Recording Idle]", got)
	}
	if calls := h.rec.calls.Load(); calls != 0 {
		t.Errorf("recognizer calls = %d, want 0", calls)
	}
}

func TestCoordinator_CaptureFailure(t *testing.T) {
	h := newHarness(t, testSettings(), nil)
	h.source.startErr = errors.New("no input device")

	changed, err := h.c.Start(t.Context())
	if !changed || !apperr.HasCode(err, apperr.CodeCaptureFailed) {
		t.Fatalf("Start() = %v, %v, want true, CAPTURE_FAILED", changed, err)
	}
	if got := h.c.State().Kind; got != StateError {
		t.Errorf("State() = %v, want Error", got)
	}

	h.source.mu.Lock()
	h.source.startErr = nil
	h.source.mu.Unlock()

	changed, err = h.c.Start(t.Context())
	if err != nil || !changed {
		t.Fatalf("restart = %v, %v, want true, nil", changed, err)
	}
	if got := h.c.State().Kind; got != StateRecording {
		t.Errorf("State() after restart = %v, want Recording", got)
	}
}

func TestCoordinator_Reset(t *testing.T) {
	h := newHarness(t, testSettings(), nil)

	if changed, _ := h.c.Reset(t.Context()); changed {
		t.Error("Reset() from Idle = true, want false")
	}

	h.source.startErr = errors.New("busy")
	h.c.Start(t.Context())

	changed, err := h.c.Reset(t.Context())
	if err != nil || !changed {
		t.Fatalf("Reset() = %v, %v, want true, nil", changed, err)
	}
	if got := h.c.State(); got != Idle {
		t.Errorf("State() = %v, want Idle", got)
	}
}

func TestCoordinator_ConfigureInvalid(t *testing.T) {
	h := newHarness(t, testSettings(), nil)
	before := h.c.Settings()

	bad := before
	bad.Silence.Threshold = 1.5
	err := h.c.Configure(t.Context(), bad)
	if !apperr.HasCode(err, apperr.CodeInvalidConfig) {
		t.Errorf("Configure() error = %v, want INVALID_CONFIG", err)
	}
	if got := h.c.Settings(); got != before {
		t.Errorf("Settings() = %+v, want unchanged %+v", got, before)
	}

	good := before
	good.ManualMode = true
	if err := h.c.Configure(t.Context(), good); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	ev := <-h.sub.C
	if ev.Type != EventSettingsChanged || !ev.Settings.ManualMode {
		t.Errorf("event = %+v, want SettingsChanged with manual mode", ev)
	}
}

func TestCoordinator_SwitchLanguages(t *testing.T) {
	h := newHarness(t, testSettings(), nil)

	if err := h.c.SwitchLanguages(t.Context()); err != nil {
		t.Fatalf("SwitchLanguages() error = %v", err)
	}
	s := h.c.Settings()
	if s.SourceLanguage != language.English || s.TargetLanguage != language.French {
		t.Errorf("languages = %s -> %s, want en -> fr", s.SourceLanguage, s.TargetLanguage)
	}
}

func TestCoordinator_ClearConversation(t *testing.T) {
	log := conversation.NewLog()
	for i := 0; i < 3; i++ {
		log.Append(conversation.NewMessage("a", "b", language.French, language.English, 0.9, conversation.SourceToTarget, time.Now()))
	}
	c, err := New(Options{
		Settings:   testSettings(),
		Source:     &scriptedSource{},
		Recognizer: &fakeRecognizer{},
		Translator: translation.NewStage(translation.NewPhrasebook(0), models.Default(), logging.Discard()),
		Log:        log,
		Logger:     logging.Discard(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	sub := c.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		<-c.Done()
	}()
	go c.Run(ctx)

	snapshot := c.Conversation().Snapshot()
	if err := c.ClearConversation(t.Context()); err != nil {
		t.Fatalf("ClearConversation() error = %v", err)
	}
	if n := c.Conversation().Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
	if len(snapshot) != 3 {
		t.Errorf("earlier snapshot length = %d, want 3", len(snapshot))
	}
	ev := <-sub.C
	if ev.Type != EventConversationCleared || ev.Removed != 3 {
		t.Errorf("event = %v removed %d, want cleared 3", ev.Type, ev.Removed)
	}
}

func TestCoordinator_MaxUtterance(t *testing.T) {
	settings := testSettings()
	settings.MaxUtterance = time.Second
	h := newHarness(t, settings, nil, constantFrames(0.5, 3*time.Second))

	if _, err := h.c.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.waitFor(t, toState(StateIdle))
	if calls := h.rec.calls.Load(); calls != 1 {
		t.Errorf("recognizer calls = %d, want 1", calls)
	}
}

func TestCoordinator_NotRunning(t *testing.T) {
	c, err := New(Options{
		Settings:   testSettings(),
		Source:     &scriptedSource{},
		Recognizer: &fakeRecognizer{},
		Translator: translation.NewStage(translation.NewPhrasebook(0), models.Default(), logging.Discard()),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.Start(t.Context()); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Start() error = %v, want ErrNotRunning", err)
	}
}

func TestNew_InvalidSettings(t *testing.T) {
	s := testSettings()
	s.SourceLanguage = "xx"
	_, err := New(Options{Settings: s, Source: &scriptedSource{}, Recognizer: &fakeRecognizer{}, Translator: translation.NewStage(nil, nil, nil)})
	if !apperr.HasCode(err, apperr.CodeInvalidConfig) {
		t.Errorf("New() error = %v, want INVALID_CONFIG", err)
	}
}
