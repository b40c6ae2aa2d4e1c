package tts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// recorder is a Synthesizer that records utterances and can block until
// released.
type recorder struct {
	mu       sync.Mutex
	spoken   []string
	active   int
	maxSeen  int
	block    chan struct{}
	started  chan string
	failWith error
}

func newRecorder(blocking bool) *recorder {
	r := &recorder{started: make(chan string, 16)}
	if blocking {
		r.block = make(chan struct{})
	}
	return r
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Speak(ctx context.Context, u Utterance) error {
	r.mu.Lock()
	r.active++
	if r.active > r.maxSeen {
		r.maxSeen = r.active
	}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
	}()

	r.started <- u.Text
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	r.spoken = append(r.spoken, u.Text)
	r.mu.Unlock()
	return r.failWith
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.spoken...)
}

func waitStarted(t *testing.T, r *recorder) string {
	t.Helper()
	select {
	case s := <-r.started:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("utterance did not start")
		return ""
	}
}

func TestQueue_FIFOAndSerialized(t *testing.T) {
	rec := newRecorder(true)
	q := NewQueue(context.Background(), rec, DefaultConfig(), logging.Discard())
	defer q.Close()

	q.Enqueue("one", language.English)
	q.Enqueue("two", language.English)
	q.Enqueue("three", language.English)

	for _, want := range []string{"one", "two", "three"} {
		if got := waitStarted(t, rec); got != want {
			t.Fatalf("started %q, want %q", got, want)
		}
		rec.block <- struct{}{}
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.texts()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	got := rec.texts()
	if len(got) != 3 || got[0] != "one" || got[2] != "three" {
		t.Errorf("spoken = %v", got)
	}
	rec.mu.Lock()
	maxSeen := rec.maxSeen
	rec.mu.Unlock()
	if maxSeen != 1 {
		t.Errorf("max concurrent utterances = %d, want 1", maxSeen)
	}
}

func TestQueue_StopAll(t *testing.T) {
	rec := newRecorder(true)
	q := NewQueue(context.Background(), rec, DefaultConfig(), logging.Discard())
	defer q.Close()

	q.Enqueue("current", language.French)
	waitStarted(t, rec)
	q.Enqueue("queued-1", language.French)
	q.Enqueue("queued-2", language.French)

	q.StopAll()

	if q.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", q.Pending())
	}
	deadline := time.Now().Add(2 * time.Second)
	for q.Speaking() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if q.Speaking() {
		t.Error("current utterance was not interrupted")
	}
	if len(rec.texts()) != 0 {
		t.Errorf("spoken = %v, want none", rec.texts())
	}

	q.Enqueue("after", language.French)
	if got := waitStarted(t, rec); got != "after" {
		t.Errorf("started %q after StopAll, want after", got)
	}
	rec.block <- struct{}{}
}

func TestQueue_FailuresAreCounted(t *testing.T) {
	rec := newRecorder(false)
	rec.failWith = errors.New("audio device gone")
	q := NewQueue(context.Background(), rec, DefaultConfig(), logging.Discard())
	defer q.Close()

	q.Enqueue("hello", language.English)
	waitStarted(t, rec)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, failed := q.Stats(); failed == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("failure was not counted")
}

func TestQueue_SetVolume(t *testing.T) {
	q := NewQueue(context.Background(), newRecorder(false), DefaultConfig(), logging.Discard())
	defer q.Close()

	tests := []struct {
		in      float64
		want    float64
		clamped bool
	}{
		{0.5, 0.5, false},
		{1.7, 1, true},
		{-0.2, 0, true},
		{0, 0, false},
	}
	for _, tt := range tests {
		if clamped := q.SetVolume(tt.in); clamped != tt.clamped {
			t.Errorf("SetVolume(%v) clamped = %v, want %v", tt.in, clamped, tt.clamped)
		}
		if q.Volume() != tt.want {
			t.Errorf("Volume() = %v, want %v", q.Volume(), tt.want)
		}
	}
}

func TestQueue_Disabled(t *testing.T) {
	rec := newRecorder(false)
	cfg := DefaultConfig()
	cfg.Enabled = false
	q := NewQueue(context.Background(), rec, cfg, logging.Discard())

	q.Enqueue("ignored", language.English)
	q.Close()

	if len(rec.texts()) != 0 {
		t.Errorf("disabled queue spoke %v", rec.texts())
	}
}

func TestMacOSSay_Args(t *testing.T) {
	m := NewMacOSSay(map[language.Code]string{language.German: "Markus"})

	args := m.args(Utterance{Text: "Hallo", Language: language.German, Rate: 200, Volume: 0.5})
	want := []string{"-v", "Markus", "-r", "200", "[[volm 0.50]] Hallo"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}

	args = m.args(Utterance{Text: "Bonjour", Language: language.French, Volume: 1})
	if args[1] != "Thomas" || args[len(args)-1] != "Bonjour" {
		t.Errorf("args = %v", args)
	}
}
