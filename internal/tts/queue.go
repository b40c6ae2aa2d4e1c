// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     tts
// Description: Serialized playback queue
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package tts

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// Queue plays utterances one at a time in FIFO order. Enqueue never
// blocks; failures are logged and never reach the caller.
type Queue struct {
	synth  Synthesizer
	logger *logging.Logger

	mu       sync.Mutex
	pending  []Utterance
	cancel   context.CancelFunc // cancels the utterance being spoken
	speaking bool
	closed   bool
	wake     chan struct{}
	done     chan struct{}

	volume  atomic.Uint64 // float64 bits
	rate    atomic.Int64
	enabled atomic.Bool
	failed  atomic.Int64
	spoken  atomic.Int64
}

// NewQueue creates a queue and starts its playback goroutine. The
// goroutine stops when ctx is cancelled or Close is called.
func NewQueue(ctx context.Context, synth Synthesizer, cfg Config, logger *logging.Logger) *Queue {
	if logger == nil {
		logger = logging.New("tts")
	}
	q := &Queue{
		synth:  synth,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	q.SetVolume(cfg.Volume)
	q.rate.Store(int64(cfg.Rate))
	q.enabled.Store(cfg.Enabled)

	go q.run(ctx)
	return q
}

// Enqueue adds text to the end of the queue
func (q *Queue) Enqueue(text string, lang language.Code) {
	if !q.enabled.Load() {
		q.logger.Debug("Synthesis disabled, skipping", "language", lang)
		return
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, Utterance{
		Text:     text,
		Language: lang,
		Volume:   q.Volume(),
		Rate:     int(q.rate.Load()),
	})
	select {
	case q.wake <- struct{}{}:
	default:
	}
	q.mu.Unlock()
}

// StopAll drops queued utterances and interrupts the current one
func (q *Queue) StopAll() {
	q.mu.Lock()
	dropped := len(q.pending)
	q.pending = nil
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Unlock()

	if dropped > 0 {
		q.logger.Debug("Stopped playback", "dropped", dropped)
	}
}

// Pending returns the number of queued utterances, excluding the current one
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Speaking reports whether an utterance is playing
func (q *Queue) Speaking() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.speaking
}

// SetVolume sets the output volume, clamped to [0, 1]. It reports whether
// the value had to be clamped.
func (q *Queue) SetVolume(v float64) bool {
	clamped := v
	if math.IsNaN(clamped) || clamped < 0 {
		clamped = 0
	} else if clamped > 1 {
		clamped = 1
	}
	q.volume.Store(math.Float64bits(clamped))
	return clamped != v
}

// Volume returns the output volume
func (q *Queue) Volume() float64 {
	return math.Float64frombits(q.volume.Load())
}

// SetEnabled turns speaking on or off. Disabling also stops playback.
func (q *Queue) SetEnabled(enabled bool) {
	q.enabled.Store(enabled)
	if !enabled {
		q.StopAll()
	}
}

// Stats returns the number of spoken and failed utterances
func (q *Queue) Stats() (spoken, failed int64) {
	return q.spoken.Load(), q.failed.Load()
}

// Close stops playback and waits for the playback goroutine
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	close(q.wake)
	q.mu.Unlock()

	q.StopAll()
	<-q.done
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)

	for {
		u, speakCtx, ok := q.next(ctx)
		if !ok {
			select {
			case _, open := <-q.wake:
				if !open {
					return
				}
				continue
			case <-ctx.Done():
				q.StopAll()
				return
			}
		}
		q.play(speakCtx, u)
	}
}

// next dequeues the head and marks it as speaking under one lock so that
// StopAll cannot slip in between.
func (q *Queue) next(ctx context.Context) (Utterance, context.Context, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Utterance{}, nil, false
	}
	u := q.pending[0]
	q.pending = q.pending[1:]

	speakCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.speaking = true
	return u, speakCtx, true
}

func (q *Queue) play(ctx context.Context, u Utterance) {
	err := q.synth.Speak(ctx, u)

	q.mu.Lock()
	if q.cancel != nil {
		q.cancel()
	}
	q.cancel = nil
	q.speaking = false
	q.mu.Unlock()

	switch {
	case err == nil:
		q.spoken.Add(1)
	case errors.Is(err, context.Canceled):
		q.logger.Debug("Utterance interrupted", "language", u.Language)
	default:
		q.failed.Add(1)
		failure := apperr.Wrap(err, apperr.CodeSynthesisFailed, "engine "+q.synth.Name())
		q.logger.Warn("Synthesis failed", append(failure.LogValues(), "error", failure)...)
	}
}
