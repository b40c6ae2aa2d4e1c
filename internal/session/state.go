// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     session
// Description: Session state and transition rules
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package session

import (
	"fmt"
	"sync"
	"time"
)

// Kind is the session lifecycle stage
type Kind int

const (
	// StateIdle - waiting for a start command
	StateIdle Kind = iota

	// StateRecording - capturing an utterance
	StateRecording

	// StateProcessing - recognition, translation and synthesis in flight
	StateProcessing

	// StateError - the last cycle failed
	StateError
)

// Name returns the machine-readable name
func (k Kind) Name() string {
	switch k {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

func (k Kind) String() string {
	return k.Name()
}

// MarshalText encodes the kind by name
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.Name()), nil
}

// UnmarshalText decodes a kind name
func (k *Kind) UnmarshalText(b []byte) error {
	for _, c := range []Kind{StateIdle, StateRecording, StateProcessing, StateError} {
		if c.Name() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// State is the session state. Reason is set only for StateError.
type State struct {
	Kind   Kind   `json:"kind"`
	Reason string `json:"reason,omitempty"`
}

// Idle, Recording and Processing are the reason-less states
var (
	Idle       = State{Kind: StateIdle}
	Recording  = State{Kind: StateRecording}
	Processing = State{Kind: StateProcessing}
)

// Error returns the error state with a reason
func Error(reason string) State {
	return State{Kind: StateError, Reason: reason}
}

// String returns the display text of the state
func (s State) String() string {
	switch s.Kind {
	case StateIdle:
		return "Bereit"
	case StateRecording:
		return "Aufnahme..."
	case StateProcessing:
		return "Verarbeite..."
	case StateError:
		if s.Reason != "" {
			return "Fehler: " + s.Reason
		}
		return "Fehler"
	default:
		return "Unbekannt"
	}
}

// Icon returns an icon for the state
func (s State) Icon() string {
	switch s.Kind {
	case StateIdle:
		return "⏸"
	case StateRecording:
		return "🎤"
	case StateProcessing:
		return "⚙️"
	case StateError:
		return "❌"
	default:
		return "?"
	}
}

// validTransitions lists the allowed targets per state. Error to Error
// replaces the reason when a restart fails again.
var validTransitions = map[Kind][]Kind{
	StateIdle:       {StateRecording, StateError},
	StateRecording:  {StateProcessing, StateIdle, StateError},
	StateProcessing: {StateIdle, StateError},
	StateError:      {StateRecording, StateIdle, StateError},
}

// StateChangeListener is called after a transition
type StateChangeListener func(oldState, newState State)

// StateMachine holds the current state and enforces the transition table
type StateMachine struct {
	mu            sync.RWMutex
	currentState  State
	previousState State
	stateTime     time.Time
	listeners     []StateChangeListener
}

// NewStateMachine creates a state machine in Idle
func NewStateMachine() *StateMachine {
	return &StateMachine{
		currentState: Idle,
		stateTime:    time.Now(),
	}
}

// Current returns the current state
func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// Previous returns the previous state
func (sm *StateMachine) Previous() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.previousState
}

// StateDuration returns how long the current state has been active
func (sm *StateMachine) StateDuration() time.Duration {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return time.Since(sm.stateTime)
}

// Transition changes to a new state if the table allows it
func (sm *StateMachine) Transition(newState State) bool {
	sm.mu.Lock()
	oldState := sm.currentState
	if !isValidTransition(oldState.Kind, newState.Kind) {
		sm.mu.Unlock()
		return false
	}

	sm.previousState = oldState
	sm.currentState = newState
	sm.stateTime = time.Now()
	listeners := sm.listeners
	sm.mu.Unlock()

	for _, listener := range listeners {
		listener(oldState, newState)
	}
	return true
}

// AddListener adds a state change listener
func (sm *StateMachine) AddListener(listener StateChangeListener) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.listeners = append(sm.listeners, listener)
}

// IsActive reports whether a segment is being recorded or processed
func (sm *StateMachine) IsActive() bool {
	k := sm.Current().Kind
	return k == StateRecording || k == StateProcessing
}

func isValidTransition(from, to Kind) bool {
	for _, valid := range validTransitions[from] {
		if valid == to {
			return true
		}
	}
	return false
}
