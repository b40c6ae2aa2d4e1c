package session

import (
	"encoding/json"
	"testing"
)

func TestStateMachine_Transitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
		want bool
	}{
		{Idle, Recording, true},
		{Idle, Processing, false},
		{Idle, Error("capture"), true},
		{Recording, Processing, true},
		{Recording, Idle, true},
		{Recording, Recording, false},
		{Processing, Idle, true},
		{Processing, Error("x"), true},
		{Processing, Recording, false},
		{Error("x"), Recording, true},
		{Error("x"), Idle, true},
		{Error("x"), Error("y"), true},
		{Error("x"), Processing, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.Kind.Name()+"->"+tt.to.Kind.Name(), func(t *testing.T) {
			sm := &StateMachine{currentState: tt.from}
			if got := sm.Transition(tt.to); got != tt.want {
				t.Errorf("Transition() = %v, want %v", got, tt.want)
			}
			want := tt.from
			if tt.want {
				want = tt.to
			}
			if got := sm.Current(); got != want {
				t.Errorf("Current() = %v, want %v", got, want)
			}
		})
	}
}

func TestStateMachine_Listener(t *testing.T) {
	sm := NewStateMachine()
	var calls []State
	sm.AddListener(func(from, to State) {
		calls = append(calls, from, to)
	})

	sm.Transition(Recording)
	sm.Transition(Processing)
	sm.Transition(Recording) // rejected

	if len(calls) != 4 {
		t.Fatalf("listener calls = %d, want 2", len(calls)/2)
	}
	if calls[2] != Recording || calls[3] != Processing {
		t.Errorf("second call = %v -> %v, want Recording -> Processing", calls[2], calls[3])
	}
	if sm.Previous() != Recording {
		t.Errorf("Previous() = %v, want Recording", sm.Previous())
	}
	if !sm.IsActive() {
		t.Error("IsActive() = false while processing")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Idle, "Bereit"},
		{Recording, "Aufnahme..."},
		{Processing, "Verarbeite..."},
		{Error("Modell fehlt"), "Fehler: Modell fehlt"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestState_JSON(t *testing.T) {
	data, err := json.Marshal(Error("boom"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"kind":"error","reason":"boom"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var s State
	if err := json.Unmarshal([]byte(`{"kind":"recording"}`), &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if s != Recording {
		t.Errorf("Unmarshal() = %v, want Recording", s)
	}
	if err := json.Unmarshal([]byte(`{"kind":"sleeping"}`), &s); err == nil {
		t.Error("Unmarshal() of unknown kind succeeded")
	}
}
