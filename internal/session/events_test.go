package session

import (
	"testing"
	"time"
)

func TestBroadcaster_FIFOPerSubscriber(t *testing.T) {
	b := NewBroadcaster()
	fast := b.Subscribe()
	slow := b.Subscribe()

	const n = 200
	for i := 0; i < n; i++ {
		b.Publish(Event{Type: EventSilenceDetected})
	}

	for _, sub := range []*Subscription{fast, slow} {
		var last uint64
		for i := 0; i < n; i++ {
			select {
			case ev := <-sub.C:
				if ev.Seq != last+1 {
					t.Fatalf("Seq = %d, want %d", ev.Seq, last+1)
				}
				last = ev.Seq
			case <-time.After(time.Second):
				t.Fatalf("timed out after %d events", i)
			}
		}
	}
}

func TestBroadcaster_PublishDoesNotBlock(t *testing.T) {
	b := NewBroadcaster()
	_ = b.Subscribe() // never read

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish(Event{Type: EventStateChanged})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on an idle subscriber")
	}
}

func TestSubscription_Close(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()
	if b.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d, want 1", b.Subscribers())
	}

	sub.Close()
	sub.Close()
	if b.Subscribers() != 0 {
		t.Errorf("Subscribers() after Close = %d, want 0", b.Subscribers())
	}
	if _, ok := <-sub.C; ok {
		t.Error("channel still open after Close")
	}
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()
	b.Close()

	if _, ok := <-sub.C; ok {
		t.Error("subscription open after broadcaster Close")
	}
	late := b.Subscribe()
	if _, ok := <-late.C; ok {
		t.Error("subscription after Close is open")
	}
	late.Close()
	if ev := b.Publish(Event{Type: EventStateChanged}); ev.Seq != 0 {
		t.Errorf("Publish after Close stamped Seq %d", ev.Seq)
	}
}

func TestBroadcaster_CloseDeliversQueued(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()

	const n = 5
	for i := 0; i < n; i++ {
		b.Publish(Event{Type: EventMessageAppended})
	}
	b.Close()

	got := 0
	timeout := time.After(time.Second)
	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				if got != n {
					t.Errorf("received %d events after Close, want %d", got, n)
				}
				return
			}
			got++
			if ev.Seq != uint64(got) {
				t.Errorf("Seq = %d, want %d", ev.Seq, got)
			}
		case <-timeout:
			t.Fatalf("channel not closed, received %d events", got)
		}
	}
}
