package event

import (
	"testing"
	"time"
)

func TestBus_PublishDelivers(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(NewRoundStartedEvent("sess-1", 0, "draft"))

	select {
	case e := <-ch:
		started, ok := e.(RoundStartedEvent)
		if !ok {
			t.Fatalf("expected RoundStartedEvent, got %T", e)
		}
		if started.SessionID != "sess-1" || started.Number != 0 || started.Kind != "draft" {
			t.Errorf("unexpected event payload: %+v", started)
		}
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus()
	ch1, cancel1 := bus.Subscribe()
	ch2, cancel2 := bus.Subscribe()
	defer cancel1()
	defer cancel2()

	bus.Publish(NewSessionStartedEvent("sess-1", "topic", 3))

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.EventType() != "session.started" {
				t.Errorf("subscriber %d: EventType() = %q, want session.started", i, e.EventType())
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive the event", i)
		}
	}
}

func TestBus_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.SubscribeBuffered(2)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Far more events than the buffer holds; Publish must not block
		// even though nothing is draining.
		for i := 0; i < 100; i++ {
			bus.Publish(NewRoundStartedEvent("sess-1", i, "critique"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	// Drain: buffered events first, then a lag notification on the next publish.
	<-ch
	<-ch
	bus.Publish(NewRoundStartedEvent("sess-1", 100, "critique"))

	e := <-ch
	lagged, ok := e.(SubscriberLaggedEvent)
	if !ok {
		t.Fatalf("expected SubscriberLaggedEvent after overflow, got %T", e)
	}
	if lagged.Dropped == 0 {
		t.Error("lag notification should report dropped events")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()

	cancel()
	if bus.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d after cancel, want 0", bus.SubscriberCount())
	}

	if _, open := <-ch; open {
		t.Error("channel should be closed after cancel")
	}
}

func TestBus_Close(t *testing.T) {
	bus := NewBus()
	ch, _ := bus.Subscribe()

	bus.Close()
	if _, open := <-ch; open {
		t.Error("channel should be closed after bus Close")
	}

	// Publishing after close is a no-op, not a panic.
	bus.Publish(NewErrorEvent("sess-1", "late", false))
}
