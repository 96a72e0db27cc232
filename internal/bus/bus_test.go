package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindStatusChanged, Timestamp: time.Now(), Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != KindStatusChanged {
			t.Errorf("got kind %q, want %s", evt.Kind, KindStatusChanged)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("animation.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindStatusChanged})
	b.Publish(Event{Kind: KindAnimationChanged})

	select {
	case evt := <-ch:
		if evt.Kind != KindAnimationChanged {
			t.Errorf("got kind %q, want %s", evt.Kind, KindAnimationChanged)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmitStampsTime(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("chat.", 1)
	defer unsub()

	before := time.Now()
	b.Emit(KindChatMessage, 42)

	evt := <-ch
	if evt.Timestamp.Before(before) {
		t.Errorf("timestamp %v is before %v", evt.Timestamp, before)
	}
	if evt.Payload != 42 {
		t.Errorf("payload = %v, want 42", evt.Payload)
	}
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var b *Bus
	b.Publish(Event{Kind: KindChatMessage})
	b.Emit(KindChatMessage, nil)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	unsub()

	if got := b.Subscribers(); got != 0 {
		t.Errorf("Subscribers() = %d, want 0", got)
	}

	b.Publish(Event{Kind: KindStatusChanged})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("voice.", 1)
	defer unsub()

	b.Publish(Event{Kind: "voice.one"})
	// Dropped: the buffer is full.
	b.Publish(Event{Kind: "voice.two"})

	evt := <-ch
	if evt.Kind != "voice.one" {
		t.Errorf("got %q, want voice.one", evt.Kind)
	}
}
