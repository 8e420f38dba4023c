package messaging

import (
	"context"
	"testing"
)

func TestBus_FanOut(t *testing.T) {
	bus := NewBus(nil)
	a, cancelA := bus.Subscribe(4)
	b, cancelB := bus.Subscribe(4)
	defer cancelB()

	if err := bus.Publish(context.Background(), GetPageContent()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if (<-a).Type != TypeGetPageContent || (<-b).Type != TypeGetPageContent {
		t.Error("every subscriber should receive the message")
	}

	cancelA()
	cancelA()
	if _, ok := <-a; ok {
		t.Error("cancelled subscription should be closed")
	}

	bus.Publish(context.Background(), StartTranslation("ko"))
	if msg := <-b; msg.TargetLanguage != "ko" {
		t.Errorf("remaining subscriber got %+v", msg)
	}
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus(nil)
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	for i := 0; i < 3; i++ {
		bus.Publish(context.Background(), GetPageContent())
	}
	if len(ch) != 1 {
		t.Errorf("buffered messages = %d, want 1", len(ch))
	}
}

func TestBus_Close(t *testing.T) {
	bus := NewBus(nil)
	ch, cancel := bus.Subscribe(1)
	bus.Close()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("Close should end subscriptions")
	}

	late, _ := bus.Subscribe(1)
	if _, ok := <-late; ok {
		t.Error("subscribing to a closed bus yields a closed channel")
	}
}
