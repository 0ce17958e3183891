package bus

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEventBus_PublishConsume(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()

	ctx := context.Background()
	if err := eb.Publish(ctx, SessionEvent{Kind: EventMessage, Content: "hello"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	ev, ok := eb.Consume(ctx)
	if !ok {
		t.Fatal("expected an event")
	}
	if ev.Kind != EventMessage || ev.Content != "hello" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestEventBus_PublishAfterClose(t *testing.T) {
	eb := NewEventBus()
	eb.Close()

	err := eb.Publish(context.Background(), SessionEvent{Kind: EventState})
	if !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}
	if err := eb.TryPublish(SessionEvent{Kind: EventState}); !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed from TryPublish, got %v", err)
	}
}

func TestEventBus_TryPublishFull(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()

	var err error
	for i := 0; i < 200; i++ {
		if err = eb.TryPublish(SessionEvent{Kind: EventTyping}); err != nil {
			break
		}
	}
	if !errors.Is(err, ErrBusFull) {
		t.Errorf("expected ErrBusFull on saturated bus, got %v", err)
	}
}

func TestEventBus_ConsumeCancelled(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, ok := eb.Consume(ctx); ok {
		t.Error("expected no event on cancelled context")
	}
}

func TestEventBus_CloseUnblocksConsumer(t *testing.T) {
	eb := NewEventBus()

	done := make(chan struct{})
	go func() {
		eb.Consume(context.Background())
		close(done)
	}()

	eb.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer not unblocked by Close")
	}
}

func TestEventBus_CloseIdempotent(t *testing.T) {
	eb := NewEventBus()
	eb.Close()
	eb.Close()
}
