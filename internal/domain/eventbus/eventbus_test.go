package eventbus

import (
	"sync"
	"testing"
	"time"
)

func TestSyncPublishReachesSubscriber(t *testing.T) {
	bus := New()

	var got string
	if err := bus.Subscribe("assess.completed", func(id string) {
		got = id
	}); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	bus.Publish("assess.completed", "rec-1")
	if got != "rec-1" {
		t.Errorf("got %q, expected rec-1", got)
	}
}

func TestAsyncPublishDeliversThroughWorkers(t *testing.T) {
	aeb := NewAsyncEventBus(2)
	aeb.Start()
	defer aeb.Stop()

	var mu sync.Mutex
	seen := make(map[string]bool)
	done := make(chan struct{}, 3)
	if err := aeb.SubscribeAsync("assess.started", func(id string) {
		mu.Lock()
		seen[id] = true
		mu.Unlock()
		done <- struct{}{}
	}); err != nil {
		t.Fatalf("SubscribeAsync error: %v", err)
	}

	aeb.PublishAsync("assess.started", "a")
	aeb.PublishAsync("assess.started", "b")
	aeb.PublishAsync("assess.started", "c")

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for async delivery")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Errorf("delivered %d distinct events, expected 3", len(seen))
	}
}

func TestAsyncWorkerSurvivesPanickingSubscriber(t *testing.T) {
	aeb := NewAsyncEventBus(1)
	aeb.Start()
	defer aeb.Stop()

	done := make(chan struct{}, 1)
	aeb.Subscribe("assess.degraded", func(string) {
		panic("subscriber bug")
	})
	aeb.Subscribe("assess.completed", func(string) {
		done <- struct{}{}
	})

	aeb.PublishAsync("assess.degraded", "rec-1")
	aeb.PublishAsync("assess.completed", "rec-1")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died after subscriber panic")
	}
}

func TestHasCallback(t *testing.T) {
	aeb := NewAsyncEventBus(1)
	if aeb.HasCallback("assess.started") {
		t.Error("unexpected callback before subscription")
	}
	aeb.Subscribe("assess.started", func(string) {})
	if !aeb.HasCallback("assess.started") {
		t.Error("expected callback after subscription")
	}
}
