package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	b := NewWithConfig(2, 10)
	defer b.Close(context.Background())

	var mu sync.Mutex
	var got []string
	wg := sync.WaitGroup{}
	wg.Add(2)
	record := func(tag string) Handler {
		return func(ev Event) {
			mu.Lock()
			got = append(got, tag)
			mu.Unlock()
			wg.Done()
		}
	}
	b.Subscribe(EventTypeVerdict, record("first"))
	b.Subscribe(EventTypeVerdict, record("second"))

	b.Publish(EventTypeVerdict, "payload")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handlers did not run")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Errorf("deliveries = %d, want 2", len(got))
	}
}

func TestBus_TypeIsolation(t *testing.T) {
	b := NewWithConfig(1, 10)
	defer b.Close(context.Background())

	called := make(chan EventType, 2)
	b.Subscribe(EventTypeLightSchedule, func(ev Event) {
		called <- ev.Type
	})

	b.Publish(EventTypeVerdict, "other")
	b.Publish(EventTypeLightSchedule, "mine")

	select {
	case typ := <-called:
		if typ != EventTypeLightSchedule {
			t.Errorf("handler got %s, want light_schedule", typ)
		}
	case <-time.After(time.Second):
		t.Fatal("handler did not run")
	}
	select {
	case typ := <-called:
		t.Errorf("unexpected extra delivery: %s", typ)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_EventIDsAssigned(t *testing.T) {
	b := NewWithConfig(1, 10)
	defer b.Close(context.Background())

	ids := make(chan string, 2)
	b.Subscribe(EventTypeVerdict, func(ev Event) {
		ids <- ev.ID
	})
	b.Publish(EventTypeVerdict, nil)
	b.Publish(EventTypeVerdict, nil)

	a, bID := <-ids, <-ids
	if a == "" || bID == "" || a == bID {
		t.Errorf("event ids should be unique and non-empty: %q, %q", a, bID)
	}
}

func TestBus_PanicInHandlerDoesNotKillWorkers(t *testing.T) {
	b := NewWithConfig(1, 10)
	defer b.Close(context.Background())

	survived := make(chan struct{})
	b.Subscribe(EventTypeVerdict, func(ev Event) {
		if ev.Payload == "boom" {
			panic("handler failure")
		}
		close(survived)
	})

	b.Publish(EventTypeVerdict, "boom")
	b.Publish(EventTypeVerdict, "ok")

	select {
	case <-survived:
	case <-time.After(time.Second):
		t.Fatal("worker died after handler panic")
	}
}

func TestBus_PublishDuringCloseDoesNotPanic(t *testing.T) {
	b := NewWithConfig(2, 16)
	b.Subscribe(EventTypeVerdict, func(ev Event) {})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				b.Publish(EventTypeVerdict, j)
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	b.Close(ctx)
	wg.Wait()
}

func TestBus_ClearRemovesHandlers(t *testing.T) {
	b := NewWithConfig(1, 10)
	defer b.Close(context.Background())

	delivered := make(chan struct{}, 1)
	b.Subscribe(EventTypeVerdict, func(ev Event) {
		delivered <- struct{}{}
	})
	b.Clear()
	b.Publish(EventTypeVerdict, nil)

	select {
	case <-delivered:
		t.Error("cleared handler should not run")
	case <-time.After(50 * time.Millisecond):
	}
}
