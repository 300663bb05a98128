package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func testEvent(t *testing.T, kind string) Event {
	t.Helper()
	evt, err := NewEvent(EventInput{ActorID: "42", ActorName: "tester", Kind: kind, Payload: kind + " output"})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	return evt
}

func nextWithin(t *testing.T, sub *Subscription) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	evt, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	return evt
}

func drain(sub *Subscription) []Event {
	var out []Event
	for sub.Pending() > 0 {
		evt, err := sub.Next(context.Background())
		if err != nil {
			break
		}
		out = append(out, evt)
	}
	return out
}

func kinds(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func TestBusDeliversInPublishOrder(t *testing.T) {
	bus := NewBus(Config{QueueCapacity: 64})
	sub := bus.Attach()
	defer sub.Close()

	var want []string
	for i := 0; i < 50; i++ {
		kind := fmt.Sprintf("cmd-%d", i)
		want = append(want, kind)
		bus.Publish(testEvent(t, kind))
	}
	for i, kind := range want {
		got := nextWithin(t, sub)
		if got.Kind != kind {
			t.Fatalf("event %d: expected %s, got %s", i, kind, got.Kind)
		}
	}
	if sub.Dropped() != 0 {
		t.Fatalf("expected no drops, got %d", sub.Dropped())
	}
}

func TestBusDetachStopsDelivery(t *testing.T) {
	bus := NewBus(Config{})
	kept := bus.Attach()
	gone := bus.Attach()
	if bus.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", bus.SubscriberCount())
	}

	bus.Detach(gone)
	bus.Detach(gone)
	gone.Close()
	if bus.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", bus.SubscriberCount())
	}

	bus.Publish(testEvent(t, "after"))
	if got := nextWithin(t, kept); got.Kind != "after" {
		t.Fatalf("unexpected event %s", got.Kind)
	}
	if _, err := gone.Next(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from detached subscription, got %v", err)
	}
	select {
	case <-gone.Done():
	default:
		t.Fatalf("expected done channel closed")
	}
}

func TestBusSlowSubscriberDropsOldest(t *testing.T) {
	bus := NewBus(Config{QueueCapacity: 2})
	fast := bus.Attach()
	slow := bus.Attach()
	defer fast.Close()
	defer slow.Close()

	var fastGot []string
	for _, kind := range []string{"A", "B", "C"} {
		bus.Publish(testEvent(t, kind))
		fastGot = append(fastGot, nextWithin(t, fast).Kind)
	}

	if fmt.Sprint(fastGot) != "[A B C]" {
		t.Fatalf("fast subscriber: expected [A B C], got %v", fastGot)
	}
	slowGot := kinds(drain(slow))
	if fmt.Sprint(slowGot) != "[B C]" {
		t.Fatalf("slow subscriber: expected [B C], got %v", slowGot)
	}
	if slow.Dropped() != 1 || bus.Dropped() != 1 {
		t.Fatalf("expected one drop, got sub=%d bus=%d", slow.Dropped(), bus.Dropped())
	}
}

func TestBusPublishDoesNotWaitOnSlowSubscriber(t *testing.T) {
	const total = 5000
	const capacity = 16
	bus := NewBus(Config{QueueCapacity: capacity})
	slow := bus.Attach()
	fast := bus.Attach()
	defer slow.Close()
	defer fast.Close()

	var fastGot []Event
	start := time.Now()
	for i := 0; i < total; i++ {
		bus.Publish(testEvent(t, fmt.Sprintf("e%d", i)))
		fastGot = append(fastGot, nextWithin(t, fast))
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("publishing took too long: %s", elapsed)
	}

	if len(fastGot) != total {
		t.Fatalf("fast subscriber: expected %d events, got %d", total, len(fastGot))
	}
	slowGot := drain(slow)
	if len(slowGot) != capacity {
		t.Fatalf("slow subscriber: expected %d retained, got %d", capacity, len(slowGot))
	}
	for i, evt := range slowGot {
		want := fmt.Sprintf("e%d", total-capacity+i)
		if evt.Kind != want {
			t.Fatalf("slow subscriber suffix %d: expected %s, got %s", i, want, evt.Kind)
		}
	}
	if slow.Dropped() != total-capacity {
		t.Fatalf("expected %d drops, got %d", total-capacity, slow.Dropped())
	}
}

func TestBusNextHonoursContext(t *testing.T) {
	bus := NewBus(Config{})
	sub := bus.Attach()
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := sub.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestBusNextWakesOnPublish(t *testing.T) {
	bus := NewBus(Config{})
	sub := bus.Attach()
	defer sub.Close()

	got := make(chan Event, 1)
	go func() {
		evt, err := sub.Next(context.Background())
		if err == nil {
			got <- evt
		}
	}()
	time.Sleep(10 * time.Millisecond)
	bus.Publish(testEvent(t, "wake"))

	select {
	case evt := <-got:
		if evt.Kind != "wake" {
			t.Fatalf("unexpected event %s", evt.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for event")
	}
}

func TestBusCloseEndsSubscriptions(t *testing.T) {
	bus := NewBus(Config{})
	sub := bus.Attach()

	errCh := make(chan error, 1)
	go func() {
		_, err := sub.Next(context.Background())
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	bus.Close()
	bus.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for close")
	}

	late := bus.Attach()
	if _, err := late.Next(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected attach after close to be closed, got %v", err)
	}
	bus.Publish(testEvent(t, "ignored"))
	if bus.Published() != 0 {
		t.Fatalf("expected publish after close to be discarded")
	}
	if bus.SubscriberCount() != 0 {
		t.Fatalf("expected no subscribers after close")
	}
}

func TestSubscriptionDeliverIsPrivate(t *testing.T) {
	bus := NewBus(Config{})
	a := bus.Attach()
	b := bus.Attach()
	defer a.Close()
	defer b.Close()

	a.Deliver(testEvent(t, "r1"), testEvent(t, "r2"))
	if got := kinds(drain(a)); fmt.Sprint(got) != "[r1 r2]" {
		t.Fatalf("expected [r1 r2], got %v", got)
	}
	if b.Pending() != 0 {
		t.Fatalf("expected other subscriber untouched")
	}
}

func TestBusConcurrentAttachPublishDetach(t *testing.T) {
	bus := NewBus(Config{QueueCapacity: 8})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				evt, _ := NewEvent(EventInput{Kind: fmt.Sprintf("p%d-%d", p, i)})
				bus.Publish(evt)
			}
		}(p)
	}
	for c := 0; c < 8; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				sub := bus.Attach()
				readCtx, readCancel := context.WithTimeout(ctx, time.Millisecond)
				_, _ = sub.Next(readCtx)
				readCancel()
				sub.Close()
				bus.Detach(sub)
			}
		}()
	}
	wg.Wait()

	if bus.SubscriberCount() != 0 {
		t.Fatalf("expected all subscribers detached, got %d", bus.SubscriberCount())
	}
	if bus.Published() != 2000 {
		t.Fatalf("expected 2000 published, got %d", bus.Published())
	}
}

func TestBusDefaultsCapacity(t *testing.T) {
	if got := NewBus(Config{}).QueueCapacity(); got != DefaultQueueCapacity {
		t.Fatalf("expected default capacity %d, got %d", DefaultQueueCapacity, got)
	}
}
