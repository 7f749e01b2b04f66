package events_test

import (
	"testing"
	"time"

	"gamedeck/internal/events"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := events.NewBus(4)
	a, cancelA := bus.Subscribe()
	defer cancelA()
	b, cancelB := bus.Subscribe()
	defer cancelB()

	sent := bus.Publish(events.Event{Kind: events.KindLibraryChanged, Titles: []string{"Celeste"}})
	if sent.Sequence != 1 || sent.At.IsZero() {
		t.Fatalf("expected stamped event, got %+v", sent)
	}

	for _, ch := range []<-chan events.Event{a, b} {
		select {
		case evt := <-ch:
			if evt.Kind != events.KindLibraryChanged || evt.Titles[0] != "Celeste" {
				t.Fatalf("unexpected event %+v", evt)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := events.NewBus(1)
	_, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			bus.Publish(events.Event{Kind: events.KindLibraryChanged})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	if bus.Dropped() != 4 {
		t.Fatalf("expected 4 dropped deliveries, got %d", bus.Dropped())
	}
}

func TestCancelClosesChannelOnce(t *testing.T) {
	bus := events.NewBus(1)
	ch, cancel := bus.Subscribe()
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	bus.Publish(events.Event{Kind: events.KindInstallFailed})
}

func TestRecentFiltersBySequence(t *testing.T) {
	bus := events.NewBus(1)
	for i := 0; i < 3; i++ {
		bus.Publish(events.Event{Kind: events.KindLibraryChanged})
	}
	recent := bus.Recent(1)
	if len(recent) != 2 || recent[0].Sequence != 2 {
		t.Fatalf("unexpected recent events %+v", recent)
	}
}
