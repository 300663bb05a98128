package activity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Twirlie/discordbot/internal/activity"
	"github.com/Twirlie/discordbot/internal/eventbus"
	"github.com/Twirlie/discordbot/internal/state"
	"github.com/Twirlie/discordbot/internal/testutil"
)

type failingAppender struct{}

func (failingAppender) Append(context.Context, eventbus.Event) error {
	return errors.New("readonly database")
}

func TestRecorderAppendsThenPublishes(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()

	store := state.NewStore(db)
	bus := eventbus.NewBus(eventbus.Config{})
	sub := bus.Attach()
	defer sub.Close()

	rec := activity.NewRecorder(store, bus, nil)
	evt, err := rec.Record(context.Background(), eventbus.EventInput{
		ActorID:   "7",
		ActorName: "asyncuser",
		Kind:      "codename",
		Payload:   "Your codename is: quick fox",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got.ID != evt.ID {
		t.Fatalf("expected published event %s, got %s", evt.ID, got.ID)
	}

	stored, err := store.LoadRecent(context.Background(), 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != evt.ID || stored[0].ActorName != "asyncuser" {
		t.Fatalf("expected stored event, got %+v", stored)
	}
}

func TestRecorderDoesNotPublishOnAppendFailure(t *testing.T) {
	bus := eventbus.NewBus(eventbus.Config{})
	sub := bus.Attach()
	defer sub.Close()

	rec := activity.NewRecorder(failingAppender{}, bus, nil)
	if _, err := rec.Record(context.Background(), eventbus.EventInput{Kind: "age"}); err == nil {
		t.Fatalf("expected append error")
	}
	if sub.Pending() != 0 || bus.Published() != 0 {
		t.Fatalf("expected nothing published")
	}
}

func TestRecorderRejectsInvalidInput(t *testing.T) {
	rec := activity.NewRecorder(failingAppender{}, nil, nil)
	if _, err := rec.Record(context.Background(), eventbus.EventInput{}); !errors.Is(err, eventbus.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}
