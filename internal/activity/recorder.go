// Package activity records completed user-facing actions and announces them
// on the live feed.
package activity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Twirlie/discordbot/internal/eventbus"
)

type Appender interface {
	Append(ctx context.Context, evt eventbus.Event) error
}

type Publisher interface {
	Publish(evt eventbus.Event)
}

type Recorder struct {
	Store  Appender
	Bus    Publisher
	Logger *slog.Logger
}

func NewRecorder(store Appender, bus Publisher, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{Store: store, Bus: bus, Logger: logger}
}

// Record persists the action and, once it is durable, publishes it. Nothing
// is published when the append fails.
func (r *Recorder) Record(ctx context.Context, input eventbus.EventInput) (eventbus.Event, error) {
	evt, err := eventbus.NewEvent(input)
	if err != nil {
		return eventbus.Event{}, err
	}
	if err := r.Store.Append(ctx, evt); err != nil {
		return eventbus.Event{}, fmt.Errorf("record %s: %w", evt.Kind, err)
	}
	r.Logger.Info("command recorded",
		"item_uuid", evt.ID,
		"author_id", evt.ActorID,
		"author_name", evt.ActorName,
		"command", evt.Kind,
		"test_item", evt.Synthetic,
	)
	if r.Bus != nil {
		r.Bus.Publish(evt)
	}
	return evt, nil
}
