package eventbus

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Twirlie/discordbot/internal/idgen"
)

var (
	// ErrAlreadyInitialized is returned when a second bus is installed for the process.
	ErrAlreadyInitialized = errors.New("eventbus: already initialized")
	// ErrClosed is returned by Subscription.Next once the subscription is detached
	// or the bus has shut down.
	ErrClosed = errors.New("eventbus: subscription closed")
	// ErrInvalidEvent is returned by NewEvent for inputs that cannot form an event.
	ErrInvalidEvent = errors.New("eventbus: invalid event")
)

// Event is one completed activity. The JSON form is the feed wire format.
// Events are values and are never mutated after NewEvent returns them.
type Event struct {
	ID         string    `json:"item_uuid"`
	OccurredAt time.Time `json:"timestamp"`
	ActorID    string    `json:"author_id"`
	ActorName  string    `json:"author_name"`
	Kind       string    `json:"command_name"`
	Payload    string    `json:"command_output"`
	Synthetic  bool      `json:"test_item"`
}

type EventInput struct {
	ActorID   string `json:"author_id"`
	ActorName string `json:"author_name"`
	Kind      string `json:"command_name"`
	Payload   string `json:"command_output"`
	Synthetic bool   `json:"test_item"`
}

func NewEvent(input EventInput) (Event, error) {
	kind := strings.TrimSpace(input.Kind)
	if kind == "" {
		return Event{}, fmt.Errorf("%w: command_name is required", ErrInvalidEvent)
	}
	return Event{
		ID:         idgen.New(),
		OccurredAt: time.Now().UTC(),
		ActorID:    input.ActorID,
		ActorName:  input.ActorName,
		Kind:       kind,
		Payload:    input.Payload,
		Synthetic:  input.Synthetic,
	}, nil
}
