package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Twirlie/discordbot/internal/eventbus"
	"github.com/Twirlie/discordbot/internal/state"
)

func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	db, err := state.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db, func() {
		_ = db.Close()
	}
}

// Event builds a feed event with the given command name.
func Event(t *testing.T, kind string) eventbus.Event {
	t.Helper()
	evt, err := eventbus.NewEvent(eventbus.EventInput{
		ActorID:   "1001",
		ActorName: "tester",
		Kind:      kind,
		Payload:   kind + " output",
	})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	return evt
}

// SeedEvents appends events named E1..En in chronological order.
func SeedEvents(t *testing.T, store *state.Store, n int) []eventbus.Event {
	t.Helper()
	out := make([]eventbus.Event, 0, n)
	for i := 1; i <= n; i++ {
		evt := Event(t, fmt.Sprintf("E%d", i))
		if err := store.Append(context.Background(), evt); err != nil {
			t.Fatalf("append %s: %v", evt.Kind, err)
		}
		out = append(out, evt)
	}
	return out
}

// Kinds lists the command names of events, for compact assertions.
func Kinds(events []eventbus.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}
