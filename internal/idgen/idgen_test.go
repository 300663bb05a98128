package idgen_test

import (
	"testing"

	"github.com/Twirlie/discordbot/internal/idgen"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

func TestNewIsUUIDv7(t *testing.T) {
	id := idgen.New()
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("parse %q: %v", id, err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("expected version 7, got %d", parsed.Version())
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 1000; i++ {
		id := idgen.New()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestSubscriptionIsULID(t *testing.T) {
	id := idgen.Subscription()
	if _, err := ulid.ParseStrict(id); err != nil {
		t.Fatalf("parse %q: %v", id, err)
	}
	if id == idgen.Subscription() {
		t.Fatalf("expected distinct subscription ids")
	}
}
