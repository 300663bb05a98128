package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Twirlie/discordbot/internal/eventbus"
)

// Store is the durable feed history. Appends come from the command layer;
// the replay path only reads.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, evt eventbus.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_items (item_uuid, created_at, author_id, author_name, command_name, command_output, test_item)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, evt.ID, evt.OccurredAt.UTC().Format(time.RFC3339Nano), evt.ActorID, evt.ActorName, evt.Kind, evt.Payload, boolInt(evt.Synthetic))
	if err != nil {
		return fmt.Errorf("insert feed item: %w", err)
	}
	return nil
}

// LoadRecent returns the n most recently appended events, oldest first.
func (s *Store) LoadRecent(ctx context.Context, n int) ([]eventbus.Event, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_uuid, created_at, author_id, author_name, command_name, command_output, test_item
		FROM feed_items ORDER BY seq DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("load recent feed items: %w", err)
	}
	defer rows.Close()

	var out []eventbus.Event
	for rows.Next() {
		var evt eventbus.Event
		var createdAtStr string
		var testItem int64
		if err := rows.Scan(&evt.ID, &createdAtStr, &evt.ActorID, &evt.ActorName, &evt.Kind, &evt.Payload, &testItem); err != nil {
			return nil, fmt.Errorf("scan feed item: %w", err)
		}
		occurredAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("scan feed item %s: created_at: %w", evt.ID, err)
		}
		evt.OccurredAt = occurredAt
		evt.Synthetic = testItem != 0
		out = append(out, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed items: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feed_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count feed items: %w", err)
	}
	return n, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
