package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GameEvent is an audit record of an admin or player action.
type GameEvent struct {
	ID        string    `json:"id"`
	GameID    string    `json:"game_id"`
	EventType string    `json:"event_type"`
	Data      string    `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AppendEvent records one game event.
func (s *Store) AppendEvent(ctx context.Context, gameID, eventType, data string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO game_events (id, game_id, event_type, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), gameID, eventType, data, toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// EventsByGame lists a game's events, oldest first.
func (s *Store) EventsByGame(ctx context.Context, gameID string) ([]GameEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, game_id, event_type, data, created_at
		 FROM game_events WHERE game_id = ? ORDER BY created_at, id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []GameEvent
	for rows.Next() {
		var (
			event     GameEvent
			data      sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&event.ID, &event.GameID, &event.EventType, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.Data = data.String
		event.CreatedAt = fromMillis(createdAt)
		events = append(events, event)
	}

	return events, rows.Err()
}
