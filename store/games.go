package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Game states.
const (
	StateWaiting = "waiting"
	StateActive  = "active"
	StateEnded   = "ended"
)

// GameConfig is the snapshot taken at game creation.
type GameConfig struct {
	RoleDistribution map[string]int `json:"role_distribution"`
	PlayerCount      int            `json:"player_count"`
	Theme            string         `json:"theme"`
}

// Game is one session row.
type Game struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	Theme     string     `json:"theme"`
	State     string     `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Config    GameConfig `json:"config"`
}

// codeAlphabet excludes visually ambiguous characters (0 O 1 I L).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 6

// randomCode generates a crypto-random join code, rejection-sampling
// bytes so every alphabet character is equally likely.
func randomCode() string {
	max := byte(255 - (256 % len(codeAlphabet)))

	out := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength*2)

	for {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		for _, b := range buf {
			if b <= max {
				out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
				if len(out) == codeLength {
					return string(out)
				}
			}
		}
	}
}

// CreateGame inserts a new game in the waiting state with a fresh
// share code, regenerating the code on collision.
func (s *Store) CreateGame(ctx context.Context, theme string, config GameConfig) (*Game, error) {
	configJSON, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal game config: %w", err)
	}

	game := &Game{
		ID:        uuid.NewString(),
		Theme:     theme,
		State:     StateWaiting,
		CreatedAt: time.Now().UTC(),
		Config:    config,
	}

	for attempt := 0; attempt < 10; attempt++ {
		game.Code = randomCode()

		_, err = s.db.ExecContext(ctx,
			`INSERT INTO games (id, code, theme, state, created_at, config)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			game.ID, game.Code, game.Theme, game.State, toMillis(game.CreatedAt), string(configJSON),
		)
		if err == nil {
			return game, nil
		}
		if !strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("insert game: %w", err)
		}
	}

	return nil, fmt.Errorf("insert game: %w", err)
}

func scanGame(row *sql.Row) (*Game, error) {
	var (
		game       Game
		createdAt  int64
		startedAt  sql.NullInt64
		endedAt    sql.NullInt64
		configJSON string
	)

	err := row.Scan(&game.ID, &game.Code, &game.Theme, &game.State, &createdAt, &startedAt, &endedAt, &configJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan game: %w", err)
	}

	game.CreatedAt = fromMillis(createdAt)
	game.StartedAt = fromNullMillis(startedAt)
	game.EndedAt = fromNullMillis(endedAt)

	if err := json.Unmarshal([]byte(configJSON), &game.Config); err != nil {
		return nil, fmt.Errorf("parse game config: %w", err)
	}

	return &game, nil
}

// GameByID fetches one game.
func (s *Store) GameByID(ctx context.Context, id string) (*Game, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, code, theme, state, created_at, started_at, ended_at, config
		 FROM games WHERE id = ?`, id)
	return scanGame(row)
}

// GameByCode fetches one game by its share code, case-insensitively.
func (s *Store) GameByCode(ctx context.Context, code string) (*Game, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, code, theme, state, created_at, started_at, ended_at, config
		 FROM games WHERE code = ?`, strings.ToUpper(strings.TrimSpace(code)))
	return scanGame(row)
}

// SetGameState transitions a game, stamping started_at the first time
// it goes active and ended_at when it ends.
func (s *Store) SetGameState(ctx context.Context, id, state string) error {
	now := toMillis(time.Now())

	result, err := s.db.ExecContext(ctx,
		`UPDATE games
		 SET state = ?,
		     started_at = CASE WHEN ? = 'active' AND started_at IS NULL THEN ? ELSE started_at END,
		     ended_at = CASE WHEN ? = 'ended' THEN ? ELSE ended_at END
		 WHERE id = ?`,
		state, state, now, state, now, id)
	if err != nil {
		return fmt.Errorf("update game state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update game state: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteGame removes a game; players, votes, and events cascade.
func (s *Store) DeleteGame(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// AllGames lists every game, newest first.
func (s *Store) AllGames(ctx context.Context) ([]Game, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, theme, state, created_at, started_at, ended_at, config
		 FROM games ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		var (
			game       Game
			createdAt  int64
			startedAt  sql.NullInt64
			endedAt    sql.NullInt64
			configJSON string
		)
		if err := rows.Scan(&game.ID, &game.Code, &game.Theme, &game.State, &createdAt, &startedAt, &endedAt, &configJSON); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		game.CreatedAt = fromMillis(createdAt)
		game.StartedAt = fromNullMillis(startedAt)
		game.EndedAt = fromNullMillis(endedAt)
		if err := json.Unmarshal([]byte(configJSON), &game.Config); err != nil {
			return nil, fmt.Errorf("parse game config: %w", err)
		}
		games = append(games, game)
	}

	return games, rows.Err()
}
