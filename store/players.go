package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Seednode/mafiabox/roles"
)

// Player is one seat in a game. Role and RoleData are nil until cards
// are issued.
type Player struct {
	ID       string      `json:"id"`
	GameID   string      `json:"game_id"`
	Name     string      `json:"name"`
	Role     string      `json:"role,omitempty"`
	RoleData *roles.Role `json:"role_data,omitempty"`
	IsAlive  bool        `json:"is_alive"`
	JoinedAt time.Time   `json:"joined_at"`
}

// CreatePlayer inserts a player into a game.
func (s *Store) CreatePlayer(ctx context.Context, gameID, name string) (*Player, error) {
	player := &Player{
		ID:       uuid.NewString(),
		GameID:   gameID,
		Name:     name,
		IsAlive:  true,
		JoinedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, game_id, name, joined_at) VALUES (?, ?, ?, ?)`,
		player.ID, player.GameID, player.Name, toMillis(player.JoinedAt))
	if err != nil {
		return nil, fmt.Errorf("insert player: %w", err)
	}

	return player, nil
}

func scanPlayer(scan func(dest ...any) error) (*Player, error) {
	var (
		player   Player
		role     sql.NullString
		roleData sql.NullString
		isAlive  int
		joinedAt int64
	)

	err := scan(&player.ID, &player.GameID, &player.Name, &role, &roleData, &isAlive, &joinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan player: %w", err)
	}

	player.Role = role.String
	player.IsAlive = isAlive != 0
	player.JoinedAt = fromMillis(joinedAt)

	if roleData.Valid && roleData.String != "" {
		var def roles.Role
		if err := json.Unmarshal([]byte(roleData.String), &def); err != nil {
			return nil, fmt.Errorf("parse role data: %w", err)
		}
		player.RoleData = &def
	}

	return &player, nil
}

// PlayerByID fetches one player.
func (s *Store) PlayerByID(ctx context.Context, id string) (*Player, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, game_id, name, role, role_data, is_alive, joined_at
		 FROM players WHERE id = ?`, id)
	return scanPlayer(row.Scan)
}

// PlayersByGame lists a game's players in join order, the order roles
// are dealt in.
func (s *Store) PlayersByGame(ctx context.Context, gameID string) ([]Player, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, game_id, name, role, role_data, is_alive, joined_at
		 FROM players WHERE game_id = ? ORDER BY joined_at, id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		player, err := scanPlayer(rows.Scan)
		if err != nil {
			return nil, err
		}
		players = append(players, *player)
	}

	return players, rows.Err()
}

// AssignRole stores a player's dealt role and its full definition.
func (s *Store) AssignRole(ctx context.Context, playerID string, role roles.Role) error {
	data, err := json.Marshal(role)
	if err != nil {
		return fmt.Errorf("marshal role data: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE players SET role = ?, role_data = ? WHERE id = ?`,
		role.ID, string(data), playerID)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetPlayerAlive flips a player's alive status.
func (s *Store) SetPlayerAlive(ctx context.Context, playerID string, alive bool) error {
	value := 0
	if alive {
		value = 1
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE players SET is_alive = ? WHERE id = ?`, value, playerID)
	if err != nil {
		return fmt.Errorf("set player alive: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set player alive: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// ResetPlayersAlive revives every player in a game, used by rerolls.
func (s *Store) ResetPlayersAlive(ctx context.Context, gameID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE players SET is_alive = 1 WHERE game_id = ?`, gameID)
	if err != nil {
		return fmt.Errorf("reset players alive: %w", err)
	}
	return nil
}

// DeletePlayer removes a player.
func (s *Store) DeletePlayer(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// PlayerNameTaken reports whether a name is already used in a game.
func (s *Store) PlayerNameTaken(ctx context.Context, gameID, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM players WHERE game_id = ? AND name = ?`, gameID, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check player name: %w", err)
	}
	return count > 0, nil
}

// PlayerCount counts a game's players.
func (s *Store) PlayerCount(ctx context.Context, gameID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM players WHERE game_id = ?`, gameID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return count, nil
}
