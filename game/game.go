// Package game glues the role catalog and the store together into the
// operations a game master and players perform: create and join
// sessions, deal role cards, vote, and resolve eliminations.
package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Seednode/mafiabox/roles"
	"github.com/Seednode/mafiabox/store"
)

const maxPlayerNameLength = 20

// Service runs game operations against a store and a role catalog.
type Service struct {
	store   *store.Store
	catalog *roles.Catalog
}

// NewService wires a service.
func NewService(st *store.Store, catalog *roles.Catalog) *Service {
	return &Service{
		store:   st,
		catalog: catalog,
	}
}

// Store exposes the underlying store for read-only handler queries.
func (s *Service) Store() *store.Store {
	return s.store
}

// Catalog exposes the role catalog for theme listings.
func (s *Service) Catalog() *roles.Catalog {
	return s.catalog
}

func (s *Service) appendEvent(ctx context.Context, gameID, eventType string, data any) {
	encoded := ""
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			encoded = string(raw)
		}
	}
	// Best effort; the audit trail never fails the operation itself.
	_ = s.store.AppendEvent(ctx, gameID, eventType, encoded)
}

// CreateGame validates the theme and player count, snapshots the
// distribution preset, and persists a new waiting game.
func (s *Service) CreateGame(ctx context.Context, theme string, playerCount int) (*store.Game, error) {
	if theme == "" {
		theme = roles.ClassicTheme
	}

	meta, err := s.catalog.MetadataFor(theme)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if playerCount < meta.MinPlayers {
		return nil, fmt.Errorf("%w: player count must be at least %d", ErrValidation, meta.MinPlayers)
	}

	distribution, err := s.catalog.DistributionFor(theme, playerCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if distribution == nil {
		return nil, fmt.Errorf("%w: no role distribution preset for %d players", ErrValidation, playerCount)
	}

	game, err := s.store.CreateGame(ctx, theme, store.GameConfig{
		RoleDistribution: distribution,
		PlayerCount:      playerCount,
		Theme:            theme,
	})
	if err != nil {
		return nil, err
	}

	s.appendEvent(ctx, game.ID, "game_created", map[string]any{
		"theme":        theme,
		"player_count": playerCount,
	})

	return game, nil
}

// Join adds a named player to a waiting game found by its share code.
func (s *Service) Join(ctx context.Context, code, name string) (*store.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(name) > maxPlayerNameLength {
		return nil, fmt.Errorf("%w: name must be %d characters or less", ErrValidation, maxPlayerNameLength)
	}

	game, err := s.store.GameByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: game", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if game.State != store.StateWaiting {
		return nil, fmt.Errorf("%w: game has already started", ErrStateConflict)
	}

	taken, err := s.store.PlayerNameTaken(ctx, game.ID, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: name %q is already taken in this game", ErrValidation, name)
	}

	player, err := s.store.CreatePlayer(ctx, game.ID, name)
	if err != nil {
		return nil, err
	}

	s.appendEvent(ctx, game.ID, "player_joined", map[string]any{"name": name})

	return player, nil
}

// DealResult reports a card deal. Waiting counts players left without
// a role when the pool is smaller than the table.
type DealResult struct {
	PlayerCount   int `json:"player_count"`
	RolesAssigned int `json:"roles_assigned"`
	Waiting       int `json:"waiting"`
}

// deal generates a fresh pool from the game's stored distribution and
// assigns pool[k] to the k-th player in join order. When pool and
// player counts differ, only min(players, pool) players get a role;
// the rest stay in the waiting room.
func (s *Service) deal(ctx context.Context, game *store.Game, players []store.Player) (*DealResult, error) {
	catalog, err := s.catalog.RolesFor(game.Theme)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConsistency, err)
	}

	pool, err := roles.GeneratePool(game.Config.RoleDistribution, catalog)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConsistency, err)
	}

	assign := len(players)
	if len(pool) < assign {
		assign = len(pool)
	}

	for i := 0; i < assign; i++ {
		if err := s.store.AssignRole(ctx, players[i].ID, pool[i]); err != nil {
			return nil, err
		}
	}

	return &DealResult{
		PlayerCount:   len(players),
		RolesAssigned: assign,
		Waiting:       len(players) - assign,
	}, nil
}

// IssueCards deals roles to a waiting game's players and activates it.
func (s *Service) IssueCards(ctx context.Context, gameID string) (*DealResult, error) {
	game, err := s.store.GameByID(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: game", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if game.State != store.StateWaiting {
		return nil, fmt.Errorf("%w: cards have already been issued", ErrStateConflict)
	}

	players, err := s.store.PlayersByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if len(players) < game.Config.PlayerCount {
		return nil, fmt.Errorf("%w: not enough players, need %d, have %d",
			ErrValidation, game.Config.PlayerCount, len(players))
	}

	result, err := s.deal(ctx, game, players)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetGameState(ctx, gameID, store.StateActive); err != nil {
		return nil, err
	}

	s.appendEvent(ctx, gameID, "cards_issued", result)

	return result, nil
}

// RerollRoles redeals an active game: everyone revives, votes clear,
// and a fresh shuffled pool is assigned.
func (s *Service) RerollRoles(ctx context.Context, gameID string) (*DealResult, error) {
	game, err := s.store.GameByID(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: game", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if game.State != store.StateActive {
		return nil, fmt.Errorf("%w: can only reroll roles for active games", ErrStateConflict)
	}

	players, err := s.store.PlayersByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("%w: no players in game", ErrValidation)
	}

	if err := s.store.ResetPlayersAlive(ctx, gameID); err != nil {
		return nil, err
	}
	if err := s.store.DeleteVotesByGame(ctx, gameID); err != nil {
		return nil, err
	}

	result, err := s.deal(ctx, game, players)
	if err != nil {
		return nil, err
	}

	s.appendEvent(ctx, gameID, "roles_rerolled", result)

	return result, nil
}

// SetAlive flips a player's alive flag and returns the updated player.
func (s *Service) SetAlive(ctx context.Context, playerID string, alive bool) (*store.Player, error) {
	player, err := s.store.PlayerByID(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: player", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.SetPlayerAlive(ctx, playerID, alive); err != nil {
		return nil, err
	}

	eventType := "player_eliminated"
	if alive {
		eventType = "player_revived"
	}
	s.appendEvent(ctx, player.GameID, eventType, map[string]any{"player": player.Name})

	player.IsAlive = alive
	return player, nil
}

// EndGame flips a game to ended.
func (s *Service) EndGame(ctx context.Context, gameID string) error {
	game, err := s.store.GameByID(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: game", ErrNotFound)
	}
	if err != nil {
		return err
	}

	if game.State == store.StateEnded {
		return fmt.Errorf("%w: game has already ended", ErrStateConflict)
	}

	if err := s.store.SetGameState(ctx, gameID, store.StateEnded); err != nil {
		return err
	}

	s.appendEvent(ctx, gameID, "game_ended", nil)

	return nil
}

// DeleteGame removes a game and everything attached to it.
func (s *Service) DeleteGame(ctx context.Context, gameID string) error {
	err := s.store.DeleteGame(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: game", ErrNotFound)
	}
	return err
}

