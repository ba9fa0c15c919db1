package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/Seednode/mafiabox/store"
)

// VoteReceipt is returned to the voter.
type VoteReceipt struct {
	TargetName    string `json:"target_name"`
	CanChangeVote bool   `json:"can_change_vote"`
}

// RecordVote validates and records a vote: the voter must be alive,
// the target must be a living player in the same game, and nobody may
// vote for themselves. A voter's second vote replaces the first.
func (s *Service) RecordVote(ctx context.Context, voterID, targetID string) (*VoteReceipt, error) {
	if targetID == "" {
		return nil, fmt.Errorf("%w: target player id is required", ErrValidation)
	}

	voter, err := s.store.PlayerByID(ctx, voterID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: player", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !voter.IsAlive {
		return nil, fmt.Errorf("%w: eliminated players cannot vote", ErrValidation)
	}

	target, err := s.store.PlayerByID(ctx, targetID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: target player", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if target.GameID != voter.GameID {
		return nil, fmt.Errorf("%w: cannot vote for a player in a different game", ErrValidation)
	}
	if !target.IsAlive {
		return nil, fmt.Errorf("%w: cannot vote for eliminated players", ErrValidation)
	}
	if voterID == targetID {
		return nil, fmt.Errorf("%w: cannot vote for yourself", ErrValidation)
	}

	if _, err := s.store.UpsertVote(ctx, voter.GameID, voterID, targetID); err != nil {
		return nil, err
	}

	return &VoteReceipt{
		TargetName:    target.Name,
		CanChangeVote: true,
	}, nil
}

// CurrentVote reports whether a player has voted this round, and for
// whom.
type CurrentVote struct {
	HasVoted   bool   `json:"has_voted"`
	TargetID   string `json:"target_id,omitempty"`
	TargetName string `json:"target_name,omitempty"`
}

// VoteByPlayer fetches a player's live vote.
func (s *Service) VoteByPlayer(ctx context.Context, playerID string) (*CurrentVote, error) {
	player, err := s.store.PlayerByID(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: player", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	vote, err := s.store.VoteByPlayer(ctx, player.GameID, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return &CurrentVote{}, nil
	}
	if err != nil {
		return nil, err
	}

	current := &CurrentVote{
		HasVoted: true,
		TargetID: vote.TargetID,
	}
	if target, err := s.store.PlayerByID(ctx, vote.TargetID); err == nil {
		current.TargetName = target.Name
	}

	return current, nil
}

// VoteCounts tallies the live votes for a game, counting only targets
// who are still alive. Empty when nobody has voted.
func (s *Service) VoteCounts(ctx context.Context, gameID string) (map[string]int, error) {
	if _, err := s.requireGame(ctx, gameID); err != nil {
		return nil, err
	}
	return s.store.VoteCounts(ctx, gameID)
}

// Leader is one player holding the maximum vote count.
type Leader struct {
	PlayerID  string `json:"player_id"`
	VoteCount int    `json:"vote_count"`
}

// Leaders returns every target tied at the maximum vote count: one
// entry is a clear winner, several are a tie, none means no votes.
func (s *Service) Leaders(ctx context.Context, gameID string) ([]Leader, error) {
	counts, err := s.VoteCounts(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, nil
	}

	max := 0
	for _, count := range counts {
		if count > max {
			max = count
		}
	}

	var leaders []Leader
	for playerID, count := range counts {
		if count == max {
			leaders = append(leaders, Leader{PlayerID: playerID, VoteCount: count})
		}
	}

	return leaders, nil
}

// TiedPlayer names one member of a tie for admin disambiguation.
type TiedPlayer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	VoteCount int    `json:"vote_count"`
}

// EliminatedPlayer describes the loser of a resolved round.
type EliminatedPlayer struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	VoteCount    int    `json:"vote_count"`
	DeathMessage string `json:"death_message"`
}

// EliminationResult is the outcome of resolving a round. Exactly one
// of NoVotes, Tie, or Eliminated describes what happened.
type EliminationResult struct {
	NoVotes      bool              `json:"no_votes,omitempty"`
	Tie          bool              `json:"tie,omitempty"`
	TiedPlayers  []TiedPlayer      `json:"tied_players,omitempty"`
	Eliminated   *EliminatedPlayer `json:"eliminated_player,omitempty"`
	VotesCleared bool              `json:"votes_cleared"`
	VoteSummary  map[string]int    `json:"vote_summary"`
}

// ResolveElimination tallies a game's round. A clear winner is
// eliminated and the votes are cleared. A tie is returned untouched
// for the admin to break, unless explicitTargetID names one of the
// tied players, in which case that player is eliminated as if they had
// won outright. With no votes at all, nothing changes.
func (s *Service) ResolveElimination(ctx context.Context, gameID, explicitTargetID string) (*EliminationResult, error) {
	game, err := s.requireGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	counts, err := s.store.VoteCounts(ctx, gameID)
	if err != nil {
		return nil, err
	}

	result := &EliminationResult{VoteSummary: counts}

	if len(counts) == 0 {
		result.NoVotes = true
		return result, nil
	}

	leaders, err := s.Leaders(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var chosen Leader
	switch {
	case len(leaders) == 1:
		chosen = leaders[0]

	case explicitTargetID == "":
		result.Tie = true
		for _, leader := range leaders {
			tied := TiedPlayer{ID: leader.PlayerID, VoteCount: leader.VoteCount}
			if player, err := s.store.PlayerByID(ctx, leader.PlayerID); err == nil {
				tied.Name = player.Name
			}
			result.TiedPlayers = append(result.TiedPlayers, tied)
		}
		return result, nil

	default:
		found := false
		for _, leader := range leaders {
			if leader.PlayerID == explicitTargetID {
				chosen = leader
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: selected player is not part of the tie", ErrValidation)
		}
	}

	target, err := s.store.PlayerByID(ctx, chosen.PlayerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: target player", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !target.IsAlive {
		return nil, fmt.Errorf("%w: target player is already eliminated", ErrStateConflict)
	}

	if err := s.store.SetPlayerAlive(ctx, target.ID, false); err != nil {
		return nil, err
	}
	if err := s.store.DeleteVotesByGame(ctx, gameID); err != nil {
		return nil, err
	}

	result.Eliminated = &EliminatedPlayer{
		ID:           target.ID,
		Name:         target.Name,
		VoteCount:    chosen.VoteCount,
		DeathMessage: deathMessage(game.Theme),
	}
	result.VotesCleared = true

	s.appendEvent(ctx, gameID, "player_eliminated", map[string]any{
		"player":     target.Name,
		"vote_count": chosen.VoteCount,
	})

	return result, nil
}

// ClearVotes wipes a game's votes, resetting the round.
func (s *Service) ClearVotes(ctx context.Context, gameID string) error {
	if _, err := s.requireGame(ctx, gameID); err != nil {
		return err
	}
	if err := s.store.DeleteVotesByGame(ctx, gameID); err != nil {
		return err
	}

	s.appendEvent(ctx, gameID, "votes_cleared", nil)

	return nil
}

func (s *Service) requireGame(ctx context.Context, gameID string) (*store.Game, error) {
	game, err := s.store.GameByID(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: game", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return game, nil
}
