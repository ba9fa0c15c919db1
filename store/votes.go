package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Vote is one live elimination vote. At most one vote exists per
// (game, voter); re-voting replaces the target in place.
type Vote struct {
	ID        string    `json:"id"`
	GameID    string    `json:"game_id"`
	PlayerID  string    `json:"player_id"`
	TargetID  string    `json:"target_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UpsertVote records a voter's choice, replacing any earlier vote by
// the same voter in the same game. The one-row-per-voter invariant is
// backed by the UNIQUE (game_id, player_id) index, so concurrent calls
// cannot slip a second row in; on conflict the existing row keeps its
// id and only the target and timestamp move.
func (s *Store) UpsertVote(ctx context.Context, gameID, playerID, targetID string) (*Vote, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO votes (id, game_id, player_id, target_id, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (game_id, player_id) DO UPDATE
		 SET target_id = excluded.target_id, created_at = excluded.created_at`,
		uuid.NewString(), gameID, playerID, targetID, toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("upsert vote: %w", err)
	}

	return s.VoteByPlayer(ctx, gameID, playerID)
}

// VoteByPlayer fetches a voter's live vote in a game.
func (s *Store) VoteByPlayer(ctx context.Context, gameID, playerID string) (*Vote, error) {
	var (
		vote      Vote
		createdAt int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT id, game_id, player_id, target_id, created_at
		 FROM votes WHERE player_id = ? AND game_id = ?`, playerID, gameID).
		Scan(&vote.ID, &vote.GameID, &vote.PlayerID, &vote.TargetID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan vote: %w", err)
	}

	vote.CreatedAt = fromMillis(createdAt)
	return &vote, nil
}

// VotesByGame lists a game's live votes, newest first.
func (s *Store) VotesByGame(ctx context.Context, gameID string) ([]Vote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, game_id, player_id, target_id, created_at
		 FROM votes WHERE game_id = ? ORDER BY created_at DESC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	var votes []Vote
	for rows.Next() {
		var (
			vote      Vote
			createdAt int64
		)
		if err := rows.Scan(&vote.ID, &vote.GameID, &vote.PlayerID, &vote.TargetID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		vote.CreatedAt = fromMillis(createdAt)
		votes = append(votes, vote)
	}

	return votes, rows.Err()
}

// VoteCounts tallies per-target vote counts for a game. Only votes
// whose target is still alive are counted; the aliveness check happens
// at tally time, not just at submission time, so votes lingering
// against a player eliminated mid-round vanish from the tally.
func (s *Store) VoteCounts(ctx context.Context, gameID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.target_id, COUNT(*)
		 FROM votes v
		 JOIN players p ON p.id = v.target_id
		 WHERE v.game_id = ? AND p.is_alive = 1
		 GROUP BY v.target_id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("tally votes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			targetID string
			count    int
		)
		if err := rows.Scan(&targetID, &count); err != nil {
			return nil, fmt.Errorf("scan tally: %w", err)
		}
		counts[targetID] = count
	}

	return counts, rows.Err()
}

// DeleteVote removes one vote row.
func (s *Store) DeleteVote(ctx context.Context, voteID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM votes WHERE id = ?`, voteID)
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteVotesByGame removes every vote for a game, resetting the round.
func (s *Store) DeleteVotesByGame(ctx context.Context, gameID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM votes WHERE game_id = ?`, gameID)
	if err != nil {
		return fmt.Errorf("clear votes: %w", err)
	}
	return nil
}
