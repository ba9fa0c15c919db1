package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/mafiabox/store"
)

// votingGame creates an active classic game with seven seated players.
func votingGame(t *testing.T, s *Service) (*store.Game, []*store.Player) {
	t.Helper()
	ctx := context.Background()

	created, err := s.CreateGame(ctx, "classic", 7)
	require.NoError(t, err)
	players := seatPlayers(t, s, created.Code, 7)

	_, err = s.IssueCards(ctx, created.ID)
	require.NoError(t, err)

	return created, players
}

func TestRecordVote(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	g, players := votingGame(t, s)

	receipt, err := s.RecordVote(ctx, players[0].ID, players[1].ID)
	require.NoError(t, err)
	assert.Equal(t, players[1].Name, receipt.TargetName)
	assert.True(t, receipt.CanChangeVote)

	counts, err := s.VoteCounts(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{players[1].ID: 1}, counts)
}

func TestRecordVoteIdempotent(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	g, players := votingGame(t, s)

	_, err := s.RecordVote(ctx, players[0].ID, players[1].ID)
	require.NoError(t, err)
	_, err = s.RecordVote(ctx, players[0].ID, players[1].ID)
	require.NoError(t, err)

	votes, err := s.Store().VotesByGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, votes, 1)
}

func TestRecordVoteReplacesTarget(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	g, players := votingGame(t, s)

	_, err := s.RecordVote(ctx, players[0].ID, players[1].ID)
	require.NoError(t, err)
	_, err = s.RecordVote(ctx, players[0].ID, players[2].ID)
	require.NoError(t, err)

	counts, err := s.VoteCounts(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{players[2].ID: 1}, counts)
}

func TestRecordVoteValidation(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	g, players := votingGame(t, s)

	// Self-vote.
	_, err := s.RecordVote(ctx, players[0].ID, players[0].ID)
	assert.ErrorIs(t, err, ErrValidation)

	// Missing target id.
	_, err = s.RecordVote(ctx, players[0].ID, "")
	assert.ErrorIs(t, err, ErrValidation)

	// Unknown voter and unknown target.
	_, err = s.RecordVote(ctx, "missing", players[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.RecordVote(ctx, players[0].ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Cross-game target.
	other, err := s.CreateGame(ctx, "classic", 7)
	require.NoError(t, err)
	stranger, err := s.Join(ctx, other.Code, "stranger")
	require.NoError(t, err)
	_, err = s.RecordVote(ctx, players[0].ID, stranger.ID)
	assert.ErrorIs(t, err, ErrValidation)

	// Eliminated players can neither vote nor be voted for.
	_, err = s.SetAlive(ctx, players[6].ID, false)
	require.NoError(t, err)
	_, err = s.RecordVote(ctx, players[6].ID, players[0].ID)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.RecordVote(ctx, players[0].ID, players[6].ID)
	assert.ErrorIs(t, err, ErrValidation)

	// None of the rejected votes left a row behind.
	votes, err := s.Store().VotesByGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, votes)
}

func TestVoteByPlayer(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	_, players := votingGame(t, s)

	current, err := s.VoteByPlayer(ctx, players[0].ID)
	require.NoError(t, err)
	assert.False(t, current.HasVoted)

	_, err = s.RecordVote(ctx, players[0].ID, players[1].ID)
	require.NoError(t, err)

	current, err = s.VoteByPlayer(ctx, players[0].ID)
	require.NoError(t, err)
	assert.True(t, current.HasVoted)
	assert.Equal(t, players[1].ID, current.TargetID)
	assert.Equal(t, players[1].Name, current.TargetName)
}

func TestLeadersTieDetection(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	g, players := votingGame(t, s)

	// {A:3, B:3, C:1} across seven voters.
	a, b, c := players[0], players[1], players[2]
	castVote := func(voter, target *store.Player) {
		_, err := s.RecordVote(ctx, voter.ID, target.ID)
		require.NoError(t, err)
	}
	castVote(players[1], a)
	castVote(players[2], a)
	castVote(players[3], a)
	castVote(players[0], b)
	castVote(players[4], b)
	castVote(players[5], b)
	castVote(players[6], c)

	leaders, err := s.Leaders(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, leaders, 2)

	got := map[string]int{}
	for _, leader := range leaders {
		got[leader.PlayerID] = leader.VoteCount
	}
	assert.Equal(t, map[string]int{a.ID: 3, b.ID: 3}, got)
}

func TestLeadersNoVotes(t *testing.T) {
	s := testService(t)
	g, _ := votingGame(t, s)

	leaders, err := s.Leaders(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Empty(t, leaders)
}

func TestResolveEliminationClearWinner(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	g, players := votingGame(t, s)

	// voter1->target2, voter3->target2: target2 eliminated with 2 votes.
	_, err := s.RecordVote(ctx, players[0].ID, players[1].ID)
	require.NoError(t, err)
	_, err = s.RecordVote(ctx, players[2].ID, players[1].ID)
	require.NoError(t, err)

	result, err := s.ResolveElimination(ctx, g.ID, "")
	require.NoError(t, err)
	require.NotNil(t, result.Eliminated)
	assert.Equal(t, players[1].ID, result.Eliminated.ID)
	assert.Equal(t, players[1].Name, result.Eliminated.Name)
	assert.Equal(t, 2, result.Eliminated.VoteCount)
	assert.NotEmpty(t, result.Eliminated.DeathMessage)
	assert.True(t, result.VotesCleared)
	assert.False(t, result.Tie)

	eliminated, err := s.Store().PlayerByID(ctx, players[1].ID)
	require.NoError(t, err)
	assert.False(t, eliminated.IsAlive)

	// Resolution clears the round.
	counts, err := s.VoteCounts(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestResolveEliminationNoVotes(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	g, players := votingGame(t, s)

	result, err := s.ResolveElimination(ctx, g.ID, "")
	require.NoError(t, err)
	assert.True(t, result.NoVotes)
	assert.Nil(t, result.Eliminated)
	assert.False(t, result.VotesCleared)

	for _, player := range players {
		fetched, err := s.Store().PlayerByID(ctx, player.ID)
		require.NoError(t, err)
		assert.True(t, fetched.IsAlive)
	}
}

func TestResolveEliminationTieWithoutTarget(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	g, players := votingGame(t, s)

	_, err := s.RecordVote(ctx, players[0].ID, players[1].ID)
	require.NoError(t, err)
	_, err = s.RecordVote(ctx, players[1].ID, players[0].ID)
	require.NoError(t, err)

	result, err := s.ResolveElimination(ctx, g.ID, "")
	require.NoError(t, err)
	assert.True(t, result.Tie)
	require.Len(t, result.TiedPlayers, 2)
	assert.Nil(t, result.Eliminated)
	assert.False(t, result.VotesCleared)

	// A tie without an explicit target mutates nothing.
	for _, player := range players {
		fetched, err := s.Store().PlayerByID(ctx, player.ID)
		require.NoError(t, err)
		assert.True(t, fetched.IsAlive)
	}
	votes, err := s.Store().VotesByGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, votes, 2)
}

func TestResolveEliminationTieWithTarget(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	g, players := votingGame(t, s)

	_, err := s.RecordVote(ctx, players[0].ID, players[1].ID)
	require.NoError(t, err)
	_, err = s.RecordVote(ctx, players[1].ID, players[0].ID)
	require.NoError(t, err)

	// Naming a player outside the tie is rejected.
	_, err = s.ResolveElimination(ctx, g.ID, players[5].ID)
	assert.ErrorIs(t, err, ErrValidation)

	result, err := s.ResolveElimination(ctx, g.ID, players[1].ID)
	require.NoError(t, err)
	require.NotNil(t, result.Eliminated)
	assert.Equal(t, players[1].ID, result.Eliminated.ID)
	assert.True(t, result.VotesCleared)

	counts, err := s.VoteCounts(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestResolveEliminationSkipsDeadTargets(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	g, players := votingGame(t, s)

	// Two votes land on players[1], one on players[2]; then players[1]
	// is eliminated by the game master before the tally.
	_, err := s.RecordVote(ctx, players[0].ID, players[1].ID)
	require.NoError(t, err)
	_, err = s.RecordVote(ctx, players[2].ID, players[1].ID)
	require.NoError(t, err)
	_, err = s.RecordVote(ctx, players[3].ID, players[2].ID)
	require.NoError(t, err)

	_, err = s.SetAlive(ctx, players[1].ID, false)
	require.NoError(t, err)

	// Stale votes against the dead player vanish from the tally, so
	// the remaining target wins instead of a re-elimination happening.
	result, err := s.ResolveElimination(ctx, g.ID, "")
	require.NoError(t, err)
	require.NotNil(t, result.Eliminated)
	assert.Equal(t, players[2].ID, result.Eliminated.ID)
	assert.Equal(t, 1, result.Eliminated.VoteCount)
}

func TestResolveEliminationUnknownGame(t *testing.T) {
	s := testService(t)

	_, err := s.ResolveElimination(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClearVotes(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	g, players := votingGame(t, s)

	_, err := s.RecordVote(ctx, players[0].ID, players[1].ID)
	require.NoError(t, err)

	require.NoError(t, s.ClearVotes(ctx, g.ID))

	counts, err := s.VoteCounts(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, counts)

	assert.ErrorIs(t, s.ClearVotes(ctx, "missing"), ErrNotFound)
}

func TestDeathMessageFallback(t *testing.T) {
	assert.NotEmpty(t, deathMessage("classic"))
	assert.NotEmpty(t, deathMessage("deep-space"))
	assert.NotEmpty(t, deathMessage("no-such-theme"))
}
