package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/models"
)

func TestConfirmCheckInBothSidesReady(t *testing.T) {
	env := newTestEnv()
	tournament, _ := env.buildBracket(t, models.FormatSingleElimination, 2)
	ctx := context.Background()

	match := env.matchBetween(t, tournament.ID, 101, 102)

	// The window is open, so the first check-in transitions the match first.
	updated, err := env.matches.ConfirmCheckIn(ctx, match.ID, 101)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStateCheckIn, updated.State)
	assert.True(t, updated.P1CheckedIn)
	assert.False(t, updated.P2CheckedIn)

	updated, err = env.matches.ConfirmCheckIn(ctx, match.ID, 102)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStateReady, updated.State)
	assert.True(t, updated.P2CheckedIn)
}

func TestConfirmCheckInBeforeWindowOpens(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Start two hours out: the 30-minute window has not opened yet.
	tournament := testTournament(1, models.FormatSingleElimination, 2*time.Hour)
	_, err := env.brackets.BuildBracket(ctx, BuildBracketParams{
		Tournament:   tournament,
		Participants: testParticipants(1, 2),
	})
	require.NoError(t, err)

	match := env.matchBetween(t, tournament.ID, 101, 102)
	_, err = env.matches.ConfirmCheckIn(ctx, match.ID, 101)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestConfirmCheckInRejectsOutsider(t *testing.T) {
	env := newTestEnv()
	tournament, _ := env.buildBracket(t, models.FormatSingleElimination, 2)

	match := env.matchBetween(t, tournament.ID, 101, 102)
	_, err := env.matches.ConfirmCheckIn(context.Background(), match.ID, 999)
	assert.ErrorIs(t, err, ErrNotAParticipant)
}

func TestStartMatchRequiresReady(t *testing.T) {
	env := newTestEnv()
	tournament, _ := env.buildBracket(t, models.FormatSingleElimination, 2)
	ctx := context.Background()

	match := env.matchBetween(t, tournament.ID, 101, 102)
	_, err := env.matches.StartMatch(ctx, match.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	live := env.liveMatch(t, match.ID)
	assert.Equal(t, models.MatchStateLive, live.State)

	// live can only move to pending_result.
	_, err = env.matches.CancelMatch(ctx, match.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestCancelScheduledMatch(t *testing.T) {
	env := newTestEnv()
	tournament, _ := env.buildBracket(t, models.FormatSingleElimination, 2)

	match := env.matchBetween(t, tournament.ID, 101, 102)
	cancelled, err := env.matches.CancelMatch(context.Background(), match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStateCancelled, cancelled.State)
}

func TestGetMatchNotFound(t *testing.T) {
	env := newTestEnv()
	_, err := env.matches.GetMatch(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenCheckInsSweep(t *testing.T) {
	env := newTestEnv()
	tournament, _ := env.buildBracket(t, models.FormatSingleElimination, 2)
	ctx := context.Background()

	match := env.matchBetween(t, tournament.ID, 101, 102)
	require.NoError(t, env.matches.OpenCheckIns(ctx, time.Now()))

	swept, err := env.matches.GetMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStateCheckIn, swept.State)

	// Idempotent: a second sweep leaves it alone.
	require.NoError(t, env.matches.OpenCheckIns(ctx, time.Now()))
	swept, err = env.matches.GetMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStateCheckIn, swept.State)
}

func TestCheckInExpiryForfeitsNoShow(t *testing.T) {
	env := newTestEnv()
	tournament, _ := env.buildBracket(t, models.FormatSingleElimination, 2)
	ctx := context.Background()

	match := env.matchBetween(t, tournament.ID, 101, 102)
	_, err := env.matches.ConfirmCheckIn(ctx, match.ID, 101)
	require.NoError(t, err)

	// Close the window: only side 1 confirmed, so they win by forfeit.
	afterClose := match.CheckInClosesAt.Add(time.Second)
	require.NoError(t, env.matches.SweepCheckInExpirations(ctx, afterClose))

	swept, err := env.matches.GetMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStateCompleted, swept.State)
	assert.True(t, swept.Forfeit)
	require.NotNil(t, swept.WinnerParticipantID)
	assert.Equal(t, 101, *swept.WinnerParticipantID)

	// A two-participant bracket concludes off the forfeit.
	champion := env.champion(t, tournament.ID)
	require.NotNil(t, champion)
	assert.Equal(t, 101, *champion)

	completed := env.pub.byType(models.EventMatchCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, true, completed[0].Payload["forfeit"])
	assert.Len(t, env.pub.byType(models.EventTournamentConcluded), 1)
}

func TestCheckInExpiryDoubleNoShow(t *testing.T) {
	env := newTestEnv()
	tournament, _ := env.buildBracket(t, models.FormatSingleElimination, 2)
	ctx := context.Background()

	match := env.matchBetween(t, tournament.ID, 101, 102)
	require.NoError(t, env.matches.OpenCheckIns(ctx, time.Now()))

	afterClose := match.CheckInClosesAt.Add(time.Second)
	require.NoError(t, env.matches.SweepCheckInExpirations(ctx, afterClose))

	swept, err := env.matches.GetMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStateForfeit, swept.State)
	assert.Nil(t, swept.WinnerParticipantID)

	// Nobody advances off a double no-show.
	assert.Nil(t, env.champion(t, tournament.ID))
	assert.Empty(t, env.pub.byType(models.EventMatchCompleted))
}

func TestCheckInExpiryBothConfirmedMovesToReady(t *testing.T) {
	env := newTestEnv()
	tournament, _ := env.buildBracket(t, models.FormatSingleElimination, 2)
	ctx := context.Background()

	match := env.matchBetween(t, tournament.ID, 101, 102)
	_, err := env.matches.ConfirmCheckIn(ctx, match.ID, 101)
	require.NoError(t, err)
	_, err = env.matches.ConfirmCheckIn(ctx, match.ID, 102)
	require.NoError(t, err)

	// Already ready: the sweep has nothing left to do.
	afterClose := match.CheckInClosesAt.Add(time.Second)
	require.NoError(t, env.matches.SweepCheckInExpirations(ctx, afterClose))

	swept, err := env.matches.GetMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStateReady, swept.State)
}

func TestSweepAutoStarts(t *testing.T) {
	env := newTestEnv()
	tournament, _ := env.buildBracket(t, models.FormatSingleElimination, 2)
	ctx := context.Background()

	match := env.matchBetween(t, tournament.ID, 101, 102)
	_, err := env.matches.ConfirmCheckIn(ctx, match.ID, 101)
	require.NoError(t, err)
	_, err = env.matches.ConfirmCheckIn(ctx, match.ID, 102)
	require.NoError(t, err)

	// Not yet scheduled time: nothing starts.
	require.NoError(t, env.matches.SweepAutoStarts(ctx, match.ScheduledAt.Add(-time.Minute)))
	swept, err := env.matches.GetMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStateReady, swept.State)

	require.NoError(t, env.matches.SweepAutoStarts(ctx, match.ScheduledAt.Add(time.Second)))
	swept, err = env.matches.GetMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStateLive, swept.State)
}

func TestListTournamentMatchesFilters(t *testing.T) {
	env := newTestEnv()
	tournament, _ := env.buildBracket(t, models.FormatSingleElimination, 8)
	ctx := context.Background()

	all, err := env.matches.ListTournamentMatches(ctx, tournament.ID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	round := 1
	byRound, err := env.matches.ListTournamentMatches(ctx, tournament.ID, &round, nil)
	require.NoError(t, err)
	assert.Len(t, byRound, 4)

	round = 2
	byRound, err = env.matches.ListTournamentMatches(ctx, tournament.ID, &round, nil)
	require.NoError(t, err)
	assert.Empty(t, byRound)

	state := models.MatchStateScheduled
	byState, err := env.matches.ListTournamentMatches(ctx, tournament.ID, nil, &state)
	require.NoError(t, err)
	assert.Len(t, byState, 4)
}
