package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/models"
)

// testEnv wires every service against one shared memStore, mirroring the
// production wiring in cmd/main.go.
type testEnv struct {
	store       *memStore
	pub         *capturePublisher
	policy      EnginePolicy
	advancement AdvancementService
	brackets    BracketService
	matches     MatchService
	results     ResultService
	disputes    DisputeService
}

func newTestEnv(mutate ...func(*EnginePolicy)) *testEnv {
	store := newMemStore()
	pub := &capturePublisher{}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	policy := DefaultEnginePolicy()
	for _, fn := range mutate {
		fn(&policy)
	}

	advancement := NewAdvancementService(
		store, memBracketRepo{store}, memNodeRepo{store}, memMatchRepo{store},
		memStandingRepo{store}, policy, logger)

	return &testEnv{
		store:       store,
		pub:         pub,
		policy:      policy,
		advancement: advancement,
		brackets: NewBracketService(
			store, store, store, memParticipantRepo{store}, memBracketRepo{store},
			memNodeRepo{store}, memMatchRepo{store}, memStandingRepo{store}, policy, logger),
		matches: NewMatchService(
			store, memMatchRepo{store}, advancement, pub, policy, logger),
		results: NewResultService(
			store, memMatchRepo{store}, memSubmissionRepo{store}, memDisputeRepo{store},
			advancement, pub, policy, logger),
		disputes: NewDisputeService(
			store, memDisputeRepo{store}, memMatchRepo{store}, memSubmissionRepo{store},
			advancement, pub, logger),
	}
}

func testTournament(id int, format models.BracketFormat, startIn time.Duration) *models.Tournament {
	return &models.Tournament{
		ID:            id,
		Name:          fmt.Sprintf("Test Cup %d", id),
		OrganizerID:   9,
		Format:        format,
		SeedingMethod: models.SeedingSlotOrder,
		Status:        models.TournamentStatusActive,
		StartDate:     time.Now().Add(startIn),
	}
}

func testParticipants(tournamentID, n int) []*models.Participant {
	out := make([]*models.Participant, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, &models.Participant{
			ID:           100 + i,
			TournamentID: tournamentID,
			ExternalRef:  fmt.Sprintf("team-%d", i),
			RegisteredAt: time.Now().Add(-time.Hour),
		})
	}
	return out
}

// buildBracket generates a bracket for n participants seeded in slot order
// (participant 100+i holds seed i). StartDate sits 10 minutes out so the
// check-in window is already open for freshly materialized matches.
func (e *testEnv) buildBracket(t *testing.T, format models.BracketFormat, n int) (*models.Tournament, int) {
	t.Helper()
	tournament := testTournament(1, format, 10*time.Minute)
	bracketID, err := e.brackets.BuildBracket(context.Background(), BuildBracketParams{
		Tournament:   tournament,
		Participants: testParticipants(tournament.ID, n),
	})
	require.NoError(t, err)
	return tournament, bracketID
}

// matchBetween finds the not-yet-played match pairing the two participants,
// in either slot order.
func (e *testEnv) matchBetween(t *testing.T, tournamentID, a, b int) *models.Match {
	t.Helper()
	all, err := e.matches.ListTournamentMatches(context.Background(), tournamentID, nil, nil)
	require.NoError(t, err)
	for _, m := range all {
		if m.State != models.MatchStateScheduled || m.Participant1ID == nil || m.Participant2ID == nil {
			continue
		}
		if (*m.Participant1ID == a && *m.Participant2ID == b) ||
			(*m.Participant1ID == b && *m.Participant2ID == a) {
			return m
		}
	}
	t.Fatalf("no scheduled match between %d and %d", a, b)
	return nil
}

// playMatch walks the match through check-in, start, and two agreeing
// submissions.
func (e *testEnv) playMatch(t *testing.T, match *models.Match, score1, score2 int) *models.Match {
	t.Helper()
	ctx := context.Background()

	_, err := e.matches.ConfirmCheckIn(ctx, match.ID, *match.Participant1ID)
	require.NoError(t, err)
	_, err = e.matches.ConfirmCheckIn(ctx, match.ID, *match.Participant2ID)
	require.NoError(t, err)
	_, err = e.matches.StartMatch(ctx, match.ID)
	require.NoError(t, err)

	_, err = e.results.SubmitResult(ctx, SubmitResultInput{
		MatchID: match.ID, ParticipantID: *match.Participant1ID,
		Score1: score1, Score2: score2,
	})
	require.NoError(t, err)
	final, err := e.results.SubmitResult(ctx, SubmitResultInput{
		MatchID: match.ID, ParticipantID: *match.Participant2ID,
		Score1: score1, Score2: score2,
	})
	require.NoError(t, err)
	return final
}

// play finds the match between a and b and plays it 2:0 in the winner's
// favor.
func (e *testEnv) play(t *testing.T, tournamentID, a, b, winnerID int) *models.Match {
	t.Helper()
	match := e.matchBetween(t, tournamentID, a, b)
	score1, score2 := 2, 0
	if *match.Participant2ID == winnerID {
		score1, score2 = 0, 2
	}
	return e.playMatch(t, match, score1, score2)
}

// liveMatch shortcuts a scheduled match into the live state.
func (e *testEnv) liveMatch(t *testing.T, matchID int) *models.Match {
	t.Helper()
	ctx := context.Background()
	match, err := e.matches.GetMatch(ctx, matchID)
	require.NoError(t, err)
	_, err = e.matches.ConfirmCheckIn(ctx, matchID, *match.Participant1ID)
	require.NoError(t, err)
	_, err = e.matches.ConfirmCheckIn(ctx, matchID, *match.Participant2ID)
	require.NoError(t, err)
	live, err := e.matches.StartMatch(ctx, matchID)
	require.NoError(t, err)
	return live
}

func (e *testEnv) champion(t *testing.T, tournamentID int) *int {
	t.Helper()
	tournament, err := e.store.GetByID(context.Background(), nil, tournamentID)
	require.NoError(t, err)
	return tournament.ChampionID
}
