package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
)

// MatchService drives the match lifecycle outside of result submission:
// check-ins, starts, cancellations, and the scheduler sweeps that move
// matches along when a deadline passes.
type MatchService interface {
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	ListTournamentMatches(ctx context.Context, tournamentID int, round *int, state *models.MatchState) ([]*models.Match, error)
	ConfirmCheckIn(ctx context.Context, matchID, participantID int) (*models.Match, error)
	StartMatch(ctx context.Context, matchID int) (*models.Match, error)
	CancelMatch(ctx context.Context, matchID int) (*models.Match, error)

	OpenCheckIns(ctx context.Context, now time.Time) error
	SweepCheckInExpirations(ctx context.Context, now time.Time) error
	SweepAutoStarts(ctx context.Context, now time.Time) error
}

type matchService struct {
	runner      repositories.TxRunner
	matchRepo   repositories.MatchRepository
	advancement AdvancementService
	publisher   EventPublisher
	policy      EnginePolicy
	locks       *keyedMutex
	logger      *slog.Logger
}

func NewMatchService(
	runner repositories.TxRunner,
	matchRepo repositories.MatchRepository,
	advancement AdvancementService,
	publisher EventPublisher,
	policy EnginePolicy,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		runner:      runner,
		matchRepo:   matchRepo,
		advancement: advancement,
		publisher:   publisher,
		policy:      policy,
		locks:       matchLocks,
		logger:      logger,
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) ListTournamentMatches(ctx context.Context, tournamentID int, round *int, state *models.MatchState) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, tournamentID, round, state)
}

// ConfirmCheckIn records one side's presence. A check-in arriving while the
// match is still scheduled but the window is open transitions it first; the
// sweep ticker is too coarse to gate on.
func (s *matchService) ConfirmCheckIn(ctx context.Context, matchID, participantID int) (*models.Match, error) {
	s.locks.Lock(matchID)
	defer s.locks.Unlock(matchID)

	var match *models.Match
	err := s.runner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.getForUpdate(ctx, exec, matchID)
		if err != nil {
			return err
		}

		if match.State == models.MatchStateScheduled && !match.CheckInOpensAt.After(time.Now()) {
			if err := s.transition(ctx, exec, match, models.MatchStateCheckIn); err != nil {
				return err
			}
		}
		if match.State != models.MatchStateCheckIn {
			return fmt.Errorf("%w: check-in is not open in state %q", ErrInvalidStateTransition, match.State)
		}

		side := match.SideOf(participantID)
		if side == 0 {
			return ErrNotAParticipant
		}
		if err := s.matchRepo.SetCheckIn(ctx, exec, match.ID, match.Version, side); err != nil {
			return s.mapVersionConflict(err)
		}
		match.Version++
		if side == 1 {
			match.P1CheckedIn = true
		} else {
			match.P2CheckedIn = true
		}

		if match.P1CheckedIn && match.P2CheckedIn {
			return s.transition(ctx, exec, match, models.MatchStateReady)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (s *matchService) StartMatch(ctx context.Context, matchID int) (*models.Match, error) {
	return s.transitionLocked(ctx, matchID, models.MatchStateLive)
}

func (s *matchService) CancelMatch(ctx context.Context, matchID int) (*models.Match, error) {
	return s.transitionLocked(ctx, matchID, models.MatchStateCancelled)
}

func (s *matchService) transitionLocked(ctx context.Context, matchID int, next models.MatchState) (*models.Match, error) {
	s.locks.Lock(matchID)
	defer s.locks.Unlock(matchID)

	var match *models.Match
	err := s.runner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.getForUpdate(ctx, exec, matchID)
		if err != nil {
			return err
		}
		return s.transition(ctx, exec, match, next)
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (s *matchService) transition(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, next models.MatchState) error {
	if !match.State.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, match.State, next)
	}
	if err := s.matchRepo.UpdateState(ctx, exec, match.ID, match.Version, next); err != nil {
		return s.mapVersionConflict(err)
	}
	match.State = next
	match.Version++
	return nil
}

// OpenCheckIns moves scheduled matches into check_in once their window
// opens.
func (s *matchService) OpenCheckIns(ctx context.Context, now time.Time) error {
	due, err := s.matchRepo.ListScheduledBefore(ctx, now)
	if err != nil {
		return err
	}
	for _, stale := range due {
		if err := s.sweepOne(ctx, stale.ID, func(exec repositories.SQLExecutor, match *models.Match) error {
			if match.State != models.MatchStateScheduled || match.CheckInOpensAt.After(now) {
				return nil
			}
			return s.transition(ctx, exec, match, models.MatchStateCheckIn)
		}); err != nil {
			s.logger.Error("failed to open check-in",
				slog.Int("match_id", stale.ID), slog.Any("error", err))
		}
	}
	return nil
}

// SweepCheckInExpirations closes expired check-in windows. One confirmed
// side wins by forfeit and advances normally; neither side confirmed leaves
// the match in the terminal forfeit state with no advancement.
func (s *matchService) SweepCheckInExpirations(ctx context.Context, now time.Time) error {
	expired, err := s.matchRepo.ListCheckInExpired(ctx, now)
	if err != nil {
		return err
	}
	for _, stale := range expired {
		if err := s.expireCheckIn(ctx, stale.ID, now); err != nil {
			s.logger.Error("failed to expire check-in",
				slog.Int("match_id", stale.ID), slog.Any("error", err))
		}
	}
	return nil
}

func (s *matchService) expireCheckIn(ctx context.Context, matchID int, now time.Time) error {
	var events []models.EngineEvent
	err := s.sweepOne(ctx, matchID, func(exec repositories.SQLExecutor, match *models.Match) error {
		if match.State != models.MatchStateCheckIn || match.CheckInClosesAt.After(now) {
			return nil
		}

		switch {
		case match.P1CheckedIn && match.P2CheckedIn:
			return s.transition(ctx, exec, match, models.MatchStateReady)

		case match.P1CheckedIn || match.P2CheckedIn:
			winnerSide := 1
			if match.P2CheckedIn {
				winnerSide = 2
			}
			var err error
			events, err = s.forfeitWin(ctx, exec, match, winnerSide)
			return err

		default:
			// Double no-show: nobody advances, the node stays unresolved
			// for the organizer to cancel or rebuild around.
			s.logger.Warn("double forfeit", slog.Int("match_id", match.ID))
			return s.transition(ctx, exec, match, models.MatchStateForfeit)
		}
	})
	if err != nil {
		return err
	}
	for _, event := range events {
		s.publisher.Publish(event)
	}
	return nil
}

// forfeitWin completes the match in favor of the side that showed up and
// routes the outcome like any other completed match.
func (s *matchService) forfeitWin(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, winnerSide int) ([]models.EngineEvent, error) {
	if !match.State.CanTransitionTo(models.MatchStateCompleted) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, match.State, models.MatchStateCompleted)
	}

	match.Forfeit = true
	match.WinnerParticipantID = match.ParticipantOnSide(winnerSide)
	match.LoserParticipantID = match.ParticipantOnSide(3 - winnerSide)
	match.State = models.MatchStateCompleted
	if err := s.matchRepo.RecordResult(ctx, exec, match); err != nil {
		return nil, s.mapVersionConflict(err)
	}

	events := []models.EngineEvent{{
		Type:         models.EventMatchCompleted,
		TournamentID: match.TournamentID,
		Payload: map[string]interface{}{
			"match_id":  match.ID,
			"winner_id": match.WinnerParticipantID,
			"forfeit":   true,
		},
	}}
	advanced, err := s.advancement.Propagate(ctx, exec, match)
	if err != nil {
		return nil, err
	}
	return append(events, advanced...), nil
}

// SweepAutoStarts moves fully checked-in matches to live at their scheduled
// time.
func (s *matchService) SweepAutoStarts(ctx context.Context, now time.Time) error {
	due, err := s.matchRepo.ListReadyToStart(ctx, now)
	if err != nil {
		return err
	}
	for _, stale := range due {
		if err := s.sweepOne(ctx, stale.ID, func(exec repositories.SQLExecutor, match *models.Match) error {
			if match.State != models.MatchStateReady || match.ScheduledAt.After(now) {
				return nil
			}
			return s.transition(ctx, exec, match, models.MatchStateLive)
		}); err != nil {
			s.logger.Error("failed to auto-start match",
				slog.Int("match_id", stale.ID), slog.Any("error", err))
		}
	}
	return nil
}

// sweepOne reloads the match under its lock and applies fn. The reload is
// the point: between listing and locking another writer may have moved the
// match on, and fn must re-check state before acting.
func (s *matchService) sweepOne(ctx context.Context, matchID int, fn func(exec repositories.SQLExecutor, match *models.Match) error) error {
	s.locks.Lock(matchID)
	defer s.locks.Unlock(matchID)

	return s.runner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return err
		}
		return fn(exec, match)
	})
}

func (s *matchService) getForUpdate(ctx context.Context, exec repositories.SQLExecutor, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, exec, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) mapVersionConflict(err error) error {
	if errors.Is(err, repositories.ErrMatchVersionConflict) {
		return fmt.Errorf("%w: %v", ErrConcurrentModification, err)
	}
	return err
}
