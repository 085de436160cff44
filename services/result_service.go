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

// SubmitResultInput is one side's claim about a match outcome.
type SubmitResultInput struct {
	MatchID       int
	ParticipantID int
	Score1        int
	Score2        int
	EvidenceKey   *string
}

// ResultService reconciles the two sides' result submissions. The first
// submission starts the auto-confirm clock; a matching second submission
// finalizes immediately, a conflicting one opens a dispute.
type ResultService interface {
	SubmitResult(ctx context.Context, input SubmitResultInput) (*models.Match, error)
	SweepResultDeadlines(ctx context.Context, now time.Time) error
}

type resultService struct {
	runner         repositories.TxRunner
	matchRepo      repositories.MatchRepository
	submissionRepo repositories.SubmissionRepository
	disputeRepo    repositories.DisputeRepository
	advancement    AdvancementService
	publisher      EventPublisher
	policy         EnginePolicy
	locks          *keyedMutex
	logger         *slog.Logger
}

func NewResultService(
	runner repositories.TxRunner,
	matchRepo repositories.MatchRepository,
	submissionRepo repositories.SubmissionRepository,
	disputeRepo repositories.DisputeRepository,
	advancement AdvancementService,
	publisher EventPublisher,
	policy EnginePolicy,
	logger *slog.Logger,
) ResultService {
	return &resultService{
		runner:         runner,
		matchRepo:      matchRepo,
		submissionRepo: submissionRepo,
		disputeRepo:    disputeRepo,
		advancement:    advancement,
		publisher:      publisher,
		policy:         policy,
		locks:          matchLocks,
		logger:         logger,
	}
}

func (s *resultService) SubmitResult(ctx context.Context, input SubmitResultInput) (*models.Match, error) {
	s.locks.Lock(input.MatchID)
	defer s.locks.Unlock(input.MatchID)

	var (
		match  *models.Match
		events []models.EngineEvent
	)
	err := s.runner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByID(ctx, exec, input.MatchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrNotFound
			}
			return err
		}

		switch match.State {
		case models.MatchStateLive, models.MatchStatePendingResult:
		case models.MatchStateDisputed:
			return fmt.Errorf("%w: an open dispute now owns the outcome", ErrMatchAlreadyFinalized)
		case models.MatchStateCompleted, models.MatchStateForfeit, models.MatchStateCancelled:
			return ErrMatchAlreadyFinalized
		default:
			return fmt.Errorf("%w: results are not accepted in state %q", ErrInvalidStateTransition, match.State)
		}

		side := match.SideOf(input.ParticipantID)
		if side == 0 {
			return ErrNotAParticipant
		}

		claimedWinner, err := claimWinner(match, input.Score1, input.Score2)
		if err != nil {
			return err
		}

		existing, err := s.submissionRepo.ListByMatch(ctx, exec, match.ID)
		if err != nil {
			return err
		}
		var opposing *models.ResultSubmission
		for _, sub := range existing {
			if sub.Confirmed {
				continue
			}
			if sub.SubmittedBy == side {
				return fmt.Errorf("%w: side %d already submitted a result", ErrValidationFailed, side)
			}
			opposing = sub
		}

		submission := &models.ResultSubmission{
			MatchID:         match.ID,
			SubmittedBy:     side,
			ClaimedWinnerID: claimedWinner,
			Score1:          input.Score1,
			Score2:          input.Score2,
			EvidenceKey:     input.EvidenceKey,
		}
		if err := s.submissionRepo.Create(ctx, exec, submission); err != nil {
			return err
		}

		if opposing == nil {
			deadline := time.Now().Add(s.policy.AutoConfirmTimeout)
			if err := s.matchRepo.SetResultDeadline(ctx, exec, match.ID, match.Version, deadline, models.MatchStatePendingResult); err != nil {
				return s.mapVersionConflict(err)
			}
			match.State = models.MatchStatePendingResult
			match.ResultDeadline = &deadline
			match.Version++
			return nil
		}

		if submission.Agrees(opposing) {
			events, err = s.finalize(ctx, exec, match, submission, submission.ID, opposing.ID)
			return err
		}
		return s.openDispute(ctx, exec, match, submission, opposing, &events)
	})
	if err != nil {
		return nil, err
	}

	for _, event := range events {
		s.publisher.Publish(event)
	}
	return match, nil
}

// claimWinner derives the claimed winner from the scores. A tie is a draw in
// standings formats and an error in elimination ones.
func claimWinner(match *models.Match, score1, score2 int) (*int, error) {
	switch {
	case score1 > score2:
		return match.Participant1ID, nil
	case score2 > score1:
		return match.Participant2ID, nil
	default:
		if match.NodeID != nil {
			return nil, ErrDrawNotAllowed
		}
		return nil, nil
	}
}

// finalize commits the agreed outcome and routes it through the bracket.
// Runs inside the caller's transaction so a propagation failure rolls the
// result back with it.
func (s *resultService) finalize(
	ctx context.Context,
	exec repositories.SQLExecutor,
	match *models.Match,
	agreed *models.ResultSubmission,
	submissionIDs ...int,
) ([]models.EngineEvent, error) {
	if !match.State.CanTransitionTo(models.MatchStateCompleted) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, match.State, models.MatchStateCompleted)
	}

	match.Score1 = agreed.Score1
	match.Score2 = agreed.Score2
	match.WinnerParticipantID = agreed.ClaimedWinnerID
	match.LoserParticipantID = nil
	if agreed.ClaimedWinnerID != nil {
		if side := match.SideOf(*agreed.ClaimedWinnerID); side != 0 {
			match.LoserParticipantID = match.ParticipantOnSide(3 - side)
		}
	}
	match.State = models.MatchStateCompleted

	if err := s.matchRepo.RecordResult(ctx, exec, match); err != nil {
		return nil, s.mapVersionConflict(err)
	}
	if len(submissionIDs) > 0 {
		if err := s.submissionRepo.MarkConfirmed(ctx, exec, submissionIDs...); err != nil {
			return nil, err
		}
	}

	events := []models.EngineEvent{{
		Type:         models.EventMatchCompleted,
		TournamentID: match.TournamentID,
		Payload: map[string]interface{}{
			"match_id":  match.ID,
			"winner_id": match.WinnerParticipantID,
			"score1":    match.Score1,
			"score2":    match.Score2,
		},
	}}
	advanced, err := s.advancement.Propagate(ctx, exec, match)
	if err != nil {
		return nil, err
	}
	return append(events, advanced...), nil
}

func (s *resultService) openDispute(
	ctx context.Context,
	exec repositories.SQLExecutor,
	match *models.Match,
	submission, opposing *models.ResultSubmission,
	events *[]models.EngineEvent,
) error {
	dispute := &models.Dispute{
		MatchID:                 match.ID,
		Reason:                  "conflicting result submissions",
		RaisedBy:                submission.SubmittedBy,
		SubmissionID:            intPtr(submission.ID),
		ConflictingSubmissionID: intPtr(opposing.ID),
		Status:                  models.DisputeStatusOpen,
	}
	if err := s.disputeRepo.Create(ctx, exec, dispute); err != nil {
		if errors.Is(err, repositories.ErrDisputeOpenConflict) {
			return ErrDisputeAlreadyOpen
		}
		return err
	}
	if err := s.matchRepo.UpdateState(ctx, exec, match.ID, match.Version, models.MatchStateDisputed); err != nil {
		return s.mapVersionConflict(err)
	}
	match.State = models.MatchStateDisputed
	match.Version++

	s.logger.Info("dispute opened",
		slog.Int("match_id", match.ID), slog.Int("dispute_id", dispute.ID))
	*events = append(*events, models.EngineEvent{
		Type:         models.EventDisputeOpened,
		TournamentID: match.TournamentID,
		Payload: map[string]interface{}{
			"match_id":   match.ID,
			"dispute_id": dispute.ID,
		},
	})
	return nil
}

// SweepResultDeadlines confirms every lone submission whose waiting period
// has run out. The deadline is read from the match row, so claims pending
// across a restart are still picked up.
func (s *resultService) SweepResultDeadlines(ctx context.Context, now time.Time) error {
	expired, err := s.matchRepo.ListResultDeadlineExpired(ctx, now)
	if err != nil {
		return err
	}
	for _, stale := range expired {
		if err := s.autoConfirm(ctx, stale.ID, now); err != nil {
			s.logger.Error("auto-confirm failed",
				slog.Int("match_id", stale.ID), slog.Any("error", err))
		}
	}
	return nil
}

func (s *resultService) autoConfirm(ctx context.Context, matchID int, now time.Time) error {
	s.locks.Lock(matchID)
	defer s.locks.Unlock(matchID)

	var events []models.EngineEvent
	err := s.runner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return err
		}
		if match.State != models.MatchStatePendingResult ||
			match.ResultDeadline == nil || match.ResultDeadline.After(now) {
			return nil // resolved between listing and locking
		}

		submissions, err := s.submissionRepo.ListByMatch(ctx, exec, match.ID)
		if err != nil {
			return err
		}
		var lone *models.ResultSubmission
		for _, sub := range submissions {
			if !sub.Confirmed {
				lone = sub
			}
		}
		if lone == nil {
			return fmt.Errorf("match %d reached its result deadline without a submission", match.ID)
		}

		events, err = s.finalize(ctx, exec, match, lone, lone.ID)
		return err
	})
	if err != nil {
		return err
	}

	for _, event := range events {
		s.publisher.Publish(event)
	}
	return nil
}

func (s *resultService) mapVersionConflict(err error) error {
	if errors.Is(err, repositories.ErrMatchVersionConflict) {
		return fmt.Errorf("%w: %v", ErrConcurrentModification, err)
	}
	return err
}
