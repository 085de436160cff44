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

// ResolveDisputeInput is the organizer's ruling on a disputed match. A nil
// WinnerID declares a draw, which only standings formats accept.
type ResolveDisputeInput struct {
	DisputeID  int
	WinnerID   *int
	Score1     *int
	Score2     *int
	Resolution string
}

// DisputeService handles the escalation path of conflicting submissions.
// Every resolution names an outcome: a disputed match never un-disputes
// itself, and dismissing the dispute without ruling would strand the
// bracket.
type DisputeService interface {
	GetDispute(ctx context.Context, disputeID int) (*models.Dispute, error)
	ListTournamentDisputes(ctx context.Context, tournamentID int) ([]*models.Dispute, error)
	MarkUnderReview(ctx context.Context, disputeID int) (*models.Dispute, error)
	ResolveDispute(ctx context.Context, input ResolveDisputeInput) (*models.Dispute, error)
}

type disputeService struct {
	runner         repositories.TxRunner
	disputeRepo    repositories.DisputeRepository
	matchRepo      repositories.MatchRepository
	submissionRepo repositories.SubmissionRepository
	advancement    AdvancementService
	publisher      EventPublisher
	locks          *keyedMutex
	logger         *slog.Logger
}

func NewDisputeService(
	runner repositories.TxRunner,
	disputeRepo repositories.DisputeRepository,
	matchRepo repositories.MatchRepository,
	submissionRepo repositories.SubmissionRepository,
	advancement AdvancementService,
	publisher EventPublisher,
	logger *slog.Logger,
) DisputeService {
	return &disputeService{
		runner:         runner,
		disputeRepo:    disputeRepo,
		matchRepo:      matchRepo,
		submissionRepo: submissionRepo,
		advancement:    advancement,
		publisher:      publisher,
		locks:          matchLocks,
		logger:         logger,
	}
}

func (s *disputeService) GetDispute(ctx context.Context, disputeID int) (*models.Dispute, error) {
	dispute, err := s.disputeRepo.GetByID(ctx, nil, disputeID)
	if err != nil {
		if errors.Is(err, repositories.ErrDisputeNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return dispute, nil
}

func (s *disputeService) ListTournamentDisputes(ctx context.Context, tournamentID int) ([]*models.Dispute, error) {
	return s.disputeRepo.ListByTournament(ctx, tournamentID)
}

func (s *disputeService) MarkUnderReview(ctx context.Context, disputeID int) (*models.Dispute, error) {
	var dispute *models.Dispute
	err := s.runner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		dispute, err = s.disputeRepo.GetByID(ctx, exec, disputeID)
		if err != nil {
			if errors.Is(err, repositories.ErrDisputeNotFound) {
				return ErrNotFound
			}
			return err
		}
		if dispute.Status.Terminal() {
			return ErrDisputeAlreadyClosed
		}
		if dispute.Status == models.DisputeStatusUnderReview {
			return nil
		}
		if err := s.disputeRepo.UpdateStatus(ctx, exec, dispute.ID, models.DisputeStatusUnderReview); err != nil {
			return err
		}
		dispute.Status = models.DisputeStatusUnderReview
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

// ResolveDispute records the organizer's ruling, completes the match with
// the ruled outcome, and advances the bracket. A submission matching the
// ruling lends its scores; otherwise the explicit scores from the input are
// used.
func (s *disputeService) ResolveDispute(ctx context.Context, input ResolveDisputeInput) (*models.Dispute, error) {
	// Resolve the match key before opening the transaction so the lock is
	// held across commit, the same way SubmitResult holds it.
	peek, err := s.disputeRepo.GetByID(ctx, nil, input.DisputeID)
	if err != nil {
		if errors.Is(err, repositories.ErrDisputeNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.locks.Lock(peek.MatchID)
	defer s.locks.Unlock(peek.MatchID)

	var (
		dispute *models.Dispute
		events  []models.EngineEvent
	)
	err = s.runner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		dispute, err = s.disputeRepo.GetByID(ctx, exec, input.DisputeID)
		if err != nil {
			if errors.Is(err, repositories.ErrDisputeNotFound) {
				return ErrNotFound
			}
			return err
		}
		if dispute.Status.Terminal() {
			return ErrDisputeAlreadyClosed
		}

		match, err := s.matchRepo.GetByID(ctx, exec, dispute.MatchID)
		if err != nil {
			return err
		}
		if match.State != models.MatchStateDisputed {
			return ErrMatchNotDisputed
		}

		if input.WinnerID != nil && match.SideOf(*input.WinnerID) == 0 {
			return ErrWinnerNotInMatch
		}
		if input.WinnerID == nil && match.NodeID != nil {
			return ErrDrawNotAllowed
		}

		score1, score2, confirmID := s.ruledScores(ctx, exec, match, input)

		match.Score1 = score1
		match.Score2 = score2
		match.WinnerParticipantID = input.WinnerID
		match.LoserParticipantID = nil
		if input.WinnerID != nil {
			match.LoserParticipantID = match.ParticipantOnSide(3 - match.SideOf(*input.WinnerID))
		}
		match.State = models.MatchStateCompleted
		if err := s.matchRepo.RecordResult(ctx, exec, match); err != nil {
			if errors.Is(err, repositories.ErrMatchVersionConflict) {
				return fmt.Errorf("%w: %v", ErrConcurrentModification, err)
			}
			return err
		}
		if confirmID != nil {
			if err := s.submissionRepo.MarkConfirmed(ctx, exec, *confirmID); err != nil {
				return err
			}
		}

		now := time.Now()
		dispute.Status = models.DisputeStatusResolved
		dispute.Resolution = &input.Resolution
		dispute.ResolvedWinnerID = input.WinnerID
		dispute.ResolvedAt = &now
		if err := s.disputeRepo.Resolve(ctx, exec, dispute); err != nil {
			return err
		}

		events = []models.EngineEvent{{
			Type:         models.EventMatchCompleted,
			TournamentID: match.TournamentID,
			Payload: map[string]interface{}{
				"match_id":   match.ID,
				"dispute_id": dispute.ID,
				"winner_id":  match.WinnerParticipantID,
			},
		}}
		advanced, err := s.advancement.Propagate(ctx, exec, match)
		if err != nil {
			return err
		}
		events = append(events, advanced...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("dispute resolved",
		slog.Int("dispute_id", dispute.ID), slog.Int("match_id", dispute.MatchID))
	for _, event := range events {
		s.publisher.Publish(event)
	}
	return dispute, nil
}

// ruledScores picks the scores for the ruled outcome: explicit input scores
// win, then the scores of a submission claiming the same winner.
func (s *disputeService) ruledScores(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, input ResolveDisputeInput) (int, int, *int) {
	if input.Score1 != nil && input.Score2 != nil {
		return *input.Score1, *input.Score2, nil
	}
	submissions, err := s.submissionRepo.ListByMatch(ctx, exec, match.ID)
	if err != nil {
		s.logger.Warn("failed to load submissions for ruling",
			slog.Int("match_id", match.ID), slog.Any("error", err))
		return 0, 0, nil
	}
	for _, sub := range submissions {
		if sub.Confirmed {
			continue
		}
		sameWinner := (sub.ClaimedWinnerID == nil && input.WinnerID == nil) ||
			(sub.ClaimedWinnerID != nil && input.WinnerID != nil && *sub.ClaimedWinnerID == *input.WinnerID)
		if sameWinner {
			return sub.Score1, sub.Score2, intPtr(sub.ID)
		}
	}
	return 0, 0, nil
}
