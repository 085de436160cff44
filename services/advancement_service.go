package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
)

// AdvancementService routes a finished match's outcome through the bracket.
// Propagate runs inside the caller's transaction and is idempotent: guarded
// slot writes make a replayed call a no-op, a conflicting one an error.
type AdvancementService interface {
	Propagate(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) ([]models.EngineEvent, error)
}

type advancementService struct {
	tournamentRepo repositories.TournamentRepository
	bracketRepo    repositories.BracketRepository
	nodeRepo       repositories.NodeRepository
	matchRepo      repositories.MatchRepository
	standingRepo   repositories.StandingRepository
	policy         EnginePolicy
	logger         *slog.Logger
}

func NewAdvancementService(
	tournamentRepo repositories.TournamentRepository,
	bracketRepo repositories.BracketRepository,
	nodeRepo repositories.NodeRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.StandingRepository,
	policy EnginePolicy,
	logger *slog.Logger,
) AdvancementService {
	return &advancementService{
		tournamentRepo: tournamentRepo,
		bracketRepo:    bracketRepo,
		nodeRepo:       nodeRepo,
		matchRepo:      matchRepo,
		standingRepo:   standingRepo,
		policy:         policy,
		logger:         logger,
	}
}

func (s *advancementService) Propagate(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) ([]models.EngineEvent, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, exec, match.TournamentID)
	if err != nil {
		return nil, err
	}
	if match.NodeID != nil {
		if match.WinnerParticipantID == nil {
			return nil, fmt.Errorf("%w: cannot propagate an elimination match without a winner", ErrValidationFailed)
		}
		return s.propagateTree(ctx, exec, tournament, match)
	}
	return s.propagateStandings(ctx, exec, tournament, match)
}

// propagateTree moves the winner up the tree and the loser across to the
// losers bracket, materializing matches as pairings complete. The champion
// is crowned only from the main bracket's terminal node, never from the
// third-place match.
func (s *advancementService) propagateTree(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	match *models.Match,
) ([]models.EngineEvent, error) {
	node, err := s.nodeRepo.GetByID(ctx, exec, *match.NodeID)
	if err != nil {
		return nil, err
	}
	winner := *match.WinnerParticipantID

	if err := s.nodeRepo.SetWinner(ctx, exec, node.ID, winner); err != nil {
		return nil, s.mapSlotConflict(err)
	}

	events := []models.EngineEvent{{
		Type:         models.EventBracketAdvanced,
		TournamentID: tournament.ID,
		Payload: map[string]interface{}{
			"match_id":  match.ID,
			"node_id":   node.ID,
			"winner_id": winner,
		},
	}}

	switch node.Kind {
	case models.NodeKindGrandFinal:
		bracketReset := node.Slot2ParticipantID != nil && *node.Slot2ParticipantID == winner
		if bracketReset {
			resetEvents, handled, err := s.triggerBracketReset(ctx, exec, tournament, node, winner)
			if err != nil {
				return nil, err
			}
			if handled {
				return append(events, resetEvents...), nil
			}
		}
		return s.crownChampion(ctx, exec, tournament, winner, events)

	case models.NodeKindGrandFinalReset:
		return s.crownChampion(ctx, exec, tournament, winner, events)
	}

	if node.ParentNodeID != nil {
		if err := s.advanceInto(ctx, exec, tournament, node.BracketID, *node.ParentNodeID, *node.ParentSlot, winner); err != nil {
			return nil, err
		}
	} else if node.BracketType == models.BracketTypeMain {
		// Single-elimination final: the main root has no parent.
		return s.crownChampion(ctx, exec, tournament, winner, events)
	}

	if match.LoserParticipantID != nil && node.LoserNodeID != nil {
		if err := s.advanceInto(ctx, exec, tournament, node.BracketID, *node.LoserNodeID, *node.LoserSlot, *match.LoserParticipantID); err != nil {
			return nil, err
		}
	}
	return events, nil
}

// advanceInto drops a participant into a node slot and follows the
// consequences: bye nodes pass the arrival straight through, complete
// pairings get a match.
func (s *advancementService) advanceInto(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	bracketID, nodeID, slot, participantID int,
) error {
	if err := s.nodeRepo.SetSlot(ctx, exec, nodeID, slot, participantID); err != nil {
		return s.mapSlotConflict(err)
	}
	node, err := s.nodeRepo.GetByID(ctx, exec, nodeID)
	if err != nil {
		return err
	}

	if node.IsBye {
		// One feeder is structurally absent, the arrival wins the node.
		if err := s.nodeRepo.SetWinner(ctx, exec, node.ID, participantID); err != nil {
			return s.mapSlotConflict(err)
		}
		if node.ParentNodeID != nil {
			return s.advanceInto(ctx, exec, tournament, bracketID, *node.ParentNodeID, *node.ParentSlot, participantID)
		}
		return nil
	}

	if node.Occupied() && node.MatchID == nil && node.Kind != models.NodeKindGrandFinalReset {
		if _, err := materializeNodeMatch(ctx, exec, s.matchRepo, s.nodeRepo, tournament, bracketID, node, s.policy); err != nil {
			return err
		}
	}
	return nil
}

// triggerBracketReset materializes the second grand final after a
// losers-bracket finalist takes game one. Returns handled=false when the
// bracket was built without a reset node.
func (s *advancementService) triggerBracketReset(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	grandFinal *models.BracketNode,
	winner int,
) ([]models.EngineEvent, bool, error) {
	reset, err := s.nodeRepo.GetByKind(ctx, exec, grandFinal.BracketID, models.NodeKindGrandFinalReset)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNodeNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	upper := grandFinal.Slot1ParticipantID
	if upper == nil {
		return nil, false, fmt.Errorf("grand final node %d has no upper-bracket finalist", grandFinal.ID)
	}
	if err := s.nodeRepo.SetSlot(ctx, exec, reset.ID, 1, *upper); err != nil {
		return nil, false, s.mapSlotConflict(err)
	}
	if err := s.nodeRepo.SetSlot(ctx, exec, reset.ID, 2, winner); err != nil {
		return nil, false, s.mapSlotConflict(err)
	}
	reset.Slot1ParticipantID = upper
	reset.Slot2ParticipantID = intPtr(winner)
	if _, err := materializeNodeMatch(ctx, exec, s.matchRepo, s.nodeRepo, tournament, reset.BracketID, reset, s.policy); err != nil {
		return nil, false, err
	}

	s.logger.Info("grand final reset triggered",
		slog.Int("tournament_id", tournament.ID), slog.Int("winner_id", winner))
	return nil, true, nil
}

func (s *advancementService) crownChampion(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	championID int,
	events []models.EngineEvent,
) ([]models.EngineEvent, error) {
	if err := s.tournamentRepo.SetChampion(ctx, exec, tournament.ID, championID); err != nil {
		return nil, err
	}
	s.logger.Info("tournament concluded",
		slog.Int("tournament_id", tournament.ID), slog.Int("champion_id", championID))
	return append(events, models.EngineEvent{
		Type:         models.EventTournamentConcluded,
		TournamentID: tournament.ID,
		Payload:      map[string]interface{}{"champion_id": championID},
	}), nil
}

// propagateStandings folds the result into both participants' standings and,
// once the round is fully played, either pairs the next swiss round or
// concludes the tournament with the table leader as champion.
func (s *advancementService) propagateStandings(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	match *models.Match,
) ([]models.EngineEvent, error) {
	if err := s.recordStanding(ctx, exec, tournament.ID, match.Participant1ID, match.Score1, match.Score2, match.WinnerParticipantID); err != nil {
		return nil, err
	}
	if err := s.recordStanding(ctx, exec, tournament.ID, match.Participant2ID, match.Score2, match.Score1, match.WinnerParticipantID); err != nil {
		return nil, err
	}

	events := []models.EngineEvent{{
		Type:         models.EventBracketAdvanced,
		TournamentID: tournament.ID,
		Payload: map[string]interface{}{
			"match_id":  match.ID,
			"winner_id": match.WinnerParticipantID,
		},
	}}

	unfinished, err := s.matchRepo.CountUnfinishedByTournament(ctx, exec, tournament.ID)
	if err != nil {
		return nil, err
	}
	if unfinished > 0 {
		return events, nil
	}

	if tournament.Format == models.FormatSwiss && match.BracketID != nil {
		bracket, err := s.bracketRepo.GetByID(ctx, *match.BracketID)
		if err != nil {
			return nil, err
		}
		if match.Round < bracket.Rounds {
			paired, err := s.pairNextSwissRound(ctx, exec, tournament, bracket, match.Round+1)
			if err != nil {
				return nil, err
			}
			if paired {
				return events, nil
			}
		}
	}

	standings, err := s.standingRepo.ListByTournament(ctx, exec, tournament.ID, true)
	if err != nil {
		return nil, err
	}
	if len(standings) == 0 {
		return events, nil
	}
	return s.crownChampion(ctx, exec, tournament, standings[0].ParticipantID, events)
}

func (s *advancementService) recordStanding(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournamentID int,
	participantID *int,
	scoreFor, scoreAgainst int,
	winnerID *int,
) error {
	if participantID == nil {
		return nil
	}
	standing, err := s.standingRepo.GetOrCreate(ctx, exec, tournamentID, *participantID)
	if err != nil {
		return err
	}
	standing.RecordResult(scoreFor, scoreAgainst, winnerID)
	return s.standingRepo.Update(ctx, exec, standing)
}

// pairNextSwissRound creates the next round's matches from current
// standings, avoiding rematches. Returns false when pairing produced no
// matches, which concludes the tournament early.
func (s *advancementService) pairNextSwissRound(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	bracket *models.Bracket,
	round int,
) (bool, error) {
	standings, err := s.standingRepo.ListByTournament(ctx, exec, tournament.ID, false)
	if err != nil {
		return false, err
	}
	entries := make([]brackets.SwissEntry, 0, len(standings))
	for _, st := range standings {
		entries = append(entries, brackets.SwissEntry{
			ParticipantID:   st.ParticipantID,
			Points:          st.Points,
			ScoreDifference: st.ScoreDifference,
		})
	}

	history, err := s.matchRepo.ListByBracket(ctx, exec, bracket.ID)
	if err != nil {
		return false, err
	}
	played := make(map[[2]int]bool, len(history))
	for _, m := range history {
		if m.Participant1ID != nil && m.Participant2ID != nil {
			played[brackets.PairKey(*m.Participant1ID, *m.Participant2ID)] = true
		}
	}

	pairs, bye := brackets.PairSwissRound(entries, played)
	if bye != nil {
		standing, err := s.standingRepo.GetOrCreate(ctx, exec, tournament.ID, *bye)
		if err != nil {
			return false, err
		}
		standing.RecordResult(0, 0, bye)
		if err := s.standingRepo.Update(ctx, exec, standing); err != nil {
			return false, err
		}
	}
	if len(pairs) == 0 {
		return false, nil
	}

	scheduledAt := time.Now().Add(s.policy.CheckInDuration)
	for i, pair := range pairs {
		m := &models.Match{
			TournamentID:    tournament.ID,
			BracketID:       intPtr(bracket.ID),
			Round:           round,
			MatchNumber:     i + 1,
			Participant1ID:  intPtr(pair[0]),
			Participant2ID:  intPtr(pair[1]),
			State:           models.MatchStateScheduled,
			ScheduledAt:     scheduledAt,
			CheckInOpensAt:  time.Now(),
			CheckInClosesAt: scheduledAt,
		}
		if err := s.matchRepo.Create(ctx, exec, m); err != nil {
			return false, err
		}
	}

	s.logger.Info("swiss round paired",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("round", round),
		slog.Int("matches", len(pairs)))
	return true, nil
}

func (s *advancementService) mapSlotConflict(err error) error {
	if errors.Is(err, repositories.ErrNodeSlotConflict) {
		return fmt.Errorf("%w: %v", ErrConcurrentModification, err)
	}
	return err
}
