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
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BuildBracketParams is the hand-off from the registration service:
// everything the engine needs to generate and commit one bracket.
type BuildBracketParams struct {
	Tournament   *models.Tournament
	Participants []*models.Participant

	// ManualSeeds maps seed number to participant ID, required for the
	// manual seeding method.
	ManualSeeds map[int]int
}

// BracketView is a read-only snapshot of one bracket and everything hanging
// off it.
type BracketView struct {
	Bracket    *models.Bracket              `json:"bracket"`
	Tournament *models.Tournament           `json:"tournament"`
	Nodes      []*models.BracketNode        `json:"nodes"`
	Matches    []*models.Match              `json:"matches"`
	Standings  []*models.TournamentStanding `json:"standings,omitempty"`
}

type BracketService interface {
	BuildBracket(ctx context.Context, params BuildBracketParams) (int, error)
	GetBracketView(ctx context.Context, bracketID int) (*BracketView, error)
	GetTournamentBracketView(ctx context.Context, tournamentID int) (*BracketView, error)
	ListStandings(ctx context.Context, tournamentID int) ([]*models.TournamentStanding, error)
}

type bracketService struct {
	runner          repositories.TxRunner
	leaseRepo       repositories.LeaseRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	bracketRepo     repositories.BracketRepository
	nodeRepo        repositories.NodeRepository
	matchRepo       repositories.MatchRepository
	standingRepo    repositories.StandingRepository
	policy          EnginePolicy
	logger          *slog.Logger
}

func NewBracketService(
	runner repositories.TxRunner,
	leaseRepo repositories.LeaseRepository,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	bracketRepo repositories.BracketRepository,
	nodeRepo repositories.NodeRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.StandingRepository,
	policy EnginePolicy,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		runner:          runner,
		leaseRepo:       leaseRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		bracketRepo:     bracketRepo,
		nodeRepo:        nodeRepo,
		matchRepo:       matchRepo,
		standingRepo:    standingRepo,
		policy:          policy,
		logger:          logger,
	}
}

// BuildBracket generates and commits a bracket for the tournament in one
// atomic transaction, guarded by a tournament-scoped lease so at most one
// generation runs at a time. A busy lease fails fast with
// ErrGenerationInProgress. Rebuilding invalidates the previous node set
// wholesale.
func (s *bracketService) BuildBracket(ctx context.Context, params BuildBracketParams) (int, error) {
	tournament := params.Tournament
	if tournament == nil {
		return 0, fmt.Errorf("%w: tournament is required", ErrValidationFailed)
	}
	if !tournament.Format.Valid() {
		return 0, brackets.ErrUnsupportedFormat
	}
	if len(params.Participants) < 2 {
		return 0, brackets.ErrInvalidParticipantCount
	}

	holder := uuid.NewString()
	acquired, err := s.leaseRepo.Acquire(ctx, tournament.ID, holder, s.policy.GenerationLeaseTTL)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire generation lease: %w", err)
	}
	if !acquired {
		return 0, ErrGenerationInProgress
	}
	defer func() {
		if releaseErr := s.leaseRepo.Release(context.Background(), tournament.ID, holder); releaseErr != nil {
			s.logger.Error("failed to release generation lease",
				slog.Int("tournament_id", tournament.ID), slog.Any("error", releaseErr))
		}
	}()

	seeded, err := brackets.AssignSeeds(brackets.SeedingInput{
		Method:       tournament.SeedingMethod,
		TournamentID: tournament.ID,
		Participants: params.Participants,
		Manual:       params.ManualSeeds,
	})
	if err != nil {
		return 0, err
	}

	builder, err := brackets.BuilderFor(tournament.Format)
	if err != nil {
		return 0, err
	}
	blueprint, err := builder.Build(ctx, brackets.GenerateParams{
		TournamentID:     tournament.ID,
		ParticipantCount: len(params.Participants),
		GrandFinalReset:  s.policy.GrandFinalReset,
		ThirdPlaceMatch:  s.policy.ThirdPlaceMatch,
		Legs:             s.policy.RoundRobinLegs,
		Groups:           s.policy.GroupCount,
		Rounds:           s.policy.SwissRounds,
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("bracket blueprint generated",
		slog.Int("tournament_id", tournament.ID),
		slog.String("builder", builder.Name()),
		slog.Int("participants", len(params.Participants)),
		slog.Int("nodes", len(blueprint.Nodes)),
		slog.Int("pairings", len(blueprint.Pairings)))

	var bracketID int
	err = s.runner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.Upsert(ctx, exec, tournament); err != nil {
			return err
		}
		if err := s.participantRepo.ReplaceForTournament(ctx, exec, tournament.ID, params.Participants); err != nil {
			return err
		}
		if err := s.bracketRepo.InvalidateByTournament(ctx, exec, tournament.ID); err != nil {
			return err
		}
		if err := s.standingRepo.DeleteByTournament(ctx, exec, tournament.ID); err != nil {
			return err
		}

		bracket := &models.Bracket{
			TournamentID: tournament.ID,
			Format:       tournament.Format,
			Rounds:       blueprint.Rounds,
		}
		if err := s.bracketRepo.Create(ctx, exec, bracket); err != nil {
			return err
		}
		bracketID = bracket.ID

		if tournament.Format.UsesTree() {
			return s.persistTree(ctx, exec, tournament, bracket, blueprint, seeded)
		}
		return s.persistPairings(ctx, exec, tournament, bracket, blueprint, seeded)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("bracket committed",
		slog.Int("tournament_id", tournament.ID), slog.Int("bracket_id", bracketID))
	return bracketID, nil
}

// persistTree maps blueprint seeds to participants, advances byes in memory
// (a chain of byes can cross several rounds before a real match exists), and
// writes nodes in two passes: rows first, navigation links once all IDs are
// known.
func (s *bracketService) persistTree(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	bracket *models.Bracket,
	blueprint *brackets.Blueprint,
	seeded []int,
) error {
	nodes := make([]*models.BracketNode, len(blueprint.Nodes))
	for i, bn := range blueprint.Nodes {
		node := &models.BracketNode{
			BracketID:   bracket.ID,
			BracketType: bn.BracketType,
			Kind:        bn.Kind,
			Round:       bn.Round,
			Position:    bn.Position,
			IsBye:       bn.IsBye,
		}
		if bn.Slot1Seed != nil {
			node.Slot1ParticipantID = intPtr(seeded[*bn.Slot1Seed-1])
		}
		if bn.Slot2Seed != nil {
			node.Slot2ParticipantID = intPtr(seeded[*bn.Slot2Seed-1])
		}
		nodes[i] = node
	}

	// In-memory bye advancement over blueprint indexes.
	for i, bn := range blueprint.Nodes {
		if !bn.IsBye || bn.BracketType != models.BracketTypeMain {
			continue
		}
		s.advanceByeInMemory(blueprint, nodes, i)
	}

	for _, node := range nodes {
		if err := s.nodeRepo.Create(ctx, exec, node); err != nil {
			return err
		}
		if node.WinnerParticipantID != nil {
			if err := s.nodeRepo.SetWinner(ctx, exec, node.ID, *node.WinnerParticipantID); err != nil {
				return err
			}
		}
	}
	for i, bn := range blueprint.Nodes {
		node := nodes[i]
		if bn.Parent != nil {
			node.ParentNodeID = intPtr(nodes[*bn.Parent].ID)
			node.ParentSlot = intPtr(bn.ParentSlot)
		}
		if bn.Child1 != nil {
			node.Child1NodeID = intPtr(nodes[*bn.Child1].ID)
		}
		if bn.Child2 != nil {
			node.Child2NodeID = intPtr(nodes[*bn.Child2].ID)
		}
		if bn.LoserTarget != nil {
			node.LoserNodeID = intPtr(nodes[*bn.LoserTarget].ID)
			node.LoserSlot = intPtr(bn.LoserSlot)
		}
		if err := s.nodeRepo.UpdateLinks(ctx, exec, node); err != nil {
			return err
		}
	}

	// Materialize a match for every node whose pairing is already complete.
	// The reset node never materializes here: it waits on the grand final.
	for _, node := range nodes {
		if node.IsBye || !node.Occupied() || node.Kind == models.NodeKindGrandFinalReset {
			continue
		}
		if _, err := materializeNodeMatch(ctx, exec, s.matchRepo, s.nodeRepo, tournament, bracket.ID, node, s.policy); err != nil {
			return err
		}
	}
	return nil
}

func (s *bracketService) advanceByeInMemory(blueprint *brackets.Blueprint, nodes []*models.BracketNode, idx int) {
	node := nodes[idx]
	occupant := node.Slot1ParticipantID
	if occupant == nil {
		occupant = node.Slot2ParticipantID
	}
	if occupant == nil || node.WinnerParticipantID != nil {
		return
	}
	node.WinnerParticipantID = occupant

	bn := blueprint.Nodes[idx]
	if bn.Parent == nil {
		return
	}
	parent := nodes[*bn.Parent]
	if bn.ParentSlot == 1 {
		parent.Slot1ParticipantID = occupant
	} else {
		parent.Slot2ParticipantID = occupant
	}
	// Losers-bracket holes marked at build time keep the chain moving.
	if parent.IsBye {
		s.advanceByeInMemory(blueprint, nodes, *bn.Parent)
	}
}

// persistPairings writes the flat match list of a standings format and the
// initial standings rows. A sit-out bye (Seed2 nil) is scored immediately as
// a walkover win.
func (s *bracketService) persistPairings(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	bracket *models.Bracket,
	blueprint *brackets.Blueprint,
	seeded []int,
) error {
	for _, pid := range seeded {
		if _, err := s.standingRepo.GetOrCreate(ctx, exec, tournament.ID, pid); err != nil {
			return err
		}
	}

	scheduledAt := tournament.StartDate
	if time.Now().After(scheduledAt) {
		scheduledAt = time.Now().Add(s.policy.CheckInDuration)
	}

	for _, pairing := range blueprint.Pairings {
		p1 := seeded[pairing.Seed1-1]
		if pairing.Seed2 == nil {
			standing, err := s.standingRepo.GetOrCreate(ctx, exec, tournament.ID, p1)
			if err != nil {
				return err
			}
			standing.RecordResult(0, 0, intPtr(p1))
			if err := s.standingRepo.Update(ctx, exec, standing); err != nil {
				return err
			}
			continue
		}
		p2 := seeded[*pairing.Seed2-1]

		match := &models.Match{
			TournamentID:    tournament.ID,
			BracketID:       intPtr(bracket.ID),
			Round:           pairing.Round,
			MatchNumber:     pairing.Order,
			Participant1ID:  intPtr(p1),
			Participant2ID:  intPtr(p2),
			State:           models.MatchStateScheduled,
			ScheduledAt:     scheduledAt,
			CheckInOpensAt:  scheduledAt.Add(-s.policy.CheckInDuration),
			CheckInClosesAt: scheduledAt,
		}
		if err := s.matchRepo.Create(ctx, exec, match); err != nil {
			return err
		}
	}
	return nil
}

// GetBracketView loads a consistent snapshot, fetching the independent
// pieces in parallel.
func (s *bracketService) GetBracketView(ctx context.Context, bracketID int) (*BracketView, error) {
	bracket, err := s.bracketRepo.GetByID(ctx, bracketID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	view := &BracketView{Bracket: bracket}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		nodes, err := s.nodeRepo.ListByBracket(gCtx, nil, bracketID)
		if err != nil {
			return err
		}
		view.Nodes = nodes
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByBracket(gCtx, nil, bracketID)
		if err != nil {
			return err
		}
		view.Matches = matches
		return nil
	})
	g.Go(func() error {
		tournament, err := s.tournamentRepo.GetByID(gCtx, nil, bracket.TournamentID)
		if err != nil {
			return err
		}
		view.Tournament = tournament
		return nil
	})
	g.Go(func() error {
		standings, err := s.standingRepo.ListByTournament(gCtx, nil, bracket.TournamentID, true)
		if err != nil {
			return err
		}
		view.Standings = standings
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to assemble bracket view %d: %w", bracketID, err)
	}
	return view, nil
}

// GetTournamentBracketView resolves the tournament's active (non-invalidated)
// bracket and returns its snapshot.
func (s *bracketService) GetTournamentBracketView(ctx context.Context, tournamentID int) (*BracketView, error) {
	bracket, err := s.bracketRepo.GetActiveByTournament(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.GetBracketView(ctx, bracket.ID)
}

func (s *bracketService) ListStandings(ctx context.Context, tournamentID int) ([]*models.TournamentStanding, error) {
	return s.standingRepo.ListByTournament(ctx, nil, tournamentID, true)
}
