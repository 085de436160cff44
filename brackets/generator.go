package brackets

import (
	"context"
	"errors"

	"github.com/Dosada05/bracket-engine/models"
)

// Builder input errors. These are validation failures the caller has to fix,
// never retried automatically.
var (
	ErrInvalidParticipantCount  = errors.New("bracket requires at least 2 participants")
	ErrUnsupportedFormat        = errors.New("unsupported bracket format")
	ErrIncompleteManualSeeding  = errors.New("manual seeding must map every seed 1..n to a distinct participant")
	ErrUnsupportedSeedingMethod = errors.New("unsupported seeding method")
)

// GenerateParams carries everything a topology builder needs. Builders are
// pure: no I/O, safe to call repeatedly for previews.
type GenerateParams struct {
	TournamentID     int
	ParticipantCount int

	// GrandFinalReset enables the bracket-reset match when the losers-bracket
	// finalist takes game one of the grand final (double elimination only).
	GrandFinalReset bool

	// ThirdPlaceMatch adds a third-place node fed by the semifinal losers
	// (single elimination only).
	ThirdPlaceMatch bool

	// Legs is 1 for a single round robin, 2 for a double (default 1).
	Legs int

	// Groups is the number of group-stage sub-brackets (0 picks a default).
	Groups int

	// Rounds overrides the swiss round count (0 derives ceil(log2(n))).
	Rounds int
}

type TopologyBuilder interface {
	Build(ctx context.Context, params GenerateParams) (*Blueprint, error)

	Name() string
}

// BuilderFor selects the builder for a format once at generation time. The
// resulting blueprint is format-agnostic afterwards.
func BuilderFor(format models.BracketFormat) (TopologyBuilder, error) {
	switch format {
	case models.FormatSingleElimination:
		return NewSingleEliminationBuilder(), nil
	case models.FormatDoubleElimination:
		return NewDoubleEliminationBuilder(), nil
	case models.FormatRoundRobin:
		return NewRoundRobinBuilder(), nil
	case models.FormatSwiss:
		return NewSwissBuilder(), nil
	case models.FormatGroupStage:
		return NewGroupStageBuilder(), nil
	}
	return nil, ErrUnsupportedFormat
}
