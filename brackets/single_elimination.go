package brackets

import (
	"context"

	"github.com/Dosada05/bracket-engine/models"
)

type SingleEliminationBuilder struct{}

func NewSingleEliminationBuilder() TopologyBuilder {
	return &SingleEliminationBuilder{}
}

func (b *SingleEliminationBuilder) Name() string {
	return "SingleElimination"
}

// Build produces a single-elimination tree for n participants: round 1 holds
// bracketSize/2 leaves paired by the seed table, each later round halves the
// node count down to the root. Seeds above n leave byes on the top seeds.
func (b *SingleEliminationBuilder) Build(ctx context.Context, params GenerateParams) (*Blueprint, error) {
	n := params.ParticipantCount
	if n < 2 {
		return nil, ErrInvalidParticipantCount
	}

	rounds := numRounds(n)
	size := 1 << uint(rounds)

	bp := &Blueprint{
		Format:      models.FormatSingleElimination,
		Rounds:      rounds,
		BracketSize: size,
	}
	byRound := buildMainTree(bp, n, size, rounds)

	if params.ThirdPlaceMatch && rounds >= 2 {
		third := &BlueprintNode{
			Index:       len(bp.Nodes),
			BracketType: models.BracketTypeThirdPlace,
			Round:       rounds,
			Position:    1,
		}
		bp.Nodes = append(bp.Nodes, third)
		for slot, semi := range byRound[rounds-1] {
			idx := third.Index
			bp.Nodes[semi].LoserTarget = &idx
			bp.Nodes[semi].LoserSlot = slot + 1
		}
	}

	return bp, nil
}
