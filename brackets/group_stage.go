package brackets

import (
	"context"

	"github.com/Dosada05/bracket-engine/models"
)

const defaultGroupSize = 4

type GroupStageBuilder struct{}

func NewGroupStageBuilder() TopologyBuilder {
	return &GroupStageBuilder{}
}

func (b *GroupStageBuilder) Name() string {
	return "GroupStage"
}

// Build splits the field into groups by snake order (1..g, then g..1, so
// seed strength balances out) and schedules a round robin inside each group.
// Each group is its own sub-bracket, tagged group_<n>.
func (b *GroupStageBuilder) Build(ctx context.Context, params GenerateParams) (*Blueprint, error) {
	n := params.ParticipantCount
	if n < 2 {
		return nil, ErrInvalidParticipantCount
	}

	groups := params.Groups
	if groups <= 0 {
		groups = (n + defaultGroupSize - 1) / defaultGroupSize
	}
	if groups > n/2 {
		groups = n / 2 // every group needs at least two members
	}
	if groups < 1 {
		groups = 1
	}

	members := make([][]int, groups)
	direction := 1
	g := 0
	for seed := 1; seed <= n; seed++ {
		members[g] = append(members[g], seed)
		g += direction
		if g == groups || g < 0 {
			direction = -direction
			g += direction
		}
	}

	bp := &Blueprint{Format: models.FormatGroupStage}
	for i, groupSeeds := range members {
		tag := models.GroupBracketType(i + 1)
		schedule := circleSchedule(tag, len(groupSeeds), 1, 1)
		for _, p := range schedule {
			// circleSchedule pairs group-local seeds; translate back to the
			// tournament-wide seed numbers.
			p.Seed1 = groupSeeds[p.Seed1-1]
			if p.Seed2 != nil {
				global := groupSeeds[*p.Seed2-1]
				p.Seed2 = &global
			}
			if p.Round > bp.Rounds {
				bp.Rounds = p.Round
			}
			bp.Pairings = append(bp.Pairings, p)
		}
	}

	return bp, nil
}
