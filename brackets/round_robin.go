package brackets

import (
	"context"

	"github.com/Dosada05/bracket-engine/models"
)

type RoundRobinBuilder struct{}

func NewRoundRobinBuilder() TopologyBuilder {
	return &RoundRobinBuilder{}
}

func (b *RoundRobinBuilder) Name() string {
	return "RoundRobin"
}

// Build generates an all-pairs schedule with the circle method: seed 1 stays
// fixed while the rest rotate, giving n-1 rounds (n rounds for odd n, where
// the dummy opponent marks a sit-out). Legs=2 repeats the schedule with the
// pairings flipped.
func (b *RoundRobinBuilder) Build(ctx context.Context, params GenerateParams) (*Blueprint, error) {
	n := params.ParticipantCount
	if n < 2 {
		return nil, ErrInvalidParticipantCount
	}
	legs := params.Legs
	if legs != 2 {
		legs = 1
	}

	bp := &Blueprint{Format: models.FormatRoundRobin}
	bp.Pairings = circleSchedule(models.BracketTypeMain, n, 1, legs)
	bp.Rounds = bp.Pairings[len(bp.Pairings)-1].Round

	return bp, nil
}

// circleSchedule returns circle-method pairings over seeds 1..n, starting at
// startRound. Seed 0 is the dummy used to pad odd fields; matches against it
// are dropped.
func circleSchedule(bracketType models.BracketType, n, startRound, legs int) []*Pairing {
	seeds := make([]int, 0, n+1)
	for s := 1; s <= n; s++ {
		seeds = append(seeds, s)
	}
	if n%2 != 0 {
		seeds = append(seeds, 0)
	}
	m := len(seeds)
	roundsPerLeg := m - 1
	half := m / 2

	pairings := make([]*Pairing, 0, legs*roundsPerLeg*half)
	for leg := 0; leg < legs; leg++ {
		rotation := append([]int(nil), seeds...)
		for r := 1; r <= roundsPerLeg; r++ {
			round := startRound + leg*roundsPerLeg + r - 1
			order := 0
			for i := 0; i < half; i++ {
				s1 := rotation[i]
				s2 := rotation[m-1-i]
				if s1 == 0 || s2 == 0 {
					continue
				}
				if leg == 1 {
					s1, s2 = s2, s1
				}
				order++
				seed2 := s2
				pairings = append(pairings, &Pairing{
					BracketType: bracketType,
					Round:       round,
					Order:       order,
					Seed1:       s1,
					Seed2:       &seed2,
				})
			}
			// Rotate everyone but the first seat.
			rotation = append([]int{rotation[0], rotation[m-1]}, rotation[1:m-1]...)
		}
	}
	return pairings
}
