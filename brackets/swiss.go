package brackets

import (
	"context"
	"sort"

	"github.com/Dosada05/bracket-engine/models"
)

type SwissBuilder struct{}

func NewSwissBuilder() TopologyBuilder {
	return &SwissBuilder{}
}

func (b *SwissBuilder) Name() string {
	return "Swiss"
}

// Build generates only the first swiss round: top half against bottom half
// by seed. Later rounds depend on standings and are paired at runtime with
// PairSwissRound. An odd field gives the bottom seed a round-1 bye
// (Seed2 nil).
func (b *SwissBuilder) Build(ctx context.Context, params GenerateParams) (*Blueprint, error) {
	n := params.ParticipantCount
	if n < 2 {
		return nil, ErrInvalidParticipantCount
	}

	rounds := params.Rounds
	if rounds <= 0 {
		rounds = numRounds(n)
	}

	bp := &Blueprint{Format: models.FormatSwiss, Rounds: rounds}

	half := n / 2
	for i := 1; i <= half; i++ {
		seed2 := i + half
		bp.Pairings = append(bp.Pairings, &Pairing{
			BracketType: models.BracketTypeMain,
			Round:       1,
			Order:       i,
			Seed1:       i,
			Seed2:       &seed2,
		})
	}
	if n%2 != 0 {
		bp.Pairings = append(bp.Pairings, &Pairing{
			BracketType: models.BracketTypeMain,
			Round:       1,
			Order:       half + 1,
			Seed1:       n,
		})
	}

	return bp, nil
}

// SwissEntry is one row of the standings snapshot used for pairing.
type SwissEntry struct {
	ParticipantID   int
	Points          int
	ScoreDifference int
}

// PairSwissRound pairs the next round from current standings: sort by points
// then score difference, pair downwards preferring the nearest opponent not
// yet played. The last unpaired entry of an odd field receives the bye.
// Returns participant ID pairs and the bye recipient, if any.
func PairSwissRound(entries []SwissEntry, played map[[2]int]bool) ([][2]int, *int) {
	sorted := append([]SwissEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Points != sorted[j].Points {
			return sorted[i].Points > sorted[j].Points
		}
		if sorted[i].ScoreDifference != sorted[j].ScoreDifference {
			return sorted[i].ScoreDifference > sorted[j].ScoreDifference
		}
		return sorted[i].ParticipantID < sorted[j].ParticipantID
	})

	used := make([]bool, len(sorted))
	pairs := make([][2]int, 0, len(sorted)/2)

	for i := 0; i < len(sorted); i++ {
		if used[i] {
			continue
		}
		opponent := -1
		for j := i + 1; j < len(sorted); j++ {
			if used[j] {
				continue
			}
			if !played[pairKey(sorted[i].ParticipantID, sorted[j].ParticipantID)] {
				opponent = j
				break
			}
			if opponent < 0 {
				opponent = j // rematch fallback when everyone has met
			}
		}
		if opponent < 0 {
			continue
		}
		used[i] = true
		used[opponent] = true
		pairs = append(pairs, [2]int{sorted[i].ParticipantID, sorted[opponent].ParticipantID})
	}

	for i := len(sorted) - 1; i >= 0; i-- {
		if !used[i] {
			bye := sorted[i].ParticipantID
			return pairs, &bye
		}
	}
	return pairs, nil
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// PairKey is the exported form used by callers recording played pairs.
func PairKey(a, b int) [2]int {
	return pairKey(a, b)
}
