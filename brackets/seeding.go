package brackets

import (
	"math/rand"
	"sort"

	"github.com/Dosada05/bracket-engine/models"
)

// SeedingInput carries the participant list and the chosen method.
// Participants must be in registration order.
type SeedingInput struct {
	Method       models.SeedingMethod
	TournamentID int
	Participants []*models.Participant

	// Manual maps seed number (1..n) to participant ID, required for the
	// manual method and ignored otherwise.
	Manual map[int]int
}

// AssignSeeds returns participant IDs in seed order: index 0 holds seed 1.
// Every method is deterministic for fixed input, so regenerating a bracket
// reproduces the identical tree.
func AssignSeeds(in SeedingInput) ([]int, error) {
	n := len(in.Participants)
	if n < 2 {
		return nil, ErrInvalidParticipantCount
	}

	switch in.Method {
	case models.SeedingSlotOrder, "":
		seeded := make([]int, n)
		for i, p := range in.Participants {
			seeded[i] = p.ID
		}
		return seeded, nil

	case models.SeedingRandom:
		seeded := make([]int, n)
		for i, p := range in.Participants {
			seeded[i] = p.ID
		}
		// Seeded with the tournament ID so a rebuild is reproducible for
		// audit.
		rng := rand.New(rand.NewSource(int64(in.TournamentID)))
		rng.Shuffle(n, func(i, j int) {
			seeded[i], seeded[j] = seeded[j], seeded[i]
		})
		return seeded, nil

	case models.SeedingRanked:
		ranked := append([]*models.Participant(nil), in.Participants...)
		sort.SliceStable(ranked, func(i, j int) bool {
			ri, rj := rankScore(ranked[i]), rankScore(ranked[j])
			if ri != rj {
				return ri > rj
			}
			// Ties break on registration time, earlier wins.
			if !ranked[i].RegisteredAt.Equal(ranked[j].RegisteredAt) {
				return ranked[i].RegisteredAt.Before(ranked[j].RegisteredAt)
			}
			return ranked[i].ID < ranked[j].ID
		})
		seeded := make([]int, n)
		for i, p := range ranked {
			seeded[i] = p.ID
		}
		return seeded, nil

	case models.SeedingManual:
		if len(in.Manual) != n {
			return nil, ErrIncompleteManualSeeding
		}
		known := make(map[int]bool, n)
		for _, p := range in.Participants {
			known[p.ID] = true
		}
		seeded := make([]int, n)
		assigned := make(map[int]bool, n)
		for seed := 1; seed <= n; seed++ {
			id, ok := in.Manual[seed]
			if !ok || !known[id] || assigned[id] {
				return nil, ErrIncompleteManualSeeding
			}
			assigned[id] = true
			seeded[seed-1] = id
		}
		return seeded, nil
	}

	return nil, ErrUnsupportedSeedingMethod
}

func rankScore(p *models.Participant) int {
	if p.RankScore == nil {
		return 0
	}
	return *p.RankScore
}
