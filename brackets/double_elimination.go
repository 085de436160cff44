package brackets

import (
	"context"

	"github.com/Dosada05/bracket-engine/models"
)

type DoubleEliminationBuilder struct{}

func NewDoubleEliminationBuilder() TopologyBuilder {
	return &DoubleEliminationBuilder{}
}

func (b *DoubleEliminationBuilder) Name() string {
	return "DoubleElimination"
}

// Build produces a main bracket plus a losers bracket of 2*(R-1) rounds for
// a main bracket of R rounds. For each stage j, losers rounds 2j-1 (minor)
// and 2j (major) hold size/2^(j+1) nodes each: the minor round pairs
// survivors of the losers bracket, the major round merges in the losers of
// main round j+1. The loser-drop mapping is fixed here at build time; the
// propagator only follows links.
func (b *DoubleEliminationBuilder) Build(ctx context.Context, params GenerateParams) (*Blueprint, error) {
	n := params.ParticipantCount
	if n < 2 {
		return nil, ErrInvalidParticipantCount
	}

	rounds := numRounds(n)
	size := 1 << uint(rounds)

	bp := &Blueprint{
		Format:      models.FormatDoubleElimination,
		Rounds:      rounds,
		BracketSize: size,
	}
	mainByRound := buildMainTree(bp, n, size, rounds)

	var lastMajor []int
	for j := 1; j <= rounds-1; j++ {
		count := size >> uint(j+1)

		minor := make([]int, 0, count)
		for i := 0; i < count; i++ {
			node := &BlueprintNode{
				Index:       len(bp.Nodes),
				BracketType: models.BracketTypeLosers,
				Round:       2*j - 1,
				Position:    i + 1,
			}
			idx := node.Index
			if j == 1 {
				// Round-1 main losers pair up directly.
				f1 := mainByRound[1][2*i]
				f2 := mainByRound[1][2*i+1]
				bp.Nodes[f1].LoserTarget = &idx
				bp.Nodes[f1].LoserSlot = 1
				bp.Nodes[f2].LoserTarget = &idx
				bp.Nodes[f2].LoserSlot = 2
			} else {
				c1 := lastMajor[2*i]
				c2 := lastMajor[2*i+1]
				node.Child1 = &c1
				node.Child2 = &c2
				bp.Nodes[c1].Parent = &idx
				bp.Nodes[c1].ParentSlot = 1
				bp.Nodes[c2].Parent = &idx
				bp.Nodes[c2].ParentSlot = 2
			}
			bp.Nodes = append(bp.Nodes, node)
			minor = append(minor, node.Index)
		}

		major := make([]int, 0, count)
		for i := 0; i < count; i++ {
			node := &BlueprintNode{
				Index:       len(bp.Nodes),
				BracketType: models.BracketTypeLosers,
				Round:       2 * j,
				Position:    i + 1,
			}
			idx := node.Index
			c1 := minor[i]
			node.Child1 = &c1
			bp.Nodes[c1].Parent = &idx
			bp.Nodes[c1].ParentSlot = 1

			// Main round j+1 losers drop in reversed order on odd stages so
			// early rematches are pushed as deep as possible.
			p := i
			if j%2 == 1 {
				p = count - 1 - i
			}
			feeder := mainByRound[j+1][p]
			bp.Nodes[feeder].LoserTarget = &idx
			bp.Nodes[feeder].LoserSlot = 2

			bp.Nodes = append(bp.Nodes, node)
			major = append(major, node.Index)
		}
		lastMajor = major
	}

	markLosersBracketHoles(bp, mainByRound)

	grandFinal := &BlueprintNode{
		Index:       len(bp.Nodes),
		BracketType: models.BracketTypeMain,
		Kind:        models.NodeKindGrandFinal,
		Round:       rounds + 1,
		Position:    1,
	}
	gfIdx := grandFinal.Index
	mainRoot := mainByRound[rounds][0]
	grandFinal.Child1 = &mainRoot
	bp.Nodes[mainRoot].Parent = &gfIdx
	bp.Nodes[mainRoot].ParentSlot = 1
	if len(lastMajor) > 0 {
		lbRoot := lastMajor[0]
		grandFinal.Child2 = &lbRoot
		bp.Nodes[lbRoot].Parent = &gfIdx
		bp.Nodes[lbRoot].ParentSlot = 2
	} else {
		// Two-participant bracket: the only match's loser goes straight to
		// the grand final.
		bp.Nodes[mainRoot].LoserTarget = &gfIdx
		bp.Nodes[mainRoot].LoserSlot = 2
	}
	bp.Nodes = append(bp.Nodes, grandFinal)

	if params.GrandFinalReset {
		// Materialized by the propagator only when the losers-bracket
		// finalist takes the grand final.
		reset := &BlueprintNode{
			Index:       len(bp.Nodes),
			BracketType: models.BracketTypeMain,
			Kind:        models.NodeKindGrandFinalReset,
			Round:       rounds + 2,
			Position:    1,
		}
		bp.Nodes = append(bp.Nodes, reset)
	}

	return bp, nil
}

// markLosersBracketHoles marks losers-bracket nodes whose feeders include
// main-bracket byes. A bye leaf never produces a loser, so the slot it feeds
// stays empty forever: a node with one live feeder becomes a bye itself and
// a node with none is dead, pushing the hole one round up.
func markLosersBracketHoles(bp *Blueprint, mainByRound [][]int) {
	dead := make(map[int]bool)

	for _, node := range bp.Nodes {
		if node.BracketType != models.BracketTypeLosers {
			continue
		}
		live := 0
		if node.Round == 1 {
			for _, main := range bp.Nodes {
				if main.BracketType == models.BracketTypeMain && main.LoserTarget != nil && *main.LoserTarget == node.Index {
					if !main.IsBye {
						live++
					}
				}
			}
		} else if node.Round%2 == 1 {
			// Minor round: both feeders are losers-bracket children.
			if node.Child1 != nil && !dead[*node.Child1] {
				live++
			}
			if node.Child2 != nil && !dead[*node.Child2] {
				live++
			}
		} else {
			// Major round: slot 2 always receives a main-bracket loser,
			// because every non-leaf main node eventually resolves.
			live = 1
			if node.Child1 != nil && !dead[*node.Child1] {
				live++
			}
		}
		switch live {
		case 0:
			dead[node.Index] = true
		case 1:
			node.IsBye = true
		}
	}
}
