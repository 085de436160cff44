package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/models"
)

func nodesOfType(bp *Blueprint, bt models.BracketType) []*BlueprintNode {
	out := make([]*BlueprintNode, 0)
	for _, n := range bp.Nodes {
		if n.BracketType == bt {
			out = append(out, n)
		}
	}
	return out
}

func nodeOfKind(bp *Blueprint, kind models.NodeKind) *BlueprintNode {
	for _, n := range bp.Nodes {
		if n.Kind == kind {
			return n
		}
	}
	return nil
}

func TestDoubleEliminationFourParticipants(t *testing.T) {
	bp, err := NewDoubleEliminationBuilder().Build(context.Background(), GenerateParams{
		ParticipantCount: 4,
		GrandFinalReset:  true,
	})
	require.NoError(t, err)

	// 3 main nodes, minor + major losers rounds, grand final, reset.
	require.Len(t, bp.Nodes, 7)
	assert.Len(t, nodesOfType(bp, models.BracketTypeLosers), 2)

	grandFinal := nodeOfKind(bp, models.NodeKindGrandFinal)
	require.NotNil(t, grandFinal)
	assert.Equal(t, bp.Rounds+1, grandFinal.Round)
	require.NotNil(t, grandFinal.Child1)
	require.NotNil(t, grandFinal.Child2)
	assert.Equal(t, models.BracketTypeMain, bp.Nodes[*grandFinal.Child1].BracketType)
	assert.Equal(t, models.BracketTypeLosers, bp.Nodes[*grandFinal.Child2].BracketType)

	reset := nodeOfKind(bp, models.NodeKindGrandFinalReset)
	require.NotNil(t, reset)
	assert.Nil(t, reset.Parent)
	assert.Nil(t, reset.Child1)

	// Every main node drops its loser somewhere in the losers bracket.
	for _, node := range nodesOfType(bp, models.BracketTypeMain) {
		if node.Kind != models.NodeKindRegular {
			continue
		}
		require.NotNil(t, node.LoserTarget, "main node round %d pos %d", node.Round, node.Position)
		assert.Equal(t, models.BracketTypeLosers, bp.Nodes[*node.LoserTarget].BracketType)
	}
}

func TestDoubleEliminationEightParticipants(t *testing.T) {
	bp, err := NewDoubleEliminationBuilder().Build(context.Background(), GenerateParams{
		ParticipantCount: 8,
		GrandFinalReset:  true,
	})
	require.NoError(t, err)

	// Main 7, losers 2+2+1+1, grand final, reset.
	require.Len(t, bp.Nodes, 15)
	losers := nodesOfType(bp, models.BracketTypeLosers)
	require.Len(t, losers, 6)

	// Losers rounds alternate minor (pairs LB survivors) and major (merges a
	// fresh main-bracket loser into slot 2).
	byRound := make(map[int]int)
	for _, n := range losers {
		byRound[n.Round]++
	}
	assert.Equal(t, map[int]int{1: 2, 2: 2, 3: 1, 4: 1}, byRound)

	for _, n := range losers {
		if n.Round%2 == 0 {
			var drops int
			for _, main := range nodesOfType(bp, models.BracketTypeMain) {
				if main.LoserTarget != nil && *main.LoserTarget == n.Index {
					assert.Equal(t, 2, main.LoserSlot)
					drops++
				}
			}
			assert.Equal(t, 1, drops, "major node round %d takes exactly one main loser", n.Round)
		}
	}
}

func TestDoubleEliminationWithoutReset(t *testing.T) {
	bp, err := NewDoubleEliminationBuilder().Build(context.Background(), GenerateParams{
		ParticipantCount: 4,
		GrandFinalReset:  false,
	})
	require.NoError(t, err)
	assert.Nil(t, nodeOfKind(bp, models.NodeKindGrandFinalReset))
	require.NotNil(t, nodeOfKind(bp, models.NodeKindGrandFinal))
}

func TestDoubleEliminationTwoParticipants(t *testing.T) {
	bp, err := NewDoubleEliminationBuilder().Build(context.Background(), GenerateParams{
		ParticipantCount: 2,
		GrandFinalReset:  true,
	})
	require.NoError(t, err)

	// No losers bracket: the single match's loser drops straight into the
	// grand final for a second chance.
	assert.Empty(t, nodesOfType(bp, models.BracketTypeLosers))
	grandFinal := nodeOfKind(bp, models.NodeKindGrandFinal)
	require.NotNil(t, grandFinal)

	mainRoot := bp.Nodes[0]
	require.NotNil(t, mainRoot.LoserTarget)
	assert.Equal(t, grandFinal.Index, *mainRoot.LoserTarget)
	assert.Equal(t, 2, mainRoot.LoserSlot)
}

func TestDoubleEliminationByeHoles(t *testing.T) {
	bp, err := NewDoubleEliminationBuilder().Build(context.Background(), GenerateParams{
		ParticipantCount: 5,
		GrandFinalReset:  true,
	})
	require.NoError(t, err)

	// Main-bracket byes produce no losers, so the losers-bracket nodes they
	// feed inherit the hole: at least one becomes a pass-through bye.
	var losersByes int
	for _, n := range nodesOfType(bp, models.BracketTypeLosers) {
		if n.IsBye {
			losersByes++
		}
	}
	assert.Greater(t, losersByes, 0)
}
