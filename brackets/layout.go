package brackets

import (
	"math"

	"github.com/Dosada05/bracket-engine/models"
)

// Blueprint is the immutable output of a topology builder. Node links are
// indexes into Nodes (an arena, not embedded structures); slots hold seed
// numbers 1..n until the seeding assigner maps them to participants.
type Blueprint struct {
	Format      models.BracketFormat
	Rounds      int
	BracketSize int

	// Nodes is the linked tree for elimination formats, empty otherwise.
	Nodes []*BlueprintNode

	// Pairings is the flat match list for standings formats (round robin,
	// swiss round 1, group stage), empty for elimination formats.
	Pairings []*Pairing
}

// BlueprintNode mirrors models.BracketNode in seed space. Index is the
// node's position in Blueprint.Nodes and the value other nodes link by.
type BlueprintNode struct {
	Index       int
	BracketType models.BracketType
	Kind        models.NodeKind
	Round       int
	Position    int

	Slot1Seed *int
	Slot2Seed *int

	Parent     *int
	ParentSlot int
	Child1     *int
	Child2     *int

	LoserTarget *int
	LoserSlot   int

	IsBye bool
}

// Pairing is one scheduled contest in a tree-less format. Seed2 is nil for a
// sit-out bye.
type Pairing struct {
	BracketType models.BracketType
	Round       int
	Order       int
	Seed1       int
	Seed2       *int
}

// numRounds returns ceil(log2(n)), the elimination round count for n
// participants.
func numRounds(n int) int {
	return int(math.Ceil(math.Log2(float64(n))))
}

// seedOrder returns the seeds laid out in bracket slot order for a full
// bracket of the given size (a power of two). Consecutive pairs form round-1
// matches: 1v16, 8v9, 4v13, ... for size 16. High seeds stay apart until
// late rounds, and when seeds above n are absent the byes land on the top
// seeds first.
func seedOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		doubled := len(order) * 2
		next := make([]int, 0, doubled)
		for _, s := range order {
			next = append(next, s, doubled+1-s)
		}
		order = next
	}
	return order
}

// buildMainTree appends the main-bracket nodes for n participants in a full
// bracket of the given size, wiring parent/child links and seeding the
// round-1 leaves. It returns node indexes grouped by round (byRound[1] is
// round 1, ordered by position).
func buildMainTree(bp *Blueprint, n, size, rounds int) [][]int {
	byRound := make([][]int, rounds+1)
	order := seedOrder(size)

	for i := 0; i < size/2; i++ {
		node := &BlueprintNode{
			Index:       len(bp.Nodes),
			BracketType: models.BracketTypeMain,
			Round:       1,
			Position:    i + 1,
		}
		s1, s2 := order[2*i], order[2*i+1]
		if s1 <= n {
			seed := s1
			node.Slot1Seed = &seed
		}
		if s2 <= n {
			seed := s2
			node.Slot2Seed = &seed
		}
		// size is the next power of two >= n and n >= 2, so a leaf always
		// has at least one seeded slot.
		node.IsBye = node.Slot1Seed == nil || node.Slot2Seed == nil
		bp.Nodes = append(bp.Nodes, node)
		byRound[1] = append(byRound[1], node.Index)
	}

	for r := 2; r <= rounds; r++ {
		count := size >> uint(r)
		for p := 0; p < count; p++ {
			node := &BlueprintNode{
				Index:       len(bp.Nodes),
				BracketType: models.BracketTypeMain,
				Round:       r,
				Position:    p + 1,
			}
			c1 := byRound[r-1][2*p]
			c2 := byRound[r-1][2*p+1]
			node.Child1 = &c1
			node.Child2 = &c2
			idx := node.Index
			bp.Nodes[c1].Parent = &idx
			bp.Nodes[c1].ParentSlot = 1
			bp.Nodes[c2].Parent = &idx
			bp.Nodes[c2].ParentSlot = 2
			bp.Nodes = append(bp.Nodes, node)
			byRound[r] = append(byRound[r], node.Index)
		}
	}

	return byRound
}
