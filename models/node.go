package models

import (
	"fmt"
	"time"
)

// BracketType tags the logically separate trees of one tournament. Trees can
// cross-link: a main-bracket loser feeds a losers-bracket node.
type BracketType string

const (
	BracketTypeMain       BracketType = "main"
	BracketTypeLosers     BracketType = "losers"
	BracketTypeThirdPlace BracketType = "third_place"
)

// GroupBracketType returns the tag for group sub-bracket n (1-based).
func GroupBracketType(n int) BracketType {
	return BracketType(fmt.Sprintf("group_%d", n))
}

// NodeKind marks the special nodes of a double-elimination layout.
type NodeKind string

const (
	NodeKindRegular         NodeKind = ""
	NodeKindGrandFinal      NodeKind = "grand_final"
	NodeKindGrandFinalReset NodeKind = "grand_final_reset"
)

// Bracket is one generated node set for a tournament. Regeneration
// soft-invalidates the previous set wholesale, nodes are never deleted
// individually.
type Bracket struct {
	ID           int           `json:"id" db:"id"`
	TournamentID int           `json:"tournament_id" db:"tournament_id"`
	Format       BracketFormat `json:"format" db:"format"`
	Rounds       int           `json:"rounds" db:"rounds"`
	Invalidated  bool          `json:"invalidated" db:"invalidated"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// BracketNode is one slot in a tournament tree. Navigation fields reference
// other nodes of the same bracket by ID (arena layout, no embedded cycles).
// Slot occupants and the winner are mutated only by advancement.
type BracketNode struct {
	ID          int         `json:"id" db:"id"`
	BracketID   int         `json:"bracket_id" db:"bracket_id"`
	BracketType BracketType `json:"bracket_type" db:"bracket_type"`
	Kind        NodeKind    `json:"kind,omitempty" db:"kind"`
	Round       int         `json:"round" db:"round"`
	Position    int         `json:"position" db:"position"`

	Slot1ParticipantID *int `json:"slot1_participant_id,omitempty" db:"slot1_participant_id"`
	Slot2ParticipantID *int `json:"slot2_participant_id,omitempty" db:"slot2_participant_id"`

	ParentNodeID *int `json:"parent_node_id,omitempty" db:"parent_node_id"`
	ParentSlot   *int `json:"parent_slot,omitempty" db:"parent_slot"`
	Child1NodeID *int `json:"child1_node_id,omitempty" db:"child1_node_id"`
	Child2NodeID *int `json:"child2_node_id,omitempty" db:"child2_node_id"`

	// Loser drop target, precomputed at build time for double elimination
	// (and the third-place match in single elimination).
	LoserNodeID *int `json:"loser_node_id,omitempty" db:"loser_node_id"`
	LoserSlot   *int `json:"loser_slot,omitempty" db:"loser_slot"`

	IsBye               bool `json:"is_bye" db:"is_bye"`
	WinnerParticipantID *int `json:"winner_participant_id,omitempty" db:"winner_participant_id"`
	MatchID             *int `json:"match_id,omitempty" db:"match_id"`
}

// Occupied reports whether both slots are filled, i.e. the node is ready for
// a match.
func (n *BracketNode) Occupied() bool {
	return n.Slot1ParticipantID != nil && n.Slot2ParticipantID != nil
}

// SlotOf returns which slot (1 or 2) the participant occupies, or 0.
func (n *BracketNode) SlotOf(participantID int) int {
	if n.Slot1ParticipantID != nil && *n.Slot1ParticipantID == participantID {
		return 1
	}
	if n.Slot2ParticipantID != nil && *n.Slot2ParticipantID == participantID {
		return 2
	}
	return 0
}
