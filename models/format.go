package models

// BracketFormat selects the topology builder at generation time. The node
// graph produced from it is format-agnostic afterwards.
type BracketFormat string

const (
	FormatSingleElimination BracketFormat = "single_elimination"
	FormatDoubleElimination BracketFormat = "double_elimination"
	FormatRoundRobin        BracketFormat = "round_robin"
	FormatSwiss             BracketFormat = "swiss"
	FormatGroupStage        BracketFormat = "group_stage"
)

func (f BracketFormat) Valid() bool {
	switch f {
	case FormatSingleElimination, FormatDoubleElimination, FormatRoundRobin, FormatSwiss, FormatGroupStage:
		return true
	}
	return false
}

// UsesTree reports whether the format produces a linked node tree.
// Round-robin, swiss and group stages advance through standings instead.
func (f BracketFormat) UsesTree() bool {
	return f == FormatSingleElimination || f == FormatDoubleElimination
}

type SeedingMethod string

const (
	SeedingSlotOrder SeedingMethod = "slot_order"
	SeedingRandom    SeedingMethod = "random"
	SeedingRanked    SeedingMethod = "ranked"
	SeedingManual    SeedingMethod = "manual"
)

func (m SeedingMethod) Valid() bool {
	switch m {
	case SeedingSlotOrder, SeedingRandom, SeedingRanked, SeedingManual:
		return true
	}
	return false
}
