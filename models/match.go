package models

import "time"

type MatchState string

const (
	MatchStateScheduled     MatchState = "scheduled"
	MatchStateCheckIn       MatchState = "check_in"
	MatchStateReady         MatchState = "ready"
	MatchStateLive          MatchState = "live"
	MatchStatePendingResult MatchState = "pending_result"
	MatchStateDisputed      MatchState = "disputed"
	MatchStateCompleted     MatchState = "completed"
	MatchStateForfeit       MatchState = "forfeit"
	MatchStateCancelled     MatchState = "cancelled"
)

// matchTransitions is the full transition table. Anything not listed is
// illegal and must surface as ErrInvalidStateTransition, never be ignored.
var matchTransitions = map[MatchState][]MatchState{
	MatchStateScheduled:     {MatchStateCheckIn, MatchStateCancelled},
	MatchStateCheckIn:       {MatchStateReady, MatchStateForfeit, MatchStateCompleted, MatchStateCancelled},
	MatchStateReady:         {MatchStateLive, MatchStateCancelled},
	MatchStateLive:          {MatchStatePendingResult},
	MatchStatePendingResult: {MatchStateCompleted, MatchStateDisputed},
	MatchStateDisputed:      {MatchStateCompleted},
}

// CanTransitionTo reports whether the state machine allows s -> next.
// check_in -> completed covers the one-side-confirmed forfeit, which still
// feeds advancement as a completed match with the forfeit marker set.
func (s MatchState) CanTransitionTo(next MatchState) bool {
	for _, allowed := range matchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions exist from s.
func (s MatchState) Terminal() bool {
	return len(matchTransitions[s]) == 0
}

// Match is a single contest, bound to zero or one bracket node. Tree-less
// formats (round robin, swiss, groups) use standalone matches with NodeID
// unset. Version backs the optimistic CAS on the result hot path.
type Match struct {
	ID           int  `json:"id" db:"id"`
	TournamentID int  `json:"tournament_id" db:"tournament_id"`
	BracketID    *int `json:"bracket_id,omitempty" db:"bracket_id"`
	NodeID       *int `json:"node_id,omitempty" db:"node_id"`
	Round        int  `json:"round" db:"round"`
	MatchNumber  int  `json:"match_number" db:"match_number"`

	Participant1ID *int `json:"participant1_id,omitempty" db:"participant1_id"`
	Participant2ID *int `json:"participant2_id,omitempty" db:"participant2_id"`

	State   MatchState `json:"state" db:"state"`
	Score1  int        `json:"score1" db:"score1"`
	Score2  int        `json:"score2" db:"score2"`
	Forfeit bool       `json:"forfeit" db:"forfeit"`

	WinnerParticipantID *int `json:"winner_participant_id,omitempty" db:"winner_participant_id"`
	LoserParticipantID  *int `json:"loser_participant_id,omitempty" db:"loser_participant_id"`

	ScheduledAt     time.Time  `json:"scheduled_at" db:"scheduled_at"`
	CheckInOpensAt  time.Time  `json:"check_in_opens_at" db:"check_in_opens_at"`
	CheckInClosesAt time.Time  `json:"check_in_closes_at" db:"check_in_closes_at"`
	P1CheckedIn     bool       `json:"p1_checked_in" db:"p1_checked_in"`
	P2CheckedIn     bool       `json:"p2_checked_in" db:"p2_checked_in"`
	ResultDeadline  *time.Time `json:"result_deadline,omitempty" db:"result_deadline"`

	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SideOf returns 1 or 2 for the given participant, or 0 when they are not in
// the match.
func (m *Match) SideOf(participantID int) int {
	if m.Participant1ID != nil && *m.Participant1ID == participantID {
		return 1
	}
	if m.Participant2ID != nil && *m.Participant2ID == participantID {
		return 2
	}
	return 0
}

// ParticipantOnSide returns the participant occupying the given side.
func (m *Match) ParticipantOnSide(side int) *int {
	switch side {
	case 1:
		return m.Participant1ID
	case 2:
		return m.Participant2ID
	}
	return nil
}

// Finalized reports whether result submissions are no longer accepted.
func (m *Match) Finalized() bool {
	return m.State == MatchStateCompleted || m.State == MatchStateDisputed
}
