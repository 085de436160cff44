package models

import "time"

// ResultSubmission is one side's claim about a match outcome. Submissions are
// append-only: a correction is a new submission, never an update.
type ResultSubmission struct {
	ID          int `json:"id" db:"id"`
	MatchID     int `json:"match_id" db:"match_id"`
	SubmittedBy int `json:"submitted_by" db:"submitted_by"` // side: 1 or 2
	// ClaimedWinnerID is nil only for a draw claim in a standings format.
	ClaimedWinnerID *int    `json:"claimed_winner_id,omitempty" db:"claimed_winner_id"`
	Score1          int     `json:"score1" db:"score1"`
	Score2          int     `json:"score2" db:"score2"`
	EvidenceKey     *string `json:"evidence_key,omitempty" db:"evidence_key"`
	Confirmed       bool    `json:"confirmed" db:"confirmed"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Agrees reports whether two submissions claim the identical outcome.
func (s *ResultSubmission) Agrees(other *ResultSubmission) bool {
	if s.Score1 != other.Score1 || s.Score2 != other.Score2 {
		return false
	}
	if (s.ClaimedWinnerID == nil) != (other.ClaimedWinnerID == nil) {
		return false
	}
	if s.ClaimedWinnerID != nil && *s.ClaimedWinnerID != *other.ClaimedWinnerID {
		return false
	}
	return true
}
