package models

import "time"

type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusDismissed   DisputeStatus = "dismissed"
)

// Terminal reports whether the dispute is closed. A match leaves the disputed
// state only through a dispute reaching a terminal status.
func (s DisputeStatus) Terminal() bool {
	return s == DisputeStatusResolved || s == DisputeStatusDismissed
}

// Dispute is an escalation record for conflicting result submissions.
// At most one open dispute exists per match (enforced by the store).
type Dispute struct {
	ID      int    `json:"id" db:"id"`
	MatchID int    `json:"match_id" db:"match_id"`
	Reason  string `json:"reason" db:"reason"`
	// RaisedBy is the side whose submission conflicted: 1 or 2.
	RaisedBy                int           `json:"raised_by" db:"raised_by"`
	SubmissionID            *int          `json:"submission_id,omitempty" db:"submission_id"`
	ConflictingSubmissionID *int          `json:"conflicting_submission_id,omitempty" db:"conflicting_submission_id"`
	Status                  DisputeStatus `json:"status" db:"status"`
	Resolution              *string       `json:"resolution,omitempty" db:"resolution"`
	ResolvedWinnerID        *int          `json:"resolved_winner_id,omitempty" db:"resolved_winner_id"`
	CreatedAt               time.Time     `json:"created_at" db:"created_at"`
	ResolvedAt              *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
}
