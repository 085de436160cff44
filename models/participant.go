package models

import "time"

// Participant is a reference to an entrant supplied by the registration
// service. RankScore is only meaningful for ranked seeding.
type Participant struct {
	ID           int       `json:"id"`
	TournamentID int       `json:"tournament_id"`
	ExternalRef  string    `json:"external_ref"`
	RankScore    *int      `json:"rank_score,omitempty"`
	Seed         *int      `json:"seed,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}
