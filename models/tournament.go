package models

import "time"

type TournamentStatus string

const (
	TournamentStatusActive    TournamentStatus = "active"
	TournamentStatusCompleted TournamentStatus = "completed"
	TournamentStatusCanceled  TournamentStatus = "canceled"
)

// Tournament is the engine's view of a tournament. Registration, payments and
// the rest of the organizer workflow live in an external service; the engine
// only needs the identifiers, the format and the champion slot.
type Tournament struct {
	ID            int              `json:"id" db:"id"`
	Name          string           `json:"name" db:"name"`
	OrganizerID   int              `json:"organizer_id" db:"organizer_id"`
	Format        BracketFormat    `json:"format" db:"format"`
	SeedingMethod SeedingMethod    `json:"seeding_method" db:"seeding_method"`
	Status        TournamentStatus `json:"status" db:"status"`
	ChampionID    *int             `json:"champion_id,omitempty" db:"champion_id"`
	StartDate     time.Time        `json:"start_date" db:"start_date"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}
