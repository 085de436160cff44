package models

import "time"

// TournamentStanding is one participant's running record in a standings
// format (round robin, swiss, group stage). Advancement there means
// recomputing these rows instead of linking tree nodes.
type TournamentStanding struct {
	ID              int       `json:"id" db:"id"`
	TournamentID    int       `json:"tournament_id" db:"tournament_id"`
	ParticipantID   int       `json:"participant_id" db:"participant_id"`
	Points          int       `json:"points" db:"points"`
	GamesPlayed     int       `json:"games_played" db:"games_played"`
	Wins            int       `json:"wins" db:"wins"`
	Draws           int       `json:"draws" db:"draws"`
	Losses          int       `json:"losses" db:"losses"`
	ScoreFor        int       `json:"score_for" db:"score_for"`
	ScoreAgainst    int       `json:"score_against" db:"score_against"`
	ScoreDifference int       `json:"score_difference" db:"score_difference"`
	Rank            *int      `json:"rank,omitempty" db:"rank"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// RecordResult folds one completed match into the standing. Draw when
// winnerID is nil.
func (s *TournamentStanding) RecordResult(scoreFor, scoreAgainst int, winnerID *int) {
	s.GamesPlayed++
	s.ScoreFor += scoreFor
	s.ScoreAgainst += scoreAgainst
	s.ScoreDifference = s.ScoreFor - s.ScoreAgainst
	switch {
	case winnerID == nil:
		s.Draws++
		s.Points++
	case *winnerID == s.ParticipantID:
		s.Wins++
		s.Points += 3
	default:
		s.Losses++
	}
}
