package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/bracket-engine/models"
)

var ErrStandingNotFound = errors.New("tournament standing not found")

type StandingRepository interface {
	Create(ctx context.Context, exec SQLExecutor, standing *models.TournamentStanding) error
	GetByTournamentAndParticipant(ctx context.Context, exec SQLExecutor, tournamentID, participantID int) (*models.TournamentStanding, error)
	GetOrCreate(ctx context.Context, exec SQLExecutor, tournamentID, participantID int) (*models.TournamentStanding, error)
	Update(ctx context.Context, exec SQLExecutor, standing *models.TournamentStanding) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, ranked bool) ([]*models.TournamentStanding, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStandingRepository) Create(ctx context.Context, exec SQLExecutor, standing *models.TournamentStanding) error {
	query := `
		INSERT INTO tournament_standings
			(tournament_id, participant_id, points, games_played, wins, draws, losses,
			 score_for, score_against, score_difference, rank, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	if standing.UpdatedAt.IsZero() {
		standing.UpdatedAt = time.Now()
	}
	err := r.executor(exec).QueryRowContext(ctx, query,
		standing.TournamentID, standing.ParticipantID, standing.Points, standing.GamesPlayed,
		standing.Wins, standing.Draws, standing.Losses, standing.ScoreFor, standing.ScoreAgainst,
		standing.ScoreDifference, standing.Rank, standing.UpdatedAt,
	).Scan(&standing.ID)
	if err != nil {
		return fmt.Errorf("failed to insert standing (t:%d p:%d): %w", standing.TournamentID, standing.ParticipantID, err)
	}
	return nil
}

func (r *postgresStandingRepository) scanStanding(rowScanner interface{ Scan(...interface{}) error }) (*models.TournamentStanding, error) {
	var s models.TournamentStanding
	err := rowScanner.Scan(
		&s.ID, &s.TournamentID, &s.ParticipantID, &s.Points, &s.GamesPlayed,
		&s.Wins, &s.Draws, &s.Losses, &s.ScoreFor, &s.ScoreAgainst,
		&s.ScoreDifference, &s.Rank, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStandingNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresStandingRepository) GetByTournamentAndParticipant(ctx context.Context, exec SQLExecutor, tournamentID, participantID int) (*models.TournamentStanding, error) {
	query := `
		SELECT id, tournament_id, participant_id, points, games_played, wins, draws, losses,
		       score_for, score_against, score_difference, rank, updated_at
		FROM tournament_standings
		WHERE tournament_id = $1 AND participant_id = $2`
	return r.scanStanding(r.executor(exec).QueryRowContext(ctx, query, tournamentID, participantID))
}

func (r *postgresStandingRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, tournamentID, participantID int) (*models.TournamentStanding, error) {
	standing, err := r.GetByTournamentAndParticipant(ctx, exec, tournamentID, participantID)
	if err != nil {
		if errors.Is(err, ErrStandingNotFound) {
			newStanding := &models.TournamentStanding{
				TournamentID:  tournamentID,
				ParticipantID: participantID,
				UpdatedAt:     time.Now(),
			}
			if createErr := r.Create(ctx, exec, newStanding); createErr != nil {
				return nil, createErr
			}
			return newStanding, nil
		}
		return nil, fmt.Errorf("failed to get standing (t:%d p:%d): %w", tournamentID, participantID, err)
	}
	return standing, nil
}

func (r *postgresStandingRepository) Update(ctx context.Context, exec SQLExecutor, standing *models.TournamentStanding) error {
	query := `
		UPDATE tournament_standings SET
			points = $1, games_played = $2, wins = $3, draws = $4, losses = $5,
			score_for = $6, score_against = $7, score_difference = $8, rank = $9, updated_at = NOW()
		WHERE id = $10`

	result, err := r.executor(exec).ExecContext(ctx, query,
		standing.Points, standing.GamesPlayed, standing.Wins, standing.Draws, standing.Losses,
		standing.ScoreFor, standing.ScoreAgainst, standing.ScoreDifference, standing.Rank,
		standing.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update standing %d: %w", standing.ID, err)
	}
	return checkAffectedRows(result, ErrStandingNotFound)
}

func (r *postgresStandingRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, ranked bool) ([]*models.TournamentStanding, error) {
	query := `
		SELECT id, tournament_id, participant_id, points, games_played, wins, draws, losses,
		       score_for, score_against, score_difference, rank, updated_at
		FROM tournament_standings
		WHERE tournament_id = $1`
	if ranked {
		query += ` ORDER BY points DESC, score_difference DESC, score_for DESC, participant_id ASC`
	} else {
		query += ` ORDER BY participant_id ASC`
	}

	rows, err := r.executor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query standings for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	standings := make([]*models.TournamentStanding, 0)
	for rows.Next() {
		s, scanErr := r.scanStanding(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan standing row: %w", scanErr)
		}
		standings = append(standings, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during standing rows iteration: %w", err)
	}
	return standings, nil
}

func (r *postgresStandingRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	query := `DELETE FROM tournament_standings WHERE tournament_id = $1`
	if _, err := r.executor(exec).ExecContext(ctx, query, tournamentID); err != nil {
		return fmt.Errorf("failed to delete standings for tournament %d: %w", tournamentID, err)
	}
	return nil
}
