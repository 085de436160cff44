package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

var ErrParticipantNotFound = errors.New("participant not found")

// ParticipantRepository stores the engine's snapshot of the entrant list
// handed over by the registration service at build time.
type ParticipantRepository interface {
	ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, participants []*models.Participant) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Participant, error)
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, participants []*models.Participant) error {
	executor := r.executor(exec)

	if _, err := executor.ExecContext(ctx, `DELETE FROM participants WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to clear participants for tournament %d: %w", tournamentID, err)
	}

	// Participant IDs are assigned by the registration service and kept
	// as-is so seeds stay traceable across systems.
	query := `
		INSERT INTO participants (id, tournament_id, external_ref, rank_score, seed, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, p := range participants {
		p.TournamentID = tournamentID
		_, err := executor.ExecContext(ctx, query,
			p.ID, tournamentID, p.ExternalRef, p.RankScore, p.Seed, p.RegisteredAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant %d for tournament %d: %w", p.ID, tournamentID, err)
		}
	}
	return nil
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error) {
	query := `
		SELECT id, tournament_id, external_ref, rank_score, seed, registered_at
		FROM participants
		WHERE id = $1`

	var p models.Participant
	err := r.executor(exec).QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.TournamentID, &p.ExternalRef, &p.RankScore, &p.Seed, &p.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant %d: %w", id, err)
	}
	return &p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	query := `
		SELECT id, tournament_id, external_ref, rank_score, seed, registered_at
		FROM participants
		WHERE tournament_id = $1
		ORDER BY registered_at ASC, id ASC`

	rows, err := r.executor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if scanErr := rows.Scan(&p.ID, &p.TournamentID, &p.ExternalRef, &p.RankScore, &p.Seed, &p.RegisteredAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", scanErr)
		}
		participants = append(participants, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during participant rows iteration: %w", err)
	}
	return participants, nil
}
