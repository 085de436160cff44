package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

type TournamentRepository interface {
	Upsert(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	SetChampion(ctx context.Context, exec SQLExecutor, id, championID int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// Upsert records the engine's view of a tournament when a bracket is built.
// The registration service owns the canonical tournament row.
func (r *postgresTournamentRepository) Upsert(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error {
	query := `
		INSERT INTO tournaments (id, name, organizer_id, format, seeding_method, status, start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, organizer_id = EXCLUDED.organizer_id,
		    format = EXCLUDED.format, seeding_method = EXCLUDED.seeding_method,
		    status = EXCLUDED.status, start_date = EXCLUDED.start_date,
		    champion_id = NULL
		RETURNING created_at`

	err := r.executor(exec).QueryRowContext(ctx, query,
		tournament.ID, tournament.Name, tournament.OrganizerID,
		tournament.Format, tournament.SeedingMethod, tournament.Status, tournament.StartDate,
	).Scan(&tournament.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert tournament %d: %w", tournament.ID, err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `
		SELECT id, name, organizer_id, format, seeding_method, status, champion_id, start_date, created_at
		FROM tournaments
		WHERE id = $1`

	var t models.Tournament
	err := r.executor(exec).QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.OrganizerID, &t.Format, &t.SeedingMethod,
		&t.Status, &t.ChampionID, &t.StartDate, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %d: %w", id, err)
	}
	return &t, nil
}

func (r *postgresTournamentRepository) SetChampion(ctx context.Context, exec SQLExecutor, id, championID int) error {
	query := `
		UPDATE tournaments SET champion_id = $1, status = $2
		WHERE id = $3 AND (champion_id IS NULL OR champion_id = $1)`

	result, err := r.executor(exec).ExecContext(ctx, query, championID, models.TournamentStatusCompleted, id)
	if err != nil {
		return fmt.Errorf("failed to set champion of tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
