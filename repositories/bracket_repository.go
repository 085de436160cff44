package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

var ErrBracketNotFound = errors.New("bracket not found")

type BracketRepository interface {
	Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error
	GetByID(ctx context.Context, id int) (*models.Bracket, error)
	GetActiveByTournament(ctx context.Context, tournamentID int) (*models.Bracket, error)
	InvalidateByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

func (r *postgresBracketRepository) Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error {
	query := `
		INSERT INTO brackets (tournament_id, format, rounds, invalidated)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		bracket.TournamentID,
		bracket.Format,
		bracket.Rounds,
	).Scan(&bracket.ID, &bracket.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert bracket for tournament %d: %w", bracket.TournamentID, err)
	}
	return nil
}

func (r *postgresBracketRepository) scanBracket(row *sql.Row) (*models.Bracket, error) {
	b := &models.Bracket{}
	err := row.Scan(&b.ID, &b.TournamentID, &b.Format, &b.Rounds, &b.Invalidated, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *postgresBracketRepository) GetByID(ctx context.Context, id int) (*models.Bracket, error) {
	query := `
		SELECT id, tournament_id, format, rounds, invalidated, created_at
		FROM brackets
		WHERE id = $1`
	return r.scanBracket(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresBracketRepository) GetActiveByTournament(ctx context.Context, tournamentID int) (*models.Bracket, error) {
	query := `
		SELECT id, tournament_id, format, rounds, invalidated, created_at
		FROM brackets
		WHERE tournament_id = $1 AND invalidated = FALSE
		ORDER BY id DESC
		LIMIT 1`
	return r.scanBracket(r.db.QueryRowContext(ctx, query, tournamentID))
}

// InvalidateByTournament soft-invalidates every previous node set wholesale;
// individual nodes are never deleted.
func (r *postgresBracketRepository) InvalidateByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	query := `UPDATE brackets SET invalidated = TRUE WHERE tournament_id = $1 AND invalidated = FALSE`
	if _, err := exec.ExecContext(ctx, query, tournamentID); err != nil {
		return fmt.Errorf("failed to invalidate brackets for tournament %d: %w", tournamentID, err)
	}
	return nil
}
