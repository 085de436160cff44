package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LeaseRepository implements the tournament-scoped generation lock as a lease
// row with a TTL, so a crashed holder never blocks regeneration forever.
type LeaseRepository interface {
	// Acquire takes the lease for the tournament if it is free or expired.
	// Returns false when another live holder has it.
	Acquire(ctx context.Context, tournamentID int, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, tournamentID int, holder string) error
}

type postgresLeaseRepository struct {
	db *sql.DB
}

func NewPostgresLeaseRepository(db *sql.DB) LeaseRepository {
	return &postgresLeaseRepository{db: db}
}

func (r *postgresLeaseRepository) Acquire(ctx context.Context, tournamentID int, holder string, ttl time.Duration) (bool, error) {
	// The upsert only steals the row when the previous lease has expired,
	// which makes acquisition a single atomic statement.
	query := `
		INSERT INTO bracket_generation_leases (tournament_id, holder, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (tournament_id) DO UPDATE
		SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at
		WHERE bracket_generation_leases.expires_at <= NOW()
		   OR bracket_generation_leases.holder = EXCLUDED.holder`

	result, err := r.db.ExecContext(ctx, query, tournamentID, holder, time.Now().Add(ttl))
	if err != nil {
		return false, fmt.Errorf("failed to acquire generation lease for tournament %d: %w", tournamentID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check generation lease acquisition: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *postgresLeaseRepository) Release(ctx context.Context, tournamentID int, holder string) error {
	query := `DELETE FROM bracket_generation_leases WHERE tournament_id = $1 AND holder = $2`
	if _, err := r.db.ExecContext(ctx, query, tournamentID, holder); err != nil {
		return fmt.Errorf("failed to release generation lease for tournament %d: %w", tournamentID, err)
	}
	return nil
}
