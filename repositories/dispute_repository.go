package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/lib/pq"
)

var (
	ErrDisputeNotFound = errors.New("dispute not found")

	// ErrDisputeOpenConflict maps the partial unique index that allows at
	// most one open dispute per match.
	ErrDisputeOpenConflict = errors.New("an open dispute already exists for this match")
)

type DisputeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, dispute *models.Dispute) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Dispute, error)
	GetOpenByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.Dispute, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.DisputeStatus) error
	Resolve(ctx context.Context, exec SQLExecutor, dispute *models.Dispute) error
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Dispute, error)
}

type postgresDisputeRepository struct {
	db *sql.DB
}

func NewPostgresDisputeRepository(db *sql.DB) DisputeRepository {
	return &postgresDisputeRepository{db: db}
}

func (r *postgresDisputeRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresDisputeRepository) Create(ctx context.Context, exec SQLExecutor, dispute *models.Dispute) error {
	query := `
		INSERT INTO disputes
			(match_id, reason, raised_by, submission_id, conflicting_submission_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.executor(exec).QueryRowContext(ctx, query,
		dispute.MatchID,
		dispute.Reason,
		dispute.RaisedBy,
		dispute.SubmissionID,
		dispute.ConflictingSubmissionID,
		dispute.Status,
	).Scan(&dispute.ID, &dispute.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "disputes_match_id_open_key" {
			return ErrDisputeOpenConflict
		}
		return fmt.Errorf("failed to insert dispute for match %d: %w", dispute.MatchID, err)
	}
	return nil
}

const disputeColumns = `
	id, match_id, reason, raised_by, submission_id, conflicting_submission_id,
	status, resolution, resolved_winner_id, created_at, resolved_at`

func (r *postgresDisputeRepository) scanDispute(rowScanner interface{ Scan(...interface{}) error }) (*models.Dispute, error) {
	var d models.Dispute
	err := rowScanner.Scan(
		&d.ID, &d.MatchID, &d.Reason, &d.RaisedBy, &d.SubmissionID, &d.ConflictingSubmissionID,
		&d.Status, &d.Resolution, &d.ResolvedWinnerID, &d.CreatedAt, &d.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *postgresDisputeRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Dispute, error) {
	query := `SELECT` + disputeColumns + ` FROM disputes WHERE id = $1`
	return r.scanDispute(r.executor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresDisputeRepository) GetOpenByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.Dispute, error) {
	query := `SELECT` + disputeColumns + `
		FROM disputes
		WHERE match_id = $1 AND status IN ($2, $3)`
	return r.scanDispute(r.executor(exec).QueryRowContext(ctx, query, matchID,
		models.DisputeStatusOpen, models.DisputeStatusUnderReview))
}

func (r *postgresDisputeRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.DisputeStatus) error {
	query := `UPDATE disputes SET status = $1 WHERE id = $2`
	result, err := r.executor(exec).ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status of dispute %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrDisputeNotFound)
}

func (r *postgresDisputeRepository) Resolve(ctx context.Context, exec SQLExecutor, dispute *models.Dispute) error {
	query := `
		UPDATE disputes
		SET status = $1, resolution = $2, resolved_winner_id = $3, resolved_at = $4
		WHERE id = $5 AND status IN ($6, $7)`

	now := time.Now()
	result, err := r.executor(exec).ExecContext(ctx, query,
		dispute.Status, dispute.Resolution, dispute.ResolvedWinnerID, now,
		dispute.ID, models.DisputeStatusOpen, models.DisputeStatusUnderReview,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve dispute %d: %w", dispute.ID, err)
	}
	if err := checkAffectedRows(result, ErrDisputeNotFound); err != nil {
		return err
	}
	dispute.ResolvedAt = &now
	return nil
}

func (r *postgresDisputeRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Dispute, error) {
	query := `
		SELECT d.id, d.match_id, d.reason, d.raised_by, d.submission_id, d.conflicting_submission_id,
		       d.status, d.resolution, d.resolved_winner_id, d.created_at, d.resolved_at
		FROM disputes d
		JOIN matches m ON m.id = d.match_id
		WHERE m.tournament_id = $1
		ORDER BY d.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query disputes for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	disputes := make([]*models.Dispute, 0)
	for rows.Next() {
		d, scanErr := r.scanDispute(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan dispute row: %w", scanErr)
		}
		disputes = append(disputes, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during dispute rows iteration: %w", err)
	}
	return disputes, nil
}
