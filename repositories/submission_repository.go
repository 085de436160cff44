package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/lib/pq"
)

var ErrSubmissionNotFound = errors.New("result submission not found")

type SubmissionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, submission *models.ResultSubmission) error
	GetByID(ctx context.Context, id int) (*models.ResultSubmission, error)
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.ResultSubmission, error)
	MarkConfirmed(ctx context.Context, exec SQLExecutor, ids ...int) error
}

type postgresSubmissionRepository struct {
	db *sql.DB
}

func NewPostgresSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &postgresSubmissionRepository{db: db}
}

func (r *postgresSubmissionRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSubmissionRepository) Create(ctx context.Context, exec SQLExecutor, submission *models.ResultSubmission) error {
	query := `
		INSERT INTO result_submissions
			(match_id, submitted_by, claimed_winner_id, score1, score2, evidence_key, confirmed)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING id, created_at`

	err := r.executor(exec).QueryRowContext(ctx, query,
		submission.MatchID,
		submission.SubmittedBy,
		submission.ClaimedWinnerID,
		submission.Score1,
		submission.Score2,
		submission.EvidenceKey,
	).Scan(&submission.ID, &submission.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert submission for match %d: %w", submission.MatchID, err)
	}
	return nil
}

func (r *postgresSubmissionRepository) scanSubmission(rowScanner interface{ Scan(...interface{}) error }) (*models.ResultSubmission, error) {
	var s models.ResultSubmission
	err := rowScanner.Scan(
		&s.ID, &s.MatchID, &s.SubmittedBy, &s.ClaimedWinnerID,
		&s.Score1, &s.Score2, &s.EvidenceKey, &s.Confirmed, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresSubmissionRepository) GetByID(ctx context.Context, id int) (*models.ResultSubmission, error) {
	query := `
		SELECT id, match_id, submitted_by, claimed_winner_id, score1, score2, evidence_key, confirmed, created_at
		FROM result_submissions
		WHERE id = $1`
	return r.scanSubmission(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresSubmissionRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.ResultSubmission, error) {
	query := `
		SELECT id, match_id, submitted_by, claimed_winner_id, score1, score2, evidence_key, confirmed, created_at
		FROM result_submissions
		WHERE match_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.executor(exec).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions for match %d: %w", matchID, err)
	}
	defer rows.Close()

	submissions := make([]*models.ResultSubmission, 0)
	for rows.Next() {
		s, scanErr := r.scanSubmission(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", scanErr)
		}
		submissions = append(submissions, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during submission rows iteration: %w", err)
	}
	return submissions, nil
}

func (r *postgresSubmissionRepository) MarkConfirmed(ctx context.Context, exec SQLExecutor, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE result_submissions SET confirmed = TRUE WHERE id = ANY($1)`
	arr := make([]int64, len(ids))
	for i, id := range ids {
		arr[i] = int64(id)
	}
	if _, err := r.executor(exec).ExecContext(ctx, query, pq.Array(arr)); err != nil {
		return fmt.Errorf("failed to confirm submissions %v: %w", ids, err)
	}
	return nil
}
