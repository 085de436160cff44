package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound = errors.New("match not found")

	// ErrMatchVersionConflict means the optimistic CAS on the match version
	// failed: somebody else modified the row first. Transient, retryable.
	ErrMatchVersionConflict = errors.New("match modified concurrently")

	// ErrMatchNodeTaken means another writer already materialized the match
	// for this node (unique index on matches.node_id).
	ErrMatchNodeTaken = errors.New("match for this bracket node already exists")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, round *int, state *models.MatchState) ([]*models.Match, error)
	ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.Match, error)
	UpdateState(ctx context.Context, exec SQLExecutor, id, version int, state models.MatchState) error
	SetCheckIn(ctx context.Context, exec SQLExecutor, id, version, side int) error
	RecordResult(ctx context.Context, exec SQLExecutor, match *models.Match) error
	SetResultDeadline(ctx context.Context, exec SQLExecutor, id, version int, deadline time.Time, state models.MatchState) error
	ListScheduledBefore(ctx context.Context, checkInOpensBefore time.Time) ([]*models.Match, error)
	ListCheckInExpired(ctx context.Context, now time.Time) ([]*models.Match, error)
	ListReadyToStart(ctx context.Context, now time.Time) ([]*models.Match, error)
	ListResultDeadlineExpired(ctx context.Context, now time.Time) ([]*models.Match, error)
	CountUnfinishedByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, bracket_id, node_id, round, match_number,
	participant1_id, participant2_id, state, score1, score2, forfeit,
	winner_participant_id, loser_participant_id,
	scheduled_at, check_in_opens_at, check_in_closes_at,
	p1_checked_in, p2_checked_in, result_deadline, version, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, bracket_id, node_id, round, match_number,
			 participant1_id, participant2_id, state, score1, score2, forfeit,
			 scheduled_at, check_in_opens_at, check_in_closes_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, version, created_at`

	err := r.executor(exec).QueryRowContext(ctx, query,
		match.TournamentID,
		match.BracketID,
		match.NodeID,
		match.Round,
		match.MatchNumber,
		match.Participant1ID,
		match.Participant2ID,
		match.State,
		match.Score1,
		match.Score2,
		match.Forfeit,
		match.ScheduledAt,
		match.CheckInOpensAt,
		match.CheckInClosesAt,
	).Scan(&match.ID, &match.Version, &match.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "matches_node_id_key" {
			return ErrMatchNodeTaken
		}
		return fmt.Errorf("failed to insert match (tournament %d, round %d): %w", match.TournamentID, match.Round, err)
	}
	return nil
}

func (r *postgresMatchRepository) scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := rowScanner.Scan(
		&m.ID, &m.TournamentID, &m.BracketID, &m.NodeID, &m.Round, &m.MatchNumber,
		&m.Participant1ID, &m.Participant2ID, &m.State, &m.Score1, &m.Score2, &m.Forfeit,
		&m.WinnerParticipantID, &m.LoserParticipantID,
		&m.ScheduledAt, &m.CheckInOpensAt, &m.CheckInClosesAt,
		&m.P1CheckedIn, &m.P2CheckedIn, &m.ResultDeadline, &m.Version, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`
	return r.scanMatch(r.executor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, round *int, state *models.MatchState) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholderIndex := 2

	if round != nil {
		queryBuilder.WriteString(" AND round = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *round)
		placeholderIndex++
	}
	if state != nil {
		queryBuilder.WriteString(" AND state = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *state)
	}

	queryBuilder.WriteString(" ORDER BY round ASC, match_number ASC, id ASC")

	return r.queryMatches(ctx, r.db, queryBuilder.String(), args...)
}

func (r *postgresMatchRepository) ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE bracket_id = $1 ORDER BY round ASC, match_number ASC`
	return r.queryMatches(ctx, r.executor(exec), query, bracketID)
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

// UpdateState moves the match to a new state under the version CAS. The state
// legality check belongs to the service layer; this only guards against
// concurrent writers.
func (r *postgresMatchRepository) UpdateState(ctx context.Context, exec SQLExecutor, id, version int, state models.MatchState) error {
	query := `
		UPDATE matches SET state = $1, version = version + 1
		WHERE id = $2 AND version = $3`

	result, err := r.executor(exec).ExecContext(ctx, query, state, id, version)
	if err != nil {
		return fmt.Errorf("failed to update state of match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchVersionConflict)
}

func (r *postgresMatchRepository) SetCheckIn(ctx context.Context, exec SQLExecutor, id, version, side int) error {
	var column string
	switch side {
	case 1:
		column = "p1_checked_in"
	case 2:
		column = "p2_checked_in"
	default:
		return fmt.Errorf("invalid check-in side %d", side)
	}
	query := fmt.Sprintf(`UPDATE matches SET %s = TRUE, version = version + 1 WHERE id = $1 AND version = $2`, column)

	result, err := r.executor(exec).ExecContext(ctx, query, id, version)
	if err != nil {
		return fmt.Errorf("failed to record check-in for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchVersionConflict)
}

// RecordResult finalizes scores, winner, loser and state in one CAS write.
func (r *postgresMatchRepository) RecordResult(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		UPDATE matches
		SET score1 = $1, score2 = $2, winner_participant_id = $3, loser_participant_id = $4,
		    state = $5, forfeit = $6, result_deadline = NULL, version = version + 1
		WHERE id = $7 AND version = $8`

	result, err := r.executor(exec).ExecContext(ctx, query,
		match.Score1, match.Score2,
		match.WinnerParticipantID, match.LoserParticipantID,
		match.State, match.Forfeit,
		match.ID, match.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to record result of match %d: %w", match.ID, err)
	}
	if err := checkAffectedRows(result, ErrMatchVersionConflict); err != nil {
		return err
	}
	match.Version++
	return nil
}

// SetResultDeadline stores the auto-confirm deadline alongside the state
// change to pending_result. The deadline lives on the row so it survives
// restarts.
func (r *postgresMatchRepository) SetResultDeadline(ctx context.Context, exec SQLExecutor, id, version int, deadline time.Time, state models.MatchState) error {
	query := `
		UPDATE matches SET result_deadline = $1, state = $2, version = version + 1
		WHERE id = $3 AND version = $4`

	result, err := r.executor(exec).ExecContext(ctx, query, deadline, state, id, version)
	if err != nil {
		return fmt.Errorf("failed to set result deadline of match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchVersionConflict)
}

func (r *postgresMatchRepository) ListScheduledBefore(ctx context.Context, checkInOpensBefore time.Time) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE state = $1 AND check_in_opens_at <= $2
		ORDER BY id ASC`
	return r.queryMatches(ctx, r.db, query, models.MatchStateScheduled, checkInOpensBefore)
}

func (r *postgresMatchRepository) ListCheckInExpired(ctx context.Context, now time.Time) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE state = $1 AND check_in_closes_at <= $2
		ORDER BY id ASC`
	return r.queryMatches(ctx, r.db, query, models.MatchStateCheckIn, now)
}

func (r *postgresMatchRepository) ListReadyToStart(ctx context.Context, now time.Time) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE state = $1 AND scheduled_at <= $2
		ORDER BY id ASC`
	return r.queryMatches(ctx, r.db, query, models.MatchStateReady, now)
}

func (r *postgresMatchRepository) ListResultDeadlineExpired(ctx context.Context, now time.Time) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE state = $1 AND result_deadline IS NOT NULL AND result_deadline <= $2
		ORDER BY id ASC`
	return r.queryMatches(ctx, r.db, query, models.MatchStatePendingResult, now)
}

func (r *postgresMatchRepository) CountUnfinishedByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	query := `
		SELECT COUNT(*) FROM matches
		WHERE tournament_id = $1 AND state NOT IN ($2, $3, $4)`

	var count int
	err := r.executor(exec).QueryRowContext(ctx, query, tournamentID,
		models.MatchStateCompleted, models.MatchStateCancelled, models.MatchStateForfeit,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unfinished matches for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}
